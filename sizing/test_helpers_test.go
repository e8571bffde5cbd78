package sizing

func intPtr(v int) *int { return &v }

// testHybridModel is a 36-layer model alternating full and 128-token
// sliding-window attention, 8 KV heads of dimension 64, 128K context.
func testHybridModel() ModelSpec {
	return ModelSpec{
		Name:             "hybrid-36l",
		NumLayers:        36,
		NumKVHeads:       8,
		HeadDim:          64,
		MaxContext:       131072,
		AttentionPattern: PatternHybrid,
		SlidingWindow:    intPtr(128),
		FullLayers:       intPtr(18),
		SlidingLayers:    intPtr(18),
		DefaultPrecision: PrecisionFP8,
		ArtifactSizeGiB:  float64Ptr(61),
	}
}

func testFullModel() ModelSpec {
	return ModelSpec{
		Name:             "dense-32l",
		NumLayers:        32,
		NumKVHeads:       8,
		HeadDim:          128,
		MaxContext:       32768,
		AttentionPattern: PatternFull,
		DefaultPrecision: PrecisionFP16,
		TotalParamsB:     float64Ptr(8),
		WeightsPrecision: PrecisionBF16,
	}
}

func testSlidingModel() ModelSpec {
	return ModelSpec{
		Name:             "sliding-24l",
		NumLayers:        24,
		NumKVHeads:       4,
		HeadDim:          128,
		MaxContext:       65536,
		AttentionPattern: PatternSliding,
		SlidingWindow:    intPtr(4096),
		DefaultPrecision: PrecisionFP8,
	}
}

// testServer has 8 × 288 GB HBM = 2304 GB.
func testServer() ServerSpec {
	return ServerSpec{
		Name:            "gpu-node-8x288",
		GPU:             GPUSpec{Count: 8, Model: "B300", HBMPerGPUGB: 288, TotalHBMGB: float64Ptr(2304)},
		MaxPowerKW:      14.5,
		RackUnits:       10,
		HeatOutputBTUHr: float64Ptr(49500),
	}
}

// testProfile is exactly consistent: 64 KB × IOPS / 1024 = MB/s on both axes.
func testProfile() StorageProfile {
	return StorageProfile{
		Name:                "nvme-tier1",
		Type:                "nvme_local",
		CapacityTotalTB:     500,
		UsableCapacityTB:    400,
		IOPSReadMax:         1000000,
		IOPSWriteMax:        500000,
		ThroughputReadMBps:  62500,
		ThroughputWriteMBps: 31250,
		BlockSizeKBRead:     64,
		BlockSizeKBWrite:    64,
		RackUnits:           2,
		PowerKW:             1.5,
	}
}

func testCatalog() Catalog {
	return Catalog{
		Models:  []ModelSpec{testHybridModel(), testFullModel(), testSlidingModel()},
		Servers: []ServerSpec{testServer()},
		Storage: []StorageProfile{testProfile()},
	}
}

func testRequirement() Requirement {
	return Requirement{
		Model:              "hybrid-36l",
		Server:             "gpu-node-8x288",
		Storage:            "nvme-tier1",
		Concurrency:        1000,
		EffectiveContext:   131072,
		KVPrecision:        PrecisionFP8,
		KVBudgetRatio:      DefaultKVBudgetRatio,
		RuntimeOverheadGiB: DefaultRuntimeOverheadGiB,
		PeakHeadroomRatio:  DefaultPeakHeadroomRatio,
	}
}

func alertCodes(alerts []Alert) []string {
	codes := make([]string, 0, len(alerts))
	for _, a := range alerts {
		codes = append(codes, a.Code)
	}
	return codes
}
