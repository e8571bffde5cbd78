package sizing

import (
	"fmt"
	"math"
)

// Storage policy constants. They are fixed sizing policy, not run inputs.
const (
	ModelReplicationFactor = 2.5 // replicas plus versioning and staging copies
	CacheBaseGiBPerNode    = 50.0
	CacheGiBPerSession     = 1.0
	OperationalGiBPerNode  = 10.0
	StorageMarginRatio     = 0.50

	LogBytesPerRequest    = 10 * 1024
	AvgRequestDurationSec = 2.0

	ColdStartReadIOPSPerNode = 50000
	SteadyReadIOPSPerNode    = 1000
	WriteIOPSPerSessionPeak  = 2
	SteadyReadMBpsPerNode    = 512.0
	TargetModelLoadTimeSec   = 60.0

	LogFlushRequestsPerSession = 10
	LogFlushIntervalSec        = 10.0
)

// platformVolumeGB is the per-server platform footprint (OS, runtimes, images).
var platformVolumeGB = map[string]float64{
	"os":                120,
	"ai_enterprise":     250,
	"container_runtime": 80,
	"engines":           150,
	"dependencies":      50,
	"config":            25,
}

func platformGBPerServer() float64 {
	total := 0.0
	for _, gb := range platformVolumeGB {
		total += gb
	}
	return total
}

// StorageInput bundles what SizeStorage needs from the scenario pipeline.
type StorageInput struct {
	Scenario        ScenarioConfig
	Model           ModelSpec
	Profile         StorageProfile
	Nodes           int
	Concurrency     int
	SessionsPerNode int
}

// StorageSizing is the volumetry and I/O requirement of one scenario.
// Volumes are TiB; throughput is MB/s.
type StorageSizing struct {
	ArtifactGiB    float64 `json:"artifact_gib"`
	ModelTiB       float64 `json:"model_tib"`
	CacheTiB       float64 `json:"cache_tib"`
	LogsTiB        float64 `json:"logs_tib"`
	OperationalTiB float64 `json:"operational_tib"`
	PlatformTiB    float64 `json:"platform_tib"`
	// BaseTiB is the raw sum; RecommendedTiB adds StorageMarginRatio on top.
	BaseTiB        float64 `json:"base_tib"`
	RecommendedTiB float64 `json:"recommended_tib"`

	NodesRestarting int `json:"nodes_restarting"`
	ReadIOPSPeak    int `json:"read_iops_peak"`
	ReadIOPSSteady  int `json:"read_iops_steady"`
	WriteIOPSPeak   int `json:"write_iops_peak"`
	WriteIOPSSteady int `json:"write_iops_steady"`

	ColdStartFloorMBps float64 `json:"cold_start_floor_mbps"`
	ReadMBpsPeak       float64 `json:"read_mbps_peak"`
	ReadMBpsSteady     float64 `json:"read_mbps_steady"`
	WriteMBpsPeak      float64 `json:"write_mbps_peak"`
	WriteMBpsSteady    float64 `json:"write_mbps_steady"`

	Rationale []Rationale `json:"rationale"`
	Alerts    []Alert     `json:"alerts,omitempty"`
}

// SizeStorage computes storage volumetry, IOPS and throughput for one
// scenario. Exceeding the profile's limits adds warnings but never stops
// the computation.
func SizeStorage(in StorageInput) StorageSizing {
	sc := in.Scenario
	nodes := float64(in.Nodes)
	var s StorageSizing

	artifactGiB, known := in.Model.ArtifactGiB()
	if !known {
		s.Alerts = append(s.Alerts, newAlert(SeverityWarning, CodeArtifactSizeUnknown, "model",
			"model %s declares neither artifact_size_gib nor total_params_b; model storage counted as 0", in.Model.Name))
	}
	s.ArtifactGiB = artifactGiB

	// Volumetry.
	s.ModelTiB = artifactGiB * nodes * ModelReplicationFactor / 1024
	s.CacheTiB = (CacheBaseGiBPerNode + CacheGiBPerSession*float64(in.SessionsPerNode)) * sc.StorageFactor * nodes / 1024
	requestsPerDay := float64(in.Concurrency) / AvgRequestDurationSec * 86400
	s.LogsTiB = requestsPerDay * LogBytesPerRequest * float64(sc.LogRetentionDays) / (1 << 40)
	s.OperationalTiB = OperationalGiBPerNode * nodes * sc.StorageFactor / 1024
	s.PlatformTiB = platformGBPerServer() * GBToGiB * nodes / 1024
	s.BaseTiB = s.ModelTiB + s.CacheTiB + s.LogsTiB + s.OperationalTiB + s.PlatformTiB
	s.RecommendedTiB = s.BaseTiB * (1 + StorageMarginRatio)

	// IOPS.
	s.NodesRestarting = int(math.Max(1, math.Floor(nodes*sc.RestartFraction)))
	s.ReadIOPSPeak = int(math.Ceil(float64(s.NodesRestarting*ColdStartReadIOPSPerNode) * sc.StorageFactor))
	s.ReadIOPSSteady = in.Nodes * SteadyReadIOPSPerNode
	s.WriteIOPSPeak = int(math.Ceil(float64(in.Concurrency*WriteIOPSPerSessionPeak) * sc.StorageFactor))
	s.WriteIOPSSteady = in.Concurrency

	// Throughput.
	s.ColdStartFloorMBps = artifactGiB * 1024 * float64(s.NodesRestarting) / TargetModelLoadTimeSec
	s.ReadMBpsPeak = math.Max(float64(s.ReadIOPSPeak)*in.Profile.BlockSizeKBRead/1024, s.ColdStartFloorMBps)
	s.ReadMBpsSteady = SteadyReadMBpsPerNode * nodes
	logFlushMBps := float64(in.Concurrency*LogFlushRequestsPerSession*LogBytesPerRequest) / LogFlushIntervalSec / (1 << 20)
	s.WriteMBpsPeak = math.Max(float64(s.WriteIOPSPeak)*in.Profile.BlockSizeKBWrite/1024, logFlushMBps*sc.StorageFactor)
	s.WriteMBpsSteady = logFlushMBps * 0.5

	s.Rationale = storageRationale(in, s)
	s.Alerts = append(s.Alerts, storageLimitAlerts(in.Profile, s)...)
	return s
}

func storageLimitAlerts(p StorageProfile, s StorageSizing) []Alert {
	var alerts []Alert
	exceeded := func(what string, need, limit float64, unit string) {
		if limit > 0 && need > limit {
			alerts = append(alerts, newAlert(SeverityWarning, CodeStorageCapacityExceeded, "storage",
				"%s %.0f %s exceeds storage profile %s limit %.0f %s", what, need, unit, p.Name, limit, unit))
		}
	}
	exceeded("peak read IOPS", float64(s.ReadIOPSPeak), float64(p.IOPSReadMax), "IOPS")
	exceeded("peak write IOPS", float64(s.WriteIOPSPeak), float64(p.IOPSWriteMax), "IOPS")
	exceeded("peak read throughput", s.ReadMBpsPeak, p.ThroughputReadMBps, "MB/s")
	exceeded("peak write throughput", s.WriteMBpsPeak, p.ThroughputWriteMBps, "MB/s")
	exceeded("recommended volume", s.RecommendedTiB, p.UsableCapacityTiB(), "TiB")
	return alerts
}

func storageRationale(in StorageInput, s StorageSizing) []Rationale {
	sc := in.Scenario
	return []Rationale{
		{
			Name:    "storage_volume",
			Formula: "model + cache + logs + operational + platform; recommended = base × (1 + margin)",
			Inputs: map[string]any{
				"artifact_gib":       s.ArtifactGiB,
				"nodes":              in.Nodes,
				"replication_factor": ModelReplicationFactor,
				"retention_days":     sc.LogRetentionDays,
				"storage_factor":     sc.StorageFactor,
				"margin_ratio":       StorageMarginRatio,
			},
			Explanation: fmt.Sprintf("%d-day log retention and ×%.1f cache factor for %s; %.0f%% margin on the %.2f TiB base",
				sc.LogRetentionDays, sc.StorageFactor, sc.Name, StorageMarginRatio*100, s.BaseTiB),
		},
		{
			Name:    "storage_iops",
			Formula: "read peak = restarting × cold-start IOPS × factor; write peak = concurrency × 2 × factor",
			Inputs: map[string]any{
				"nodes_restarting":     s.NodesRestarting,
				"restart_fraction":     sc.RestartFraction,
				"cold_start_read_iops": ColdStartReadIOPSPerNode,
				"concurrency":          in.Concurrency,
			},
			Explanation: fmt.Sprintf("%d of %d nodes restarting simultaneously", s.NodesRestarting, in.Nodes),
		},
		{
			Name:    "storage_throughput",
			Formula: "read peak = max(IOPS × block/1024, artifact × restarting / target load time)",
			Inputs: map[string]any{
				"block_size_kb_read":    in.Profile.BlockSizeKBRead,
				"target_load_time_s":    TargetModelLoadTimeSec,
				"cold_start_floor_mbps": s.ColdStartFloorMBps,
			},
			Explanation: fmt.Sprintf("loading %.1f GiB on %d nodes within %.0fs needs at least %.0f MB/s",
				s.ArtifactGiB, s.NodesRestarting, TargetModelLoadTimeSec, s.ColdStartFloorMBps),
		},
	}
}
