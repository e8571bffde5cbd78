package sizing

import (
	"math"
	"strings"
)

// hbmTolerance is the accepted relative gap between the declared HBM total
// and GPU count × HBM per GPU.
const hbmTolerance = 0.01

// Operational thresholds.
const (
	BudgetRatioWarnAbove    = 0.75
	ContextNearMaxRatio     = 0.90
	MinRuntimeOverheadGiB   = 50.0
	HBMUtilizationWarnAbove = 0.90
)

// ValidateCatalog checks every spec in the catalog and returns one
// error-severity alert per problem. It never stops at the first problem.
func ValidateCatalog(c Catalog) []Alert {
	var alerts []Alert
	for _, m := range c.Models {
		alerts = append(alerts, validateModel(m)...)
	}
	for _, s := range c.Servers {
		alerts = append(alerts, validateServer(s)...)
	}
	for _, p := range c.Storage {
		alerts = append(alerts, validateStorageProfile(p)...)
	}

	names := func(kind string, list []string) {
		seen := make(map[string]string, len(list))
		for _, n := range list {
			key := strings.ToLower(n)
			if prev, dup := seen[key]; dup && key != "" {
				alerts = append(alerts, newAlert(SeverityError, CodeDuplicateName, "name",
					"duplicate %s name %q (conflicts with %q)", kind, n, prev))
				continue
			}
			seen[key] = n
		}
	}
	modelNames := make([]string, 0, len(c.Models))
	for _, m := range c.Models {
		modelNames = append(modelNames, m.Name)
	}
	serverNames := make([]string, 0, len(c.Servers))
	for _, s := range c.Servers {
		serverNames = append(serverNames, s.Name)
	}
	storageNames := make([]string, 0, len(c.Storage))
	for _, p := range c.Storage {
		storageNames = append(storageNames, p.Name)
	}
	names("model", modelNames)
	names("server", serverNames)
	names("storage profile", storageNames)
	return alerts
}

// schemaProblems accumulates schema alerts for one spec.
type schemaProblems struct {
	kind, name string
	alerts     []Alert
}

func (p *schemaProblems) add(field, format string, args ...any) {
	a := newAlert(SeverityError, CodeSchema, field, format, args...)
	a.Message = p.kind + " " + quoteName(p.name) + ": " + a.Message
	p.alerts = append(p.alerts, a)
}

func (p *schemaProblems) positiveInt(field string, v int) {
	if v <= 0 {
		p.add(field, "%s must be > 0, got %d", field, v)
	}
}

func (p *schemaProblems) positiveFloat(field string, v float64) {
	if invalidPositiveFloat(v) {
		p.add(field, "%s must be a finite value > 0, got %v", field, v)
	}
}

func quoteName(n string) string {
	if n == "" {
		return "<unnamed>"
	}
	return `"` + n + `"`
}

func validateModel(m ModelSpec) []Alert {
	p := &schemaProblems{kind: "model", name: m.Name}
	if strings.TrimSpace(m.Name) == "" {
		p.add("name", "name is required")
	}
	p.positiveInt("num_layers", m.NumLayers)
	p.positiveInt("num_kv_heads", m.NumKVHeads)
	p.positiveInt("head_dim", m.HeadDim)
	p.positiveInt("max_position_embeddings", m.MaxContext)
	if !IsValidPattern(string(m.AttentionPattern)) {
		p.add("attention_pattern", "unknown attention_pattern %q; valid: full, hybrid, sliding", m.AttentionPattern)
	}
	if !IsValidKVPrecision(m.DefaultPrecision) {
		p.add("default_kv_precision", "unknown default_kv_precision %q; valid: %s",
			m.DefaultPrecision, strings.Join(ValidKVPrecisionNames(), ", "))
	}
	if m.WeightsPrecision != "" && !IsValidWeightsPrecision(m.WeightsPrecision) {
		p.add("weights_precision", "unknown weights_precision %q", m.WeightsPrecision)
	}

	if m.AttentionPattern == PatternSliding || m.AttentionPattern == PatternHybrid {
		if m.SlidingWindow == nil || *m.SlidingWindow <= 0 {
			p.add("sliding_window", "sliding_window must be > 0 for %s attention", m.AttentionPattern)
		}
	}
	if m.AttentionPattern == PatternHybrid {
		if m.FullLayers == nil || m.SlidingLayers == nil {
			p.add("full_layers", "hybrid attention requires full_layers and sliding_layers")
		} else {
			if *m.FullLayers < 0 || *m.SlidingLayers < 0 {
				p.add("full_layers", "full_layers and sliding_layers must be >= 0")
			}
			if *m.FullLayers+*m.SlidingLayers != m.NumLayers {
				p.add("full_layers", "full_layers (%d) + sliding_layers (%d) must equal num_layers (%d)",
					*m.FullLayers, *m.SlidingLayers, m.NumLayers)
			}
		}
	}
	if m.TotalParamsB != nil && invalidPositiveFloat(*m.TotalParamsB) {
		p.add("total_params_b", "total_params_b must be a finite value > 0")
	}
	if m.ArtifactSizeGiB != nil && invalidPositiveFloat(*m.ArtifactSizeGiB) {
		p.add("artifact_size_gib", "artifact_size_gib must be a finite value > 0")
	}
	return p.alerts
}

func validateServer(s ServerSpec) []Alert {
	p := &schemaProblems{kind: "server", name: s.Name}
	if strings.TrimSpace(s.Name) == "" {
		p.add("name", "name is required")
	}
	p.positiveInt("gpu.count", s.GPU.Count)
	p.positiveFloat("gpu.hbm_per_gpu_gb", s.GPU.HBMPerGPUGB)
	p.positiveFloat("max_power_kw", s.MaxPowerKW)
	p.positiveInt("rack_units_u", s.RackUnits)
	if s.HeatOutputBTUHr != nil && invalidPositiveFloat(*s.HeatOutputBTUHr) {
		p.add("heat_output_btu_hr", "heat_output_btu_hr must be a finite value > 0")
	}
	if s.GPU.TotalHBMGB != nil && s.GPU.Count > 0 && s.GPU.HBMPerGPUGB > 0 {
		expected := float64(s.GPU.Count) * s.GPU.HBMPerGPUGB
		if math.Abs(*s.GPU.TotalHBMGB-expected)/expected > hbmTolerance {
			a := newAlert(SeverityError, CodeHBMMismatch, "gpu.total_hbm_gb",
				"server %s: total_hbm_gb %.1f differs from %d × %.1f = %.1f GB by more than %.0f%%",
				quoteName(s.Name), *s.GPU.TotalHBMGB, s.GPU.Count, s.GPU.HBMPerGPUGB, expected, hbmTolerance*100)
			p.alerts = append(p.alerts, a)
		}
	}
	return p.alerts
}

func validateStorageProfile(s StorageProfile) []Alert {
	p := &schemaProblems{kind: "storage profile", name: s.Name}
	if strings.TrimSpace(s.Name) == "" {
		p.add("name", "name is required")
	}
	if strings.TrimSpace(s.Type) == "" {
		p.add("type", "type is required")
	}
	p.positiveFloat("capacity_total_tb", s.CapacityTotalTB)
	p.positiveFloat("usable_capacity_tb", s.UsableCapacityTB)
	if s.UsableCapacityTB > s.CapacityTotalTB {
		p.add("usable_capacity_tb", "usable_capacity_tb (%v) cannot exceed capacity_total_tb (%v)",
			s.UsableCapacityTB, s.CapacityTotalTB)
	}
	p.positiveInt("iops_read_max", s.IOPSReadMax)
	p.positiveInt("iops_write_max", s.IOPSWriteMax)
	p.positiveFloat("throughput_read_mbps", s.ThroughputReadMBps)
	p.positiveFloat("throughput_write_mbps", s.ThroughputWriteMBps)
	p.positiveFloat("block_size_kb_read", s.BlockSizeKBRead)
	p.positiveFloat("block_size_kb_write", s.BlockSizeKBWrite)
	if s.RackUnits < 0 {
		p.add("rack_units_u", "rack_units_u must be >= 0")
	}
	if s.PowerKW < 0 || math.IsNaN(s.PowerKW) {
		p.add("power_kw", "power_kw must be >= 0")
	}
	return p.alerts
}

// ValidateRequirement checks the workload target. Every problem is an error.
func ValidateRequirement(r Requirement) []Alert {
	var alerts []Alert
	bad := func(field, format string, args ...any) {
		alerts = append(alerts, newAlert(SeverityError, CodeInvalidRequirement, field, format, args...))
	}
	if r.Concurrency <= 0 {
		bad("concurrency", "concurrency must be > 0, got %d", r.Concurrency)
	}
	if r.EffectiveContext <= 0 {
		bad("effective_context", "effective context must be > 0, got %d", r.EffectiveContext)
	}
	if !IsValidKVPrecision(r.KVPrecision) {
		bad("kv_precision", "unknown KV precision %q; valid: %s", r.KVPrecision, strings.Join(ValidKVPrecisionNames(), ", "))
	}
	if invalidPositiveFloat(r.KVBudgetRatio) || r.KVBudgetRatio > 1 {
		bad("kv_budget_ratio", "KV budget ratio must be in (0, 1], got %v", r.KVBudgetRatio)
	}
	if r.RuntimeOverheadGiB < 0 || math.IsNaN(r.RuntimeOverheadGiB) || math.IsInf(r.RuntimeOverheadGiB, 0) {
		bad("runtime_overhead_gib", "runtime overhead must be a finite value >= 0, got %v", r.RuntimeOverheadGiB)
	}
	if r.PeakHeadroomRatio < 0 || math.IsNaN(r.PeakHeadroomRatio) || math.IsInf(r.PeakHeadroomRatio, 0) {
		bad("peak_headroom_ratio", "peak headroom ratio must be a finite value >= 0, got %v", r.PeakHeadroomRatio)
	}
	if r.WarmupPattern != ReadPatternSequential && r.WarmupPattern != ReadPatternRandom {
		bad("warmup_pattern", "warmup pattern must be %q or %q, got %q", ReadPatternSequential, ReadPatternRandom, r.WarmupPattern)
	}
	if invalidPositiveFloat(r.WarmupUtilization) || r.WarmupUtilization > 1 {
		bad("warmup_utilization", "warmup utilization must be in (0, 1], got %v", r.WarmupUtilization)
	}
	return alerts
}

// OperationalAlerts flags risky but valid choices. None of them block sizing.
func OperationalAlerts(m ModelSpec, r Requirement, kv KVMemory) []Alert {
	alerts := append([]Alert(nil), kv.Alerts...)
	if r.KVPrecision.Is16Bit() {
		alerts = append(alerts, newAlert(SeverityInfo, CodePrecision16Bit, "kv_precision",
			"KV precision %s uses 2 bytes per element, doubling KV memory compared to fp8", r.KVPrecision))
	}
	if r.KVBudgetRatio > BudgetRatioWarnAbove {
		alerts = append(alerts, newAlert(SeverityWarning, CodeBudgetRatioHigh, "kv_budget_ratio",
			"KV budget ratio %.2f is above %.2f; fragmentation and activation spikes may exhaust HBM",
			r.KVBudgetRatio, BudgetRatioWarnAbove))
	}
	if m.MaxContext > 0 && float64(kv.EffectiveContext) > ContextNearMaxRatio*float64(m.MaxContext) {
		alerts = append(alerts, newAlert(SeverityInfo, CodeContextNearMax, "effective_context",
			"effective context %d is above %.0f%% of the model maximum %d",
			kv.EffectiveContext, ContextNearMaxRatio*100, m.MaxContext))
	}
	if r.RuntimeOverheadGiB < MinRuntimeOverheadGiB {
		alerts = append(alerts, newAlert(SeverityWarning, CodeOverheadLow, "runtime_overhead_gib",
			"runtime overhead %.0f GiB is below %.0f GiB; weights and activations may not fit",
			r.RuntimeOverheadGiB, MinRuntimeOverheadGiB))
	}
	return alerts
}
