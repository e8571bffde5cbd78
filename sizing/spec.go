package sizing

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// GBToGiB converts decimal gigabytes (vendor HBM figures) to binary GiB.
const GBToGiB = 1e9 / (1 << 30)

// AttentionPattern is the per-layer attention span policy of a model.
type AttentionPattern string

const (
	PatternFull    AttentionPattern = "full"
	PatternSliding AttentionPattern = "sliding"
	PatternHybrid  AttentionPattern = "hybrid"
)

// Precision is a numeric format for KV-cache entries or weights.
type Precision string

const (
	PrecisionFP8  Precision = "fp8"
	PrecisionINT8 Precision = "int8"
	PrecisionFP16 Precision = "fp16"
	PrecisionBF16 Precision = "bf16"
	PrecisionINT4 Precision = "int4"
	PrecisionFP32 Precision = "fp32"
)

var (
	validPatterns = map[string]bool{"full": true, "sliding": true, "hybrid": true}

	// kvBytesPerElement lists the precisions accepted for the KV cache.
	kvBytesPerElement = map[Precision]int64{
		PrecisionFP8:  1,
		PrecisionINT8: 1,
		PrecisionFP16: 2,
		PrecisionBF16: 2,
	}

	weightBytesPerParam = map[Precision]float64{
		PrecisionINT4: 0.5,
		PrecisionFP8:  1,
		PrecisionINT8: 1,
		PrecisionFP16: 2,
		PrecisionBF16: 2,
		PrecisionFP32: 4,
	}
)

// IsValidPattern returns true if name is a known attention pattern.
func IsValidPattern(name string) bool { return validPatterns[name] }

// IsValidKVPrecision returns true if p can be used for KV-cache storage.
func IsValidKVPrecision(p Precision) bool {
	_, ok := kvBytesPerElement[p]
	return ok
}

// IsValidWeightsPrecision returns true if p is a known weights format.
func IsValidWeightsPrecision(p Precision) bool {
	_, ok := weightBytesPerParam[p]
	return ok
}

// ValidKVPrecisionNames returns the accepted KV precisions, sorted.
func ValidKVPrecisionNames() []string {
	names := make([]string, 0, len(kvBytesPerElement))
	for p := range kvBytesPerElement {
		names = append(names, string(p))
	}
	sort.Strings(names)
	return names
}

// BytesPerElement returns the KV-cache element width, or 0 for an unknown precision.
func (p Precision) BytesPerElement() int64 { return kvBytesPerElement[p] }

// Is16Bit reports whether p stores KV entries in two bytes.
func (p Precision) Is16Bit() bool { return kvBytesPerElement[p] == 2 }

// ModelSpec is a fixed LLM architecture. Optional fields are pointers.
type ModelSpec struct {
	Name             string           `yaml:"name" json:"name"`
	NumLayers        int              `yaml:"num_layers" json:"num_layers"`
	NumKVHeads       int              `yaml:"num_kv_heads" json:"num_kv_heads"`
	HeadDim          int              `yaml:"head_dim" json:"head_dim"`
	MaxContext       int              `yaml:"max_position_embeddings" json:"max_position_embeddings"`
	AttentionPattern AttentionPattern `yaml:"attention_pattern" json:"attention_pattern"`
	SlidingWindow    *int             `yaml:"sliding_window,omitempty" json:"sliding_window,omitempty"`
	FullLayers       *int             `yaml:"full_layers,omitempty" json:"full_layers,omitempty"`
	SlidingLayers    *int             `yaml:"sliding_layers,omitempty" json:"sliding_layers,omitempty"`
	DefaultPrecision Precision        `yaml:"default_kv_precision" json:"default_kv_precision"`

	// Used for storage sizing. ArtifactSizeGiB wins over the parameter estimate.
	TotalParamsB     *float64  `yaml:"total_params_b,omitempty" json:"total_params_b,omitempty"`
	WeightsPrecision Precision `yaml:"weights_precision,omitempty" json:"weights_precision,omitempty"`
	ArtifactSizeGiB  *float64  `yaml:"artifact_size_gib,omitempty" json:"artifact_size_gib,omitempty"`

	Notes string `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// ArtifactGiB returns the on-disk size of the model weights and whether it is known.
func (m ModelSpec) ArtifactGiB() (float64, bool) {
	if m.ArtifactSizeGiB != nil && *m.ArtifactSizeGiB > 0 {
		return *m.ArtifactSizeGiB, true
	}
	if m.TotalParamsB != nil && *m.TotalParamsB > 0 {
		bpp, ok := weightBytesPerParam[m.WeightsPrecision]
		if !ok {
			return 0, false
		}
		return *m.TotalParamsB * 1e9 * bpp / (1 << 30), true
	}
	return 0, false
}

// GPUSpec describes the accelerators installed in one server.
type GPUSpec struct {
	Count       int      `yaml:"count" json:"count"`
	Model       string   `yaml:"model,omitempty" json:"model,omitempty"`
	HBMPerGPUGB float64  `yaml:"hbm_per_gpu_gb" json:"hbm_per_gpu_gb"`
	TotalHBMGB  *float64 `yaml:"total_hbm_gb,omitempty" json:"total_hbm_gb,omitempty"`
}

// ServerSpec is a fixed accelerator node.
type ServerSpec struct {
	Name            string   `yaml:"name" json:"name"`
	GPU             GPUSpec  `yaml:"gpu" json:"gpu"`
	MaxPowerKW      float64  `yaml:"max_power_kw" json:"max_power_kw"`
	RackUnits       int      `yaml:"rack_units_u" json:"rack_units_u"`
	HeatOutputBTUHr *float64 `yaml:"heat_output_btu_hr,omitempty" json:"heat_output_btu_hr,omitempty"`
	Notes           string   `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// TotalHBMGB returns the declared HBM total, or count × per-GPU when not declared.
func (s ServerSpec) TotalHBMGB() float64 {
	if s.GPU.TotalHBMGB != nil {
		return *s.GPU.TotalHBMGB
	}
	return float64(s.GPU.Count) * s.GPU.HBMPerGPUGB
}

// TotalHBMGiB is TotalHBMGB in binary units.
func (s ServerSpec) TotalHBMGiB() float64 { return s.TotalHBMGB() * GBToGiB }

// StorageProfile is a fixed storage system. Throughput is decimal MB/s,
// block sizes are KB.
type StorageProfile struct {
	Name                string  `yaml:"name" json:"name"`
	Type                string  `yaml:"type" json:"type"`
	CapacityTotalTB     float64 `yaml:"capacity_total_tb" json:"capacity_total_tb"`
	UsableCapacityTB    float64 `yaml:"usable_capacity_tb" json:"usable_capacity_tb"`
	IOPSReadMax         int     `yaml:"iops_read_max" json:"iops_read_max"`
	IOPSWriteMax        int     `yaml:"iops_write_max" json:"iops_write_max"`
	ThroughputReadMBps  float64 `yaml:"throughput_read_mbps" json:"throughput_read_mbps"`
	ThroughputWriteMBps float64 `yaml:"throughput_write_mbps" json:"throughput_write_mbps"`
	BlockSizeKBRead     float64 `yaml:"block_size_kb_read" json:"block_size_kb_read"`
	BlockSizeKBWrite    float64 `yaml:"block_size_kb_write" json:"block_size_kb_write"`
	LatencyReadMsP50    float64 `yaml:"latency_read_ms_p50,omitempty" json:"latency_read_ms_p50,omitempty"`
	LatencyReadMsP99    float64 `yaml:"latency_read_ms_p99,omitempty" json:"latency_read_ms_p99,omitempty"`
	LatencyWriteMsP50   float64 `yaml:"latency_write_ms_p50,omitempty" json:"latency_write_ms_p50,omitempty"`
	LatencyWriteMsP99   float64 `yaml:"latency_write_ms_p99,omitempty" json:"latency_write_ms_p99,omitempty"`
	RackUnits           int     `yaml:"rack_units_u,omitempty" json:"rack_units_u,omitempty"`
	PowerKW             float64 `yaml:"power_kw,omitempty" json:"power_kw,omitempty"`
	Notes               string  `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// UsableCapacityTiB converts the decimal usable capacity to TiB.
func (p StorageProfile) UsableCapacityTiB() float64 {
	return p.UsableCapacityTB * 1e12 / (1 << 40)
}

// Catalog holds the immutable spec collections for one sizing run.
type Catalog struct {
	Models  []ModelSpec      `yaml:"models" json:"models"`
	Servers []ServerSpec     `yaml:"servers" json:"servers"`
	Storage []StorageProfile `yaml:"storage_profiles" json:"storage_profiles"`
}

// Model looks up a model by case-insensitive name.
func (c Catalog) Model(name string) (ModelSpec, error) {
	names := make([]string, 0, len(c.Models))
	for _, m := range c.Models {
		if strings.EqualFold(m.Name, name) {
			return m, nil
		}
		names = append(names, m.Name)
	}
	return ModelSpec{}, notFound("model", name, names)
}

// Server looks up a server by case-insensitive name.
func (c Catalog) Server(name string) (ServerSpec, error) {
	names := make([]string, 0, len(c.Servers))
	for _, s := range c.Servers {
		if strings.EqualFold(s.Name, name) {
			return s, nil
		}
		names = append(names, s.Name)
	}
	return ServerSpec{}, notFound("server", name, names)
}

// StorageProfile looks up a storage profile by case-insensitive name.
func (c Catalog) StorageProfile(name string) (StorageProfile, error) {
	names := make([]string, 0, len(c.Storage))
	for _, p := range c.Storage {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
		names = append(names, p.Name)
	}
	return StorageProfile{}, notFound("storage profile", name, names)
}

func notFound(kind, name string, available []string) error {
	sort.Strings(available)
	return fmt.Errorf("%s %q not found in catalog (available: %v)", kind, name, available)
}

// invalidPositiveFloat returns true if v is NaN, Inf, or <= 0.
func invalidPositiveFloat(v float64) bool {
	return v <= 0 || math.IsNaN(v) || math.IsInf(v, 0)
}

// Requirement is the workload target for one run.
type Requirement struct {
	Model              string    `json:"model"`
	Server             string    `json:"server"`
	Storage            string    `json:"storage"`
	Concurrency        int       `json:"concurrency"`
	EffectiveContext   int       `json:"effective_context"`
	KVPrecision        Precision `json:"kv_precision"`
	KVBudgetRatio      float64   `json:"kv_budget_ratio"`
	RuntimeOverheadGiB float64   `json:"runtime_overhead_gib"`
	PeakHeadroomRatio  float64   `json:"peak_headroom_ratio"`
	WarmupPattern      string    `json:"warmup_pattern"`
	WarmupUtilization  float64   `json:"warmup_utilization"`
}

// Requirement defaults.
const (
	DefaultKVBudgetRatio      = 0.70
	DefaultRuntimeOverheadGiB = 120.0
	DefaultPeakHeadroomRatio  = 0.20
	DefaultWarmupPattern      = "seq"
	DefaultWarmupUtilization  = 0.8
)

// withDefaults lowercases the enum fields, then fills the KV precision from
// the model and the warmup knobs when they were left empty.
func (r Requirement) withDefaults(m ModelSpec) Requirement {
	r.KVPrecision = Precision(strings.ToLower(string(r.KVPrecision)))
	r.WarmupPattern = strings.ToLower(r.WarmupPattern)
	if r.KVPrecision == "" {
		r.KVPrecision = m.DefaultPrecision
	}
	if r.WarmupPattern == "" {
		r.WarmupPattern = DefaultWarmupPattern
	}
	if r.WarmupUtilization == 0 {
		r.WarmupUtilization = DefaultWarmupUtilization
	}
	return r
}
