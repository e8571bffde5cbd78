package sizing

import "math"

// ScenarioPolicy is one row of the resilience policy table. Adding a
// scenario means adding a row; the computation iterates rows uniformly.
type ScenarioPolicy struct {
	Name   string
	HAMode string
	// HeadroomOverride, when set, replaces the configured headroom.
	HeadroomOverride *float64
	// HeadroomFloor raises the configured headroom to at least this value.
	HeadroomFloor float64
	// BudgetRatioCeiling, when set, caps the configured KV budget ratio.
	BudgetRatioCeiling *float64
	HAExtraNodes       int

	LogRetentionDays int
	// RestartFraction is the share of nodes assumed to cold-start at once.
	RestartFraction float64
	// StorageFactor scales cache, operational volume and peak I/O.
	StorageFactor float64
}

func float64Ptr(v float64) *float64 { return &v }

// ScenarioPolicies are evaluated in this order for every run.
var ScenarioPolicies = []ScenarioPolicy{
	{
		Name:             "minimum",
		HAMode:           "none",
		HeadroomOverride: float64Ptr(0),
		HAExtraNodes:     0,
		LogRetentionDays: 7,
		RestartFraction:  0.25,
		StorageFactor:    1.0,
	},
	{
		Name:             "recommended",
		HAMode:           "N+1",
		HAExtraNodes:     1,
		LogRetentionDays: 30,
		RestartFraction:  0.25,
		StorageFactor:    1.5,
	},
	{
		Name:               "ideal",
		HAMode:             "N+2",
		HeadroomFloor:      0.30,
		BudgetRatioCeiling: float64Ptr(0.65),
		HAExtraNodes:       2,
		LogRetentionDays:   90,
		RestartFraction:    0.25,
		StorageFactor:      2.0,
	},
}

// ScenarioConfig is a policy row resolved against one Requirement.
type ScenarioConfig struct {
	Name             string  `json:"name"`
	HAMode           string  `json:"ha_mode"`
	HeadroomRatio    float64 `json:"headroom_ratio"`
	HAExtraNodes     int     `json:"ha_extra_nodes"`
	KVBudgetRatio    float64 `json:"kv_budget_ratio"`
	LogRetentionDays int     `json:"log_retention_days"`
	RestartFraction  float64 `json:"restart_fraction"`
	StorageFactor    float64 `json:"storage_factor"`
}

// BuildScenarioConfig applies policy to the requirement's headroom and budget ratio.
func BuildScenarioConfig(policy ScenarioPolicy, req Requirement) ScenarioConfig {
	headroom := math.Max(req.PeakHeadroomRatio, policy.HeadroomFloor)
	if policy.HeadroomOverride != nil {
		headroom = *policy.HeadroomOverride
	}
	budget := req.KVBudgetRatio
	if policy.BudgetRatioCeiling != nil {
		budget = math.Min(budget, *policy.BudgetRatioCeiling)
	}
	return ScenarioConfig{
		Name:             policy.Name,
		HAMode:           policy.HAMode,
		HeadroomRatio:    headroom,
		HAExtraNodes:     policy.HAExtraNodes,
		KVBudgetRatio:    budget,
		LogRetentionDays: policy.LogRetentionDays,
		RestartFraction:  policy.RestartFraction,
		StorageFactor:    policy.StorageFactor,
	}
}

// ScenarioResult is the sizing outcome of one scenario. Utilization, Storage,
// Warmup and Physical are nil when the scenario is not viable.
type ScenarioResult struct {
	Config          ScenarioConfig     `json:"config"`
	KVPerSessionGiB float64            `json:"kv_per_session_gib"`
	KVTotalGiB      float64            `json:"kv_total_gib"`
	Capacity        Capacity           `json:"capacity"`
	Nodes           NodeCounts         `json:"nodes"`
	Viable          bool               `json:"viable"`
	Utilization     *HBMUtilization    `json:"hbm_utilization,omitempty"`
	Storage         *StorageSizing     `json:"storage,omitempty"`
	Warmup          *WarmupEstimate    `json:"warmup,omitempty"`
	Physical        *PhysicalFootprint `json:"physical,omitempty"`
	Rationale       []Rationale        `json:"rationale"`
	Alerts          []Alert            `json:"alerts,omitempty"`
}
