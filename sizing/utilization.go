package sizing

import (
	"fmt"
	"math"
)

// HBMUtilization is the per-node HBM use of a scenario at two operating
// points: the planned concurrency spread over the final node count, and a
// node filled up to its sessions-per-node limit.
type HBMUtilization struct {
	SessionsPerNodeEffective int     `json:"sessions_per_node_effective"`
	EffectiveGiB             float64 `json:"effective_gib"`
	EffectiveRatio           float64 `json:"effective_ratio"`
	AtLimitGiB               float64 `json:"at_limit_gib"`
	AtLimitRatio             float64 `json:"at_limit_ratio"`
}

// ComputeHBMUtilization derives both operating points from the node capacity.
//
//	effective_sessions = ceil(concurrency / final_nodes)
//	effective_GiB      = overhead + effective_sessions × kvPerSession
//	at_limit_GiB       = overhead + sessions_per_node × kvPerSession
//
// Ratios are against total node HBM and stay zero when it is unknown.
func ComputeHBMUtilization(c Capacity, kvGiB float64, concurrency, finalNodes int) HBMUtilization {
	var u HBMUtilization
	if finalNodes > 0 {
		u.SessionsPerNodeEffective = int(math.Ceil(float64(concurrency) / float64(finalNodes)))
	}
	u.EffectiveGiB = c.OverheadGiB + float64(u.SessionsPerNodeEffective)*kvGiB
	u.AtLimitGiB = c.OverheadGiB + float64(c.SessionsPerNode)*kvGiB
	if c.HBMTotalGiB > 0 {
		u.EffectiveRatio = u.EffectiveGiB / c.HBMTotalGiB
		u.AtLimitRatio = u.AtLimitGiB / c.HBMTotalGiB
	}
	return u
}

func (u HBMUtilization) alert() (Alert, bool) {
	if u.AtLimitRatio <= HBMUtilizationWarnAbove {
		return Alert{}, false
	}
	return newAlert(SeverityWarning, CodeHBMUtilizationHigh, "kv_budget_ratio",
		"a node at its session limit uses %.1f%% of HBM, above %.0f%%; fragmentation may cause OOM",
		u.AtLimitRatio*100, HBMUtilizationWarnAbove*100), true
}

func (u HBMUtilization) rationale() Rationale {
	return Rationale{
		Name:    "hbm_utilization",
		Formula: "(overhead + sessions × kv_per_session) / total_HBM, at ceil(concurrency / final_nodes) and at sessions_per_node",
		Inputs: map[string]any{
			"sessions_per_node_effective": u.SessionsPerNodeEffective,
			"effective_gib":               u.EffectiveGiB,
			"at_limit_gib":                u.AtLimitGiB,
		},
		Explanation: fmt.Sprintf("%.1f%% of HBM at planned load, %.1f%% at the session limit",
			u.EffectiveRatio*100, u.AtLimitRatio*100),
	}
}
