package sizing

import (
	"errors"
	"fmt"
	"math"
)

// ErrZeroSessionsPerNode means a node cannot hold a single session under the
// given budget. Node counts are undefined in that case.
var ErrZeroSessionsPerNode = errors.New("zero sessions per node")

// Capacity is the HBM budget of one node.
type Capacity struct {
	HBMTotalGiB     float64 `json:"hbm_total_gib"`
	OverheadGiB     float64 `json:"overhead_gib"`
	AvailableGiB    float64 `json:"available_gib"`
	BudgetRatio     float64 `json:"budget_ratio"`
	BudgetGiB       float64 `json:"budget_gib"`
	SessionsPerNode int     `json:"sessions_per_node"`
}

// SessionsPerNode converts server HBM into a number of concurrent sessions.
//
//	available = totalHBM(GiB) − overhead
//	budget    = available × budgetRatio
//	sessions  = floor(budget / kvPerSession)
//
// When available ≤ 0 or sessions == 0 the returned error wraps
// ErrZeroSessionsPerNode; Capacity is still filled in for reporting.
func SessionsPerNode(server ServerSpec, overheadGiB, budgetRatio, kvPerSessionGiB float64) (Capacity, error) {
	c := Capacity{
		HBMTotalGiB: server.TotalHBMGiB(),
		OverheadGiB: overheadGiB,
		BudgetRatio: budgetRatio,
	}
	c.AvailableGiB = c.HBMTotalGiB - overheadGiB
	if c.AvailableGiB <= 0 {
		return c, fmt.Errorf("%w: runtime overhead %.1f GiB leaves no HBM on %s (%.1f GiB total)",
			ErrZeroSessionsPerNode, overheadGiB, server.Name, c.HBMTotalGiB)
	}
	c.BudgetGiB = c.AvailableGiB * budgetRatio
	if kvPerSessionGiB > 0 {
		c.SessionsPerNode = int(math.Floor(c.BudgetGiB / kvPerSessionGiB))
	}
	if c.SessionsPerNode <= 0 {
		c.SessionsPerNode = 0
		return c, fmt.Errorf("%w: KV per session %.2f GiB exceeds the %.1f GiB budget on %s",
			ErrZeroSessionsPerNode, kvPerSessionGiB, c.BudgetGiB, server.Name)
	}
	return c, nil
}
