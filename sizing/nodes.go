package sizing

import (
	"fmt"
	"math"
)

// NodeCounts are the three stages of the node-count computation.
// Final ≥ WithHeadroom ≥ Capacity ≥ 0.
type NodeCounts struct {
	Capacity     int `json:"capacity"`
	WithHeadroom int `json:"with_headroom"`
	Final        int `json:"final"`
}

// NodeCount sizes the cluster for concurrency sessions. All rounding is upward.
//
//	capacity     = ceil(concurrency / sessionsPerNode)
//	withHeadroom = ceil(concurrency × (1 + headroom) / sessionsPerNode)
//	final        = withHeadroom + haExtraNodes
func NodeCount(concurrency, sessionsPerNode int, headroomRatio float64, haExtraNodes int) (NodeCounts, error) {
	if sessionsPerNode <= 0 {
		return NodeCounts{}, fmt.Errorf("node count: %w", ErrZeroSessionsPerNode)
	}
	if concurrency < 0 || headroomRatio < 0 || haExtraNodes < 0 {
		return NodeCounts{}, fmt.Errorf("node count: negative input (concurrency=%d, headroom=%v, ha=%d)",
			concurrency, headroomRatio, haExtraNodes)
	}
	spn := float64(sessionsPerNode)
	// Round away float noise so 1000 × 1.2 never becomes 1200.0000000000002.
	demand := math.Round(float64(concurrency)*(1+headroomRatio)*1e9) / 1e9

	n := NodeCounts{
		Capacity:     int(math.Ceil(float64(concurrency) / spn)),
		WithHeadroom: int(math.Ceil(demand / spn)),
	}
	n.Final = n.WithHeadroom + haExtraNodes
	return n, nil
}
