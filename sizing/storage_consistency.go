package sizing

import "math"

// Consistency statuses of a storage axis.
const (
	ConsistencyOK    = "ok"
	ConsistencyWarn  = "warn"
	ConsistencyError = "error"
)

// Divergence bands for declared vs derived storage figures.
const (
	ConsistencyWarnThreshold  = 0.10
	ConsistencyErrorThreshold = 0.25
)

// AxisConsistency compares the declared IOPS, throughput and block size of
// one I/O direction against the figures derived from the other two.
type AxisConsistency struct {
	Direction       string  `json:"direction"`
	DeclaredMBps    float64 `json:"declared_mbps"`
	DerivedMBps     float64 `json:"derived_mbps"`
	DeclaredIOPS    int     `json:"declared_iops"`
	DerivedIOPS     int     `json:"derived_iops"`
	DeclaredBlockKB float64 `json:"declared_block_kb"`
	DerivedBlockKB  float64 `json:"derived_block_kb"`
	Divergence      float64 `json:"divergence"`
	Status          string  `json:"status"`
}

// StorageConsistency is the physical self-consistency check of a profile.
type StorageConsistency struct {
	Profile string          `json:"profile"`
	Read    AxisConsistency `json:"read"`
	Write   AxisConsistency `json:"write"`
	Status  string          `json:"status"`
}

// CheckStorageConsistency verifies throughput(MB/s) ≈ IOPS × blockSize(KB) / 1024
// for both directions. The overall status is the worse of the two axes.
func CheckStorageConsistency(p StorageProfile) StorageConsistency {
	c := StorageConsistency{
		Profile: p.Name,
		Read:    checkAxis("read", p.IOPSReadMax, p.ThroughputReadMBps, p.BlockSizeKBRead),
		Write:   checkAxis("write", p.IOPSWriteMax, p.ThroughputWriteMBps, p.BlockSizeKBWrite),
	}
	c.Status = c.Read.Status
	if statusRank(c.Write.Status) > statusRank(c.Read.Status) {
		c.Status = c.Write.Status
	}
	return c
}

func checkAxis(direction string, iops int, mbps, blockKB float64) AxisConsistency {
	a := AxisConsistency{
		Direction:       direction,
		DeclaredMBps:    mbps,
		DeclaredIOPS:    iops,
		DeclaredBlockKB: blockKB,
	}
	a.DerivedMBps = float64(iops) * blockKB / 1024
	if blockKB > 0 {
		a.DerivedIOPS = int(math.Round(mbps * 1024 / blockKB))
	}
	if iops > 0 {
		a.DerivedBlockKB = mbps * 1024 / float64(iops)
	}
	a.Divergence = math.Max(relativeDivergence(mbps, a.DerivedMBps),
		math.Max(relativeDivergence(float64(iops), float64(a.DerivedIOPS)),
			relativeDivergence(blockKB, a.DerivedBlockKB)))

	switch {
	case a.Divergence > ConsistencyErrorThreshold:
		a.Status = ConsistencyError
	case a.Divergence > ConsistencyWarnThreshold:
		a.Status = ConsistencyWarn
	default:
		a.Status = ConsistencyOK
	}
	return a
}

// relativeDivergence is |a−b| / max(|a|,|b|), 0 when both are 0.
func relativeDivergence(a, b float64) float64 {
	den := math.Max(math.Abs(a), math.Abs(b))
	if den == 0 {
		return 0
	}
	return math.Abs(a-b) / den
}

func statusRank(s string) int {
	switch s {
	case ConsistencyError:
		return 2
	case ConsistencyWarn:
		return 1
	}
	return 0
}

// ConsistencyAlerts maps warn axes to warnings and error axes to errors.
// An error means reports depending on this profile must not be produced.
func ConsistencyAlerts(c StorageConsistency) []Alert {
	var alerts []Alert
	for _, a := range []AxisConsistency{c.Read, c.Write} {
		sev := SeverityWarning
		switch a.Status {
		case ConsistencyOK:
			continue
		case ConsistencyError:
			sev = SeverityError
		}
		alerts = append(alerts, newAlert(sev, CodeStorageInconsistent, "storage",
			"storage profile %s %s axis: declared %.0f MB/s vs IOPS × block = %.0f MB/s (divergence %.1f%%)",
			c.Profile, a.Direction, a.DeclaredMBps, a.DerivedMBps, a.Divergence*100))
	}
	return alerts
}
