package sizing

import (
	"fmt"
	"math"
)

// Warmup read patterns.
const (
	ReadPatternSequential = "seq"
	ReadPatternRandom     = "rand"
)

// Warmup bottlenecks.
const (
	BottleneckThroughput = "throughput-limited"
	BottleneckIOPS       = "iops-limited"
)

// WarmupEstimate is the time to load model artifacts from storage into
// memory when Concurrency pods start together.
type WarmupEstimate struct {
	ArtifactGiB      float64 `json:"artifact_gib"`
	Concurrency      int     `json:"concurrency"`
	ReadPattern      string  `json:"read_pattern"`
	UtilizationRatio float64 `json:"utilization_ratio"`
	EffectiveMBps    float64 `json:"effective_mbps"`
	EffectiveIOPS    int     `json:"effective_iops"`
	PerPodSeconds    float64 `json:"per_pod_seconds"`
	ClusterSeconds   float64 `json:"cluster_seconds"`
	IOPSBoundSeconds float64 `json:"iops_bound_seconds"`
	FinalSeconds     float64 `json:"final_seconds"`
	Bottleneck       string  `json:"bottleneck"`
	WithinLoadTarget bool    `json:"within_load_target"`
}

// EstimateWarmup models storage as a shared bottleneck during cold start.
// Effective throughput is the lesser of the declared figure and
// IOPS × block size, scaled by utilization. For random reads the IOPS bound
// is also evaluated and wins when it is more than 10% slower.
func EstimateWarmup(p StorageProfile, artifactGiB float64, concurrency int, pattern string, utilization float64) WarmupEstimate {
	w := WarmupEstimate{
		ArtifactGiB:      artifactGiB,
		Concurrency:      concurrency,
		ReadPattern:      pattern,
		UtilizationRatio: utilization,
		Bottleneck:       BottleneckThroughput,
	}
	artifactMiB := artifactGiB * 1024

	theoreticalMBps := float64(p.IOPSReadMax) * p.BlockSizeKBRead / 1024
	w.EffectiveMBps = math.Min(p.ThroughputReadMBps, theoreticalMBps) * utilization
	w.EffectiveIOPS = int(float64(p.IOPSReadMax) * utilization)

	if w.EffectiveMBps > 0 {
		w.PerPodSeconds = artifactMiB / w.EffectiveMBps
		w.ClusterSeconds = artifactMiB * float64(concurrency) / w.EffectiveMBps
	}

	if pattern == ReadPatternRandom && p.BlockSizeKBRead > 0 && w.EffectiveIOPS > 0 {
		totalIOs := artifactMiB / (p.BlockSizeKBRead / 1024) * float64(concurrency)
		w.IOPSBoundSeconds = totalIOs / float64(w.EffectiveIOPS)
	}

	w.FinalSeconds = w.ClusterSeconds
	if pattern == ReadPatternRandom && w.IOPSBoundSeconds > w.ClusterSeconds*1.1 {
		w.FinalSeconds = w.IOPSBoundSeconds
		w.Bottleneck = BottleneckIOPS
	}
	w.WithinLoadTarget = w.FinalSeconds <= TargetModelLoadTimeSec
	return w
}

func (w WarmupEstimate) alert(profile string) (Alert, bool) {
	if w.WithinLoadTarget || w.ArtifactGiB == 0 {
		return Alert{}, false
	}
	return newAlert(SeverityWarning, CodeColdStartSlow, "storage",
		"cold start of %d node(s) takes %.0fs on %s (%s), above the %.0fs target",
		w.Concurrency, w.FinalSeconds, profile, w.Bottleneck, TargetModelLoadTimeSec), true
}

func (w WarmupEstimate) rationale() Rationale {
	return Rationale{
		Name:    "warmup",
		Formula: "time = artifact_MiB × concurrency / (min(throughput, IOPS × block/1024) × utilization)",
		Inputs: map[string]any{
			"artifact_gib":   w.ArtifactGiB,
			"concurrency":    w.Concurrency,
			"read_pattern":   w.ReadPattern,
			"utilization":    w.UtilizationRatio,
			"effective_mbps": w.EffectiveMBps,
		},
		Explanation: fmt.Sprintf("%s cold start estimated at %.1fs", w.Bottleneck, w.FinalSeconds),
	}
}
