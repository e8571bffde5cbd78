// Package sizing is the capacity-planning engine for LLM inference deployments.
//
// Given a model architecture, an accelerator server, a storage profile and a
// workload requirement, it computes:
//
//   - KV-cache bytes per active session (KVBytesPerSession)
//   - sessions per node from the HBM budget (SessionsPerNode)
//   - node counts with headroom and HA reserve (NodeCount)
//   - the three resilience scenarios, minimum, recommended and ideal (Run)
//   - storage volumetry, IOPS and throughput per scenario (SizeStorage)
//   - power, rack space and heat per scenario (AggregatePhysical)
//
// Findings are returned as typed Alerts rather than errors so that a failure
// in one scenario never hides the others. The package performs no I/O; use
// sizing/catalog to load inputs and sizing/report to render a Plan.
package sizing
