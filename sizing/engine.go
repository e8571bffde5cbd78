package sizing

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Plan is the complete output of one sizing run.
type Plan struct {
	Requirement Requirement        `json:"requirement"`
	Model       ModelSpec          `json:"model"`
	Server      ServerSpec         `json:"server"`
	Storage     StorageProfile     `json:"storage"`
	Consistency StorageConsistency `json:"storage_consistency"`
	KV          KVMemory           `json:"kv"`
	// Scenarios follow ScenarioPolicies order.
	Scenarios []ScenarioResult `json:"scenarios"`
	// Alerts is every finding of the run: validation and operational
	// alerts first, then each scenario's alerts in scenario order.
	Alerts []Alert `json:"alerts"`
}

// ByName indexes the scenario results by scenario name.
func (p *Plan) ByName() map[string]ScenarioResult {
	m := make(map[string]ScenarioResult, len(p.Scenarios))
	for _, s := range p.Scenarios {
		m[s.Config.Name] = s
	}
	return m
}

// Scenario returns the named scenario result.
func (p *Plan) Scenario(name string) (ScenarioResult, bool) {
	for _, s := range p.Scenarios {
		if s.Config.Name == name {
			return s, true
		}
	}
	return ScenarioResult{}, false
}

// Run sizes req against the catalog. The catalog is read, never modified.
//
// Lookup failures return a plain error. Any invalid spec in the catalog, an invalid
// requirement, or a storage profile failing the consistency check return a
// *ValidationError and no plan. Otherwise every scenario is computed, and a
// scenario that cannot hold a single session per node is returned with
// Viable=false and a fatal alert.
func Run(cat Catalog, req Requirement) (*Plan, error) {
	model, err := cat.Model(req.Model)
	if err != nil {
		return nil, err
	}
	server, err := cat.Server(req.Server)
	if err != nil {
		return nil, err
	}
	profile, err := cat.StorageProfile(req.Storage)
	if err != nil {
		return nil, err
	}
	req = req.withDefaults(model)

	consistency := CheckStorageConsistency(profile)
	alerts := ValidateCatalog(cat)
	alerts = append(alerts, ValidateRequirement(req)...)
	alerts = append(alerts, ConsistencyAlerts(consistency)...)
	if HasErrors(alerts) {
		return nil, &ValidationError{Alerts: alerts}
	}

	kv := KVBytesPerSession(model, req.EffectiveContext, req.KVPrecision)
	alerts = append(alerts, OperationalAlerts(model, req, kv)...)

	plan := &Plan{
		Requirement: req,
		Model:       model,
		Server:      server,
		Storage:     profile,
		Consistency: consistency,
		KV:          kv,
	}
	for _, policy := range ScenarioPolicies {
		res := runScenario(BuildScenarioConfig(policy, req), model, server, profile, req, kv)
		logrus.Debugf("scenario %s: viable=%v sessions/node=%d nodes=%+v",
			res.Config.Name, res.Viable, res.Capacity.SessionsPerNode, res.Nodes)
		plan.Scenarios = append(plan.Scenarios, res)
		alerts = append(alerts, res.Alerts...)
	}
	plan.Alerts = alerts
	return plan, nil
}

func runScenario(sc ScenarioConfig, model ModelSpec, server ServerSpec, profile StorageProfile, req Requirement, kv KVMemory) ScenarioResult {
	res := ScenarioResult{
		Config:          sc,
		KVPerSessionGiB: kv.GiB,
		KVTotalGiB:      kv.GiB * float64(req.Concurrency),
		Rationale:       []Rationale{kv.Rationale},
	}
	scenarioAlert := func(a Alert) {
		a.Scenario = sc.Name
		res.Alerts = append(res.Alerts, a)
	}

	capacity, err := SessionsPerNode(server, req.RuntimeOverheadGiB, sc.KVBudgetRatio, kv.GiB)
	res.Capacity = capacity
	res.Rationale = append(res.Rationale, capacityRationale(capacity, kv.GiB))
	if err != nil {
		scenarioAlert(newAlert(SeverityFatal, CodeZeroSessions, "kv_budget_ratio", "%v", err))
		return res
	}

	nodes, err := NodeCount(req.Concurrency, capacity.SessionsPerNode, sc.HeadroomRatio, sc.HAExtraNodes)
	if err != nil {
		scenarioAlert(newAlert(SeverityFatal, CodeZeroSessions, "concurrency", "%v", err))
		return res
	}
	res.Nodes = nodes
	res.Viable = true
	res.Rationale = append(res.Rationale, nodeRationale(sc, req.Concurrency, capacity.SessionsPerNode, nodes))

	util := ComputeHBMUtilization(capacity, kv.GiB, req.Concurrency, nodes.Final)
	res.Utilization = &util
	res.Rationale = append(res.Rationale, util.rationale())
	if a, ok := util.alert(); ok {
		scenarioAlert(a)
	}

	storage := SizeStorage(StorageInput{
		Scenario:        sc,
		Model:           model,
		Profile:         profile,
		Nodes:           nodes.Final,
		Concurrency:     req.Concurrency,
		SessionsPerNode: capacity.SessionsPerNode,
	})
	res.Storage = &storage
	res.Rationale = append(res.Rationale, storage.Rationale...)
	for _, a := range storage.Alerts {
		scenarioAlert(a)
	}

	warmup := EstimateWarmup(profile, storage.ArtifactGiB, storage.NodesRestarting, req.WarmupPattern, req.WarmupUtilization)
	res.Warmup = &warmup
	res.Rationale = append(res.Rationale, warmup.rationale())
	if a, ok := warmup.alert(profile.Name); ok {
		scenarioAlert(a)
	}

	physical := AggregatePhysical(server, profile, nodes.Final)
	res.Physical = &physical
	res.Rationale = append(res.Rationale, physical.rationale(server, profile))
	return res
}

func capacityRationale(c Capacity, kvGiB float64) Rationale {
	return Rationale{
		Name:    "sessions_per_node",
		Formula: "floor((hbm_total_gib − overhead_gib) × budget_ratio / kv_per_session_gib)",
		Inputs: map[string]any{
			"hbm_total_gib":      c.HBMTotalGiB,
			"overhead_gib":       c.OverheadGiB,
			"budget_ratio":       c.BudgetRatio,
			"kv_per_session_gib": kvGiB,
		},
		Explanation: fmt.Sprintf("%.1f GiB KV budget holds %d sessions", c.BudgetGiB, c.SessionsPerNode),
	}
}

func nodeRationale(sc ScenarioConfig, concurrency, spn int, n NodeCounts) Rationale {
	return Rationale{
		Name:    "nodes",
		Formula: "ceil(concurrency × (1 + headroom) / sessions_per_node) + ha_extra_nodes",
		Inputs: map[string]any{
			"concurrency":       concurrency,
			"sessions_per_node": spn,
			"headroom_ratio":    sc.HeadroomRatio,
			"ha_extra_nodes":    sc.HAExtraNodes,
		},
		Explanation: fmt.Sprintf("%d nodes for capacity, %d with %.0f%% headroom, %d with %s",
			n.Capacity, n.WithHeadroom, sc.HeadroomRatio*100, n.Final, sc.HAMode),
	}
}
