// Package metrics exports a sizing.Plan as Prometheus gauges so capacity
// plans can be scraped through the node_exporter textfile collector.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/inference-sim/inference-sizer/sizing"
)

// Metric names.
const (
	NodesName           = "sizing_nodes"
	SessionsPerNodeName = "sizing_sessions_per_node"
	StorageTiBName      = "sizing_storage_tib"
	StorageIOPSName     = "sizing_storage_iops"
	PowerKWName         = "sizing_power_kw"
	RackUnitsName       = "sizing_rack_units"
	AlertsName          = "sizing_alerts"
	HBMUtilizationName  = "sizing_hbm_utilization"
)

// Label names.
const (
	LabelScenario  = "scenario"
	LabelStage     = "stage"
	LabelKind      = "kind"
	LabelDirection = "direction"
	LabelRegime    = "regime"
	LabelSeverity  = "severity"
	LabelPoint     = "point"
)

// Exporter owns a private registry holding the plan gauges.
type Exporter struct {
	registry *prometheus.Registry

	nodes           *prometheus.GaugeVec
	sessionsPerNode *prometheus.GaugeVec
	storageTiB      *prometheus.GaugeVec
	storageIOPS     *prometheus.GaugeVec
	powerKW         *prometheus.GaugeVec
	rackUnits       *prometheus.GaugeVec
	alerts          *prometheus.GaugeVec
	hbmUtilization  *prometheus.GaugeVec
}

// NewExporter creates the gauges and registers them with a fresh registry.
func NewExporter() (*Exporter, error) {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		nodes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: NodesName,
			Help: "Node count per scenario at each sizing stage (capacity, with_headroom, final)",
		}, []string{LabelScenario, LabelStage}),
		sessionsPerNode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: SessionsPerNodeName,
			Help: "Concurrent sessions one node can hold in its KV budget",
		}, []string{LabelScenario}),
		storageTiB: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: StorageTiBName,
			Help: "Storage capacity per scenario by volume kind, in TiB",
		}, []string{LabelScenario, LabelKind}),
		storageIOPS: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: StorageIOPSName,
			Help: "Storage IOPS per scenario by direction and regime",
		}, []string{LabelScenario, LabelDirection, LabelRegime}),
		powerKW: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: PowerKWName,
			Help: "Maximum power draw of servers plus storage, in kW",
		}, []string{LabelScenario}),
		rackUnits: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: RackUnitsName,
			Help: "Rack units occupied by servers plus storage",
		}, []string{LabelScenario}),
		alerts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: AlertsName,
			Help: "Number of sizing alerts by severity",
		}, []string{LabelSeverity}),
		hbmUtilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: HBMUtilizationName,
			Help: "Share of node HBM in use at planned load (effective) and at the session limit (at_limit)",
		}, []string{LabelScenario, LabelPoint}),
	}

	collectors := map[string]prometheus.Collector{
		NodesName:           e.nodes,
		SessionsPerNodeName: e.sessionsPerNode,
		StorageTiBName:      e.storageTiB,
		StorageIOPSName:     e.storageIOPS,
		PowerKWName:         e.powerKW,
		RackUnitsName:       e.rackUnits,
		AlertsName:          e.alerts,
		HBMUtilizationName:  e.hbmUtilization,
	}
	for name, c := range collectors {
		if err := e.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register %s metric: %w", name, err)
		}
	}
	return e, nil
}

// Registry exposes the exporter's registry, e.g. for an HTTP handler.
func (e *Exporter) Registry() *prometheus.Registry { return e.registry }

// Record replaces all gauge values with the figures of plan.
// Non-viable scenarios report zero nodes and no utilization, storage or
// physical series.
func (e *Exporter) Record(plan *sizing.Plan) {
	for _, vec := range []*prometheus.GaugeVec{e.nodes, e.sessionsPerNode, e.storageTiB, e.storageIOPS, e.powerKW, e.rackUnits, e.alerts, e.hbmUtilization} {
		vec.Reset()
	}

	for _, s := range plan.Scenarios {
		name := s.Config.Name
		e.sessionsPerNode.WithLabelValues(name).Set(float64(s.Capacity.SessionsPerNode))
		e.nodes.WithLabelValues(name, "capacity").Set(float64(s.Nodes.Capacity))
		e.nodes.WithLabelValues(name, "with_headroom").Set(float64(s.Nodes.WithHeadroom))
		e.nodes.WithLabelValues(name, "final").Set(float64(s.Nodes.Final))

		if u := s.Utilization; u != nil {
			e.hbmUtilization.WithLabelValues(name, "effective").Set(u.EffectiveRatio)
			e.hbmUtilization.WithLabelValues(name, "at_limit").Set(u.AtLimitRatio)
		}
		if st := s.Storage; st != nil {
			for kind, v := range map[string]float64{
				"model":       st.ModelTiB,
				"cache":       st.CacheTiB,
				"logs":        st.LogsTiB,
				"operational": st.OperationalTiB,
				"platform":    st.PlatformTiB,
				"base":        st.BaseTiB,
				"recommended": st.RecommendedTiB,
			} {
				e.storageTiB.WithLabelValues(name, kind).Set(v)
			}
			e.storageIOPS.WithLabelValues(name, "read", "peak").Set(float64(st.ReadIOPSPeak))
			e.storageIOPS.WithLabelValues(name, "read", "steady").Set(float64(st.ReadIOPSSteady))
			e.storageIOPS.WithLabelValues(name, "write", "peak").Set(float64(st.WriteIOPSPeak))
			e.storageIOPS.WithLabelValues(name, "write", "steady").Set(float64(st.WriteIOPSSteady))
		}
		if p := s.Physical; p != nil {
			e.powerKW.WithLabelValues(name).Set(p.PowerKW)
			e.rackUnits.WithLabelValues(name).Set(float64(p.RackUnits))
		}
	}

	for _, sev := range []sizing.Severity{sizing.SeverityInfo, sizing.SeverityWarning, sizing.SeverityError, sizing.SeverityFatal} {
		e.alerts.WithLabelValues(sev.String()).Set(0)
	}
	for _, a := range plan.Alerts {
		e.alerts.WithLabelValues(a.Severity.String()).Inc()
	}
}

// WriteTextfile writes the registry in the text exposition format to path,
// atomically, for the node_exporter textfile collector.
func (e *Exporter) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, e.registry); err != nil {
		return fmt.Errorf("write metrics textfile %q: %w", path, err)
	}
	return nil
}
