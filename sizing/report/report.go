// Package report renders a sizing.Plan for people (text) and machines (JSON)
// and persists reports under timestamped file names.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/inference-sim/inference-sizer/sizing"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ValidFormats is the set of recognized --output values.
var ValidFormats = map[string]bool{FormatText: true, FormatJSON: true}

// Write renders plan in the given format.
func Write(w io.Writer, plan *sizing.Plan, format string) error {
	switch format {
	case FormatText:
		return WriteText(w, plan)
	case FormatJSON:
		return WriteJSON(w, plan)
	}
	return fmt.Errorf("unknown report format %q; valid: json, text", format)
}

// WriteJSON writes the plan as indented JSON.
func WriteJSON(w io.Writer, plan *sizing.Plan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(plan); err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	return nil
}

// WriteText writes a human-readable report: inputs, a scenario comparison
// table, per-scenario details and alerts sorted by severity.
func WriteText(w io.Writer, plan *sizing.Plan) error {
	ew := &errWriter{w: w}
	req := plan.Requirement

	ew.printf("=== Sizing: %s on %s (storage %s) ===\n", plan.Model.Name, plan.Server.Name, plan.Storage.Name)
	ew.printf("Concurrency          : %d sessions\n", req.Concurrency)
	ew.printf("Effective context    : %d tokens", plan.KV.EffectiveContext)
	if plan.KV.Clamped {
		ew.printf(" (requested %d, clamped)", plan.KV.RequestedContext)
	}
	ew.printf("\n")
	ew.printf("KV precision         : %s\n", req.KVPrecision)
	ew.printf("KV per session       : %.3f GiB (%d bytes)\n", plan.KV.GiB, plan.KV.Bytes)
	ew.printf("Server HBM           : %.1f GiB\n", plan.Server.TotalHBMGiB())
	ew.printf("Runtime overhead     : %.1f GiB\n", req.RuntimeOverheadGiB)
	ew.printf("\n")

	tw := tabwriter.NewWriter(ew, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "scenario\tHA\theadroom\tbudget\tsessions/node\tcapacity\twith headroom\tfinal\t")
	for _, s := range plan.Scenarios {
		c := s.Config
		if !s.Viable {
			fmt.Fprintf(tw, "%s\t%s\t%.0f%%\t%.2f\t0\t-\t-\tNOT VIABLE\t\n",
				c.Name, c.HAMode, c.HeadroomRatio*100, c.KVBudgetRatio)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%.0f%%\t%.2f\t%d\t%d\t%d\t%d\t\n",
			c.Name, c.HAMode, c.HeadroomRatio*100, c.KVBudgetRatio,
			s.Capacity.SessionsPerNode, s.Nodes.Capacity, s.Nodes.WithHeadroom, s.Nodes.Final)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, s := range plan.Scenarios {
		if s.Viable {
			writeScenario(ew, s)
		}
	}

	if len(plan.Alerts) > 0 {
		ew.printf("\n=== Alerts ===\n")
		for _, a := range sortedAlerts(plan.Alerts) {
			ew.printf("%s\n", a)
		}
	}
	return ew.err
}

func writeScenario(ew *errWriter, s sizing.ScenarioResult) {
	ew.printf("\n=== %s ===\n", strings.ToUpper(s.Config.Name))
	ew.printf("KV budget / node     : %.1f GiB\n", s.Capacity.BudgetGiB)
	ew.printf("KV total             : %.1f GiB\n", s.KVTotalGiB)
	if u := s.Utilization; u != nil {
		ew.printf("Effective load       : %d sessions/node\n", u.SessionsPerNodeEffective)
		ew.printf("HBM utilization      : %.1f%% effective, %.1f%% at limit\n", u.EffectiveRatio*100, u.AtLimitRatio*100)
	}
	if st := s.Storage; st != nil {
		ew.printf("Storage base         : %.2f TiB\n", st.BaseTiB)
		ew.printf("Storage recommended  : %.2f TiB (+%.0f%% margin)\n", st.RecommendedTiB, sizing.StorageMarginRatio*100)
		ew.printf("Read IOPS peak/steady: %d / %d\n", st.ReadIOPSPeak, st.ReadIOPSSteady)
		ew.printf("Write IOPS peak/steady: %d / %d\n", st.WriteIOPSPeak, st.WriteIOPSSteady)
		ew.printf("Read MB/s peak/steady: %.0f / %.0f\n", st.ReadMBpsPeak, st.ReadMBpsSteady)
		ew.printf("Write MB/s peak/steady: %.1f / %.1f\n", st.WriteMBpsPeak, st.WriteMBpsSteady)
	}
	if wu := s.Warmup; wu != nil {
		ew.printf("Cold start           : %.1fs for %d node(s), %s\n", wu.FinalSeconds, wu.Concurrency, wu.Bottleneck)
	}
	if p := s.Physical; p != nil {
		ew.printf("Power                : %.1f kW (%.1f MWh/yr)\n", p.PowerKW, p.AnnualEnergyMWh)
		ew.printf("Rack space           : %d U\n", p.RackUnits)
		if p.HeatBTUHr != nil {
			ew.printf("Heat                 : %.0f BTU/hr (%.1f cooling tons)\n", *p.HeatBTUHr, *p.CoolingTons)
		}
	}
	ew.printf("Rationale:\n")
	for _, r := range s.Rationale {
		ew.printf("  - %s: %s\n      %s\n", r.Name, r.Formula, r.Explanation)
	}
}

// sortedAlerts orders alerts by severity, highest first, keeping run order within a severity.
func sortedAlerts(alerts []sizing.Alert) []sizing.Alert {
	out := append([]sizing.Alert(nil), alerts...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Severity > out[j].Severity })
	return out
}

// errWriter remembers the first write error so rendering code can stay linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}

func (e *errWriter) printf(format string, args ...any) {
	fmt.Fprintf(e, format, args...)
}
