package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/inference-sizer/sizing"
	"github.com/inference-sim/inference-sizer/sizing/catalog"
	"github.com/inference-sim/inference-sizer/sizing/metrics"
	"github.com/inference-sim/inference-sizer/sizing/report"
)

var (
	// CLI flags for the sizing target
	modelName     string // Model name in the catalog
	serverName    string // Server name in the catalog
	storageName   string // Storage profile name in the catalog
	hfConfigPath  string // HuggingFace config.json imported as an extra model
	concurrency   int    // Concurrent sessions to serve
	contextTokens int    // Effective context per session, in tokens
	kvPrecision   string // KV-cache precision; empty uses the model default

	// CLI flags for the memory and headroom knobs
	kvBudgetRatio      float64 // Share of free HBM given to KV cache
	runtimeOverheadGiB float64 // HBM reserved per node for weights, activations and runtime
	peakHeadroomRatio  float64 // Extra capacity for load peaks

	// CLI flags for cold-start estimation
	warmupPattern     string  // Artifact read pattern (seq, rand)
	warmupUtilization float64 // Share of storage bandwidth available during warmup

	// CLI flags for outputs
	outputFormat string // Report format on stdout (text, json)
	reportDir    string // Directory for timestamped report files
	metricsFile  string // Prometheus textfile path
)

// sizeCmd sizes the cluster for a workload using parameters from CLI flags
var sizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Size an inference cluster for a model, server and storage profile",
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := runSize(cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// sizingRequirement builds the sizing target from the CLI flags.
func sizingRequirement() sizing.Requirement {
	return sizing.Requirement{
		Model:              modelName,
		Server:             serverName,
		Storage:            storageName,
		Concurrency:        concurrency,
		EffectiveContext:   contextTokens,
		KVPrecision:        sizing.Precision(strings.ToLower(kvPrecision)),
		KVBudgetRatio:      kvBudgetRatio,
		RuntimeOverheadGiB: runtimeOverheadGiB,
		PeakHeadroomRatio:  peakHeadroomRatio,
		WarmupPattern:      strings.ToLower(warmupPattern),
		WarmupUtilization:  warmupUtilization,
	}
}

// loadCatalog loads the --catalog files and appends the --hf-config model.
// With --hf-config and no --model, the imported model is selected.
func loadCatalog() (sizing.Catalog, error) {
	cat, err := catalog.LoadFiles(catalogPaths...)
	if err != nil {
		return sizing.Catalog{}, err
	}
	if hfConfigPath == "" {
		return cat, nil
	}
	m, err := catalog.ModelFromHFConfig(hfConfigPath, modelName)
	if err != nil {
		return sizing.Catalog{}, err
	}
	if modelName == "" {
		modelName = m.Name
	}
	logrus.Infof("imported model %s from %s", m.Name, hfConfigPath)
	return catalog.Merge(cat, sizing.Catalog{Models: []sizing.ModelSpec{m}}), nil
}

// runSize performs one sizing run and writes every requested output.
func runSize(stdout io.Writer) (*sizing.Plan, error) {
	format := strings.ToLower(outputFormat)
	if !report.ValidFormats[format] {
		return nil, fmt.Errorf("unknown output format %q; valid: json, text", format)
	}
	cat, err := loadCatalog()
	if err != nil {
		return nil, err
	}
	req := sizingRequirement()
	logrus.Infof("sizing %s on %s with %s for %d sessions at %d tokens",
		req.Model, req.Server, req.Storage, req.Concurrency, req.EffectiveContext)

	plan, err := sizing.Run(cat, req)
	if err != nil {
		var verr *sizing.ValidationError
		if errors.As(err, &verr) {
			logAlerts(verr.Alerts)
			return nil, fmt.Errorf("inputs rejected: %d blocking problem(s)", len(sizing.FilterAlerts(verr.Alerts, sizing.SeverityError)))
		}
		return nil, err
	}
	logAlerts(plan.Alerts)

	if err := report.Write(stdout, plan, format); err != nil {
		return nil, err
	}
	if reportDir != "" {
		if _, err := (report.Writer{Dir: reportDir}).Save(plan, format); err != nil {
			return nil, err
		}
	}
	if metricsFile != "" {
		exp, err := metrics.NewExporter()
		if err != nil {
			return nil, err
		}
		exp.Record(plan)
		if err := exp.WriteTextfile(metricsFile); err != nil {
			return nil, err
		}
		logrus.Infof("metrics written to %s", metricsFile)
	}
	return plan, nil
}

// logAlerts sends each alert to the log at a level matching its severity.
func logAlerts(alerts []sizing.Alert) {
	for _, a := range alerts {
		switch a.Severity {
		case sizing.SeverityInfo:
			logrus.Info(a.String())
		case sizing.SeverityWarning:
			logrus.Warn(a.String())
		default:
			logrus.Error(a.String())
		}
	}
}

func init() {
	sizeCmd.Flags().StringVar(&modelName, "model", "", "Model name in the catalog")
	sizeCmd.Flags().StringVar(&serverName, "server", "", "Server name in the catalog")
	sizeCmd.Flags().StringVar(&storageName, "storage", "", "Storage profile name in the catalog")
	sizeCmd.Flags().StringVar(&hfConfigPath, "hf-config", "", "HuggingFace config.json to import as an additional model")
	sizeCmd.Flags().IntVar(&concurrency, "concurrency", 0, "Concurrent sessions to serve")
	sizeCmd.Flags().IntVar(&contextTokens, "effective-context", 0, "Effective context per session in tokens")
	sizeCmd.Flags().StringVar(&kvPrecision, "kv-precision", "", "KV-cache precision (fp8, int8, fp16, bf16); empty uses the model default")

	sizeCmd.Flags().Float64Var(&kvBudgetRatio, "kv-budget-ratio", sizing.DefaultKVBudgetRatio, "Share of free HBM reserved for KV cache")
	sizeCmd.Flags().Float64Var(&runtimeOverheadGiB, "runtime-overhead-gib", sizing.DefaultRuntimeOverheadGiB, "HBM per node reserved for weights, activations and runtime (GiB)")
	sizeCmd.Flags().Float64Var(&peakHeadroomRatio, "peak-headroom-ratio", sizing.DefaultPeakHeadroomRatio, "Extra capacity for load peaks")

	sizeCmd.Flags().StringVar(&warmupPattern, "warmup-pattern", sizing.DefaultWarmupPattern, "Artifact read pattern during cold start (seq, rand)")
	sizeCmd.Flags().Float64Var(&warmupUtilization, "warmup-utilization", sizing.DefaultWarmupUtilization, "Share of storage bandwidth usable during cold start")

	sizeCmd.Flags().StringVar(&outputFormat, "output", report.FormatText, "Report format (text, json)")
	sizeCmd.Flags().StringVar(&reportDir, "report-dir", "", "Also save the report under this directory")
	sizeCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write plan gauges to this Prometheus textfile")
}
