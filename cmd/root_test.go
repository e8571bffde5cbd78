package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/inference-sizer/sizing"
)

const sampleCatalog = "../testdata/catalog.yaml"

// setSizeFlags points the package-level flag vars at the worked example and
// restores the previous values when the test ends.
func setSizeFlags(t *testing.T) {
	t.Helper()
	saved := []any{catalogPaths, modelName, serverName, storageName, hfConfigPath, concurrency, contextTokens,
		kvPrecision, kvBudgetRatio, runtimeOverheadGiB, peakHeadroomRatio, warmupPattern, warmupUtilization,
		outputFormat, reportDir, metricsFile}
	t.Cleanup(func() {
		catalogPaths = saved[0].([]string)
		modelName, serverName, storageName, hfConfigPath = saved[1].(string), saved[2].(string), saved[3].(string), saved[4].(string)
		concurrency, contextTokens = saved[5].(int), saved[6].(int)
		kvPrecision = saved[7].(string)
		kvBudgetRatio, runtimeOverheadGiB, peakHeadroomRatio = saved[8].(float64), saved[9].(float64), saved[10].(float64)
		warmupPattern, warmupUtilization = saved[11].(string), saved[12].(float64)
		outputFormat, reportDir, metricsFile = saved[13].(string), saved[14].(string), saved[15].(string)
	})

	catalogPaths = []string{sampleCatalog}
	modelName, serverName, storageName, hfConfigPath = "gpt-oss-120b", "dgx-b300", "nvme-tier1", ""
	concurrency, contextTokens = 1000, 131072
	kvPrecision = ""
	kvBudgetRatio, runtimeOverheadGiB, peakHeadroomRatio = 0.70, 120, 0.20
	warmupPattern, warmupUtilization = "seq", 0.8
	outputFormat, reportDir, metricsFile = "text", "", ""
}

func TestSizeCmd_FlagDefaults(t *testing.T) {
	tests := []struct {
		flag string
		want string
	}{
		{"kv-budget-ratio", "0.7"},
		{"runtime-overhead-gib", "120"},
		{"peak-headroom-ratio", "0.2"},
		{"warmup-pattern", "seq"},
		{"warmup-utilization", "0.8"},
		{"output", "text"},
		{"kv-precision", ""},
	}
	for _, tc := range tests {
		t.Run(tc.flag, func(t *testing.T) {
			f := sizeCmd.Flags().Lookup(tc.flag)
			require.NotNil(t, f, "flag must be registered")
			assert.Equal(t, tc.want, f.DefValue)
		})
	}
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("log"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("catalog"))
}

func TestSizingRequirement_MapsFlags(t *testing.T) {
	setSizeFlags(t)
	kvPrecision = "fp16"

	req := sizingRequirement()

	assert.Equal(t, sizing.Requirement{
		Model: "gpt-oss-120b", Server: "dgx-b300", Storage: "nvme-tier1",
		Concurrency: 1000, EffectiveContext: 131072, KVPrecision: sizing.PrecisionFP16,
		KVBudgetRatio: 0.70, RuntimeOverheadGiB: 120, PeakHeadroomRatio: 0.20,
		WarmupPattern: "seq", WarmupUtilization: 0.8,
	}, req)
}

func TestSizingRequirement_LowercasesEnums(t *testing.T) {
	setSizeFlags(t)
	kvPrecision, warmupPattern = "FP16", "Rand"

	req := sizingRequirement()

	assert.Equal(t, sizing.PrecisionFP16, req.KVPrecision)
	assert.Equal(t, "rand", req.WarmupPattern)
}

func TestRunSize_UppercaseFlagsAccepted(t *testing.T) {
	setSizeFlags(t)
	kvPrecision, outputFormat = "FP8", "JSON"

	var out bytes.Buffer
	plan, err := runSize(&out)

	require.NoError(t, err)
	assert.Equal(t, sizing.PrecisionFP8, plan.Requirement.KVPrecision)
	assert.True(t, json.Valid(out.Bytes()))
}

func TestRunSize_TextReport(t *testing.T) {
	// GIVEN the worked example on the bundled catalog
	setSizeFlags(t)

	// WHEN sized
	var out bytes.Buffer
	plan, err := runSize(&out)

	// THEN the plan and the printed report agree on the node counts
	require.NoError(t, err)
	finals := []int{}
	for _, s := range plan.Scenarios {
		finals = append(finals, s.Nodes.Final)
	}
	assert.Equal(t, []int{2, 3, 5}, finals)
	assert.Contains(t, out.String(), "=== Sizing: gpt-oss-120b on dgx-b300")
}

func TestRunSize_JSONWithReportAndMetricsFiles(t *testing.T) {
	setSizeFlags(t)
	dir := t.TempDir()
	outputFormat = "json"
	reportDir = filepath.Join(dir, "reports")
	metricsFile = filepath.Join(dir, "sizing.prom")

	var out bytes.Buffer
	_, err := runSize(&out)
	require.NoError(t, err)

	assert.True(t, json.Valid(out.Bytes()))
	saved, err := filepath.Glob(filepath.Join(reportDir, "sizing_gpt-oss-120b_dgx-b300_*.json"))
	require.NoError(t, err)
	assert.Len(t, saved, 1)
	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `sizing_nodes{scenario="recommended",stage="final"} 3`)
}

func TestRunSize_InvalidRequirementRejected(t *testing.T) {
	setSizeFlags(t)
	concurrency = 0
	kvPrecision = "fp64"

	_, err := runSize(&bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 blocking problem(s)")
}

func TestRunSize_UnknownOutputFormat(t *testing.T) {
	setSizeFlags(t)
	outputFormat = "yaml"
	_, err := runSize(&bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunSize_HFConfigModel(t *testing.T) {
	// GIVEN an HF config for a dense model and no --model
	setSizeFlags(t)
	dir := filepath.Join(t.TempDir(), "tiny-dense")
	require.NoError(t, os.MkdirAll(dir, 0755))
	hfConfigPath = filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(hfConfigPath, []byte(`{
  "num_hidden_layers": 32, "num_attention_heads": 32, "num_key_value_heads": 8,
  "hidden_size": 4096, "max_position_embeddings": 32768, "torch_dtype": "bfloat16"
}`), 0644))
	modelName = ""
	contextTokens = 8192

	// WHEN sized
	plan, err := runSize(&bytes.Buffer{})

	// THEN the imported model, named after its directory, is used
	require.NoError(t, err)
	assert.Equal(t, "tiny-dense", plan.Model.Name)
	assert.Equal(t, sizing.PrecisionFP8, plan.Requirement.KVPrecision)
}

func TestRunValidate_SampleCatalog(t *testing.T) {
	setSizeFlags(t)
	var out bytes.Buffer
	require.NoError(t, runValidate(&out))
	assert.Contains(t, out.String(), "catalog OK: 3 models, 2 servers, 2 storage profiles")
}

func TestRunValidate_InconsistentStorage(t *testing.T) {
	// GIVEN a storage profile whose read throughput is far from IOPS × block size
	setSizeFlags(t)
	path := filepath.Join(t.TempDir(), "storage.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage_profiles:
  - name: bogus
    type: nvme_local
    capacity_total_tb: 10
    usable_capacity_tb: 8
    iops_read_max: 1000
    iops_write_max: 1000
    throughput_read_mbps: 9000
    throughput_write_mbps: 62.5
    block_size_kb_read: 64
    block_size_kb_write: 64
`), 0644))
	catalogPaths = []string{path}

	// WHEN validated
	var out bytes.Buffer
	err := runValidate(&out)

	// THEN it fails and prints the finding
	require.Error(t, err)
	assert.Contains(t, out.String(), sizing.CodeStorageInconsistent)
}
