package catalog

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/inference-sizer/sizing"
	"github.com/inference-sim/inference-sizer/sizing/internal/testutil"
)

// captureLogOutput runs fn and returns the log output as a string.
func captureLogOutput(fn func()) string {
	var buf bytes.Buffer
	origOutput := logrus.StandardLogger().Out
	origLevel := logrus.GetLevel()
	logrus.SetOutput(&buf)
	logrus.SetLevel(logrus.InfoLevel)
	defer func() {
		if origOutput != nil {
			logrus.SetOutput(origOutput)
		} else {
			logrus.SetOutput(os.Stderr)
		}
		logrus.SetLevel(origLevel)
	}()
	fn()
	return buf.String()
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_SampleCatalog(t *testing.T) {
	cat, err := Load(testutil.SampleCatalogPath(t))
	require.NoError(t, err)

	assert.Len(t, cat.Models, 3)
	assert.Len(t, cat.Servers, 2)
	assert.Len(t, cat.Storage, 2)
	assert.Empty(t, sizing.ValidateCatalog(cat), "bundled catalog must be valid")
	for _, p := range cat.Storage {
		assert.Equal(t, sizing.ConsistencyOK, sizing.CheckStorageConsistency(p).Status, p.Name)
	}

	m, err := cat.Model("gpt-oss-120b")
	require.NoError(t, err)
	assert.Equal(t, sizing.PatternHybrid, m.AttentionPattern)
	require.NotNil(t, m.SlidingWindow)
	assert.Equal(t, 128, *m.SlidingWindow)
	require.NotNil(t, m.ArtifactSizeGiB)

	s, err := cat.Server("dgx-b300")
	require.NoError(t, err)
	assert.Equal(t, 2304.0, s.TotalHBMGB())
	require.NotNil(t, s.HeatOutputBTUHr)
}

func TestLoad_SampleCatalogSizesExample(t *testing.T) {
	cat, err := Load(testutil.SampleCatalogPath(t))
	require.NoError(t, err)

	plan, err := sizing.Run(cat, sizing.Requirement{
		Model: "gpt-oss-120b", Server: "dgx-b300", Storage: "nvme-tier1",
		Concurrency: 1000, EffectiveContext: 131072,
		KVBudgetRatio: 0.70, RuntimeOverheadGiB: 120, PeakHeadroomRatio: 0.20,
	})
	require.NoError(t, err)
	finals := make([]int, 0, 3)
	for _, s := range plan.Scenarios {
		finals = append(finals, s.Nodes.Final)
	}
	assert.Equal(t, []int{2, 3, 5}, finals)
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	// GIVEN a typo in a model field name
	path := writeFile(t, "catalog.yaml", `
models:
  - name: m
    num_layer: 32
`)
	// WHEN loaded
	_, err := Load(path)

	// THEN strict parsing fails and names the field
	require.Error(t, err)
	assert.Contains(t, err.Error(), "num_layer")
}

func TestLoad_UnknownTopLevelSectionRejected(t *testing.T) {
	path := writeFile(t, "catalog.yaml", "gpus: []\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_JSONCatalog(t *testing.T) {
	path := writeFile(t, "catalog.json", `{
  "servers": [{"name": "s", "gpu": {"count": 4, "hbm_per_gpu_gb": 80}, "max_power_kw": 6.5, "rack_units_u": 4}]
}`)
	cat, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cat.Servers, 1)
	assert.Equal(t, 320.0, cat.Servers[0].TotalHBMGB())
	assert.Nil(t, cat.Servers[0].HeatOutputBTUHr)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "empty.yaml", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestLoad_LogsSummary(t *testing.T) {
	output := captureLogOutput(func() {
		_, err := Load(testutil.SampleCatalogPath(t))
		require.NoError(t, err)
	})
	assert.Contains(t, output, "3 models, 2 servers, 2 storage profiles")
}

func TestLoadFiles_MergesInOrder(t *testing.T) {
	models := writeFile(t, "models.yaml", `
models:
  - name: a
    num_layers: 1
    num_kv_heads: 1
    head_dim: 1
    max_position_embeddings: 1
    attention_pattern: full
    default_kv_precision: fp8
`)
	servers := writeFile(t, "servers.yaml", `
servers:
  - name: s
    gpu: {count: 1, hbm_per_gpu_gb: 80}
    max_power_kw: 1
    rack_units_u: 1
`)
	cat, err := LoadFiles(models, servers, testutil.SampleCatalogPath(t))
	require.NoError(t, err)
	assert.Len(t, cat.Models, 4)
	assert.Equal(t, "a", cat.Models[0].Name)
	assert.Len(t, cat.Servers, 3)
	assert.Equal(t, "s", cat.Servers[0].Name)
}

func TestMerge_KeepsDuplicatesForValidation(t *testing.T) {
	m := sizing.ModelSpec{Name: "dup"}
	cat := Merge(sizing.Catalog{Models: []sizing.ModelSpec{m}}, sizing.Catalog{Models: []sizing.ModelSpec{m}})
	assert.Len(t, cat.Models, 2)
}
