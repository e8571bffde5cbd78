package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/inference-sizer/sizing"
)

// HFConfig represents a flexible JSON object with dynamic fields.
type HFConfig struct {
	// Raw holds the entire JSON as a dynamic map.
	Raw map[string]any
}

// parseHFConfig parses arbitrary JSON into HFConfig.
func parseHFConfig(path string) (*HFConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read HF config %q: %w", path, err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse HF config JSON: %w", err)
	}
	// Multimodal configs nest the language model under text_config.
	if textCfg, ok := m["text_config"].(map[string]any); ok {
		for k, v := range textCfg {
			m[k] = v
		}
	}
	return &HFConfig{Raw: m}, nil
}

func (hf *HFConfig) getInt(key string) int {
	if val, ok := hf.Raw[key].(float64); ok {
		return int(val)
	}
	return 0
}

// getIntWithFallbacks tries multiple field names, returning the first non-zero value.
func (hf *HFConfig) getIntWithFallbacks(keys ...string) int {
	for _, k := range keys {
		if v := hf.getInt(k); v != 0 {
			return v
		}
	}
	return 0
}

var torchDtypeToPrecision = map[string]sizing.Precision{
	"float32":  sizing.PrecisionFP32,
	"float16":  sizing.PrecisionFP16,
	"bfloat16": sizing.PrecisionBF16,
	"int8":     sizing.PrecisionINT8,
	"fp8":      sizing.PrecisionFP8,
}

// ModelFromHFConfig builds a ModelSpec from a HuggingFace config.json.
// name overrides the model name; when empty the parent directory name is used.
// The KV precision defaults to fp8. Attention layout comes from layer_types
// when present, otherwise from sliding_window.
func ModelFromHFConfig(path, name string) (sizing.ModelSpec, error) {
	hf, err := parseHFConfig(path)
	if err != nil {
		return sizing.ModelSpec{}, fmt.Errorf("get model config: %w", err)
	}
	if name == "" {
		name = filepath.Base(filepath.Dir(path))
	}

	numHeads := hf.getInt("num_attention_heads")
	// Falcon uses "num_kv_heads", GLM uses "multi_query_group_num".
	numKVHeads := hf.getIntWithFallbacks("num_key_value_heads", "num_kv_heads", "multi_query_group_num")
	if numKVHeads == 0 {
		numKVHeads = numHeads
	}
	headDim := hf.getInt("head_dim")
	if headDim == 0 && numHeads > 0 {
		headDim = hf.getInt("hidden_size") / numHeads
	}

	m := sizing.ModelSpec{
		Name:             name,
		NumLayers:        hf.getInt("num_hidden_layers"),
		NumKVHeads:       numKVHeads,
		HeadDim:          headDim,
		MaxContext:       hf.getIntWithFallbacks("max_position_embeddings", "seq_length"),
		AttentionPattern: sizing.PatternFull,
		DefaultPrecision: sizing.PrecisionFP8,
	}
	if dtype, ok := hf.Raw["torch_dtype"].(string); ok {
		m.WeightsPrecision = torchDtypeToPrecision[dtype]
	} else if dtype, ok := hf.Raw["dtype"].(string); ok {
		m.WeightsPrecision = torchDtypeToPrecision[dtype]
	}

	window := hf.getInt("sliding_window")
	full, sliding := countLayerTypes(hf.Raw["layer_types"])
	switch {
	case full+sliding > 0:
		if full+sliding != m.NumLayers {
			logrus.Warnf("HF config %s: layer_types lists %d layers but num_hidden_layers is %d", path, full+sliding, m.NumLayers)
		}
		switch {
		case sliding == 0:
			m.AttentionPattern = sizing.PatternFull
		case full == 0:
			m.AttentionPattern = sizing.PatternSliding
		default:
			m.AttentionPattern = sizing.PatternHybrid
			m.FullLayers, m.SlidingLayers = &full, &sliding
		}
	case window > 0:
		if enabled, ok := hf.Raw["use_sliding_window"].(bool); ok && !enabled {
			logrus.Infof("HF config %s: sliding_window set but use_sliding_window=false; treating as full attention", path)
		} else {
			m.AttentionPattern = sizing.PatternSliding
		}
	}
	if m.AttentionPattern != sizing.PatternFull {
		if window == 0 {
			logrus.Warnf("HF config %s: %s attention without sliding_window", path, m.AttentionPattern)
		} else {
			m.SlidingWindow = &window
		}
	}
	return m, nil
}

func countLayerTypes(v any) (full, sliding int) {
	list, ok := v.([]any)
	if !ok {
		return 0, 0
	}
	for _, item := range list {
		switch item {
		case "full_attention":
			full++
		case "sliding_attention":
			sliding++
		}
	}
	return full, sliding
}
