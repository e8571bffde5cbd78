package sizing

import "fmt"

// KVMemory is the KV-cache cost of one active session.
type KVMemory struct {
	Bytes            int64     `json:"bytes"`
	GiB              float64   `json:"gib"`
	EffectiveContext int       `json:"effective_context"`
	RequestedContext int       `json:"requested_context"`
	Clamped          bool      `json:"clamped"`
	Precision        Precision `json:"precision"`
	// FullTokens and SlidingTokens sum the cached positions across layers of each kind.
	FullTokens    int64     `json:"full_tokens"`
	SlidingTokens int64     `json:"sliding_tokens"`
	Rationale     Rationale `json:"rationale"`
	Alerts        []Alert   `json:"alerts,omitempty"`
}

// KVBytesPerSession computes the KV-cache footprint of one session holding
// effectiveContext tokens.
//
// The context is clamped to model.MaxContext (with a warning). Full-attention
// layers cache the whole context; sliding layers cache at most the window.
// bytes = 2 (K and V) × Σ seq_per_layer × kvHeads × headDim × bytesPerElement.
//
// The model is assumed to have passed ValidateCatalog; a non-positive context
// is rejected by ValidateRequirement before this is called.
func KVBytesPerSession(model ModelSpec, effectiveContext int, precision Precision) KVMemory {
	kv := KVMemory{
		RequestedContext: effectiveContext,
		EffectiveContext: effectiveContext,
		Precision:        precision,
	}
	if model.MaxContext > 0 && effectiveContext > model.MaxContext {
		kv.EffectiveContext = model.MaxContext
		kv.Clamped = true
		kv.Alerts = append(kv.Alerts, newAlert(SeverityWarning, CodeContextClamped, "effective_context",
			"effective context %d exceeds %s max context %d; clamped to %d",
			effectiveContext, model.Name, model.MaxContext, model.MaxContext))
	}

	ctx := int64(kv.EffectiveContext)
	window := ctx
	if model.SlidingWindow != nil && int64(*model.SlidingWindow) < ctx {
		window = int64(*model.SlidingWindow)
	}

	switch model.AttentionPattern {
	case PatternFull:
		kv.FullTokens = int64(model.NumLayers) * ctx
	case PatternSliding:
		kv.SlidingTokens = int64(model.NumLayers) * window
	case PatternHybrid:
		kv.FullTokens = int64(derefInt(model.FullLayers)) * ctx
		kv.SlidingTokens = int64(derefInt(model.SlidingLayers)) * window
	}

	bpe := precision.BytesPerElement()
	kv.Bytes = 2 * (kv.FullTokens + kv.SlidingTokens) * int64(model.NumKVHeads) * int64(model.HeadDim) * bpe
	kv.GiB = float64(kv.Bytes) / (1 << 30)

	kv.Rationale = Rationale{
		Name:    "kv_per_session",
		Formula: "2 × Σ(seq_per_layer) × num_kv_heads × head_dim × bytes_per_element",
		Inputs: map[string]any{
			"attention_pattern": string(model.AttentionPattern),
			"effective_context": kv.EffectiveContext,
			"num_layers":        model.NumLayers,
			"num_kv_heads":      model.NumKVHeads,
			"head_dim":          model.HeadDim,
			"bytes_per_element": bpe,
		},
		Explanation: fmt.Sprintf("%s attention caches %d full-layer and %d sliding-layer token positions at %s",
			model.AttentionPattern, kv.FullTokens, kv.SlidingTokens, precision),
	}
	if model.AttentionPattern != PatternFull {
		kv.Rationale.Inputs["sliding_window"] = window
	}
	return kv
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
