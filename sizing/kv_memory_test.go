package sizing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/inference-sizer/sizing/internal/testutil"
)

func TestKVBytesPerSession_HybridExample(t *testing.T) {
	// GIVEN 18 full layers at 131072 tokens and 18 sliding layers at a 128-token window
	kv := KVBytesPerSession(testHybridModel(), 131072, PrecisionFP8)

	// THEN bytes = 2 × (18×131072 + 18×128) × 8 × 64 × 1
	assert.Equal(t, int64(2_418_278_400), kv.Bytes)
	assert.Equal(t, int64(18*131072), kv.FullTokens)
	assert.Equal(t, int64(18*128), kv.SlidingTokens)
	testutil.AssertFloat64Equal(t, "kv GiB", 2.252197265625, kv.GiB, 1e-12)
	assert.False(t, kv.Clamped)
	assert.Empty(t, kv.Alerts)
}

func TestKVBytesPerSession_PerPattern(t *testing.T) {
	tests := []struct {
		name  string
		model ModelSpec
		ctx   int
		want  int64
	}{
		{"full uses context on every layer", testFullModel(), 8192, 2 * 32 * 8192 * 8 * 128 * 2},
		{"sliding uses the window", testSlidingModel(), 32768, 2 * 24 * 4096 * 4 * 128},
		{"sliding window larger than context uses context", testSlidingModel(), 1024, 2 * 24 * 1024 * 4 * 128},
		{"hybrid short context", testHybridModel(), 100, 2 * 36 * 100 * 8 * 64},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			kv := KVBytesPerSession(tc.model, tc.ctx, tc.model.DefaultPrecision)
			assert.Equal(t, tc.want, kv.Bytes)
		})
	}
}

func TestKVBytesPerSession_SixteenBitDoublesEightBit(t *testing.T) {
	for _, m := range []ModelSpec{testHybridModel(), testFullModel(), testSlidingModel()} {
		for _, ctx := range []int{1, 128, 4096, 30000} {
			fp8 := KVBytesPerSession(m, ctx, PrecisionFP8)
			i8 := KVBytesPerSession(m, ctx, PrecisionINT8)
			fp16 := KVBytesPerSession(m, ctx, PrecisionFP16)
			bf16 := KVBytesPerSession(m, ctx, PrecisionBF16)
			assert.Equal(t, fp8.Bytes, i8.Bytes, "%s ctx=%d", m.Name, ctx)
			assert.Equal(t, 2*fp8.Bytes, fp16.Bytes, "%s ctx=%d", m.Name, ctx)
			assert.Equal(t, fp16.Bytes, bf16.Bytes, "%s ctx=%d", m.Name, ctx)
		}
	}
}

func TestKVBytesPerSession_ContextAboveMax_ClampsWithWarning(t *testing.T) {
	// GIVEN a context twice the model maximum
	m := testFullModel()
	kv := KVBytesPerSession(m, 2*m.MaxContext, PrecisionFP8)
	atMax := KVBytesPerSession(m, m.MaxContext, PrecisionFP8)

	// THEN the cost equals the cost at max context and a warning is attached
	assert.True(t, kv.Clamped)
	assert.Equal(t, m.MaxContext, kv.EffectiveContext)
	assert.Equal(t, 2*m.MaxContext, kv.RequestedContext)
	assert.Equal(t, atMax.Bytes, kv.Bytes)
	require.Len(t, kv.Alerts, 1)
	assert.Equal(t, SeverityWarning, kv.Alerts[0].Severity)
	assert.Equal(t, CodeContextClamped, kv.Alerts[0].Code)
	assert.Equal(t, "effective_context", kv.Alerts[0].Field)
}

func TestKVBytesPerSession_MonotonicInContext(t *testing.T) {
	for _, m := range []ModelSpec{testHybridModel(), testFullModel(), testSlidingModel()} {
		prev := int64(0)
		for ctx := 1; ctx <= 2*m.MaxContext; ctx += 997 {
			got := KVBytesPerSession(m, ctx, PrecisionFP8).Bytes
			assert.GreaterOrEqual(t, got, prev, "%s: ctx=%d", m.Name, ctx)
			prev = got
		}
	}
}

func TestKVBytesPerSession_RationaleCarriesInputs(t *testing.T) {
	kv := KVBytesPerSession(testHybridModel(), 4096, PrecisionFP8)
	assert.Equal(t, "kv_per_session", kv.Rationale.Name)
	assert.Equal(t, 4096, kv.Rationale.Inputs["effective_context"])
	assert.Equal(t, int64(128), kv.Rationale.Inputs["sliding_window"])
	assert.NotEmpty(t, kv.Rationale.Explanation)
}

func TestKVBytesPerSession_FullAttentionOmitsSlidingWindow(t *testing.T) {
	kv := KVBytesPerSession(testFullModel(), 4096, PrecisionFP8)
	assert.NotContains(t, kv.Rationale.Inputs, "sliding_window")
	assert.Equal(t, "full", kv.Rationale.Inputs["attention_pattern"])

	kv = KVBytesPerSession(testSlidingModel(), 4096, PrecisionFP8)
	assert.Contains(t, kv.Rationale.Inputs, "sliding_window")
}
