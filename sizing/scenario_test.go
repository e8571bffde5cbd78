package sizing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScenarioPolicies_Order(t *testing.T) {
	names := make([]string, 0, len(ScenarioPolicies))
	for _, p := range ScenarioPolicies {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"minimum", "recommended", "ideal"}, names)
}

func TestBuildScenarioConfig(t *testing.T) {
	tests := []struct {
		name         string
		headroom     float64
		ratio        float64
		wantHeadroom []float64
		wantRatio    []float64
	}{
		{"defaults", 0.20, 0.70, []float64{0, 0.20, 0.30}, []float64{0.70, 0.70, 0.65}},
		{"configured headroom above ideal floor", 0.50, 0.70, []float64{0, 0.50, 0.50}, []float64{0.70, 0.70, 0.65}},
		{"configured ratio below ideal ceiling", 0.20, 0.50, []float64{0, 0.20, 0.30}, []float64{0.50, 0.50, 0.50}},
		{"zero headroom", 0, 0.90, []float64{0, 0, 0.30}, []float64{0.90, 0.90, 0.65}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := testRequirement()
			req.PeakHeadroomRatio = tc.headroom
			req.KVBudgetRatio = tc.ratio
			for i, p := range ScenarioPolicies {
				sc := BuildScenarioConfig(p, req)
				assert.Equal(t, tc.wantHeadroom[i], sc.HeadroomRatio, "%s headroom", p.Name)
				assert.Equal(t, tc.wantRatio[i], sc.KVBudgetRatio, "%s budget ratio", p.Name)
				assert.Equal(t, p.HAExtraNodes, sc.HAExtraNodes)
				assert.Equal(t, p.LogRetentionDays, sc.LogRetentionDays)
			}
		})
	}
}

func TestBuildScenarioConfig_DoesNotMutateRequirement(t *testing.T) {
	req := testRequirement()
	before := req
	for _, p := range ScenarioPolicies {
		BuildScenarioConfig(p, req)
	}
	assert.Equal(t, before, req)
}

func TestScenarioPolicies_HAAndRetention(t *testing.T) {
	want := map[string][2]int{"minimum": {0, 7}, "recommended": {1, 30}, "ideal": {2, 90}}
	for _, p := range ScenarioPolicies {
		assert.Equal(t, want[p.Name], [2]int{p.HAExtraNodes, p.LogRetentionDays}, p.Name)
	}
}
