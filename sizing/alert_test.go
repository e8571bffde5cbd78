package sizing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverity_JSONUsesNames(t *testing.T) {
	data, err := json.Marshal(Alert{Severity: SeverityFatal, Code: CodeZeroSessions, Message: "m"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"severity":"fatal","code":"zero_sessions_per_node","message":"m"}`, string(data))

	var a Alert
	require.NoError(t, json.Unmarshal([]byte(`{"severity":"Warning","code":"x","message":"y"}`), &a))
	assert.Equal(t, SeverityWarning, a.Severity)

	assert.Error(t, json.Unmarshal([]byte(`{"severity":"panic"}`), &a))
}

func TestSeverity_StringOutOfRange(t *testing.T) {
	assert.Equal(t, "severity(9)", Severity(9).String())
	_, err := ParseSeverity("critical")
	assert.Error(t, err)
}

func TestAlertHelpers(t *testing.T) {
	alerts := []Alert{
		{Severity: SeverityInfo, Code: "a"},
		{Severity: SeverityError, Code: "b", Message: "bad b"},
		{Severity: SeverityWarning, Code: "c"},
		{Severity: SeverityFatal, Code: "d", Message: "dead d"},
	}

	top, ok := MaxSeverity(alerts)
	assert.True(t, ok)
	assert.Equal(t, SeverityFatal, top)
	_, ok = MaxSeverity(nil)
	assert.False(t, ok)

	assert.Equal(t, []string{"b", "d"}, alertCodes(FilterAlerts(alerts, SeverityError)))
	assert.Equal(t, []string{"b", "c", "d"}, alertCodes(FilterAlerts(alerts, SeverityWarning)))

	assert.True(t, HasErrors(alerts))
	assert.False(t, HasErrors(alerts[2:3]))

	err := &ValidationError{Alerts: alerts}
	assert.Equal(t, "invalid sizing inputs: bad b; dead d", err.Error())
}

func TestAlert_String(t *testing.T) {
	a := Alert{Severity: SeverityWarning, Code: CodeContextClamped, Message: "clamped", Field: "effective_context", Scenario: "ideal"}
	assert.Equal(t, "WARNING [ideal] context_clamped: clamped (field: effective_context)", a.String())
}
