package sizing

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Severity ranks an Alert. The zero value is SeverityInfo.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	// SeverityFatal marks a scenario that cannot be served at all.
	SeverityFatal
)

var severityNames = [...]string{"info", "warning", "error", "fatal"}

func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// ParseSeverity is the inverse of Severity.String.
func ParseSeverity(name string) (Severity, error) {
	for i, n := range severityNames {
		if strings.EqualFold(n, name) {
			return Severity(i), nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q; valid: %s", name, strings.Join(severityNames[:], ", "))
}

func (s Severity) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Alert codes. Consumers filter on these, never on Message.
const (
	CodeSchema                  = "schema"
	CodeDuplicateName           = "duplicate_name"
	CodeHBMMismatch             = "hbm_total_mismatch"
	CodeInvalidRequirement      = "invalid_requirement"
	CodeStorageInconsistent     = "storage_inconsistent"
	CodeContextClamped          = "context_clamped"
	CodeContextNearMax          = "context_near_max"
	CodePrecision16Bit          = "kv_precision_16bit"
	CodeBudgetRatioHigh         = "kv_budget_ratio_high"
	CodeOverheadLow             = "runtime_overhead_low"
	CodeZeroSessions            = "zero_sessions_per_node"
	CodeArtifactSizeUnknown     = "artifact_size_unknown"
	CodeStorageCapacityExceeded = "storage_capacity_exceeded"
	CodeColdStartSlow           = "cold_start_slow"
	CodeHBMUtilizationHigh      = "hbm_utilization_high"
)

// Alert is one validation or operational finding.
type Alert struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	// Field names the input parameter the finding originates from.
	Field string `json:"field,omitempty"`
	// Scenario is empty for run-wide findings.
	Scenario string `json:"scenario,omitempty"`
}

func (a Alert) String() string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(a.Severity.String()))
	if a.Scenario != "" {
		fmt.Fprintf(&b, " [%s]", a.Scenario)
	}
	fmt.Fprintf(&b, " %s: %s", a.Code, a.Message)
	if a.Field != "" {
		fmt.Fprintf(&b, " (field: %s)", a.Field)
	}
	return b.String()
}

func newAlert(sev Severity, code, field, format string, args ...any) Alert {
	return Alert{Severity: sev, Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}

// MaxSeverity returns the highest severity in alerts, and false when alerts is empty.
func MaxSeverity(alerts []Alert) (Severity, bool) {
	if len(alerts) == 0 {
		return 0, false
	}
	top := SeverityInfo
	for _, a := range alerts {
		if a.Severity > top {
			top = a.Severity
		}
	}
	return top, true
}

// FilterAlerts returns the alerts at or above floor, preserving order.
func FilterAlerts(alerts []Alert, floor Severity) []Alert {
	var out []Alert
	for _, a := range alerts {
		if a.Severity >= floor {
			out = append(out, a)
		}
	}
	return out
}

// HasErrors reports whether any alert is error or fatal.
func HasErrors(alerts []Alert) bool {
	s, ok := MaxSeverity(alerts)
	return ok && s >= SeverityError
}

// ValidationError is returned by Run when the inputs are unusable.
// Alerts holds every problem found, not only the first.
type ValidationError struct {
	Alerts []Alert
}

func (e *ValidationError) Error() string {
	problems := make([]string, 0, len(e.Alerts))
	for _, a := range FilterAlerts(e.Alerts, SeverityError) {
		problems = append(problems, a.Message)
	}
	return fmt.Sprintf("invalid sizing inputs: %s", strings.Join(problems, "; "))
}

// Rationale explains how a figure was obtained.
type Rationale struct {
	Name        string         `json:"name"`
	Formula     string         `json:"formula"`
	Inputs      map[string]any `json:"inputs"`
	Explanation string         `json:"explanation"`
}
