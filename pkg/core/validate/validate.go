// Package validate collects configuration findings into a report and checks
// that the power, cost and cashflow results of one run agree with each other.
package validate

import (
	"fmt"
	"math"
	"strings"

	"fusion_costing/pkg/models"
)

// Level is the severity of a finding.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Finding is a single validation message tied to a config path.
type Finding struct {
	Level    Level  `json:"level"`
	Path     string `json:"path"`
	Message  string `json:"message"`
	Actual   any    `json:"actual,omitempty"`
	Expected string `json:"expected,omitempty"`
	Cause    error  `json:"-"` // sentinel the finding maps to; ErrConfiguration when nil
}

// Report collects every finding of one validation pass.
type Report struct {
	Valid    bool      `json:"valid"`
	Errors   []Finding `json:"errors"`
	Warnings []Finding `json:"warnings"`
	Info     []Finding `json:"info"`
	Summary  string    `json:"summary"`
}

// NewReport creates an empty, valid report.
func NewReport() *Report {
	r := &Report{Valid: true}
	r.updateSummary()
	return r
}

// AddError records a finding that blocks evaluation.
func (r *Report) AddError(path, message string, actual any, expected string) {
	r.AddErrorAs(models.ErrConfiguration, path, message, actual, expected)
}

// AddErrorAs records a blocking finding whose error matches cause.
func (r *Report) AddErrorAs(cause error, path, message string, actual any, expected string) {
	r.Errors = append(r.Errors, Finding{
		Level:    LevelError,
		Path:     path,
		Message:  message,
		Actual:   actual,
		Expected: expected,
		Cause:    cause,
	})
	r.Valid = false
	r.updateSummary()
}

// AddWarning records a finding that does not block evaluation.
func (r *Report) AddWarning(path, message string) {
	r.Warnings = append(r.Warnings, Finding{Level: LevelWarning, Path: path, Message: message})
	r.updateSummary()
}

// AddInfo records an informational note.
func (r *Report) AddInfo(path, message string) {
	r.Info = append(r.Info, Finding{Level: LevelInfo, Path: path, Message: message})
	r.updateSummary()
}

// Merge folds another report into this one.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.Info = append(r.Info, other.Info...)
	if !other.Valid {
		r.Valid = false
	}
	r.updateSummary()
}

// Error is an invalid report as an error. errors.Is matches the cause of
// every finding, so a geometry finding still reads as ErrInvalidGeometry.
type Error struct {
	Findings []Finding
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Findings))
	for _, f := range e.Findings {
		msgs = append(msgs, f.Path+": "+f.Message)
	}
	return fmt.Sprintf("%d invalid parameters (%s)", len(e.Findings), strings.Join(msgs, "; "))
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, len(e.Findings))
	for _, f := range e.Findings {
		if f.Cause == nil {
			out = append(out, models.ErrConfiguration)
			continue
		}
		out = append(out, f.Cause)
	}
	return out
}

// Err converts an invalid report into one error naming every failing path.
func (r *Report) Err() error {
	if r.Valid {
		return nil
	}
	return &Error{Findings: append([]Finding(nil), r.Errors...)}
}

// WarningMessages flattens the warnings into "path: message" lines.
func (r *Report) WarningMessages() []string {
	out := make([]string, 0, len(r.Warnings))
	for _, f := range r.Warnings {
		out = append(out, f.Path+": "+f.Message)
	}
	return out
}

func (r *Report) updateSummary() {
	r.Summary = fmt.Sprintf("%d errors, %d warnings, %d info",
		len(r.Errors), len(r.Warnings), len(r.Info))
}

// =============================================================================
// RANGE CHECKS
// =============================================================================

// Positive requires v > 0.
func (r *Report) Positive(path string, v float64) {
	r.PositiveAs(models.ErrConfiguration, path, v)
}

// PositiveAs is Positive with the finding mapped to cause.
func (r *Report) PositiveAs(cause error, path string, v float64) {
	if !(v > 0) || math.IsInf(v, 0) {
		r.AddErrorAs(cause, path, "must be positive", v, "> 0")
	}
}

// NonNegative requires v ≥ 0.
func (r *Report) NonNegative(path string, v float64) {
	r.NonNegativeAs(models.ErrConfiguration, path, v)
}

// NonNegativeAs is NonNegative with the finding mapped to cause.
func (r *Report) NonNegativeAs(cause error, path string, v float64) {
	if !(v >= 0) || math.IsInf(v, 0) {
		r.AddErrorAs(cause, path, "must not be negative", v, ">= 0")
	}
}

// Between requires lo ≤ v ≤ hi.
func (r *Report) Between(path string, v, lo, hi float64) {
	if !(v >= lo && v <= hi) {
		r.AddError(path, "out of range", v, fmt.Sprintf("[%g, %g]", lo, hi))
	}
}

// OneOf requires v to be one of the allowed values. Empty v is accepted.
func (r *Report) OneOf(path, v string, allowed ...string) {
	if v == "" {
		return
	}
	for _, a := range allowed {
		if v == a {
			return
		}
	}
	r.AddError(path, "unsupported value", v, strings.Join(allowed, ", "))
}

// Check records err as an error finding when non-nil. The finding keeps err
// as its cause.
func (r *Report) Check(path string, err error) {
	if err != nil {
		r.AddErrorAs(err, path, err.Error(), nil, "")
	}
}
