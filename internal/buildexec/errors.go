package buildexec

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrConfiguration = errors.New("configuration error")
	ErrNetwork       = errors.New("network error")
	ErrNotFound      = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Category returns a short label for the marker carried by err.
func Category(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	default:
		return "internal"
	}
}

// StepError reports a failed external command together with its outcome.
type StepError struct {
	Outcome Outcome
}

func (e *StepError) Error() string {
	o := e.Outcome
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", o.Step, o.CommandLine())
	switch {
	case o.ExitCode > 0:
		fmt.Fprintf(&b, " exited with status %d", o.ExitCode)
	case o.Cause != nil:
		fmt.Fprintf(&b, ": %v", o.Cause)
	}
	if len(o.Tail) > 0 {
		b.WriteString("\n  ")
		b.WriteString(strings.Join(o.Tail, "\n  "))
	}
	return b.String()
}

// Unwrap exposes both the external-tool marker and the underlying cause.
func (e *StepError) Unwrap() []error {
	errs := []error{ErrExternalTool}
	if e.Outcome.Cause != nil {
		errs = append(errs, e.Outcome.Cause)
	}
	return errs
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "build failure"
	}
	return strings.Join(parts, ": ")
}
