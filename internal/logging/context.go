package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID identifies one ffbuild invocation across all of its log lines.
	FieldRunID = "run_id"
	// FieldABI is the Android ABI currently being built.
	FieldABI = "abi"
	// FieldStep is the build step (configure, clean, build, install, ...).
	FieldStep = "step"
	// FieldEventType tags lines that mark lifecycle events.
	FieldEventType = "event_type"
)

type contextKey int

const (
	runIDKey contextKey = iota
	abiKey
	stepKey
)

// WithRunID returns a context carrying the run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// WithABI returns a context carrying the ABI being built.
func WithABI(ctx context.Context, abi string) context.Context {
	return context.WithValue(ctx, abiKey, abi)
}

// WithStep returns a context carrying the current build step.
func WithStep(ctx context.Context, step string) context.Context {
	return context.WithValue(ctx, stepKey, step)
}

// RunIDFromContext returns the run identifier stored in ctx.
func RunIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, runIDKey)
}

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(key).(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	fields := make([]slog.Attr, 0, 3)
	if id, ok := stringValue(ctx, runIDKey); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if abi, ok := stringValue(ctx, abiKey); ok {
		fields = append(fields, slog.String(FieldABI, abi))
	}
	if step, ok := stringValue(ctx, stepKey); ok {
		fields = append(fields, slog.String(FieldStep, step))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(toArgs(fields)...)
}
