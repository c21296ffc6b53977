// Package skill provides the execution harness shared by every pipeline
// stage. A skill is a named transformation with validated input and output
// and an optional fallback that substitutes a known-safe value when
// validation or execution fails. Every invocation yields uniform metadata so
// the orchestrator can log one consistent trace across heterogeneous stages.
package skill

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"wayfinder/internal/logging"
)

// Skill describes one validated, instrumented pipeline stage.
//
// Input and output structs are validated with `validate:` tags. Fallback, when
// set, is consulted on input validation failure, execution error or panic, and
// output validation failure; it must return a value that is always safe to
// hand downstream.
type Skill[I any, O any] struct {
	Name     string
	Execute  func(ctx context.Context, input I) (O, error)
	Fallback func(ctx context.Context, input I) O
}

// Invocation is the execution metadata recorded for every skill run.
type Invocation struct {
	Skill        string        `json:"skill"`
	StartedAt    time.Time     `json:"startedAt"`
	FinishedAt   time.Time     `json:"finishedAt"`
	Duration     time.Duration `json:"duration"`
	Success      bool          `json:"success"`
	FallbackUsed bool          `json:"fallbackUsed"`
	Error        string        `json:"error,omitempty"`
	Notes        string        `json:"notes,omitempty"`
}

// Runner executes skills with shared validation, metrics, and tracing.
// A single Runner is safe for concurrent use.
type Runner struct {
	logger   logging.Logger
	metrics  *Metrics
	tracer   trace.Tracer
	validate *validator.Validate
}

// Option configures a Runner.
type Option func(*Runner)

// WithMetrics overrides the shared metrics instance (tests pass a fresh registry).
func WithMetrics(m *Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithLogger sets the runner's logger.
func WithLogger(logger logging.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner constructs a Runner with the default metrics and tracer.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		logger:   logging.Nop(),
		metrics:  defaultMetrics(),
		tracer:   otel.Tracer("wayfinder.skill"),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Metrics returns the runner's metrics instance.
func (r *Runner) Metrics() *Metrics {
	return r.metrics
}

// Run invokes a skill: validate input, execute, validate output, and fall
// back to the skill's declared default on any failure when one is defined.
// The returned Invocation is populated in every case, including errors.
func Run[I any, O any](ctx context.Context, r *Runner, s Skill[I, O], input I) (O, Invocation, error) {
	inv := Invocation{Skill: s.Name, StartedAt: time.Now()}

	ctx, span := r.tracer.Start(ctx, s.Name)
	defer span.End()

	output, err := runChecked(ctx, r, s, input, &inv)

	inv.FinishedAt = time.Now()
	inv.Duration = inv.FinishedAt.Sub(inv.StartedAt)
	inv.Success = err == nil
	if err != nil {
		inv.Error = err.Error()
	}

	status := "ok"
	switch {
	case err != nil:
		status = "error"
	case inv.FallbackUsed:
		status = "fallback"
	}
	r.metrics.ObserveInvocation(s.Name, status, inv.Duration)
	span.SetAttributes(
		attribute.Bool("skill.fallback_used", inv.FallbackUsed),
		attribute.Bool("skill.success", inv.Success),
	)

	if err != nil {
		r.logger.Warn("skill %s failed: %v", s.Name, err)
	} else if inv.FallbackUsed {
		r.logger.Info("skill %s substituted fallback: %s", s.Name, inv.Notes)
	}
	return output, inv, err
}

func runChecked[I any, O any](ctx context.Context, r *Runner, s Skill[I, O], input I, inv *Invocation) (out O, err error) {
	useFallback := func(reason string) (O, error) {
		if s.Fallback == nil {
			var zero O
			return zero, fmt.Errorf("skill %s: %s", s.Name, reason)
		}
		inv.FallbackUsed = true
		inv.Notes = reason
		r.metrics.IncFallback(s.Name, reason)
		return s.Fallback(ctx, input), nil
	}

	if verr := r.validateValue(input); verr != nil {
		return useFallback(fmt.Sprintf("input validation failed: %v", verr))
	}

	// Execution panics count as ordinary failures: fall back when possible,
	// otherwise surface as an error rather than unwinding the request.
	var execErr error
	out, execErr = func() (o O, eerr error) {
		defer func() {
			if rec := recover(); rec != nil {
				eerr = fmt.Errorf("panic: %v", rec)
			}
		}()
		return s.Execute(ctx, input)
	}()
	if execErr != nil {
		return useFallback(fmt.Sprintf("execution failed: %v", execErr))
	}

	if verr := r.validateValue(out); verr != nil {
		return useFallback(fmt.Sprintf("output validation failed: %v", verr))
	}
	return out, nil
}

// validateValue runs struct validation when the value (or its pointee) is a
// struct; non-struct inputs such as plain strings pass through unchecked.
func (r *Runner) validateValue(v any) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	return r.validate.Struct(rv.Interface())
}
