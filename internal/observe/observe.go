// Package observe wraps functions in OpenTelemetry spans that the Langfuse
// dashboard renders as observations.
//
// A call through Run or a function returned by Wrap produces exactly one span.
// The wrapped function runs once, with a context carrying that span, and its
// result and error are handed back untouched. Inputs and outputs are recorded
// as JSON. A span started without a parent also names the trace and supplies
// its input and output, unless UpdateTrace set them explicitly.
//
//	explain := observe.Wrap("story", func(ctx context.Context, prompt string) (string, error) {
//		return client.GenerateText(ctx, prompt)
//	})
//	text, err := explain(ctx, "Explain Langfuse in one paragraph.")
package observe

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"GeminiTrace/internal/langfuse"
)

const scopeName = "GeminiTrace/internal/observe"

type settings struct {
	asType        string
	metadata      map[string]any
	input         any
	hasInput      bool
	captureInput  bool
	captureOutput bool
}

// Option configures a single observation.
type Option func(*settings)

// WithMetadata attaches static metadata to the observation.
func WithMetadata(md map[string]any) Option {
	return func(s *settings) {
		if s.metadata == nil {
			s.metadata = map[string]any{}
		}
		for k, v := range md {
			s.metadata[k] = v
		}
	}
}

// AsGeneration marks the observation as a model generation.
func AsGeneration() Option {
	return func(s *settings) {
		s.asType = langfuse.TypeGeneration
	}
}

// WithInput records v as the observation input.
func WithInput(v any) Option {
	return func(s *settings) {
		s.input = v
		s.hasInput = true
	}
}

// WithoutInput suppresses input capture.
func WithoutInput() Option {
	return func(s *settings) {
		s.captureInput = false
	}
}

// WithoutOutput suppresses output capture.
func WithoutOutput() Option {
	return func(s *settings) {
		s.captureOutput = false
	}
}

type traceStateKey struct{}

// traceState is shared by every observation of one trace.
type traceState struct {
	inputSet  atomic.Bool
	outputSet atomic.Bool
}

func stateFrom(ctx context.Context) *traceState {
	st, _ := ctx.Value(traceStateKey{}).(*traceState)
	return st
}

// Run executes fn inside a new observation named name.
func Run[T any](ctx context.Context, name string, fn func(context.Context) (T, error), opts ...Option) (out T, err error) {
	s := &settings{
		asType:        langfuse.TypeSpan,
		captureInput:  true,
		captureOutput: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	root := !trace.SpanContextFromContext(ctx).IsValid()
	st := stateFrom(ctx)
	if root || st == nil {
		st = &traceState{}
		ctx = context.WithValue(ctx, traceStateKey{}, st)
	}

	attrs := []attribute.KeyValue{
		attribute.String(langfuse.ObservationType, s.asType),
		attribute.String(langfuse.SDKVersion, langfuse.Version),
	}
	attrs = append(attrs, metadataAttrs(langfuse.ObservationMetadata, s.metadata)...)
	if root {
		attrs = append(attrs, attribute.String(langfuse.TraceName, name))
	}
	var in string
	if s.hasInput && s.captureInput {
		in = Serialize(s.input)
		attrs = append(attrs, attribute.String(langfuse.ObservationInput, in))
	}

	ctx, span := otel.Tracer(scopeName).Start(ctx, name, trace.WithAttributes(attrs...))
	defer func() {
		r := recover()
		if r != nil {
			markError(span, fmt.Errorf("panic: %v", r))
		}
		if root && in != "" && !st.inputSet.Load() {
			span.SetAttributes(attribute.String(langfuse.TraceInput, in))
		}
		span.End()
		if r != nil {
			panic(r)
		}
	}()

	out, err = fn(ctx)
	if err != nil {
		markError(span, err)
		return out, err
	}

	if s.captureOutput {
		o := Serialize(out)
		span.SetAttributes(attribute.String(langfuse.ObservationOutput, o))
		if root && !st.outputSet.Load() {
			span.SetAttributes(attribute.String(langfuse.TraceOutput, o))
		}
	}
	span.SetStatus(codes.Ok, "")

	return out, nil
}

// Wrap returns fn decorated with an observation named name. The argument is
// recorded as the observation input.
func Wrap[In, Out any](name string, fn func(context.Context, In) (Out, error), opts ...Option) func(context.Context, In) (Out, error) {
	return func(ctx context.Context, in In) (Out, error) {
		call := func(ctx context.Context) (Out, error) {
			return fn(ctx, in)
		}
		return Run(ctx, name, call, append([]Option{WithInput(in)}, opts...)...)
	}
}

func markError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(
		attribute.String(langfuse.ObservationLevel, langfuse.LevelError),
		attribute.String(langfuse.ObservationStatusMessage, err.Error()),
	)
}

// TraceID returns the hex trace id of the current observation, or "" outside one.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
