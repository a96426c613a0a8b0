package observe_test

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"GeminiTrace/internal/langfuse"
	"GeminiTrace/internal/observe"
)

func attrsOf(span sdktrace.ReadOnlySpan) map[string]string {
	out := map[string]string{}
	for _, kv := range span.Attributes() {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}

type character struct {
	Name    string `json:"name"`
	Species string `json:"species"`
}

var _ = Describe("observe", func() {
	var (
		ctx      context.Context
		recorder *tracetest.SpanRecorder
	)

	BeforeEach(func() {
		ctx = context.Background()
		recorder = tracetest.NewSpanRecorder()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
		prev := otel.GetTracerProvider()
		otel.SetTracerProvider(tp)
		DeferCleanup(func() {
			otel.SetTracerProvider(prev)
			tp.Shutdown(context.Background())
		})
	})

	Describe("Run", func() {
		It("invokes the function once and returns its value unchanged", func() {
			calls := 0
			want := character{Name: "Vexa", Species: "android"}

			got, err := observe.Run(ctx, "character_generator", func(context.Context) (character, error) {
				calls++
				return want, nil
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
			Expect(calls).To(Equal(1))
			Expect(recorder.Ended()).To(HaveLen(1))
		})

		It("names the trace after a root observation", func() {
			_, err := observe.Run(ctx, "story_generation", func(context.Context) (string, error) {
				return "Langfuse records traces.", nil
			})
			Expect(err).NotTo(HaveOccurred())

			span := recorder.Ended()[0]
			attrs := attrsOf(span)
			Expect(span.Name()).To(Equal("story_generation"))
			Expect(span.Status().Code).To(Equal(codes.Ok))
			Expect(attrs[langfuse.TraceName]).To(Equal("story_generation"))
			Expect(attrs[langfuse.ObservationType]).To(Equal("span"))
			Expect(attrs[langfuse.ObservationOutput]).To(Equal("Langfuse records traces."))
			Expect(attrs[langfuse.TraceOutput]).To(Equal("Langfuse records traces."))
		})

		It("nests observations under the caller", func() {
			_, err := observe.Run(ctx, "outer", func(ctx context.Context) (int, error) {
				return observe.Run(ctx, "inner", func(context.Context) (int, error) {
					return 42, nil
				})
			})
			Expect(err).NotTo(HaveOccurred())

			spans := recorder.Ended()
			Expect(spans).To(HaveLen(2))
			inner, outer := spans[0], spans[1]
			Expect(inner.Name()).To(Equal("inner"))
			Expect(inner.Parent().SpanID()).To(Equal(outer.SpanContext().SpanID()))
			Expect(inner.SpanContext().TraceID()).To(Equal(outer.SpanContext().TraceID()))
			Expect(attrsOf(inner)).NotTo(HaveKey(langfuse.TraceName))
			Expect(attrsOf(inner)[langfuse.ObservationOutput]).To(Equal("42"))
		})

		It("surfaces errors unchanged and marks the observation", func() {
			boom := errors.New("quota exceeded")

			_, err := observe.Run(ctx, "story", func(context.Context) (string, error) {
				return "", boom
			})

			Expect(err).To(BeIdenticalTo(boom))
			span := recorder.Ended()[0]
			Expect(span.Status().Code).To(Equal(codes.Error))
			Expect(span.Status().Description).To(Equal("quota exceeded"))
			Expect(attrsOf(span)[langfuse.ObservationLevel]).To(Equal("ERROR"))
			Expect(attrsOf(span)).NotTo(HaveKey(langfuse.ObservationOutput))
			Expect(span.Events()).NotTo(BeEmpty())
		})

		It("records and re-raises panics", func() {
			Expect(func() {
				observe.Run(ctx, "fragile", func(context.Context) (string, error) {
					panic("bad state")
				})
			}).To(PanicWith("bad state"))

			span := recorder.Ended()[0]
			Expect(span.Status().Code).To(Equal(codes.Error))
			Expect(span.Status().Description).To(ContainSubstring("bad state"))
		})

		It("applies options", func() {
			_, err := observe.Run(ctx, "vertex_call", func(context.Context) (string, error) {
				return "secret output", nil
			},
				observe.AsGeneration(),
				observe.WithoutOutput(),
				observe.WithMetadata(map[string]any{"step": "premise", "criteria": []string{"a", "b"}}),
			)
			Expect(err).NotTo(HaveOccurred())

			attrs := attrsOf(recorder.Ended()[0])
			Expect(attrs[langfuse.ObservationType]).To(Equal("generation"))
			Expect(attrs).NotTo(HaveKey(langfuse.ObservationOutput))
			Expect(attrs["langfuse.observation.metadata.step"]).To(Equal("premise"))
			Expect(attrs["langfuse.observation.metadata.criteria"]).To(Equal(`["a","b"]`))
		})
	})

	Describe("Wrap", func() {
		It("records the argument as input", func() {
			generate := observe.Wrap("character_generator", func(_ context.Context, kind string) (character, error) {
				return character{Name: "Orin", Species: kind}, nil
			})

			got, err := generate(ctx, "hero")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Species).To(Equal("hero"))

			attrs := attrsOf(recorder.Ended()[0])
			Expect(attrs[langfuse.ObservationInput]).To(Equal("hero"))
			Expect(attrs[langfuse.TraceInput]).To(Equal("hero"))
			Expect(attrs[langfuse.ObservationOutput]).To(Equal(`{"name":"Orin","species":"hero"}`))
		})

		It("honours WithoutInput", func() {
			generate := observe.Wrap("quiet", func(_ context.Context, n int) (int, error) {
				return n * 2, nil
			}, observe.WithoutInput())

			Expect(generate(ctx, 21)).To(Equal(42))
			Expect(attrsOf(recorder.Ended()[0])).NotTo(HaveKey(langfuse.ObservationInput))
		})
	})

	Describe("UpdateTrace", func() {
		It("sets trace identity and overrides the root output", func() {
			_, err := observe.Run(ctx, "showcase", func(ctx context.Context) (string, error) {
				observe.UpdateTrace(ctx, observe.TraceUpdate{
					Name:      "Rich Story Generation Demo",
					UserID:    "demo_user_123",
					SessionID: "session_1",
					Tags:      []string{"demo", "gemini"},
					Metadata:  map[string]any{"experiment": map[string]string{"version": "1.0"}},
					Output:    map[string]int{"overall_score": 80},
				})
				return "raw", nil
			})
			Expect(err).NotTo(HaveOccurred())

			span := recorder.Ended()[0]
			attrs := attrsOf(span)
			Expect(attrs[langfuse.TraceName]).To(Equal("Rich Story Generation Demo"))
			Expect(attrs[langfuse.TraceUserID]).To(Equal("demo_user_123"))
			Expect(attrs[langfuse.TraceSessionID]).To(Equal("session_1"))
			Expect(attrs["langfuse.trace.metadata.experiment"]).To(Equal(`{"version":"1.0"}`))
			Expect(attrs[langfuse.TraceOutput]).To(Equal(`{"overall_score":80}`))
			Expect(attrs[langfuse.ObservationOutput]).To(Equal("raw"))

			for _, kv := range span.Attributes() {
				if string(kv.Key) == langfuse.TraceTags {
					Expect(kv.Value.AsStringSlice()).To(Equal([]string{"demo", "gemini"}))
				}
			}
		})

		It("is a no-op outside an observation", func() {
			Expect(func() {
				observe.UpdateTrace(ctx, observe.TraceUpdate{UserID: "nobody"})
				observe.UpdateSpan(ctx, observe.SpanUpdate{Output: "nothing"})
			}).NotTo(Panic())
			Expect(recorder.Ended()).To(BeEmpty())
		})
	})

	Describe("UpdateSpan", func() {
		It("sets observation input, output and metadata", func() {
			_, err := observe.Run(ctx, "premise", func(ctx context.Context) (string, error) {
				observe.UpdateSpan(ctx, observe.SpanUpdate{
					Input:    map[string]string{"prompt": "p"},
					Metadata: map[string]any{"target_length": "1-2 sentences"},
				})
				return "done", nil
			})
			Expect(err).NotTo(HaveOccurred())

			attrs := attrsOf(recorder.Ended()[0])
			Expect(attrs[langfuse.ObservationInput]).To(Equal(`{"prompt":"p"}`))
			Expect(attrs["langfuse.observation.metadata.target_length"]).To(Equal("1-2 sentences"))
		})
	})

	Describe("TraceID", func() {
		It("is empty outside an observation and set inside one", func() {
			Expect(observe.TraceID(ctx)).To(BeEmpty())

			var id string
			observe.Run(ctx, "root", func(ctx context.Context) (struct{}, error) {
				id = observe.TraceID(ctx)
				return struct{}{}, nil
			})
			Expect(id).To(HaveLen(32))
			Expect(id).To(Equal(recorder.Ended()[0].SpanContext().TraceID().String()))
		})
	})

	Describe("Serialize", func() {
		It("passes strings through and encodes the rest as JSON", func() {
			Expect(observe.Serialize("plain")).To(Equal("plain"))
			Expect(observe.Serialize(nil)).To(Equal("null"))
			Expect(observe.Serialize(errors.New("x"))).To(Equal("x"))
			Expect(observe.Serialize(map[string]int{"a": 1})).To(Equal(`{"a":1}`))
		})

		It("truncates very large values", func() {
			Expect(observe.Serialize(strings.Repeat("x", 100_000))).To(HaveLen(64 << 10))
		})

		It("never splits a multibyte character when truncating", func() {
			out := observe.Serialize("a" + strings.Repeat("é", 40000))
			Expect(utf8.ValidString(out)).To(BeTrue())
			Expect(out).To(HaveLen(64<<10 - 1))
			Expect(out).To(HaveSuffix("é"))
		})
	})
})
