package observe

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"GeminiTrace/internal/langfuse"
)

// maxValueLen caps serialized inputs, outputs and metadata values.
const maxValueLen = 64 << 10

// TraceUpdate holds trace-level fields. Zero values are left unset.
type TraceUpdate struct {
	Name      string
	UserID    string
	SessionID string
	Tags      []string
	Metadata  map[string]any
	Input     any
	Output    any
}

// SpanUpdate holds observation-level fields. Zero values are left unset.
type SpanUpdate struct {
	Input    any
	Output   any
	Metadata map[string]any
}

// UpdateTrace sets trace-level attributes on the current observation.
// An explicit Input or Output takes precedence over the root observation's own.
func UpdateTrace(ctx context.Context, u TraceUpdate) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	var attrs []attribute.KeyValue
	if u.Name != "" {
		attrs = append(attrs, attribute.String(langfuse.TraceName, u.Name))
	}
	if u.UserID != "" {
		attrs = append(attrs, attribute.String(langfuse.TraceUserID, u.UserID))
	}
	if u.SessionID != "" {
		attrs = append(attrs, attribute.String(langfuse.TraceSessionID, u.SessionID))
	}
	if len(u.Tags) > 0 {
		attrs = append(attrs, attribute.StringSlice(langfuse.TraceTags, u.Tags))
	}
	attrs = append(attrs, metadataAttrs(langfuse.TraceMetadata, u.Metadata)...)

	st := stateFrom(ctx)
	if u.Input != nil {
		attrs = append(attrs, attribute.String(langfuse.TraceInput, Serialize(u.Input)))
		if st != nil {
			st.inputSet.Store(true)
		}
	}
	if u.Output != nil {
		attrs = append(attrs, attribute.String(langfuse.TraceOutput, Serialize(u.Output)))
		if st != nil {
			st.outputSet.Store(true)
		}
	}

	span.SetAttributes(attrs...)
}

// UpdateSpan sets observation-level attributes on the current observation.
func UpdateSpan(ctx context.Context, u SpanUpdate) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := metadataAttrs(langfuse.ObservationMetadata, u.Metadata)
	if u.Input != nil {
		attrs = append(attrs, attribute.String(langfuse.ObservationInput, Serialize(u.Input)))
	}
	if u.Output != nil {
		attrs = append(attrs, attribute.String(langfuse.ObservationOutput, Serialize(u.Output)))
	}

	span.SetAttributes(attrs...)
}

// Serialize renders v for a span attribute: strings verbatim, everything else as JSON.
// Values longer than 64 KiB are cut at the last whole character before the limit.
func Serialize(v any) string {
	var s string
	switch val := v.(type) {
	case nil:
		s = "null"
	case string:
		s = val
	case []byte:
		s = string(val)
	case error:
		s = val.Error()
	default:
		b, err := json.Marshal(val)
		if err != nil {
			s = fmt.Sprintf("%v", val)
		} else {
			s = string(b)
		}
	}
	if len(s) > maxValueLen {
		// cut on a rune boundary; OTLP rejects invalid UTF-8
		n := maxValueLen
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		s = s[:n]
	}
	return s
}

func metadataAttrs(prefix string, md map[string]any) []attribute.KeyValue {
	if len(md) == 0 {
		return nil
	}

	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, attribute.String(langfuse.MetadataKey(prefix, k), Serialize(md[k])))
	}
	return attrs
}
