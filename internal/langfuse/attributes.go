package langfuse

// Version is reported as the SDK version on every span and request.
const Version = "0.1.0"

// Span attribute keys understood by the Langfuse OpenTelemetry endpoint.
const (
	TraceName        = "langfuse.trace.name"
	TraceTags        = "langfuse.trace.tags"
	TraceInput       = "langfuse.trace.input"
	TraceOutput      = "langfuse.trace.output"
	TraceMetadata    = "langfuse.trace.metadata"
	TraceUserID      = "user.id"
	TraceSessionID   = "session.id"
	Release          = "langfuse.release"
	Environment      = "langfuse.environment"
	SDKVersion       = "langfuse.sdk.version"
	ObservationType  = "langfuse.observation.type"
	ObservationInput = "langfuse.observation.input"

	ObservationOutput        = "langfuse.observation.output"
	ObservationMetadata      = "langfuse.observation.metadata"
	ObservationLevel         = "langfuse.observation.level"
	ObservationStatusMessage = "langfuse.observation.status_message"
	ObservationModel         = "langfuse.observation.model.name"
	ObservationModelParams   = "langfuse.observation.model.parameters"
	ObservationUsageDetails  = "langfuse.observation.usage_details"

	GenAISystem            = "gen_ai.system"
	GenAIRequestModel      = "gen_ai.request.model"
	GenAIResponseModel     = "gen_ai.response.model"
	GenAIUsageInputTokens  = "gen_ai.usage.input_tokens"
	GenAIUsageOutputTokens = "gen_ai.usage.output_tokens"
)

// Observation types.
const (
	TypeSpan       = "span"
	TypeGeneration = "generation"
)

// LevelError marks a failed observation; unset levels read as DEFAULT.
const LevelError = "ERROR"

// MetadataKey nests a metadata field under a trace or observation prefix.
func MetadataKey(prefix, key string) string {
	return prefix + "." + key
}
