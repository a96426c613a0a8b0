package backend

import "strings"

// GenerateContentRequest represents the request body for the Vertex AI generateContent API
type GenerateContentRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// Content is one conversation turn
type Content struct {
	Role  string `json:"role,omitempty"` // "user" or "model"
	Parts []Part `json:"parts"`
}

// Part is a piece of a turn; only text is used here
type Part struct {
	Text string `json:"text,omitempty"`
}

// GenerationConfig holds sampling parameters
type GenerationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"topP,omitempty"`
	TopK             *int     `json:"topK,omitempty"`
	MaxOutputTokens  *int     `json:"maxOutputTokens,omitempty"`
	StopSequences    []string `json:"stopSequences,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
}

// GenerateContentResponse represents the response from the generateContent API
type GenerateContentResponse struct {
	Candidates     []Candidate     `json:"candidates"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *UsageMetadata  `json:"usageMetadata,omitempty"`
	ModelVersion   string          `json:"modelVersion"`
	ResponseID     string          `json:"responseId"`
	CreateTime     string          `json:"createTime"`
}

// Candidate is one generated answer
type Candidate struct {
	Content       Content `json:"content"`
	FinishReason  string  `json:"finishReason"`
	FinishMessage string  `json:"finishMessage,omitempty"`
}

// PromptFeedback is set when the prompt itself was rejected
type PromptFeedback struct {
	BlockReason        string `json:"blockReason"`
	BlockReasonMessage string `json:"blockReasonMessage"`
}

// UsageMetadata reports token counts
type UsageMetadata struct {
	PromptTokenCount     int64 `json:"promptTokenCount"`
	CandidatesTokenCount int64 `json:"candidatesTokenCount"`
	TotalTokenCount      int64 `json:"totalTokenCount"`
}

// ErrorResponse is the body of a non-2xx reply
type ErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"` // e.g. RESOURCE_EXHAUSTED, PERMISSION_DENIED
	} `json:"error"`
}

// NewTextRequest builds a single-turn request for prompt
func NewTextRequest(prompt string) *GenerateContentRequest {
	return &GenerateContentRequest{
		Contents: []Content{{
			Role:  "user",
			Parts: []Part{{Text: prompt}},
		}},
	}
}

// Text joins the text parts of the first candidate
func (r *GenerateContentResponse) Text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// AsMap flattens the counts for metric recording
func (u *UsageMetadata) AsMap() map[string]int64 {
	if u == nil {
		return nil
	}
	return map[string]int64{
		"prompt_tokens":     u.PromptTokenCount,
		"candidates_tokens": u.CandidatesTokenCount,
		"total_tokens":      u.TotalTokenCount,
	}
}
