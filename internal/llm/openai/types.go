package openai

import (
	"bytes"
	"encoding/json"
)

// ResponsesRequest matches the OpenAI Responses API request body.
type ResponsesRequest struct {
	// Model is the provider model identifier.
	Model string `json:"model"`
	// Input is the user prompt text.
	Input string `json:"input"`
	// Instructions is an optional system prompt.
	Instructions string `json:"instructions,omitempty"`
	// PreviousResponseID continues a prior conversation turn.
	PreviousResponseID string `json:"previous_response_id,omitempty"`
	// Temperature controls randomness; nil leaves the server default.
	Temperature *float64 `json:"temperature,omitempty"`
	// MaxOutputTokens limits the model output; nil leaves the server default.
	MaxOutputTokens *uint64 `json:"max_output_tokens,omitempty"`
	// Stream toggles server-sent events in the response.
	Stream bool `json:"stream"`
}

// errorEnvelope is the body of a request rejected before streaming starts.
// The error value is kept raw; gateways disagree on its shape.
type errorEnvelope struct {
	Error json.RawMessage `json:"error"`
}

type errorBody struct {
	Message string `json:"message"`
}

// responseEnvelope wraps the lifecycle payloads (created, completed, failed).
type responseEnvelope struct {
	// Response is kept raw so raw-output mode can pretty-print it verbatim.
	Response json.RawMessage `json:"response"`
}

// responseObject holds the fields of a response the client reads.
type responseObject struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Error  json.RawMessage `json:"error"`
}

// textDeltaPayload is the response.output_text.delta payload.
type textDeltaPayload struct {
	Delta string `json:"delta"`
}

// present reports whether a raw JSON value exists and is not null.
func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// errorMessage extracts a human-readable message from an error value: the
// "message" of an object, the text of a string, or the raw JSON otherwise.
func errorMessage(raw json.RawMessage) string {
	if !present(raw) {
		return ""
	}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		return body.Message
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	return string(bytes.TrimSpace(raw))
}
