package openai

// Event is a decoded stream event delivered to an EventHandler.
// The concrete types are TextDelta, ResponseStarted, ResponseFinished,
// ResponseFailed and StreamError.
type Event interface {
	// Terminal reports whether no further events follow this one.
	Terminal() bool
}

// TextDelta carries one incremental fragment of output text.
type TextDelta struct {
	Text string
}

// ResponseStarted announces the id of a response the server has created.
type ResponseStarted struct {
	ResponseID string
}

// ResponseFinished ends a stream that completed or stopped as incomplete.
type ResponseFinished struct {
	// ResponseID is empty when the payload carried none.
	ResponseID string
	// Status is the response status, e.g. "completed" or "incomplete".
	Status string
	// RawPayload is the indented response object, set only in raw-output mode.
	RawPayload string
}

// ResponseFailed ends a stream the server reported as failed.
type ResponseFailed struct {
	ResponseID string
	// Message is the server-provided failure reason, if any.
	Message    string
	RawPayload string
}

// StreamError ends a stream that could not be decoded or was rejected.
type StreamError struct {
	Message string
}

func (TextDelta) Terminal() bool        { return false }
func (ResponseStarted) Terminal() bool  { return false }
func (ResponseFinished) Terminal() bool { return true }
func (ResponseFailed) Terminal() bool   { return true }
func (StreamError) Terminal() bool      { return true }

func (e *StreamError) Error() string {
	return e.Message
}

func (e *ResponseFailed) Error() string {
	if e.Message == "" {
		return "response failed"
	}
	return "response failed: " + e.Message
}

// EventHandler consumes decoded events. A returned error aborts the stream.
type EventHandler func(event Event) error

// eventKind is the closed set of wire events the dispatcher acts on.
type eventKind int

const (
	eventIgnored eventKind = iota
	eventCreated
	eventTextDelta
	eventCompleted
	eventIncomplete
	eventFailed
)

// eventKinds maps wire event names to kinds. Names not listed are ignored.
var eventKinds = map[string]eventKind{
	"response.created":           eventCreated,
	"response.output_text.delta": eventTextDelta,
	"response.completed":         eventCompleted,
	"response.incomplete":        eventIncomplete,
	"response.failed":            eventFailed,
}

func kindOf(name string) eventKind {
	return eventKinds[name]
}
