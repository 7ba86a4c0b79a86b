package openai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chatgpt-cli/chatgpt-cli/internal/logger"
)

const (
	// malformedMessage is the StreamError text for undecodable events.
	malformedMessage = "malformed response"
	// rejectedMessage replaces an empty server error message.
	rejectedMessage = "request rejected"
)

// HistorySaver persists the id of a finished response.
type HistorySaver interface {
	Save(responseID string) error
}

// DispatcherOptions selects which events reach the handler.
type DispatcherOptions struct {
	// Raw suppresses text deltas and attaches the full response object to
	// the terminal event instead.
	Raw bool
	// EchoResponseID emits ResponseStarted when the server creates a response.
	EchoResponseID bool
	// History receives the response id on completion; nil disables saving.
	History HistorySaver
	// Logger defaults to a no-op logger.
	Logger *slog.Logger
}

// Dispatcher decodes a response body into typed events, in order.
type Dispatcher struct {
	// decoder frames incoming chunks.
	decoder *ChunkDecoder
	// handler receives every emitted event synchronously.
	handler EventHandler
	// options carries mode flags and collaborators.
	options DispatcherOptions
	// terminal is the terminal event, once one has been emitted.
	terminal Event
	// logger records ignored events and history saves.
	logger *slog.Logger
}

// NewDispatcher constructs a dispatcher delivering events to handler.
func NewDispatcher(handler EventHandler, options DispatcherOptions) *Dispatcher {
	log := options.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{
		decoder: NewChunkDecoder(),
		handler: handler,
		options: options,
		logger:  log,
	}
}

// Feed decodes chunk and dispatches every event it completes. The returned
// error is the handler's error, a *StreamError or a *ResponseFailed; once a
// terminal event has been dispatched Feed ignores further input.
func (d *Dispatcher) Feed(chunk []byte) error {
	if d.terminal != nil {
		return nil
	}

	frames, err := d.decoder.Feed(chunk)
	// Frames decoded before a framing error are still delivered.
	for _, frame := range frames {
		if dispatchErr := d.dispatch(frame); dispatchErr != nil || d.terminal != nil {
			d.decoder.Close()
			return dispatchErr
		}
	}
	if err != nil {
		var immediate *ImmediateError
		if errors.As(err, &immediate) {
			return d.fail(immediate.Message)
		}
		d.logger.Debug("stream framing error", "error", err)
		return d.fail(malformedMessage)
	}
	return nil
}

// Done reports whether a terminal event has been dispatched.
func (d *Dispatcher) Done() bool {
	return d.terminal != nil
}

// Terminal returns the terminal event, or nil while the stream is open.
func (d *Dispatcher) Terminal() Event {
	return d.terminal
}

// dispatch classifies one frame and emits its event, if any.
func (d *Dispatcher) dispatch(frame Frame) error {
	switch kindOf(frame.Name) {
	case eventCreated:
		if !d.options.EchoResponseID || d.options.Raw {
			return nil
		}
		response, _, err := d.decodeResponse(frame)
		if err != nil {
			return d.fail(malformedMessage)
		}
		return d.emit(ResponseStarted{ResponseID: response.ID})

	case eventTextDelta:
		if d.options.Raw {
			return nil
		}
		var payload textDeltaPayload
		if err := json.Unmarshal([]byte(frame.Data), &payload); err != nil {
			d.logger.Debug("decode text delta", "error", err)
			return d.fail(malformedMessage)
		}
		return d.emit(TextDelta{Text: payload.Delta})

	case eventCompleted, eventIncomplete:
		response, raw, err := d.decodeResponse(frame)
		if err != nil {
			return d.fail(malformedMessage)
		}
		finished := ResponseFinished{
			ResponseID: response.ID,
			Status:     response.Status,
			RawPayload: raw,
		}
		d.saveHistory(response.ID)
		return d.emit(finished)

	case eventFailed:
		response, raw, err := d.decodeResponse(frame)
		if err != nil {
			return d.fail(malformedMessage)
		}
		failed := ResponseFailed{
			ResponseID: response.ID,
			Message:    errorMessage(response.Error),
			RawPayload: raw,
		}
		if err := d.emit(failed); err != nil {
			return err
		}
		return &failed

	default:
		d.logger.Debug("ignoring stream event", "event", frame.Name)
		return nil
	}
}

// decodeResponse parses a lifecycle payload. The indented response object is
// returned only in raw-output mode.
func (d *Dispatcher) decodeResponse(frame Frame) (responseObject, string, error) {
	var (
		envelope responseEnvelope
		response responseObject
	)
	if err := json.Unmarshal([]byte(frame.Data), &envelope); err != nil {
		d.logger.Debug("decode response event", "event", frame.Name, "error", err)
		return response, "", err
	}
	// A missing or oddly shaped response object only loses the id.
	if len(envelope.Response) > 0 {
		_ = json.Unmarshal(envelope.Response, &response)
	}
	if !d.options.Raw {
		return response, "", nil
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, envelope.Response, "", "  "); err != nil {
		pretty.Reset()
		pretty.WriteString("null")
	}
	return response, pretty.String(), nil
}

// saveHistory records a finished response id; failures are logged only.
func (d *Dispatcher) saveHistory(responseID string) {
	if d.options.History == nil {
		return
	}
	if responseID == "" {
		d.logger.Debug("response finished without an id; history not updated")
		return
	}
	if err := d.options.History.Save(responseID); err != nil {
		d.logger.Warn("save previous response id", "error", err)
		return
	}
	d.logger.Debug("saved previous response id", "response_id", responseID)
}

// fail emits a StreamError and returns it as an error.
func (d *Dispatcher) fail(message string) error {
	if message == "" {
		message = rejectedMessage
	}
	streamErr := StreamError{Message: message}
	if err := d.emit(streamErr); err != nil {
		return err
	}
	return &streamErr
}

// emit delivers one event and records it when it is terminal.
func (d *Dispatcher) emit(event Event) error {
	if event.Terminal() {
		d.terminal = event
		d.decoder.Close()
	}
	if err := d.handler(event); err != nil {
		return fmt.Errorf("handle stream event: %w", err)
	}
	return nil
}
