package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ErrIncompleteStream is returned when the body ends before a terminal event.
var ErrIncompleteStream = errors.New("stream ended before the response finished")

// readChunkSize bounds a single body read handed to the dispatcher.
const readChunkSize = 32 * 1024

// maxErrorBody caps how much of a failed response body is kept for APIError.
const maxErrorBody = 64 * 1024

// StreamResponse executes a streaming responses request and dispatches each
// decoded event to handler on the calling goroutine. It returns the terminal
// event on success; a *StreamError, *ResponseFailed, *APIError or transport
// error otherwise.
func (c *Client) StreamResponse(
	ctx context.Context,
	req *ResponsesRequest,
	handler EventHandler,
	options DispatcherOptions,
) (Event, error) {
	if handler == nil {
		return nil, errors.New("stream handler is required")
	}
	if req == nil {
		return nil, errors.New("responses request is required")
	}

	req.Stream = true
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal responses request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.responsesURL(),
		bytes.NewReader(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("create responses request: %w", err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("X-Client-Request-Id", requestID)
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	log := c.logger.With("client_request_id", requestID)
	log.Debug("sending responses request", "url", httpReq.URL.String(), "model", req.Model)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send responses request: %w", err)
	}
	defer resp.Body.Close()

	log.Debug("response headers received",
		"status", resp.StatusCode,
		"request_id", resp.Header.Get("X-Request-Id"),
	)

	if options.Logger == nil {
		options.Logger = log
	}

	// Non-2xx bodies still go through the dispatcher so a JSON error object
	// surfaces as a StreamError; the copy only backs APIError.
	failed := resp.StatusCode < 200 || resp.StatusCode >= 300
	var body io.Reader = resp.Body
	var errorBody bytes.Buffer
	if failed {
		body = io.TeeReader(io.LimitReader(resp.Body, maxErrorBody), &errorBody)
		handler = withoutMalformed(handler)
	}
	dispatcher := NewDispatcher(handler, options)

	if err := pump(body, dispatcher); err != nil {
		var streamErr *StreamError
		if failed && errors.As(err, &streamErr) && streamErr.Message == malformedMessage {
			return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(errorBody.String())}
		}
		return dispatcher.Terminal(), err
	}
	if terminal := dispatcher.Terminal(); terminal != nil {
		log.Debug("stream finished", "event", fmt.Sprintf("%T", terminal))
		return terminal, nil
	}
	if failed {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(errorBody.String())}
	}
	return nil, ErrIncompleteStream
}

// pump feeds body reads to the dispatcher until a terminal event or EOF.
func pump(body io.Reader, dispatcher *Dispatcher) error {
	buf := make([]byte, readChunkSize)
	for !dispatcher.Done() {
		n, readErr := body.Read(buf)
		if n > 0 {
			if err := dispatcher.Feed(buf[:n]); err != nil {
				return err
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return fmt.Errorf("read stream: %w", readErr)
		}
	}
	return nil
}

// withoutMalformed drops the malformed-response StreamError, which the caller
// replaces with an APIError carrying the status and body.
func withoutMalformed(handler EventHandler) EventHandler {
	return func(event Event) error {
		if streamErr, ok := event.(StreamError); ok && streamErr.Message == malformedMessage {
			return nil
		}
		return handler(event)
	}
}
