package openai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformed reports event framing that cannot be decoded.
	ErrMalformed = errors.New("malformed event")

	eventDelimiter = []byte("\n\n")
	nameTag        = []byte("event: ")
	dataTag        = []byte("data: ")
)

// ImmediateError is returned when the server rejects a request with a bare
// JSON error object instead of an event stream.
type ImmediateError struct {
	Message string
}

func (e *ImmediateError) Error() string {
	return e.Message
}

// Frame is one blank-line delimited event before its payload is parsed.
type Frame struct {
	// Name is the text following the "event: " tag.
	Name string
	// Data runs from the first '{' after the "data: " tag to the delimiter.
	// It is empty when the event carries no payload.
	Data string
}

// ChunkDecoder turns arbitrarily split body reads into complete frames.
type ChunkDecoder struct {
	// buf holds bytes not yet resolved into a frame.
	buf []byte
	// scanFrom is where the next delimiter search starts within buf.
	scanFrom int
	// fed reports whether a non-empty chunk has been seen.
	fed bool
	// closed stops all further decoding.
	closed bool
}

// NewChunkDecoder returns an empty decoder.
func NewChunkDecoder() *ChunkDecoder {
	return &ChunkDecoder{}
}

// Feed appends chunk and returns every frame it completes, in arrival order.
// Bytes after the last delimiter stay buffered until a later call completes
// them. Any error closes the decoder.
func (d *ChunkDecoder) Feed(chunk []byte) ([]Frame, error) {
	if d.closed || len(chunk) == 0 {
		return nil, nil
	}

	if !d.fed {
		d.fed = true
		if err := immediateError(chunk); err != nil {
			d.Close()
			return nil, err
		}
	}

	d.buf = append(d.buf, chunk...)

	var frames []Frame
	start := 0
	for {
		end := bytes.Index(d.buf[d.scanFrom:], eventDelimiter)
		if end < 0 {
			break
		}
		end += d.scanFrom

		frame, err := parseFrame(d.buf[start:end])
		if err != nil {
			d.Close()
			return frames, err
		}
		frames = append(frames, frame)

		start = end + len(eventDelimiter)
		d.scanFrom = start
	}

	// Keep the unresolved suffix at the front of the buffer.
	leftover := copy(d.buf, d.buf[start:])
	d.buf = d.buf[:leftover]
	// The last byte may be the first half of a delimiter.
	d.scanFrom = max(leftover-1, 0)

	return frames, nil
}

// Buffered returns the number of bytes awaiting a delimiter.
func (d *ChunkDecoder) Buffered() int {
	return len(d.buf)
}

// Close discards buffered bytes; later Feed calls are no-ops.
func (d *ChunkDecoder) Close() {
	d.closed = true
	d.buf = nil
	d.scanFrom = 0
}

// Closed reports whether the decoder stopped accepting input.
func (d *ChunkDecoder) Closed() bool {
	return d.closed
}

// immediateError detects a request rejected with a single JSON object
// carrying a non-null top-level "error" field of any shape.
func immediateError(chunk []byte) error {
	var envelope errorEnvelope
	if err := json.Unmarshal(chunk, &envelope); err != nil || !present(envelope.Error) {
		return nil
	}
	return &ImmediateError{Message: errorMessage(envelope.Error)}
}

// parseFrame splits raw event text into its name and payload.
func parseFrame(raw []byte) (Frame, error) {
	tag := bytes.Index(raw, nameTag)
	if tag < 0 {
		return Frame{}, fmt.Errorf("%w: missing event name", ErrMalformed)
	}
	nameStart := tag + len(nameTag)

	nameEnd := bytes.IndexByte(raw, '\n')
	if nameEnd < 0 {
		nameEnd = len(raw)
	}
	if nameEnd < nameStart {
		return Frame{}, fmt.Errorf("%w: event name ends before it starts", ErrMalformed)
	}

	frame := Frame{Name: string(raw[nameStart:nameEnd])}

	rest := raw[nameEnd:]
	data := bytes.Index(rest, dataTag)
	if data < 0 {
		return frame, nil
	}
	rest = rest[data+len(dataTag):]
	if brace := bytes.IndexByte(rest, '{'); brace >= 0 {
		frame.Data = string(rest[brace:])
	}
	return frame, nil
}
