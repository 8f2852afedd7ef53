// Package sse consumes the generation collaborator's event-stream protocol.
// The body is a sequence of `data: <json>` lines separated by blank lines;
// the reader buffers incrementally so frames split across network chunks
// are reassembled correctly.
package sse

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/proctorly/proctorly-backend/internal/model"
)

// FrameType discriminates the generation protocol frames.
type FrameType string

const (
	FrameInit     FrameType = "init"
	FramePartial  FrameType = "partial"
	FrameComplete FrameType = "complete"
	FrameError    FrameType = "error"
)

// Frame is one decoded protocol frame.
type Frame struct {
	Type FrameType `json:"type"`

	// init
	RequestID string `json:"requestId,omitempty"`

	// partial / complete
	Questions []model.Question `json:"questions,omitempty"`
	Count     int              `json:"count,omitempty"`

	// error
	Message     string `json:"message,omitempty"`
	Details     string `json:"details,omitempty"`
	ShouldRetry bool   `json:"shouldRetry,omitempty"`
}

// ErrMalformedFrame reports a data line that did not decode into a frame.
// Malformed content is not retried within the same batch; the caller counts
// it against the retry budget.
var ErrMalformedFrame = errors.New("sse: malformed frame")

const dataPrefix = "data: "

// Reader yields typed frames from an event-stream body.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader wraps an event-stream body. The 1 MB line cap comfortably fits
// a complete 25-question batch in one frame.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	return &Reader{scanner: sc}
}

// Next returns the next frame. It skips blank event boundaries and comment
// lines, returns io.EOF at end of stream, and ErrMalformedFrame (wrapped)
// for undecodable data lines.
func (r *Reader) Next() (*Frame, error) {
	for r.scanner.Scan() {
		line := strings.TrimRight(r.scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, dataPrefix) {
			// Field lines other than data (event:, id:) carry nothing for
			// this protocol.
			continue
		}

		payload := strings.TrimPrefix(line, dataPrefix)
		var frame Frame
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		switch frame.Type {
		case FrameInit, FramePartial, FrameComplete, FrameError:
			return &frame, nil
		default:
			return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedFrame, frame.Type)
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}
