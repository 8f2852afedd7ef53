package sse

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestReaderParsesFrameSequence(t *testing.T) {
	stream := strings.Join([]string{
		`data: {"type":"init","requestId":"req-1"}`,
		"",
		`data: {"type":"partial","questions":[{"id":1,"type":"MCQ","title":"Q1"}],"count":1}`,
		"",
		`data: {"type":"complete","questions":[{"id":1,"type":"MCQ","title":"Q1"}]}`,
		"",
	}, "\n")

	r := NewReader(strings.NewReader(stream))

	frame, err := r.Next()
	if err != nil {
		t.Fatalf("init frame: %v", err)
	}
	if frame.Type != FrameInit || frame.RequestID != "req-1" {
		t.Errorf("unexpected init frame: %+v", frame)
	}

	frame, err = r.Next()
	if err != nil {
		t.Fatalf("partial frame: %v", err)
	}
	if frame.Type != FramePartial || frame.Count != 1 || len(frame.Questions) != 1 {
		t.Errorf("unexpected partial frame: %+v", frame)
	}

	frame, err = r.Next()
	if err != nil {
		t.Fatalf("complete frame: %v", err)
	}
	if frame.Type != FrameComplete || frame.Questions[0].Title != "Q1" {
		t.Errorf("unexpected complete frame: %+v", frame)
	}

	if _, err = r.Next(); err != io.EOF {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestReaderSkipsCommentsAndOtherFields(t *testing.T) {
	stream := strings.Join([]string{
		": keepalive",
		"event: message",
		"id: 42",
		`data: {"type":"error","message":"model overloaded","shouldRetry":true}`,
		"",
	}, "\n")

	r := NewReader(strings.NewReader(stream))

	frame, err := r.Next()
	if err != nil {
		t.Fatalf("error frame: %v", err)
	}
	if frame.Type != FrameError || !frame.ShouldRetry || frame.Message != "model overloaded" {
		t.Errorf("unexpected error frame: %+v", frame)
	}
}

func TestReaderCRLFLines(t *testing.T) {
	stream := "data: {\"type\":\"init\",\"requestId\":\"r\"}\r\n\r\n"

	r := NewReader(strings.NewReader(stream))
	frame, err := r.Next()
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	if frame.Type != FrameInit {
		t.Errorf("unexpected frame: %+v", frame)
	}
}

func TestReaderMalformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"broken json", `data: {"type":"partial",`},
		{"unknown type", `data: {"type":"bogus"}`},
		{"missing type", `data: {"questions":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(strings.NewReader(tt.line + "\n"))
			_, err := r.Next()
			if !errors.Is(err, ErrMalformedFrame) {
				t.Errorf("expected ErrMalformedFrame, got %v", err)
			}
		})
	}
}

func TestReaderEmptyStream(t *testing.T) {
	r := NewReader(strings.NewReader(""))
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("expected EOF, got %v", err)
	}
}
