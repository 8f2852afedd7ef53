package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestComponentTagsEveryLine(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	log := Component(base, "grader")
	log.Info().Msg("ready")
	log.Warn().Msg("slow")

	out := buf.String()
	if got := strings.Count(out, `"component":"grader"`); got != 2 {
		t.Fatalf("component field on %d lines, want 2: %s", got, out)
	}
}

func TestComponentDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	Component(base, "grader")
	base.Info().Msg("plain")

	if strings.Contains(buf.String(), "component") {
		t.Fatalf("parent logger picked up component field: %s", buf.String())
	}
}
