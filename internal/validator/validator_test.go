package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

type bindTarget struct {
	CandidateID string `json:"candidate_id" binding:"required"`
	Attempts    int    `json:"attempts"`
}

func bindBody(t *testing.T, body string) map[string]string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	Setup()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var dst bindTarget
	return Bind(c, &dst)
}

func TestBindValid(t *testing.T) {
	if fields := bindBody(t, `{"candidate_id":"cand-1"}`); fields != nil {
		t.Fatalf("unexpected field errors: %v", fields)
	}
}

func TestBindFieldErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantKey string
	}{
		{"missing required field", `{}`, "candidate_id"},
		{"type mismatch names the field", `{"candidate_id":"c","attempts":"three"}`, "attempts"},
		{"syntax error", `{"candidate_id": nope}`, "detail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := bindBody(t, tt.body)
			if fields == nil {
				t.Fatal("expected field errors, got none")
			}
			if _, ok := fields[tt.wantKey]; !ok {
				t.Fatalf("missing key %q in %v", tt.wantKey, fields)
			}
		})
	}
}

func TestBindSyntaxErrorMessageIsGeneric(t *testing.T) {
	fields := bindBody(t, `{"candidate_id": nope}`)
	if fields["detail"] != "request body is not valid JSON" {
		t.Fatalf("detail = %q", fields["detail"])
	}
}
