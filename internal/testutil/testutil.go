// Package testutil provides common test utilities and helpers for MagicText tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/BTreeMap/MagicText/internal/models"
)

// RuneTokenizer maps every rune to its code point. Decode(Encode(s)) == s,
// which makes it a stand-in for a byte-pair encoding in tests.
type RuneTokenizer struct{}

// Encode implements engine.Tokenizer.
func (RuneTokenizer) Encode(text string) []int {
	runes := []rune(text)
	tokens := make([]int, len(runes))
	for i, r := range runes {
		tokens[i] = int(r)
	}
	return tokens
}

// Decode implements engine.Tokenizer.
func (RuneTokenizer) Decode(tokens []int) string {
	runes := make([]rune, len(tokens))
	for i, t := range tokens {
		runes[i] = rune(t)
	}
	return string(runes)
}

// ScriptedEngine is an engine.Engine that appends a fixed completion to the
// prompt, or fails at a chosen stage. It records every call.
type ScriptedEngine struct {
	Completion  string
	EncodeErr   error
	GenerateErr error
	DecodeErr   error
	// Panic makes Generate panic with this value when non-nil.
	Panic any

	mu            sync.Mutex
	GenerateCalls int
	LastRequest   models.GenerationRequest
	LastPrompt    string
}

func (e *ScriptedEngine) Name() string { return "scripted" }

// Encode implements engine.Engine.
func (e *ScriptedEngine) Encode(text string) ([]int, error) {
	if e.EncodeErr != nil {
		return nil, e.EncodeErr
	}
	return RuneTokenizer{}.Encode(text), nil
}

// Generate implements engine.Engine.
func (e *ScriptedEngine) Generate(ctx context.Context, tokens []int, req models.GenerationRequest) ([]int, error) {
	e.mu.Lock()
	e.GenerateCalls++
	e.LastRequest = req
	e.LastPrompt = RuneTokenizer{}.Decode(tokens)
	e.mu.Unlock()

	if e.Panic != nil {
		panic(e.Panic)
	}
	if e.GenerateErr != nil {
		return nil, e.GenerateErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := append([]int{}, tokens...)
	return append(out, RuneTokenizer{}.Encode(e.Completion)...), nil
}

// Decode implements engine.Engine.
func (e *ScriptedEngine) Decode(tokens []int) (string, error) {
	if e.DecodeErr != nil {
		return "", e.DecodeErr
	}
	return RuneTokenizer{}.Decode(tokens), nil
}

// Calls returns the number of Generate calls so far.
func (e *ScriptedEngine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.GenerateCalls
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes JSON response and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = bytes.NewBuffer(MustMarshalJSON(t, body))
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	return req
}

// MustMarshalJSON marshals an object to JSON and fails test on error.
func MustMarshalJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}
