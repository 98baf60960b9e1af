package testutil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BTreeMap/MagicText/internal/models"
)

func TestRuneTokenizerRoundTrip(t *testing.T) {
	tok := RuneTokenizer{}
	for _, s := range []string{"", "hello", "Completion:\n\n", "日本語 ✨"} {
		if got := tok.Decode(tok.Encode(s)); got != s {
			t.Errorf("round trip of %q gave %q", s, got)
		}
	}
}

func TestScriptedEngineEchoesPrompt(t *testing.T) {
	eng := &ScriptedEngine{Completion: " world"}
	tokens, _ := eng.Encode("hello")
	out, err := eng.Generate(context.Background(), tokens, models.GenerationRequest{MaxLength: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text, _ := eng.Decode(out)
	if text != "hello world" {
		t.Errorf("expected 'hello world', got %q", text)
	}
	if eng.Calls() != 1 || eng.LastPrompt != "hello" || eng.LastRequest.MaxLength != 50 {
		t.Errorf("unexpected recorded call: %+v", eng)
	}
}

func TestScriptedEngineFailures(t *testing.T) {
	boom := errors.New("boom")
	if _, err := (&ScriptedEngine{EncodeErr: boom}).Encode("x"); !errors.Is(err, boom) {
		t.Errorf("expected encode error, got %v", err)
	}
	if _, err := (&ScriptedEngine{GenerateErr: boom}).Generate(context.Background(), []int{1}, models.GenerationRequest{}); !errors.Is(err, boom) {
		t.Errorf("expected generate error, got %v", err)
	}
	if _, err := (&ScriptedEngine{DecodeErr: boom}).Decode([]int{1}); !errors.Is(err, boom) {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestAssertJSONResponse(t *testing.T) {
	rr := httptest.NewRecorder()
	rr.WriteHeader(http.StatusOK)
	rr.Body.WriteString(`{"status":"ok","message":"fine"}`)

	resp := AssertJSONResponse(t, rr, "ok")
	if resp["message"] != "fine" {
		t.Errorf("expected message 'fine', got %v", resp["message"])
	}
}

func TestCreateHTTPRequest(t *testing.T) {
	req := CreateHTTPRequest(t, http.MethodPost, "/generate", map[string]string{"prompt": "hi"})
	if req.Method != http.MethodPost || req.URL.Path != "/generate" {
		t.Errorf("unexpected request %s %s", req.Method, req.URL.Path)
	}
	AssertHTTPStatus(t, http.StatusOK, http.StatusOK, "same status")
}
