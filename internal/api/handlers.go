package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/MagicText/internal/artifact"
	"github.com/BTreeMap/MagicText/internal/metrics"
	"github.com/BTreeMap/MagicText/internal/models"
	"github.com/BTreeMap/MagicText/internal/pipeline"
	"github.com/BTreeMap/MagicText/internal/store"
	"github.com/BTreeMap/MagicText/internal/style"
)

// FeedbackThanksMessage acknowledges a feedback submission.
const FeedbackThanksMessage = "Thanks for your feedback! It helps improve the magic."

// GenerateRequest is the body of POST /generate.
type GenerateRequest struct {
	Prompt      string   `json:"prompt"`
	Style       string   `json:"style,omitempty"`
	MaxLength   int      `json:"max_length,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
}

// GenerateResult is the result payload of POST /generate.
type GenerateResult struct {
	ID             string    `json:"id"`
	Text           string    `json:"text"`
	ComposedPrompt string    `json:"composed_prompt"`
	Artifact       string    `json:"artifact,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// allowMethod rejects requests whose method is not m.
func allowMethod(w http.ResponseWriter, r *http.Request, m, handler string) bool {
	if r.Method == m {
		return true
	}
	w.Header().Set("Allow", m)
	slog.Warn("Server."+handler+": method not allowed", "method", r.Method)
	w.WriteHeader(http.StatusMethodNotAllowed)
	return false
}

func (s *Server) generateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.generateHandler: processing generate request", "method", r.Method, "path", r.URL.Path)
	if !allowMethod(w, r, http.MethodPost, "generateHandler") {
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
		slog.Warn("Server.generateHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	res, err := s.gen.Generate(r.Context(), pipeline.Input{
		Prompt:      req.Prompt,
		Style:       models.ParseStyle(req.Style),
		MaxLength:   req.MaxLength,
		Temperature: req.Temperature,
		TopK:        req.TopK,
	})
	if err != nil {
		var engErr *models.EngineError
		switch {
		case errors.Is(err, models.ErrInvalidInput):
			writeJSONResponse(w, http.StatusBadRequest, models.Warning(models.BlankPromptWarning))
		case errors.As(err, &engErr):
			writeJSONResponse(w, http.StatusInternalServerError, models.Error(engErr.UserMessage()))
		default:
			slog.Error("Server.generateHandler: unexpected pipeline error", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Internal server error"))
		}
		return
	}

	out := GenerateResult{
		ID:             res.ID,
		Text:           res.NormalizedText,
		ComposedPrompt: res.ComposedPrompt,
		CreatedAt:      res.CreatedAt,
	}
	a, ok := artifact.FromResult(res, s.prefix)
	if !ok {
		writeJSONResponse(w, http.StatusOK, models.Empty(models.EmptyResultMessage, out))
		return
	}
	if err := s.store.SaveArtifact(a); err != nil {
		slog.Error("Server.generateHandler: failed to store artifact", "name", a.Name, "error", err)
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Generated, but the download is unavailable", out))
		return
	}
	out.Artifact = a.Name

	slog.Info("Server.generateHandler: generation served", "id", res.ID, "artifact", a.Name)
	writeJSONResponse(w, http.StatusOK, models.Success(out))
}

func (s *Server) latestArtifactHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet, "latestArtifactHandler") {
		return
	}
	a, err := s.store.LatestArtifact()
	if errors.Is(err, store.ErrNoArtifact) {
		writeJSONResponse(w, http.StatusNotFound, models.Error("No generated text available for download"))
		return
	}
	if err != nil {
		slog.Error("Server.latestArtifactHandler: failed to load artifact", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load artifact"))
		return
	}
	slog.Debug("Server.latestArtifactHandler: serving artifact", "name", a.Name)
	writeAttachment(w, a)
}

func (s *Server) stylesHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet, "stylesHandler") {
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(style.Catalog()))
}

func (s *Server) randomSuggestionHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet, "randomSuggestionHandler") {
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"prompt": style.RandomSuggestion()}))
}

func (s *Server) feedbackHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !allowMethod(w, r, http.MethodPost, "feedbackHandler") {
		return
	}
	var fb models.Feedback
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&fb); err != nil {
		slog.Warn("Server.feedbackHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := fb.Validate(); err != nil {
		slog.Warn("Server.feedbackHandler: validation failed", "rating", fb.Rating, "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	metrics.FeedbackTotal.WithLabelValues(string(fb.Rating)).Inc()
	slog.Info("Server.feedbackHandler: feedback received", "artifact", fb.Artifact, "rating", fb.Rating)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage(FeedbackThanksMessage, nil))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet, "healthHandler") {
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]bool{"engine_loaded": s.gen.EngineLoaded()}))
}
