package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/iconidentify/instagrab/internal/domain"
)

const maxResolveBodyBytes = 1 << 20

// PostResolver resolves a post URL to its media.
type PostResolver interface {
	Resolve(ctx context.Context, postURL string) (*domain.ResolutionResult, error)
}

// ResolveHandler handles post resolution requests from the frontend.
type ResolveHandler struct {
	resolver     PostResolver
	strictStatus bool
	logger       *slog.Logger
}

// NewResolveHandler creates a new resolve handler. With strictStatus, failures are
// answered with 400 or 502 instead of a 200 carrying success=false.
func NewResolveHandler(resolver PostResolver, strictStatus bool, logger *slog.Logger) *ResolveHandler {
	return &ResolveHandler{
		resolver:     resolver,
		strictStatus: strictStatus,
		logger:       logger,
	}
}

// ResolveRequest is the JSON request body for post resolution.
type ResolveRequest struct {
	URL *string `json:"url"`
}

// ResolveResponse is the JSON envelope for both outcomes.
type ResolveResponse struct {
	Success   bool               `json:"success"`
	Shortcode string             `json:"shortcode,omitempty"`
	Media     []string           `json:"media,omitempty"`
	Items     []domain.MediaItem `json:"items,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// Resolve handles POST /download
func (h *ResolveHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxResolveBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == nil {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	result, err := h.resolver.Resolve(r.Context(), *req.URL)
	if err != nil {
		h.writeFailure(w, *req.URL, err)
		return
	}

	writeJSON(w, http.StatusOK, ResolveResponse{
		Success:   true,
		Shortcode: result.Shortcode.String(),
		Media:     result.URLs(),
		Items:     result.Items,
	})
}

func (h *ResolveHandler) writeFailure(w http.ResponseWriter, postURL string, err error) {
	status := http.StatusOK
	switch {
	case errors.Is(err, domain.ErrInvalidPostURL):
		h.logger.Info("rejected post url", "url", postURL)
		if h.strictStatus {
			status = http.StatusBadRequest
		}
	default:
		h.logger.Warn("resolve failed", "url", postURL, "error", err)
		if h.strictStatus {
			status = http.StatusBadGateway
		}
	}

	writeJSON(w, status, ResolveResponse{
		Success: false,
		Error:   err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
