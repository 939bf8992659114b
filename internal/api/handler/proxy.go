package handler

import (
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/iconidentify/instagrab/internal/domain"
	"github.com/iconidentify/instagrab/internal/downloader"
)

// ProxyHandler relays media bytes fetched through a disguised request.
type ProxyHandler struct {
	fetcher     downloader.Fetcher
	cacheMaxAge time.Duration
	logger      *slog.Logger
}

// NewProxyHandler creates a new proxy handler.
func NewProxyHandler(fetcher downloader.Fetcher, cacheMaxAge time.Duration, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		fetcher:     fetcher,
		cacheMaxAge: cacheMaxAge,
		logger:      logger,
	}
}

// ProxyErrorResponse is the JSON body for a failed fetch.
type ProxyErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// Proxy handles GET /proxy-image?url=
func (h *ProxyHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	mediaURL := r.URL.Query().Get("url")
	if mediaURL == "" {
		writeError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}

	payload, err := h.fetcher.Fetch(r.Context(), mediaURL)
	if err != nil {
		var fe *domain.FetchError
		if !errors.As(err, &fe) {
			fe = domain.NewFetchError(domain.FailureUnknown, err.Error(), err)
		}
		writeJSON(w, FailureStatus(fe.Kind), ProxyErrorResponse{
			Error: fe.Message,
			Kind:  string(fe.Kind),
		})
		return
	}

	etag := mediaETag(payload.Body)

	header := w.Header()
	header.Set("Access-Control-Allow-Origin", "*")
	header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	header.Set("Access-Control-Allow-Headers", "*")
	header.Set("Cache-Control", "public, max-age="+strconv.Itoa(int(h.cacheMaxAge.Seconds())))
	header.Set("ETag", etag)

	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	header.Set("Content-Type", payload.ContentType)
	header.Set("Content-Length", strconv.Itoa(payload.ByteLength()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload.Body); err != nil {
		h.logger.Debug("client went away during proxy write", "error", err)
	}
}

// FailureStatus maps a fetch failure kind to the HTTP status returned to the caller.
func FailureStatus(kind domain.FailureKind) int {
	switch kind {
	case domain.FailureTimeout:
		return http.StatusRequestTimeout
	case domain.FailureUpstreamBlocked, domain.FailureTooSmall:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func mediaETag(body []byte) string {
	sum := blake2b.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

func etagMatches(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" {
		return false
	}
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}
