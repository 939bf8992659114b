package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iconidentify/instagrab/internal/config"
	"github.com/iconidentify/instagrab/internal/domain"
)

// MediaFetcher implements Fetcher with a single HTTP GET per call that is
// dressed up as a mobile browser visiting instagram.com.
type MediaFetcher struct {
	client *http.Client
	cfg    config.ProxyConfig
	logger *slog.Logger
}

// NewMediaFetcher creates a new media fetcher. The http.Client is shared across calls.
func NewMediaFetcher(cfg config.ProxyConfig, logger *slog.Logger) *MediaFetcher {
	return &MediaFetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		cfg:    cfg,
		logger: logger,
	}
}

// Fetch retrieves url and classifies the response. Classification order:
// timeout, transport error, non-2xx status, blocked content type, undersized body.
// The call is detached from ctx cancellation and bounded only by the configured timeout.
func (f *MediaFetcher) Fetch(ctx context.Context, url string) (*domain.MediaPayload, error) {
	fetchID := uuid.NewString()
	logger := f.logger.With("fetch_id", fetchID, "url", url)
	ctx = context.WithoutCancel(ctx)

	payload, err := f.fetch(ctx, url, logger)
	if err != nil {
		var fe *domain.FetchError
		if !errors.As(err, &fe) {
			fe = domain.NewFetchError(domain.FailureUnknown, err.Error(), err)
		}
		logger.Warn("media fetch failed", "kind", fe.Kind, "error", fe.Message)
		return nil, fe
	}

	logger.Debug("media fetched",
		"content_type", payload.ContentType,
		"bytes", payload.ByteLength(),
	)
	return payload, nil
}

func (f *MediaFetcher) fetch(ctx context.Context, url string, logger *slog.Logger) (*domain.MediaPayload, error) {
	if f.cfg.Delay > 0 {
		time.Sleep(f.cfg.Delay)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.NewFetchError(domain.FailureUnknown, fmt.Sprintf("create request: %v", err), err)
	}
	f.setHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.NewFetchError(domain.FailureNetwork,
			fmt.Sprintf("upstream returned status %d", resp.StatusCode), nil)
	}

	contentType := resp.Header.Get("Content-Type")
	logger.Debug("received content type", "content_type", contentType, "status", resp.StatusCode)
	if f.isBlockedType(contentType) {
		return nil, domain.NewFetchError(domain.FailureUpstreamBlocked,
			fmt.Sprintf("upstream served %q instead of media", contentType), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, classifyTransportError(err)
	}
	if int64(len(body)) > f.cfg.MaxBodyBytes {
		return nil, domain.NewFetchError(domain.FailureUnknown,
			fmt.Sprintf("response exceeds %d bytes", f.cfg.MaxBodyBytes), nil)
	}
	if len(body) < f.cfg.MinBodyBytes {
		return nil, domain.NewFetchError(domain.FailureTooSmall,
			fmt.Sprintf("response is %d bytes, below the %d byte minimum", len(body), f.cfg.MinBodyBytes), nil)
	}

	if contentType == "" {
		contentType = f.cfg.DefaultContentType
	}
	return &domain.MediaPayload{
		Body:        body,
		ContentType: contentType,
	}, nil
}

// setHeaders mimics Safari on iOS browsing instagram.com.
func (f *MediaFetcher) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Referer", f.cfg.Referer)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,video/*,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Language", f.cfg.AcceptLanguage)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Sec-Fetch-Dest", fetchDest(req.URL.Path))
	req.Header.Set("Sec-Fetch-Mode", "no-cors")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
}

var videoExtensions = []string{".mp4", ".m4v", ".mov", ".webm", ".m3u8"}

// fetchDest picks the Sec-Fetch-Dest a browser would send for the media at path.
func fetchDest(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	for _, v := range videoExtensions {
		if ext == v {
			return "video"
		}
	}
	return "image"
}

func (f *MediaFetcher) isBlockedType(contentType string) bool {
	ct := strings.ToLower(contentType)
	for _, blocked := range f.cfg.BlockedTypes {
		if blocked != "" && strings.Contains(ct, strings.ToLower(blocked)) {
			return true
		}
	}
	return false
}

func classifyTransportError(err error) *domain.FetchError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return domain.NewFetchError(domain.FailureTimeout, "request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return domain.NewFetchError(domain.FailureUnknown, "request canceled", err)
	}
	return domain.NewFetchError(domain.FailureNetwork, err.Error(), err)
}
