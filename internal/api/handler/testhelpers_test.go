package handler

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/iconidentify/instagrab/internal/domain"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeResolver is a test implementation of PostResolver.
type fakeResolver struct {
	mu     sync.Mutex
	result *domain.ResolutionResult
	err    error
	calls  []string
}

func (f *fakeResolver) Resolve(ctx context.Context, postURL string) (*domain.ResolutionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, postURL)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// fakeFetcher is a test implementation of downloader.Fetcher.
type fakeFetcher struct {
	mu      sync.Mutex
	payload *domain.MediaPayload
	err     error
	urls    []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*domain.MediaPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func sampleResult() *domain.ResolutionResult {
	return &domain.ResolutionResult{
		Shortcode: "ABC123",
		Items: []domain.MediaItem{
			{SourceURL: "https://cdn.example/1.mp4", IsVideo: true},
			{SourceURL: "https://cdn.example/2.jpg", IsVideo: false},
		},
	}
}
