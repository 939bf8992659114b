package downloader

import (
	"context"

	"github.com/iconidentify/instagrab/internal/domain"
)

// Fetcher relays media bytes from Instagram's CDN.
type Fetcher interface {
	// Fetch performs one disguised GET of url. A non-nil error is always a *domain.FetchError.
	Fetch(ctx context.Context, url string) (*domain.MediaPayload, error)
}
