// Package resolver turns a post URL into the ordered list of its media URLs.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/iconidentify/instagrab/internal/domain"
)

//go:generate mockgen -destination=mocks/mock_lookup.go -package=mocks . PostLookup

// PostLookup retrieves post metadata from Instagram.
type PostLookup interface {
	LookupPost(ctx context.Context, shortcode domain.Shortcode) (*domain.PostMetadata, error)
}

// postPathPattern matches /p/<shortcode> and /reel/<shortcode> with an optional trailing slash.
var postPathPattern = regexp.MustCompile(`/(p|reel)/([A-Za-z0-9_-]+)/?`)

// ParsePostURL extracts the post reference from a post or reel URL.
func ParsePostURL(rawURL string) (domain.PostReference, error) {
	matches := postPathPattern.FindStringSubmatch(rawURL)
	if len(matches) < 3 {
		return domain.PostReference{}, domain.ErrInvalidPostURL
	}
	return domain.PostReference{
		Kind:      domain.PostKind(matches[1]),
		Shortcode: domain.Shortcode(matches[2]),
	}, nil
}

// Resolver resolves post URLs to media URLs. It holds no per-request state.
type Resolver struct {
	lookup PostLookup
	logger *slog.Logger
}

// New creates a new Resolver.
func New(lookup PostLookup, logger *slog.Logger) *Resolver {
	return &Resolver{
		lookup: lookup,
		logger: logger,
	}
}

// Resolve parses postURL, looks the post up once and returns its media in display order.
// Errors match domain.ErrInvalidPostURL (no network attempted) or domain.ErrUpstreamLookup.
// The lookup ignores ctx cancellation and is bounded by the client timeout.
func (r *Resolver) Resolve(ctx context.Context, postURL string) (*domain.ResolutionResult, error) {
	ref, err := ParsePostURL(postURL)
	if err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)

	post, err := r.lookup.LookupPost(ctx, ref.Shortcode)
	if err != nil {
		return nil, domain.NewLookupError(ref.Shortcode, err)
	}
	if post == nil {
		return nil, domain.NewLookupError(ref.Shortcode, domain.ErrPostNotFound)
	}

	items, err := ExtractMedia(post)
	if err != nil {
		return nil, domain.NewLookupError(ref.Shortcode, err)
	}

	r.logger.Info("resolved post",
		"shortcode", ref.Shortcode,
		"kind", ref.Kind,
		"typename", post.Typename,
		"media_count", len(items),
	)

	return &domain.ResolutionResult{
		Shortcode: ref.Shortcode,
		Items:     items,
	}, nil
}

// ExtractMedia applies the media selection policy to post metadata.
// Carousel children are taken in platform order; each video contributes its
// video URL, each image its display URL. The result is never empty on success.
func ExtractMedia(post *domain.PostMetadata) ([]domain.MediaItem, error) {
	var items []domain.MediaItem

	if post.IsSidecar() {
		items = make([]domain.MediaItem, 0, len(post.Children))
		for i, node := range post.Children {
			item := pick(node.IsVideo, node.VideoURL, node.DisplayURL)
			if item.SourceURL == "" {
				return nil, fmt.Errorf("%w: sidecar node %d has no url", domain.ErrNoMedia, i)
			}
			items = append(items, item)
		}
	} else {
		item := pick(post.IsVideo, post.VideoURL, post.DisplayURL)
		if item.SourceURL == "" {
			return nil, fmt.Errorf("%w: post has no url", domain.ErrNoMedia)
		}
		items = []domain.MediaItem{item}
	}

	if len(items) == 0 {
		return nil, domain.ErrNoMedia
	}
	return items, nil
}

func pick(isVideo bool, videoURL, displayURL string) domain.MediaItem {
	if isVideo {
		return domain.MediaItem{SourceURL: videoURL, IsVideo: true}
	}
	return domain.MediaItem{SourceURL: displayURL}
}
