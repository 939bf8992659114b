// Package instagram looks up public post metadata anonymously through
// Instagram's web GraphQL endpoint.
package instagram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/iconidentify/instagrab/internal/config"
	"github.com/iconidentify/instagrab/internal/domain"
)

// maxResponseBytes bounds how much of a GraphQL response is read.
const maxResponseBytes = 8 << 20

// Client fetches post metadata from Instagram.
type Client struct {
	httpClient *http.Client
	cfg        config.InstagramConfig
}

// NewClient creates a new Instagram client.
func NewClient(cfg config.InstagramConfig) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cfg: cfg,
	}
}

// LookupPost retrieves the metadata of a public post by shortcode.
// Exactly one request is made; failures are not retried.
func (c *Client) LookupPost(ctx context.Context, shortcode domain.Shortcode) (*domain.PostMetadata, error) {
	req, err := c.newRequest(ctx, shortcode)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, domain.ErrRateLimited
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrPostNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, errors.Errorf("API error (status %d): %s", resp.StatusCode, truncate(string(body), 200))
	}

	return parsePostResponse(body)
}

func (c *Client) newRequest(ctx context.Context, shortcode domain.Shortcode) (*http.Request, error) {
	variables, err := json.Marshal(map[string]any{
		"shortcode":               shortcode.String(),
		"fetch_tagged_user_count": nil,
		"hoisted_comment_id":      nil,
		"hoisted_reply_id":        nil,
	})
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("variables", string(variables))
	form.Set("doc_id", c.cfg.DocID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.GraphQLURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("X-IG-App-ID", c.cfg.AppID)
	req.Header.Set("X-ASBD-ID", "129477")
	req.Header.Set("Origin", "https://www.instagram.com")
	req.Header.Set("Referer", "https://www.instagram.com/p/"+shortcode.String()+"/")
	return req, nil
}

// parsePostResponse extracts post metadata from a GraphQL response body.
// Both the current (xdt_shortcode_media) and legacy (shortcode_media) shapes are accepted.
func parsePostResponse(body []byte) (*domain.PostMetadata, error) {
	if !gjson.ValidBytes(body) {
		// Login walls and checkpoints come back as HTML with a 200
		return nil, errors.Errorf("unexpected non-JSON response: %s", truncate(string(body), 120))
	}

	root := gjson.ParseBytes(body)
	if msg := root.Get("message"); msg.Exists() && root.Get("status").String() == "fail" {
		if strings.Contains(strings.ToLower(msg.String()), "wait") {
			return nil, errors.Wrap(domain.ErrRateLimited, msg.String())
		}
		return nil, errors.Errorf("API error: %s", msg.String())
	}

	media := root.Get("data.xdt_shortcode_media")
	if !media.Exists() || media.Type == gjson.Null {
		media = root.Get("data.shortcode_media")
	}
	if !media.Exists() || media.Type == gjson.Null {
		return nil, domain.ErrPostNotFound
	}

	post := &domain.PostMetadata{
		Typename:   media.Get("__typename").String(),
		IsVideo:    media.Get("is_video").Bool(),
		DisplayURL: media.Get("display_url").String(),
		VideoURL:   media.Get("video_url").String(),
	}

	media.Get("edge_sidecar_to_children.edges").ForEach(func(_, edge gjson.Result) bool {
		node := edge.Get("node")
		post.Children = append(post.Children, domain.SidecarNode{
			IsVideo:    node.Get("is_video").Bool(),
			DisplayURL: node.Get("display_url").String(),
			VideoURL:   node.Get("video_url").String(),
		})
		return true
	})

	return post, nil
}

// truncate shortens s to at most max bytes without splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
