package domain

// Shortcode is the opaque token that identifies a post on Instagram.
type Shortcode string

// String returns the string representation of the Shortcode.
func (s Shortcode) String() string {
	return string(s)
}

// PostKind is the path segment a post URL was addressed through.
type PostKind string

const (
	PostKindPhoto PostKind = "p"
	PostKindReel  PostKind = "reel"
)

// PostReference is a normalized identifier parsed from a post URL.
type PostReference struct {
	Shortcode Shortcode
	Kind      PostKind
}

// Typenames reported by the post-metadata API for carousel posts.
const (
	TypenameSidecar    = "GraphSidecar"
	TypenameXDTSidecar = "XDTGraphSidecar"
)

// PostMetadata is the subset of post metadata the resolver needs.
type PostMetadata struct {
	Typename   string
	IsVideo    bool
	DisplayURL string
	VideoURL   string
	Children   []SidecarNode
}

// SidecarNode is one child of a carousel post.
type SidecarNode struct {
	IsVideo    bool
	DisplayURL string
	VideoURL   string
}

// IsSidecar reports whether the post is a multi-item carousel.
func (m *PostMetadata) IsSidecar() bool {
	return m.Typename == TypenameSidecar || m.Typename == TypenameXDTSidecar
}

// MediaItem is one viewable asset belonging to a post.
type MediaItem struct {
	SourceURL string `json:"source_url"`
	IsVideo   bool   `json:"is_video"`
}

// ResolutionResult is the ordered list of media for a post, in display order.
type ResolutionResult struct {
	Shortcode Shortcode
	Items     []MediaItem
}

// URLs returns the source URLs in display order.
func (r *ResolutionResult) URLs() []string {
	urls := make([]string, 0, len(r.Items))
	for _, item := range r.Items {
		urls = append(urls, item.SourceURL)
	}
	return urls
}
