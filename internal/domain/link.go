package domain

import "errors"

// Link is a stored slug -> URL mapping as seen by the service layer.
// The key-value store only keeps Slug and URL; Escalated tells the caller
// that the primary slug was taken by another URL and the longer one was used.
type Link struct {
	Slug      string // The short identifier (6 or 10 characters)
	URL       string // The normalized URL to redirect to
	Escalated bool   // True when the 10-character slug was issued
}

// Domain errors - the HTTP layer maps these to status codes with errors.Is
var (
	ErrInvalidURL    = errors.New("invalid URL")
	ErrLinkNotFound  = errors.New("link not found")
	ErrSlugCollision = errors.New("slug collision")
)

// NewLink creates a link for a slug and its normalized URL
func NewLink(slug, url string) *Link {
	return &Link{
		Slug: slug,
		URL:  url,
	}
}

// WithEscalation marks the link as stored under the escalated slug
func (l *Link) WithEscalation() *Link {
	l.Escalated = true
	return l
}
