package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/markoblogo/abvx-shortener/internal/domain"
	"github.com/markoblogo/abvx-shortener/internal/metrics"
	"github.com/markoblogo/abvx-shortener/pkg/logger"
)

// maxBodyBytes caps the size of a shorten request body
const maxBodyBytes = 64 << 10

// reservedPrefixes never resolve as slugs
var reservedPrefixes = []string{"api", "health"}

// LinkService interface defines the service methods needed by the handler
type LinkService interface {
	Shorten(ctx context.Context, rawURL string) (*domain.Link, error)
	Resolve(ctx context.Context, slug string) (*domain.Link, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	linkService LinkService
	logger      *logger.Logger
	baseURL     string // Public prefix for short links, without trailing slash
}

// NewHandler creates a new HTTP handler
func NewHandler(linkService LinkService, logger *logger.Logger, baseURL string) *Handler {
	return &Handler{
		linkService: linkService,
		logger:      logger,
		baseURL:     strings.TrimRight(baseURL, "/"),
	}
}

// ShortenRequest is the body of POST /api/shorten.
// URL is decoded loosely so that a non-string value is reported as missing.
type ShortenRequest struct {
	URL any `json:"url"`
}

// ShortenResponse is returned on a successful shorten
type ShortenResponse struct {
	Slug     string `json:"slug"`
	ShortURL string `json:"shortUrl"`
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	OK bool `json:"ok"`
}

// Shorten handles POST /api/shorten once auth and rate limiting have passed
func (h *Handler) Shorten(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	var req ShortenRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	// The body must hold exactly one JSON value
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	rawURL, ok := req.URL.(string)
	if !ok || strings.TrimSpace(rawURL) == "" {
		respondError(w, http.StatusBadRequest, "Missing 'url'")
		return
	}

	link, err := h.linkService.Shorten(r.Context(), rawURL)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.logger.WithContext(r.Context()).Info("link shortened",
		"slug", link.Slug,
		"escalated", link.Escalated,
	)

	respondJSON(w, http.StatusOK, ShortenResponse{
		Slug:     link.Slug,
		ShortURL: h.baseURL + "/" + link.Slug,
	})
}

// Redirect handles GET/HEAD /{slug}
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimPrefix(r.URL.Path, "/")
	if slug == "" || isReserved(slug) {
		respondError(w, http.StatusNotFound, errNotFound)
		return
	}

	link, err := h.linkService.Resolve(r.Context(), slug)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	metrics.RecordRedirect()
	http.Redirect(w, r, link.URL, http.StatusFound)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{OK: true})
}

// NotFound answers every request the router does not recognise
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, errNotFound)
}

// MethodNotAllowed answers a wrong verb on the shorten endpoint
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", http.MethodPost)
	respondError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
}

// writeServiceError maps domain errors to HTTP responses
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidURL):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrLinkNotFound):
		respondError(w, http.StatusNotFound, errNotFound)
	case errors.Is(err, domain.ErrSlugCollision):
		respondError(w, http.StatusConflict, errSlugCollision)
	default:
		h.logger.WithContext(r.Context()).Error("request failed",
			"path", r.URL.Path,
			"error", err,
		)
		respondError(w, http.StatusInternalServerError, errInternal)
	}
}

func isReserved(slug string) bool {
	for _, prefix := range reservedPrefixes {
		if strings.HasPrefix(slug, prefix) {
			return true
		}
	}
	return false
}
