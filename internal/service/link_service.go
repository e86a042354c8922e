package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/markoblogo/abvx-shortener/internal/domain"
	"github.com/markoblogo/abvx-shortener/internal/metrics"
	"github.com/markoblogo/abvx-shortener/internal/repository"
	"github.com/markoblogo/abvx-shortener/internal/shortener"
)

// LinkService turns URLs into deterministic slugs and resolves slugs back.
// It sits between the HTTP handlers and the key-value store.
type LinkService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewLinkService creates a new link service
func NewLinkService(store repository.Store, logger *slog.Logger) *LinkService {
	return &LinkService{
		store:  store,
		logger: logger,
	}
}

// Shorten normalizes rawURL and returns its slug, writing a record if needed.
//
// The 6-character slug is tried first. If another URL already owns it, the
// 10-character slug from the same hash is used instead. If that one is also
// owned by a different URL, ErrSlugCollision is returned and nothing is written.
//
// Lookups and writes are separate store calls with no compare-and-swap.
func (s *LinkService) Shorten(ctx context.Context, rawURL string) (*domain.Link, error) {
	normalized, err := shortener.Normalize(rawURL)
	if err != nil {
		return nil, err
	}

	hash := shortener.Hash(normalized)

	primary := shortener.Slug(hash, shortener.PrimarySlugLength)
	claimed, err := s.claim(ctx, primary, normalized)
	if err != nil {
		return nil, err
	}
	if claimed {
		return domain.NewLink(primary, normalized), nil
	}

	// The primary slug belongs to a different URL
	escalated := shortener.Slug(hash, shortener.EscalatedSlugLength)
	metrics.RecordSlugEscalation()
	s.logger.Info("slug collision, escalating",
		"slug", primary,
		"escalated_slug", escalated,
	)

	claimed, err = s.claim(ctx, escalated, normalized)
	if err != nil {
		return nil, err
	}
	if !claimed {
		metrics.RecordSlugCollision()
		s.logger.Error("escalated slug already taken",
			"slug", escalated,
			"url", normalized,
		)
		return nil, fmt.Errorf("%w: %s", domain.ErrSlugCollision, escalated)
	}

	return domain.NewLink(escalated, normalized).WithEscalation(), nil
}

// claim reports whether slug now maps to url. An empty slot is written;
// a slot already holding url is left untouched; a slot holding anything
// else is reported as not claimed.
func (s *LinkService) claim(ctx context.Context, slug, url string) (bool, error) {
	existing, found, err := s.store.Get(ctx, slug)
	if err != nil {
		return false, fmt.Errorf("failed to look up slug %s: %w", slug, err)
	}

	if found {
		if existing == url {
			metrics.RecordLinkReused()
			return true, nil
		}
		return false, nil
	}

	if err := s.store.Put(ctx, slug, url, 0); err != nil {
		return false, fmt.Errorf("failed to store slug %s: %w", slug, err)
	}
	metrics.RecordLinkCreated()

	return true, nil
}

// Resolve returns the link stored under slug
func (s *LinkService) Resolve(ctx context.Context, slug string) (*domain.Link, error) {
	target, found, err := s.store.Get(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve slug %s: %w", slug, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", domain.ErrLinkNotFound, slug)
	}

	return domain.NewLink(slug, target), nil
}
