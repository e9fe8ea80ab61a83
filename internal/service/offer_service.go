package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/techne-institute/cohort-portal-api/internal/models"
	appErrors "github.com/techne-institute/cohort-portal-api/pkg/errors"
)

const (
	offerCacheSlugPrefix = "offers:slug:"
	offerCacheActiveKey  = "offers:active"
)

type offerRepository interface {
	FindBySlug(ctx context.Context, slug string) (*models.Offer, error)
	ListActive(ctx context.Context) ([]models.Offer, error)
}

// offerCacheEntry keeps the provider price id, which Offer hides from JSON.
type offerCacheEntry struct {
	Offer    models.Offer `json:"offer"`
	PriceRef *string      `json:"price_ref,omitempty"`
}

// OfferService serves cohort lookups with a short-lived cache in front of Postgres.
type OfferService struct {
	repo   offerRepository
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewOfferService constructs the service. cache may be nil.
func NewOfferService(repo offerRepository, cache *CacheService, ttl time.Duration, logger *zap.Logger) *OfferService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OfferService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// GetBySlug resolves a cohort by slug.
func (s *OfferService) GetBySlug(ctx context.Context, slug string) (*models.Offer, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, appErrors.ErrOfferNotFound
	}

	key := offerCacheSlugPrefix + slug
	var cached offerCacheEntry
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		offer := cached.Offer
		offer.StripePriceID = cached.PriceRef
		return &offer, nil
	}

	offer, err := s.load(ctx, slug)
	if err != nil {
		return nil, err
	}

	_ = s.cache.Set(ctx, key, offerCacheEntry{Offer: *offer, PriceRef: offer.StripePriceID}, s.ttl)
	return offer, nil
}

// GetForCheckout reads the cohort from Postgres, bypassing the cache, so
// enrollment gating always sees the current active and open flags.
func (s *OfferService) GetForCheckout(ctx context.Context, slug string) (*models.Offer, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, appErrors.ErrOfferNotFound
	}
	return s.load(ctx, slug)
}

func (s *OfferService) load(ctx context.Context, slug string) (*models.Offer, error) {
	offer, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrOfferNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort")
	}
	return offer, nil
}

// ListActive returns the cohorts shown on the programs page.
func (s *OfferService) ListActive(ctx context.Context) ([]models.Offer, error) {
	var cached []models.Offer
	if hit, _ := s.cache.Get(ctx, offerCacheActiveKey, &cached); hit {
		return cached, nil
	}

	offers, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cohorts")
	}
	if offers == nil {
		offers = []models.Offer{}
	}
	_ = s.cache.Set(ctx, offerCacheActiveKey, offers, s.ttl)
	return offers, nil
}
