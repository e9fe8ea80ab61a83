package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/techne-institute/cohort-portal-api/internal/models"
	appErrors "github.com/techne-institute/cohort-portal-api/pkg/errors"
)

func TestOfferServiceCachesBySlug(t *testing.T) {
	offer := openOffer()
	offer.StripePriceID = strPtr("price_123")
	repo := &fakeOfferRepo{offers: map[string]*models.Offer{offer.Slug: offer}}
	cache := NewCacheService(&fakeCacheRepo{}, NewMetricsService(), time.Minute, zap.NewNop(), true)
	svc := NewOfferService(repo, cache, time.Minute, zap.NewNop())

	first, err := svc.GetBySlug(context.Background(), "spring-2026")
	require.NoError(t, err)
	second, err := svc.GetBySlug(context.Background(), "spring-2026")
	require.NoError(t, err)

	assert.Equal(t, 1, repo.slugCalls)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "price_123", second.ExternalPriceRef())
	assert.True(t, second.AcceptsEnrollments())
}

func TestOfferServiceNotFound(t *testing.T) {
	svc := NewOfferService(&fakeOfferRepo{offers: map[string]*models.Offer{}}, nil, 0, nil)

	_, err := svc.GetBySlug(context.Background(), "ghost")
	assert.True(t, appErrors.Is(err, appErrors.ErrOfferNotFound))
}

func TestOfferServiceRepositoryFailure(t *testing.T) {
	svc := NewOfferService(&fakeOfferRepo{err: errors.New("db down")}, nil, 0, nil)

	_, err := svc.GetBySlug(context.Background(), "spring-2026")
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
}

func TestOfferServiceListActive(t *testing.T) {
	hidden := openOffer()
	hidden.Slug = "old"
	hidden.IsActive = false
	repo := &fakeOfferRepo{offers: map[string]*models.Offer{"spring-2026": openOffer(), "old": hidden}}
	cache := NewCacheService(&fakeCacheRepo{}, nil, time.Minute, nil, true)
	svc := NewOfferService(repo, cache, time.Minute, nil)

	offers, err := svc.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, "spring-2026", offers[0].Slug)

	_, err = svc.ListActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)
}

func TestOfferServiceGetForCheckoutSkipsCache(t *testing.T) {
	repo := &fakeOfferRepo{offers: map[string]*models.Offer{"spring-2026": openOffer()}}
	cache := NewCacheService(&fakeCacheRepo{}, nil, time.Minute, nil, true)
	svc := NewOfferService(repo, cache, time.Minute, nil)

	_, err := svc.GetBySlug(context.Background(), "spring-2026")
	require.NoError(t, err)
	_, err = svc.GetForCheckout(context.Background(), "spring-2026")
	require.NoError(t, err)
	_, err = svc.GetForCheckout(context.Background(), "spring-2026")
	require.NoError(t, err)
	assert.Equal(t, 3, repo.slugCalls)

	_, err = svc.GetForCheckout(context.Background(), " ")
	assert.True(t, appErrors.Is(err, appErrors.ErrOfferNotFound))
}
