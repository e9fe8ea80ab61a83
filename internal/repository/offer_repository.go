package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/techne-institute/cohort-portal-api/internal/models"
)

const offerColumns = `id, slug, name, description, price_cents, currency, stripe_price_id, enrollment_open, is_active, starts_at, ends_at, created_at, updated_at`

// OfferRepository reads enrollment offers.
type OfferRepository struct {
	db *sqlx.DB
}

// NewOfferRepository constructs the repository.
func NewOfferRepository(db *sqlx.DB) *OfferRepository {
	return &OfferRepository{db: db}
}

// FindBySlug returns an offer by its public slug.
func (r *OfferRepository) FindBySlug(ctx context.Context, slug string) (*models.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE slug = $1 LIMIT 1`
	var offer models.Offer
	if err := r.db.GetContext(ctx, &offer, query, slug); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find offer by slug: %w", err)
	}
	return &offer, nil
}

// FindByID returns an offer by identifier.
func (r *OfferRepository) FindByID(ctx context.Context, id string) (*models.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE id = $1 LIMIT 1`
	var offer models.Offer
	if err := r.db.GetContext(ctx, &offer, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find offer by id: %w", err)
	}
	return &offer, nil
}

// ListActive returns active offers ordered by start date, undated last.
func (r *OfferRepository) ListActive(ctx context.Context) ([]models.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE is_active = TRUE ORDER BY starts_at ASC NULLS LAST, name ASC`
	var offers []models.Offer
	if err := r.db.SelectContext(ctx, &offers, query); err != nil {
		return nil, fmt.Errorf("list active offers: %w", err)
	}
	return offers, nil
}
