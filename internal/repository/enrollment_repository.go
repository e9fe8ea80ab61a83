package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/techne-institute/cohort-portal-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByEventID returns the enrollment created by a payment event, or
// sql.ErrNoRows when the event has not been reconciled.
func (r *EnrollmentRepository) FindByEventID(ctx context.Context, eventID string) (*models.Enrollment, error) {
	const query = `SELECT id, user_id, offer_id, payment_event_id, checkout_session_id, created_at FROM enrollments WHERE payment_event_id = $1 LIMIT 1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, eventID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment by event: %w", err)
	}
	return &enrollment, nil
}

// Insert persists a new enrollment. Unique violations are reported as
// ErrDuplicateEvent or ErrDuplicateEnrollment.
func (r *EnrollmentRepository) Insert(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (id, user_id, offer_id, payment_event_id, checkout_session_id, created_at)
        VALUES (:id, :user_id, :offer_id, :payment_event_id, :checkout_session_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			switch constraint {
			case constraintEnrollmentEvent:
				return ErrDuplicateEvent
			case constraintEnrollmentUserOffer:
				return ErrDuplicateEnrollment
			}
		}
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

// List returns enrollments with user and offer context.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
JOIN users u ON u.id = e.user_id
JOIN offers o ON o.id = e.offer_id`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("e.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.OfferID != "" {
		conditions = append(conditions, fmt.Sprintf("e.offer_id = $%d", len(args)+1))
		args = append(args, filter.OfferID)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT e.id, e.user_id, e.offer_id, e.payment_event_id, e.checkout_session_id, e.created_at,
        u.email, u.full_name, o.slug AS offer_slug, o.name AS offer_name, o.starts_at, o.ends_at
        %s ORDER BY e.created_at DESC`, base+clause)
	if !filter.Unpaged {
		page, size := normalizePage(filter.Page, filter.PageSize)
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", size, (page-1)*size)
	}

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}
	if filter.Unpaged {
		return enrollments, len(enrollments), nil
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}
