package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Constraint names from pkg/database/schema.sql.
const (
	constraintEnrollmentEvent     = "enrollments_payment_event_unique"
	constraintEnrollmentUserOffer = "enrollments_user_offer_unique"
	constraintUserEmail           = "users_email_unique"
)

const pqUniqueViolation = "23505"

var (
	// ErrDuplicateEvent means an enrollment for the payment event already exists.
	ErrDuplicateEvent = errors.New("enrollment for payment event already exists")
	// ErrDuplicateEnrollment means the user is already enrolled in the offer.
	ErrDuplicateEnrollment = errors.New("user already enrolled in offer")
	// ErrDuplicateEmail means a user with the email already exists.
	ErrDuplicateEmail = errors.New("user email already exists")
)

// uniqueViolation returns the violated constraint name when err is a
// PostgreSQL unique violation.
func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}
