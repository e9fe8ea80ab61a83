package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/techne-institute/cohort-portal-api/internal/models"
	"github.com/techne-institute/cohort-portal-api/internal/repository"
	appErrors "github.com/techne-institute/cohort-portal-api/pkg/errors"
)

type accountUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// AccountService resolves payer emails to portal users, creating them on first purchase.
type AccountService struct {
	users  accountUserRepository
	logger *zap.Logger
}

// NewAccountService constructs the service.
func NewAccountService(users accountUserRepository, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{users: users, logger: logger}
}

// Provision returns the id of the user owning email. New users are created
// as confirmed students. Lookups are keyed on the exact (trimmed) address.
func (s *AccountService) Provision(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", appErrors.Clone(appErrors.ErrProvisioningFailed, "email is required")
	}

	id, err := s.lookup(ctx, email)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}

	user := &models.User{
		Email:          email,
		Role:           models.RoleStudent,
		EmailConfirmed: true,
		Active:         true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if !errors.Is(err, repository.ErrDuplicateEmail) {
			return "", appErrors.Wrap(err, appErrors.ErrProvisioningFailed.Code, appErrors.ErrProvisioningFailed.Status, appErrors.ErrProvisioningFailed.Message)
		}
		// Another delivery created the user between lookup and insert.
		id, err = s.lookup(ctx, email)
		if err != nil {
			return "", err
		}
		if id == "" {
			return "", appErrors.Clone(appErrors.ErrProvisioningFailed, "user vanished after duplicate insert")
		}
		return id, nil
	}

	s.logger.Info("provisioned user", zap.String("user_id", user.ID), zap.String("email", email))
	return user.ID, nil
}

func (s *AccountService) lookup(ctx context.Context, email string) (string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", appErrors.Wrap(err, appErrors.ErrProvisioningFailed.Code, appErrors.ErrProvisioningFailed.Status, appErrors.ErrProvisioningFailed.Message)
	}
	return user.ID, nil
}
