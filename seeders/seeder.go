package seeders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"field-dispatch/internal/entities"
	"field-dispatch/internal/repositories"
	apperrors "field-dispatch/pkg/errors"
	"field-dispatch/pkg/utils"
)

// Account is one user the seeder makes sure exists.
type Account struct {
	Name           string
	Email          string
	Password       string
	Role           entities.Role
	TelegramChatID *int64
	WhatsAppNumber *string
}

type Seeder struct {
	users  repositories.UserRepositoryInterface
	logger *zap.Logger
}

func New(users repositories.UserRepositoryInterface, logger *zap.Logger) *Seeder {
	return &Seeder{users: users, logger: logger}
}

// Ensure creates each account whose email is not registered yet and returns
// how many were created. Existing accounts are left untouched.
func (s *Seeder) Ensure(ctx context.Context, accounts ...Account) (int, error) {
	created := 0
	for _, acc := range accounts {
		email := strings.ToLower(strings.TrimSpace(acc.Email))
		if email == "" || acc.Password == "" {
			return created, apperrors.NewValidationError("email", "seed account %q needs an email and a password", acc.Name)
		}

		_, err := s.users.FindByEmail(ctx, email)
		if err == nil {
			s.logger.Info("seed: account exists, skipping", zap.String("email", email))
			continue
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return created, fmt.Errorf("look up %s: %w", email, err)
		}

		hash, err := utils.HashPassword(acc.Password)
		if err != nil {
			return created, err
		}
		user := &entities.User{
			ID:             uuid.New(),
			Name:           acc.Name,
			Email:          email,
			PasswordHash:   hash,
			Role:           acc.Role,
			TelegramChatID: acc.TelegramChatID,
			WhatsAppNumber: acc.WhatsAppNumber,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return created, fmt.Errorf("create %s: %w", email, err)
		}
		created++
		s.logger.Info("seed: account created", zap.String("email", email), zap.String("role", string(acc.Role)))
	}
	return created, nil
}
