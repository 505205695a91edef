package seeders

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"field-dispatch/internal/entities"
	"field-dispatch/internal/repositories"
	"field-dispatch/pkg/config"
	apperrors "field-dispatch/pkg/errors"
	"field-dispatch/pkg/utils"
)

type memoryUsers struct {
	repositories.UserRepositoryInterface
	byEmail map[string]*entities.User
}

func (m *memoryUsers) FindByEmail(ctx context.Context, email string) (*entities.User, error) {
	if u, ok := m.byEmail[strings.ToLower(email)]; ok {
		return u, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *memoryUsers) Create(ctx context.Context, user *entities.User) error {
	m.byEmail[user.Email] = user
	return nil
}

func TestEnsureCreatesMissingAccountsOnce(t *testing.T) {
	users := &memoryUsers{byEmail: make(map[string]*entities.User)}
	seeder := New(users, zap.NewNop())
	ctx := context.Background()

	admin := AdminAccount(config.SeedConfig{AdminName: "Root", AdminEmail: " Admin@Example.com ", AdminPassword: "changeme"})
	accounts := append([]Account{admin}, DemoTechnicians("technician")...)

	created, err := seeder.Ensure(ctx, accounts...)
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	stored := users.byEmail["admin@example.com"]
	require.NotNil(t, stored)
	assert.Equal(t, entities.RoleAdmin, stored.Role)
	assert.NotEqual(t, uuid.Nil, stored.ID)
	assert.NoError(t, utils.ComparePasswords(stored.PasswordHash, "changeme"))

	wendy := users.byEmail["wendy.route@example.com"]
	require.NotNil(t, wendy)
	assert.True(t, wendy.HasDispatchChannel())

	created, err = seeder.Ensure(ctx, accounts...)
	require.NoError(t, err)
	assert.Zero(t, created, "existing accounts are skipped")
}

func TestEnsureRequiresPassword(t *testing.T) {
	seeder := New(&memoryUsers{byEmail: make(map[string]*entities.User)}, zap.NewNop())

	_, err := seeder.Ensure(context.Background(), AdminAccount(config.SeedConfig{AdminEmail: "admin@example.com"}))
	assert.True(t, apperrors.IsValidation(err))
}
