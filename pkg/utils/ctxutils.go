// pkg/utils/ctxutils.go

package utils

import (
	"context"

	"github.com/google/uuid"

	"field-dispatch/internal/entities"
	"field-dispatch/pkg/contextkeys"
	apperrors "field-dispatch/pkg/errors"
)

// Actor is the authenticated caller of a request.
type Actor struct {
	UserID uuid.UUID
	Role   entities.Role
}

func (a Actor) IsAdmin() bool { return a.Role == entities.RoleAdmin }

func GetUserIDFromCtx(ctx context.Context) (uuid.UUID, error) {
	userID, ok := ctx.Value(contextkeys.UserIDKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, apperrors.ErrUserIDNotFoundInContext
	}
	return userID, nil
}

func GetRoleFromCtx(ctx context.Context) (entities.Role, error) {
	role, ok := ctx.Value(contextkeys.RoleKey).(entities.Role)
	if !ok || !role.IsValid() {
		return "", apperrors.ErrUnauthorized
	}
	return role, nil
}

func GetActorFromCtx(ctx context.Context) (Actor, error) {
	userID, err := GetUserIDFromCtx(ctx)
	if err != nil {
		return Actor{}, err
	}
	role, err := GetRoleFromCtx(ctx)
	if err != nil {
		return Actor{}, err
	}
	return Actor{UserID: userID, Role: role}, nil
}

func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	ctx = context.WithValue(ctx, contextkeys.UserIDKey, actor.UserID)
	return context.WithValue(ctx, contextkeys.RoleKey, actor.Role)
}
