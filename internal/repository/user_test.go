package repository

import (
	"context"
	"strings"
	"testing"

	"truowners/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOwnerUser(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	users := NewUserRepository(pool)
	owners := NewOwnerRepository(pool)

	u := &models.User{Name: "Owner", Email: "owner@example.com", PasswordHash: "x", Role: models.RoleOwner}
	o := &models.Owner{Name: "Owner", Email: "owner@example.com", IDProofType: models.DetailPending}
	require.NoError(t, users.CreateOwnerUser(ctx, u, o))
	require.NotNil(t, o.UserID)
	assert.Equal(t, u.ID, *o.UserID)

	stored, err := owners.GetOwnerByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, stored.ID)

	dup := &models.User{Name: "Owner", Email: "owner@example.com", PasswordHash: "x", Role: models.RoleOwner}
	err = users.CreateOwnerUser(ctx, dup, &models.Owner{Name: "Owner"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateOwnerUser_RollsBackUser(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	users := NewUserRepository(pool)

	u := &models.User{Name: "Owner", Email: "owner@example.com", PasswordHash: "x", Role: models.RoleOwner}
	// имя длиннее колонки owners.name: вставка профиля падает
	o := &models.Owner{Name: strings.Repeat("a", 300)}
	require.Error(t, users.CreateOwnerUser(ctx, u, o))

	taken, err := users.IsEmailTaken(ctx, "owner@example.com")
	require.NoError(t, err)
	assert.False(t, taken, "пользователь без профиля не сохраняется")

	u = &models.User{Name: "Owner", Email: "owner@example.com", PasswordHash: "x", Role: models.RoleOwner}
	require.NoError(t, users.CreateOwnerUser(ctx, u, &models.Owner{Name: "Owner"}))
}
