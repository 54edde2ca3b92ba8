package repository

import (
	"testing"

	"github.com/google/uuid"
	"github.com/patentx-lab/backend/internal/entity"
	"github.com/stretchr/testify/require"
)

func Test_userRepository_DebitCredits(t *testing.T) {
	ctx := newTestContext(t)
	repo := NewUserRepository(nil)

	user := &entity.User{
		Base:    entity.Base{ID: uuid.NewString()},
		Name:    "alice",
		Credits: 3,
	}
	require.NoError(t, repo.Create(ctx, user))

	require.NoError(t, repo.DebitCredits(ctx, user.ID, 2))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), got.Credits)

	// The balance never goes negative.
	require.ErrorIs(t, repo.DebitCredits(ctx, user.ID, 2), ErrInsufficientCredits)

	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), got.Credits)

	require.NoError(t, repo.AddCredits(ctx, user.ID, 5))

	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(6), got.Credits)
}
