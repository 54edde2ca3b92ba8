package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/patentx-lab/backend/internal/entity"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func Test_bidRepository_Upsert(t *testing.T) {
	ctx := newTestContext(t)
	repo := NewBidRepository()

	tokenID := int64(42)
	userID := uuid.NewString()

	require.NoError(t, repo.Upsert(ctx, &entity.Bid{
		Base:       entity.Base{ID: uuid.NewString()},
		TokenID:    tokenID,
		UserID:     userID,
		MaticPrice: 10,
		UsdPrice:   8,
	}))

	// A repeat bid from the same user replaces the row instead of adding
	// another one.
	require.NoError(t, repo.Upsert(ctx, &entity.Bid{
		Base:       entity.Base{ID: uuid.NewString()},
		TokenID:    tokenID,
		UserID:     userID,
		MaticPrice: 15,
		UsdPrice:   12,
	}))

	bids, err := repo.GetByTokenID(ctx, tokenID)
	require.NoError(t, err)
	require.Len(t, bids, 1)
	require.Equal(t, float64(15), bids[0].MaticPrice)
	require.Equal(t, float64(12), bids[0].UsdPrice)

	bid, err := repo.Get(ctx, tokenID, userID)
	require.NoError(t, err)
	require.Equal(t, float64(15), bid.MaticPrice)
}

func Test_bidRepository_GetHighest(t *testing.T) {
	ctx := newTestContext(t)
	repo := NewBidRepository()

	tokenID := int64(42)

	_, err := repo.GetHighest(ctx, tokenID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	first := uuid.NewString()
	second := uuid.NewString()
	third := uuid.NewString()

	require.NoError(t, repo.Upsert(ctx, &entity.Bid{
		Base: entity.Base{ID: uuid.NewString()}, TokenID: tokenID, UserID: first, MaticPrice: 20,
	}))

	time.Sleep(time.Millisecond)
	require.NoError(t, repo.Upsert(ctx, &entity.Bid{
		Base: entity.Base{ID: uuid.NewString()}, TokenID: tokenID, UserID: second, MaticPrice: 20,
	}))

	require.NoError(t, repo.Upsert(ctx, &entity.Bid{
		Base: entity.Base{ID: uuid.NewString()}, TokenID: tokenID, UserID: third, MaticPrice: 5,
	}))

	// Equal prices break toward the earliest bid.
	highest, err := repo.GetHighest(ctx, tokenID)
	require.NoError(t, err)
	require.Equal(t, first, highest.UserID)
	require.Equal(t, float64(20), highest.MaticPrice)

	require.NoError(t, repo.DeleteByTokenID(ctx, tokenID))

	bids, err := repo.GetByTokenID(ctx, tokenID)
	require.NoError(t, err)
	require.Empty(t, bids)
}
