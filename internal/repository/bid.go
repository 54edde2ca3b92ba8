package repository

import (
	"context"

	"github.com/patentx-lab/backend/internal/entity"
	"github.com/patentx-lab/backend/pkg/xcontext"
	"gorm.io/gorm/clause"
)

type BidRepository interface {
	// Upsert keeps at most one row per (tokenID, userID). A repeat bid from
	// the same user replaces its previous row.
	Upsert(ctx context.Context, bid *entity.Bid) error

	Get(ctx context.Context, tokenID int64, userID string) (*entity.Bid, error)
	GetByTokenID(ctx context.Context, tokenID int64) ([]entity.Bid, error)

	// GetHighest returns the bid with the maximum matic price; ties break
	// toward the earliest update.
	GetHighest(ctx context.Context, tokenID int64) (*entity.Bid, error)

	DeleteByTokenID(ctx context.Context, tokenID int64) error
}

type bidRepository struct{}

func NewBidRepository() *bidRepository {
	return &bidRepository{}
}

func (r *bidRepository) Upsert(ctx context.Context, bid *entity.Bid) error {
	return xcontext.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "token_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"matic_price", "usd_price", "updated_at",
		}),
	}).Create(bid).Error
}

func (r *bidRepository) Get(ctx context.Context, tokenID int64, userID string) (*entity.Bid, error) {
	var result entity.Bid
	err := xcontext.DB(ctx).Take(&result, "token_id = ? AND user_id = ?", tokenID, userID).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *bidRepository) GetByTokenID(ctx context.Context, tokenID int64) ([]entity.Bid, error) {
	var result []entity.Bid
	err := xcontext.DB(ctx).Where("token_id = ?", tokenID).
		Order("matic_price DESC, updated_at ASC").Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *bidRepository) GetHighest(ctx context.Context, tokenID int64) (*entity.Bid, error) {
	var result entity.Bid
	err := xcontext.DB(ctx).Where("token_id = ?", tokenID).
		Order("matic_price DESC, updated_at ASC").Take(&result).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *bidRepository) DeleteByTokenID(ctx context.Context, tokenID int64) error {
	return xcontext.DB(ctx).Where("token_id = ?", tokenID).Delete(&entity.Bid{}).Error
}
