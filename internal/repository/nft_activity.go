package repository

import (
	"context"

	"github.com/patentx-lab/backend/internal/entity"
	"github.com/patentx-lab/backend/pkg/xcontext"
)

type NftActivityRepository interface {
	Create(ctx context.Context, activity *entity.NftActivity) error
	GetByNftID(ctx context.Context, nftID string) ([]entity.NftActivity, error)
	CountByEvent(ctx context.Context, nftID string, event entity.NftActivityEvent) (int64, error)
}

type nftActivityRepository struct{}

func NewNftActivityRepository() *nftActivityRepository {
	return &nftActivityRepository{}
}

func (r *nftActivityRepository) Create(ctx context.Context, activity *entity.NftActivity) error {
	return xcontext.DB(ctx).Create(activity).Error
}

func (r *nftActivityRepository) GetByNftID(ctx context.Context, nftID string) ([]entity.NftActivity, error) {
	var result []entity.NftActivity
	err := xcontext.DB(ctx).Where("nft_id = ?", nftID).
		Order("created_at ASC").Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *nftActivityRepository) CountByEvent(
	ctx context.Context, nftID string, event entity.NftActivityEvent,
) (int64, error) {
	var count int64
	err := xcontext.DB(ctx).Model(&entity.NftActivity{}).
		Where("nft_id = ? AND event = ?", nftID, event).
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}
