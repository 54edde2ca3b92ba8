package repository

import (
	"context"

	"github.com/patentx-lab/backend/internal/entity"
	"github.com/patentx-lab/backend/pkg/xcontext"
)

type RewardIterationRepository interface {
	Create(ctx context.Context, iteration *entity.RewardIteration) error
	GetByCampaignID(ctx context.Context, campaignID string) ([]entity.RewardIteration, error)
}

type rewardIterationRepository struct{}

func NewRewardIterationRepository() *rewardIterationRepository {
	return &rewardIterationRepository{}
}

func (r *rewardIterationRepository) Create(ctx context.Context, iteration *entity.RewardIteration) error {
	return xcontext.DB(ctx).Create(iteration).Error
}

func (r *rewardIterationRepository) GetByCampaignID(
	ctx context.Context, campaignID string,
) ([]entity.RewardIteration, error) {
	var result []entity.RewardIteration
	err := xcontext.DB(ctx).Where("campaign_id = ?", campaignID).Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}
