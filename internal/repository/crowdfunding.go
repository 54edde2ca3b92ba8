package repository

import (
	"context"
	"time"

	"github.com/patentx-lab/backend/internal/entity"
	"github.com/patentx-lab/backend/pkg/xcontext"
)

type CrowdfundingRepository interface {
	Create(ctx context.Context, campaign *entity.CrowdfundingCampaign) error
	GetByID(ctx context.Context, id string) (*entity.CrowdfundingCampaign, error)
	GetByApplicationID(ctx context.Context, applicationID string) (*entity.CrowdfundingCampaign, error)

	UpdateStakers(ctx context.Context, id string, stakers entity.Array[entity.Staker], amountStaked float64) error

	// CompareAndSwapStakers writes the staker list only if the staked amount
	// is still fromAmount and the campaign is still in progress. The staked
	// amount only grows while a campaign runs, so it doubles as a version.
	CompareAndSwapStakers(
		ctx context.Context, id string,
		stakers entity.Array[entity.Staker], fromAmount, toAmount float64,
	) (bool, error)

	// CheckAndFulfill moves an in_progress campaign whose staked amount
	// reached its threshold to fulfilled. At most one caller ever succeeds.
	CheckAndFulfill(ctx context.Context, id string) (bool, error)

	// CheckAndExpire moves an in_progress campaign to time_period_over.
	CheckAndExpire(ctx context.Context, id string) (bool, error)

	GetExpiredInProgress(ctx context.Context, now time.Time) ([]entity.CrowdfundingCampaign, error)
}

type crowdfundingRepository struct{}

func NewCrowdfundingRepository() *crowdfundingRepository {
	return &crowdfundingRepository{}
}

func (r *crowdfundingRepository) Create(ctx context.Context, campaign *entity.CrowdfundingCampaign) error {
	return xcontext.DB(ctx).Create(campaign).Error
}

func (r *crowdfundingRepository) GetByID(ctx context.Context, id string) (*entity.CrowdfundingCampaign, error) {
	var result entity.CrowdfundingCampaign
	if err := xcontext.DB(ctx).Take(&result, "id = ?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *crowdfundingRepository) GetByApplicationID(
	ctx context.Context, applicationID string,
) (*entity.CrowdfundingCampaign, error) {
	var result entity.CrowdfundingCampaign
	err := xcontext.DB(ctx).Take(&result, "application_id = ?", applicationID).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *crowdfundingRepository) UpdateStakers(
	ctx context.Context, id string, stakers entity.Array[entity.Staker], amountStaked float64,
) error {
	return xcontext.DB(ctx).Model(&entity.CrowdfundingCampaign{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"stakers":       stakers,
			"amount_staked": amountStaked,
		}).Error
}

func (r *crowdfundingRepository) CompareAndSwapStakers(
	ctx context.Context, id string,
	stakers entity.Array[entity.Staker], fromAmount, toAmount float64,
) (bool, error) {
	tx := xcontext.DB(ctx).Model(&entity.CrowdfundingCampaign{}).
		Where("id = ? AND status = ? AND amount_staked = ?",
			id, entity.CampaignStatusInProgress, fromAmount).
		Updates(map[string]any{
			"stakers":       stakers,
			"amount_staked": toAmount,
		})
	if tx.Error != nil {
		return false, tx.Error
	}

	return tx.RowsAffected > 0, nil
}

func (r *crowdfundingRepository) CheckAndFulfill(ctx context.Context, id string) (bool, error) {
	tx := xcontext.DB(ctx).Model(&entity.CrowdfundingCampaign{}).
		Where("id = ? AND status = ? AND amount_staked >= staking_threshold",
			id, entity.CampaignStatusInProgress).
		Update("status", entity.CampaignStatusFulfilled)
	if tx.Error != nil {
		return false, tx.Error
	}

	return tx.RowsAffected > 0, nil
}

func (r *crowdfundingRepository) CheckAndExpire(ctx context.Context, id string) (bool, error) {
	tx := xcontext.DB(ctx).Model(&entity.CrowdfundingCampaign{}).
		Where("id = ? AND status = ?", id, entity.CampaignStatusInProgress).
		Update("status", entity.CampaignStatusTimePeriodOver)
	if tx.Error != nil {
		return false, tx.Error
	}

	return tx.RowsAffected > 0, nil
}

func (r *crowdfundingRepository) GetExpiredInProgress(
	ctx context.Context, now time.Time,
) ([]entity.CrowdfundingCampaign, error) {
	var result []entity.CrowdfundingCampaign
	err := xcontext.DB(ctx).
		Where("status = ? AND time_period < ?", entity.CampaignStatusInProgress, now).
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}
