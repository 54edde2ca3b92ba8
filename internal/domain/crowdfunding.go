package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/patentx-lab/backend/internal/client"
	"github.com/patentx-lab/backend/internal/domain/notification/event"
	"github.com/patentx-lab/backend/internal/entity"
	"github.com/patentx-lab/backend/internal/model"
	"github.com/patentx-lab/backend/internal/repository"
	"github.com/patentx-lab/backend/pkg/errorx"
	"github.com/patentx-lab/backend/pkg/pubsub"
	"github.com/patentx-lab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

// Payment provider takes a 2.5% + 0.30 fee per movement. A refund pays that
// fee twice, once for the original charge and once for the payout.
const (
	paymentFeeRate = 0.025
	paymentFeeFlat = 0.3
)

// How often a contribution retries its guarded staker update before the
// campaign is declared too contended.
const contributeMaxRetries = 5

// ComputeRefund returns how much of a contribution comes back after the
// payment provider took its fees on both legs. Never negative.
func ComputeRefund(total float64) float64 {
	refund := total - 2*(paymentFeeRate*total+paymentFeeFlat)
	if refund < 0 {
		return 0
	}
	return refund
}

type CrowdfundingDomain interface {
	CreateCampaign(context.Context, *model.CreateCampaignRequest) (*model.CreateCampaignResponse, error)
	Contribute(context.Context, *model.ContributeRequest) (*model.ContributeResponse, error)
	GetCampaign(context.Context, *model.GetCampaignRequest) (*model.GetCampaignResponse, error)
}

type crowdfundingDomain struct {
	publisher          pubsub.Publisher
	notificationCaller client.NotificationEngineCaller

	crowdfundingRepo repository.CrowdfundingRepository
	applicationRepo  repository.ApplicationRepository
}

func NewCrowdfundingDomain(
	publisher pubsub.Publisher,
	notificationCaller client.NotificationEngineCaller,
	crowdfundingRepo repository.CrowdfundingRepository,
	applicationRepo repository.ApplicationRepository,
) *crowdfundingDomain {
	return &crowdfundingDomain{
		publisher:          publisher,
		notificationCaller: notificationCaller,
		crowdfundingRepo:   crowdfundingRepo,
		applicationRepo:    applicationRepo,
	}
}

func (d *crowdfundingDomain) CreateCampaign(
	ctx context.Context, req *model.CreateCampaignRequest,
) (*model.CreateCampaignResponse, error) {
	if req.MinimumStakeAmount <= 0 || req.StakingThreshold <= 0 {
		return nil, errorx.New(errorx.BadRequest, "Amounts must be positive")
	}

	timePeriod := time.Unix(req.TimePeriod, 0)
	if timePeriod.Before(time.Now()) {
		return nil, errorx.New(errorx.BadRequest, "Time period must be in the future")
	}

	application, err := d.applicationRepo.GetByID(ctx, req.ApplicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found application")
		}

		xcontext.Logger(ctx).Errorf("Cannot get application: %v", err)
		return nil, errorx.Unknown
	}

	existing, err := d.crowdfundingRepo.GetByApplicationID(ctx, req.ApplicationID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot get campaign: %v", err)
		return nil, errorx.Unknown
	}

	if existing != nil && existing.Status == entity.CampaignStatusInProgress {
		return nil, errorx.New(errorx.AlreadyExists,
			"A campaign is already running for this application")
	}

	campaign := &entity.CrowdfundingCampaign{
		Base:               entity.Base{ID: uuid.NewString()},
		ApplicationID:      application.ID,
		ManufacturerID:     req.ManufacturerID,
		MinimumStakeAmount: req.MinimumStakeAmount,
		StakingThreshold:   req.StakingThreshold,
		Stakers:            entity.Array[entity.Staker]{},
		Status:             entity.CampaignStatusInProgress,
		TimePeriod:         timePeriod,
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := d.crowdfundingRepo.Create(ctx, campaign); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create campaign: %v", err)
		return nil, errorx.Unknown
	}

	err = d.applicationRepo.UpdateStakingStatus(ctx, application.ID, entity.StakingStatusInProgress)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot update staking status: %v", err)
		return nil, errorx.Unknown
	}

	xcontext.WithCommitDBTransaction(ctx)

	return &model.CreateCampaignResponse{CampaignID: campaign.ID}, nil
}

func (d *crowdfundingDomain) Contribute(
	ctx context.Context, req *model.ContributeRequest,
) (*model.ContributeResponse, error) {
	userID := xcontext.RequestUserID(ctx)

	if req.NumberOfStake <= 0 {
		return nil, errorx.New(errorx.BadRequest, "Number of stakes must be positive")
	}

	if req.PaymentIntent == "" {
		return nil, errorx.New(errorx.BadRequest, "Missing payment intent")
	}

	// Two contributions can race on the same staker list. The staked amount
	// only grows while the campaign runs, so a guarded update keyed on the
	// amount last read keeps both writes without locking the row. The loop
	// runs outside any transaction, a re-read inside one would only see the
	// snapshot the conflict came from.
	var (
		campaign     *entity.CrowdfundingCampaign
		stakers      entity.Array[entity.Staker]
		amountStaked float64
	)
	applied := false
	for attempt := 0; attempt < contributeMaxRetries && !applied; attempt++ {
		var err error
		campaign, err = d.crowdfundingRepo.GetByID(ctx, req.CampaignID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errorx.New(errorx.NotFound, "Not found campaign")
			}

			xcontext.Logger(ctx).Errorf("Cannot get campaign: %v", err)
			return nil, errorx.Unknown
		}

		if campaign.Status != entity.CampaignStatusInProgress {
			return nil, errorx.New(errorx.CampaignClosed, "This campaign is no longer accepting stakes")
		}

		if campaign.TimePeriod.Before(time.Now()) {
			return nil, errorx.New(errorx.CampaignClosed, "The staking period is over")
		}

		stakers = campaign.Stakers
		found := false
		for i := range stakers {
			if stakers[i].ID == userID {
				stakers[i].NumberOfStake += req.NumberOfStake
				stakers[i].PaymentIntent = req.PaymentIntent
				found = true
				break
			}
		}

		if !found {
			stakers = append(stakers, entity.Staker{
				ID:            userID,
				NumberOfStake: req.NumberOfStake,
				PaymentIntent: req.PaymentIntent,
				PaymentStatus: entity.PaymentStatusSucceeded,
			})
		}

		amountStaked = campaign.AmountStaked + campaign.MinimumStakeAmount*float64(req.NumberOfStake)

		applied, err = d.crowdfundingRepo.CompareAndSwapStakers(
			ctx, campaign.ID, stakers, campaign.AmountStaked, amountStaked)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot update stakers: %v", err)
			return nil, errorx.Unknown
		}
	}

	if !applied {
		xcontext.Logger(ctx).Errorf("Campaign %s is too contended", req.CampaignID)
		return nil, errorx.Unknown
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	// Only the contribution that carried the campaign over its threshold
	// wins this update, so fulfillment side effects run exactly once.
	fulfilled, err := d.crowdfundingRepo.CheckAndFulfill(ctx, campaign.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot check campaign fulfillment: %v", err)
		return nil, errorx.Unknown
	}

	if fulfilled {
		err := d.applicationRepo.UpdateStakingStatus(
			ctx, campaign.ApplicationID, entity.StakingStatusCompleted)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot update staking status: %v", err)
			return nil, errorx.Unknown
		}
	}

	xcontext.WithCommitDBTransaction(ctx)

	status := string(entity.CampaignStatusInProgress)
	if fulfilled {
		status = string(entity.CampaignStatusFulfilled)

		if err := d.publishRewardJob(ctx, campaign, stakers, amountStaked); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot publish reward job: %v", err)
		}

		err = d.notificationCaller.Emit(ctx, event.New(
			event.CampaignFulfilledEvent{
				CampaignID:    campaign.ID,
				ApplicationID: campaign.ApplicationID,
				AmountStaked:  amountStaked,
			},
			event.Metadata{To: campaign.ManufacturerID},
		))
		if err != nil {
			xcontext.Logger(ctx).Warnf("Cannot emit campaign fulfilled event: %v", err)
		}
	}

	return &model.ContributeResponse{AmountStaked: amountStaked, Status: status}, nil
}

func (d *crowdfundingDomain) publishRewardJob(
	ctx context.Context,
	campaign *entity.CrowdfundingCampaign,
	stakers []entity.Staker,
	amountStaked float64,
) error {
	rewardStakers := make([]model.RewardStaker, 0, len(stakers))
	for _, staker := range stakers {
		rewardStakers = append(rewardStakers, model.RewardStaker{
			ID:            staker.ID,
			NumberOfStake: staker.NumberOfStake,
		})
	}

	job, err := json.Marshal(model.RewardJob{
		Type:               model.RewardJobTypeDistribute,
		CampaignID:         campaign.ID,
		ApplicationID:      campaign.ApplicationID,
		MinimumStakeAmount: campaign.MinimumStakeAmount,
		AmountStaked:       amountStaked,
		Stakers:            rewardStakers,
	})
	if err != nil {
		return err
	}

	return d.publisher.Publish(ctx, xcontext.Configs(ctx).Crowdfunding.RewardTopic, &pubsub.Pack{
		Key: []byte(campaign.ID),
		Msg: job,
	})
}

func (d *crowdfundingDomain) GetCampaign(
	ctx context.Context, req *model.GetCampaignRequest,
) (*model.GetCampaignResponse, error) {
	campaign, err := d.crowdfundingRepo.GetByID(ctx, req.CampaignID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found campaign")
		}

		xcontext.Logger(ctx).Errorf("Cannot get campaign: %v", err)
		return nil, errorx.Unknown
	}

	resp := &model.GetCampaignResponse{
		ApplicationID:      campaign.ApplicationID,
		MinimumStakeAmount: campaign.MinimumStakeAmount,
		StakingThreshold:   campaign.StakingThreshold,
		AmountStaked:       campaign.AmountStaked,
		Status:             string(campaign.Status),
		TimePeriod:         campaign.TimePeriod.Format(time.RFC3339),
	}

	for _, staker := range campaign.Stakers {
		resp.Stakers = append(resp.Stakers, model.Staker{
			ID:            staker.ID,
			NumberOfStake: staker.NumberOfStake,
			PaymentStatus: string(staker.PaymentStatus),
		})
	}

	return resp, nil
}
