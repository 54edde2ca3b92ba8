package cron

import (
	"context"
	"time"

	"github.com/patentx-lab/backend/internal/client"
	"github.com/patentx-lab/backend/internal/common"
	"github.com/patentx-lab/backend/internal/domain"
	"github.com/patentx-lab/backend/internal/domain/notification/event"
	"github.com/patentx-lab/backend/internal/entity"
	"github.com/patentx-lab/backend/internal/repository"
	"github.com/patentx-lab/backend/pkg/dateutil"
	"github.com/patentx-lab/backend/pkg/xcontext"
)

// CampaignSweepCronJob expires crowdfunding campaigns whose staking period
// ended below threshold and refunds their stakers. Refunds are idempotent:
// a staker already marked refunded is never paid again, so a crashed sweep
// can safely rerun.
type CampaignSweepCronJob struct {
	paymentCaller      client.PaymentCaller
	notificationCaller client.NotificationEngineCaller

	crowdfundingRepo repository.CrowdfundingRepository
	applicationRepo  repository.ApplicationRepository
}

func NewCampaignSweepCronJob(
	paymentCaller client.PaymentCaller,
	notificationCaller client.NotificationEngineCaller,
	crowdfundingRepo repository.CrowdfundingRepository,
	applicationRepo repository.ApplicationRepository,
) *CampaignSweepCronJob {
	return &CampaignSweepCronJob{
		paymentCaller:      paymentCaller,
		notificationCaller: notificationCaller,
		crowdfundingRepo:   crowdfundingRepo,
		applicationRepo:    applicationRepo,
	}
}

func (job *CampaignSweepCronJob) Do(ctx context.Context) {
	campaigns, err := job.crowdfundingRepo.GetExpiredInProgress(ctx, time.Now())
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get expired campaigns: %v", err)
		return
	}

	for _, campaign := range campaigns {
		// Exactly one sweep instance wins this transition.
		expired, err := job.crowdfundingRepo.CheckAndExpire(ctx, campaign.ID)
		if err != nil {
			xcontext.Logger(ctx).Warnf("Cannot expire campaign %s: %v", campaign.ID, err)
			continue
		}

		if !expired {
			continue
		}

		err = job.applicationRepo.UpdateStakingStatus(
			ctx, campaign.ApplicationID, entity.StakingStatusExpired)
		if err != nil {
			xcontext.Logger(ctx).Warnf("Cannot update staking status of application %s: %v",
				campaign.ApplicationID, err)
		}

		job.notifyExpired(ctx, &campaign)
		job.refund(ctx, &campaign)
	}
}

// notifyExpired tells everyone with money or a patent in the campaign that
// it fell short: the application owner, the manufacturer, and every staker.
func (job *CampaignSweepCronJob) notifyExpired(ctx context.Context, campaign *entity.CrowdfundingCampaign) {
	recipients := []string{campaign.ManufacturerID}

	application, err := job.applicationRepo.GetByID(ctx, campaign.ApplicationID)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot get application %s: %v", campaign.ApplicationID, err)
	} else {
		recipients = append(recipients, application.OwnerID)
	}

	for _, staker := range campaign.Stakers {
		recipients = append(recipients, staker.ID)
	}

	for _, recipient := range recipients {
		err := job.notificationCaller.Emit(ctx, event.New(
			event.CampaignExpiredEvent{
				CampaignID:    campaign.ID,
				ApplicationID: campaign.ApplicationID,
			},
			event.Metadata{To: recipient},
		))
		if err != nil {
			xcontext.Logger(ctx).Warnf("Cannot emit campaign expired event: %v", err)
		}
	}
}

func (job *CampaignSweepCronJob) refund(ctx context.Context, campaign *entity.CrowdfundingCampaign) {
	stakers := campaign.Stakers
	for i := range stakers {
		if stakers[i].PaymentStatus == entity.PaymentStatusRefunded {
			continue
		}

		total := campaign.MinimumStakeAmount * float64(stakers[i].NumberOfStake)
		amount := domain.ComputeRefund(total)

		if err := job.paymentCaller.Refund(ctx, stakers[i].PaymentIntent, amount); err != nil {
			common.PromCounters[common.CrowdfundingRefundTotal].WithLabelValues("failure").Inc()
			xcontext.Logger(ctx).Errorf("Cannot refund staker %s of campaign %s: %v",
				stakers[i].ID, campaign.ID, err)
			continue
		}

		common.PromCounters[common.CrowdfundingRefundTotal].WithLabelValues("success").Inc()
		stakers[i].PaymentStatus = entity.PaymentStatusRefunded

		// Persist after every refund, so a crash mid-sweep never repays the
		// stakers already refunded.
		err := job.crowdfundingRepo.UpdateStakers(ctx, campaign.ID, stakers, campaign.AmountStaked)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot update stakers of campaign %s: %v", campaign.ID, err)
		}

		err = job.notificationCaller.Emit(ctx, event.New(
			event.ContributionRefundedEvent{CampaignID: campaign.ID, Amount: amount},
			event.Metadata{To: stakers[i].ID},
		))
		if err != nil {
			xcontext.Logger(ctx).Warnf("Cannot emit refund event: %v", err)
		}
	}
}

func (job *CampaignSweepCronJob) RunNow() bool {
	return true
}

func (job *CampaignSweepCronJob) Next() time.Time {
	return dateutil.NextHour(time.Now())
}
