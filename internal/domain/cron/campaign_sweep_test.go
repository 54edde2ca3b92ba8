package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/patentx-lab/backend/internal/domain"
	"github.com/patentx-lab/backend/internal/entity"
	"github.com/patentx-lab/backend/internal/repository"
	"github.com/patentx-lab/backend/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func Test_CampaignSweepCronJob_RefundsExpiredCampaign(t *testing.T) {
	ctx := testutil.NewMockContext()

	application := testutil.SampleApplication(ctx, nil)
	campaign := testutil.SampleCampaign(ctx, &entity.CrowdfundingCampaign{
		ApplicationID:      application.ID,
		MinimumStakeAmount: 100,
		StakingThreshold:   500,
		AmountStaked:       400,
		TimePeriod:         time.Now().Add(-time.Hour),
		Stakers: entity.Array[entity.Staker]{
			{ID: "staker-1", NumberOfStake: 2, PaymentIntent: "pi_1", PaymentStatus: entity.PaymentStatusSucceeded},
			{ID: "staker-2", NumberOfStake: 1, PaymentIntent: "pi_2", PaymentStatus: entity.PaymentStatusRefunded},
			{ID: "staker-3", NumberOfStake: 1, PaymentIntent: "pi_3", PaymentStatus: entity.PaymentStatusSucceeded},
		},
	})

	refunds := map[string]float64{}
	paymentCaller := &testutil.MockPaymentCaller{
		RefundFunc: func(ctx context.Context, paymentIntent string, amount float64) error {
			refunds[paymentIntent] = amount
			return nil
		},
	}

	notificationCaller := &testutil.MockNotificationEngineCaller{}
	job := NewCampaignSweepCronJob(
		paymentCaller,
		notificationCaller,
		repository.NewCrowdfundingRepository(),
		repository.NewApplicationRepository(),
	)

	job.Do(ctx)

	// The already refunded staker is never paid twice.
	require.Len(t, refunds, 2)
	require.InDelta(t, domain.ComputeRefund(200), refunds["pi_1"], 1e-9)
	require.InDelta(t, domain.ComputeRefund(100), refunds["pi_3"], 1e-9)

	got, err := repository.NewCrowdfundingRepository().GetByID(ctx, campaign.ID)
	require.NoError(t, err)
	require.Equal(t, entity.CampaignStatusTimePeriodOver, got.Status)
	for _, staker := range got.Stakers {
		require.Equal(t, entity.PaymentStatusRefunded, staker.PaymentStatus)
	}

	gotApplication, err := repository.NewApplicationRepository().GetByID(ctx, application.ID)
	require.NoError(t, err)
	require.Equal(t, entity.StakingStatusExpired, gotApplication.StakingStatus)

	// Everyone in the campaign hears it expired, plus one refund notice per
	// paid staker.
	expiredTo := map[string]bool{}
	refundNotices := 0
	for _, emitted := range notificationCaller.Emitted {
		switch emitted.Op {
		case "campaign_expired":
			expiredTo[emitted.Metadata.To] = true
		case "contribution_refunded":
			refundNotices++
		}
	}
	require.Len(t, notificationCaller.Emitted, 7)
	require.Equal(t, 2, refundNotices)
	require.Equal(t, map[string]bool{
		campaign.ManufacturerID: true,
		application.OwnerID:     true,
		"staker-1":              true,
		"staker-2":              true,
		"staker-3":              true,
	}, expiredTo)

	// A rerun finds nothing left to sweep.
	job.Do(ctx)
	require.Len(t, refunds, 2)
	require.Len(t, notificationCaller.Emitted, 7)
}

func Test_CampaignSweepCronJob_IgnoresRunningCampaigns(t *testing.T) {
	ctx := testutil.NewMockContext()

	application := testutil.SampleApplication(ctx, nil)
	testutil.SampleCampaign(ctx, &entity.CrowdfundingCampaign{
		ApplicationID: application.ID,
		TimePeriod:    time.Now().Add(time.Hour),
		Stakers: entity.Array[entity.Staker]{
			{ID: uuid.NewString(), NumberOfStake: 1, PaymentIntent: "pi_1", PaymentStatus: entity.PaymentStatusSucceeded},
		},
	})

	refunds := 0
	job := NewCampaignSweepCronJob(
		&testutil.MockPaymentCaller{
			RefundFunc: func(ctx context.Context, paymentIntent string, amount float64) error {
				refunds++
				return nil
			},
		},
		&testutil.MockNotificationEngineCaller{},
		repository.NewCrowdfundingRepository(),
		repository.NewApplicationRepository(),
	)

	job.Do(ctx)
	require.Zero(t, refunds)
}
