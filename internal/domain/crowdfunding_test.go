package domain

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/patentx-lab/backend/internal/entity"
	"github.com/patentx-lab/backend/internal/model"
	"github.com/patentx-lab/backend/internal/repository"
	"github.com/patentx-lab/backend/pkg/errorx"
	"github.com/patentx-lab/backend/pkg/pubsub"
	"github.com/patentx-lab/backend/pkg/testutil"
	"github.com/patentx-lab/backend/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

func Test_ComputeRefund(t *testing.T) {
	// 2.5% plus 0.30 on both the charge and the payout.
	require.InDelta(t, 949.4, ComputeRefund(1000), 1e-9)
	require.InDelta(t, 8.9, ComputeRefund(10), 1e-9)

	// Tiny contributions never produce a negative refund.
	require.Zero(t, ComputeRefund(0))
	require.Zero(t, ComputeRefund(0.5))
}

func Test_crowdfundingDomain_FullScenario(t *testing.T) {
	ctx := testutil.NewMockContext()

	manufacturerID := uuid.NewString()
	application := testutil.SampleApplication(ctx, nil)

	var published []*pubsub.Pack
	publisher := &testutil.MockPublisher{
		PublishFunc: func(ctx context.Context, topic string, pack *pubsub.Pack) error {
			require.Equal(t, "crowdfunding_reward", topic)
			published = append(published, pack)
			return nil
		},
	}

	notificationCaller := &testutil.MockNotificationEngineCaller{}
	crowdfundingDomain := NewCrowdfundingDomain(
		publisher,
		notificationCaller,
		repository.NewCrowdfundingRepository(),
		repository.NewApplicationRepository(),
	)

	createResp, err := crowdfundingDomain.CreateCampaign(ctx, &model.CreateCampaignRequest{
		ApplicationID:      application.ID,
		ManufacturerID:     manufacturerID,
		MinimumStakeAmount: 100,
		StakingThreshold:   500,
		TimePeriod:         time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, createResp.CampaignID)

	got, err := repository.NewApplicationRepository().GetByID(ctx, application.ID)
	require.NoError(t, err)
	require.Equal(t, entity.StakingStatusInProgress, got.StakingStatus)

	// One running campaign per application.
	_, err = crowdfundingDomain.CreateCampaign(ctx, &model.CreateCampaignRequest{
		ApplicationID:      application.ID,
		ManufacturerID:     manufacturerID,
		MinimumStakeAmount: 100,
		StakingThreshold:   500,
		TimePeriod:         time.Now().Add(time.Hour).Unix(),
	})
	requireErrorCode(t, err, errorx.AlreadyExists)

	firstStaker := testutil.NewMockContextWithUserID(ctx, uuid.NewString())
	secondStaker := testutil.NewMockContextWithUserID(ctx, uuid.NewString())

	_, err = crowdfundingDomain.Contribute(firstStaker, &model.ContributeRequest{
		CampaignID: createResp.CampaignID, NumberOfStake: 0, PaymentIntent: "pi_1",
	})
	requireErrorCode(t, err, errorx.BadRequest)

	_, err = crowdfundingDomain.Contribute(firstStaker, &model.ContributeRequest{
		CampaignID: createResp.CampaignID, NumberOfStake: 2,
	})
	requireErrorCode(t, err, errorx.BadRequest)

	contributeResp, err := crowdfundingDomain.Contribute(firstStaker, &model.ContributeRequest{
		CampaignID: createResp.CampaignID, NumberOfStake: 2, PaymentIntent: "pi_1",
	})
	require.NoError(t, err)
	require.Equal(t, float64(200), contributeResp.AmountStaked)
	require.Equal(t, "in_progress", contributeResp.Status)
	require.Empty(t, published)

	contributeResp, err = crowdfundingDomain.Contribute(secondStaker, &model.ContributeRequest{
		CampaignID: createResp.CampaignID, NumberOfStake: 2, PaymentIntent: "pi_2",
	})
	require.NoError(t, err)
	require.Equal(t, float64(400), contributeResp.AmountStaked)
	require.Equal(t, "in_progress", contributeResp.Status)

	// The first staker tops up and carries the campaign over its threshold.
	// The fulfillment side effects run exactly once, on this contribution.
	contributeResp, err = crowdfundingDomain.Contribute(firstStaker, &model.ContributeRequest{
		CampaignID: createResp.CampaignID, NumberOfStake: 1, PaymentIntent: "pi_3",
	})
	require.NoError(t, err)
	require.Equal(t, float64(500), contributeResp.AmountStaked)
	require.Equal(t, "fulfilled", contributeResp.Status)

	require.Len(t, published, 1)

	var job model.RewardJob
	require.NoError(t, json.Unmarshal(published[0].Msg, &job))
	require.Equal(t, model.RewardJobTypeDistribute, job.Type)
	require.Equal(t, createResp.CampaignID, job.CampaignID)
	require.Equal(t, application.ID, job.ApplicationID)
	require.Equal(t, float64(500), job.AmountStaked)
	require.Len(t, job.Stakers, 2)

	fulfilled := notificationCaller.Emitted[len(notificationCaller.Emitted)-1]
	require.Equal(t, "campaign_fulfilled", fulfilled.Op)
	require.Equal(t, manufacturerID, fulfilled.Metadata.To)

	got, err = repository.NewApplicationRepository().GetByID(ctx, application.ID)
	require.NoError(t, err)
	require.Equal(t, entity.StakingStatusCompleted, got.StakingStatus)

	// A fulfilled campaign does not take any more stakes.
	_, err = crowdfundingDomain.Contribute(secondStaker, &model.ContributeRequest{
		CampaignID: createResp.CampaignID, NumberOfStake: 1, PaymentIntent: "pi_4",
	})
	requireErrorCode(t, err, errorx.CampaignClosed)

	// Repeat contributions merged into one staker entry per user.
	campaignResp, err := crowdfundingDomain.GetCampaign(ctx, &model.GetCampaignRequest{
		CampaignID: createResp.CampaignID,
	})
	require.NoError(t, err)
	require.Equal(t, "fulfilled", campaignResp.Status)
	require.Len(t, campaignResp.Stakers, 2)

	stakesByID := map[string]int{}
	for _, staker := range campaignResp.Stakers {
		stakesByID[staker.ID] = staker.NumberOfStake
	}
	require.Equal(t, 3, stakesByID[xcontext.RequestUserID(firstStaker)])
	require.Equal(t, 2, stakesByID[xcontext.RequestUserID(secondStaker)])
}
