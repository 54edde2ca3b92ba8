package domain

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/patentx-lab/backend/internal/entity"
	"github.com/patentx-lab/backend/internal/model"
	"github.com/patentx-lab/backend/internal/repository"
	"github.com/patentx-lab/backend/pkg/numberutil"
	"github.com/patentx-lab/backend/pkg/pubsub"
	"github.com/patentx-lab/backend/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func Test_RewardWorker_DistributesOncePerStaker(t *testing.T) {
	ctx := testutil.NewMockContext()

	campaignID := uuid.NewString()
	applicationID := uuid.NewString()

	// The first staker was already paid by an earlier delivery of this job.
	rewardIterationRepo := repository.NewRewardIterationRepository()
	require.NoError(t, rewardIterationRepo.Create(ctx, &entity.RewardIteration{
		Base:          entity.Base{ID: uuid.NewString()},
		CampaignID:    campaignID,
		ApplicationID: applicationID,
		StakerID:      "staker-1",
		Amount:        200,
		TxHash:        "0xearlier",
	}))

	transfers := []*big.Int{}
	chainCaller := &testutil.MockChainCaller{
		TransferRewardCoinsFunc: func(ctx context.Context, to common.Address, amountWei *big.Int) (string, error) {
			transfers = append(transfers, amountWei)
			return "0xreward", nil
		},
	}

	worker := NewRewardWorker(
		chainCaller,
		rewardIterationRepo,
		repository.NewUserRepository(&testutil.MockRedisClient{}),
	)

	msg, err := json.Marshal(model.RewardJob{
		Type:               model.RewardJobTypeDistribute,
		CampaignID:         campaignID,
		ApplicationID:      applicationID,
		MinimumStakeAmount: 100,
		AmountStaked:       500,
		Stakers: []model.RewardStaker{
			{ID: "staker-1", NumberOfStake: 2},
			{ID: "staker-2", NumberOfStake: 3},
		},
	})
	require.NoError(t, err)

	worker.Subscribe(ctx, &pubsub.Pack{Key: []byte(campaignID), Msg: msg}, time.Now())

	// Only the second staker is paid, with coins matching their stake.
	require.Len(t, transfers, 1)
	require.Equal(t, numberutil.EtherToWei(300), transfers[0])

	iterations, err := rewardIterationRepo.GetByCampaignID(ctx, campaignID)
	require.NoError(t, err)
	require.Len(t, iterations, 2)

	// A redelivery pays nobody.
	worker.Subscribe(ctx, &pubsub.Pack{Key: []byte(campaignID), Msg: msg}, time.Now())
	require.Len(t, transfers, 1)
}

func Test_RewardWorker_IgnoresUnknownJobType(t *testing.T) {
	ctx := testutil.NewMockContext()

	transfers := 0
	chainCaller := &testutil.MockChainCaller{
		TransferRewardCoinsFunc: func(ctx context.Context, to common.Address, amountWei *big.Int) (string, error) {
			transfers++
			return "0xreward", nil
		},
	}

	worker := NewRewardWorker(
		chainCaller,
		repository.NewRewardIterationRepository(),
		repository.NewUserRepository(&testutil.MockRedisClient{}),
	)

	msg, err := json.Marshal(model.RewardJob{
		Type:       "unknown",
		CampaignID: uuid.NewString(),
		Stakers:    []model.RewardStaker{{ID: "staker-1", NumberOfStake: 1}},
	})
	require.NoError(t, err)

	worker.Subscribe(ctx, &pubsub.Pack{Msg: msg}, time.Now())
	require.Zero(t, transfers)
}
