package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/patentx-lab/backend/internal/client"
	"github.com/patentx-lab/backend/internal/common"
	"github.com/patentx-lab/backend/internal/entity"
	"github.com/patentx-lab/backend/internal/model"
	"github.com/patentx-lab/backend/internal/repository"
	"github.com/patentx-lab/backend/pkg/ethutil"
	"github.com/patentx-lab/backend/pkg/numberutil"
	"github.com/patentx-lab/backend/pkg/pubsub"
	"github.com/patentx-lab/backend/pkg/xcontext"
	"github.com/puzpuzpuz/xsync"
)

// RewardWorker pays out reward coins for fulfilled campaigns. Each staker
// receives coins matching their staked amount, sent to their derived wallet.
type RewardWorker struct {
	chainCaller client.ChainCaller

	rewardIterationRepo repository.RewardIterationRepository
	userRepo            repository.UserRepository

	inflight *xsync.MapOf[string, bool]
}

func NewRewardWorker(
	chainCaller client.ChainCaller,
	rewardIterationRepo repository.RewardIterationRepository,
	userRepo repository.UserRepository,
) *RewardWorker {
	return &RewardWorker{
		chainCaller:         chainCaller,
		rewardIterationRepo: rewardIterationRepo,
		userRepo:            userRepo,
		inflight:            xsync.NewMapOf[bool](),
	}
}

func (w *RewardWorker) Subscribe(ctx context.Context, pack *pubsub.Pack, t time.Time) {
	var job model.RewardJob
	if err := json.Unmarshal(pack.Msg, &job); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot unmarshal reward job: %v", err)
		return
	}

	if job.Type != model.RewardJobTypeDistribute {
		xcontext.Logger(ctx).Warnf("Unknown reward job type %s", job.Type)
		return
	}

	if _, loaded := w.inflight.LoadOrStore(job.CampaignID, true); loaded {
		xcontext.Logger(ctx).Warnf("Rewards of campaign %s are already in flight", job.CampaignID)
		return
	}
	defer w.inflight.Delete(job.CampaignID)

	// A redelivered job must not pay anyone twice.
	paid, err := w.rewardIterationRepo.GetByCampaignID(ctx, job.CampaignID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get reward iterations of campaign %s: %v",
			job.CampaignID, err)
		return
	}

	alreadyPaid := map[string]bool{}
	for _, iteration := range paid {
		alreadyPaid[iteration.StakerID] = true
	}

	secret := []byte(xcontext.Configs(ctx).Blockchain.SecretKey)
	for _, staker := range job.Stakers {
		if alreadyPaid[staker.ID] {
			continue
		}

		amount := job.MinimumStakeAmount * float64(staker.NumberOfStake)

		wallet, err := ethutil.GeneratePublicKey(secret, []byte(staker.ID))
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot derive wallet of staker %s: %v", staker.ID, err)
			continue
		}

		txHash, err := w.chainCaller.TransferRewardCoins(ctx, wallet, numberutil.EtherToWei(amount))
		if err != nil {
			common.PromCounters[common.BlockchainTransactionFailure].
				WithLabelValues("reward_transfer").Inc()
			xcontext.Logger(ctx).Errorf("Cannot transfer reward coins to staker %s: %v",
				staker.ID, err)
			continue
		}

		if err := w.rewardIterationRepo.Create(ctx, &entity.RewardIteration{
			Base:          entity.Base{ID: uuid.NewString()},
			CampaignID:    job.CampaignID,
			ApplicationID: job.ApplicationID,
			StakerID:      staker.ID,
			Amount:        amount,
			TxHash:        txHash,
		}); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot record reward iteration: %v", err)
		}
	}
}
