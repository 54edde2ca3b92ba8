package launchpad

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/patentx-lab/backend/internal/client"
	xcommon "github.com/patentx-lab/backend/internal/common"
	"github.com/patentx-lab/backend/internal/domain/notification/event"
	"github.com/patentx-lab/backend/internal/entity"
	"github.com/patentx-lab/backend/internal/model"
	"github.com/patentx-lab/backend/internal/repository"
	"github.com/patentx-lab/backend/pkg/errorx"
	"github.com/patentx-lab/backend/pkg/ethutil"
	"github.com/patentx-lab/backend/pkg/numberutil"
	"github.com/patentx-lab/backend/pkg/pubsub"
	"github.com/patentx-lab/backend/pkg/xcontext"
	"github.com/puzpuzpuz/xsync"
)

// LaunchWorker executes queued mints. The HTTP layer already moved the
// application to deploying, so every job here owns its application
// exclusively until it marks a terminal state.
type LaunchWorker struct {
	chainCaller        client.ChainCaller
	preflight          *PreflightValidator
	metadataBuilder    *MetadataBuilder
	notificationCaller client.NotificationEngineCaller

	applicationRepo repository.ApplicationRepository
	nftRepo         repository.NftRepository
	nftActivityRepo repository.NftActivityRepository
	userRepo        repository.UserRepository
	tagRepo         repository.TagRepository

	// inflight guards against a rebalance redelivering a job this instance
	// is still working on.
	inflight *xsync.MapOf[string, bool]
}

func NewLaunchWorker(
	chainCaller client.ChainCaller,
	preflight *PreflightValidator,
	metadataBuilder *MetadataBuilder,
	notificationCaller client.NotificationEngineCaller,
	applicationRepo repository.ApplicationRepository,
	nftRepo repository.NftRepository,
	nftActivityRepo repository.NftActivityRepository,
	userRepo repository.UserRepository,
	tagRepo repository.TagRepository,
) *LaunchWorker {
	return &LaunchWorker{
		chainCaller:        chainCaller,
		preflight:          preflight,
		metadataBuilder:    metadataBuilder,
		notificationCaller: notificationCaller,
		applicationRepo:    applicationRepo,
		nftRepo:            nftRepo,
		nftActivityRepo:    nftActivityRepo,
		userRepo:           userRepo,
		tagRepo:            tagRepo,
		inflight:           xsync.NewMapOf[bool](),
	}
}

// Subscribe is the handler bound to the launch topic.
func (w *LaunchWorker) Subscribe(ctx context.Context, pack *pubsub.Pack, t time.Time) {
	var job model.LaunchJob
	if err := json.Unmarshal(pack.Msg, &job); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot unmarshal launch job: %v", err)
		return
	}

	if _, loaded := w.inflight.LoadOrStore(job.ApplicationID, true); loaded {
		xcontext.Logger(ctx).Warnf("Launch of application %s is already in flight", job.ApplicationID)
		return
	}
	defer w.inflight.Delete(job.ApplicationID)

	if err := w.process(ctx, &job); err != nil {
		w.fail(ctx, &job, err)
	}
}

func (w *LaunchWorker) process(ctx context.Context, job *model.LaunchJob) error {
	application, err := w.applicationRepo.GetByID(ctx, job.ApplicationID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get application %s: %v", job.ApplicationID, err)
		return err
	}

	if application.DeployingStatus == entity.DeployingStatusDeployed {
		xcontext.Logger(ctx).Warnf("Application %s is already deployed, skip", job.ApplicationID)
		return nil
	}

	uri, err := w.metadataBuilder.Build(ctx, application)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot build metadata of application %s: %v", job.ApplicationID, err)
		return w.retryOrGiveUp(ctx, job, err)
	}

	// Conditions can change between the request-time check and now, so the
	// preflight runs again right before spending gas.
	if err := w.preflight.Validate(ctx, job.OwnerWalletAddress, uri); err != nil {
		return err
	}

	result, err := w.chainCaller.MintPatentToken(ctx, common.HexToAddress(job.OwnerWalletAddress), uri)
	if err != nil {
		xcommon.PromCounters[xcommon.BlockchainTransactionFailure].WithLabelValues("mint").Inc()
		xcontext.Logger(ctx).Errorf("Cannot mint token for application %s: %v", job.ApplicationID, err)

		// A mint that failed after submission may already sit in a block.
		// Resubmitting could mint the token twice, so this is terminal.
		if errors.Is(err, client.ErrTxSubmitted) {
			return err
		}

		return w.retryOrGiveUp(ctx, job, err)
	}

	if err := w.record(ctx, job, application, result); err != nil {
		return err
	}

	xcommon.PromCounters[xcommon.NftLaunchTotal].WithLabelValues("success").Inc()

	w.payTagRoyalties(ctx, application)

	err = w.notificationCaller.Emit(ctx, event.New(
		event.NftLaunchedEvent{
			ApplicationID:  job.ApplicationID,
			TokenID:        result.TokenID,
			TransactionUrl: w.transactionUrl(ctx, result.TxHash),
		},
		event.Metadata{To: application.OwnerID},
	))
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot emit launched event: %v", err)
	}

	return nil
}

// record persists everything derived from a confirmed mint in one
// transaction, so a crash never leaves a minted token without its database
// mirror.
func (w *LaunchWorker) record(
	ctx context.Context,
	job *model.LaunchJob,
	application *entity.Application,
	result *client.MintResult,
) error {
	expiry, err := w.chainCaller.TokenExpiry(ctx, result.TokenID)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot read expiry of token %d: %v", result.TokenID, err)
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	nft := &entity.NFT{
		Base:            entity.Base{ID: uuid.NewString()},
		Name:            application.Title,
		ImageUrl:        application.ImageUrl,
		OwnerID:         application.OwnerID,
		ApplicationID:   application.ID,
		TokenID:         result.TokenID,
		TransactionHash: result.TxHash,
		Tags:            application.Tags,
	}
	if expiry > 0 {
		nft.ExpiryDate = sql.NullTime{Time: time.Unix(expiry, 0), Valid: true}
	}
	if err := w.nftRepo.Create(ctx, nft); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create nft record: %v", err)
		return err
	}

	txUrl := w.transactionUrl(ctx, result.TxHash)
	if err := w.applicationRepo.MarkDeployed(ctx, job.ApplicationID, result.TokenID, txUrl, nft.ID); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot mark application %s deployed: %v", job.ApplicationID, err)
		return err
	}

	if err := w.nftActivityRepo.Create(ctx, &entity.NftActivity{
		Base:   entity.Base{ID: xcontext.SnowFlake(ctx).Generate().String()},
		NftID:  nft.ID,
		To:     application.OwnerID,
		Event:  entity.NftActivityMint,
		TxHash: result.TxHash,
	}); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create mint activity: %v", err)
		return err
	}

	launchCredits := xcontext.Configs(ctx).Launch.LaunchCredits
	if err := w.userRepo.DebitCredits(ctx, application.OwnerID, launchCredits); err != nil {
		if errors.Is(err, repository.ErrInsufficientCredits) {
			// The token is already minted, a credit shortfall must not fail
			// the job at this point.
			xcontext.Logger(ctx).Warnf("Owner %s cannot pay %d launch credits",
				application.OwnerID, launchCredits)
		} else {
			xcontext.Logger(ctx).Errorf("Cannot debit launch credits: %v", err)
			return err
		}
	}

	xcontext.WithCommitDBTransaction(ctx)
	return nil
}

// payTagRoyalties sends each tag's reward wallet its share of coins for the
// mint. Royalties are best effort, a failed transfer never fails the launch.
func (w *LaunchWorker) payTagRoyalties(ctx context.Context, application *entity.Application) {
	royalty := xcontext.Configs(ctx).Launch.TagRoyaltyCoins
	if royalty <= 0 || len(application.Tags) == 0 {
		return
	}

	tags, err := w.tagRepo.GetByNames(ctx, application.Tags)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot get tags of application %s: %v", application.ID, err)
		return
	}

	for _, tag := range tags {
		if !common.IsHexAddress(tag.RewardWalletAddress) || ethutil.IsZeroAddress(tag.RewardWalletAddress) {
			continue
		}

		_, err := w.chainCaller.TransferRewardCoins(ctx,
			common.HexToAddress(tag.RewardWalletAddress), numberutil.EtherToWei(royalty))
		if err != nil {
			xcommon.PromCounters[xcommon.BlockchainTransactionFailure].
				WithLabelValues("reward_transfer").Inc()
			xcontext.Logger(ctx).Warnf("Cannot pay royalty to tag %s: %v", tag.Name, err)
		}
	}
}

// retryOrGiveUp requeues transient failures once within the same consume by
// waiting out the backoff, then treats the job as failed.
func (w *LaunchWorker) retryOrGiveUp(ctx context.Context, job *model.LaunchJob, cause error) error {
	cfg := xcontext.Configs(ctx).Launch
	if job.Attempt+1 >= cfg.MaxAttempts {
		return cause
	}

	job.Attempt++
	xcontext.Logger(ctx).Warnf("Retrying launch of application %s (attempt %d): %v",
		job.ApplicationID, job.Attempt, cause)

	select {
	case <-ctx.Done():
		return cause
	case <-time.After(cfg.RetryBackoff):
	}

	return w.process(ctx, job)
}

// fail returns the application to not_deployed so the owner can trigger a
// fresh launch, and tells them why this one died.
func (w *LaunchWorker) fail(ctx context.Context, job *model.LaunchJob, cause error) {
	xcommon.PromCounters[xcommon.NftLaunchTotal].WithLabelValues("failure").Inc()

	if err := w.applicationRepo.MarkFailed(ctx, job.ApplicationID); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot mark application %s failed: %v", job.ApplicationID, err)
	}

	application, err := w.applicationRepo.GetByID(ctx, job.ApplicationID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get application %s: %v", job.ApplicationID, err)
		return
	}

	reason := "The launch could not be completed"
	var errx errorx.Error
	if errors.As(cause, &errx) {
		reason = errx.Message
	}

	err = w.notificationCaller.Emit(ctx, event.New(
		event.NftLaunchFailedEvent{ApplicationID: job.ApplicationID, Reason: reason},
		event.Metadata{To: application.OwnerID},
	))
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot emit launch failed event: %v", err)
	}
}

func (w *LaunchWorker) transactionUrl(ctx context.Context, txHash string) string {
	return xcontext.Configs(ctx).Blockchain.ExplorerURL + "/tx/" + txHash
}
