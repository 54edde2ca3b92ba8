package launchpad

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/patentx-lab/backend/internal/client"
	"github.com/patentx-lab/backend/internal/entity"
	"github.com/patentx-lab/backend/internal/model"
	"github.com/patentx-lab/backend/internal/repository"
	"github.com/patentx-lab/backend/pkg/pubsub"
	"github.com/patentx-lab/backend/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func newImageServer(t *testing.T) *httptest.Server {
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(buf.Bytes())
	}))
	t.Cleanup(server.Close)

	return server
}

func newLaunchWorkerTest(
	chainCaller client.ChainCaller, notificationCaller client.NotificationEngineCaller,
) *LaunchWorker {
	return NewLaunchWorker(
		chainCaller,
		NewPreflightValidator(chainCaller),
		NewMetadataBuilder(&testutil.MockStorage{}),
		notificationCaller,
		repository.NewApplicationRepository(),
		repository.NewNftRepository(),
		repository.NewNftActivityRepository(),
		repository.NewUserRepository(&testutil.MockRedisClient{}),
		repository.NewTagRepository(),
	)
}

func subscribeLaunchJob(ctx context.Context, worker *LaunchWorker, job model.LaunchJob) {
	msg, err := json.Marshal(job)
	if err != nil {
		panic(err)
	}

	worker.Subscribe(ctx, &pubsub.Pack{Key: []byte(job.ApplicationID), Msg: msg}, time.Now())
}

func Test_LaunchWorker_SuccessfulMint(t *testing.T) {
	ctx := testutil.NewMockContext()
	server := newImageServer(t)

	owner := testutil.SampleUser(ctx, nil)
	application := testutil.SampleApplication(ctx, &entity.Application{
		OwnerID:         owner.ID,
		ImageUrl:        server.URL,
		DeployingStatus: entity.DeployingStatusDeploying,
	})

	tagRepo := repository.NewTagRepository()
	rewardWallet := "0x3333333333333333333333333333333333333333"
	require.NoError(t, tagRepo.Create(ctx, &entity.Tag{
		Base: entity.Base{ID: uuid.NewString()}, Name: "water", RewardWalletAddress: rewardWallet,
	}))
	require.NoError(t, tagRepo.Create(ctx, &entity.Tag{
		Base: entity.Base{ID: uuid.NewString()}, Name: "filtration",
	}))

	var royalties []common.Address
	chainCaller := &testutil.MockChainCaller{
		MintPatentTokenFunc: func(ctx context.Context, recipient common.Address, uri string) (*client.MintResult, error) {
			return &client.MintResult{TokenID: 7, TxHash: "0xmint"}, nil
		},
		TransferRewardCoinsFunc: func(ctx context.Context, to common.Address, amountWei *big.Int) (string, error) {
			royalties = append(royalties, to)
			return "0xroyalty", nil
		},
	}

	notificationCaller := &testutil.MockNotificationEngineCaller{}
	worker := newLaunchWorkerTest(chainCaller, notificationCaller)

	subscribeLaunchJob(ctx, worker, model.LaunchJob{
		ApplicationID:      application.ID,
		OwnerWalletAddress: owner.WalletAddress,
	})

	got, err := repository.NewApplicationRepository().GetByID(ctx, application.ID)
	require.NoError(t, err)
	require.Equal(t, entity.DeployingStatusDeployed, got.DeployingStatus)
	require.Equal(t, int64(7), got.NftTokenID.Int64)
	require.Equal(t, "https://mumbai.polygonscan.com/tx/0xmint", got.NftTransactionUrl)

	nft, err := repository.NewNftRepository().GetByTokenID(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, owner.ID, nft.OwnerID)
	require.Equal(t, application.ID, nft.ApplicationID)
	require.Equal(t, "0xmint", nft.TransactionHash)
	require.Equal(t, nft.ID, got.NftID.String)

	activities, err := repository.NewNftActivityRepository().GetByNftID(ctx, nft.ID)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	require.Equal(t, entity.NftActivityMint, activities[0].Event)
	require.Equal(t, owner.ID, activities[0].To)

	// One launch credit is gone.
	user, err := repository.NewUserRepository(&testutil.MockRedisClient{}).GetByID(ctx, owner.ID)
	require.NoError(t, err)
	require.Equal(t, int64(99), user.Credits)

	// Only the tag with a reward wallet got its royalty.
	require.Len(t, royalties, 1)
	require.Equal(t, common.HexToAddress(rewardWallet), royalties[0])

	require.Len(t, notificationCaller.Emitted, 1)
	require.Equal(t, "nft_launched", notificationCaller.Emitted[0].Op)
	require.Equal(t, owner.ID, notificationCaller.Emitted[0].Metadata.To)
}

func Test_LaunchWorker_GivesUpAfterRetries(t *testing.T) {
	ctx := testutil.NewMockContext()
	server := newImageServer(t)

	owner := testutil.SampleUser(ctx, nil)
	application := testutil.SampleApplication(ctx, &entity.Application{
		OwnerID:         owner.ID,
		ImageUrl:        server.URL,
		DeployingStatus: entity.DeployingStatusDeploying,
	})

	mintCalls := 0
	chainCaller := &testutil.MockChainCaller{
		MintPatentTokenFunc: func(ctx context.Context, recipient common.Address, uri string) (*client.MintResult, error) {
			mintCalls++
			return nil, errors.New("nonce too low")
		},
	}

	notificationCaller := &testutil.MockNotificationEngineCaller{}
	worker := newLaunchWorkerTest(chainCaller, notificationCaller)

	subscribeLaunchJob(ctx, worker, model.LaunchJob{
		ApplicationID:      application.ID,
		OwnerWalletAddress: owner.WalletAddress,
	})

	require.Equal(t, 3, mintCalls)

	// The application is free for a fresh launch and the owner knows why
	// this one died.
	got, err := repository.NewApplicationRepository().GetByID(ctx, application.ID)
	require.NoError(t, err)
	require.Equal(t, entity.DeployingStatusNotDeployed, got.DeployingStatus)
	require.False(t, got.NftTokenID.Valid)

	require.Len(t, notificationCaller.Emitted, 1)
	require.Equal(t, "nft_launch_failed", notificationCaller.Emitted[0].Op)
	require.Equal(t, owner.ID, notificationCaller.Emitted[0].Metadata.To)
}

func Test_LaunchWorker_NeverResubmitsAfterSubmission(t *testing.T) {
	ctx := testutil.NewMockContext()
	server := newImageServer(t)

	owner := testutil.SampleUser(ctx, nil)
	application := testutil.SampleApplication(ctx, &entity.Application{
		OwnerID:         owner.ID,
		ImageUrl:        server.URL,
		DeployingStatus: entity.DeployingStatusDeploying,
	})

	// A receipt timeout means the signed mint may already be in a block.
	mintCalls := 0
	chainCaller := &testutil.MockChainCaller{
		MintPatentTokenFunc: func(ctx context.Context, recipient common.Address, uri string) (*client.MintResult, error) {
			mintCalls++
			return nil, fmt.Errorf("%w: timed out waiting for receipt of 0xdeadbeef", client.ErrTxSubmitted)
		},
	}

	notificationCaller := &testutil.MockNotificationEngineCaller{}
	worker := newLaunchWorkerTest(chainCaller, notificationCaller)

	subscribeLaunchJob(ctx, worker, model.LaunchJob{
		ApplicationID:      application.ID,
		OwnerWalletAddress: owner.WalletAddress,
	})

	require.Equal(t, 1, mintCalls)

	got, err := repository.NewApplicationRepository().GetByID(ctx, application.ID)
	require.NoError(t, err)
	require.Equal(t, entity.DeployingStatusNotDeployed, got.DeployingStatus)

	require.Len(t, notificationCaller.Emitted, 1)
	require.Equal(t, "nft_launch_failed", notificationCaller.Emitted[0].Op)
}

func Test_LaunchWorker_SkipsDeployedApplication(t *testing.T) {
	ctx := testutil.NewMockContext()

	owner := testutil.SampleUser(ctx, nil)
	application := testutil.SampleApplication(ctx, &entity.Application{
		OwnerID:         owner.ID,
		DeployingStatus: entity.DeployingStatusDeployed,
	})

	mintCalls := 0
	chainCaller := &testutil.MockChainCaller{
		MintPatentTokenFunc: func(ctx context.Context, recipient common.Address, uri string) (*client.MintResult, error) {
			mintCalls++
			return &client.MintResult{TokenID: 7, TxHash: "0xmint"}, nil
		},
	}

	notificationCaller := &testutil.MockNotificationEngineCaller{}
	worker := newLaunchWorkerTest(chainCaller, notificationCaller)

	subscribeLaunchJob(ctx, worker, model.LaunchJob{
		ApplicationID:      application.ID,
		OwnerWalletAddress: owner.WalletAddress,
	})

	require.Zero(t, mintCalls)
	require.Empty(t, notificationCaller.Emitted)
}
