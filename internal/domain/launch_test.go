package domain

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/patentx-lab/backend/internal/domain/launchpad"
	"github.com/patentx-lab/backend/internal/entity"
	"github.com/patentx-lab/backend/internal/model"
	"github.com/patentx-lab/backend/internal/repository"
	"github.com/patentx-lab/backend/pkg/errorx"
	"github.com/patentx-lab/backend/pkg/pubsub"
	"github.com/patentx-lab/backend/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func Test_launchDomain_FullScenario(t *testing.T) {
	ctx := testutil.NewMockContext()

	owner := testutil.SampleUser(ctx, nil)
	application := testutil.SampleApplication(ctx, &entity.Application{OwnerID: owner.ID})

	var published []*pubsub.Pack
	publisher := &testutil.MockPublisher{
		PublishFunc: func(ctx context.Context, topic string, pack *pubsub.Pack) error {
			require.Equal(t, "launch_nft", topic)
			published = append(published, pack)
			return nil
		},
	}

	launchDomain := NewLaunchDomain(
		launchpad.NewPreflightValidator(&testutil.MockChainCaller{}),
		publisher,
		repository.NewApplicationRepository(),
		repository.NewUserRepository(&testutil.MockRedisClient{}),
	)

	ownerCtx := testutil.NewMockContextWithUserID(ctx, owner.ID)
	strangerCtx := testutil.NewMockContextWithUserID(ctx, "someone-else")

	// Only the owner can launch.
	_, err := launchDomain.Launch(strangerCtx, &model.LaunchNftRequest{ApplicationID: application.ID})
	requireErrorCode(t, err, errorx.PermissionDenied)

	resp, err := launchDomain.Launch(ownerCtx, &model.LaunchNftRequest{ApplicationID: application.ID})
	require.NoError(t, err)
	require.Equal(t, "deploying", resp.Status)

	require.Len(t, published, 1)
	var job model.LaunchJob
	require.NoError(t, json.Unmarshal(published[0].Msg, &job))
	require.Equal(t, application.ID, job.ApplicationID)
	require.Equal(t, owner.WalletAddress, job.OwnerWalletAddress)

	status, err := launchDomain.GetStatus(ctx, &model.GetLaunchStatusRequest{ApplicationID: application.ID})
	require.NoError(t, err)
	require.Equal(t, "deploying", status.DeployingStatus)

	// The first launch still owns the transition.
	_, err = launchDomain.Launch(ownerCtx, &model.LaunchNftRequest{ApplicationID: application.ID})
	requireErrorCode(t, err, errorx.LaunchAlreadyPending)
	require.Len(t, published, 1)

	// Once deployed there is nothing left to launch.
	applicationRepo := repository.NewApplicationRepository()
	require.NoError(t, applicationRepo.MarkDeployed(ctx, application.ID, 7, "https://scan/tx/0xabc", "nft-id"))

	_, err = launchDomain.Launch(ownerCtx, &model.LaunchNftRequest{ApplicationID: application.ID})
	requireErrorCode(t, err, errorx.AlreadyDeployed)

	status, err = launchDomain.GetStatus(ctx, &model.GetLaunchStatusRequest{ApplicationID: application.ID})
	require.NoError(t, err)
	require.Equal(t, "deployed", status.DeployingStatus)
	require.Equal(t, int64(7), status.NftTokenID)
	require.Equal(t, "https://scan/tx/0xabc", status.NftTransactionUrl)
}

func Test_launchDomain_RevertsOnPublishFailure(t *testing.T) {
	ctx := testutil.NewMockContext()

	owner := testutil.SampleUser(ctx, nil)
	application := testutil.SampleApplication(ctx, &entity.Application{OwnerID: owner.ID})

	launchDomain := NewLaunchDomain(
		launchpad.NewPreflightValidator(&testutil.MockChainCaller{}),
		&testutil.MockPublisher{},
		repository.NewApplicationRepository(),
		repository.NewUserRepository(&testutil.MockRedisClient{}),
	)

	ownerCtx := testutil.NewMockContextWithUserID(ctx, owner.ID)
	_, err := launchDomain.Launch(ownerCtx, &model.LaunchNftRequest{ApplicationID: application.ID})
	require.Error(t, err)

	// The failed publish must not strand the application in deploying.
	got, err := repository.NewApplicationRepository().GetByID(ctx, application.ID)
	require.NoError(t, err)
	require.Equal(t, entity.DeployingStatusNotDeployed, got.DeployingStatus)
}

func Test_launchDomain_RequiresFiledApplication(t *testing.T) {
	ctx := testutil.NewMockContext()

	owner := testutil.SampleUser(ctx, nil)

	applicationRepo := repository.NewApplicationRepository()
	application := &entity.Application{
		Base:    entity.Base{ID: "draft-application"},
		Title:   "Draft",
		OwnerID: owner.ID,
	}
	require.NoError(t, applicationRepo.Create(ctx, application))

	launchDomain := NewLaunchDomain(
		launchpad.NewPreflightValidator(&testutil.MockChainCaller{}),
		&testutil.MockPublisher{},
		applicationRepo,
		repository.NewUserRepository(&testutil.MockRedisClient{}),
	)

	ownerCtx := testutil.NewMockContextWithUserID(ctx, owner.ID)
	_, err := launchDomain.Launch(ownerCtx, &model.LaunchNftRequest{ApplicationID: application.ID})
	requireErrorCode(t, err, errorx.Unavailable)
}
