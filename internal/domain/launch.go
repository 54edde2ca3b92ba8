package domain

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/patentx-lab/backend/internal/domain/launchpad"
	"github.com/patentx-lab/backend/internal/entity"
	"github.com/patentx-lab/backend/internal/model"
	"github.com/patentx-lab/backend/internal/repository"
	"github.com/patentx-lab/backend/pkg/enum"
	"github.com/patentx-lab/backend/pkg/errorx"
	"github.com/patentx-lab/backend/pkg/pubsub"
	"github.com/patentx-lab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

// preflightTokenURI stands in for the real token uri during request-time gas
// estimation. The real uri only exists after the worker built the metadata.
const preflightTokenURI = "ipfs://bafkreigh2akiscaildcqabsyg3dfr6chu3fgpregiymsck7e7aqa4s52zy"

type LaunchDomain interface {
	Launch(context.Context, *model.LaunchNftRequest) (*model.LaunchNftResponse, error)
	GetStatus(context.Context, *model.GetLaunchStatusRequest) (*model.GetLaunchStatusResponse, error)
}

type launchDomain struct {
	preflight       *launchpad.PreflightValidator
	publisher       pubsub.Publisher
	applicationRepo repository.ApplicationRepository
	userRepo        repository.UserRepository
}

func NewLaunchDomain(
	preflight *launchpad.PreflightValidator,
	publisher pubsub.Publisher,
	applicationRepo repository.ApplicationRepository,
	userRepo repository.UserRepository,
) *launchDomain {
	return &launchDomain{
		preflight:       preflight,
		publisher:       publisher,
		applicationRepo: applicationRepo,
		userRepo:        userRepo,
	}
}

func (d *launchDomain) Launch(
	ctx context.Context, req *model.LaunchNftRequest,
) (*model.LaunchNftResponse, error) {
	userID := xcontext.RequestUserID(ctx)

	application, err := d.applicationRepo.GetByID(ctx, req.ApplicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found application")
		}

		xcontext.Logger(ctx).Errorf("Cannot get application: %v", err)
		return nil, errorx.Unknown
	}

	if application.OwnerID != userID {
		return nil, errorx.New(errorx.PermissionDenied, "Permission denied")
	}

	if !application.IsFiled {
		return nil, errorx.New(errorx.Unavailable, "Only filed applications can be launched")
	}

	if application.DeployingStatus == entity.DeployingStatusDeployed {
		return nil, errorx.New(errorx.AlreadyDeployed, "This application is already deployed")
	}

	user, err := d.userRepo.GetByID(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get user: %v", err)
		return nil, errorx.Unknown
	}

	if user.WalletAddress == "" {
		return nil, errorx.New(errorx.InvalidRecipient, "You need to link a wallet before launching")
	}

	if err := d.preflight.Validate(ctx, user.WalletAddress, preflightTokenURI); err != nil {
		return nil, err
	}

	if err := d.applicationRepo.CheckAndBeginDeploying(ctx, req.ApplicationID); err != nil {
		if errors.Is(err, repository.ErrAlreadyPending) {
			return nil, errorx.New(errorx.LaunchAlreadyPending,
				"A launch is already pending for this application")
		}

		xcontext.Logger(ctx).Errorf("Cannot begin deploying: %v", err)
		return nil, errorx.Unknown
	}

	job, err := json.Marshal(model.LaunchJob{
		ApplicationID:      req.ApplicationID,
		OwnerWalletAddress: user.WalletAddress,
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot marshal launch job: %v", err)
		return nil, errorx.Unknown
	}

	err = d.publisher.Publish(ctx, xcontext.Configs(ctx).Launch.Topic, &pubsub.Pack{
		Key: []byte(req.ApplicationID),
		Msg: job,
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot publish launch job: %v", err)

		// Undo the status transition, otherwise no worker will ever pick
		// this application up and it would stay deploying forever.
		if err := d.applicationRepo.MarkFailed(ctx, req.ApplicationID); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot revert deploying status: %v", err)
		}

		return nil, errorx.Unknown
	}

	return &model.LaunchNftResponse{Status: string(entity.DeployingStatusDeploying)}, nil
}

func (d *launchDomain) GetStatus(
	ctx context.Context, req *model.GetLaunchStatusRequest,
) (*model.GetLaunchStatusResponse, error) {
	application, err := d.applicationRepo.GetByID(ctx, req.ApplicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found application")
		}

		xcontext.Logger(ctx).Errorf("Cannot get application: %v", err)
		return nil, errorx.Unknown
	}

	status := application.DeployingStatus
	if _, err := enum.ToEnum[entity.DeployingStatus](string(status)); err != nil {
		status = entity.DeployingStatusNotDeployed
	}

	resp := &model.GetLaunchStatusResponse{DeployingStatus: string(status)}
	if application.DeployingStatus == entity.DeployingStatusDeployed {
		resp.NftTokenID = application.NftTokenID.Int64
		resp.NftTransactionUrl = application.NftTransactionUrl
	}

	return resp, nil
}
