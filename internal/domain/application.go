package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/patentx-lab/backend/internal/entity"
	"github.com/patentx-lab/backend/internal/model"
	"github.com/patentx-lab/backend/internal/repository"
	"github.com/patentx-lab/backend/pkg/errorx"
	"github.com/patentx-lab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type ApplicationDomain interface {
	Create(context.Context, *model.CreateApplicationRequest) (*model.CreateApplicationResponse, error)
	Get(context.Context, *model.GetApplicationRequest) (*model.GetApplicationResponse, error)
	GetMyList(context.Context, *model.GetMyApplicationsRequest) (*model.GetMyApplicationsResponse, error)
	MarkFiled(context.Context, *model.MarkFiledRequest) (*model.MarkFiledResponse, error)
}

type applicationDomain struct {
	applicationRepo repository.ApplicationRepository
}

func NewApplicationDomain(applicationRepo repository.ApplicationRepository) *applicationDomain {
	return &applicationDomain{applicationRepo: applicationRepo}
}

func (d *applicationDomain) Create(
	ctx context.Context, req *model.CreateApplicationRequest,
) (*model.CreateApplicationResponse, error) {
	if req.Title == "" {
		return nil, errorx.New(errorx.BadRequest, "Title is required")
	}

	application := &entity.Application{
		Base:        entity.Base{ID: uuid.NewString()},
		Title:       req.Title,
		Description: req.Description,
		ImageUrl:    req.ImageUrl,
		OwnerID:     xcontext.RequestUserID(ctx),
		Tags:        req.Tags,
	}

	if err := d.applicationRepo.Create(ctx, application); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create application: %v", err)
		return nil, errorx.Unknown
	}

	return &model.CreateApplicationResponse{ID: application.ID}, nil
}

func (d *applicationDomain) Get(
	ctx context.Context, req *model.GetApplicationRequest,
) (*model.GetApplicationResponse, error) {
	application, err := d.applicationRepo.GetByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found application")
		}

		xcontext.Logger(ctx).Errorf("Cannot get application: %v", err)
		return nil, errorx.Unknown
	}

	return &model.GetApplicationResponse{Application: convertApplication(application)}, nil
}

func (d *applicationDomain) GetMyList(
	ctx context.Context, req *model.GetMyApplicationsRequest,
) (*model.GetMyApplicationsResponse, error) {
	applications, err := d.applicationRepo.GetByOwnerID(ctx, xcontext.RequestUserID(ctx))
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get applications: %v", err)
		return nil, errorx.Unknown
	}

	resp := &model.GetMyApplicationsResponse{}
	for i := range applications {
		resp.Applications = append(resp.Applications, convertApplication(&applications[i]))
	}

	return resp, nil
}

func (d *applicationDomain) MarkFiled(
	ctx context.Context, req *model.MarkFiledRequest,
) (*model.MarkFiledResponse, error) {
	application, err := d.applicationRepo.GetByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found application")
		}

		xcontext.Logger(ctx).Errorf("Cannot get application: %v", err)
		return nil, errorx.Unknown
	}

	if application.OwnerID != xcontext.RequestUserID(ctx) {
		return nil, errorx.New(errorx.PermissionDenied, "Permission denied")
	}

	if err := d.applicationRepo.SetFiled(ctx, req.ID); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot mark application filed: %v", err)
		return nil, errorx.Unknown
	}

	return &model.MarkFiledResponse{}, nil
}

func convertApplication(application *entity.Application) model.Application {
	status := application.DeployingStatus
	if status == "" {
		status = entity.DeployingStatusNotDeployed
	}

	result := model.Application{
		ID:              application.ID,
		Title:           application.Title,
		Description:     application.Description,
		ImageUrl:        application.ImageUrl,
		OwnerID:         application.OwnerID,
		IsFiled:         application.IsFiled,
		Tags:            application.Tags,
		DeployingStatus: string(status),
		StakingStatus:   string(application.StakingStatus),
	}

	if application.NftTokenID.Valid {
		result.NftTokenID = application.NftTokenID.Int64
		result.NftTransactionUrl = application.NftTransactionUrl
	}

	return result
}
