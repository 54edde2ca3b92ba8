package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/patentx-lab/backend/internal/entity"
	"github.com/patentx-lab/backend/pkg/xcontext"
)

// ErrAlreadyPending is returned by CheckAndBeginDeploying when another caller
// already owns the not_deployed -> deploying transition, or the application
// is already deployed.
var ErrAlreadyPending = errors.New("a launch is already pending or finished for this application")

type ApplicationRepository interface {
	Create(ctx context.Context, application *entity.Application) error
	GetByID(ctx context.Context, id string) (*entity.Application, error)
	GetByOwnerID(ctx context.Context, ownerID string) ([]entity.Application, error)
	SetFiled(ctx context.Context, id string) error

	// CheckAndBeginDeploying atomically moves the application from
	// not_deployed (or no status at all) to deploying. Exactly one of any
	// number of concurrent callers succeeds; the rest get ErrAlreadyPending.
	CheckAndBeginDeploying(ctx context.Context, id string) error

	MarkDeployed(ctx context.Context, id string, tokenID int64, txURL, nftID string) error
	MarkFailed(ctx context.Context, id string) error

	UpdateStakingStatus(ctx context.Context, id string, status entity.StakingStatus) error
}

type applicationRepository struct{}

func NewApplicationRepository() *applicationRepository {
	return &applicationRepository{}
}

func (r *applicationRepository) Create(ctx context.Context, application *entity.Application) error {
	return xcontext.DB(ctx).Create(application).Error
}

func (r *applicationRepository) GetByID(ctx context.Context, id string) (*entity.Application, error) {
	var result entity.Application
	if err := xcontext.DB(ctx).Take(&result, "id = ?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *applicationRepository) GetByOwnerID(ctx context.Context, ownerID string) ([]entity.Application, error) {
	var result []entity.Application
	err := xcontext.DB(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *applicationRepository) SetFiled(ctx context.Context, id string) error {
	return xcontext.DB(ctx).Model(&entity.Application{}).
		Where("id = ?", id).
		Update("is_filed", true).Error
}

func (r *applicationRepository) CheckAndBeginDeploying(ctx context.Context, id string) error {
	tx := xcontext.DB(ctx).Model(&entity.Application{}).
		Where("id = ? AND (deploying_status = ? OR deploying_status = '' OR deploying_status IS NULL)",
			id, entity.DeployingStatusNotDeployed).
		Update("deploying_status", entity.DeployingStatusDeploying)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return ErrAlreadyPending
	}

	return nil
}

func (r *applicationRepository) MarkDeployed(ctx context.Context, id string, tokenID int64, txURL, nftID string) error {
	return xcontext.DB(ctx).Model(&entity.Application{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"deploying_status":    entity.DeployingStatusDeployed,
			"nft_token_id":        sql.NullInt64{Int64: tokenID, Valid: true},
			"nft_transaction_url": txURL,
			"nft_id":              sql.NullString{String: nftID, Valid: true},
		}).Error
}

func (r *applicationRepository) MarkFailed(ctx context.Context, id string) error {
	return xcontext.DB(ctx).Model(&entity.Application{}).
		Where("id = ?", id).
		Update("deploying_status", entity.DeployingStatusNotDeployed).Error
}

func (r *applicationRepository) UpdateStakingStatus(ctx context.Context, id string, status entity.StakingStatus) error {
	return xcontext.DB(ctx).Model(&entity.Application{}).
		Where("id = ?", id).
		Update("staking_status", status).Error
}
