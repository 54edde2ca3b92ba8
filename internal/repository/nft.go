package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/patentx-lab/backend/internal/entity"
	"github.com/patentx-lab/backend/pkg/xcontext"
)

type NftRepository interface {
	Create(ctx context.Context, nft *entity.NFT) error
	GetByID(ctx context.Context, id string) (*entity.NFT, error)
	GetByTokenID(ctx context.Context, tokenID int64) (*entity.NFT, error)
	GetByOwnerID(ctx context.Context, ownerID string) ([]entity.NFT, error)

	SetFixedListing(ctx context.Context, tokenID int64, maticPrice, usdPrice float64, expiry time.Time) error
	SetAuctionListing(ctx context.Context, tokenID int64, maticPrice, usdPrice float64, start, end, expiry time.Time) error
	ClearListing(ctx context.Context, tokenID int64) error
	TransferOwnership(ctx context.Context, tokenID int64, newOwnerID string) error
}

type nftRepository struct{}

func NewNftRepository() *nftRepository {
	return &nftRepository{}
}

func (r *nftRepository) Create(ctx context.Context, nft *entity.NFT) error {
	return xcontext.DB(ctx).Create(nft).Error
}

func (r *nftRepository) GetByID(ctx context.Context, id string) (*entity.NFT, error) {
	var result entity.NFT
	if err := xcontext.DB(ctx).Take(&result, "id = ?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *nftRepository) GetByTokenID(ctx context.Context, tokenID int64) (*entity.NFT, error) {
	var result entity.NFT
	if err := xcontext.DB(ctx).Take(&result, "token_id = ?", tokenID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *nftRepository) GetByOwnerID(ctx context.Context, ownerID string) ([]entity.NFT, error) {
	var result []entity.NFT
	if err := xcontext.DB(ctx).Find(&result, "owner_id = ?", ownerID).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *nftRepository) SetFixedListing(
	ctx context.Context, tokenID int64, maticPrice, usdPrice float64, expiry time.Time,
) error {
	return xcontext.DB(ctx).Model(&entity.NFT{}).
		Where("token_id = ?", tokenID).
		Updates(map[string]any{
			"is_listed":          true,
			"on_auction":         false,
			"matic_price":        sql.NullFloat64{Float64: maticPrice, Valid: true},
			"usd_price":          sql.NullFloat64{Float64: usdPrice, Valid: true},
			"expiry_date":        nullableTime(expiry),
			"auction_start_time": sql.NullTime{},
			"auction_end_time":   sql.NullTime{},
		}).Error
}

func (r *nftRepository) SetAuctionListing(
	ctx context.Context, tokenID int64, maticPrice, usdPrice float64, start, end, expiry time.Time,
) error {
	return xcontext.DB(ctx).Model(&entity.NFT{}).
		Where("token_id = ?", tokenID).
		Updates(map[string]any{
			"is_listed":          true,
			"on_auction":         true,
			"matic_price":        sql.NullFloat64{Float64: maticPrice, Valid: true},
			"usd_price":          sql.NullFloat64{Float64: usdPrice, Valid: true},
			"expiry_date":        nullableTime(expiry),
			"auction_start_time": sql.NullTime{Time: start, Valid: true},
			"auction_end_time":   sql.NullTime{Time: end, Valid: true},
		}).Error
}

// nullableTime keeps a token without expiry at NULL rather than the zero
// time, which would read back as an expiry in the distant past.
func nullableTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: t, Valid: true}
}

// ClearListing resets every listing field. Price and time fields go back to
// NULL so an unlisted token never exposes a stale price.
func (r *nftRepository) ClearListing(ctx context.Context, tokenID int64) error {
	return xcontext.DB(ctx).Model(&entity.NFT{}).
		Where("token_id = ?", tokenID).
		Updates(map[string]any{
			"is_listed":          false,
			"on_auction":         false,
			"matic_price":        sql.NullFloat64{},
			"usd_price":          sql.NullFloat64{},
			"expiry_date":        sql.NullTime{},
			"auction_start_time": sql.NullTime{},
			"auction_end_time":   sql.NullTime{},
		}).Error
}

func (r *nftRepository) TransferOwnership(ctx context.Context, tokenID int64, newOwnerID string) error {
	return xcontext.DB(ctx).Model(&entity.NFT{}).
		Where("token_id = ?", tokenID).
		Update("owner_id", newOwnerID).Error
}
