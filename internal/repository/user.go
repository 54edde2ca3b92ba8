package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/patentx-lab/backend/internal/entity"
	"github.com/patentx-lab/backend/pkg/xcontext"
	"github.com/patentx-lab/backend/pkg/xredis"
)

// ErrInsufficientCredits is returned by DebitCredits when the user balance
// cannot cover the debit.
var ErrInsufficientCredits = errors.New("insufficient credits")

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByWalletAddress(ctx context.Context, address string) (*entity.User, error)

	// DebitCredits atomically subtracts amount, failing when the balance is
	// too low rather than going negative.
	DebitCredits(ctx context.Context, id string, amount int64) error
	AddCredits(ctx context.Context, id string, amount int64) error
}

type userRepository struct {
	redisClient xredis.Client
}

func NewUserRepository(redisClient xredis.Client) *userRepository {
	return &userRepository{redisClient: redisClient}
}

func (r *userRepository) cacheKey(id string) string {
	return fmt.Sprintf("cache:user:%s", id)
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	return xcontext.DB(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if r.redisClient != nil {
		if cached, err := r.redisClient.Get(ctx, r.cacheKey(id)); err == nil {
			var user entity.User
			if json.Unmarshal([]byte(cached), &user) == nil {
				return &user, nil
			}
		}
	}

	var result entity.User
	if err := xcontext.DB(ctx).Take(&result, "id = ?", id).Error; err != nil {
		return nil, err
	}

	if r.redisClient != nil {
		if b, err := json.Marshal(result); err == nil {
			if err := r.redisClient.Set(ctx, r.cacheKey(id), string(b)); err != nil {
				xcontext.Logger(ctx).Warnf("Cannot cache user %s: %v", id, err)
			}
		}
	}

	return &result, nil
}

func (r *userRepository) GetByWalletAddress(ctx context.Context, address string) (*entity.User, error) {
	var result entity.User
	if err := xcontext.DB(ctx).Take(&result, "wallet_address = ?", address).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *userRepository) DebitCredits(ctx context.Context, id string, amount int64) error {
	tx := xcontext.DB(ctx).Exec(
		"UPDATE users SET credits = credits - ? WHERE id = ? AND credits >= ?",
		amount, id, amount)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return ErrInsufficientCredits
	}

	return r.invalidate(ctx, id)
}

func (r *userRepository) AddCredits(ctx context.Context, id string, amount int64) error {
	tx := xcontext.DB(ctx).Exec(
		"UPDATE users SET credits = credits + ? WHERE id = ?", amount, id)
	if tx.Error != nil {
		return tx.Error
	}

	return r.invalidate(ctx, id)
}

func (r *userRepository) invalidate(ctx context.Context, id string) error {
	if r.redisClient == nil {
		return nil
	}

	if err := r.redisClient.Del(ctx, r.cacheKey(id)); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot invalidate user cache %s: %v", id, err)
	}

	return nil
}
