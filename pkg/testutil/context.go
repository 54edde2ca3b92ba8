package testutil

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gorilla/sessions"
	"github.com/patentx-lab/backend/config"
	"github.com/patentx-lab/backend/internal/entity"
	"github.com/patentx-lab/backend/internal/model"
	"github.com/patentx-lab/backend/pkg/authenticator"
	"github.com/patentx-lab/backend/pkg/logger"
	"github.com/patentx-lab/backend/pkg/xcontext"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func NewMockContext() context.Context {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic(err)
	}

	cfg := config.Configs{
		ApiServer: config.ServerConfigs{
			MaxLimit:     50,
			DefaultLimit: 1,
		},
		Auth: config.AuthConfigs{
			TokenSecret: "secret",
			AccessToken: config.TokenConfigs{
				Name:       "access_token",
				Expiration: time.Minute,
			},
		},
		Session: config.SessionConfigs{
			Secret: "session-secret",
			Name:   "auth_session",
		},
		Blockchain: config.BlockchainConfigs{
			SecretKey:   "blockchain-secret",
			ExplorerURL: "https://mumbai.polygonscan.com",
		},
		Launch: config.LaunchConfigs{
			Topic:           "launch_nft",
			MaxAttempts:     3,
			RetryBackoff:    time.Millisecond,
			LaunchCredits:   1,
			TagRoyaltyCoins: 0.1,
			MetadataBucket:  "nft-metadata",
		},
		Marketplace: config.MarketplaceConfigs{
			ListingCredits:   1,
			TradeRewardCoins: 0.5,
		},
		Crowdfunding: config.CrowdfundingConfigs{
			RewardTopic: "crowdfunding_reward",
		},
	}

	snowflakeNode, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	ctx = xcontext.WithConfigs(ctx, cfg)
	ctx = xcontext.WithLogger(ctx, logger.NewLogger())
	ctx = xcontext.WithTokenEngine(ctx, authenticator.NewTokenEngine[model.AccessToken](
		cfg.Auth.TokenSecret, cfg.Auth.AccessToken.Expiration))
	ctx = xcontext.WithSessionStore(ctx, sessions.NewCookieStore([]byte(cfg.Session.Secret)))
	ctx = xcontext.WithSnowFlake(ctx, snowflakeNode)
	ctx = xcontext.WithDB(ctx, db)

	if err := entity.MigrateTable(ctx); err != nil {
		panic(err)
	}

	return ctx
}

func NewMockContextWithUserID(ctx context.Context, userID string) context.Context {
	return xcontext.WithRequestUserID(ctx, userID)
}
