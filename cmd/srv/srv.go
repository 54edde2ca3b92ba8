package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bwmarrin/snowflake"
	"github.com/gorilla/sessions"
	"github.com/patentx-lab/backend/config"
	"github.com/patentx-lab/backend/internal/client"
	"github.com/patentx-lab/backend/internal/domain"
	"github.com/patentx-lab/backend/internal/domain/launchpad"
	"github.com/patentx-lab/backend/internal/entity"
	"github.com/patentx-lab/backend/internal/model"
	"github.com/patentx-lab/backend/internal/repository"
	"github.com/patentx-lab/backend/pkg/authenticator"
	"github.com/patentx-lab/backend/pkg/blockchain/eth"
	"github.com/patentx-lab/backend/pkg/kafka"
	"github.com/patentx-lab/backend/pkg/logger"
	"github.com/patentx-lab/backend/pkg/pubsub"
	"github.com/patentx-lab/backend/pkg/router"
	"github.com/patentx-lab/backend/pkg/storage"
	"github.com/patentx-lab/backend/pkg/xcontext"
	"github.com/patentx-lab/backend/pkg/xredis"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type srv struct {
	ctx context.Context

	app    *cli.App
	router *router.Router
	server *http.Server

	redisClient xredis.Client
	publisher   pubsub.Publisher
	storage     storage.Storage

	ethClient          eth.EthClient
	chainCaller        client.ChainCaller
	notificationCaller client.NotificationEngineCaller
	paymentCaller      client.PaymentCaller

	userRepo            repository.UserRepository
	tagRepo             repository.TagRepository
	applicationRepo     repository.ApplicationRepository
	nftRepo             repository.NftRepository
	nftActivityRepo     repository.NftActivityRepository
	bidRepo             repository.BidRepository
	crowdfundingRepo    repository.CrowdfundingRepository
	rewardIterationRepo repository.RewardIterationRepository

	walletAuthDomain   domain.WalletAuthDomain
	userDomain         domain.UserDomain
	applicationDomain  domain.ApplicationDomain
	launchDomain       domain.LaunchDomain
	marketplaceDomain  domain.MarketplaceDomain
	crowdfundingDomain domain.CrowdfundingDomain

	launchWorker *launchpad.LaunchWorker
	rewardWorker *domain.RewardWorker
}

func (s *srv) newContext() context.Context {
	cfg := s.loadConfig()

	ctx := context.Background()
	ctx = xcontext.WithConfigs(ctx, cfg)
	ctx = xcontext.WithLogger(ctx, logger.NewLogger())

	tokenEngine := authenticator.NewTokenEngine[model.AccessToken](
		cfg.Auth.TokenSecret, cfg.Auth.AccessToken.Expiration)
	ctx = xcontext.WithTokenEngine(ctx, tokenEngine)

	sessionStore := sessions.NewCookieStore([]byte(cfg.Session.Secret))
	ctx = xcontext.WithSessionStore(ctx, sessionStore)

	snowflakeNode, err := snowflake.NewNode(getEnvAsInt64("SERVER_NODE_ID", 1))
	if err != nil {
		panic(err)
	}
	ctx = xcontext.WithSnowFlake(ctx, snowflakeNode)

	return ctx
}

func (s *srv) loadConfig() config.Configs {
	return config.Configs{
		Env: getEnv("ENV", "local"),
		Database: config.DatabaseConfigs{
			Host:     getEnv("MYSQL_HOST", "mysql"),
			Port:     getEnv("MYSQL_PORT", "3306"),
			User:     getEnv("MYSQL_USER", "patentx"),
			Password: getEnv("MYSQL_PASSWORD", "patentx"),
			Database: getEnv("MYSQL_DATABASE", "patentx"),
		},
		ApiServer: config.ServerConfigs{
			Host:         getEnv("API_HOST", "localhost"),
			Port:         getEnv("API_PORT", "8080"),
			Cert:         getEnv("API_SERVER_CERT", "cert"),
			Key:          getEnv("API_SERVER_KEY", "key"),
			MaxLimit:     getEnvAsInt("API_MAX_LIMIT", 50),
			DefaultLimit: getEnvAsInt("API_DEFAULT_LIMIT", 10),
		},
		Auth: config.AuthConfigs{
			TokenSecret: getEnv("TOKEN_SECRET", "token_secret"),
			AccessToken: config.TokenConfigs{
				Name:       "access_token",
				Expiration: getEnvAsDuration("ACCESS_TOKEN_DURATION", time.Hour),
			},
		},
		Session: config.SessionConfigs{
			Secret: getEnv("AUTH_SESSION_SECRET", "session_secret"),
			Name:   "auth_session",
		},
		Storage: storage.S3Configs{
			Region:         getEnv("STORAGE_REGION", "auto"),
			Endpoint:       getEnv("STORAGE_ENDPOINT", "http://localhost:9000"),
			PublicEndpoint: getEnv("STORAGE_PUBLIC_ENDPOINT", "http://localhost:9000"),
			AccessKey:      getEnv("STORAGE_ACCESS_KEY", "access_key"),
			SecretKey:      getEnv("STORAGE_SECRET_KEY", "secret_key"),
			SSLDisabled:    getEnvAsBool("STORAGE_SSL_DISABLE", true),
		},
		Redis: config.RedisConfigs{
			Addr: getEnv("REDIS_ADDRESS", "localhost:6379"),
		},
		Kafka: config.KafkaConfigs{
			Addr: getEnv("KAFKA_ADDRESS", "localhost:9092"),
		},
		Blockchain: config.BlockchainConfigs{
			Chain:                      s.loadChainConfig(),
			SecretKey:                  getEnv("BLOCKCHAIN_SECRET_KEY", "secret_key"),
			AdminPrivateKey:            getEnv("BLOCKCHAIN_ADMIN_PRIVATE_KEY", ""),
			TokenAddress:               getEnv("PATENT_TOKEN_ADDRESS", ""),
			MarketplaceAddress:         getEnv("MARKETPLACE_ADDRESS", ""),
			RewardCoinAddress:          getEnv("REWARD_COIN_ADDRESS", ""),
			ExplorerURL:                getEnv("BLOCKCHAIN_EXPLORER_URL", "https://mumbai.polygonscan.com"),
			RefreshConnectionFrequency: getEnvAsDuration("BLOCKCHAIN_REFRESH_CONNECTION_FREQUENCY", 10*time.Minute),
		},
		Launch: config.LaunchConfigs{
			Topic:           getEnv("LAUNCH_TOPIC", "launch_nft"),
			// One transient retry only. A failed launch needs an explicit
			// retrigger by the owner.
			MaxAttempts:     getEnvAsInt("LAUNCH_MAX_ATTEMPTS", 2),
			RetryBackoff:    getEnvAsDuration("LAUNCH_RETRY_BACKOFF", 5*time.Second),
			LaunchCredits:   getEnvAsInt64("LAUNCH_CREDITS", 1),
			TagRoyaltyCoins: getEnvAsFloat("TAG_ROYALTY_COINS", 0.1),
			MetadataBucket:  getEnv("METADATA_BUCKET", "nft-metadata"),
		},
		Marketplace: config.MarketplaceConfigs{
			ListingCredits:   getEnvAsInt64("LISTING_CREDITS", 1),
			TradeRewardCoins: getEnvAsFloat("TRADE_REWARD_COINS", 0),
		},
		Crowdfunding: config.CrowdfundingConfigs{
			RewardTopic: getEnv("CROWDFUNDING_REWARD_TOPIC", "crowdfunding_reward"),
		},
		Payment: config.PaymentConfigs{
			Endpoint: getEnv("PAYMENT_ENDPOINT", "https://api.stripe.com/v1"),
			APIKey:   getEnv("PAYMENT_API_KEY", ""),
		},
		Notification: config.NotificationConfigs{
			EngineRPCServer: config.RPCServerConfigs{
				Endpoint: getEnv("NOTIFICATION_ENGINE_RPC_ENDPOINT", "http://localhost:8081"),
				RPCName:  getEnv("NOTIFICATION_ENGINE_RPC_NAME", "notification"),
			},
		},
	}
}

// loadChainConfig reads the target chain definition from a toml file, falling
// back to Polygon Mumbai when no file is given.
func (s *srv) loadChainConfig() config.ChainConfig {
	path := os.Getenv("CHAIN_CONFIG")
	if path == "" {
		return config.ChainConfig{
			Chain:     "mumbai",
			ID:        80001,
			Rpcs:      strings.Split(getEnv("CHAIN_RPCS", "https://rpc-mumbai.maticvigil.com"), ","),
			BlockTime: 2,
		}
	}

	var chainCfg config.ChainConfig
	if _, err := toml.DecodeFile(path, &chainCfg); err != nil {
		panic(err)
	}

	return chainCfg
}

func (s *srv) newDatabase() *gorm.DB {
	databaseCfg := xcontext.Configs(s.ctx).Database
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       databaseCfg.ConnectionString(),
		DefaultStringSize:         256,
		DisableDatetimePrecision:  true,
		DontSupportRenameIndex:    true,
		DontSupportRenameColumn:   true,
		SkipInitializeWithVersion: false,
	}), &gorm.Config{})
	if err != nil {
		panic(err)
	}

	return db
}

func (s *srv) migrateDB() {
	if err := entity.MigrateTable(s.ctx); err != nil {
		panic(err)
	}
}

func (s *srv) loadRedisClient() {
	var err error
	s.redisClient, err = xredis.NewClient(s.ctx)
	if err != nil {
		panic(err)
	}
}

func (s *srv) loadStorage() {
	s.storage = storage.NewS3Storage(xcontext.Configs(s.ctx).Storage)
}

func (s *srv) loadPublisher() {
	s.publisher = kafka.NewPublisher(
		"patentx-backend", []string{xcontext.Configs(s.ctx).Kafka.Addr})
}

func (s *srv) loadEthClient() {
	chainCfg := xcontext.Configs(s.ctx).Blockchain.Chain
	s.ethClient = eth.NewEthClient(chainCfg.Chain, chainCfg.ID, chainCfg.Rpcs)
	s.ethClient.Start(s.ctx)

	gateway, err := eth.NewMarketplaceGateway(s.ctx, s.ethClient)
	if err != nil {
		panic(err)
	}
	s.chainCaller = gateway
}

func (s *srv) loadNotificationCaller() {
	rpcClient, err := rpc.DialContext(s.ctx,
		xcontext.Configs(s.ctx).Notification.EngineRPCServer.Endpoint)
	if err != nil {
		panic(err)
	}

	s.notificationCaller = client.NewNotificationEngineCaller(rpcClient)
}

func (s *srv) loadRepos() {
	s.userRepo = repository.NewUserRepository(s.redisClient)
	s.tagRepo = repository.NewTagRepository()
	s.applicationRepo = repository.NewApplicationRepository()
	s.nftRepo = repository.NewNftRepository()
	s.nftActivityRepo = repository.NewNftActivityRepository()
	s.bidRepo = repository.NewBidRepository()
	s.crowdfundingRepo = repository.NewCrowdfundingRepository()
	s.rewardIterationRepo = repository.NewRewardIterationRepository()
}

func (s *srv) loadDomains() {
	preflight := launchpad.NewPreflightValidator(s.chainCaller)

	s.walletAuthDomain = domain.NewWalletAuthDomain(s.userRepo)
	s.userDomain = domain.NewUserDomain(s.userRepo)
	s.applicationDomain = domain.NewApplicationDomain(s.applicationRepo)
	s.launchDomain = domain.NewLaunchDomain(preflight, s.publisher, s.applicationRepo, s.userRepo)
	s.marketplaceDomain = domain.NewMarketplaceDomain(
		s.chainCaller,
		s.notificationCaller,
		s.nftRepo,
		s.nftActivityRepo,
		s.bidRepo,
		s.userRepo,
	)
	s.crowdfundingDomain = domain.NewCrowdfundingDomain(
		s.publisher,
		s.notificationCaller,
		s.crowdfundingRepo,
		s.applicationRepo,
	)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}

	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}

	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}

	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}

	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}

	return fallback
}
