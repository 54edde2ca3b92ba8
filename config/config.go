package config

import (
	"fmt"
	"time"

	"github.com/patentx-lab/backend/pkg/storage"
)

type Configs struct {
	Env string

	Database     DatabaseConfigs
	ApiServer    ServerConfigs
	Auth         AuthConfigs
	Session      SessionConfigs
	Storage      storage.S3Configs
	Redis        RedisConfigs
	Kafka        KafkaConfigs
	Blockchain   BlockchainConfigs
	Launch       LaunchConfigs
	Marketplace  MarketplaceConfigs
	Crowdfunding CrowdfundingConfigs
	Payment      PaymentConfigs
	Notification NotificationConfigs
}

type DatabaseConfigs struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

func (d *DatabaseConfigs) ConnectionString() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
	)
}

type ServerConfigs struct {
	Host string
	Port string
	Cert string
	Key  string

	MaxLimit     int
	DefaultLimit int
}

type AuthConfigs struct {
	TokenSecret string
	AccessToken TokenConfigs
}

type TokenConfigs struct {
	Name       string
	Expiration time.Duration
}

type SessionConfigs struct {
	Secret string
	Name   string
}

type RedisConfigs struct {
	Addr string
}

type KafkaConfigs struct {
	Addr string
}

type BlockchainConfigs struct {
	Chain ChainConfig

	// SecretKey seeds deterministic wallet derivation for platform accounts.
	SecretKey string

	// AdminPrivateKey is the hex-encoded key of the custodial signer that
	// pays gas for every mint and settlement transaction.
	AdminPrivateKey string

	TokenAddress       string
	MarketplaceAddress string
	RewardCoinAddress  string

	ExplorerURL string

	RefreshConnectionFrequency time.Duration
}

type ChainConfig struct {
	Chain string   `toml:"chain" json:"chain"`
	ID    int64    `toml:"id" json:"id"`
	Rpcs  []string `toml:"rpcs" json:"rpcs"`

	UseExternalRpcs bool `toml:"use_external_rpcs" json:"use_external_rpcs"`

	BlockTime  int `toml:"block_time" json:"block_time"`
	AdjustTime int `toml:"adjust_time" json:"adjust_time"`
}

type LaunchConfigs struct {
	Topic        string
	MaxAttempts  int
	RetryBackoff time.Duration

	// LaunchCredits is debited from the owner on every successful mint.
	LaunchCredits int64

	// TagRoyaltyCoins is the amount of reward coins sent to each tag's
	// reward wallet when a token under that tag is minted.
	TagRoyaltyCoins float64

	MetadataBucket string
}

type MarketplaceConfigs struct {
	ListingCredits int64

	// Reward coins granted to the new owner after a sale or claim settles.
	TradeRewardCoins float64
}

type CrowdfundingConfigs struct {
	RewardTopic string
}

type PaymentConfigs struct {
	Endpoint string
	APIKey   string
}

type NotificationConfigs struct {
	EngineRPCServer RPCServerConfigs
}

type RPCServerConfigs struct {
	Endpoint string
	RPCName  string
}
