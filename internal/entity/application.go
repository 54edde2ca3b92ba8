package entity

import (
	"database/sql"

	"github.com/patentx-lab/backend/pkg/enum"
)

type DeployingStatus string

var (
	// The empty string is treated everywhere as DeployingStatusNotDeployed,
	// because applications created before token launches existed carry no
	// status at all.
	DeployingStatusNotDeployed = enum.New(DeployingStatus("not_deployed"))
	DeployingStatusDeploying   = enum.New(DeployingStatus("deploying"))
	DeployingStatusDeployed    = enum.New(DeployingStatus("deployed"))
)

type StakingStatus string

var (
	StakingStatusInProgress = enum.New(StakingStatus("in_progress"))
	StakingStatusCompleted  = enum.New(StakingStatus("completed"))
	StakingStatusExpired    = enum.New(StakingStatus("expired"))
)

type Application struct {
	Base

	Title       string
	Description string
	ImageUrl    string

	OwnerID string
	Owner   User `gorm:"foreignKey:OwnerID"`

	IsFiled bool
	Tags    Array[string]

	DeployingStatus DeployingStatus

	// Set only by the launch worker after a confirmed mint. NftTokenID is
	// terminal: a later launch attempt must never overwrite it.
	NftTokenID        sql.NullInt64
	NftTransactionUrl string
	NftID             sql.NullString
	Nft               *NFT `gorm:"foreignKey:NftID"`

	StakingStatus StakingStatus
}
