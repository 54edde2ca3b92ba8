package entity

import (
	"database/sql"

	"github.com/patentx-lab/backend/pkg/enum"
)

type NftActivityEvent string

var (
	NftActivityMint   = enum.New(NftActivityEvent("mint"))
	NftActivityList   = enum.New(NftActivityEvent("list"))
	NftActivityCancel = enum.New(NftActivityEvent("cancel"))
	NftActivitySale   = enum.New(NftActivityEvent("sale"))
	NftActivityBid    = enum.New(NftActivityEvent("bid"))
	NftActivityAccept = enum.New(NftActivityEvent("accept"))
	NftActivityClaim  = enum.New(NftActivityEvent("claim"))
)

// NftActivity is the append-only audit trail of settlement actions. A row is
// written only after the corresponding on-chain transaction confirmed.
type NftActivity struct {
	Base

	NftID string `gorm:"index"`
	Nft   NFT    `gorm:"foreignKey:NftID"`

	From string
	To   string

	Event  NftActivityEvent
	Price  sql.NullFloat64
	TxHash string
}
