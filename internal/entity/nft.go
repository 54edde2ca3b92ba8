package entity

import "database/sql"

type NFT struct {
	Base

	Name     string
	ImageUrl string

	OwnerID string
	Owner   User `gorm:"foreignKey:OwnerID"`

	ApplicationID string
	Application   Application `gorm:"foreignKey:ApplicationID"`

	TokenID         int64 `gorm:"uniqueIndex"`
	TransactionHash string

	Tags Array[string]

	// Listing state. OnAuction implies IsListed; whenever IsListed turns
	// false the price and time fields below go back to NULL.
	IsListed         bool
	OnAuction        bool
	MaticPrice       sql.NullFloat64
	UsdPrice         sql.NullFloat64
	ExpiryDate       sql.NullTime
	AuctionStartTime sql.NullTime
	AuctionEndTime   sql.NullTime
}
