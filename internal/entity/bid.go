package entity

// Bid mirrors a standing auction offer for UI and notification purposes.
// The on-chain auction record stays authoritative for settlement.
type Bid struct {
	Base

	TokenID int64  `gorm:"index:idx_bid_token_user,unique"`
	UserID  string `gorm:"index:idx_bid_token_user,unique"`

	MaticPrice float64
	UsdPrice   float64
}
