package entity

type User struct {
	Base

	Name          string
	WalletAddress string `gorm:"index"`

	// Credits is the off-chain balance debited on launches and listings.
	Credits int64

	// ReferredBy points to the influencer profile that referred this user,
	// if any. Referring influencers take a share of purchase rewards.
	ReferredBy string
}

type Tag struct {
	Base

	Name string `gorm:"uniqueIndex"`

	// RewardWalletAddress receives the tag's share of royalty coins
	// distributed on every mint under this tag.
	RewardWalletAddress string
}
