package entity

import (
	"context"

	"github.com/patentx-lab/backend/pkg/xcontext"
)

func MigrateTable(ctx context.Context) error {
	return xcontext.DB(ctx).AutoMigrate(
		&User{},
		&Tag{},
		&Application{},
		&NFT{},
		&NftActivity{},
		&Bid{},
		&CrowdfundingCampaign{},
		&RewardIteration{},
	)
}
