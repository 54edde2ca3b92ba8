package testutil

import (
	"context"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/patentx-lab/backend/internal/entity"
	"github.com/patentx-lab/backend/internal/repository"
)

// SampleUser creates a new user in the database with randomized fields. The
// sample can be overwritten by non-zero fields of init.
func SampleUser(ctx context.Context, init *entity.User) entity.User {
	userRepo := repository.NewUserRepository(&MockRedisClient{})

	sample := &entity.User{
		Base:          entity.Base{ID: uuid.NewString()},
		Name:          uuid.NewString(),
		WalletAddress: "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B",
		Credits:       100,
	}

	if init != nil {
		overwriteFields(sample, *init)
	}

	if err := userRepo.Create(ctx, sample); err != nil {
		panic(err)
	}

	return *sample
}

func SampleApplication(ctx context.Context, init *entity.Application) entity.Application {
	applicationRepo := repository.NewApplicationRepository()

	sample := &entity.Application{
		Base:        entity.Base{ID: uuid.NewString()},
		Title:       uuid.NewString(),
		Description: "A self-cleaning water filter",
		ImageUrl:    "http://storage.local/images/filter.png",
		OwnerID:     uuid.NewString(),
		IsFiled:     true,
		Tags:        entity.Array[string]{"water", "filtration"},
	}

	if init != nil {
		overwriteFields(sample, *init)
	}

	if err := applicationRepo.Create(ctx, sample); err != nil {
		panic(err)
	}

	return *sample
}

func SampleNft(ctx context.Context, init *entity.NFT) entity.NFT {
	nftRepo := repository.NewNftRepository()

	sample := &entity.NFT{
		Base:            entity.Base{ID: uuid.NewString()},
		Name:            uuid.NewString(),
		ImageUrl:        "http://storage.local/thumbnails/nft.png",
		OwnerID:         uuid.NewString(),
		ApplicationID:   uuid.NewString(),
		TokenID:         time.Now().UnixNano(),
		TransactionHash: "0xmint",
	}

	if init != nil {
		overwriteFields(sample, *init)
	}

	if err := nftRepo.Create(ctx, sample); err != nil {
		panic(err)
	}

	return *sample
}

func SampleCampaign(ctx context.Context, init *entity.CrowdfundingCampaign) entity.CrowdfundingCampaign {
	crowdfundingRepo := repository.NewCrowdfundingRepository()

	sample := &entity.CrowdfundingCampaign{
		Base:               entity.Base{ID: uuid.NewString()},
		ApplicationID:      uuid.NewString(),
		ManufacturerID:     uuid.NewString(),
		MinimumStakeAmount: 100,
		StakingThreshold:   500,
		Status:             entity.CampaignStatusInProgress,
		TimePeriod:         time.Now().Add(time.Hour),
	}

	if init != nil {
		overwriteFields(sample, *init)
	}

	if err := crowdfundingRepo.Create(ctx, sample); err != nil {
		panic(err)
	}

	return *sample
}

func overwriteFields[T any](origin *T, overwrite T) {
	originValue := reflect.ValueOf(origin).Elem()
	overwriteValue := reflect.ValueOf(overwrite)

	for i := 0; i < overwriteValue.NumField(); i++ {
		overwriteField := overwriteValue.Field(i)
		if !overwriteField.IsZero() {
			originValue.Field(i).Set(overwriteField)
		}
	}
}
