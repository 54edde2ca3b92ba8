package domain

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strconv"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/patentx-lab/backend/internal/client"
	"github.com/patentx-lab/backend/internal/entity"
	"github.com/patentx-lab/backend/internal/model"
	"github.com/patentx-lab/backend/internal/repository"
	"github.com/patentx-lab/backend/pkg/errorx"
	"github.com/patentx-lab/backend/pkg/ethutil"
	"github.com/patentx-lab/backend/pkg/numberutil"
	"github.com/patentx-lab/backend/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func newMarketplaceTestDomain(
	chainCaller client.ChainCaller, notificationCaller client.NotificationEngineCaller,
) *marketplaceDomain {
	return NewMarketplaceDomain(
		chainCaller,
		notificationCaller,
		repository.NewNftRepository(),
		repository.NewNftActivityRepository(),
		repository.NewBidRepository(),
		repository.NewUserRepository(&testutil.MockRedisClient{}),
	)
}

func requireErrorCode(t *testing.T, err error, code errorx.Code) {
	t.Helper()

	var errx errorx.Error
	require.ErrorAs(t, err, &errx)
	require.Equal(t, code, errx.Code)
}

func derivedWallet(t *testing.T, userID string) common.Address {
	address, err := ethutil.GeneratePublicKey([]byte("blockchain-secret"), []byte(userID))
	require.NoError(t, err)
	return address
}

func Test_marketplaceDomain_AuctionScenario(t *testing.T) {
	ctx := testutil.NewMockContext()

	seller := testutil.SampleUser(ctx, nil)
	alice := testutil.SampleUser(ctx, nil)
	bob := testutil.SampleUser(ctx, nil)

	const tokenID = int64(42)
	testutil.SampleNft(ctx, &entity.NFT{OwnerID: seller.ID, TokenID: tokenID})

	// The mock contract keeps its own auction record, just like the real
	// marketplace contract does.
	auction := &client.Auction{
		InitialPriceWei: numberutil.EtherToWei(5),
		EndTime:         time.Now().Add(time.Hour).Unix(),
	}
	chainCaller := &testutil.MockChainCaller{
		TokenOwnerOfFunc: func(ctx context.Context, tokenID int64) (common.Address, error) {
			return derivedWallet(t, seller.ID), nil
		},
		ListAuctionFunc: func(ctx context.Context, tokenID int64, initialPriceWei *big.Int, start, end int64) (string, error) {
			return "0xlist", nil
		},
		ReadAuctionFunc: func(ctx context.Context, tokenID int64) (*client.Auction, error) {
			return auction, nil
		},
		PlaceBidFunc: func(ctx context.Context, bidder *ecdsa.PrivateKey, tokenID int64, amountWei *big.Int) (string, error) {
			auction.CurrentBidWei = amountWei
			return "0xbid", nil
		},
		EndAuctionFunc: func(ctx context.Context, tokenID int64, winner common.Address) (string, error) {
			auction.Sold = true
			return "0xend", nil
		},
		ClaimTokenFunc: func(ctx context.Context, winner *ecdsa.PrivateKey, tokenID int64) (string, error) {
			return "0xclaim", nil
		},
	}

	notificationCaller := &testutil.MockNotificationEngineCaller{}
	marketplaceDomain := newMarketplaceTestDomain(chainCaller, notificationCaller)

	sellerCtx := testutil.NewMockContextWithUserID(ctx, seller.ID)
	aliceCtx := testutil.NewMockContextWithUserID(ctx, alice.ID)
	bobCtx := testutil.NewMockContextWithUserID(ctx, bob.ID)

	// Only the owner can open the auction.
	listReq := &model.ListNftRequest{
		TokenID:          tokenID,
		MaticPrice:       5,
		UsdPrice:         4,
		OnAuction:        true,
		AuctionStartTime: time.Now().Add(-time.Minute).Unix(),
		AuctionEndTime:   time.Now().Add(time.Hour).Unix(),
	}
	_, err := marketplaceDomain.List(aliceCtx, listReq)
	requireErrorCode(t, err, errorx.PermissionDenied)

	listResp, err := marketplaceDomain.List(sellerCtx, listReq)
	require.NoError(t, err)
	require.Equal(t, "0xlist", listResp.TxHash)

	_, err = marketplaceDomain.List(sellerCtx, listReq)
	requireErrorCode(t, err, errorx.AlreadyListed)

	// The seller cannot bid on their own token.
	_, err = marketplaceDomain.PlaceBid(sellerCtx, &model.PlaceBidRequest{TokenID: tokenID, MaticPrice: 10})
	requireErrorCode(t, err, errorx.BuyerIsSeller)

	// A bid at the initial price is not enough, it must exceed it.
	_, err = marketplaceDomain.PlaceBid(aliceCtx, &model.PlaceBidRequest{TokenID: tokenID, MaticPrice: 5})
	requireErrorCode(t, err, errorx.BidTooLow)

	_, err = marketplaceDomain.PlaceBid(aliceCtx, &model.PlaceBidRequest{TokenID: tokenID, MaticPrice: 10, UsdPrice: 8})
	require.NoError(t, err)

	// Bob outbids alice, who gets notified.
	_, err = marketplaceDomain.PlaceBid(bobCtx, &model.PlaceBidRequest{TokenID: tokenID, MaticPrice: 15, UsdPrice: 12})
	require.NoError(t, err)

	require.Len(t, notificationCaller.Emitted, 1)
	require.Equal(t, "outbid", notificationCaller.Emitted[0].Op)
	require.Equal(t, alice.ID, notificationCaller.Emitted[0].Metadata.To)

	// Matching the standing bid is still too low.
	_, err = marketplaceDomain.PlaceBid(aliceCtx, &model.PlaceBidRequest{TokenID: tokenID, MaticPrice: 15})
	requireErrorCode(t, err, errorx.BidTooLow)

	// Alice raises, replacing her previous row instead of adding one.
	_, err = marketplaceDomain.PlaceBid(aliceCtx, &model.PlaceBidRequest{TokenID: tokenID, MaticPrice: 20, UsdPrice: 16})
	require.NoError(t, err)

	bids, err := repository.NewBidRepository().GetByTokenID(ctx, tokenID)
	require.NoError(t, err)
	require.Len(t, bids, 2)

	// Nobody claims while the bidding is still open.
	_, err = marketplaceDomain.Claim(aliceCtx, &model.ClaimNftRequest{TokenID: tokenID})
	requireErrorCode(t, err, errorx.Unavailable)

	// Only the owner decides the auction.
	_, err = marketplaceDomain.AcceptOffer(bobCtx, &model.AcceptOfferRequest{TokenID: tokenID})
	requireErrorCode(t, err, errorx.PermissionDenied)

	acceptResp, err := marketplaceDomain.AcceptOffer(sellerCtx, &model.AcceptOfferRequest{TokenID: tokenID})
	require.NoError(t, err)
	require.Equal(t, "0xend", acceptResp.TxHash)
	require.Equal(t, alice.ID, acceptResp.WinnerID)

	// The auction is decided, standing offers are gone.
	bids, err = repository.NewBidRepository().GetByTokenID(ctx, tokenID)
	require.NoError(t, err)
	require.Empty(t, bids)

	accepted := notificationCaller.Emitted[len(notificationCaller.Emitted)-1]
	require.Equal(t, "offer_accepted", accepted.Op)
	require.Equal(t, alice.ID, accepted.Metadata.To)

	// A settled auction takes no further bids.
	_, err = marketplaceDomain.PlaceBid(bobCtx, &model.PlaceBidRequest{TokenID: tokenID, MaticPrice: 25})
	requireErrorCode(t, err, errorx.AuctionExpired)

	// Only the winner can claim.
	auction.CurrentBidder = derivedWallet(t, alice.ID)
	auction.CurrentBidWei = numberutil.EtherToWei(20)

	_, err = marketplaceDomain.Claim(bobCtx, &model.ClaimNftRequest{TokenID: tokenID})
	requireErrorCode(t, err, errorx.NotWinner)

	claimResp, err := marketplaceDomain.Claim(aliceCtx, &model.ClaimNftRequest{TokenID: tokenID})
	require.NoError(t, err)
	require.Equal(t, "0xclaim", claimResp.TxHash)

	nft, err := repository.NewNftRepository().GetByTokenID(ctx, tokenID)
	require.NoError(t, err)
	require.Equal(t, alice.ID, nft.OwnerID)
	require.False(t, nft.IsListed)
	require.False(t, nft.OnAuction)

	activities, err := repository.NewNftActivityRepository().GetByNftID(ctx, nft.ID)
	require.NoError(t, err)

	var claimActivity *entity.NftActivity
	for i := range activities {
		if activities[i].Event == entity.NftActivityClaim {
			claimActivity = &activities[i]
		}
	}
	require.NotNil(t, claimActivity)
	require.Equal(t, seller.ID, claimActivity.From)
	require.Equal(t, alice.ID, claimActivity.To)
	require.Equal(t, float64(20), claimActivity.Price.Float64)

	// Activity rows get time-ordered snowflake ids.
	for _, activity := range activities {
		_, err := strconv.ParseInt(activity.ID, 10, 64)
		require.NoError(t, err)
	}
}

func Test_marketplaceDomain_BuyScenario(t *testing.T) {
	ctx := testutil.NewMockContext()

	seller := testutil.SampleUser(ctx, nil)
	buyer := testutil.SampleUser(ctx, nil)

	const tokenID = int64(7)
	testutil.SampleNft(ctx, &entity.NFT{OwnerID: seller.ID, TokenID: tokenID})

	var rewardedTo []common.Address
	balance := numberutil.EtherToWei(1)
	chainCaller := &testutil.MockChainCaller{
		TokenOwnerOfFunc: func(ctx context.Context, tokenID int64) (common.Address, error) {
			return derivedWallet(t, seller.ID), nil
		},
		GetBalanceFunc: func(ctx context.Context, address common.Address) (*big.Int, error) {
			return balance, nil
		},
		ListTokenFunc: func(ctx context.Context, tokenID int64, priceWei *big.Int, expiry int64) (string, error) {
			return "0xlist", nil
		},
		ReadFixedListingFunc: func(ctx context.Context, tokenID int64) (*client.FixedListing, error) {
			return &client.FixedListing{PriceWei: numberutil.EtherToWei(2)}, nil
		},
		BuyTokenFunc: func(ctx context.Context, bidder *ecdsa.PrivateKey, tokenID int64, priceWei *big.Int) (string, error) {
			return "0xbuy", nil
		},
		TransferRewardCoinsFunc: func(ctx context.Context, to common.Address, amountWei *big.Int) (string, error) {
			rewardedTo = append(rewardedTo, to)
			return "0xtransfer", nil
		},
	}

	notificationCaller := &testutil.MockNotificationEngineCaller{}
	marketplaceDomain := newMarketplaceTestDomain(chainCaller, notificationCaller)

	sellerCtx := testutil.NewMockContextWithUserID(ctx, seller.ID)
	buyerCtx := testutil.NewMockContextWithUserID(ctx, buyer.ID)

	// Not listed yet.
	_, err := marketplaceDomain.Buy(buyerCtx, &model.BuyNftRequest{TokenID: tokenID})
	requireErrorCode(t, err, errorx.NotListed)

	_, err = marketplaceDomain.List(sellerCtx, &model.ListNftRequest{
		TokenID: tokenID, MaticPrice: 2, UsdPrice: 1.5,
	})
	require.NoError(t, err)

	_, err = marketplaceDomain.Buy(sellerCtx, &model.BuyNftRequest{TokenID: tokenID})
	requireErrorCode(t, err, errorx.BuyerIsSeller)

	// One MATIC cannot settle a two MATIC listing plus gas.
	_, err = marketplaceDomain.Buy(buyerCtx, &model.BuyNftRequest{TokenID: tokenID})
	requireErrorCode(t, err, errorx.BadRequest)

	balance = numberutil.EtherToWei(5)
	buyResp, err := marketplaceDomain.Buy(buyerCtx, &model.BuyNftRequest{TokenID: tokenID})
	require.NoError(t, err)
	require.Equal(t, "0xbuy", buyResp.TxHash)

	nft, err := repository.NewNftRepository().GetByTokenID(ctx, tokenID)
	require.NoError(t, err)
	require.Equal(t, buyer.ID, nft.OwnerID)
	require.False(t, nft.IsListed)
	require.False(t, nft.MaticPrice.Valid)

	sold := notificationCaller.Emitted[len(notificationCaller.Emitted)-1]
	require.Equal(t, "nft_sold", sold.Op)
	require.Equal(t, seller.ID, sold.Metadata.To)

	// The buyer receives the trade reward once, at their custodial wallet.
	require.Equal(t, []common.Address{derivedWallet(t, buyer.ID)}, rewardedTo)

	// The settled listing cannot be bought twice.
	_, err = marketplaceDomain.Buy(sellerCtx, &model.BuyNftRequest{TokenID: tokenID})
	requireErrorCode(t, err, errorx.NotListed)
}

func Test_marketplaceDomain_CancelListing(t *testing.T) {
	ctx := testutil.NewMockContext()

	seller := testutil.SampleUser(ctx, nil)
	bidder := testutil.SampleUser(ctx, nil)

	const tokenID = int64(9)
	testutil.SampleNft(ctx, &entity.NFT{OwnerID: seller.ID, TokenID: tokenID})

	auction := &client.Auction{InitialPriceWei: numberutil.EtherToWei(1)}
	chainCaller := &testutil.MockChainCaller{
		TokenOwnerOfFunc: func(ctx context.Context, tokenID int64) (common.Address, error) {
			return derivedWallet(t, seller.ID), nil
		},
		ListAuctionFunc: func(ctx context.Context, tokenID int64, initialPriceWei *big.Int, start, end int64) (string, error) {
			return "0xlist", nil
		},
		ReadAuctionFunc: func(ctx context.Context, tokenID int64) (*client.Auction, error) {
			return auction, nil
		},
		PlaceBidFunc: func(ctx context.Context, bidder *ecdsa.PrivateKey, tokenID int64, amountWei *big.Int) (string, error) {
			auction.CurrentBidWei = amountWei
			return "0xbid", nil
		},
		CancelListingFunc: func(ctx context.Context, tokenID int64) (string, error) {
			return "0xcancel", nil
		},
	}

	marketplaceDomain := newMarketplaceTestDomain(chainCaller, &testutil.MockNotificationEngineCaller{})

	sellerCtx := testutil.NewMockContextWithUserID(ctx, seller.ID)
	bidderCtx := testutil.NewMockContextWithUserID(ctx, bidder.ID)

	_, err := marketplaceDomain.List(sellerCtx, &model.ListNftRequest{
		TokenID:          tokenID,
		MaticPrice:       1,
		UsdPrice:         1,
		OnAuction:        true,
		AuctionStartTime: time.Now().Add(-time.Minute).Unix(),
		AuctionEndTime:   time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)

	_, err = marketplaceDomain.PlaceBid(bidderCtx, &model.PlaceBidRequest{TokenID: tokenID, MaticPrice: 2})
	require.NoError(t, err)

	_, err = marketplaceDomain.CancelListing(bidderCtx, &model.CancelListingRequest{TokenID: tokenID})
	requireErrorCode(t, err, errorx.PermissionDenied)

	cancelResp, err := marketplaceDomain.CancelListing(sellerCtx, &model.CancelListingRequest{TokenID: tokenID})
	require.NoError(t, err)
	require.Equal(t, "0xcancel", cancelResp.TxHash)

	// Cancelling voids the standing offers.
	bids, err := repository.NewBidRepository().GetByTokenID(ctx, tokenID)
	require.NoError(t, err)
	require.Empty(t, bids)

	nft, err := repository.NewNftRepository().GetByTokenID(ctx, tokenID)
	require.NoError(t, err)
	require.False(t, nft.IsListed)

	_, err = marketplaceDomain.CancelListing(sellerCtx, &model.CancelListingRequest{TokenID: tokenID})
	requireErrorCode(t, err, errorx.NotListed)
}

func Test_marketplaceDomain_ListChecksOnchainOwner(t *testing.T) {
	ctx := testutil.NewMockContext()

	seller := testutil.SampleUser(ctx, nil)
	stranger := testutil.SampleUser(ctx, nil)

	const tokenID = int64(11)
	testutil.SampleNft(ctx, &entity.NFT{OwnerID: seller.ID, TokenID: tokenID})

	// The database says seller, the contract says someone else moved it.
	chainCaller := &testutil.MockChainCaller{
		TokenOwnerOfFunc: func(ctx context.Context, tokenID int64) (common.Address, error) {
			return derivedWallet(t, stranger.ID), nil
		},
		ListTokenFunc: func(ctx context.Context, tokenID int64, priceWei *big.Int, expiry int64) (string, error) {
			return "0xlist", nil
		},
	}

	marketplaceDomain := newMarketplaceTestDomain(chainCaller, &testutil.MockNotificationEngineCaller{})
	sellerCtx := testutil.NewMockContextWithUserID(ctx, seller.ID)

	_, err := marketplaceDomain.List(sellerCtx, &model.ListNftRequest{
		TokenID: tokenID, MaticPrice: 1, UsdPrice: 1,
	})
	requireErrorCode(t, err, errorx.PermissionDenied)

	nft, err := repository.NewNftRepository().GetByTokenID(ctx, tokenID)
	require.NoError(t, err)
	require.False(t, nft.IsListed)
}
