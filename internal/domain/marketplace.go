package domain

import (
	"context"
	"crypto/ecdsa"
	"database/sql"
	"errors"
	"math/big"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/patentx-lab/backend/internal/client"
	"github.com/patentx-lab/backend/internal/common"
	"github.com/patentx-lab/backend/internal/domain/notification/event"
	"github.com/patentx-lab/backend/internal/entity"
	"github.com/patentx-lab/backend/internal/model"
	"github.com/patentx-lab/backend/internal/repository"
	"github.com/patentx-lab/backend/pkg/errorx"
	"github.com/patentx-lab/backend/pkg/ethutil"
	"github.com/patentx-lab/backend/pkg/numberutil"
	"github.com/patentx-lab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type MarketplaceDomain interface {
	List(context.Context, *model.ListNftRequest) (*model.ListNftResponse, error)
	CancelListing(context.Context, *model.CancelListingRequest) (*model.CancelListingResponse, error)
	Buy(context.Context, *model.BuyNftRequest) (*model.BuyNftResponse, error)
	PlaceBid(context.Context, *model.PlaceBidRequest) (*model.PlaceBidResponse, error)
	AcceptOffer(context.Context, *model.AcceptOfferRequest) (*model.AcceptOfferResponse, error)
	Claim(context.Context, *model.ClaimNftRequest) (*model.ClaimNftResponse, error)
	Get(context.Context, *model.GetNftRequest) (*model.GetNftResponse, error)
}

type marketplaceDomain struct {
	chainCaller        client.ChainCaller
	notificationCaller client.NotificationEngineCaller

	nftRepo         repository.NftRepository
	nftActivityRepo repository.NftActivityRepository
	bidRepo         repository.BidRepository
	userRepo        repository.UserRepository
}

func NewMarketplaceDomain(
	chainCaller client.ChainCaller,
	notificationCaller client.NotificationEngineCaller,
	nftRepo repository.NftRepository,
	nftActivityRepo repository.NftActivityRepository,
	bidRepo repository.BidRepository,
	userRepo repository.UserRepository,
) *marketplaceDomain {
	return &marketplaceDomain{
		chainCaller:        chainCaller,
		notificationCaller: notificationCaller,
		nftRepo:            nftRepo,
		nftActivityRepo:    nftActivityRepo,
		bidRepo:            bidRepo,
		userRepo:           userRepo,
	}
}

func (d *marketplaceDomain) List(
	ctx context.Context, req *model.ListNftRequest,
) (*model.ListNftResponse, error) {
	userID := xcontext.RequestUserID(ctx)

	nft, err := d.getNft(ctx, req.TokenID)
	if err != nil {
		return nil, err
	}

	if nft.OwnerID != userID {
		return nil, errorx.New(errorx.PermissionDenied, "Only the owner can list this token")
	}

	// The contract decides who owns the token. A stale database mirror must
	// not let anyone list a token they no longer hold.
	onchainOwner, err := d.chainCaller.TokenOwnerOf(ctx, req.TokenID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot read owner of token %d: %v", req.TokenID, err)
		return nil, errorx.Unknown
	}

	callerAddress, err := ethutil.GeneratePublicKey(
		[]byte(xcontext.Configs(ctx).Blockchain.SecretKey), []byte(userID))
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot derive wallet of user %s: %v", userID, err)
		return nil, errorx.Unknown
	}

	if onchainOwner != callerAddress {
		return nil, errorx.New(errorx.PermissionDenied, "Your wallet does not own this token on chain")
	}

	if nft.IsListed {
		return nil, errorx.New(errorx.AlreadyListed, "This token is already listed")
	}

	if req.MaticPrice <= 0 || req.UsdPrice <= 0 {
		return nil, errorx.New(errorx.BadRequest, "Price must be positive")
	}

	if nft.ExpiryDate.Valid && nft.ExpiryDate.Time.Before(time.Now()) {
		return nil, errorx.New(errorx.Unavailable, "This patent token has expired")
	}

	var txHash string
	priceWei := numberutil.EtherToWei(req.MaticPrice)

	if req.OnAuction {
		now := time.Now().Unix()
		if req.AuctionStartTime >= req.AuctionEndTime || req.AuctionEndTime <= now {
			return nil, errorx.New(errorx.BadRequest, "Invalid auction time window")
		}

		txHash, err = d.chainCaller.ListAuction(
			ctx, req.TokenID, priceWei, req.AuctionStartTime, req.AuctionEndTime)
	} else {
		txHash, err = d.chainCaller.ListToken(ctx, req.TokenID, priceWei, d.listingExpiry(nft))
	}

	if err != nil {
		common.PromCounters[common.BlockchainTransactionFailure].WithLabelValues("list").Inc()
		xcontext.Logger(ctx).Errorf("Cannot list token %d on chain: %v", req.TokenID, err)
		return nil, errorx.Unknown
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if req.OnAuction {
		err = d.nftRepo.SetAuctionListing(ctx, req.TokenID, req.MaticPrice, req.UsdPrice,
			time.Unix(req.AuctionStartTime, 0), time.Unix(req.AuctionEndTime, 0), nft.ExpiryDate.Time)
	} else {
		err = d.nftRepo.SetFixedListing(ctx, req.TokenID, req.MaticPrice, req.UsdPrice, nft.ExpiryDate.Time)
	}

	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot store listing of token %d: %v", req.TokenID, err)
		return nil, errorx.Unknown
	}

	if err := d.nftActivityRepo.Create(ctx, &entity.NftActivity{
		Base:   entity.Base{ID: xcontext.SnowFlake(ctx).Generate().String()},
		NftID:  nft.ID,
		From:   userID,
		Event:  entity.NftActivityList,
		Price:  sql.NullFloat64{Float64: req.MaticPrice, Valid: true},
		TxHash: txHash,
	}); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create list activity: %v", err)
		return nil, errorx.Unknown
	}

	listingCredits := xcontext.Configs(ctx).Marketplace.ListingCredits
	if err := d.userRepo.DebitCredits(ctx, userID, listingCredits); err != nil {
		if errors.Is(err, repository.ErrInsufficientCredits) {
			return nil, errorx.New(errorx.Unavailable,
				"You need %d credits to list a token", listingCredits)
		}

		xcontext.Logger(ctx).Errorf("Cannot debit listing credits: %v", err)
		return nil, errorx.Unknown
	}

	xcontext.WithCommitDBTransaction(ctx)

	return &model.ListNftResponse{TxHash: txHash}, nil
}

func (d *marketplaceDomain) CancelListing(
	ctx context.Context, req *model.CancelListingRequest,
) (*model.CancelListingResponse, error) {
	userID := xcontext.RequestUserID(ctx)

	nft, err := d.getNft(ctx, req.TokenID)
	if err != nil {
		return nil, err
	}

	if nft.OwnerID != userID {
		return nil, errorx.New(errorx.PermissionDenied, "Only the owner can cancel this listing")
	}

	if !nft.IsListed {
		return nil, errorx.New(errorx.NotListed, "This token is not listed")
	}

	txHash, err := d.chainCaller.CancelListing(ctx, req.TokenID)
	if err != nil {
		common.PromCounters[common.BlockchainTransactionFailure].WithLabelValues("cancel").Inc()
		xcontext.Logger(ctx).Errorf("Cannot cancel listing of token %d on chain: %v", req.TokenID, err)
		return nil, errorx.Unknown
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := d.nftRepo.ClearListing(ctx, req.TokenID); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot clear listing of token %d: %v", req.TokenID, err)
		return nil, errorx.Unknown
	}

	// Cancelling an auction voids every standing offer.
	if err := d.bidRepo.DeleteByTokenID(ctx, req.TokenID); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot delete bids of token %d: %v", req.TokenID, err)
		return nil, errorx.Unknown
	}

	if err := d.nftActivityRepo.Create(ctx, &entity.NftActivity{
		Base:   entity.Base{ID: xcontext.SnowFlake(ctx).Generate().String()},
		NftID:  nft.ID,
		From:   userID,
		Event:  entity.NftActivityCancel,
		TxHash: txHash,
	}); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create cancel activity: %v", err)
		return nil, errorx.Unknown
	}

	xcontext.WithCommitDBTransaction(ctx)

	return &model.CancelListingResponse{TxHash: txHash}, nil
}

func (d *marketplaceDomain) Buy(
	ctx context.Context, req *model.BuyNftRequest,
) (*model.BuyNftResponse, error) {
	userID := xcontext.RequestUserID(ctx)

	nft, err := d.getNft(ctx, req.TokenID)
	if err != nil {
		return nil, err
	}

	if !nft.IsListed || nft.OnAuction {
		return nil, errorx.New(errorx.NotListed, "This token is not listed at a fixed price")
	}

	if nft.OwnerID == userID {
		return nil, errorx.New(errorx.BuyerIsSeller, "You cannot buy your own token")
	}

	if nft.ExpiryDate.Valid && nft.ExpiryDate.Time.Before(time.Now()) {
		return nil, errorx.New(errorx.Unavailable, "This listing has expired")
	}

	// The contract listing is authoritative for the settlement price; the
	// database price is only a display mirror.
	listing, err := d.chainCaller.ReadFixedListing(ctx, req.TokenID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot read listing of token %d: %v", req.TokenID, err)
		return nil, errorx.Unknown
	}

	buyerKey, err := d.userWalletKey(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot derive wallet of user %s: %v", userID, err)
		return nil, errorx.Unknown
	}

	if err := d.checkBuyerFunds(ctx, buyerKey, listing.PriceWei); err != nil {
		return nil, err
	}

	txHash, err := d.chainCaller.BuyToken(ctx, buyerKey, req.TokenID, listing.PriceWei)
	if err != nil {
		common.PromCounters[common.BlockchainTransactionFailure].WithLabelValues("buy").Inc()
		xcontext.Logger(ctx).Errorf("Cannot buy token %d on chain: %v", req.TokenID, err)
		return nil, errorx.Unknown
	}

	price := numberutil.WeiToEther(listing.PriceWei)

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := d.settleTransfer(ctx, nft, userID, entity.NftActivitySale, price, txHash); err != nil {
		return nil, err
	}

	xcontext.WithCommitDBTransaction(ctx)

	d.distributeTradeReward(ctx, userID)

	err = d.notificationCaller.Emit(ctx, event.New(
		event.NftSoldEvent{TokenID: req.TokenID, MaticPrice: price, BuyerID: userID},
		event.Metadata{To: nft.OwnerID},
	))
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot emit sold event: %v", err)
	}

	return &model.BuyNftResponse{TxHash: txHash}, nil
}

func (d *marketplaceDomain) PlaceBid(
	ctx context.Context, req *model.PlaceBidRequest,
) (*model.PlaceBidResponse, error) {
	userID := xcontext.RequestUserID(ctx)

	nft, err := d.getNft(ctx, req.TokenID)
	if err != nil {
		return nil, err
	}

	if !nft.IsListed || !nft.OnAuction {
		return nil, errorx.New(errorx.NotListed, "This token is not on auction")
	}

	if nft.OwnerID == userID {
		return nil, errorx.New(errorx.BuyerIsSeller, "You cannot bid on your own token")
	}

	now := time.Now()
	if nft.AuctionStartTime.Valid && now.Before(nft.AuctionStartTime.Time) {
		return nil, errorx.New(errorx.Unavailable, "The auction has not started yet")
	}

	if nft.AuctionEndTime.Valid && now.After(nft.AuctionEndTime.Time) {
		return nil, errorx.New(errorx.AuctionExpired, "The auction has ended")
	}

	// The contract auction state decides the minimum accepted bid. A bid
	// must strictly exceed both the initial price and the standing bid.
	auction, err := d.chainCaller.ReadAuction(ctx, req.TokenID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot read auction of token %d: %v", req.TokenID, err)
		return nil, errorx.Unknown
	}

	if auction.Sold {
		return nil, errorx.New(errorx.AuctionExpired, "The auction is already settled")
	}

	amountWei := numberutil.EtherToWei(req.MaticPrice)
	minimum := auction.InitialPriceWei
	if auction.CurrentBidWei != nil && auction.CurrentBidWei.Cmp(minimum) > 0 {
		minimum = auction.CurrentBidWei
	}

	if amountWei.Cmp(minimum) <= 0 {
		return nil, errorx.New(errorx.BidTooLow,
			"Your bid must exceed %f MATIC", numberutil.WeiToEther(minimum))
	}

	previousHighest, err := d.bidRepo.GetHighest(ctx, req.TokenID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot get highest bid of token %d: %v", req.TokenID, err)
		return nil, errorx.Unknown
	}

	bidderKey, err := d.userWalletKey(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot derive wallet of user %s: %v", userID, err)
		return nil, errorx.Unknown
	}

	txHash, err := d.chainCaller.PlaceBid(ctx, bidderKey, req.TokenID, amountWei)
	if err != nil {
		common.PromCounters[common.BlockchainTransactionFailure].WithLabelValues("bid").Inc()
		xcontext.Logger(ctx).Errorf("Cannot place bid on token %d: %v", req.TokenID, err)
		return nil, errorx.Unknown
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := d.bidRepo.Upsert(ctx, &entity.Bid{
		Base:       entity.Base{ID: uuid.NewString()},
		TokenID:    req.TokenID,
		UserID:     userID,
		MaticPrice: req.MaticPrice,
		UsdPrice:   req.UsdPrice,
	}); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot store bid: %v", err)
		return nil, errorx.Unknown
	}

	if err := d.nftActivityRepo.Create(ctx, &entity.NftActivity{
		Base:   entity.Base{ID: xcontext.SnowFlake(ctx).Generate().String()},
		NftID:  nft.ID,
		From:   userID,
		Event:  entity.NftActivityBid,
		Price:  sql.NullFloat64{Float64: req.MaticPrice, Valid: true},
		TxHash: txHash,
	}); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create bid activity: %v", err)
		return nil, errorx.Unknown
	}

	xcontext.WithCommitDBTransaction(ctx)

	if previousHighest != nil && previousHighest.UserID != userID {
		err = d.notificationCaller.Emit(ctx, event.New(
			event.OutbidEvent{TokenID: req.TokenID, MaticPrice: req.MaticPrice},
			event.Metadata{To: previousHighest.UserID},
		))
		if err != nil {
			xcontext.Logger(ctx).Warnf("Cannot emit outbid event: %v", err)
		}
	}

	return &model.PlaceBidResponse{TxHash: txHash}, nil
}

func (d *marketplaceDomain) AcceptOffer(
	ctx context.Context, req *model.AcceptOfferRequest,
) (*model.AcceptOfferResponse, error) {
	userID := xcontext.RequestUserID(ctx)

	nft, err := d.getNft(ctx, req.TokenID)
	if err != nil {
		return nil, err
	}

	if nft.OwnerID != userID {
		return nil, errorx.New(errorx.PermissionDenied, "Only the owner can accept an offer")
	}

	if !nft.IsListed || !nft.OnAuction {
		return nil, errorx.New(errorx.NotListed, "This token is not on auction")
	}

	highest, err := d.bidRepo.GetHighest(ctx, req.TokenID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NoBid, "There is no bid on this token yet")
		}

		xcontext.Logger(ctx).Errorf("Cannot get highest bid of token %d: %v", req.TokenID, err)
		return nil, errorx.Unknown
	}

	winnerAddress, err := ethutil.GeneratePublicKey(
		[]byte(xcontext.Configs(ctx).Blockchain.SecretKey), []byte(highest.UserID))
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot derive wallet of user %s: %v", highest.UserID, err)
		return nil, errorx.Unknown
	}

	txHash, err := d.chainCaller.EndAuction(ctx, req.TokenID, winnerAddress)
	if err != nil {
		common.PromCounters[common.BlockchainTransactionFailure].WithLabelValues("end_auction").Inc()
		xcontext.Logger(ctx).Errorf("Cannot end auction of token %d: %v", req.TokenID, err)
		return nil, errorx.Unknown
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	// The auction is decided, standing offers no longer bind anyone.
	if err := d.bidRepo.DeleteByTokenID(ctx, req.TokenID); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot delete bids of token %d: %v", req.TokenID, err)
		return nil, errorx.Unknown
	}

	if err := d.nftActivityRepo.Create(ctx, &entity.NftActivity{
		Base:   entity.Base{ID: xcontext.SnowFlake(ctx).Generate().String()},
		NftID:  nft.ID,
		From:   userID,
		To:     highest.UserID,
		Event:  entity.NftActivityAccept,
		Price:  sql.NullFloat64{Float64: highest.MaticPrice, Valid: true},
		TxHash: txHash,
	}); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create accept activity: %v", err)
		return nil, errorx.Unknown
	}

	xcontext.WithCommitDBTransaction(ctx)

	err = d.notificationCaller.Emit(ctx, event.New(
		event.OfferAcceptedEvent{TokenID: req.TokenID, MaticPrice: highest.MaticPrice},
		event.Metadata{To: highest.UserID},
	))
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot emit offer accepted event: %v", err)
	}

	return &model.AcceptOfferResponse{TxHash: txHash, WinnerID: highest.UserID}, nil
}

func (d *marketplaceDomain) Claim(
	ctx context.Context, req *model.ClaimNftRequest,
) (*model.ClaimNftResponse, error) {
	userID := xcontext.RequestUserID(ctx)

	nft, err := d.getNft(ctx, req.TokenID)
	if err != nil {
		return nil, err
	}

	if !nft.IsListed || !nft.OnAuction {
		return nil, errorx.New(errorx.NotListed, "This token is not on auction")
	}

	auction, err := d.chainCaller.ReadAuction(ctx, req.TokenID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot read auction of token %d: %v", req.TokenID, err)
		return nil, errorx.Unknown
	}

	// A claim needs the auction over, either the seller accepted an offer or
	// the bidding window ran out.
	if !auction.Sold && auction.EndTime != 0 && time.Now().Unix() < auction.EndTime {
		return nil, errorx.New(errorx.Unavailable, "The auction has not ended yet")
	}

	callerAddress, err := ethutil.GeneratePublicKey(
		[]byte(xcontext.Configs(ctx).Blockchain.SecretKey), []byte(userID))
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot derive wallet of user %s: %v", userID, err)
		return nil, errorx.Unknown
	}

	if auction.CurrentBidder != callerAddress {
		return nil, errorx.New(errorx.NotWinner, "Only the auction winner can claim this token")
	}

	winnerKey, err := d.userWalletKey(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot derive wallet of user %s: %v", userID, err)
		return nil, errorx.Unknown
	}

	txHash, err := d.chainCaller.ClaimToken(ctx, winnerKey, req.TokenID)
	if err != nil {
		common.PromCounters[common.BlockchainTransactionFailure].WithLabelValues("claim").Inc()
		xcontext.Logger(ctx).Errorf("Cannot claim token %d on chain: %v", req.TokenID, err)
		return nil, errorx.Unknown
	}

	price := numberutil.WeiToEther(auction.CurrentBidWei)

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := d.settleTransfer(ctx, nft, userID, entity.NftActivityClaim, price, txHash); err != nil {
		return nil, err
	}

	xcontext.WithCommitDBTransaction(ctx)

	d.distributeTradeReward(ctx, userID)

	return &model.ClaimNftResponse{TxHash: txHash}, nil
}

func (d *marketplaceDomain) Get(
	ctx context.Context, req *model.GetNftRequest,
) (*model.GetNftResponse, error) {
	nft, err := d.getNft(ctx, req.TokenID)
	if err != nil {
		return nil, err
	}

	activities, err := d.nftActivityRepo.GetByNftID(ctx, nft.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get activities of nft %s: %v", nft.ID, err)
		return nil, errorx.Unknown
	}

	bids, err := d.bidRepo.GetByTokenID(ctx, req.TokenID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get bids of token %d: %v", req.TokenID, err)
		return nil, errorx.Unknown
	}

	resp := &model.GetNftResponse{Nft: convertNft(nft)}
	for _, activity := range activities {
		resp.Activities = append(resp.Activities, model.NftActivity{
			Event:     string(activity.Event),
			From:      activity.From,
			To:        activity.To,
			Price:     activity.Price.Float64,
			TxHash:    activity.TxHash,
			CreatedAt: activity.CreatedAt.Format(time.RFC3339),
		})
	}

	for _, bid := range bids {
		resp.Bids = append(resp.Bids, model.Bid{
			UserID:     bid.UserID,
			MaticPrice: bid.MaticPrice,
			UsdPrice:   bid.UsdPrice,
		})
	}

	return resp, nil
}

func (d *marketplaceDomain) getNft(ctx context.Context, tokenID int64) (*entity.NFT, error) {
	nft, err := d.nftRepo.GetByTokenID(ctx, tokenID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found token")
		}

		xcontext.Logger(ctx).Errorf("Cannot get nft of token %d: %v", tokenID, err)
		return nil, errorx.Unknown
	}

	return nft, nil
}

// settleTransfer moves the database mirror after an on-chain sale or claim
// confirmed: new owner, no listing, no bids, plus the audit row.
func (d *marketplaceDomain) settleTransfer(
	ctx context.Context,
	nft *entity.NFT,
	newOwnerID string,
	ev entity.NftActivityEvent,
	price float64,
	txHash string,
) error {
	if err := d.nftRepo.TransferOwnership(ctx, nft.TokenID, newOwnerID); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot transfer ownership of token %d: %v", nft.TokenID, err)
		return errorx.Unknown
	}

	if err := d.nftRepo.ClearListing(ctx, nft.TokenID); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot clear listing of token %d: %v", nft.TokenID, err)
		return errorx.Unknown
	}

	if err := d.bidRepo.DeleteByTokenID(ctx, nft.TokenID); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot delete bids of token %d: %v", nft.TokenID, err)
		return errorx.Unknown
	}

	if err := d.nftActivityRepo.Create(ctx, &entity.NftActivity{
		Base:   entity.Base{ID: xcontext.SnowFlake(ctx).Generate().String()},
		NftID:  nft.ID,
		From:   nft.OwnerID,
		To:     newOwnerID,
		Event:  ev,
		Price:  sql.NullFloat64{Float64: price, Valid: true},
		TxHash: txHash,
	}); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create %s activity: %v", ev, err)
		return errorx.Unknown
	}

	return nil
}

// distributeTradeReward grants reward coins to the new owner after a settled
// trade. The settlement itself already succeeded, so a failed grant is only
// logged.
func (d *marketplaceDomain) distributeTradeReward(ctx context.Context, userID string) {
	amount := xcontext.Configs(ctx).Marketplace.TradeRewardCoins
	if amount <= 0 {
		return
	}

	address, err := ethutil.GeneratePublicKey(
		[]byte(xcontext.Configs(ctx).Blockchain.SecretKey), []byte(userID))
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot derive wallet of user %s: %v", userID, err)
		return
	}

	_, err = d.chainCaller.TransferRewardCoins(ctx, address, numberutil.EtherToWei(amount))
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot distribute trade reward to user %s: %v", userID, err)
	}
}

func (d *marketplaceDomain) userWalletKey(ctx context.Context, userID string) (*ecdsa.PrivateKey, error) {
	return ethutil.GeneratePrivateKey(
		[]byte(xcontext.Configs(ctx).Blockchain.SecretKey), []byte(userID))
}

// A settlement takes the price plus gas out of the buyer's custodial wallet.
// Padded the same way the launch preflight pads its estimate.
const buyGasLimit = 300000

func (d *marketplaceDomain) checkBuyerFunds(
	ctx context.Context, buyerKey *ecdsa.PrivateKey, priceWei *big.Int,
) error {
	buyerAddress := ethcrypto.PubkeyToAddress(buyerKey.PublicKey)

	balance, err := d.chainCaller.GetBalance(ctx, buyerAddress)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get balance of %s: %v", buyerAddress, err)
		return errorx.Unknown
	}

	gasPrice, err := d.chainCaller.GetGasPrice(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get gas price: %v", err)
		return errorx.Unknown
	}

	required := new(big.Int).Mul(gasPrice, big.NewInt(buyGasLimit))
	required = required.Add(required, priceWei)

	if balance.Cmp(required) < 0 {
		return errorx.New(errorx.BadRequest,
			"Your wallet cannot cover this purchase: required %f MATIC, available %f MATIC",
			numberutil.WeiToEther(required), numberutil.WeiToEther(balance))
	}

	return nil
}

func (d *marketplaceDomain) listingExpiry(nft *entity.NFT) int64 {
	if nft.ExpiryDate.Valid {
		return nft.ExpiryDate.Time.Unix()
	}
	return 0
}

func convertNft(nft *entity.NFT) model.Nft {
	result := model.Nft{
		ID:            nft.ID,
		Name:          nft.Name,
		ImageUrl:      nft.ImageUrl,
		OwnerID:       nft.OwnerID,
		ApplicationID: nft.ApplicationID,
		TokenID:       nft.TokenID,
		IsListed:      nft.IsListed,
		OnAuction:     nft.OnAuction,
		MaticPrice:    nft.MaticPrice.Float64,
		UsdPrice:      nft.UsdPrice.Float64,
	}

	if nft.ExpiryDate.Valid {
		result.ExpiryDate = nft.ExpiryDate.Time.Format(time.RFC3339)
	}

	if nft.AuctionStartTime.Valid {
		result.AuctionStartTime = nft.AuctionStartTime.Time.Format(time.RFC3339)
	}

	if nft.AuctionEndTime.Valid {
		result.AuctionEndTime = nft.AuctionEndTime.Time.Format(time.RFC3339)
	}

	return result
}
