package client

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrTxSubmitted marks a failure observed after the signed transaction left
// for the network. The chain may have mined it anyway, so the call must
// never be replayed.
var ErrTxSubmitted = errors.New("transaction already submitted")

// MintResult reports a confirmed mint transaction.
type MintResult struct {
	TokenID int64
	TxHash  string
}

// Auction mirrors the marketplace contract's auction record. It is the
// source of truth for bid settlement; the off-chain bid table only mirrors
// it.
type Auction struct {
	Seller          common.Address
	InitialPriceWei *big.Int
	CurrentBidder   common.Address
	CurrentBidWei   *big.Int
	StartTime       int64
	EndTime         int64
	Sold            bool
}

// FixedListing mirrors the marketplace contract's fixed-price listing.
type FixedListing struct {
	Seller   common.Address
	PriceWei *big.Int
}

// ChainCaller is the single gateway to the Token, Marketplace and RewardCoin
// contracts. Implementations serialize submissions from the shared admin
// signer; callers must not assume parallel submissions are safe.
type ChainCaller interface {
	AdminAddress() common.Address

	ContractOwner(ctx context.Context) (common.Address, error)
	GetBalance(ctx context.Context, address common.Address) (*big.Int, error)
	GetGasPrice(ctx context.Context) (*big.Int, error)

	EstimateMintGas(ctx context.Context, recipient common.Address, uri string) (uint64, error)
	MintPatentToken(ctx context.Context, recipient common.Address, uri string) (*MintResult, error)

	TokenOwnerOf(ctx context.Context, tokenID int64) (common.Address, error)
	TokenExpiry(ctx context.Context, tokenID int64) (int64, error)

	ListToken(ctx context.Context, tokenID int64, priceWei *big.Int, expiry int64) (string, error)
	ListAuction(ctx context.Context, tokenID int64, initialPriceWei *big.Int, start, end int64) (string, error)
	CancelListing(ctx context.Context, tokenID int64) (string, error)

	BuyToken(ctx context.Context, buyer *ecdsa.PrivateKey, tokenID int64, priceWei *big.Int) (string, error)
	PlaceBid(ctx context.Context, bidder *ecdsa.PrivateKey, tokenID int64, amountWei *big.Int) (string, error)
	EndAuction(ctx context.Context, tokenID int64, winner common.Address) (string, error)
	ClaimToken(ctx context.Context, winner *ecdsa.PrivateKey, tokenID int64) (string, error)

	ReadAuction(ctx context.Context, tokenID int64) (*Auction, error)
	ReadFixedListing(ctx context.Context, tokenID int64) (*FixedListing, error)

	TransferRewardCoins(ctx context.Context, to common.Address, amountWei *big.Int) (string, error)
}
