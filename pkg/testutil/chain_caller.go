package testutil

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/patentx-lab/backend/internal/client"
	"github.com/patentx-lab/backend/pkg/errorx"
)

// MockAdminAddress is returned by the default AdminAddress and ContractOwner
// so that the contract ownership check of the preflight passes out of the box.
var MockAdminAddress = common.HexToAddress("0x1111111111111111111111111111111111111111")

type MockChainCaller struct {
	AdminAddressFunc        func() common.Address
	ContractOwnerFunc       func(ctx context.Context) (common.Address, error)
	GetBalanceFunc          func(ctx context.Context, address common.Address) (*big.Int, error)
	GetGasPriceFunc         func(ctx context.Context) (*big.Int, error)
	EstimateMintGasFunc     func(ctx context.Context, recipient common.Address, uri string) (uint64, error)
	MintPatentTokenFunc     func(ctx context.Context, recipient common.Address, uri string) (*client.MintResult, error)
	TokenOwnerOfFunc        func(ctx context.Context, tokenID int64) (common.Address, error)
	TokenExpiryFunc         func(ctx context.Context, tokenID int64) (int64, error)
	ListTokenFunc           func(ctx context.Context, tokenID int64, priceWei *big.Int, expiry int64) (string, error)
	ListAuctionFunc         func(ctx context.Context, tokenID int64, initialPriceWei *big.Int, start, end int64) (string, error)
	CancelListingFunc       func(ctx context.Context, tokenID int64) (string, error)
	BuyTokenFunc            func(ctx context.Context, buyer *ecdsa.PrivateKey, tokenID int64, priceWei *big.Int) (string, error)
	PlaceBidFunc            func(ctx context.Context, bidder *ecdsa.PrivateKey, tokenID int64, amountWei *big.Int) (string, error)
	EndAuctionFunc          func(ctx context.Context, tokenID int64, winner common.Address) (string, error)
	ClaimTokenFunc          func(ctx context.Context, winner *ecdsa.PrivateKey, tokenID int64) (string, error)
	ReadAuctionFunc         func(ctx context.Context, tokenID int64) (*client.Auction, error)
	ReadFixedListingFunc    func(ctx context.Context, tokenID int64) (*client.FixedListing, error)
	TransferRewardCoinsFunc func(ctx context.Context, to common.Address, amountWei *big.Int) (string, error)
}

func (m *MockChainCaller) AdminAddress() common.Address {
	if m.AdminAddressFunc != nil {
		return m.AdminAddressFunc()
	}

	return MockAdminAddress
}

func (m *MockChainCaller) ContractOwner(ctx context.Context) (common.Address, error) {
	if m.ContractOwnerFunc != nil {
		return m.ContractOwnerFunc(ctx)
	}

	return MockAdminAddress, nil
}

func (m *MockChainCaller) GetBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	if m.GetBalanceFunc != nil {
		return m.GetBalanceFunc(ctx, address)
	}

	// One ether, enough for any estimated gas in tests.
	return big.NewInt(1e18), nil
}

func (m *MockChainCaller) GetGasPrice(ctx context.Context) (*big.Int, error) {
	if m.GetGasPriceFunc != nil {
		return m.GetGasPriceFunc(ctx)
	}

	return big.NewInt(1e9), nil
}

func (m *MockChainCaller) EstimateMintGas(
	ctx context.Context, recipient common.Address, uri string,
) (uint64, error) {
	if m.EstimateMintGasFunc != nil {
		return m.EstimateMintGasFunc(ctx, recipient, uri)
	}

	return 100000, nil
}

func (m *MockChainCaller) MintPatentToken(
	ctx context.Context, recipient common.Address, uri string,
) (*client.MintResult, error) {
	if m.MintPatentTokenFunc != nil {
		return m.MintPatentTokenFunc(ctx, recipient, uri)
	}

	return nil, errorx.New(errorx.NotImplemented, "Not implemented")
}

func (m *MockChainCaller) TokenOwnerOf(ctx context.Context, tokenID int64) (common.Address, error) {
	if m.TokenOwnerOfFunc != nil {
		return m.TokenOwnerOfFunc(ctx, tokenID)
	}

	return common.Address{}, errorx.New(errorx.NotImplemented, "Not implemented")
}

func (m *MockChainCaller) TokenExpiry(ctx context.Context, tokenID int64) (int64, error) {
	if m.TokenExpiryFunc != nil {
		return m.TokenExpiryFunc(ctx, tokenID)
	}

	return 0, nil
}

func (m *MockChainCaller) ListToken(
	ctx context.Context, tokenID int64, priceWei *big.Int, expiry int64,
) (string, error) {
	if m.ListTokenFunc != nil {
		return m.ListTokenFunc(ctx, tokenID, priceWei, expiry)
	}

	return "", errorx.New(errorx.NotImplemented, "Not implemented")
}

func (m *MockChainCaller) ListAuction(
	ctx context.Context, tokenID int64, initialPriceWei *big.Int, start, end int64,
) (string, error) {
	if m.ListAuctionFunc != nil {
		return m.ListAuctionFunc(ctx, tokenID, initialPriceWei, start, end)
	}

	return "", errorx.New(errorx.NotImplemented, "Not implemented")
}

func (m *MockChainCaller) CancelListing(ctx context.Context, tokenID int64) (string, error) {
	if m.CancelListingFunc != nil {
		return m.CancelListingFunc(ctx, tokenID)
	}

	return "", errorx.New(errorx.NotImplemented, "Not implemented")
}

func (m *MockChainCaller) BuyToken(
	ctx context.Context, buyer *ecdsa.PrivateKey, tokenID int64, priceWei *big.Int,
) (string, error) {
	if m.BuyTokenFunc != nil {
		return m.BuyTokenFunc(ctx, buyer, tokenID, priceWei)
	}

	return "", errorx.New(errorx.NotImplemented, "Not implemented")
}

func (m *MockChainCaller) PlaceBid(
	ctx context.Context, bidder *ecdsa.PrivateKey, tokenID int64, amountWei *big.Int,
) (string, error) {
	if m.PlaceBidFunc != nil {
		return m.PlaceBidFunc(ctx, bidder, tokenID, amountWei)
	}

	return "", errorx.New(errorx.NotImplemented, "Not implemented")
}

func (m *MockChainCaller) EndAuction(
	ctx context.Context, tokenID int64, winner common.Address,
) (string, error) {
	if m.EndAuctionFunc != nil {
		return m.EndAuctionFunc(ctx, tokenID, winner)
	}

	return "", errorx.New(errorx.NotImplemented, "Not implemented")
}

func (m *MockChainCaller) ClaimToken(
	ctx context.Context, winner *ecdsa.PrivateKey, tokenID int64,
) (string, error) {
	if m.ClaimTokenFunc != nil {
		return m.ClaimTokenFunc(ctx, winner, tokenID)
	}

	return "", errorx.New(errorx.NotImplemented, "Not implemented")
}

func (m *MockChainCaller) ReadAuction(ctx context.Context, tokenID int64) (*client.Auction, error) {
	if m.ReadAuctionFunc != nil {
		return m.ReadAuctionFunc(ctx, tokenID)
	}

	return nil, errorx.New(errorx.NotImplemented, "Not implemented")
}

func (m *MockChainCaller) ReadFixedListing(
	ctx context.Context, tokenID int64,
) (*client.FixedListing, error) {
	if m.ReadFixedListingFunc != nil {
		return m.ReadFixedListingFunc(ctx, tokenID)
	}

	return nil, errorx.New(errorx.NotImplemented, "Not implemented")
}

func (m *MockChainCaller) TransferRewardCoins(
	ctx context.Context, to common.Address, amountWei *big.Int,
) (string, error) {
	if m.TransferRewardCoinsFunc != nil {
		return m.TransferRewardCoinsFunc(ctx, to, amountWei)
	}

	return "0xtransfer", nil
}
