package eth

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/patentx-lab/backend/internal/client"
	"github.com/patentx-lab/backend/pkg/xcontext"
	"golang.org/x/crypto/sha3"
)

const (
	// Gas limits are padded over the node estimate to absorb state drift
	// between estimation and inclusion.
	gasLimitBufferNumerator   = 120
	gasLimitBufferDenominator = 100

	receiptTimeout = 2 * time.Minute
)

const patentTokenABI = `[
	{"name":"mint","type":"function","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"uri","type":"string"}],"outputs":[{"name":"tokenId","type":"uint256"}]},
	{"name":"owner","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"name":"ownerOf","type":"function","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
	{"name":"tokenExpiry","type":"function","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"Transfer","type":"event","inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"tokenId","type":"uint256","indexed":true}]}
]`

const marketplaceABI = `[
	{"name":"createListing","type":"function","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"},{"name":"price","type":"uint256"},{"name":"expiry","type":"uint256"}],"outputs":[]},
	{"name":"createAuction","type":"function","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"},{"name":"initialPrice","type":"uint256"},{"name":"startTime","type":"uint256"},{"name":"endTime","type":"uint256"}],"outputs":[]},
	{"name":"cancelListing","type":"function","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]},
	{"name":"buy","type":"function","stateMutability":"payable","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]},
	{"name":"bid","type":"function","stateMutability":"payable","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]},
	{"name":"endAuction","type":"function","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"},{"name":"winner","type":"address"}],"outputs":[]},
	{"name":"claim","type":"function","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]},
	{"name":"listings","type":"function","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"seller","type":"address"},{"name":"price","type":"uint256"}]},
	{"name":"auctions","type":"function","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"seller","type":"address"},{"name":"initialPrice","type":"uint256"},{"name":"currentBidder","type":"address"},{"name":"currentBid","type":"uint256"},{"name":"startTime","type":"uint256"},{"name":"endTime","type":"uint256"},{"name":"sold","type":"bool"}]}
]`

// MarketplaceGateway wraps the Token, Marketplace and RewardCoin contracts
// behind client.ChainCaller. All submissions share one mutex so nonces from
// the custodial signer never race.
type MarketplaceGateway struct {
	ethClient EthClient
	chainID   *big.Int
	blockTime time.Duration

	adminKey     *ecdsa.PrivateKey
	adminAddress common.Address

	tokenAddress       common.Address
	marketplaceAddress common.Address
	rewardCoinAddress  common.Address

	tokenABI       abi.ABI
	marketplaceABI abi.ABI

	transferTopic common.Hash

	submitMutex sync.Mutex
}

func NewMarketplaceGateway(ctx context.Context, ethClient EthClient) (*MarketplaceGateway, error) {
	cfg := xcontext.Configs(ctx).Blockchain

	tokenABI, err := abi.JSON(strings.NewReader(patentTokenABI))
	if err != nil {
		return nil, err
	}

	marketABI, err := abi.JSON(strings.NewReader(marketplaceABI))
	if err != nil {
		return nil, err
	}

	adminKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.AdminPrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid admin private key: %w", err)
	}

	blockTime := time.Duration(cfg.Chain.BlockTime) * time.Second
	if blockTime <= 0 {
		blockTime = 2 * time.Second
	}

	return &MarketplaceGateway{
		ethClient:          ethClient,
		chainID:            big.NewInt(cfg.Chain.ID),
		blockTime:          blockTime,
		adminKey:           adminKey,
		adminAddress:       crypto.PubkeyToAddress(adminKey.PublicKey),
		tokenAddress:       common.HexToAddress(cfg.TokenAddress),
		marketplaceAddress: common.HexToAddress(cfg.MarketplaceAddress),
		rewardCoinAddress:  common.HexToAddress(cfg.RewardCoinAddress),
		tokenABI:           tokenABI,
		marketplaceABI:     marketABI,
		transferTopic:      tokenABI.Events["Transfer"].ID,
	}, nil
}

func (g *MarketplaceGateway) AdminAddress() common.Address {
	return g.adminAddress
}

func (g *MarketplaceGateway) ContractOwner(ctx context.Context) (common.Address, error) {
	out, err := g.call(ctx, g.tokenAddress, g.tokenABI, "owner")
	if err != nil {
		return common.Address{}, err
	}

	return out[0].(common.Address), nil
}

func (g *MarketplaceGateway) GetBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	return g.ethClient.BalanceAt(ctx, address, nil)
}

func (g *MarketplaceGateway) GetGasPrice(ctx context.Context) (*big.Int, error) {
	return g.ethClient.SuggestGasPrice(ctx)
}

func (g *MarketplaceGateway) EstimateMintGas(
	ctx context.Context, recipient common.Address, uri string,
) (uint64, error) {
	data, err := g.tokenABI.Pack("mint", recipient, uri)
	if err != nil {
		return 0, err
	}

	return g.ethClient.EstimateGas(ctx, ethereum.CallMsg{
		From: g.adminAddress,
		To:   &g.tokenAddress,
		Data: data,
	})
}

func (g *MarketplaceGateway) MintPatentToken(
	ctx context.Context, recipient common.Address, uri string,
) (*client.MintResult, error) {
	data, err := g.tokenABI.Pack("mint", recipient, uri)
	if err != nil {
		return nil, err
	}

	receipt, err := g.submit(ctx, g.adminKey, g.tokenAddress, common.Big0, data)
	if err != nil {
		return nil, err
	}

	tokenID, err := g.mintedTokenID(receipt)
	if err != nil {
		return nil, err
	}

	return &client.MintResult{
		TokenID: tokenID,
		TxHash:  receipt.TxHash.Hex(),
	}, nil
}

// mintedTokenID extracts the token id from the Transfer event emitted when
// minting from the zero address.
func (g *MarketplaceGateway) mintedTokenID(receipt *ethtypes.Receipt) (int64, error) {
	for _, log := range receipt.Logs {
		if log.Address != g.tokenAddress {
			continue
		}

		if len(log.Topics) != 4 || log.Topics[0] != g.transferTopic {
			continue
		}

		if common.BytesToAddress(log.Topics[1].Bytes()) != (common.Address{}) {
			continue
		}

		return new(big.Int).SetBytes(log.Topics[3].Bytes()).Int64(), nil
	}

	return 0, fmt.Errorf("no mint transfer event in receipt %s", receipt.TxHash)
}

func (g *MarketplaceGateway) TokenOwnerOf(ctx context.Context, tokenID int64) (common.Address, error) {
	out, err := g.call(ctx, g.tokenAddress, g.tokenABI, "ownerOf", big.NewInt(tokenID))
	if err != nil {
		return common.Address{}, err
	}

	return out[0].(common.Address), nil
}

func (g *MarketplaceGateway) TokenExpiry(ctx context.Context, tokenID int64) (int64, error) {
	out, err := g.call(ctx, g.tokenAddress, g.tokenABI, "tokenExpiry", big.NewInt(tokenID))
	if err != nil {
		return 0, err
	}

	return out[0].(*big.Int).Int64(), nil
}

func (g *MarketplaceGateway) ListToken(
	ctx context.Context, tokenID int64, priceWei *big.Int, expiry int64,
) (string, error) {
	data, err := g.marketplaceABI.Pack(
		"createListing", big.NewInt(tokenID), priceWei, big.NewInt(expiry))
	if err != nil {
		return "", err
	}

	return g.submitForHash(ctx, g.adminKey, g.marketplaceAddress, common.Big0, data)
}

func (g *MarketplaceGateway) ListAuction(
	ctx context.Context, tokenID int64, initialPriceWei *big.Int, start, end int64,
) (string, error) {
	data, err := g.marketplaceABI.Pack(
		"createAuction", big.NewInt(tokenID), initialPriceWei, big.NewInt(start), big.NewInt(end))
	if err != nil {
		return "", err
	}

	return g.submitForHash(ctx, g.adminKey, g.marketplaceAddress, common.Big0, data)
}

func (g *MarketplaceGateway) CancelListing(ctx context.Context, tokenID int64) (string, error) {
	data, err := g.marketplaceABI.Pack("cancelListing", big.NewInt(tokenID))
	if err != nil {
		return "", err
	}

	return g.submitForHash(ctx, g.adminKey, g.marketplaceAddress, common.Big0, data)
}

func (g *MarketplaceGateway) BuyToken(
	ctx context.Context, buyer *ecdsa.PrivateKey, tokenID int64, priceWei *big.Int,
) (string, error) {
	data, err := g.marketplaceABI.Pack("buy", big.NewInt(tokenID))
	if err != nil {
		return "", err
	}

	return g.submitForHash(ctx, buyer, g.marketplaceAddress, priceWei, data)
}

func (g *MarketplaceGateway) PlaceBid(
	ctx context.Context, bidder *ecdsa.PrivateKey, tokenID int64, amountWei *big.Int,
) (string, error) {
	data, err := g.marketplaceABI.Pack("bid", big.NewInt(tokenID))
	if err != nil {
		return "", err
	}

	return g.submitForHash(ctx, bidder, g.marketplaceAddress, amountWei, data)
}

func (g *MarketplaceGateway) EndAuction(
	ctx context.Context, tokenID int64, winner common.Address,
) (string, error) {
	data, err := g.marketplaceABI.Pack("endAuction", big.NewInt(tokenID), winner)
	if err != nil {
		return "", err
	}

	return g.submitForHash(ctx, g.adminKey, g.marketplaceAddress, common.Big0, data)
}

func (g *MarketplaceGateway) ClaimToken(
	ctx context.Context, winner *ecdsa.PrivateKey, tokenID int64,
) (string, error) {
	data, err := g.marketplaceABI.Pack("claim", big.NewInt(tokenID))
	if err != nil {
		return "", err
	}

	return g.submitForHash(ctx, winner, g.marketplaceAddress, common.Big0, data)
}

func (g *MarketplaceGateway) ReadAuction(ctx context.Context, tokenID int64) (*client.Auction, error) {
	out, err := g.call(ctx, g.marketplaceAddress, g.marketplaceABI, "auctions", big.NewInt(tokenID))
	if err != nil {
		return nil, err
	}

	return &client.Auction{
		Seller:          out[0].(common.Address),
		InitialPriceWei: out[1].(*big.Int),
		CurrentBidder:   out[2].(common.Address),
		CurrentBidWei:   out[3].(*big.Int),
		StartTime:       out[4].(*big.Int).Int64(),
		EndTime:         out[5].(*big.Int).Int64(),
		Sold:            out[6].(bool),
	}, nil
}

func (g *MarketplaceGateway) ReadFixedListing(ctx context.Context, tokenID int64) (*client.FixedListing, error) {
	out, err := g.call(ctx, g.marketplaceAddress, g.marketplaceABI, "listings", big.NewInt(tokenID))
	if err != nil {
		return nil, err
	}

	return &client.FixedListing{
		Seller:   out[0].(common.Address),
		PriceWei: out[1].(*big.Int),
	}, nil
}

func (g *MarketplaceGateway) TransferRewardCoins(
	ctx context.Context, to common.Address, amountWei *big.Int,
) (string, error) {
	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte("transfer(address,uint256)"))
	methodID := hash.Sum(nil)[:4]

	var data []byte
	data = append(data, methodID...)
	data = append(data, common.LeftPadBytes(to.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(amountWei.Bytes(), 32)...)

	return g.submitForHash(ctx, g.adminKey, g.rewardCoinAddress, common.Big0, data)
}

func (g *MarketplaceGateway) call(
	ctx context.Context, contract common.Address, contractABI abi.ABI, method string, args ...any,
) ([]any, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	raw, err := g.ethClient.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, err
	}

	return contractABI.Unpack(method, raw)
}

func (g *MarketplaceGateway) submitForHash(
	ctx context.Context, signer *ecdsa.PrivateKey, to common.Address, value *big.Int, data []byte,
) (string, error) {
	receipt, err := g.submit(ctx, signer, to, value, data)
	if err != nil {
		return "", err
	}

	return receipt.TxHash.Hex(), nil
}

func (g *MarketplaceGateway) submit(
	ctx context.Context, signer *ecdsa.PrivateKey, to common.Address, value *big.Int, data []byte,
) (*ethtypes.Receipt, error) {
	tx, err := g.sendTx(ctx, signer, to, value, data)
	if err != nil {
		return nil, err
	}

	// Everything past sendTx may have reached the chain, a caller retrying
	// such a failure could duplicate the transaction's effect.
	receipt, err := g.waitMined(ctx, tx.Hash())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", client.ErrTxSubmitted, err)
	}

	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: transaction %s reverted", client.ErrTxSubmitted, tx.Hash())
	}

	return receipt, nil
}

func (g *MarketplaceGateway) sendTx(
	ctx context.Context, signer *ecdsa.PrivateKey, to common.Address, value *big.Int, data []byte,
) (*ethtypes.Transaction, error) {
	g.submitMutex.Lock()
	defer g.submitMutex.Unlock()

	from := crypto.PubkeyToAddress(signer.PublicKey)
	nonce, err := g.ethClient.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, err
	}

	gasPrice, err := g.ethClient.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}

	gasLimit, err := g.ethClient.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return nil, err
	}

	gasLimit = gasLimit * gasLimitBufferNumerator / gasLimitBufferDenominator

	tx := ethtypes.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)
	signedTx, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(g.chainID), signer)
	if err != nil {
		return nil, err
	}

	if err := g.ethClient.SendTransaction(ctx, signedTx); err != nil {
		// Another node may have accepted the same signed payload already.
		if strings.Contains(err.Error(), "already known") {
			return signedTx, nil
		}

		return nil, err
	}

	return signedTx, nil
}

func (g *MarketplaceGateway) waitMined(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, receiptTimeout)
	defer cancel()

	ticker := time.NewTicker(g.blockTime)
	defer ticker.Stop()

	for {
		receipt, err := g.ethClient.TransactionReceipt(waitCtx, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}

		select {
		case <-waitCtx.Done():
			return nil, fmt.Errorf("timed out waiting for receipt of %s", txHash)
		case <-ticker.C:
		}
	}
}
