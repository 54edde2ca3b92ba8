package eth

import (
	"context"
	"fmt"
	"math/big"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/patentx-lab/backend/pkg/numberutil"
	"github.com/patentx-lab/backend/pkg/xcontext"
	"golang.org/x/sync/errgroup"

	"github.com/ethereum/go-ethereum/common"
)

const (
	RpcTimeOut      = time.Second * 5
	MaxShuffleTimes = 20
)

// A wrapper around eth.client so that we can mock in gateway tests.
type EthClient interface {
	Start(ctx context.Context)

	BlockNumber(ctx context.Context) (uint64, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	BalanceAt(ctx context.Context, from common.Address, block *big.Int) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error)
}

// Default implementation of ETH client. Since eth RPC often unstable, this client maintains a list
// of different RPC to connect to and uses the ones that is stable to dispatch a transaction.
type defaultEthClient struct {
	chain   string
	chainID *big.Int
	allRpcs []string

	clients   []*ethclient.Client
	healthies []bool
	rpcs      []string

	mutex sync.RWMutex
}

func NewEthClient(chain string, chainID int64, rpcs []string) EthClient {
	return &defaultEthClient{
		chain:   chain,
		chainID: big.NewInt(chainID),
		allRpcs: rpcs,
		mutex:   sync.RWMutex{},
	}
}

func (c *defaultEthClient) Start(ctx context.Context) {
	c.updateRpcs(ctx)
	go c.loopCheck(ctx)
}

func (c *defaultEthClient) loopCheck(ctx context.Context) {
	for {
		time.Sleep(xcontext.Configs(ctx).Blockchain.RefreshConnectionFrequency)
		c.updateRpcs(ctx)
	}
}

func (c *defaultEthClient) updateRpcs(ctx context.Context) {
	c.mutex.RLock()
	oldClients := c.clients
	c.mutex.RUnlock()

	rpcs, clients, healthies := c.getRpcsHealthiness(ctx, c.allRpcs)

	// Close all the old clients
	c.mutex.Lock()
	for _, client := range oldClients {
		client.Close()
	}

	c.rpcs, c.clients, c.healthies = rpcs, clients, healthies
	c.mutex.Unlock()
}

func (c *defaultEthClient) getRpcsHealthiness(ctx context.Context, allRpcs []string) ([]string, []*ethclient.Client, []bool) {
	clients := make([]*ethclient.Client, 0)
	rpcs := make([]string, 0)
	healthies := make([]bool, 0)

	type healthyNode struct {
		client *ethclient.Client
		rpc    string
		height int64
	}

	var nodesMutex sync.Mutex
	nodes := make([]*healthyNode, 0)

	// Probe every rpc concurrently, a single slow endpoint must not stall the
	// whole refresh.
	var group errgroup.Group
	for _, rpc := range allRpcs {
		rpc := rpc
		group.Go(func() error {
			client, err := ethclient.Dial(rpc)
			if err != nil {
				return nil
			}

			checkCtx, cancel := context.WithTimeout(ctx, RpcTimeOut)
			height, err := client.BlockNumber(checkCtx)
			cancel()

			if err != nil {
				client.Close()
				return nil
			}

			nodesMutex.Lock()
			nodes = append(nodes, &healthyNode{
				client: client,
				rpc:    rpc,
				height: int64(height),
			})
			nodesMutex.Unlock()
			return nil
		})
	}
	group.Wait()

	if len(nodes) == 0 {
		return rpcs, clients, healthies
	}

	// Sorts all nodes by height
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].height > nodes[j].height
	})

	// Only select some nodes within a certain height from the median
	height := nodes[len(nodes)/2].height
	for _, node := range nodes {
		if numberutil.AbsInt64(node.height-height) < 5 {
			rpcs = append(rpcs, node.rpc)
			clients = append(clients, node.client)
			healthies = append(healthies, true)
		} else {
			node.client.Close()
		}
	}

	xcontext.Logger(ctx).Infof("Healthy rpcs for chain %s: %s", c.chain, rpcs)

	return rpcs, clients, healthies
}

func (c *defaultEthClient) shuffle() ([]*ethclient.Client, []bool, []string) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	n := len(c.clients)
	if n == 0 {
		return nil, nil, nil
	}

	clients := make([]*ethclient.Client, n)
	healthy := make([]bool, n)
	rpcs := make([]string, n)

	copy(clients, c.clients)
	copy(healthy, c.healthies)
	copy(rpcs, c.rpcs)

	for i := 0; i < MaxShuffleTimes; i++ {
		x := rand.Intn(n)
		y := rand.Intn(n)

		clients[x], clients[y] = clients[y], clients[x]
		healthy[x], healthy[y] = healthy[y], healthy[x]
		rpcs[x], rpcs[y] = rpcs[y], rpcs[x]
	}

	return clients, healthy, rpcs
}

func (c *defaultEthClient) getHealthyClient(ctx context.Context) (*ethclient.Client, string) {
	c.mutex.RLock()
	if c.clients == nil {
		c.mutex.RUnlock()
		c.updateRpcs(ctx)
	} else {
		c.mutex.RUnlock()
	}

	// Shuffle rpcs so that we will use different healthy rpc
	clients, healthies, rpcs := c.shuffle()
	for i, healthy := range healthies {
		if healthy {
			return clients[i], rpcs[i]
		}
	}

	return nil, ""
}

func (c *defaultEthClient) execute(ctx context.Context, f func(client *ethclient.Client, rpc string) (any, error)) (any, error) {
	client, rpc := c.getHealthyClient(ctx)
	if client == nil {
		return nil, fmt.Errorf("no healthy RPC for chain %s", c.chain)
	}

	return f(client, rpc)
}

func (c *defaultEthClient) BlockNumber(ctx context.Context) (uint64, error) {
	num, err := c.execute(ctx, func(client *ethclient.Client, rpc string) (any, error) {
		return client.BlockNumber(ctx)
	})

	if err != nil {
		return 0, err
	}

	return num.(uint64), nil
}

func (c *defaultEthClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	receipt, err := c.execute(ctx, func(client *ethclient.Client, rpc string) (any, error) {
		return client.TransactionReceipt(ctx, txHash)
	})

	if err != nil {
		return nil, err
	}

	return receipt.(*ethtypes.Receipt), nil
}

func (c *defaultEthClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	gas, err := c.execute(ctx, func(client *ethclient.Client, rpc string) (any, error) {
		return client.SuggestGasPrice(ctx)
	})

	if err != nil {
		return nil, err
	}

	return gas.(*big.Int), nil
}

func (c *defaultEthClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	nonce, err := c.execute(ctx, func(client *ethclient.Client, rpc string) (any, error) {
		return client.PendingNonceAt(ctx, account)
	})

	if err != nil {
		return 0, err
	}

	return nonce.(uint64), nil
}

func (c *defaultEthClient) SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	_, err := c.execute(ctx, func(client *ethclient.Client, rpc string) (any, error) {
		return 0, client.SendTransaction(ctx, tx)
	})

	return err
}

func (c *defaultEthClient) BalanceAt(ctx context.Context, from common.Address, block *big.Int) (*big.Int, error) {
	balance, err := c.execute(ctx, func(client *ethclient.Client, rpc string) (any, error) {
		balance, err := client.BalanceAt(ctx, from, block)
		if err == nil && balance != nil && balance.Cmp(big.NewInt(0)) == 0 {
			xcontext.Logger(ctx).Warnf("Balance is 0 for using URL %s", rpc)
		}

		return balance, err
	})

	if err != nil {
		return nil, err
	}

	return balance.(*big.Int), nil
}

func (c *defaultEthClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	gas, err := c.execute(ctx, func(client *ethclient.Client, rpc string) (any, error) {
		return client.EstimateGas(ctx, msg)
	})

	if err != nil {
		return 0, err
	}

	return gas.(uint64), nil
}

func (c *defaultEthClient) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	result, err := c.execute(ctx, func(client *ethclient.Client, rpc string) (any, error) {
		return client.CallContract(ctx, msg, block)
	})

	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}
