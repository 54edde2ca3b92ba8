package launchpad

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/patentx-lab/backend/pkg/errorx"
	"github.com/patentx-lab/backend/pkg/testutil"
	"github.com/stretchr/testify/require"
)

const testRecipient = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"

func requireErrorCode(t *testing.T, err error, code errorx.Code) {
	t.Helper()

	var errx errorx.Error
	require.ErrorAs(t, err, &errx)
	require.Equal(t, code, errx.Code)
}

func Test_PreflightValidator_Validate(t *testing.T) {
	ctx := testutil.NewMockContext()

	t.Run("happy case", func(t *testing.T) {
		validator := NewPreflightValidator(&testutil.MockChainCaller{})
		require.NoError(t, validator.Validate(ctx, testRecipient, "ipfs://metadata"))
	})

	t.Run("invalid recipient", func(t *testing.T) {
		validator := NewPreflightValidator(&testutil.MockChainCaller{})
		err := validator.Validate(ctx, "not-an-address", "ipfs://metadata")
		requireErrorCode(t, err, errorx.InvalidRecipient)
	})

	t.Run("zero recipient", func(t *testing.T) {
		validator := NewPreflightValidator(&testutil.MockChainCaller{})
		err := validator.Validate(ctx, "0x0000000000000000000000000000000000000000", "ipfs://metadata")
		requireErrorCode(t, err, errorx.InvalidRecipient)
	})

	t.Run("admin is not the contract owner", func(t *testing.T) {
		validator := NewPreflightValidator(&testutil.MockChainCaller{
			ContractOwnerFunc: func(ctx context.Context) (common.Address, error) {
				return common.HexToAddress("0x2222222222222222222222222222222222222222"), nil
			},
		})

		err := validator.Validate(ctx, testRecipient, "ipfs://metadata")
		requireErrorCode(t, err, errorx.GasEstimationFailed)
	})

	t.Run("the mint transaction would revert", func(t *testing.T) {
		validator := NewPreflightValidator(&testutil.MockChainCaller{
			EstimateMintGasFunc: func(ctx context.Context, recipient common.Address, uri string) (uint64, error) {
				return 0, errors.New("execution reverted")
			},
		})

		err := validator.Validate(ctx, testRecipient, "ipfs://metadata")
		requireErrorCode(t, err, errorx.GasEstimationFailed)
	})

	t.Run("platform wallet is empty", func(t *testing.T) {
		validator := NewPreflightValidator(&testutil.MockChainCaller{
			GetBalanceFunc: func(ctx context.Context, address common.Address) (*big.Int, error) {
				return big.NewInt(0), nil
			},
		})

		err := validator.Validate(ctx, testRecipient, "ipfs://metadata")
		requireErrorCode(t, err, errorx.ZeroBalance)
	})

	t.Run("platform wallet cannot cover the buffered gas cost", func(t *testing.T) {
		// The default mock estimates 100000 gas at 1 gwei, so the buffered
		// cost is 1.2e14 wei.
		validator := NewPreflightValidator(&testutil.MockChainCaller{
			GetBalanceFunc: func(ctx context.Context, address common.Address) (*big.Int, error) {
				return big.NewInt(1e14), nil
			},
		})

		err := validator.Validate(ctx, testRecipient, "ipfs://metadata")
		requireErrorCode(t, err, errorx.InsufficientFunds)
	})

	t.Run("a balance exactly at the buffered cost passes", func(t *testing.T) {
		validator := NewPreflightValidator(&testutil.MockChainCaller{
			GetBalanceFunc: func(ctx context.Context, address common.Address) (*big.Int, error) {
				return big.NewInt(12e13), nil
			},
		})

		require.NoError(t, validator.Validate(ctx, testRecipient, "ipfs://metadata"))
	})

	t.Run("owner lookup failure is not attributed to the user", func(t *testing.T) {
		validator := NewPreflightValidator(&testutil.MockChainCaller{
			ContractOwnerFunc: func(ctx context.Context) (common.Address, error) {
				return common.Address{}, errors.New("rpc down")
			},
		})

		err := validator.Validate(ctx, testRecipient, "ipfs://metadata")
		require.Equal(t, errorx.Unknown, err)
	})
}
