package launchpad

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/patentx-lab/backend/internal/client"
	"github.com/patentx-lab/backend/pkg/errorx"
	"github.com/patentx-lab/backend/pkg/ethutil"
	"github.com/patentx-lab/backend/pkg/numberutil"
	"github.com/patentx-lab/backend/pkg/xcontext"
)

// Gas cost estimates are padded by 20% so a price spike between validation
// and submission does not strand the mint halfway.
var (
	gasBufferNumerator   = big.NewInt(120)
	gasBufferDenominator = big.NewInt(100)
)

// PreflightValidator proves a mint can succeed before any state changes.
// It runs synchronously inside the launch request, so a user gets the exact
// failure reason instead of a deferred worker error.
type PreflightValidator struct {
	chainCaller client.ChainCaller
}

func NewPreflightValidator(chainCaller client.ChainCaller) *PreflightValidator {
	return &PreflightValidator{chainCaller: chainCaller}
}

func (v *PreflightValidator) Validate(ctx context.Context, recipient, uri string) error {
	if !common.IsHexAddress(recipient) || ethutil.IsZeroAddress(recipient) {
		return errorx.New(errorx.InvalidRecipient, "Invalid recipient wallet address")
	}

	recipientAddress := common.HexToAddress(recipient)

	owner, err := v.chainCaller.ContractOwner(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get token contract owner: %v", err)
		return errorx.Unknown
	}

	if owner != v.chainCaller.AdminAddress() {
		xcontext.Logger(ctx).Errorf("Admin %s is not the token contract owner %s",
			v.chainCaller.AdminAddress(), owner)
		return errorx.New(errorx.GasEstimationFailed, "Platform signer cannot mint on this contract")
	}

	gasLimit, err := v.chainCaller.EstimateMintGas(ctx, recipientAddress, uri)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Gas estimation failed for recipient %s: %v", recipient, err)
		return errorx.New(errorx.GasEstimationFailed,
			"The mint transaction would fail: %v", err)
	}

	gasPrice, err := v.chainCaller.GetGasPrice(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get gas price: %v", err)
		return errorx.Unknown
	}

	balance, err := v.chainCaller.GetBalance(ctx, v.chainCaller.AdminAddress())
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get admin balance: %v", err)
		return errorx.Unknown
	}

	if balance.Sign() == 0 {
		return errorx.New(errorx.ZeroBalance, "Platform wallet has no funds")
	}

	required := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gasLimit))
	required = required.Mul(required, gasBufferNumerator)
	required = required.Div(required, gasBufferDenominator)

	if required.Cmp(balance) > 0 {
		return errorx.New(errorx.InsufficientFunds,
			"Platform wallet cannot cover the mint: required %f MATIC, available %f MATIC",
			numberutil.WeiToEther(required), numberutil.WeiToEther(balance))
	}

	return nil
}
