package domain

import (
	"bytes"
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/patentx-lab/backend/internal/entity"
	"github.com/patentx-lab/backend/internal/model"
	"github.com/patentx-lab/backend/internal/repository"
	"github.com/patentx-lab/backend/pkg/crypto"
	"github.com/patentx-lab/backend/pkg/errorx"
	"github.com/patentx-lab/backend/pkg/xcontext"
	"gorm.io/gorm"
)

const (
	sessionNonceKey   = "wallet_nonce"
	sessionAddressKey = "wallet_address"
)

type WalletAuthDomain interface {
	Login(context.Context, *model.WalletLoginRequest) (*model.WalletLoginResponse, error)
	Verify(context.Context, *model.WalletVerifyRequest) (*model.WalletVerifyResponse, error)
}

type walletAuthDomain struct {
	userRepo repository.UserRepository
}

func NewWalletAuthDomain(userRepo repository.UserRepository) *walletAuthDomain {
	return &walletAuthDomain{userRepo: userRepo}
}

func (d *walletAuthDomain) Login(
	ctx context.Context, req *model.WalletLoginRequest,
) (*model.WalletLoginResponse, error) {
	if !common.IsHexAddress(req.Address) {
		return nil, errorx.New(errorx.BadRequest, "Invalid wallet address")
	}

	nonce, err := crypto.GenerateRandomString()
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot generate random string: %v", err)
		return nil, errorx.Unknown
	}

	session, err := xcontext.SessionStore(ctx).Get(
		xcontext.HTTPRequest(ctx), xcontext.Configs(ctx).Session.Name)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get the session: %v", err)
		return nil, errorx.Unknown
	}

	session.Values[sessionNonceKey] = nonce
	session.Values[sessionAddressKey] = req.Address
	if err := session.Save(xcontext.HTTPRequest(ctx), xcontext.HTTPWriter(ctx)); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot save the session: %v", err)
		return nil, errorx.Unknown
	}

	return &model.WalletLoginResponse{Address: req.Address, Nonce: nonce}, nil
}

func (d *walletAuthDomain) Verify(
	ctx context.Context, req *model.WalletVerifyRequest,
) (*model.WalletVerifyResponse, error) {
	session, err := xcontext.SessionStore(ctx).Get(
		xcontext.HTTPRequest(ctx), xcontext.Configs(ctx).Session.Name)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get the session: %v", err)
		return nil, errorx.Unknown
	}

	nonce, nonceOk := session.Values[sessionNonceKey].(string)
	address, addressOk := session.Values[sessionAddressKey].(string)
	if !nonceOk || !addressOk {
		return nil, errorx.New(errorx.Unauthenticated, "You need to login before verifying")
	}

	hash := accounts.TextHash([]byte(nonce))
	signature, err := hexutil.Decode(req.Signature)
	if err != nil {
		xcontext.Logger(ctx).Debugf("Cannot decode signature: %v", err)
		return nil, errorx.New(errorx.BadRequest, "Invalid signature")
	}

	if len(signature) <= ethcrypto.RecoveryIDOffset {
		return nil, errorx.New(errorx.BadRequest, "Invalid signature")
	}

	if signature[ethcrypto.RecoveryIDOffset] == 27 || signature[ethcrypto.RecoveryIDOffset] == 28 {
		signature[ethcrypto.RecoveryIDOffset] -= 27 // Transform yellow paper V from 27/28 to 0/1
	}

	recovered, err := ethcrypto.SigToPub(hash, signature)
	if err != nil {
		xcontext.Logger(ctx).Debugf("Cannot recover signature to address: %v", err)
		return nil, errorx.New(errorx.BadRequest, "Invalid signature")
	}

	recoveredAddr := ethcrypto.PubkeyToAddress(*recovered)
	if !bytes.Equal(recoveredAddr.Bytes(), common.HexToAddress(address).Bytes()) {
		return nil, errorx.New(errorx.BadRequest, "Mismatched address")
	}

	user, err := d.userRepo.GetByWalletAddress(ctx, address)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.Logger(ctx).Errorf("Cannot get user: %v", err)
			return nil, errorx.Unknown
		}

		user = &entity.User{
			Base:          entity.Base{ID: uuid.NewString()},
			Name:          address,
			WalletAddress: address,
		}

		if err := d.userRepo.Create(ctx, user); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot create user: %v", err)
			return nil, errorx.Unknown
		}
	}

	token, err := xcontext.TokenEngine(ctx).Generate(user.ID, model.AccessToken{
		ID:      user.ID,
		Name:    user.Name,
		Address: user.WalletAddress,
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot generate access token: %v", err)
		return nil, errorx.Unknown
	}

	return &model.WalletVerifyResponse{AccessToken: token}, nil
}
