package domain

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/patentx-lab/backend/internal/model"
	"github.com/patentx-lab/backend/internal/repository"
	"github.com/patentx-lab/backend/pkg/errorx"
	"github.com/patentx-lab/backend/pkg/testutil"
	"github.com/patentx-lab/backend/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

func Test_walletAuthDomain_FullScenario(t *testing.T) {
	ctx := testutil.NewMockContext()
	walletAuthDomain := NewWalletAuthDomain(repository.NewUserRepository(&testutil.MockRedisClient{}))

	walletKey, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	address := ethcrypto.PubkeyToAddress(walletKey.PublicKey).Hex()

	_, err = walletAuthDomain.Login(ctx, &model.WalletLoginRequest{Address: "not-an-address"})
	requireErrorCode(t, err, errorx.BadRequest)

	loginRecorder := httptest.NewRecorder()
	loginCtx := xcontext.WithHTTPRequest(ctx, httptest.NewRequest(http.MethodGet, "/wallet/login", nil))
	loginCtx = xcontext.WithHTTPWriter(loginCtx, loginRecorder)

	loginResp, err := walletAuthDomain.Login(loginCtx, &model.WalletLoginRequest{Address: address})
	require.NoError(t, err)
	require.Equal(t, address, loginResp.Address)
	require.NotEmpty(t, loginResp.Nonce)

	// The challenge lives in the session cookie issued by the login.
	verifyRequest := httptest.NewRequest(http.MethodGet, "/wallet/verify", nil)
	for _, cookie := range loginRecorder.Result().Cookies() {
		verifyRequest.AddCookie(cookie)
	}
	verifyCtx := xcontext.WithHTTPRequest(ctx, verifyRequest)
	verifyCtx = xcontext.WithHTTPWriter(verifyCtx, httptest.NewRecorder())

	signature, err := ethcrypto.Sign(accounts.TextHash([]byte(loginResp.Nonce)), walletKey)
	require.NoError(t, err)
	signature[ethcrypto.RecoveryIDOffset] += 27 // yellow paper V

	verifyResp, err := walletAuthDomain.Verify(verifyCtx, &model.WalletVerifyRequest{
		Signature: hexutil.Encode(signature),
	})
	require.NoError(t, err)
	require.NotEmpty(t, verifyResp.AccessToken)

	// A user record now exists for this wallet, and the access token names
	// it.
	user, err := repository.NewUserRepository(&testutil.MockRedisClient{}).GetByWalletAddress(ctx, address)
	require.NoError(t, err)

	accessToken, err := xcontext.TokenEngine(ctx).Verify(verifyResp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, accessToken.ID)
	require.Equal(t, address, accessToken.Address)

	// A second verify with a foreign key's signature is rejected.
	otherKey, err := ethcrypto.GenerateKey()
	require.NoError(t, err)

	forged, err := ethcrypto.Sign(accounts.TextHash([]byte(loginResp.Nonce)), otherKey)
	require.NoError(t, err)
	forged[ethcrypto.RecoveryIDOffset] += 27

	_, err = walletAuthDomain.Verify(verifyCtx, &model.WalletVerifyRequest{
		Signature: hexutil.Encode(forged),
	})
	requireErrorCode(t, err, errorx.BadRequest)
}

func Test_walletAuthDomain_VerifyWithoutLogin(t *testing.T) {
	ctx := testutil.NewMockContext()
	walletAuthDomain := NewWalletAuthDomain(repository.NewUserRepository(&testutil.MockRedisClient{}))

	verifyCtx := xcontext.WithHTTPRequest(ctx, httptest.NewRequest(http.MethodGet, "/wallet/verify", nil))
	verifyCtx = xcontext.WithHTTPWriter(verifyCtx, httptest.NewRecorder())

	_, err := walletAuthDomain.Verify(verifyCtx, &model.WalletVerifyRequest{Signature: "0x00"})
	requireErrorCode(t, err, errorx.Unauthenticated)
}
