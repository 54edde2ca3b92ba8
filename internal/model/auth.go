package model

type AccessToken struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

type WalletLoginRequest struct {
	Address string `json:"address"`
}

type WalletLoginResponse struct {
	Address string `json:"address"`
	Nonce   string `json:"nonce"`
}

type WalletVerifyRequest struct {
	Signature string `json:"signature"`

	SessionNonce   string `json:"-"`
	SessionAddress string `json:"-"`
}

type WalletVerifyResponse struct {
	AccessToken string `json:"access_token"`
}

type GetUserRequest struct{}

type GetUserResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	WalletAddress string `json:"wallet_address"`
	Credits       int64  `json:"credits"`
	ReferredBy    string `json:"referred_by,omitempty"`
}
