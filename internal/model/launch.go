package model

type LaunchNftRequest struct {
	ApplicationID string `json:"application_id"`
}

type LaunchNftResponse struct {
	Status string `json:"status"`
}

type GetLaunchStatusRequest struct {
	ApplicationID string `json:"application_id"`
}

type GetLaunchStatusResponse struct {
	DeployingStatus   string `json:"deploying_status"`
	NftTokenID        int64  `json:"nft_token_id,omitempty"`
	NftTransactionUrl string `json:"nft_transaction_url,omitempty"`
}

// LaunchJob is the payload carried on the launch topic. The message key is
// the application id, so all retriggers for one application land on the same
// partition in order.
type LaunchJob struct {
	ApplicationID      string `json:"application_id"`
	OwnerWalletAddress string `json:"owner_wallet_address"`
	Attempt            int    `json:"attempt"`
}
