package event

type NftLaunchedEvent struct {
	ApplicationID  string `json:"application_id"`
	TokenID        int64  `json:"token_id"`
	TransactionUrl string `json:"transaction_url"`
}

func (NftLaunchedEvent) Op() string {
	return "nft_launched"
}

type NftLaunchFailedEvent struct {
	ApplicationID string `json:"application_id"`
	Reason        string `json:"reason"`
}

func (NftLaunchFailedEvent) Op() string {
	return "nft_launch_failed"
}
