package model

type CreateApplicationRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ImageUrl    string   `json:"image_url"`
	Tags        []string `json:"tags"`
}

type CreateApplicationResponse struct {
	ID string `json:"id"`
}

type GetApplicationRequest struct {
	ID string `json:"id"`
}

type GetApplicationResponse struct {
	Application Application `json:"application"`
}

type GetMyApplicationsRequest struct{}

type GetMyApplicationsResponse struct {
	Applications []Application `json:"applications"`
}

type MarkFiledRequest struct {
	ID string `json:"id"`
}

type MarkFiledResponse struct{}

type Application struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ImageUrl    string   `json:"image_url"`
	OwnerID     string   `json:"owner_id"`
	IsFiled     bool     `json:"is_filed"`
	Tags        []string `json:"tags"`

	DeployingStatus   string `json:"deploying_status"`
	NftTokenID        int64  `json:"nft_token_id,omitempty"`
	NftTransactionUrl string `json:"nft_transaction_url,omitempty"`
	StakingStatus     string `json:"staking_status,omitempty"`
}
