package model

type ListNftRequest struct {
	TokenID    int64   `json:"token_id"`
	MaticPrice float64 `json:"matic_price"`
	UsdPrice   float64 `json:"usd_price"`

	// OnAuction switches the listing into a timed auction between
	// AuctionStartTime and AuctionEndTime (unix seconds).
	OnAuction        bool  `json:"on_auction"`
	AuctionStartTime int64 `json:"auction_start_time,omitempty"`
	AuctionEndTime   int64 `json:"auction_end_time,omitempty"`
}

type ListNftResponse struct {
	TxHash string `json:"tx_hash"`
}

type CancelListingRequest struct {
	TokenID int64 `json:"token_id"`
}

type CancelListingResponse struct {
	TxHash string `json:"tx_hash"`
}

type BuyNftRequest struct {
	TokenID int64 `json:"token_id"`
}

type BuyNftResponse struct {
	TxHash string `json:"tx_hash"`
}

type PlaceBidRequest struct {
	TokenID    int64   `json:"token_id"`
	MaticPrice float64 `json:"matic_price"`
	UsdPrice   float64 `json:"usd_price"`
}

type PlaceBidResponse struct {
	TxHash string `json:"tx_hash"`
}

type AcceptOfferRequest struct {
	TokenID int64 `json:"token_id"`
}

type AcceptOfferResponse struct {
	TxHash   string `json:"tx_hash"`
	WinnerID string `json:"winner_id"`
}

type ClaimNftRequest struct {
	TokenID int64 `json:"token_id"`
}

type ClaimNftResponse struct {
	TxHash string `json:"tx_hash"`
}

type GetNftRequest struct {
	TokenID int64 `json:"token_id"`
}

type GetNftResponse struct {
	Nft        Nft           `json:"nft"`
	Activities []NftActivity `json:"activities"`
	Bids       []Bid         `json:"bids"`
}

type Nft struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	ImageUrl         string  `json:"image_url"`
	OwnerID          string  `json:"owner_id"`
	ApplicationID    string  `json:"application_id"`
	TokenID          int64   `json:"token_id"`
	IsListed         bool    `json:"is_listed"`
	OnAuction        bool    `json:"on_auction"`
	MaticPrice       float64 `json:"matic_price,omitempty"`
	UsdPrice         float64 `json:"usd_price,omitempty"`
	ExpiryDate       string  `json:"expiry_date,omitempty"`
	AuctionStartTime string  `json:"auction_start_time,omitempty"`
	AuctionEndTime   string  `json:"auction_end_time,omitempty"`
}

type NftActivity struct {
	Event     string  `json:"event"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Price     float64 `json:"price,omitempty"`
	TxHash    string  `json:"tx_hash"`
	CreatedAt string  `json:"created_at"`
}

type Bid struct {
	UserID     string  `json:"user_id"`
	MaticPrice float64 `json:"matic_price"`
	UsdPrice   float64 `json:"usd_price"`
}
