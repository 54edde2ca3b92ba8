package event

type OutbidEvent struct {
	TokenID    int64   `json:"token_id"`
	MaticPrice float64 `json:"matic_price"`
}

func (OutbidEvent) Op() string {
	return "outbid"
}

type OfferAcceptedEvent struct {
	TokenID    int64   `json:"token_id"`
	MaticPrice float64 `json:"matic_price"`
}

func (OfferAcceptedEvent) Op() string {
	return "offer_accepted"
}

type NftSoldEvent struct {
	TokenID    int64   `json:"token_id"`
	MaticPrice float64 `json:"matic_price"`
	BuyerID    string  `json:"buyer_id"`
}

func (NftSoldEvent) Op() string {
	return "nft_sold"
}
