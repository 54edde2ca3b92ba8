package event

type CampaignFulfilledEvent struct {
	CampaignID    string  `json:"campaign_id"`
	ApplicationID string  `json:"application_id"`
	AmountStaked  float64 `json:"amount_staked"`
}

func (CampaignFulfilledEvent) Op() string {
	return "campaign_fulfilled"
}

type CampaignExpiredEvent struct {
	CampaignID    string `json:"campaign_id"`
	ApplicationID string `json:"application_id"`
}

func (CampaignExpiredEvent) Op() string {
	return "campaign_expired"
}

type ContributionRefundedEvent struct {
	CampaignID string  `json:"campaign_id"`
	Amount     float64 `json:"amount"`
}

func (ContributionRefundedEvent) Op() string {
	return "contribution_refunded"
}
