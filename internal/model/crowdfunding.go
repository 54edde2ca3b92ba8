package model

type CreateCampaignRequest struct {
	ApplicationID      string  `json:"application_id"`
	ManufacturerID     string  `json:"manufacturer_id"`
	MinimumStakeAmount float64 `json:"minimum_stake_amount"`
	StakingThreshold   float64 `json:"staking_threshold"`

	// TimePeriod is the unix second after which the campaign expires.
	TimePeriod int64 `json:"time_period"`
}

type CreateCampaignResponse struct {
	CampaignID string `json:"campaign_id"`
}

type ContributeRequest struct {
	CampaignID    string `json:"campaign_id"`
	NumberOfStake int    `json:"number_of_stake"`
	PaymentIntent string `json:"payment_intent"`
}

type ContributeResponse struct {
	AmountStaked float64 `json:"amount_staked"`
	Status       string  `json:"status"`
}

type GetCampaignRequest struct {
	CampaignID string `json:"campaign_id"`
}

type GetCampaignResponse struct {
	ApplicationID      string   `json:"application_id"`
	MinimumStakeAmount float64  `json:"minimum_stake_amount"`
	StakingThreshold   float64  `json:"staking_threshold"`
	AmountStaked       float64  `json:"amount_staked"`
	Status             string   `json:"status"`
	TimePeriod         string   `json:"time_period"`
	Stakers            []Staker `json:"stakers"`
}

type Staker struct {
	ID            string `json:"id"`
	NumberOfStake int    `json:"number_of_stake"`
	PaymentStatus string `json:"payment_status"`
}

// RewardJob carries a full campaign snapshot onto the reward topic, so the
// reward worker never re-reads a campaign that may have changed since
// fulfillment.
type RewardJob struct {
	Type               string       `json:"type"`
	CampaignID         string       `json:"campaign_id"`
	ApplicationID      string       `json:"application_id"`
	MinimumStakeAmount float64      `json:"minimum_stake_amount"`
	AmountStaked       float64      `json:"amount_staked"`
	Stakers            []RewardStaker `json:"stakers"`
}

type RewardStaker struct {
	ID            string `json:"id"`
	NumberOfStake int    `json:"number_of_stake"`
}

const RewardJobTypeDistribute = "distribute"
