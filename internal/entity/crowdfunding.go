package entity

import (
	"time"

	"github.com/patentx-lab/backend/pkg/enum"
)

type CampaignStatus string

var (
	CampaignStatusInProgress     = enum.New(CampaignStatus("in_progress"))
	CampaignStatusFulfilled      = enum.New(CampaignStatus("fulfilled"))
	CampaignStatusTimePeriodOver = enum.New(CampaignStatus("time_period_over"))
)

type PaymentStatus string

var (
	PaymentStatusSucceeded = enum.New(PaymentStatus("succeeded"))
	PaymentStatusRefunded  = enum.New(PaymentStatus("refunded"))
)

type Staker struct {
	ID            string        `json:"id"`
	NumberOfStake int           `json:"number_of_stake"`
	PaymentIntent string        `json:"payment_intent"`
	PaymentStatus PaymentStatus `json:"payment_status"`
}

type CrowdfundingCampaign struct {
	Base

	ApplicationID string      `gorm:"index"`
	Application   Application `gorm:"foreignKey:ApplicationID"`

	ManufacturerID string

	MinimumStakeAmount float64
	StakingThreshold   float64

	// AmountStaked is always minimum_stake_amount times the sum of all
	// staker counts. It never decreases while the campaign is in progress.
	AmountStaked float64

	Stakers Array[Staker]

	Status     CampaignStatus
	TimePeriod time.Time
}

// RewardIteration records one staker's share of a fulfilled campaign's
// reward distribution.
type RewardIteration struct {
	Base

	CampaignID    string `gorm:"index"`
	ApplicationID string
	StakerID      string

	Amount float64
	TxHash string
}
