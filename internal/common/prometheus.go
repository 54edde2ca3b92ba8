package common

import "github.com/prometheus/client_golang/prometheus"

const (
	HTTPRequestTotal             = "http_requests_total"
	HTTPRequestDurationSeconds   = "http_request_duration_seconds"
	BlockchainTransactionFailure = "blockchain_transaction_failure"
	NftLaunchTotal               = "nft_launch_total"
	CrowdfundingRefundTotal      = "crowdfunding_refund_total"
)

var (
	PromGauges = map[string]*prometheus.GaugeVec{}

	PromCounters = map[string]*prometheus.CounterVec{
		HTTPRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: HTTPRequestTotal,
			Help: "Count of all HTTP requests",
		}, []string{"method", "status_code"}),
		BlockchainTransactionFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: BlockchainTransactionFailure,
			Help: "Count of all blockchain transaction failure",
		}, []string{"method"}),
		NftLaunchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: NftLaunchTotal,
			Help: "Count of all nft launch attempts",
		}, []string{"result"}),
		CrowdfundingRefundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: CrowdfundingRefundTotal,
			Help: "Count of all crowdfunding refunds",
		}, []string{"result"}),
	}

	PromHistograms = map[string]*prometheus.HistogramVec{
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: HTTPRequestDurationSeconds,
			Help: "Duration of all HTTP requests",
		}, []string{"method", "status_code"}),
	}

	PromSummaries = map[string]*prometheus.SummaryVec{}
)
