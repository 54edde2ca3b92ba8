package errorx

type Code int

var Unknown = Error{Code: 100000, Message: "Request failed"}

const (
	// Common codes
	BadRequest       Code = 100001
	BadResponse      Code = 100002
	PermissionDenied Code = 100003
	NotFound         Code = 100004
	Unauthenticated  Code = 100005
	AlreadyExists    Code = 100006
	Internal         Code = 100007
	Unavailable      Code = 100008
	NotImplemented   Code = 100009
	TooManyRequests  Code = 100010

	// Launch codes
	LaunchAlreadyPending Code = 200001
	AlreadyDeployed      Code = 200002
	GasEstimationFailed  Code = 200003
	InsufficientFunds    Code = 200004
	ZeroBalance          Code = 200005
	InvalidRecipient     Code = 200006

	// Marketplace codes
	NotListed      Code = 300001
	AlreadyListed  Code = 300002
	AuctionExpired Code = 300003
	BidTooLow      Code = 300004
	BuyerIsSeller  Code = 300005
	NoBid          Code = 300006
	NotWinner      Code = 300007

	// Crowdfunding codes
	CampaignClosed Code = 400001
)
