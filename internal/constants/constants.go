package constants

import "time"

// Phase timeouts. All overridable per tenant.
const (
	RolePickWait    = 30 * time.Second
	MemberWait      = 5 * time.Minute
	CaptainVoteWait = 60 * time.Second
	DraftTurnWait   = 30 * time.Second
	ResultVoteWait  = 2 * time.Hour
)

const (
	TimerMin = 10 * time.Second
	TimerMax = 24 * time.Hour
)

// Presence barrier re-renders are throttled to this interval. The terminal
// "all present" and "timeout" transitions bypass the throttle.
const (
	PresenceDebounce = 1500 * time.Millisecond
)

const (
	PerRoleCapacity = 2
	TeamSize        = 5
	VoteThreshold   = 6
	CaptainVotesMax = 2
)

// Rating engine constants.
const (
	DefaultPoints = 500
	DefaultMMR    = 500

	KPoints = 80
	DPoints = 400

	DMMR      = 400
	PriorBeta = 20

	KStart       = 120
	KEnd         = 40
	KFloor       = 20
	KRampLen     = 10
	KTau         = 50
	WinrateGamma = 1.5
	WinrateAmp   = 0.6

	BridgeCap   = 0.50
	BridgeScale = 100
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DatabaseTimeout   = 5 * time.Second
)

const (
	SinkTimeout     = 10 * time.Second
	ShutdownTimeout = 5 * time.Second
)
