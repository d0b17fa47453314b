package domain

import (
	"time"
)

// Role is one of the five positions a queued player signs up for.
type Role string

const (
	RoleTop     Role = "Top"
	RoleJungle  Role = "Jungle"
	RoleMid     Role = "Mid"
	RoleADC     Role = "ADC"
	RoleSupport Role = "Support"
)

// RoleOrder is the canonical display and iteration order.
var RoleOrder = []Role{RoleTop, RoleJungle, RoleMid, RoleADC, RoleSupport}

func ValidRole(r Role) bool {
	for _, role := range RoleOrder {
		if role == r {
			return true
		}
	}
	return false
}

// Side identifies one of the two drafted teams.
type Side string

const (
	SideBlue Side = "blue"
	SideRed  Side = "red"
)

func (s Side) Opponent() Side {
	if s == SideBlue {
		return SideRed
	}
	return SideBlue
}

// Player is the durable per-tenant record mutated only by the rating engine.
type Player struct {
	TenantID    string
	PlayerID    string
	Name        string
	Points      int
	HiddenMMR   int
	MatchWins   int
	MatchLosses int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Games is the lifetime game count before the current match.
func (p Player) Games() int {
	return p.MatchWins + p.MatchLosses
}

// Team is one side of a drafted match: a captain plus a role to player-id map.
type Team struct {
	Captain string
	Picks   map[Role]string
}

// Ids returns the team's player ids in role order, skipping unresolved roles.
func (t Team) Ids() []string {
	ids := make([]string, 0, len(RoleOrder))
	for _, r := range RoleOrder {
		if id, ok := t.Picks[r]; ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Match is the completed draft output, consumed once by the rating engine.
type Match struct {
	Blue Team
	Red  Team
}

// Participants returns all player ids across both teams, blue first.
func (m Match) Participants() []string {
	return append(m.Blue.Ids(), m.Red.Ids()...)
}

// PlayerUpdate is one entry of the all-or-nothing batch write after a match.
type PlayerUpdate struct {
	PlayerID    string
	PointsDelta int
	MMRDelta    int
	Won         bool
}

// RatingRecord is one rating-history row written alongside a batch update.
type RatingRecord struct {
	ID          string
	TenantID    string
	Session     int
	PlayerID    string
	PointsDelta int
	MMRDelta    int
	Points      int
	HiddenMMR   int
	Winner      Side
	Won         bool
	CreatedAt   time.Time
}

// TenantConfig is the per-tenant configuration surface consumed by the core.
// Zero values mean "use the process default".
type TenantConfig struct {
	TenantID        string
	SessionNumber   int
	LobbyRoomID     string
	QueueRoomID     string
	PerRoleCapacity int
	VoteThreshold   int
	RolePickWait    time.Duration
	MemberWait      time.Duration
	CaptainVoteWait time.Duration
	DraftTurnWait   time.Duration
	ResultVoteWait  time.Duration
}
