package draft

import (
	"errors"

	"queueup/internal/constants"
	"queueup/internal/domain"
	"queueup/internal/queue"
)

var ErrDraftComplete = errors.New("draft already completed")

// Draft runs the lane-mirror phase: captains alternate turns, and picking
// one player from an unresolved role pair sends the other player of that
// pair to the opposing team in the same action. Per-turn timers live in the
// session layer; it calls ExpireTurn when one fires.
type Draft struct {
	pairs    map[domain.Role][]string
	roleOf   map[string]domain.Role
	points   map[string]int
	teams    map[domain.Side]*domain.Team
	turn     domain.Side
	resolved map[domain.Role]bool
}

// Board is a read-only view for presenters.
type Board struct {
	Turn      domain.Side    `json:"turn"`
	Blue      domain.Team    `json:"blue"`
	Red       domain.Team    `json:"red"`
	Remaining int            `json:"remaining"`
	Points    map[string]int `json:"points"`
}

// New seeds a draft from a full queue snapshot. The lower-points captain
// takes blue and the first turn; both captains' own role pairs are resolved
// immediately.
func New(snap queue.Snapshot, capA, capB string, points map[string]int) (*Draft, error) {
	d := &Draft{
		pairs:    make(map[domain.Role][]string, len(domain.RoleOrder)),
		roleOf:   make(map[string]domain.Role),
		points:   points,
		turn:     domain.SideBlue,
		resolved: make(map[domain.Role]bool),
		teams: map[domain.Side]*domain.Team{
			domain.SideBlue: {Picks: make(map[domain.Role]string)},
			domain.SideRed:  {Picks: make(map[domain.Role]string)},
		},
	}
	for _, r := range domain.RoleOrder {
		pair := append([]string(nil), snap.Pair(r)...)
		if len(pair) != constants.PerRoleCapacity {
			return nil, domain.ErrIncompleteRoster
		}
		d.pairs[r] = pair
		for _, id := range pair {
			d.roleOf[id] = r
		}
	}

	blueCap, redCap := capA, capB
	if d.pointsOf(capB) < d.pointsOf(capA) {
		blueCap, redCap = capB, capA
	}
	d.teams[domain.SideBlue].Captain = blueCap
	d.teams[domain.SideRed].Captain = redCap

	// Captains' own pairs split automatically before the first turn.
	d.resolvePair(d.roleOf[blueCap], blueCap, domain.SideBlue)
	d.resolvePair(d.roleOf[redCap], redCap, domain.SideRed)
	return d, nil
}

func (d *Draft) Turn() domain.Side { return d.turn }

func (d *Draft) Captain(side domain.Side) string { return d.teams[side].Captain }

func (d *Draft) Done() bool {
	return len(d.resolved) >= len(domain.RoleOrder)
}

// Pick resolves the picked player's role pair for the current captain's
// side. Rejected picks do not consume the turn.
func (d *Draft) Pick(actorID, targetID string) (domain.Role, error) {
	if d.Done() {
		return "", ErrDraftComplete
	}
	if actorID != d.teams[d.turn].Captain {
		return "", domain.ErrNotYourTurn
	}
	role, ok := d.roleOf[targetID]
	if !ok {
		return "", domain.ErrNotEligible
	}
	if d.owned(targetID) {
		return "", domain.ErrAlreadyPicked
	}
	if d.resolved[role] {
		return "", domain.ErrLaneResolved
	}

	d.resolvePair(role, targetID, d.turn)
	if !d.Done() {
		d.turn = d.turn.Opponent()
	}
	return role, nil
}

// ExpireTurn auto-resolves the first unresolved role, granting the
// lower-points player of the pair to the captain whose turn expired, then
// passes the turn.
func (d *Draft) ExpireTurn() (domain.Role, string) {
	for _, role := range domain.RoleOrder {
		if d.resolved[role] {
			continue
		}
		pair := d.pairs[role]
		pick := pair[0]
		if len(pair) == 2 && d.pointsOf(pair[1]) < d.pointsOf(pair[0]) {
			pick = pair[1]
		}
		d.resolvePair(role, pick, d.turn)
		if !d.Done() {
			d.turn = d.turn.Opponent()
		}
		return role, pick
	}
	return "", ""
}

// Match returns the completed rosters.
func (d *Draft) Match() (domain.Match, error) {
	if !d.Done() {
		return domain.Match{}, domain.ErrDraftTimeout
	}
	return domain.Match{
		Blue: d.teamCopy(domain.SideBlue),
		Red:  d.teamCopy(domain.SideRed),
	}, nil
}

func (d *Draft) Board() Board {
	return Board{
		Turn:      d.turn,
		Blue:      d.teamCopy(domain.SideBlue),
		Red:       d.teamCopy(domain.SideRed),
		Remaining: len(domain.RoleOrder) - len(d.resolved),
		Points:    d.points,
	}
}

func (d *Draft) resolvePair(role domain.Role, chosenID string, side domain.Side) {
	if d.resolved[role] {
		return
	}
	d.teams[side].Picks[role] = chosenID
	for _, id := range d.pairs[role] {
		if id != chosenID {
			d.teams[side.Opponent()].Picks[role] = id
		}
	}
	d.resolved[role] = true
}

func (d *Draft) owned(id string) bool {
	for _, team := range d.teams {
		if team.Captain == id {
			return true
		}
		for _, picked := range team.Picks {
			if picked == id {
				return true
			}
		}
	}
	return false
}

func (d *Draft) pointsOf(id string) int {
	if p, ok := d.points[id]; ok {
		return p
	}
	return constants.DefaultPoints
}

func (d *Draft) teamCopy(side domain.Side) domain.Team {
	t := domain.Team{Captain: d.teams[side].Captain, Picks: make(map[domain.Role]string)}
	for r, id := range d.teams[side].Picks {
		t.Picks[r] = id
	}
	return t
}
