package draft

import (
	"errors"
	"sort"

	"queueup/internal/constants"
	"queueup/internal/domain"
	"queueup/internal/queue"
)

var (
	ErrVoteLimit        = errors.New("vote limit reached, unselect a candidate first")
	ErrUnknownCandidate = errors.New("unknown candidate")
	ErrVoteClosed       = errors.New("vote already resolved")
	ErrNoVote           = errors.New("no vote to clear")
)

// CaptainVote tallies captain election ballots. Every queued player may hold
// up to two candidate votes at a time; casting an already-held candidate
// releases it. The session layer owns the election timer.
type CaptainVote struct {
	eligible map[string]bool
	pairs    map[domain.Role][]string
	votes    map[string][]string
}

func NewCaptainVote(snap queue.Snapshot) *CaptainVote {
	v := &CaptainVote{
		eligible: make(map[string]bool),
		pairs:    make(map[domain.Role][]string, len(domain.RoleOrder)),
		votes:    make(map[string][]string),
	}
	for _, r := range domain.RoleOrder {
		pair := append([]string(nil), snap.Pair(r)...)
		v.pairs[r] = pair
		for _, id := range pair {
			v.eligible[id] = true
		}
	}
	return v
}

// Cast toggles one candidate on the voter's ballot.
func (v *CaptainVote) Cast(voter, candidate string) error {
	if !v.eligible[voter] {
		return domain.ErrNotEligible
	}
	if !v.eligible[candidate] {
		return ErrUnknownCandidate
	}
	picks := v.votes[voter]
	for i, id := range picks {
		if id == candidate {
			v.votes[voter] = append(picks[:i], picks[i+1:]...)
			return nil
		}
	}
	if len(picks) >= constants.CaptainVotesMax {
		return ErrVoteLimit
	}
	v.votes[voter] = append(picks, candidate)
	return nil
}

// CastRolePair replaces the voter's ballot with both candidates of a role.
func (v *CaptainVote) CastRolePair(voter string, role domain.Role) error {
	if !v.eligible[voter] {
		return domain.ErrNotEligible
	}
	pair := v.pairs[role]
	if len(pair) == 0 {
		return ErrUnknownCandidate
	}
	v.votes[voter] = append([]string(nil), pair...)
	return nil
}

// Tally returns the live per-candidate vote counts.
func (v *CaptainVote) Tally() map[string]int {
	counts := make(map[string]int, len(v.eligible))
	for id := range v.eligible {
		counts[id] = 0
	}
	for _, picks := range v.votes {
		for _, id := range picks {
			counts[id]++
		}
	}
	return counts
}

// Complete reports whether every eligible voter holds a full ballot. The
// election may end early on this condition; it is not required for
// correctness.
func (v *CaptainVote) Complete() bool {
	for id := range v.eligible {
		if len(v.votes[id]) < constants.CaptainVotesMax {
			return false
		}
	}
	return true
}

// Resolve picks the two captains by plurality, ties broken by stable id
// ordering.
func (v *CaptainVote) Resolve() (string, string) {
	counts := v.Tally()
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids[0], ids[1]
}
