package draft

import (
	"queueup/internal/domain"
)

// ResultVote collects side-votes from the ten match participants. The vote
// resolves the instant one side reaches the threshold; later ballots are
// rejected with ErrVoteClosed. A timed-out vote resolves with no winner.
type ResultVote struct {
	eligible  map[string]bool
	threshold int
	votes     map[string]domain.Side
	counts    map[domain.Side]int
	resolved  bool
	winner    domain.Side
}

func NewResultVote(participants []string, threshold int) *ResultVote {
	v := &ResultVote{
		eligible:  make(map[string]bool, len(participants)),
		threshold: threshold,
		votes:     make(map[string]domain.Side),
		counts:    map[domain.Side]int{domain.SideBlue: 0, domain.SideRed: 0},
	}
	for _, id := range participants {
		v.eligible[id] = true
	}
	return v
}

// Cast records or changes the voter's side-vote. A change decrements the
// prior choice and increments the new one in the same step. Returns true
// when this ballot resolves the vote.
func (v *ResultVote) Cast(voter string, side domain.Side) (bool, error) {
	if v.resolved {
		return false, ErrVoteClosed
	}
	if !v.eligible[voter] {
		return false, domain.ErrNotEligible
	}
	if side != domain.SideBlue && side != domain.SideRed {
		return false, ErrUnknownCandidate
	}
	if prev, ok := v.votes[voter]; ok {
		if prev == side {
			return false, nil
		}
		v.counts[prev]--
	}
	v.votes[voter] = side
	v.counts[side]++

	if v.counts[side] >= v.threshold {
		v.resolved = true
		v.winner = side
		return true, nil
	}
	return false, nil
}

// Clear withdraws the voter's ballot.
func (v *ResultVote) Clear(voter string) error {
	if v.resolved {
		return ErrVoteClosed
	}
	if !v.eligible[voter] {
		return domain.ErrNotEligible
	}
	prev, ok := v.votes[voter]
	if !ok {
		return ErrNoVote
	}
	v.counts[prev]--
	delete(v.votes, voter)
	return nil
}

// Counts returns the live blue and red tallies.
func (v *ResultVote) Counts() (int, int) {
	return v.counts[domain.SideBlue], v.counts[domain.SideRed]
}

// Winner returns the winning side once resolved.
func (v *ResultVote) Winner() (domain.Side, bool) {
	return v.winner, v.resolved
}
