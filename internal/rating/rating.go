package rating

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"queueup/internal/constants"
	"queueup/internal/domain"
)

// Result carries the integer deltas and post-match values for all ten
// participants. Deltas are persisted in a single all-or-nothing batch.
type Result struct {
	PointsDeltas map[string]int
	MMRDeltas    map[string]int
	PointsAfter  map[string]int
	MMRAfter     map[string]int
	Winner       domain.Side
}

// Won reports whether the given participant was on the winning side.
func (r *Result) Won(m domain.Match, id string) bool {
	onBlue := false
	for _, b := range m.Blue.Ids() {
		if b == id {
			onBlue = true
			break
		}
	}
	return (onBlue && r.Winner == domain.SideBlue) || (!onBlue && r.Winner == domain.SideRed)
}

// ApplyMatchResult is a pure function of the match outcome and the players'
// stored history. Public points move as a team-level unit swing redistributed
// by the hidden-vs-public gap; hidden MMR moves per player with a
// game-count-aware step size scaled by smoothed career win rate.
func ApplyMatchResult(match domain.Match, winner domain.Side, records map[string]domain.Player) (*Result, error) {
	if winner != domain.SideBlue && winner != domain.SideRed {
		return nil, fmt.Errorf("invalid winner %q", winner)
	}

	blueIds := match.Blue.Ids()
	redIds := match.Red.Ids()
	if len(blueIds) != constants.TeamSize || len(redIds) != constants.TeamSize {
		return nil, domain.ErrIncompleteRoster
	}

	allIds := append(append([]string(nil), blueIds...), redIds...)
	var missing []string
	for _, id := range allIds {
		if _, ok := records[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingPlayerRecord, strings.Join(missing, ", "))
	}

	n := float64(constants.TeamSize)
	points := func(id string) float64 { return float64(records[id].Points) }
	hidden := func(id string) float64 { return float64(records[id].HiddenMMR) }

	// Public points: one unit swing per side, split by bridge multipliers.
	muBlue := teamAvg(blueIds, points)
	muRed := teamAvg(redIds, points)
	eBlue := expectedScore(muBlue, muRed, constants.DPoints)
	sBlue := 0.0
	if winner == domain.SideBlue {
		sBlue = 1.0
	}
	unitBlue := constants.KPoints * (sBlue - eBlue)
	unitRed := -unitBlue

	mBlue := bridgeMultipliers(blueIds, records, unitBlue)
	mRed := bridgeMultipliers(redIds, records, unitRed)
	sumBlue := sum(mBlue)
	sumRed := sum(mRed)

	res := &Result{
		PointsDeltas: make(map[string]int, len(allIds)),
		MMRDeltas:    make(map[string]int, len(allIds)),
		PointsAfter:  make(map[string]int, len(allIds)),
		MMRAfter:     make(map[string]int, len(allIds)),
		Winner:       winner,
	}
	for i, id := range blueIds {
		res.PointsDeltas[id] = int(math.Round(unitBlue * (n * mBlue[i] / sumBlue)))
	}
	for i, id := range redIds {
		res.PointsDeltas[id] = int(math.Round(unitRed * (n * mRed[i] / sumRed)))
	}

	// Hidden MMR: per-player Elo against the opposing team's hidden average.
	muBlueHidden := teamAvg(blueIds, hidden)
	muRedHidden := teamAvg(redIds, hidden)

	onBlue := make(map[string]bool, len(blueIds))
	for _, id := range blueIds {
		onBlue[id] = true
	}

	for _, id := range allIds {
		rec := records[id]
		won := (onBlue[id] && winner == domain.SideBlue) || (!onBlue[id] && winner == domain.SideRed)
		s := 0.0
		if won {
			s = 1.0
		}
		oppAvg := muBlueHidden
		if onBlue[id] {
			oppAvg = muRedHidden
		}

		k := kFromGames(rec.Games())
		e := expectedScore(hidden(id), oppAvg, constants.DMMR)
		m := winrateMultiplier(rec.MatchWins, rec.Games())
		res.MMRDeltas[id] = int(math.Round(k * (s - e) * m))
	}

	for _, id := range allIds {
		res.PointsAfter[id] = records[id].Points + res.PointsDeltas[id]
		res.MMRAfter[id] = records[id].HiddenMMR + res.MMRDeltas[id]
	}
	return res, nil
}

// expectedScore is the logistic expectation of A beating B at scale d.
func expectedScore(muA, muB, d float64) float64 {
	return 1 / (1 + math.Pow(10, (muB-muA)/d))
}

// kFromGames decays the hidden-MMR step size with lifetime game count:
// linear from 120 to 40 over the first 10 games, then exponential relaxation
// toward the floor of 20 with time constant 50.
func kFromGames(games int) float64 {
	g := float64(games)
	if g < 0 {
		g = 0
	}
	if g < constants.KRampLen {
		return constants.KStart - (constants.KStart-constants.KEnd)*(g/constants.KRampLen)
	}
	k := constants.KFloor + (constants.KEnd-constants.KFloor)*math.Exp(-(g-constants.KRampLen)/constants.KTau)
	return math.Max(constants.KFloor, k)
}

// smoothedWinrate is a Bayesian-smoothed win rate with a 50% prior of
// weight beta, keeping new accounts near neutral.
func smoothedWinrate(wins, games int) float64 {
	return (float64(wins) + 0.5*constants.PriorBeta) / (float64(games) + constants.PriorBeta)
}

// winrateMultiplier maps smoothed win rate to a step multiplier in
// [1-amp, 1+amp]. High-win-rate players gain and lose hidden rating faster.
func winrateMultiplier(wins, games int) float64 {
	w := smoothedWinrate(wins, games)
	x := 2*w - 1
	f := sign(x) * math.Pow(math.Abs(x), constants.WinrateGamma)
	m := 1 + constants.WinrateAmp*f
	return math.Min(1+constants.WinrateAmp, math.Max(1-constants.WinrateAmp, m))
}

// bridgeMultiplier weights a player's share of the team unit swing by the
// signed gap between hidden and public rating, through a tanh bounded at
// +-cap. Players whose hidden skill exceeds their public rating absorb more
// of a win and less of a loss.
func bridgeMultiplier(hidden, points, unit float64) float64 {
	gap := hidden - points
	t := math.Tanh(gap / constants.BridgeScale)
	if unit >= 0 {
		return 1 + constants.BridgeCap*t
	}
	return 1 - constants.BridgeCap*t
}

func bridgeMultipliers(ids []string, records map[string]domain.Player, unit float64) []float64 {
	out := make([]float64, len(ids))
	for i, id := range ids {
		rec := records[id]
		m := bridgeMultiplier(float64(rec.HiddenMMR), float64(rec.Points), unit)
		out[i] = clamp(m, 0.5, 1.5)
	}
	return out
}

func teamAvg(ids []string, f func(string) float64) float64 {
	var total float64
	for _, id := range ids {
		total += f(id)
	}
	return total / float64(len(ids))
}

func sum(xs []float64) float64 {
	var total float64
	for _, x := range xs {
		total += x
	}
	return total
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
