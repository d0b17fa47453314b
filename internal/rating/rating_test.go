package rating

import (
	"fmt"
	"testing"

	"queueup/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evenMatch() (domain.Match, map[string]domain.Player) {
	match := domain.Match{
		Blue: domain.Team{Captain: "b-Top", Picks: map[domain.Role]string{}},
		Red:  domain.Team{Captain: "r-Top", Picks: map[domain.Role]string{}},
	}
	records := map[string]domain.Player{}
	for _, r := range domain.RoleOrder {
		b := fmt.Sprintf("b-%s", r)
		red := fmt.Sprintf("r-%s", r)
		match.Blue.Picks[r] = b
		match.Red.Picks[r] = red
		records[b] = domain.Player{PlayerID: b, Points: 500, HiddenMMR: 500}
		records[red] = domain.Player{PlayerID: red, Points: 500, HiddenMMR: 500}
	}
	return match, records
}

func TestEvenMatchSplitsUnitSwingEvenly(t *testing.T) {
	match, records := evenMatch()

	res, err := ApplyMatchResult(match, domain.SideBlue, records)
	require.NoError(t, err)

	// Expected score 0.5 both ways, so the unit swing is K/2 = 40 and the
	// bridge multipliers are all neutral.
	for _, id := range match.Blue.Ids() {
		assert.Equal(t, 40, res.PointsDeltas[id], id)
		assert.Equal(t, 540, res.PointsAfter[id], id)
	}
	for _, id := range match.Red.Ids() {
		assert.Equal(t, -40, res.PointsDeltas[id], id)
	}
}

func TestSideTotalsMatchUnitSwing(t *testing.T) {
	match, records := evenMatch()
	// Skew some ratings so multipliers differ.
	rec := records["b-Mid"]
	rec.HiddenMMR = 700
	records["b-Mid"] = rec
	rec = records["b-Top"]
	rec.Points = 620
	records["b-Top"] = rec

	res, err := ApplyMatchResult(match, domain.SideRed, records)
	require.NoError(t, err)

	var blueTotal, redTotal int
	for _, id := range match.Blue.Ids() {
		blueTotal += res.PointsDeltas[id]
	}
	for _, id := range match.Red.Ids() {
		redTotal += res.PointsDeltas[id]
	}

	// The redistribution preserves the side total up to integer rounding.
	assert.InDelta(t, float64(-blueTotal), float64(redTotal), 5)
	assert.Negative(t, blueTotal)
	assert.Positive(t, redTotal)
}

func TestHiddenSkillAbsorbsMoreOfAWin(t *testing.T) {
	match, records := evenMatch()
	smurf := records["b-Jungle"]
	smurf.HiddenMMR = 650 // hidden skill above public rating
	records["b-Jungle"] = smurf

	res, err := ApplyMatchResult(match, domain.SideBlue, records)
	require.NoError(t, err)

	assert.Greater(t, res.PointsDeltas["b-Jungle"], res.PointsDeltas["b-Top"])
}

func TestDeterministic(t *testing.T) {
	match, records := evenMatch()
	rec := records["r-ADC"]
	rec.HiddenMMR, rec.MatchWins, rec.MatchLosses = 610, 7, 2
	records["r-ADC"] = rec

	first, err := ApplyMatchResult(match, domain.SideRed, records)
	require.NoError(t, err)
	second, err := ApplyMatchResult(match, domain.SideRed, records)
	require.NoError(t, err)

	assert.Equal(t, first.PointsDeltas, second.PointsDeltas)
	assert.Equal(t, first.MMRDeltas, second.MMRDeltas)
}

func TestHiddenDeltaScenario(t *testing.T) {
	// Career 3W-1L, hidden 550 against an opposing hidden average of 500,
	// wins the match: K interpolated at g=4 is 88, expectation at gap 50 is
	// ~0.5715, win-rate multiplier just above 1.
	match, records := evenMatch()
	target := records["b-Mid"]
	target.HiddenMMR = 550
	target.MatchWins = 3
	target.MatchLosses = 1
	records["b-Mid"] = target

	res, err := ApplyMatchResult(match, domain.SideBlue, records)
	require.NoError(t, err)

	assert.Equal(t, 38, res.MMRDeltas["b-Mid"])
	assert.Equal(t, 588, res.MMRAfter["b-Mid"])
}

func TestKDecay(t *testing.T) {
	assert.InDelta(t, 120, kFromGames(0), 1e-9)
	assert.InDelta(t, 88, kFromGames(4), 1e-9)
	assert.InDelta(t, 40, kFromGames(10), 1e-9)
	assert.Less(t, kFromGames(60), 40.0)
	assert.GreaterOrEqual(t, kFromGames(10000), 20.0)
}

func TestWinrateMultiplierBounds(t *testing.T) {
	assert.InDelta(t, 1.0, winrateMultiplier(0, 0), 1e-9)
	assert.Greater(t, winrateMultiplier(90, 100), 1.0)
	assert.Less(t, winrateMultiplier(10, 100), 1.0)
	assert.LessOrEqual(t, winrateMultiplier(1000, 1000), 1.6)
	assert.GreaterOrEqual(t, winrateMultiplier(0, 1000), 0.4)
}

func TestIncompleteRoster(t *testing.T) {
	match, records := evenMatch()
	delete(match.Red.Picks, domain.RoleSupport)

	_, err := ApplyMatchResult(match, domain.SideBlue, records)
	assert.ErrorIs(t, err, domain.ErrIncompleteRoster)
}

func TestMissingPlayerRecord(t *testing.T) {
	match, records := evenMatch()
	delete(records, "r-Jungle")

	_, err := ApplyMatchResult(match, domain.SideBlue, records)
	require.ErrorIs(t, err, domain.ErrMissingPlayerRecord)
	assert.Contains(t, err.Error(), "r-Jungle")
}

func TestInvalidWinnerRejected(t *testing.T) {
	match, records := evenMatch()
	_, err := ApplyMatchResult(match, "", records)
	assert.Error(t, err)
}
