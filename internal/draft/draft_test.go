package draft

import (
	"testing"

	"queueup/internal/domain"
	"queueup/internal/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPartialQueue(t *testing.T) queue.Snapshot {
	t.Helper()
	q := queue.New(2)
	_, err := q.Join("Top0", domain.RoleTop)
	require.NoError(t, err)
	_, err = q.Join("Mid0", domain.RoleMid)
	require.NoError(t, err)
	return q.Snapshot()
}

func draftPoints() map[string]int {
	return map[string]int{
		"Top0": 520, "Top1": 480,
		"Jungle0": 510, "Jungle1": 490,
		"Mid0": 530, "Mid1": 470,
		"ADC0": 500, "ADC1": 500,
		"Support0": 450, "Support1": 550,
	}
}

func TestLowerRatedCaptainTakesBlue(t *testing.T) {
	d, err := New(fullSnapshot(t), "Mid0", "Top1", draftPoints())
	require.NoError(t, err)

	assert.Equal(t, "Top1", d.Captain(domain.SideBlue))
	assert.Equal(t, "Mid0", d.Captain(domain.SideRed))
	assert.Equal(t, domain.SideBlue, d.Turn())
}

func TestCaptainRolesPreResolved(t *testing.T) {
	d, err := New(fullSnapshot(t), "Mid0", "Top1", draftPoints())
	require.NoError(t, err)

	board := d.Board()
	assert.Equal(t, "Top1", board.Blue.Picks[domain.RoleTop])
	assert.Equal(t, "Top0", board.Red.Picks[domain.RoleTop])
	assert.Equal(t, "Mid0", board.Red.Picks[domain.RoleMid])
	assert.Equal(t, "Mid1", board.Blue.Picks[domain.RoleMid])
	assert.Equal(t, 3, board.Remaining)
}

func TestPickResolvesPairAndAlternatesTurn(t *testing.T) {
	d, err := New(fullSnapshot(t), "Mid0", "Top1", draftPoints())
	require.NoError(t, err)

	role, err := d.Pick("Top1", "Jungle0")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleJungle, role)
	assert.Equal(t, domain.SideRed, d.Turn())

	board := d.Board()
	assert.Equal(t, "Jungle0", board.Blue.Picks[domain.RoleJungle])
	assert.Equal(t, "Jungle1", board.Red.Picks[domain.RoleJungle])
}

func TestPickRejections(t *testing.T) {
	d, err := New(fullSnapshot(t), "Mid0", "Top1", draftPoints())
	require.NoError(t, err)

	_, err = d.Pick("Mid0", "Jungle0")
	assert.ErrorIs(t, err, domain.ErrNotYourTurn)

	_, err = d.Pick("Top1", "stranger")
	assert.ErrorIs(t, err, domain.ErrNotEligible)

	_, err = d.Pick("Top1", "Mid0")
	assert.ErrorIs(t, err, domain.ErrAlreadyPicked)

	// Rejections never consume the turn.
	assert.Equal(t, domain.SideBlue, d.Turn())
}

func TestLaneResolvedRejection(t *testing.T) {
	d, err := New(fullSnapshot(t), "Mid0", "Top1", draftPoints())
	require.NoError(t, err)

	_, err = d.Pick("Top1", "Jungle0")
	require.NoError(t, err)

	// Red captain now tries the already-split jungle pair's other member.
	_, err = d.Pick("Mid0", "Jungle1")
	assert.ErrorIs(t, err, domain.ErrAlreadyPicked)
}

func TestExpireTurnAutoResolvesLowerRated(t *testing.T) {
	d, err := New(fullSnapshot(t), "Mid0", "Top1", draftPoints())
	require.NoError(t, err)

	// Blue's turn expires: first unresolved role is Jungle, and Jungle1
	// (490) is cheaper than Jungle0 (510).
	role, picked := d.ExpireTurn()
	assert.Equal(t, domain.RoleJungle, role)
	assert.Equal(t, "Jungle1", picked)
	assert.Equal(t, "Jungle1", d.Board().Blue.Picks[domain.RoleJungle])
	assert.Equal(t, domain.SideRed, d.Turn())
}

func TestCompletedDraftProducesFullLaneMirror(t *testing.T) {
	snap := fullSnapshot(t)
	d, err := New(snap, "Mid0", "Top1", draftPoints())
	require.NoError(t, err)

	for !d.Done() {
		d.ExpireTurn()
	}

	match, err := d.Match()
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, r := range domain.RoleOrder {
		blue, ok := match.Blue.Picks[r]
		require.True(t, ok, "blue missing %s", r)
		red, ok := match.Red.Picks[r]
		require.True(t, ok, "red missing %s", r)
		assert.NotEqual(t, blue, red)
		for _, id := range []string{blue, red} {
			assert.False(t, seen[id], "duplicate entrant %s", id)
			seen[id] = true
		}
	}
	assert.ElementsMatch(t, snap.Ids(), match.Participants())
}

func TestMatchBeforeDoneFails(t *testing.T) {
	d, err := New(fullSnapshot(t), "Mid0", "Top1", draftPoints())
	require.NoError(t, err)

	_, err = d.Match()
	assert.ErrorIs(t, err, domain.ErrDraftTimeout)
}

func TestPickAfterDoneRejected(t *testing.T) {
	d, err := New(fullSnapshot(t), "Mid0", "Top1", draftPoints())
	require.NoError(t, err)
	for !d.Done() {
		d.ExpireTurn()
	}

	_, err = d.Pick(d.Captain(d.Turn()), "ADC0")
	assert.ErrorIs(t, err, ErrDraftComplete)
}

func TestIncompleteQueueRejected(t *testing.T) {
	q := newPartialQueue(t)
	_, err := New(q, "Top0", "Mid0", nil)
	assert.ErrorIs(t, err, domain.ErrIncompleteRoster)
}
