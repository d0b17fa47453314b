package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"queueup/internal/config"
	"queueup/internal/constants"
	"queueup/internal/domain"
	"queueup/internal/notify"
	"queueup/internal/queue"
	"queueup/internal/serializer"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlayers struct {
	mu      sync.Mutex
	players map[string]domain.Player
	history int
}

func newFakePlayers() *fakePlayers {
	return &fakePlayers{players: make(map[string]domain.Player)}
}

func (f *fakePlayers) Ensure(_ context.Context, tenantID, playerID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.players[playerID]; !ok {
		f.players[playerID] = domain.Player{
			TenantID:  tenantID,
			PlayerID:  playerID,
			Name:      name,
			Points:    constants.DefaultPoints,
			HiddenMMR: constants.DefaultMMR,
		}
	}
	return nil
}

func (f *fakePlayers) GetBatch(_ context.Context, _ string, ids []string) (map[string]domain.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]domain.Player, len(ids))
	for _, id := range ids {
		if p, ok := f.players[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakePlayers) ApplyMatchResult(_ context.Context, _ string, updates []domain.PlayerUpdate, records []domain.RatingRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range updates {
		p, ok := f.players[u.PlayerID]
		if !ok {
			return domain.ErrMissingPlayerRecord
		}
		p.Points += u.PointsDelta
		p.HiddenMMR += u.MMRDelta
		if u.Won {
			p.MatchWins++
		} else {
			p.MatchLosses++
		}
		f.players[u.PlayerID] = p
	}
	f.history += len(records)
	return nil
}

func (f *fakePlayers) SetStats(_ context.Context, _ string, playerID string, points, hiddenMMR, wins, losses int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[playerID]
	if !ok {
		return domain.ErrMissingPlayerRecord
	}
	p.Points, p.HiddenMMR, p.MatchWins, p.MatchLosses = points, hiddenMMR, wins, losses
	f.players[playerID] = p
	return nil
}

func (f *fakePlayers) get(id string) domain.Player {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.players[id]
}

func (f *fakePlayers) historyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history
}

type fakeConfigs struct {
	mu   sync.Mutex
	cfgs map[string]domain.TenantConfig
}

func newFakeConfigs() *fakeConfigs {
	return &fakeConfigs{cfgs: make(map[string]domain.TenantConfig)}
}

func (f *fakeConfigs) Load(_ context.Context, tenantID string) (domain.TenantConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cfg, ok := f.cfgs[tenantID]; ok {
		return cfg, nil
	}
	return domain.TenantConfig{TenantID: tenantID}, nil
}

func (f *fakeConfigs) Save(_ context.Context, cfg domain.TenantConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfgs[cfg.TenantID] = cfg
	return nil
}

func (f *fakeConfigs) AdvanceSession(_ context.Context, tenantID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg := f.cfgs[tenantID]
	cfg.TenantID = tenantID
	if cfg.SessionNumber == 0 {
		cfg.SessionNumber = 1
	}
	cfg.SessionNumber++
	f.cfgs[tenantID] = cfg
	return cfg.SessionNumber, nil
}

func (f *fakeConfigs) sessionNumber(tenantID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfgs[tenantID].SessionNumber
}

type recordSink struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordSink) Publish(_ context.Context, ev notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordSink) has(kind string) bool {
	_, ok := r.find(kind)
	return ok
}

func (r *recordSink) find(kind string) (notify.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if ev.Kind == kind {
			return ev, true
		}
	}
	return notify.Event{}, false
}

const testTenant = "t1"

func testDefaults() domain.TenantConfig {
	return domain.TenantConfig{
		SessionNumber:   1,
		PerRoleCapacity: 2,
		VoteThreshold:   6,
		RolePickWait:    2 * time.Second,
		MemberWait:      2 * time.Second,
		CaptainVoteWait: 2 * time.Second,
		DraftTurnWait:   2 * time.Second,
		ResultVoteWait:  5 * time.Second,
	}
}

func newTestManager(t *testing.T, defaults domain.TenantConfig) (*Manager, *fakePlayers, *fakeConfigs, *MemoryRooms, *recordSink) {
	t.Helper()
	players := newFakePlayers()
	configs := newFakeConfigs()
	rooms := NewMemoryRooms()
	sink := &recordSink{}
	m := NewManager(
		&config.Config{Defaults: defaults},
		zerolog.Nop(),
		serializer.New(),
		players, configs, rooms, rooms, sink,
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.Stop(ctx)
	})
	return m, players, configs, rooms, sink
}

// tenPlayers yields two ids per role, role name plus slot index.
func tenPlayers() []string {
	var ids []string
	for _, r := range domain.RoleOrder {
		for i := 0; i < 2; i++ {
			ids = append(ids, fmt.Sprintf("%s%d", r, i))
		}
	}
	return ids
}

func fillQueue(t *testing.T, m *Manager) {
	t.Helper()
	ctx := context.Background()
	for _, r := range domain.RoleOrder {
		for i := 0; i < 2; i++ {
			id := fmt.Sprintf("%s%d", r, i)
			require.NoError(t, m.Join(ctx, testTenant, id, id))
			_, err := m.ChooseRole(ctx, testTenant, id, r)
			require.NoError(t, err)
		}
	}
}

func waitPhase(t *testing.T, m *Manager, phase Phase) {
	t.Helper()
	require.Eventually(t, func() bool {
		st, err := m.Status(context.Background(), testTenant)
		return err == nil && st.Phase == phase
	}, 5*time.Second, 10*time.Millisecond, "never reached phase %s", phase)
}

func TestFullSessionLifecycle(t *testing.T) {
	m, players, configs, rooms, sink := newTestManager(t, testDefaults())
	ctx := context.Background()

	lobby, err := rooms.CreateVoiceRoom(ctx, testTenant, "lobby")
	require.NoError(t, err)
	require.NoError(t, configs.Save(ctx, domain.TenantConfig{TenantID: testTenant, LobbyRoomID: lobby}))
	for _, id := range tenPlayers() {
		require.NoError(t, rooms.MoveActor(ctx, id, "", lobby))
	}

	fillQueue(t, m)

	// All ten are moved into the session room, so the barrier passes and the
	// captain election opens.
	waitPhase(t, m, PhaseCaptainVote)
	for _, id := range tenPlayers() {
		require.NoError(t, m.CastCaptainRolePair(ctx, testTenant, id, domain.RoleTop))
	}

	// The Top pair wins by plurality; blue is the lower-id captain on equal
	// points, and both Top slots are pre-resolved.
	waitPhase(t, m, PhaseDraft)
	picks := []struct {
		actor, target string
	}{
		{"Top0", "Jungle0"},
		{"Top1", "Mid0"},
		{"Top0", "ADC0"},
		{"Top1", "Support0"},
	}
	for _, p := range picks {
		_, err := m.Pick(ctx, testTenant, p.actor, p.target)
		require.NoError(t, err)
	}

	waitPhase(t, m, PhaseResultVote)
	blueTeam := []string{"Top0", "Jungle0", "Mid1", "ADC0", "Support1"}
	for _, id := range blueTeam {
		require.NoError(t, m.CastResultVote(ctx, testTenant, id, domain.SideBlue))
	}
	require.NoError(t, m.CastResultVote(ctx, testTenant, "Jungle1", domain.SideBlue))

	// Resolution tears the session down and advances the counter.
	require.Eventually(t, func() bool {
		return configs.sessionNumber(testTenant) == 2
	}, 5*time.Second, 10*time.Millisecond)

	assert.True(t, sink.has(notify.KindMatchResolved))
	assert.True(t, sink.has(notify.KindDraftComplete))

	// Even ratings on both sides: every winner gains 40, every loser loses 40.
	assert.Equal(t, 540, players.get("Top0").Points)
	assert.Equal(t, 1, players.get("Top0").MatchWins)
	assert.Equal(t, 460, players.get("Top1").Points)
	assert.Equal(t, 1, players.get("Top1").MatchLosses)
	assert.Equal(t, 10, players.historyCount())

	// A fresh queue is available under the advanced session number.
	require.Eventually(t, func() bool {
		st, err := m.Status(ctx, testTenant)
		return err == nil && st.Phase == PhaseQueue && st.Session == 2
	}, 5*time.Second, 10*time.Millisecond)
}

func TestPresenceTimeoutAbortsAndRollsBack(t *testing.T) {
	defaults := testDefaults()
	defaults.MemberWait = 100 * time.Millisecond
	m, players, configs, rooms, sink := newTestManager(t, defaults)

	// No lobby configured and nobody enters the session room, so the barrier
	// must time out.
	fillQueue(t, m)

	require.Eventually(t, func() bool {
		return sink.has(notify.KindSessionAbort)
	}, 5*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return configs.sessionNumber(testTenant) == 2
	}, 5*time.Second, 10*time.Millisecond)

	// Rollback deletes every provisioned room and leaves ratings untouched.
	require.Eventually(t, func() bool {
		rooms.mu.Lock()
		defer rooms.mu.Unlock()
		return len(rooms.rooms) == 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, constants.DefaultPoints, players.get("Top0").Points)
	assert.Equal(t, 0, players.historyCount())
}

func TestDraftTurnExpiryAutoResolves(t *testing.T) {
	defaults := testDefaults()
	defaults.DraftTurnWait = 100 * time.Millisecond
	m, _, _, rooms, _ := newTestManager(t, defaults)
	ctx := context.Background()

	lobby, err := rooms.CreateVoiceRoom(ctx, testTenant, "lobby")
	require.NoError(t, err)
	require.NoError(t, m.SaveConfig(ctx, domain.TenantConfig{TenantID: testTenant, LobbyRoomID: lobby}))
	for _, id := range tenPlayers() {
		require.NoError(t, rooms.MoveActor(ctx, id, "", lobby))
	}

	fillQueue(t, m)
	waitPhase(t, m, PhaseCaptainVote)
	for _, id := range tenPlayers() {
		require.NoError(t, m.CastCaptainRolePair(ctx, testTenant, id, domain.RoleTop))
	}

	// Nobody picks; every turn expires and the board auto-resolves.
	waitPhase(t, m, PhaseResultVote)
	st, err := m.Status(ctx, testTenant)
	require.NoError(t, err)
	require.NotNil(t, st.Board)
	assert.Equal(t, 0, st.Board.Remaining)
}

func TestRolePickWindowExpires(t *testing.T) {
	defaults := testDefaults()
	defaults.RolePickWait = 50 * time.Millisecond
	m, _, _, _, _ := newTestManager(t, defaults)
	ctx := context.Background()

	require.NoError(t, m.Join(ctx, testTenant, "p1", "p1"))
	time.Sleep(150 * time.Millisecond)

	_, err := m.ChooseRole(ctx, testTenant, "p1", domain.RoleTop)
	assert.ErrorIs(t, err, domain.ErrNotQueued)
}

func TestJoinLifecycleErrors(t *testing.T) {
	m, _, _, _, _ := newTestManager(t, testDefaults())
	ctx := context.Background()

	// Picking a role without an open window is rejected.
	_, err := m.ChooseRole(ctx, testTenant, "p1", domain.RoleTop)
	assert.ErrorIs(t, err, domain.ErrNotQueued)

	require.NoError(t, m.Join(ctx, testTenant, "p1", "p1"))
	assert.ErrorIs(t, m.Join(ctx, testTenant, "p1", "p1"), domain.ErrAlreadyQueued)

	_, err = m.ChooseRole(ctx, testTenant, "p1", domain.RoleMid)
	require.NoError(t, err)
	assert.ErrorIs(t, m.Join(ctx, testTenant, "p1", "p1"), domain.ErrAlreadyQueued)

	snap, err := m.Leave(ctx, testTenant, "p1")
	require.NoError(t, err)
	assert.Empty(t, snap.Ids())

	_, err = m.Leave(ctx, testTenant, "p1")
	assert.ErrorIs(t, err, domain.ErrNotQueued)
}

func TestVoteActionsRejectedOutsideTheirPhase(t *testing.T) {
	m, _, _, _, _ := newTestManager(t, testDefaults())
	ctx := context.Background()

	// No active session at all.
	err := m.CastResultVote(ctx, testTenant, "p1", domain.SideBlue)
	assert.ErrorIs(t, err, domain.ErrNotQueued)

	require.NoError(t, m.Join(ctx, testTenant, "p1", "p1"))
	assert.ErrorIs(t, m.CastCaptainVote(ctx, testTenant, "p1", "p1"), ErrWrongPhase)
	assert.ErrorIs(t, m.CastResultVote(ctx, testTenant, "p1", domain.SideBlue), ErrWrongPhase)
	_, err = m.Pick(ctx, testTenant, "p1", "p2")
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestSaveConfigClampsTimers(t *testing.T) {
	m, _, configs, _, _ := newTestManager(t, testDefaults())
	ctx := context.Background()

	require.NoError(t, m.SaveConfig(ctx, domain.TenantConfig{
		TenantID:      testTenant,
		DraftTurnWait: 1 * time.Second,
		MemberWait:    48 * time.Hour,
	}))

	stored, err := configs.Load(ctx, testTenant)
	require.NoError(t, err)
	assert.Equal(t, constants.TimerMin, stored.DraftTurnWait)
	assert.Equal(t, constants.TimerMax, stored.MemberWait)
}

func TestSetPlayerStatsOverride(t *testing.T) {
	m, players, _, _, _ := newTestManager(t, testDefaults())
	ctx := context.Background()

	require.NoError(t, m.Join(ctx, testTenant, "p1", "p1"))
	require.NoError(t, m.SetPlayerStats(ctx, testTenant, "p1", 700, 650, 12, 8))

	p := players.get("p1")
	assert.Equal(t, 700, p.Points)
	assert.Equal(t, 650, p.HiddenMMR)
	assert.Equal(t, 12, p.MatchWins)
}

func TestLateJoinReportsQueueFullDuringSession(t *testing.T) {
	m, _, _, _, _ := newTestManager(t, testDefaults())
	ctx := context.Background()

	// No lobby and nobody present, so the session parks at the barrier.
	fillQueue(t, m)
	waitPhase(t, m, PhaseBarrier)

	err := m.Join(ctx, testTenant, "latecomer", "latecomer")
	assert.ErrorIs(t, err, domain.ErrQueueFull)
}

func TestCapacityOverridesPinnedToPairs(t *testing.T) {
	m, _, configs, _, _ := newTestManager(t, testDefaults())
	ctx := context.Background()

	require.NoError(t, m.SaveConfig(ctx, domain.TenantConfig{TenantID: testTenant, PerRoleCapacity: 3}))
	stored, err := configs.Load(ctx, testTenant)
	require.NoError(t, err)
	assert.Equal(t, constants.PerRoleCapacity, stored.PerRoleCapacity)

	// A stored override from outside the admin surface is ignored too.
	require.NoError(t, configs.Save(ctx, domain.TenantConfig{TenantID: testTenant, PerRoleCapacity: 3}))
	cfg, err := m.Config(ctx, testTenant)
	require.NoError(t, err)
	assert.Equal(t, constants.PerRoleCapacity, cfg.PerRoleCapacity)

	st, err := m.Status(ctx, testTenant)
	require.NoError(t, err)
	assert.Equal(t, constants.PerRoleCapacity, st.Queue.Capacity)
}

func TestBarrierProgressAnnouncesMissing(t *testing.T) {
	defaults := testDefaults()
	defaults.MemberWait = 500 * time.Millisecond
	m, _, configs, rooms, sink := newTestManager(t, defaults)
	ctx := context.Background()

	lobby, err := rooms.CreateVoiceRoom(ctx, testTenant, "lobby")
	require.NoError(t, err)
	require.NoError(t, configs.Save(ctx, domain.TenantConfig{TenantID: testTenant, LobbyRoomID: lobby}))

	// Everyone but Support1 is in the lobby when the queue fills.
	all := tenPlayers()
	for _, id := range all[:len(all)-1] {
		require.NoError(t, rooms.MoveActor(ctx, id, "", lobby))
	}

	fillQueue(t, m)

	require.Eventually(t, func() bool {
		return sink.has(notify.KindBarrierProgress)
	}, 5*time.Second, 10*time.Millisecond)
	ev, ok := sink.find(notify.KindBarrierProgress)
	require.True(t, ok)
	assert.Equal(t, []string{"Support1"}, ev.Missing)
}

func TestStaleTurnExpiryIsIgnored(t *testing.T) {
	s := newSession(testTenant, testDefaults(), zerolog.Nop())

	q := queue.New(constants.PerRoleCapacity)
	for _, r := range domain.RoleOrder {
		for i := 0; i < 2; i++ {
			_, err := q.Join(fmt.Sprintf("%s%d", r, i), r)
			require.NoError(t, err)
		}
	}
	s.mu.Lock()
	s.fullSnap = q.Snapshot()
	s.mu.Unlock()

	points := make(map[string]int)
	for _, id := range tenPlayers() {
		points[id] = constants.DefaultPoints
	}
	require.NoError(t, s.startDraft("Top0", "Top1", points))

	_, seq, done := s.draftTurn()
	require.False(t, done)

	// The pick lands after the turn timer fired but before the expiry ran;
	// the stale expiry must not resolve a second role.
	_, err := s.Pick("Top0", "Jungle0")
	require.NoError(t, err)

	role, pick := s.expireTurn(seq)
	assert.Empty(t, role)
	assert.Empty(t, pick)

	st := s.Status()
	require.NotNil(t, st.Board)
	assert.Equal(t, 3, st.Board.Remaining)
}
