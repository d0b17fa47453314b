package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"queueup/internal/config"
	"queueup/internal/constants"
	"queueup/internal/domain"
	"queueup/internal/notify"
	"queueup/internal/queue"
	"queueup/internal/rating"
	"queueup/internal/serializer"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// PlayerStore is the durable player surface the lifecycle depends on.
// Satisfied by repository.PlayerRepository.
type PlayerStore interface {
	Ensure(ctx context.Context, tenantID, playerID, name string) error
	GetBatch(ctx context.Context, tenantID string, ids []string) (map[string]domain.Player, error)
	ApplyMatchResult(ctx context.Context, tenantID string, updates []domain.PlayerUpdate, records []domain.RatingRecord) error
	SetStats(ctx context.Context, tenantID, playerID string, points, hiddenMMR, wins, losses int) error
}

// ConfigStore is the durable tenant-config surface. Satisfied by
// repository.ConfigRepository.
type ConfigStore interface {
	Load(ctx context.Context, tenantID string) (domain.TenantConfig, error)
	Save(ctx context.Context, cfg domain.TenantConfig) error
	AdvanceSession(ctx context.Context, tenantID string) (int, error)
}

// Manager owns the table of active sessions, one per tenant at most. All
// queue mutations dispatch through the serializer keyed on
// (tenant, session number); the rest of the pipeline runs in one goroutine
// per full session.
type Manager struct {
	cfg      *config.Config
	logger   zerolog.Logger
	ser      *serializer.Serializer
	players  PlayerStore
	configs  ConfigStore
	rooms    RoomProvider
	presence PresenceSource
	sink     notify.Sink

	mu       sync.RWMutex
	sessions map[string]*Session

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
}

func NewManager(
	cfg *config.Config,
	logger zerolog.Logger,
	ser *serializer.Serializer,
	players PlayerStore,
	configs ConfigStore,
	rooms RoomProvider,
	presence PresenceSource,
	sink notify.Sink,
) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:        cfg,
		logger:     logger,
		ser:        ser,
		players:    players,
		configs:    configs,
		rooms:      rooms,
		presence:   presence,
		sink:       sink,
		sessions:   make(map[string]*Session),
		baseCtx:    ctx,
		baseCancel: cancel,
	}
}

// Stop cancels every in-flight session and waits for their rollback paths,
// bounded by the shutdown timeout.
func (m *Manager) Stop(ctx context.Context) error {
	m.baseCancel()
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(constants.ShutdownTimeout):
		m.logger.Warn().Msg("sessions still winding down at shutdown deadline")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func key(tenantID string, number int) string {
	return tenantID + ":" + strconv.Itoa(number)
}

// session returns the tenant's active session, creating one from stored
// config on first use.
func (m *Manager) session(ctx context.Context, tenantID string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[tenantID]
	m.mu.RUnlock()
	if ok {
		return s, nil
	}

	stored, err := m.configs.Load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	cfg := m.cfg.Merge(stored)
	cfg.TenantID = tenantID

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[tenantID]; ok {
		return s, nil
	}
	s = newSession(tenantID, cfg, m.logger)
	m.sessions[tenantID] = s
	m.logger.Info().Str("tenant_id", tenantID).Int("session", s.number).Msg("session opened")
	return s, nil
}

func (m *Manager) drop(s *Session) {
	m.mu.Lock()
	if cur, ok := m.sessions[s.tenantID]; ok && cur == s {
		delete(m.sessions, s.tenantID)
	}
	m.mu.Unlock()
}

// Join registers the player record if needed and opens a role-pick window.
func (m *Manager) Join(ctx context.Context, tenantID, playerID, name string) error {
	if err := m.players.Ensure(ctx, tenantID, playerID, name); err != nil {
		return err
	}
	s, err := m.session(ctx, tenantID)
	if err != nil {
		return err
	}
	return m.ser.Run(ctx, key(tenantID, s.number), func() error {
		return s.Join(playerID)
	})
}

// ChooseRole claims the player's bucket slot. Filling the queue launches the
// session pipeline.
func (m *Manager) ChooseRole(ctx context.Context, tenantID string, playerID string, role domain.Role) (queue.Snapshot, error) {
	s, err := m.session(ctx, tenantID)
	if err != nil {
		return queue.Snapshot{}, err
	}
	var snap queue.Snapshot
	var full bool
	err = m.ser.Run(ctx, key(tenantID, s.number), func() error {
		var inner error
		snap, full, inner = s.ChooseRole(playerID, role)
		return inner
	})
	if err != nil {
		return snap, err
	}
	m.publish(notify.QueueEvent(tenantID, s.number, snap))
	if full {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.runSession(s)
		}()
	}
	return snap, nil
}

// Leave withdraws the player from the queue.
func (m *Manager) Leave(ctx context.Context, tenantID, playerID string) (queue.Snapshot, error) {
	s, err := m.session(ctx, tenantID)
	if err != nil {
		return queue.Snapshot{}, err
	}
	var snap queue.Snapshot
	err = m.ser.Run(ctx, key(tenantID, s.number), func() error {
		var inner error
		snap, inner = s.Leave(playerID)
		return inner
	})
	if err != nil {
		return snap, err
	}
	m.publish(notify.QueueEvent(tenantID, s.number, snap))
	return snap, nil
}

// CastCaptainVote forwards a captain-election ballot to the active session.
func (m *Manager) CastCaptainVote(ctx context.Context, tenantID, voter, candidate string) error {
	s, err := m.active(tenantID)
	if err != nil {
		return err
	}
	err = m.ser.Run(ctx, key(tenantID, s.number), func() error {
		return s.CastCaptainVote(voter, candidate)
	})
	if err != nil {
		return err
	}
	m.publishCaptainTally(s)
	return nil
}

// CastCaptainRolePair forwards a quick-vote for both candidates of a role.
func (m *Manager) CastCaptainRolePair(ctx context.Context, tenantID, voter string, role domain.Role) error {
	s, err := m.active(tenantID)
	if err != nil {
		return err
	}
	err = m.ser.Run(ctx, key(tenantID, s.number), func() error {
		return s.CastCaptainRolePair(voter, role)
	})
	if err != nil {
		return err
	}
	m.publishCaptainTally(s)
	return nil
}

func (m *Manager) publishCaptainTally(s *Session) {
	st := s.Status()
	m.publish(notify.Event{
		Kind:      notify.KindCaptainVote,
		TenantID:  s.tenantID,
		Session:   s.number,
		Tally:     st.CaptainTally,
		CreatedAt: time.Now(),
	})
}

// Pick forwards a draft pick to the active session.
func (m *Manager) Pick(ctx context.Context, tenantID, actorID, targetID string) (domain.Role, error) {
	s, err := m.active(tenantID)
	if err != nil {
		return "", err
	}
	var role domain.Role
	err = m.ser.Run(ctx, key(tenantID, s.number), func() error {
		var inner error
		role, inner = s.Pick(actorID, targetID)
		return inner
	})
	return role, err
}

// CastResultVote forwards a side-vote to the active session.
func (m *Manager) CastResultVote(ctx context.Context, tenantID, voter string, side domain.Side) error {
	s, err := m.active(tenantID)
	if err != nil {
		return err
	}
	err = m.ser.Run(ctx, key(tenantID, s.number), func() error {
		return s.CastResultVote(voter, side)
	})
	if err != nil {
		return err
	}
	m.publishResultTally(s)
	return nil
}

// ClearResultVote withdraws the voter's side-vote.
func (m *Manager) ClearResultVote(ctx context.Context, tenantID, voter string) error {
	s, err := m.active(tenantID)
	if err != nil {
		return err
	}
	err = m.ser.Run(ctx, key(tenantID, s.number), func() error {
		return s.ClearResultVote(voter)
	})
	if err != nil {
		return err
	}
	m.publishResultTally(s)
	return nil
}

func (m *Manager) publishResultTally(s *Session) {
	st := s.Status()
	m.publish(notify.Event{
		Kind:      notify.KindResultVote,
		TenantID:  s.tenantID,
		Session:   s.number,
		VotesBlue: st.ResultBlue,
		VotesRed:  st.ResultRed,
		CreatedAt: time.Now(),
	})
}

func (m *Manager) active(tenantID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[tenantID]; ok {
		return s, nil
	}
	return nil, domain.ErrNotQueued
}

// Status reports the tenant's active session state, or an idle queue view.
func (m *Manager) Status(ctx context.Context, tenantID string) (Status, error) {
	m.mu.RLock()
	s, ok := m.sessions[tenantID]
	m.mu.RUnlock()
	if ok {
		return s.Status(), nil
	}
	stored, err := m.configs.Load(ctx, tenantID)
	if err != nil {
		return Status{}, err
	}
	cfg := m.cfg.Merge(stored)
	return Status{
		TenantID: tenantID,
		Session:  cfg.SessionNumber,
		Phase:    PhaseQueue,
		Queue:    queue.New(cfg.PerRoleCapacity).Snapshot(),
	}, nil
}

// Config returns the merged per-tenant configuration.
func (m *Manager) Config(ctx context.Context, tenantID string) (domain.TenantConfig, error) {
	stored, err := m.configs.Load(ctx, tenantID)
	if err != nil {
		return domain.TenantConfig{}, err
	}
	cfg := m.cfg.Merge(stored)
	cfg.TenantID = tenantID
	return cfg, nil
}

// SaveConfig persists a tenant config patch. Timer overrides are clamped to
// the supported window; zero fields keep their stored or default value.
func (m *Manager) SaveConfig(ctx context.Context, patch domain.TenantConfig) error {
	stored, err := m.configs.Load(ctx, patch.TenantID)
	if err != nil {
		return err
	}
	merged := overlay(stored, patch)
	merged.TenantID = patch.TenantID
	clampTimers(&merged)
	if merged.PerRoleCapacity != 0 {
		merged.PerRoleCapacity = constants.PerRoleCapacity
	}
	return m.configs.Save(ctx, merged)
}

// SetPlayerStats is the admin override for a player's ratings and counters.
func (m *Manager) SetPlayerStats(ctx context.Context, tenantID, playerID string, points, hiddenMMR, wins, losses int) error {
	return m.players.SetStats(ctx, tenantID, playerID, points, hiddenMMR, wins, losses)
}

func overlay(base, patch domain.TenantConfig) domain.TenantConfig {
	out := base
	if patch.SessionNumber > 0 {
		out.SessionNumber = patch.SessionNumber
	}
	if patch.LobbyRoomID != "" {
		out.LobbyRoomID = patch.LobbyRoomID
	}
	if patch.QueueRoomID != "" {
		out.QueueRoomID = patch.QueueRoomID
	}
	if patch.PerRoleCapacity > 0 {
		out.PerRoleCapacity = patch.PerRoleCapacity
	}
	if patch.VoteThreshold > 0 {
		out.VoteThreshold = patch.VoteThreshold
	}
	if patch.RolePickWait > 0 {
		out.RolePickWait = patch.RolePickWait
	}
	if patch.MemberWait > 0 {
		out.MemberWait = patch.MemberWait
	}
	if patch.CaptainVoteWait > 0 {
		out.CaptainVoteWait = patch.CaptainVoteWait
	}
	if patch.DraftTurnWait > 0 {
		out.DraftTurnWait = patch.DraftTurnWait
	}
	if patch.ResultVoteWait > 0 {
		out.ResultVoteWait = patch.ResultVoteWait
	}
	return out
}

func clampTimers(cfg *domain.TenantConfig) {
	for _, d := range []*time.Duration{
		&cfg.RolePickWait, &cfg.MemberWait, &cfg.CaptainVoteWait,
		&cfg.DraftTurnWait, &cfg.ResultVoteWait,
	} {
		if *d == 0 {
			continue
		}
		if *d < constants.TimerMin {
			*d = constants.TimerMin
		}
		if *d > constants.TimerMax {
			*d = constants.TimerMax
		}
	}
}

// runSession drives one full session from provisioning to teardown. Any
// fatal error aborts via the rollback path; local recoverable errors never
// reach here.
func (m *Manager) runSession(s *Session) {
	err := m.pipeline(m.baseCtx, s)
	if err != nil {
		s.logger.Error().Err(err).Msg("session aborted")
		s.setPhase(PhaseAborted)
		m.publish(notify.Event{
			Kind:      notify.KindSessionAbort,
			TenantID:  s.tenantID,
			Session:   s.number,
			Message:   err.Error(),
			CreatedAt: time.Now(),
		})
	} else {
		s.setPhase(PhaseDone)
	}
	m.cleanup(s)
	m.drop(s)
}

func (m *Manager) pipeline(ctx context.Context, s *Session) error {
	snap := s.snapshot()
	ids := snap.Ids()

	m.publish(notify.Event{
		Kind:      notify.KindSessionStart,
		TenantID:  s.tenantID,
		Session:   s.number,
		CreatedAt: time.Now(),
	})

	voiceRoom, err := m.provisionRooms(ctx, s)
	if err != nil {
		return err
	}

	if s.cfg.LobbyRoomID != "" {
		for _, id := range ids {
			if err := m.rooms.MoveActor(ctx, id, s.cfg.LobbyRoomID, voiceRoom); err != nil {
				s.logger.Warn().Err(err).Str("player_id", id).Msg("failed to move player into session room")
				continue
			}
			s.recordMove(id, s.cfg.LobbyRoomID)
		}
	}

	s.setPhase(PhaseBarrier)
	if err := m.awaitPresence(ctx, s, voiceRoom, ids); err != nil {
		return err
	}

	s.startCaptainVote()
	m.publish(notify.Event{
		Kind:      notify.KindCaptainVote,
		TenantID:  s.tenantID,
		Session:   s.number,
		CreatedAt: time.Now(),
	})
	voteTimer := time.NewTimer(s.cfg.CaptainVoteWait)
	select {
	case <-s.captainsReady:
		voteTimer.Stop()
	case <-voteTimer.C:
	case <-ctx.Done():
		voteTimer.Stop()
		return fmt.Errorf("%w: %v", domain.ErrSessionAborted, ctx.Err())
	}
	capA, capB := s.resolveCaptains()
	s.logger.Info().Str("captain_a", capA).Str("captain_b", capB).Msg("captains elected")

	dbctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	stored, err := m.players.GetBatch(dbctx, s.tenantID, ids)
	cancel()
	if err != nil {
		return err
	}
	points := make(map[string]int, len(stored))
	for id, p := range stored {
		points[id] = p.Points
	}

	if err := s.startDraft(capA, capB, points); err != nil {
		return err
	}
	if err := m.runDraft(ctx, s); err != nil {
		return err
	}
	match, err := s.finishDraft()
	if err != nil {
		return err
	}
	m.publish(notify.Event{
		Kind:      notify.KindDraftComplete,
		TenantID:  s.tenantID,
		Session:   s.number,
		Blue:      teamPayload(match.Blue),
		Red:       teamPayload(match.Red),
		CreatedAt: time.Now(),
	})

	if err := m.splitSideRooms(ctx, s, match, voiceRoom); err != nil {
		return err
	}

	s.startResultVote(match.Participants())
	resultTimer := time.NewTimer(s.cfg.ResultVoteWait)
	select {
	case <-s.resultReady:
		resultTimer.Stop()
	case <-resultTimer.C:
		s.logger.Warn().Msg("result vote timed out with no winner, ratings unchanged")
		return nil
	case <-ctx.Done():
		resultTimer.Stop()
		return fmt.Errorf("%w: %v", domain.ErrSessionAborted, ctx.Err())
	}

	winner, ok := s.resultWinner()
	if !ok {
		return nil
	}
	return m.applyRating(ctx, s, match, winner)
}

// provisionRooms creates the session's draft text room and gathering voice
// room. A configured queue room is reused instead of creating one, and is
// not torn down with the session.
func (m *Manager) provisionRooms(ctx context.Context, s *Session) (string, error) {
	var draftRoom, voiceRoom string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		id, err := m.rooms.CreateTextRoom(gctx, s.tenantID, fmt.Sprintf("session-%d-draft", s.number))
		draftRoom = id
		return err
	})
	if s.cfg.QueueRoomID != "" {
		voiceRoom = s.cfg.QueueRoomID
	} else {
		g.Go(func() error {
			id, err := m.rooms.CreateVoiceRoom(gctx, s.tenantID, fmt.Sprintf("session-%d-voice", s.number))
			voiceRoom = id
			s.trackRoom(id)
			return err
		})
	}
	err := g.Wait()
	s.trackRoom(draftRoom)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrRoomUnavailable, err)
	}
	return voiceRoom, nil
}

// awaitPresence blocks until all participants occupy the session voice room
// or the member wait expires. Progress renders are debounced; the terminal
// transitions are never throttled.
func (m *Manager) awaitPresence(ctx context.Context, s *Session, roomID string, ids []string) error {
	events, err := m.presence.Watch(ctx, roomID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRoomUnavailable, err)
	}

	needed := make(map[string]bool, len(ids))
	for _, id := range ids {
		needed[id] = true
	}
	present := make(map[string]bool, len(ids))
	if occ, err := m.presence.Occupants(ctx, roomID); err == nil {
		for _, id := range occ {
			if needed[id] {
				present[id] = true
			}
		}
	}

	missing := func() []string {
		var out []string
		for _, id := range ids {
			if !present[id] {
				out = append(out, id)
			}
		}
		return out
	}
	render := func(left []string) {
		m.publish(notify.Event{
			Kind:      notify.KindBarrierProgress,
			TenantID:  s.tenantID,
			Session:   s.number,
			Missing:   left,
			CreatedAt: time.Now(),
		})
		s.logger.Debug().Strs("waiting_on", left).Msg("presence barrier progress")
	}

	left := missing()
	if len(left) == 0 {
		s.logger.Info().Msg("all participants present")
		return nil
	}
	render(left)
	lastRender := time.Now()

	deadline := time.NewTimer(s.cfg.MemberWait)
	defer deadline.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return domain.ErrRoomUnavailable
			}
			if ev.RoomID == roomID && needed[ev.ActorID] {
				present[ev.ActorID] = ev.Present
			}
			left := missing()
			if len(left) == 0 {
				s.logger.Info().Msg("all participants present")
				return nil
			}
			if time.Since(lastRender) >= constants.PresenceDebounce {
				lastRender = time.Now()
				render(left)
			}
		case <-deadline.C:
			return fmt.Errorf("%w: waiting on %s", domain.ErrPresenceTimeout, strings.Join(missing(), ", "))
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", domain.ErrSessionAborted, ctx.Err())
		}
	}
}

func (m *Manager) runDraft(ctx context.Context, s *Session) error {
	for {
		captain, seq, done := s.draftTurn()
		if done {
			return nil
		}
		st := s.Status()
		ev := notify.Event{
			Kind:      notify.KindDraftTurn,
			TenantID:  s.tenantID,
			Session:   s.number,
			Message:   captain,
			CreatedAt: time.Now(),
		}
		if st.Board != nil {
			ev.Blue = teamPayload(st.Board.Blue)
			ev.Red = teamPayload(st.Board.Red)
		}
		m.publish(ev)
		turnTimer := time.NewTimer(s.cfg.DraftTurnWait)
		select {
		case <-s.turnTaken:
			turnTimer.Stop()
		case <-turnTimer.C:
			role, pick := s.expireTurn(seq)
			if pick != "" {
				s.logger.Info().
					Str("captain", captain).
					Str("role", string(role)).
					Str("player_id", pick).
					Msg("turn expired, role auto-resolved")
			}
		case <-ctx.Done():
			turnTimer.Stop()
			return fmt.Errorf("%w: %v", domain.ErrSessionAborted, ctx.Err())
		}
	}
}

func (m *Manager) splitSideRooms(ctx context.Context, s *Session, match domain.Match, fromRoom string) error {
	var blueRoom, redRoom string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		id, err := m.rooms.CreateVoiceRoom(gctx, s.tenantID, fmt.Sprintf("session-%d-blue", s.number))
		blueRoom = id
		return err
	})
	g.Go(func() error {
		id, err := m.rooms.CreateVoiceRoom(gctx, s.tenantID, fmt.Sprintf("session-%d-red", s.number))
		redRoom = id
		return err
	})
	err := g.Wait()
	s.trackRoom(blueRoom)
	s.trackRoom(redRoom)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRoomUnavailable, err)
	}

	move := func(ids []string, to string) {
		for _, id := range ids {
			if err := m.rooms.MoveActor(ctx, id, fromRoom, to); err != nil {
				s.logger.Warn().Err(err).Str("player_id", id).Msg("failed to move player to team room")
			}
		}
	}
	move(match.Blue.Ids(), blueRoom)
	move(match.Red.Ids(), redRoom)
	return nil
}

// applyRating computes both rating tracks and persists all ten deltas plus
// the history trail in one batch, then announces the final movements.
func (m *Manager) applyRating(ctx context.Context, s *Session, match domain.Match, winner domain.Side) error {
	dbctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	stored, err := m.players.GetBatch(dbctx, s.tenantID, match.Participants())
	if err != nil {
		return err
	}
	res, err := rating.ApplyMatchResult(match, winner, stored)
	if err != nil {
		return err
	}

	participants := match.Participants()
	updates := make([]domain.PlayerUpdate, 0, len(participants))
	records := make([]domain.RatingRecord, 0, len(participants))
	payloads := make([]notify.RatingPayload, 0, len(participants))
	now := time.Now()
	for _, id := range participants {
		won := res.Won(match, id)
		updates = append(updates, domain.PlayerUpdate{
			PlayerID:    id,
			PointsDelta: res.PointsDeltas[id],
			MMRDelta:    res.MMRDeltas[id],
			Won:         won,
		})
		records = append(records, domain.RatingRecord{
			TenantID:    s.tenantID,
			Session:     s.number,
			PlayerID:    id,
			PointsDelta: res.PointsDeltas[id],
			MMRDelta:    res.MMRDeltas[id],
			Points:      res.PointsAfter[id],
			HiddenMMR:   res.MMRAfter[id],
			Winner:      winner,
			Won:         won,
			CreatedAt:   now,
		})
		payloads = append(payloads, notify.RatingPayload{
			PlayerID:    id,
			PointsDelta: res.PointsDeltas[id],
			MMRDelta:    res.MMRDeltas[id],
			Points:      res.PointsAfter[id],
			HiddenMMR:   res.MMRAfter[id],
			Won:         won,
		})
	}

	if err := m.players.ApplyMatchResult(dbctx, s.tenantID, updates, records); err != nil {
		return err
	}
	m.publish(notify.MatchEvent(s.tenantID, s.number, match, winner, payloads))
	s.logger.Info().Str("winner", string(winner)).Msg("match resolved, ratings applied")
	return nil
}

// cleanup is the mandatory teardown shared by the success and abort paths.
// Each step is best effort and independently guarded so a failed step never
// blocks the next one.
func (m *Manager) cleanup(s *Session) {
	moved, rooms := s.rollbackState()

	var g errgroup.Group
	for actorID, origin := range moved {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), constants.SinkTimeout)
			defer cancel()
			if err := m.rooms.MoveActor(ctx, actorID, "", origin); err != nil {
				s.logger.Warn().Err(err).Str("player_id", actorID).Msg("failed to move player back")
			}
			return nil
		})
	}
	_ = g.Wait()

	for i := len(rooms) - 1; i >= 0; i-- {
		ctx, cancel := context.WithTimeout(context.Background(), constants.SinkTimeout)
		if err := m.rooms.DeleteRoom(ctx, rooms[i]); err != nil {
			s.logger.Warn().Err(err).Str("room_id", rooms[i]).Msg("failed to delete session room")
		}
		cancel()
	}

	s.resetQueue()

	ctx, cancel := context.WithTimeout(context.Background(), constants.DatabaseTimeout)
	if _, err := m.configs.AdvanceSession(ctx, s.tenantID); err != nil {
		s.logger.Warn().Err(err).Msg("failed to advance session counter")
	}
	cancel()

	s.logger.Info().Msg("session torn down")
}

func (m *Manager) publish(ev notify.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.SinkTimeout)
	defer cancel()
	if err := m.sink.Publish(ctx, ev); err != nil {
		m.logger.Warn().Err(err).Str("kind", ev.Kind).Msg("failed to publish event")
	}
}

func teamPayload(t domain.Team) *notify.TeamPayload {
	picks := make(map[string]string, len(t.Picks))
	for role, id := range t.Picks {
		picks[string(role)] = id
	}
	return &notify.TeamPayload{Captain: t.Captain, Picks: picks}
}
