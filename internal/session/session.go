package session

import (
	"errors"
	"sync"
	"time"

	"queueup/internal/domain"
	"queueup/internal/draft"
	"queueup/internal/queue"

	"github.com/rs/zerolog"
)

// Phase is the lifecycle stage of one queue-to-match cycle.
type Phase string

const (
	PhaseQueue       Phase = "queue"
	PhaseProvision   Phase = "provision"
	PhaseBarrier     Phase = "barrier"
	PhaseCaptainVote Phase = "captain_vote"
	PhaseDraft       Phase = "draft"
	PhaseResultVote  Phase = "result_vote"
	PhaseDone        Phase = "done"
	PhaseAborted     Phase = "aborted"
)

// ErrWrongPhase rejects an action that does not belong to the session's
// current phase. Recoverable; surfaced to the acting user only.
var ErrWrongPhase = errors.New("action not available in the current phase")

// Session owns all in-memory state for one (tenant, session number) cycle:
// the admission queue, the captain election, the draft board and the result
// vote. External entry points mutate it under mu; the pipeline goroutine in
// Manager drives phase transitions and waits on the signal channels.
type Session struct {
	tenantID string
	number   int
	cfg      domain.TenantConfig
	logger   zerolog.Logger

	mu       sync.Mutex
	phase    Phase
	queue    *queue.Queue
	pending  map[string]*time.Timer
	fullSnap queue.Snapshot

	captainVote *draft.CaptainVote
	board       *draft.Draft
	turnSeq     int
	resultVote  *draft.ResultVote

	createdRooms []string
	moved        map[string]string

	full          chan struct{}
	captainsReady chan struct{}
	captainsOnce  sync.Once
	turnTaken     chan struct{}
	resultReady   chan struct{}
	resultOnce    sync.Once
}

func newSession(tenantID string, cfg domain.TenantConfig, logger zerolog.Logger) *Session {
	return &Session{
		tenantID:      tenantID,
		number:        cfg.SessionNumber,
		cfg:           cfg,
		logger:        logger.With().Str("tenant_id", tenantID).Int("session", cfg.SessionNumber).Logger(),
		phase:         PhaseQueue,
		queue:         queue.New(cfg.PerRoleCapacity),
		pending:       make(map[string]*time.Timer),
		moved:         make(map[string]string),
		full:          make(chan struct{}),
		captainsReady: make(chan struct{}),
		turnTaken:     make(chan struct{}, 1),
		resultReady:   make(chan struct{}),
	}
}

// Join opens a role-pick window for the player. The actual queue slot is
// taken by ChooseRole; if the window expires first the join is forgotten.
func (s *Session) Join(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseQueue {
		// Admission closed for this cycle; the queue stays full until the
		// next session opens.
		return domain.ErrQueueFull
	}
	if s.queue.Contains(playerID) {
		return domain.ErrAlreadyQueued
	}
	if _, ok := s.pending[playerID]; ok {
		return domain.ErrAlreadyQueued
	}
	if s.queue.IsFull() {
		return domain.ErrQueueFull
	}
	s.pending[playerID] = time.AfterFunc(s.cfg.RolePickWait, func() {
		s.expireRolePick(playerID)
	})
	return nil
}

func (s *Session) expireRolePick(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[playerID]; ok {
		delete(s.pending, playerID)
		s.logger.Info().Str("player_id", playerID).Msg("role pick window expired")
	}
}

// ChooseRole claims a bucket slot inside the player's open role-pick window.
// The third return reports whether this pick filled the queue.
func (s *Session) ChooseRole(playerID string, role domain.Role) (queue.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseQueue {
		return queue.Snapshot{}, false, ErrWrongPhase
	}
	timer, ok := s.pending[playerID]
	if !ok {
		return s.queue.Snapshot(), false, domain.ErrNotQueued
	}
	snap, err := s.queue.Join(playerID, role)
	if err != nil {
		return snap, false, err
	}
	timer.Stop()
	delete(s.pending, playerID)

	if s.queue.IsFull() {
		for id, t := range s.pending {
			t.Stop()
			delete(s.pending, id)
		}
		s.fullSnap = snap
		s.phase = PhaseProvision
		close(s.full)
		return snap, true, nil
	}
	return snap, false, nil
}

// Leave withdraws the player from the queue or an open role-pick window.
func (s *Session) Leave(playerID string) (queue.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseQueue {
		return queue.Snapshot{}, ErrWrongPhase
	}
	if timer, ok := s.pending[playerID]; ok {
		timer.Stop()
		delete(s.pending, playerID)
		return s.queue.Snapshot(), nil
	}
	return s.queue.Leave(playerID)
}

// CastCaptainVote toggles one candidate on the voter's ballot. When every
// ballot is complete the election ends early.
func (s *Session) CastCaptainVote(voter, candidate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseCaptainVote {
		return ErrWrongPhase
	}
	if err := s.captainVote.Cast(voter, candidate); err != nil {
		return err
	}
	s.checkBallotsLocked()
	return nil
}

// CastCaptainRolePair replaces the voter's ballot with both candidates of a
// role.
func (s *Session) CastCaptainRolePair(voter string, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseCaptainVote {
		return ErrWrongPhase
	}
	if err := s.captainVote.CastRolePair(voter, role); err != nil {
		return err
	}
	s.checkBallotsLocked()
	return nil
}

func (s *Session) checkBallotsLocked() {
	if s.captainVote.Complete() {
		s.captainsOnce.Do(func() { close(s.captainsReady) })
	}
}

// Pick resolves one role pair on the draft board. Rejected picks do not
// consume the turn.
func (s *Session) Pick(actorID, targetID string) (domain.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseDraft {
		return "", ErrWrongPhase
	}
	role, err := s.board.Pick(actorID, targetID)
	if err != nil {
		return "", err
	}
	s.turnSeq++
	select {
	case s.turnTaken <- struct{}{}:
	default:
	}
	return role, nil
}

// CastResultVote records or changes the voter's side-vote.
func (s *Session) CastResultVote(voter string, side domain.Side) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseResultVote {
		return ErrWrongPhase
	}
	resolved, err := s.resultVote.Cast(voter, side)
	if err != nil {
		return err
	}
	if resolved {
		s.resultOnce.Do(func() { close(s.resultReady) })
	}
	return nil
}

// ClearResultVote withdraws the voter's ballot.
func (s *Session) ClearResultVote(voter string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseResultVote {
		return ErrWrongPhase
	}
	return s.resultVote.Clear(voter)
}

// Status is a read-only snapshot served by the HTTP surface.
type Status struct {
	TenantID     string         `json:"tenant_id"`
	Session      int            `json:"session"`
	Phase        Phase          `json:"phase"`
	Queue        queue.Snapshot `json:"queue"`
	CaptainTally map[string]int `json:"captain_tally,omitempty"`
	Board        *draft.Board   `json:"board,omitempty"`
	ResultBlue   int            `json:"result_blue"`
	ResultRed    int            `json:"result_red"`
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		TenantID: s.tenantID,
		Session:  s.number,
		Phase:    s.phase,
		Queue:    s.queue.Snapshot(),
	}
	if s.captainVote != nil {
		st.CaptainTally = s.captainVote.Tally()
	}
	if s.board != nil {
		b := s.board.Board()
		st.Board = &b
	}
	if s.resultVote != nil {
		st.ResultBlue, st.ResultRed = s.resultVote.Counts()
	}
	return st
}

// Pipeline-side helpers. These are called only from the single goroutine
// driving the session, but still lock because user actions race them.

func (s *Session) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
	s.logger.Info().Str("phase", string(p)).Msg("phase transition")
}

func (s *Session) snapshot() queue.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fullSnap
}

func (s *Session) startCaptainVote() {
	s.mu.Lock()
	s.captainVote = draft.NewCaptainVote(s.fullSnap)
	s.phase = PhaseCaptainVote
	s.mu.Unlock()
	s.logger.Info().Str("phase", string(PhaseCaptainVote)).Msg("phase transition")
}

func (s *Session) resolveCaptains() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captainVote.Resolve()
}

func (s *Session) startDraft(capA, capB string, points map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	board, err := draft.New(s.fullSnap, capA, capB, points)
	if err != nil {
		return err
	}
	s.board = board
	s.phase = PhaseDraft
	return nil
}

// draftTurn reports the captain on turn and the board generation the turn
// timer is armed against, or done once all roles resolve.
func (s *Session) draftTurn() (string, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.board.Done() {
		return "", s.turnSeq, true
	}
	return s.board.Captain(s.board.Turn()), s.turnSeq, false
}

// expireTurn auto-resolves the turn the given generation was armed for. A
// pick that lands after the timer fires advances the generation first, so a
// stale expiry resolves nothing.
func (s *Session) expireTurn(seq int) (domain.Role, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.turnSeq || s.board.Done() {
		return "", ""
	}
	s.turnSeq++
	return s.board.ExpireTurn()
}

func (s *Session) finishDraft() (domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Match()
}

func (s *Session) startResultVote(participants []string) {
	s.mu.Lock()
	s.resultVote = draft.NewResultVote(participants, s.cfg.VoteThreshold)
	s.phase = PhaseResultVote
	s.mu.Unlock()
	s.logger.Info().Str("phase", string(PhaseResultVote)).Msg("phase transition")
}

func (s *Session) resultWinner() (domain.Side, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resultVote.Winner()
}

func (s *Session) trackRoom(roomID string) {
	if roomID == "" {
		return
	}
	s.mu.Lock()
	s.createdRooms = append(s.createdRooms, roomID)
	s.mu.Unlock()
}

func (s *Session) recordMove(actorID, originRoomID string) {
	s.mu.Lock()
	if _, ok := s.moved[actorID]; !ok {
		s.moved[actorID] = originRoomID
	}
	s.mu.Unlock()
}

func (s *Session) rollbackState() (map[string]string, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	moved := make(map[string]string, len(s.moved))
	for id, origin := range s.moved {
		moved[id] = origin
	}
	rooms := append([]string(nil), s.createdRooms...)
	return moved, rooms
}

func (s *Session) resetQueue() {
	s.mu.Lock()
	s.queue.Reset()
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
	s.mu.Unlock()
}
