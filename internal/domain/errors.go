package domain

import "errors"

// Admission errors. Recoverable, surfaced to the acting user only.
var (
	ErrAlreadyQueued = errors.New("player is already in the queue")
	ErrQueueFull     = errors.New("queue is already full")
	ErrRoleFull      = errors.New("role is full")
	ErrNotQueued     = errors.New("player is not in the queue")
	ErrUnknownRole   = errors.New("unknown role")
)

// Draft errors. Recoverable, the turn is not consumed.
var (
	ErrAlreadyPicked = errors.New("player is already taken")
	ErrLaneResolved  = errors.New("lane is already resolved")
	ErrNotYourTurn   = errors.New("not your turn to pick")
	ErrNotEligible   = errors.New("actor is not part of this session")
)

// Rating errors. Fatal to the current session.
var (
	ErrIncompleteRoster    = errors.New("both teams must have 5 players before rating is applied")
	ErrMissingPlayerRecord = errors.New("missing player record")
)

// Time-bound and external-resource failures. Fatal, trigger rollback.
var (
	ErrPresenceTimeout = errors.New("not all members joined the session room in time")
	ErrDraftTimeout    = errors.New("draft did not complete in time")
	ErrRoomUnavailable = errors.New("room is unavailable")
	ErrSessionAborted  = errors.New("session aborted")
)
