package notify

import (
	"context"
	"time"

	"queueup/internal/domain"
	"queueup/internal/queue"
)

// Event is a session-lifecycle announcement pushed to an external sink.
// Kind identifies the payload shape; all fields are optional beyond
// Kind/TenantID/Session.
type Event struct {
	Kind      string              `json:"kind"`
	TenantID  string              `json:"tenant_id"`
	Session   int                 `json:"session"`
	Message   string              `json:"message,omitempty"`
	Queue     map[string][]string `json:"queue,omitempty"`
	Missing   []string            `json:"missing,omitempty"`
	Tally     map[string]int      `json:"tally,omitempty"`
	VotesBlue int                 `json:"votes_blue,omitempty"`
	VotesRed  int                 `json:"votes_red,omitempty"`
	Blue      *TeamPayload        `json:"blue,omitempty"`
	Red       *TeamPayload        `json:"red,omitempty"`
	Winner    string              `json:"winner,omitempty"`
	Ratings   []RatingPayload     `json:"ratings,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

type TeamPayload struct {
	Captain string            `json:"captain"`
	Picks   map[string]string `json:"picks"`
}

type RatingPayload struct {
	PlayerID    string `json:"player_id"`
	PointsDelta int    `json:"points_delta"`
	MMRDelta    int    `json:"mmr_delta"`
	Points      int    `json:"points"`
	HiddenMMR   int    `json:"hidden_mmr"`
	Won         bool   `json:"won"`
}

const (
	KindQueueUpdated    = "queue_updated"
	KindSessionStart    = "session_start"
	KindBarrierProgress = "barrier_progress"
	KindCaptainVote     = "captain_vote"
	KindResultVote      = "result_vote"
	KindDraftTurn       = "draft_turn"
	KindDraftComplete   = "draft_complete"
	KindMatchResolved   = "match_resolved"
	KindSessionAbort    = "session_abort"
)

// Sink delivers announcements somewhere players can see them. Delivery is
// best effort; session progress never blocks on a sink error.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

// NopSink drops every event. Used when no webhook is configured and in tests.
type NopSink struct{}

func (NopSink) Publish(context.Context, Event) error { return nil }

// QueueEvent builds a queue_updated event from a queue snapshot.
func QueueEvent(tenantID string, session int, snap queue.Snapshot) Event {
	buckets := make(map[string][]string, len(domain.RoleOrder))
	for _, role := range domain.RoleOrder {
		buckets[string(role)] = snap.Pair(role)
	}
	return Event{
		Kind:      KindQueueUpdated,
		TenantID:  tenantID,
		Session:   session,
		Queue:     buckets,
		CreatedAt: time.Now(),
	}
}

// MatchEvent builds a match_resolved event with both rosters and the final
// per-player rating movements.
func MatchEvent(tenantID string, session int, match domain.Match, winner domain.Side, ratings []RatingPayload) Event {
	return Event{
		Kind:      KindMatchResolved,
		TenantID:  tenantID,
		Session:   session,
		Blue:      teamPayload(match.Blue),
		Red:       teamPayload(match.Red),
		Winner:    string(winner),
		Ratings:   ratings,
		CreatedAt: time.Now(),
	}
}

func teamPayload(t domain.Team) *TeamPayload {
	picks := make(map[string]string, len(t.Picks))
	for role, id := range t.Picks {
		picks[string(role)] = id
	}
	return &TeamPayload{Captain: t.Captain, Picks: picks}
}
