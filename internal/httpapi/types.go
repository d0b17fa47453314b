package httpapi

import (
	"time"

	"queueup/internal/domain"
)

type playerResponse struct {
	PlayerID    string         `json:"player_id"`
	Name        string         `json:"name"`
	Points      int            `json:"points"`
	HiddenMMR   int            `json:"hidden_mmr"`
	MatchWins   int            `json:"match_wins"`
	MatchLosses int            `json:"match_losses"`
	History     []historyEntry `json:"history"`
}

type historyEntry struct {
	Session     int       `json:"session"`
	PointsDelta int       `json:"points_delta"`
	MMRDelta    int       `json:"mmr_delta"`
	Points      int       `json:"points"`
	HiddenMMR   int       `json:"hidden_mmr"`
	Winner      string    `json:"winner"`
	Won         bool      `json:"won"`
	CreatedAt   time.Time `json:"created_at"`
}

func toHistory(records []domain.RatingRecord) []historyEntry {
	out := make([]historyEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, historyEntry{
			Session:     rec.Session,
			PointsDelta: rec.PointsDelta,
			MMRDelta:    rec.MMRDelta,
			Points:      rec.Points,
			HiddenMMR:   rec.HiddenMMR,
			Winner:      string(rec.Winner),
			Won:         rec.Won,
			CreatedAt:   rec.CreatedAt,
		})
	}
	return out
}

type configResponse struct {
	TenantID        string `json:"tenant_id"`
	SessionNumber   int    `json:"session_number"`
	LobbyRoomID     string `json:"lobby_room_id"`
	QueueRoomID     string `json:"queue_room_id"`
	PerRoleCapacity int    `json:"per_role_capacity"`
	VoteThreshold   int    `json:"vote_threshold"`
	RolePickWaitMS  int64  `json:"role_pick_wait_ms"`
	MemberWaitMS    int64  `json:"member_wait_ms"`
	CaptainVoteMS   int64  `json:"captain_vote_wait_ms"`
	DraftTurnMS     int64  `json:"draft_turn_wait_ms"`
	ResultVoteMS    int64  `json:"result_vote_wait_ms"`
}

func toConfigResponse(cfg domain.TenantConfig) configResponse {
	return configResponse{
		TenantID:        cfg.TenantID,
		SessionNumber:   cfg.SessionNumber,
		LobbyRoomID:     cfg.LobbyRoomID,
		QueueRoomID:     cfg.QueueRoomID,
		PerRoleCapacity: cfg.PerRoleCapacity,
		VoteThreshold:   cfg.VoteThreshold,
		RolePickWaitMS:  cfg.RolePickWait.Milliseconds(),
		MemberWaitMS:    cfg.MemberWait.Milliseconds(),
		CaptainVoteMS:   cfg.CaptainVoteWait.Milliseconds(),
		DraftTurnMS:     cfg.DraftTurnWait.Milliseconds(),
		ResultVoteMS:    cfg.ResultVoteWait.Milliseconds(),
	}
}

// configPatch carries millisecond timer overrides; zero fields keep their
// stored or default value.
type configPatch struct {
	LobbyRoomID     string `json:"lobby_room_id"`
	QueueRoomID     string `json:"queue_room_id"`
	PerRoleCapacity int    `json:"per_role_capacity"`
	VoteThreshold   int    `json:"vote_threshold"`
	RolePickWaitMS  int64  `json:"role_pick_wait_ms"`
	MemberWaitMS    int64  `json:"member_wait_ms"`
	CaptainVoteMS   int64  `json:"captain_vote_wait_ms"`
	DraftTurnMS     int64  `json:"draft_turn_wait_ms"`
	ResultVoteMS    int64  `json:"result_vote_wait_ms"`
}

func (p configPatch) toDomain() domain.TenantConfig {
	return domain.TenantConfig{
		LobbyRoomID:     p.LobbyRoomID,
		QueueRoomID:     p.QueueRoomID,
		PerRoleCapacity: p.PerRoleCapacity,
		VoteThreshold:   p.VoteThreshold,
		RolePickWait:    time.Duration(p.RolePickWaitMS) * time.Millisecond,
		MemberWait:      time.Duration(p.MemberWaitMS) * time.Millisecond,
		CaptainVoteWait: time.Duration(p.CaptainVoteMS) * time.Millisecond,
		DraftTurnWait:   time.Duration(p.DraftTurnMS) * time.Millisecond,
		ResultVoteWait:  time.Duration(p.ResultVoteMS) * time.Millisecond,
	}
}
