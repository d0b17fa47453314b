package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"queueup/internal/domain"

	"github.com/rs/zerolog"
)

type ConfigRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewConfigRepository(sqlDB *sql.DB, logger zerolog.Logger) *ConfigRepository {
	return &ConfigRepository{db: sqlDB, logger: logger}
}

// Load returns the stored tenant config, or a zero config for an unknown
// tenant. Zero fields mean "use the process default".
func (r *ConfigRepository) Load(ctx context.Context, tenantID string) (domain.TenantConfig, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT tenant_id, session_number, lobby_room_id, queue_room_id,
		       per_role_capacity, vote_threshold,
		       role_pick_wait_ms, member_wait_ms, captain_vote_wait_ms,
		       draft_turn_wait_ms, result_vote_wait_ms
		FROM tenant_configs WHERE tenant_id = ?`, tenantID)

	var cfg domain.TenantConfig
	var rolePick, member, captainVote, draftTurn, resultVote int64
	err := row.Scan(&cfg.TenantID, &cfg.SessionNumber, &cfg.LobbyRoomID, &cfg.QueueRoomID,
		&cfg.PerRoleCapacity, &cfg.VoteThreshold,
		&rolePick, &member, &captainVote, &draftTurn, &resultVote)
	if err == sql.ErrNoRows {
		return domain.TenantConfig{TenantID: tenantID}, nil
	}
	if err != nil {
		return domain.TenantConfig{}, fmt.Errorf("failed to load tenant config: %w", err)
	}

	cfg.RolePickWait = time.Duration(rolePick) * time.Millisecond
	cfg.MemberWait = time.Duration(member) * time.Millisecond
	cfg.CaptainVoteWait = time.Duration(captainVote) * time.Millisecond
	cfg.DraftTurnWait = time.Duration(draftTurn) * time.Millisecond
	cfg.ResultVoteWait = time.Duration(resultVote) * time.Millisecond
	return cfg, nil
}

// Save upserts the full tenant config row.
func (r *ConfigRepository) Save(ctx context.Context, cfg domain.TenantConfig) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tenant_configs
		(tenant_id, session_number, lobby_room_id, queue_room_id,
		 per_role_capacity, vote_threshold,
		 role_pick_wait_ms, member_wait_ms, captain_vote_wait_ms,
		 draft_turn_wait_ms, result_vote_wait_ms, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id) DO UPDATE SET
		 session_number = excluded.session_number,
		 lobby_room_id = excluded.lobby_room_id,
		 queue_room_id = excluded.queue_room_id,
		 per_role_capacity = excluded.per_role_capacity,
		 vote_threshold = excluded.vote_threshold,
		 role_pick_wait_ms = excluded.role_pick_wait_ms,
		 member_wait_ms = excluded.member_wait_ms,
		 captain_vote_wait_ms = excluded.captain_vote_wait_ms,
		 draft_turn_wait_ms = excluded.draft_turn_wait_ms,
		 result_vote_wait_ms = excluded.result_vote_wait_ms,
		 updated_at = excluded.updated_at`,
		cfg.TenantID, cfg.SessionNumber, cfg.LobbyRoomID, cfg.QueueRoomID,
		cfg.PerRoleCapacity, cfg.VoteThreshold,
		cfg.RolePickWait.Milliseconds(), cfg.MemberWait.Milliseconds(),
		cfg.CaptainVoteWait.Milliseconds(), cfg.DraftTurnWait.Milliseconds(),
		cfg.ResultVoteWait.Milliseconds(), time.Now())
	if err != nil {
		return fmt.Errorf("failed to save tenant config: %w", err)
	}
	r.logger.Debug().Str("tenant_id", cfg.TenantID).Msg("tenant config saved")
	return nil
}

// AdvanceSession bumps the per-tenant session counter and returns the new
// value. The counter mutation is owned by the in-flight session, so a plain
// transaction suffices.
func (r *ConfigRepository) AdvanceSession(ctx context.Context, tenantID string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current int
	err = tx.QueryRowContext(ctx,
		`SELECT session_number FROM tenant_configs WHERE tenant_id = ?`, tenantID).Scan(&current)
	if err == sql.ErrNoRows {
		current = 1
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tenant_configs (tenant_id, session_number, updated_at) VALUES (?, ?, ?)`,
			tenantID, current, time.Now())
		if err != nil {
			return 0, fmt.Errorf("failed to create tenant config: %w", err)
		}
	} else if err != nil {
		return 0, fmt.Errorf("failed to read session number: %w", err)
	}

	next := current + 1
	_, err = tx.ExecContext(ctx, `
		UPDATE tenant_configs SET session_number = ?, updated_at = ? WHERE tenant_id = ?`,
		next, time.Now(), tenantID)
	if err != nil {
		return 0, fmt.Errorf("failed to advance session number: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	r.logger.Info().Str("tenant_id", tenantID).Int("session_number", next).Msg("session counter advanced")
	return next, nil
}
