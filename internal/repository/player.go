package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"queueup/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type PlayerRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewPlayerRepository(sqlDB *sql.DB, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{db: sqlDB, logger: logger}
}

// Ensure creates the player record on first observed membership. Existing
// records are left untouched; ratings are only ever mutated by a completed
// match.
func (r *PlayerRepository) Ensure(ctx context.Context, tenantID, playerID, name string) error {
	now := time.Now()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO players (tenant_id, player_id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, player_id) DO NOTHING`,
		tenantID, playerID, name, now, now)
	if err != nil {
		return fmt.Errorf("failed to ensure player %s: %w", playerID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		r.logger.Info().Str("tenant_id", tenantID).Str("player_id", playerID).Msg("registered new player")
	}
	return nil
}

func (r *PlayerRepository) Get(ctx context.Context, tenantID, playerID string) (*domain.Player, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT tenant_id, player_id, name, points, hidden_mmr, match_wins, match_losses, created_at, updated_at
		FROM players WHERE tenant_id = ? AND player_id = ?`,
		tenantID, playerID)

	var p domain.Player
	err := row.Scan(&p.TenantID, &p.PlayerID, &p.Name, &p.Points, &p.HiddenMMR,
		&p.MatchWins, &p.MatchLosses, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrMissingPlayerRecord
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load player %s: %w", playerID, err)
	}
	return &p, nil
}

// GetBatch loads the given player ids into a map. Absent ids are simply not
// present in the result; the rating engine decides whether that is fatal.
func (r *PlayerRepository) GetBatch(ctx context.Context, tenantID string, ids []string) (map[string]domain.Player, error) {
	if len(ids) == 0 {
		return map[string]domain.Player{}, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(ids)+1)
	args = append(args, tenantID)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT tenant_id, player_id, name, points, hidden_mmr, match_wins, match_losses, created_at, updated_at
		FROM players WHERE tenant_id = ? AND player_id IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load players: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.Player, len(ids))
	for rows.Next() {
		var p domain.Player
		if err := rows.Scan(&p.TenantID, &p.PlayerID, &p.Name, &p.Points, &p.HiddenMMR,
			&p.MatchWins, &p.MatchLosses, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		out[p.PlayerID] = p
	}
	return out, rows.Err()
}

// SetStats overrides a player's ratings and counters directly. Admin path.
func (r *PlayerRepository) SetStats(ctx context.Context, tenantID, playerID string, points, hiddenMMR, wins, losses int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE players SET points = ?, hidden_mmr = ?, match_wins = ?, match_losses = ?, updated_at = ?
		WHERE tenant_id = ? AND player_id = ?`,
		points, hiddenMMR, wins, losses, time.Now(), tenantID, playerID)
	if err != nil {
		return fmt.Errorf("failed to set stats for %s: %w", playerID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrMissingPlayerRecord
	}
	return nil
}

// ApplyMatchResult persists all ten deltas plus win/loss counters and the
// rating-history trail in one transaction. Any missing record rolls the
// whole batch back.
func (r *PlayerRepository) ApplyMatchResult(ctx context.Context, tenantID string, updates []domain.PlayerUpdate, records []domain.RatingRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, u := range updates {
		winInc, lossInc := 0, 1
		if u.Won {
			winInc, lossInc = 1, 0
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE players
			SET points = points + ?, hidden_mmr = hidden_mmr + ?,
			    match_wins = match_wins + ?, match_losses = match_losses + ?, updated_at = ?
			WHERE tenant_id = ? AND player_id = ?`,
			u.PointsDelta, u.MMRDelta, winInc, lossInc, now, tenantID, u.PlayerID)
		if err != nil {
			return fmt.Errorf("failed to update player %s: %w", u.PlayerID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: %s", domain.ErrMissingPlayerRecord, u.PlayerID)
		}
	}

	for _, rec := range records {
		id := rec.ID
		if id == "" {
			id, err = gonanoid.New()
			if err != nil {
				return fmt.Errorf("failed to generate nanoid: %w", err)
			}
		}
		created := rec.CreatedAt
		if created.IsZero() {
			created = now
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO rating_history
			(id, tenant_id, session, player_id, points_delta, mmr_delta, points, hidden_mmr, winner, won, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, rec.TenantID, rec.Session, rec.PlayerID, rec.PointsDelta, rec.MMRDelta,
			rec.Points, rec.HiddenMMR, string(rec.Winner), rec.Won, created)
		if err != nil {
			return fmt.Errorf("failed to insert rating history: %w", err)
		}
	}

	return tx.Commit()
}

// History returns the most recent rating-history rows for a player.
func (r *PlayerRepository) History(ctx context.Context, tenantID, playerID string, limit int) ([]domain.RatingRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, session, player_id, points_delta, mmr_delta, points, hidden_mmr, winner, won, created_at
		FROM rating_history WHERE tenant_id = ? AND player_id = ?
		ORDER BY created_at DESC LIMIT ?`,
		tenantID, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load rating history: %w", err)
	}
	defer rows.Close()

	var out []domain.RatingRecord
	for rows.Next() {
		var rec domain.RatingRecord
		var winner string
		if err := rows.Scan(&rec.ID, &rec.TenantID, &rec.Session, &rec.PlayerID,
			&rec.PointsDelta, &rec.MMRDelta, &rec.Points, &rec.HiddenMMR,
			&winner, &rec.Won, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rating history: %w", err)
		}
		rec.Winner = domain.Side(winner)
		out = append(out, rec)
	}
	return out, rows.Err()
}
