package config

import (
	"os"
	"strconv"
	"time"

	"queueup/internal/constants"
	"queueup/internal/domain"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	DBPath     string
	ServerPort string
	LogLevel   string
	WebhookURL string
	Defaults   domain.TenantConfig
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	if n := getEnvInt("PER_ROLE_CAPACITY", constants.PerRoleCapacity); n != constants.PerRoleCapacity {
		logger.Warn().Int("per_role_capacity", n).Msg("unsupported per-role capacity override ignored, roles hold pairs")
	}

	cfg := &Config{
		DBPath:     getEnv("DB_PATH", "queueup.db"),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		WebhookURL: getEnv("WEBHOOK_URL", ""),
		Defaults: domain.TenantConfig{
			SessionNumber:   1,
			PerRoleCapacity: constants.PerRoleCapacity,
			VoteThreshold:   getEnvInt("VOTE_THRESHOLD", constants.VoteThreshold),
			RolePickWait:    getEnvDuration("ROLE_PICK_WAIT", constants.RolePickWait),
			MemberWait:      getEnvDuration("MEMBER_WAIT", constants.MemberWait),
			CaptainVoteWait: getEnvDuration("CAPTAIN_VOTE_WAIT", constants.CaptainVoteWait),
			DraftTurnWait:   getEnvDuration("DRAFT_TURN_WAIT", constants.DraftTurnWait),
			ResultVoteWait:  getEnvDuration("RESULT_VOTE_WAIT", constants.ResultVoteWait),
		},
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Int("per_role_capacity", cfg.Defaults.PerRoleCapacity).
		Int("vote_threshold", cfg.Defaults.VoteThreshold).
		Dur("member_wait", cfg.Defaults.MemberWait).
		Msg("configuration loaded")

	return cfg, nil
}

// Merge overlays a stored per-tenant config on top of the process defaults.
// Zero fields in the stored config fall back to the default.
func (c *Config) Merge(stored domain.TenantConfig) domain.TenantConfig {
	out := stored
	if out.SessionNumber <= 0 {
		out.SessionNumber = c.Defaults.SessionNumber
	}
	// Role buckets hold exactly one pair; no other capacity splits into two
	// full teams, so stored overrides are ignored.
	out.PerRoleCapacity = constants.PerRoleCapacity
	if out.VoteThreshold <= 0 {
		out.VoteThreshold = c.Defaults.VoteThreshold
	}
	if out.RolePickWait <= 0 {
		out.RolePickWait = c.Defaults.RolePickWait
	}
	if out.MemberWait <= 0 {
		out.MemberWait = c.Defaults.MemberWait
	}
	if out.CaptainVoteWait <= 0 {
		out.CaptainVoteWait = c.Defaults.CaptainVoteWait
	}
	if out.DraftTurnWait <= 0 {
		out.DraftTurnWait = c.Defaults.DraftTurnWait
	}
	if out.ResultVoteWait <= 0 {
		out.ResultVoteWait = c.Defaults.ResultVoteWait
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

var Module = fx.Provide(Load)
