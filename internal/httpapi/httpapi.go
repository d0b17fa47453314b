package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"queueup/internal/domain"
	"queueup/internal/middleware"
	"queueup/internal/repository"
	"queueup/internal/session"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Server is the read-mostly HTTP surface: session status, player lookups and
// tenant config. Queue and vote actions arrive from the chat platform, not
// from here, so writes are limited to the admin config patch.
type Server struct {
	manager *session.Manager
	players *repository.PlayerRepository
	logger  zerolog.Logger
}

func NewServer(manager *session.Manager, players *repository.PlayerRepository, logger zerolog.Logger) *Server {
	return &Server{manager: manager, players: players, logger: logger}
}

// Handler builds the routed, CORS-wrapped handler chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/players/{id}", s.handlePlayer)
	mux.HandleFunc("GET /api/config", s.handleGetConfig)
	mux.HandleFunc("PATCH /api/config", s.handlePatchConfig)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return middleware.RequestID(s.logger)(c.Handler(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "tenant is required")
		return
	}
	st, err := s.manager.Status(r.Context(), tenantID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "tenant is required")
		return
	}
	playerID := r.PathValue("id")

	player, err := s.players.Get(r.Context(), tenantID, playerID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	history, err := s.players.History(r.Context(), tenantID, playerID, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, playerResponse{
		PlayerID:    player.PlayerID,
		Name:        player.Name,
		Points:      player.Points,
		HiddenMMR:   player.HiddenMMR,
		MatchWins:   player.MatchWins,
		MatchLosses: player.MatchLosses,
		History:     toHistory(history),
	})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "tenant is required")
		return
	}
	cfg, err := s.manager.Config(r.Context(), tenantID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toConfigResponse(cfg))
}

func (s *Server) handlePatchConfig(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "tenant is required")
		return
	}
	var req configPatch
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	patch := req.toDomain()
	patch.TenantID = tenantID
	if err := s.manager.SaveConfig(r.Context(), patch); err != nil {
		s.fail(w, r, err)
		return
	}
	cfg, err := s.manager.Config(r.Context(), tenantID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toConfigResponse(cfg))
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrMissingPlayerRecord) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.Error().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
