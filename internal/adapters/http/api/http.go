// Package api declares HTTP contracts and route registration helpers for
// the engine's operational read surface. The chat transport does not go
// through HTTP; these routes serve dashboards and probes.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/chatkeeper/keeper/internal/app"
	"github.com/chatkeeper/keeper/internal/domain/model"
)

// Dependencies is the slice of the service the handlers need. An interface
// bundle keeps the handler layer loosely coupled to the app package.
type Dependencies interface {
	Leaders(ctx context.Context, limit int) ([]model.Actor, error)
	Staff(ctx context.Context) ([]model.Actor, error)
	Profile(ctx context.Context, actorID int64) (app.Profile, error)
	Stats(ctx context.Context) (app.Stats, error)
}

// Server wires the HTTP routes.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	profileHandler     *ProfileHandler
}

// NewServer creates an API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, defaultMaxLimit),
		profileHandler:     NewProfileHandler(deps),
	}
}

// Register attaches all routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/staff", MetricsMiddleware(s.leaderboardHandler.HandleGetStaff, "staff"))
	mux.HandleFunc("/actors/", MetricsMiddleware(s.profileHandler.HandleGetProfile, "actors"))
}

// actorEntry mirrors the read shape of a directory record.
type actorEntry struct {
	ID          int64  `json:"id"`
	Handle      string `json:"handle,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Level       int    `json:"level"`
	XP          int64  `json:"xp"`
	Reputation  int    `json:"reputation"`
	Rank        int    `json:"rank,omitempty"`
}

func toEntry(a model.Actor) actorEntry {
	return actorEntry{
		ID:          a.ID,
		Handle:      a.Handle,
		DisplayName: a.DisplayName,
		Level:       a.Level,
		XP:          a.XP,
		Reputation:  a.Reputation,
		Rank:        a.Rank,
	}
}

func toEntries(actors []model.Actor) []actorEntry {
	out := make([]actorEntry, 0, len(actors))
	for _, a := range actors {
		out = append(out, toEntry(a))
	}
	return out
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates an operation error via its stable code.
func writeServiceError(w http.ResponseWriter, err error) {
	code := app.CodeOf(err)
	switch code {
	case app.CodeNotFound:
		writeError(w, http.StatusNotFound, string(code), err)
	case app.CodeInvalidArgument:
		writeError(w, http.StatusBadRequest, string(code), err)
	case app.CodePermissionDenied:
		writeError(w, http.StatusForbidden, string(code), err)
	default:
		writeError(w, http.StatusInternalServerError, string(code), err)
	}
}
