package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// ProfileHandler handles single-actor reads.
type ProfileHandler struct {
	deps Dependencies
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(deps Dependencies) *ProfileHandler {
	return &ProfileHandler{deps: deps}
}

type profileResponse struct {
	actorEntry
	Standing int      `json:"standing"`
	Warns    []string `json:"warns,omitempty"`
}

// HandleGetProfile handles GET /actors/{id} requests.
func (h *ProfileHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	idStr := strings.TrimPrefix(r.URL.Path, "/actors/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("actor id must be an integer"))
		return
	}
	p, err := h.deps.Profile(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{
		actorEntry: toEntry(p.Actor),
		Standing:   p.Standing,
		Warns:      p.Warns,
	})
}
