package http

import (
	"net/http"

	"finanzas/internal/core"
)

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	limits, err := s.deps.Budget.Get(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, limits)
}

// handleSetBudget replaces the daily and monthly limits. Custom limits are
// untouched.
func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var in limitsInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	limits, err := s.deps.Budget.SetLimits(r.Context(), userID(r), core.RoundAmount(in.Daily), core.RoundAmount(in.Monthly))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, limits)
}

func (s *Server) handleAddCustomLimit(w http.ResponseWriter, r *http.Request) {
	var in core.CustomLimit
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.Amount = core.RoundAmount(in.Amount)
	limits, err := s.deps.Budget.AddCustomLimit(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, limits)
}

// handleRemoveCustomLimit deletes the custom limit at the zero-based index.
func (s *Server) handleRemoveCustomLimit(w http.ResponseWriter, r *http.Request) {
	index, err := parseIndex(r.PathValue("index"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	limits, err := s.deps.Budget.RemoveCustomLimit(r.Context(), userID(r), index)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, limits)
}
