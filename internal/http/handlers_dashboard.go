package http

import (
	"net/http"
)

// handleDashboard computes the dashboard view for the requested frame.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	params, err := ParseViewParams(r.URL.Query(), s.deps.ViewLocation)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.deps.Dashboard.View(r.Context(), userID(r), params.request())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleDashboardRange sums income and expenses between the start and end
// query dates, both inclusive.
func (s *Server) handleDashboardRange(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	start, err := parseDateParam(query, "start")
	if err != nil {
		writeError(w, r, err)
		return
	}
	end, err := parseDateParam(query, "end")
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.deps.Dashboard.RangeTotals(r.Context(), userID(r), start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"start":   start,
		"end":     end,
		"summary": summary,
	})
}

// handleDemo serves a dashboard over generated sample data without
// authentication.
func (s *Server) handleDemo(w http.ResponseWriter, r *http.Request) {
	params, err := ParseViewParams(r.URL.Query(), s.deps.ViewLocation)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.deps.Dashboard.Demo(r.Context(), params.request())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
