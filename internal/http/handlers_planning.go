package http

import (
	"net/http"

	"finanzas/internal/services"
)

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.deps.Goals.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"goals": goals})
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var in services.GoalInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	goal, err := s.deps.Goals.Create(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}

// handleUpdateGoal replaces target, date, description and accumulated
// amount. Notes are kept.
func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	var in services.GoalInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	goal, err := s.deps.Goals.Update(r.Context(), userID(r), r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Goals.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddGoalNote(w http.ResponseWriter, r *http.Request) {
	var in noteInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	goal, err := s.deps.Goals.AddNote(r.Context(), userID(r), r.PathValue("id"), in.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

// handleListReminders returns reminders ordered by due date.
func (s *Server) handleListReminders(w http.ResponseWriter, r *http.Request) {
	reminders, err := s.deps.Reminders.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reminders": reminders})
}

func (s *Server) handleCreateReminder(w http.ResponseWriter, r *http.Request) {
	var in services.ReminderInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	reminder, err := s.deps.Reminders.Create(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reminder)
}

func (s *Server) handleUpdateReminder(w http.ResponseWriter, r *http.Request) {
	var in services.ReminderInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	reminder, err := s.deps.Reminders.Update(r.Context(), userID(r), r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reminder)
}

func (s *Server) handleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Reminders.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddReminderNote(w http.ResponseWriter, r *http.Request) {
	var in noteInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	reminder, err := s.deps.Reminders.AddNote(r.Context(), userID(r), r.PathValue("id"), in.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reminder)
}
