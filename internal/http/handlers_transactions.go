package http

import (
	"net/http"
	"strings"

	"finanzas/internal/services"
)

// handleListTransactions returns the user's transactions, newest first,
// narrowed by the optional kind, category, frame and date query parameters.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	kind, err := parseKindParam(query.Get("kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := ParseViewParams(query, s.deps.ViewLocation)
	if err != nil {
		writeError(w, r, err)
		return
	}

	txs, err := s.deps.Transactions.List(r.Context(), userID(r), services.ListQuery{
		Kind:     kind,
		Category: strings.TrimSpace(query.Get("category")),
		Frame:    view.Frame,
		Ref:      view.Ref,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs, "count": len(txs)})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in transactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := in.toTransaction(s.deps.ViewLocation, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.deps.Transactions.Create(r.Context(), userID(r), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleUpdateTransaction replaces every editable field of a transaction.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var in transactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := in.toTransaction(s.deps.ViewLocation, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.deps.Transactions.Update(r.Context(), userID(r), r.PathValue("id"), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Transactions.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteCategory removes every transaction of one kind in a category.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	kind, err := parseKindParam(r.PathValue("kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if kind == "" {
		writeError(w, r, malformed(errEmptyKind))
		return
	}
	n, err := s.deps.Transactions.DeleteCategory(r.Context(), userID(r), kind, r.PathValue("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": n})
}
