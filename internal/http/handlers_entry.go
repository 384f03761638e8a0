package http

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"bilancio/internal/auth"
	"bilancio/internal/core"
	"bilancio/internal/services"
)

// entryRequest carries amounts in currency units; the API boundary is the
// only place floats are accepted, conversion to cents happens immediately.
type entryRequest struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
	Expense float64 `json:"expense"`
}

type entryResponse struct {
	ID         int64     `json:"id"`
	Date       string    `json:"date"`
	Revenue    float64   `json:"revenue"`
	Expense    float64   `json:"expense"`
	Profitloss float64   `json:"profitloss"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toEntryResponse(e core.Entry) entryResponse {
	return entryResponse{
		ID:         e.ID,
		Date:       e.Date.Key(),
		Revenue:    e.Revenue.Units(),
		Expense:    e.Expense.Units(),
		Profitloss: e.ProfitLoss.Units(),
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

func (r entryRequest) toEntry(userID int64) (core.Entry, error) {
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return core.Entry{}, err
	}
	revenue, err := core.CentsFromFloat(r.Revenue)
	if err != nil {
		return core.Entry{}, err
	}
	expense, err := core.CentsFromFloat(r.Expense)
	if err != nil {
		return core.Entry{}, err
	}
	return core.Entry{
		UserID:  userID,
		Date:    date,
		Revenue: core.Money{Cents: revenue},
		Expense: core.Money{Cents: expense},
	}, nil
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	entries, err := s.entries.ListEntries(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "List entries failed", "error", err, "user_id", userID)
		respondError(w, http.StatusInternalServerError, "list entries failed")
		return
	}

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := req.toEntry(userID)
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}

	saved, err := s.entries.CreateEntry(r.Context(), entry)
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			slog.ErrorContext(r.Context(), "Create entry failed", "error", err, "user_id", userID)
			respondError(w, status, "create entry failed")
			return
		}
		respondError(w, status, err.Error())
		return
	}

	s.invalidateStats(userID)
	respondJSON(w, http.StatusCreated, toEntryResponse(saved))
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := s.entries.GetEntry(r.Context(), userID, id)
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, toEntryResponse(entry))
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := req.toEntry(userID)
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}
	entry.ID = id

	updated, err := s.entries.UpdateEntry(r.Context(), entry)
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			slog.ErrorContext(r.Context(), "Update entry failed", "error", err, "user_id", userID, "entry_id", id)
			respondError(w, status, "update entry failed")
			return
		}
		respondError(w, status, err.Error())
		return
	}

	s.invalidateStats(userID)
	respondJSON(w, http.StatusOK, toEntryResponse(updated))
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.entries.DeleteEntry(r.Context(), userID, id); err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}

	s.invalidateStats(userID)
	w.WriteHeader(http.StatusNoContent)
}

// handleImportEntries accepts CSV as the raw request body or as a
// multipart upload in a "file" field, or a JSON array of rows.
func (s *Server) handleImportEntries(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	body := io.Reader(r.Body)
	switch mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType {
	case "multipart/form-data":
		file, _, err := r.FormFile("file")
		if err != nil {
			respondError(w, http.StatusBadRequest, "missing file field")
			return
		}
		defer file.Close()
		body = file
	case "application/json":
		var rows []services.ImportRow
		if err := decodeJSON(r, &rows); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		result, err := s.entries.ImportRows(r.Context(), userID, rows)
		if err != nil {
			slog.ErrorContext(r.Context(), "Import failed", "error", err, "user_id", userID)
			respondError(w, http.StatusInternalServerError, "import failed")
			return
		}
		if result.Succeeded > 0 {
			s.invalidateStats(userID)
		}
		respondJSON(w, http.StatusOK, result)
		return
	}

	result, err := s.entries.ImportCSV(r.Context(), userID, body)
	if err != nil {
		slog.ErrorContext(r.Context(), "Import failed", "error", err, "user_id", userID)
		respondError(w, http.StatusInternalServerError, "import failed")
		return
	}

	if result.Succeeded > 0 {
		s.invalidateStats(userID)
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleExportEntries(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="entries.csv"`)

	if err := s.entries.ExportCSV(r.Context(), w, userID); err != nil {
		// Headers are gone; all we can do is log.
		slog.ErrorContext(r.Context(), "Export failed", "error", err, "user_id", userID)
	}
}
