package http

import (
	"log/slog"
	"net/http"
	"time"

	"bilancio/internal/auth"
	"bilancio/internal/core"
)

type ticketRequest struct {
	Description string `json:"description"`
	Status      string `json:"status"`
}

type ticketResponse struct {
	ID          int64     `json:"id"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toTicketResponse(t core.Ticket) ticketResponse {
	return ticketResponse{
		ID:          t.ID,
		Description: t.Description,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	tickets, err := s.repo.ListTickets(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "List tickets failed", "error", err, "user_id", userID)
		respondError(w, http.StatusInternalServerError, "list tickets failed")
		return
	}

	out := make([]ticketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, toTicketResponse(t))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req ticketRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ticket, err := s.repo.CreateTicket(r.Context(), core.Ticket{
		UserID:      userID,
		Description: sanitizeInput(req.Description),
		Status:      core.TicketStatus(req.Status),
	})
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			slog.ErrorContext(r.Context(), "Create ticket failed", "error", err, "user_id", userID)
			respondError(w, status, "create ticket failed")
			return
		}
		respondError(w, status, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, toTicketResponse(ticket))
}

func (s *Server) handleUpdateTicket(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req ticketRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Partial updates: empty fields keep their stored value.
	current, err := s.repo.GetTicket(r.Context(), userID, id)
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}
	if desc := sanitizeInput(req.Description); desc != "" {
		current.Description = desc
	}
	if req.Status != "" {
		current.Status = core.TicketStatus(req.Status)
	}

	updated, err := s.repo.UpdateTicket(r.Context(), current)
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, toTicketResponse(updated))
}

func (s *Server) handleDeleteTicket(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.repo.DeleteTicket(r.Context(), userID, id); err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
