package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mvail/tourhost/internal/middleware"
	"github.com/mvail/tourhost/internal/ticket"
	"github.com/mvail/tourhost/internal/validate"
)

// CreateTicketRequest represents the request body for POST /tickets.
type CreateTicketRequest struct {
	ClientID    string          `json:"client_id"`
	ClientName  string          `json:"client_name,omitempty"`
	Subject     string          `json:"subject"`
	Description string          `json:"description,omitempty"`
	Priority    ticket.Priority `json:"priority,omitempty"`
}

// UpdateTicketStatusRequest represents the request body for
// POST /tickets/{id}/status.
type UpdateTicketStatusRequest struct {
	Status ticket.Status `json:"status"`
}

// AssignTicketRequest represents the request body for
// POST /tickets/{id}/assign.
type AssignTicketRequest struct {
	AssignedTo string `json:"assigned_to"`
}

// TicketHandlers holds dependencies for ticket HTTP handlers.
type TicketHandlers struct {
	repo ticket.Repository
}

// NewTicketHandlers creates a new TicketHandlers instance.
func NewTicketHandlers(repo ticket.Repository) *TicketHandlers {
	return &TicketHandlers{repo: repo}
}

// Collection handles /tickets.
// GET  /tickets - list all tickets
// POST /tickets - open a new ticket
func (h *TicketHandlers) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listTickets(w, r)
	case http.MethodPost:
		h.createTicket(w, r)
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	}
}

func (h *TicketHandlers) listTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.repo.List(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list tickets", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list tickets")
		return
	}
	WriteJSON(w, r.Context(), http.StatusOK, map[string]any{"tickets": tickets})
}

func (h *TicketHandlers) createTicket(w http.ResponseWriter, r *http.Request) {
	var req CreateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if strings.TrimSpace(req.ClientID) == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "client_id is required")
		return
	}
	subject, err := validate.TicketSubject(req.Subject)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid subject: "+err.Error())
		return
	}
	if req.Priority != "" && !req.Priority.Valid() {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Unknown priority")
		return
	}

	created, err := h.repo.Create(r.Context(), &ticket.Ticket{
		ClientID:    req.ClientID,
		ClientName:  req.ClientName,
		Subject:     subject,
		Description: req.Description,
		Priority:    req.Priority,
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to create ticket", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to create ticket")
		return
	}

	WriteJSON(w, r.Context(), http.StatusCreated, created)
}

// Route dispatches /tickets/{id}[/action] requests.
// GET  /tickets/{id}         - fetch one ticket
// POST /tickets/{id}/status  - move through the workflow
// POST /tickets/{id}/assign  - hand to a support operator
func (h *TicketHandlers) Route(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/tickets/"), "/")
	if len(pathParts) == 0 || pathParts[0] == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Ticket ID is required")
		return
	}
	ticketID := pathParts[0]

	switch {
	case len(pathParts) == 1 && r.Method == http.MethodGet:
		h.getTicket(w, r, ticketID)
	case len(pathParts) == 2 && pathParts[1] == "status" && r.Method == http.MethodPost:
		h.updateStatus(w, r, ticketID)
	case len(pathParts) == 2 && pathParts[1] == "assign" && r.Method == http.MethodPost:
		h.assign(w, r, ticketID)
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Unknown ticket endpoint")
	}
}

func (h *TicketHandlers) getTicket(w http.ResponseWriter, r *http.Request, ticketID string) {
	t, err := h.repo.Get(r.Context(), ticketID)
	if err != nil {
		if errors.Is(err, ticket.ErrTicketNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Ticket not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get ticket", "error", err, "ticket_id", ticketID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve ticket")
		return
	}
	WriteJSON(w, r.Context(), http.StatusOK, t)
}

func (h *TicketHandlers) updateStatus(w http.ResponseWriter, r *http.Request, ticketID string) {
	var req UpdateTicketStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	updated, err := h.repo.SetStatus(r.Context(), ticketID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, ticket.ErrInvalidStatus):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Unknown ticket status")
		case errors.Is(err, ticket.ErrTicketNotFound):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Ticket not found")
		default:
			slog.ErrorContext(r.Context(), "failed to update ticket status", "error", err, "ticket_id", ticketID)
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to update ticket status")
		}
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, updated)
}

func (h *TicketHandlers) assign(w http.ResponseWriter, r *http.Request, ticketID string) {
	var req AssignTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}
	if strings.TrimSpace(req.AssignedTo) == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "assigned_to is required")
		return
	}

	updated, err := h.repo.Assign(r.Context(), ticketID, req.AssignedTo)
	if err != nil {
		if errors.Is(err, ticket.ErrTicketNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Ticket not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to assign ticket", "error", err, "ticket_id", ticketID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to assign ticket")
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, updated)
}
