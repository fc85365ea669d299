package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mvail/tourhost/internal/client"
	"github.com/mvail/tourhost/internal/middleware"
	"github.com/mvail/tourhost/internal/validate"
)

// CreateClientRequest represents the request body for POST /clients.
type CreateClientRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	Company       string `json:"company,omitempty"`
	Industry      string `json:"industry,omitempty"`
	ContactPerson string `json:"contact_person,omitempty"`
	Website       string `json:"website,omitempty"`
	Notes         string `json:"notes,omitempty"`
	LogoURL       string `json:"logo_url,omitempty"`
}

// UpdateClientStatusRequest represents the request body for
// POST /clients/{id}/status.
type UpdateClientStatusRequest struct {
	Status client.Status `json:"status"`
}

// ClientHandlers holds dependencies for client HTTP handlers.
type ClientHandlers struct {
	repo client.Repository
}

// NewClientHandlers creates a new ClientHandlers instance.
func NewClientHandlers(repo client.Repository) *ClientHandlers {
	return &ClientHandlers{repo: repo}
}

// Collection handles /clients.
// GET  /clients - list all clients
// POST /clients - onboard a new client
func (h *ClientHandlers) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listClients(w, r)
	case http.MethodPost:
		h.createClient(w, r)
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	}
}

func (h *ClientHandlers) listClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.repo.List(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list clients", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list clients")
		return
	}
	WriteJSON(w, r.Context(), http.StatusOK, map[string]any{"clients": clients})
}

// createClient onboards a new client. Name and email are required and
// validated; phone and website are validated only when present. New
// accounts start pending on the free tier with no API key.
func (h *ClientHandlers) createClient(w http.ResponseWriter, r *http.Request) {
	var req CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	name, err := validate.ClientName(req.Name)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid client name: "+err.Error())
		return
	}
	email, err := validate.Email(req.Email)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid email: "+err.Error())
		return
	}

	phone := ""
	if strings.TrimSpace(req.Phone) != "" {
		phone, err = validate.Phone(req.Phone)
		if err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid phone number: "+err.Error())
			return
		}
	}
	website := ""
	if strings.TrimSpace(req.Website) != "" {
		website, err = validate.WebsiteURL(req.Website)
		if err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid website URL: "+err.Error())
			return
		}
	}

	newClient := &client.Client{
		ID:            uuid.New().String(),
		Name:          name,
		Email:         email,
		Phone:         phone,
		Company:       req.Company,
		Industry:      req.Industry,
		ContactPerson: req.ContactPerson,
		Website:       website,
		Notes:         req.Notes,
		Status:        client.StatusPending,
		Plan:          client.PlanFree,
		JoinedDate:    time.Now().UTC().Format("2006-01-02"),
	}
	if req.LogoURL != "" {
		logo := client.PersistedAsset(req.LogoURL)
		newClient.Logo = &logo
	}

	if err := h.repo.Put(r.Context(), newClient); err != nil {
		slog.ErrorContext(r.Context(), "failed to create client", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to create client")
		return
	}

	WriteJSON(w, r.Context(), http.StatusCreated, newClient)
}

// Route dispatches /clients/{id}[/action] requests.
// GET  /clients/{id}         - fetch one client
// POST /clients/{id}/status  - change account status
// POST /clients/{id}/apikey  - generate (or rotate) the API key
func (h *ClientHandlers) Route(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/clients/"), "/")
	if len(pathParts) == 0 || pathParts[0] == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Client ID is required")
		return
	}
	clientID := pathParts[0]

	switch {
	case len(pathParts) == 1 && r.Method == http.MethodGet:
		h.getClient(w, r, clientID)
	case len(pathParts) == 2 && pathParts[1] == "status" && r.Method == http.MethodPost:
		h.updateStatus(w, r, clientID)
	case len(pathParts) == 2 && pathParts[1] == "apikey" && r.Method == http.MethodPost:
		h.rotateAPIKey(w, r, clientID)
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Unknown client endpoint")
	}
}

func (h *ClientHandlers) getClient(w http.ResponseWriter, r *http.Request, clientID string) {
	c, err := h.repo.Get(r.Context(), clientID)
	if err != nil {
		if errors.Is(err, client.ErrClientNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Client not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get client", "error", err, "client_id", clientID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve client")
		return
	}
	WriteJSON(w, r.Context(), http.StatusOK, c)
}

func (h *ClientHandlers) updateStatus(w http.ResponseWriter, r *http.Request, clientID string) {
	var req UpdateClientStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}
	if !req.Status.Valid() {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Unknown client status")
		return
	}

	updated, err := h.repo.Mutate(r.Context(), clientID, func(c *client.Client) error {
		c.Status = req.Status
		return nil
	})
	if err != nil {
		if errors.Is(err, client.ErrClientNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Client not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to update client status", "error", err, "client_id", clientID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to update client status")
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, updated)
}

// rotateAPIKey issues a fresh API key, replacing any previous one. The
// old key stops working immediately.
func (h *ClientHandlers) rotateAPIKey(w http.ResponseWriter, r *http.Request, clientID string) {
	updated, err := h.repo.Mutate(r.Context(), clientID, func(c *client.Client) error {
		key, keyErr := client.GenerateAPIKey(c.Name)
		if keyErr != nil {
			return keyErr
		}
		c.APIKey = key
		return nil
	})
	if err != nil {
		if errors.Is(err, client.ErrClientNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Client not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to rotate api key", "error", err, "client_id", clientID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to generate API key")
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, map[string]string{"api_key": updated.APIKey})
}
