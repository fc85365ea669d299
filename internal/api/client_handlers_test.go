package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mvail/tourhost/internal/client"
)

func seedClientRepo(t *testing.T) *client.InMemoryRepository {
	t.Helper()
	repo := client.NewInMemoryRepository()
	err := repo.Put(context.Background(), &client.Client{
		ID:     "client-1",
		Name:   "Grand Hotels Group",
		Email:  "ops@grandhotels.example",
		Status: client.StatusActive,
		Plan:   client.PlanPremium,
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return repo
}

func TestCreateClient_Success(t *testing.T) {
	repo := client.NewInMemoryRepository()
	handlers := NewClientHandlers(repo)

	reqBody := CreateClientRequest{
		Name:    "Coastal Realty",
		Email:   "hello@coastalrealty.example",
		Phone:   "+1 (555) 123-4567",
		Website: "https://coastalrealty.example",
		LogoURL: "https://cdn.example.com/logos/coastal.png",
	}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPost, "/clients", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handlers.Collection(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var created client.Client
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.ID == "" {
		t.Error("expected an assigned id")
	}
	if created.Status != client.StatusPending {
		t.Errorf("expected status pending, got %s", created.Status)
	}
	if created.Plan != client.PlanFree {
		t.Errorf("expected plan free, got %s", created.Plan)
	}
	if created.Phone != "+15551234567" {
		t.Errorf("expected normalized phone, got %s", created.Phone)
	}
	if created.Logo == nil || created.Logo.State != client.AssetPersisted {
		t.Error("expected persisted logo asset")
	}
	if created.APIKey != "" {
		t.Error("expected no API key on a fresh account")
	}
}

func TestCreateClient_InvalidEmail(t *testing.T) {
	handlers := NewClientHandlers(client.NewInMemoryRepository())

	body, _ := json.Marshal(CreateClientRequest{Name: "Coastal Realty", Email: "not-an-email"})
	req := httptest.NewRequest(http.MethodPost, "/clients", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handlers.Collection(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if errResp.Error.Code != ErrCodeValidation {
		t.Errorf("expected error code %s, got %s", ErrCodeValidation, errResp.Error.Code)
	}
}

func TestCreateClient_InvalidName(t *testing.T) {
	handlers := NewClientHandlers(client.NewInMemoryRepository())

	body, _ := json.Marshal(CreateClientRequest{Name: "A", Email: "a@b.example"})
	req := httptest.NewRequest(http.MethodPost, "/clients", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handlers.Collection(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestListClients(t *testing.T) {
	repo := seedClientRepo(t)
	handlers := NewClientHandlers(repo)

	req := httptest.NewRequest(http.MethodGet, "/clients", nil)
	w := httptest.NewRecorder()
	handlers.Collection(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp struct {
		Clients []client.Client `json:"clients"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Clients) != 1 {
		t.Errorf("expected 1 client, got %d", len(resp.Clients))
	}
}

func TestGetClient_NotFound(t *testing.T) {
	repo := seedClientRepo(t)
	handlers := NewClientHandlers(repo)

	req := httptest.NewRequest(http.MethodGet, "/clients/missing", nil)
	w := httptest.NewRecorder()
	handlers.Route(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestUpdateClientStatus(t *testing.T) {
	repo := seedClientRepo(t)
	handlers := NewClientHandlers(repo)

	body, _ := json.Marshal(UpdateClientStatusRequest{Status: client.StatusInactive})
	req := httptest.NewRequest(http.MethodPost, "/clients/client-1/status", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handlers.Route(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var updated client.Client
	if err := json.NewDecoder(w.Body).Decode(&updated); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if updated.Status != client.StatusInactive {
		t.Errorf("expected status inactive, got %s", updated.Status)
	}
}

func TestUpdateClientStatus_Unknown(t *testing.T) {
	repo := seedClientRepo(t)
	handlers := NewClientHandlers(repo)

	body, _ := json.Marshal(UpdateClientStatusRequest{Status: client.Status("suspended")})
	req := httptest.NewRequest(http.MethodPost, "/clients/client-1/status", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handlers.Route(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestRotateAPIKey(t *testing.T) {
	repo := seedClientRepo(t)
	handlers := NewClientHandlers(repo)

	req := httptest.NewRequest(http.MethodPost, "/clients/client-1/apikey", nil)
	w := httptest.NewRecorder()
	handlers.Route(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	key := resp["api_key"]
	if !strings.HasPrefix(key, "grand-hotels-group_sk_") {
		t.Errorf("expected slug-prefixed key, got %s", key)
	}

	// Rotating again replaces the key.
	req = httptest.NewRequest(http.MethodPost, "/clients/client-1/apikey", nil)
	w = httptest.NewRecorder()
	handlers.Route(w, req)

	var second map[string]string
	if err := json.NewDecoder(w.Body).Decode(&second); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if second["api_key"] == key {
		t.Error("expected a fresh key on rotation")
	}
}
