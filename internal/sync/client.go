// Package sync implements the HTTP client through which viewer sessions
// and operator tooling exchange state with the tour backend. The backend
// is the single source of truth; fetched tours replace local state
// wholesale.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mvail/tourhost/internal/tour"
)

// Error is a failed boundary call: the request did not complete or the
// backend answered non-2xx. Failures are reported once and not retried;
// the caller decides whether to surface, retry, or discard.
type Error struct {
	Op     string // operation name, e.g. "create hotspot"
	Status int    // HTTP status, 0 for transport failures
	Code   string // backend error code, empty for transport failures
	Msg    string
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("sync: %s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("sync: %s: status %d (%s): %s", e.Op, e.Status, e.Code, e.Msg)
}

// errorEnvelope mirrors the backend's error response format.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to the tour backend over HTTP. Requests are traced via
// otelhttp so boundary latency shows up in the service traces.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a boundary client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// do issues one request and decodes a 2xx JSON body into out (skipped when
// out is nil). Non-2xx responses and transport failures become *Error.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Msg: fmt.Sprintf("encode request: %v", err)}
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Op: op, Msg: err.Error()}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: op, Msg: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env errorEnvelope
		msg := resp.Status
		_ = json.NewDecoder(resp.Body).Decode(&env)
		if env.Error.Message != "" {
			msg = env.Error.Message
		}
		return &Error{Op: op, Status: resp.StatusCode, Code: env.Error.Code, Msg: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Msg: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}

// FetchTours retrieves the full tour snapshot.
func (c *Client) FetchTours(ctx context.Context) ([]tour.Tour, error) {
	var tours []tour.Tour
	if err := c.do(ctx, "fetch tours", http.MethodGet, "/tours", nil, &tours); err != nil {
		return nil, err
	}
	return tours, nil
}

// FetchTour retrieves one tour by id.
func (c *Client) FetchTour(ctx context.Context, id string) (*tour.Tour, error) {
	var t tour.Tour
	path := "/tours/" + url.PathEscape(id)
	if err := c.do(ctx, "fetch tour", http.MethodGet, path, nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateHotspot persists a new hotspot and returns it with the assigned id.
func (c *Client) CreateHotspot(ctx context.Context, n tour.NewHotspot) (tour.Hotspot, error) {
	var hs tour.Hotspot
	if err := c.do(ctx, "create hotspot", http.MethodPost, "/hotspots", n, &hs); err != nil {
		return tour.Hotspot{}, err
	}
	return hs, nil
}

// UpdateHotspot applies a partial patch to an existing hotspot.
func (c *Client) UpdateHotspot(ctx context.Context, id string, patch tour.HotspotPatch) (tour.Hotspot, error) {
	var hs tour.Hotspot
	path := "/hotspots/" + url.PathEscape(id)
	if err := c.do(ctx, "update hotspot", http.MethodPut, path, patch, &hs); err != nil {
		return tour.Hotspot{}, err
	}
	return hs, nil
}

// DeleteHotspot removes a hotspot. The backend treats absent ids as a
// successful no-op, so the call is idempotent.
func (c *Client) DeleteHotspot(ctx context.Context, id string) error {
	path := "/hotspots/" + url.PathEscape(id)
	return c.do(ctx, "delete hotspot", http.MethodDelete, path, nil, nil)
}

// ReplaceSceneImage swaps a scene's panorama reference.
func (c *Client) ReplaceSceneImage(ctx context.Context, sceneID, imageRef string) error {
	path := "/scenes/" + url.PathEscape(sceneID) + "/image"
	body := map[string]string{"image_url": imageRef}
	return c.do(ctx, "replace scene image", http.MethodPut, path, body, nil)
}

// ApproveTour transitions a tour to approved via reviewer action.
func (c *Client) ApproveTour(ctx context.Context, id string) (*tour.Tour, error) {
	var t tour.Tour
	path := "/tours/" + url.PathEscape(id) + "/approve"
	if err := c.do(ctx, "approve tour", http.MethodPost, path, nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// RejectTour transitions a tour to rejected via reviewer action.
func (c *Client) RejectTour(ctx context.Context, id string) (*tour.Tour, error) {
	var t tour.Tour
	path := "/tours/" + url.PathEscape(id) + "/reject"
	if err := c.do(ctx, "reject tour", http.MethodPost, path, nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
