// Package client provides models and repository for platform clients:
// the businesses that buy 360° tour hosting.
package client

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// Status is a client's account lifecycle state.
type Status string

const (
	StatusActive   Status = "active"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusInactive Status = "inactive"
)

// Valid reports whether s is a known account status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPending, StatusApproved, StatusRejected, StatusInactive:
		return true
	}
	return false
}

// Plan is a subscription tier.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanPremium    Plan = "premium"
	PlanEnterprise Plan = "enterprise"
)

// AssetState distinguishes an asset captured during onboarding from one
// already persisted to object storage. The state is resolved once at the
// boundary; downstream code switches on State instead of re-inspecting
// the payload.
type AssetState string

const (
	// AssetPending holds raw bytes awaiting upload.
	AssetPending AssetState = "pending"

	// AssetPersisted references a hosted URL.
	AssetPersisted AssetState = "persisted"
)

// Asset is a logo or document payload as a tagged union: either pending
// raw bytes or a persisted URL, never both.
type Asset struct {
	State       AssetState `json:"state"`
	ContentType string     `json:"content_type,omitempty"`
	Bytes       []byte     `json:"-"`
	URL         string     `json:"url,omitempty"`
}

// PendingAsset wraps raw upload bytes.
func PendingAsset(contentType string, data []byte) Asset {
	return Asset{State: AssetPending, ContentType: contentType, Bytes: data}
}

// PersistedAsset wraps a hosted URL.
func PersistedAsset(url string) Asset {
	return Asset{State: AssetPersisted, URL: url}
}

// Persist resolves a pending asset to its hosted URL after upload.
// Persisting an already-persisted asset just swaps the URL.
func (a *Asset) Persist(url string) {
	a.State = AssetPersisted
	a.URL = url
	a.Bytes = nil
	a.ContentType = ""
}

// Document is an onboarding document (registration papers, floor plans).
type Document struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Asset Asset  `json:"asset"`
}

// Client is a business account on the platform.
type Client struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone,omitempty"`
	Company       string     `json:"company,omitempty"`
	Industry      string     `json:"industry,omitempty"`
	ContactPerson string     `json:"contact_person,omitempty"`
	Website       string     `json:"website,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	Status        Status     `json:"status"`
	Plan          Plan       `json:"plan"`
	APIKey        string     `json:"api_key,omitempty"`
	UsageLimit    int64      `json:"usage_limit"`
	CurrentUsage  int64      `json:"current_usage"`
	Logo          *Asset     `json:"logo,omitempty"`
	Documents     []Document `json:"documents"`
	JoinedDate    string     `json:"joined_date,omitempty"`
}

// GenerateAPIKey builds a key of the form <slug>_sk_<hex> where the slug
// is derived from the client name. Keys are opaque to the platform; only
// the prefix is meaningful to operators scanning logs.
func GenerateAPIKey(name string) (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return slugify(name) + "_sk_" + hex.EncodeToString(buf), nil
}

// slugify lowercases the name and collapses runs of non-alphanumerics
// into single hyphens.
func slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
