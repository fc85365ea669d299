// Package analytics aggregates platform-wide metrics for the admin
// dashboards from the client, tour and billing stores.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mvail/tourhost/internal/billing"
	"github.com/mvail/tourhost/internal/client"
	"github.com/mvail/tourhost/internal/tour"
)

// Snapshot is the platform's current headline numbers.
type Snapshot struct {
	TotalClients  int     `json:"total_clients"`
	ActiveClients int     `json:"active_clients"`
	TotalTours    int     `json:"total_tours"`
	LiveTours     int     `json:"live_tours"`
	PendingTours  int     `json:"pending_tours"`
	RevenueCents  int64   `json:"revenue_cents"`
	BandwidthMB   float64 `json:"bandwidth_mb"`
}

// PeriodStats is one month of platform activity.
type PeriodStats struct {
	Period       string  `json:"period"` // YYYY-MM
	Tours        int     `json:"tours"`
	RevenueCents int64   `json:"revenue_cents"`
	BandwidthMB  float64 `json:"bandwidth_mb"`
}

// Service computes analytics from the underlying repositories on demand.
// Nothing is cached: dashboard traffic is light and the stores are local.
type Service struct {
	tours   tour.Repository
	clients client.Repository
	billing billing.Repository
}

// NewService creates an analytics service over the given stores.
func NewService(tours tour.Repository, clients client.Repository, bill billing.Repository) *Service {
	return &Service{tours: tours, clients: clients, billing: bill}
}

// Snapshot computes the current headline numbers.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	clients, err := s.clients.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("analytics snapshot: %w", err)
	}
	tours, err := s.tours.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("analytics snapshot: %w", err)
	}
	invoices, err := s.billing.ListInvoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("analytics snapshot: %w", err)
	}

	snap := &Snapshot{TotalClients: len(clients), TotalTours: len(tours)}
	for _, c := range clients {
		if c.Status == client.StatusActive {
			snap.ActiveClients++
		}
	}
	for _, t := range tours {
		switch t.Status {
		case tour.StatusLive:
			snap.LiveTours++
		case tour.StatusPending:
			snap.PendingTours++
		}
		snap.BandwidthMB += t.BandwidthMB
	}
	for _, inv := range invoices {
		if inv.Status == billing.InvoicePaid {
			snap.RevenueCents += inv.AmountCents
		}
	}
	return snap, nil
}

// Monthly buckets tours by upload month and paid invoices by payment
// month, returning periods in ascending order. Records with unparseable
// dates are skipped rather than failing the whole report.
func (s *Service) Monthly(ctx context.Context) ([]PeriodStats, error) {
	tours, err := s.tours.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("analytics monthly: %w", err)
	}
	invoices, err := s.billing.ListInvoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("analytics monthly: %w", err)
	}

	buckets := make(map[string]*PeriodStats)
	bucket := func(period string) *PeriodStats {
		if b, ok := buckets[period]; ok {
			return b
		}
		b := &PeriodStats{Period: period}
		buckets[period] = b
		return b
	}

	for _, t := range tours {
		period, ok := monthOf(t.UploadDate)
		if !ok {
			continue
		}
		b := bucket(period)
		b.Tours++
		b.BandwidthMB += t.BandwidthMB
	}
	for _, inv := range invoices {
		if inv.Status != billing.InvoicePaid {
			continue
		}
		period, ok := monthOf(inv.PaidDate)
		if !ok {
			continue
		}
		bucket(period).RevenueCents += inv.AmountCents
	}

	out := make([]PeriodStats, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out, nil
}

// monthOf extracts YYYY-MM from a date string in RFC 3339 or plain
// YYYY-MM-DD form.
func monthOf(date string) (string, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, date); err == nil {
			return ts.UTC().Format("2006-01"), true
		}
	}
	return "", false
}
