package services

import (
	"time"

	"saaspulse/internal/session"
)

// HealthStatus is the liveness snapshot served to the dashboard.
type HealthStatus struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
	Sessions  int       `json:"sessions"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthService reports service health.
type HealthService struct {
	version   string
	startedAt time.Time
	store     *session.Store
}

// NewHealthService creates a health service
func NewHealthService(version string, store *session.Store) *HealthService {
	return &HealthService{
		version:   version,
		startedAt: time.Now(),
		store:     store,
	}
}

// Snapshot returns the current health status.
func (s *HealthService) Snapshot() HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Version:   s.version,
		Uptime:    time.Since(s.startedAt).Round(time.Second).String(),
		Sessions:  s.store.Count(),
		Timestamp: time.Now().UTC(),
	}
}
