package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nandanugg/apadbandhan/module/tracking/domain"
)

// ErrStaleHistory is returned when a fetch finished after the store was
// rebound or reset; its result has been dropped.
var ErrStaleHistory = errors.New("stale history response")

type historyBackend interface {
	GetLocationHistory(ctx context.Context, deviceID string) ([]domain.LocationPoint, error)
	BackfillAddresses(ctx context.Context, deviceID string, limit int) error
}

type FetchOptions struct {
	// Initial marks the first load after a view opens.
	Initial bool
}

type HistorySnapshot struct {
	DeviceID        string                 `json:"device_id"`
	Points          domain.LocationHistory `json:"points"`
	IsLoading       bool                   `json:"is_loading"`
	IsRefreshing    bool                   `json:"is_refreshing"`
	LastRefreshTime *time.Time             `json:"last_refresh_time,omitempty"`
}

// HistoryStore caches the location history of the device a view is bound
// to. Every successful fetch replaces the whole history; when fetches
// overlap the last one to finish wins.
type HistoryStore struct {
	backend historyBackend
	logger  *slog.Logger
	now     func() time.Time

	mu          sync.RWMutex
	deviceID    string
	epoch       uint64
	points      domain.LocationHistory
	loading     int
	refreshing  int
	lastRefresh time.Time
}

func NewHistoryStore(backend historyBackend, logger *slog.Logger) *HistoryStore {
	return &HistoryStore{
		backend: backend,
		logger:  logger,
		now:     time.Now,
	}
}

// Bind points the store at deviceID and drops everything it held.
func (s *HistoryStore) Bind(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deviceID = deviceID
	s.resetLocked()
}

// Reset unbinds the store. Fetches still in flight are discarded.
func (s *HistoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deviceID = ""
	s.resetLocked()
}

func (s *HistoryStore) resetLocked() {
	s.epoch++
	s.points = nil
	s.loading = 0
	s.refreshing = 0
	s.lastRefresh = time.Time{}
}

// Fetch loads the device's history and replaces the stored copy. A failed
// initial load leaves the history empty; a failed refresh keeps what was
// there. An empty deviceID is a no-op.
func (s *HistoryStore) Fetch(ctx context.Context, deviceID string, opts FetchOptions) error {
	if deviceID == "" {
		return nil
	}

	s.mu.Lock()
	if deviceID != s.deviceID {
		s.mu.Unlock()
		return ErrStaleHistory
	}
	epoch := s.epoch
	if opts.Initial {
		s.loading++
	} else {
		s.refreshing++
	}
	s.mu.Unlock()

	points, err := s.backend.GetLocationHistory(ctx, deviceID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch || s.deviceID != deviceID {
		s.logger.Debug("dropping stale history response", "device_id", deviceID)
		return ErrStaleHistory
	}

	if opts.Initial {
		s.loading--
	} else {
		s.refreshing--
	}

	if err != nil {
		if opts.Initial {
			s.points = nil
		}
		s.logger.Warn("history fetch failed", "device_id", deviceID, "initial", opts.Initial, "error", err)
		return fmt.Errorf("fetch history: %w", err)
	}

	s.points = domain.NewLocationHistory(points)
	s.lastRefresh = s.now()
	return nil
}

// BackfillAddresses asks the backend to geocode points without an address
// and reloads the history afterwards. Failures are logged and dropped.
func (s *HistoryStore) BackfillAddresses(ctx context.Context, deviceID string, limit int) {
	if deviceID == "" {
		return
	}
	if err := s.backend.BackfillAddresses(ctx, deviceID, limit); err != nil {
		s.logger.Warn("address backfill failed", "device_id", deviceID, "error", err)
		return
	}
	_ = s.Fetch(ctx, deviceID, FetchOptions{})
}

func (s *HistoryStore) Points() domain.LocationHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(domain.LocationHistory, len(s.points))
	copy(out, s.points)
	return out
}

func (s *HistoryStore) Snapshot() HistorySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := HistorySnapshot{
		DeviceID:     s.deviceID,
		Points:       make(domain.LocationHistory, len(s.points)),
		IsLoading:    s.loading > 0,
		IsRefreshing: s.refreshing > 0,
	}
	copy(snap.Points, s.points)
	if !s.lastRefresh.IsZero() {
		t := s.lastRefresh
		snap.LastRefreshTime = &t
	}
	return snap
}
