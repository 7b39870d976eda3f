// internal/store/store.go
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"guesstream/internal/models"
)

// Backend persists the viewer map as one wholesale document. Implementations
// must tolerate missing prior state on Load (fresh install) by returning an
// empty map.
type Backend interface {
	Load(ctx context.Context) (map[string]models.Viewer, error)
	Save(ctx context.Context, viewers map[string]models.Viewer) error
}

// ViewerStore is the process-wide record of chat viewers, their win counts
// and tiers. All gameplay reads and writes go through the in-memory map;
// the backend (if any) is a best-effort write-behind whose failures never
// surface to callers.
type ViewerStore struct {
	mu      sync.RWMutex
	viewers map[string]*models.Viewer

	backend Backend
	logger  *logrus.Logger
}

// NewViewerStore builds an empty store. backend may be nil for a purely
// in-memory store.
func NewViewerStore(logger *logrus.Logger, backend Backend) *ViewerStore {
	return &ViewerStore{
		viewers: make(map[string]*models.Viewer),
		backend: backend,
		logger:  logger,
	}
}

// Load replaces the in-memory map with the backend's contents. Called once
// at startup; an error leaves the store empty and playable.
func (s *ViewerStore) Load(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}

	loaded, err := s.backend.Load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.viewers = make(map[string]*models.Viewer, len(loaded))
	for id, v := range loaded {
		rec := v
		rec.ID = id
		rec.Tier = models.TierForWins(rec.WinsTotal)
		s.viewers[id] = &rec
	}

	return nil
}

// Touch returns the viewer record for id, creating it lazily and refreshing
// the display name if it changed. Touch never persists; only wins and bulk
// resets rewrite the backend.
func (s *ViewerStore) Touch(id, displayName string) models.Viewer {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.viewers[id]
	if !ok {
		v = &models.Viewer{ID: id, Tier: models.TierNone}
		s.viewers[id] = v
	}
	if displayName != "" && v.DisplayName != displayName {
		v.DisplayName = displayName
	}

	return *v
}

// Get returns a copy of the viewer record, if present.
func (s *ViewerStore) Get(id string) (models.Viewer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.viewers[id]
	if !ok {
		return models.Viewer{}, false
	}
	return *v, true
}

// RecordWin increments the viewer's lifetime win count, recomputes their
// tier, and schedules a persistence rewrite. The returned bool reports
// whether the tier changed with this win.
func (s *ViewerStore) RecordWin(id, displayName string) (models.Viewer, bool) {
	s.mu.Lock()

	v, ok := s.viewers[id]
	if !ok {
		v = &models.Viewer{ID: id}
		s.viewers[id] = v
	}
	if displayName != "" {
		v.DisplayName = displayName
	}

	prev := v.Tier
	v.WinsTotal++
	v.Tier = models.TierForWins(v.WinsTotal)
	changed := v.Tier != prev

	rec := *v
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persistAsync(snapshot)

	return rec, changed
}

// ResetAll wipes every viewer record and rewrites the backend.
func (s *ViewerStore) ResetAll() {
	s.mu.Lock()
	s.viewers = make(map[string]*models.Viewer)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persistAsync(snapshot)
}

// Count returns the number of known viewers.
func (s *ViewerStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.viewers)
}

// Leaderboard derives the top viewers by win count. Viewers with zero wins
// are excluded. Ties order by display name for a stable broadcast.
func (s *ViewerStore) Leaderboard(limit int) []models.LeaderboardEntry {
	s.mu.RLock()

	entries := make([]models.LeaderboardEntry, 0, len(s.viewers))
	for _, v := range s.viewers {
		if v.WinsTotal == 0 {
			continue
		}
		entries = append(entries, models.LeaderboardEntry{
			ViewerID:    v.ID,
			DisplayName: v.DisplayName,
			Wins:        v.WinsTotal,
			Tier:        v.Tier,
		})
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Wins != entries[j].Wins {
			return entries[i].Wins > entries[j].Wins
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return entries
}

func (s *ViewerStore) snapshotLocked() map[string]models.Viewer {
	snapshot := make(map[string]models.Viewer, len(s.viewers))
	for id, v := range s.viewers {
		snapshot[id] = *v
	}
	return snapshot
}

// persistAsync rewrites the backend out of band. Disk or network failures
// are logged and swallowed; the in-memory transition already happened and
// gameplay never waits on durability.
func (s *ViewerStore) persistAsync(snapshot map[string]models.Viewer) {
	if s.backend == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.backend.Save(ctx, snapshot); err != nil && s.logger != nil {
			s.logger.Warnf("viewer store persistence failed: %v", err)
		}
	}()
}
