package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/chatkeeper/keeper/internal/domain/model"
)

// MemoryStore is an in-memory Store for tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	actors  map[int64]*model.Actor
	reasons map[int64][]string
	grants  map[string]struct{} // "from:to:date"
	lists   map[ListKind]map[string]struct{}
}

var _ Store = (*MemoryStore)(nil)

// NewMemory constructs an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		actors:  make(map[int64]*model.Actor),
		reasons: make(map[int64][]string),
		grants:  make(map[string]struct{}),
		lists: map[ListKind]map[string]struct{}{
			ListBanned: {},
			ListAllow:  {},
		},
	}
}

func grantKey(fromID, toID int64, dateKey string) string {
	return fmt.Sprintf("%d:%d:%s", fromID, toID, dateKey)
}

// ensureLocked returns the actor record, creating it if missing. Callers
// hold the write lock.
func (m *MemoryStore) ensureLocked(actorID int64) *model.Actor {
	a, ok := m.actors[actorID]
	if !ok {
		a = &model.Actor{ID: actorID, Level: 1}
		m.actors[actorID] = a
	}
	return a
}

func (m *MemoryStore) EnsureActor(_ context.Context, actorID int64, handle, displayName string) (model.Actor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a := m.ensureLocked(actorID)
	if norm := NormalizeHandle(handle); norm != "" {
		a.Handle = norm
	}
	if displayName != "" {
		a.DisplayName = displayName
	}
	return *a, nil
}

func (m *MemoryStore) Actor(_ context.Context, actorID int64) (model.Actor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.actors[actorID]
	if !ok {
		return model.Actor{}, fmt.Errorf("actor %d: %w", actorID, ErrNotFound)
	}
	return *a, nil
}

func (m *MemoryStore) LookupHandle(_ context.Context, handle string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	norm := NormalizeHandle(handle)
	for id, a := range m.actors {
		if a.Handle == norm {
			return id, nil
		}
	}
	return 0, fmt.Errorf("handle %q: %w", handle, ErrNotFound)
}

func (m *MemoryStore) SetRank(_ context.Context, actorID int64, rank int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLocked(actorID).Rank = rank
	return nil
}

// sortedLocked returns actors ordered by (level desc, xp desc). Callers
// hold at least the read lock.
func (m *MemoryStore) sortedLocked() []model.Actor {
	out := make([]model.Actor, 0, len(m.actors))
	for _, a := range m.actors {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level > out[j].Level
		}
		return out[i].XP > out[j].XP
	})
	return out
}

func (m *MemoryStore) TopActors(_ context.Context, limit int) ([]model.Actor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.sortedLocked()
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Standing(_ context.Context, actorID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	me, ok := m.actors[actorID]
	if !ok {
		return 0, fmt.Errorf("actor %d: %w", actorID, ErrNotFound)
	}
	above := 0
	for _, a := range m.actors {
		if a.Level > me.Level || (a.Level == me.Level && a.XP > me.XP) {
			above++
		}
	}
	return above + 1, nil
}

func (m *MemoryStore) Staff(_ context.Context) ([]model.Actor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Actor
	for _, a := range m.actors {
		if a.Rank > 0 {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank > out[j].Rank })
	return out, nil
}

func (m *MemoryStore) ActorCount(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.actors), nil
}

func (m *MemoryStore) Progress(_ context.Context, actorID int64) (int64, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.actors[actorID]
	if !ok {
		return 0, 0, fmt.Errorf("actor %d: %w", actorID, ErrNotFound)
	}
	return a.XP, a.Level, nil
}

func (m *MemoryStore) SetProgress(_ context.Context, actorID int64, xp int64, level int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a := m.ensureLocked(actorID)
	a.XP = xp
	a.Level = level
	return nil
}

func (m *MemoryStore) WarnState(_ context.Context, actorID int64) (int, []string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.actors[actorID]
	if !ok {
		return 0, nil, nil
	}
	return a.Warns, append([]string(nil), m.reasons[actorID]...), nil
}

func (m *MemoryStore) SetWarnState(_ context.Context, actorID int64, count int, reasons []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ensureLocked(actorID).Warns = count
	m.reasons[actorID] = append([]string(nil), reasons...)
	return nil
}

func (m *MemoryStore) ReputationGrantExists(_ context.Context, fromID, toID int64, dateKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.grants[grantKey(fromID, toID, dateKey)]
	return ok, nil
}

func (m *MemoryStore) ReputationGrantsOn(_ context.Context, fromID int64, dateKey string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := fmt.Sprintf("%d:", fromID)
	suffix := ":" + dateKey
	n := 0
	for k := range m.grants {
		if strings.HasPrefix(k, prefix) && strings.HasSuffix(k, suffix) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) RecordReputationGrant(_ context.Context, fromID, toID int64, dateKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.grants[grantKey(fromID, toID, dateKey)] = struct{}{}
	m.ensureLocked(toID).Reputation++
	return nil
}

func (m *MemoryStore) Reputation(_ context.Context, actorID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.actors[actorID]
	if !ok {
		return 0, fmt.Errorf("actor %d: %w", actorID, ErrNotFound)
	}
	return a.Reputation, nil
}

func (m *MemoryStore) LastWipe(_ context.Context, actorID int64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.actors[actorID]
	if !ok {
		return "", nil
	}
	return a.LastWipe, nil
}

func (m *MemoryStore) SetLastWipe(_ context.Context, actorID int64, dateKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLocked(actorID).LastWipe = dateKey
	return nil
}

func (m *MemoryStore) List(_ context.Context, kind ListKind) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set, ok := m.lists[kind]
	if !ok {
		return nil, fmt.Errorf("list %q: %w", kind, ErrUnknownList)
	}
	out := make([]string, 0, len(set))
	for item := range set {
		out = append(out, item)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) AddListItem(_ context.Context, kind ListKind, item string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.lists[kind]
	if !ok {
		return fmt.Errorf("list %q: %w", kind, ErrUnknownList)
	}
	set[strings.ToLower(item)] = struct{}{}
	return nil
}

func (m *MemoryStore) RemoveListItem(_ context.Context, kind ListKind, item string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.lists[kind]
	if !ok {
		return fmt.Errorf("list %q: %w", kind, ErrUnknownList)
	}
	delete(set, strings.ToLower(item))
	return nil
}

// Close is a no-op for the memory store.
func (m *MemoryStore) Close() error { return nil }
