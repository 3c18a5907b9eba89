package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fdg312/fittrack/internal/storage"
	"github.com/google/uuid"
)

// MemoryStorage is the in-memory implementation of storage.Storage. It is
// the zero-config backend and the one the tests run against.
type MemoryStorage struct {
	mu          sync.RWMutex
	meals       map[string][]storage.Meal
	profiles    map[string]storage.UserProfile
	dailyGoals  map[string]float64
	sessions    map[string][]storage.WorkoutSession
	healthSyncs map[string]storage.HealthSync
	reports     map[uuid.UUID]storage.ReportMeta
}

func New() *MemoryStorage {
	return &MemoryStorage{
		meals:       make(map[string][]storage.Meal),
		profiles:    make(map[string]storage.UserProfile),
		dailyGoals:  make(map[string]float64),
		sessions:    make(map[string][]storage.WorkoutSession),
		healthSyncs: make(map[string]storage.HealthSync),
		reports:     make(map[uuid.UUID]storage.ReportMeta),
	}
}

func (m *MemoryStorage) ListMeals(ctx context.Context, ownerUserID string) ([]storage.Meal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	meals := make([]storage.Meal, len(m.meals[ownerUserID]))
	copy(meals, m.meals[ownerUserID])

	sort.SliceStable(meals, func(i, j int) bool {
		return meals[i].Timestamp.After(meals[j].Timestamp)
	})
	return meals, nil
}

func (m *MemoryStorage) ReplaceMeals(ctx context.Context, ownerUserID string, meals []storage.Meal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]storage.Meal, len(meals))
	copy(copied, meals)
	m.meals[ownerUserID] = copied
	return nil
}

func (m *MemoryStorage) ClearMeals(ctx context.Context, ownerUserID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.meals, ownerUserID)
	return nil
}

func (m *MemoryStorage) GetProfile(ctx context.Context, ownerUserID string) (*storage.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[ownerUserID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStorage) PutProfile(ctx context.Context, profile *storage.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	profile.UpdatedAt = time.Now()
	m.profiles[profile.OwnerUserID] = *profile
	return nil
}

func (m *MemoryStorage) GetDailyGoal(ctx context.Context, ownerUserID string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	goal, ok := m.dailyGoals[ownerUserID]
	if !ok {
		return 0, storage.ErrNotFound
	}
	return goal, nil
}

func (m *MemoryStorage) PutDailyGoal(ctx context.Context, ownerUserID string, calories float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dailyGoals[ownerUserID] = calories
	return nil
}

func (m *MemoryStorage) ListSessions(ctx context.Context, ownerUserID string) ([]storage.WorkoutSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]storage.WorkoutSession, len(m.sessions[ownerUserID]))
	copy(sessions, m.sessions[ownerUserID])

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].EndedAt.After(sessions[j].EndedAt)
	})
	return sessions, nil
}

func (m *MemoryStorage) AppendSession(ctx context.Context, session *storage.WorkoutSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	m.sessions[session.OwnerUserID] = append(m.sessions[session.OwnerUserID], *session)
	return nil
}

func (m *MemoryStorage) ClearSessions(ctx context.Context, ownerUserID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, ownerUserID)
	return nil
}

func (m *MemoryStorage) GetHealthSync(ctx context.Context, ownerUserID string) (*storage.HealthSync, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.healthSyncs[ownerUserID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStorage) PutHealthSync(ctx context.Context, sync *storage.HealthSync) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.healthSyncs[sync.OwnerUserID] = *sync
	return nil
}

func (m *MemoryStorage) CreateReport(ctx context.Context, report *storage.ReportMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	report.CreatedAt = time.Now()
	m.reports[report.ID] = *report
	return nil
}

func (m *MemoryStorage) GetReport(ctx context.Context, id uuid.UUID) (*storage.ReportMeta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.reports[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &r, nil
}

func (m *MemoryStorage) ListReports(ctx context.Context, ownerUserID string, limit, offset int) ([]storage.ReportMeta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]storage.ReportMeta, 0)
	for _, r := range m.reports {
		if r.OwnerUserID == ownerUserID {
			all = append(all, r)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []storage.ReportMeta{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (m *MemoryStorage) DeleteReport(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.reports[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.reports, id)
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}
