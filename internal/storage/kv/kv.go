package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/fdg312/fittrack/internal/durable"
	"github.com/fdg312/fittrack/internal/kvstore"
	"github.com/fdg312/fittrack/internal/storage"
	"github.com/google/uuid"
)

// KVStorage implements storage.Storage on top of an embedded key-value
// store. The meal log is kept as a durable record mirrored across a primary
// and a backup key, so a corrupted primary never loses the log.
type KVStorage struct {
	mu     sync.Mutex
	store  kvstore.Store
	logger *log.Logger
}

// New wraps a key-value store. The caller keeps ownership of the store
// until Close is called.
func New(store kvstore.Store, logger *log.Logger) *KVStorage {
	if logger == nil {
		logger = log.Default()
	}
	return &KVStorage{store: store, logger: logger}
}

func mealsKeys(ownerUserID string) []string {
	return []string{
		"meals:" + ownerUserID,
		"meals_backup:" + ownerUserID,
	}
}

func validMealsPayload(data []byte) error {
	var meals []storage.Meal
	return json.Unmarshal(data, &meals)
}

func (s *KVStorage) mealsRecord(ownerUserID string) *durable.Record {
	keys := mealsKeys(ownerUserID)
	rec, err := durable.New(s.store, s.logger, validMealsPayload, keys...)
	if err != nil {
		// unreachable: keys is never empty
		panic(err)
	}
	return rec
}

func (s *KVStorage) ListMeals(ctx context.Context, ownerUserID string) ([]storage.Meal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.mealsRecord(ownerUserID)
	result, err := rec.Read(ctx)
	if errors.Is(err, durable.ErrNotFound) {
		return []storage.Meal{}, nil
	}
	if errors.Is(err, durable.ErrAllCorrupt) {
		// Every copy is unreadable. Clear the record so the next save
		// starts clean instead of fighting stale garbage.
		s.logger.Printf("WARN kv: meal log for %s corrupt in all locations, clearing", ownerUserID)
		if clearErr := rec.Clear(ctx); clearErr != nil {
			return nil, fmt.Errorf("kv: clear corrupt meal log: %w", clearErr)
		}
		return []storage.Meal{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("kv: load meals: %w", err)
	}

	var raw []storage.Meal
	if err := json.Unmarshal(result.Data, &raw); err != nil {
		return nil, fmt.Errorf("kv: decode meals: %w", err)
	}

	meals := make([]storage.Meal, 0, len(raw))
	for _, m := range raw {
		if err := storage.ValidMeal(m); err != nil {
			s.logger.Printf("WARN kv: dropping meal entry for %s: %v", ownerUserID, err)
			continue
		}
		m.OwnerUserID = ownerUserID
		meals = append(meals, m)
	}

	sort.SliceStable(meals, func(i, j int) bool {
		return meals[i].Timestamp.After(meals[j].Timestamp)
	})
	return meals, nil
}

func (s *KVStorage) ReplaceMeals(ctx context.Context, ownerUserID string, meals []storage.Meal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(meals)
	if err != nil {
		return fmt.Errorf("kv: encode meals: %w", err)
	}
	return s.mealsRecord(ownerUserID).Write(ctx, data)
}

// ClearMeals resets the primary copy to an empty log. A reload sees the
// valid empty primary and stops there, while the backup keeps the last
// pre-clear contents as a recovery point until the next save overwrites it.
func (s *KVStorage) ClearMeals(ctx context.Context, ownerUserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mealsRecord(ownerUserID).WritePrimary(ctx, []byte("[]"))
}

func (s *KVStorage) GetProfile(ctx context.Context, ownerUserID string) (*storage.UserProfile, error) {
	data, err := s.store.Get(ctx, "profile:"+ownerUserID)
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv: load profile: %w", err)
	}

	var p storage.UserProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("kv: decode profile: %w", err)
	}
	p.OwnerUserID = ownerUserID
	return &p, nil
}

func (s *KVStorage) PutProfile(ctx context.Context, profile *storage.UserProfile) error {
	profile.UpdatedAt = time.Now()

	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("kv: encode profile: %w", err)
	}
	return s.store.Set(ctx, "profile:"+profile.OwnerUserID, data)
}

func (s *KVStorage) GetDailyGoal(ctx context.Context, ownerUserID string) (float64, error) {
	data, err := s.store.Get(ctx, "daily_goal:"+ownerUserID)
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("kv: load daily goal: %w", err)
	}

	var goal float64
	if err := json.Unmarshal(data, &goal); err != nil {
		return 0, fmt.Errorf("kv: decode daily goal: %w", err)
	}
	return goal, nil
}

func (s *KVStorage) PutDailyGoal(ctx context.Context, ownerUserID string, calories float64) error {
	data, err := json.Marshal(calories)
	if err != nil {
		return fmt.Errorf("kv: encode daily goal: %w", err)
	}
	return s.store.Set(ctx, "daily_goal:"+ownerUserID, data)
}

func (s *KVStorage) ListSessions(ctx context.Context, ownerUserID string) ([]storage.WorkoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.listSessionsLocked(ctx, ownerUserID)
}

func (s *KVStorage) listSessionsLocked(ctx context.Context, ownerUserID string) ([]storage.WorkoutSession, error) {
	data, err := s.store.Get(ctx, "sessions:"+ownerUserID)
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return []storage.WorkoutSession{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("kv: load sessions: %w", err)
	}

	var sessions []storage.WorkoutSession
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("kv: decode sessions: %w", err)
	}
	for i := range sessions {
		sessions[i].OwnerUserID = ownerUserID
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].EndedAt.After(sessions[j].EndedAt)
	})
	return sessions, nil
}

func (s *KVStorage) AppendSession(ctx context.Context, session *storage.WorkoutSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.ID == "" {
		session.ID = uuid.NewString()
	}

	sessions, err := s.listSessionsLocked(ctx, session.OwnerUserID)
	if err != nil {
		return err
	}
	sessions = append(sessions, *session)

	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("kv: encode sessions: %w", err)
	}
	return s.store.Set(ctx, "sessions:"+session.OwnerUserID, data)
}

func (s *KVStorage) ClearSessions(ctx context.Context, ownerUserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.Remove(ctx, "sessions:"+ownerUserID)
}

func (s *KVStorage) GetHealthSync(ctx context.Context, ownerUserID string) (*storage.HealthSync, error) {
	data, err := s.store.Get(ctx, "health_sync:"+ownerUserID)
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv: load health sync: %w", err)
	}

	var hs storage.HealthSync
	if err := json.Unmarshal(data, &hs); err != nil {
		return nil, fmt.Errorf("kv: decode health sync: %w", err)
	}
	hs.OwnerUserID = ownerUserID
	return &hs, nil
}

func (s *KVStorage) PutHealthSync(ctx context.Context, sync *storage.HealthSync) error {
	data, err := json.Marshal(sync)
	if err != nil {
		return fmt.Errorf("kv: encode health sync: %w", err)
	}
	return s.store.Set(ctx, "health_sync:"+sync.OwnerUserID, data)
}

// reportRow is the serialized form of storage.ReportMeta. uuid and pointer
// fields round-trip through JSON without extra handling.
type reportRow struct {
	ID          uuid.UUID  `json:"id"`
	OwnerUserID string     `json:"ownerUserId"`
	Format      string     `json:"format"`
	FromDate    string     `json:"fromDate"`
	ToDate      string     `json:"toDate"`
	ObjectKey   *string    `json:"objectKey,omitempty"`
	SizeBytes   int64      `json:"sizeBytes"`
	Status      string     `json:"status"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	Data        []byte     `json:"data,omitempty"`
}

func toReportRow(r *storage.ReportMeta) reportRow {
	return reportRow{
		ID:          r.ID,
		OwnerUserID: r.OwnerUserID,
		Format:      r.Format,
		FromDate:    r.FromDate,
		ToDate:      r.ToDate,
		ObjectKey:   r.ObjectKey,
		SizeBytes:   r.SizeBytes,
		Status:      r.Status,
		Error:       r.Error,
		CreatedAt:   r.CreatedAt,
		Data:        r.Data,
	}
}

func (r reportRow) toMeta() storage.ReportMeta {
	return storage.ReportMeta{
		ID:          r.ID,
		OwnerUserID: r.OwnerUserID,
		Format:      r.Format,
		FromDate:    r.FromDate,
		ToDate:      r.ToDate,
		ObjectKey:   r.ObjectKey,
		SizeBytes:   r.SizeBytes,
		Status:      r.Status,
		Error:       r.Error,
		CreatedAt:   r.CreatedAt,
		Data:        r.Data,
	}
}

func (s *KVStorage) CreateReport(ctx context.Context, report *storage.ReportMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	report.CreatedAt = time.Now()

	data, err := json.Marshal(toReportRow(report))
	if err != nil {
		return fmt.Errorf("kv: encode report: %w", err)
	}
	if err := s.store.Set(ctx, "report:"+report.ID.String(), data); err != nil {
		return err
	}

	ids, err := s.reportIndexLocked(ctx, report.OwnerUserID)
	if err != nil {
		return err
	}
	ids = append(ids, report.ID)
	return s.writeReportIndexLocked(ctx, report.OwnerUserID, ids)
}

func (s *KVStorage) GetReport(ctx context.Context, id uuid.UUID) (*storage.ReportMeta, error) {
	data, err := s.store.Get(ctx, "report:"+id.String())
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv: load report: %w", err)
	}

	var row reportRow
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("kv: decode report: %w", err)
	}
	meta := row.toMeta()
	return &meta, nil
}

func (s *KVStorage) ListReports(ctx context.Context, ownerUserID string, limit, offset int) ([]storage.ReportMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.reportIndexLocked(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}

	all := make([]storage.ReportMeta, 0, len(ids))
	for _, id := range ids {
		meta, err := s.GetReport(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		all = append(all, *meta)
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

func (s *KVStorage) DeleteReport(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.GetReport(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Remove(ctx, "report:"+id.String()); err != nil {
		return err
	}

	ids, err := s.reportIndexLocked(ctx, meta.OwnerUserID)
	if err != nil {
		return err
	}
	kept := ids[:0]
	for _, existing := range ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	return s.writeReportIndexLocked(ctx, meta.OwnerUserID, kept)
}

func (s *KVStorage) reportIndexLocked(ctx context.Context, ownerUserID string) ([]uuid.UUID, error) {
	data, err := s.store.Get(ctx, "reports:"+ownerUserID)
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("kv: load report index: %w", err)
	}

	var ids []uuid.UUID
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("kv: decode report index: %w", err)
	}
	return ids, nil
}

func (s *KVStorage) writeReportIndexLocked(ctx context.Context, ownerUserID string, ids []uuid.UUID) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("kv: encode report index: %w", err)
	}
	return s.store.Set(ctx, "reports:"+ownerUserID, data)
}

func (s *KVStorage) Close() error {
	return s.store.Close()
}
