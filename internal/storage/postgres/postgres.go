package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fdg312/fittrack/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage is the Postgres implementation of storage.Storage.
// Meals are rows with the food list stored as JSONB, so the dual-key
// durability dance of the kv backend is not needed here.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStorage{pool: pool}, nil
}

func (p *PostgresStorage) ListMeals(ctx context.Context, ownerUserID string) ([]storage.Meal, error) {
	query := `
		SELECT id, name, foods, total_calories, meal_type, timestamp, photo_key, created_at
		FROM meals
		WHERE owner_user_id = $1
		ORDER BY timestamp DESC
	`

	rows, err := p.pool.Query(ctx, query, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meals := []storage.Meal{}
	for rows.Next() {
		var m storage.Meal
		var foods []byte
		err := rows.Scan(
			&m.ID,
			&m.Name,
			&foods,
			&m.TotalCalories,
			&m.MealType,
			&m.Timestamp,
			&m.PhotoKey,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if len(foods) > 0 {
			if err := json.Unmarshal(foods, &m.Foods); err != nil {
				return nil, fmt.Errorf("decode foods for meal %s: %w", m.ID, err)
			}
		}
		m.OwnerUserID = ownerUserID
		meals = append(meals, m)
	}

	return meals, rows.Err()
}

func (p *PostgresStorage) ReplaceMeals(ctx context.Context, ownerUserID string, meals []storage.Meal) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM meals WHERE owner_user_id = $1`, ownerUserID); err != nil {
		return err
	}

	query := `
		INSERT INTO meals (id, owner_user_id, name, foods, total_calories, meal_type, timestamp, photo_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	now := time.Now()
	for _, m := range meals {
		foods, err := json.Marshal(m.Foods)
		if err != nil {
			return fmt.Errorf("encode foods for meal %s: %w", m.ID, err)
		}
		createdAt := m.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		_, err = tx.Exec(ctx, query,
			m.ID,
			ownerUserID,
			m.Name,
			foods,
			m.TotalCalories,
			m.MealType,
			m.Timestamp,
			m.PhotoKey,
			createdAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (p *PostgresStorage) ClearMeals(ctx context.Context, ownerUserID string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM meals WHERE owner_user_id = $1`, ownerUserID)
	return err
}

func (p *PostgresStorage) GetProfile(ctx context.Context, ownerUserID string) (*storage.UserProfile, error) {
	query := `
		SELECT owner_user_id, name, age, weight_kg, height_cm, gender, activity_level, goal, updated_at
		FROM profiles
		WHERE owner_user_id = $1
	`

	var prof storage.UserProfile
	err := p.pool.QueryRow(ctx, query, ownerUserID).Scan(
		&prof.OwnerUserID,
		&prof.Name,
		&prof.Age,
		&prof.WeightKg,
		&prof.HeightCm,
		&prof.Gender,
		&prof.ActivityLevel,
		&prof.Goal,
		&prof.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &prof, nil
}

func (p *PostgresStorage) PutProfile(ctx context.Context, profile *storage.UserProfile) error {
	profile.UpdatedAt = time.Now()

	query := `
		INSERT INTO profiles (owner_user_id, name, age, weight_kg, height_cm, gender, activity_level, goal, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (owner_user_id) DO UPDATE SET
			name = EXCLUDED.name,
			age = EXCLUDED.age,
			weight_kg = EXCLUDED.weight_kg,
			height_cm = EXCLUDED.height_cm,
			gender = EXCLUDED.gender,
			activity_level = EXCLUDED.activity_level,
			goal = EXCLUDED.goal,
			updated_at = EXCLUDED.updated_at
	`

	_, err := p.pool.Exec(ctx, query,
		profile.OwnerUserID,
		profile.Name,
		profile.Age,
		profile.WeightKg,
		profile.HeightCm,
		profile.Gender,
		profile.ActivityLevel,
		profile.Goal,
		profile.UpdatedAt,
	)

	return err
}

func (p *PostgresStorage) GetDailyGoal(ctx context.Context, ownerUserID string) (float64, error) {
	query := `SELECT calories FROM daily_goals WHERE owner_user_id = $1`

	var calories float64
	err := p.pool.QueryRow(ctx, query, ownerUserID).Scan(&calories)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return calories, nil
}

func (p *PostgresStorage) PutDailyGoal(ctx context.Context, ownerUserID string, calories float64) error {
	query := `
		INSERT INTO daily_goals (owner_user_id, calories, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (owner_user_id) DO UPDATE SET
			calories = EXCLUDED.calories,
			updated_at = EXCLUDED.updated_at
	`

	_, err := p.pool.Exec(ctx, query, ownerUserID, calories)
	return err
}

func (p *PostgresStorage) ListSessions(ctx context.Context, ownerUserID string) ([]storage.WorkoutSession, error) {
	query := `
		SELECT id, type, distance_km, duration_sec, calories, steps, avg_speed_kmh, started_at, ended_at
		FROM workout_sessions
		WHERE owner_user_id = $1
		ORDER BY ended_at DESC
	`

	rows, err := p.pool.Query(ctx, query, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []storage.WorkoutSession{}
	for rows.Next() {
		var s storage.WorkoutSession
		err := rows.Scan(
			&s.ID,
			&s.Type,
			&s.DistanceKm,
			&s.DurationSec,
			&s.Calories,
			&s.Steps,
			&s.AvgSpeedKmh,
			&s.StartedAt,
			&s.EndedAt,
		)
		if err != nil {
			return nil, err
		}
		s.OwnerUserID = ownerUserID
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

func (p *PostgresStorage) AppendSession(ctx context.Context, session *storage.WorkoutSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}

	query := `
		INSERT INTO workout_sessions (id, owner_user_id, type, distance_km, duration_sec, calories, steps, avg_speed_kmh, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := p.pool.Exec(ctx, query,
		session.ID,
		session.OwnerUserID,
		session.Type,
		session.DistanceKm,
		session.DurationSec,
		session.Calories,
		session.Steps,
		session.AvgSpeedKmh,
		session.StartedAt,
		session.EndedAt,
	)

	return err
}

func (p *PostgresStorage) ClearSessions(ctx context.Context, ownerUserID string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM workout_sessions WHERE owner_user_id = $1`, ownerUserID)
	return err
}

func (p *PostgresStorage) GetHealthSync(ctx context.Context, ownerUserID string) (*storage.HealthSync, error) {
	query := `
		SELECT owner_user_id, enabled, last_synced_at
		FROM health_syncs
		WHERE owner_user_id = $1
	`

	var hs storage.HealthSync
	err := p.pool.QueryRow(ctx, query, ownerUserID).Scan(
		&hs.OwnerUserID,
		&hs.Enabled,
		&hs.LastSyncedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &hs, nil
}

func (p *PostgresStorage) PutHealthSync(ctx context.Context, sync *storage.HealthSync) error {
	query := `
		INSERT INTO health_syncs (owner_user_id, enabled, last_synced_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_user_id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			last_synced_at = EXCLUDED.last_synced_at
	`

	_, err := p.pool.Exec(ctx, query, sync.OwnerUserID, sync.Enabled, sync.LastSyncedAt)
	return err
}

func (p *PostgresStorage) CreateReport(ctx context.Context, report *storage.ReportMeta) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	report.CreatedAt = time.Now()

	query := `
		INSERT INTO reports (id, owner_user_id, format, from_date, to_date, object_key, size_bytes, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := p.pool.Exec(ctx, query,
		report.ID,
		report.OwnerUserID,
		report.Format,
		report.FromDate,
		report.ToDate,
		report.ObjectKey,
		report.SizeBytes,
		report.Status,
		report.Error,
		report.CreatedAt,
	)

	return err
}

func (p *PostgresStorage) GetReport(ctx context.Context, id uuid.UUID) (*storage.ReportMeta, error) {
	query := `
		SELECT id, owner_user_id, format, from_date, to_date, object_key, size_bytes, status, error, created_at
		FROM reports
		WHERE id = $1
	`

	var r storage.ReportMeta
	err := p.pool.QueryRow(ctx, query, id).Scan(
		&r.ID,
		&r.OwnerUserID,
		&r.Format,
		&r.FromDate,
		&r.ToDate,
		&r.ObjectKey,
		&r.SizeBytes,
		&r.Status,
		&r.Error,
		&r.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &r, nil
}

func (p *PostgresStorage) ListReports(ctx context.Context, ownerUserID string, limit, offset int) ([]storage.ReportMeta, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, owner_user_id, format, from_date, to_date, object_key, size_bytes, status, error, created_at
		FROM reports
		WHERE owner_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := p.pool.Query(ctx, query, ownerUserID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []storage.ReportMeta{}
	for rows.Next() {
		var r storage.ReportMeta
		err := rows.Scan(
			&r.ID,
			&r.OwnerUserID,
			&r.Format,
			&r.FromDate,
			&r.ToDate,
			&r.ObjectKey,
			&r.SizeBytes,
			&r.Status,
			&r.Error,
			&r.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}

	return reports, rows.Err()
}

func (p *PostgresStorage) DeleteReport(ctx context.Context, id uuid.UUID) error {
	result, err := p.pool.Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}
