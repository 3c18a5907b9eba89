package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
)

// FoodItem is one food entry inside a meal.
type FoodItem struct {
	Name        string  `json:"name"`
	WeightGrams float64 `json:"weight,omitempty"`
	Calories    float64 `json:"calories"`
	Protein     float64 `json:"protein"`
	Carbs       float64 `json:"carbs"`
	Fat         float64 `json:"fat"`
	Fiber       float64 `json:"fiber,omitempty"`
	Sugar       float64 `json:"sugar,omitempty"`
	Sodium      float64 `json:"sodium,omitempty"` // milligrams
	Portion     string  `json:"portion,omitempty"`
}

// Meal is a logged meal: either a scanned/photographed meal with food items
// or a manual calorie entry with an empty Foods list.
type Meal struct {
	ID            string     `json:"id"`
	OwnerUserID   string     `json:"-"`
	Name          string     `json:"name"`
	Foods         []FoodItem `json:"foods"`
	TotalCalories float64    `json:"totalCalories"`
	MealType      string     `json:"mealType"` // breakfast, lunch, dinner, snack
	Timestamp     time.Time  `json:"timestamp"`
	PhotoKey      *string    `json:"photoKey,omitempty"`
	CreatedAt     time.Time  `json:"-"`
}

// MealsStorage persists the meal log per owner. The log is replaced as a
// whole on every save, which mirrors how the clients sync it.
type MealsStorage interface {
	// ListMeals returns all meals of the owner, newest first.
	ListMeals(ctx context.Context, ownerUserID string) ([]Meal, error)

	// ReplaceMeals overwrites the owner's meal log with the given list.
	ReplaceMeals(ctx context.Context, ownerUserID string, meals []Meal) error

	// ClearMeals deletes the owner's meal log.
	ClearMeals(ctx context.Context, ownerUserID string) error
}

// UserProfile holds the physical attributes the calculators run on.
type UserProfile struct {
	OwnerUserID   string    `json:"-"`
	Name          string    `json:"name"`
	Age           int       `json:"age"`
	WeightKg      float64   `json:"weight"`
	HeightCm      float64   `json:"height"`
	Gender        string    `json:"gender"`        // male, female
	ActivityLevel string    `json:"activityLevel"` // sedentary .. very_active
	Goal          string    `json:"goal"`          // lose, maintain, gain
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ProfileStorage persists a single profile per owner.
type ProfileStorage interface {
	// GetProfile returns the owner's profile or ErrNotFound.
	GetProfile(ctx context.Context, ownerUserID string) (*UserProfile, error)

	// PutProfile creates or replaces the owner's profile.
	PutProfile(ctx context.Context, profile *UserProfile) error

	// GetDailyGoal returns the owner's daily calorie goal or ErrNotFound.
	GetDailyGoal(ctx context.Context, ownerUserID string) (float64, error)

	// PutDailyGoal creates or replaces the owner's daily calorie goal.
	PutDailyGoal(ctx context.Context, ownerUserID string, calories float64) error
}

// WorkoutSession is one finished workout, either imported or recorded live.
type WorkoutSession struct {
	ID          string    `json:"id"`
	OwnerUserID string    `json:"-"`
	Type        string    `json:"type"` // walking, running, live
	DistanceKm  float64   `json:"distance"`
	DurationSec int       `json:"duration"`
	Calories    float64   `json:"calories"`
	Steps       int       `json:"steps"`
	AvgSpeedKmh float64   `json:"avgSpeed"`
	StartedAt   time.Time `json:"startedAt"`
	EndedAt     time.Time `json:"endedAt"`
}

// SessionsStorage persists the append-only workout session log per owner.
type SessionsStorage interface {
	// ListSessions returns all sessions of the owner, newest first.
	ListSessions(ctx context.Context, ownerUserID string) ([]WorkoutSession, error)

	// AppendSession adds one session to the owner's log.
	AppendSession(ctx context.Context, session *WorkoutSession) error

	// ClearSessions deletes the owner's session log.
	ClearSessions(ctx context.Context, ownerUserID string) error
}

// HealthSync is the owner's platform-health integration preference.
type HealthSync struct {
	OwnerUserID  string     `json:"-"`
	Enabled      bool       `json:"enabled"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
}

// HealthSyncStorage persists the health sync preference per owner.
type HealthSyncStorage interface {
	// GetHealthSync returns the owner's sync preference or ErrNotFound.
	GetHealthSync(ctx context.Context, ownerUserID string) (*HealthSync, error)

	// PutHealthSync creates or replaces the owner's sync preference.
	PutHealthSync(ctx context.Context, sync *HealthSync) error
}

// ReportMeta describes a generated export report.
type ReportMeta struct {
	ID          uuid.UUID
	OwnerUserID string
	Format      string // "pdf" or "csv"
	FromDate    string // YYYY-MM-DD
	ToDate      string // YYYY-MM-DD
	ObjectKey   *string
	SizeBytes   int64
	Status      string // "ready" or "failed"
	Error       *string
	CreatedAt   time.Time
	Data        []byte // only set when no blob store is configured
}

// ReportsStorage persists report metadata (and data, in memory mode).
type ReportsStorage interface {
	CreateReport(ctx context.Context, report *ReportMeta) error
	GetReport(ctx context.Context, id uuid.UUID) (*ReportMeta, error)
	ListReports(ctx context.Context, ownerUserID string, limit, offset int) ([]ReportMeta, error)
	DeleteReport(ctx context.Context, id uuid.UUID) error
}

// Storage is the full persistence surface of the server.
type Storage interface {
	MealsStorage
	ProfileStorage
	SessionsStorage
	HealthSyncStorage
	ReportsStorage

	Close() error
}

// ValidMeal reports whether a stored meal row is structurally usable.
// Rows failing this check are treated as corrupt and discarded on load.
func ValidMeal(m Meal) error {
	if m.ID == "" {
		return errors.New("meal has empty id")
	}
	if m.Timestamp.IsZero() {
		return errors.New("meal has zero timestamp")
	}
	if m.TotalCalories < 0 {
		return errors.New("meal has negative calories")
	}
	return nil
}
