package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/fdg312/fittrack/internal/ai"
	"github.com/fdg312/fittrack/internal/auth"
	"github.com/fdg312/fittrack/internal/blob"
	"github.com/fdg312/fittrack/internal/config"
	"github.com/fdg312/fittrack/internal/healthkit"
	"github.com/fdg312/fittrack/internal/kvstore"
	"github.com/fdg312/fittrack/internal/meals"
	"github.com/fdg312/fittrack/internal/profile"
	"github.com/fdg312/fittrack/internal/reports"
	"github.com/fdg312/fittrack/internal/sessions"
	"github.com/fdg312/fittrack/internal/storage"
	"github.com/fdg312/fittrack/internal/storage/kv"
	"github.com/fdg312/fittrack/internal/storage/memory"
	"github.com/fdg312/fittrack/internal/storage/postgres"
	"github.com/fdg312/fittrack/internal/tracker"
)

// Server wires storage, services and HTTP routes together.
type Server struct {
	config         *config.Config
	mux            *http.ServeMux
	storage        storage.Storage
	authMiddleware *auth.Middleware
	mealsService   *meals.Service
}

// New builds a server with storage selected from config.
func New(cfg *config.Config) *Server {
	s := &Server{
		config: cfg,
		mux:    http.NewServeMux(),
	}

	s.initStorage()
	s.routes()
	return s
}

// initStorage picks the backend: Postgres when DATABASE_URL is set, the
// embedded Badger store when DATA_DIR is set, otherwise in-memory.
func (s *Server) initStorage() {
	switch {
	case s.config.DatabaseURL != "":
		log.Println("INFO storage: connecting to PostgreSQL")
		pgStorage, err := postgres.New(context.Background(), s.config.DatabaseURL)
		if err != nil {
			log.Printf("WARN storage: PostgreSQL connection failed: %v", err)
			log.Println("WARN storage: falling back to in-memory storage")
			s.storage = memory.New()
			return
		}
		log.Println("INFO storage: PostgreSQL connected")
		s.storage = pgStorage

	case s.config.DataDir != "":
		store, err := kvstore.OpenBadger(s.config.DataDir)
		if err != nil {
			log.Printf("WARN storage: badger open failed at %s: %v", s.config.DataDir, err)
			log.Println("WARN storage: falling back to in-memory storage")
			s.storage = memory.New()
			return
		}
		log.Printf("INFO storage: using embedded KV store at %s", s.config.DataDir)
		s.storage = kv.New(store, log.Default())

	default:
		log.Println("INFO storage: using in-memory storage")
		s.storage = memory.New()
	}
}

// routes registers all API routes.
func (s *Server) routes() {
	// Health check (no auth required)
	s.mux.HandleFunc("/healthz", s.handleHealthz)

	// Auth API (no auth required)
	authService := auth.NewService(s.config)
	authHandler := auth.NewHandlers(authService)
	s.authMiddleware = auth.NewMiddleware(s.config, authService)

	// POST /v1/auth/dev - local dev token
	s.mux.HandleFunc("POST /v1/auth/dev", authHandler.HandleDevAuth)

	// Blob store for meal photos and report files
	blobStore, blobMode, err := blob.NewBlobStore(s.config.Blob, log.Default())
	if err != nil {
		log.Fatalf("FATAL blob: failed to initialize store: %v", err)
	}
	log.Printf("INFO blob: mode: %s", blobMode)

	// Meals API
	mealsService := meals.NewService(s.storage, log.Default())
	s.mealsService = mealsService
	mealsHandler := meals.NewHandler(mealsService, blobStore, s.config.UploadMaxMB, s.config.UploadAllowedMime)

	s.mux.HandleFunc("GET /v1/meals", mealsHandler.HandleList)
	s.mux.HandleFunc("POST /v1/meals", mealsHandler.HandleAdd)
	s.mux.HandleFunc("DELETE /v1/meals", mealsHandler.HandleClear)
	s.mux.HandleFunc("GET /v1/meals/summary", mealsHandler.HandleSummary)
	s.mux.HandleFunc("POST /v1/meals/manual", mealsHandler.HandleAddManual)
	s.mux.HandleFunc("DELETE /v1/meals/{id}", mealsHandler.HandleDelete)
	s.mux.HandleFunc("POST /v1/meals/{id}/photo", mealsHandler.HandleUploadPhoto)
	s.mux.HandleFunc("GET /v1/meals/{id}/photo", mealsHandler.HandleGetPhotoURL)

	// Profile API
	aiProvider := ai.NewProvider(s.config)
	profileService := profile.NewService(s.storage, mealsService, aiProvider, log.Default())
	profileHandler := profile.NewHandler(profileService)

	s.mux.HandleFunc("GET /v1/profile", profileHandler.HandleGet)
	s.mux.HandleFunc("PUT /v1/profile", profileHandler.HandleUpdate)
	s.mux.HandleFunc("GET /v1/profile/metrics", profileHandler.HandleMetrics)
	s.mux.HandleFunc("GET /v1/profile/recommendations", profileHandler.HandleRecommendations)
	s.mux.HandleFunc("GET /v1/profile/score", profileHandler.HandleScore)
	s.mux.HandleFunc("GET /v1/profile/goal", profileHandler.HandleGetDailyGoal)
	s.mux.HandleFunc("PUT /v1/profile/goal", profileHandler.HandleSetDailyGoal)
	s.mux.HandleFunc("GET /v1/plans/workout", profileHandler.HandleWorkoutPlan)

	// Workout sessions API
	sessionsService := sessions.NewService(s.storage)
	sessionsHandler := sessions.NewHandler(sessionsService)

	s.mux.HandleFunc("GET /v1/sessions", sessionsHandler.HandleList)
	s.mux.HandleFunc("POST /v1/sessions", sessionsHandler.HandleAdd)
	s.mux.HandleFunc("DELETE /v1/sessions", sessionsHandler.HandleClear)
	s.mux.HandleFunc("GET /v1/sessions/summary", sessionsHandler.HandleSummary)

	// Live tracking API
	trackerService := tracker.NewService(
		sessionsService,
		s.storage,
		log.Default(),
		s.config.TrackerLegacyDistance,
		s.config.TrackerMaxFixHistory,
	)
	trackerHandler := tracker.NewHandler(trackerService)

	s.mux.HandleFunc("POST /v1/track/start", trackerHandler.HandleStart)
	s.mux.HandleFunc("POST /v1/track/pause", trackerHandler.HandlePause)
	s.mux.HandleFunc("POST /v1/track/resume", trackerHandler.HandleResume)
	s.mux.HandleFunc("POST /v1/track/stop", trackerHandler.HandleStop)
	s.mux.HandleFunc("POST /v1/track/fix", trackerHandler.HandleFix)
	s.mux.HandleFunc("GET /v1/track/stats", trackerHandler.HandleStats)

	// Platform health data API
	healthService := healthkit.NewService(healthkit.NewMockProvider(), s.storage, log.Default())
	healthHandler := healthkit.NewHandler(healthService)

	s.mux.HandleFunc("GET /v1/health/daily", healthHandler.HandleDaily)
	s.mux.HandleFunc("GET /v1/health/sync", healthHandler.HandleGetSync)
	s.mux.HandleFunc("PUT /v1/health/sync", healthHandler.HandleSetSync)

	// Reports API
	reportsService := reports.NewService(
		s.storage,
		s.storage,
		s.storage,
		blobStore,
		log.Default(),
		s.config.ReportsMaxRangeDays,
		s.config.Blob.S3.PresignTTLSeconds,
	)
	reportsHandler := reports.NewHandlers(reportsService)

	s.mux.HandleFunc("POST /v1/reports", reportsHandler.HandleCreate)
	s.mux.HandleFunc("GET /v1/reports", reportsHandler.HandleList)
	s.mux.HandleFunc("GET /v1/reports/{id}", reportsHandler.HandleGet)
	s.mux.HandleFunc("GET /v1/reports/{id}/download", reportsHandler.HandleDownload)
	s.mux.HandleFunc("DELETE /v1/reports/{id}", reportsHandler.HandleDelete)
}

// handleHealthz reports server liveness.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	// Build middleware chain (outermost first): CORS -> Rate Limit -> Auth -> Router
	var handler http.Handler = s.mux
	if s.authMiddleware != nil && s.config.AuthMode != "none" {
		if s.config.AuthRequired {
			handler = s.authMiddleware.RequireAuth(handler)
		} else {
			handler = s.authMiddleware.OptionalAuth(handler)
		}
	}
	handler = RateLimitMiddleware(s.config, handler)
	handler = CORSMiddleware(s.config, handler)

	log.Printf("Server listening on http://localhost%s", addr)
	log.Printf("Health check: http://localhost%s/healthz", addr)

	return http.ListenAndServe(addr, handler)
}

// Close flushes pending saves and releases storage resources.
func (s *Server) Close() error {
	if s.mealsService != nil {
		s.mealsService.Flush()
	}
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}
