package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/offtimeapp/offtime/internal/auth"
	"github.com/offtimeapp/offtime/internal/handler"
	"github.com/offtimeapp/offtime/internal/middleware"
	"github.com/offtimeapp/offtime/internal/store"
	"github.com/offtimeapp/offtime/internal/summary"
	ws "github.com/offtimeapp/offtime/internal/websocket"
)

type Config struct {
	JWTSecret     string
	TokenDuration time.Duration
	GeminiAPIKey  string
	UploadDir     string
}

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	userH       *handler.UserHandler
	groupH      *handler.GroupHandler
	usageH      *handler.UsageHandler
	summaryH    *handler.SummaryHandler
	voteH       *handler.VoteHandler
	jwtManager  *auth.JWTManager
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	groupStore := store.NewGroupStore(db)
	usageStore := store.NewUsageStore(db)
	summaryStore := store.NewSummaryStore(db)
	voteStore := store.NewVoteStore(db)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenDuration)
	generator := summary.NewGeminiClient(cfg.GeminiAPIKey)
	provider := summary.NewProvider(summaryStore, usageStore, generator, logger.With("component", "summary"))

	return &Server{
		db:          db,
		hub:         hub,
		userH:       handler.NewUserHandler(userStore, jwtManager, cfg.UploadDir, logger.With("component", "user")),
		groupH:      handler.NewGroupHandler(groupStore, userStore, summaryStore, hub, logger.With("component", "group")),
		usageH:      handler.NewUsageHandler(usageStore, logger.With("component", "usage")),
		summaryH:    handler.NewSummaryHandler(provider, logger.With("component", "summary_handler")),
		voteH:       handler.NewVoteHandler(voteStore, groupStore, summaryStore, hub, logger.With("component", "vote")),
		jwtManager:  jwtManager,
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// Hub returns the websocket hub for shutdown coordination.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /users/signup", s.rateLimitedHandler(s.userH.Signup))
	outerMux.HandleFunc("POST /users/login", s.rateLimitedHandler(s.userH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.jwtManager)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Account routes
	mux.HandleFunc("GET /users/me", s.userH.Me)
	mux.HandleFunc("PATCH /users/me", s.userH.UpdateMe)
	mux.HandleFunc("POST /users/upload-profile-image", s.userH.UploadProfileImage)

	// Group routes
	mux.HandleFunc("POST /group", s.groupH.Create)
	mux.HandleFunc("GET /group", s.groupH.List)
	mux.HandleFunc("PATCH /group/{id}", s.groupH.Update)
	mux.HandleFunc("GET /group/{id}/members", s.groupH.Members)
	mux.HandleFunc("POST /group/{id}/members/{user_id}", s.groupH.AddMember)
	mux.HandleFunc("DELETE /group/{id}/members/{user_id}", s.groupH.RemoveMember)

	// Vote routes
	mux.HandleFunc("GET /group/{id}/vote", s.voteH.Info)
	mux.HandleFunc("POST /group/{id}/vote", s.voteH.Cast)
	mux.HandleFunc("GET /group/{id}/vote/result", s.voteH.Result)
	mux.HandleFunc("GET /group/{id}/vote/history", s.voteH.History)

	// Usage routes
	mux.HandleFunc("POST /usage/record", s.usageH.Record)
	mux.HandleFunc("GET /usage/list", s.usageH.List)
	mux.HandleFunc("POST /usage/{id}/memo", s.usageH.SetMemo)
	mux.HandleFunc("GET /usage/{id}/memo", s.usageH.GetMemo)
	mux.HandleFunc("DELETE /usage/{id}/memo", s.usageH.ClearMemo)

	// Summary route
	mux.HandleFunc("GET /summary", s.summaryH.Get)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}
