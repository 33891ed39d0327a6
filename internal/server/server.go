package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/salonbook/apiserver/config"
	"github.com/salonbook/apiserver/internal/db"
	"github.com/salonbook/apiserver/internal/handlers"
	"github.com/salonbook/apiserver/internal/metrics"
	"github.com/salonbook/apiserver/internal/mq"
	"github.com/salonbook/apiserver/internal/notify"
	"github.com/salonbook/apiserver/internal/services"
	"github.com/salonbook/apiserver/internal/storage"
	"github.com/salonbook/apiserver/internal/store"
)

// requestMiddleware is the router-wide chain. RealIP rewrites RemoteAddr
// from client-supplied headers, which would let a caller pick its own
// rate-limit bucket, so it is only mounted behind a trusted proxy.
func requestMiddleware(trustProxy bool) []func(http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{middleware.RequestID}
	if trustProxy {
		chain = append(chain, middleware.RealIP)
	}
	return append(chain,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
}

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	db         *sql.DB
	events     *mq.MQ
	limiter    *handlers.RateLimiter
}

// New wires the database, integrations and routes. Optional integrations
// that are not configured are logged and left disabled.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	location, err := time.LoadLocation(cfg.Calendar.TimeZone)
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	appointmentRepo := store.NewAppointmentRepository(dbConn)

	userService := services.NewUserService(userRepo)
	if err := userService.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	var calendarClient notify.CalendarClient
	googleCalendar, err := notify.NewGoogleCalendar(ctx, cfg.Calendar)
	switch {
	case errors.Is(err, notify.ErrCalendarNotConfigured):
		log.Printf("google calendar not configured; confirmations will fail until GOOGLE_REFRESH_TOKEN is set")
	case err != nil:
		_ = dbConn.Close()
		return nil, fmt.Errorf("google calendar: %w", err)
	default:
		log.Printf("google calendar %q configured", googleCalendar.CalendarID())
		calendarClient = googleCalendar
	}
	dispatcher := notify.NewDispatcher(calendarClient, notify.NewWhatsApp(cfg.WhatsApp))

	events, err := mq.NewFromConfig(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	var publisher services.EventPublisher
	if events != nil {
		publisher = events
	} else {
		log.Printf("mq backend not configured; appointment events disabled")
	}

	objectStore, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		closeAll(dbConn, events)
		return nil, err
	}
	var exportStore services.ObjectStore
	if objectStore != nil {
		exportStore = objectStore
	}

	appointmentService := services.NewAppointmentService(appointmentRepo, userRepo, dispatcher, publisher, location)
	exportService := services.NewExportService(appointmentService, exportStore)

	metrics.Register()

	auth := handlers.NewAuthHandler(userService, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	limiter := handlers.NewRateLimiter(cfg.RateLimit.LoginRPS, cfg.RateLimit.LoginBurst)

	router := chi.NewRouter()
	router.Use(requestMiddleware(cfg.TrustProxy)...)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Get("/healthz", handlers.Healthz)
	router.Method(http.MethodGet, "/metrics", metrics.Handler())
	router.Route("/api", func(r chi.Router) {
		handlers.AuthRouter(r, auth, limiter.Middleware)
		r.Route("/appointments", func(r chi.Router) {
			handlers.AppointmentRouter(r, appointmentService)
		})
		r.Route("/admin", func(r chi.Router) {
			handlers.AdminRouter(r, handlers.NewAdminHandler(appointmentService, userService, exportService), auth.RequireAuth)
		})
	})
	handlers.OAuthRouter(router, notify.OAuthConfig(cfg.Calendar))

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		db:         dbConn,
		events:     events,
		limiter:    limiter,
	}, nil
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	log.Printf("listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the database and the
// event backend.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.limiter != nil {
		s.limiter.Stop()
	}
	closeAll(s.db, s.events)
	return err
}

func closeAll(dbConn *sql.DB, events *mq.MQ) {
	if events != nil {
		if err := events.Close(); err != nil {
			log.Printf("close mq: %v", err)
		}
	}
	if dbConn != nil {
		_ = dbConn.Close()
	}
}
