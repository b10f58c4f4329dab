package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/romeoscript/crime-report/internal/config"
	"github.com/romeoscript/crime-report/internal/db"
	"github.com/romeoscript/crime-report/internal/emergency"
	"github.com/romeoscript/crime-report/internal/geocoding"
	"github.com/romeoscript/crime-report/internal/httpx"
	"github.com/romeoscript/crime-report/internal/logging"
	"github.com/romeoscript/crime-report/internal/media"
	"github.com/romeoscript/crime-report/internal/metrics"
	"github.com/romeoscript/crime-report/internal/middleware"
	"github.com/romeoscript/crime-report/internal/reports"
	"github.com/romeoscript/crime-report/internal/tracking"
)

// schema holds every table of the service.
const schema = "crime"

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Server is up!")
}

// deps is everything the router needs that main builds from configuration.
type deps struct {
	cfg      config.Config
	log      *zap.Logger
	db       *gorm.DB
	uploader media.Uploader
	geocoder reports.Geocoder
	metrics  *metrics.Collector
}

func newRouter(d deps) http.Handler {
	rs := httpx.Responder{Development: d.cfg.IsDevelopment()}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog(d.log))
	r.Use(middleware.Recover(d.log))
	r.Use(d.metrics.Middleware)
	r.Use(middleware.CORSMiddleware(d.cfg.CORSAllowedOrigins))

	r.Get("/", RootHandler)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(d.db); err != nil {
			rs.Fail(w, http.StatusServiceUnavailable, "Database unavailable", err)
			return
		}
		rs.OK(w, http.StatusOK, map[string]string{"database": "ok"})
	})
	r.Handle("/metrics", d.metrics.Handler())

	if local, ok := d.uploader.(*media.Local); ok {
		files := http.StripPrefix("/uploads/", http.FileServer(http.Dir(local.Dir())))
		r.Get("/uploads/*", func(w http.ResponseWriter, r *http.Request) {
			// no directory listings
			if strings.HasSuffix(r.URL.Path, "/") {
				rs.Fail(w, http.StatusNotFound, "Route not found", nil)
				return
			}
			files.ServeHTTP(w, r)
		})
	}

	admin := middleware.AdminMiddleware(d.cfg.AdminUsername, d.cfg.AdminPasswordHash, d.log)
	limit := middleware.NewRateLimiter(d.cfg.SubmitRatePerMinute, d.cfg.SubmitRateBurst).Middleware()

	reportSvc := reports.NewService(reports.NewStore(d.db), d.uploader, d.geocoder, tracking.NewGenerator(), d.log)
	reportHandler := reports.NewHandler(reportSvc, reports.HandlerOptions{
		Development:    d.cfg.IsDevelopment(),
		TempDir:        d.cfg.Media.TempDir,
		MaxUploadBytes: d.cfg.Media.MaxUploadBytes,
	}, d.log)
	r.Mount("/api/reports", reports.SetupRoutes(reportHandler, admin, limit))

	emergencySvc := emergency.NewService(emergency.NewStore(d.db), d.log)
	emergencyHandler := emergency.NewHandler(emergencySvc, d.cfg.IsDevelopment(), d.log)
	r.Mount("/api/emergency", emergency.SetupRoutes(emergencyHandler, admin, limit))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rs.Fail(w, http.StatusNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		rs.Fail(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	return r
}

func main() {
	cfg, cfgErr := config.Load()

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if cfgErr != nil {
		logger.Fatal("invalid configuration", zap.Error(cfgErr))
	}

	gdb, err := db.Connect(db.Options{DSN: cfg.DatabaseURL, MaxOpenConns: cfg.DBMaxOpenConns, Schema: schema}, logger)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		logger.Fatal("database handle unavailable", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := db.EnsureSchema(gdb, schema); err != nil {
		logger.Fatal("failed to ensure schema", zap.String("schema", schema), zap.Error(err))
	}
	if err := reports.Migrate(gdb); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	if err := emergency.Migrate(gdb); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.Media.TempDir, 0o755); err != nil {
		logger.Fatal("upload temp dir unavailable", zap.String("dir", cfg.Media.TempDir), zap.Error(err))
	}
	uploader, err := media.New(cfg.Media)
	if err != nil {
		logger.Fatal("media store unavailable", zap.Error(err))
	}
	logger.Info("media store ready", zap.String("provider", uploader.Name()))

	var geocoder reports.Geocoder
	if c := geocoding.NewClient(cfg.GoogleMapsAPIKey); c != nil {
		geocoder = c
		logger.Info("reverse geocoding enabled")
	}

	mc := metrics.NewCollector()
	if err := mc.WatchDB(sqlDB, schema); err != nil {
		logger.Warn("db stats collector not registered", zap.Error(err))
	}

	if cfg.AdminPasswordHash == "" {
		logger.Warn("ADMIN_PASSWORD_HASH not set, admin routes are open")
	}

	srv := &http.Server{
		Addr: "0.0.0.0:" + cfg.Port,
		Handler: newRouter(deps{
			cfg:      cfg,
			log:      logger,
			db:       gdb,
			uploader: uploader,
			geocoder: geocoder,
			metrics:  mc,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
