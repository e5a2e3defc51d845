package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Shivendrahari/SignalSync/internal/config"
	"github.com/Shivendrahari/SignalSync/internal/controllers"
	"github.com/Shivendrahari/SignalSync/internal/logger"
	"github.com/Shivendrahari/SignalSync/internal/metrics"
	"github.com/Shivendrahari/SignalSync/internal/middleware"
	"github.com/Shivendrahari/SignalSync/internal/models"
	"github.com/Shivendrahari/SignalSync/internal/routes"
	"github.com/Shivendrahari/SignalSync/internal/services"
	"github.com/Shivendrahari/SignalSync/internal/store"
	"github.com/gin-gonic/gin"
)

var _ services.StatsStore = (*store.MySQLStatsStore)(nil)

func main() {
	configPath := flag.String("config", getEnvDefault("SIGNALSYNC_CONFIG", "config.yaml"), "path to the yaml config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("[MAIN] Loading config: %v", err)
	}
	logger.SetLevelFromString(cfg.Logging.Level)
	if logger.GetLevel() != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("[MAIN] Display timezone: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stats store and local collector back the embedded performance API
	var perf *services.PerformanceService
	var collector *services.HistoryCollector
	if cfg.Backend.Embedded {
		stats, closeStore := openStatsStore(cfg)
		defer closeStore()
		perf = services.NewPerformanceService(stats, loc)

		if cfg.Collector.Enabled {
			device := models.Device{
				ID:     cfg.Collector.DeviceID,
				Name:   cfg.Collector.DeviceName,
				Branch: cfg.Collector.Branch,
			}
			probe := services.NewHostProbe(cfg.Collector.LatencyProbe, 2*time.Second)
			collector = services.NewHistoryCollector(probe, stats, device, cfg.Collector.Retention)
			if err := collector.Start(ctx, cfg.Collector.Interval); err != nil {
				logger.Error("[MAIN] Starting collector: %v", err)
				collector = nil
			}
		}
	}

	cache, closeCache := openResponseCache(ctx, cfg)
	defer closeCache()

	backendURL := cfg.Backend.URL
	if backendURL == "" {
		backendURL = selfURL(cfg.Server.Addr)
	}
	client := services.NewPerformanceClient(backendURL, cfg.Backend.CSRFToken, cfg.Backend.Timeout)
	logger.Info("[MAIN] Performance data from %s", backendURL)

	hub := services.NewWebSocketHub(30 * time.Second)
	defer hub.Stop()

	sessions := services.NewSessionService(cfg.Session.Secret, cfg.Session.TTL, func(sessionID, csrfToken string) *services.Dashboard {
		fetcher := client
		if cfg.Backend.CSRFToken == "" {
			fetcher = client.WithCSRFToken(csrfToken)
		}
		return services.NewDashboard(services.DashboardOptions{
			SessionID: sessionID,
			Fetcher:   fetcher,
			Presenter: services.NewHubPresenter(hub, sessionID),
			Cache:     cache,
			Location:  loc,
		})
	})
	go sweep(ctx, time.Minute, func() {
		if n := sessions.Sweep(); n > 0 {
			logger.Debug("[MAIN] Expired %d idle sessions", n)
		}
		if mc, ok := cache.(*services.MemoryResponseCache); ok {
			mc.Sweep()
		}
	})

	middleware.GlobalSecurityLogger = middleware.NewSecurityLogger()

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(metrics.MetricsMiddleware())
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	r.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiter(float64(cfg.Server.RatePerSecond), cfg.Server.RateBurst)))

	r.LoadHTMLGlob(filepath.Join(cfg.Server.TemplatesDir, "*.html"))

	sessionMW := middleware.SessionMiddleware(sessions, middleware.NewSessionRateLimiter())
	sessionCSRF := middleware.SessionCSRFMiddleware()
	apiCSRF := middleware.CSRFMiddleware(sessions, cfg.Backend.CSRFToken)

	var lister controllers.DeviceLister
	if perf != nil {
		lister = perf
	}
	routes.RegisterMonitorRoutes(r)
	routes.RegisterDashboardRoutes(r, sessionMW, sessionCSRF, controllers.NewDashboardController(lister), controllers.NewExportController())
	routes.RegisterWebSocketRoutes(r, sessionMW, controllers.NewWebSocketController(hub, cfg.Server.AllowedOrigins))
	if perf != nil {
		routes.RegisterPerformanceRoutes(r, apiCSRF, controllers.NewPerformanceController(perf))
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("[MAIN] Listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("[MAIN] Server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("[MAIN] Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("[MAIN] Shutdown: %v", err)
	}
	if collector != nil {
		collector.Stop()
	}
}

// openStatsStore picks MySQL when a DSN is configured and memory otherwise
func openStatsStore(cfg config.Config) (services.StatsStore, func()) {
	if cfg.Store.MySQLDSN == "" {
		logger.Info("[MAIN] Keeping device stats in memory")
		return services.NewMemoryStatsStore(), func() {}
	}
	db, err := store.OpenMySQL(cfg.Store.MySQLDSN)
	if err != nil {
		logger.Fatal("[MAIN] Opening MySQL store: %v", err)
	}
	logger.Info("[MAIN] Device stats stored in MySQL")
	return db, func() {
		if err := db.Close(); err != nil {
			logger.Warn("[MAIN] Closing MySQL store: %v", err)
		}
	}
}

// openResponseCache picks redis when an address is configured, falling back
// to memory if it cannot be reached
func openResponseCache(ctx context.Context, cfg config.Config) (services.ResponseCache, func()) {
	if cfg.Cache.RedisAddr != "" {
		client, err := services.NewRedisClient(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err == nil {
			logger.Info("[MAIN] Response cache in redis at %s", cfg.Cache.RedisAddr)
			return services.NewRedisResponseCache(client, cfg.Cache.TTL), func() { client.Close() }
		}
		logger.Warn("[MAIN] Redis unavailable, using memory cache: %v", err)
	}
	return services.NewMemoryResponseCache(cfg.Cache.TTL), func() {}
}

func selfURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func sweep(ctx context.Context, every time.Duration, fn func()) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
