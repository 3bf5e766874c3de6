package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"genkan/internal/audit"
	"genkan/internal/calendar"
	"genkan/internal/platform/config"
	"genkan/internal/platform/httpserver"
	"genkan/internal/platform/logger"
	"genkan/internal/platform/metrics"
	"genkan/internal/platform/postgres"
	"genkan/internal/platform/redis"
	"genkan/internal/stats"
	"genkan/internal/stats/cache"
	httptransport "genkan/internal/transport/http"

	activityhandler "genkan/internal/activity/handler"
	activityservice "genkan/internal/activity/service"
	activitystore "genkan/internal/activity/store"
	audithandler "genkan/internal/audit/handler"
	guesthandler "genkan/internal/guest/handler"
	guestservice "genkan/internal/guest/service"
	gueststore "genkan/internal/guest/store"
	statshandler "genkan/internal/stats/handler"
	visithandler "genkan/internal/visit/handler"
	visitservice "genkan/internal/visit/service"
	visitstore "genkan/internal/visit/store"
)

// main wires dependencies explicitly and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	cal := calendar.New()
	m := metrics.New()

	ctx := context.Background()

	// Storage: postgres when configured, in-memory otherwise. The store
	// variables are typed as the union of the service-side interfaces so
	// either implementation slots in.
	var db *sql.DB
	var guestStore guestservice.GuestStore
	var visitStore interface {
		visitservice.VisitStore
		stats.VisitSource
		guestservice.VisitStore
	}
	var activityStore interface {
		activityservice.ActivityStore
		guestservice.ActivityStore
	}
	var auditStore audit.Store
	if cfg.DatabaseURL != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres connection failed", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Error("schema migration failed", "error", err.Error())
			os.Exit(1)
		}
		guestStore = gueststore.NewPostgres(db)
		visitStore = visitstore.NewPostgres(db)
		activityStore = activitystore.NewPostgres(db)
		auditStore = audit.NewPostgres(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		guests := gueststore.NewInMemory()
		guestStore = guests
		visitStore = visitstore.NewInMemory(guests)
		activityStore = activitystore.NewInMemory()
		auditStore = audit.NewInMemoryStore()
	}

	auditor := audit.NewRecorder(auditStore, log)

	// Stats cache: enabled only when Redis is configured.
	var summaryCache stats.SummaryCache
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err.Error())
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		summaryCache = cache.NewRedisSummaryCache(redisClient.Client, cache.WithTTL(cfg.StatsTTL))
	}

	guestSvc := guestservice.New(guestStore, visitStore, activityStore, cal,
		guestservice.WithLogger(log),
		guestservice.WithMetrics(m),
		guestservice.WithAudit(auditor),
		guestservice.WithDB(db),
	)
	visitSvc := visitservice.New(guestStore, visitStore,
		visitservice.WithLogger(log),
		visitservice.WithMetrics(m),
		visitservice.WithAudit(auditor),
	)
	activitySvc := activityservice.New(guestStore, activityStore, cal,
		activityservice.WithLogger(log),
		activityservice.WithAudit(auditor),
	)
	statsOpts := []stats.Option{stats.WithLogger(log), stats.WithMetrics(m)}
	if summaryCache != nil {
		statsOpts = append(statsOpts, stats.WithSummaryCache(summaryCache))
	}
	aggregator := stats.New(visitStore, guestStore, cal, statsOpts...)

	router := httptransport.NewRouter(log,
		guesthandler.New(guestSvc, log),
		visithandler.New(visitSvc, log),
		activityhandler.New(activitySvc, log),
		statshandler.New(aggregator, cal, log),
		audithandler.New(auditor, log),
	)
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting genkan", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
		os.Exit(1)
	}
}
