package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	certhandler "petcert/internal/certificate/handler"
	certservice "petcert/internal/certificate/service"
	certstore "petcert/internal/certificate/store"
	"petcert/internal/events"
	"petcert/internal/keystore"
	"petcert/internal/platform/config"
	"petcert/internal/platform/httpserver"
	"petcert/internal/platform/logger"
	"petcert/internal/platform/metrics"
	"petcert/internal/platform/middleware"
	platformredis "petcert/internal/platform/redis"
	"petcert/internal/qr"
	"petcert/internal/registry"
	"petcert/internal/sessiontoken"
	"petcert/internal/tempaccess"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	m := metrics.New()

	// Collaborator directory. Pets, practitioners and organizations are
	// owned by other subsystems; the in-memory directory with demo fixtures
	// stands in for them. Records move to Postgres when a database is
	// configured because this core writes their immutable flag.
	memory := registry.NewMemoryDirectory()
	registry.SeedDemo(memory)

	var (
		db       *sql.DB
		records  registry.Records = memory
		certs    certstore.Store
		txRunner certservice.TxRunner
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			log.Error("open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		db.SetMaxOpenConns(20)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			log.Error("database unreachable", "error", err)
			os.Exit(1)
		}

		pgRecords := registry.NewPostgresRecords(db)
		pgCerts := certstore.NewPostgres(db)
		if err := pgRecords.Migrate(ctx); err != nil {
			log.Error("migrate records", "error", err)
			os.Exit(1)
		}
		if err := pgCerts.Migrate(ctx); err != nil {
			log.Error("migrate certificates", "error", err)
			os.Exit(1)
		}
		records = pgRecords
		certs = pgCerts
		txRunner = newCertificatePostgresTx(db)
	} else {
		memCerts := certstore.NewMemoryStore()
		certs = memCerts
		txRunner = certstore.NewMemoryTxRunner(memCerts, memory)
		log.Info("no database configured, using in-memory stores")
	}
	directory := directoryWith(memory, records)

	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	qrCache := qr.NewCache(redisClient, log)

	var publisher events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			log.Error("kafka unavailable", "error", err)
			os.Exit(1)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = kafka.Close(flushCtx)
		}()
		publisher = kafka
	}

	keys := keystore.NewProvider(cfg.KeyDir)
	sessions := sessiontoken.NewService(cfg.SessionSigningKey, "petcert")
	certificates := certservice.NewService(directory, certs, keys, txRunner, publisher, qrCache, m, log)
	access := tempaccess.NewService(cfg.AccessTokenSigningKey, "petcert", cfg.AccessTokenMaxTTL,
		directory, records, directory, m, log)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.RequestTime)
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.Latency(m))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	accessHandler := tempaccess.NewHandler(access, log)
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(sessions, log))
		certhandler.New(certificates, log).Register(r)
		accessHandler.RegisterIssue(r)
	})
	accessHandler.RegisterShared(router)

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("starting petcert server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// directoryWith overlays a records implementation on the memory directory so
// the Postgres profile keeps memory-backed collaborator lookups.
func directoryWith(memory *registry.MemoryDirectory, records registry.Records) registry.Directory {
	return struct {
		registry.Pets
		registry.Records
		registry.Practitioners
		registry.Organizations
	}{memory, records, memory, memory}
}
