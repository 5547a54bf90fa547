package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ms-booking/internal/auth"
	"ms-booking/internal/availability"
	"ms-booking/internal/booking"
	"ms-booking/internal/booking/booking_api"
	bookingdb "ms-booking/internal/booking/db"
	"ms-booking/internal/booking/qr"
	"ms-booking/internal/config"
	"ms-booking/internal/database/migrations"
	"ms-booking/internal/events"
	eventsdb "ms-booking/internal/events/db"
	"ms-booking/internal/events/events_api"
	"ms-booking/internal/kafka"
	"ms-booking/internal/logger"
	"ms-booking/internal/metrics"
	"ms-booking/internal/sse"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"golang.org/x/sync/errgroup"
)

func verifyConnections(cfg config.DatabaseConfig, logger *logger.Logger) *bun.DB {
	if cfg.DSN == "" {
		logger.Fatal("CONFIG", "POSTGRES_DSN not set")
	}

	var sqldb *sql.DB
	var err error
	maxRetries := cfg.ConnRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	for i := 0; i < maxRetries; i++ {
		logger.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			logger.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		logger.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		sqldb.Close()
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	logger.Info("DATABASE", "✅ PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New())
}

func selectLedger(mode string, bunDB *bun.DB, records *bookingdb.DB, logger *logger.Logger) booking.Ledger {
	switch mode {
	case config.LedgerModeProcedure:
		logger.Info("BOOKING", "Using stored-procedure ledger")
		return &bookingdb.ProcedureLedger{Bun: bunDB}
	case config.LedgerModeTransaction:
		logger.Info("BOOKING", "Using transactional ledger")
		return records
	default:
		logger.Fatal("CONFIG", fmt.Sprintf("Unknown LEDGER_MODE %q", mode))
		return nil
	}
}

func buildVerifier(ctx context.Context, cfg config.AuthConfig, logger *logger.Logger) auth.Verifier {
	if cfg.OIDCIssuer != "" {
		verifier, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer)
		if err != nil {
			logger.Fatal("AUTH", fmt.Sprintf("Failed to initialise OIDC provider %s: %v", cfg.OIDCIssuer, err))
		}
		logger.Info("AUTH", fmt.Sprintf("Verifying tokens against issuer %s", cfg.OIDCIssuer))
		return verifier
	}
	if cfg.HMACSecret == "" {
		logger.Fatal("CONFIG", "Neither OIDC_ISSUER nor AUTH_HMAC_SECRET is set")
	}
	logger.Warn("AUTH", "OIDC_ISSUER not set, verifying HS256 tokens with the local secret")
	return auth.NewHMACVerifier(cfg.HMACSecret)
}

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	logger.Info("APP", "Starting Booking Service initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("APP", "Verifying database connections")
	bunDB := verifyConnections(cfg.Database, logger)
	defer bunDB.Close()

	if cfg.Database.AutoMigrate {
		opts := migrations.DefaultOptions()
		opts.SchemaOnly = cfg.Database.LedgerMode == config.LedgerModeTransaction
		if err := migrations.NewRunner(bunDB, opts, logger).RunMigrations(); err != nil {
			logger.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
		}
	}

	redisClient, err := auth.NewRedisClient(cfg.Redis, logger)
	if err != nil {
		logger.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
	}
	defer redisClient.Close()

	records := &bookingdb.DB{Bun: bunDB}
	catalogue := &eventsdb.DB{Bun: bunDB}
	ledger := selectLedger(cfg.Database.LedgerMode, bunDB, records, logger)

	emitter := sse.NewAvailabilityEmitter()
	cache := availability.NewCache(redisClient, cfg.Availability.CacheTTL)
	projector := availability.NewProjector(catalogue, cache, emitter, logger)

	var publisher booking.EventPublisher
	var consumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		publisher = producer
		logger.Info("KAFKA", "Kafka producer initialized successfully")

		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, cfg.Kafka.AllTopics(), 3, logger); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			logger.Info("KAFKA", "Required topics ensured successfully")
		}

		consumer = kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.AllTopics(), cfg.Kafka.GroupID, logger)
		defer consumer.Close()
	} else {
		logger.Warn("KAFKA", "Kafka disabled, projecting availability in-process")
		publisher = availability.DirectPublisher{Projector: projector}
	}

	bookingService := booking.NewBookingService(
		ledger,
		records,
		publisher,
		booking.Topics{
			Created:   cfg.Kafka.Topics.BookingCreated,
			Cancelled: cfg.Kafka.Topics.BookingCancelled,
		},
		qr.NewQRGenerator(cfg.QRSecretKey),
		logger,
	)
	eventService := events.NewEventService(catalogue, cache, publisher, cfg.Kafka.Topics.EventUpdated, logger)

	bookingHandler := booking_api.NewHandler(bookingService, logger)
	eventHandler := events_api.NewHandler(eventService, logger)
	streamHandler := sse.NewHandler(emitter, eventService, logger)

	verifier := auth.NewCachingVerifier(buildVerifier(ctx, cfg.Auth, logger), redisClient)

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(metrics.HTTPMiddleware(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// --- Public Routes ---
		eventHandler.RegisterPublicRoutes(r)
		r.Get("/events/{eventId}/availability/stream", streamHandler.StreamAvailability)
		logger.Info("ROUTER", "Public catalogue and contact routes registered under /api")

		// --- Protected Routes ---
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(verifier, logger))
			r.Use(auth.SyncProfile(catalogue, logger))
			logger.Info("AUTH", "Token middleware applied to protected API routes")

			eventHandler.RegisterAccountRoutes(r)
			bookingHandler.RegisterRoutes(r)
			logger.Info("ROUTER", "Booking routes registered under /api/bookings")

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAdmin(catalogue, logger))
				eventHandler.RegisterAdminRoutes(r)
			})
			logger.Info("ROUTER", "Admin routes registered under /api/admin")
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP", fmt.Sprintf("🚀 Booking Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if consumer != nil {
		g.Go(func() error {
			return consumer.Start(gctx, projector.Handle)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(ctxShutdown)
	})

	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	if err := g.Wait(); err != nil {
		logger.Error("APP", fmt.Sprintf("Service stopped with error: %v", err))
		os.Exit(1)
	}
	logger.Info("HTTP", "✅ Booking Service shutdown complete")
}
