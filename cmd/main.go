package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restaurant-floor/internal/auth"
	"restaurant-floor/internal/config"
	"restaurant-floor/internal/database"
	"restaurant-floor/internal/logger"
	"restaurant-floor/internal/messaging"
	"restaurant-floor/internal/server"
	"restaurant-floor/internal/services/menu"
	"restaurant-floor/internal/services/notification"
	"restaurant-floor/internal/services/order"
	"restaurant-floor/internal/services/table"
	"restaurant-floor/internal/store"
	"restaurant-floor/internal/store/memory"
	"restaurant-floor/internal/store/mongo"
)

func main() {
	// Parse command line flags
	var (
		mode       = flag.String("mode", "", "Service mode (floor-service, floor-events)")
		port       = flag.Int("port", 0, "HTTP port (overrides config)")
		storeName  = flag.String("store", "", "Store driver: memory, postgres, mongo (overrides config)")
		configPath = flag.String("config", "config.yaml", "Path to the config file")
		prefetch   = flag.Int("prefetch", 10, "RabbitMQ prefetch count")
	)
	flag.Parse()

	// Validate required mode flag
	if *mode == "" {
		fmt.Fprintf(os.Stderr, "Error: --mode flag is required\n")
		flag.Usage()
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *storeName != "" {
		cfg.Store.Driver = *storeName
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error in config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(*mode)
	requestID := logger.GenerateRequestID()

	log.Info("service_started", fmt.Sprintf("Starting %s", *mode), requestID, map[string]interface{}{
		"mode":  *mode,
		"port":  cfg.Server.Port,
		"store": cfg.Store.Driver,
	})

	// Set up graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "floor-service":
		err = runFloorService(ctx, cfg, log)
	case "floor-events":
		err = runFloorEvents(ctx, cfg, log, *prefetch)
	default:
		log.Error("validation_failed", fmt.Sprintf("Unknown mode: %s", *mode), requestID, nil, nil)
		os.Exit(1)
	}
	if err != nil {
		log.Error("service_failed", fmt.Sprintf("%s failed", *mode), requestID, err, nil)
		os.Exit(1)
	}

	log.Info("service_stopped", "Service stopped gracefully", requestID, nil)
}

// runFloorService serves the HTTP API
func runFloorService(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	requestID := logger.GenerateRequestID()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			log.Error("store_close_failed", "Failed to close store", requestID, err, nil)
		}
	}()

	var publisher messaging.EventPublisher = messaging.NopPublisher{}
	if cfg.RabbitMQ.Enabled {
		conn, err := messaging.New(cfg, log)
		if err != nil {
			return fmt.Errorf("failed to initialize messaging: %w", err)
		}
		defer conn.Close()

		log.Info("rabbitmq_connected", "Connected to RabbitMQ", requestID, nil)
		publisher = messaging.NewPublisher(conn, log)
	}

	tables := table.NewService(st, publisher, log)
	handler := server.NewRouter(server.Options{
		Orders:         order.NewService(st, publisher, log),
		Tables:         tables,
		Menu:           menu.NewService(st, log),
		Auth:           auth.NewJWTProvider(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Logger:         log,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       time.Minute,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("service_started", fmt.Sprintf("Floor service started on port %d", cfg.Server.Port), requestID, map[string]interface{}{
			"port": cfg.Server.Port,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("graceful_shutdown", "Shutting down HTTP server", requestID, nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// runFloorEvents prints committed floor events until shutdown
func runFloorEvents(ctx context.Context, cfg *config.Config, log *logger.Logger, prefetch int) error {
	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}

	consumer := messaging.NewConsumer(conn, log, messaging.FloorQueue, "floor-events", prefetch)
	subscriber := notification.NewSubscriber(consumer, log, os.Stdout)

	if err := subscriber.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openStore builds the persistence backend named by the config
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (store.Store, error) {
	requestID := logger.GenerateRequestID()

	switch cfg.Store.Driver {
	case config.StorePostgres:
		db, err := database.New(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close(ctx)
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("db_connected", "Connected to PostgreSQL database", requestID, nil)
		return db, nil

	case config.StoreMongo:
		st, err := mongo.New(ctx, mongo.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			Timeout:  cfg.Mongo.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize mongo: %w", err)
		}
		log.Info("db_connected", "Connected to MongoDB", requestID, map[string]interface{}{
			"database": cfg.Mongo.Database,
		})
		return st, nil

	case config.StoreMemory:
		if cfg.Store.SnapshotPath == "" {
			log.Warn("store_volatile", "Using in-memory store without a snapshot file", requestID, nil)
			return memory.New(), nil
		}
		st, err := memory.Open(cfg.Store.SnapshotPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open snapshot: %w", err)
		}
		log.Info("store_opened", "Opened snapshot store", requestID, map[string]interface{}{
			"path": cfg.Store.SnapshotPath,
		})
		return st, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
