// Command server runs the compliance core: the conversation coordinator,
// audit ledger, alert engine and index projector behind one HTTP surface.
// main only wires dependencies; behavior lives in the internal packages.
package main

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"lexgate/internal/alert"
	"lexgate/internal/audit"
	"lexgate/internal/audit/export"
	"lexgate/internal/classify"
	"lexgate/internal/conversation"
	"lexgate/internal/coordinator"
	"lexgate/internal/fieldcrypt"
	"lexgate/internal/index"
	"lexgate/internal/jwttoken"
	"lexgate/internal/platform/config"
	"lexgate/internal/platform/httpserver"
	"lexgate/internal/platform/logger"
	platformredis "lexgate/internal/platform/redis"
	httptransport "lexgate/internal/transport/http"
	"lexgate/migrations"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "lexgate:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Durable stores. Without Postgres everything runs in memory, which is
	// only acceptable for local development.
	var (
		auditStore audit.Store        = audit.NewInMemoryStore()
		alertStore alert.Store        = alert.NewInMemoryStore()
		keyStore   fieldcrypt.Store   = fieldcrypt.NewInMemoryStore()
		convStore  conversation.Store = conversation.NewInMemoryStore()
	)
	if cfg.Postgres.URL != "" {
		db, err := sql.Open("pgx", cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		if err := migrations.Apply(ctx, db); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		auditStore = audit.NewPostgres(db)
		alertStore = alert.NewPostgres(db)
		keyStore = fieldcrypt.NewPostgres(db)
		convStore = conversation.NewPostgres(db)
	} else {
		log.Warn("LEXGATE_POSTGRES_URL not set; audit, key, alert and conversation stores are in-memory")
	}

	// Redis backs the index projections and the failed-auth sliding
	// windows; both degrade to in-memory equivalents without it.
	var (
		idxStore index.Store         = index.NewInMemoryStore()
		window   alert.FailureWindow = alert.NewInMemoryWindow(cfg.Alerts.FailedAuthWindow)
	)
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		idxStore = index.NewRedisStore(redisClient.Client)
		window = alert.NewRedisWindow(redisClient.Client, cfg.Alerts.FailedAuthWindow)
	} else {
		log.Warn("LEXGATE_REDIS_URL not set; index and auth-failure windows are in-memory")
	}

	master, err := masterKey(cfg.Keys.MasterKeyBase64, log)
	if err != nil {
		return err
	}
	keyring, err := fieldcrypt.NewKeyring(keyStore, master,
		fieldcrypt.WithRotationInterval(cfg.Keys.RotationInterval),
		fieldcrypt.WithLogger(log.With("component", "keyring")),
	)
	if err != nil {
		return fmt.Errorf("build keyring: %w", err)
	}

	engine := alert.NewEngine(alert.EngineConfig{
		AnomalousRiskScore:  cfg.Alerts.AnomalousRiskScore,
		FailedAuthThreshold: cfg.Alerts.FailedAuthThreshold,
		FailedAuthWindow:    cfg.Alerts.FailedAuthWindow,
		MassExportThreshold: cfg.Alerts.MassExportThreshold,
	}, alertStore, window, alert.WithEngineLogger(log.With("component", "alerts")))

	observers := audit.Observers{engine}

	var publisher *export.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := kgo.NewClient(kgo.SeedBrokers(cfg.Kafka.Brokers...))
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer kafkaClient.Close()
		publisher, err = export.New(ctx, kafkaClient,
			export.WithTopic(cfg.Kafka.TopicPrefix),
			export.WithLogger(log.With("component", "siem")),
		)
		if err != nil {
			return fmt.Errorf("start siem publisher: %w", err)
		}
		observers = append(observers, publisher)
	}

	ledger := audit.NewLedger(auditStore,
		audit.WithObserver(observers),
		audit.WithLedgerLogger(log.With("component", "audit")),
	)

	runtime := conversation.NewRuntime(convStore, log.With("component", "conversations"))
	projector := index.NewProjector(index.ProjectorConfig{
		QueueSize:    cfg.Index.QueueSize,
		Workers:      cfg.Index.Workers,
		RetryBackoff: cfg.Index.RetryBackoff,
		MaxRetries:   cfg.Index.MaxRetries,
	}, idxStore, log.With("component", "index"))

	coord := coordinator.New(
		classify.NewEngine(),
		fieldcrypt.NewService(keyring),
		runtime,
		ledger,
		projector,
		log.With("component", "coordinator"),
	)

	tokens := jwttoken.NewService([]byte(cfg.HTTP.JWTSigningKey), "lexgate")
	handler := httptransport.NewHandler(coord, ledger, alert.NewService(alertStore, log), keyring, idxStore, log)
	srv := httpserver.New(cfg.HTTP.Addr, httptransport.NewRouter(handler, tokens))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}

		// Stop accepting mutations, then drain the projection queue and
		// flush the export buffer so nothing accepted is lost.
		runtime.Close()
		projector.Close()
		if publisher != nil {
			if err := publisher.Close(shutdownCtx); err != nil {
				log.Error("siem publisher close", "error", err)
			}
		}
		return nil
	})
	return g.Wait()
}

// masterKey decodes the configured master key. A missing key gets a fixed
// development value; never run production traffic without LEXGATE_MASTER_KEY.
func masterKey(encoded string, log *slog.Logger) ([]byte, error) {
	if encoded == "" {
		log.Warn("LEXGATE_MASTER_KEY not set; using development master key")
		return []byte("lexgate-dev-master-key-32-bytes!"), nil
	}
	master, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode master key: %w", err)
	}
	if len(master) != 32 {
		return nil, fmt.Errorf("master key must be 32 bytes, got %d", len(master))
	}
	return master, nil
}
