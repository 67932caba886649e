package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Astemirdum/bookish-library/catalog/config"
	"github.com/Astemirdum/bookish-library/catalog/internal/events"
	"github.com/Astemirdum/bookish-library/catalog/internal/handler"
	"github.com/Astemirdum/bookish-library/catalog/internal/identity"
	"github.com/Astemirdum/bookish-library/catalog/internal/ledger"
	"github.com/Astemirdum/bookish-library/catalog/internal/repository"
	"github.com/Astemirdum/bookish-library/catalog/internal/server"
	"github.com/Astemirdum/bookish-library/catalog/internal/service"
	"github.com/Astemirdum/bookish-library/catalog/migrations"
	"github.com/Astemirdum/bookish-library/pkg/auth"
	cb "github.com/Astemirdum/bookish-library/pkg/circuit_breaker"
	"github.com/Astemirdum/bookish-library/pkg/kafka"
	"github.com/Astemirdum/bookish-library/pkg/logger"
	"github.com/Astemirdum/bookish-library/pkg/postgres"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Run serves the catalog API until ctx is done or a termination signal arrives.
func Run(ctx context.Context, cfg config.Config) error {
	log := logger.NewLogger(cfg.Log, "catalog")
	defer log.Sync() //nolint:errcheck

	repo, closeRepo, err := newRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	dir := identity.NewDirectory(log, 0)
	if err = dir.Seed(identity.DemoAccounts()); err != nil {
		return errors.Wrap(err, "identity seed")
	}
	tokens := auth.NewTokenManager(cfg.Auth)

	publisher, closePublisher, err := newPublisher(cfg, log)
	if err != nil {
		return err
	}
	defer closePublisher()

	svc := service.NewService(repo, publisher, log)
	authSvc := service.NewAuthService(dir, tokens, log)
	h := handler.New(svc, authSvc, tokens, log)
	srv := server.NewServer(cfg.Server, h.NewRouter())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server start ON: ",
			zap.String("addr",
				net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
		return srv.Run()
	})
	g.Go(func() error {
		<-gCtx.Done()
		log.Debug("Graceful shutdown")

		closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		return srv.Stop(closeCtx)
	})
	if err = g.Wait(); err != nil {
		log.Error("server", zap.Error(err))
		return err
	}
	log.Info("Graceful shutdown finished")
	return nil
}

// Migrate applies the catalog schema migrations and exits.
func Migrate(ctx context.Context, cfg config.Config) error {
	log := logger.NewLogger(cfg.Log, "catalog")
	defer log.Sync() //nolint:errcheck

	db, err := postgres.NewPostgresDB(ctx, &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		return errors.Wrap(err, "db init")
	}
	log.Info("migrations applied", zap.String("db", cfg.Database.NameDB))
	return db.Close()
}

func newRepository(ctx context.Context, cfg config.Config, log *zap.Logger) (repository.Repository, func(), error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		db, err := postgres.NewPostgresDB(ctx, &cfg.Database, migrations.MigrationFiles)
		if err != nil {
			return nil, nil, errors.Wrap(err, "db init")
		}
		repo := repository.NewPostgresRepository(db, log)
		if cfg.Seed {
			if err = seedRepository(ctx, repo); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
		}
		return repo, func() { _ = db.Close() }, nil
	default:
		l := ledger.New()
		if cfg.Seed {
			books := l.Seed(ledger.DemoCatalog())
			log.Info("catalog seeded", zap.Int("titles", len(books)))
		}
		return repository.NewMemoryRepository(l, log), func() {}, nil
	}
}

// seedRepository loads the demo catalog into an empty database only.
func seedRepository(ctx context.Context, repo repository.Repository) error {
	stats, err := repo.Stats(ctx)
	if err != nil {
		return errors.Wrap(err, "seed stats")
	}
	if stats.Titles > 0 {
		return nil
	}
	for _, req := range ledger.DemoCatalog() {
		if _, err = repo.AddBook(ctx, req); err != nil {
			return errors.Wrap(err, "seed")
		}
	}
	return nil
}

func newPublisher(cfg config.Config, log *zap.Logger) (events.Publisher, func(), error) {
	if !cfg.Kafka.Enabled() {
		log.Info("kafka disabled, catalog events are dropped")
		return events.NewNopPublisher(), func() {}, nil
	}
	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		return nil, nil, errors.Wrap(err, "kafka.NewProducer")
	}
	pub := events.NewKafkaPublisher(producer, cfg.Kafka.Topic, cb.New(cfg.Breaker), log)
	return pub, func() {
		if err := producer.Close(); err != nil {
			log.Error("producer.Close", zap.Error(err))
		}
	}, nil
}
