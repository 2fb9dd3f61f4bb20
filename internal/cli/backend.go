package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"study-quiz-service/internal/app"
	"study-quiz-service/internal/config"
	"study-quiz-service/internal/infra/memory"
	"study-quiz-service/internal/infra/postgres"
	infraredis "study-quiz-service/internal/infra/redis"
	"study-quiz-service/internal/infra/sqlite"
)

// backend bundles the storage ports chosen by configuration.
type backend struct {
	quizzes app.QuizStore
	writer  app.QuizWriter
	deleter app.QuizDeleter
	caches  []app.CacheInvalidator
	ledger  app.SessionLedger
	results app.ResultLog
	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackend wires storage. Quizzes come from Postgres or SQLite when
// configured, otherwise from a seeded in-memory store; storage.driver picks
// where sessions and results go. Quiz reads are cached in Redis when an
// address is set, else in process when quiz.ttl is set.
func openBackend(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*backend, error) {
	b := &backend{}
	var (
		pgStore     *postgres.Store
		sqlStore    *sqlite.Store
		redisClient *redis.Client
	)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		pgStore = postgres.NewStore(pool)
	}
	if cfg.SQLite.Path != "" || cfg.Storage.Driver == config.DriverSQLite {
		store, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		b.closers = append(b.closers, func() { _ = store.Close() })
		sqlStore = store
	}
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = redisClient.Close() })
	}

	var source interface {
		app.QuizStore
		app.QuizWriter
		app.QuizDeleter
	}
	switch {
	case pgStore != nil:
		source = pgStore
	case sqlStore != nil:
		source = sqlStore
	default:
		source = memory.NewQuizStore(sampleQuizzes()...)
	}
	b.writer = source
	b.deleter = source
	b.quizzes = source

	quizTTL := config.Duration(cfg.Quiz.TTL, 0)
	switch {
	case redisClient != nil:
		cache := infraredis.NewQuizCache(redisClient, source, config.Duration(cfg.Quiz.TTL, 10*time.Minute))
		b.quizzes = cache
		b.caches = append(b.caches, cache)
	case quizTTL > 0:
		cache := memory.NewQuizCache(source, quizTTL)
		b.quizzes = cache
		b.caches = append(b.caches, cache)
	}

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		ledger := memory.NewLedger()
		b.ledger, b.results = ledger, ledger
	case config.DriverSQLite:
		b.ledger, b.results = sqlStore, sqlStore
	case config.DriverPostgres:
		if pgStore == nil {
			b.Close()
			return nil, fmt.Errorf("storage driver postgres requires postgres.url")
		}
		b.ledger, b.results = pgStore, pgStore
	case config.DriverRedis:
		if redisClient == nil {
			b.Close()
			return nil, fmt.Errorf("storage driver redis requires redis.addr")
		}
		ledger := infraredis.NewLedger(redisClient, config.Duration(cfg.Redis.TTL, 0))
		b.ledger, b.results = ledger, ledger
	default:
		b.Close()
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	log.WithFields(logrus.Fields{
		"driver":      cfg.Storage.Driver,
		"quiz_cache":  redisClient != nil || quizTTL > 0,
		"quiz_source": quizSourceName(pgStore != nil, sqlStore != nil),
	}).Info("storage ready")
	return b, nil
}

func quizSourceName(pg, sqlite bool) string {
	switch {
	case pg:
		return config.DriverPostgres
	case sqlite:
		return config.DriverSQLite
	default:
		return config.DriverMemory
	}
}

// playConfig maps the session config section onto app.PlayConfig.
func playConfig(cfg config.Config) (app.PlayConfig, error) {
	policy, err := app.ParseSelectionPolicy(cfg.Session.SelectionPolicy)
	if err != nil {
		return app.PlayConfig{}, err
	}
	return app.PlayConfig{
		TimeLimit:    config.Duration(cfg.Session.TimeLimit, app.DefaultTimeLimit),
		DefaultCount: cfg.Session.DefaultCount,
		Policy:       policy,
	}, nil
}
