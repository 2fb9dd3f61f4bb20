package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"study-quiz-service/internal/app"
	"study-quiz-service/internal/domain"
	"study-quiz-service/internal/infra/postgres"
	pgmigrations "study-quiz-service/internal/infra/postgres/migrations"
	infraredis "study-quiz-service/internal/infra/redis"
)

func TestSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateSchema(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	store := postgres.NewStore(pool)

	for _, q := range sampleQuizzes() {
		if _, err := store.CreateQuiz(ctx, q); err != nil {
			t.Fatalf("seed quiz: %v", err)
		}
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	quizzes := infraredis.NewQuizCache(redisClient, store, 5*time.Minute)
	service := app.NewQuizService(quizzes, store, store, app.PlayConfig{TimeLimit: 2 * time.Second}, app.WithRandom(app.NewRandom(1)))

	engine, err := service.StartSession(ctx, "history", 3)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap := engine.Snapshot(); snap.Total != 2 {
		t.Fatalf("expected clamp to 2 history quizzes, got %d", snap.Total)
	}

	// Answer the first correctly, let the second time out.
	snap := engine.Snapshot()
	quiz, _, _ := store.GetByID(ctx, snap.Question.QuizID)
	for pos, opt := range snap.Question.Options {
		if opt.OriginalIndex == quiz.CorrectOptionIndex {
			engine.Answer(ctx, pos)
		}
	}
	if _, err := engine.Next(ctx); err != nil {
		t.Fatalf("next: %v", err)
	}
	engine.Tick(ctx)
	engine.Tick(ctx)
	snap, err = engine.Next(ctx)
	if err != nil || snap.State != app.StateFinished {
		t.Fatalf("expected finished, got %s err=%v", snap.State, err)
	}

	session, ok, err := store.GetSession(ctx, engine.SessionID())
	if err != nil || !ok || !session.Completed() || *session.Score != 1 {
		t.Fatalf("unexpected stored session %+v ok=%v err=%v", session, ok, err)
	}
	results, _ := store.ListResultsBySession(ctx, engine.SessionID())
	if len(results) != 2 || !results[1].TimedOut() {
		t.Fatalf("expected answered + timed-out results, got %+v", results)
	}

	// Deleting a quiz keeps history; stats group it as unknown.
	catalog := app.NewCatalog(store, []app.CacheInvalidator{quizzes})
	if err := catalog.DeleteQuiz(ctx, results[0].QuizID); err != nil {
		t.Fatalf("delete quiz: %v", err)
	}
	if err := catalog.DeleteQuiz(ctx, results[0].QuizID); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound on second delete, got %v", err)
	}
	overview, err := app.NewStatsService(quizzes, store, store).Overview(ctx)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if overview.CompletedSessions != 1 || overview.Percentage != 50 {
		t.Fatalf("unexpected overview %+v", overview)
	}
	if overview.Categories[len(overview.Categories)-1].Category != app.UnknownCategory {
		t.Fatalf("expected deleted quiz under unknown, got %+v", overview.Categories)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateSchema(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func sampleQuizzes() []domain.Quiz {
	return []domain.Quiz{
		{Category: "history", Question: "Year the Berlin Wall fell?", Options: []string{"1987", "1989", "1991", "1993"}, CorrectOptionIndex: 1},
		{Category: "history", Question: "First emperor of Rome?", Options: []string{"Nero", "Caesar", "Augustus", "Trajan"}, CorrectOptionIndex: 2},
		{Category: "science", Question: "H2O is?", Options: []string{"Water", "Salt", "Air", "Iron"}, CorrectOptionIndex: 0},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
