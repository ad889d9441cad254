package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
	pgloader "quiz-session-service/internal/infra/postgres"
	pgmigrations "quiz-session-service/internal/infra/postgres/migrations"
	infraredis "quiz-session-service/internal/infra/redis"
)

func TestSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuiz(t, ctx, pgURL, sampleQuiz())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	log := logrus.New()
	log.SetOutput(io.Discard)

	loader := pgloader.NewQuizLoader(pool)
	quizzes := infraredis.NewQuizRepository(redisClient, loader, 5*time.Minute)
	registry := infraredis.NewSessionRegistry(redisClient, time.Hour)
	engine := app.NewEngine(registry, quizzes, app.NopPublisher{}, app.DefaultScoreConfig(), log)

	snap, err := engine.CreateSession(ctx, "host-1", "quiz-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(snap.JoinCode) != 6 {
		t.Fatalf("unexpected join code %q", snap.JoinCode)
	}

	// Quiz document should now be cached in Redis and the join code reserved.
	if _, err := redisClient.Get(ctx, "quiz:quiz-1:doc").Result(); err != nil {
		t.Fatalf("expected cached quiz doc: %v", err)
	}
	if _, err := redisClient.Get(ctx, "session:code:"+snap.JoinCode).Result(); err != nil {
		t.Fatalf("expected reserved join code: %v", err)
	}

	for _, u := range []struct{ id, name string }{{"u1", "Alice"}, {"u2", "Bob"}} {
		if _, err := engine.JoinSession(ctx, snap.JoinCode, domain.UserProfile{UserID: u.id, DisplayName: u.name}); err != nil {
			t.Fatalf("join %s: %v", u.id, err)
		}
	}
	if err := engine.StartSession(ctx, snap.ID, "host-1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	outcome, err := engine.SubmitAnswer(ctx, snap.ID, "u2", 0, 1)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !outcome.Correct || outcome.PointsAwarded <= 0 {
		t.Fatalf("expected scored correct answer, got %+v", outcome)
	}

	if err := engine.AdvanceQuestion(ctx, snap.ID, "host-1"); err != nil {
		t.Fatalf("advance: %v", err)
	}

	lb, err := engine.GetLeaderboard(ctx, snap.ID)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb) != 2 || lb[0].UserID != "u2" {
		t.Fatalf("expected u2 leading, got %+v", lb)
	}

	review, err := engine.GetReview(ctx, snap.ID, "u2")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if len(review) != 1 || review[0].SelectedIndex == nil || *review[0].SelectedIndex != 1 {
		t.Fatalf("unexpected review: %+v", review)
	}

	// The ended session releases its code reservation for reuse.
	if err := redisClient.Get(ctx, "session:code:"+snap.JoinCode).Err(); err != goredis.Nil {
		t.Fatalf("expected released join code, got %v", err)
	}

	history := engine.GetHistory(ctx, "u2")
	if len(history) != 1 || history[0].SessionID != snap.ID {
		t.Fatalf("unexpected history: %+v", history)
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

func seedQuiz(t *testing.T, ctx context.Context, dsn string, quiz domain.Quiz) {
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

	data, err := json.Marshal(quiz)
	if err != nil {
		t.Fatalf("marshal quiz: %v", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO quizzes (id, owner_id, data) VALUES (?, ?, ?::jsonb)
		 ON CONFLICT (id) DO UPDATE SET owner_id=EXCLUDED.owner_id, data=EXCLUDED.data`,
		quiz.ID, quiz.OwnerID, string(data)); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:      "quiz-1",
		OwnerID: "host-1",
		Title:   "Capital Cities",
		Questions: []domain.Question{
			{
				Text:             "Capital of France?",
				Options:          []string{"Lyon", "Paris", "Nice"},
				CorrectIndex:     1,
				TimeLimitSeconds: 30,
			},
		},
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
