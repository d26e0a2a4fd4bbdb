package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Tables owned by the hosted backend. Only the columns this service reads
// or writes are created.
const baseSchema = `
CREATE TABLE users (
    id UUID PRIMARY KEY,
    wallet_address TEXT NOT NULL,
    username TEXT NOT NULL UNIQUE,
    current_points INTEGER NOT NULL DEFAULT 0,
    current_rank INTEGER NOT NULL DEFAULT 0,
    referral_code TEXT,
    referral_link TEXT,
    connection_timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE social_connections (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL REFERENCES users (id),
    platform TEXT NOT NULL,
    platform_user_id TEXT NOT NULL,
    platform_username TEXT,
    access_token TEXT,
    refresh_token TEXT,
    connected_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    is_active BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE referrals (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    referrer_id UUID NOT NULL REFERENCES users (id),
    referred_id UUID NOT NULL REFERENCES users (id),
    status TEXT NOT NULL DEFAULT 'pending',
    points_awarded INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE admin_tasks (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    platform TEXT NOT NULL,
    points INTEGER NOT NULL,
    action_url TEXT,
    verification_type TEXT NOT NULL DEFAULT 'manual',
    requires_connection BOOLEAN NOT NULL DEFAULT FALSE,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_by TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE FUNCTION increment_user_points(user_id_param UUID, points_to_add INTEGER)
RETURNS VOID AS $$
    UPDATE users SET current_points = current_points + points_to_add WHERE id = user_id_param;
$$ LANGUAGE sql;
`

// setupTestRepository starts a Postgres container with the hosted schema and
// the service migrations applied.
func setupTestRepository(t *testing.T) *Repository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_pass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	var db *sqlx.DB
	for i := 0; i < 10; i++ {
		db, err = sqlx.Connect("pgx", dsn)
		if err == nil {
			break
		}
		time.Sleep(time.Duration(100*(1<<uint(i))) * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	if _, err := db.ExecContext(ctx, baseSchema); err != nil {
		t.Fatalf("failed to create base schema: %v", err)
	}

	repo := NewWithDB(db, nil)
	t.Cleanup(func() { _ = repo.Close() })

	if _, err := repo.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return repo
}
