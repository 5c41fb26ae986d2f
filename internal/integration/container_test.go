package integration_test

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

type PostgresContainer struct {
	Container        *postgres.PostgresContainer
	ConnectionString string
}

type RedisContainer struct {
	Container        *tcredis.RedisContainer
	ConnectionString string
}

const schema = `
	CREATE TABLE screens (
		id bigserial PRIMARY KEY,
		name text NOT NULL,
		seat_rows int NOT NULL,
		seat_cols int NOT NULL
	);

	CREATE TABLE seats (
		id bigserial PRIMARY KEY,
		screen_id bigint NOT NULL REFERENCES screens (id),
		seat_row int NOT NULL,
		seat_col int NOT NULL,
		UNIQUE (screen_id, seat_row, seat_col)
	);

	CREATE TABLE shows (
		id bigserial PRIMARY KEY,
		movie_id bigint NOT NULL,
		screen_id bigint NOT NULL REFERENCES screens (id),
		start_time timestamptz NOT NULL,
		price numeric(10, 2) NOT NULL,
		UNIQUE (screen_id, start_time)
	);

	CREATE TABLE bookings (
		id bigserial PRIMARY KEY,
		reference text NOT NULL UNIQUE,
		user_id bigint NOT NULL,
		show_id bigint NOT NULL REFERENCES shows (id),
		total_amount numeric(10, 2) NOT NULL,
		status text NOT NULL,
		created_at timestamptz NOT NULL DEFAULT NOW(),
		updated_at timestamptz NOT NULL DEFAULT NOW()
	);

	CREATE TABLE booking_seats (
		booking_id bigint NOT NULL REFERENCES bookings (id) ON DELETE CASCADE,
		show_id bigint NOT NULL REFERENCES shows (id),
		seat_id bigint NOT NULL REFERENCES seats (id),
		PRIMARY KEY (booking_id, seat_id)
	);

	CREATE INDEX booking_seats_show_seat_idx ON booking_seats (show_id, seat_id);
`

const seed = `
	INSERT INTO screens (id, name, seat_rows, seat_cols)
	VALUES (1, 'Screen One', 2, 5);

	INSERT INTO seats (id, screen_id, seat_row, seat_col)
	SELECT (r - 1) * 5 + c, 1, r, c
	FROM generate_series(1, 2) AS r, generate_series(1, 5) AS c;

	INSERT INTO shows (id, movie_id, screen_id, start_time, price)
	VALUES (1, 1, 1, '2025-06-01T19:00:00Z', 250.00);
`

func getDbContainer(ctx context.Context) (*PostgresContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        dbImageName,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       dbName,
			"POSTGRES_USER":     dbUser,
			"POSTGRES_PASSWORD": dbPassword,
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections"),
			wait.ForListeningPort("5432/tcp"),
			wait.ForSQL("5432/tcp", "pgx", func(host string, port nat.Port) string {
				return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
					dbUser, dbPassword, host, port.Port(), dbName)
			}),
		).WithDeadline(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start DB container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		dbUser,
		dbPassword,
		host,
		port.Port(),
		dbName,
	)

	err = setupSchema(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to set up schema: %w", err)
	}

	dbContainer := &PostgresContainer{
		Container:        &postgres.PostgresContainer{Container: container},
		ConnectionString: connStr,
	}

	return dbContainer, nil
}

func setupSchema(ctx context.Context, dsn string) error {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("schema DDL failed: %w", err)
	}

	if _, err := pool.Exec(ctx, seed); err != nil {
		return fmt.Errorf("seed data failed: %w", err)
	}

	return nil
}

func getCacheContainer(ctx context.Context) (*RedisContainer, error) {
	container, err := tcredis.Run(ctx, cacheImageName)
	if err != nil {
		return nil, fmt.Errorf("failed to start cache container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	connStr := fmt.Sprintf("%s:%s", host, port.Port())

	cacheContainer := &RedisContainer{
		Container:        container,
		ConnectionString: connStr,
	}

	return cacheContainer, nil
}
