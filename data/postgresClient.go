package data

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/finhold/holdings_engine/config"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

const (
	pgConnAttempts   = 10
	pgConnRetryDelay = time.Second
)

// NewPostgresClient connects to the transaction store with retries, applies
// pending migrations and returns the pool. The holdings tables must exist
// before any job runs, so failure here is fatal.
func NewPostgresClient(cfg *config.Config) *sqlx.DB {
	dsn := fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=disable password=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.DbName,
		cfg.Postgres.Password,
	)

	var db *sqlx.DB
	var err error

	for attempt := 1; attempt <= pgConnAttempts; attempt++ {
		db, err = sqlx.Connect("pgx", dsn)
		if err == nil {
			break
		}

		slog.Info("waiting for postgres", slog.Int("attempt", attempt), slog.Int("maxAttempts", pgConnAttempts))
		time.Sleep(pgConnRetryDelay)
	}

	if err != nil {
		slog.Error("postgres is unreachable", slog.String("err", err.Error()))
		panic(err)
	}

	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxIdleTime(time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second)

	slog.Info("postgres connected")

	migratePostgres(db, cfg.Postgres.MigrationDir)
	slog.Info("postgres migrations applied")

	return db
}

func migratePostgres(db *sqlx.DB, migrationDir string) {
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		slog.Error("migration driver init failed", slog.String("err", err.Error()))
		panic(err)
	}

	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationDir), "postgres", driver)
	if err != nil {
		slog.Error("migration source init failed", slog.String("err", err.Error()), slog.String("migrationDir", migrationDir))
		panic(err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		slog.Error("migration up failed", slog.String("err", err.Error()))
		panic(err)
	}
}
