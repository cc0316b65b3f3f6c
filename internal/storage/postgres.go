package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/mockbank/bankbot/internal/config"
	"github.com/mockbank/bankbot/internal/logger"
	"log/slog"
)

// Connect opens the database connection, configures the pool, and verifies connectivity.
func Connect(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	took := time.Since(start)
	if err != nil {
		logger.DB.Error("db connect failed",
			slog.String("event", "db.connect"),
			slog.String("host", cfg.Host),
			slog.String("port", cfg.Port),
			slog.String("db", cfg.Name),
			slog.Duration("duration", logger.RoundMS(took)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)

	logger.DB.Info("db connected",
		slog.String("event", "db.connect"),
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
		slog.Int("pool_open", cfg.MaxConnections),
		slog.Duration("duration", logger.RoundMS(took)),
	)

	return db, nil
}

// WaitForPostgres tries to connect to the DB until it is ready or timeout is reached.
func WaitForPostgres(dsn string, timeout time.Duration) error {
	start := time.Now()
	var lastErr error
	for {
		db, err := sql.Open("postgres", dsn)
		if err == nil {
			if err = db.Ping(); err == nil {
				_ = db.Close()
				return nil
			}
			_ = db.Close()
		}
		lastErr = err
		if time.Since(start) > timeout {
			return fmt.Errorf("timeout reached waiting for database: %w", lastErr)
		}
		time.Sleep(2 * time.Second)
	}
}

// PostgresAccounts implements Accounts on top of sqlx.
type PostgresAccounts struct {
	db *sqlx.DB
}

// NewPostgresAccounts wraps the shared connection pool.
func NewPostgresAccounts(db *sqlx.DB) *PostgresAccounts {
	return &PostgresAccounts{db: db}
}

// FindOrCreate returns the account row, inserting a default one if absent.
func (s *PostgresAccounts) FindOrCreate(ctx context.Context, userID int64) (Account, error) {
	const insert = `INSERT INTO accounts (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, insert, userID); err != nil {
		return Account{}, fmt.Errorf("accounts insert: %w", err)
	}

	const query = `SELECT user_id, balance, last_transaction, version FROM accounts WHERE user_id = $1`
	var acc Account
	if err := s.db.GetContext(ctx, &acc, query, userID); err != nil {
		return Account{}, fmt.Errorf("accounts select: %w", err)
	}
	return acc, nil
}

// Update writes balance and last_transaction conditioned on the observed version.
func (s *PostgresAccounts) Update(ctx context.Context, userID, balance int64, lastTransaction string, version int64) error {
	const update = `
		UPDATE accounts
		SET balance = $2, last_transaction = $3, version = version + 1
		WHERE user_id = $1 AND version = $4`
	res, err := s.db.ExecContext(ctx, update, userID, balance, lastTransaction, version)
	if err != nil {
		return fmt.Errorf("accounts update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("accounts update rows: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	return nil
}

var _ Accounts = (*PostgresAccounts)(nil)
