package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
)

// schema is applied at startup. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                   BIGINT AUTO_INCREMENT PRIMARY KEY,
		username             VARCHAR(15)  NOT NULL,
		email                VARCHAR(255) NULL,
		password_hash        VARCHAR(255) NOT NULL,
		security_answer_hash VARCHAR(255) NULL,
		is_admin             BOOLEAN      NOT NULL DEFAULT FALSE,
		created_at           DATETIME(3)  NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		UNIQUE KEY users_username (username),
		UNIQUE KEY users_email (email)
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id          BIGINT AUTO_INCREMENT PRIMARY KEY,
		created_at  DATETIME(3)    NOT NULL,
		ride_to     VARCHAR(255)   NOT NULL,
		ride_from   VARCHAR(255)   NOT NULL,
		ride_at     DATETIME       NOT NULL,
		fare        DECIMAL(10, 2) NOT NULL,
		author_id   BIGINT         NOT NULL,
		status      VARCHAR(16)    NOT NULL DEFAULT 'active',
		flag_reason VARCHAR(255)   NULL,
		KEY posts_author_id (author_id),
		KEY posts_created_at (created_at),
		CONSTRAINT posts_author_fk FOREIGN KEY (author_id) REFERENCES users (id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS ride_requests (
		id         BIGINT AUTO_INCREMENT PRIMARY KEY,
		post_id    BIGINT      NOT NULL,
		user_id    BIGINT      NOT NULL,
		created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		UNIQUE KEY ride_requests_post_user (post_id, user_id),
		CONSTRAINT ride_requests_post_fk FOREIGN KEY (post_id) REFERENCES posts (id) ON DELETE CASCADE,
		CONSTRAINT ride_requests_user_fk FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	)`,
}

// NewDB creates a new MySQL connection pool. The DSN is normalized so DATETIME
// columns scan into time.Time in UTC and UPDATE reports matched rows.
func NewDB(dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connector: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

// Migrate creates the tables that do not exist yet inside a single transaction.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning migration: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration: %w", err)
	}

	slog.Info("database schema ready", "tables", len(schema))
	return nil
}
