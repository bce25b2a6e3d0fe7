// Package store keeps a history of endpoint test runs in a SQL database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/denisenkom/go-mssqldb" // for sqlserver
	_ "github.com/go-sql-driver/mysql"   // for mysql
	_ "github.com/lib/pq"                // for postgres

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andreipetrus/first-base-api-dochancer/internal/config"
	"github.com/andreipetrus/first-base-api-dochancer/internal/reporter"
)

// Run is one stored test run.
type Run struct {
	ID         string    `json:"id"`
	BaseURL    string    `json:"baseUrl"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Total      int       `json:"total"`
	Success    int       `json:"success"`
	Warnings   int       `json:"warnings"`
	Failures   int       `json:"failures"`
}

// Store persists test runs.
type Store struct {
	db      *sql.DB
	dialect dialect
	logger  *zap.Logger
}

// DSN builds the driver connection string for cfg.
func DSN(cfg config.StoreConfig) (string, error) {
	switch cfg.Type {
	case "postgres":
		sslMode := cfg.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, sslMode), nil
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database), nil
	case "sqlserver":
		return fmt.Sprintf("server=%s;port=%d;user id=%s;password=%s;database=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database), nil
	default:
		return "", fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (*Store, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	d, _ := dialectFor(cfg.Type)

	db, err := sql.Open(cfg.Type, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Store{db: db, dialect: d, logger: logger.Named("store")}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the history tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate history tables: %w", err)
		}
	}
	return nil
}

// SaveRun stores a report and its per-endpoint results in one transaction.
func (s *Store) SaveRun(ctx context.Context, report *reporter.Report, startedAt time.Time) (*Run, error) {
	run := &Run{
		ID:         uuid.NewString(),
		BaseURL:    report.BaseURL,
		StartedAt:  startedAt.UTC(),
		FinishedAt: report.Timestamp.UTC(),
		Total:      report.TotalTests,
		Success:    report.Success,
		Warnings:   report.Warnings,
		Failures:   report.Failures,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.dialect.rebind(insertRun),
		run.ID, run.BaseURL, run.StartedAt, run.FinishedAt, run.Total, run.Success, run.Warnings, run.Failures)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.dialect.rebind(insertResult))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range report.Results {
		_, err := stmt.ExecContext(ctx, run.ID, i, r.Method, r.Path, r.Status, r.StatusCode, r.Message, r.Duration.Milliseconds())
		if err != nil {
			return nil, fmt.Errorf("failed to insert result for %s %s: %w", r.Method, r.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit run: %w", err)
	}
	s.logger.Info("Stored test run", zap.String("run_id", run.ID), zap.Int("results", len(report.Results)))
	return run, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(s.dialect.recentRuns()), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.BaseURL, &r.StartedAt, &r.FinishedAt, &r.Total, &r.Success, &r.Warnings, &r.Failures); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
