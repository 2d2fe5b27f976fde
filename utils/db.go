package utils

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

var DB *sql.DB

// InitDB initializes the PostgreSQL database connection
func InitDB(logger *zap.Logger) error {
	host := MustGetEnv("POSTGRES_HOST")
	port := GetEnvOrDefault("POSTGRES_PORT", "5432")
	user := MustGetEnv("POSTGRES_USER")
	password := MustGetEnv("POSTGRES_PASSWORD")
	dbname := MustGetEnv("POSTGRES_DB")
	sslmode := GetEnvOrDefault("POSTGRES_SSLMODE", "disable")

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)

	var err error
	DB, err = sql.Open("postgres", connStr)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := DB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established successfully")

	return nil
}

// CreateSchema creates the necessary database tables if they don't exist
func CreateSchema(logger *zap.Logger) error {
	if DB == nil {
		return fmt.Errorf("database connection is nil; call InitDB first")
	}

	ctx := context.Background()

	// Create analysis_reports table. One row per completed job run; a rerun
	// under the same session replaces the previous row.
	_, err := DB.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS analysis_reports (
            id SERIAL PRIMARY KEY,
            session_id VARCHAR(255) NOT NULL,
            kind VARCHAR(32) NOT NULL,
            file_name TEXT NOT NULL,
            model_key VARCHAR(128) NOT NULL,
            report JSONB NOT NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            UNIQUE(session_id, kind)
        )
    `)
	if err != nil {
		return fmt.Errorf("failed to create analysis_reports table: %w", err)
	}

	// Create job_failures table for errored runs
	_, err = DB.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS job_failures (
            id SERIAL PRIMARY KEY,
            session_id VARCHAR(255) NOT NULL,
            kind VARCHAR(32) NOT NULL,
            file_name TEXT NOT NULL,
            model_key VARCHAR(128) NOT NULL,
            error TEXT NOT NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return fmt.Errorf("failed to create job_failures table: %w", err)
	}

	// Create indexes
	_, err = DB.ExecContext(ctx, `
        CREATE INDEX IF NOT EXISTS idx_reports_session ON analysis_reports(session_id);
        CREATE INDEX IF NOT EXISTS idx_reports_created_at ON analysis_reports(created_at);
        CREATE INDEX IF NOT EXISTS idx_failures_session ON job_failures(session_id);
    `)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logger.Info("Database schema created successfully")
	return nil
}

// SaveReport upserts a completed report for a session
func SaveReport(ctx context.Context, sessionID, kind, fileName, modelKey string, reportJSON []byte) error {
	if DB == nil {
		return fmt.Errorf("database connection is nil; call InitDB first")
	}
	now := time.Now().UTC()
	_, err := DB.ExecContext(ctx, `
        INSERT INTO analysis_reports (session_id, kind, file_name, model_key, report, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (session_id, kind) DO UPDATE SET
            file_name = EXCLUDED.file_name,
            model_key = EXCLUDED.model_key,
            report = EXCLUDED.report,
            updated_at = EXCLUDED.updated_at
    `, sessionID, kind, fileName, modelKey, reportJSON, now, now)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// SaveFailure records an errored job run
func SaveFailure(ctx context.Context, sessionID, kind, fileName, modelKey, errMsg string) error {
	if DB == nil {
		return fmt.Errorf("database connection is nil; call InitDB first")
	}
	_, err := DB.ExecContext(ctx, `
        INSERT INTO job_failures (session_id, kind, file_name, model_key, error)
        VALUES ($1, $2, $3, $4, $5)
    `, sessionID, kind, fileName, modelKey, errMsg)
	if err != nil {
		return fmt.Errorf("failed to save failure: %w", err)
	}
	return nil
}

// CloseDB closes the database connection
func CloseDB(logger *zap.Logger) error {
	if DB != nil {
		logger.Info("Closing database connection")
		return DB.Close()
	}
	return nil
}
