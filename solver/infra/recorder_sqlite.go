package infra

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"solver-gateway/solver/domain"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persiste o histórico de execuções num banco SQLite.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteRecorder abre (ou cria) o banco e roda as migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// WAL: /ui/runs lê enquanto os runners escrevem.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS solver_runs (
			id          TEXT PRIMARY KEY,
			session     TEXT NOT NULL,
			rn          REAL,
			delta       REAL,
			iterations  INTEGER,
			loss        REAL,
			converged   INTEGER,
			status      TEXT,
			error       TEXT,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_finished ON solver_runs(finished_at)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(ctx context.Context, run domain.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	converged := 0
	if run.Converged {
		converged = 1
	}
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO solver_runs
		(id, session, rn, delta, iterations, loss, converged, status, error, started_at, finished_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		run.ID, string(run.Session), run.RN, run.Delta, run.Iterations, run.Loss,
		converged, string(run.Status), run.Error,
		run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(),
	)
	return err
}

// RecentRuns devolve as últimas execuções, mais recentes primeiro.
func (r *SQLiteRecorder) RecentRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT
		id, session, rn, delta, iterations, loss, converged, status, error, started_at, finished_at
		FROM solver_runs ORDER BY finished_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []domain.Run
	for rows.Next() {
		var (
			run               domain.Run
			session, status   string
			converged         int
			started, finished int64
			errText           sql.NullString
		)
		if err := rows.Scan(&run.ID, &session, &run.RN, &run.Delta, &run.Iterations, &run.Loss,
			&converged, &status, &errText, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Session = domain.SessionKey(session)
		run.Status = domain.JobStatus(status)
		run.Converged = converged == 1
		run.Error = errText.String
		run.StartedAt = time.UnixMilli(started)
		run.FinishedAt = time.UnixMilli(finished)
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}
