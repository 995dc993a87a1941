package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"notifyd/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

const defaultRetention = 168 * time.Hour

type sqliteJournal struct {
	db  *sql.DB
	log logx.Logger

	retention  time.Duration
	opCount    atomic.Uint64
	pruneEvery uint64
}

func openSQLite(cfg Config, log logx.Logger) (Journal, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	retention := cfg.Retention
	if retention <= 0 {
		retention = defaultRetention
	}
	j := &sqliteJournal{db: db, log: log, retention: retention, pruneEvery: 500}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 2 * time.Second
	}
	_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()))
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := j.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *sqliteJournal) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = j.db.ExecContext(ctx, string(b))
	return err
}

func (j *sqliteJournal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func (j *sqliteJournal) Append(ctx context.Context, e Entry) error {
	if j == nil || j.db == nil {
		return ErrDisabled
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	ok := 0
	if e.OK {
		ok = 1
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO activity(at, kind, op, target, ok, err, took_ms)
		 VALUES(?,?,?,?,?,?,?)`,
		e.At.UTC().Format(time.RFC3339Nano), e.Kind, e.Op, nullStr(e.Target), ok, nullStr(e.Error), e.TookMS,
	)
	if err == nil && j.opCount.Add(1)%j.pruneEvery == 0 {
		pctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		if perr := j.pruneExpired(pctx); perr != nil && !j.log.IsZero() {
			j.log.Debug("journal prune failed", logx.Err(perr))
		}
		cancel()
	}
	return err
}

func (j *sqliteJournal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if j == nil || j.db == nil {
		return nil, ErrDisabled
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT at, kind, op, target, ok, err, took_ms
		 FROM activity ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e      Entry
			at     string
			target sql.NullString
			ok     int
			errMsg sql.NullString
		)
		if err := rows.Scan(&at, &e.Kind, &e.Op, &target, &ok, &errMsg, &e.TookMS); err != nil {
			return nil, err
		}
		if t, perr := time.Parse(time.RFC3339Nano, at); perr == nil {
			e.At = t
		}
		e.Target = target.String
		e.OK = ok != 0
		e.Error = errMsg.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *sqliteJournal) pruneExpired(ctx context.Context) error {
	horizon := time.Now().Add(-j.retention).UTC().Format(time.RFC3339Nano)
	_, err := j.db.ExecContext(ctx, `DELETE FROM activity WHERE at < ?`, horizon)
	return err
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
