package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var runColumns = []string{
	"id", "run_date", "status", "request", "digest_md", "logs", "errors", "error",
	"created_at", "started_at", "finished_at",
}

// CreateRun inserts a queued run. request is stored as JSON.
func (db *DB) CreateRun(id, runDate string, request any) error {
	reqJSON, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	_, err = db.conn.Exec(
		`INSERT INTO runs (id, run_date, status, request, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, runDate, string(RunQueued), string(reqJSON), now(),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", id, err)
	}
	return nil
}

// MarkRunRunning moves a run to running and stamps started_at.
func (db *DB) MarkRunRunning(id string) error {
	return db.updateRun(id, map[string]any{
		"status":     string(RunRunning),
		"started_at": now(),
	})
}

// FinishRun stores the outcome of a successful run.
func (db *DB) FinishRun(id string, out RunOutcome) error {
	logs, err := encodeList(out.Logs)
	if err != nil {
		return err
	}
	errs, err := encodeList(out.Errors)
	if err != nil {
		return err
	}
	return db.updateRun(id, map[string]any{
		"status":      string(RunDone),
		"finished_at": now(),
		"digest_md":   out.DigestMD,
		"logs":        logs,
		"errors":      errs,
	})
}

// FailRun records a run that could not complete.
func (db *DB) FailRun(id, reason string, logs []string) error {
	encoded, err := encodeList(logs)
	if err != nil {
		return err
	}
	return db.updateRun(id, map[string]any{
		"status":      string(RunFailed),
		"finished_at": now(),
		"error":       reason,
		"logs":        encoded,
	})
}

func (db *DB) updateRun(id string, fields map[string]any) error {
	query, args, err := sq.Update("runs").SetMap(fields).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("building run update: %w", err)
	}
	res, err := db.conn.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("updating run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("updating run %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetRun returns a run by id, or nil when it does not exist.
func (db *DB) GetRun(id string) (*Run, error) {
	query, args, err := sq.Select(runColumns...).From("runs").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	r, err := scanRun(db.conn.QueryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListRuns returns runs newest first.
func (db *DB) ListRuns(f RunFilter) ([]Run, error) {
	q := sq.Select(runColumns...).From("runs").OrderBy("created_at DESC", "id DESC")
	if f.Status != "" {
		q = q.Where(sq.Eq{"status": string(f.Status)})
	}
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// CountRunsByStatus returns the number of runs in each status.
func (db *DB) CountRunsByStatus() (map[RunStatus]int, error) {
	rows, err := db.conn.Query("SELECT status, COUNT(*) FROM runs GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[RunStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[RunStatus(status)] = n
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		r                     Run
		status, request       string
		logs, errs            sql.NullString
		createdAt             string
		startedAt, finishedAt sql.NullString
	)
	if err := s.Scan(&r.ID, &r.RunDate, &status, &request, &r.DigestMD, &logs, &errs, &r.Error,
		&createdAt, &startedAt, &finishedAt); err != nil {
		return nil, err
	}
	r.Status = RunStatus(status)
	r.Request = json.RawMessage(request)

	var err error
	if r.Logs, err = decodeList(logs); err != nil {
		return nil, fmt.Errorf("run %s logs: %w", r.ID, err)
	}
	if r.Errors, err = decodeList(errs); err != nil {
		return nil, fmt.Errorf("run %s errors: %w", r.ID, err)
	}
	if r.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("run %s created_at: %w", r.ID, err)
	}
	if r.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("run %s started_at: %w", r.ID, err)
	}
	if r.FinishedAt, err = parseTime(finishedAt); err != nil {
		return nil, fmt.Errorf("run %s finished_at: %w", r.ID, err)
	}
	return &r, nil
}

func now() string {
	return time.Now().UTC().Format(timeLayout)
}

func parseTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encoding list: %w", err)
	}
	return string(data), nil
}

func decodeList(s sql.NullString) ([]string, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}
