package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Record is a persisted site profile row. Selectors and Workflow hold
// the JSON-encoded selector map and action list.
type Record struct {
	Host      string `json:"host"`
	Selectors string `json:"selectors"` // JSON: key -> CSS selector
	Workflow  string `json:"workflow"`  // JSON: ordered action records
	Stealth   int    `json:"stealth"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// Put inserts or replaces the profile for a host.
func (s *Store) Put(ctx context.Context, r *Record) error {
	now := time.Now().UnixMilli()
	if r.CreatedAt == 0 {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO site_profiles (host, selectors, workflow, stealth, created_at, updated_at)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(host) DO UPDATE SET
			selectors=excluded.selectors, workflow=excluded.workflow,
			stealth=excluded.stealth, updated_at=excluded.updated_at`,
		r.Host, r.Selectors, r.Workflow, r.Stealth, r.CreatedAt, r.UpdatedAt,
	)
	return err
}

// Get retrieves the profile for a host. Returns (nil, nil) when absent.
func (s *Store) Get(ctx context.Context, host string) (*Record, error) {
	r := &Record{}
	err := s.DB.QueryRowContext(ctx, `
		SELECT host, selectors, workflow, stealth, created_at, updated_at
		FROM site_profiles WHERE host = ?`, host).Scan(
		&r.Host, &r.Selectors, &r.Workflow, &r.Stealth, &r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ReplaceWorkflow swaps the workflow JSON for a host and merges new
// selector entries, leaving the rest of the profile untouched.
// Returns sql.ErrNoRows via ok=false when the host has no profile yet.
func (s *Store) ReplaceWorkflow(ctx context.Context, host, workflowJSON, selectorsJSON string) (bool, error) {
	now := time.Now().UnixMilli()
	res, err := s.DB.ExecContext(ctx, `
		UPDATE site_profiles
		SET workflow = ?, selectors = json_patch(selectors, ?), updated_at = ?
		WHERE host = ?`,
		workflowJSON, selectorsJSON, now, host,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes the profile for a host.
func (s *Store) Delete(ctx context.Context, host string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM site_profiles WHERE host = ?`, host)
	return err
}

// List returns all profiles ordered by most recently updated.
func (s *Store) List(ctx context.Context, limit int) ([]*Record, error) {
	query := `SELECT host, selectors, workflow, stealth, created_at, updated_at
	          FROM site_profiles ORDER BY updated_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		r := &Record{}
		if err := rows.Scan(&r.Host, &r.Selectors, &r.Workflow, &r.Stealth, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Count returns the total number of stored profiles.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM site_profiles`).Scan(&n)
	return n, err
}
