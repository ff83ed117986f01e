// Package profile persists site profiles: the per-hostname selector map,
// workflow action list, and stealth level that the editor loads and saves.
//
// A Registry fronts a SQLite store and exposes its operations over HTTP
// (chi routes) and MCP tools. The editor talks to a Registry either
// in-process or through Client, which implements the same Saver surface
// over HTTP.
//
// Usage:
//
//	r, err := profile.New(cfg, logger)
//	defer r.Close()
//	r.Routes(router)
//	r.RegisterMCP(mcpServer)
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lumingya/universal-web-api/profile/internal/store"
	"github.com/lumingya/universal-web-api/workflow"
)

// ErrNotFound is returned when a host has no stored profile.
var ErrNotFound = errors.New("profile: not found")

// Config holds the profile registry configuration.
type Config struct {
	DBPath string `json:"db_path" yaml:"db_path"`

	// AuthHash is the bcrypt hash required by the HTTP write endpoints.
	// Empty disables auth.
	AuthHash string `json:"auth_hash" yaml:"auth_hash"`
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		c.DBPath = "profiles.db"
	}
}

// Registry is the site profile orchestrator.
type Registry struct {
	store  *store.Store
	logger *slog.Logger
	config *Config
}

// New creates a Registry. Opens the SQLite database and initialises the schema.
func New(cfg *Config, logger *slog.Logger) (*Registry, error) {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	return &Registry{
		store:  s,
		logger: logger,
		config: cfg,
	}, nil
}

// Close shuts down the registry and closes the database.
func (r *Registry) Close() error {
	return r.store.Close()
}

// Store returns the underlying store for direct access (testing, admin).
func (r *Registry) Store() *store.Store {
	return r.store
}

// Get retrieves the profile for a host. Returns ErrNotFound when absent,
// and a decode error when the stored JSON is malformed.
func (r *Registry) Get(ctx context.Context, host string) (*workflow.SiteProfile, error) {
	rec, err := r.store.Get(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("profile: get %s: %w", host, err)
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return decodeRecord(rec)
}

// Put stores the complete profile for a host, replacing any existing one.
func (r *Registry) Put(ctx context.Context, host string, p *workflow.SiteProfile) error {
	rec, err := encodeRecord(host, p)
	if err != nil {
		return err
	}
	if err := r.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("profile: put %s: %w", host, err)
	}
	r.logger.Info("profile: stored", "host", host, "actions", len(p.Workflow))
	return nil
}

// ReplaceWorkflow swaps the workflow for a host and merges the selector
// entries in added into the stored selector map. The rest of the profile
// is untouched. Returns ErrNotFound when the host has no profile.
func (r *Registry) ReplaceWorkflow(ctx context.Context, host string, records []workflow.ActionRecord, added map[string]string) error {
	wf, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("profile: encode workflow: %w", err)
	}
	if added == nil {
		added = map[string]string{}
	}
	sel, err := json.Marshal(added)
	if err != nil {
		return fmt.Errorf("profile: encode selectors: %w", err)
	}

	ok, err := r.store.ReplaceWorkflow(ctx, host, string(wf), string(sel))
	if err != nil {
		return fmt.Errorf("profile: replace workflow %s: %w", host, err)
	}
	if !ok {
		return ErrNotFound
	}
	r.logger.Info("profile: workflow replaced", "host", host,
		"actions", len(records), "new_selectors", len(added))
	return nil
}

// Delete removes the profile for a host.
func (r *Registry) Delete(ctx context.Context, host string) error {
	if err := r.store.Delete(ctx, host); err != nil {
		return fmt.Errorf("profile: delete %s: %w", host, err)
	}
	return nil
}

// Entry is a profile listing row.
type Entry struct {
	Host      string `json:"host"`
	Actions   int    `json:"actions"`
	Selectors int    `json:"selectors"`
	UpdatedAt int64  `json:"updated_at"`
}

// List returns a summary of all stored profiles, newest first.
func (r *Registry) List(ctx context.Context, limit int) ([]*Entry, error) {
	recs, err := r.store.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("profile: list: %w", err)
	}
	entries := make([]*Entry, 0, len(recs))
	for _, rec := range recs {
		var selectors map[string]string
		var actions []workflow.ActionRecord
		json.Unmarshal([]byte(rec.Selectors), &selectors)
		json.Unmarshal([]byte(rec.Workflow), &actions)
		entries = append(entries, &Entry{
			Host:      rec.Host,
			Actions:   len(actions),
			Selectors: len(selectors),
			UpdatedAt: rec.UpdatedAt,
		})
	}
	return entries, nil
}

func decodeRecord(rec *store.Record) (*workflow.SiteProfile, error) {
	p := &workflow.SiteProfile{Stealth: rec.Stealth != 0}
	if err := json.Unmarshal([]byte(rec.Selectors), &p.Selectors); err != nil {
		return nil, fmt.Errorf("profile: decode selectors for %s: %w", rec.Host, err)
	}
	if err := json.Unmarshal([]byte(rec.Workflow), &p.Workflow); err != nil {
		return nil, fmt.Errorf("profile: decode workflow for %s: %w", rec.Host, err)
	}
	if p.Selectors == nil {
		p.Selectors = map[string]string{}
	}
	return p, nil
}

func encodeRecord(host string, p *workflow.SiteProfile) (*store.Record, error) {
	selectors := p.Selectors
	if selectors == nil {
		selectors = map[string]string{}
	}
	sel, err := json.Marshal(selectors)
	if err != nil {
		return nil, fmt.Errorf("profile: encode selectors: %w", err)
	}
	wf, err := json.Marshal(p.Workflow)
	if err != nil {
		return nil, fmt.Errorf("profile: encode workflow: %w", err)
	}
	stealth := 0
	if p.Stealth {
		stealth = 1
	}
	return &store.Record{
		Host:      host,
		Selectors: string(sel),
		Workflow:  string(wf),
		Stealth:   stealth,
	}, nil
}
