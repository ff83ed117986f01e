package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lumingya/universal-web-api/profile"
	"github.com/lumingya/universal-web-api/workflow"
)

// Save encodes the current steps back into an action list and persists
// it. New steps get placeholder selector keys which are merged into the
// profile's selector map alongside the workflow.
//
// The mutex is released for the persistence call itself, so the editor
// stays interactive while a save is in flight over a slow network. Edits
// made mid-save only affect what the next save encodes.
//
// When persistence fails the encoded profile is not lost: it is copied to
// the clipboard tagged with host and timestamp, and if even that fails it
// is shown on screen for manual copying.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.Lock()
	if !e.attached {
		e.mu.Unlock()
		return fmt.Errorf("editor: not attached")
	}
	steps := e.col.Steps()
	records, added := workflow.Encode(steps, e.profile.Selectors, e.cfg.SelectorIDs)
	selectors := mergedSelectors(e.profile.Selectors, added)
	stealth := e.profile.Stealth
	stepIDs := make([]string, len(steps))
	for i, s := range steps {
		stepIDs[i] = s.ID
	}
	e.mu.Unlock()

	err := e.persist(ctx, records, added, selectors, stealth)

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.attached {
		// Torn down while the save was in flight; nothing left to sync.
		return err
	}

	if err == nil {
		// Keep the in-memory profile and the steps in sync so a second
		// save reuses the placeholder keys instead of minting new ones.
		for k, v := range added {
			e.profile.Selectors[k] = v
		}
		e.profile.Workflow = records
		e.backfillSourceKeysLocked(stepIDs, records)
		e.surface.Notice(e.ctx, fmt.Sprintf("Workflow saved (%d actions).", len(records)))
		e.logger.Info("editor: saved", "host", e.cfg.Host,
			"actions", len(records), "new_selectors", len(added))
		return nil
	}

	e.logger.Warn("editor: save failed, falling back", "host", e.cfg.Host, "error", err)
	e.fallbackLocked(records, selectors)
	return err
}

// persist runs without e.mu held; it only touches the snapshots taken by
// Save and the immutable session config.
func (e *Editor) persist(ctx context.Context, records []workflow.ActionRecord, added, selectors map[string]string, stealth bool) error {
	if e.cfg.Saver == nil {
		return fmt.Errorf("editor: no profile store configured")
	}

	err := e.cfg.Saver.ReplaceWorkflow(ctx, e.cfg.Host, records, added)
	if errors.Is(err, profile.ErrNotFound) {
		// First save for this host: store the whole profile.
		p := &workflow.SiteProfile{
			Selectors: selectors,
			Workflow:  records,
			Stealth:   stealth,
		}
		return e.cfg.Saver.Put(ctx, e.cfg.Host, p)
	}
	return err
}

// backfillSourceKeysLocked assigns the selector keys chosen during encode
// back to their steps. Encode emits non-wait records in step order, so the
// i-th non-wait record belongs to the i-th snapshotted step; steps removed
// mid-save are skipped.
func (e *Editor) backfillSourceKeysLocked(stepIDs []string, records []workflow.ActionRecord) {
	i := 0
	for _, rec := range records {
		if rec.Action == workflow.ActionWait {
			continue
		}
		if i >= len(stepIDs) {
			break
		}
		if s := e.col.Get(stepIDs[i]); s != nil && s.Config.SourceKey == "" {
			s.Config.SourceKey = rec.Target
		}
		i++
	}
}

// fallbackLocked offers the encoded profile through the clipboard, or as
// on-screen text when the clipboard is unavailable.
func (e *Editor) fallbackLocked(records []workflow.ActionRecord, selectors map[string]string) {
	payload := exportPayload{
		Host:      e.cfg.Host,
		SavedAt:   time.Now().Format(time.RFC3339),
		Selectors: selectors,
		Workflow:  records,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		e.logger.Error("editor: encode fallback payload", "error", err)
		return
	}

	if err := e.surface.SetClipboard(e.ctx, string(data)); err == nil {
		e.surface.Notice(e.ctx, "Saving failed; the workflow was copied to your clipboard instead.")
		return
	}

	e.surface.PresentText(e.ctx,
		fmt.Sprintf("Workflow for %s (copy manually)", e.cfg.Host),
		string(data))
}

// exportPayload is the clipboard/manual-copy form of a saved workflow.
type exportPayload struct {
	Host      string                  `json:"host"`
	SavedAt   string                  `json:"saved_at"`
	Selectors map[string]string       `json:"selectors"`
	Workflow  []workflow.ActionRecord `json:"workflow"`
}

// Export returns the same payload Save would fall back to, for callers
// that want the workflow without persisting it.
func (e *Editor) Export() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.attached {
		return nil, fmt.Errorf("editor: not attached")
	}
	records, added := workflow.Encode(e.col.Steps(), e.profile.Selectors, e.cfg.SelectorIDs)
	return json.MarshalIndent(exportPayload{
		Host:      e.cfg.Host,
		SavedAt:   time.Now().Format(time.RFC3339),
		Selectors: mergedSelectors(e.profile.Selectors, added),
		Workflow:  records,
	}, "", "  ")
}

func mergedSelectors(base, added map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(added))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range added {
		out[k] = v
	}
	return out
}
