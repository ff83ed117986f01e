// Package editor implements the interactive workflow editor: an overlay
// projected into a live page where automation steps appear as draggable
// markers, elements are bound by pointing at them, and the result is
// saved back to the site profile store.
//
// All state lives behind a single mutex; overlay events, MCP tools and
// programmatic calls are serialised through it, so the collection and the
// picker never see concurrent mutation.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/lumingya/universal-web-api/capture"
	"github.com/lumingya/universal-web-api/idgen"
	"github.com/lumingya/universal-web-api/locator"
	"github.com/lumingya/universal-web-api/profile"
	"github.com/lumingya/universal-web-api/workflow"
)

// ErrHostMismatch means the loaded page belongs to a different host than
// the editing session was started for. Editing would save a workflow
// against the wrong profile, so this is fatal.
var ErrHostMismatch = errors.New("editor: page host does not match session host")

// Saver persists site profiles. Both the in-process registry and its HTTP
// client satisfy it.
type Saver interface {
	Get(ctx context.Context, host string) (*workflow.SiteProfile, error)
	Put(ctx context.Context, host string, p *workflow.SiteProfile) error
	ReplaceWorkflow(ctx context.Context, host string, records []workflow.ActionRecord, added map[string]string) error
}

// Config configures an editing session.
type Config struct {
	// Host is the hostname this session edits. The attached page must
	// match.
	Host string

	Saver  Saver
	Logger *slog.Logger

	// StepIDs and SelectorIDs override the default ID generators.
	StepIDs     idgen.Generator
	SelectorIDs idgen.Generator
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.SelectorIDs == nil {
		c.SelectorIDs = idgen.Prefixed("sel_", idgen.NanoID(6))
	}
}

// Editor is one editing session over one page.
type Editor struct {
	mu     sync.Mutex
	cfg    Config
	logger *slog.Logger

	page    locator.Page
	surface Surface

	col       *workflow.Collection
	profile   *workflow.SiteProfile
	previewer *capture.Previewer

	picker picker
	drag   dragState

	ctx      context.Context
	cancel   context.CancelFunc
	visible  bool
	attached bool
}

// New creates an Editor. Call Attach to bind it to a page.
func New(cfg Config) *Editor {
	cfg.defaults()
	return &Editor{cfg: cfg, logger: cfg.Logger, previewer: capture.NewPreviewer()}
}

// Attach binds the editor to a page and its overlay surface, loads the
// host's profile, projects the stored workflow as step markers, and shows
// the overlay.
//
// A page whose host differs from the session host is rejected with
// ErrHostMismatch. A missing profile starts an empty session; a malformed
// one is reported and also starts empty rather than destroying the stored
// data on the next save refusal.
func (e *Editor) Attach(ctx context.Context, page locator.Page, surface Surface, pageHost string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.attached {
		return fmt.Errorf("editor: already attached")
	}
	if e.cfg.Host != "" && pageHost != e.cfg.Host {
		return fmt.Errorf("%w: session %q, page %q", ErrHostMismatch, e.cfg.Host, pageHost)
	}

	e.page = page
	e.surface = surface
	e.ctx, e.cancel = context.WithCancel(context.Background())

	prof, loadWarning := e.loadProfile(ctx)
	missing := e.projectLocked(prof)

	if err := surface.Init(e.ctx); err != nil {
		e.cancel()
		return fmt.Errorf("editor: install overlay: %w", err)
	}
	e.attached = true
	e.visible = true
	e.renderLocked()

	if loadWarning != "" {
		e.surface.Notice(e.ctx, loadWarning)
	}
	if len(missing) > 0 {
		e.surface.Notice(e.ctx, missingNotice(missing))
	}

	e.logger.Info("editor: attached",
		"host", pageHost, "steps", e.col.Len(), "unresolved", len(missing))
	return nil
}

// projectLocked rebuilds the step collection from a profile's workflow,
// anchoring each step to its resolved element. Returns the references
// that did not resolve.
func (e *Editor) projectLocked(prof *workflow.SiteProfile) []workflow.MissingRef {
	e.profile = prof

	e.col = workflow.NewCollection(e.page.Viewport(), e.cfg.StepIDs)
	e.col.OnChange = e.renderLocked

	drafts, missing := workflow.Decode(*prof, locator.ResolverFor(e.page))
	for _, d := range drafts {
		s := e.col.Add(d.Kind, d.Config)
		if el := locator.Locate(e.page, d.Config.SelectorRef); el != nil {
			anchor := locator.AnchorPoint(e.page, el)
			e.col.Move(s.ID, anchor.X-workflow.MarkerSize/2, anchor.Y-workflow.MarkerSize/2)
		}
		if d.Warning != "" {
			e.col.SetWarning(s.ID, d.Warning)
		}
	}
	return missing
}

// Reload discards all unsaved edits and rebuilds the session from the
// stored profile. Any picker or drag session in flight is cancelled.
func (e *Editor) Reload(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.attached {
		return fmt.Errorf("editor: not attached")
	}
	e.stopPickLocked()
	e.drag = dragState{}

	prof, loadWarning := e.loadProfile(ctx)
	missing := e.projectLocked(prof)
	e.renderLocked()

	if loadWarning != "" {
		e.surface.Notice(e.ctx, loadWarning)
	}
	if len(missing) > 0 {
		e.surface.Notice(e.ctx, missingNotice(missing))
	}
	e.logger.Info("editor: reloaded", "host", e.cfg.Host, "steps", e.col.Len())
	return nil
}

// loadProfile fetches the host's profile, degrading to an empty one when
// it is absent or unreadable.
func (e *Editor) loadProfile(ctx context.Context) (*workflow.SiteProfile, string) {
	empty := &workflow.SiteProfile{Selectors: map[string]string{}}
	if e.cfg.Saver == nil {
		return empty, ""
	}

	prof, err := e.cfg.Saver.Get(ctx, e.cfg.Host)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return empty, ""
		}
		e.logger.Warn("editor: load profile failed", "host", e.cfg.Host, "error", err)
		return empty, "Stored profile could not be read; starting with an empty workflow."
	}
	if prof.Selectors == nil {
		prof.Selectors = map[string]string{}
	}
	return prof, ""
}

// missingNotice folds all unresolved references into one message instead
// of one popup per step.
func missingNotice(missing []workflow.MissingRef) string {
	parts := make([]string, 0, len(missing))
	for _, m := range missing {
		if m.Ref != "" {
			parts = append(parts, fmt.Sprintf("%s (%s)", m.Key, m.Ref))
		} else {
			parts = append(parts, m.Key)
		}
	}
	return fmt.Sprintf("%d selector reference(s) did not resolve on this page: %s",
		len(missing), strings.Join(parts, ", "))
}

// Teardown cancels any picker or drag in flight, removes the overlay and
// ends the session. Safe to call more than once.
func (e *Editor) Teardown() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.attached {
		return nil
	}
	e.stopPickLocked()
	e.drag = dragState{}
	err := e.surface.Teardown(e.ctx)
	e.cancel()
	e.attached = false
	e.logger.Info("editor: torn down", "host", e.cfg.Host)
	return err
}

// Show makes the overlay visible again after Hide.
func (e *Editor) Show() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.attached || e.visible {
		return
	}
	e.visible = true
	e.surface.SetVisible(e.ctx, true)
	e.renderLocked()
}

// Hide conceals the overlay without discarding session state. An active
// pick or drag is cancelled first.
func (e *Editor) Hide() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.attached || !e.visible {
		return
	}
	e.stopPickLocked()
	e.drag = dragState{}
	e.visible = false
	e.surface.SetVisible(e.ctx, false)
}

// AddStep appends a step of the given kind and immediately starts a pick
// session so the user can bind it to an element. Returns the new step.
func (e *Editor) AddStep(kind workflow.StepKind) *workflow.Step {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.attached {
		return nil
	}
	s := e.col.Add(kind, workflow.StepConfig{})
	e.col.SetWarning(s.ID, "no element bound yet")
	e.startPickLocked(s.ID)
	return s
}

// AddBoundStep adds a step already bound to a selector, for programmatic
// callers that cannot run an interactive pick. The marker anchors to the
// located element, or carries a warning when the selector matches nothing.
func (e *Editor) AddBoundStep(kind workflow.StepKind, ref, text string, delayMs int) (*workflow.Step, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.attached {
		return nil, fmt.Errorf("editor: not attached")
	}

	cfg := workflow.StepConfig{SelectorRef: ref, DelayMs: delayMs}
	if kind == workflow.KindInput {
		cfg.Text = text
	}
	s := e.col.Add(kind, cfg)

	if el := locator.Locate(e.page, ref); el != nil {
		anchor := locator.AnchorPoint(e.page, el)
		e.col.Move(s.ID, anchor.X-workflow.MarkerSize/2, anchor.Y-workflow.MarkerSize/2)
	} else {
		e.col.SetWarning(s.ID, fmt.Sprintf("selector %q matches no element", ref))
	}
	return s, nil
}

// RemoveStep deletes a step. The overlay confirms destructive actions
// before sending the event, so this applies unconditionally.
func (e *Editor) RemoveStep(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.attached {
		return false
	}
	if e.picker.stepID == id {
		e.stopPickLocked()
	}
	if e.drag.stepID == id {
		e.drag = dragState{}
	}
	return e.col.Remove(id)
}

// ClearAll removes every step.
func (e *Editor) ClearAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.attached {
		return
	}
	e.stopPickLocked()
	e.drag = dragState{}
	e.col.Clear()
}

// SetDelay updates a step's pre-execution delay.
func (e *Editor) SetDelay(id string, delayMs int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.attached {
		return false
	}
	return e.col.SetDelay(id, delayMs)
}

// SetText updates the text an input step types.
func (e *Editor) SetText(id, text string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.attached {
		return false
	}
	s := e.col.Get(id)
	if s == nil || s.Kind != workflow.KindInput {
		return false
	}
	s.Config.Text = text
	e.renderLocked()
	return true
}

// SetRandomRadius updates the click jitter radius, in pixels. Only click
// steps carry one.
func (e *Editor) SetRandomRadius(id string, radius int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.attached || radius < 0 {
		return false
	}
	s := e.col.Get(id)
	if s == nil || s.Kind != workflow.KindClick {
		return false
	}
	s.Config.RandomRadius = radius
	e.renderLocked()
	return true
}

// StartPick begins an element-pick session for an existing step. Any pick
// already in progress is cancelled first.
func (e *Editor) StartPick(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.attached || e.col.Get(id) == nil {
		return false
	}
	e.startPickLocked(id)
	return true
}

// Steps returns a snapshot of the current steps in sequence order.
func (e *Editor) Steps() []workflow.Step {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.col == nil {
		return nil
	}
	return e.col.Steps()
}

// Host returns the session host.
func (e *Editor) Host() string { return e.cfg.Host }

// Revalidate re-checks every step's selector against the live page,
// updating warnings and re-anchoring markers whose elements moved.
func (e *Editor) Revalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.attached {
		return
	}
	for _, s := range e.col.Steps() {
		ref := s.Config.SelectorRef
		if ref == "" {
			continue
		}
		el := locator.Locate(e.page, ref)
		if el == nil {
			e.col.SetWarning(s.ID, fmt.Sprintf("selector %q matches no element", ref))
			continue
		}
		e.col.ClearWarning(s.ID)
		anchor := locator.AnchorPoint(e.page, el)
		e.col.Move(s.ID, anchor.X-workflow.MarkerSize/2, anchor.Y-workflow.MarkerSize/2)
	}
}

// PreviewRead returns a markdown preview of the content a read step
// currently captures, so the user can judge the selector before saving.
func (e *Editor) PreviewRead(id string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.attached {
		return "", fmt.Errorf("editor: not attached")
	}
	s := e.col.Get(id)
	if s == nil || s.Kind != workflow.KindRead {
		return "", fmt.Errorf("editor: no read step with id %q", id)
	}
	el := locator.Locate(e.page, s.Config.SelectorRef)
	if el == nil {
		return "", fmt.Errorf("editor: selector %q matches no element", s.Config.SelectorRef)
	}
	h, ok := el.(locator.HTMLer)
	if !ok {
		return "", fmt.Errorf("editor: element does not expose markup")
	}
	raw, err := h.HTML()
	if err != nil {
		return "", fmt.Errorf("editor: read element markup: %w", err)
	}
	return e.previewer.Preview(raw), nil
}

// HandleEvent dispatches one overlay event. The surface's binding
// listener calls this for every message the injected script sends.
func (e *Editor) HandleEvent(ev Event) {
	switch ev.Type {
	case EventDragStart:
		e.dragStart(ev.StepID, ev.X, ev.Y)
	case EventDragMove:
		e.dragMove(ev.X, ev.Y)
	case EventDragEnd:
		e.dragEnd()
	case EventPickHover:
		e.pickHover()
	case EventPickLeave:
		e.pickLeave()
	case EventPickConfirm:
		e.pickConfirm()
	case EventPickCancel:
		e.CancelPick()
	case EventAddStep:
		e.AddStep(workflow.StepKind(ev.Kind))
	case EventRemoveStep:
		e.RemoveStep(ev.StepID)
	case EventSetDelay:
		e.SetDelay(ev.StepID, ev.DelayMs)
	case EventSetRadius:
		e.SetRandomRadius(ev.StepID, ev.Radius)
	case EventSetText:
		e.SetText(ev.StepID, ev.Text)
	case EventRetarget:
		e.StartPick(ev.StepID)
	case EventClearAll:
		e.ClearAll()
	case EventSave:
		// Runs off the event loop so overlay events keep flowing while the
		// persistence call is in flight.
		go e.Save(context.Background())
	case EventReload:
		e.Reload(context.Background())
	case EventHide:
		e.Hide()
	default:
		e.logger.Debug("editor: unknown overlay event", "type", ev.Type)
	}
}

// renderLocked pushes the current steps to the overlay. Collection
// mutations trigger it via OnChange; callers already hold the lock.
func (e *Editor) renderLocked() {
	if e.surface == nil || !e.attached || !e.visible {
		return
	}
	if err := e.surface.RenderSteps(e.ctx, e.col.Steps()); err != nil {
		e.logger.Warn("editor: render failed", "error", err)
	}
}
