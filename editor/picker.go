package editor

import (
	"github.com/lumingya/universal-web-api/locator"
	"github.com/lumingya/universal-web-api/workflow"
)

// pickerState tracks the element-pick session. Exactly one session can be
// active; starting another cancels the first.
type pickerState int

const (
	pickerIdle pickerState = iota
	pickerArmed
	pickerHovering
)

type picker struct {
	state  pickerState
	stepID string
}

// startPickLocked arms a pick session for a step, cancelling any session
// already in flight. Caller holds e.mu.
func (e *Editor) startPickLocked(stepID string) {
	if e.picker.state != pickerIdle {
		e.logger.Debug("editor: pick superseded",
			"old_step", e.picker.stepID, "new_step", stepID)
	}
	e.picker = picker{state: pickerArmed, stepID: stepID}
	if err := e.surface.ArmPicker(e.ctx); err != nil {
		e.logger.Warn("editor: arm picker failed", "error", err)
		e.picker = picker{}
	}
}

// stopPickLocked ends any pick session and clears picker chrome from the
// page. Every exit path of a session funnels through here.
func (e *Editor) stopPickLocked() {
	if e.picker.state == pickerIdle {
		return
	}
	e.picker = picker{}
	if err := e.surface.DisarmPicker(e.ctx); err != nil {
		e.logger.Warn("editor: disarm picker failed", "error", err)
	}
}

func (e *Editor) pickHover() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.picker.state == pickerArmed {
		e.picker.state = pickerHovering
	}
}

func (e *Editor) pickLeave() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.picker.state == pickerHovering {
		e.picker.state = pickerArmed
	}
}

// pickConfirm resolves the element the user clicked, synthesizes a
// reference for it, and binds it to the session's step. The session ends
// whether or not binding succeeds.
func (e *Editor) pickConfirm() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.picker.state == pickerIdle {
		return
	}
	stepID := e.picker.stepID
	el, err := e.surface.PickedElement(e.ctx)
	e.stopPickLocked()

	if err != nil {
		e.logger.Warn("editor: read picked element failed", "error", err)
		e.surface.Notice(e.ctx, "Could not read the selected element; try again.")
		return
	}
	if el == nil {
		e.surface.Notice(e.ctx, "No element selected.")
		return
	}

	ref := locator.Synthesize(e.page, el)
	s := e.col.Get(stepID)
	if s == nil {
		return
	}
	s.Config.SelectorRef = ref
	e.col.ClearWarning(stepID)

	anchor := locator.AnchorPoint(e.page, el)
	e.col.Move(stepID, anchor.X-workflow.MarkerSize/2, anchor.Y-workflow.MarkerSize/2)
	e.logger.Info("editor: element bound", "step", stepID, "ref", ref)
}

// CancelPick aborts the active pick session without binding anything.
func (e *Editor) CancelPick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopPickLocked()
}

// Picking reports whether a pick session is active.
func (e *Editor) Picking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.picker.state != pickerIdle
}
