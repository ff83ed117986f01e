package editor

import (
	"testing"

	"github.com/lumingya/universal-web-api/locator"
	"github.com/lumingya/universal-web-api/workflow"
)

func pickElement(t *testing.T, e *Editor, selector string) locator.Element {
	t.Helper()
	el := locator.Locate(e.page, selector)
	if el == nil {
		t.Fatalf("fixture element %q not found", selector)
	}
	return el
}

func TestPickConfirmBindsStep(t *testing.T) {
	surface := &fakeSurface{}
	e := attach(t, newFakeSaver(), surface)

	s := e.AddStep(workflow.KindClick)
	surface.picked = pickElement(t, e, "#send")

	e.HandleEvent(Event{Type: EventPickHover})
	e.HandleEvent(Event{Type: EventPickConfirm})

	if e.Picking() {
		t.Fatal("pick session still active after confirm")
	}
	got := e.Steps()[0]
	if got.Config.SelectorRef != "#send" {
		t.Fatalf("got ref %q, want %q", got.Config.SelectorRef, "#send")
	}
	if got.Validity.Warning {
		t.Fatalf("bound step still flagged: %s", got.Validity.Reason)
	}
	_ = s
}

func TestPickCancelLeavesStepUnbound(t *testing.T) {
	surface := &fakeSurface{}
	e := attach(t, newFakeSaver(), surface)

	e.AddStep(workflow.KindClick)
	e.HandleEvent(Event{Type: EventPickCancel})

	if e.Picking() {
		t.Fatal("pick session still active after cancel")
	}
	got := e.Steps()[0]
	if got.Config.SelectorRef != "" {
		t.Fatalf("cancel bound a selector: %q", got.Config.SelectorRef)
	}
	if !got.Validity.Warning {
		t.Fatal("unbound step lost its warning")
	}
	if surface.disarmed == 0 {
		t.Fatal("picker chrome not cleared on cancel")
	}
}

func TestPickMutualExclusion(t *testing.T) {
	surface := &fakeSurface{}
	e := attach(t, newFakeSaver(), surface)

	first := e.AddStep(workflow.KindClick)
	second := e.AddStep(workflow.KindInput)

	// The second session supersedes the first; confirming now must bind
	// the second step only.
	surface.picked = pickElement(t, e, "#prompt")
	e.HandleEvent(Event{Type: EventPickConfirm})

	steps := e.Steps()
	if steps[0].ID != first.ID || steps[0].Config.SelectorRef != "" {
		t.Fatalf("superseded session bound the first step: %+v", steps[0])
	}
	if steps[1].ID != second.ID {
		t.Fatalf("unexpected order: %+v", steps)
	}
	if steps[1].Config.SelectorRef == "" {
		t.Fatal("active session did not bind the second step")
	}
}

func TestPickHoverTransitions(t *testing.T) {
	e := attach(t, newFakeSaver(), &fakeSurface{})

	e.AddStep(workflow.KindClick)
	if e.picker.state != pickerArmed {
		t.Fatalf("got state %d, want armed", e.picker.state)
	}

	e.HandleEvent(Event{Type: EventPickHover})
	if e.picker.state != pickerHovering {
		t.Fatalf("got state %d, want hovering", e.picker.state)
	}

	e.HandleEvent(Event{Type: EventPickLeave})
	if e.picker.state != pickerArmed {
		t.Fatalf("got state %d, want armed after leave", e.picker.state)
	}

	// Hover without an armed session is a no-op.
	e.HandleEvent(Event{Type: EventPickCancel})
	e.HandleEvent(Event{Type: EventPickHover})
	if e.picker.state != pickerIdle {
		t.Fatalf("hover out of session changed state to %d", e.picker.state)
	}
}

func TestPickConfirmWithoutElement(t *testing.T) {
	surface := &fakeSurface{}
	e := attach(t, newFakeSaver(), surface)

	e.AddStep(workflow.KindClick)
	surface.picked = nil
	e.HandleEvent(Event{Type: EventPickConfirm})

	if e.Picking() {
		t.Fatal("session survived a failed confirm")
	}
	got := e.Steps()[0]
	if got.Config.SelectorRef != "" {
		t.Fatalf("nothing was picked but a ref was bound: %q", got.Config.SelectorRef)
	}
	if len(surface.notices) == 0 {
		t.Fatal("failed confirm produced no notice")
	}
}

func TestPickAnchorsMarkerToElement(t *testing.T) {
	surface := &fakeSurface{}
	e := attach(t, newFakeSaver(), surface)

	e.AddStep(workflow.KindClick)
	surface.picked = pickElement(t, e, "#send")
	e.HandleEvent(Event{Type: EventPickConfirm})

	// Parsed documents carry no layout, so the anchor falls back to the
	// viewport center.
	got := e.Steps()[0].Pos
	vp := e.page.Viewport()
	wantX := vp.Width/2 - workflow.MarkerSize/2
	wantY := vp.Height/2 - workflow.MarkerSize/2
	if got.X != wantX || got.Y != wantY {
		t.Fatalf("got pos (%v,%v), want (%v,%v)", got.X, got.Y, wantX, wantY)
	}
}

func TestRemoveStepCancelsItsPick(t *testing.T) {
	e := attach(t, newFakeSaver(), &fakeSurface{})

	s := e.AddStep(workflow.KindClick)
	if !e.Picking() {
		t.Fatal("pick session not started")
	}
	e.RemoveStep(s.ID)
	if e.Picking() {
		t.Fatal("pick session survived removal of its step")
	}
}
