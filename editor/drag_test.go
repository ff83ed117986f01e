package editor

import (
	"testing"

	"github.com/lumingya/universal-web-api/workflow"
)

func TestDragMovesWithPointerOffset(t *testing.T) {
	e := attach(t, newFakeSaver(), &fakeSurface{})

	s, err := e.AddBoundStep(workflow.KindClick, "#send", "", 0)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	start := e.Steps()[0].Pos

	// Grab 5px into the marker; the marker must keep that offset under
	// the pointer instead of snapping its corner to it.
	e.HandleEvent(Event{Type: EventDragStart, StepID: s.ID, X: start.X + 5, Y: start.Y + 5})
	if !e.Dragging() {
		t.Fatal("drag did not start")
	}
	e.HandleEvent(Event{Type: EventDragMove, X: 300, Y: 200})

	got := e.Steps()[0].Pos
	if got.X != 295 || got.Y != 195 {
		t.Fatalf("got pos (%v,%v), want (295,195)", got.X, got.Y)
	}

	e.HandleEvent(Event{Type: EventDragEnd})
	if e.Dragging() {
		t.Fatal("drag still active after end")
	}
}

func TestDragClampsToViewport(t *testing.T) {
	e := attach(t, newFakeSaver(), &fakeSurface{})

	s, _ := e.AddBoundStep(workflow.KindClick, "#send", "", 0)
	start := e.Steps()[0].Pos
	e.HandleEvent(Event{Type: EventDragStart, StepID: s.ID, X: start.X, Y: start.Y})

	e.HandleEvent(Event{Type: EventDragMove, X: -100, Y: -100})
	got := e.Steps()[0].Pos
	if got.X != 0 || got.Y != 0 {
		t.Fatalf("negative drag not clamped to origin: (%v,%v)", got.X, got.Y)
	}

	vp := e.page.Viewport()
	e.HandleEvent(Event{Type: EventDragMove, X: vp.Width + 50, Y: vp.Height + 50})
	got = e.Steps()[0].Pos
	if got.X != vp.Width-workflow.MarkerSize || got.Y != vp.Height-workflow.MarkerSize {
		t.Fatalf("overflow drag not clamped: (%v,%v)", got.X, got.Y)
	}
}

func TestDragSingleSession(t *testing.T) {
	e := attach(t, newFakeSaver(), &fakeSurface{})

	a, _ := e.AddBoundStep(workflow.KindClick, "#send", "", 0)
	b, _ := e.AddBoundStep(workflow.KindClick, "#prompt", "", 0)

	posA := e.Steps()[0].Pos
	posB := e.Steps()[1].Pos
	e.HandleEvent(Event{Type: EventDragStart, StepID: a.ID, X: posA.X, Y: posA.Y})
	e.HandleEvent(Event{Type: EventDragStart, StepID: b.ID, X: posB.X, Y: posB.Y})
	e.HandleEvent(Event{Type: EventDragMove, X: 400, Y: 400})

	if got := e.Steps()[1].Pos; got != posB {
		t.Fatalf("second drag_start hijacked the session: %+v", got)
	}
	if got := e.Steps()[0].Pos; got.X != 400 || got.Y != 400 {
		t.Fatalf("first session lost the move: %+v", got)
	}
}

func TestReadMarkersNotDraggable(t *testing.T) {
	e := attach(t, newFakeSaver(), &fakeSurface{})

	s, _ := e.AddBoundStep(workflow.KindRead, "div.message.bot", "", 0)
	pos := e.Steps()[0].Pos

	e.HandleEvent(Event{Type: EventDragStart, StepID: s.ID, X: pos.X, Y: pos.Y})
	if e.Dragging() {
		t.Fatal("read marker started a drag")
	}
	e.HandleEvent(Event{Type: EventDragMove, X: 500, Y: 500})
	if got := e.Steps()[0].Pos; got != pos {
		t.Fatalf("read marker moved: %+v", got)
	}
}
