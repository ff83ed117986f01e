package editor

import (
	"github.com/lumingya/universal-web-api/workflow"
)

// dragState tracks the single marker drag in flight. The pointer offset
// from the marker's top-left corner is captured at drag start so the
// marker does not jump under the cursor.
type dragState struct {
	active bool
	stepID string
	dx, dy float64
}

func (e *Editor) dragStart(stepID string, x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.attached || e.drag.active {
		return
	}
	s := e.col.Get(stepID)
	if s == nil {
		return
	}
	// Read markers follow their element; repositioning them by hand would
	// be undone on the next revalidation.
	if s.Kind == workflow.KindRead {
		return
	}

	e.drag = dragState{
		active: true,
		stepID: stepID,
		dx:     x - s.Pos.X,
		dy:     y - s.Pos.Y,
	}
}

func (e *Editor) dragMove(x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.drag.active {
		return
	}
	e.col.Move(e.drag.stepID, x-e.drag.dx, y-e.drag.dy)
}

func (e *Editor) dragEnd() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.drag = dragState{}
}

// Dragging reports whether a marker drag is in flight.
func (e *Editor) Dragging() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drag.active
}
