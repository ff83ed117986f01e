package editor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lumingya/universal-web-api/locator"
	"github.com/lumingya/universal-web-api/workflow"
)

// Surface is the in-page overlay: step markers, notices, and picker
// chrome. The live implementation injects a script into the Chrome tab;
// tests substitute a fake.
type Surface interface {
	// Init installs the overlay into the page.
	Init(ctx context.Context) error
	// RenderSteps redraws all step markers.
	RenderSteps(ctx context.Context, steps []workflow.Step) error
	// SetVisible shows or hides the whole overlay without removing it.
	SetVisible(ctx context.Context, visible bool) error
	// Notice shows a transient message to the user.
	Notice(ctx context.Context, text string) error
	// PresentText displays a titled text block the user can copy manually.
	PresentText(ctx context.Context, title, body string) error
	// SetClipboard writes text to the system clipboard.
	SetClipboard(ctx context.Context, text string) error
	// ArmPicker switches the page into element-picking mode.
	ArmPicker(ctx context.Context) error
	// DisarmPicker leaves element-picking mode and clears any highlight.
	DisarmPicker(ctx context.Context) error
	// PickedElement returns the element the user just confirmed and clears
	// the in-page marking. Nil when nothing is marked.
	PickedElement(ctx context.Context) (locator.Element, error)
	// Teardown removes the overlay from the page entirely.
	Teardown(ctx context.Context) error
}

// Event is one user interaction relayed from the overlay script.
type Event struct {
	Type    string  `json:"type"`
	StepID  string  `json:"step_id,omitempty"`
	Kind    string  `json:"kind,omitempty"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
	DelayMs int     `json:"delay_ms,omitempty"`
	Radius  int     `json:"radius,omitempty"`
	Text    string  `json:"text,omitempty"`
}

// Overlay event types. Destructive actions (remove, clear) are confirmed
// in the page before the event is sent.
const (
	EventDragStart   = "drag_start"
	EventDragMove    = "drag_move"
	EventDragEnd     = "drag_end"
	EventPickHover   = "pick_hover"
	EventPickLeave   = "pick_leave"
	EventPickConfirm = "pick_confirm"
	EventPickCancel  = "pick_cancel"
	EventAddStep     = "add_step"
	EventRemoveStep  = "remove_step"
	EventSetDelay    = "set_delay"
	EventSetRadius   = "set_radius"
	EventSetText     = "set_text"
	EventRetarget    = "retarget"
	EventClearAll    = "clear_all"
	EventSave        = "save"
	EventReload      = "reload"
	EventHide        = "hide"
)

// decodeEvent parses one overlay binding payload.
func decodeEvent(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, err
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("event without type")
	}
	return ev, nil
}
