// Package workflow defines the automation workflow data model: the action
// records persisted inside site profiles, the step entities the visual
// editor manipulates, and the transcoding between the two representations.
package workflow

// ActionType identifies one kind of persisted workflow instruction.
type ActionType string

const (
	// ActionWait pauses execution; Value holds the duration in seconds.
	ActionWait ActionType = "WAIT"
	// ActionClick clicks the element named by Target.
	ActionClick ActionType = "CLICK"
	// ActionFillInput types text into the element named by Target.
	ActionFillInput ActionType = "FILL_INPUT"
	// ActionStreamWait watches the element named by Target for streamed output.
	ActionStreamWait ActionType = "STREAM_WAIT"
	// ActionStreamOutput is a legacy alias of ActionStreamWait still present
	// in older stored profiles.
	ActionStreamOutput ActionType = "STREAM_OUTPUT"
	// ActionKeyPress simulates a key press. The visual editor cannot
	// represent it: decode skips it, other consumers must keep it.
	ActionKeyPress ActionType = "KEY_PRESS"
)

// ActionRecord is one persisted workflow instruction, the execution-oriented
// representation consumed by the automation engine.
type ActionRecord struct {
	Action   ActionType `json:"action"`
	Target   string     `json:"target"`
	Optional bool       `json:"optional"`
	Value    *string    `json:"value"`
}

// SiteProfile is the per-host configuration aggregate: a map from symbolic
// selector keys to selector strings, plus the ordered workflow.
type SiteProfile struct {
	Selectors map[string]string `json:"selectors"`
	Workflow  []ActionRecord    `json:"workflow"`
	Stealth   bool              `json:"stealth,omitempty"`
}

// Well-known selector keys shared with the automation engine.
const (
	KeyInputBox            = "input_box"
	KeySendBtn             = "send_btn"
	KeyResultContainer     = "result_container"
	KeyNewChatBtn          = "new_chat_btn"
	KeyMessageWrapper      = "message_wrapper"
	KeyGeneratingIndicator = "generating_indicator"
)

// DefaultWorkflow is the workflow used for hosts without a configured one.
func DefaultWorkflow() []ActionRecord {
	half := "0.5"
	return []ActionRecord{
		{Action: ActionClick, Target: KeyNewChatBtn, Optional: true},
		{Action: ActionWait, Value: &half},
		{Action: ActionFillInput, Target: KeyInputBox},
		{Action: ActionClick, Target: KeySendBtn, Optional: true},
		{Action: ActionKeyPress, Target: "Enter", Optional: true},
		{Action: ActionStreamWait, Target: KeyResultContainer},
	}
}

// Point is a 2D screen coordinate in CSS pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Viewport is the visible page area in CSS pixels.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the viewport midpoint.
func (v Viewport) Center() Point {
	return Point{X: v.Width / 2, Y: v.Height / 2}
}

// MarkerSize is the edge length of a step marker box in CSS pixels.
// Step positions are the marker's top-left corner, clamped so the whole
// marker stays inside the viewport.
const MarkerSize = 28
