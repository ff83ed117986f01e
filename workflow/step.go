package workflow

// StepKind identifies the editable step variants. Each non-wait action type
// maps to exactly one kind; waits are folded into DelayMs instead.
type StepKind string

const (
	KindClick StepKind = "click"
	KindInput StepKind = "input"
	KindRead  StepKind = "read"
)

// ActionFor returns the persisted action type for a step kind.
func (k StepKind) ActionFor() ActionType {
	switch k {
	case KindInput:
		return ActionFillInput
	case KindRead:
		return ActionStreamWait
	default:
		return ActionClick
	}
}

// KindFor maps an action type to its step kind. The second return is false
// for actions with no visual representation (waits, key presses, unknown).
func KindFor(a ActionType) (StepKind, bool) {
	switch a {
	case ActionClick:
		return KindClick, true
	case ActionFillInput:
		return KindInput, true
	case ActionStreamWait, ActionStreamOutput:
		return KindRead, true
	default:
		return "", false
	}
}

// Validity records whether a step's configured selector resolved at last check.
type Validity struct {
	Warning bool   `json:"warning"`
	Reason  string `json:"reason,omitempty"`
}

// StepConfig is the type-dependent configuration bag of a step.
//
// DelayMs, SelectorRef and SourceKey apply to every kind; RandomRadius only
// to Click, Text only to Input. SourceKey correlates the step back to a
// named selector in the site profile; it is empty for steps added in the
// editor until save synthesizes a placeholder key.
type StepConfig struct {
	DelayMs      int    `json:"delay_ms"`
	RandomRadius int    `json:"random_radius,omitempty"`
	Text         string `json:"text,omitempty"`
	SelectorRef  string `json:"selector_ref,omitempty"`
	SourceKey    string `json:"source_key,omitempty"`
	Optional     bool   `json:"optional,omitempty"`
}

// Step is one editable automation step: plain data, serializable, no
// rendering concerns. The marker layer subscribes to collection changes to
// draw it.
type Step struct {
	ID       string     `json:"id"`
	Kind     StepKind   `json:"kind"`
	Sequence int        `json:"sequence"`
	Pos      Point      `json:"pos"`
	Config   StepConfig `json:"config"`
	Validity Validity   `json:"validity"`
}
