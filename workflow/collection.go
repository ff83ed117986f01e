package workflow

import (
	"github.com/lumingya/universal-web-api/idgen"
)

// Collection is the ordered registry of step entities. It owns sequence
// numbering: after any mutation the sequence values form a contiguous 1..N
// ordering and the step at sequence 1 has zero delay.
//
// Collection is not safe for concurrent use; the editor serialises all
// access behind its own lock.
type Collection struct {
	vp    Viewport
	gen   idgen.Generator
	steps []*Step

	// OnChange, when set, is called after every mutation. The marker layer
	// uses it to re-render without the data model importing presentation.
	OnChange func()
}

// NewCollection creates an empty collection for the given viewport.
// gen may be nil, in which case a short NanoID generator is used.
func NewCollection(vp Viewport, gen idgen.Generator) *Collection {
	if gen == nil {
		gen = idgen.Prefixed("step_", idgen.NanoID(8))
	}
	return &Collection{vp: vp, gen: gen}
}

// Viewport returns the viewport the collection clamps positions to.
func (c *Collection) Viewport() Viewport { return c.vp }

// SetViewport updates the viewport and re-clamps every position.
func (c *Collection) SetViewport(vp Viewport) {
	c.vp = vp
	for _, s := range c.steps {
		s.Pos = c.clamp(s.Pos)
	}
	c.changed()
}

// Len returns the number of steps.
func (c *Collection) Len() int { return len(c.steps) }

// Add creates a step of the given kind at the next sequence number, with a
// default position staggered from prior steps so fresh markers do not
// overlap. The first step always has zero delay.
func (c *Collection) Add(kind StepKind, cfg StepConfig) *Step {
	seq := len(c.steps) + 1
	if seq == 1 {
		cfg.DelayMs = 0
	}
	if cfg.DelayMs < 0 {
		cfg.DelayMs = 0
	}

	s := &Step{
		ID:       c.gen(),
		Kind:     kind,
		Sequence: seq,
		Pos:      c.clamp(c.staggeredPos(seq - 1)),
		Config:   cfg,
	}
	c.steps = append(c.steps, s)
	c.changed()
	return s
}

// Get returns the step with the given ID, or nil.
func (c *Collection) Get(id string) *Step {
	for _, s := range c.steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Remove deletes the step with the given ID and renumbers the remainder to
// a contiguous 1..N sequence. Returns false if the ID is unknown.
func (c *Collection) Remove(id string) bool {
	for i, s := range c.steps {
		if s.ID == id {
			c.steps = append(c.steps[:i], c.steps[i+1:]...)
			c.renumber()
			c.changed()
			return true
		}
	}
	return false
}

// Clear removes every step.
func (c *Collection) Clear() {
	c.steps = nil
	c.changed()
}

// Move repositions a step, clamping the coordinates so the whole marker
// stays inside the viewport. Returns false if the ID is unknown.
func (c *Collection) Move(id string, x, y float64) bool {
	s := c.Get(id)
	if s == nil {
		return false
	}
	s.Pos = c.clamp(Point{X: x, Y: y})
	c.changed()
	return true
}

// SetDelay sets a step's delay in milliseconds. The delay of the step at
// sequence 1 is pinned to zero regardless of the requested value.
func (c *Collection) SetDelay(id string, delayMs int) bool {
	s := c.Get(id)
	if s == nil {
		return false
	}
	if delayMs < 0 {
		delayMs = 0
	}
	if s.Sequence == 1 {
		delayMs = 0
	}
	s.Config.DelayMs = delayMs
	c.changed()
	return true
}

// SetWarning marks a step's configured selector as unresolved. Idempotent.
func (c *Collection) SetWarning(id, reason string) bool {
	s := c.Get(id)
	if s == nil {
		return false
	}
	if s.Validity.Warning && s.Validity.Reason == reason {
		return true
	}
	s.Validity = Validity{Warning: true, Reason: reason}
	c.changed()
	return true
}

// ClearWarning resets a step to valid. Idempotent.
func (c *Collection) ClearWarning(id string) bool {
	s := c.Get(id)
	if s == nil {
		return false
	}
	if !s.Validity.Warning {
		return true
	}
	s.Validity = Validity{}
	c.changed()
	return true
}

// Steps returns copies of all steps in sequence order.
func (c *Collection) Steps() []Step {
	out := make([]Step, len(c.steps))
	for i, s := range c.steps {
		out[i] = *s
	}
	return out
}

// renumber reassigns contiguous 1..N sequence numbers in current order and
// re-asserts the zero-delay invariant on whichever step lands at sequence 1.
func (c *Collection) renumber() {
	for i, s := range c.steps {
		s.Sequence = i + 1
		if s.Sequence == 1 {
			s.Config.DelayMs = 0
		}
	}
}

// staggeredPos spreads default marker positions diagonally so consecutive
// additions stay individually grabbable.
func (c *Collection) staggeredPos(index int) Point {
	const base, stride = 40.0, 24.0
	span := c.vp.Width - 2*base - MarkerSize
	if span < stride {
		span = stride
	}
	offset := float64(index) * stride
	wraps := 0.0
	for offset > span {
		offset -= span
		wraps++
	}
	return Point{X: base + offset, Y: base + offset/2 + wraps*stride}
}

func (c *Collection) clamp(p Point) Point {
	maxX := c.vp.Width - MarkerSize
	maxY := c.vp.Height - MarkerSize
	if maxX < 0 {
		maxX = 0
	}
	if maxY < 0 {
		maxY = 0
	}
	if p.X < 0 {
		p.X = 0
	}
	if p.X > maxX {
		p.X = maxX
	}
	if p.Y < 0 {
		p.Y = 0
	}
	if p.Y > maxY {
		p.Y = maxY
	}
	return p
}

func (c *Collection) changed() {
	if c.OnChange != nil {
		c.OnChange()
	}
}
