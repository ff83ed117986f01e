package locator

import (
	"fmt"

	"github.com/go-rod/rod"

	"github.com/lumingya/universal-web-api/workflow"
)

// RodPage is a Page over a live Chrome tab. Selectors are evaluated by the
// browser itself, so the full CSS grammar is available; HTMLDoc's subset is
// the lowest common denominator the synthesizer sticks to.
type RodPage struct {
	page *rod.Page
	vp   workflow.Viewport
}

// NewRodPage wraps a rod page and samples its viewport.
func NewRodPage(page *rod.Page) (*RodPage, error) {
	p := &RodPage{page: page}
	if err := p.RefreshViewport(); err != nil {
		return nil, err
	}
	return p, nil
}

// RefreshViewport re-reads the window size. Call after resizes.
func (p *RodPage) RefreshViewport() error {
	res, err := p.page.Eval(`() => ({ w: window.innerWidth, h: window.innerHeight })`)
	if err != nil {
		return fmt.Errorf("locator: read viewport: %w", err)
	}
	p.vp = workflow.Viewport{
		Width:  res.Value.Get("w").Num(),
		Height: res.Value.Get("h").Num(),
	}
	return nil
}

// Viewport returns the last sampled window size.
func (p *RodPage) Viewport() workflow.Viewport { return p.vp }

// QueryAll returns all elements matching the selector in document order.
// Invalid selector syntax surfaces as the browser's evaluation error.
func (p *RodPage) QueryAll(selector string) ([]Element, error) {
	els, err := p.page.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("locator: query %q: %w", selector, err)
	}
	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = &rodElement{el: el}
	}
	return out, nil
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Tag() string {
	res, err := e.el.Eval(`() => this.tagName.toLowerCase()`)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

func (e *rodElement) Attr(name string) string {
	v, err := e.el.Attribute(name)
	if err != nil || v == nil {
		return ""
	}
	return *v
}

func (e *rodElement) Rect() (Rect, bool) {
	shape, err := e.el.Shape()
	if err != nil || shape == nil {
		return Rect{}, false
	}
	box := shape.Box()
	if box == nil || (box.Width == 0 && box.Height == 0) {
		return Rect{}, false
	}
	return Rect{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height}, true
}

// HTML returns the element's outer HTML, used for read-step previews.
func (e *rodElement) HTML() (string, error) {
	h, err := e.el.HTML()
	if err != nil {
		return "", fmt.Errorf("locator: element html: %w", err)
	}
	return h, nil
}
