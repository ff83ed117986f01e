// Package locator resolves selector reference strings against a page and
// synthesizes durable references for concrete elements.
//
// The page is an interface with two implementations: a live Chrome tab
// (RodPage) and a parsed HTML document (HTMLDoc) used for headless tests
// and offline profile validation. Resolution policy and synthesis behave
// identically on both, so the picker and execution-time lookup agree.
package locator

import (
	"github.com/lumingya/universal-web-api/workflow"
)

// Rect is an element's bounding box in viewport coordinates.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Center returns the box midpoint.
func (r Rect) Center() workflow.Point {
	return workflow.Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Element is a located page element.
type Element interface {
	// Tag returns the lower-case tag name.
	Tag() string
	// Attr returns an attribute value, empty when absent.
	Attr(name string) string
	// Rect returns the bounding box; ok is false when layout information
	// is unavailable (detached nodes, parsed documents).
	Rect() (Rect, bool)
}

// HTMLer is implemented by elements that can serialize their own markup.
// The read-step preview uses it when available.
type HTMLer interface {
	HTML() (string, error)
}

// Page is the queryable document surface.
type Page interface {
	// QueryAll returns every element matching the selector in document
	// order. A selector syntax error returns a non-nil error.
	QueryAll(selector string) ([]Element, error)
	// Viewport returns the visible page area.
	Viewport() workflow.Viewport
}

// Locate resolves a reference string to a single element.
//
// An empty reference returns nil. When the reference matches more than one
// element the last match in document order wins: content that grows by
// appending (fresh messages, streamed output) renders its newest nodes
// last, so "last" approximates "most recent". Syntax errors fail soft and
// return nil.
func Locate(p Page, ref string) Element {
	if ref == "" {
		return nil
	}
	els, err := p.QueryAll(ref)
	if err != nil || len(els) == 0 {
		return nil
	}
	return els[len(els)-1]
}

// AnchorPoint returns the element's bounding-box center in viewport
// coordinates. A nil element, or one without layout, anchors at the
// viewport center so callers can still place a marker.
func AnchorPoint(p Page, el Element) workflow.Point {
	if el == nil {
		return p.Viewport().Center()
	}
	r, ok := el.Rect()
	if !ok {
		return p.Viewport().Center()
	}
	return r.Center()
}

// ResolverFor adapts a page to the transcoder's Resolver interface.
func ResolverFor(p Page) workflow.Resolver {
	return pageResolver{p: p}
}

type pageResolver struct {
	p Page
}

func (r pageResolver) Resolves(ref string) bool {
	if ref == "" {
		return false
	}
	els, err := r.p.QueryAll(ref)
	return err == nil && len(els) > 0
}

// Invalid names one selector-map entry that matches nothing on the page.
type Invalid struct {
	Key    string `json:"key"`
	Ref    string `json:"ref"`
	Reason string `json:"reason"`
}

// ValidateSelectors checks every entry of a profile's selector map against
// the page and reports the ones that resolve to zero elements.
func ValidateSelectors(p Page, selectors map[string]string) []Invalid {
	var out []Invalid
	for key, ref := range selectors {
		if ref == "" {
			out = append(out, Invalid{Key: key, Reason: "empty selector"})
			continue
		}
		els, err := p.QueryAll(ref)
		switch {
		case err != nil:
			out = append(out, Invalid{Key: key, Ref: ref, Reason: "invalid selector syntax"})
		case len(els) == 0:
			out = append(out, Invalid{Key: key, Ref: ref, Reason: "matches no element"})
		}
	}
	return out
}
