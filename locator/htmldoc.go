package locator

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/lumingya/universal-web-api/workflow"
)

// HTMLDoc is a Page over a parsed HTML document. It supports the selector
// subset the editor synthesizes and site profiles commonly use:
//
//	tag, .class, #id, tag.class.class, tag#id,
//	[attr], [attr=val], [attr="val"], tag[attr=val],
//	descendant combinator (space-separated parts)
//
// Layout information is unavailable, so Rect reports ok=false and anchor
// points fall back to the viewport center.
type HTMLDoc struct {
	root *html.Node
	vp   workflow.Viewport
}

// ParseHTML parses a document for headless resolution and validation.
func ParseHTML(src string, vp workflow.Viewport) (*HTMLDoc, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("locator: parse html: %w", err)
	}
	return &HTMLDoc{root: root, vp: vp}, nil
}

// Viewport returns the synthetic viewport given at parse time.
func (d *HTMLDoc) Viewport() workflow.Viewport { return d.vp }

// QueryAll returns every element matching the selector in document order.
func (d *HTMLDoc) QueryAll(selector string) ([]Element, error) {
	parts := strings.Fields(selector)
	if len(parts) == 0 {
		return nil, fmt.Errorf("locator: empty selector")
	}

	parsed := make([]simpleSelector, len(parts))
	for i, part := range parts {
		s, err := parseSimpleSelector(part)
		if err != nil {
			return nil, err
		}
		parsed[i] = s
	}

	matches := matchSimple(d.root, parsed[0], true)
	for _, s := range parsed[1:] {
		seen := map[*html.Node]bool{}
		var next []*html.Node
		for _, parent := range matches {
			for _, n := range matchSimple(parent, s, false) {
				if !seen[n] {
					seen[n] = true
					next = append(next, n)
				}
			}
		}
		matches = next
	}

	out := make([]Element, len(matches))
	for i, n := range matches {
		out[i] = htmlElement{n: n}
	}
	return out, nil
}

type htmlElement struct {
	n *html.Node
}

func (e htmlElement) Tag() string {
	return strings.ToLower(e.n.Data)
}

func (e htmlElement) Attr(name string) string {
	for _, a := range e.n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func (e htmlElement) Rect() (Rect, bool) {
	return Rect{}, false
}

func (e htmlElement) HTML() (string, error) {
	var b strings.Builder
	if err := html.Render(&b, e.n); err != nil {
		return "", fmt.Errorf("locator: render node: %w", err)
	}
	return b.String(), nil
}

type simpleSelector struct {
	tag     string
	id      string
	classes []string
	attrKey string
	attrVal string
	hasAttr bool
}

// parseSimpleSelector parses one combinator-free selector part.
func parseSimpleSelector(sel string) (simpleSelector, error) {
	var s simpleSelector
	rest := sel

	// Attribute block: [attr] or [attr=val], value optionally quoted.
	if idx := strings.IndexByte(rest, '['); idx >= 0 {
		end := strings.IndexByte(rest, ']')
		if end < idx {
			return s, fmt.Errorf("locator: unterminated attribute selector %q", sel)
		}
		attrPart := rest[idx+1 : end]
		rest = rest[:idx] + rest[end+1:]
		if eq := strings.IndexByte(attrPart, '='); eq >= 0 {
			s.attrKey = attrPart[:eq]
			s.attrVal = strings.Trim(attrPart[eq+1:], `"'`)
		} else {
			s.attrKey = attrPart
		}
		s.hasAttr = true
		if s.attrKey == "" {
			return s, fmt.Errorf("locator: empty attribute name in %q", sel)
		}
	}

	if idx := strings.IndexByte(rest, '#'); idx >= 0 {
		idPart := rest[idx+1:]
		if dot := strings.IndexByte(idPart, '.'); dot >= 0 {
			// tag#id.class — peel classes off the ID.
			s.classes = splitClasses(idPart[dot:])
			idPart = idPart[:dot]
		}
		s.id = idPart
		rest = rest[:idx]
		if s.id == "" {
			return s, fmt.Errorf("locator: empty id in %q", sel)
		}
	}

	if idx := strings.IndexByte(rest, '.'); idx >= 0 {
		s.classes = append(s.classes, splitClasses(rest[idx:])...)
		rest = rest[:idx]
		for _, c := range s.classes {
			if c == "" {
				return s, fmt.Errorf("locator: empty class in %q", sel)
			}
		}
	}

	s.tag = strings.ToLower(rest)
	if s.tag == "" && s.id == "" && len(s.classes) == 0 && !s.hasAttr {
		return s, fmt.Errorf("locator: unparsable selector %q", sel)
	}
	return s, nil
}

func splitClasses(dotted string) []string {
	return strings.Split(strings.TrimPrefix(dotted, "."), ".")
}

// matchSimple walks the subtree and collects nodes matching s in document
// order. includeRoot controls whether root itself is a candidate; it is
// false for descendant parts so "div div" never matches a node as its own
// descendant.
func matchSimple(root *html.Node, s simpleSelector, includeRoot bool) []*html.Node {
	var results []*html.Node
	var walk func(n *html.Node, candidate bool)
	walk = func(n *html.Node, candidate bool) {
		if candidate && matchesSelector(n, s) {
			results = append(results, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, true)
		}
	}
	walk(root, includeRoot)
	return results
}

func matchesSelector(n *html.Node, s simpleSelector) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if s.tag != "" && strings.ToLower(n.Data) != s.tag {
		return false
	}
	if s.id != "" && nodeAttr(n, "id") != s.id {
		return false
	}
	if len(s.classes) > 0 {
		have := strings.Fields(nodeAttr(n, "class"))
		for _, want := range s.classes {
			found := false
			for _, c := range have {
				if c == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	if s.hasAttr {
		val, ok := lookupAttr(n, s.attrKey)
		if !ok {
			return false
		}
		if s.attrVal != "" && val != s.attrVal {
			return false
		}
	}
	return true
}

func nodeAttr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
