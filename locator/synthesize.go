package locator

import (
	"fmt"
	"strings"
)

// RootRef is the fixed reference returned for the document root container.
const RootRef = "body"

// markupPrefix namespaces every class, ID and attribute the editor injects
// into the page. Synthesis must never build a reference out of the
// editor's own markup.
const markupPrefix = "wfedit-"

// testHookAttrs are author-assigned attributes that survive redesigns far
// better than classes do, in preference order.
var testHookAttrs = []string{"data-testid", "data-test-id", "data-test", "data-qa"}

// Synthesize derives the most specific-yet-stable reference string that
// uniquely designates el on the page.
//
// Candidates in priority order, each accepted only if it matches exactly
// one element: root marker, ID, test hook attribute, tag plus up to two
// class tokens, bare tag. The bare-tag fallback may be ambiguous; Locate's
// last-match policy is the agreed mitigation.
func Synthesize(p Page, el Element) string {
	if el == nil {
		return ""
	}

	tag := strings.ToLower(el.Tag())
	if tag == "html" || tag == "body" {
		return RootRef
	}

	if id := el.Attr("id"); id != "" && !generatedToken(id) {
		if cand := idSelector(id); uniqueMatch(p, cand) {
			return cand
		}
	}

	for _, attr := range testHookAttrs {
		v := el.Attr(attr)
		if v == "" || generatedToken(v) {
			continue
		}
		cand := fmt.Sprintf(`%s[%s="%s"]`, tag, attr, v)
		if uniqueMatch(p, cand) {
			return cand
		}
	}

	var classes []string
	for _, tok := range strings.Fields(el.Attr("class")) {
		if generatedToken(tok) {
			continue
		}
		classes = append(classes, tok)
		if len(classes) == 2 {
			break
		}
	}
	if len(classes) > 0 {
		cand := tag + "." + strings.Join(classes, ".")
		if uniqueMatch(p, cand) {
			return cand
		}
	}

	return tag
}

func uniqueMatch(p Page, sel string) bool {
	els, err := p.QueryAll(sel)
	return err == nil && len(els) == 1
}

// generatedToken rejects identifiers that change between deploys: the
// editor's own markup, css-in-js classes, and tokens whose final segment
// looks like a build hash.
func generatedToken(tok string) bool {
	if strings.HasPrefix(tok, markupPrefix) || strings.HasPrefix(tok, "css-") {
		return true
	}
	return hashSegment(finalSegment(tok))
}

func finalSegment(tok string) string {
	if i := strings.LastIndexAny(tok, "-_"); i >= 0 {
		return tok[i+1:]
	}
	return ""
}

// hashSegment reports whether seg reads like a compiler-minted hash:
// five or more alphanumerics mixing letters and digits, e.g. the
// "1x2y3z" of "Button-module__1x2y3z".
func hashSegment(seg string) bool {
	if len(seg) < 5 {
		return false
	}
	letters, digits := 0, 0
	for _, r := range seg {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
			letters++
		default:
			return false
		}
	}
	return letters > 0 && digits > 0
}

// idSelector prefers the #id shorthand but falls back to an attribute
// selector for IDs containing characters the shorthand cannot carry.
func idSelector(id string) string {
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return fmt.Sprintf(`[id="%s"]`, id)
		}
	}
	return "#" + id
}
