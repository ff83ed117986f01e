package locator

import (
	"testing"

	"github.com/lumingya/universal-web-api/workflow"
)

const chatPage = `<!DOCTYPE html>
<html>
<body>
  <div id="composer" class="chat-input">
    <textarea data-testid="prompt-box"></textarea>
    <button type="submit" class="send primary">Send</button>
  </div>
  <div class="messages">
    <div class="message bot">first reply</div>
    <div class="message bot">second reply</div>
    <div class="message bot">latest reply</div>
  </div>
</body>
</html>`

func parsePage(t *testing.T) *HTMLDoc {
	t.Helper()
	doc, err := ParseHTML(chatPage, workflow.Viewport{Width: 1280, Height: 800})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestLocate_EmptyRefIsNil(t *testing.T) {
	if el := Locate(parsePage(t), ""); el != nil {
		t.Errorf("empty ref: got %v, want nil", el)
	}
}

func TestLocate_PicksLastMatch(t *testing.T) {
	doc := parsePage(t)
	el := Locate(doc, "div.message")
	if el == nil {
		t.Fatal("locate: got nil")
	}
	// Appended content renders last; the locator favours the newest node.
	if got, err := el.(HTMLer).HTML(); err != nil || got != `<div class="message bot">latest reply</div>` {
		t.Errorf("last match html: got %q, err %v", got, err)
	}
}

func TestLocate_SyntaxErrorFailsSoft(t *testing.T) {
	if el := Locate(parsePage(t), "div[unterminated"); el != nil {
		t.Errorf("bad syntax: got %v, want nil", el)
	}
}

func TestLocate_NoMatchIsNil(t *testing.T) {
	if el := Locate(parsePage(t), "#does-not-exist"); el != nil {
		t.Errorf("no match: got %v, want nil", el)
	}
}

func TestQueryAll_SelectorForms(t *testing.T) {
	doc := parsePage(t)
	cases := []struct {
		sel  string
		want int
	}{
		{"textarea", 1},
		{"#composer", 1},
		{".message", 3},
		{"div.message.bot", 3},
		{"button[type=submit]", 1},
		{`textarea[data-testid="prompt-box"]`, 1},
		{"div.messages div", 3},
		{"[data-testid]", 1},
		{"span", 0},
	}
	for _, tc := range cases {
		els, err := doc.QueryAll(tc.sel)
		if err != nil {
			t.Errorf("%q: unexpected error %v", tc.sel, err)
			continue
		}
		if len(els) != tc.want {
			t.Errorf("%q: got %d matches, want %d", tc.sel, len(els), tc.want)
		}
	}
}

func TestQueryAll_DescendantNeverMatchesSelf(t *testing.T) {
	doc := parsePage(t)
	els, err := doc.QueryAll("div div")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	for _, el := range els {
		if el.Attr("class") == "messages" && el.Attr("id") == "" {
			// .messages is a top-level div; it may only appear as the inner
			// part of "div div" if nested under another div, which it is not.
			t.Errorf("node matched as its own descendant: %v", el)
		}
	}
}

// stubElement gives AnchorPoint a layout to work with.
type stubElement struct {
	rect Rect
	ok   bool
}

func (s stubElement) Tag() string            { return "div" }
func (s stubElement) Attr(string) string     { return "" }
func (s stubElement) Rect() (Rect, bool)     { return s.rect, s.ok }

func TestAnchorPoint_BoxCenter(t *testing.T) {
	doc := parsePage(t)
	el := stubElement{rect: Rect{X: 100, Y: 50, Width: 40, Height: 20}, ok: true}
	got := AnchorPoint(doc, el)
	if got.X != 120 || got.Y != 60 {
		t.Errorf("anchor: got %+v, want {120 60}", got)
	}
}

func TestAnchorPoint_FallsBackToViewportCenter(t *testing.T) {
	doc := parsePage(t)
	want := doc.Viewport().Center()

	if got := AnchorPoint(doc, nil); got != want {
		t.Errorf("nil element: got %+v, want %+v", got, want)
	}
	if got := AnchorPoint(doc, stubElement{}); got != want {
		t.Errorf("layoutless element: got %+v, want %+v", got, want)
	}
}

func TestResolverFor(t *testing.T) {
	res := ResolverFor(parsePage(t))
	if !res.Resolves("textarea") {
		t.Error("textarea: want resolved")
	}
	if res.Resolves(".not-there") {
		t.Error(".not-there: want unresolved")
	}
	if res.Resolves("") {
		t.Error("empty ref: want unresolved")
	}
}

func TestValidateSelectors(t *testing.T) {
	doc := parsePage(t)
	got := ValidateSelectors(doc, map[string]string{
		"input_box":        "textarea",
		"send_btn":         "button.missing",
		"result_container": "",
	})

	byKey := map[string]Invalid{}
	for _, inv := range got {
		byKey[inv.Key] = inv
	}
	if _, ok := byKey["input_box"]; ok {
		t.Error("input_box: reported invalid, want valid")
	}
	if inv, ok := byKey["send_btn"]; !ok || inv.Reason != "matches no element" {
		t.Errorf("send_btn: got %+v", inv)
	}
	if inv, ok := byKey["result_container"]; !ok || inv.Reason != "empty selector" {
		t.Errorf("result_container: got %+v", inv)
	}
}
