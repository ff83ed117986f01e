package editor

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod/lib/proto"

	"github.com/lumingya/universal-web-api/browser"
	"github.com/lumingya/universal-web-api/locator"
	"github.com/lumingya/universal-web-api/workflow"
)

//go:embed overlay.js
var overlayJS []byte

const bindingName = "__wfedit_binding"

// RodSurface renders the overlay inside a live Chrome tab by injecting
// overlay.js and exchanging events over a CDP binding.
type RodSurface struct {
	tab     *browser.Tab
	page    *locator.RodPage
	handler func(Event)
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRodSurface creates a surface over a tab. Events from the overlay are
// delivered to handler; wire it to Editor.HandleEvent.
func NewRodSurface(tab *browser.Tab, page *locator.RodPage, handler func(Event), logger *slog.Logger) *RodSurface {
	if logger == nil {
		logger = slog.Default()
	}
	return &RodSurface{tab: tab, page: page, handler: handler, logger: logger}
}

// Init installs the CDP binding, starts the event listener, and injects
// the overlay script.
func (s *RodSurface) Init(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(context.Background())

	err := proto.RuntimeAddBinding{Name: bindingName}.Call(s.tab.Page)
	if err != nil {
		s.logger.Warn("editor: addBinding failed (may already exist)", "error", err)
	}
	go s.listenBinding()

	if _, err := s.tab.Page.Context(ctx).Eval(string(overlayJS)); err != nil {
		return fmt.Errorf("editor: inject overlay.js: %w", err)
	}
	return nil
}

// listenBinding receives overlay events via Runtime.bindingCalled.
func (s *RodSurface) listenBinding() {
	s.tab.Page.Context(s.ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}
		ev, err := decodeEvent([]byte(e.Payload))
		if err != nil {
			s.logger.Warn("editor: parse overlay event", "error", err)
			return
		}
		if s.handler != nil {
			s.handler(ev)
		}
	})
}

// RenderSteps pushes the full step list to the overlay.
func (s *RodSurface) RenderSteps(ctx context.Context, steps []workflow.Step) error {
	_, err := s.tab.Page.Context(ctx).Eval(
		`(steps) => window.__wfedit && window.__wfedit.render(steps)`, steps)
	return err
}

// SetVisible toggles overlay visibility.
func (s *RodSurface) SetVisible(ctx context.Context, visible bool) error {
	_, err := s.tab.Page.Context(ctx).Eval(
		`(v) => window.__wfedit && window.__wfedit.setVisible(v)`, visible)
	return err
}

// Notice shows a transient message.
func (s *RodSurface) Notice(ctx context.Context, text string) error {
	_, err := s.tab.Page.Context(ctx).Eval(
		`(t) => window.__wfedit && window.__wfedit.notice(t)`, text)
	return err
}

// PresentText shows a copyable text block.
func (s *RodSurface) PresentText(ctx context.Context, title, body string) error {
	_, err := s.tab.Page.Context(ctx).Eval(
		`(title, body) => window.__wfedit && window.__wfedit.present(title, body)`, title, body)
	return err
}

// SetClipboard writes text to the page's clipboard. Fails when the page
// lacks clipboard permission; callers fall back to PresentText.
func (s *RodSurface) SetClipboard(ctx context.Context, text string) error {
	_, err := s.tab.Page.Context(ctx).Eval(
		`async (t) => { await navigator.clipboard.writeText(t); }`, text)
	if err != nil {
		return fmt.Errorf("editor: clipboard write: %w", err)
	}
	return nil
}

// ArmPicker switches the overlay into element-picking mode.
func (s *RodSurface) ArmPicker(ctx context.Context) error {
	_, err := s.tab.Page.Context(ctx).Eval(
		`() => window.__wfedit && window.__wfedit.armPicker()`)
	return err
}

// DisarmPicker leaves element-picking mode.
func (s *RodSurface) DisarmPicker(ctx context.Context) error {
	_, err := s.tab.Page.Context(ctx).Eval(
		`() => window.__wfedit && window.__wfedit.disarmPicker()`)
	return err
}

// PickedElement resolves the element the overlay marked on confirm and
// clears the marking so it never leaks into synthesized selectors.
func (s *RodSurface) PickedElement(ctx context.Context) (locator.Element, error) {
	els, err := s.page.QueryAll("[wfedit-picked]")
	if err != nil {
		return nil, err
	}
	_, evalErr := s.tab.Page.Context(ctx).Eval(
		`() => document.querySelectorAll('[wfedit-picked]').forEach(el => el.removeAttribute('wfedit-picked'))`)
	if evalErr != nil {
		s.logger.Warn("editor: clear picked marking failed", "error", evalErr)
	}
	if len(els) == 0 {
		return nil, nil
	}
	return els[len(els)-1], nil
}

// Teardown removes the overlay and the binding and stops the listener.
func (s *RodSurface) Teardown(ctx context.Context) error {
	_, err := s.tab.Page.Context(ctx).Eval(
		`() => window.__wfedit && window.__wfedit.teardown()`)
	if rmErr := (proto.RuntimeRemoveBinding{Name: bindingName}).Call(s.tab.Page); rmErr != nil {
		s.logger.Debug("editor: remove binding failed", "error", rmErr)
	}
	if s.cancel != nil {
		s.cancel()
	}
	return err
}
