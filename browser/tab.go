package browser

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Tab wraps a Rod page pointed at the site being edited.
type Tab struct {
	Page    *rod.Page
	PageURL string
	Stealth StealthLevel
}

// OpenTab creates a new tab with the manager's stealth level applied and
// navigates it to the URL.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	level := mgr.Stealth()

	var page *rod.Page
	var err error

	if level >= LevelHeadless {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	t := &Tab{Page: page, Stealth: level}
	if err := t.Navigate(ctx, pageURL); err != nil {
		page.Close()
		return nil, err
	}
	return t, nil
}

// Navigate loads the URL and waits for the page load event.
func (t *Tab) Navigate(ctx context.Context, pageURL string) error {
	navCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := t.Page.Context(navCtx).Navigate(pageURL); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := t.Page.Context(navCtx).WaitLoad(); err != nil {
		return fmt.Errorf("browser: wait load %s: %w", pageURL, err)
	}
	t.PageURL = pageURL
	return nil
}

// Host returns the hostname of the document currently loaded in the tab.
func (t *Tab) Host(ctx context.Context) (string, error) {
	res, err := t.Page.Context(ctx).Eval(`() => location.href`)
	if err != nil {
		return "", fmt.Errorf("browser: read location: %w", err)
	}
	u, err := url.Parse(res.Value.Str())
	if err != nil {
		return "", fmt.Errorf("browser: parse location: %w", err)
	}
	return u.Hostname(), nil
}

// Reload reloads the current document and waits for the load event.
func (t *Tab) Reload(ctx context.Context) error {
	navCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := t.Page.Context(navCtx).Reload(); err != nil {
		return fmt.Errorf("browser: reload: %w", err)
	}
	if err := t.Page.Context(navCtx).WaitLoad(); err != nil {
		return fmt.Errorf("browser: wait load after reload: %w", err)
	}
	return nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
