package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/lumingya/universal-web-api/workflow"

	_ "modernc.org/sqlite"
)

func testRegistry(t *testing.T, cfg *Config) *Registry {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(t.TempDir(), "profiles.db")
	}
	r, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func sampleSiteProfile() *workflow.SiteProfile {
	return &workflow.SiteProfile{
		Selectors: map[string]string{
			workflow.KeyInputBox: "#prompt",
			workflow.KeySendBtn:  "#send",
		},
		Workflow: []workflow.ActionRecord{
			{Action: workflow.ActionClick, Target: workflow.KeySendBtn},
		},
		Stealth: true,
	}
}

func TestRegistryPutGet(t *testing.T) {
	r := testRegistry(t, nil)
	ctx := context.Background()

	if err := r.Put(ctx, "chat.example.com", sampleSiteProfile()); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := r.Get(ctx, "chat.example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Selectors[workflow.KeyInputBox] != "#prompt" {
		t.Fatalf("selectors lost: %+v", got.Selectors)
	}
	if len(got.Workflow) != 1 || got.Workflow[0].Action != workflow.ActionClick {
		t.Fatalf("workflow lost: %+v", got.Workflow)
	}
	if !got.Stealth {
		t.Fatal("stealth flag lost")
	}
}

func TestRegistryGetMissing(t *testing.T) {
	r := testRegistry(t, nil)

	_, err := r.Get(context.Background(), "absent.example.com")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestRegistryReplaceWorkflow(t *testing.T) {
	r := testRegistry(t, nil)
	ctx := context.Background()

	if err := r.Put(ctx, "h", sampleSiteProfile()); err != nil {
		t.Fatalf("put: %v", err)
	}

	one := "1"
	records := []workflow.ActionRecord{
		{Action: workflow.ActionWait, Value: &one},
		{Action: workflow.ActionClick, Target: "sel_x1"},
	}
	added := map[string]string{"sel_x1": "button.go"}
	if err := r.ReplaceWorkflow(ctx, "h", records, added); err != nil {
		t.Fatalf("replace workflow: %v", err)
	}

	got, err := r.Get(ctx, "h")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Workflow) != 2 {
		t.Fatalf("got %d actions, want 2", len(got.Workflow))
	}
	if got.Selectors["sel_x1"] != "button.go" {
		t.Fatalf("new selector not merged: %+v", got.Selectors)
	}
	if got.Selectors[workflow.KeyInputBox] != "#prompt" {
		t.Fatalf("existing selector lost: %+v", got.Selectors)
	}
}

func TestRegistryReplaceWorkflowMissing(t *testing.T) {
	r := testRegistry(t, nil)

	err := r.ReplaceWorkflow(context.Background(), "absent", nil, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestHTTPGetAndPut(t *testing.T) {
	r := testRegistry(t, nil)
	router := chi.NewRouter()
	r.Routes(router)
	srv := httptest.NewServer(router)
	defer srv.Close()

	body, _ := json.Marshal(sampleSiteProfile())
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/profiles/chat.example.com", bytes.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("put request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put status %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/profiles/chat.example.com")
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status %d, want 200", resp.StatusCode)
	}

	var p workflow.SiteProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Selectors[workflow.KeySendBtn] != "#send" {
		t.Fatalf("profile mismatch over HTTP: %+v", p)
	}
}

func TestHTTPGetMissingIs404(t *testing.T) {
	r := testRegistry(t, nil)
	router := chi.NewRouter()
	r.Routes(router)
	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/profiles/absent.example.com")
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", resp.StatusCode)
	}
}

func TestHTTPRequestIDEchoed(t *testing.T) {
	r := testRegistry(t, nil)
	router := chi.NewRouter()
	r.Routes(router)
	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/profiles")
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("no request ID assigned")
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/profiles", nil)
	req.Header.Set("X-Request-ID", "req-123")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != "req-123" {
		t.Fatalf("got request ID %q, want the caller's req-123", got)
	}
}

func TestHTTPAuthRequired(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	r := testRegistry(t, &Config{AuthHash: string(hash)})
	router := chi.NewRouter()
	r.Routes(router)
	srv := httptest.NewServer(router)
	defer srv.Close()

	body, _ := json.Marshal(sampleSiteProfile())

	// Without token, writes are rejected.
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/profiles/h", bytes.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("put request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", resp.StatusCode)
	}

	// With the right token, writes succeed.
	req, _ = http.NewRequest(http.MethodPut, srv.URL+"/api/profiles/h", bytes.NewReader(body))
	req.Header.Set("X-Auth-Token", "secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("authed put request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authed put status %d, want 200", resp.StatusCode)
	}

	// Reads stay open.
	resp, err = http.Get(srv.URL + "/api/profiles/h")
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status %d, want 200", resp.StatusCode)
	}
}

func TestClientRoundTrip(t *testing.T) {
	r := testRegistry(t, nil)
	router := chi.NewRouter()
	r.Routes(router)
	srv := httptest.NewServer(router)
	defer srv.Close()

	c := NewClient(srv.URL, "")
	ctx := context.Background()

	if err := c.Put(ctx, "h", sampleSiteProfile()); err != nil {
		t.Fatalf("client put: %v", err)
	}

	two := "2"
	if err := c.ReplaceWorkflow(ctx, "h",
		[]workflow.ActionRecord{{Action: workflow.ActionWait, Value: &two}},
		map[string]string{"sel_y": "div.out"}); err != nil {
		t.Fatalf("client replace workflow: %v", err)
	}

	got, err := c.Get(ctx, "h")
	if err != nil {
		t.Fatalf("client get: %v", err)
	}
	if len(got.Workflow) != 1 || got.Workflow[0].Action != workflow.ActionWait {
		t.Fatalf("workflow mismatch: %+v", got.Workflow)
	}
	if got.Selectors["sel_y"] != "div.out" {
		t.Fatalf("selector not merged: %+v", got.Selectors)
	}

	if _, err := c.Get(ctx, "absent"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}

	entries, err := c.List(ctx, 0)
	if err != nil {
		t.Fatalf("client list: %v", err)
	}
	if len(entries) != 1 || entries[0].Host != "h" {
		t.Fatalf("unexpected list: %+v", entries)
	}
}
