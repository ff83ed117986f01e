package store

import (
	"context"
	"strings"
	"testing"

	"github.com/lumingya/universal-web-api/dbopen"

	_ "modernc.org/sqlite"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	return &Store{DB: db}
}

func TestPutGetRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec := &Record{
		Host:      "chat.example.com",
		Selectors: `{"input_box":"#prompt"}`,
		Workflow:  `[{"action":"CLICK","target":"send_btn"}]`,
		Stealth:   1,
	}
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("put: %v", err)
	}
	if rec.CreatedAt == 0 || rec.UpdatedAt == 0 {
		t.Fatalf("timestamps not set: created=%d updated=%d", rec.CreatedAt, rec.UpdatedAt)
	}

	got, err := s.Get(ctx, "chat.example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("profile not found after put")
	}
	if got.Selectors != rec.Selectors || got.Workflow != rec.Workflow || got.Stealth != 1 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestGetMissing(t *testing.T) {
	s := testStore(t)

	got, err := s.Get(context.Background(), "nowhere.example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing host, got %+v", got)
	}
}

func TestPutUpsert(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	first := &Record{Host: "h", Selectors: "{}", Workflow: "[]", Stealth: 1}
	if err := s.Put(ctx, first); err != nil {
		t.Fatalf("put: %v", err)
	}

	second := &Record{Host: "h", Selectors: `{"k":"v"}`, Workflow: "[]", Stealth: 0}
	if err := s.Put(ctx, second); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.Get(ctx, "h")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Selectors != `{"k":"v"}` || got.Stealth != 0 {
		t.Fatalf("upsert did not replace: %+v", got)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("got %d rows, want 1", n)
	}
}

func TestReplaceWorkflowMergesSelectors(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec := &Record{
		Host:      "h",
		Selectors: `{"input_box":"#prompt","send_btn":"#send"}`,
		Workflow:  `[]`,
		Stealth:   1,
	}
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("put: %v", err)
	}

	ok, err := s.ReplaceWorkflow(ctx, "h",
		`[{"action":"WAIT","target":"1"}]`,
		`{"sel_abc123":"div.result"}`)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if !ok {
		t.Fatal("replace reported missing host")
	}

	got, err := s.Get(ctx, "h")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Workflow != `[{"action":"WAIT","target":"1"}]` {
		t.Fatalf("workflow not replaced: %s", got.Workflow)
	}
	for _, want := range []string{"input_box", "send_btn", "sel_abc123"} {
		if !strings.Contains(got.Selectors, want) {
			t.Fatalf("selectors missing %q after merge: %s", want, got.Selectors)
		}
	}
	if got.Stealth != 1 {
		t.Fatalf("stealth changed: %d", got.Stealth)
	}
}

func TestReplaceWorkflowMissingHost(t *testing.T) {
	s := testStore(t)

	ok, err := s.ReplaceWorkflow(context.Background(), "absent", "[]", "{}")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing host")
	}
}

func TestDeleteAndList(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, host := range []string{"a.example.com", "b.example.com"} {
		if err := s.Put(ctx, &Record{Host: host, Selectors: "{}", Workflow: "[]"}); err != nil {
			t.Fatalf("put %s: %v", host, err)
		}
	}

	if err := s.Delete(ctx, "a.example.com"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	recs, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 1 || recs[0].Host != "b.example.com" {
		t.Fatalf("unexpected list after delete: %+v", recs)
	}
}
