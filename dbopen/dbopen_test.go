package dbopen

import (
	"testing"

	_ "modernc.org/sqlite"
)

func TestOpenMemory_SharedConnection(t *testing.T) {
	db := OpenMemory(t, WithSchema(`CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)`))

	if _, err := db.Exec(`INSERT INTO kv (k, v) VALUES ('a', '1')`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var v string
	if err := db.QueryRow(`SELECT v FROM kv WHERE k = 'a'`).Scan(&v); err != nil {
		t.Fatalf("select: %v", err)
	}
	if v != "1" {
		t.Errorf("value: got %q, want %q", v, "1")
	}
}

func TestOpen_Pragmas(t *testing.T) {
	db := OpenMemory(t)

	var fk int
	if err := db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk); err != nil {
		t.Fatalf("pragma foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys: got %d, want 1", fk)
	}
}
