package cache

import (
	"path/filepath"
	"testing"
	"time"

	"citemon/internal/storage"
)

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestKeyDependsOnOrder(t *testing.T) {
	a := Key([]string{"q1.xlsx", "q2.xlsx"})
	b := Key([]string{"q2.xlsx", "q1.xlsx"})
	if a == b {
		t.Fatal("source order must change the key")
	}
	if a != Key([]string{"q1.xlsx", "q2.xlsx"}) {
		t.Fatal("key must be stable")
	}
}

func TestReadThroughAcrossInstances(t *testing.T) {
	db := openDB(t)
	sources := []string{"q1.xlsx"}
	key := Key(sources)

	first := New(db, 4, 0, nil)
	if _, ok, err := first.Get(key); err != nil || ok {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}
	if err := first.Put(key, sources, []byte("payload")); err != nil {
		t.Fatal(err)
	}

	second := New(db, 4, 0, nil)
	got, ok, err := second.Get(key)
	if err != nil || !ok || string(got) != "payload" {
		t.Fatalf("got=%q ok=%v err=%v", got, ok, err)
	}

	n, err := second.Invalidate(key)
	if err != nil || n != 1 {
		t.Fatalf("invalidate n=%d err=%v", n, err)
	}
	if _, ok, _ := second.Get(key); ok {
		t.Fatal("expected miss after invalidate")
	}
}

func TestPersistentEntryExpires(t *testing.T) {
	db := openDB(t)
	key := Key([]string{"q1.xlsx"})
	if err := db.PutDataset(key, []string{"q1.xlsx"}, []byte("old")); err != nil {
		t.Fatal(err)
	}

	c := New(db, 4, time.Minute, nil)
	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, ok, err := c.Get(key); err != nil || ok {
		t.Fatalf("expected expired miss, ok=%v err=%v", ok, err)
	}
}

func TestMemoryOnly(t *testing.T) {
	c := New(nil, 1, 0, nil)
	_ = c.Put("a", nil, []byte("1"))
	_ = c.Put("b", nil, []byte("2"))
	if _, ok, _ := c.Get("a"); ok {
		t.Fatal("a should have been evicted")
	}
	if got, ok, _ := c.Get("b"); !ok || string(got) != "2" {
		t.Fatalf("b=%q ok=%v", got, ok)
	}
}
