package cursor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_ReadMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "last_post_id.txt"))

	id, ok, err := store.Read(context.Background())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if ok || id != "" {
		t.Errorf("Expected absent cursor, got %q (ok=%v)", id, ok)
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "last_post_id.txt")
	store := NewFileStore(path)

	if err := store.Write(ctx, "UgkxAbc"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	id, ok, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !ok || id != "UgkxAbc" {
		t.Errorf("Expected UgkxAbc, got %q (ok=%v)", id, ok)
	}

	// Overwrite
	if err := store.Write(ctx, "UgkxDef"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	id, _, _ = store.Read(ctx)
	if id != "UgkxDef" {
		t.Errorf("Expected UgkxDef after overwrite, got %q", id)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected only the cursor file, found %d entries", len(entries))
	}
}

func TestFileStore_TrimsWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_post_id.txt")
	if err := os.WriteFile(path, []byte("  UgkxAbc\n"), 0644); err != nil {
		t.Fatal(err)
	}

	id, ok, err := NewFileStore(path).Read(context.Background())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !ok || id != "UgkxAbc" {
		t.Errorf("Expected UgkxAbc, got %q (ok=%v)", id, ok)
	}
}

func TestFileStore_BlankFileIsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_post_id.txt")
	if err := os.WriteFile(path, []byte("\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, ok, err := NewFileStore(path).Read(context.Background())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if ok {
		t.Error("Expected blank file to read as absent")
	}
}

func TestFileStore_RejectsEmpty(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "last_post_id.txt"))
	if err := store.Write(context.Background(), ""); err == nil {
		t.Error("Expected error writing empty cursor")
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore("")

	if _, ok, _ := store.Read(ctx); ok {
		t.Error("Expected empty memory store to be absent")
	}
	if err := store.Write(ctx, "p5"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	id, ok, _ := store.Read(ctx)
	if !ok || id != "p5" {
		t.Errorf("Expected p5, got %q (ok=%v)", id, ok)
	}
	if store.Writes() != 1 {
		t.Errorf("Expected 1 write, got %d", store.Writes())
	}
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "cursor.db")

	store, err := NewSQLiteStore(dbPath, "https://www.youtube.com/@ClashOfClans/community")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, ok, err := store.Read(ctx); err != nil || ok {
		t.Fatalf("Expected absent cursor, got ok=%v err=%v", ok, err)
	}

	if err := store.Write(ctx, "UgkxAbc"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := store.Write(ctx, "UgkxDef"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	id, ok, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !ok || id != "UgkxDef" {
		t.Errorf("Expected UgkxDef, got %q (ok=%v)", id, ok)
	}
}

func TestSQLiteStore_FeedsAreIsolated(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "cursor.db")

	a, err := NewSQLiteStore(dbPath, "feed-a")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer a.Close()
	b, err := NewSQLiteStore(dbPath, "feed-b")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer b.Close()

	if err := a.Write(ctx, "a1"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, ok, _ := b.Read(ctx); ok {
		t.Error("Expected feed-b to have no cursor")
	}
}
