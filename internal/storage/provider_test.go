package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/starford/notely/internal/apperr"
	"github.com/starford/notely/internal/models"
)

func backends(t *testing.T) map[string]Provider {
	t.Helper()

	f, err := NewFile(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	dbFile, err := os.CreateTemp("", "notely-storage-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })
	sq, err := OpenSQLite(dbFile.Name())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { sq.Close() })

	mr := miniredis.RunT(t)
	rd := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "notes-test")
	t.Cleanup(func() { rd.Close() })

	return map[string]Provider{
		"memory": NewMemory(),
		"file":   f,
		"sqlite": sq,
		"redis":  rd,
	}
}

func sampleNote(id, owner string) models.Note {
	now := time.Date(2025, 3, 1, 12, 0, 0, 123456000, time.UTC)
	return models.Note{
		ID:        id,
		OwnerID:   owner,
		Title:     "Title " + id,
		Content:   "Content of " + id,
		Tags:      []string{"go", "notes"},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestProvider_InsertGet(t *testing.T) {
	ctx := context.Background()
	for name, p := range backends(t) {
		t.Run(name, func(t *testing.T) {
			n := sampleNote("n1", "u1")
			if err := p.Insert(ctx, n); err != nil {
				t.Fatalf("Insert: %v", err)
			}
			got, err := p.Get(ctx, "n1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Title != n.Title || got.Content != n.Content || got.OwnerID != "u1" {
				t.Errorf("got %+v", got)
			}
			if len(got.Tags) != 2 || got.Tags[0] != "go" || got.Tags[1] != "notes" {
				t.Errorf("tags = %v", got.Tags)
			}
			if !got.CreatedAt.Equal(n.CreatedAt) || !got.UpdatedAt.Equal(n.UpdatedAt) {
				t.Errorf("timestamps = %v / %v", got.CreatedAt, got.UpdatedAt)
			}
			if got.Summary != nil {
				t.Errorf("summary should be absent, got %q", *got.Summary)
			}
		})
	}
}

func TestProvider_GetMissing(t *testing.T) {
	ctx := context.Background()
	for name, p := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := p.Get(ctx, "nope")
			if !errors.Is(err, apperr.ErrNotFound) {
				t.Errorf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestProvider_Replace(t *testing.T) {
	ctx := context.Background()
	for name, p := range backends(t) {
		t.Run(name, func(t *testing.T) {
			n := sampleNote("n1", "u1")
			if err := p.Insert(ctx, n); err != nil {
				t.Fatalf("Insert: %v", err)
			}
			summary := "short version"
			n.Title = "Renamed"
			n.IsFavorite = true
			n.Summary = &summary
			n.Tags = []string{}
			n.UpdatedAt = n.UpdatedAt.Add(time.Second)
			if err := p.Replace(ctx, n); err != nil {
				t.Fatalf("Replace: %v", err)
			}
			got, err := p.Get(ctx, "n1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Title != "Renamed" || !got.IsFavorite {
				t.Errorf("got %+v", got)
			}
			if got.Summary == nil || *got.Summary != summary {
				t.Errorf("summary = %v", got.Summary)
			}
			if got.Tags == nil || len(got.Tags) != 0 {
				t.Errorf("tags = %#v, want empty non-nil", got.Tags)
			}
			if !got.UpdatedAt.Equal(n.UpdatedAt) {
				t.Errorf("updated_at = %v, want %v", got.UpdatedAt, n.UpdatedAt)
			}
		})
	}
}

func TestProvider_ReplaceMissing(t *testing.T) {
	ctx := context.Background()
	for name, p := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := p.Replace(ctx, sampleNote("ghost", "u1"))
			if !errors.Is(err, apperr.ErrNotFound) {
				t.Errorf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestProvider_RemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	for name, p := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_ = p.Insert(ctx, sampleNote("n1", "u1"))
			if err := p.Remove(ctx, "n1"); err != nil {
				t.Fatalf("Remove: %v", err)
			}
			if _, err := p.Get(ctx, "n1"); !errors.Is(err, apperr.ErrNotFound) {
				t.Errorf("get after remove = %v", err)
			}
			if err := p.Remove(ctx, "n1"); err != nil {
				t.Errorf("second Remove: %v", err)
			}
		})
	}
}

func TestProvider_ListByOwnerKeepsOrderAndScope(t *testing.T) {
	ctx := context.Background()
	for name, p := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, n := range []models.Note{
				sampleNote("c", "u1"),
				sampleNote("a", "u2"),
				sampleNote("b", "u1"),
				sampleNote("d", "u1"),
			} {
				if err := p.Insert(ctx, n); err != nil {
					t.Fatalf("Insert %s: %v", n.ID, err)
				}
			}
			_ = p.Remove(ctx, "b")

			got, err := p.ListByOwner(ctx, "u1")
			if err != nil {
				t.Fatalf("ListByOwner: %v", err)
			}
			var ids []string
			for _, n := range got {
				if n.OwnerID != "u1" {
					t.Errorf("foreign note %s leaked", n.ID)
				}
				ids = append(ids, n.ID)
			}
			if len(ids) != 2 || ids[0] != "c" || ids[1] != "d" {
				t.Errorf("ids = %v, want [c d]", ids)
			}

			empty, err := p.ListByOwner(ctx, "nobody")
			if err != nil {
				t.Fatalf("ListByOwner: %v", err)
			}
			if empty == nil || len(empty) != 0 {
				t.Errorf("expected empty non-nil slice, got %#v", empty)
			}
		})
	}
}

func TestProvider_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	for name, p := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_ = p.Insert(ctx, sampleNote("n1", "u1"))
			got, _ := p.Get(ctx, "n1")
			got.Tags[0] = "mutated"
			again, _ := p.Get(ctx, "n1")
			if again.Tags[0] != "go" {
				t.Errorf("provider shares tag slice with caller")
			}
		})
	}
}

func TestProvider_MarkSeeded(t *testing.T) {
	ctx := context.Background()
	for name, p := range backends(t) {
		t.Run(name, func(t *testing.T) {
			first, err := p.MarkSeeded(ctx, "u1")
			if err != nil {
				t.Fatalf("MarkSeeded: %v", err)
			}
			if !first {
				t.Error("first MarkSeeded should report true")
			}
			again, err := p.MarkSeeded(ctx, "u1")
			if err != nil {
				t.Fatalf("MarkSeeded: %v", err)
			}
			if again {
				t.Error("second MarkSeeded should report false")
			}
			other, err := p.MarkSeeded(ctx, "u2")
			if err != nil || !other {
				t.Errorf("MarkSeeded(u2) = %v, %v, want true", other, err)
			}
		})
	}
}

func TestFile_SeededMarkerSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	f, err := NewFile(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(f.Path()) != "notes.json" {
		t.Errorf("path = %s", f.Path())
	}
	if first, err := f.MarkSeeded(ctx, "u1"); err != nil || !first {
		t.Fatalf("MarkSeeded = %v, %v", first, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.seeded.json")); err != nil {
		t.Errorf("marker file missing: %v", err)
	}

	reopened, err := NewFile(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	again, err := reopened.MarkSeeded(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if again {
		t.Error("owner marked again after reopen")
	}
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"notes.db", "notes.db?" + sqliteParams},
		{"file:notes.db?cache=shared", "file:notes.db?cache=shared&" + sqliteParams},
	}
	for _, tt := range tests {
		if got := sqliteDSN(tt.dsn); got != tt.want {
			t.Errorf("sqliteDSN(%q) = %q, want %q", tt.dsn, got, tt.want)
		}
	}
}

func TestOpenSQLite_InMemory(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer db.Close()

	if err := db.Insert(ctx, sampleNote("n1", "u1")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, err := db.ListByOwner(ctx, "u1")
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(got) != 1 || got[0].ID != "n1" {
		t.Errorf("notes = %+v", got)
	}
}

func TestFile_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	f, err := NewFile(dir, "notes")
	if err != nil {
		t.Fatal(err)
	}
	_ = f.Insert(ctx, sampleNote("n1", "u1"))
	_ = f.Insert(ctx, sampleNote("n2", "u1"))
	_ = f.Remove(ctx, "n1")

	reopened, err := NewFile(dir, "notes")
	if err != nil {
		t.Fatal(err)
	}
	got, _ := reopened.ListByOwner(ctx, "u1")
	if len(got) != 1 || got[0].ID != "n2" {
		t.Errorf("after reopen = %+v", got)
	}
}

func TestFile_NoTempFilesLeft(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	f, _ := NewFile(dir, "")
	for _, id := range []string{"a", "b", "c"} {
		_ = f.Insert(ctx, sampleNote(id, "u1"))
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "notes.json" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("dir entries = %v, want [notes.json]", names)
	}
}

func TestFile_RejectsBadNamespace(t *testing.T) {
	for _, ns := range []string{"../escape", "a/b", ".."} {
		if _, err := NewFile(t.TempDir(), ns); err == nil {
			t.Errorf("namespace %q should be rejected", ns)
		}
	}
}

func TestFile_CorruptFileFailsOpen(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFile(dir, ""); err == nil {
		t.Error("expected decode error")
	}
}

func TestFile_ReloadIgnoresOwnWrites(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	f, _ := NewFile(dir, "")
	_ = f.Insert(ctx, sampleNote("n1", "u1"))

	changed, err := f.reload()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if changed {
		t.Error("own write should not count as a change")
	}

	other, _ := NewFile(dir, "")
	_ = other.Insert(ctx, sampleNote("n2", "u1"))

	changed, err = f.reload()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !changed {
		t.Fatal("external write should be picked up")
	}
	if _, err := f.Get(ctx, "n2"); err != nil {
		t.Errorf("n2 not visible after reload: %v", err)
	}
}

func TestFile_WatchReloadsExternalChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	f, _ := NewFile(dir, "")
	_ = f.Insert(ctx, sampleNote("n1", "u1"))

	reloaded := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.Watch(ctx, testLogger(), func() {
			select {
			case reloaded <- struct{}{}:
			default:
			}
		})
	}()
	time.Sleep(100 * time.Millisecond)

	other, _ := NewFile(dir, "")
	_ = other.Insert(context.Background(), sampleNote("n2", "u1"))

	select {
	case <-reloaded:
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
	if _, err := f.Get(context.Background(), "n2"); err != nil {
		t.Errorf("n2 not visible: %v", err)
	}

	cancel()
	<-done
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Options{Driver: "floppy"}); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestOpen_FileCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	p, err := Open(context.Background(), Options{Driver: DriverFile, Dir: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("dir not created: %v", err)
	}
}
