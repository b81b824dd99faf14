package noteservice

import (
	"context"
	"errors"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/starford/notely/internal/apperr"
	"github.com/starford/notely/internal/models"
	"github.com/starford/notely/internal/storage"
)

func setupServiceRapid(_ *rapid.T) *Service {
	return NewService(storage.NewMemory())
}

func titleGen() *rapid.Generator[string] {
	return rapid.StringMatching(`[A-Za-z0-9][A-Za-z0-9 ]{0,40}`)
}

func contentGen() *rapid.Generator[string] {
	return rapid.StringMatching(`[A-Za-z0-9][A-Za-z0-9 .,!?]{0,120}`)
}

func tagsGen() *rapid.Generator[[]string] {
	return rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,8}`), 0, 4)
}

func createDrawn(t *rapid.T, svc *Service, owner string) *models.Note {
	n, err := svc.Create(context.Background(), owner, models.NoteInput{
		Title:   titleGen().Draw(t, "title"),
		Content: contentGen().Draw(t, "content"),
		Tags:    tagsGen().Draw(t, "tags"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return n
}

func TestProperty_CreateRoundtrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		svc := setupServiceRapid(t)
		n := createDrawn(t, svc, "owner")

		got, ok, err := svc.GetByID(context.Background(), n.ID)
		if err != nil || !ok {
			t.Fatalf("GetByID: ok=%v err=%v", ok, err)
		}
		if got.Title != n.Title || got.Content != n.Content || strings.Join(got.Tags, "\x00") != strings.Join(n.Tags, "\x00") {
			t.Fatalf("roundtrip mismatch: %+v vs %+v", got, n)
		}
		if got.IsFavorite || got.Summary != nil {
			t.Fatalf("fresh note has favorite=%v summary=%v", got.IsFavorite, got.Summary)
		}
		if !got.CreatedAt.Equal(got.UpdatedAt) {
			t.Fatal("created_at != updated_at on create")
		}
	})
}

func TestProperty_UpdateOnlyTouchesPatchedFields(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		svc := setupServiceRapid(t)
		n := createDrawn(t, svc, "owner")

		var patch models.NotePatch
		if rapid.Bool().Draw(t, "patchTitle") {
			v := titleGen().Draw(t, "newTitle")
			patch.Title = &v
		}
		if rapid.Bool().Draw(t, "patchContent") {
			v := contentGen().Draw(t, "newContent")
			patch.Content = &v
		}

		upd, err := svc.Update(context.Background(), n.ID, patch)
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if !upd.UpdatedAt.After(n.UpdatedAt) {
			t.Fatalf("updated_at %v not after %v", upd.UpdatedAt, n.UpdatedAt)
		}
		if !upd.CreatedAt.Equal(n.CreatedAt) || upd.ID != n.ID || upd.OwnerID != n.OwnerID {
			t.Fatal("identity or created_at changed")
		}
		wantTitle, wantContent := n.Title, n.Content
		if patch.Title != nil {
			wantTitle = *patch.Title
		}
		if patch.Content != nil {
			wantContent = *patch.Content
		}
		if upd.Title != wantTitle || upd.Content != wantContent {
			t.Fatalf("got %q/%q, want %q/%q", upd.Title, upd.Content, wantTitle, wantContent)
		}
		if upd.IsFavorite != n.IsFavorite {
			t.Fatal("favorite flag changed")
		}
	})
}

func TestProperty_ToggleTwiceRestores(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		svc := setupServiceRapid(t)
		n := createDrawn(t, svc, "owner")
		times := rapid.IntRange(0, 6).Draw(t, "times")

		for i := 0; i < times; i++ {
			if _, err := svc.ToggleFavorite(context.Background(), n.ID); err != nil {
				t.Fatalf("toggle: %v", err)
			}
		}
		got, _, _ := svc.GetByID(context.Background(), n.ID)
		if got.IsFavorite != (times%2 == 1) {
			t.Fatalf("after %d toggles favorite=%v", times, got.IsFavorite)
		}
	})
}

func TestProperty_DeleteIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		svc := setupServiceRapid(t)
		n := createDrawn(t, svc, "owner")
		repeat := rapid.IntRange(1, 3).Draw(t, "repeat")

		for i := 0; i < repeat; i++ {
			if err := svc.Delete(context.Background(), n.ID); err != nil {
				t.Fatalf("Delete #%d: %v", i, err)
			}
		}
		if _, ok, _ := svc.GetByID(context.Background(), n.ID); ok {
			t.Fatal("note still readable")
		}
		if _, err := svc.ToggleFavorite(context.Background(), n.ID); !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("toggle after delete: %v", err)
		}
	})
}

func TestProperty_OwnerIsolation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		svc := setupServiceRapid(t)
		owners := []string{"alice", "bob", "carol"}
		count := rapid.IntRange(1, 12).Draw(t, "count")
		perOwner := map[string]int{}
		for i := 0; i < count; i++ {
			owner := rapid.SampledFrom(owners).Draw(t, "owner")
			createDrawn(t, svc, owner)
			perOwner[owner]++
		}
		q := rapid.StringMatching(`[a-z]{0,3}`).Draw(t, "query")

		for _, owner := range owners {
			all, err := svc.ListByOwner(context.Background(), owner)
			if err != nil {
				t.Fatal(err)
			}
			if len(all) != perOwner[owner] {
				t.Fatalf("%s: %d notes, want %d", owner, len(all), perOwner[owner])
			}
			found, err := svc.Search(context.Background(), owner, q)
			if err != nil {
				t.Fatal(err)
			}
			for _, n := range append(all, found...) {
				if n.OwnerID != owner {
					t.Fatalf("%s sees note of %s", owner, n.OwnerID)
				}
			}
		}
	})
}

func TestProperty_SearchMatchesSubstring(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		svc := setupServiceRapid(t)
		count := rapid.IntRange(0, 8).Draw(t, "count")
		for i := 0; i < count; i++ {
			createDrawn(t, svc, "owner")
		}

		all, _ := svc.ListByOwner(context.Background(), "owner")
		blank, _ := svc.Search(context.Background(), "owner", "")
		if len(blank) != len(all) {
			t.Fatalf("blank search returned %d of %d", len(blank), len(all))
		}

		q := rapid.StringMatching(`[A-Za-z]{1,3}`).Draw(t, "query")
		found, err := svc.Search(context.Background(), "owner", q)
		if err != nil {
			t.Fatal(err)
		}
		hit := map[string]bool{}
		for _, n := range found {
			hit[n.ID] = true
		}
		lq := strings.ToLower(q)
		for _, n := range all {
			want := strings.Contains(strings.ToLower(n.Title), lq) ||
				strings.Contains(strings.ToLower(n.Content), lq) ||
				strings.Contains(strings.ToLower(strings.Join(n.Tags, "\x00")), lq)
			if hit[n.ID] != want {
				t.Fatalf("note %q (tags %v) match=%v, want %v for %q", n.Title, n.Tags, hit[n.ID], want, q)
			}
		}
	})
}

func TestRetaggedNoteIsFoundByNewTag(t *testing.T) {
	svc := NewService(storage.NewMemory())
	n := mustCreate(t, svc, "u1", "Note", "Text", "x")
	if _, err := svc.Update(context.Background(), n.ID, models.NotePatch{Tags: &[]string{"y"}}); err != nil {
		t.Fatal(err)
	}
	found, err := svc.Search(context.Background(), "u1", "y")
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].ID != n.ID {
		t.Errorf("Search(y) = %v", titles(found))
	}
}
