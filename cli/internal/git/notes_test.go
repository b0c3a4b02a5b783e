package git

import (
	"context"
	"errors"
	"testing"
)

func TestAddNote_and_Note(t *testing.T) {
	t.Parallel()
	repo := &Repo{Root: initRepo(t)}
	ctx := context.Background()
	body := `{"model":"qwen-2.5-coder-32b","subject":"--","tool_version":"dev"}`
	if err := repo.AddNote(ctx, NotesRef, "HEAD", body); err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	got, err := repo.Note(ctx, NotesRef, "HEAD")
	if err != nil {
		t.Fatalf("Note: %v", err)
	}
	if got != body {
		t.Errorf("Note = %q, want %q", got, body)
	}
}

func TestAddNote_overwrites(t *testing.T) {
	t.Parallel()
	repo := &Repo{Root: initRepo(t)}
	ctx := context.Background()
	for _, body := range []string{"first", "second"} {
		if err := repo.AddNote(ctx, NotesRef, "HEAD", body); err != nil {
			t.Fatalf("AddNote(%s): %v", body, err)
		}
	}
	got, err := repo.Note(ctx, NotesRef, "HEAD")
	if err != nil {
		t.Fatalf("Note: %v", err)
	}
	if got != "second" {
		t.Errorf("Note = %q, want second", got)
	}
}

func TestNote_missing(t *testing.T) {
	t.Parallel()
	repo := &Repo{Root: initRepo(t)}
	_, err := repo.Note(context.Background(), NotesRef, "HEAD")
	if !errors.Is(err, ErrNoNote) {
		t.Errorf("Note without a note: err = %v, want ErrNoNote", err)
	}
}

func TestAddNote_requiresRefs(t *testing.T) {
	t.Parallel()
	repo := &Repo{Root: initRepo(t)}
	if err := repo.AddNote(context.Background(), "", "HEAD", "x"); err == nil {
		t.Error("AddNote with empty notes ref: expected error")
	}
	if _, err := repo.Note(context.Background(), NotesRef, ""); err == nil {
		t.Error("Note with empty commit ref: expected error")
	}
}
