package git

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// NotesRef holds the notes ai-commit attaches to the commits it writes.
const NotesRef = "refs/notes/ai-commit"

// ErrNoNote is returned by Note when the commit has no note under the ref.
var ErrNoNote = errors.New("no note")

// AddNote attaches body to commitRef under notesRef, replacing any existing note.
func (r *Repo) AddNote(ctx context.Context, notesRef, commitRef, body string) error {
	if notesRef == "" || commitRef == "" {
		return fmt.Errorf("git notes: notes ref and commit ref required")
	}
	_, err := r.output(ctx, "notes", "--ref="+notesRef, "add", "-f", "-m", body, commitRef)
	return err
}

// Note returns the note on commitRef under notesRef, or ErrNoNote.
func (r *Repo) Note(ctx context.Context, notesRef, commitRef string) (string, error) {
	if notesRef == "" || commitRef == "" {
		return "", fmt.Errorf("git notes: notes ref and commit ref required")
	}
	cmd := exec.CommandContext(ctx, "git", "notes", "--ref="+notesRef, "show", commitRef)
	cmd.Dir = r.Root
	cmd.Env = minimalEnv()
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", fmt.Errorf("%w for %s", ErrNoNote, commitRef)
		}
		return "", fmt.Errorf("git notes show: %w", err)
	}
	return strings.TrimSuffix(string(out), "\n"), nil
}
