// Package run drives one ai-commit invocation: read the diff, check the
// model, ask for a message, then print it or commit it.
package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"aicommit/cli/internal/commitmsg"
	"aicommit/cli/internal/erruser"
	"aicommit/cli/internal/git"
	"aicommit/cli/internal/groq"
	"aicommit/cli/internal/settings"
	"aicommit/cli/internal/tokens"
	"aicommit/cli/internal/trace"
	"aicommit/cli/internal/version"
)

// ErrEmptyDiff is returned when there is nothing to commit. The chat client
// is never called in that case.
var ErrEmptyDiff = erruser.New(erruser.EmptyDiff, "No changes to commit.", nil)

// DiffProvider reads changes and records the commit; *git.Repo implements it.
type DiffProvider interface {
	Diff(ctx context.Context, staged bool) (string, error)
	Commit(ctx context.Context, message string, all bool) error
}

// Options are the per-invocation choices from the command line.
type Options struct {
	// All includes unstaged changes to tracked files and commits with -a.
	All bool
	// DryRun prints the message instead of committing.
	DryRun bool
	// Subject is the user's subject hint; empty sends commitmsg.NoSubject.
	Subject string
	// Improve is a drafted message to revise instead of generating one.
	Improve string
	Model   string
	// WarnThreshold is the fraction of the model's context window that
	// triggers a size warning; 0 disables it.
	WarnThreshold float64
	// Note attaches a Provenance note to the new commit under git.NotesRef.
	Note bool
}

// Noter attaches a note to a commit; *git.Repo implements it.
type Noter interface {
	AddNote(ctx context.Context, notesRef, commitRef, body string) error
}

// Provenance is the JSON note recorded with --note.
type Provenance struct {
	Model           string    `json:"model"`
	Subject         string    `json:"subject"`
	Improved        bool      `json:"improved,omitempty"`
	EstimatedTokens int       `json:"estimated_tokens"`
	ToolVersion     string    `json:"tool_version"`
	CreatedAt       time.Time `json:"created_at"`
}

// Deps are the collaborators of Commit. Out receives the dry-run message and
// Warn receives warnings. Render, when set, formats the dry-run message.
type Deps struct {
	Diff   DiffProvider
	Chat   commitmsg.Completer
	Models settings.ModelLister
	Out    io.Writer
	Warn   io.Writer
	Trace  *trace.Tracer
	Render func(message string) (string, error)
	// Notes is required when Options.Note is set.
	Notes Noter
}

// Commit runs the flow and returns the message that was printed or committed.
func Commit(ctx context.Context, opts Options, deps Deps) (string, error) {
	tr := deps.Trace
	if opts.Model == "" {
		return "", erruser.New(erruser.Configuration, "No model configured; run ai-commit configure.", nil)
	}

	tr.Section("Diff")
	stop := tr.Start("git diff")
	diff, err := deps.Diff.Diff(ctx, !opts.All)
	stop()
	if err != nil {
		return "", err
	}
	tr.Field("staged_only", !opts.All)
	tr.Field("bytes", len(diff))
	if strings.TrimSpace(diff) == "" {
		return "", ErrEmptyDiff
	}

	tr.Section("Model")
	model, err := settings.FindModel(ctx, deps.Models, opts.Model)
	if err != nil {
		return "", Classify(err)
	}
	if model == nil {
		return "", erruser.New(erruser.Validation,
			fmt.Sprintf("Model %q is not available; run ai-commit models to list the available models.", opts.Model), nil)
	}
	tr.Field("model", model.ID)
	tr.Field("context_window", model.ContextWindow)

	subject := strings.TrimSpace(opts.Subject)
	if subject == "" {
		subject = commitmsg.NoSubject
	}
	messages := commitmsg.Compose(subject, diff, opts.Improve)

	promptTokens := tokens.EstimateMessages(messages)
	tr.Field("estimated_tokens", promptTokens)
	if w := tokens.WarnIfOver(promptTokens, tokens.DefaultResponseReserve, model.ContextWindow, opts.WarnThreshold); w != "" && deps.Warn != nil {
		fmt.Fprintln(deps.Warn, "Warning: "+w)
	}

	tr.Section("Completion")
	stop = tr.Start("chat completion")
	message, err := commitmsg.Suggest(ctx, deps.Chat, model.ID, messages)
	stop()
	if err != nil {
		return "", Classify(err)
	}
	if message == "" {
		return "", erruser.New(erruser.MalformedResponse, "The model returned an empty commit message.", nil)
	}

	if opts.DryRun {
		out := message
		if deps.Render != nil {
			if out, err = deps.Render(message); err != nil {
				return "", err
			}
		}
		if deps.Out != nil {
			fmt.Fprintln(deps.Out, strings.TrimRight(out, "\n"))
		}
		return message, nil
	}

	tr.Section("Commit")
	if err := deps.Diff.Commit(ctx, message, opts.All); err != nil {
		return "", err
	}
	if opts.Note {
		p := Provenance{
			Model:           model.ID,
			Subject:         subject,
			Improved:        opts.Improve != "",
			EstimatedTokens: promptTokens,
			ToolVersion:     version.String(),
			CreatedAt:       time.Now().UTC(),
		}
		// The commit exists at this point, so a failed note is only a warning.
		if err := addNote(ctx, deps.Notes, p); err != nil && deps.Warn != nil {
			fmt.Fprintf(deps.Warn, "Warning: could not record the %s note: %v\n", git.NotesRef, err)
		}
	}
	return message, nil
}

func addNote(ctx context.Context, n Noter, p Provenance) error {
	if n == nil {
		return errors.New("no notes writer")
	}
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return n.AddNote(ctx, git.NotesRef, "HEAD", string(body))
}

// Classify maps chat client failures to user-facing errors. Errors that are
// already user-facing pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var ue *erruser.Err
	if errors.As(err, &ue) {
		return err
	}
	var apiErr *groq.APIError
	switch {
	case errors.Is(err, groq.ErrTimeout):
		return erruser.New(erruser.Timeout, "The request to the provider timed out; raise the timeout with --timeout or AI_COMMIT_TIMEOUT.", err)
	case errors.Is(err, groq.ErrUnreachable):
		return erruser.New(erruser.Network, "Could not reach the provider; check your network connection and base URL.", err)
	case errors.As(err, &apiErr):
		return erruser.New(erruser.Provider, "The provider returned an error: "+apiErr.Message, err)
	case errors.Is(err, groq.ErrProvider):
		return erruser.New(erruser.Provider, "The provider returned an error.", err)
	case errors.Is(err, groq.ErrMalformedResponse):
		return erruser.New(erruser.MalformedResponse, "The provider returned a response that could not be read.", err)
	}
	return err
}
