// Package git wraps the git executable: repository discovery, staged and
// unstaged diffs, and committing.
package git

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"aicommit/cli/internal/erruser"
)

// RepoRoot returns the absolute path of the git repository root containing dir.
// Runs "git rev-parse --show-toplevel" with Dir=dir. Returns error if dir is
// not inside a git repository.
func RepoRoot(dir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	cmd.Env = minimalEnv()
	out, err := cmd.Output()
	if err != nil {
		return "", erruser.New(erruser.Subprocess, "This directory is not inside a Git repository.", err)
	}
	root := strings.TrimSpace(string(out))
	return filepath.Abs(root)
}

// Repo runs git in Root. Stdout and Stderr receive the output of git commit
// (hooks included); nil discards it.
type Repo struct {
	Root   string
	Stdout io.Writer
	Stderr io.Writer
}

// Diff returns the unified diff of the changes that would be committed.
// With staged=true that is "git diff --staged". Otherwise the unstaged
// changes to tracked files follow the staged ones, matching what
// "git commit -a" records. Returns "" when there are no changes.
func (r *Repo) Diff(ctx context.Context, staged bool) (string, error) {
	out, err := r.output(ctx, "diff", "--staged", "--no-color", "--no-ext-diff")
	if err != nil {
		return "", err
	}
	if staged {
		return out, nil
	}
	unstaged, err := r.output(ctx, "diff", "--no-color", "--no-ext-diff")
	if err != nil {
		return "", err
	}
	return out + unstaged, nil
}

// Commit records message. With all=true "-a" is passed so modified tracked
// files are staged first.
func (r *Repo) Commit(ctx context.Context, message string, all bool) error {
	args := []string{"commit"}
	if all {
		args = append(args, "-a")
	}
	args = append(args, "-m", message)
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Root
	// Full environment: signing agents and hooks rely on it.
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	var stderr bytes.Buffer
	cmd.Stdout = r.Stdout
	if r.Stderr != nil {
		cmd.Stderr = io.MultiWriter(r.Stderr, &stderr)
	} else {
		cmd.Stderr = &stderr
	}
	if err := cmd.Run(); err != nil {
		return erruser.New(erruser.Subprocess, "git commit failed.", withStderr(err, stderr.String()))
	}
	return nil
}

func (r *Repo) output(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Root
	cmd.Env = minimalEnv()
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := fmt.Sprintf("git %s failed.", strings.Join(args, " "))
		return "", erruser.New(erruser.Subprocess, msg, withStderr(err, stderr.String()))
	}
	return stdout.String(), nil
}

func withStderr(err error, stderr string) error {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, stderr)
}

func minimalEnv() []string {
	env := []string{
		"PATH=" + os.Getenv("PATH"),
		"GIT_TERMINAL_PROMPT=0",
		"GIT_PAGER=cat", // subprocess output is captured
	}
	if home := os.Getenv("HOME"); home != "" {
		env = append(env, "HOME="+home)
	} else if runtime.GOOS == "windows" {
		if profile := os.Getenv("USERPROFILE"); profile != "" {
			env = append(env, "HOME="+profile)
		}
	}
	return env
}
