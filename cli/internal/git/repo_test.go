package git

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"aicommit/cli/internal/erruser"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run(t, dir, "git", "init")
	run(t, dir, "git", "config", "user.email", "test@ai-commit.local")
	run(t, dir, "git", "config", "user.name", "Test")
	run(t, dir, "git", "config", "commit.gpgsign", "false")
	writeFile(t, dir, "f1.txt", "a\n")
	run(t, dir, "git", "add", "f1.txt")
	run(t, dir, "git", "commit", "-m", "c1")
	return dir
}

func run(t *testing.T, dir, name string, args ...string) {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("%s %v: %v\n%s", name, args, err, out)
	}
}

func runOut(t *testing.T, dir, name string, args ...string) string {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("%s %v: %v", name, args, err)
	}
	return strings.TrimSpace(string(out))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRepoRoot_fromSubdir(t *testing.T) {
	t.Parallel()
	repo := initRepo(t)
	subdir := filepath.Join(repo, "sub", "dir")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatal(err)
	}
	got, err := RepoRoot(subdir)
	if err != nil {
		t.Fatalf("RepoRoot: %v", err)
	}
	want := runOut(t, repo, "git", "rev-parse", "--show-toplevel")
	wantAbs, err := filepath.Abs(want)
	if err != nil {
		t.Fatal(err)
	}
	if got != wantAbs {
		t.Errorf("RepoRoot(subdir) = %q, want %q", got, wantAbs)
	}
}

func TestRepoRoot_notARepo(t *testing.T) {
	t.Parallel()
	_, err := RepoRoot(t.TempDir())
	if err == nil {
		t.Fatal("RepoRoot(non-repo): expected error")
	}
	if !erruser.Is(err, erruser.Subprocess) {
		t.Errorf("kind = %v, want Subprocess", erruser.KindOf(err))
	}
}

func TestDiff_noChanges_returnsEmpty(t *testing.T) {
	t.Parallel()
	repo := &Repo{Root: initRepo(t)}
	for _, staged := range []bool{true, false} {
		got, err := repo.Diff(context.Background(), staged)
		if err != nil {
			t.Fatalf("Diff(staged=%v): %v", staged, err)
		}
		if got != "" {
			t.Errorf("Diff(staged=%v) = %q, want empty", staged, got)
		}
	}
}

func TestDiff_stagedOnly(t *testing.T) {
	t.Parallel()
	root := initRepo(t)
	writeFile(t, root, "new.txt", "staged line\n")
	run(t, root, "git", "add", "new.txt")
	writeFile(t, root, "f1.txt", "a\nunstaged line\n")

	repo := &Repo{Root: root}
	staged, err := repo.Diff(context.Background(), true)
	if err != nil {
		t.Fatalf("Diff(staged): %v", err)
	}
	if !strings.Contains(staged, "+staged line") {
		t.Errorf("staged diff missing staged change: %q", staged)
	}
	if strings.Contains(staged, "unstaged line") {
		t.Errorf("staged diff contains unstaged change: %q", staged)
	}

	all, err := repo.Diff(context.Background(), false)
	if err != nil {
		t.Fatalf("Diff(all): %v", err)
	}
	if !strings.Contains(all, "+staged line") || !strings.Contains(all, "+unstaged line") {
		t.Errorf("combined diff missing a change: %q", all)
	}
	if strings.Index(all, "+staged line") > strings.Index(all, "+unstaged line") {
		t.Error("staged changes should come before unstaged changes")
	}
}

func TestCommit_stagedChanges(t *testing.T) {
	t.Parallel()
	root := initRepo(t)
	writeFile(t, root, "new.txt", "x\n")
	run(t, root, "git", "add", "new.txt")

	var out bytes.Buffer
	repo := &Repo{Root: root, Stdout: &out}
	if err := repo.Commit(context.Background(), "feat: add new file", false); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if got := runOut(t, root, "git", "log", "-1", "--format=%s"); got != "feat: add new file" {
		t.Errorf("last commit subject = %q", got)
	}
	if got := runOut(t, root, "git", "status", "--porcelain"); got != "" {
		t.Errorf("worktree not clean after commit: %q", got)
	}
}

func TestCommit_allIncludesUnstaged(t *testing.T) {
	t.Parallel()
	root := initRepo(t)
	writeFile(t, root, "f1.txt", "changed\n")

	repo := &Repo{Root: root}
	if err := repo.Commit(context.Background(), "fix: change f1", true); err != nil {
		t.Fatalf("Commit(all): %v", err)
	}
	if got := runOut(t, root, "git", "status", "--porcelain"); got != "" {
		t.Errorf("worktree not clean after commit -a: %q", got)
	}
}

func TestCommit_nothingStaged_fails(t *testing.T) {
	t.Parallel()
	repo := &Repo{Root: initRepo(t)}
	err := repo.Commit(context.Background(), "chore: nothing", false)
	if err == nil {
		t.Fatal("Commit with nothing staged: expected error")
	}
	if !erruser.Is(err, erruser.Subprocess) {
		t.Errorf("kind = %v, want Subprocess", erruser.KindOf(err))
	}
}

func TestMinimalEnv_includesHome(t *testing.T) {
	home := os.Getenv("HOME")
	if home == "" {
		t.Skip("HOME not set")
	}
	found := false
	for _, e := range minimalEnv() {
		if e == "HOME="+home {
			found = true
		}
	}
	if !found {
		t.Errorf("minimalEnv() missing HOME=%s", home)
	}
}
