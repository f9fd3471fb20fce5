package git

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/thiagokokada/gitvcs/internal/git/backend"
)

func newGitRunner(t *testing.T) *backend.Runner {
	t.Helper()
	runner, err := backend.NewRunner(backend.Config{LogStream: io.Discard})
	if errors.Is(err, backend.ErrGitNotFound) {
		t.Skip("git not available")
	}
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return runner
}

// commitFixture builds a repository with go-git, one commit per author.
func commitFixture(t *testing.T, dir string, authors ...string) []string {
	t.Helper()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	when := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	var hashes []string
	for i, email := range authors {
		name := filepath.Join(dir, "file.txt")
		if err := os.WriteFile(name, []byte(strings.Repeat("line\n", i+1)), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := wt.Add("file.txt"); err != nil {
			t.Fatalf("Add: %v", err)
		}
		sig := &object.Signature{Name: email, Email: email, When: when.Add(time.Duration(i) * time.Hour)}
		h, err := wt.Commit("change by "+email+"\n\nbody\n", &gogit.CommitOptions{Author: sig, Committer: sig})
		if err != nil {
			t.Fatalf("Commit: %v", err)
		}
		hashes = append(hashes, h.String())
	}
	return hashes
}

func TestIntegration_CreateWithSeed(t *testing.T) {
	t.Parallel()

	runner := newGitRunner(t)
	ctx := context.Background()

	seed := t.TempDir()
	if err := os.WriteFile(filepath.Join(seed, "README.md"), []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	path, err := Create(ctx, runner, filepath.Join(t.TempDir(), "repo"), seed)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	repo, err := gogit.PlainOpen(path)
	if err != nil {
		t.Fatalf("PlainOpen: %v", err)
	}
	head, err := repo.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		t.Fatalf("CommitObject: %v", err)
	}
	if commit.Author.Email != seedUserEmail || commit.Author.Name != seedUserName {
		t.Fatalf("author = %+v", commit.Author)
	}
	if strings.TrimSpace(commit.Message) != "initial content" {
		t.Fatalf("message = %q", commit.Message)
	}

	r := New(runner, path)
	sha, err := r.RevParse(ctx, "")
	if err != nil {
		t.Fatalf("RevParse() error = %v", err)
	}
	if sha != head.Hash().String() {
		t.Fatalf("RevParse() = %q, want %q", sha, head.Hash())
	}
	desc, err := r.Describe(ctx, "")
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if !strings.HasPrefix(sha, desc) {
		t.Fatalf("Describe() = %q, want a prefix of %q", desc, sha)
	}

	if err := os.WriteFile(filepath.Join(path, "README.md"), []byte("changed\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var diff bytes.Buffer
	if err := r.WriteLocalDiff(ctx, &diff); err != nil {
		t.Fatalf("WriteLocalDiff() error = %v", err)
	}
	if !strings.Contains(diff.String(), "+changed") {
		t.Fatalf("local diff = %q", diff.String())
	}
}

func TestIntegration_WriteAndParseLog(t *testing.T) {
	t.Parallel()

	runner := newGitRunner(t)
	ctx := context.Background()
	dir := t.TempDir()
	hashes := commitFixture(t, dir, "alice@example.com", "bob@example.com", "carol@example.com")
	r := New(runner, dir)

	var out bytes.Buffer
	if err := r.WriteLog(ctx, &out, LogOptions{MaxCount: 2}); err != nil {
		t.Fatalf("WriteLog() error = %v", err)
	}

	var got []string
	for c, err := range r.ParseLog(ctx, &out, 1<<20).All() {
		if err != nil {
			t.Fatalf("All() error = %v", err)
		}
		if c.Diff == nil || !strings.Contains(*c.Diff, "file.txt") {
			t.Fatalf("commit %s: diff = %v", c.SHA, c.Diff)
		}
		if c.Notes != nil {
			t.Fatalf("commit %s: unexpected notes %v", c.SHA, c.Notes)
		}
		if c.Message != "change by "+c.Email+"\n\nbody\n" {
			t.Fatalf("commit %s: message = %q", c.SHA, c.Message)
		}
		got = append(got, c.SHA+" "+c.Email)
	}
	want := []string{hashes[2] + " carol@example.com", hashes[1] + " bob@example.com"}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("log mismatch:\n%s", textDiff(strings.Join(want, "\n"), strings.Join(got, "\n")))
	}
}

func TestIntegration_ReviewNotes(t *testing.T) {
	t.Parallel()

	runner := newGitRunner(t)
	ctx := context.Background()
	dir := t.TempDir()
	hashes := commitFixture(t, dir, "alice@example.com", "bob@example.com")

	_, err := runner.Run(ctx, dir, backend.Cmd{Args: backend.Args(
		"-c", "user.name=reviewer", "-c", "user.email=reviewer@example.com",
		"notes", "--ref=review", "add", "-m", "Code-Review+2: Jane <jane@example.org>\nSubmitted-by: Joe", hashes[0],
	)})
	if err != nil {
		t.Fatalf("notes add: %v", err)
	}

	r := New(runner, dir)
	var out bytes.Buffer
	if err := r.WriteLog(ctx, &out, LogOptions{WithReviewNotes: true}); err != nil {
		t.Fatalf("WriteLog() error = %v", err)
	}
	notes := map[string]map[string]string{}
	for c, err := range r.ParseLog(ctx, &out, 0).All() {
		if err != nil {
			t.Fatalf("All() error = %v", err)
		}
		notes[c.SHA] = c.Notes
	}
	if len(notes) != 2 {
		t.Fatalf("records = %d, want 2", len(notes))
	}
	if n := notes[hashes[0]]; n["Code-Review+2"] != "Jane <jane@example.org>" || n["Submitted-by"] != "Joe" {
		t.Fatalf("notes = %v", n)
	}
	if notes[hashes[1]] != nil {
		t.Fatalf("commit without notes got %v", notes[hashes[1]])
	}
}

func TestIntegration_UpdateFromLocalRemote(t *testing.T) {
	t.Parallel()

	runner := newGitRunner(t)
	ctx := context.Background()
	upstream := t.TempDir()
	hashes := commitFixture(t, upstream, "alice@example.com", "bob@example.com")

	r := New(runner, filepath.Join(t.TempDir(), "clone"))
	if err := r.Init(ctx, upstream, ""); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := r.Update(ctx, DefaultRemote, "HEAD", false); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	sha, err := r.RevParse(ctx, "")
	if err != nil {
		t.Fatalf("RevParse() error = %v", err)
	}
	if sha != hashes[1] {
		t.Fatalf("HEAD = %q, want %q", sha, hashes[1])
	}

	err = r.Checkout(ctx, "no-such-branch", false)
	var cmdErr *backend.CommandError
	if !errors.As(err, &cmdErr) || cmdErr.ExitCode == 0 {
		t.Fatalf("Checkout() error = %v, want *CommandError", err)
	}
}
