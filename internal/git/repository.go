package git

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/thiagokokada/gitvcs/internal/fsutil"
	"github.com/thiagokokada/gitvcs/internal/git/backend"
)

const (
	HEAD      = "HEAD"
	FetchHead = "FETCH_HEAD"

	DefaultRemote   = "origin"
	DefaultMaxCount = 50

	// ReviewNotesRef holds the notes code review tools attach to submitted
	// commits (Code-Review, Submitted-by, ...).
	ReviewNotesRef = "refs/notes/review"

	seedUserName  = "gitvcs"
	seedUserEmail = "gitvcs@example.net"
	seedMessage   = "initial content"
)

// Repository runs git commands against one working tree. A Repository holds
// no other state and is safe to share between goroutines as long as the
// commands issued do not conflict on the repository itself.
type Repository struct {
	runner   *backend.Runner
	workTree string
	fs       billy.Filesystem
	tempFS   billy.Filesystem
	logger   *slog.Logger
}

type Option func(*Repository)

// WithFS sets the filesystem rooted at the working tree. It defaults to the
// OS filesystem.
func WithFS(fs billy.Filesystem) Option {
	return func(r *Repository) { r.fs = fs }
}

// WithTempFS sets where temporary diff files are created. It defaults to the
// OS temporary directory.
func WithTempFS(fs billy.Filesystem) Option {
	return func(r *Repository) { r.tempFS = fs }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) { r.logger = logger }
}

func New(runner *backend.Runner, workTree string, opts ...Option) *Repository {
	r := &Repository{runner: runner, workTree: workTree}
	for _, opt := range opts {
		opt(r)
	}
	if r.fs == nil {
		r.fs = osfs.New(workTree)
	}
	if r.tempFS == nil {
		r.tempFS = osfs.New(os.TempDir())
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

func (r *Repository) WorkTree() string {
	return r.workTree
}

func (r *Repository) git(ctx context.Context, c backend.Cmd) (*backend.Result, error) {
	return r.runner.Run(ctx, r.workTree, c)
}

// Init creates the working tree if needed, runs "git init" and, when url is
// set, registers it as remote (DefaultRemote when remote is empty).
func (r *Repository) Init(ctx context.Context, url, remote string) error {
	if err := fsutil.Mkdir(r.fs, "."); err != nil {
		return fmt.Errorf("init %s: %w", r.workTree, err)
	}
	if _, err := r.git(ctx, backend.Cmd{Args: backend.Args("init", "-q")}); err != nil {
		return err
	}
	// git 1.8.3 crashes in "git stash" when this directory is missing.
	if err := fsutil.Mkdir(r.fs, filepath.Join(".git", "logs", "refs")); err != nil {
		return fmt.Errorf("init %s: %w", r.workTree, err)
	}
	if url == "" {
		return nil
	}
	if remote == "" {
		remote = DefaultRemote
	}
	_, err := r.git(ctx, backend.Cmd{Args: backend.Args("remote", "add", remote, url)})
	return err
}

func (r *Repository) Checkout(ctx context.Context, ref string, force bool) error {
	_, err := r.git(ctx, backend.Cmd{Args: []backend.Argument{
		backend.Arg("checkout"),
		backend.Arg("-q"),
		backend.FlagIf(force, "-f"),
		backend.Arg(ref),
	}})
	return err
}

// Describe returns the nearest tag plus distance and abbreviated hash for
// commit, or just the abbreviated hash when there is no tag. An empty commit
// means HEAD.
func (r *Repository) Describe(ctx context.Context, commit string) (string, error) {
	res, err := r.git(ctx, backend.Cmd{
		Args:   backend.Args("describe", "--always", orHead(commit)),
		Stdout: backend.Capture(),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// WriteLocalDiff writes the uncommitted changes of the working tree to w.
func (r *Repository) WriteLocalDiff(ctx context.Context, w io.Writer) error {
	_, err := r.git(ctx, backend.Cmd{
		Args:   backend.Args("--no-pager", "diff"),
		Stdout: backend.To(w),
	})
	return err
}

// WriteDiff writes the changes introduced by commit to w. Merges are shown as
// a combined diff and a root commit is diffed against the empty tree.
func (r *Repository) WriteDiff(ctx context.Context, w io.Writer, commit string) error {
	_, err := r.git(ctx, backend.Cmd{
		Args:   backend.Args("--no-pager", "diff-tree", "--cc", "--no-commit-id", "--root", commit),
		Stdout: backend.To(w),
	})
	return err
}

func (r *Repository) Fetch(ctx context.Context, url, refspec string) error {
	_, err := r.git(ctx, backend.Cmd{Args: []backend.Argument{
		backend.Arg("fetch"),
		backend.Arg(url),
		backend.OptArg(refspec),
	}})
	return err
}

// Update fetches refspec from url and checks out what was fetched.
func (r *Repository) Update(ctx context.Context, url, refspec string, force bool) error {
	if err := r.Fetch(ctx, url, refspec); err != nil {
		return err
	}
	return r.Checkout(ctx, FetchHead, force)
}

// FetchReviewNotes mirrors the remote review notes into the local notes ref.
func (r *Repository) FetchReviewNotes(ctx context.Context, url string) error {
	return r.Fetch(ctx, url, ReviewNotesRef+":"+ReviewNotesRef)
}

type LogOptions struct {
	// MaxCount limits the number of commits. Zero means no limit.
	MaxCount int
	// RevRange is passed to git log as is, e.g. "v1.0..HEAD".
	RevRange string
	// WithReviewNotes adds the review notes to every record.
	WithReviewNotes bool
}

func DefaultLogOptions() LogOptions {
	return LogOptions{MaxCount: DefaultMaxCount}
}

// logFormat is the record layout understood by gitlog.Decode: hash, mailmap
// aware author email, committer date, optional notes, blank line, raw body.
func logFormat(withNotes bool) string {
	format := "--format=format:%H%n%aE%n%ci%n"
	if withNotes {
		format += "%N%n"
	}
	return format + "%n%B"
}

// WriteLog writes the history to w as size framed records, see ParseLog.
func (r *Repository) WriteLog(ctx context.Context, w io.Writer, opts LogOptions) error {
	maxCount := backend.NoArg
	if opts.MaxCount != 0 {
		maxCount = backend.Arg("--max-count=" + strconv.Itoa(opts.MaxCount))
	}
	_, err := r.git(ctx, backend.Cmd{
		Args: []backend.Argument{
			backend.Arg("log"),
			backend.Arg(logFormat(opts.WithReviewNotes)),
			backend.Arg("--log-size"),
			maxCount,
			backend.FlagIf(opts.WithReviewNotes, "--show-notes=review"),
			backend.OptArg(opts.RevRange),
		},
		Stdout: backend.To(w),
		Stderr: backend.Discard(),
	})
	return err
}

// RevParse resolves ref to a commit hash. An empty ref means HEAD.
func (r *Repository) RevParse(ctx context.Context, ref string) (string, error) {
	res, err := r.git(ctx, backend.Cmd{
		Args:   backend.Args("rev-parse", "--revs-only", orHead(ref)),
		Stdout: backend.Capture(),
		Stderr: backend.Capture(),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// Create initializes a new repository at path and returns its absolute path.
// When seedDir is set, its content (minus any .git directory) is copied in
// and committed under a fixed identity.
func Create(ctx context.Context, runner *backend.Runner, path, seedDir string, opts ...Option) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("create repository: %w", err)
	}
	r := New(runner, abs, opts...)
	if err := r.Init(ctx, "", ""); err != nil {
		return "", err
	}
	if seedDir == "" {
		return abs, nil
	}
	if err := fsutil.SyncTree(osfs.New(seedDir), r.fs, ".git"); err != nil {
		return "", fmt.Errorf("create repository: %w", err)
	}
	for _, args := range [][]string{
		{"add", "-A"},
		{"config", "user.email", seedUserEmail},
		{"config", "user.name", seedUserName},
		{"commit", "-m", seedMessage},
	} {
		if _, err := r.git(ctx, backend.Cmd{Args: backend.Args(args...)}); err != nil {
			return "", err
		}
	}
	r.logger.Debug("repository created", slog.String("path", abs), slog.String("seed", seedDir))
	return abs, nil
}

func orHead(ref string) string {
	if ref == "" {
		return HEAD
	}
	return ref
}
