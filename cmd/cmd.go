package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitvcs/internal/buildinfo"
	"github.com/thiagokokada/gitvcs/internal/config"
	"github.com/thiagokokada/gitvcs/internal/git"
	"github.com/thiagokokada/gitvcs/internal/git/backend"
	"github.com/thiagokokada/gitvcs/internal/render"
)

// app carries what every subcommand needs once the global flags and the
// configuration have been resolved.
type app struct {
	repoPath   string
	configPath string
	verbose    bool
	gitBinary  string
	color      string
	theme      string

	getenv func(string) string
	cfg    config.Config
	logger *slog.Logger
	runner *backend.Runner
}

func Run() error {
	return run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(&app{getenv: os.Getenv})
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

// ExitCode maps an error returned by Run to a process exit status. A failed
// git command keeps git's own status.
func ExitCode(err error) int {
	var cmdErr *backend.CommandError
	if errors.As(err, &cmdErr) && cmdErr.ExitCode > 0 && cmdErr.ExitCode < 256 {
		return cmdErr.ExitCode
	}
	if err != nil {
		return 1
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "gitvcs",
		Short:         "Drive git and decode its history into structured records",
		Version:       buildinfo.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&a.repoPath, "repo", "C", ".", "path to the repository working tree")
	flags.StringVar(&a.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/gitvcs/config.yml)")
	flags.BoolVar(&a.verbose, "verbose", false, "enable verbose logging")
	flags.StringVar(&a.gitBinary, "git", "", "git executable to use")
	flags.StringVar(&a.color, "color", "", "colorize output: auto, always or never")
	flags.StringVar(&a.theme, "theme", "", "color theme: auto, light or dark")

	root.AddCommand(
		newInitCmd(a),
		newCreateCmd(a),
		newCheckoutCmd(a),
		newDescribeCmd(a),
		newDiffCmd(a),
		newFetchCmd(a),
		newUpdateCmd(a),
		newFetchReviewNotesCmd(a),
		newLogCmd(a),
		newParseLogCmd(a),
		newRevParseCmd(a),
		newWatchCmd(a),
		newVersionCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)

	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	path := a.configPath
	if path == "" {
		path = config.Path(a.getenv)
	}
	cfg, err := config.Load(path, a.getenv)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("git") {
		cfg.Git = a.gitBinary
	}
	if flags.Changed("color") {
		cfg.Color = a.color
	}
	if flags.Changed("theme") {
		cfg.Theme = a.theme
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger.Debug("configuration loaded",
		slog.String("path", path),
		slog.String("git", cfg.Git),
		slog.Int("max_count", cfg.MaxCount),
		slog.String("max_diff_size", cfg.MaxDiffSize.String()),
	)
	return nil
}

// gitRunner resolves the git binary on first use, so commands that never run
// git work without it.
func (a *app) gitRunner(cmd *cobra.Command) (*backend.Runner, error) {
	if a.runner != nil {
		return a.runner, nil
	}
	runner, err := backend.NewRunner(backend.Config{
		Binary:    a.cfg.Git,
		LogStream: cmd.ErrOrStderr(),
		Logger:    a.logger,
	})
	if err != nil {
		return nil, err
	}
	a.runner = runner
	return runner, nil
}

func (a *app) repository(cmd *cobra.Command) (*git.Repository, error) {
	runner, err := a.gitRunner(cmd)
	if err != nil {
		return nil, err
	}
	workTree, err := filepath.Abs(a.repoPath)
	if err != nil {
		return nil, fmt.Errorf("resolve repository path: %w", err)
	}
	return git.New(runner, workTree, git.WithLogger(a.logger)), nil
}

func (a *app) renderer(w io.Writer) *render.Renderer {
	return render.New(w, render.Options{
		Color:  a.cfg.Color,
		Theme:  render.ThemePreferenceFromString(a.cfg.Theme),
		Logger: a.logger,
	})
}

// optionalArg returns args[i] or "" when absent.
func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
