package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitvcs/internal/config"
	"github.com/thiagokokada/gitvcs/internal/git"
	"github.com/thiagokokada/gitvcs/internal/git/gitlog"
	"github.com/thiagokokada/gitvcs/internal/logfile"
)

const stdio = "-"

type outputOptions struct {
	path     string
	compress string
}

func (o *outputOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.path, "output", "o", "", "write the framed log to a file instead of stdout")
	cmd.Flags().StringVar(&o.compress, "compress", "", "compress the output: none, gzip or zstd (default from the file extension)")
}

// open returns where the framed log goes. The returned closer must be called
// even on success to flush compressed output.
func (o *outputOptions) open(cmd *cobra.Command) (io.WriteCloser, error) {
	c, err := logfile.ParseCompression(o.compress)
	if err != nil {
		return nil, err
	}
	if o.path == "" || o.path == stdio {
		return logfile.NewWriter(cmd.OutOrStdout(), c)
	}
	return logfile.Create(osfs.Default, o.path, c)
}

func newLogCmd(a *app) *cobra.Command {
	var (
		maxCount    int
		reviewNotes bool
		out         outputOptions
	)
	cmd := &cobra.Command{
		Use:   "log [revision-range]",
		Short: "Write the history as a size framed log stream",
		Long: `Write the history as a size framed log stream, one record per commit:

  log size <N>
  <sha>
  <author email>
  <committer date>
  [<notes lines>]

  <message>

The stream can be decoded later with "gitvcs parse-log".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.repository(cmd)
			if err != nil {
				return err
			}
			opts := git.LogOptions{
				MaxCount:        a.cfg.MaxCount,
				RevRange:        optionalArg(args, 0),
				WithReviewNotes: a.cfg.ReviewNotes,
			}
			if cmd.Flags().Changed("max-count") {
				opts.MaxCount = maxCount
			}
			if cmd.Flags().Changed("review-notes") {
				opts.WithReviewNotes = reviewNotes
			}
			w, err := out.open(cmd)
			if err != nil {
				return err
			}
			if err := r.WriteLog(cmd.Context(), w, opts); err != nil {
				_ = w.Close()
				return err
			}
			return w.Close()
		},
	}
	cmd.Flags().IntVarP(&maxCount, "max-count", "n", git.DefaultMaxCount, "limit the number of commits, 0 for no limit")
	cmd.Flags().BoolVar(&reviewNotes, "review-notes", false, "include the "+git.ReviewNotesRef+" notes")
	out.register(cmd)
	return cmd
}

type parseLogStats struct {
	commits   int
	withNotes int
	diffBytes int
}

func newParseLogCmd(a *app) *cobra.Command {
	var (
		maxDiffSize string
		asJSON      bool
		stats       bool
		author      string
		out         outputOptions
	)
	cmd := &cobra.Command{
		Use:   "parse-log [file]",
		Short: "Decode a framed log stream written by \"gitvcs log\"",
		Long: `Decode a framed log stream written by "gitvcs log", from a file or stdin.

Compressed files (gzip, zstd) are detected from their content. With
--max-diff-size the diff of every commit is computed in the repository given
by --repo and cut to that size.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit := a.cfg.MaxDiffSize
			if cmd.Flags().Changed("max-diff-size") {
				var err error
				if limit, err = config.ParseSize(maxDiffSize); err != nil {
					return err
				}
			}

			in, err := openLogInput(cmd, optionalArg(args, 0))
			if err != nil {
				return err
			}
			defer in.Close()

			// Without diffs nothing runs git, so the binary is not required.
			var r *git.Repository
			if limit > 0 {
				if r, err = a.repository(cmd); err != nil {
					return err
				}
			} else {
				r = git.New(nil, a.repoPath, git.WithLogger(a.logger))
			}

			var (
				emit   func(*gitlog.Commit) error
				output io.WriteCloser
			)
			switch {
			case out.path != "" || out.compress != "":
				if output, err = out.open(cmd); err != nil {
					return err
				}
				defer func() {
					if output != nil {
						_ = output.Close()
					}
				}()
				emit = func(c *gitlog.Commit) error { return gitlog.Encode(output, *c) }
			case asJSON:
				enc := json.NewEncoder(cmd.OutOrStdout())
				emit = func(c *gitlog.Commit) error { return enc.Encode(c) }
			default:
				rd := a.renderer(cmd.OutOrStdout())
				emit = rd.Commit
			}

			var st parseLogStats
			for c, err := range r.ParseLog(cmd.Context(), in, int64(limit)).All() {
				if err != nil {
					return err
				}
				if author != "" && !strings.Contains(strings.ToLower(c.Email), strings.ToLower(author)) {
					continue
				}
				st.commits++
				if c.Notes != nil {
					st.withNotes++
				}
				if c.Diff != nil {
					st.diffBytes += len(*c.Diff)
				}
				if err := emit(c); err != nil {
					return err
				}
			}
			if output != nil {
				err := output.Close()
				output = nil
				if err != nil {
					return err
				}
			}
			a.logger.Debug("log parsed", slog.Int("commits", st.commits))
			if stats {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s commits, %s with notes, %s of diffs\n",
					humanize.Comma(int64(st.commits)),
					humanize.Comma(int64(st.withNotes)),
					humanize.Bytes(uint64(st.diffBytes)),
				)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&maxDiffSize, "max-diff-size", "0", "attach diffs cut to this size, e.g. 64KiB (0 disables)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON object per commit")
	cmd.Flags().BoolVar(&stats, "stats", false, "print a summary on stderr")
	cmd.Flags().StringVar(&author, "author", "", "only keep commits whose author email contains this text")
	out.register(cmd)
	cmd.MarkFlagsMutuallyExclusive("json", "output")
	cmd.MarkFlagsMutuallyExclusive("json", "compress")
	return cmd
}

func openLogInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "" || path == stdio {
		return logfile.NewReader(cmd.InOrStdin())
	}
	return logfile.Open(osfs.Default, path)
}

func newDiffCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diff [commit]",
		Short: "Show the changes of a commit, or the uncommitted changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.repository(cmd)
			if err != nil {
				return err
			}
			dw := a.renderer(cmd.OutOrStdout()).NewDiffWriter()
			if commit := optionalArg(args, 0); commit != "" {
				err = r.WriteDiff(cmd.Context(), dw, commit)
			} else {
				err = r.WriteLocalDiff(cmd.Context(), dw)
			}
			if closeErr := dw.Close(); err == nil {
				err = closeErr
			}
			return err
		},
	}
}
