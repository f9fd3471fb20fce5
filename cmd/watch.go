package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitvcs/internal/git"
	"github.com/thiagokokada/gitvcs/internal/render"
	"github.com/thiagokokada/gitvcs/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var delay time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print new commits as HEAD moves, until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := a.repository(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			head, err := r.RevParse(ctx, git.HEAD)
			if err != nil {
				return err
			}
			hw := &headWatcher{
				repo:     r,
				renderer: a.renderer(cmd.OutOrStdout()),
				logger:   a.logger,
				head:     head,
				maxDiff:  int64(a.cfg.MaxDiffSize),
			}
			a.logger.Info("watching repository", slog.String("path", r.WorkTree()), slog.String("head", head))
			return watch.Watch(ctx, watch.Config{RepoPath: r.WorkTree(), Delay: delay, Logger: a.logger}, func() {
				hw.check(ctx)
			})
		},
	}
	cmd.Flags().DurationVar(&delay, "delay", watch.DefaultDelay, "quiet period before reporting a change")
	return cmd
}

// headWatcher prints the commits between the last seen HEAD and the current
// one.
type headWatcher struct {
	mu       sync.Mutex
	repo     *git.Repository
	renderer *render.Renderer
	logger   *slog.Logger
	head     string
	maxDiff  int64
}

func (h *headWatcher) check(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	head, err := h.repo.RevParse(ctx, git.HEAD)
	if err != nil {
		h.logger.Error("resolve HEAD", slog.Any("error", err))
		return
	}
	if head == h.head {
		return
	}
	h.logger.Debug("HEAD moved", slog.String("from", h.head), slog.String("to", head))

	revRange := head
	if h.head != "" {
		revRange = h.head + ".." + head
	}
	var log strings.Builder
	if err := h.repo.WriteLog(ctx, &log, git.LogOptions{RevRange: revRange, MaxCount: git.DefaultMaxCount}); err != nil {
		h.logger.Error("write log", slog.Any("error", err))
		return
	}
	h.head = head
	for c, err := range h.repo.ParseLog(ctx, strings.NewReader(log.String()), h.maxDiff).All() {
		if err != nil {
			h.logger.Error("parse log", slog.Any("error", err))
			return
		}
		if err := h.renderer.Commit(c); err != nil {
			h.logger.Error("render commit", slog.Any("error", err))
			return
		}
	}
}
