// Package watch notifies about changes in the metadata directory of a
// repository, such as a commit moving HEAD or a fetch updating refs.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/thiagokokada/gitvcs/internal/debounce"
)

const DefaultDelay = 350 * time.Millisecond

type Config struct {
	// RepoPath is the working tree root.
	RepoPath string
	// Delay is how long the directory must stay quiet before onChange runs.
	Delay  time.Duration
	Logger *slog.Logger
}

// Watch calls onChange after every burst of relevant filesystem events until
// ctx is done. onChange runs on its own goroutine, never concurrently with
// itself for the same burst.
func Watch(ctx context.Context, cfg Config, onChange func()) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	delay := cfg.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Error("watcher close", slog.Any("error", err))
		}
	}()
	paths := watchPaths(cfg.RepoPath)
	if len(paths) == 0 {
		return errors.New("watch: empty repository path")
	}
	for _, path := range paths {
		logger.Debug("adding path to FS watcher", slog.String("path", path))
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}

	d := debounce.New(delay, onChange)
	defer d.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if shouldIgnoreWatchPath(ev.Name) {
				continue
			}
			logger.Debug("fsnotify event",
				slog.String("op", ev.Op.String()),
				slog.String("path", ev.Name),
			)
			d.Trigger()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("fsnotify error", slog.Any("error", err))
		}
	}
}

// watchPaths lists the directories to watch. fsnotify is not recursive, so
// the ref and reflog directories that change on commit are added next to
// the metadata directory itself. Without a metadata directory the root is
// watched instead.
func watchPaths(root string) []string {
	if root == "" {
		return nil
	}
	gitDir := filepath.Join(root, ".git")
	if info, err := os.Stat(gitDir); err != nil || !info.IsDir() {
		return []string{root}
	}
	paths := []string{gitDir}
	for _, sub := range []string{filepath.Join("refs", "heads"), "logs"} {
		p := filepath.Join(gitDir, sub)
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			paths = append(paths, p)
		}
	}
	return paths
}

func shouldIgnoreWatchPath(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".lock" || ext == ".ipc"
}
