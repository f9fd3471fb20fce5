package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"math"
	"os"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/thiagokokada/gitvcs/internal/git/gitlog"
	"github.com/thiagokokada/gitvcs/internal/textutil"
)

const (
	diffTempPrefix = "gitvcs-diff-"
	diffTooLong    = "\n... diff too long ...\n"
)

// LogReader decodes a stream produced by WriteLog one commit at a time.
type LogReader struct {
	repo        *Repository
	ctx         context.Context
	framer      *gitlog.Framer
	maxDiffSize int64
	err         error
}

// ParseLog returns a reader over the commits in r. When maxDiffSize is
// positive every commit also gets its diff, cut to maxDiffSize bytes. Diffs
// are computed with this repository, so r must come from it.
func (r *Repository) ParseLog(ctx context.Context, rd io.Reader, maxDiffSize int64) *LogReader {
	return &LogReader{
		repo:        r,
		ctx:         ctx,
		framer:      gitlog.NewFramer(rd),
		maxDiffSize: maxDiffSize,
	}
}

// Next returns the next commit, or io.EOF when the stream is exhausted. Once
// an error is returned every later call returns it again.
func (lr *LogReader) Next() (*gitlog.Commit, error) {
	if lr.err != nil {
		return nil, lr.err
	}
	c, err := lr.next()
	if err != nil {
		lr.err = err
		return nil, err
	}
	return c, nil
}

func (lr *LogReader) next() (*gitlog.Commit, error) {
	if err := lr.ctx.Err(); err != nil {
		return nil, err
	}
	payload, err := lr.framer.Next()
	if err != nil {
		return nil, err
	}
	c, err := gitlog.Decode(payload)
	if err != nil {
		return nil, err
	}
	if lr.maxDiffSize > 0 {
		diff, err := lr.repo.captureDiff(lr.ctx, c.SHA, lr.maxDiffSize)
		if err != nil {
			return nil, err
		}
		c.Diff = &diff
	}
	return &c, nil
}

// All ranges over the remaining commits. A failure is yielded once with a nil
// commit and ends the iteration.
func (lr *LogReader) All() iter.Seq2[*gitlog.Commit, error] {
	return func(yield func(*gitlog.Commit, error) bool) {
		for {
			c, err := lr.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(c, err) || err != nil {
				return
			}
		}
	}
}

// captureDiff writes the diff of sha into a temporary file and reads back at
// most maxSize bytes of it. The file is removed before returning, whatever
// happens.
func (r *Repository) captureDiff(ctx context.Context, sha string, maxSize int64) (string, error) {
	f, err := r.tempFS.TempFile("", diffTempPrefix)
	if err != nil {
		return "", fmt.Errorf("capture diff of %s: %w", sha, err)
	}
	name := f.Name()
	defer func() {
		if err := r.tempFS.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("cannot remove temporary diff file",
				slog.String("path", name),
				slog.String("sha", sha),
				slog.Any("err", err),
			)
		}
	}()
	defer f.Close()

	if err := r.WriteDiff(ctx, f, sha); err != nil {
		return "", err
	}
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return "", fmt.Errorf("capture diff of %s: %w", sha, err)
	}
	r.logger.Debug("diff size",
		slog.String("sha", sha),
		slog.String("size", humanize.Bytes(uint64(size))),
		slog.Int64("bytes", size),
	)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("capture diff of %s: %w", sha, err)
	}
	// A few bytes past the limit tell whether the cut splits a UTF-8 rune.
	readSize := maxSize
	if readSize <= math.MaxInt64-(utf8.UTFMax-1) {
		readSize += utf8.UTFMax - 1
	}
	content, err := io.ReadAll(io.LimitReader(f, readSize))
	if err != nil {
		return "", fmt.Errorf("capture diff of %s: %w", sha, err)
	}
	if size <= maxSize {
		return textutil.BytesAsString(content), nil
	}
	return textutil.BytesAsString(textutil.Truncate(content, int(maxSize))) + diffTooLong, nil
}
