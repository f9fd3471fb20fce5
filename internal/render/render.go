// Package render prints decoded commits for humans, with optional ANSI
// colors and syntax highlighted diffs.
package render

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/mattn/go-isatty"

	"github.com/thiagokokada/gitvcs/internal/git/gitlog"
)

type Options struct {
	// Color is "always", "never" or "auto" (color only on terminals).
	Color  string
	Theme  ThemePreference
	Logger *slog.Logger
}

type Renderer struct {
	w       io.Writer
	color   bool
	palette palette
	style   *chroma.Style
}

func New(w io.Writer, opts Options) *Renderer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Renderer{w: w}
	switch opts.Color {
	case "always":
		r.color = true
	case "never":
		r.color = false
	default:
		r.color = isTerminal(w)
	}
	if r.color {
		r.palette = paletteForPreference(opts.Theme, logger)
		r.style = styleForPalette(r.palette)
	}
	return r
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func styleForPalette(p palette) *chroma.Style {
	if st := styles.Get(p.ChromaName); st != nil {
		return st
	}
	return styles.Fallback
}

func (r *Renderer) sgr(b *strings.Builder, params, text string) {
	if !r.color || params == "" {
		b.WriteString(text)
		return
	}
	fmt.Fprintf(b, "\x1b[%sm%s\x1b[0m", params, text)
}

// Commit writes c in a layout close to "git log --notes".
func (r *Renderer) Commit(c *gitlog.Commit) error {
	var b strings.Builder
	r.sgr(&b, r.palette.CommitLine, "commit "+c.SHA)
	b.WriteByte('\n')
	fmt.Fprintf(&b, "Author: %s\n", c.Email)
	fmt.Fprintf(&b, "Date:   %s\n", c.Date)
	b.WriteByte('\n')

	message := strings.Trim(c.Message, "\n")
	if message == "" {
		b.WriteString("    (no commit message)\n")
	} else {
		for line := range strings.SplitSeq(message, "\n") {
			if line == "" {
				b.WriteByte('\n')
				continue
			}
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}
	if len(c.Notes) > 0 {
		b.WriteString("\nNotes (review):\n")
		for _, key := range slices.Sorted(maps.Keys(c.Notes)) {
			fmt.Fprintf(&b, "    %s: %s\n", key, c.Notes[key])
		}
	}
	if c.Diff != nil {
		b.WriteByte('\n')
		r.diff(&b, *c.Diff)
	}
	b.WriteByte('\n')
	_, err := io.WriteString(r.w, b.String())
	return err
}

// diffState is what rendering a diff line needs to know about the lines
// before it.
type diffState struct {
	lexer   chroma.Lexer
	columns int
	inHunk  bool
}

func newDiffState() diffState {
	return diffState{columns: 1}
}

func (r *Renderer) diff(b *strings.Builder, diff string) {
	st := newDiffState()
	for _, line := range strings.Split(strings.TrimSuffix(diff, "\n"), "\n") {
		r.diffLine(b, &st, line)
	}
}

func (r *Renderer) diffLine(b *strings.Builder, st *diffState, line string) {
	if st.inHunk {
		if prefix, code, ok := diffLineCode(line, st.columns); ok {
			r.codeLine(b, st.lexer, prefix, code)
			b.WriteByte('\n')
			return
		}
	}
	switch classifyDiffLine(line) {
	case lineFileHeader:
		st.inHunk = false
		st.lexer = nil
		if path, _ := diffPathFromLine(line); path != "" {
			st.lexer = lexerForPath(path)
		}
		r.sgr(b, r.palette.DiffHeader, line)
	case lineMeta:
		r.sgr(b, r.palette.DiffHeader, line)
	case lineHunk:
		st.inHunk = true
		st.columns = hunkColumns(line)
		r.sgr(b, r.palette.Hunk, line)
	default:
		b.WriteString(line)
	}
	b.WriteByte('\n')
}

// DiffWriter renders a diff while it is being written, holding at most one
// incomplete line in memory.
type DiffWriter struct {
	r       *Renderer
	state   diffState
	partial []byte
	err     error
}

func (r *Renderer) NewDiffWriter() *DiffWriter {
	return &DiffWriter{r: r, state: newDiffState()}
}

func (d *DiffWriter) Write(p []byte) (int, error) {
	if d.err != nil {
		return 0, d.err
	}
	n := len(p)
	var b strings.Builder
	for {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			break
		}
		line := string(d.partial) + string(p[:i])
		d.partial = d.partial[:0]
		d.r.diffLine(&b, &d.state, line)
		p = p[i+1:]
	}
	d.partial = append(d.partial, p...)
	if b.Len() == 0 {
		return n, nil
	}
	if _, err := io.WriteString(d.r.w, b.String()); err != nil {
		d.err = err
		return 0, err
	}
	return n, nil
}

// Close renders a last line that had no trailing newline.
func (d *DiffWriter) Close() error {
	if d.err != nil || len(d.partial) == 0 {
		return d.err
	}
	var b strings.Builder
	d.r.diffLine(&b, &d.state, string(d.partial))
	d.partial = nil
	if _, err := io.WriteString(d.r.w, b.String()); err != nil {
		d.err = err
	}
	return d.err
}

func (r *Renderer) codeLine(b *strings.Builder, lexer chroma.Lexer, prefix, code string) {
	params := ""
	switch {
	case strings.Contains(prefix, "+"):
		params = r.palette.DiffAdd
	case strings.Contains(prefix, "-"):
		params = r.palette.DiffDel
	}
	if !r.color {
		b.WriteString(prefix)
		b.WriteString(code)
		return
	}
	r.sgr(b, params, prefix)
	if lexer == nil || code == "" {
		r.sgr(b, params, code)
		return
	}
	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		r.sgr(b, params, code)
		return
	}
	for _, token := range iterator.Tokens() {
		// Lexers may append a newline the line never had.
		value := strings.ReplaceAll(token.Value, "\n", "")
		if value == "" {
			continue
		}
		r.sgr(b, colorFromEntry(r.style.Get(token.Type)), value)
	}
}

// colorFromEntry returns the SGR parameters for a 24-bit foreground color.
func colorFromEntry(entry chroma.StyleEntry) string {
	if !entry.Colour.IsSet() {
		return ""
	}
	c := entry.Colour
	return fmt.Sprintf("38;2;%d;%d;%d", c.Red(), c.Green(), c.Blue())
}

func lexerForPath(path string) chroma.Lexer {
	lexer := lexers.Match(path)
	if lexer == nil {
		return nil
	}
	return chroma.Coalesce(lexer)
}
