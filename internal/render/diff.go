package render

import "strings"

type lineKind uint8

const (
	lineContext lineKind = iota
	lineFileHeader
	lineMeta
	lineHunk
	lineAdd
	lineDel
)

// hunkColumns returns the number of prefix columns used by the lines of the
// hunk starting at header: one per parent.
func hunkColumns(header string) int {
	n := len(header) - len(strings.TrimLeft(header, "@"))
	return max(n-1, 1)
}

func classifyDiffLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "diff --git "), strings.HasPrefix(line, "diff --cc "):
		return lineFileHeader
	case strings.HasPrefix(line, "+++ "), strings.HasPrefix(line, "--- "),
		strings.HasPrefix(line, "index "), strings.HasPrefix(line, "\\ "):
		return lineMeta
	case strings.HasPrefix(line, "@@"):
		return lineHunk
	case strings.HasPrefix(line, "+"):
		return lineAdd
	case strings.HasPrefix(line, "-"):
		return lineDel
	}
	return lineContext
}

// diffPathFromLine extracts the post-image path of a "diff --git" header. ok
// reports whether line is a file header at all; path may be empty when it
// cannot be parsed. Combined diffs name a single path.
func diffPathFromLine(line string) (string, bool) {
	const (
		gitPrefix = "diff --git "
		ccPrefix  = "diff --cc "
	)
	if after, found := strings.CutPrefix(line, ccPrefix); found {
		tokens := diffLineTokens(strings.TrimSpace(after))
		if len(tokens) == 0 {
			return "", true
		}
		return tokens[0], true
	}
	after, found := strings.CutPrefix(line, gitPrefix)
	if !found {
		return "", false
	}
	tokens := diffLineTokens(strings.TrimSpace(after))
	if len(tokens) < 2 {
		return "", true
	}
	return normalizeDiffPath(tokens[1]), true
}

// diffLineTokens splits a header on blanks, honouring git's C-style quoting
// of paths with special characters.
func diffLineTokens(s string) []string {
	var tokens []string
	for {
		s = strings.TrimLeft(s, " \t")
		if s == "" {
			break
		}
		if s[0] == '"' {
			var buf strings.Builder
			escaped := false
			i := 1
			for ; i < len(s); i++ {
				ch := s[i]
				if escaped {
					buf.WriteByte(ch)
					escaped = false
					continue
				}
				if ch == '\\' {
					escaped = true
					continue
				}
				if ch == '"' {
					i++
					break
				}
				buf.WriteByte(ch)
			}
			tokens = append(tokens, buf.String())
			s = s[i:]
			continue
		}
		j := strings.IndexAny(s, " \t")
		if j < 0 {
			j = len(s)
		}
		tokens = append(tokens, s[:j])
		s = s[j:]
	}
	return tokens
}

func normalizeDiffPath(token string) string {
	token = strings.TrimPrefix(token, "a/")
	return strings.TrimPrefix(token, "b/")
}

// diffLineCode splits a hunk line into its diff prefix and the source code
// after it. Combined diffs use one prefix column per parent.
func diffLineCode(line string, columns int) (string, string, bool) {
	if len(line) < columns {
		return "", "", false
	}
	for i := range columns {
		switch line[i] {
		case '+', '-', ' ':
		default:
			return "", "", false
		}
	}
	return line[:columns], line[columns:], true
}
