// Package gitlog decodes the output of "git log --log-size" run with the
// record format used by git.Repository.WriteLog.
//
// Wire format, one frame per commit:
//
//	log size <N>
//	<sha>
//	<email>
//	<date>
//	[<notes line>...]
//
//	<message body>
//	<blank line separating frames>
//
// N counts the bytes that follow the "log size" line for that commit.
package gitlog

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
)

// ErrMalformedRecord matches every *DecodeError.
var ErrMalformedRecord = errors.New("malformed log record")

// DecodeError reports a frame that does not follow the wire format. It points
// to a mismatch between the emitting command and the decoder, not to a bad
// repository state.
type DecodeError struct {
	Msg string
	Err error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode log record: %s: %v", e.Msg, e.Err)
	}
	return "decode log record: " + e.Msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrMalformedRecord }

// Commit is one decoded frame.
type Commit struct {
	SHA   string `json:"sha"`
	Email string `json:"email"`
	// Date is the committer date as printed by %ci.
	Date string `json:"date"`
	// Notes is nil when the commit has no notes or when any notes line is
	// not a "key: value" pair.
	Notes   map[string]string `json:"notes"`
	Message string            `json:"message"`
	// Diff is only set when diff capture was requested.
	Diff *string `json:"diff,omitempty"`
}

const (
	headerSeparator = "\n\n"
	notesSeparator  = ": "
)

// Decode parses one frame payload.
func Decode(payload string) (Commit, error) {
	headers, body, ok := strings.Cut(payload, headerSeparator)
	if !ok {
		return Commit{}, &DecodeError{Msg: "missing blank line between headers and message"}
	}
	fields, _ := splitHeaders(headers)
	c := Commit{
		SHA:     fields[0],
		Email:   fields[1],
		Date:    fields[2],
		Message: body,
	}
	if fields[3] != "" {
		c.Notes = decodeNotes(fields[3])
	}
	return c, nil
}

// splitHeaders maps header lines positionally onto sha, email, date and the
// raw notes block. n is the number of lines actually present; missing
// trailing fields are left empty.
func splitHeaders(headers string) (fields [4]string, n int) {
	lines := strings.SplitN(strings.ReplaceAll(headers, "\r", ""), "\n", len(fields))
	n = copy(fields[:], lines)
	return fields, n
}

func decodeNotes(raw string) map[string]string {
	notes := make(map[string]string)
	for line := range strings.SplitSeq(raw, "\n") {
		key, value, ok := strings.Cut(line, notesSeparator)
		if !ok {
			return nil
		}
		notes[key] = value
	}
	return notes
}

// Encode writes c as one frame followed by the blank separator line. Notes
// are written in key order. Encode does not validate c: an empty Email, a
// notes key containing ": " or a newline inside a header will not decode back
// to the same record.
func Encode(w io.Writer, c Commit) error {
	var b strings.Builder
	b.WriteString(c.SHA)
	b.WriteByte('\n')
	b.WriteString(c.Email)
	b.WriteByte('\n')
	b.WriteString(c.Date)
	for _, key := range slices.Sorted(maps.Keys(c.Notes)) {
		b.WriteByte('\n')
		b.WriteString(key)
		b.WriteString(notesSeparator)
		b.WriteString(c.Notes[key])
	}
	b.WriteString(headerSeparator)
	b.WriteString(c.Message)
	payload := b.String()
	_, err := fmt.Fprintf(w, "%s%d\n%s\n", logSizePrefix, len(payload), payload)
	return err
}
