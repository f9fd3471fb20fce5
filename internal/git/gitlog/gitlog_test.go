package gitlog

import (
	"bytes"
	"errors"
	"io"
	"maps"
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
)

func textDiff(want, got string) string {
	d, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	if err != nil {
		return err.Error()
	}
	return d
}

func assertCommit(t *testing.T, got, want Commit) {
	t.Helper()
	if got.SHA != want.SHA || got.Email != want.Email || got.Date != want.Date {
		t.Fatalf("headers = (%q, %q, %q), want (%q, %q, %q)", got.SHA, got.Email, got.Date, want.SHA, want.Email, want.Date)
	}
	if (got.Notes == nil) != (want.Notes == nil) || !maps.Equal(got.Notes, want.Notes) {
		t.Fatalf("notes = %#v, want %#v", got.Notes, want.Notes)
	}
	if got.Message != want.Message {
		t.Fatalf("message mismatch:\n%s", textDiff(want.Message, got.Message))
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    Commit
	}{
		{
			name:    "plain",
			payload: "abc123\nuser@example.org\n2024-01-01 00:00:00 +0000\n\nHello\nWorld",
			want:    Commit{SHA: "abc123", Email: "user@example.org", Date: "2024-01-01 00:00:00 +0000", Message: "Hello\nWorld"},
		},
		{
			name:    "message_with_blank_lines",
			payload: "abc\na@b.c\n2024-01-01 00:00:00 +0000\n\nSubject\n\nBody one\n\nBody two\n",
			want:    Commit{SHA: "abc", Email: "a@b.c", Date: "2024-01-01 00:00:00 +0000", Message: "Subject\n\nBody one\n\nBody two\n"},
		},
		{
			name:    "notes",
			payload: "abc\na@b.c\n2024-01-01 00:00:00 +0000\nCode-Review+2: Jane <jane@example.org>\nSubmitted-at: Mon, 01 Jan 2024\n\nmsg",
			want: Commit{
				SHA: "abc", Email: "a@b.c", Date: "2024-01-01 00:00:00 +0000",
				Notes: map[string]string{
					"Code-Review+2": "Jane <jane@example.org>",
					"Submitted-at":  "Mon, 01 Jan 2024",
				},
				Message: "msg",
			},
		},
		{
			name:    "notes_value_with_separator",
			payload: "abc\na@b.c\nd\nReviewed-on: https://example.org: 8080\n\nmsg",
			want: Commit{
				SHA: "abc", Email: "a@b.c", Date: "d",
				Notes:   map[string]string{"Reviewed-on": "https://example.org: 8080"},
				Message: "msg",
			},
		},
		{
			name:    "notes_empty_value",
			payload: "abc\na@b.c\nd\nLabel: \n\nmsg",
			want:    Commit{SHA: "abc", Email: "a@b.c", Date: "d", Notes: map[string]string{"Label": ""}, Message: "msg"},
		},
		{
			name:    "carriage_returns_stripped_from_headers",
			payload: "abc\r\na@b.c\r\nd\nk: v\r\n\nmsg\r\n",
			want:    Commit{SHA: "abc", Email: "a@b.c", Date: "d", Notes: map[string]string{"k": "v"}, Message: "msg\r\n"},
		},
		{
			name:    "empty_message",
			payload: "abc\na@b.c\nd\n\n",
			want:    Commit{SHA: "abc", Email: "a@b.c", Date: "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Decode(tt.payload)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			assertCommit(t, got, tt.want)
			if got.Diff != nil {
				t.Fatalf("Decode() should never set Diff")
			}
		})
	}
}

func TestDecode_MalformedNotesDiscarded(t *testing.T) {
	t.Parallel()

	payloads := []string{
		"abc\na@b.c\nd\nCode-Review+2: Jane\nnot a pair\n\nHello",
		"abc\na@b.c\nd\nno-space:here\n\nHello",
		"abc\na@b.c\nd\nk: v\nbroken\n\nHello",
	}
	for _, payload := range payloads {
		got, err := Decode(payload)
		if err != nil {
			t.Fatalf("Decode(%q) error = %v", payload, err)
		}
		if got.Notes != nil {
			t.Fatalf("Decode(%q) notes = %#v, want nil", payload, got.Notes)
		}
		if got.SHA != "abc" || got.Email != "a@b.c" || got.Date != "d" {
			t.Fatalf("Decode(%q) headers = %+v", payload, got)
		}
	}

	got, _ := Decode(payloads[0])
	if got.Message != "Hello" {
		t.Fatalf("message = %q, want %q", got.Message, "Hello")
	}
}

func TestDecode_PositionalHeaders(t *testing.T) {
	t.Parallel()

	got, err := Decode("abc\n\nbody")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.SHA != "abc" || got.Email != "" || got.Date != "" || got.Notes != nil || got.Message != "body" {
		t.Fatalf("Decode() = %+v", got)
	}

	// An explicitly empty email line is still a present field.
	fields, n := splitHeaders("abc\n\nd")
	if n != 3 || fields[1] != "" || fields[2] != "d" {
		t.Fatalf("splitHeaders() = %q, %d", fields, n)
	}
	fields, n = splitHeaders("abc")
	if n != 1 || fields[1] != "" || fields[2] != "" || fields[3] != "" {
		t.Fatalf("splitHeaders() = %q, %d", fields, n)
	}
	fields, n = splitHeaders("a\nb\nc\nk: v\nk2: v2")
	if n != 4 || fields[3] != "k: v\nk2: v2" {
		t.Fatalf("splitHeaders() = %q, %d", fields, n)
	}
}

func TestDecode_MissingSeparator(t *testing.T) {
	t.Parallel()

	_, err := Decode("abc\na@b.c\n2024-01-01 00:00:00 +0000\nno body")
	if !errors.Is(err, ErrMalformedRecord) {
		t.Fatalf("Decode() error = %v, want ErrMalformedRecord", err)
	}
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("Decode() error type = %T", err)
	}
}

func TestDecode_Idempotent(t *testing.T) {
	t.Parallel()

	payload := "abc\na@b.c\nd\nk: v\n\nmsg"
	first, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	first.Notes["k"] = "mutated"
	second, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if second.Notes["k"] != "v" {
		t.Fatalf("second decode shares state with the first: %#v", second.Notes)
	}
	third, _ := Decode(payload)
	assertCommit(t, second, third)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	commits := []Commit{
		{SHA: "1111111111111111111111111111111111111111", Email: "alice@example.com", Date: "2024-01-02 03:04:05 +0100", Message: "Subject\n\nBody\n"},
		{
			SHA: "2222222222222222222222222222222222222222", Email: "bob@example.com", Date: "2024-02-03 04:05:06 -0500",
			Notes:   map[string]string{"Code-Review+2": "Carol <carol@example.com>", "Submitted-by": "Dave <dave@example.com>"},
			Message: "Fix the thing\n\n\nwith several\n\nblank lines\n",
		},
		{SHA: "3333333333333333333333333333333333333333", Email: "eve@example.com", Date: "2024-03-04 05:06:07 +0000", Message: ""},
		{SHA: "4444444444444444444444444444444444444444", Email: "mallory@example.com", Date: "2024-04-05 06:07:08 +0000", Message: "log size 12\nlooks like a frame\n\n"},
		{SHA: "5555555555555555555555555555555555555555", Email: "trent@example.com", Date: "2024-05-06 07:08:09 +0000", Message: "unicode: héllo wörld ✓"},
	}

	var buf bytes.Buffer
	for _, c := range commits {
		if err := Encode(&buf, c); err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
	}

	f := NewFramer(&buf)
	for i, want := range commits {
		payload, err := f.Next()
		if err != nil {
			t.Fatalf("frame %d: Next() error = %v", i, err)
		}
		got, err := Decode(payload)
		if err != nil {
			t.Fatalf("frame %d: Decode() error = %v", i, err)
		}
		assertCommit(t, got, want)
	}
	if _, err := f.Next(); err != io.EOF {
		t.Fatalf("Next() after last frame = %v, want io.EOF", err)
	}
}

func TestEncode_Format(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := Encode(&buf, Commit{SHA: "abc", Email: "a@b.c", Date: "d", Notes: map[string]string{"z": "1", "a": "2"}, Message: "m"})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	want := "log size 24\nabc\na@b.c\nd\na: 2\nz: 1\n\nm\n"
	if buf.String() != want {
		t.Fatalf("Encode() mismatch:\n%s", textDiff(want, buf.String()))
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Fatal("frame should end with separator")
	}
}
