// Package textutil converts raw command output into strings.
package textutil

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// BytesAsString decodes b as UTF-8 when it is valid UTF-8, and as Latin-1
// otherwise, so arbitrary bytes always produce a string.
func BytesAsString(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// Truncate returns the first n bytes of b. When byte n falls inside a valid
// multi-byte UTF-8 sequence, the cut moves back to the start of that
// sequence. b may hold up to utf8.UTFMax-1 bytes past n so that a split rune
// can be told apart from a Latin-1 byte that merely looks like a lead byte.
func Truncate(b []byte, n int) []byte {
	if n >= len(b) {
		return b
	}
	head := b[:n]
	for i := n - 1; i >= 0 && i > n-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if utf8.FullRune(head[i:]) {
			return head
		}
		if _, size := utf8.DecodeRune(b[i:]); size > 1 && i+size > n && utf8.Valid(head[:i]) {
			return head[:i]
		}
		return head
	}
	return head
}
