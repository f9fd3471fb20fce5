package logfile

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
)

const sample = "log size 8\na\nb\nc\n\nm\nlog size 0\n"

func TestCreateOpenRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		file     string
		compress Compression
		magic    []byte
	}{
		{name: "plain", file: "log.txt", magic: []byte("log size")},
		{name: "gzip_by_extension", file: "log.gz", magic: gzipMagic},
		{name: "zstd_by_extension", file: "log.zst", magic: zstdMagic},
		{name: "explicit_zstd", file: "log.bin", compress: Zstd, magic: zstdMagic},
		{name: "explicit_gzip", file: "log.bin", compress: Gzip, magic: gzipMagic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fs := memfs.New()
			w, err := Create(fs, tt.file, tt.compress)
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if _, err := io.WriteString(w, sample); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}

			raw, err := util.ReadFile(fs, tt.file)
			if err != nil {
				t.Fatalf("ReadFile() error = %v", err)
			}
			if !bytes.HasPrefix(raw, tt.magic) {
				t.Fatalf("file starts with %x, want %x", raw[:min(len(raw), 4)], tt.magic)
			}

			r, err := Open(fs, tt.file)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer r.Close()
			got, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if string(got) != sample {
				t.Fatalf("content = %q, want %q", got, sample)
			}
		})
	}
}

func TestNewReader_ShortInput(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "l", "\x1f"} {
		r, err := NewReader(strings.NewReader(in))
		if err != nil {
			t.Fatalf("NewReader(%q) error = %v", in, err)
		}
		got, _ := io.ReadAll(r)
		if string(got) != in {
			t.Fatalf("NewReader(%q) content = %q", in, got)
		}
	}
}

func TestNewReader_CorruptGzip(t *testing.T) {
	t.Parallel()

	if _, err := NewReader(bytes.NewReader([]byte{0x1f, 0x8b, 0x00, 0x00})); err == nil {
		t.Fatal("NewReader() error = nil, want error")
	}
}

func TestParseCompression(t *testing.T) {
	t.Parallel()

	tests := map[string]Compression{"": None, "none": None, "GZIP": Gzip, "gz": Gzip, "zstd": Zstd, "zst": Zstd}
	for in, want := range tests {
		got, err := ParseCompression(in)
		if err != nil || got != want {
			t.Fatalf("ParseCompression(%q) = %v, %v, want %v", in, got, err, want)
		}
	}
	if _, err := ParseCompression("bzip2"); err == nil {
		t.Fatal("ParseCompression(bzip2) error = nil")
	}
}

func TestFromName(t *testing.T) {
	t.Parallel()

	tests := map[string]Compression{"a.log": None, "a.log.gz": Gzip, "A.ZST": Zstd, "x.zstd": Zstd, "noext": None}
	for in, want := range tests {
		if got := FromName(in); got != want {
			t.Fatalf("FromName(%q) = %v, want %v", in, got, want)
		}
	}
}
