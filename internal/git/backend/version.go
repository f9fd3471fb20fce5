package backend

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Version is a parsed "git --version".
type Version struct {
	Major int
	Minor int
	Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// MinVersion is the oldest git whose command line matches every invocation
// made by this package.
var MinVersion = Version{Major: 2, Minor: 23}

// Supported reports whether v is at least MinVersion.
func (v Version) Supported() bool {
	return !v.Less(MinVersion)
}

// Less reports whether v is older than other.
func (v Version) Less(other Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor < other.Minor
	}
	return v.Patch < other.Patch
}

// ParseVersion extracts the version from "git --version" output.
func ParseVersion(out string) (Version, bool) {
	s := strings.TrimSpace(out)
	if s == "" {
		return Version{}, false
	}
	// Common formats:
	// - "git version 2.44.0"
	// - "git version 2.39.3 (Apple Git-146)"
	// - "git version 2.39.3.windows.1"
	if idx := strings.Index(s, "git version"); idx >= 0 {
		s = strings.TrimSpace(s[idx+len("git version"):])
	}
	start := strings.IndexAny(s, "0123456789")
	if start < 0 {
		return Version{}, false
	}
	s = s[start:]
	end := 0
	for end < len(s) && (s[end] == '.' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	parts := strings.Split(strings.Trim(s[:end], "."), ".")
	if len(parts) < 2 {
		return Version{}, false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return Version{}, false
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return Version{}, false
	}
	patch := 0
	if len(parts) >= 3 {
		if p, err := strconv.Atoi(parts[2]); err == nil {
			patch = p
		}
	}
	return Version{Major: major, Minor: minor, Patch: patch}, true
}

type versionInfo struct {
	out    string
	parsed Version
	err    error
}

// Version runs "git --version" once per Runner and returns the parsed
// version along with the raw output.
func (r *Runner) Version(ctx context.Context) (Version, string, error) {
	r.versionOnce.Do(func() {
		res, err := r.Run(ctx, "", Cmd{Args: Args("--version"), Stdout: Capture(), Stderr: Capture()})
		if err != nil {
			r.version.err = err
			return
		}
		out := strings.TrimSpace(res.Stdout)
		r.version.out = out
		parsed, ok := ParseVersion(out)
		if !ok {
			r.version.err = fmt.Errorf("unable to parse git version output: %q", out)
			return
		}
		r.version.parsed = parsed
	})
	return r.version.parsed, r.version.out, r.version.err
}
