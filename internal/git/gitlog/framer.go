package gitlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const logSizePrefix = "log size "

// Framer splits a log stream into frame payloads. It reads lazily, only moves
// forward and cannot be restarted.
type Framer struct {
	r   *bufio.Reader
	err error
}

func NewFramer(r io.Reader) *Framer {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Framer{r: br}
}

// Next returns the next frame payload, or io.EOF once the stream has no more
// frames. A missing "log size" line and "log size 0" both end the stream.
// After the first error every call returns that same error.
func (f *Framer) Next() (string, error) {
	if f.err != nil {
		return "", f.err
	}
	payload, err := f.next()
	if err != nil {
		f.err = err
	}
	return payload, err
}

func (f *Framer) next() (string, error) {
	line, err := f.readLine()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(line) == "" {
		// Blank line separating two frames.
		if line, err = f.readLine(); err != nil {
			return "", err
		}
	}
	size := 0
	if strings.HasPrefix(line, logSizePrefix) {
		fields := strings.Fields(line)
		size, err = strconv.Atoi(fields[len(fields)-1])
		if err != nil {
			return "", &DecodeError{Msg: fmt.Sprintf("invalid frame size line %q", strings.TrimSpace(line)), Err: err}
		}
	}
	if size <= 0 {
		return "", io.EOF
	}
	var b strings.Builder
	if _, err := io.CopyN(&b, f.r, int64(size)); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return "", &DecodeError{Msg: fmt.Sprintf("frame declared %d bytes, got %d", size, b.Len()), Err: err}
	}
	return b.String(), nil
}

// readLine returns the next line including its newline. At end of stream it
// returns whatever is left, possibly "", without an error.
func (f *Framer) readLine() (string, error) {
	line, err := f.r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return line, nil
}
