package backend

import (
	"fmt"
	"io"
	"strings"
)

// Argument is one entry of a git command line. The zero value is absent.
type Argument struct {
	value   string
	present bool
}

// NoArg is an absent argument.
var NoArg Argument

// Arg returns an argument that is always present, even when empty.
func Arg(s string) Argument {
	return Argument{value: s, present: true}
}

// OptArg returns an argument that is absent when s is empty.
func OptArg(s string) Argument {
	if s == "" {
		return NoArg
	}
	return Arg(s)
}

// FlagIf returns flag when cond holds and an absent argument otherwise.
func FlagIf(cond bool, flag string) Argument {
	if !cond {
		return NoArg
	}
	return Arg(flag)
}

// Args converts literal values into present arguments.
func Args(values ...string) []Argument {
	out := make([]Argument, len(values))
	for i, v := range values {
		out[i] = Arg(v)
	}
	return out
}

func (a Argument) Present() bool { return a.present }

func (a Argument) String() string { return a.value }

// BuildArgs drops absent entries and keeps the order of the present ones.
func BuildArgs(args []Argument) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a.present {
			out = append(out, a.value)
		}
	}
	return out
}

type outputKind uint8

const (
	outputLogStream outputKind = iota
	outputDiscard
	outputCapture
	outputWriter
)

// Output selects where a command stream goes. The zero value is the runner's
// log stream.
type Output struct {
	kind outputKind
	w    io.Writer
}

// LogStream sends output to the runner's log stream.
func LogStream() Output { return Output{kind: outputLogStream} }

// Discard drops output.
func Discard() Output { return Output{kind: outputDiscard} }

// Capture keeps output in memory; it is returned in Result.
func Capture() Output { return Output{kind: outputCapture} }

// To streams output into w. A nil writer discards.
func To(w io.Writer) Output {
	if w == nil {
		return Discard()
	}
	return Output{kind: outputWriter, w: w}
}

func (o Output) String() string {
	switch o.kind {
	case outputDiscard:
		return "discard"
	case outputCapture:
		return "capture"
	case outputWriter:
		return "writer"
	default:
		return "log-stream"
	}
}

// Cmd is one git invocation.
type Cmd struct {
	Args   []Argument
	Stdout Output
	Stderr Output
}

// Result is what a finished invocation left behind. Stdout and Stderr are only
// filled for streams that were captured.
type Result struct {
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
}

// CommandError reports a git invocation that exited with a non-zero status.
type CommandError struct {
	Command  string
	ExitCode int
	Result   *Result
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s failed (exit status: %d)", e.Command, e.ExitCode)
	if e.Result != nil {
		if stderr := strings.TrimSpace(e.Result.Stderr); stderr != "" {
			msg += ": " + stderr
		}
	}
	return msg
}

// CommandLine renders args the way a shell user would type them.
func CommandLine(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = quoteArg(a)
	}
	return strings.Join(quoted, " ")
}

const shellSpecial = " \t\n\"'\\$`|&;<>()*?[]{}!#~"

func quoteArg(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, shellSpecial) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
