package command

import (
	"fmt"
	"strings"

	"github.com/nimbasms/nimbasms-cli/pkg/output"
)

// ErrorKind classifies a dispatch failure.
type ErrorKind int

const (
	// IncompleteCommand means argv stopped at a group.
	IncompleteCommand ErrorKind = iota
	// UnknownCommand means a segment matched no child of a group.
	UnknownCommand
	// InvalidArgument covers flag, positional and validation failures.
	InvalidArgument
)

func (k ErrorKind) String() string {
	switch k {
	case IncompleteCommand:
		return "IncompleteCommand"
	case UnknownCommand:
		return "UnknownCommand"
	case InvalidArgument:
		return "InvalidArgument"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is returned by Resolve and Dispatch before any handler runs.
type Error struct {
	Kind ErrorKind
	// Path is the command path that was reached, e.g. "nimbasms extensions".
	Path string
	// Name is the offending segment, flag or argument.
	Name string
	// Reason explains an InvalidArgument.
	Reason string
	// Available lists the children of the group that was reached.
	Available []string
}

func (e *Error) Error() string {
	switch e.Kind {
	case IncompleteCommand:
		return fmt.Sprintf("%q requires a subcommand (available: %s)", e.Path, strings.Join(e.Available, ", "))
	case UnknownCommand:
		return fmt.Sprintf("unknown command %q for %q (available: %s)", e.Name, e.Path, strings.Join(e.Available, ", "))
	default:
		if e.Name == "" {
			return fmt.Sprintf("invalid argument: %s", e.Reason)
		}
		return fmt.Sprintf("invalid argument %s: %s", e.Name, e.Reason)
	}
}

// ExitCode reports a usage error.
func (e *Error) ExitCode() int {
	return output.ExitUsage
}

// Usage returns a hint pointing at the help of the reached command.
func (e *Error) Usage() string {
	if e.Path == "" {
		return ""
	}
	return fmt.Sprintf("Run '%s --help' for usage.", e.Path)
}

// Invalid builds an InvalidArgument error for a flag ("--name") or argument ("<id>").
func Invalid(name, format string, args ...any) *Error {
	return &Error{Kind: InvalidArgument, Name: name, Reason: fmt.Sprintf(format, args...)}
}

// PanicError wraps a value recovered from a panicking handler.
type PanicError struct {
	Command string
	Value   any
	Stack   []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("internal error in %q: %v", e.Command, e.Value)
}
