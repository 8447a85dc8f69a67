package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLoad     Phase = "load"     // reading input files
	PhaseDecode   Phase = "decode"   // module header and section framing
	PhaseCollect  Phase = "collect"  // global usage collection
	PhaseScan     Phase = "scan"     // per-function usage scan
	PhaseValidate Phase = "validate" // optional engine validation
	PhaseBatch    Phase = "batch"    // corpus driver
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidData  Kind = "invalid_data"
	KindUnsupported  Kind = "unsupported"
	KindInvalidInput Kind = "invalid_input"
	KindTimeout      Kind = "timeout"
	KindIO           Kind = "io"
	KindCanceled     Kind = "canceled"
)

// Error is the structured error type used across the analysis pipeline
type Error struct {
	Value   any
	Cause   error
	Phase   Phase
	Kind    Kind
	File    string
	Section string
	Detail  string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.File != "" {
		b.WriteString(" in ")
		b.WriteString(e.File)
	}
	if e.Section != "" {
		b.WriteString(" (")
		b.WriteString(e.Section)
		b.WriteString(" section)")
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// HasKind reports whether any *Error in err's chain has the given kind.
func HasKind(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Cause
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// File sets the input file the error concerns
func (b *Builder) File(path string) *Builder {
	b.err.File = path
	return b
}

// Section sets the module section name
func (b *Builder) Section(name string) *Builder {
	b.err.Section = name
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Decode creates an error for a module whose header or framing is unreadable
func Decode(file string, cause error) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindInvalidData,
		File:   file,
		Detail: "not a readable core module",
		Cause:  cause,
	}
}

// Load creates an input loading error
func Load(file string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindIO,
		File:   file,
		Detail: "read input",
		Cause:  cause,
	}
}

// Timeout creates an error for work that exceeded its deadline
func Timeout(phase Phase, file string, limit time.Duration) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTimeout,
		File:   file,
		Detail: fmt.Sprintf("exceeded %s", limit),
		Value:  limit,
	}
}

// Canceled creates an error for work abandoned because its context ended
func Canceled(phase Phase, file string, cause error) *Error {
	return &Error{
		Phase: phase,
		Kind:  KindCanceled,
		File:  file,
		Cause: cause,
	}
}

// Unsupported creates an error for input this tool deliberately does not analyze
func Unsupported(phase Phase, file, what string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		File:   file,
		Detail: what,
		Cause:  cause,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
