package slash

import (
	"errors"
	"fmt"
)

// Compile error kinds
var (
	ErrAmbiguousGroupShape      = errors.New("group declares both subcommands and subgroups")
	ErrInvalidHandlerSignature  = errors.New("invalid handler signature")
	ErrUnsupportedParameterType = errors.New("unsupported parameter type")
	ErrDuplicateName            = errors.New("duplicate name among siblings")
	ErrInvalidName              = errors.New("invalid name")
	ErrNestingTooDeep           = errors.New("subgroups cannot contain subgroups")
	ErrChoiceProvider           = errors.New("choice provider failed")
	ErrConflictingChoices       = errors.New("choices declared from more than one source")
	ErrTooMany                  = errors.New("too many entries")
)

// Decode error kinds
var (
	ErrTypeMismatch     = errors.New("option value does not match declared type")
	ErrUnknownChoice    = errors.New("option value matches no enumeration member")
	ErrEntityUnresolved = errors.New("referenced entity could not be resolved")
	ErrMissingOption    = errors.New("required option missing")
)

// Dispatch error kinds
var (
	ErrExtensionErrored    = errors.New("commands failed to register for this scope")
	ErrUnregisteredCommand = errors.New("no command registered for invocation")
	ErrArgumentResolution  = errors.New("argument resolution failed")
	ErrUnknownAction       = errors.New("action matches no configured button")
	ErrHandlerPanic        = errors.New("handler panicked")
)

// CompileError reports a shape violation found while compiling a scope.
// It unwraps to its Kind so callers can match with errors.Is.
type CompileError struct {
	Kind   error
	Path   string
	Detail string
}

func (e *CompileError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("compile %s: %v", e.Path, e.Kind)
	}
	return fmt.Sprintf("compile %s: %v: %s", e.Path, e.Kind, e.Detail)
}

func (e *CompileError) Unwrap() error { return e.Kind }

func compileErr(kind error, path, format string, args ...any) *CompileError {
	return &CompileError{Kind: kind, Path: path, Detail: fmt.Sprintf(format, args...)}
}

// DecodeError reports why a single option could not become a typed argument.
type DecodeError struct {
	Kind   error
	Option string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("option %q: %v", e.Option, e.Kind)
	}
	return fmt.Sprintf("option %q: %v: %v", e.Option, e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// DispatchError aborts one invocation. Kind is one of the Err* dispatch kinds,
// Err carries the underlying cause (for example a *DecodeError).
type DispatchError struct {
	Kind    error
	Command string
	Err     error
}

func (e *DispatchError) Error() string {
	msg := e.Kind.Error()
	if e.Command != "" {
		msg = fmt.Sprintf("%s: %s", e.Command, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *DispatchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
