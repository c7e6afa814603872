// Package errs implements the eight-kind error taxonomy shared by every
// component of the orchestration core (spec §7). Each kind is a small
// struct carrying a human message, a machine-readable context map, and
// the wrapped cause, following the pack's typed-error idiom (a plain
// struct + Error() string, no exception hierarchy).
package errs

import "fmt"

// Kind is the machine-readable tag attached to every error the core
// raises.
type Kind string

const (
	KindConfig     Kind = "ConfigError"
	KindValidation Kind = "ValidationError"
	KindAgent      Kind = "AgentError"
	KindMail       Kind = "MailError"
	KindMerge      Kind = "MergeError"
	KindLifecycle  Kind = "LifecycleError"
	KindWorktree   Kind = "WorktreeError"
	KindStore      Kind = "StoreError"
)

// Error is the concrete error type for every kind in the taxonomy. It
// carries a structured context map so callers (CLI front end, tests) can
// inspect specific fields (branch name, message id, tier) without
// parsing the message string.
type Error struct {
	kind    Kind
	message string
	context map[string]any
	cause   error
}

// New builds an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{kind: kind, message: message}
}

// Wrap builds an Error of the given kind around an existing error.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{kind: kind, message: message, cause: cause}
}

// With attaches a context field and returns the same *Error for chaining.
func (e *Error) With(key string, value any) *Error {
	if e.context == nil {
		e.context = make(map[string]any, 4)
	}
	e.context[key] = value
	return e
}

// Kind returns the machine-readable error kind.
func (e *Error) Kind() Kind { return e.kind }

// Context returns the structured context map (never nil).
func (e *Error) Context() map[string]any {
	if e.context == nil {
		return map[string]any{}
	}
	return e.context
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// Constructors for each kind, mirroring the table in spec §7.

func Config(msg string) *Error     { return New(KindConfig, msg) }
func Validation(msg string) *Error { return New(KindValidation, msg) }
func Agent(msg string) *Error      { return New(KindAgent, msg) }
func Mail(msg string) *Error       { return New(KindMail, msg) }
func Merge(msg string) *Error      { return New(KindMerge, msg) }
func Lifecycle(msg string) *Error  { return New(KindLifecycle, msg) }
func Worktree(msg string) *Error   { return New(KindWorktree, msg) }
func Store(msg string) *Error      { return New(KindStore, msg) }

// ConfigWrap, etc. wrap an existing cause with the taxonomy kind.
func ConfigWrap(msg string, cause error) *Error     { return Wrap(KindConfig, msg, cause) }
func ValidationWrap(msg string, cause error) *Error { return Wrap(KindValidation, msg, cause) }
func AgentWrap(msg string, cause error) *Error      { return Wrap(KindAgent, msg, cause) }
func MailWrap(msg string, cause error) *Error       { return Wrap(KindMail, msg, cause) }
func MergeWrap(msg string, cause error) *Error      { return Wrap(KindMerge, msg, cause) }
func LifecycleWrap(msg string, cause error) *Error  { return Wrap(KindLifecycle, msg, cause) }
func WorktreeWrap(msg string, cause error) *Error   { return Wrap(KindWorktree, msg, cause) }
func StoreWrap(msg string, cause error) *Error      { return Wrap(KindStore, msg, cause) }

// As reports whether err is (or wraps) an *Error of the given kind, and
// returns it.
func As(err error, kind Kind) (*Error, bool) {
	var e *Error
	for err != nil {
		if ce, ok := err.(*Error); ok {
			e = ce
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if e == nil || e.kind != kind {
		return nil, false
	}
	return e, true
}

// FormatCLI renders an error the way CLI collaborators are required to
// print it to stderr (spec §7): "error: <kind>: <message>".
func FormatCLI(err error) string {
	if e, ok := err.(*Error); ok {
		return fmt.Sprintf("error: %s: %s", e.kind, e.Error())
	}
	return fmt.Sprintf("error: %s", err.Error())
}

// JSONPayload is the shape `--json` mode serializes to stdout on error.
type JSONPayload struct {
	Error struct {
		Kind    Kind           `json:"kind"`
		Message string         `json:"message"`
		Context map[string]any `json:"context"`
	} `json:"error"`
}

// ToJSON converts an error into the CLI's --json error envelope. Non-
// taxonomy errors are reported under KindStore with no context, since
// every core failure path is expected to originate one of the eight
// kinds by the time it reaches a CLI boundary.
func ToJSON(err error) JSONPayload {
	var p JSONPayload
	if e, ok := err.(*Error); ok {
		p.Error.Kind = e.kind
		p.Error.Message = e.Error()
		p.Error.Context = e.Context()
		return p
	}
	p.Error.Kind = KindStore
	p.Error.Message = err.Error()
	p.Error.Context = map[string]any{}
	return p
}
