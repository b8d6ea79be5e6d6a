// Package errors carries the five diagnostic kinds duskc can raise
// (spec.md §7) on a single CompileError type, with a wrapped-cause trail
// built on github.com/pkg/errors so a pass can attach its own component
// name to a lower failure without losing the original cause.
package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is one of the five diagnostic categories spec.md §7 enumerates.
type Kind string

const (
	// InputError: malformed AST, undefined name, const-eval on a non-constant expression.
	InputError Kind = "InputError"
	// TypeError: disagreement between operand and opcode, array/scalar mismatch, void used as value.
	TypeError Kind = "TypeError"
	// UnsupportedError: operator/type combination the core does not implement.
	UnsupportedError Kind = "UnsupportedError"
	// InternalError: invariant violation (verifier failure), unexpected handle miss, scratch-register shortage.
	InternalError Kind = "InternalError"
	// ResourceError: frame size exceeds u32, too many virtual registers.
	ResourceError Kind = "ResourceError"
)

// Span locates a diagnostic in the frontend's source, when the AST contract
// (internal/ast) supplied one. A zero Span means no location is available.
type Span struct {
	File   string
	Line   int
	Column int
}

func (s Span) String() string {
	if s.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

// CompileError is the single error type every duskc pass returns on a
// user-visible failure. Component records which pass raised it ("mem2reg",
// "selector", "physicalize"...) for the context trail spec.md §7 requires;
// cause holds whatever lower error (often another *CompileError) this one
// wraps (through github.com/pkg/errors.WithMessage), reachable with
// errors.As/errors.Unwrap.
type CompileError struct {
	Kind      Kind
	Component string
	Message   string
	Span      Span
	cause     error
}

func (e *CompileError) Error() string {
	loc := ""
	if s := e.Span.String(); s != "" {
		loc = " (" + s + ")"
	}
	msg := fmt.Sprintf("error: %s: %s%s", e.Kind, e.Message, loc)
	if e.Component != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Component)
	}
	return msg
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As. CompileError has
// no Cause method, so github.com/pkg/errors.Cause stops at a CompileError.
func (e *CompileError) Unwrap() error { return e.cause }

// New creates a root CompileError with no wrapped cause.
func New(kind Kind, component, message string) *CompileError {
	return &CompileError{Kind: kind, Component: component, Message: message}
}

// NewAt is New with a source span attached.
func NewAt(kind Kind, component, message string, span Span) *CompileError {
	return &CompileError{Kind: kind, Component: component, Message: message, Span: span}
}

// Wrap attaches component's name to cause, preserving it as the wrapped
// cause (errors.As on the result still finds cause and any CompileError
// beneath it). If cause is
// already a *CompileError, its Kind is kept; otherwise the wrapped error is
// classified as InternalError, since anything reaching a pass boundary
// without already being a CompileError is a programmer bug by definition.
func Wrap(cause error, component, message string) *CompileError {
	kind := InternalError
	var ce *CompileError
	if errors.As(cause, &ce) {
		kind = ce.Kind
	}
	return &CompileError{
		Kind:      kind,
		Component: component,
		Message:   message,
		cause:     errors.WithMessage(cause, component+": "+message),
	}
}

// Is reports whether err is, or wraps, a CompileError of kind k.
func Is(err error, k Kind) bool {
	var ce *CompileError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Kind == k
}
