// Package vmerror implements the recoverable VM error taxonomy and the
// unrecoverable Panic category of §7. Errors carry a Kind plus kind-specific
// payload fields, and accumulate an instruction-pointer trail as they unwind
// through nested VMs, the same shape as the teacher's own VMError
// (frame/opcode/ip-decorated, wrapping a sentinel base error) in
// vm/errors.go.
package vmerror

import (
	"errors"
	"fmt"

	"github.com/wudi/ember/rhash"
)

// Kind distinguishes the error families of §7.
type Kind byte

const (
	// Access errors.
	AccessShared Kind = iota
	AccessExclusive
	AccessNotAccessibleTake
	AccessNotAccessibleRef
	AccessNotAccessibleMut

	// Type errors.
	TypeExpected
	BadArgument

	// Call errors.
	BadArgumentCount
	MissingFunction
	MissingInstanceFunction
	MissingProtocol

	// Structural errors.
	MissingField
	MissingIndex
	MissingVariant
	OutOfRange

	// Arithmetic errors.
	Overflow
	Underflow
	DivideByZero

	// Coroutine errors.
	GeneratorComplete
	FutureCompleted
	Stopped
	MissingCallFrame

	// Iteration errors.
	IterationError

	// Resource errors.
	Alloc
	BudgetExceeded
)

func (k Kind) String() string {
	switch k {
	case AccessShared:
		return "access shared"
	case AccessExclusive:
		return "access exclusive"
	case AccessNotAccessibleTake:
		return "not accessible: take"
	case AccessNotAccessibleRef:
		return "not accessible: ref"
	case AccessNotAccessibleMut:
		return "not accessible: mut"
	case TypeExpected:
		return "expected type"
	case BadArgument:
		return "bad argument"
	case BadArgumentCount:
		return "bad argument count"
	case MissingFunction:
		return "missing function"
	case MissingInstanceFunction:
		return "missing instance function"
	case MissingProtocol:
		return "missing protocol"
	case MissingField:
		return "missing field"
	case MissingIndex:
		return "missing index"
	case MissingVariant:
		return "missing variant"
	case OutOfRange:
		return "out of range"
	case Overflow:
		return "overflow"
	case Underflow:
		return "underflow"
	case DivideByZero:
		return "divide by zero"
	case GeneratorComplete:
		return "generator complete"
	case FutureCompleted:
		return "future completed"
	case Stopped:
		return "stopped"
	case MissingCallFrame:
		return "missing call frame"
	case IterationError:
		return "iteration error"
	case Alloc:
		return "allocation failure"
	case BudgetExceeded:
		return "budget exceeded"
	default:
		return "unknown vm error"
	}
}

// Error is a recoverable VM error (§7). The payload fields are populated
// selectively depending on Kind; callers inspect Kind before reading them.
type Error struct {
	Kind Kind

	// Structural/call payload.
	Hash     rhash.Hash
	Name     string
	Got      int
	Expected int
	Index    int
	Length   int

	// Free-form detail, e.g. a Stopped reason or a wrapped cause.
	Detail string
	Cause  error

	// ips accumulates one instruction pointer per VM frame as the error
	// unwinds, outermost last (§4.9: "outer VMs add their own ip").
	ips []int
}

// New constructs a bare error of the given kind.
func New(kind Kind) *Error {
	return &Error{Kind: kind}
}

// Newf constructs an error of the given kind with a free-form detail
// message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind to an existing cause, preserving it via Unwrap.
func Wrap(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Name != "" {
		msg += ": " + e.Name
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	switch e.Kind {
	case BadArgumentCount:
		msg = fmt.Sprintf("%s (got %d, expected %d)", msg, e.Got, e.Expected)
	case OutOfRange:
		msg = fmt.Sprintf("%s (index %d, length %d)", msg, e.Index, e.Length)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	for _, ip := range e.ips {
		msg += fmt.Sprintf(" [ip=%d]", ip)
	}
	return msg
}

// Unwrap supports errors.Is/errors.As against the wrapped cause.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target has the same Kind, so callers can do
// errors.Is(err, vmerror.New(vmerror.DivideByZero)).
func (e *Error) Is(target error) bool {
	var o *Error
	if errors.As(target, &o) {
		return o.Kind == e.Kind
	}
	return false
}

// WithIP records the instruction pointer at the current unwind frame and
// returns the same error for chaining.
func (e *Error) WithIP(ip int) *Error {
	e.ips = append(e.ips, ip)
	return e
}

// BadArgumentCountErr builds the §8.2.6 scenario error.
func BadArgumentCountErr(got, expected int) *Error {
	return &Error{Kind: BadArgumentCount, Got: got, Expected: expected}
}

// BadArgumentErr builds a BadArgument error naming the offending index.
func BadArgumentErr(index int, detail string) *Error {
	return &Error{Kind: BadArgument, Index: index, Detail: detail}
}

// MissingFunctionErr builds a MissingFunction error for hash.
func MissingFunctionErr(hash rhash.Hash) *Error {
	return &Error{Kind: MissingFunction, Hash: hash}
}

// MissingInstanceFunctionErr builds a MissingInstanceFunction error.
func MissingInstanceFunctionErr(receiver rhash.Hash, name string) *Error {
	return &Error{Kind: MissingInstanceFunction, Hash: receiver, Name: name}
}

// MissingProtocolErr builds a MissingProtocol error.
func MissingProtocolErr(receiver rhash.Hash, protocol string) *Error {
	return &Error{Kind: MissingProtocol, Hash: receiver, Name: protocol}
}

// MissingFieldErr builds a MissingField error.
func MissingFieldErr(name string) *Error {
	return &Error{Kind: MissingField, Name: name}
}

// OutOfRangeErr builds an OutOfRange error.
func OutOfRangeErr(index, length int) *Error {
	return &Error{Kind: OutOfRange, Index: index, Length: length}
}

// AllocErr wraps an *alloc.Error as a Resource/Alloc VM error.
func AllocErr(cause error) *Error {
	return &Error{Kind: Alloc, Cause: cause}
}
