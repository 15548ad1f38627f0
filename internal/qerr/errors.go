// Package qerr defines the error taxonomy shared by the Linql compiler,
// type catalog and operator dispatcher.
//
// Every failure raised while resolving or compiling a search is a *Error
// carrying a Code. Callers classify failures with Is or CodeOf, both of
// which see through fmt.Errorf("%w") wrapping.
package qerr

import (
	"errors"
	"fmt"
)

// Code categorizes a compilation or execution failure.
type Code string

const (
	// CodeUnsupportedNodeKind indicates an AST node outside the closed node set.
	CodeUnsupportedNodeKind Code = "UNSUPPORTED_NODE_KIND"

	// CodeTypeResolution indicates an unknown type name or a generic arity mismatch.
	CodeTypeResolution Code = "TYPE_RESOLUTION"

	// CodeMemberNotFound indicates a property name the base type does not declare.
	CodeMemberNotFound Code = "MEMBER_NOT_FOUND"

	// CodeNullBaseExpression indicates member or function access with no base.
	CodeNullBaseExpression Code = "NULL_BASE_EXPRESSION"

	// CodeUnsupportedOperator indicates a binary or unary operator name outside the table.
	CodeUnsupportedOperator Code = "UNSUPPORTED_OPERATOR"

	// CodeUnsupportedOperation indicates an unknown pipeline function name.
	CodeUnsupportedOperation Code = "UNSUPPORTED_OPERATION"

	// CodeValueCoercion indicates a raw literal that cannot become the declared type.
	CodeValueCoercion Code = "VALUE_COERCION"

	// CodeDuplicateParameter indicates the same name declared twice in one lambda.
	CodeDuplicateParameter Code = "DUPLICATE_PARAMETER"

	// CodeUnboundParameter indicates a parameter reference with no binding in scope.
	CodeUnboundParameter Code = "UNBOUND_PARAMETER"

	// CodeTypeMismatch indicates operands or arguments of incompatible types.
	CodeTypeMismatch Code = "TYPE_MISMATCH"

	// CodeNullInputType indicates a lambda compiled without an input type.
	CodeNullInputType Code = "NULL_INPUT_TYPE"

	// CodeCyclicExpression indicates an AST whose edges form a cycle.
	CodeCyclicExpression Code = "CYCLIC_EXPRESSION"

	// CodeExpressionTooDeep indicates an AST nested beyond the configured depth.
	CodeExpressionTooDeep Code = "EXPRESSION_TOO_DEEP"

	// CodeEvaluation indicates a failure while executing a compiled pipeline.
	CodeEvaluation Code = "EVALUATION"
)

// Error is a classified failure.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Node names the AST node kind being processed, if any.
	Node string

	// Suggestion is an optional did-you-mean hint.
	Suggestion string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Node != "" {
		msg = fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.Node)
	}
	if e.Suggestion != "" {
		msg += "; " + e.Suggestion
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error around an existing cause.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// At returns a copy of e annotated with the node kind. An existing
// annotation is kept so the innermost node wins.
func (e *Error) At(node string) *Error {
	if e.Node != "" {
		return e
	}
	cp := *e
	cp.Node = node
	return &cp
}

// WithSuggestion returns a copy of e carrying a did-you-mean hint.
func (e *Error) WithSuggestion(s string) *Error {
	cp := *e
	cp.Suggestion = s
	return &cp
}

// CodeOf extracts the code of the first *Error in err's chain.
// Returns "" if err carries no code.
func CodeOf(err error) Code {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
