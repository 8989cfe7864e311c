// Package errors carries the coded errors raised while discovering,
// parsing and rewriting function sources. Callers branch on the code; the
// context pairs end up in logs and the per-file report.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type ErrorCode string

const (
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
	// CodeNotSupported marks a source the grammar loader has no language for.
	CodeNotSupported ErrorCode = "NOT_SUPPORTED"
	// CodeParseFailed marks input that did not parse; the file is copied
	// through unchanged.
	CodeParseFailed ErrorCode = "PARSE_FAILED"
	// CodeRuleFailed marks a rewrite rule that panicked or produced invalid
	// syntax.
	CodeRuleFailed ErrorCode = "RULE_FAILED"
)

// Context keys.
const (
	CtxPath      = "path"
	CtxOperation = "operation"
	CtxLanguage  = "language"
	CtxRule      = "rule"
	CtxFunction  = "function"
)

// DomainError is a coded error with optional cause and context pairs.
type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]any
}

// WithContext sets key on e and returns e. A later value for the same key
// replaces the earlier one.
func (e *DomainError) WithContext(key string, value any) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]any, 1)
	}
	e.Context[key] = value
	return e
}

// Error renders "[CODE] message: cause key=value ..." with keys sorted.
func (e *DomainError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Context[k])
	}
	return b.String()
}

func (e *DomainError) Unwrap() error { return e.Err }

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// AddContext attaches a pair to the outermost DomainError in err's chain.
// Foreign errors are wrapped as internal. A nil err stays nil.
func AddContext(err error, key string, value any) error {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) {
		de.WithContext(key, value)
		return err
	}
	return (&DomainError{Code: CodeInternal, Message: "unclassified error", Err: err}).WithContext(key, value)
}

func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code && errors.As(err, new(*DomainError))
}

// CodeOf returns the code of the outermost DomainError, or CodeInternal.
func CodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
