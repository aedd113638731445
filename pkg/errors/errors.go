package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeInvalidState Code = "INVALID_STATE"
	CodeIdempotency  Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"

	// Transfer eligibility and allocation failures.
	CodeInsufficientQuantity Code = "INSUFFICIENT_QUANTITY"
	CodeNotSurplus           Code = "NOT_SURPLUS"
	CodeMaterialUnavailable  Code = "MATERIAL_UNAVAILABLE"
	CodeCategoryMismatch     Code = "CATEGORY_MISMATCH"
	CodeSelfTransfer         Code = "SELF_TRANSFER"

	// CodeLedgerIntegrity marks a failed rollback after a partially applied allocation.
	CodeLedgerIntegrity Code = "LEDGER_INTEGRITY"
)

// Metadata describes how a code is rendered over HTTP. ExposeMessage lets
// the error's own message replace PublicMessage; DetailsAllowed does the
// same for its details.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	ExposeMessage  bool
	DetailsAllowed bool
}

const (
	exposeNone = iota
	exposeMessage
	exposeDetails
)

func describe(status int, public string, expose int) Metadata {
	return Metadata{
		HTTPStatus:     status,
		PublicMessage:  public,
		ExposeMessage:  expose >= exposeMessage,
		DetailsAllowed: expose >= exposeDetails,
	}
}

// detailsOnly keeps the public message fixed while still returning details.
func detailsOnly(m Metadata) Metadata {
	m.ExposeMessage = false
	return m
}

func retryable(m Metadata) Metadata {
	m.Retryable = true
	return m
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:   describe(http.StatusBadRequest, "validation failed", exposeDetails),
	CodeUnauthorized: describe(http.StatusUnauthorized, "authentication required", exposeMessage),
	CodeForbidden:    describe(http.StatusForbidden, "access denied", exposeMessage),
	CodeNotFound:     describe(http.StatusNotFound, "resource not found", exposeMessage),
	CodeConflict:     describe(http.StatusConflict, "conflict detected", exposeMessage),
	CodeInvalidState: describe(http.StatusConflict, "state transition disallowed", exposeDetails),
	CodeIdempotency:  describe(http.StatusConflict, "idempotency key reused", exposeDetails),

	CodeInsufficientQuantity: describe(http.StatusConflict, "insufficient quantity", exposeDetails),
	CodeNotSurplus:           describe(http.StatusUnprocessableEntity, "material is not offered as surplus", exposeDetails),
	CodeMaterialUnavailable:  describe(http.StatusUnprocessableEntity, "material unavailable", exposeDetails),
	CodeCategoryMismatch:     describe(http.StatusUnprocessableEntity, "organization category mismatch", exposeDetails),
	CodeSelfTransfer:         describe(http.StatusUnprocessableEntity, "organization cannot request its own surplus", exposeMessage),

	CodeInternal:        retryable(describe(http.StatusInternalServerError, "internal server error", exposeNone)),
	CodeDependency:      retryable(detailsOnly(describe(http.StatusServiceUnavailable, "dependency unavailable", exposeDetails))),
	CodeLedgerIntegrity: describe(http.StatusInternalServerError, "internal server error", exposeNone),
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is a coded failure. The code drives the HTTP mapping; message and
// details are only shown when the code's Metadata allows it.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a code to err. A nil err yields a plain New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is reports whether err carries a typed error with the given code.
func Is(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
