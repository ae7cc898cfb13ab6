package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinel errors for every failure the pipeline can produce. Callers match
// with errors.Is; the Code is what ends up in the audit trail.
var (
	// Security rejections: the file never reaches structural extraction.
	ErrFileTooLarge           = newSentinel(ErrCodeFileTooLarge, "file exceeds the configured size limit")
	ErrUnsafeFilename         = newSentinel(ErrCodeUnsafeFilename, "filename contains unsafe path elements")
	ErrExcessiveNesting       = newSentinel(ErrCodeExcessiveNesting, "xml nesting depth exceeds the configured limit")
	ErrUnsafeEntityDeclaration = newSentinel(ErrCodeUnsafeEntityDeclaration, "document declares a DOCTYPE or entity")
	ErrMalformedXML           = newSentinel(ErrCodeMalformedXML, "document is not well-formed xml")

	// Extraction errors: well-formed input that does not match the invoice schema.
	ErrMissingHeaderField  = newSentinel(ErrCodeMissingHeaderField, "required header field is missing")
	ErrNoLineItemsFound    = newSentinel(ErrCodeNoLineItemsFound, "document contains no line items")
	ErrInvalidNumericField = newSentinel(ErrCodeInvalidNumericField, "numeric field could not be parsed")
	ErrTooManyLines        = newSentinel(ErrCodeTooManyLines, "document exceeds the configured line count limit")

	// Resource errors.
	ErrProcessingTimeout = newSentinel(ErrCodeProcessingTimeout, "processing exceeded the configured timeout")

	ErrValidation = newSentinel(ErrCodeValidation, "validation error")
	ErrSystem     = newSentinel(ErrCodeSystemError, "system error")
)

const (
	ErrCodeFileTooLarge            = "file_too_large"
	ErrCodeUnsafeFilename          = "unsafe_filename"
	ErrCodeExcessiveNesting        = "excessive_nesting"
	ErrCodeUnsafeEntityDeclaration = "unsafe_entity_declaration"
	ErrCodeMalformedXML            = "malformed_xml"
	ErrCodeMissingHeaderField      = "missing_header_field"
	ErrCodeNoLineItemsFound        = "no_line_items_found"
	ErrCodeInvalidNumericField     = "invalid_numeric_field"
	ErrCodeTooManyLines            = "too_many_lines"
	ErrCodeProcessingTimeout       = "processing_timeout"
	ErrCodeValidation              = "validation_error"
	ErrCodeSystemError             = "system_error"
)

// Category is the audit-log classification of a failure. Security rejections
// and extraction errors are logged differently even though both are terminal
// for the document.
type Category string

const (
	CategorySecurity   Category = "SECURITY_REJECTION"
	CategoryExtraction Category = "EXTRACTION_ERROR"
	CategoryResource   Category = "RESOURCE_ERROR"
	CategorySystem     Category = "SYSTEM_ERROR"
)

var sentinels = []*InternalError{
	ErrFileTooLarge,
	ErrUnsafeFilename,
	ErrExcessiveNesting,
	ErrUnsafeEntityDeclaration,
	ErrMalformedXML,
	ErrMissingHeaderField,
	ErrNoLineItemsFound,
	ErrInvalidNumericField,
	ErrTooManyLines,
	ErrProcessingTimeout,
	ErrValidation,
	ErrSystem,
}

var categoryMap = map[error]Category{
	ErrFileTooLarge:            CategorySecurity,
	ErrUnsafeFilename:          CategorySecurity,
	ErrExcessiveNesting:        CategorySecurity,
	ErrUnsafeEntityDeclaration: CategorySecurity,
	ErrMalformedXML:            CategorySecurity,
	ErrMissingHeaderField:      CategoryExtraction,
	ErrNoLineItemsFound:        CategoryExtraction,
	ErrInvalidNumericField:     CategoryExtraction,
	ErrTooManyLines:            CategoryExtraction,
	ErrProcessingTimeout:       CategoryResource,
}

// InternalError represents a domain error.
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors.
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

func newSentinel(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// CodeOf returns the machine-readable code of err, or "system_error" when the
// error does not carry one. Marked errors do not expose the sentinel through
// As, so matching falls back to Is against the sentinel list.
func CodeOf(err error) string {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie.Code
	}
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Code
		}
	}
	return ErrCodeSystemError
}

// CategoryOf returns the audit classification for err.
func CategoryOf(err error) Category {
	for sentinel, cat := range categoryMap {
		if errors.Is(err, sentinel) {
			return cat
		}
	}
	return CategorySystem
}

// IsRejection reports whether err is a security rejection, i.e. the input was
// refused before or during structural validation.
func IsRejection(err error) bool {
	return CategoryOf(err) == CategorySecurity
}

// IsTimeout reports whether err is a processing timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrProcessingTimeout)
}

// Hint extracts the user-facing hint from an error, if any was attached.
func Hint(err error) string {
	return errors.FlattenHints(err)
}
