// Package errors defines the error taxonomy shared by every photobooth component.
//
// Errors fall into six categories and callers branch on the category, not on
// the message:
//
//   - device: camera permission, missing device, busy device, bad constraints
//   - validation: template fields and upload constraints, names the field
//   - capacity: template count limit and storage quota
//   - asset: frame artwork or sticker failed to load (non-fatal to compositing)
//   - not_found: unknown template id
//   - immutable: attempt to change or delete a default template
//
// Validation and not-found errors are handled by the immediate caller. Device
// and capacity errors propagate to the session controller, which shows a
// message and returns the user to a safe screen.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Device errors
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	ErrCodeNoDevice         ErrorCode = "NO_DEVICE"
	ErrCodeDeviceBusy       ErrorCode = "DEVICE_BUSY"
	ErrCodeUnsatisfiable    ErrorCode = "CONSTRAINTS_UNSATISFIABLE"
	ErrCodeDeviceFailure    ErrorCode = "DEVICE_FAILURE"

	// Validation errors
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidFormat ErrorCode = "INVALID_FORMAT"
	ErrCodeTooLarge      ErrorCode = "TOO_LARGE"
	ErrCodeDimensions    ErrorCode = "INVALID_DIMENSIONS"

	// Capacity errors
	ErrCodeTemplateLimit ErrorCode = "TEMPLATE_LIMIT"
	ErrCodeQuotaExceeded ErrorCode = "QUOTA_EXCEEDED"

	// Asset errors
	ErrCodeAssetLoad ErrorCode = "ASSET_LOAD_FAILED"

	// Resource errors
	ErrCodeNotFound  ErrorCode = "NOT_FOUND"
	ErrCodeImmutable ErrorCode = "IMMUTABLE_TEMPLATE"
)

// Category groups error codes by how callers must react to them
type Category string

const (
	CategoryDevice     Category = "device"
	CategoryValidation Category = "validation"
	CategoryCapacity   Category = "capacity"
	CategoryAsset      Category = "asset"
	CategoryNotFound   Category = "not_found"
	CategoryImmutable  Category = "immutable"
)

// AppError represents a categorized photobooth error
type AppError struct {
	Code     ErrorCode `json:"code"`
	Category Category  `json:"category"`
	Message  string    `json:"message"`
	Field    string    `json:"field,omitempty"`
	Cause    error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates an AppError
func New(code ErrorCode, category Category, message string) *AppError {
	return &AppError{Code: code, Category: category, Message: message}
}

// Validation creates a validation error naming the offending field
func Validation(field, format string, args ...any) *AppError {
	return &AppError{
		Code:     ErrCodeValidation,
		Category: CategoryValidation,
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
	}
}

// ValidationCode creates a validation error with a specific code
func ValidationCode(code ErrorCode, field, format string, args ...any) *AppError {
	e := Validation(field, format, args...)
	e.Code = code
	return e
}

// NotFound creates a not-found error for a template id
func NotFound(id string) *AppError {
	return &AppError{
		Code:     ErrCodeNotFound,
		Category: CategoryNotFound,
		Field:    "id",
		Message:  fmt.Sprintf("template %q not found", id),
	}
}

// Immutable creates the error returned for any write to a default template
func Immutable(id string) *AppError {
	return &AppError{
		Code:     ErrCodeImmutable,
		Category: CategoryImmutable,
		Field:    "id",
		Message:  fmt.Sprintf("template %q is a default template and cannot be modified", id),
	}
}

// TemplateLimit creates the capacity error for the template count limit
func TemplateLimit(max int) *AppError {
	return &AppError{
		Code:     ErrCodeTemplateLimit,
		Category: CategoryCapacity,
		Message:  fmt.Sprintf("template limit of %d reached; delete a template first", max),
	}
}

// QuotaExceeded wraps a storage quota rejection as a capacity error
func QuotaExceeded(cause error) *AppError {
	return &AppError{
		Code:     ErrCodeQuotaExceeded,
		Category: CategoryCapacity,
		Message:  "storage quota exceeded; reduce the template count or frame image size",
		Cause:    cause,
	}
}

// AssetLoad wraps a failed asset fetch or decode
func AssetLoad(ref string, cause error) *AppError {
	if len(ref) > 64 {
		ref = ref[:61] + "..."
	}
	return &AppError{
		Code:     ErrCodeAssetLoad,
		Category: CategoryAsset,
		Field:    "asset",
		Message:  fmt.Sprintf("failed to load %q", ref),
		Cause:    cause,
	}
}

// Device creates a device error with the given code and remediation message
func Device(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:     code,
		Category: CategoryDevice,
		Message:  message,
		Cause:    cause,
	}
}

// GetAppError extracts the first AppError in err's chain
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCategory reports whether err carries an AppError of the given category
func IsCategory(err error, category Category) bool {
	appErr, ok := GetAppError(err)
	return ok && appErr.Category == category
}

// HasCode reports whether err carries an AppError with the given code
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := GetAppError(err)
	return ok && appErr.Code == code
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool { return IsCategory(err, CategoryValidation) }

// IsCapacity reports whether err is a capacity error
func IsCapacity(err error) bool { return IsCategory(err, CategoryCapacity) }

// IsDevice reports whether err is a device error
func IsDevice(err error) bool { return IsCategory(err, CategoryDevice) }

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool { return IsCategory(err, CategoryNotFound) }

// IsImmutable reports whether err is a default-template immutability error
func IsImmutable(err error) bool { return IsCategory(err, CategoryImmutable) }

// IsAsset reports whether err is an asset-load error
func IsAsset(err error) bool { return IsCategory(err, CategoryAsset) }
