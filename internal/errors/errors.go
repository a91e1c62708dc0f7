package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// Kind is the user-visible category of a failure.
type Kind int

const (
	KindInternal Kind = iota
	KindIllegalInput
	KindMultipleDevices
	KindDeviceNotFound
	KindNoDevices
	KindProbeFailure
	KindSdkIncompatible
	KindAbiIncompatible
	KindUnknownModule
	KindMalformedArchive
	KindInstallation
	KindCanceled
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindIllegalInput:
		return "ILLEGAL_INPUT"
	case KindMultipleDevices:
		return "MULTIPLE_DEVICES"
	case KindDeviceNotFound:
		return "DEVICE_NOT_FOUND"
	case KindNoDevices:
		return "NO_DEVICES"
	case KindProbeFailure:
		return "PROBE_FAILURE"
	case KindSdkIncompatible:
		return "SDK_INCOMPATIBLE"
	case KindAbiIncompatible:
		return "ABI_INCOMPATIBLE"
	case KindUnknownModule:
		return "UNKNOWN_MODULE"
	case KindMalformedArchive:
		return "MALFORMED_ARCHIVE"
	case KindInstallation:
		return "INSTALLATION_ERROR"
	case KindCanceled:
		return "CANCELED"
	default:
		return "INTERNAL"
	}
}

// Exit codes. 0 is success, 1 is reserved for unexpected failures.
const (
	ExitSuccess           = 0
	ExitInternal          = 1
	ExitIllegalInput      = 2
	ExitDeviceSelection   = 3
	ExitProbeFailure      = 4
	ExitIncompatible      = 5
	ExitUnknownModule     = 6
	ExitMalformedArchive  = 7
	ExitInstallationError = 8
	ExitCanceled          = 130
)

// ExitCode maps a kind to the process exit status.
func ExitCode(k Kind) int {
	switch k {
	case KindIllegalInput:
		return ExitIllegalInput
	case KindMultipleDevices, KindDeviceNotFound, KindNoDevices:
		return ExitDeviceSelection
	case KindProbeFailure:
		return ExitProbeFailure
	case KindSdkIncompatible, KindAbiIncompatible:
		return ExitIncompatible
	case KindUnknownModule:
		return ExitUnknownModule
	case KindMalformedArchive:
		return ExitMalformedArchive
	case KindInstallation:
		return ExitInstallationError
	case KindCanceled:
		return ExitCanceled
	default:
		return ExitInternal
	}
}

// Error is a categorized failure carrying a verbatim user message.
type Error struct {
	Kind        Kind              `json:"kind"`
	Code        string            `json:"code"`
	Message     string            `json:"message"`
	Cause       error             `json:"cause,omitempty"`
	Context     map[string]string `json:"context,omitempty"`
	Suggestions []string          `json:"suggestions,omitempty"`
}

// Error implements the error interface. The message always comes first so
// callers can match on it.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same kind and code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind && e.Code == t.Code
	}
	return false
}

// WithContext adds context to the error
func (e *Error) WithContext(key, value string) *Error {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion to the error
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *Error) WithSuggestions(suggestions []string) *Error {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// FormatDetailed returns the message followed by context, cause and suggestions.
func (e *Error) FormatDetailed() string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("%s [%s]: %s\n", e.Kind.String(), e.Code, e.Message))

	if len(e.Context) > 0 {
		builder.WriteString("\nContext:\n")
		keys := make([]string, 0, len(e.Context))
		for key := range e.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			builder.WriteString(fmt.Sprintf("   %s: %s\n", key, e.Context[key]))
		}
	}

	if e.Cause != nil {
		builder.WriteString(fmt.Sprintf("\nUnderlying cause: %v\n", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		builder.WriteString("\nSuggestions:\n")
		for _, suggestion := range e.Suggestions {
			builder.WriteString(fmt.Sprintf("   • %s\n", suggestion))
		}
	}

	return builder.String()
}

// New creates an error of the given kind.
func New(kind Kind, code, message string) *Error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// Newf creates an error with a formatted message.
func Newf(kind Kind, code, format string, args ...interface{}) *Error {
	return New(kind, code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error.
func Wrap(err error, kind Kind, code, message string) *Error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As is a re-export of the standard errors.As.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Common error constructors

// NewIllegalInputError creates an input validation error
func NewIllegalInputError(code, message string) *Error {
	return New(KindIllegalInput, code, message)
}

// NewFileNotFoundError reports a missing input file with the exact wording
// expected by callers: File '<path>' was not found.
func NewFileNotFoundError(path string) *Error {
	return Newf(KindIllegalInput, "FILE_NOT_FOUND", "File '%s' was not found.", path).
		WithContext("path", path)
}

// NewDeviceError creates a device selection error
func NewDeviceError(kind Kind, code, message string) *Error {
	return New(kind, code, message).
		WithSuggestions([]string{
			"Check device connection with 'adb devices'",
			"Enable USB debugging",
			"Authorize this computer on the device",
		})
}

// NewMalformedArchiveError creates an archive invariant violation error
func NewMalformedArchiveError(format string, args ...interface{}) *Error {
	return Newf(KindMalformedArchive, "MALFORMED_ARCHIVE", format, args...)
}

// NewInstallationError wraps a bridge installation failure, keeping its message.
func NewInstallationError(message string, cause error) *Error {
	return &Error{
		Kind:    KindInstallation,
		Code:    "INSTALL_FAILED",
		Message: message,
		Cause:   cause,
	}
}
