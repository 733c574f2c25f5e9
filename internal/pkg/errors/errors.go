// Package errors provides error types, formatting and logging for appversion.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode represents the category of an error.
type ErrorCode int

const (
	// User errors
	ErrUnauthorized ErrorCode = iota + 100
	ErrNoCommits
	ErrInvalidConfig
	ErrInvalidArguments
	ErrCancelled

	// System errors
	ErrCommandFailed ErrorCode = iota + 200
	ErrFileSystemError
	ErrMissingMarker
)

// ExitCode returns the process exit code for an error code.
// Every failure of a release run maps to 1.
func (c ErrorCode) ExitCode() int {
	return 1
}

// IsUserError reports whether the code describes a problem the user can fix
// without looking at the repository state.
func (c ErrorCode) IsUserError() bool {
	return c >= 100 && c < 200
}

// String returns a human-readable name for the error code.
func (c ErrorCode) String() string {
	switch c {
	case ErrUnauthorized:
		return "Unauthorized"
	case ErrNoCommits:
		return "NoCommits"
	case ErrInvalidConfig:
		return "InvalidConfig"
	case ErrInvalidArguments:
		return "InvalidArguments"
	case ErrCancelled:
		return "Cancelled"
	case ErrCommandFailed:
		return "CommandFailed"
	case ErrFileSystemError:
		return "FileSystemError"
	case ErrMissingMarker:
		return "MissingMarker"
	default:
		return "Unknown"
	}
}

// AppError represents an application error with context.
type AppError struct {
	Code       ErrorCode
	Message    string
	Cause      error
	Context    map[string]interface{}
	Suggestion string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another *AppError carrying the same code, so callers can write
// errors.Is(err, errors.New(ErrNoCommits, "")).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithContext adds context to the error.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion to the error.
func (e *AppError) WithSuggestion(suggestion string) *AppError {
	e.Suggestion = suggestion
	return e
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with context.
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapWithContext wraps an error with a context message.
func WrapWithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts an AppError from an error chain.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// HasCode reports whether the error chain contains an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Code == code
}

// GetExitCode returns the appropriate exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Code.ExitCode()
	}
	return 1
}

// Common error constructors with suggestions

// NewUnauthorizedError creates the error returned outside a local environment.
func NewUnauthorizedError(env string) *AppError {
	return &AppError{
		Code:       ErrUnauthorized,
		Message:    "this command can only be used in local environment",
		Context:    map[string]interface{}{"environment": env},
		Suggestion: "Set APP_ENV=local (or app.env: local in .appversion.yaml) on a development machine",
	}
}

// NewNoCommitsError creates the error for an empty commit range.
func NewNoCommitsError(oldVersion string) *AppError {
	appErr := &AppError{
		Code:       ErrNoCommits,
		Message:    "no commit detected",
		Suggestion: "Commit your changes first, or check commits.hidden in your settings",
	}
	if oldVersion != "" {
		appErr.Context = map[string]interface{}{"range": oldVersion + "..HEAD"}
	}
	return appErr
}

// NewInvalidConfigError creates an error for invalid configuration.
func NewInvalidConfigError(message string) *AppError {
	return &AppError{
		Code:       ErrInvalidConfig,
		Message:    message,
		Suggestion: "Run 'appversion config init' to create a valid settings file",
	}
}

// NewInvalidArgumentsError creates an error for bad command-line input.
func NewInvalidArgumentsError(message string) *AppError {
	return &AppError{
		Code:    ErrInvalidArguments,
		Message: message,
	}
}

// NewCancelledError creates the error returned when the user declines the release.
func NewCancelledError() *AppError {
	return &AppError{
		Code:    ErrCancelled,
		Message: "release cancelled",
	}
}

// NewCommandError creates the error for an external command that exited non-zero.
func NewCommandError(err error, args []string, exitCode int, stdout, stderr string) *AppError {
	appErr := &AppError{
		Code:    ErrCommandFailed,
		Message: fmt.Sprintf("command failed: %s", strings.Join(args, " ")),
		Cause:   err,
		Context: map[string]interface{}{
			"exit_code": exitCode,
		},
	}
	if stdout != "" {
		appErr.Context["stdout"] = stdout
	}
	if stderr != "" {
		appErr.Context["stderr"] = stderr
	}
	return appErr
}

// NewFileSystemError creates an error for file read or write failures.
func NewFileSystemError(err error, path string) *AppError {
	return &AppError{
		Code:    ErrFileSystemError,
		Message: fmt.Sprintf("file operation failed on %s", path),
		Cause:   err,
	}
}

// NewMissingMarkerError creates an error for a text marker that could not be located.
func NewMissingMarkerError(path, marker string) *AppError {
	return &AppError{
		Code:       ErrMissingMarker,
		Message:    fmt.Sprintf("marker %q not found in %s", marker, path),
		Context:    map[string]interface{}{"file": path, "marker": marker},
		Suggestion: "Check that the file was not edited by hand since the last release",
	}
}

// FormatError formats an error for user display.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var sb strings.Builder

	appErr := GetAppError(err)
	if appErr != nil {
		sb.WriteString("Error: ")
		sb.WriteString(appErr.Message)

		if appErr.Cause != nil {
			sb.WriteString("\n  Cause: ")
			sb.WriteString(appErr.Cause.Error())
		}

		if stderr, ok := appErr.Context["stderr"]; ok {
			sb.WriteString("\n  Output: ")
			sb.WriteString(strings.TrimSpace(fmt.Sprintf("%v", stderr)))
		}

		if appErr.Suggestion != "" {
			sb.WriteString("\n  Suggestion: ")
			sb.WriteString(appErr.Suggestion)
		}
	} else {
		sb.WriteString("Error: ")
		sb.WriteString(err.Error())
	}

	return sb.String()
}

// FormatErrorVerbose formats an error with full details for verbose mode.
func FormatErrorVerbose(err error) string {
	if err == nil {
		return ""
	}

	var sb strings.Builder

	appErr := GetAppError(err)
	if appErr != nil {
		sb.WriteString(fmt.Sprintf("Error [%s]: %s\n", appErr.Code.String(), appErr.Message))

		if appErr.Cause != nil {
			sb.WriteString(fmt.Sprintf("  Cause: %v\n", appErr.Cause))
			sb.WriteString("  Error chain:\n")
			printErrorChain(&sb, appErr.Cause, 2)
		}

		if len(appErr.Context) > 0 {
			sb.WriteString("  Context:\n")
			keys := make([]string, 0, len(appErr.Context))
			for k := range appErr.Context {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				sb.WriteString(fmt.Sprintf("    %s: %v\n", k, appErr.Context[k]))
			}
		}

		if appErr.Suggestion != "" {
			sb.WriteString(fmt.Sprintf("  Suggestion: %s\n", appErr.Suggestion))
		}
	} else {
		sb.WriteString(fmt.Sprintf("Error: %v\n", err))
		sb.WriteString("  Error chain:\n")
		printErrorChain(&sb, err, 2)
	}

	return sb.String()
}

// printErrorChain prints the error chain with indentation.
func printErrorChain(sb *strings.Builder, err error, indent int) {
	if err == nil {
		return
	}

	prefix := strings.Repeat("  ", indent)
	sb.WriteString(fmt.Sprintf("%s- %T: %v\n", prefix, err, err))

	if unwrapped := errors.Unwrap(err); unwrapped != nil {
		printErrorChain(sb, unwrapped, indent+1)
	}
}
