package errors

import "net/http"

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 13000-13099: Submission errors
// 13100-13199: Judge (build and run) errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	InvalidValue       ErrorCode = 10302
	RequiredFieldEmpty ErrorCode = 10303

	// ========== Submission Errors (13000-13099) ==========

	SubmissionFetchFailed ErrorCode = 13001
	LanguageNotSupported  ErrorCode = 13003
	EntryPointNotFound    ErrorCode = 13006

	// ========== Judge Errors (13100-13199) ==========

	JudgeQueueFull   ErrorCode = 13100
	JudgeSystemError ErrorCode = 13101
	CompilationError ErrorCode = 13102
	BuildFailed      ErrorCode = 13107
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	SubmissionFetchFailed: "Failed to fetch submission",
	LanguageNotSupported:  "Programming language not supported",
	EntryPointNotFound:    "Entry point not found in submission",

	JudgeQueueFull:   "Judge queue is full, please try again later",
	JudgeSystemError: "Judge system error",
	CompilationError: "Compilation error",
	BuildFailed:      "Build failed",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code.
// Submission and build failures are the caller's problem, so they map to 400.
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return http.StatusOK
	case c == NotFound:
		return http.StatusNotFound
	case c == TooManyRequests, c == JudgeQueueFull:
		return http.StatusTooManyRequests
	case c == ServiceUnavailable:
		return http.StatusServiceUnavailable
	case c == Timeout:
		return http.StatusGatewayTimeout
	case c >= 10300 && c < 10400: // Validation errors
		return http.StatusBadRequest
	case c == InvalidParams:
		return http.StatusBadRequest
	case c == SubmissionFetchFailed, c == LanguageNotSupported, c == EntryPointNotFound:
		return http.StatusBadRequest
	case c == CompilationError, c == BuildFailed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
