package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a pngme error code.
type ErrorCode string

const (
	ErrInvalidTypeByte  ErrorCode = "INVALID_TYPE_BYTE"  // 400
	ErrReservedBitSet   ErrorCode = "RESERVED_BIT_SET"   // 400
	ErrTooLong          ErrorCode = "TOO_LONG"           // 400
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"    // 400
	ErrChunkNotFound    ErrorCode = "CHUNK_NOT_FOUND"    // 404
	ErrFileNotFound     ErrorCode = "FILE_NOT_FOUND"     // 404
	ErrNotFound         ErrorCode = "NOT_FOUND"          // 404
	ErrMessageTooLarge  ErrorCode = "MESSAGE_TOO_LARGE"  // 413
	ErrMalformedChunk   ErrorCode = "MALFORMED_CHUNK"    // 422
	ErrTruncatedPayload ErrorCode = "TRUNCATED_PAYLOAD"  // 422
	ErrChecksumMismatch ErrorCode = "CHECKSUM_MISMATCH"  // 422
	ErrBadSignature     ErrorCode = "BAD_SIGNATURE"      // 422
	ErrNotUTF8          ErrorCode = "NOT_UTF8"           // 422
	ErrCancelled        ErrorCode = "CANCELLED"          // 499
	ErrInternal         ErrorCode = "INTERNAL"           // 500
)

// PngmeError represents a structured error with code, status, and details.
type PngmeError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *PngmeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *PngmeError) Unwrap() error {
	return e.Cause
}

// NewInvalidTypeByte creates a 400 error for a type code byte that is not an ASCII letter.
func NewInvalidTypeByte(b byte) *PngmeError {
	return &PngmeError{
		Code:    ErrInvalidTypeByte,
		Status:  400,
		Message: fmt.Sprintf("chunk type byte %d is not an ASCII letter", b),
		Details: map[string]any{"byte": int(b)},
	}
}

// NewReservedBitSet creates a 400 error when the third type byte is lowercase.
func NewReservedBitSet(code string) *PngmeError {
	return &PngmeError{
		Code:    ErrReservedBitSet,
		Status:  400,
		Message: fmt.Sprintf("chunk type %q has the reserved bit set", code),
		Details: map[string]any{"chunk_type": code},
	}
}

// NewTooLong creates a 400 error for a textual type code longer than 4 characters.
func NewTooLong(code string) *PngmeError {
	return &PngmeError{
		Code:    ErrTooLong,
		Status:  400,
		Message: fmt.Sprintf("chunk type %q is longer than 4 characters", code),
		Details: map[string]any{"length": len(code)},
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *PngmeError {
	return &PngmeError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewChunkNotFound creates a 404 error when no chunk of the given type exists.
func NewChunkNotFound(chunkType string) *PngmeError {
	return &PngmeError{
		Code:    ErrChunkNotFound,
		Status:  404,
		Message: fmt.Sprintf("chunk not found: %s", chunkType),
		Details: map[string]any{"chunk_type": chunkType},
	}
}

// NewFileNotFound creates a 404 error for missing files.
func NewFileNotFound(path string) *PngmeError {
	return &PngmeError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewNotFound creates a 404 error for a missing journal entry.
func NewNotFound(identifier string) *PngmeError {
	return &PngmeError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("journal entry not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewMessageTooLarge creates a 413 error when a message exceeds the configured limit.
func NewMessageTooLarge(max, actual int) *PngmeError {
	return &PngmeError{
		Code:    ErrMessageTooLarge,
		Status:  413,
		Message: fmt.Sprintf("message exceeds maximum size: %d bytes (max %d)", actual, max),
		Details: map[string]any{"max_bytes": max, "actual_bytes": actual},
	}
}

// NewMalformedChunk creates a 422 error for a chunk record that cannot be parsed.
func NewMalformedChunk(msg string, cause error) *PngmeError {
	return &PngmeError{
		Code:    ErrMalformedChunk,
		Status:  422,
		Message: msg,
		Cause:   cause,
	}
}

// NewMalformedChunkAt wraps a chunk parse failure with its position in the file.
func NewMalformedChunkAt(index, offset int, cause error) *PngmeError {
	return &PngmeError{
		Code:    ErrMalformedChunk,
		Status:  422,
		Message: fmt.Sprintf("chunk %d at offset %d is malformed", index, offset),
		Details: map[string]any{"index": index, "offset": offset},
		Cause:   cause,
	}
}

// NewTruncatedPayload creates a 422 error when fewer payload bytes remain than declared.
func NewTruncatedPayload(declared uint32, available int) *PngmeError {
	return &PngmeError{
		Code:    ErrTruncatedPayload,
		Status:  422,
		Message: fmt.Sprintf("chunk declares %d payload bytes but only %d remain", declared, available),
		Details: map[string]any{"declared": declared, "available": available},
	}
}

// NewChecksumMismatch creates a 422 error when a stored CRC does not match the computed one.
func NewChecksumMismatch(chunkType string, stored, computed uint32) *PngmeError {
	return &PngmeError{
		Code:    ErrChecksumMismatch,
		Status:  422,
		Message: fmt.Sprintf("chunk %s crc %08x does not match computed %08x", chunkType, stored, computed),
		Details: map[string]any{"chunk_type": chunkType, "stored": stored, "computed": computed},
	}
}

// NewBadSignature creates a 422 error when the input does not start with the PNG header.
func NewBadSignature() *PngmeError {
	return &PngmeError{
		Code:    ErrBadSignature,
		Status:  422,
		Message: "input does not start with the PNG signature",
	}
}

// NewNotUTF8 creates a 422 error for chunk data that is not valid UTF-8 text.
func NewNotUTF8(chunkType string) *PngmeError {
	return &PngmeError{
		Code:    ErrNotUTF8,
		Status:  422,
		Message: fmt.Sprintf("chunk %s data is not valid UTF-8", chunkType),
		Details: map[string]any{"chunk_type": chunkType},
	}
}

// NewCancelled creates a 499 error when an operation is cancelled.
func NewCancelled(operation string) *PngmeError {
	return &PngmeError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message stays generic; the original error is kept in Details and Cause for logging.
func NewInternal(err error) *PngmeError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &PngmeError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
		Cause:   err,
	}
}

// Is reports whether err, or any error it wraps, is a PngmeError with the given code.
func Is(err error, code ErrorCode) bool {
	for err != nil {
		if pErr, ok := err.(*PngmeError); ok && pErr.Code == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// As returns the outermost PngmeError in err's chain.
func As(err error) (*PngmeError, bool) {
	var pErr *PngmeError
	if stderrors.As(err, &pErr) {
		return pErr, true
	}
	return nil, false
}
