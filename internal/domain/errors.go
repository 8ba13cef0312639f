package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so sentinels still match
// after WithError has produced a copy.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	ErrInvalidImage = &AppError{
		Code:       "INVALID_IMAGE",
		Message:    "Invalid image format or corrupted file",
		StatusCode: 422,
	}

	ErrNoFaceDetected = &AppError{
		Code:       "NO_FACE_DETECTED",
		Message:    "No face detected in the image",
		StatusCode: 422,
	}

	ErrEntryNotFound = &AppError{
		Code:       "ENTRY_NOT_FOUND",
		Message:    "Gallery entry not found",
		StatusCode: 404,
	}

	ErrDuplicateIdentity = &AppError{
		Code:       "DUPLICATE_IDENTITY",
		Message:    "This face is already enrolled under another label",
		StatusCode: 409,
	}

	ErrStreamNotFound = &AppError{
		Code:       "STREAM_NOT_FOUND",
		Message:    "Stream not found",
		StatusCode: 404,
	}

	ErrSessionNotReady = &AppError{
		Code:       "SESSION_NOT_READY",
		Message:    "Recognition session is not initialized",
		StatusCode: 503,
	}

	ErrDetectionFailed = &AppError{
		Code:       "DETECTION_FAILED",
		Message:    "Face detection failed",
		StatusCode: 502,
	}

	// Pipeline errors

	// ErrModelShape is fatal: the session cannot be used with this model.
	ErrModelShape = &AppError{
		Code:       "MODEL_SHAPE",
		Message:    "Unsupported model input or output shape",
		StatusCode: 500,
	}

	ErrInvalidInput = &AppError{
		Code:       "INVALID_INPUT",
		Message:    "Image has zero width or height",
		StatusCode: 422,
	}

	ErrInference = &AppError{
		Code:       "INFERENCE_FAILED",
		Message:    "Embedding inference failed",
		StatusCode: 502,
	}

	ErrEmbeddingMismatch = &AppError{
		Code:       "EMBEDDING_MISMATCH",
		Message:    "Embedding length does not match query",
		StatusCode: 500,
	}
)
