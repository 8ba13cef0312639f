package tfserving

import "errors"

var (
	ErrServingUnavailable = errors.New("model server unavailable")
	ErrInvalidResponse    = errors.New("invalid response from model server")
	ErrSignatureNotFound  = errors.New("serving signature not found in model metadata")
	ErrEmptyPrediction    = errors.New("model server returned no predictions")
)
