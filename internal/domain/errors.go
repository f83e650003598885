package domain

import (
	"errors"
	"fmt"
)

var (
	// Base errors
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInternal      = errors.New("internal error")

	// Decoding errors
	ErrDecode            = errors.New("unable to decode audio")
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// Buffer errors
	ErrInvalidBuffer   = errors.New("invalid sample buffer")
	ErrEmptyBuffer     = errors.New("sample buffer has no frames")
	ErrChannelMismatch = errors.New("channel count mismatch")
	ErrNoBufferLoaded  = errors.New("no audio buffer loaded")

	// Equalizer errors
	ErrInvalidBandIndex = errors.New("invalid band index")
	ErrInvalidBand      = errors.New("invalid band")
	ErrPresetNotFound   = errors.New("preset not found")

	// Remote collaborator errors
	ErrRemoteTransform = errors.New("remote transform failed")
)

type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func NewDomainError(code string, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewDomainErrorWithDetails(code string, message string, details string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: details,
		Err:     err,
	}
}

// Error codes for consistent error handling
const (
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeAlreadyExists   = "ALREADY_EXISTS"
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeInternal        = "INTERNAL"
	ErrCodeDecode          = "DECODE"
	ErrCodeInvalidBand     = "INVALID_BAND"
	ErrCodeNoBuffer        = "NO_BUFFER"
	ErrCodeRender          = "RENDER"
	ErrCodeRemoteTransform = "REMOTE_TRANSFORM"
)

// NewDecodeError wraps a decoder failure so that errors.Is(err, ErrDecode) holds
// while the underlying cause stays reachable.
func NewDecodeError(details string, cause error) error {
	return &DomainError{
		Code:    ErrCodeDecode,
		Message: ErrDecode.Error(),
		Details: details,
		Err:     errors.Join(ErrDecode, cause),
	}
}

func NewRemoteTransformError(details string, cause error) error {
	return &DomainError{
		Code:    ErrCodeRemoteTransform,
		Message: ErrRemoteTransform.Error(),
		Details: details,
		Err:     errors.Join(ErrRemoteTransform, cause),
	}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrPresetNotFound)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrInvalidBandIndex) ||
		errors.Is(err, ErrInvalidBand) || errors.Is(err, ErrInvalidBuffer)
}

func IsDecodeError(err error) bool {
	return errors.Is(err, ErrDecode) || errors.Is(err, ErrUnsupportedFormat)
}

func IsBufferError(err error) bool {
	return errors.Is(err, ErrEmptyBuffer) || errors.Is(err, ErrChannelMismatch) ||
		errors.Is(err, ErrNoBufferLoaded) || errors.Is(err, ErrInvalidBuffer)
}

func IsRemoteTransformError(err error) bool {
	return errors.Is(err, ErrRemoteTransform)
}
