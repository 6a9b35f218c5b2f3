package errors

import (
	"errors"
	"fmt"
)

// Kind classifies failures so callers can decide which ones to recover from.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindValidation
	KindFilesystem
	KindModel
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindValidation:
		return "validation"
	case KindFilesystem:
		return "filesystem"
	case KindModel:
		return "model"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

type AppError struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
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

func E(kind Kind, op string, err error, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// InvalidInput marks a file the model could not process (corrupt or unsupported audio).
func InvalidInput(op string, err error, message string) *AppError {
	return E(KindInvalidInput, op, err, message)
}

func Validation(op string, err error, message string) *AppError {
	return E(KindValidation, op, err, message)
}

func Filesystem(op string, err error, message string) *AppError {
	return E(KindFilesystem, op, err, message)
}

func Model(op string, err error, message string) *AppError {
	return E(KindModel, op, err, message)
}

func Configuration(op string, err error, message string) *AppError {
	return E(KindConfiguration, op, err, message)
}

// KindOf returns the kind of the outermost AppError in err's chain.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// IsKind reports whether any AppError in err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Kind == kind {
			return true
		}
		err = appErr.Err
	}
	return false
}

func IsInvalidInput(err error) bool {
	return IsKind(err, KindInvalidInput)
}
