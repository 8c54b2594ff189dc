package domain

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrorCodeAlreadyTracked      ErrorCode = "ALREADY_TRACKED"
	ErrorCodeStaleWrite          ErrorCode = "STALE_WRITE"
	ErrorCodeMessageGone         ErrorCode = "MESSAGE_GONE"
	ErrorCodeExternalUnavailable ErrorCode = "EXTERNAL_UNAVAILABLE"
	ErrorCodeUnknownSignal       ErrorCode = "UNKNOWN_SIGNAL"
)

type DomainError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == code
}
