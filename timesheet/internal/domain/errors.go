package domain

import (
	"errors"
	"fmt"
)

const (
	CodeNegativeHours           = "NEGATIVE_HOURS"
	CodeHoursNotQuarter         = "HOURS_NOT_QUARTER"
	CodeHoursOverDailyMax       = "HOURS_OVER_DAILY_MAX"
	CodeDateInFuture            = "DATE_IN_FUTURE"
	CodeCommentTooLong          = "COMMENT_TOO_LONG"
	CodeInvalidAbsenceType      = "INVALID_ABSENCE_TYPE"
	CodeReasonRequired          = "REASON_REQUIRED"
	CodeReasonTooLong           = "REASON_TOO_LONG"
	CodeNotEditable             = "NOT_EDITABLE"
	CodeNotDeletable            = "NOT_DELETABLE"
	CodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	CodeDailyLimitExceeded      = "DAILY_LIMIT_EXCEEDED"
	CodeDuplicateEntry          = "DUPLICATE_ENTRY"
	CodeProxyEntryNotAllowed    = "PROXY_ENTRY_NOT_ALLOWED"
	CodeNotFound                = "NOT_FOUND"
	CodeConflict                = "CONFLICT"
	CodeUnknownEventType        = "UNKNOWN_EVENT_TYPE"
)

// Error is a typed domain failure carrying a machine-readable code. It is
// returned by aggregate command methods before any event is raised, so a
// failed command never leaves partial state behind.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func NewError(code string, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Errorf(code string, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrorCode returns the domain code of err, or "" when err carries none.
func ErrorCode(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}
