package domain

import (
	"math"
	"strings"
	"time"
)

const (
	MaxDailyHours = 24.0
	HoursStep     = 0.25
	MaxCommentLen = 500
	MaxReasonLen  = 1000
)

// Day truncates t to its UTC calendar date. All work dates are stored this way.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func ValidateHours(hours float64) error {
	if hours <= 0 {
		return Errorf(CodeNegativeHours, "hours must be positive, got %g", hours)
	}
	steps := hours / HoursStep
	if math.Abs(steps-math.Round(steps)) > 1e-9 {
		return Errorf(CodeHoursNotQuarter, "hours must be a multiple of %g, got %g", HoursStep, hours)
	}
	if hours > MaxDailyHours {
		return Errorf(CodeHoursOverDailyMax, "hours must be <= %g, got %g", MaxDailyHours, hours)
	}
	return nil
}

func ValidateWorkDate(date time.Time) error {
	if Day(date).After(Day(time.Now().UTC())) {
		return Errorf(CodeDateInFuture, "work date %s is in the future", Day(date).Format("2006-01-02"))
	}
	return nil
}

func ValidateComment(comment string) error {
	if len([]rune(comment)) > MaxCommentLen {
		return Errorf(CodeCommentTooLong, "comment exceeds %d characters", MaxCommentLen)
	}
	return nil
}

func ValidateReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return NewError(CodeReasonRequired, "a rejection reason is required")
	}
	if len([]rune(reason)) > MaxReasonLen {
		return Errorf(CodeReasonTooLong, "reason exceeds %d characters", MaxReasonLen)
	}
	return nil
}
