package domain

import (
	"strings"
	"testing"
	"time"
)

func TestValidateHoursQuarterSteps(t *testing.T) {
	for _, h := range []float64{0.25, 7.5, 8, 23.75, 24} {
		if err := ValidateHours(h); err != nil {
			t.Fatalf("hours %v should be valid: %v", h, err)
		}
	}
	for _, tc := range []struct {
		hours float64
		code  string
	}{
		{0, CodeNegativeHours},
		{-0.25, CodeNegativeHours},
		{7.1, CodeHoursNotQuarter},
		{0.26, CodeHoursNotQuarter},
		{24.25, CodeHoursOverDailyMax},
	} {
		if err := ValidateHours(tc.hours); ErrorCode(err) != tc.code {
			t.Fatalf("hours %v: expected %s, got %v", tc.hours, tc.code, err)
		}
	}
}

func TestValidateCommentAndReason(t *testing.T) {
	if err := ValidateComment(strings.Repeat("x", MaxCommentLen)); err != nil {
		t.Fatalf("comment at limit should pass: %v", err)
	}
	if err := ValidateComment(strings.Repeat("x", MaxCommentLen+1)); ErrorCode(err) != CodeCommentTooLong {
		t.Fatalf("expected COMMENT_TOO_LONG, got %v", err)
	}
	if err := ValidateReason("   "); ErrorCode(err) != CodeReasonRequired {
		t.Fatalf("expected REASON_REQUIRED, got %v", err)
	}
	if err := ValidateReason(strings.Repeat("x", MaxReasonLen+1)); ErrorCode(err) != CodeReasonTooLong {
		t.Fatalf("expected REASON_TOO_LONG, got %v", err)
	}
}

func TestDayTruncatesToUTCMidnight(t *testing.T) {
	loc := time.FixedZone("JST", 9*3600)
	in := time.Date(2026, 7, 15, 3, 30, 0, 0, loc)
	got := Day(in)
	if got.Location() != time.UTC {
		t.Fatalf("expected UTC, got %v", got.Location())
	}
	if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 {
		t.Fatalf("expected midnight, got %v", got)
	}
	if Day(got) != got {
		t.Fatalf("Day should be idempotent")
	}
}
