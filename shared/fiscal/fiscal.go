package fiscal

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Month is an approval period labelled "YYYY-MM". With a start day of 1 it is
// the calendar month; otherwise the window runs from the start day of the
// labelled month to the day before the same start day of the next month.
type Month struct {
	Year  int
	Month time.Month
}

var ErrInvalidMonth = errors.New("fiscal month must be formatted YYYY-MM")

func Parse(raw string) (Month, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), "-", 2)
	if len(parts) != 2 {
		return Month{}, ErrInvalidMonth
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil || year < 1 {
		return Month{}, ErrInvalidMonth
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return Month{}, ErrInvalidMonth
	}
	return Month{Year: year, Month: time.Month(month)}, nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// Window returns the half-open date range [from, to) of the period.
func (m Month) Window(startDay int) (time.Time, time.Time) {
	if startDay < 1 || startDay > 28 {
		startDay = 1
	}
	from := time.Date(m.Year, m.Month, startDay, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

func (m Month) Contains(date time.Time, startDay int) bool {
	from, to := m.Window(startDay)
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return !day.Before(from) && day.Before(to)
}

func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// MonthOf maps a work date to the fiscal month whose window contains it.
func MonthOf(date time.Time, startDay int) Month {
	if startDay < 1 || startDay > 28 {
		startDay = 1
	}
	year, month := date.Year(), date.Month()
	if date.Day() < startDay {
		if month == time.January {
			year, month = year-1, time.December
		} else {
			month--
		}
	}
	return Month{Year: year, Month: month}
}
