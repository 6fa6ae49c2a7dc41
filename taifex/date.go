package taifex

import (
	"regexp"
	"strconv"
	"time"
)

const dateLayout = "2006/01/02"

var datePattern = regexp.MustCompile(
	`日[\s\p{Zs}]*期[\s\p{Zs}]*:?[\s\p{Zs}]*(\d{4})[\s\p{Zs}]*/[\s\p{Zs}]*(\d{1,2})[\s\p{Zs}]*/[\s\p{Zs}]*(\d{1,2})`,
)

// ResolveDate finds the "日期YYYY/MM/DD" declaration in the page text.
// Trade dates are calendar dates in the exchange's reporting convention;
// they are carried as midnight UTC and never converted.
func ResolveDate(text string) (time.Time, error) {
	m := datePattern.FindStringSubmatch(normalize(text))
	if m == nil {
		return time.Time{}, &MissingDateError{}
	}

	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])

	date, ok := calendarDate(year, month, day)
	if !ok {
		return time.Time{}, &MissingDateError{Reason: "invalid calendar date " + m[0]}
	}
	return date, nil
}

// calendarDate rejects dates time.Date would silently normalize, such as
// 2024/02/30.
func calendarDate(year, month, day int) (time.Time, bool) {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// parseStrictDate reads a token that must be exactly YYYY/MM/DD.
func parseStrictDate(s string) (time.Time, bool) {
	if len(s) != len(dateLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// TradingDay returns the calendar date of t as observed in loc, using the
// same midnight UTC carrier as ResolveDate.
func TradingDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
