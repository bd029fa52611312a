// Package dates turns loosely typed date text into calendar dates and renders
// them in the fixed layout EXIF date-time fields require.
package dates

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CenturyPivot decides the century of two-digit years. Values below the pivot
// land in the 2000s ("01" -> 2001), the rest in the 1900s ("50" -> 1950).
const CenturyPivot = 50

// ErrParse is returned for text that is not a recognizable calendar date.
var ErrParse = errors.New("unrecognized date")

// Date is a calendar date without time of day.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// Clock is a time of day carried over from an existing EXIF value.
type Clock struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second"`
}

// New returns the date for year, month and day, or an ErrParse error when
// the three numbers do not name a real day.
func New(year, month, day int) (Date, error) {
	d := Date{Year: year, Month: month, Day: day}
	if !d.Valid() {
		return Date{}, fmt.Errorf("%w: %04d-%02d-%02d is not a calendar date", ErrParse, year, month, day)
	}
	return d, nil
}

// Valid reports whether d names an existing Gregorian day.
func (d Date) Valid() bool {
	if d.Year < 1 || d.Year > 9999 || d.Month < 1 || d.Month > 12 || d.Day < 1 {
		return false
	}
	t := time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
	return t.Year() == d.Year && int(t.Month()) == d.Month && t.Day() == d.Day
}

// Time returns midnight UTC on d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// String renders d the way the editor shows it, e.g. "May 11, 2001".
func (d Date) String() string {
	return d.Time().Format("January 2, 2006")
}

func (c Clock) valid() bool {
	return c.Hour >= 0 && c.Hour < 24 && c.Minute >= 0 && c.Minute < 60 && c.Second >= 0 && c.Second < 60
}

// Format renders d as an EXIF date-time with the time of day zeroed.
func Format(d Date) string {
	return FormatWithClock(d, nil)
}

// FormatWithClock renders d as an EXIF date-time, keeping c when it is set.
func FormatWithClock(d Date, c *Clock) string {
	var clk Clock
	if c != nil {
		clk = *c
	}
	return fmt.Sprintf("%04d:%02d:%02d %02d:%02d:%02d", d.Year, d.Month, d.Day, clk.Hour, clk.Minute, clk.Second)
}

// ParseEXIF reads an EXIF date-time value. Some cameras pad the string with
// NULs or omit the time; a missing time yields a zero Clock.
func ParseEXIF(s string) (Date, Clock, error) {
	s = strings.TrimSpace(strings.TrimRight(s, "\x00"))
	m := reExif.FindStringSubmatch(s)
	if m == nil {
		return Date{}, Clock{}, fmt.Errorf("%w: %q is not an EXIF date-time", ErrParse, s)
	}
	d, err := New(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	if err != nil {
		return Date{}, Clock{}, err
	}
	var c Clock
	if m[4] != "" {
		c = Clock{Hour: atoi(m[4]), Minute: atoi(m[5]), Second: atoi(m[6])}
		if !c.valid() {
			return Date{}, Clock{}, fmt.Errorf("%w: %q has an invalid time of day", ErrParse, s)
		}
	}
	return d, c, nil
}

var (
	reYear       = regexp.MustCompile(`^(\d{4})$`)
	reExif       = regexp.MustCompile(`^(\d{4}):(\d{2}):(\d{2})(?:[ T](\d{2}):(\d{2}):(\d{2}))?$`)
	reISO        = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	reISOMonth   = regexp.MustCompile(`^(\d{4})-(\d{1,2})$`)
	reNumeric    = regexp.MustCompile(`^(\d{1,2})[/.-](\d{1,2})[/.-](\d{4}|\d{2})$`)
	reNumMonth   = regexp.MustCompile(`^(\d{1,2})/(\d{4})$`)
	reMonthFirst = regexp.MustCompile(`^([a-z]+)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4}|\d{2})$`)
	reDayFirst   = regexp.MustCompile(`^(\d{1,2})(?:st|nd|rd|th)?\s+([a-z]+)\.?,?\s+(\d{4})$`)
	reMonthYear  = regexp.MustCompile(`^([a-z]+)\.?,?\s+(\d{4})$`)
)

// Parse maps user-typed text to a calendar date. It accepts a bare year,
// M/D/YY and M/D/YYYY, M/YYYY, month-name forms ("Mon D, YYYY",
// "D Month YYYY", "Month YYYY"), ISO YYYY-MM-DD and YYYY-MM, and the EXIF
// layout. Missing month or day default to 1. Two-digit years follow
// CenturyPivot.
func Parse(text string) (Date, error) {
	s := strings.ToLower(strings.Join(strings.Fields(text), " "))
	if s == "" {
		return Date{}, fmt.Errorf("%w: empty text", ErrParse)
	}

	y, mo, d, ok := match(s)
	if !ok {
		return Date{}, fmt.Errorf("%w: %q", ErrParse, text)
	}
	date, err := New(y, mo, d)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q is not a calendar date", ErrParse, text)
	}
	return date, nil
}

func match(s string) (year, month, day int, ok bool) {
	if m := reYear.FindStringSubmatch(s); m != nil {
		return atoi(m[1]), 1, 1, true
	}
	if m := reExif.FindStringSubmatch(s); m != nil {
		return atoi(m[1]), atoi(m[2]), atoi(m[3]), true
	}
	if m := reISO.FindStringSubmatch(s); m != nil {
		return atoi(m[1]), atoi(m[2]), atoi(m[3]), true
	}
	if m := reISOMonth.FindStringSubmatch(s); m != nil {
		return atoi(m[1]), atoi(m[2]), 1, true
	}
	if m := reNumeric.FindStringSubmatch(s); m != nil {
		return expandYear(m[3]), atoi(m[1]), atoi(m[2]), true
	}
	if m := reNumMonth.FindStringSubmatch(s); m != nil {
		return atoi(m[2]), atoi(m[1]), 1, true
	}
	if m := reMonthFirst.FindStringSubmatch(s); m != nil {
		if mo, found := monthByName(m[1]); found {
			return expandYear(m[3]), mo, atoi(m[2]), true
		}
		return 0, 0, 0, false
	}
	if m := reDayFirst.FindStringSubmatch(s); m != nil {
		if mo, found := monthByName(m[2]); found {
			return atoi(m[3]), mo, atoi(m[1]), true
		}
		return 0, 0, 0, false
	}
	if m := reMonthYear.FindStringSubmatch(s); m != nil {
		if mo, found := monthByName(m[1]); found {
			return atoi(m[2]), mo, 1, true
		}
	}
	return 0, 0, 0, false
}

// expandYear applies CenturyPivot to two-digit years and passes four-digit
// years through.
func expandYear(s string) int {
	n := atoi(s)
	if len(s) != 2 {
		return n
	}
	if n < CenturyPivot {
		return 2000 + n
	}
	return 1900 + n
}

var monthNames = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "jun": 6, "jul": 7, "aug": 8,
	"sep": 9, "sept": 9, "oct": 10, "nov": 11, "dec": 12,
}

func monthByName(name string) (int, bool) {
	m, ok := monthNames[name]
	return m, ok
}

// atoi is only called on regexp groups made of digits.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
