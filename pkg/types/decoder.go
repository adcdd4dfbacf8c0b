package types

import (
	"math"
	"strconv"
	"time"

	"github.com/ajitpratap0/prism/pkg/strings"
)

// DateLayouts are the accepted calendar date forms, tried in order.
var DateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"01-02-2006",
	"1/2/2006",
	"1/2/06",
	"02.01.2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02-Jan-2006",
}

// DateTimeLayouts are the accepted timestamp forms, tried in order.
var DateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04",
	time.RFC1123Z,
	time.RFC1123,
}

// IsMissing reports whether a raw token denotes an absent value: empty after
// trimming ASCII whitespace, or the literal null or n/a in any case.
func IsMissing(tok []byte) bool {
	t := strings.TrimSpace(tok)
	switch len(t) {
	case 0:
		return true
	case 3:
		return strings.EqualFoldASCII(t, "n/a")
	case 4:
		return strings.EqualFoldASCII(t, "null")
	}
	return false
}

// Classify runs the type tests in order of restrictiveness and returns the
// first class the token passes together with its decoded value.
func Classify(tok []byte) (Class, Value) {
	if IsMissing(tok) {
		return ClassMissing, Missing
	}
	t := strings.TrimSpace(tok)
	s := strings.BytesToString(t)

	if b, ok := parseBool(t); ok {
		return ClassBoolean, BoolValue(b)
	}
	if i, ok := parseInt(s); ok {
		return ClassInteger, IntValue(i)
	}
	if f, ok := parseFloat(s); ok {
		return ClassNumeric, FloatValue(f)
	}
	if ts, ok := parseLayouts(s, DateLayouts); ok {
		return ClassDate, TemporalValue(ts, true)
	}
	if ts, ok := parseLayouts(s, DateTimeLayouts); ok {
		return ClassDateTime, TemporalValue(ts, false)
	}
	return ClassString, TextValue(string(t))
}

// Coerce decodes tok as t. ok is false when the token is present but does not
// conform; the returned value then carries the token as text.
func Coerce(t DataType, tok []byte) (v Value, ok bool) {
	if IsMissing(tok) {
		return Missing, true
	}
	trimmed := strings.TrimSpace(tok)
	s := strings.BytesToString(trimmed)

	switch t {
	case Integer:
		if i, ok := parseInt(s); ok {
			return IntValue(i), true
		}
	case Numeric:
		if i, ok := parseInt(s); ok {
			return FloatValue(float64(i)), true
		}
		if f, ok := parseFloat(s); ok {
			return FloatValue(f), true
		}
	case Boolean:
		if b, ok := parseBool(trimmed); ok {
			return BoolValue(b), true
		}
	case Date:
		if ts, ok := parseLayouts(s, DateLayouts); ok {
			return TemporalValue(ts, true), true
		}
	case DateTime:
		if ts, ok := parseLayouts(s, DateLayouts); ok {
			return TemporalValue(ts, true), true
		}
		if ts, ok := parseLayouts(s, DateTimeLayouts); ok {
			return TemporalValue(ts, false), true
		}
	case String, Mixed:
		return TextValue(string(trimmed)), true
	}
	return TextValue(string(trimmed)), false
}

func parseBool(t []byte) (value, ok bool) {
	switch len(t) {
	case 1:
		switch t[0] {
		case 't', 'T':
			return true, true
		case 'f', 'F':
			return false, true
		}
	case 2:
		if strings.EqualFoldASCII(t, "no") {
			return false, true
		}
	case 3:
		if strings.EqualFoldASCII(t, "yes") {
			return true, true
		}
	case 4:
		if strings.EqualFoldASCII(t, "true") {
			return true, true
		}
	case 5:
		if strings.EqualFoldASCII(t, "false") {
			return false, true
		}
	}
	return false, false
}

func parseInt(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	i, err := strconv.ParseInt(s, 10, 64)
	return i, err == nil
}

// parseFloat accepts decimal and scientific notation only. Hex floats and
// the inf/nan spellings strconv understands are rejected.
func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	switch c := s[0]; {
	case c >= '0' && c <= '9', c == '+', c == '-', c == '.':
	default:
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'x', 'X', 'n', 'N', 'i', 'I', '_':
			return 0, false
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func parseLayouts(s string, layouts []string) (time.Time, bool) {
	// Every layout is at least six bytes.
	if len(s) < 6 {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// ParseNumber decodes an integer or decimal token as a float64 without
// running the temporal tests.
func ParseNumber(tok []byte) (float64, bool) {
	s := strings.BytesToString(strings.TrimSpace(tok))
	if i, ok := parseInt(s); ok {
		return float64(i), true
	}
	return parseFloat(s)
}
