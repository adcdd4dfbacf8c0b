package types

import (
	"strconv"
	"time"
)

// Class is the most restrictive type test a single token passes.
type Class uint8

const (
	ClassMissing Class = iota
	ClassBoolean
	ClassInteger
	ClassNumeric
	ClassDate
	ClassDateTime
	ClassString

	numClasses
)

var classNames = [...]string{
	ClassMissing:  "missing",
	ClassBoolean:  "boolean",
	ClassInteger:  "integer",
	ClassNumeric:  "numeric",
	ClassDate:     "date",
	ClassDateTime: "datetime",
	ClassString:   "string",
}

func (c Class) String() string {
	if c < numClasses {
		return classNames[c]
	}
	return "class(" + strconv.Itoa(int(c)) + ")"
}

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindMissing Kind = iota
	KindInt
	KindFloat
	KindBool
	KindText
	KindTemporal
)

// Value is a decoded field. Exactly the member named by Kind is meaningful.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Bool  bool
	Text  string
	Time  time.Time
	// DateOnly is set on temporal values parsed from a date layout.
	DateOnly bool
}

// Missing is the value of an absent field.
var Missing = Value{Kind: KindMissing}

// IntValue constructs an integer value.
func IntValue(v int64) Value { return Value{Kind: KindInt, Int: v} }

// FloatValue constructs a floating point value.
func FloatValue(v float64) Value { return Value{Kind: KindFloat, Float: v} }

// BoolValue constructs a boolean value.
func BoolValue(v bool) Value { return Value{Kind: KindBool, Bool: v} }

// TextValue constructs a text value.
func TextValue(v string) Value { return Value{Kind: KindText, Text: v} }

// TemporalValue constructs a temporal value.
func TemporalValue(t time.Time, dateOnly bool) Value {
	return Value{Kind: KindTemporal, Time: t, DateOnly: dateOnly}
}

// IsMissing reports whether the value is absent.
func (v Value) IsMissing() bool { return v.Kind == KindMissing }

// Float64 returns the numeric value as a float64 for Int and Float kinds.
func (v Value) Float64() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.Int), true
	case KindFloat:
		return v.Float, true
	}
	return 0, false
}
