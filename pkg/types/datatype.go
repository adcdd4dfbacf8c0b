// Package types defines the column type lattice, the tagged value variant
// and the field decoder that classifies raw tokens during the sample window
// and coerces them once a column's type is locked.
package types

import (
	"fmt"
	"strings"
)

// DataType is the inferred type of a column.
type DataType uint8

const (
	// Unknown means the sample window is still open.
	Unknown DataType = iota
	// Empty means no present value was observed.
	Empty
	Integer
	Numeric
	Boolean
	Date
	DateTime
	String
	// Mixed means no candidate type reached the majority threshold.
	Mixed
)

var dataTypeNames = [...]string{
	Unknown:  "Unknown",
	Empty:    "Empty",
	Integer:  "Integer",
	Numeric:  "Numeric",
	Boolean:  "Boolean",
	Date:     "Date",
	DateTime: "DateTime",
	String:   "String",
	Mixed:    "Mixed",
}

func (t DataType) String() string {
	if int(t) < len(dataTypeNames) {
		return dataTypeNames[t]
	}
	return fmt.Sprintf("DataType(%d)", uint8(t))
}

// MarshalText renders the type name for JSON and YAML encoders.
func (t DataType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a type name case-insensitively.
func (t *DataType) UnmarshalText(b []byte) error {
	parsed, err := ParseDataType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseDataType parses a type name case-insensitively.
func ParseDataType(s string) (DataType, error) {
	for i, name := range dataTypeNames {
		if strings.EqualFold(name, s) {
			return DataType(i), nil
		}
	}
	switch strings.ToLower(s) {
	case "int":
		return Integer, nil
	case "float", "number":
		return Numeric, nil
	case "bool":
		return Boolean, nil
	case "timestamp":
		return DateTime, nil
	case "text":
		return String, nil
	}
	return Unknown, fmt.Errorf("unknown data type %q", s)
}

// IsNumeric reports whether numeric statistics apply.
func (t DataType) IsNumeric() bool {
	return t == Integer || t == Numeric
}

// IsTemporal reports whether temporal range statistics apply.
func (t DataType) IsTemporal() bool {
	return t == Date || t == DateTime
}

// IsCategorical reports whether top-value statistics apply.
func (t DataType) IsCategorical() bool {
	switch t {
	case String, Boolean, Mixed, Date, DateTime:
		return true
	}
	return false
}

// Accepts reports whether a token classified as c conforms to t.
func (t DataType) Accepts(c Class) bool {
	switch t {
	case Integer:
		return c == ClassInteger
	case Numeric:
		return c == ClassInteger || c == ClassNumeric
	case Boolean:
		return c == ClassBoolean
	case Date:
		return c == ClassDate
	case DateTime:
		return c == ClassDate || c == ClassDateTime
	case String, Mixed:
		return c != ClassMissing
	}
	return false
}
