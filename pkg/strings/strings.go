// Package strings provides zero-copy conversions used on the field decoding
// hot path, where every token is inspected once and then dropped.
package strings

import (
	"bytes"
	"strconv"
	"unsafe"
)

// BytesToString converts byte slice to string without allocation
// WARNING: The returned string shares memory with the byte slice.
// Do not modify the byte slice while the string is in use.
func BytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// StringToBytes converts string to byte slice without allocation
// WARNING: The returned byte slice shares memory with the string.
// Do not modify the returned slice.
func StringToBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// Clone returns an owned copy of the token, safe to retain after the
// backing chunk buffer is reused.
func Clone(b []byte) string {
	return string(b)
}

// TrimSpace trims ASCII whitespace from both ends without allocating.
func TrimSpace(b []byte) []byte {
	return bytes.TrimSpace(b)
}

// EqualFoldASCII reports whether b equals s ignoring ASCII case.
func EqualFoldASCII(b []byte, s string) bool {
	if len(b) != len(s) {
		return false
	}
	for i := 0; i < len(b); i++ {
		c := b[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		d := s[i]
		if 'A' <= d && d <= 'Z' {
			d += 'a' - 'A'
		}
		if c != d {
			return false
		}
	}
	return true
}

// UniqueName returns name, or name with the smallest numeric suffix (_2, _3, ...)
// not already present in taken.
func UniqueName(name string, taken map[string]struct{}) string {
	if _, ok := taken[name]; !ok {
		return name
	}
	for i := 2; ; i++ {
		candidate := name + "_" + strconv.Itoa(i)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}
