package strings

import (
	"testing"
)

func TestBytesToString(t *testing.T) {
	b := []byte("hello world")
	s := BytesToString(b)

	if s != "hello world" {
		t.Errorf("expected 'hello world', got '%s'", s)
	}

	// Test empty slice
	empty := BytesToString([]byte{})
	if empty != "" {
		t.Errorf("expected empty string, got '%s'", empty)
	}
}

func TestStringToBytes(t *testing.T) {
	s := "hello world"
	b := StringToBytes(s)

	if string(b) != "hello world" {
		t.Errorf("expected 'hello world', got '%s'", string(b))
	}

	// Test empty string
	empty := StringToBytes("")
	if empty != nil {
		t.Errorf("expected nil slice, got %v", empty)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	b := []byte("abc")
	s := Clone(b)
	b[0] = 'x'

	if s != "abc" {
		t.Errorf("expected clone to keep 'abc', got '%s'", s)
	}
}

func TestEqualFoldASCII(t *testing.T) {
	tests := []struct {
		in   string
		s    string
		want bool
	}{
		{"NULL", "null", true},
		{"N/a", "n/a", true},
		{"nul", "null", false},
		{"", "", true},
		{"Tru", "true", false},
	}

	for _, tt := range tests {
		if got := EqualFoldASCII([]byte(tt.in), tt.s); got != tt.want {
			t.Errorf("EqualFoldASCII(%q, %q) = %v, want %v", tt.in, tt.s, got, tt.want)
		}
	}
}

func TestUniqueName(t *testing.T) {
	taken := map[string]struct{}{"id": {}, "id_2": {}}

	if got := UniqueName("name", taken); got != "name" {
		t.Errorf("expected 'name', got '%s'", got)
	}
	if got := UniqueName("id", taken); got != "id_3" {
		t.Errorf("expected 'id_3', got '%s'", got)
	}
}
