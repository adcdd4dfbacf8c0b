// Package errors provides examples of structured error handling in Prism.
package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/prism/pkg/errors"
)

// Example demonstrates basic error creation.
func Example() {
	err := errors.New(errors.KindParse, "no consistent delimiter").
		WithDetail("sample_bytes", 65536)

	fmt.Println(err.Error())

	// Output:
	// PARSE_ERROR: no consistent delimiter
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.KindSource, "failed to read chunk").
		WithDetail("file", "data.csv").
		WithRecord(42)

	if errors.IsKind(err, errors.KindSource) {
		fmt.Println("This is a source error")
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		fmt.Println("Caused by unexpected EOF")
	}
	fmt.Println("record:", err.RecordIndex)

	// Output:
	// This is a source error
	// Caused by unexpected EOF
	// record: 42
}

// ExampleKind demonstrates the stable kind discriminators.
func ExampleKind() {
	parseErr := errors.New(errors.KindParse, "unterminated header")
	fmt.Printf("Parse: %v\n", parseErr)

	protoErr := errors.Newf(errors.KindProtocol, "chunk %d arrived after chunk %d", 3, 5)
	fmt.Printf("Protocol: %v\n", protoErr)

	fmt.Println(errors.KindOf(fmt.Errorf("plain")))

	// Output:
	// Parse: PARSE_ERROR: unterminated header
	// Protocol: PROTOCOL_VIOLATION: chunk 3 arrived after chunk 5
	// INTERNAL
}

// ExampleIsRecoverable shows which failures may succeed in a new session.
func ExampleIsRecoverable() {
	errs := []error{
		errors.New(errors.KindParse, "ambiguous structure"),
		errors.New(errors.KindSource, "connection reset"),
		errors.New(errors.KindResourceExhausted, "record exceeds pending limit"),
		io.EOF,
	}

	for _, err := range errs {
		fmt.Printf("%v -> %v\n", err, errors.IsRecoverable(err))
	}

	// Output:
	// PARSE_ERROR: ambiguous structure -> false
	// SOURCE_ERROR: connection reset -> true
	// RESOURCE_EXHAUSTED: record exceeds pending limit -> true
	// EOF -> false
}
