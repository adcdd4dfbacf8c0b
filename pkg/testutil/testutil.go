// Package testutil provides testing utilities for Prism: loggers, bounded
// contexts and deterministic datasets.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a context that is cancelled after 30 seconds or when
// the test ends.
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

var categories = []string{"red", "green", "blue", "cyan", "magenta"}

// SyntheticCSV returns a header plus rows records with columns
// id,score,category,day,note. Every 17th score is missing and every 5th
// note is a quoted field containing the delimiter.
func SyntheticCSV(rows int) string {
	var sb strings.Builder
	sb.WriteString("id,score,category,day,note\n")
	for i := 0; i < rows; i++ {
		score := ""
		if i%17 != 0 {
			score = fmt.Sprintf("%.3f", float64(i%97)*1.25-20)
		}
		note := "plain"
		if i%5 == 0 {
			note = `"quoted, with comma"`
		}
		fmt.Fprintf(&sb, "%d,%s,%s,2024-01-%02d,%s\n", i, score, categories[i%len(categories)], i%28+1, note)
	}
	return sb.String()
}

// SyntheticJSONL returns rows newline-delimited objects with a nested
// object, an array and a key that only appears on every third record.
func SyntheticJSONL(rows int) string {
	var sb strings.Builder
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&sb, `{"id":%d,"user":{"name":"u%d","active":%t},"tags":[%s]`,
			i, i, i%2 == 0, strings.Repeat(`"t",`, i%4)+`"end"`)
		if i%3 == 0 {
			fmt.Fprintf(&sb, `,"extra":%d.5`, i)
		}
		sb.WriteString("}\n")
	}
	return sb.String()
}

// Split cuts data into consecutive pieces of at most size bytes.
func Split(data []byte, size int) [][]byte {
	if size <= 0 {
		size = len(data)
	}
	var out [][]byte
	for len(data) > 0 {
		n := size
		if n > len(data) {
			n = len(data)
		}
		out = append(out, data[:n])
		data = data[n:]
	}
	return out
}
