package testutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyntheticCSV(t *testing.T) {
	data := SyntheticCSV(10)
	lines := strings.Split(strings.TrimSuffix(data, "\n"), "\n")
	assert.Len(t, lines, 11)
	assert.Equal(t, "id,score,category,day,note", lines[0])
	assert.Equal(t, `0,,red,2024-01-01,"quoted, with comma"`, lines[1])
}

func TestSyntheticJSONL(t *testing.T) {
	lines := strings.Split(strings.TrimSuffix(SyntheticJSONL(4), "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.Contains(t, lines[0], `"extra":0.5`)
	assert.NotContains(t, lines[1], "extra")
}

func TestSplit(t *testing.T) {
	parts := Split([]byte("abcdefg"), 3)
	assert.Equal(t, [][]byte{[]byte("abc"), []byte("def"), []byte("g")}, parts)
	assert.Equal(t, []byte("abcdefg"), bytes.Join(parts, nil))
	assert.Len(t, Split([]byte("abc"), 0), 1)
	assert.Empty(t, Split(nil, 4))
}

func TestTestContext(t *testing.T) {
	ctx := TestContext(t)
	_, ok := ctx.Deadline()
	assert.True(t, ok)
}
