package accumulator

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(vals ...string) [][]byte {
	out := make([][]byte, len(vals))
	for i, v := range vals {
		if v != "" {
			out[i] = []byte(v)
		}
	}
	return out
}

func TestCorrelationPairs(t *testing.T) {
	c := NewCorrelation(3)
	for i := 1; i <= 50; i++ {
		x := float64(i)
		c.Observe(row(
			strconv.Itoa(i),
			strconv.FormatFloat(2*x+1, 'f', -1, 64),
			strconv.FormatFloat(-x, 'f', -1, 64),
			"ignored beyond width",
		))
	}
	all := func(int) bool { return true }
	pairs := c.Pairs(all)
	require.Len(t, pairs, 3)
	assert.Equal(t, Pair{A: 0, B: 1, R: 1, N: 50}, pairs[0])
	assert.Equal(t, Pair{A: 0, B: 2, R: -1, N: 50}, pairs[1])
	assert.Equal(t, Pair{A: 1, B: 2, R: -1, N: 50}, pairs[2])

	onlyFirstTwo := c.Pairs(func(i int) bool { return i < 2 })
	assert.Equal(t, []Pair{{A: 0, B: 1, R: 1, N: 50}}, onlyFirstTwo)
}

func TestCorrelationSkipsNonNumericAndDegeneratePairs(t *testing.T) {
	c := NewCorrelation(3)
	c.Observe(row("1", "a", "5"))
	c.Observe(row("2", "b", "5"))
	c.Observe(row("", "c", "5"))
	c.Observe(row("3", "d", "5"))
	assert.Empty(t, c.Pairs(func(int) bool { return true }))

	single := NewCorrelation(2)
	single.Observe(row("1", "2"))
	assert.Empty(t, single.Pairs(func(int) bool { return true }))
}

func TestCorrelationRounding(t *testing.T) {
	c := NewCorrelation(2)
	for _, p := range [][2]string{{"1", "2"}, {"2", "1"}, {"3", "4"}, {"4", "3"}, {"5", "5"}} {
		c.Observe(row(p[0], p[1]))
	}
	pairs := c.Pairs(func(int) bool { return true })
	require.Len(t, pairs, 1)
	assert.Equal(t, 0.8, pairs[0].R)
}
