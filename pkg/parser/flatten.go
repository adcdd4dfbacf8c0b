package parser

import (
	"strconv"
)

const (
	defaultMaxNestedDepth = 3
	defaultMaxKeys        = 500
)

var (
	objectToken = []byte("[object]")
	trueToken   = []byte("true")
	falseToken  = []byte("false")
)

// columnSet maps flattened key paths of nested records onto column ordinals.
// Columns are appended in discovery order and capped at maxKeys. Tokens
// formatted into scratch are valid until the next call to begin.
type columnSet struct {
	maxKeys int

	columns   []string
	index     map[string]int
	fields    [][]byte
	arrayLens []int
	scratch   []byte
	rec       Record
}

func newColumnSet(maxKeys int) columnSet {
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeys
	}
	return columnSet{maxKeys: maxKeys, index: make(map[string]int)}
}

// begin starts a record with every known column absent.
func (cs *columnSet) begin() {
	cs.fields = cs.fields[:0]
	cs.arrayLens = cs.arrayLens[:0]
	cs.scratch = cs.scratch[:0]
	for range cs.columns {
		cs.fields = append(cs.fields, nil)
		cs.arrayLens = append(cs.arrayLens, -1)
	}
}

// add registers name and returns its ordinal, or -1 past the key cap.
func (cs *columnSet) add(name string) int {
	if idx, ok := cs.index[name]; ok {
		return idx
	}
	if len(cs.columns) >= cs.maxKeys {
		return -1
	}
	idx := len(cs.columns)
	cs.columns = append(cs.columns, name)
	cs.index[name] = idx
	cs.fields = append(cs.fields, nil)
	cs.arrayLens = append(cs.arrayLens, -1)
	return idx
}

func (cs *columnSet) set(name string, tok []byte, arrayLen int) {
	idx := cs.add(name)
	if idx < 0 {
		return
	}
	cs.fields[idx] = tok
	cs.arrayLens[idx] = arrayLen
}

// setArray records the element count of an array value.
func (cs *columnSet) setArray(name string, n int) {
	start := len(cs.scratch)
	cs.scratch = append(cs.scratch, "[array:"...)
	cs.scratch = strconv.AppendInt(cs.scratch, int64(n), 10)
	cs.scratch = append(cs.scratch, ']')
	cs.set(name, cs.token(start), n)
}

// token returns scratch[start:] capped so later appends never overwrite it.
func (cs *columnSet) token(start int) []byte {
	end := len(cs.scratch)
	return cs.scratch[start:end:end]
}

// record finishes the current record under index.
func (cs *columnSet) record(index int64) *Record {
	cs.rec.Index = index
	cs.rec.Fields = cs.fields
	cs.rec.ArrayLens = cs.arrayLens
	return &cs.rec
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
