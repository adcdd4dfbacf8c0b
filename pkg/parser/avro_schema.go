package parser

import (
	"github.com/ajitpratap0/prism/pkg/errors"
	"github.com/ajitpratap0/prism/pkg/json"
)

// Avro schema kinds the flattener distinguishes. Primitives keep their own
// type name as kind.
const (
	avroRecord = "record"
	avroArray  = "array"
	avroMap    = "map"
	avroUnion  = "union"
	avroNull   = "null"
)

// avroNode is the part of a writer schema needed to name columns and render
// decoded values. Map values are held in items.
type avroNode struct {
	kind     string
	name     string // full name of named types
	logical  string
	scale    int
	fields   []avroField
	items    *avroNode
	branches []*avroNode
}

type avroField struct {
	name string
	node *avroNode
}

// optional returns the non-null branch of a ["null", T] union, or n.
func (n *avroNode) optional() *avroNode {
	if n.kind != avroUnion {
		return n
	}
	var only *avroNode
	for _, b := range n.branches {
		if b.kind == avroNull {
			continue
		}
		if only != nil {
			return n
		}
		only = b
	}
	if only == nil {
		return n
	}
	return only
}

// branchOf resolves a decoded union value, which arrives as a single-entry
// map keyed by the branch type name.
func (n *avroNode) branchOf(v interface{}) (*avroNode, interface{}, bool) {
	m, ok := v.(map[string]interface{})
	if !ok || len(m) != 1 {
		return nil, nil, false
	}
	for key, inner := range m {
		for _, b := range n.branches {
			if b.unionKey(key) {
				return b, inner, true
			}
		}
		if b := n.optional(); b != n {
			return b, inner, true
		}
	}
	return nil, nil, false
}

func (n *avroNode) unionKey(key string) bool {
	switch key {
	case n.name, n.kind:
		return n.name != "" || n.logical == ""
	case shortName(n.name):
		return n.name != ""
	case n.kind + "." + n.logical:
		return n.logical != ""
	}
	return false
}

type schemaParser struct {
	names map[string]*avroNode
}

// parseAvroSchema reads the writer schema stored in a container header.
func parseAvroSchema(text []byte) (*avroNode, error) {
	if len(text) == 0 {
		return nil, errors.New(errors.KindParse, "Avro header has no schema")
	}
	var v interface{}
	if err := json.Unmarshal(text, &v); err != nil {
		return nil, errors.Wrap(err, errors.KindParse, "invalid Avro schema")
	}
	p := schemaParser{names: make(map[string]*avroNode)}
	n, err := p.parse(v, "")
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (p *schemaParser) parse(v interface{}, ns string) (*avroNode, error) {
	switch s := v.(type) {
	case string:
		return p.named(s, ns)
	case []interface{}:
		n := &avroNode{kind: avroUnion}
		for _, b := range s {
			bn, err := p.parse(b, ns)
			if err != nil {
				return nil, err
			}
			n.branches = append(n.branches, bn)
		}
		return n, nil
	case map[string]interface{}:
		return p.complex(s, ns)
	}
	return nil, errors.Newf(errors.KindParse, "invalid Avro schema element %v", v)
}

func (p *schemaParser) named(s, ns string) (*avroNode, error) {
	switch s {
	case avroNull, "boolean", "int", "long", "float", "double", "bytes", "string":
		return &avroNode{kind: s}, nil
	}
	if n, ok := p.names[s]; ok {
		return n, nil
	}
	if ns != "" {
		if n, ok := p.names[ns+"."+s]; ok {
			return n, nil
		}
	}
	return nil, errors.Newf(errors.KindParse, "unknown Avro type %q", s)
}

func (p *schemaParser) complex(s map[string]interface{}, ns string) (*avroNode, error) {
	kind, _ := s["type"].(string)
	switch kind {
	case avroRecord, "error", "enum", "fixed":
		name, _ := s["name"].(string)
		space, _ := s["namespace"].(string)
		if space == "" {
			space = ns
		}
		full := fullName(name, space)
		n := &avroNode{kind: kind, name: full, logical: stringAttr(s, "logicalType"), scale: intAttr(s, "scale")}
		if kind == "error" {
			n.kind = avroRecord
		}
		p.names[full] = n
		if n.kind != avroRecord {
			return n, nil
		}
		fields, _ := s["fields"].([]interface{})
		inner := namespaceOf(full)
		for _, f := range fields {
			fm, ok := f.(map[string]interface{})
			if !ok {
				return nil, errors.New(errors.KindParse, "invalid Avro record field")
			}
			fname, _ := fm["name"].(string)
			fn, err := p.parse(fm["type"], inner)
			if err != nil {
				return nil, err
			}
			n.fields = append(n.fields, avroField{name: fname, node: fn})
		}
		return n, nil
	case avroArray, avroMap:
		key := "items"
		if kind == avroMap {
			key = "values"
		}
		items, err := p.parse(s[key], ns)
		if err != nil {
			return nil, err
		}
		return &avroNode{kind: kind, items: items}, nil
	}

	// A primitive annotated with a logical type.
	base, err := p.parse(s["type"], ns)
	if err != nil {
		return nil, err
	}
	n := *base
	n.logical = stringAttr(s, "logicalType")
	n.scale = intAttr(s, "scale")
	return &n, nil
}

func fullName(name, ns string) string {
	if ns == "" || containsDot(name) {
		return name
	}
	return ns + "." + name
}

func namespaceOf(full string) string {
	for i := len(full) - 1; i >= 0; i-- {
		if full[i] == '.' {
			return full[:i]
		}
	}
	return ""
}

func shortName(full string) string {
	for i := len(full) - 1; i >= 0; i-- {
		if full[i] == '.' {
			return full[i+1:]
		}
	}
	return full
}

func containsDot(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return true
		}
	}
	return false
}

func stringAttr(s map[string]interface{}, key string) string {
	v, _ := s[key].(string)
	return v
}

func intAttr(s map[string]interface{}, key string) int {
	v, _ := s[key].(float64)
	return int(v)
}
