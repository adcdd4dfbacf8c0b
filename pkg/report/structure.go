package report

import (
	"strings"

	"github.com/ajitpratap0/prism/pkg/accumulator"
	"github.com/ajitpratap0/prism/pkg/types"
)

// NodeType classifies the values seen at one path of a nested input.
type NodeType string

const (
	NodeObject  NodeType = "object"
	NodeArray   NodeType = "array"
	NodeString  NodeType = "string"
	NodeNumber  NodeType = "number"
	NodeBoolean NodeType = "boolean"
	NodeNull    NodeType = "null"
	NodeMixed   NodeType = "mixed"
)

// ProfilingMode is the suggested way to present a nested input.
type ProfilingMode string

const (
	ModeTabular ProfilingMode = "tabular"
	ModeTree    ProfilingMode = "tree"
)

const (
	maxNodeExamples = 3
	treeModeDepth   = 5
	treeModePaths   = 1000
	objectMarker    = "[object]"
	arrayMarker     = "[array:"
)

// TreeNode is one path of the record structure. The root is "$" at depth 0.
type TreeNode struct {
	Path       string      `json:"path" yaml:"path"`
	Depth      int         `json:"depth" yaml:"depth"`
	Type       NodeType    `json:"dataType" yaml:"dataType"`
	Population float64     `json:"population" yaml:"population"`
	ChildCount int         `json:"childCount" yaml:"childCount"`
	Examples   []string    `json:"examples,omitempty" yaml:"examples,omitempty"`
	Children   []*TreeNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// Structure summarizes the key paths of JSON and Avro inputs.
type Structure struct {
	MaxDepth        int           `json:"maxDepth" yaml:"maxDepth"`
	TotalPaths      int           `json:"totalPaths" yaml:"totalPaths"`
	RowsSampled     int64         `json:"rowsSampled" yaml:"rowsSampled"`
	Tree            *TreeNode     `json:"tree" yaml:"tree"`
	RecommendedMode ProfilingMode `json:"recommendedMode" yaml:"recommendedMode"`
}

// buildStructure folds flattened column names back into a path tree. A leaf
// takes its type from the inferred column type and its examples from the
// column samples; an object's population is that of its most populated child.
func buildStructure(summaries []accumulator.Summary, rows int64) *Structure {
	st := &Structure{
		RowsSampled: rows,
		Tree:        &TreeNode{Path: "$", Type: NodeObject, Population: 100},
	}
	index := map[string]*TreeNode{"$": st.Tree}

	for i := range summaries {
		s := &summaries[i]
		parent := st.Tree
		segments := strings.Split(s.Name, ".")
		for depth, seg := range segments {
			path := parent.Path + "." + seg
			node, ok := index[path]
			if !ok {
				node = &TreeNode{Path: path, Depth: depth + 1, Type: NodeObject}
				index[path] = node
				parent.Children = append(parent.Children, node)
				parent.ChildCount++
				st.TotalPaths++
				if node.Depth > st.MaxDepth {
					st.MaxDepth = node.Depth
				}
			}
			parent = node
		}
		setLeaf(parent, s, rows)
	}
	population(st.Tree)

	st.RecommendedMode = ModeTabular
	if st.MaxDepth > treeModeDepth || st.TotalPaths > treeModePaths {
		st.RecommendedMode = ModeTree
	}
	return st
}

func setLeaf(n *TreeNode, s *accumulator.Summary, rows int64) {
	t := leafType(s)
	if len(n.Children) > 0 && t != NodeObject {
		t = NodeMixed
	}
	n.Type = t
	if rows > 0 {
		n.Population = round(float64(s.Present)/float64(rows)*100, 2)
	}
	for _, v := range s.Samples {
		if len(n.Examples) == maxNodeExamples {
			break
		}
		if v == objectMarker || strings.HasPrefix(v, arrayMarker) {
			continue
		}
		n.Examples = append(n.Examples, v)
	}
}

func leafType(s *accumulator.Summary) NodeType {
	var objects, arrays int
	for _, v := range s.Samples {
		switch {
		case v == objectMarker:
			objects++
		case strings.HasPrefix(v, arrayMarker):
			arrays++
		}
	}
	switch {
	case len(s.Samples) > 0 && objects == len(s.Samples):
		return NodeObject
	case len(s.Samples) > 0 && arrays == len(s.Samples):
		return NodeArray
	case objects > 0 || arrays > 0:
		return NodeMixed
	}

	switch {
	case s.Type.IsNumeric():
		return NodeNumber
	case s.Type == types.Boolean:
		return NodeBoolean
	case s.Type == types.Empty, s.Type == types.Unknown:
		return NodeNull
	case s.Type == types.Mixed:
		return NodeMixed
	}
	return NodeString
}

// population fills interior nodes bottom up.
func population(n *TreeNode) float64 {
	if len(n.Children) == 0 {
		return n.Population
	}
	var most float64
	for _, c := range n.Children {
		if p := population(c); p > most {
			most = p
		}
	}
	if n.Path != "$" && n.Population < most {
		n.Population = most
	}
	return n.Population
}
