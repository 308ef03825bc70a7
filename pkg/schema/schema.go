package schema

import (
	"fmt"
	"strings"
)

// NodeKind distinguishes the three shapes a schema node can take.
type NodeKind string

const (
	// KindLeaf is a single-value field with no children.
	KindLeaf NodeKind = "leaf"
	// KindGroup is a named set of sub-fields appearing exactly once.
	KindGroup NodeKind = "group"
	// KindRepeatable is a named set of sub-fields appearing 0..N times.
	KindRepeatable NodeKind = "repeatable"
)

// Node describes one field or group in the archive template. A node is a
// leaf when it has no children; a group otherwise. Names must be unique
// within a sibling scope because reconciliation and lookup are name-keyed.
type Node struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	// Value seeds a leaf with a literal default (for example the stock
	// foreword text). Meaningless on groups.
	Value string `yaml:"value,omitempty" json:"value,omitempty"`
	// ID pins a stable identifier onto a leaf. Pinned ids must never change
	// across template revisions; the export pipeline resolves spotlight
	// values through them.
	ID string `yaml:"id,omitempty" json:"id,omitempty"`
	// Sensitive marks a leaf for masked display and warning styling. This
	// replaces matching on description prose, which the tag is authored
	// from at template-migration time.
	Sensitive  bool   `yaml:"sensitive,omitempty" json:"sensitive,omitempty"`
	Repeatable bool   `yaml:"repeat,omitempty" json:"repeat,omitempty"`
	Children   []Node `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// Kind classifies the node. Repeatable without children is treated as a
// leaf; Validate rejects that combination before it gets this far.
func (n Node) Kind() NodeKind {
	switch {
	case len(n.Children) == 0:
		return KindLeaf
	case n.Repeatable:
		return KindRepeatable
	default:
		return KindGroup
	}
}

// Section is a top-level group in the archive template.
type Section struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Fields      []Node `yaml:"fields" json:"fields"`
}

// Template is the static, declarative description of the whole archive.
type Template []Section

// Section looks up a section by title.
func (t Template) Section(title string) (Section, bool) {
	for _, sec := range t {
		if sec.Title == title {
			return sec, true
		}
	}
	return Section{}, false
}

// Validate enforces the structural preconditions the rest of the engine
// assumes: section titles unique across the document, sibling names unique
// within each scope, and repeatable flags only on groups.
func (t Template) Validate() error {
	titles := make(map[string]struct{}, len(t))
	for _, sec := range t {
		title := strings.TrimSpace(sec.Title)
		if title == "" {
			return fmt.Errorf("schema: section with empty title")
		}
		if _, dup := titles[title]; dup {
			return fmt.Errorf("schema: duplicate section title %q", title)
		}
		titles[title] = struct{}{}
		if err := validateSiblings(sec.Fields, "section "+title); err != nil {
			return err
		}
	}
	return nil
}

func validateSiblings(nodes []Node, scope string) error {
	names := make(map[string]struct{}, len(nodes))
	for _, node := range nodes {
		name := strings.TrimSpace(node.Name)
		if name == "" {
			return fmt.Errorf("schema: %s contains a field with an empty name", scope)
		}
		if node.Kind() != KindLeaf {
			if _, dup := names[name]; dup {
				return fmt.Errorf("schema: %s declares group %q twice", scope, name)
			}
		}
		names[name] = struct{}{}
		if node.Repeatable && len(node.Children) == 0 {
			return fmt.Errorf("schema: %s field %q is repeatable but has no sub-fields", scope, name)
		}
		if len(node.Children) > 0 {
			if err := validateSiblings(node.Children, fmt.Sprintf("%s group %q", scope, name)); err != nil {
				return err
			}
		}
	}
	return nil
}
