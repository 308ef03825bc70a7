package tree

import (
	"fmt"
	"strings"

	"github.com/keepsake-archive/keepsake/pkg/schema"
)

// Reindex walks every leaf in document order and assigns collision-free
// generated identifiers (db_N), skipping schema-pinned ids, which must
// survive any sequence of structural edits. Sensitive classification is
// re-applied in the same pass because repetitions added since the last
// reindex carry unclassified leaves.
//
// Build, Load and every structural edit call this; it is exported for
// callers that mutate nodes directly.
func (t *Tree) Reindex() {
	idx := 0
	t.leaves = make(map[string]*Node)
	for _, sec := range t.sections {
		for _, node := range sec.Children {
			idx = t.reindexNode(node, idx)
		}
	}
}

func (t *Tree) reindexNode(node *Node, idx int) int {
	switch node.Kind {
	case schema.KindLeaf:
		if !Pinned(node.ID) {
			node.ID = fmt.Sprintf("db_%d", idx)
			idx++
		}
		if schema.SensitiveName(node.Name) || t.taggedSensitive[node.Name] {
			node.Sensitive = true
		}
		t.leaves[node.ID] = node
	case schema.KindRepeatable:
		for _, instance := range node.Instances {
			idx = t.reindexNode(instance, idx)
		}
	default:
		for _, child := range node.Children {
			idx = t.reindexNode(child, idx)
		}
	}
	return idx
}

// Pinned reports whether an id is schema-assigned rather than generated.
// Generated ids are db_N (or the provisional db_tmp_N handed out during
// construction); anything else that is non-empty was pinned by the
// template author and is never renumbered.
func Pinned(id string) bool {
	return id != "" && !generatedID(id)
}

func generatedID(id string) bool {
	rest, ok := strings.CutPrefix(id, "db_")
	if !ok {
		return false
	}
	rest = strings.TrimPrefix(rest, "tmp_")
	if rest == "" {
		return false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Leaf resolves a leaf by its current identifier.
func (t *Tree) Leaf(id string) (*Node, bool) {
	leaf, ok := t.leaves[id]
	return leaf, ok
}
