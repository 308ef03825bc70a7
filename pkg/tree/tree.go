// Package tree materializes an editable field tree from an archive
// template or a loaded instance, and flattens it back again. It owns the
// structural edits (adding and removing repetitions), leaf identifier
// assignment, sensitive-field classification and progress accounting.
package tree

import (
	"errors"
	"fmt"

	"github.com/keepsake-archive/keepsake/pkg/document"
	"github.com/keepsake-archive/keepsake/pkg/schema"
)

var (
	// ErrLastRepetition is returned when a removal would drop a repeatable
	// group below one repetition. The tree is left unmodified.
	ErrLastRepetition = errors.New("tree: only added repetitions can be removed")
	// ErrNotFound is returned for lookups that match nothing.
	ErrNotFound = errors.New("tree: node not found")
)

// Node is one live entry in the field tree. Exactly one of the three
// shapes applies: a leaf holds a value, a fixed group holds Children, and
// a repeatable container holds Instances (each itself a group node with an
// Ordinal).
type Node struct {
	Name        string
	Description string
	Value       string
	// ID is unique across the document once Reindex has run. Schema-pinned
	// ids survive every reindex; generated ones (db_N) do not.
	ID        string
	Sensitive bool
	Kind      schema.NodeKind
	// Ordinal labels one repetition of a repeatable group, 1-based and
	// monotonic per group name: removals never free an ordinal for reuse.
	Ordinal   int
	Children  []*Node
	Instances []*Node

	// decl is the declaration one repetition is stamped from. Set on
	// repeatable containers only.
	decl schema.Node
}

// Label renders the node's display name; repetition instances carry their
// ordinal suffix.
func (n *Node) Label() string {
	if n.Ordinal > 0 {
		return fmt.Sprintf("%s (%d)", n.Name, n.Ordinal)
	}
	return n.Name
}

// SectionNode is a live top-level section.
type SectionNode struct {
	Title       string
	Description string
	Children    []*Node
}

// Tree is the live, editable form state for one archive document.
type Tree struct {
	template  schema.Template
	sections  []*SectionNode
	completed map[string]bool
	// seq hands out provisional leaf ids during construction so freshly
	// built nodes never clash before Reindex normalizes them.
	seq int
	// nextOrdinal tracks the monotonic repetition counter per group name.
	nextOrdinal map[string]int
	leaves      map[string]*Node
	// taggedSensitive holds the leaf names the template marks sensitive.
	// Reindex consults it so classification survives a save/load cycle,
	// where the instance does not carry the flag.
	taggedSensitive map[string]bool
}

// Sections exposes the live sections in document order.
func (t *Tree) Sections() []*SectionNode { return t.sections }

// Template returns the canonical template this tree was built against.
func (t *Tree) Template() schema.Template { return t.template }

// Build renders a fresh tree from the template: all leaves empty (or
// seeded with declared defaults), one repetition per repeatable group.
func Build(tpl schema.Template) (*Tree, error) {
	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	t := newTree(tpl)
	for _, sec := range tpl {
		section := &SectionNode{Title: sec.Title, Description: sec.Description}
		for _, decl := range sec.Fields {
			section.Children = append(section.Children, t.buildFromSchema(decl))
		}
		t.sections = append(t.sections, section)
	}
	t.Reindex()
	return t, nil
}

// Load rebuilds a tree from a previously saved instance. Repetitions of
// the same group are folded into one container keyed by name, in arrival
// order, and renumbered 1..N so ordinals stay unique and monotonic no
// matter how the repetitions were interleaved in the file.
func Load(tpl schema.Template, in document.Instance) (*Tree, error) {
	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	t := newTree(tpl)
	for _, sec := range in.Sections {
		section := &SectionNode{Title: sec.Title, Description: sec.Description}
		section.Children = t.loadNodes(sec.Fields)
		t.sections = append(t.sections, section)
	}
	for _, title := range in.Completed {
		t.completed[title] = true
	}
	t.Reindex()
	return t, nil
}

func newTree(tpl schema.Template) *Tree {
	t := &Tree{
		template:        tpl,
		completed:       make(map[string]bool),
		nextOrdinal:     make(map[string]int),
		leaves:          make(map[string]*Node),
		taggedSensitive: make(map[string]bool),
	}
	for _, sec := range tpl {
		collectSensitive(sec.Fields, t.taggedSensitive)
	}
	return t
}

func collectSensitive(nodes []schema.Node, into map[string]bool) {
	for _, node := range nodes {
		if node.Sensitive && node.Kind() == schema.KindLeaf {
			into[node.Name] = true
		}
		collectSensitive(node.Children, into)
	}
}

func (t *Tree) buildFromSchema(decl schema.Node) *Node {
	switch decl.Kind() {
	case schema.KindLeaf:
		return t.newLeaf(decl.Name, decl.Description, decl.Value, decl.ID, decl.Sensitive)
	case schema.KindRepeatable:
		container := &Node{
			Name:        decl.Name,
			Description: decl.Description,
			Kind:        schema.KindRepeatable,
			decl:        decl,
		}
		container.Instances = append(container.Instances, t.newInstance(container))
		return container
	default:
		group := &Node{Name: decl.Name, Description: decl.Description, Kind: schema.KindGroup}
		for _, child := range decl.Children {
			group.Children = append(group.Children, t.buildFromSchema(child))
		}
		return group
	}
}

// newInstance stamps one repetition from the container's declaration and
// assigns the next ordinal for the group name.
func (t *Tree) newInstance(container *Node) *Node {
	t.nextOrdinal[container.Name]++
	instance := &Node{
		Name:        container.Name,
		Description: container.Description,
		Kind:        schema.KindGroup,
		Ordinal:     t.nextOrdinal[container.Name],
	}
	for _, child := range container.decl.Children {
		instance.Children = append(instance.Children, t.buildFromSchema(child))
	}
	return instance
}

func (t *Tree) newLeaf(name, description, value, id string, sensitive bool) *Node {
	leaf := &Node{
		Name:        name,
		Description: description,
		Value:       value,
		ID:          id,
		Sensitive:   sensitive,
		Kind:        schema.KindLeaf,
	}
	if leaf.ID == "" {
		leaf.ID = fmt.Sprintf("db_tmp_%d", t.seq)
		t.seq++
	}
	return leaf
}

// loadNodes converts instance nodes to live ones. Sibling groups sharing a
// name with the repeat marker land in a single container regardless of
// adjacency.
func (t *Tree) loadNodes(nodes []document.Node) []*Node {
	var out []*Node
	containers := make(map[string]*Node)
	for _, node := range nodes {
		if node.Leaf() {
			out = append(out, t.newLeaf(node.Name, node.Description, node.Value, node.ID, false))
			continue
		}
		if !node.Repeat {
			group := &Node{Name: node.Name, Description: node.Description, Kind: schema.KindGroup}
			group.Children = t.loadNodes(node.Fields)
			out = append(out, group)
			continue
		}
		container, ok := containers[node.Name]
		if !ok {
			container = &Node{
				Name:        node.Name,
				Description: node.Description,
				Kind:        schema.KindRepeatable,
				decl:        t.declFor(node),
			}
			containers[node.Name] = container
			out = append(out, container)
		}
		t.nextOrdinal[container.Name]++
		instance := &Node{
			Name:        node.Name,
			Description: node.Description,
			Kind:        schema.KindGroup,
			Ordinal:     t.nextOrdinal[container.Name],
		}
		instance.Children = t.loadNodes(node.Fields)
		container.Instances = append(container.Instances, instance)
	}
	return out
}

// declFor resolves the declaration a loaded repeatable group should stamp
// new repetitions from: the template's when the group still exists there,
// otherwise one reconstructed from the loaded repetition so user data that
// outlived the template keeps working.
func (t *Tree) declFor(node document.Node) schema.Node {
	if decl, ok := findDecl(t.template, node.Name); ok {
		return decl
	}
	decl := schema.Node{Name: node.Name, Description: node.Description, Repeatable: true}
	for _, child := range node.Fields {
		decl.Children = append(decl.Children, declChild(child))
	}
	return decl
}

func declChild(node document.Node) schema.Node {
	child := schema.Node{Name: node.Name, Description: node.Description}
	if node.Leaf() {
		// Pinned ids travel with the declaration; values do not.
		if node.ID != "" && !generatedID(node.ID) {
			child.ID = node.ID
		}
		return child
	}
	child.Repeatable = node.Repeat
	for _, sub := range node.Fields {
		child.Children = append(child.Children, declChild(sub))
	}
	return child
}

func findDecl(tpl schema.Template, name string) (schema.Node, bool) {
	for _, sec := range tpl {
		if decl, ok := findDeclIn(sec.Fields, name); ok {
			return decl, true
		}
	}
	return schema.Node{}, false
}

func findDeclIn(nodes []schema.Node, name string) (schema.Node, bool) {
	for _, node := range nodes {
		if node.Kind() == schema.KindRepeatable && node.Name == name {
			return node, true
		}
		if len(node.Children) > 0 {
			if decl, ok := findDeclIn(node.Children, name); ok {
				return decl, true
			}
		}
	}
	return schema.Node{}, false
}
