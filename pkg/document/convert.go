package document

import "github.com/keepsake-archive/keepsake/pkg/schema"

// FromTemplate materializes a fresh instance from a template: every leaf
// seeded with its declared default (or empty), every repeatable group with
// exactly one repetition.
func FromTemplate(tpl schema.Template) Instance {
	in := Instance{
		Sections:  make([]Section, 0, len(tpl)),
		Completed: []string{},
	}
	for _, sec := range tpl {
		in.Sections = append(in.Sections, Section{
			Title:       sec.Title,
			Description: sec.Description,
			Fields:      FromSchemaNodes(sec.Fields),
		})
	}
	return in
}

// FromSchemaNodes converts schema declarations into fresh instance nodes.
func FromSchemaNodes(nodes []schema.Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, FromSchemaNode(node))
	}
	return out
}

// FromSchemaNode converts a single declaration. Repeatable groups become
// one (possibly empty) repetition carrying the Repeat marker.
func FromSchemaNode(node schema.Node) Node {
	if node.Kind() == schema.KindLeaf {
		return Node{
			Name:        node.Name,
			Description: node.Description,
			ID:          node.ID,
			Value:       node.Value,
		}
	}
	return Node{
		Name:        node.Name,
		Description: node.Description,
		Repeat:      node.Repeatable,
		Fields:      FromSchemaNodes(node.Children),
	}
}
