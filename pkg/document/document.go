// Package document models a filled-in archive instance: the schema-shaped
// record of user-entered values that round-trips through progress files.
// Instances are self-describing - every leaf carries its own description
// and id - so a saved file loads without the template it was created from.
package document

import "encoding/json"

// Node is one entry inside a section: a leaf when it has no sub-fields,
// otherwise a group (one materialized repetition of a repeatable group, or
// a fixed group). Leaves always carry a concrete value; the empty string
// means unset, never null.
type Node struct {
	Name        string
	Description string
	// ID is the leaf's identifier, either schema-pinned or assigned by the
	// reindexer. Empty on groups.
	ID    string
	Value string
	// Repeat records that this group came from a repeatable declaration, so
	// a loaded instance can be rebuilt without consulting the template.
	Repeat bool
	Fields []Node
}

// Leaf reports whether the node is a single-value field.
func (n Node) Leaf() bool { return len(n.Fields) == 0 }

type leafJSON struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
	ID          string `json:"id,omitempty"`
}

type groupJSON struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Repeat      bool   `json:"repeat,omitempty"`
	Fields      []Node `json:"fields"`
}

// MarshalJSON keeps the two node shapes distinct on the wire: leaves emit
// their value unconditionally (empty string included), groups emit their
// sub-fields.
func (n Node) MarshalJSON() ([]byte, error) {
	if n.Leaf() {
		return json.Marshal(leafJSON{Name: n.Name, Value: n.Value, Description: n.Description, ID: n.ID})
	}
	return json.Marshal(groupJSON{Name: n.Name, Description: n.Description, Repeat: n.Repeat, Fields: n.Fields})
}

// UnmarshalJSON accepts either node shape.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name        string `json:"name"`
		Value       string `json:"value"`
		Description string `json:"description"`
		ID          string `json:"id"`
		Repeat      bool   `json:"repeat"`
		Fields      []Node `json:"fields"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*n = Node{
		Name:        raw.Name,
		Description: raw.Description,
		ID:          raw.ID,
		Value:       raw.Value,
		Repeat:      raw.Repeat,
		Fields:      raw.Fields,
	}
	return nil
}

// Section is one top-level entry of an instance.
type Section struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Fields      []Node `json:"fields"`
}

// Instance is a concrete, schema-shaped archive document. Completed lists
// the titles of sections the user explicitly marked done; it is carried as
// the trailing entry of the serialized form and is always emitted, possibly
// empty.
type Instance struct {
	Sections  []Section
	Completed []string
}

// Section looks up a section by title.
func (in Instance) Section(title string) (Section, bool) {
	for _, sec := range in.Sections {
		if sec.Title == title {
			return sec, true
		}
	}
	return Section{}, false
}

// CountValues returns the number of non-empty leaf values across the whole
// instance.
func (in Instance) CountValues() int {
	total := 0
	for _, sec := range in.Sections {
		total += countValues(sec.Fields)
	}
	return total
}

func countValues(nodes []Node) int {
	total := 0
	for _, node := range nodes {
		if node.Leaf() {
			if node.Value != "" {
				total++
			}
			continue
		}
		total += countValues(node.Fields)
	}
	return total
}
