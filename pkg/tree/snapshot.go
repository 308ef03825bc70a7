package tree

import (
	"github.com/keepsake-archive/keepsake/pkg/document"
	"github.com/keepsake-archive/keepsake/pkg/schema"
)

// Stats summarizes a snapshot. The three completion measures are kept
// separate on purpose: fields-with-data and sections-with-data are derived
// from content, marked-complete is the user's explicit per-section flag.
type Stats struct {
	TotalFields      int
	FieldsWithData   int
	TotalSections    int
	SectionsWithData int
	SectionsMarked   int
	// SectionCountMismatch signals that the live tree no longer matches the
	// canonical section count. A snapshot with this set may not reload
	// properly; callers must confront the user before persisting it.
	SectionCountMismatch bool
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// FieldsPercent is the share of leaves holding data.
func (s Stats) FieldsPercent() float64 { return percent(s.FieldsWithData, s.TotalFields) }

// SectionsPercent is the share of sections holding any data.
func (s Stats) SectionsPercent() float64 { return percent(s.SectionsWithData, s.TotalSections) }

// MarkedPercent is the share of sections the user marked complete.
func (s Stats) MarkedPercent() float64 { return percent(s.SectionsMarked, s.TotalSections) }

// Snapshot flattens the live tree into a schema-shaped instance. Repetition
// ordinals are display artifacts and do not survive: every repetition of a
// group serializes under the group's base name with the repeat marker set,
// which is what Load folds back into a container.
func (t *Tree) Snapshot() (document.Instance, Stats) {
	in := document.Instance{Completed: []string{}}
	stats := Stats{TotalSections: len(t.sections)}

	for _, sec := range t.sections {
		section := document.Section{Title: sec.Title, Description: sec.Description}
		before := stats.FieldsWithData
		for _, node := range sec.Children {
			section.Fields = append(section.Fields, t.snapshotNode(node, &stats)...)
		}
		if stats.FieldsWithData > before {
			stats.SectionsWithData++
		}
		if t.completed[sec.Title] {
			in.Completed = append(in.Completed, sec.Title)
			stats.SectionsMarked++
		}
		in.Sections = append(in.Sections, section)
	}

	stats.SectionCountMismatch = len(in.Sections) != len(t.template)
	return in, stats
}

func (t *Tree) snapshotNode(node *Node, stats *Stats) []document.Node {
	switch node.Kind {
	case schema.KindLeaf:
		stats.TotalFields++
		if node.Value != "" {
			stats.FieldsWithData++
		}
		return []document.Node{{
			Name:        node.Name,
			Description: node.Description,
			ID:          node.ID,
			Value:       node.Value,
		}}
	case schema.KindRepeatable:
		out := make([]document.Node, 0, len(node.Instances))
		for _, instance := range node.Instances {
			group := document.Node{
				Name:        node.Name,
				Description: node.Description,
				Repeat:      true,
			}
			for _, child := range instance.Children {
				group.Fields = append(group.Fields, t.snapshotNode(child, stats)...)
			}
			out = append(out, group)
		}
		return out
	default:
		group := document.Node{Name: node.Name, Description: node.Description}
		for _, child := range node.Children {
			group.Fields = append(group.Fields, t.snapshotNode(child, stats)...)
		}
		return []document.Node{group}
	}
}
