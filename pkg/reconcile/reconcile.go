// Package reconcile diffs a previously saved instance against the current
// archive template and merges in whatever the template gained since the
// save. Merging is strictly additive: loaded values are never removed or
// overwritten, only missing template-declared fields and sections are
// appended, and only with the user's consent.
package reconcile

import (
	"github.com/keepsake-archive/keepsake/pkg/document"
	"github.com/keepsake-archive/keepsake/pkg/schema"
)

// DiffSection returns the template fields missing by name from the loaded
// section's top level, in the template's declaration order.
func DiffSection(canonical schema.Section, loaded document.Section) []schema.Node {
	return diffByName(canonical.Fields, loaded.Fields)
}

// DiffGroup returns the template sub-fields missing from one loaded
// repetition of a repeatable group. The comparison only fires when the
// loaded repetition carries strictly fewer fields than the template
// declares; equal or larger repetitions are left alone.
func DiffGroup(canonical schema.Node, loaded document.Node) []schema.Node {
	if len(loaded.Fields) >= len(canonical.Children) {
		return nil
	}
	return diffByName(canonical.Children, loaded.Fields)
}

func diffByName(canonical []schema.Node, loaded []document.Node) []schema.Node {
	seen := make(map[string]struct{}, len(loaded))
	for _, node := range loaded {
		seen[node.Name] = struct{}{}
	}
	var missing []schema.Node
	for _, node := range canonical {
		if _, ok := seen[node.Name]; !ok {
			missing = append(missing, node)
		}
	}
	return missing
}

// DiffSections returns whole template sections whose titles are absent from
// the loaded instance. This runs once per document, not per section.
func DiffSections(canonical schema.Template, loaded document.Instance) []schema.Section {
	seen := make(map[string]struct{}, len(loaded.Sections))
	for _, sec := range loaded.Sections {
		seen[sec.Title] = struct{}{}
	}
	var missing []schema.Section
	for _, sec := range canonical {
		if _, ok := seen[sec.Title]; !ok {
			missing = append(missing, sec)
		}
	}
	return missing
}
