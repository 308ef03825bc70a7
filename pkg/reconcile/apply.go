package reconcile

import (
	"github.com/keepsake-archive/keepsake/pkg/document"
	"github.com/keepsake-archive/keepsake/pkg/schema"
)

// Report records what a merge pass appended.
type Report struct {
	// AddedSections lists whole sections appended from the template.
	AddedSections []string
	// AddedFields maps "section title" to the names of fields appended
	// somewhere inside that section.
	AddedFields map[string][]string
}

// Empty reports whether the merge changed nothing.
func (r Report) Empty() bool {
	return len(r.AddedSections) == 0 && len(r.AddedFields) == 0
}

// Apply reconciles a loaded instance against the canonical template. New
// whole sections are offered as one batch; new fields inside existing
// sections and repetitions go through the session's ask-once gate. The
// input instance is not modified; the returned one shares no mutable state
// with it at the points that were merged.
func Apply(tpl schema.Template, in document.Instance, session *Session) (document.Instance, Report) {
	report := Report{AddedFields: make(map[string][]string)}

	out := in
	out.Sections = make([]document.Section, len(in.Sections))
	copy(out.Sections, in.Sections)

	for i, sec := range out.Sections {
		canonical, ok := tpl.Section(sec.Title)
		if !ok {
			// Section no longer in the template. Reconciliation is additive
			// only, so the loaded data is preserved untouched.
			continue
		}
		merged, added := mergeSection(canonical, sec, session)
		if len(added) > 0 {
			out.Sections[i] = merged
			report.AddedFields[sec.Title] = added
		} else {
			out.Sections[i] = merged
		}
	}

	missing := DiffSections(tpl, out)
	if len(missing) > 0 {
		titles := make([]string, len(missing))
		for i, sec := range missing {
			titles[i] = sec.Title
		}
		if session.ApproveSections(titles) {
			for _, sec := range missing {
				out.Sections = append(out.Sections, document.Section{
					Title:       sec.Title,
					Description: sec.Description,
					Fields:      document.FromSchemaNodes(sec.Fields),
				})
			}
			report.AddedSections = titles
		}
	}

	if report.Empty() {
		report.AddedFields = nil
	}
	return out, report
}

func mergeSection(canonical schema.Section, loaded document.Section, session *Session) (document.Section, []string) {
	var added []string

	fields := make([]document.Node, len(loaded.Fields))
	copy(fields, loaded.Fields)

	// New fields inside existing repetitions and fixed groups first, so the
	// diff walks the section in declaration order.
	for i, node := range fields {
		if node.Leaf() {
			continue
		}
		decl, ok := findGroup(canonical.Fields, node.Name)
		if !ok {
			continue
		}
		missing := DiffGroup(decl, node)
		if len(missing) == 0 {
			continue
		}
		if !session.ApproveFields(FieldPrompt{SectionTitle: loaded.Title, FieldName: missing[0].Name}) {
			continue
		}
		merged := node
		merged.Fields = append(append([]document.Node{}, node.Fields...), document.FromSchemaNodes(missing)...)
		fields[i] = merged
		for _, m := range missing {
			added = append(added, m.Name)
		}
	}

	// Then fields missing from the section's own top level.
	missing := DiffSection(canonical, document.Section{Title: loaded.Title, Fields: fields})
	if len(missing) > 0 && session.ApproveFields(FieldPrompt{SectionTitle: loaded.Title, FieldName: missing[0].Name}) {
		fields = append(fields, document.FromSchemaNodes(missing)...)
		for _, m := range missing {
			added = append(added, m.Name)
		}
	}

	loaded.Fields = fields
	return loaded, added
}

func findGroup(nodes []schema.Node, name string) (schema.Node, bool) {
	for _, node := range nodes {
		if node.Kind() != schema.KindLeaf && node.Name == name {
			return node, true
		}
	}
	return schema.Node{}, false
}
