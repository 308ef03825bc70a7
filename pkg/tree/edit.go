package tree

import (
	"fmt"

	"github.com/keepsake-archive/keepsake/pkg/schema"
)

// SetValue writes a leaf value through its identifier.
func (t *Tree) SetValue(id, value string) error {
	leaf, ok := t.leaves[id]
	if !ok {
		return fmt.Errorf("%w: leaf %q", ErrNotFound, id)
	}
	leaf.Value = value
	return nil
}

// MarkComplete flags or unflags a section as explicitly done. This is the
// user's own judgement and independent of whether the section holds data.
func (t *Tree) MarkComplete(title string, done bool) error {
	if _, ok := t.findSection(title); !ok {
		return fmt.Errorf("%w: section %q", ErrNotFound, title)
	}
	if done {
		t.completed[title] = true
	} else {
		delete(t.completed, title)
	}
	return nil
}

// AddRepetition appends a fresh repetition to the named repeatable group
// and reindexes. The new instance's ordinal is the next for its name,
// never a reused one.
func (t *Tree) AddRepetition(sectionTitle, groupName string) (*Node, error) {
	container, err := t.findRepeatable(sectionTitle, groupName)
	if err != nil {
		return nil, err
	}
	instance := t.newInstance(container)
	container.Instances = append(container.Instances, instance)
	t.Reindex()
	return instance, nil
}

// RemoveRepetition deletes one repetition by ordinal. At least one
// repetition always remains: removing the last is rejected and the tree is
// left untouched.
func (t *Tree) RemoveRepetition(sectionTitle, groupName string, ordinal int) error {
	container, err := t.findRepeatable(sectionTitle, groupName)
	if err != nil {
		return err
	}
	if len(container.Instances) <= 1 {
		return ErrLastRepetition
	}
	for i, instance := range container.Instances {
		if instance.Ordinal == ordinal {
			container.Instances = append(container.Instances[:i], container.Instances[i+1:]...)
			t.Reindex()
			return nil
		}
	}
	return fmt.Errorf("%w: repetition %q (%d)", ErrNotFound, groupName, ordinal)
}

// MoveSection reorders a section to the given position (0-based). Leaf ids
// are reassigned afterwards, exactly as for any other structural edit.
func (t *Tree) MoveSection(title string, to int) error {
	from := -1
	for i, sec := range t.sections {
		if sec.Title == title {
			from = i
			break
		}
	}
	if from == -1 {
		return fmt.Errorf("%w: section %q", ErrNotFound, title)
	}
	if to < 0 || to >= len(t.sections) {
		return fmt.Errorf("tree: position %d out of range", to)
	}
	sec := t.sections[from]
	t.sections = append(t.sections[:from], t.sections[from+1:]...)
	t.sections = append(t.sections[:to], append([]*SectionNode{sec}, t.sections[to:]...)...)
	t.Reindex()
	return nil
}

func (t *Tree) findSection(title string) (*SectionNode, bool) {
	for _, sec := range t.sections {
		if sec.Title == title {
			return sec, true
		}
	}
	return nil, false
}

func (t *Tree) findRepeatable(sectionTitle, groupName string) (*Node, error) {
	sec, ok := t.findSection(sectionTitle)
	if !ok {
		return nil, fmt.Errorf("%w: section %q", ErrNotFound, sectionTitle)
	}
	if container := findContainer(sec.Children, groupName); container != nil {
		return container, nil
	}
	return nil, fmt.Errorf("%w: repeatable group %q in section %q", ErrNotFound, groupName, sectionTitle)
}

func findContainer(nodes []*Node, name string) *Node {
	for _, node := range nodes {
		switch {
		case node.Kind == schema.KindRepeatable && node.Name == name:
			return node
		case len(node.Children) > 0:
			if found := findContainer(node.Children, name); found != nil {
				return found
			}
		case len(node.Instances) > 0:
			for _, instance := range node.Instances {
				if found := findContainer(instance.Children, name); found != nil {
					return found
				}
			}
		}
	}
	return nil
}
