package tree

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/keepsake-archive/keepsake/pkg/document"
	"github.com/keepsake-archive/keepsake/pkg/schema"
)

func friendsTemplate() schema.Template {
	return schema.Template{
		{
			Title: "Friends",
			Fields: []schema.Node{
				{Name: "Friend", Repeatable: true, Children: []schema.Node{
					{Name: "Name"},
					{Name: "Notes"},
				}},
			},
		},
	}
}

func TestBuildFreshRepeatableGroup(t *testing.T) {
	tr, err := Build(friendsTemplate())
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	in, stats := tr.Snapshot()

	sec := in.Sections[0]
	if len(sec.Fields) != 1 {
		t.Fatalf("serialized %d repetitions, want 1", len(sec.Fields))
	}
	rep := sec.Fields[0]
	if !rep.Repeat {
		t.Fatalf("repetition lost its repeat marker")
	}
	if len(rep.Fields) != 2 {
		t.Fatalf("repetition has %d leaves, want 2", len(rep.Fields))
	}
	for _, leaf := range rep.Fields {
		if leaf.Value != "" {
			t.Fatalf("fresh leaf %q has value %q, want empty", leaf.Name, leaf.Value)
		}
	}
	if stats.TotalFields != 2 || stats.FieldsWithData != 0 {
		t.Fatalf("stats = %+v, want 2 total, 0 filled", stats)
	}
}

func TestAddRemoveRepetitionOrdinals(t *testing.T) {
	tr, err := Build(friendsTemplate())
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if _, err := tr.AddRepetition("Friends", "Friend"); err != nil {
		t.Fatalf("AddRepetition returned error: %v", err)
	}
	if _, err := tr.AddRepetition("Friends", "Friend"); err != nil {
		t.Fatalf("AddRepetition returned error: %v", err)
	}

	container := tr.Sections()[0].Children[0]
	ordinals := func() []int {
		var out []int
		for _, inst := range container.Instances {
			out = append(out, inst.Ordinal)
		}
		return out
	}
	if diff := cmp.Diff([]int{1, 2, 3}, ordinals()); diff != "" {
		t.Fatalf("ordinals mismatch (-want +got):\n%s", diff)
	}

	// Removing the middle repetition never frees its ordinal for reuse.
	if err := tr.RemoveRepetition("Friends", "Friend", 2); err != nil {
		t.Fatalf("RemoveRepetition returned error: %v", err)
	}
	if diff := cmp.Diff([]int{1, 3}, ordinals()); diff != "" {
		t.Fatalf("ordinals after removal (-want +got):\n%s", diff)
	}
	added, err := tr.AddRepetition("Friends", "Friend")
	if err != nil {
		t.Fatalf("AddRepetition returned error: %v", err)
	}
	if added.Ordinal != 4 {
		t.Fatalf("new repetition ordinal = %d, want 4", added.Ordinal)
	}
	if added.Label() != "Friend (4)" {
		t.Fatalf("label = %q, want Friend (4)", added.Label())
	}
}

func TestRemoveLastRepetitionRejected(t *testing.T) {
	tr, err := Build(friendsTemplate())
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	container := tr.Sections()[0].Children[0]
	container.Instances[0].Children[0].Value = "Rex"

	err = tr.RemoveRepetition("Friends", "Friend", 1)
	if !errors.Is(err, ErrLastRepetition) {
		t.Fatalf("error = %v, want ErrLastRepetition", err)
	}
	// The tree is untouched.
	if len(container.Instances) != 1 || container.Instances[0].Children[0].Value != "Rex" {
		t.Fatalf("rejected removal still mutated the tree")
	}
}

func TestReindexAssignsSequentialIDs(t *testing.T) {
	tpl := schema.Template{
		{Title: "A", Fields: []schema.Node{{Name: "One"}, {Name: "Two"}}},
		{Title: "B", Fields: []schema.Node{{Name: "Three"}}},
	}
	tr, err := Build(tpl)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	var ids []string
	for _, sec := range tr.Sections() {
		for _, node := range sec.Children {
			ids = append(ids, node.ID)
		}
	}
	if diff := cmp.Diff([]string{"db_0", "db_1", "db_2"}, ids); diff != "" {
		t.Fatalf("generated ids mismatch (-want +got):\n%s", diff)
	}
}

func TestPinnedIDStability(t *testing.T) {
	tpl := schema.Template{
		{Title: "Settings", Fields: []schema.Node{
			{Name: "Your Name", ID: "db-you-name"},
			{Name: "Notes"},
		}},
		{Title: "Friends", Fields: []schema.Node{
			{Name: "Friend", Repeatable: true, Children: []schema.Node{{Name: "Name"}}},
		}},
	}
	tr, err := Build(tpl)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	check := func(step string) {
		leaf, ok := tr.Leaf("db-you-name")
		if !ok {
			t.Fatalf("%s: pinned leaf lost", step)
		}
		if leaf.Name != "Your Name" {
			t.Fatalf("%s: pinned id resolves to %q", step, leaf.Name)
		}
	}
	check("after build")

	for i := 0; i < 3; i++ {
		if _, err := tr.AddRepetition("Friends", "Friend"); err != nil {
			t.Fatalf("AddRepetition returned error: %v", err)
		}
	}
	check("after adds")
	if err := tr.RemoveRepetition("Friends", "Friend", 2); err != nil {
		t.Fatalf("RemoveRepetition returned error: %v", err)
	}
	check("after remove")
	if err := tr.MoveSection("Friends", 0); err != nil {
		t.Fatalf("MoveSection returned error: %v", err)
	}
	check("after move")
}

func TestLoadFoldsNonAdjacentRepetitions(t *testing.T) {
	// Repetitions of the same group may arrive interleaved with other
	// fields; folding is keyed by name, not by adjacency.
	tpl := schema.Template{
		{Title: "Pets", Fields: []schema.Node{
			{Name: "Pet", Repeatable: true, Children: []schema.Node{{Name: "Name"}}},
			{Name: "Vet Phone Number"},
		}},
	}
	in := document.Instance{
		Sections: []document.Section{{
			Title: "Pets",
			Fields: []document.Node{
				{Name: "Pet", Repeat: true, Fields: []document.Node{{Name: "Name", Value: "Rex"}}},
				{Name: "Vet Phone Number", Value: "555-0101"},
				{Name: "Pet", Repeat: true, Fields: []document.Node{{Name: "Name", Value: "Whiskers"}}},
			},
		}},
	}
	tr, err := Load(tpl, in)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	var container *Node
	for _, node := range tr.Sections()[0].Children {
		if node.Kind == schema.KindRepeatable {
			if container != nil {
				t.Fatalf("same-named repetitions produced two containers")
			}
			container = node
		}
	}
	if container == nil {
		t.Fatalf("no repeatable container after load")
	}
	if len(container.Instances) != 2 {
		t.Fatalf("folded %d repetitions, want 2", len(container.Instances))
	}
	if container.Instances[0].Ordinal != 1 || container.Instances[1].Ordinal != 2 {
		t.Fatalf("ordinals = %d, %d, want 1, 2", container.Instances[0].Ordinal, container.Instances[1].Ordinal)
	}
	names := []string{
		container.Instances[0].Children[0].Value,
		container.Instances[1].Children[0].Value,
	}
	if diff := cmp.Diff([]string{"Rex", "Whiskers"}, names); diff != "" {
		t.Fatalf("repetition values (-want +got):\n%s", diff)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	tpl := friendsTemplate()
	tr, err := Build(tpl)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	tr.Sections()[0].Children[0].Instances[0].Children[0].Value = "Alex"
	if _, err := tr.AddRepetition("Friends", "Friend"); err != nil {
		t.Fatalf("AddRepetition returned error: %v", err)
	}
	if err := tr.MarkComplete("Friends", true); err != nil {
		t.Fatalf("MarkComplete returned error: %v", err)
	}

	first, _ := tr.Snapshot()
	reloaded, err := Load(tpl, first)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	second, _ := reloaded.Snapshot()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("snapshot round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSensitiveClassification(t *testing.T) {
	tpl := schema.Template{
		{Title: "Banking", Fields: []schema.Node{
			{Name: "Account", Repeatable: true, Children: []schema.Node{
				{Name: "Password"},
				{Name: "Memorable Word", Sensitive: true},
				{Name: "Sort Code"},
			}},
		}},
	}
	tr, err := Build(tpl)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	check := func(instance *Node) {
		byName := map[string]*Node{}
		for _, leaf := range instance.Children {
			byName[leaf.Name] = leaf
		}
		if !byName["Password"].Sensitive {
			t.Fatalf("allow-listed name not classified sensitive")
		}
		if !byName["Memorable Word"].Sensitive {
			t.Fatalf("schema-tagged leaf not classified sensitive")
		}
		if byName["Sort Code"].Sensitive {
			t.Fatalf("Sort Code wrongly classified sensitive")
		}
	}
	container := tr.Sections()[0].Children[0]
	check(container.Instances[0])

	// A repetition added after the build goes through the same
	// classification on reindex.
	added, err := tr.AddRepetition("Banking", "Account")
	if err != nil {
		t.Fatalf("AddRepetition returned error: %v", err)
	}
	check(added)

	// Instances do not persist the flag, so a save/load cycle must
	// re-derive it from the template tag as well as the allow-list.
	in, _ := tr.Snapshot()
	reloaded, err := Load(tpl, in)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	container = reloaded.Sections()[0].Children[0]
	for _, instance := range container.Instances {
		check(instance)
	}
}

func TestStatsAndMismatch(t *testing.T) {
	tpl := schema.Template{
		{Title: "A", Fields: []schema.Node{{Name: "One"}, {Name: "Two"}}},
		{Title: "B", Fields: []schema.Node{{Name: "Three"}}},
	}
	// Loaded file carries only one of the two canonical sections.
	in := document.Instance{Sections: []document.Section{
		{Title: "A", Fields: []document.Node{
			{Name: "One", Value: "filled"},
			{Name: "Two", Value: ""},
		}},
	}}
	tr, err := Load(tpl, in)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	_, stats := tr.Snapshot()
	if !stats.SectionCountMismatch {
		t.Fatalf("section count mismatch not flagged")
	}
	if stats.TotalFields != 2 || stats.FieldsWithData != 1 {
		t.Fatalf("stats = %+v, want 2 fields with 1 filled", stats)
	}
	if got := stats.FieldsPercent(); got != 50 {
		t.Fatalf("FieldsPercent = %v, want 50", got)
	}
}

func TestSetValueUnknownID(t *testing.T) {
	tr, err := Build(friendsTemplate())
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if err := tr.SetValue("db_99", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}
