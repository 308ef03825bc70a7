package archive

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/keepsake-archive/keepsake/pkg/document"
	"github.com/keepsake-archive/keepsake/pkg/envelope"
	"github.com/keepsake-archive/keepsake/pkg/export"
	"github.com/keepsake-archive/keepsake/pkg/reconcile"
	"github.com/keepsake-archive/keepsake/pkg/schema"
	"github.com/keepsake-archive/keepsake/pkg/tree"
)

func testTemplate() schema.Template {
	return schema.Template{
		{Title: export.SettingsSection, Fields: []schema.Node{
			{Name: "Title", ID: export.IDRecipientTitle},
			{Name: "Full Name", ID: export.IDRecipientName},
			{Name: "Foreword", ID: export.IDForeword},
			{Name: "Sign-off", ID: export.IDSignoff},
		}},
		{Title: "You and Your Dearest", Fields: []schema.Node{
			{Name: "Title", ID: export.IDOwnerTitle},
			{Name: "Full Name", ID: export.IDOwnerName},
		}},
		{Title: "Pets", Fields: []schema.Node{
			{Name: "Pet", Repeatable: true, Children: []schema.Node{{Name: "Name"}}},
			{Name: "Vet Phone Number"},
		}},
	}
}

type acceptAsker struct{}

func (acceptAsker) ConfirmNewFields(reconcile.FieldPrompt) bool { return true }
func (acceptAsker) ConfirmNewSections([]string) bool            { return true }

func fillSpotlight(t *testing.T, tr *tree.Tree) {
	t.Helper()
	for id, value := range map[string]string{
		export.IDRecipientName: "Robin Reader",
		export.IDForeword:      "Please read this carefully.",
		export.IDSignoff:       "With love, Jane",
		export.IDOwnerName:     "Jane Doe",
	} {
		if err := tr.SetValue(id, value); err != nil {
			t.Fatalf("SetValue(%s) returned error: %v", id, err)
		}
	}
}

func findLeafID(t *testing.T, tr *tree.Tree, name string) string {
	t.Helper()
	var found string
	var walk func(nodes []*tree.Node)
	walk = func(nodes []*tree.Node) {
		for _, node := range nodes {
			if node.Kind == schema.KindLeaf && node.Name == name {
				found = node.ID
				return
			}
			walk(node.Children)
			for _, instance := range node.Instances {
				walk(instance.Children)
			}
		}
	}
	for _, sec := range tr.Sections() {
		walk(sec.Children)
	}
	if found == "" {
		t.Fatalf("leaf %q not found", name)
	}
	return found
}

func TestSaveLoadRoundTrip(t *testing.T) {
	arc, err := New(WithTemplate(testTemplate()), WithAsker(acceptAsker{}))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	fillSpotlight(t, arc.Tree())
	if err := arc.Tree().SetValue(findLeafID(t, arc.Tree(), "Vet Phone Number"), "555-0101"); err != nil {
		t.Fatalf("SetValue returned error: %v", err)
	}
	if err := arc.Tree().MarkComplete("Pets", true); err != nil {
		t.Fatalf("MarkComplete returned error: %v", err)
	}

	sealed, stats, err := arc.SaveProgress("correct-horse", nil)
	if err != nil {
		t.Fatalf("SaveProgress returned error: %v", err)
	}
	if stats.SectionCountMismatch {
		t.Fatalf("unexpected section count mismatch")
	}

	loaded, err := New(WithTemplate(testTemplate()), WithAsker(acceptAsker{}))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	report, err := loaded.LoadProgress(sealed, "correct-horse")
	if err != nil {
		t.Fatalf("LoadProgress returned error: %v", err)
	}
	if !report.Empty() {
		t.Fatalf("loading a current-template save still merged: %+v", report)
	}

	in, loadedStats := loaded.Tree().Snapshot()
	if got := in.CountValues(); got != 5 {
		t.Fatalf("reloaded instance has %d values, want 5", got)
	}
	if len(in.Completed) != 1 || in.Completed[0] != "Pets" {
		t.Fatalf("completion list = %v", in.Completed)
	}
	if loadedStats.SectionsMarked != 1 {
		t.Fatalf("stats = %+v, want 1 marked section", loadedStats)
	}
}

func TestLoadProgressWrongPassphrase(t *testing.T) {
	arc, err := New(WithTemplate(testTemplate()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	fillSpotlight(t, arc.Tree())
	sealed, _, err := arc.SaveProgress("correct-horse", nil)
	if err != nil {
		t.Fatalf("SaveProgress returned error: %v", err)
	}

	other, err := New(WithTemplate(testTemplate()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	before, _ := other.Tree().Snapshot()
	if _, err := other.LoadProgress(sealed, "wrong-battery"); !errors.Is(err, envelope.ErrDecryptFailed) {
		t.Fatalf("error = %v, want ErrDecryptFailed", err)
	}
	after, _ := other.Tree().Snapshot()
	if before.CountValues() != after.CountValues() {
		t.Fatalf("failed load modified the live tree")
	}
}

func TestLoadProgressMergesOlderSave(t *testing.T) {
	// A save made before the Pets section existed.
	older := document.Instance{
		Sections: []document.Section{
			{Title: export.SettingsSection, Fields: []document.Node{
				{Name: "Full Name", ID: export.IDRecipientName, Value: "Robin Reader"},
				{Name: "Title", ID: export.IDRecipientTitle, Value: ""},
				{Name: "Foreword", ID: export.IDForeword, Value: ""},
				{Name: "Sign-off", ID: export.IDSignoff, Value: ""},
			}},
			{Title: "You and Your Dearest", Fields: []document.Node{
				{Name: "Title", ID: export.IDOwnerTitle, Value: ""},
				{Name: "Full Name", ID: export.IDOwnerName, Value: "Jane Doe"},
			}},
		},
		Completed: []string{},
	}
	payload, err := document.Marshal(older)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	sealed, err := envelope.Seal(document.EncodeUTF16(string(payload)), "pass")
	if err != nil {
		t.Fatalf("Seal returned error: %v", err)
	}

	arc, err := New(WithTemplate(testTemplate()), WithAsker(acceptAsker{}))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	report, err := arc.LoadProgress(sealed, "pass")
	if err != nil {
		t.Fatalf("LoadProgress returned error: %v", err)
	}
	if len(report.AddedSections) != 1 || report.AddedSections[0] != "Pets" {
		t.Fatalf("report = %+v, want Pets appended", report)
	}
	leaf, ok := arc.Tree().Leaf(export.IDOwnerName)
	if !ok || leaf.Value != "Jane Doe" {
		t.Fatalf("owner value lost in merge")
	}
	if _, stats := arc.Tree().Snapshot(); stats.SectionCountMismatch {
		t.Fatalf("merged tree still mismatched")
	}
}

func TestSaveProgressMismatchConfirmation(t *testing.T) {
	// Seal a document missing one canonical section, decline the merge on
	// load, and the resulting tree trips the sanity check on save.
	partial := document.Instance{
		Sections: []document.Section{
			{Title: "Pets", Fields: []document.Node{{Name: "Vet Phone Number", Value: "555-0101"}}},
		},
		Completed: []string{},
	}
	payload, err := document.Marshal(partial)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	sealed, err := envelope.Seal(document.EncodeUTF16(string(payload)), "pass")
	if err != nil {
		t.Fatalf("Seal returned error: %v", err)
	}

	arc, err := New(WithTemplate(testTemplate())) // no asker: merges declined
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := arc.LoadProgress(sealed, "pass"); err != nil {
		t.Fatalf("LoadProgress returned error: %v", err)
	}

	declined := ConfirmerFunc(func(string) (bool, error) { return false, nil })
	if _, _, err := arc.SaveProgress("pass", declined); !errors.Is(err, ErrDeclined) {
		t.Fatalf("error = %v, want ErrDeclined", err)
	}

	var warned string
	accepted := ConfirmerFunc(func(msg string) (bool, error) {
		warned = msg
		return true, nil
	})
	if _, _, err := arc.SaveProgress("pass", accepted); err != nil {
		t.Fatalf("SaveProgress returned error: %v", err)
	}
	if !strings.Contains(warned, "may not load back correctly") {
		t.Fatalf("warning message = %q", warned)
	}
}

func TestGenerateFinalWipes(t *testing.T) {
	arc, err := New(WithTemplate(testTemplate()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	fillSpotlight(t, arc.Tree())
	if err := arc.Tree().SetValue(findLeafID(t, arc.Tree(), "Vet Phone Number"), "555-0101"); err != nil {
		t.Fatalf("SetValue returned error: %v", err)
	}

	sealed, err := arc.GenerateFinal("pass", FinalOptions{})
	if err != nil {
		t.Fatalf("GenerateFinal returned error: %v", err)
	}
	plain, err := envelope.OpenFinal(sealed, "pass")
	if err != nil {
		t.Fatalf("OpenFinal returned error: %v", err)
	}
	if !strings.Contains(string(plain), "PERSONAL ARCHIVE - Jane Doe") {
		t.Fatalf("artifact missing owner header:\n%s", plain)
	}

	// The live session holds no data afterwards.
	in, _ := arc.Tree().Snapshot()
	if got := in.CountValues(); got != 0 {
		t.Fatalf("live tree still holds %d values after export", got)
	}
	if len(in.Completed) != 0 {
		t.Fatalf("completion marks survived the wipe: %v", in.Completed)
	}
}

func TestGenerateFinalValidationBlocks(t *testing.T) {
	arc, err := New(WithTemplate(testTemplate()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := arc.Tree().SetValue(findLeafID(t, arc.Tree(), "Vet Phone Number"), "555-0101"); err != nil {
		t.Fatalf("SetValue returned error: %v", err)
	}

	_, err = arc.GenerateFinal("pass", FinalOptions{})
	var verr *export.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	// The failed export left the session intact.
	in, _ := arc.Tree().Snapshot()
	if in.CountValues() != 1 {
		t.Fatalf("failed export modified the live tree")
	}
}

func TestGenerateFinalPlaintext(t *testing.T) {
	arc, err := New(WithTemplate(testTemplate()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	fillSpotlight(t, arc.Tree())
	out, err := arc.GenerateFinal("", FinalOptions{Plaintext: true})
	if err != nil {
		t.Fatalf("GenerateFinal returned error: %v", err)
	}
	if !strings.Contains(string(out), "FOR THE SOLE ATTENTION OF: Robin Reader") {
		t.Fatalf("plaintext artifact not readable:\n%s", out)
	}
}

func TestExportJSON(t *testing.T) {
	arc, err := New(WithTemplate(testTemplate()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	fillSpotlight(t, arc.Tree())
	data, err := arc.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON returned error: %v", err)
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("diagnostic output is not a JSON array: %v", err)
	}
	// Canonical sections plus the completion entry.
	if len(entries) != len(testTemplate())+1 {
		t.Fatalf("diagnostic array has %d entries, want %d", len(entries), len(testTemplate())+1)
	}
	if !strings.Contains(string(data), "Jane Doe") {
		t.Fatalf("diagnostic output missing values")
	}
}

func someTime() time.Time {
	return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
}

func TestFilename(t *testing.T) {
	arc, err := New(WithTemplate(testTemplate()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	name := arc.Filename(".enc", someTime())
	if name != "keepsake-archive-20260314-093000.enc" {
		t.Fatalf("filename = %q", name)
	}

	fillSpotlight(t, arc.Tree())
	name = arc.Filename(".enc", someTime())
	if name != "keepsake-jane-doe-20260314-093000.enc" {
		t.Fatalf("filename = %q", name)
	}
}
