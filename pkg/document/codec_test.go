package document

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleInstance() Instance {
	return Instance{
		Sections: []Section{
			{
				Title:       "Pets",
				Description: "Your animals.",
				Fields: []Node{
					{Name: "Vet Phone Number", Value: "555-0101", ID: "db_0"},
					{Name: "Pet", Repeat: true, Fields: []Node{
						{Name: "Name", Value: "Rex", ID: "db_1"},
						{Name: "Feeding Notes", Value: "", ID: "db_2"},
					}},
					{Name: "Pet", Repeat: true, Fields: []Node{
						{Name: "Name", Value: "Whiskers", ID: "db_3"},
						{Name: "Feeding Notes", Value: "twice a day", ID: "db_4"},
					}},
				},
			},
			{Title: "Banking", Fields: []Node{
				{Name: "Password", Value: "hunter2", ID: "db_5"},
			}},
		},
		Completed: []string{"Pets"},
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	in := sampleInstance()
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshalEmitsCompletionEntryWhenEmpty(t *testing.T) {
	in := Instance{Sections: []Section{{Title: "A", Fields: []Node{{Name: "X", Value: ""}}}}}
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if got.Completed == nil || len(got.Completed) != 0 {
		t.Fatalf("Completed = %#v, want empty non-nil slice", got.Completed)
	}
}

func TestUnmarshalLegacyTrailingArray(t *testing.T) {
	// Older files carried the completion list as a bare string array in
	// the last slot, with no kind tags anywhere.
	legacy := []byte(`[
		{"title":"Pets","fields":[{"name":"Vet Phone Number","value":"555-0101"}]},
		{"title":"Banking","fields":[{"name":"Password","value":"hunter2"}]},
		["Banking"]
	]`)
	got, err := Unmarshal(legacy)
	if err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if len(got.Sections) != 2 {
		t.Fatalf("decoded %d sections, want 2", len(got.Sections))
	}
	if diff := cmp.Diff([]string{"Banking"}, got.Completed); diff != "" {
		t.Fatalf("completion list mismatch (-want +got):\n%s", diff)
	}
	if got.Sections[0].Fields[0].Value != "555-0101" {
		t.Fatalf("leaf value = %q, want 555-0101", got.Sections[0].Fields[0].Value)
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	for _, src := range []string{"", "{}", "[]", "not json"} {
		if _, err := Unmarshal([]byte(src)); err == nil {
			t.Fatalf("Unmarshal(%q) succeeded, want error", src)
		}
	}
}

func TestSniff(t *testing.T) {
	data, err := Marshal(sampleInstance())
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if !Sniff(data) {
		t.Fatalf("Sniff rejected a serialized instance")
	}
	for _, src := range []string{"", "PERSONAL ARCHIVE - Jane", "{\"a\":1}"} {
		if Sniff([]byte(src)) {
			t.Fatalf("Sniff(%q) = true, want false", src)
		}
	}
}

func TestUTF16RoundTrip(t *testing.T) {
	for _, s := range []string{"", "plain ascii", `[{"title":"Ā"}]`, "emoji \U0001F436 and accents éü"} {
		got, err := DecodeUTF16(EncodeUTF16(s))
		if err != nil {
			t.Fatalf("DecodeUTF16 returned error for %q: %v", s, err)
		}
		if got != s {
			t.Fatalf("round trip of %q produced %q", s, got)
		}
	}
}

func TestDecodeUTF16OddLength(t *testing.T) {
	if _, err := DecodeUTF16([]byte{0x41}); err == nil {
		t.Fatalf("expected error for odd-length input")
	}
}
