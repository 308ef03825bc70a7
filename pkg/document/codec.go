package document

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	kindSection        = "section"
	kindCompletionList = "completionList"
)

type taggedSection struct {
	Kind string `json:"kind"`
	Section
}

type completionEntry struct {
	Kind     string   `json:"kind"`
	Sections []string `json:"sections"`
}

// Marshal encodes the instance as a JSON array: one tagged object per
// section followed by the completion-list entry. The completion entry is
// emitted unconditionally, even when no section is marked complete.
func Marshal(in Instance) ([]byte, error) {
	entries := make([]any, 0, len(in.Sections)+1)
	for _, sec := range in.Sections {
		entries = append(entries, taggedSection{Kind: kindSection, Section: sec})
	}
	completed := in.Completed
	if completed == nil {
		completed = []string{}
	}
	entries = append(entries, completionEntry{Kind: kindCompletionList, Sections: completed})
	return json.Marshal(entries)
}

// Unmarshal decodes a serialized instance. Both the tagged format produced
// by Marshal and the legacy untagged one are accepted: legacy files carry
// the completion list as a bare string array in the trailing slot, so each
// entry is classified by inspecting its JSON type rather than its position.
func Unmarshal(data []byte) (Instance, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Instance{}, fmt.Errorf("document: decode instance: %w", err)
	}
	if len(raw) == 0 {
		return Instance{}, fmt.Errorf("document: instance is empty")
	}

	var in Instance
	for _, entry := range raw {
		trimmed := bytes.TrimSpace(entry)
		if len(trimmed) == 0 {
			continue
		}
		// Legacy completion list: a bare array of section titles.
		if trimmed[0] == '[' {
			var titles []string
			if err := json.Unmarshal(trimmed, &titles); err != nil {
				return Instance{}, fmt.Errorf("document: decode completion list: %w", err)
			}
			in.Completed = titles
			continue
		}

		var probe struct {
			Kind     string   `json:"kind"`
			Title    string   `json:"title"`
			Sections []string `json:"sections"`
		}
		if err := json.Unmarshal(trimmed, &probe); err != nil {
			return Instance{}, fmt.Errorf("document: decode entry: %w", err)
		}
		if probe.Kind == kindCompletionList {
			in.Completed = probe.Sections
			continue
		}

		var sec Section
		if err := json.Unmarshal(trimmed, &sec); err != nil {
			return Instance{}, fmt.Errorf("document: decode section: %w", err)
		}
		in.Sections = append(in.Sections, sec)
	}
	if in.Completed == nil {
		in.Completed = []string{}
	}
	return in, nil
}

// Sniff reports whether data looks like a serialized instance. The codec
// uses it to catch a progress file presented where a final artifact was
// expected.
func Sniff(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return false
	}
	var raw []json.RawMessage
	return json.Unmarshal(trimmed, &raw) == nil
}
