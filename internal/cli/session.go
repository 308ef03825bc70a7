package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keepsake-archive/keepsake/internal/prompt"
	"github.com/keepsake-archive/keepsake/pkg/archive"
	"github.com/keepsake-archive/keepsake/pkg/envelope"
	"github.com/keepsake-archive/keepsake/pkg/export"
	"github.com/keepsake-archive/keepsake/pkg/schema"
	"github.com/keepsake-archive/keepsake/pkg/tree"
)

// editSession drives the interactive questionnaire loop over an archive.
type editSession struct {
	ctx   context.Context
	arc   *archive.Archive
	dirty bool
}

type menuEntry struct {
	label string
	act   func() error
}

// canceled reports whether an error is just the user backing out of a
// prompt, which unwinds one menu level instead of the whole session.
func canceled(err error) bool {
	return errors.Is(err, prompt.ErrAborted)
}

func (s *editSession) run() error {
	for {
		var entries []menuEntry
		for _, sec := range s.arc.Tree().Sections() {
			sec := sec
			entries = append(entries, menuEntry{
				label: s.sectionLabel(sec),
				act:   func() error { return s.sectionMenu(sec) },
			})
		}
		entries = append(entries,
			menuEntry{label: "Save progress", act: s.saveProgress},
			menuEntry{label: "Generate final archive", act: s.generateFinal},
			menuEntry{label: "Export plain JSON (diagnostic)", act: s.exportJSON},
			menuEntry{label: "Quit", act: nil},
		)

		idx, err := s.choose("Archive sections", entries)
		if err != nil {
			if canceled(err) {
				idx = len(entries) - 1
			} else {
				return err
			}
		}
		if entries[idx].act == nil {
			if s.dirty {
				ok, err := driver.Confirm(s.ctx, prompt.ConfirmConfig{
					Message: "You have unsaved changes. Quit anyway?",
				})
				if err != nil && !canceled(err) {
					return err
				}
				if !ok {
					continue
				}
			}
			return nil
		}
		if err := entries[idx].act(); err != nil && !canceled(err) {
			return err
		}
	}
}

func (s *editSession) choose(message string, entries []menuEntry) (int, error) {
	options := make([]string, len(entries))
	for i, e := range entries {
		options[i] = e.label
	}
	return driver.Select(s.ctx, prompt.SelectConfig{
		Message:  message,
		Options:  options,
		PageSize: 15,
	})
}

func (s *editSession) sectionLabel(sec *tree.SectionNode) string {
	for _, title := range s.completedTitles() {
		if title == sec.Title {
			return sec.Title + " ✓"
		}
	}
	return sec.Title
}

func (s *editSession) completedTitles() []string {
	in, _ := s.arc.Tree().Snapshot()
	return in.Completed
}

func (s *editSession) sectionMenu(sec *tree.SectionNode) error {
	for {
		var entries []menuEntry
		for _, node := range sec.Children {
			entries = append(entries, s.nodeEntries(sec.Title, node)...)
		}
		done := false
		for _, title := range s.completedTitles() {
			if title == sec.Title {
				done = true
			}
		}
		toggle := "Mark section complete"
		if done {
			toggle = "Mark section incomplete"
		}
		entries = append(entries,
			menuEntry{label: toggle, act: func() error {
				s.dirty = true
				return s.arc.Tree().MarkComplete(sec.Title, !done)
			}},
			menuEntry{label: "Back", act: nil},
		)

		idx, err := s.choose(sec.Title, entries)
		if err != nil {
			if canceled(err) {
				return nil
			}
			return err
		}
		if entries[idx].act == nil {
			return nil
		}
		if err := entries[idx].act(); err != nil && !canceled(err) {
			return err
		}
	}
}

func (s *editSession) nodeEntries(sectionTitle string, node *tree.Node) []menuEntry {
	switch node.Kind {
	case schema.KindLeaf:
		node := node
		return []menuEntry{{
			label: leafLabel(node),
			act:   func() error { return s.editLeaf(node) },
		}}
	case schema.KindRepeatable:
		var entries []menuEntry
		for _, instance := range node.Instances {
			instance := instance
			entries = append(entries, menuEntry{
				label: instance.Label() + " …",
				act:   func() error { return s.groupMenu(sectionTitle, node, instance) },
			})
		}
		container := node
		entries = append(entries, menuEntry{
			label: "Add another " + node.Name,
			act: func() error {
				s.dirty = true
				_, err := s.arc.Tree().AddRepetition(sectionTitle, container.Name)
				return err
			},
		})
		return entries
	default:
		node := node
		return []menuEntry{{
			label: node.Name + " …",
			act:   func() error { return s.groupMenu(sectionTitle, nil, node) },
		}}
	}
}

// groupMenu edits one group's children. container is non-nil when group is
// a repetition instance, which adds the removal entry.
func (s *editSession) groupMenu(sectionTitle string, container, group *tree.Node) error {
	for {
		var entries []menuEntry
		for _, child := range group.Children {
			entries = append(entries, s.nodeEntries(sectionTitle, child)...)
		}
		if container != nil {
			ordinal := group.Ordinal
			entries = append(entries, menuEntry{
				label: "Remove this repetition",
				act: func() error {
					err := s.arc.Tree().RemoveRepetition(sectionTitle, container.Name, ordinal)
					if errors.Is(err, tree.ErrLastRepetition) {
						return driver.Info(s.ctx, "At least one entry must remain; clear its fields instead.")
					}
					if err == nil {
						s.dirty = true
						// The instance is gone; drop out of its menu.
						return errRemoved
					}
					return err
				},
			})
		}
		entries = append(entries, menuEntry{label: "Back", act: nil})

		idx, err := s.choose(group.Label(), entries)
		if err != nil {
			if canceled(err) {
				return nil
			}
			return err
		}
		if entries[idx].act == nil {
			return nil
		}
		if err := entries[idx].act(); err != nil {
			if errors.Is(err, errRemoved) {
				return nil
			}
			if !canceled(err) {
				return err
			}
		}
	}
}

var errRemoved = errors.New("cli: repetition removed")

func leafLabel(node *tree.Node) string {
	preview := node.Value
	if preview == "" {
		preview = "(empty)"
	} else if node.Sensitive {
		preview = "••••••"
	} else if runes := []rune(preview); len(runes) > 40 {
		preview = string(runes[:37]) + "..."
	}
	return node.Name + ": " + preview
}

func (s *editSession) editLeaf(node *tree.Node) error {
	var (
		value string
		err   error
	)
	if node.ID == export.IDForeword {
		value, err = driver.TextArea(s.ctx, prompt.TextAreaConfig{
			Message: node.Name,
			Default: node.Value,
			Help:    node.Description,
		})
	} else {
		value, err = driver.Input(s.ctx, prompt.InputConfig{
			Message: node.Name + ":",
			Default: node.Value,
			Help:    node.Description,
		})
	}
	if err != nil {
		return err
	}
	if value != node.Value {
		s.dirty = true
	}
	return s.arc.Tree().SetValue(node.ID, value)
}

func (s *editSession) saveProgress() error {
	pass, err := askPassphrase(s.ctx, true)
	if err != nil {
		return err
	}

	sp, cleanup := startSpinner("Encrypting your progress...")
	sealed, stats, err := s.arc.SaveProgress(pass, driverConfirmer{ctx: s.ctx})
	if err != nil {
		cleanup()
		if errors.Is(err, archive.ErrDeclined) {
			return nil
		}
		return err
	}
	path := s.arc.Filename(envelopeExt, time.Now())
	if err := writeAtomic(path, sealed); err != nil {
		cleanup()
		return err
	}
	sp.FinalMSG = success(fmt.Sprintf("Progress saved to %s (%.0f%% of fields filled)\n  checksum: %s",
		path, stats.FieldsPercent(), envelope.Checksum(sealed)))
	cleanup()
	s.dirty = false
	return nil
}

func (s *editSession) generateFinal() error {
	onlyComplete, err := driver.Confirm(s.ctx, prompt.ConfirmConfig{
		Message: "Include only sections marked complete?",
	})
	if err != nil {
		return err
	}
	encrypt, err := driver.Confirm(s.ctx, prompt.ConfirmConfig{
		Message: "Encrypt the final archive? (strongly recommended)",
		Default: true,
	})
	if err != nil {
		return err
	}
	if !encrypt {
		ok, err := driver.Confirm(s.ctx, prompt.ConfirmConfig{
			Message: "The file will be readable by ANYONE who finds it. Are you absolutely sure?",
		})
		if err != nil || !ok {
			return err
		}
	}

	var pass string
	if encrypt {
		if pass, err = askPassphrase(s.ctx, true); err != nil {
			return err
		}
	}

	sp, cleanup := startSpinner("Generating your archive...")
	out, err := s.arc.GenerateFinal(pass, archive.FinalOptions{
		OnlyComplete: onlyComplete,
		Plaintext:    !encrypt,
	})
	if err != nil {
		cleanup()
		var verr *export.ValidationError
		if errors.As(err, &verr) {
			for _, msg := range verr.Messages {
				log.Errorf("%s", msg)
			}
			return nil
		}
		return err
	}
	ext := envelopeExt
	if !encrypt {
		ext = ".txt"
	}
	path := s.arc.Filename(ext, time.Now())
	if err := writeAtomic(path, out); err != nil {
		cleanup()
		return err
	}
	sp.FinalMSG = success(fmt.Sprintf("Final archive written to %s\n  checksum: %s\n  your working data has been wiped from this session",
		path, envelope.Checksum(out)))
	cleanup()
	s.dirty = false
	return nil
}

func (s *editSession) exportJSON() error {
	ok, err := driver.Confirm(s.ctx, prompt.ConfirmConfig{
		Message: "This writes your data as UNENCRYPTED JSON, including passwords. Continue?",
	})
	if err != nil || !ok {
		return err
	}
	data, err := s.arc.ExportJSON()
	if err != nil {
		return err
	}
	path := s.arc.Filename(".json", time.Now())
	if err := writeAtomic(path, data); err != nil {
		return err
	}
	return driver.Info(s.ctx, success("Diagnostic JSON written to "+path))
}
