// Package export turns a reconciled instance into the final deliverable
// artifact. Pagination and typography live behind the Layout interface;
// this package owns spotlight resolution, pre-flight validation and the
// section filtering rules.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/keepsake-archive/keepsake/pkg/document"
)

// Pinned spotlight ids. These are fixed by the bundled template and must
// never change: saved instances reference them forever.
const (
	IDOwnerTitle     = "db-you-title"
	IDOwnerName      = "db-you-name"
	IDRecipientTitle = "db-designated-title"
	IDRecipientName  = "db-designated-name"
	IDForeword       = "db-foreword-text"
	IDSignoff        = "db-foreword-signoff"
)

// SettingsSection is the section that configures the archive itself. It
// feeds the spotlight and is excluded from the rendered body.
const SettingsSection = "Archive Settings"

// Spotlight carries the handful of pinned-id values the layout surfaces in
// the artifact's front matter.
type Spotlight struct {
	OwnerTitle     string
	OwnerName      string
	RecipientTitle string
	RecipientName  string
	Foreword       string
	Signoff        string
}

// CollectSpotlight resolves the spotlight values from an instance by
// pinned id.
func CollectSpotlight(in document.Instance) Spotlight {
	values := make(map[string]string, 6)
	for _, sec := range in.Sections {
		collectByID(sec.Fields, values)
	}
	return Spotlight{
		OwnerTitle:     values[IDOwnerTitle],
		OwnerName:      values[IDOwnerName],
		RecipientTitle: values[IDRecipientTitle],
		RecipientName:  values[IDRecipientName],
		Foreword:       values[IDForeword],
		Signoff:        values[IDSignoff],
	}
}

func collectByID(nodes []document.Node, values map[string]string) {
	for _, node := range nodes {
		if node.Leaf() {
			if node.ID != "" {
				values[node.ID] = node.Value
			}
			continue
		}
		collectByID(node.Fields, values)
	}
}

// ValidationError lists every missing required spotlight field, one
// corrective message each, so the user can fix them all in one pass.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "export: " + strings.Join(e.Messages, "; ")
}

// Validate blocks generation until the required spotlight fields hold
// data. Nothing is rendered when it fails.
func (s Spotlight) Validate() error {
	var messages []string
	if s.RecipientName == "" {
		messages = append(messages, fmt.Sprintf("provide the name of the person appointed to open your archive in the %q section", SettingsSection))
	}
	if s.Foreword == "" {
		messages = append(messages, fmt.Sprintf("provide a custom message to the person who opens your archive in the %q section", SettingsSection))
	}
	if s.Signoff == "" {
		messages = append(messages, fmt.Sprintf("provide a custom sign-off name in the %q section", SettingsSection))
	}
	if s.OwnerName == "" {
		messages = append(messages, `provide your full name in the "You and Your Dearest" section`)
	}
	if messages != nil {
		return &ValidationError{Messages: messages}
	}
	return nil
}

// Options controls which sections make it into the artifact.
type Options struct {
	// OnlyComplete drops every section the user has not explicitly marked
	// complete. The flag is about the user's own judgement, not about
	// whether a section happens to contain data.
	OnlyComplete bool
	GeneratedAt  time.Time
}

// Artifact is the layout collaborator's input: reconciled data plus the
// spotlight, with the settings section already stripped. The layout reads
// values; it knows nothing about templates or reconciliation.
type Artifact struct {
	Spotlight   Spotlight
	Sections    []document.Section
	GeneratedAt time.Time
}

// Prepare validates the spotlight and assembles the layout input from an
// instance snapshot.
func Prepare(in document.Instance, opts Options) (Artifact, error) {
	spot := CollectSpotlight(in)
	if err := spot.Validate(); err != nil {
		return Artifact{}, err
	}

	marked := make(map[string]struct{}, len(in.Completed))
	for _, title := range in.Completed {
		marked[title] = struct{}{}
	}

	art := Artifact{Spotlight: spot, GeneratedAt: opts.GeneratedAt}
	if art.GeneratedAt.IsZero() {
		art.GeneratedAt = time.Now().UTC()
	}
	for _, sec := range in.Sections {
		if sec.Title == SettingsSection {
			continue
		}
		if opts.OnlyComplete {
			if _, ok := marked[sec.Title]; !ok {
				continue
			}
		}
		art.Sections = append(art.Sections, sec)
	}
	return art, nil
}

// Layout renders an artifact into its delivery form. Implementations own
// pagination and typography and nothing else.
type Layout interface {
	Render(art Artifact) ([]byte, error)
}
