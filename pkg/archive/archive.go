// Package archive coordinates the full engine pipeline: template loading,
// live tree state, reconciliation of saved progress, encrypted persistence
// and final artifact generation. It never talks to a terminal directly;
// every decision point is injected so callers choose the interaction
// surface.
package archive

import (
	"errors"

	"github.com/keepsake-archive/keepsake/pkg/export"
	"github.com/keepsake-archive/keepsake/pkg/reconcile"
	"github.com/keepsake-archive/keepsake/pkg/schema"
	"github.com/keepsake-archive/keepsake/pkg/tree"
)

// ErrDeclined is returned when an injected confirmation point rejects an
// operation. The archive is left exactly as it was.
var ErrDeclined = errors.New("archive: declined")

// Confirmer answers the archive's yes/no questions: sanity-check warnings,
// plaintext export gates. Implementations typically wrap a terminal
// prompt; tests script the answers.
type Confirmer interface {
	Confirm(message string) (bool, error)
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(message string) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmerFunc) Confirm(message string) (bool, error) { return f(message) }

// Option customises the archive configuration.
type Option func(*Archive)

// WithTemplate replaces the bundled canonical template.
func WithTemplate(tpl schema.Template) Option {
	return func(a *Archive) {
		a.tpl = tpl
	}
}

// WithLayout replaces the layout used for final artifacts.
func WithLayout(layout export.Layout) Option {
	return func(a *Archive) {
		a.layout = layout
	}
}

// WithAsker injects the collaborator consulted before any loaded document
// is widened to match the canonical template. Without one, every addition
// is declined and loaded documents keep their shape.
func WithAsker(asker reconcile.Asker) Option {
	return func(a *Archive) {
		a.asker = asker
	}
}

// Archive owns the canonical template and the live field tree. All
// structural mutation goes through it so ids and completion state stay
// coherent.
type Archive struct {
	tpl    schema.Template
	tree   *tree.Tree
	layout export.Layout
	asker  reconcile.Asker
}

// New constructs an archive with a fresh tree built from the canonical
// template. Missing collaborators fall back to the bundled defaults.
func New(options ...Option) (*Archive, error) {
	a := &Archive{layout: export.TextLayout{}}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(a)
	}
	if a.tpl == nil {
		tpl, err := schema.Default()
		if err != nil {
			return nil, err
		}
		a.tpl = tpl
	}
	t, err := tree.Build(a.tpl)
	if err != nil {
		return nil, err
	}
	a.tree = t
	return a, nil
}

// Tree exposes the live field tree for editing.
func (a *Archive) Tree() *tree.Tree { return a.tree }

// Template returns the canonical template the archive was built from.
func (a *Archive) Template() schema.Template { return a.tpl }

// Wipe discards the live tree and replaces it with a fresh one built from
// the canonical template. Values, repetitions and completion marks are
// gone afterwards.
func (a *Archive) Wipe() error {
	t, err := tree.Build(a.tpl)
	if err != nil {
		return err
	}
	a.tree = t
	return nil
}
