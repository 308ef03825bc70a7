package archive

import (
	"strings"
	"time"

	"github.com/keepsake-archive/keepsake/pkg/envelope"
	"github.com/keepsake-archive/keepsake/pkg/export"
)

// FinalOptions controls artifact generation.
type FinalOptions struct {
	// OnlyComplete restricts the artifact to sections the user explicitly
	// marked complete.
	OnlyComplete bool
	// Plaintext skips the encryption envelope. The engine does not confirm
	// this; callers must have asked loudly before setting it.
	Plaintext bool
	// GeneratedAt stamps the artifact footer. Zero means now.
	GeneratedAt time.Time
}

// GenerateFinal validates the spotlight fields, renders the final artifact
// and seals it, then wipes the live tree. Nothing is produced and nothing
// is wiped when validation or rendering fails, so an aborted run leaves
// the session intact.
func (a *Archive) GenerateFinal(passphrase string, opts FinalOptions) ([]byte, error) {
	in, _ := a.tree.Snapshot()
	art, err := export.Prepare(in, export.Options{
		OnlyComplete: opts.OnlyComplete,
		GeneratedAt:  opts.GeneratedAt,
	})
	if err != nil {
		return nil, err
	}
	rendered, err := a.layout.Render(art)
	if err != nil {
		return nil, err
	}

	out := rendered
	if !opts.Plaintext {
		out, err = envelope.Seal(rendered, passphrase)
		if err != nil {
			return nil, err
		}
	}

	// The artifact now holds everything; the live session must not keep a
	// second copy of the data around.
	if err := a.Wipe(); err != nil {
		return nil, err
	}
	return out, nil
}

// OwnerName returns the archive owner's name from the live tree, or empty
// when unset.
func (a *Archive) OwnerName() string {
	in, _ := a.tree.Snapshot()
	return export.CollectSpotlight(in).OwnerName
}

// Filename derives an output file name from the owner's name and a UTC
// timestamp. The extension must include the leading dot.
func (a *Archive) Filename(ext string, at time.Time) string {
	if at.IsZero() {
		at = time.Now()
	}
	name := slug(a.OwnerName())
	if name == "" {
		name = "archive"
	}
	return "keepsake-" + name + "-" + at.UTC().Format("20060102-150405") + ext
}

func slug(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
