package archive

import (
	"encoding/json"
	"fmt"

	"github.com/keepsake-archive/keepsake/pkg/document"
	"github.com/keepsake-archive/keepsake/pkg/envelope"
	"github.com/keepsake-archive/keepsake/pkg/reconcile"
	"github.com/keepsake-archive/keepsake/pkg/tree"
)

// LoadProgress decrypts a saved progress envelope, reconciles the decoded
// instance against the canonical template and replaces the live tree with
// the result. The returned report lists what reconciliation added; it is
// empty when the document already matched the template.
//
// On any error the live tree is untouched.
func (a *Archive) LoadProgress(data []byte, passphrase string) (reconcile.Report, error) {
	plaintext, err := envelope.Open(data, passphrase)
	if err != nil {
		return reconcile.Report{}, err
	}
	text, err := document.DecodeUTF16(plaintext)
	if err != nil {
		return reconcile.Report{}, fmt.Errorf("archive: decode progress: %w", err)
	}
	in, err := document.Unmarshal([]byte(text))
	if err != nil {
		return reconcile.Report{}, fmt.Errorf("archive: parse progress: %w", err)
	}

	session := reconcile.NewSession(a.asker)
	merged, report := reconcile.Apply(a.tpl, in, session)

	t, err := tree.Load(a.tpl, merged)
	if err != nil {
		return reconcile.Report{}, err
	}
	a.tree = t
	return report, nil
}

// SaveProgress serializes the live tree and seals it with the passphrase.
// When the serialized section count disagrees with the canonical count the
// confirmer is warned first; declining aborts the save with no side
// effects. The snapshot stats are returned alongside so callers can show
// progress figures.
func (a *Archive) SaveProgress(passphrase string, confirm Confirmer) ([]byte, tree.Stats, error) {
	in, stats := a.tree.Snapshot()
	if stats.SectionCountMismatch {
		if confirm == nil {
			return nil, stats, fmt.Errorf("archive: section count mismatch: %w", ErrDeclined)
		}
		ok, err := confirm.Confirm(fmt.Sprintf(
			"this archive has %d sections but the template defines %d; it may not load back correctly. Save anyway?",
			stats.TotalSections, len(a.tpl)))
		if err != nil {
			return nil, stats, err
		}
		if !ok {
			return nil, stats, ErrDeclined
		}
	}

	payload, err := document.Marshal(in)
	if err != nil {
		return nil, stats, fmt.Errorf("archive: serialize progress: %w", err)
	}
	sealed, err := envelope.Seal(document.EncodeUTF16(string(payload)), passphrase)
	if err != nil {
		return nil, stats, err
	}
	return sealed, stats, nil
}

// ExportJSON serializes the live tree as indented plain JSON. The output
// is unencrypted and carries every value including sensitive ones; callers
// gate it behind an explicit confirmation.
func (a *Archive) ExportJSON() ([]byte, error) {
	in, _ := a.tree.Snapshot()
	entries, err := document.Marshal(in)
	if err != nil {
		return nil, err
	}
	var pretty []json.RawMessage
	if err := json.Unmarshal(entries, &pretty); err != nil {
		return nil, err
	}
	return json.MarshalIndent(pretty, "", "  ")
}
