package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/natefinch/atomic"

	"github.com/keepsake-archive/keepsake/internal/prompt"
	"github.com/keepsake-archive/keepsake/pkg/archive"
	"github.com/keepsake-archive/keepsake/pkg/reconcile"
)

const envelopeExt = ".enc"

// startSpinner shows a spinner while slow work (key derivation) runs.
// Returns the spinner and a cleanup to defer. In verbose or debug mode the
// spinner stays off so log lines are not clobbered.
func startSpinner(message string) (*spinner.Spinner, func()) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	if err := s.Color("cyan"); err != nil {
		log.Warnf("failed to set spinner color: %v", err)
	}

	if !verbose && !debug {
		s.Start()
	}
	cleanup := func() {
		if !verbose && !debug {
			s.Stop()
		}
		if s.FinalMSG != "" {
			fmt.Print(strings.TrimRight(s.FinalMSG, "\n") + "\n")
		}
	}
	return s, cleanup
}

// readEnvelope loads an encrypted file, rejecting wrong extensions up
// front so the user gets a file-handling message instead of a misleading
// decryption failure.
func readEnvelope(path string) ([]byte, error) {
	if filepath.Ext(path) != envelopeExt {
		return nil, fmt.Errorf("%s is not a %s file; pick the encrypted file you downloaded from keepsake", path, envelopeExt)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// writeAtomic writes a file all-or-nothing so a crash mid-write never
// leaves a truncated archive behind.
func writeAtomic(path string, data []byte) error {
	if err := atomic.WriteFile(path, strings.NewReader(string(data))); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// askPassphrase prompts for a passphrase, optionally twice for
// confirmation when creating a new envelope.
func askPassphrase(ctx context.Context, confirm bool) (string, error) {
	pass, err := driver.Password(ctx, prompt.InputConfig{
		Message: "Passphrase:",
		Validator: func(s string) error {
			if s == "" {
				return fmt.Errorf("a passphrase is required")
			}
			return nil
		},
	})
	if err != nil {
		return "", err
	}
	if confirm {
		again, err := driver.Password(ctx, prompt.InputConfig{Message: "Confirm passphrase:"})
		if err != nil {
			return "", err
		}
		if again != pass {
			return "", fmt.Errorf("passphrases do not match")
		}
	}
	return pass, nil
}

// driverConfirmer adapts the prompt driver to the archive's Confirmer.
type driverConfirmer struct {
	ctx context.Context
}

func (c driverConfirmer) Confirm(message string) (bool, error) {
	return driver.Confirm(c.ctx, prompt.ConfirmConfig{Message: message})
}

var _ archive.Confirmer = driverConfirmer{}

// driverAsker adapts the prompt driver to the reconciliation Asker.
type driverAsker struct {
	ctx context.Context
}

func (a driverAsker) ConfirmNewFields(p reconcile.FieldPrompt) bool {
	ok, err := driver.Confirm(a.ctx, prompt.ConfirmConfig{
		Message: fmt.Sprintf("This archive was saved with an older template. Add new fields (starting with %q in %q)?", p.FieldName, p.SectionTitle),
		Default: true,
	})
	if err != nil {
		// Treat an aborted prompt as a decline; the merge stays additive
		// and the load continues with the document as saved.
		return false
	}
	return ok
}

func (a driverAsker) ConfirmNewSections(titles []string) bool {
	ok, err := driver.Confirm(a.ctx, prompt.ConfirmConfig{
		Message: fmt.Sprintf("The current template has %d new section(s): %s. Add them?", len(titles), strings.Join(titles, ", ")),
		Default: true,
	})
	if err != nil {
		return false
	}
	return ok
}

var _ reconcile.Asker = driverAsker{}

func success(msg string) string {
	return color.GreenString("✓") + " " + msg
}
