package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keepsake-archive/keepsake/internal/prompt"
	"github.com/keepsake-archive/keepsake/pkg/archive"
	"github.com/keepsake-archive/keepsake/pkg/envelope"
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Start a new archive from the bundled template",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		arc, err := archive.New()
		if err != nil {
			return err
		}
		session := &editSession{ctx: cmd.Context(), arc: arc}
		if err := session.run(); err != nil && !errors.Is(err, prompt.ErrAborted) {
			return err
		}
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume <file.enc>",
	Short: "Resume editing from an encrypted progress file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readEnvelope(args[0])
		if err != nil {
			return err
		}
		arc, err := archive.New(archive.WithAsker(driverAsker{ctx: cmd.Context()}))
		if err != nil {
			return err
		}

		pass, err := askPassphrase(cmd.Context(), false)
		if err != nil {
			if errors.Is(err, prompt.ErrAborted) {
				return nil
			}
			return err
		}

		sp, cleanup := startSpinner("Decrypting your archive...")
		report, err := arc.LoadProgress(data, pass)
		if err != nil {
			cleanup()
			if errors.Is(err, envelope.ErrDecryptFailed) {
				return fmt.Errorf("could not decrypt %s: wrong passphrase or corrupted file", args[0])
			}
			return err
		}
		sp.FinalMSG = success("Archive unlocked")
		cleanup()

		if !report.Empty() {
			for _, title := range report.AddedSections {
				log.Infof("added new section %q from the current template", title)
			}
			for section, fields := range report.AddedFields {
				log.Infof("added %d new field(s) to %q", len(fields), section)
			}
		}

		session := &editSession{ctx: cmd.Context(), arc: arc}
		if err := session.run(); err != nil && !errors.Is(err, prompt.ErrAborted) {
			return err
		}
		return nil
	},
}
