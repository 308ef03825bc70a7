package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/keepsake-archive/keepsake/internal/prompt"
	"github.com/keepsake-archive/keepsake/pkg/archive"
	"github.com/keepsake-archive/keepsake/pkg/envelope"
	"github.com/keepsake-archive/keepsake/pkg/export"
)

var (
	exportOnlyComplete bool
	exportPlaintext    bool
	exportOut          string
)

func init() {
	exportCmd.Flags().BoolVar(&exportOnlyComplete, "only-complete", false, "include only sections marked complete")
	exportCmd.Flags().BoolVar(&exportPlaintext, "plaintext", false, "write the artifact unencrypted (asked to confirm)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output path (default derived from owner name)")
	decryptCmd.Flags().StringVarP(&decryptOut, "out", "o", "", "output path (default stdout)")
	jsonCmd.Flags().BoolVarP(&jsonYes, "yes", "y", false, "skip the unencrypted-output confirmation")
	jsonCmd.Flags().StringVarP(&jsonOut, "out", "o", "", "output path (default derived from owner name)")
	saveCmd.Flags().StringVarP(&saveOut, "out", "o", "", "output path (default overwrites the input)")
}

// loadArchiveFrom decrypts a progress file into a fresh archive.
func loadArchiveFrom(cmd *cobra.Command, path string) (*archive.Archive, error) {
	data, err := readEnvelope(path)
	if err != nil {
		return nil, err
	}
	arc, err := archive.New(archive.WithAsker(driverAsker{ctx: cmd.Context()}))
	if err != nil {
		return nil, err
	}
	pass, err := askPassphrase(cmd.Context(), false)
	if err != nil {
		return nil, err
	}
	sp, cleanup := startSpinner("Decrypting your archive...")
	if _, err := arc.LoadProgress(data, pass); err != nil {
		cleanup()
		if errors.Is(err, envelope.ErrDecryptFailed) {
			return nil, fmt.Errorf("could not decrypt %s: wrong passphrase or corrupted file", path)
		}
		return nil, err
	}
	sp.FinalMSG = success("Archive unlocked")
	cleanup()
	return arc, nil
}

var exportCmd = &cobra.Command{
	Use:   "export <file.enc>",
	Short: "Generate the final archive document from a progress file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		arc, err := loadArchiveFrom(cmd, args[0])
		if err != nil {
			return err
		}

		var pass string
		if exportPlaintext {
			ok, err := driver.Confirm(cmd.Context(), prompt.ConfirmConfig{
				Message: "The file will be readable by ANYONE who finds it. Are you absolutely sure?",
			})
			if err != nil || !ok {
				return err
			}
		} else {
			if pass, err = askPassphrase(cmd.Context(), true); err != nil {
				return err
			}
		}

		out, err := arc.GenerateFinal(pass, archive.FinalOptions{
			OnlyComplete: exportOnlyComplete,
			Plaintext:    exportPlaintext,
		})
		if err != nil {
			var verr *export.ValidationError
			if errors.As(err, &verr) {
				for _, msg := range verr.Messages {
					log.Errorf("%s", msg)
				}
				return fmt.Errorf("the archive is not ready to export")
			}
			return err
		}

		path := exportOut
		if path == "" {
			ext := envelopeExt
			if exportPlaintext {
				ext = ".txt"
			}
			path = arc.Filename(ext, time.Now())
		}
		if err := writeAtomic(path, out); err != nil {
			return err
		}
		fmt.Println(success(fmt.Sprintf("Final archive written to %s\n  checksum: %s", path, envelope.Checksum(out))))
		return nil
	},
}

var decryptOut string

var decryptCmd = &cobra.Command{
	Use:   "decrypt <file.enc>",
	Short: "Decrypt a final archive document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readEnvelope(args[0])
		if err != nil {
			return err
		}
		pass, err := askPassphrase(cmd.Context(), false)
		if err != nil {
			return err
		}
		_, cleanup := startSpinner("Decrypting...")
		plain, err := envelope.OpenFinal(data, pass)
		cleanup()
		switch {
		case errors.Is(err, envelope.ErrProgressFile):
			return fmt.Errorf("%s is a saved progress file, not a final archive; run 'keepsake resume %s' instead", args[0], args[0])
		case errors.Is(err, envelope.ErrDecryptFailed):
			return fmt.Errorf("could not decrypt %s: wrong passphrase or corrupted file", args[0])
		case err != nil:
			return err
		}
		if decryptOut == "" {
			_, err = os.Stdout.Write(plain)
			return err
		}
		if err := writeAtomic(decryptOut, plain); err != nil {
			return err
		}
		fmt.Println(success("Decrypted archive written to " + decryptOut))
		return nil
	},
}

var (
	jsonYes bool
	jsonOut string
)

var jsonCmd = &cobra.Command{
	Use:   "json <file.enc>",
	Short: "Dump a progress file as unencrypted JSON for inspection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !jsonYes {
			ok, err := driver.Confirm(cmd.Context(), prompt.ConfirmConfig{
				Message: "This writes your data as UNENCRYPTED JSON, including passwords. Continue?",
			})
			if err != nil || !ok {
				return err
			}
		}
		arc, err := loadArchiveFrom(cmd, args[0])
		if err != nil {
			return err
		}
		data, err := arc.ExportJSON()
		if err != nil {
			return err
		}
		path := jsonOut
		if path == "" {
			path = arc.Filename(".json", time.Now())
		}
		if err := writeAtomic(path, data); err != nil {
			return err
		}
		fmt.Println(success("Diagnostic JSON written to " + path))
		return nil
	},
}

var saveOut string

var saveCmd = &cobra.Command{
	Use:   "save <file.enc>",
	Short: "Re-encrypt a progress file under a new passphrase",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readEnvelope(args[0])
		if err != nil {
			return err
		}
		if err := driver.Info(cmd.Context(), "Enter the file's current passphrase."); err != nil {
			return err
		}
		current, err := askPassphrase(cmd.Context(), false)
		if err != nil {
			return err
		}
		plain, err := envelope.Open(data, current)
		if errors.Is(err, envelope.ErrDecryptFailed) {
			return fmt.Errorf("could not decrypt %s: wrong passphrase or corrupted file", args[0])
		}
		if err != nil {
			return err
		}
		if err := driver.Info(cmd.Context(), "Choose the new passphrase."); err != nil {
			return err
		}
		next, err := askPassphrase(cmd.Context(), true)
		if err != nil {
			return err
		}
		sealed, err := envelope.Seal(plain, next)
		if err != nil {
			return err
		}
		path := saveOut
		if path == "" {
			path = args[0]
		}
		if err := writeAtomic(path, sealed); err != nil {
			return err
		}
		fmt.Println(success(fmt.Sprintf("Re-encrypted %s\n  checksum: %s", path, envelope.Checksum(sealed))))
		return nil
	},
}

var checksumCmd = &cobra.Command{
	Use:   "checksum <file>",
	Short: "Print the SHA-256 checksum of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s\n", envelope.Checksum(data), args[0])
		return nil
	},
}
