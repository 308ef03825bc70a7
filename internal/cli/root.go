// Package cli wires the archive engine to a terminal: cobra commands,
// passphrase prompts, spinners during key derivation and atomic file
// writes. All engine behavior lives in pkg/; this package only translates
// between files, flags and prompts.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/keepsake-archive/keepsake/internal/logging"
	"github.com/keepsake-archive/keepsake/internal/prompt"
)

var (
	verbose bool
	debug   bool
	log     logging.Logger
	driver  prompt.Driver

	rootCmd = &cobra.Command{
		Use:   "keepsake",
		Short: "Offline encrypted personal archive",
		Long: `Keepsake maintains an encrypted questionnaire of personal records,
account details and final wishes, for the attention of one designated
person. Everything runs locally; nothing ever leaves the machine.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log = logging.Logger{Verbose: verbose, Debug: debug}
			if driver == nil {
				driver = prompt.NewSurveyDriver()
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")

	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(decryptCmd)
	rootCmd.AddCommand(jsonCmd)
	rootCmd.AddCommand(checksumCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetDriver replaces the prompt driver, for tests.
func SetDriver(d prompt.Driver) {
	driver = d
}
