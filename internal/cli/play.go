package cli

import (
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"trivia-quiz/internal/config"
	"trivia-quiz/internal/tui"
)

// isTerminal is swapped in tests.
var isTerminal = func(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// NewPlayCmd runs an interactive quiz in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var bank string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
				return errors.New("play needs an interactive terminal")
			}
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			// log lines would tear the alt screen
			config.Logger().SetOutput(io.Discard)

			d, err := buildService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer d.Close()

			return tui.Run(cmd.Context(), d.service, tui.Options{
				Bank:              bank,
				ShowUserName:      cfg.UI.ShowUserName,
				ProgressiveReveal: cfg.UI.ProgressiveReveal,
				NoColor:           cfg.UI.NoColor,
			}, os.Stdin, os.Stdout)
		},
	}
	cmd.Flags().StringVar(&bank, "bank", "", "question bank id (defaults to source.default_bank)")
	return cmd
}
