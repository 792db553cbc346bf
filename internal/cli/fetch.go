package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"trivia-quiz/internal/config"
	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/infra/postgres"
)

// NewFetchCmd fetches and normalizes a bank, optionally persisting the raw payload.
func NewFetchCmd(configPath *string) *cobra.Command {
	var (
		bank string
		save bool
		raw  bool
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch a question bank and print the normalized questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			d, err := buildService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer d.Close()

			rawBank, err := d.service.RawBank(cmd.Context(), bank)
			if err != nil {
				return err
			}
			if raw {
				_, err = cmd.OutOrStdout().Write(append(rawBank.Payload, '\n'))
				return err
			}
			questions, err := d.service.FetchQuestions(cmd.Context(), rawBank.ID)
			if err != nil {
				return err
			}
			if err := printQuestions(cmd.OutOrStdout(), questions); err != nil {
				return err
			}

			if !save {
				return nil
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("--save needs postgres.url")
			}
			if err := runMigrations(cmd.Context(), cfg); err != nil {
				return err
			}
			db := postgres.OpenDB(cfg.Postgres.URL)
			defer db.Close()
			if err := postgres.NewBankStore(db).SaveBank(cmd.Context(), rawBank); err != nil {
				return err
			}
			config.WithContext(cmd.Context()).WithFields(logrus.Fields{
				"bank":      rawBank.ID,
				"questions": len(questions),
			}).Info("bank saved")
			return nil
		},
	}
	cmd.Flags().StringVar(&bank, "bank", "", "question bank id (defaults to source.default_bank)")
	cmd.Flags().BoolVar(&save, "save", false, "store the raw payload in postgres question_banks")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the upstream payload instead of normalized questions")
	return cmd
}

func printQuestions(w io.Writer, questions []domain.Question) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(questions)
}
