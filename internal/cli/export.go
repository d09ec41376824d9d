package cli

import (
	"github.com/spf13/cobra"
	"proctored-quiz-service/internal/config"
	"proctored-quiz-service/internal/export"
	pgstore "proctored-quiz-service/internal/infra/postgres"
)

// NewExportCmd writes stored results as CSV to stdout.
func NewExportCmd(configPath *string) *cobra.Command {
	var section string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export quiz results as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			results, err := pgstore.NewUserStore(db).Results(cmd.Context(), section)
			if err != nil {
				return err
			}
			return export.WriteResultsCSV(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().StringVar(&section, "section", "", "section to export; empty exports every result")
	return cmd
}
