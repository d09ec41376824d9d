package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"proctored-quiz-service/internal/app"
	"proctored-quiz-service/internal/config"
	"proctored-quiz-service/internal/domain"
	pgstore "proctored-quiz-service/internal/infra/postgres"
	"proctored-quiz-service/internal/logging"
)

// NewUserCmd groups account administration. Professors can only be created here.
func NewUserCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newUserAddCmd(configPath))
	return cmd
}

func newUserAddCmd(configPath *string) *cobra.Command {
	var username, password, email, role string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a student or professor account",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := domain.ParseRole(role)
			if err != nil {
				return err
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := logging.New("quiz-service", cfg.Log.Level, cfg.Log.Format)
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			accounts := app.NewAccountService(pgstore.NewUserStore(db), nil, nil, app.AccountOptions{Logger: log})
			user, err := accounts.Register(cmd.Context(), app.RegisterRequest{
				Username: username,
				Password: password,
				Email:    email,
				Role:     parsed,
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "created %s %s\n", user.Role, user.Username)
			return err
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "account username")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	cmd.Flags().StringVar(&email, "email", "", "notification address")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleStudent), "student or professor")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
