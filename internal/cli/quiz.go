package cli

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"proctored-quiz-service/internal/config"
	"proctored-quiz-service/internal/infra/memory"
	pgstore "proctored-quiz-service/internal/infra/postgres"
	redisstore "proctored-quiz-service/internal/infra/redis"
	"proctored-quiz-service/internal/logging"
)

// NewQuizCmd groups quiz content administration.
func NewQuizCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Manage quiz content",
	}
	cmd.AddCommand(newQuizImportCmd(configPath))
	return cmd
}

func newQuizImportCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Validate a YAML quiz file and store it in postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			quiz, err := memory.LoadQuizFile(file)
			if err != nil {
				return err
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured (set postgres.url or POSTGRES_URL)")
			}
			log := logging.New("quiz-service", cfg.Log.Level, cfg.Log.Format)

			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()
			loader := pgstore.NewQuizLoader(pool)
			if err := loader.SaveQuiz(ctx, quiz); err != nil {
				return err
			}

			if cfg.Redis.Addr != "" {
				client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
				defer client.Close()
				cache := redisstore.NewQuizRepository(client, loader, config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute))
				if err := cache.Invalidate(ctx, quiz.ID); err != nil {
					log.WithError(err).Warn("cached quiz not invalidated")
				}
			}
			log.WithFields(logrus.Fields{"quiz_id": quiz.ID, "questions": len(quiz.Questions)}).Info("quiz imported")
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML quiz definition")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
