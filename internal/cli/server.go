package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"proctored-quiz-service/internal/app"
	"proctored-quiz-service/internal/auth"
	"proctored-quiz-service/internal/camera"
	"proctored-quiz-service/internal/config"
	"proctored-quiz-service/internal/domain"
	"proctored-quiz-service/internal/infra/memory"
	pgstore "proctored-quiz-service/internal/infra/postgres"
	redisstore "proctored-quiz-service/internal/infra/redis"
	"proctored-quiz-service/internal/logging"
	"proctored-quiz-service/internal/metrics"
	"proctored-quiz-service/internal/notify"
	transport "proctored-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

type userBackend interface {
	app.UserRepository
	app.AttemptLedger
	app.ResultReader
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New("quiz-service", cfg.Log.Level, cfg.Log.Format)

	if cfg.Auth.JWTSecret == "" {
		return errors.New("jwt secret not configured (set auth.jwt_secret or JWT_SECRET)")
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var (
		users userBackend = memory.NewStore()
		pool  *pgxpool.Pool
		db    *bun.DB
	)
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
		if db, err = openDB(cfg); err != nil {
			return err
		}
		defer db.Close()
		users = pgstore.NewUserStore(db)

		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
	} else {
		log.Warn("postgres not configured, users and results are kept in memory")
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
	}

	loader, defaultQuiz, err := quizLoader(ctx, cfg, pool, log)
	if err != nil {
		return err
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var (
		quizRepo app.QuizRepository
		presence app.PresenceSet
		otps     app.OTPStore
	)
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
		presence = redisstore.NewPresenceSet(redisClient)
		otps = redisstore.NewOTPStore(redisClient)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
		presence = memory.NewPresenceSet()
		otps = memory.NewOTPStore()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	dispatcher := notify.NewDispatcher(mailSender(cfg, log), config.TTLDuration(cfg.Mail.Timeout, 10*time.Second), log)
	dispatcher.OnDone(m.ObserveNotification)
	defer dispatcher.Close()

	monitor := camera.NewMonitor(config.TTLDuration(cfg.Camera.HeartbeatWindow, 5*time.Second))

	quiz := app.NewQuizService(app.QuizDeps{
		Users:    users,
		Ledger:   users,
		Results:  users,
		Sessions: memory.NewSessionStore(),
		Quizzes:  quizRepo,
		Presence: presence,
		Camera:   monitor,
		Notifier: dispatcher,
	}, app.QuizOptions{
		TimeLimit:     config.TTLDuration(cfg.Quiz.TimeLimit, domain.DefaultTimeLimit),
		MaxAttempts:   cfg.Quiz.MaxAttempts,
		DefaultQuizID: defaultQuiz,
		Logger:        log,
		Metrics:       m,
	})
	accounts := app.NewAccountService(users, otps, dispatcher, app.AccountOptions{
		MaxPasswordChanges: cfg.Auth.MaxPasswordChanges,
		RequireEmailOTP:    cfg.Auth.RequireEmailOTP,
		OTPTTL:             config.TTLDuration(cfg.Auth.OTPTTL, 10*time.Minute),
		Logger:             log,
	})
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, 2*time.Hour))

	router := transport.NewRouter(transport.RouterConfig{
		API:      transport.NewAPIHandler(quiz, accounts, tokens, log),
		Camera:   transport.NewCameraHandler(quiz, monitor, time.Second, log),
		Tokens:   tokens,
		Gatherer: reg,
		Log:      log,
	})

	// no read/write timeouts: they would also cut long-lived camera sockets
	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.WithField("port", finalPort).Info("starting quiz service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// quizLoader picks the quiz source: a YAML file, postgres, or the built-in sample.
func quizLoader(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, log logrus.FieldLogger) (memory.QuizLoader, string, error) {
	defaultQuiz := cfg.Quiz.DefaultQuiz
	switch {
	case cfg.Quiz.File != "":
		quiz, err := memory.LoadQuizFile(cfg.Quiz.File)
		if err != nil {
			return nil, "", err
		}
		if defaultQuiz == "" {
			defaultQuiz = quiz.ID
		}
		return memory.NewStaticQuizLoader(map[string]domain.Quiz{quiz.ID: quiz}), defaultQuiz, nil
	case pool != nil:
		if defaultQuiz == "" {
			defaultQuiz = sampleQuizID
		}
		loader := pgstore.NewQuizLoader(pool)
		if err := seedSampleQuiz(ctx, loader, defaultQuiz, log); err != nil {
			return nil, "", err
		}
		return loader, defaultQuiz, nil
	}
	if defaultQuiz == "" {
		defaultQuiz = sampleQuizID
	}
	return memory.NewStaticQuizLoader(sampleQuizzes()), defaultQuiz, nil
}

type quizSeeder interface {
	SeedQuiz(ctx context.Context, quiz domain.Quiz) (bool, error)
}

// seedSampleQuiz makes the built-in sample available when it is the default quiz and the
// database has none under that id. Imported quizzes are never overwritten.
func seedSampleQuiz(ctx context.Context, seeder quizSeeder, defaultQuiz string, log logrus.FieldLogger) error {
	sample, ok := sampleQuizzes()[defaultQuiz]
	if !ok {
		return nil
	}
	seeded, err := seeder.SeedQuiz(ctx, sample)
	if err != nil {
		return err
	}
	if seeded {
		log.WithField("quiz_id", defaultQuiz).Info("seeded built-in sample quiz")
	}
	return nil
}

func mailSender(cfg config.Config, log logrus.FieldLogger) notify.Sender {
	if cfg.Mail.Host == "" {
		log.Warn("mail relay not configured, notifications are only logged")
		return notify.NewLogSender(log)
	}
	port := cfg.Mail.Port
	if port == 0 {
		port = 587
	}
	return notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	})
}
