package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"immersive-exam-service/internal/agent"
	"immersive-exam-service/internal/app"
	"immersive-exam-service/internal/config"
	"immersive-exam-service/internal/domain"
	"immersive-exam-service/internal/generator"
	"immersive-exam-service/internal/infra/memory"
	pgstore "immersive-exam-service/internal/infra/postgres"
	redisinfra "immersive-exam-service/internal/infra/redis"
	transport "immersive-exam-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the exam server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var registry app.ExamRegistry
	if redisClient != nil {
		registry = redisinfra.NewExamRegistry(redisClient, redisTTL)
	} else {
		registry = memory.NewExamRegistry()
	}

	var results app.ResultsArchive
	if pool != nil {
		results = pgstore.NewResultsStore(pool)
	} else {
		results = memory.NewResultsArchive()
	}
	if redisClient != nil {
		resultsTTL := config.TTLDuration(cfg.Exam.ResultsTTL, time.Hour)
		results = redisinfra.NewResultsCache(redisClient, results, resultsTTL)
	}

	apiKey := cfg.OpenAI.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	var questionGen app.QuestionGenerator = generator.NewArithmetic()
	var solver agent.Solver = agent.Arithmetic{}
	if apiKey != "" {
		questionGen = generator.NewOpenAI(apiKey)
		solver = agent.NewOpenAISolver(apiKey)
	}

	service := app.NewExamService(registry, questionGen, results)
	runner := agent.NewRunner(service, solver)

	perQuestion := config.TTLDuration(cfg.Exam.TimePerQuestion, 0)
	examHandler := transport.NewExamHandler(service, runner, defaultDistribution(cfg), perQuestion)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/exams", examHandler.ServeCreate)
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting exam service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// defaultDistribution falls back to a small mixed exam when the config does
// not name one.
func defaultDistribution(cfg config.Config) domain.DifficultyDistribution {
	if len(cfg.Exam.DefaultDistribution) > 0 {
		dist := make(domain.DifficultyDistribution, len(cfg.Exam.DefaultDistribution))
		for difficulty, count := range cfg.Exam.DefaultDistribution {
			dist[domain.Difficulty(difficulty)] = count
		}
		return dist
	}
	return domain.DifficultyDistribution{
		domain.DifficultyEasy:   2,
		domain.DifficultyMedium: 2,
		domain.DifficultyHard:   1,
	}
}
