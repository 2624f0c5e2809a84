package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"party-quiz-service/internal/app"
	"party-quiz-service/internal/config"
	"party-quiz-service/internal/domain"
	"party-quiz-service/internal/infra/memory"
	"party-quiz-service/internal/infra/postgres"
	redisinfra "party-quiz-service/internal/infra/redis"
	"party-quiz-service/internal/logger"
	transport "party-quiz-service/internal/transport/http"
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

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Pretty)

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
		defer redisClient.Close()
	}

	var (
		pool *pgxpool.Pool
		db   *bun.DB
	)
	if cfg.Postgres.URL != "" {
		db = openBunDB(cfg.Postgres.URL)
		defer db.Close()
		if err := applyMigrations(ctx, db); err != nil {
			return err
		}
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	loader, err := quizLoader(cfg, pool)
	if err != nil {
		return err
	}
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizzes app.QuizRepository
	if redisClient != nil {
		quizzes = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizzes = memory.NewQuizRepository(loader, quizTTL)
	}

	ctx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()

	var rooms app.RoomRegistry
	if redisClient != nil {
		store := redisinfra.NewRoomStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 12*time.Hour))
		go store.KeepAlive(ctx)
		rooms = store
	} else {
		rooms = memory.NewRoomStore()
	}

	opts := []app.Option{
		app.WithQuizRepository(quizzes),
		app.WithAdvanceDelay(config.TTLDuration(cfg.Game.AdvanceDelay, app.DefaultAdvanceDelay)),
	}
	routerCfg := transport.RouterConfig{
		PublicURL:   cfg.Server.PublicURL,
		CORSOrigins: cfg.Server.CORSOrigins,
	}
	if db != nil {
		results := postgres.NewResultStore(db)
		opts = append(opts, app.WithResultRecorder(results))
		routerCfg.Results = results
	}

	hub := transport.NewHub()
	service := app.NewQuizService(rooms, hub, opts...)
	defer service.Shutdown()

	connCfg := transport.DefaultConnConfig()
	connCfg.RateLimit = cfg.Game.RateLimit
	connCfg.Burst = cfg.Game.Burst
	wsHandler := transport.NewWSHandler(service, hub, connCfg)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           transport.NewRouter(service, hub, wsHandler, routerCfg),
		ReadHeaderTimeout: 15 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", finalPort).Bool("redis", redisClient != nil).Bool("postgres", db != nil).Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		log.Info().Msg("shutting down server")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server")
	case err := <-serveErr:
		log.Error().Err(err).Msg("server failed")
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// quizLoader prefers a YAML quiz bank, then Postgres. Without either, stored
// quizzes are simply unavailable.
func quizLoader(cfg config.Config, pool *pgxpool.Pool) (memory.QuizLoader, error) {
	switch {
	case cfg.Quiz.BankPath != "":
		bank, err := memory.LoadQuizBank(cfg.Quiz.BankPath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.Quiz.BankPath).Msg("quiz bank loaded")
		return bank, nil
	case pool != nil:
		return postgres.NewQuizLoader(pool), nil
	default:
		return memory.NewStaticQuizLoader(map[string]domain.Quiz{}), nil
	}
}
