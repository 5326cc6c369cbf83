// cmd/bot/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"insert-coin-bot/internal/ai"
	"insert-coin-bot/internal/bot"
	"insert-coin-bot/internal/cache"
	"insert-coin-bot/internal/chain"
	"insert-coin-bot/internal/challenge"
	"insert-coin-bot/internal/config"
	"insert-coin-bot/internal/database"
	"insert-coin-bot/internal/logging"
	"insert-coin-bot/internal/rag"
	"insert-coin-bot/internal/ratelimit"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const serviceName = "insert-coin-bot"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger(cfg.Environment, serviceName)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() // nolint: errcheck

	if err := logging.InitErrorTracking(cfg.SentryDSN, cfg.Environment, serviceName); err != nil {
		logger.Fatal("unable to initialise error tracking", zap.Error(err))
	}
	if cfg.OpenAIAPIKey == "" {
		logger.Fatal("OPENAI_API_KEY is required")
	}

	catalog, err := config.LoadCatalog(cfg.GamesConfigPath)
	if err != nil {
		logger.Fatal("unable to load games catalog", zap.Error(err))
	}

	db, err := database.NewDB(cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	aiService := ai.NewAIService(cfg.OpenAIAPIKey, cfg.OpenAIChatModel, cfg.OpenAIEmbeddingModel, cfg.EmbeddingDimensions)
	classifier := ai.NewClassifier(aiService, cfg.MaxPromptLength, logger.With(zap.String("feature", "classifier")))

	// Redis is optional: without it quotas are per process and accepts rely on the ledger alone.
	var (
		limiter ratelimit.Limiter
		memory  *ratelimit.Memory
		locker  challenge.Locker
	)
	if cfg.RedisAddress != "" {
		redisClient, err := cache.NewClient(cfg.RedisAddress, cfg.RedisPassword)
		if err != nil {
			logger.Fatal("unable to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()

		limiter = ratelimit.NewRedis(redisClient, cfg.MaxUsesPerDay)
		locker = cache.NewLocker(redisClient, cfg.CallTimeout)
	} else {
		memory = ratelimit.NewMemory(cfg.MaxUsesPerDay)
		limiter = memory
		logger.Info("redis not configured, using in-memory rate limits")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.CallTimeout)
	ethClient, err := chain.Dial(ctx, cfg.Web3Provider)
	cancel()
	if err != nil {
		logger.Fatal("unable to connect to web3 provider", zap.Error(err))
	}
	defer ethClient.Close()

	allocator, err := chain.NewAllocator(ethClient, cfg.MatchContractAddress, cfg.TournamentContractAddress)
	if err != nil {
		logger.Fatal("invalid contract configuration", zap.Error(err))
	}

	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		logger.Fatal("error creating discord session", zap.Error(err))
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	channels := bot.NewChannels(session)
	challenges := challenge.NewService(allocator, db, channels, locker, cfg.FrontpageURL, cfg.ChallengeTTL, logger)

	workflow := rag.NewWorkflow(rag.Config{
		AdminID:         cfg.AdminUserID,
		MaxPromptLength: cfg.MaxPromptLength,
		MaxUsesPerDay:   cfg.MaxUsesPerDay,
		MinScore:        cfg.MinPostScore,
		CallTimeout:     cfg.CallTimeout,
	}, classifier, aiService, aiService, db, limiter, challenges, logger)

	handler := bot.NewBotHandler(bot.Options{
		Workflow:      workflow,
		Challenges:    challenges,
		Tournaments:   db,
		Allocator:     allocator,
		Channels:      channels,
		Catalog:       catalog,
		AdminID:       cfg.AdminUserID,
		TournamentURL: cfg.TournamentURL,
		CallTimeout:   cfg.CallTimeout,
		Logger:        logger,
	})
	handler.AddHandlers(session)

	if err := session.Open(); err != nil {
		logger.Fatal("error opening discord connection", zap.Error(err))
	}
	defer session.Close()

	if err := handler.RegisterCommands(session, cfg.DiscordApplicationID, cfg.DiscordGuildID); err != nil {
		logger.Fatal("unable to register commands", zap.Error(err))
	}

	var sweeper bot.Sweeper
	if memory != nil {
		sweeper = memory
	}
	scheduler, err := bot.NewScheduler(challenges, sweeper, cfg.CallTimeout, logger)
	if err != nil {
		logger.Fatal("unable to set up scheduler", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	logger.Info("bot is running")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
}
