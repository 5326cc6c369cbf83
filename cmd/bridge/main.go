// cmd/bridge/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"insert-coin-bot/internal/bot"
	"insert-coin-bot/internal/bridge"
	"insert-coin-bot/internal/config"
	"insert-coin-bot/internal/database"
	"insert-coin-bot/internal/logging"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const serviceName = "insert-coin-bridge"

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

	db, err := database.NewDB(cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	// REST only; the bridge never opens a gateway connection.
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		logger.Fatal("error creating discord session", zap.Error(err))
	}

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           bridge.NewServer(db, bot.NewChannels(session), cfg.CallTimeout, logger).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("bridge listening", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("bridge stopped", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("bridge shutdown failed", zap.Error(err))
	}
}
