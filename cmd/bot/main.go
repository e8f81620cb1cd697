package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/bot"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/config"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Format: "text"})
		fallbackLog.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: "text",
		File:   cfg.LogFile,
	})

	log.Infof("Starting %s v%s", cfg.BotName, cfg.Version)

	musicBot, err := bot.New(cfg, log)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	if err := musicBot.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start bot: %v", err)
	}

	log.Info("Bot is now running. Press CTRL-C to exit.")

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	log.Info("Shutting down gracefully...")
	musicBot.Stop()
	log.Info("Bot stopped")
}
