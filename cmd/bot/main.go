// The bot command runs the verification chat bot as its own process, sharing
// only the code file with the web API. Deployments that keep the bot out of
// the request path run this next to cmd/api.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/wazir-realty/api/internal/config"
	"github.com/wazir-realty/api/internal/infrastructure/codestore"
	"github.com/wazir-realty/api/internal/infrastructure/telegram"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	if cfg.TelegramBotToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is required")
	}

	shared := codestore.NewFile(cfg.CodesFilePath, cfg.CodeTTL)

	// No confirmer: the standalone process serves the shared-file flow only.
	bot, err := telegram.New(cfg, nil, shared)
	if err != nil {
		log.Fatalf("bot startup failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	log.Println("Bot started")
	bot.Run(ctx)
	log.Println("Bot stopped")
}
