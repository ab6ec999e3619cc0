package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/wazir-realty/api/internal/application/chat"
	"github.com/wazir-realty/api/internal/application/verify"
	"github.com/wazir-realty/api/internal/config"
	"github.com/wazir-realty/api/internal/infrastructure/codestore"
	"github.com/wazir-realty/api/internal/infrastructure/devino"
	jwtinfra "github.com/wazir-realty/api/internal/infrastructure/jwt"
	"github.com/wazir-realty/api/internal/infrastructure/msgstore"
	"github.com/wazir-realty/api/internal/infrastructure/smtp"
	"github.com/wazir-realty/api/internal/infrastructure/sns"
	"github.com/wazir-realty/api/internal/infrastructure/telegram"
	transporthttp "github.com/wazir-realty/api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	jwtProvider := jwtinfra.NewProvider(cfg)

	// File-backed stores shared with the standalone bot process.
	codes := codestore.NewFile(cfg.CodesFilePath, cfg.CodeTTL)
	hub := chat.NewHub(msgstore.NewFile(cfg.MessagesFilePath))

	gateway := devino.NewGateway(cfg)
	mailer := smtp.NewMailer(cfg)

	// SNS SMS sender (optional — graceful fallback).
	var smsSender verify.SMSSender
	if cfg.SNSEnabled {
		if sender, err := sns.NewSender(cfg); err == nil {
			smsSender = sender
		} else {
			log.Printf("WARN: SNS sender not available: %v", err)
		}
	}

	// Telegram bot (optional — the confirmer is wired in below, after the
	// verification service exists).
	bot, err := telegram.New(cfg, nil, codes)
	if err != nil {
		log.Printf("WARN: telegram bot not available: %v", err)
	}
	var push verify.BotPush
	if bot != nil {
		push = bot
	}

	verifySvc := verify.NewService(verify.Deps{
		Codes:           codes,
		Gateway:         gateway,
		SMS:             smsSender,
		Push:            push,
		Mailer:          mailer,
		BotUsername:     cfg.TelegramBotUsername,
		SessionLifetime: cfg.SessionLifetime,
		Degraded:        verify.DegradedPolicy{AcceptAnyValidCode: cfg.DegradedAcceptAny},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if bot != nil {
		bot.SetConfirmer(verifySvc)
		go bot.Run(ctx)
	}

	deps := &transporthttp.Deps{
		VerifySvc:   verifySvc,
		Hub:         hub,
		JWTProvider: jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
