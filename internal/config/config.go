package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	JWTSecret string

	SMSGatewayURL    string
	SMSGatewayAPIKey string // empty or placeholder routes the gateway into debug mode
	SMSTimeout       time.Duration

	SNSRegion  string
	SNSEnabled bool

	TelegramBotToken    string
	TelegramBotUsername string

	SMTPHost string
	SMTPPort string
	SMTPFrom string

	CodesFilePath    string // shared between the web and bot processes
	MessagesFilePath string

	CodeTTL         time.Duration // plain code issuance path
	BotCodeTTL      time.Duration // codes handed out over the bot channel
	SessionLifetime time.Duration

	DegradedAcceptAny bool // accept any well-formed code when every channel is down

	AllowedOrigins []string // CORS allowed origins
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		JWTSecret: getEnv("JWT_SECRET", "change-me"),

		SMSGatewayURL:    getEnv("SMS_GATEWAY_URL", "https://phoneverification.devinotele.com"),
		SMSGatewayAPIKey: getEnv("SMS_GATEWAY_API_KEY", ""),
		SMSTimeout:       getEnvDuration("SMS_TIMEOUT", 30*time.Second),

		SNSRegion:  getEnv("SNS_REGION", "us-east-1"),
		SNSEnabled: getEnvBool("SNS_ENABLED", false),

		TelegramBotToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramBotUsername: getEnv("TELEGRAM_BOT_USERNAME", ""),

		SMTPHost: getEnv("SMTP_HOST", "localhost"),
		SMTPPort: getEnv("SMTP_PORT", "1025"),
		SMTPFrom: getEnv("SMTP_FROM", "noreply@wazir.kg"),

		CodesFilePath:    getEnv("CODES_FILE_PATH", "verification_codes.json"),
		MessagesFilePath: getEnv("MESSAGES_FILE_PATH", "chat_messages.json"),

		CodeTTL:         getEnvDuration("CODE_TTL", 5*time.Minute),
		BotCodeTTL:      getEnvDuration("BOT_CODE_TTL", 2*time.Minute),
		SessionLifetime: getEnvDuration("SESSION_LIFETIME", 15*time.Minute),

		DegradedAcceptAny: getEnvBool("DEGRADED_ACCEPT_ANY", true),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
