// Package config loads deployment configuration from the environment, with a
// .env file picked up in local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/fivesquad/pickup-planner-api/internal/domain"
)

// Config is the full runtime configuration for the API process.
type Config struct {
	Port           string
	AppURL         string
	StorageBackend string
	DatabaseURL    string

	AuthMode   string // "jwt" or "dev"
	DevAccount string
	Provider   domain.Provider

	// Detection parameters.
	Quorum            int
	RunLength         int
	ReminderRunLength int
	FirstHour         int
	LastHour          int
	HorizonDays       int

	AdminAccounts []domain.ProviderAccountID

	// Discord delivery.
	DiscordBotToken   string
	DiscordChannelID  string
	DiscordWebhookURL string
	DiscordPublicKey  string

	// Reminder sweep scheduling.
	ReminderCron   string
	InternalSecret string
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first; missing files are fine.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:           getenv("PORT", "8080"),
		AppURL:         getenv("APP_URL", "http://localhost:5173"),
		StorageBackend: getenv("STORAGE_BACKEND", "memory"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),

		AuthMode:   getenv("AUTH_MODE", "jwt"),
		DevAccount: getenv("DEV_ACCOUNT", "dev-local"),
		Provider:   domain.Provider(getenv("AUTH_PROVIDER", "discord")),

		DiscordBotToken:   os.Getenv("DISCORD_BOT_TOKEN"),
		DiscordChannelID:  os.Getenv("DISCORD_CHANNEL_ID"),
		DiscordWebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),
		DiscordPublicKey:  os.Getenv("DISCORD_PUBLIC_KEY"),

		ReminderCron:   getenv("REMINDER_CRON", ""),
		InternalSecret: os.Getenv("INTERNAL_SECRET"),
	}

	var err error
	if cfg.Quorum, err = getenvInt("QUORUM", 10); err != nil {
		return Config{}, err
	}
	if cfg.RunLength, err = getenvInt("RUN_LENGTH", 3); err != nil {
		return Config{}, err
	}
	if cfg.ReminderRunLength, err = getenvInt("REMINDER_RUN_LENGTH", 4); err != nil {
		return Config{}, err
	}
	if cfg.FirstHour, err = getenvInt("FIRST_HOUR", 8); err != nil {
		return Config{}, err
	}
	if cfg.LastHour, err = getenvInt("LAST_HOUR", 23); err != nil {
		return Config{}, err
	}
	if cfg.HorizonDays, err = getenvInt("HORIZON_DAYS", 21); err != nil {
		return Config{}, err
	}

	for _, raw := range strings.Split(os.Getenv("ADMIN_ACCOUNTS"), ",") {
		raw = strings.TrimSpace(raw)
		if raw != "" {
			cfg.AdminAccounts = append(cfg.AdminAccounts, domain.ProviderAccountID(raw))
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Quorum < 1 {
		return fmt.Errorf("QUORUM must be at least 1, got %d", c.Quorum)
	}
	if c.RunLength < 1 || c.ReminderRunLength < 1 {
		return fmt.Errorf("run lengths must be at least 1")
	}
	if c.FirstHour < 0 || c.LastHour > 23 || c.FirstHour > c.LastHour {
		return fmt.Errorf("operating hours out of order: FIRST_HOUR=%d LAST_HOUR=%d", c.FirstHour, c.LastHour)
	}
	if c.RunLength > c.LastHour-c.FirstHour+1 {
		return fmt.Errorf("RUN_LENGTH=%d does not fit the operating day", c.RunLength)
	}
	if c.ReminderRunLength > c.LastHour-c.FirstHour+1 {
		return fmt.Errorf("REMINDER_RUN_LENGTH=%d does not fit the operating day", c.ReminderRunLength)
	}
	if c.HorizonDays < 1 {
		return fmt.Errorf("HORIZON_DAYS must be at least 1, got %d", c.HorizonDays)
	}
	if c.StorageBackend != "memory" && c.StorageBackend != "postgres" {
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.StorageBackend == "postgres" && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required with STORAGE_BACKEND=postgres")
	}
	if c.AuthMode != "jwt" && c.AuthMode != "dev" {
		return fmt.Errorf("unknown AUTH_MODE %q", c.AuthMode)
	}
	return nil
}

// IsAdminAccount reports whether the provider account is configured as an
// admin.
func (c Config) IsAdminAccount(account domain.ProviderAccountID) bool {
	for _, a := range c.AdminAccounts {
		if a == account {
			return true
		}
	}
	return false
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", k, err)
	}
	return n, nil
}
