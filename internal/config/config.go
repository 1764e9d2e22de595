package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken  string `envconfig:"BOT_TOKEN" required:"true"`
	DBPath    string `envconfig:"DB_PATH" default:"./data/deadlines.db"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`  // debug|info|warn|error
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"` // json|console
	HTTPAddr  string `envconfig:"HTTP_ADDR" default:":8080"`

	// TickInterval is the scheduler scan cadence; ReminderWindow is how far
	// past each lead-time threshold a reminder still matches. The window
	// must cover at least one interval or reminders can fall between ticks.
	TickInterval   time.Duration `envconfig:"TICK_INTERVAL" default:"1m"`
	ReminderWindow time.Duration `envconfig:"REMINDER_WINDOW" default:"2m"`

	// SendTimeout bounds one Telegram API call so a single unreachable
	// recipient cannot stall a whole tick.
	SendTimeout time.Duration `envconfig:"SEND_TIMEOUT" default:"10s"`

	// Rate limiting of inbound updates, per user.
	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"0.5"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"5"`
}

// Load reads an optional .env file and then the environment into Config.
func Load() (Config, error) {
	// Missing .env is fine; real deployments configure the environment.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate enforces startup invariants that would otherwise surface as
// silently missed reminders.
func (c Config) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL must be positive, got %s", c.TickInterval)
	}
	if c.ReminderWindow < c.TickInterval {
		return fmt.Errorf("REMINDER_WINDOW (%s) must be >= TICK_INTERVAL (%s), or reminders will be missed",
			c.ReminderWindow, c.TickInterval)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit settings must be positive")
	}
	return nil
}
