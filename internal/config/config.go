package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Poll start policies for a client's first poll.
const (
	StartBeginning = "beginning"
	StartNow       = "now"
)

// Config holds every runtime knob, parsed from the environment. A local .env
// file is honored when present.
type Config struct {
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Port uint16 `env:"PORT" envDefault:"8083"`
	Env  string `env:"ENV" envDefault:"dev"`

	DataDir  string `env:"DATA_DIR" envDefault:"./data"`
	InMemory bool   `env:"IN_MEMORY" envDefault:"false"`

	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"relay.events"`

	MaxFileSizeBytes int64         `env:"MAX_FILE_SIZE_BYTES" envDefault:"10485760"`
	PollTimeout      time.Duration `env:"POLL_TIMEOUT" envDefault:"5s"`
	PollStartCursor  string        `env:"POLL_START_CURSOR" envDefault:"beginning"`
	PollSessionTTL   time.Duration `env:"POLL_SESSION_TTL" envDefault:"1m"`
	PageLimit        int           `env:"PAGE_LIMIT" envDefault:"0"`
	FanoutQueueSize  int           `env:"FANOUT_QUEUE_SIZE" envDefault:"256"`

	OTLPEndpoint   string `env:"OTLP_ENDPOINT"`
	DebugEndpoints bool   `env:"DEBUG_ENDPOINTS" envDefault:"false"`
}

// Load reads .env (if any) and the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env config: %w", err)
	}
	if cfg.PollStartCursor != StartBeginning && cfg.PollStartCursor != StartNow {
		return Config{}, fmt.Errorf("POLL_START_CURSOR must be %q or %q, got %q",
			StartBeginning, StartNow, cfg.PollStartCursor)
	}
	if cfg.MaxFileSizeBytes <= 0 {
		return Config{}, fmt.Errorf("MAX_FILE_SIZE_BYTES must be positive")
	}
	return cfg, nil
}

// Addr renders the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
