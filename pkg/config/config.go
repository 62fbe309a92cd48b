package config

import (
	"context"
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Config holds runtime configuration shared by the seatrail binaries.
type Config struct {
	Addr            string        `env:"ADDR,default=:8080"`
	DBDSN           string        `env:"DB_DSN"`
	NATSURL         string        `env:"NATS_URL"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:5173"`
	RequestsPerMin  int           `env:"RATE_LIMIT_PER_MINUTE,default=300"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT,default=60s"`
	MigrateOnStart  bool          `env:"MIGRATE_ON_START,default=false"`
	MediaBucket     string        `env:"S3_BUCKET"`
	MediaPublicURL  string        `env:"S3_PUBLIC_URL"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	LogFormat       string        `env:"LOG_FORMAT,default=console"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// Load reads an optional .env file and returns a Config populated from environment variables.
func Load(ctx context.Context) (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFrom populates a Config from the provided lookuper without touching the process environment.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// RequireDB reports an error when no database DSN is configured.
func (c Config) RequireDB() error {
	if c.DBDSN == "" {
		return errors.New("DB_DSN is required")
	}
	return nil
}
