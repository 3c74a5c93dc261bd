package config

import (
	"time"

	"github.com/caarlos0/env/v9"
)

type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	AppEnv  string `env:"APP_ENV" envDefault:"production"`
	Origins string `env:"CORS_ORIGIN_SUFFIX" envDefault:"vercel.app"`

	BackendBaseURL string        `env:"BACKEND_BASE_URL" envDefault:"http://localhost:8000/api"`
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"15s"`

	// DB is optional; an empty DB_HOST keeps snapshots in memory.
	DBUser                 string `env:"DB_USER"`
	DBPassword             string `env:"DB_PASSWORD"`
	DBHost                 string `env:"DB_HOST"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName                 string `env:"DB_NAME"`
	DBPort                 string `env:"DB_PORT" envDefault:"3306"`
	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`

	ChatProvider string `env:"CHAT_PROVIDER" envDefault:"backend"`
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`

	RabbitMQURL string `env:"RABBITMQ_URL"`
	EventsQueue string `env:"EVENTS_QUEUE" envDefault:"storefront.events"`

	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID"`

	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"2h"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) UseDatabase() bool {
	return c.DBHost != "" || c.InstanceConnectionName != ""
}

func (c *Config) Development() bool {
	return c.AppEnv == "development" || c.AppEnv == "dev"
}
