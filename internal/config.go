package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

type Config struct {
	Host                 string        `env:"HOST,default=127.0.0.1" validate:"required"`
	Port                 int           `env:"PORT,default=3001" validate:"min=1,max=65535"`
	LogLevel             string        `env:"LOG_LEVEL" validate:"oneof=DEBUG INFO WARN ERROR"`
	LoggingLevel         string        `env:"LOGGING_LEVEL"`
	RedisNode            string        `env:"REDIS_NODE,default=redis://127.0.0.1:6379" validate:"required,url"`
	BusDriver            string        `env:"BUS_DRIVER,default=redis" validate:"oneof=redis memory"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=4" validate:"min=1"`
	DebugPort            int           `env:"DEBUG_PORT,default=0" validate:"min=0,max=65535"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s" validate:"gt=0"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=1s" validate:"gt=0"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s" validate:"gt=0"`
}

// LoadConfig reads an optional .env file, then the environment.
// Variables already set in the environment win over the file.
func LoadConfig(files ...string) (Config, error) {
	_ = godotenv.Load(files...)

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	config.LogLevel = normalizeLevel(lo.CoalesceOrEmpty(config.LogLevel, config.LoggingLevel, "INFO"))
	if err := validator.New().Struct(config); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// normalizeLevel accepts level names in any case, trace is logged as debug.
func normalizeLevel(level string) string {
	level = strings.ToUpper(strings.TrimSpace(level))
	if level == "TRACE" {
		return "DEBUG"
	}
	return level
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) DebugAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.DebugPort)
}
