package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	req := require.New(t)
	for _, key := range []string{"HOST", "PORT", "LOG_LEVEL", "LOGGING_LEVEL", "REDIS_NODE", "BUS_DRIVER",
		"CONNECTION_BUFFER_SIZE", "DEBUG_PORT", "METRIC_INTERVAL", "RESTART_INTERVAL", "SHUTDOWN_TIMEOUT"} {
		t.Setenv(key, "")
		req.NoError(os.Unsetenv(key))
	}

	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))

	req.NoError(err)
	req.Equal("127.0.0.1", config.Host)
	req.Equal(3001, config.Port)
	req.Equal("INFO", config.LogLevel)
	req.Equal("redis://127.0.0.1:6379", config.RedisNode)
	req.Equal("redis", config.BusDriver)
	req.Equal(4, config.ConnectionBufferSize)
	req.Equal(0, config.DebugPort)
	req.Equal(30*time.Second, config.MetricInterval)
	req.Equal(10*time.Second, config.ShutdownTimeout)
	req.Equal("127.0.0.1:3001", config.Address())
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	req := require.New(t)
	t.Setenv("HOST", "0.0.0.0")
	t.Setenv("PORT", "50051")
	t.Setenv("BUS_DRIVER", "memory")
	t.Setenv("CONNECTION_BUFFER_SIZE", "16")

	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))

	req.NoError(err)
	req.Equal("0.0.0.0:50051", config.Address())
	req.Equal("memory", config.BusDriver)
	req.Equal(16, config.ConnectionBufferSize)
}

func TestLoadConfig_FromDotEnvFile(t *testing.T) {
	req := require.New(t)
	t.Setenv("LOG_LEVEL", "")
	req.NoError(os.Unsetenv("LOG_LEVEL"))
	path := filepath.Join(t.TempDir(), ".env")
	req.NoError(os.WriteFile(path, []byte("LOG_LEVEL=DEBUG\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("LOG_LEVEL") })

	config, err := LoadConfig(path)

	req.NoError(err)
	req.Equal("DEBUG", config.LogLevel)
}

func TestLoadConfig_LoggingLevel(t *testing.T) {
	tests := []struct {
		name         string
		logLevel     string
		loggingLevel string
		want         string
	}{
		{"logging level alone", "", "debug", "DEBUG"},
		{"trace is debug", "", "trace", "DEBUG"},
		{"log level wins", "warn", "debug", "WARN"},
		{"lower case log level", "error", "", "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			for key, value := range map[string]string{"LOG_LEVEL": tt.logLevel, "LOGGING_LEVEL": tt.loggingLevel} {
				t.Setenv(key, value)
				if value == "" {
					req.NoError(os.Unsetenv(key))
				}
			}

			config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))

			req.NoError(err)
			req.Equal(tt.want, config.LogLevel)
		})
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero buffer", "CONNECTION_BUFFER_SIZE", "0"},
		{"unknown driver", "BUS_DRIVER", "kafka"},
		{"port out of range", "PORT", "70000"},
		{"unknown log level", "LOG_LEVEL", "VERBOSE"},
		{"unknown logging level", "LOGGING_LEVEL", "loud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
			require.Error(t, err)
		})
	}
}
