package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func validConfig() Config {
	return Config{
		Server: ServerConfig{
			TickInterval:   20 * time.Millisecond,
			OutboundBuffer: 64,
		},
		WebSocket: WebSocketConfig{
			Host:         "127.0.0.1",
			Port:         8080,
			Path:         "/socket",
			MetricsPath:  "/metrics",
			ReadLimit:    4096,
			WriteTimeout: 10 * time.Second,
			PongWait:     60 * time.Second,
		},
		Telnet: TelnetConfig{
			Enabled:       true,
			Host:          "0.0.0.0",
			Port:          4000,
			WriteTimeout:  30 * time.Second,
			MaxLineLength: 4096,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func TestValidConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestWebSocketAddr(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "127.0.0.1:8080", cfg.WebSocket.Addr())
}

func TestWebSocketPingPeriod(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, 54*time.Second, cfg.WebSocket.PingPeriod())
}

func TestTelnetAddr(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "0.0.0.0:4000", cfg.Telnet.Addr())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	err := os.WriteFile(path, []byte(`
server:
  tick_interval: 50ms
  outbound_buffer: 16
websocket:
  host: 0.0.0.0
  port: 9090
  path: /ws
telnet:
  enabled: true
  port: 4001
logging:
  level: debug
  format: console
world:
  spawn_file: content/world.yaml
`), 0644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 50*time.Millisecond, cfg.Server.TickInterval)
	assert.Equal(t, 16, cfg.Server.OutboundBuffer)
	assert.Equal(t, 9090, cfg.WebSocket.Port)
	assert.Equal(t, "/ws", cfg.WebSocket.Path)
	assert.Equal(t, "/metrics", cfg.WebSocket.MetricsPath)
	assert.True(t, cfg.Telnet.Enabled)
	assert.Equal(t, 4001, cfg.Telnet.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "content/world.yaml", cfg.World.SpawnFile)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TEXLA_WEBSOCKET_PORT", "9999")
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.WebSocket.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestDefaults(t *testing.T) {
	cfg, err := Defaults()
	require.NoError(t, err)
	assert.Equal(t, 20*time.Millisecond, cfg.Server.TickInterval)
	assert.Equal(t, "/socket", cfg.WebSocket.Path)
	assert.False(t, cfg.Telnet.Enabled)
	assert.Equal(t, 4096, cfg.Telnet.MaxLineLength)
	assert.Equal(t, "", cfg.World.SpawnFile)
}

func TestLoadInvalidPath(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestLoadEmptyPath(t *testing.T) {
	_, err := Load("")
	assert.ErrorIs(t, err, ErrNoConfigFile)
}

func TestValidateTickInterval(t *testing.T) {
	cfg := validConfig()
	cfg.Server.TickInterval = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateOutboundBuffer(t *testing.T) {
	cfg := validConfig()
	cfg.Server.OutboundBuffer = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateWebSocketPath(t *testing.T) {
	cfg := validConfig()
	cfg.WebSocket.Path = "socket"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.WebSocket.MetricsPath = cfg.WebSocket.Path
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.WebSocket.MetricsPath = ""
	assert.NoError(t, cfg.Validate())
}

func TestValidateWebSocketLimits(t *testing.T) {
	cfg := validConfig()
	cfg.WebSocket.ReadLimit = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.WebSocket.PongWait = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateTelnetPortOnlyWhenEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.Telnet.Port = 70000
	assert.Error(t, cfg.Validate())

	cfg.Telnet.Enabled = false
	assert.NoError(t, cfg.Validate())
}

func TestValidateTelnetMaxLineLength(t *testing.T) {
	cfg := validConfig()
	cfg.Telnet.MaxLineLength = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telnet.max_line_length")
}

func TestValidateLoggingLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := validConfig()
		cfg.Logging.Level = level
		assert.NoError(t, cfg.Validate(), "level %q should be valid", level)
	}
	cfg := validConfig()
	cfg.Logging.Level = "trace"
	assert.Error(t, cfg.Validate())
}

func TestValidateLoggingFormat(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		cfg := validConfig()
		cfg.Logging.Format = format
		assert.NoError(t, cfg.Validate(), "format %q should be valid", format)
	}
	cfg := validConfig()
	cfg.Logging.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestValidateReportsAllViolations(t *testing.T) {
	cfg := validConfig()
	cfg.Server.TickInterval = 0
	cfg.Logging.Format = "xml"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.tick_interval")
	assert.Contains(t, err.Error(), "logging.format")
}

// Property-based tests

func TestPropertyValidPortRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		port := rapid.IntRange(0, 65535).Draw(t, "port")
		cfg := validConfig()
		cfg.WebSocket.Port = port
		if err := cfg.Validate(); err != nil {
			t.Fatalf("valid port %d rejected: %v", port, err)
		}
	})
}

func TestPropertyInvalidPortRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		port := rapid.OneOf(
			rapid.IntRange(-1000, -1),
			rapid.IntRange(65536, 100000),
		).Draw(t, "port")
		cfg := validConfig()
		cfg.WebSocket.Port = port
		if err := cfg.Validate(); err == nil {
			t.Fatalf("invalid port %d accepted", port)
		}
	})
}

func TestPropertyPositiveTickIntervalAccepted(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ms := rapid.IntRange(1, 10000).Draw(t, "ms")
		cfg := validConfig()
		cfg.Server.TickInterval = time.Duration(ms) * time.Millisecond
		if err := cfg.Validate(); err != nil {
			t.Fatalf("tick interval %dms rejected: %v", ms, err)
		}
	})
}

func TestLoad_DevConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "dev.yaml"))
	require.NoError(t, err)
	assert.True(t, cfg.Telnet.Enabled)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "content/world.yaml", cfg.World.SpawnFile)
}
