package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gtp-xact/internal/gtp"
	"gtp-xact/internal/xact"
	"gtp-xact/pkg/types"
)

const sampleConfig = `
gtp:
  address: 127.0.0.1
  restart_counter: 7
peers:
  - address: 10.0.0.2
  - address: 10.0.0.3
    port: 3386
    version: 1
xact:
  response_timeout_ms: 500
  response_retries: 2
  overrides:
    createsessionrequest:
      response_timeout_ms: 8000
      response_retries: 1
      holding_timeout_ms: 20000
    SGSNContextRequest:
      response_timeout_ms: 1000
logging:
  level: debug
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.GTP.Address)
	assert.Equal(t, gtp.ControlPort, cfg.GTP.Port)
	assert.Equal(t, xact.DefaultPoolSize, cfg.Xact.PoolSize)
	assert.Equal(t, 3000, cfg.Xact.ResponseTimeoutMs)
	assert.Equal(t, 3, cfg.Xact.ResponseRetries)
	assert.Equal(t, 12000, cfg.Xact.HoldingTimeoutMs)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.GTP.Address)
	assert.Equal(t, uint8(7), cfg.GTP.RestartCounter)
	require.Len(t, cfg.Peers, 2)
	assert.Equal(t, gtp.ControlPort, cfg.Peers[0].Port)
	assert.Equal(t, gtp.Version2, cfg.Peers[0].Version)
	assert.Equal(t, 3386, cfg.Peers[1].Port)
	assert.Equal(t, gtp.Version1, cfg.Peers[1].Version)
	assert.Equal(t, 500, cfg.Xact.ResponseTimeoutMs)
	assert.Len(t, cfg.Xact.Overrides, 2)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadWithViper_Overrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("gtp.port", 3123)
	v.Set("logging.level", "warn")

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)
	assert.Equal(t, 3123, cfg.GTP.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestManagerConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	mc, err := cfg.ManagerConfig()
	require.NoError(t, err)

	assert.Equal(t, xact.DefaultPoolSize, mc.PoolSize)
	assert.Equal(t, xact.TimerConfig{
		ResponseTimeout: 500 * time.Millisecond,
		ResponseRetries: 2,
		HoldingTimeout:  12 * time.Second,
	}, mc.Timers)

	// CreateSessionRequest only exists in v2, SGSNContextRequest only in v1
	require.Len(t, mc.Overrides, 2)
	assert.Equal(t, xact.TimerConfig{
		ResponseTimeout: 8 * time.Second,
		ResponseRetries: 1,
		HoldingTimeout:  20 * time.Second,
	}, mc.Overrides[xact.MessageKey{Version: gtp.Version2, Type: gtp.V2CreateSessionRequest}])
	assert.Equal(t, time.Second,
		mc.Overrides[xact.MessageKey{Version: gtp.Version1, Type: gtp.V1SGSNContextRequest}].ResponseTimeout)
}

func TestManagerConfig_NameInBothVersions(t *testing.T) {
	cfg := &Config{Xact: XactConfig{
		Overrides: map[string]TimerOverride{"EchoRequest": {ResponseTimeoutMs: 100}},
	}}

	mc, err := cfg.ManagerConfig()
	require.NoError(t, err)
	assert.Contains(t, mc.Overrides, xact.MessageKey{Version: gtp.Version1, Type: gtp.V1EchoRequest})
	assert.Contains(t, mc.Overrides, xact.MessageKey{Version: gtp.Version2, Type: gtp.V2EchoRequest})
}

func TestManagerConfig_UnknownMessage(t *testing.T) {
	cfg := &Config{Xact: XactConfig{
		Overrides: map[string]TimerOverride{"NoSuchRequest": {}},
	}}

	_, err := cfg.ManagerConfig()
	assert.ErrorContains(t, err, "NoSuchRequest")
}

func TestValidate_Errors(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.GTP.Address = "not-an-ip"
	cfg.GTP.Port = 70000
	cfg.Xact.PoolSize = 0
	cfg.Xact.ResponseRetries = -1
	cfg.Logging.Level = "verbose"
	cfg.Metrics.Address = "9100"
	cfg.Xact.Overrides = map[string]TimerOverride{"Bogus": {}}

	err = cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"gtp.address", "gtp.port", "xact.pool_size", "xact.response_retries",
		"logging.level", "metrics.address", `unknown message "Bogus"`,
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidate_Peers(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Peers = []types.PeerConfig{
		{Address: "10.0.0.1", Port: 2123, Version: 3},
		{Address: "bad", Port: 0, Version: 2},
	}

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "peers[0].version")
	assert.Contains(t, err.Error(), "peers[1].address")
	assert.Contains(t, err.Error(), "peers[1].port")
}

func TestSummary(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	s := cfg.Summary()
	assert.Contains(t, s, "Configuration:")
	assert.Contains(t, s, "address: 127.0.0.1")
	assert.Contains(t, s, "response_timeout_ms: 500")
}
