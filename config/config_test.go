package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/marginscope/internal/domain"
	"go.uber.org/zap/zapcore"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestGet_Defaults(t *testing.T) {
	cfg, err := Get(nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "market.yaml", cfg.SnapshotPath)
	assert.Equal(t, domain.ProtocolAave, cfg.Protocol)
	assert.Equal(t, domain.DefaultBaseCurrency, cfg.BaseCurrency)
	assert.Equal(t, 15*time.Second, cfg.ReloadInterval)
	assert.Equal(t, zapcore.InfoLevel, cfg.LogLevel)
	assert.False(t, cfg.RunSetup)
}

func TestGet_Flags(t *testing.T) {
	cfg, err := Get([]string{"--protocol", "comet", "--base", "weth", "--reload", "1m", "--loglevel", "debug", "--setup"})
	require.NoError(t, err)

	assert.Equal(t, domain.ProtocolCompoundV3, cfg.Protocol)
	assert.Equal(t, domain.AssetID("WETH"), cfg.BaseCurrency)
	assert.Equal(t, time.Minute, cfg.ReloadInterval)
	assert.Equal(t, zapcore.DebugLevel, cfg.LogLevel)
	assert.True(t, cfg.RunSetup)

	_, err = Get([]string{"--protocol", "maker"})
	assert.ErrorIs(t, err, domain.ErrInvalidProtocol)

	_, err = Get([]string{"--unknown"})
	assert.Error(t, err)
}

func TestGet_YamlAndEnv(t *testing.T) {
	path := writeFile(t, `
listen_addr: ":9000"
snapshot: /var/lib/marginscope/market.yaml
protocol: compound
base_currency: dai
reload_interval: 30s
tls_domains: ["risk.example.com", " "]
cert_cache: /var/cache/certs
log_level: warn
`)

	cfg, err := Get([]string{"--config", path, "--addr", ":1"})
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "/var/lib/marginscope/market.yaml", cfg.SnapshotPath)
	assert.Equal(t, domain.ProtocolCompound, cfg.Protocol)
	assert.Equal(t, domain.AssetID("DAI"), cfg.BaseCurrency)
	assert.Equal(t, 30*time.Second, cfg.ReloadInterval)
	assert.Equal(t, []string{"risk.example.com"}, cfg.TLSDomains)
	assert.Equal(t, "/var/cache/certs", cfg.CertCacheDir)
	assert.Equal(t, zapcore.WarnLevel, cfg.LogLevel)

	t.Setenv(envListenAddr, ":7000")
	t.Setenv(envSnapshot, "/tmp/other.yaml")
	cfg, err = Get([]string{"--config", path})
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.ListenAddr)
	assert.Equal(t, "/tmp/other.yaml", cfg.SnapshotPath)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "protocol: [aave"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "protocol: aave\nlog_level: loud\n"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "protocol: aave\nreload_interval: -5s\n"))
	assert.Error(t, err)
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.gen.yaml")
	tmp := ConfigTmp{
		ListenAddr:     ":8081",
		Snapshot:       "snap.yaml",
		Protocol:       "compound_v3",
		BaseCurrency:   "USDC",
		ReloadInterval: 10 * time.Second,
	}
	require.NoError(t, Write(path, tmp))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.ListenAddr)
	assert.Equal(t, domain.ProtocolCompoundV3, cfg.Protocol)
	assert.Equal(t, 10*time.Second, cfg.ReloadInterval)

	tmp.Protocol = "maker"
	assert.Error(t, Write(path, tmp))
}
