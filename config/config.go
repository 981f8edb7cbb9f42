package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/marginscope/internal/domain"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	defaultListenAddr     = ":8080"
	defaultSnapshotPath   = "market.yaml"
	defaultReloadInterval = 15 * time.Second

	envListenAddr = "MARGINSCOPE_LISTEN_ADDR"
	envSnapshot   = "MARGINSCOPE_SNAPSHOT"
)

type Config struct {
	ListenAddr     string
	SnapshotPath   string
	Protocol       domain.Protocol
	BaseCurrency   domain.AssetID
	ReloadInterval time.Duration
	TLSDomains     []string
	CertCacheDir   string
	LogLevel       zapcore.Level
	// RunSetup is set by --setup: run the wizard before starting.
	RunSetup bool
}

type ConfigTmp struct {
	ListenAddr     string        `yaml:"listen_addr"`
	Snapshot       string        `yaml:"snapshot"`
	Protocol       string        `yaml:"protocol"`
	BaseCurrency   string        `yaml:"base_currency"`
	ReloadInterval time.Duration `yaml:"reload_interval"`
	TLSDomains     []string      `yaml:"tls_domains,omitempty"`
	CertCache      string        `yaml:"cert_cache,omitempty"`
	LogLevel       string        `yaml:"log_level,omitempty"`
}

// Get builds the configuration from command-line args (without the program
// name). A --config file takes precedence over the other flags; environment
// variables override both.
func Get(args []string) (Config, error) {
	fs := flag.NewFlagSet("marginscope", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to yaml config")
	setup := fs.Bool("setup", false, "run the configuration wizard")
	addr := fs.String("addr", defaultListenAddr, "api listen address")
	snapshot := fs.String("snapshot", defaultSnapshotPath, "path to the market snapshot yaml")
	protocol := fs.String("protocol", string(domain.ProtocolAave), "lending protocol: aave, compound, compound_v3")
	base := fs.String("base", string(domain.DefaultBaseCurrency), "base currency of single-base markets")
	reload := fs.Duration("reload", defaultReloadInterval, "market snapshot reload interval")
	logLevel := fs.String("loglevel", "info", "log level")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	var (
		cfg Config
		err error
	)
	if *configPath != "" {
		cfg, err = Load(*configPath)
	} else {
		cfg, err = fromTmp(ConfigTmp{
			ListenAddr:     *addr,
			Snapshot:       *snapshot,
			Protocol:       *protocol,
			BaseCurrency:   *base,
			ReloadInterval: *reload,
			LogLevel:       *logLevel,
		})
	}
	if err != nil {
		return Config{}, err
	}

	cfg.RunSetup = *setup
	applyEnv(&cfg)
	return cfg, nil
}

// Load reads a yaml config file.
func Load(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to read config %s", path)
	}
	var tmp ConfigTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, errors.Wrapf(err, "failed to parse config %s", path)
	}
	return fromTmp(tmp)
}

func fromTmp(c ConfigTmp) (Config, error) {
	protocol, err := domain.ParseProtocol(c.Protocol)
	if err != nil {
		return Config{}, errors.Wrapf(err, "incorrect 'protocol' param in config: %s", c.Protocol)
	}

	cfg := Config{
		ListenAddr:     c.ListenAddr,
		SnapshotPath:   c.Snapshot,
		Protocol:       protocol,
		BaseCurrency:   domain.NormalizeAssetID(c.BaseCurrency),
		ReloadInterval: c.ReloadInterval,
		CertCacheDir:   c.CertCache,
		LogLevel:       zapcore.InfoLevel,
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if cfg.SnapshotPath == "" {
		cfg.SnapshotPath = defaultSnapshotPath
	}
	if cfg.BaseCurrency == "" {
		cfg.BaseCurrency = domain.DefaultBaseCurrency
	}
	if cfg.ReloadInterval == 0 {
		cfg.ReloadInterval = defaultReloadInterval
	}
	if cfg.ReloadInterval < 0 {
		return Config{}, errors.Errorf("incorrect 'reload_interval' param in config: %s", c.ReloadInterval)
	}
	for _, d := range c.TLSDomains {
		if d = strings.TrimSpace(d); d != "" {
			cfg.TLSDomains = append(cfg.TLSDomains, d)
		}
	}
	if c.LogLevel != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(c.LogLevel)); err != nil {
			return Config{}, errors.Wrapf(err, "incorrect 'log_level' param in config: %s", c.LogLevel)
		}
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envSnapshot); v != "" {
		cfg.SnapshotPath = v
	}
}

// Write validates c and saves it as yaml to path.
func Write(path string, c ConfigTmp) error {
	if _, err := fromTmp(c); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to generate yaml")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to save config file %s", path)
	}
	return nil
}
