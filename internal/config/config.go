package config

import (
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/usagemon/internal/errors"
	"codeberg.org/mutker/usagemon/internal/metrics"
	"codeberg.org/mutker/usagemon/internal/rollup"
	"codeberg.org/mutker/usagemon/internal/sampler"
	"codeberg.org/mutker/usagemon/internal/selector"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultConfigPath = "/etc/usagemon/usagemon.toml"
	DefaultEnvPrefix  = "USAGEMON"
	DefaultInterval   = time.Second
	DefaultLogLevel   = LogLevelInfo
	DefaultPIDFile    = "/run/usagemon.pid"
	DefaultThreshold  = 1.5
)

type Config struct {
	Interval  time.Duration   `mapstructure:"interval"`
	LogLevel  LogLevel        `mapstructure:"log_level"`
	PIDFile   string          `mapstructure:"pid_file"`
	CacheTTL  time.Duration   `mapstructure:"cache_ttl"`
	Store     metrics.Config  `mapstructure:"store"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Anomaly   AnomalyConfig   `mapstructure:"anomaly"`
	Resources ResourcesConfig `mapstructure:"resources"`
}

type HTTPConfig struct {
	// Listen is the API address; empty disables the server.
	Listen string `mapstructure:"listen"`
}

type AnomalyConfig struct {
	IncreaseRatio float64  `mapstructure:"increase_ratio"`
	Exempt        []string `mapstructure:"exempt"`
}

type ResourcesConfig struct {
	CPU    ResourceConfig `mapstructure:"cpu"`
	Memory ResourceConfig `mapstructure:"memory"`
	GPU    ResourceConfig `mapstructure:"gpu"`
}

type ResourceConfig struct {
	Enabled    bool                `mapstructure:"enabled"`
	Threshold  float64             `mapstructure:"threshold"`
	TopK       int                 `mapstructure:"top_k"`
	Other      string              `mapstructure:"other"`
	Freeze     bool                `mapstructure:"freeze"`
	Exclude    []string            `mapstructure:"exclude"`
	Categories []selector.Category `mapstructure:"categories"`
	// Device is the NVML index; only used by the gpu resource.
	Device int `mapstructure:"device"`
}

// Rules converts the resource settings into selector rules.
func (r ResourceConfig) Rules() selector.Rules {
	return selector.Rules{
		Threshold:  r.Threshold,
		TopK:       r.TopK,
		Other:      r.Other,
		Categories: r.Categories,
		Exclude:    r.Exclude,
		Freeze:     r.Freeze,
	}
}

// Enabled returns the enabled resources keyed by name, in a fixed order.
func (r ResourcesConfig) Enabled() ([]string, map[string]ResourceConfig) {
	all := []struct {
		name string
		cfg  ResourceConfig
	}{
		{sampler.ResourceCPU, r.CPU},
		{sampler.ResourceMemory, r.Memory},
		{sampler.ResourceGPU, r.GPU},
	}

	var names []string
	enabled := make(map[string]ResourceConfig)
	for _, res := range all {
		if res.cfg.Enabled {
			names = append(names, res.name)
			enabled[res.name] = res.cfg
		}
	}

	return names, enabled
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("log_level", string(DefaultLogLevel))
	v.SetDefault("pid_file", DefaultPIDFile)
	v.SetDefault("cache_ttl", time.Second)

	store := metrics.DefaultConfig()
	v.SetDefault("store.backend", store.Backend)
	v.SetDefault("store.path", store.Path)
	v.SetDefault("store.backup_dir", store.BackupDir)

	v.SetDefault("http.listen", "")

	v.SetDefault("anomaly.increase_ratio", rollup.DefaultIncreaseRatio)
	v.SetDefault("anomaly.exempt", []string{selector.DefaultOther})

	resources := []struct {
		name    string
		enabled bool
		topK    int
		freeze  bool
	}{
		{sampler.ResourceCPU, true, 7, false},
		{sampler.ResourceMemory, true, 5, true},
		{sampler.ResourceGPU, false, 5, false},
	}
	for _, r := range resources {
		prefix := "resources." + r.name + "."
		v.SetDefault(prefix+"enabled", r.enabled)
		v.SetDefault(prefix+"threshold", DefaultThreshold)
		v.SetDefault(prefix+"top_k", r.topK)
		v.SetDefault(prefix+"other", selector.DefaultOther)
		v.SetDefault(prefix+"freeze", r.freeze)
		v.SetDefault(prefix+"exclude", []string{"System Idle Process"})
		v.SetDefault(prefix+"device", 0)
	}
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("usagemon", pflag.ContinueOnError)
	fs.String("config", "", "Path to the configuration file")
	fs.Duration("interval", DefaultInterval, "Sampling interval")
	fs.String("log-level", string(DefaultLogLevel), "Log level (debug, info, warning, error)")
	fs.String("pid-file", DefaultPIDFile, "Path to the PID file")
	fs.String("store-backend", metrics.BackendSQLite, "Metrics store backend (sqlite, badger, memory)")
	fs.String("store-path", "", "Metrics store location")
	fs.String("http-listen", "", "API listen address, empty to disable")
	fs.Bool("gpu", false, "Monitor the NVIDIA GPU")

	return fs
}

var flagKeys = map[string]string{
	"interval":      "interval",
	"log-level":     "log_level",
	"pid-file":      "pid_file",
	"store-backend": "store.backend",
	"store-path":    "store.path",
	"http-listen":   "http.listen",
	"gpu":           "resources.gpu.enabled",
}

// Load reads defaults, the TOML config file, USAGEMON_* environment
// variables and command line flags, in increasing order of precedence.
func Load(args []string, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := options{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	if err := readConfigFile(v, configPath(fs, o)); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// configPath picks the config file: flag, then option, then environment,
// then the default location.
func configPath(fs *pflag.FlagSet, o options) string {
	if path, _ := fs.GetString("config"); path != "" {
		return path
	}
	if o.configPath != "" {
		return o.configPath
	}
	if path := os.Getenv(o.envPrefix + "_CONFIG"); path != "" {
		return path
	}

	return DefaultConfigPath
}

func readConfigFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && path == DefaultConfigPath {
			return nil
		}
		return errors.New().Wrap(errors.ErrReadConfig, err)
	}

	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return errors.New().Wrap(errors.ErrReadConfig, err)
	}

	return nil
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	if c.CacheTTL <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "cache_ttl must be positive")
	}
	if !c.LogLevel.IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if c.Anomaly.IncreaseRatio <= 1 {
		return errFactory.WithData(errors.ErrInvalidRatio, c.Anomaly.IncreaseRatio)
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}

	names, enabled := c.Resources.Enabled()
	if len(names) == 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "no resources enabled")
	}
	for _, name := range names {
		r := enabled[name]
		if r.Threshold < 0 || r.TopK < 0 {
			return errFactory.WithMessage(errors.ErrInvalidConfig, name+": threshold and top_k must not be negative")
		}
	}

	return nil
}
