package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. TENGINE_HTTP_PORT.
const EnvPrefix = "TENGINE"

type Config struct {
	HTTPPort int
	LogLevel string
	LogJSON  bool

	PDFRendererEnabled bool
	PDFRendererExe     string
	CommandTimeout     time.Duration
	TempDir            string
	EngineConfig       string

	AuditEnabled bool
	DBPath       string
	AuditKeep    int

	WatchDirs           []string
	WatchOutputDir      string
	WatchTargetMimetype string
	WatchOptions        map[string]string
	MaxWorkers          int
	StabilityDelay      time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", 8090)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("pdfrenderer.enabled", true)
	v.SetDefault("pdfrenderer.exe", "alfresco-pdf-renderer")
	v.SetDefault("command.timeout", "2m")
	v.SetDefault("temp_dir", os.TempDir())
	v.SetDefault("engine.config", "")
	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.db_path", "tengine.db")
	v.SetDefault("audit.keep", 10000)
	v.SetDefault("watch.dirs", []string{})
	v.SetDefault("watch.output_dir", "")
	v.SetDefault("watch.target_mimetype", "text/plain")
	v.SetDefault("watch.options", map[string]string{})
	v.SetDefault("watch.workers", 2)
	v.SetDefault("watch.stability_delay", "1s")
}

// NewViper returns a viper instance reading cfgFile, or tengine.yaml from the
// working directory or ~/.config/tengine when cfgFile is empty, layered under
// TENGINE_* environment variables.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("tengine")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "tengine"))
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load reads the Config out of v.
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	cfg := &Config{
		HTTPPort:            v.GetInt("http.port"),
		LogLevel:            v.GetString("log.level"),
		LogJSON:             v.GetBool("log.json"),
		PDFRendererEnabled:  v.GetBool("pdfrenderer.enabled"),
		PDFRendererExe:      v.GetString("pdfrenderer.exe"),
		CommandTimeout:      v.GetDuration("command.timeout"),
		TempDir:             v.GetString("temp_dir"),
		EngineConfig:        v.GetString("engine.config"),
		AuditEnabled:        v.GetBool("audit.enabled"),
		DBPath:              v.GetString("audit.db_path"),
		AuditKeep:           v.GetInt("audit.keep"),
		WatchDirs:           splitAndTrim(v.GetStringSlice("watch.dirs")),
		WatchOutputDir:      v.GetString("watch.output_dir"),
		WatchTargetMimetype: v.GetString("watch.target_mimetype"),
		WatchOptions:        v.GetStringMapString("watch.options"),
		MaxWorkers:          v.GetInt("watch.workers"),
		StabilityDelay:      v.GetDuration("watch.stability_delay"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("http.port out of range: %d", c.HTTPPort)
	}
	if c.CommandTimeout <= 0 {
		return fmt.Errorf("command.timeout must be positive")
	}
	if c.MaxWorkers <= 0 {
		return fmt.Errorf("watch.workers must be positive")
	}
	if len(c.WatchDirs) > 0 && c.WatchOutputDir == "" {
		return fmt.Errorf("watch.output_dir is required when watch.dirs is set")
	}
	if c.StabilityDelay < 0 {
		return fmt.Errorf("watch.stability_delay must not be negative")
	}
	return nil
}

func (c *Config) HTTPAddr() string { return fmt.Sprintf(":%d", c.HTTPPort) }

// splitAndTrim accepts both list values and a single comma separated string,
// which is how lists arrive from the environment.
func splitAndTrim(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, p := range strings.Split(s, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
