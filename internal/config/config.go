package config

import (
	"cmp"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultFile is read when no config path is given. It may be absent.
const DefaultFile = "config.yaml"

type Config struct {
	Database    DatabaseConfig    `mapstructure:"database"`
	AI          AIConfig          `mapstructure:"ai"`
	Application ApplicationConfig `mapstructure:"application"`
	Log         LogConfig         `mapstructure:"log"`
}

type ApplicationConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	// OutputDir holds reports written without an explicit path.
	OutputDir string `mapstructure:"output_dir"`
	// Output is the explicit report path from --output.
	Output        string        `mapstructure:"output"`
	WatchDebounce time.Duration `mapstructure:"watch_debounce"`
	Storage       StorageConfig `mapstructure:"storage"`
}

type StorageConfig struct {
	Stage string `mapstructure:"stage"`
	// Processed receives decks after watch mode handled them. Empty leaves
	// them in Stage.
	Processed string `mapstructure:"processed"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type AIConfig struct {
	ActiveProvider string                      `mapstructure:"active_provider"`
	Providers      map[string]ProviderSettings `mapstructure:"providers"`
}

type ProviderSettings struct {
	Driver      string  `mapstructure:"driver"` // gemini
	Key         string  `mapstructure:"key"`
	Endpoint    string  `mapstructure:"endpoint"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// Active returns the settings of the active provider, if it has a key.
func (c *AIConfig) Active() (ProviderSettings, bool) {
	p, ok := c.Providers[c.ActiveProvider]
	if !ok || p.Key == "" {
		return ProviderSettings{}, false
	}
	return p, true
}

type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Options  string `mapstructure:"options"`
}

// Enabled reports whether a report store is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.GetConnectStr() != ""
}

// GetConnectStr returns the lib/pq connection URL: URL as given, or one
// built from the individual settings when Host is set. It is empty when
// neither is configured.
func (c *DatabaseConfig) GetConnectStr() string {
	switch {
	case c.URL != "":
		return c.URL
	case c.Host == "":
		return ""
	}

	u := url.URL{Scheme: "postgres", Host: c.Host, Path: "/" + c.DBName}
	if c.Port != "" {
		u.Host = net.JoinHostPort(c.Host, c.Port)
	}
	switch {
	case c.Password != "":
		u.User = url.UserPassword(c.User, c.Password)
	case c.User != "":
		u.User = url.User(c.User)
	}

	query := url.Values{"sslmode": {cmp.Or(c.SSLMode, "disable")}}
	if c.Options != "" {
		query.Set("options", c.Options)
	}
	u.RawQuery = query.Encode()
	return u.String()
}

// LoadConfig merges, from lowest to highest precedence: defaults, the YAML
// file at path (DefaultFile when empty, skipped if missing), environment
// variables (a local .env is loaded first) and flags bound from fs.
func LoadConfig(path string, fs *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, using system environment variables")
	}

	v := viper.New()
	v.AutomaticEnv()

	// Environment variable mappings
	mappings := []struct {
		key, env string
	}{
		{"database.url", "DB_URL"},
		{"database.host", "PG_HOST"},
		{"database.port", "PG_PORT"},
		{"database.user", "PG_USER"},
		{"database.password", "PG_PASSWORD"},
		{"database.dbname", "PG_DB"},
		{"database.sslmode", "PG_SSLMODE"},
		{"database.options", "PG_OPTIONS"},
		{"ai.active_provider", "AI_PROVIDER"},
		{"log.level", "LOG_LEVEL"},

		// Output and storage
		{"application.output_dir", "OUTPUT_DIR"},
		{"application.watch_debounce", "WATCH_DEBOUNCE"},
		{"application.storage.stage", "STORAGE_STAGE"},
		{"application.storage.processed", "STORAGE_PROCESSED"},

		// AI Providers
		{"ai.providers.gemini.key", "GEMINI_KEY"},
		{"ai.providers.gemini.model", "GEMINI_MODEL"},
	}

	for _, m := range mappings {
		if err := v.BindEnv(m.key, m.env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", m.env, err)
		}
	}

	// Defaults
	v.SetDefault("application.name", "pptxinfo")
	v.SetDefault("application.output_dir", "slides")
	v.SetDefault("application.watch_debounce", 2*time.Second)
	v.SetDefault("application.storage.stage", "stage")
	v.SetDefault("log.level", "info")
	v.SetDefault("ai.active_provider", "gemini")
	v.SetDefault("ai.providers.gemini.driver", "gemini")
	v.SetDefault("ai.providers.gemini.model", "gemini-1.5-flash")

	if fs != nil {
		if f := fs.Lookup("output"); f != nil {
			if err := v.BindPFlag("application.output", f); err != nil {
				return nil, fmt.Errorf("binding --output: %w", err)
			}
		}
	}

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.AI.ActiveProvider == "" {
		cfg.AI.ActiveProvider = "gemini"
	}

	return &cfg, nil
}
