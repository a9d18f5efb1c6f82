// Package config loads factextract CLI settings from defaults, a TOML file,
// FACTEXTRACT_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vivaneiona/factextract"
)

const (
	configName = "factextract"
	envPrefix  = "FACTEXTRACT"
)

// Providers understood by the CLI.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Config is the resolved CLI configuration. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Provider string        `mapstructure:"provider"`
	Model    string        `mapstructure:"model"`
	Debug    bool          `mapstructure:"debug"`
	LogJSON  bool          `mapstructure:"log_json"`
	Extract  ExtractConfig `mapstructure:"extract"`
	Gemini   GeminiConfig  `mapstructure:"gemini"`
	OpenAI   OpenAIConfig  `mapstructure:"openai"`
	Ollama   OllamaConfig  `mapstructure:"ollama"`
}

// ExtractConfig mirrors the extractor options.
type ExtractConfig struct {
	ChunkSize       int           `mapstructure:"chunk_size"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxOutputTokens int           `mapstructure:"max_output_tokens"`
	Scope           string        `mapstructure:"scope"`
	Concurrency     int           `mapstructure:"concurrency"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MinUnitChars    int           `mapstructure:"min_unit_chars"`
	MaxSplitDepth   int           `mapstructure:"max_split_depth"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type OllamaConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// NewDefaultConfig returns the configuration used when nothing else is set.
func NewDefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Model:    "gemini-2.5-flash",
		Extract: ExtractConfig{
			ChunkSize:       factextract.DefaultChunkSize,
			MaxAttempts:     factextract.DefaultMaxAttempts,
			Temperature:     factextract.DefaultTemperature,
			MaxOutputTokens: factextract.DefaultMaxOutputTokens,
			Scope:           factextract.DefaultScope,
			MinUnitChars:    factextract.DefaultMinUnitChars,
			MaxSplitDepth:   factextract.DefaultMaxSplitDepth,
		},
		Ollama: OllamaConfig{
			URL:     factextract.DefaultOllamaURL,
			Timeout: 5 * time.Minute,
		},
	}
}

// InitViper creates and returns a configured *viper.Viper.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindFlags)
//  2. Environment variables (FACTEXTRACT_MODEL, FACTEXTRACT_EXTRACT_CHUNK_SIZE, etc.)
//  3. factextract.toml values
//  4. Defaults from NewDefaultConfig()
//
// An explicit configFile must exist. Otherwise factextract.toml is looked up
// in the working directory and then in the user config directory.
func InitViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	setViperDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, configName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if configFile != "" || !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Provider keys also honour the variables their SDKs document.
	_ = v.BindEnv("gemini.api_key", envPrefix+"_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY")
	_ = v.BindEnv("openai.api_key", envPrefix+"_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("ollama.url", envPrefix+"_OLLAMA_URL", "OLLAMA_HOST")

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() using dotted
// keys. Every key must have a default for AutomaticEnv to reach Unmarshal.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("provider", d.Provider)
	v.SetDefault("model", d.Model)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("log_json", d.LogJSON)

	v.SetDefault("extract.chunk_size", d.Extract.ChunkSize)
	v.SetDefault("extract.max_attempts", d.Extract.MaxAttempts)
	v.SetDefault("extract.temperature", d.Extract.Temperature)
	v.SetDefault("extract.max_output_tokens", d.Extract.MaxOutputTokens)
	v.SetDefault("extract.scope", d.Extract.Scope)
	v.SetDefault("extract.concurrency", d.Extract.Concurrency)
	v.SetDefault("extract.timeout", d.Extract.Timeout)
	v.SetDefault("extract.min_unit_chars", d.Extract.MinUnitChars)
	v.SetDefault("extract.max_split_depth", d.Extract.MaxSplitDepth)

	v.SetDefault("gemini.api_key", d.Gemini.APIKey)
	v.SetDefault("openai.api_key", d.OpenAI.APIKey)
	v.SetDefault("openai.base_url", d.OpenAI.BaseURL)
	v.SetDefault("ollama.url", d.Ollama.URL)
	v.SetDefault("ollama.timeout", d.Ollama.Timeout)
}

// Load resolves v into a Config and checks it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unknown provider %q (want %s, %s or %s)", c.Provider, ProviderGemini, ProviderOpenAI, ProviderOllama)
	}
	if c.Extract.ChunkSize < 0 {
		return fmt.Errorf("extract.chunk_size must not be negative, got %d", c.Extract.ChunkSize)
	}
	if c.Extract.Temperature < 0 || c.Extract.Temperature > 2 {
		return fmt.Errorf("extract.temperature %v must be between 0.0 and 2.0", c.Extract.Temperature)
	}
	return nil
}

// ExtractOptions converts the configuration into extractor options.
func (c *Config) ExtractOptions() []func(*factextract.Options) {
	opts := []func(*factextract.Options){
		factextract.WithModel(c.Model),
		factextract.WithChunkSize(c.Extract.ChunkSize),
		factextract.WithMaxAttempts(c.Extract.MaxAttempts),
		factextract.WithTemperature(float32(c.Extract.Temperature)),
		factextract.WithMaxOutputTokens(c.Extract.MaxOutputTokens),
		factextract.WithScope(c.Extract.Scope),
		factextract.WithTimeout(c.Extract.Timeout),
		factextract.WithMinUnitChars(c.Extract.MinUnitChars),
		factextract.WithMaxSplitDepth(c.Extract.MaxSplitDepth),
	}
	if c.Extract.Concurrency > 0 {
		opts = append(opts, factextract.WithConcurrency(c.Extract.Concurrency))
	}
	return opts
}
