package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag that maps to a config key.
type Flag struct {
	// Name is the long flag name (e.g. "chunk-size").
	Name string

	// Shorthand is the one-letter short flag. Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "extract.chunk_size").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// Flag registry keys.
const (
	FlagProvider        = "provider"
	FlagModel           = "model"
	FlagChunkSize       = "chunk-size"
	FlagMaxAttempts     = "max-attempts"
	FlagTemperature     = "temperature"
	FlagMaxOutputTokens = "max-output-tokens"
	FlagConcurrency     = "concurrency"
	FlagTimeout         = "timeout"
	FlagMinUnitChars    = "min-unit-chars"
	FlagMaxSplitDepth   = "max-split-depth"
	FlagOpenAIBaseURL   = "openai-base-url"
	FlagOllamaURL       = "ollama-url"
	FlagDebug           = "debug"
	FlagLogJSON         = "log-json"
)

var registry = map[string]Flag{
	FlagProvider:        {Name: FlagProvider, Shorthand: "p", ViperKey: "provider", Description: "Generation provider: gemini, openai or ollama"},
	FlagModel:           {Name: FlagModel, Shorthand: "m", ViperKey: "model", Description: "Model name"},
	FlagChunkSize:       {Name: FlagChunkSize, ViperKey: "extract.chunk_size", Description: "Top-level chunk budget in characters"},
	FlagMaxAttempts:     {Name: FlagMaxAttempts, ViperKey: "extract.max_attempts", Description: "Attempts per unit when the output fails validation"},
	FlagTemperature:     {Name: FlagTemperature, ViperKey: "extract.temperature", Description: "Sampling temperature"},
	FlagMaxOutputTokens: {Name: FlagMaxOutputTokens, ViperKey: "extract.max_output_tokens", Description: "Output token budget per call"},
	FlagConcurrency:     {Name: FlagConcurrency, Shorthand: "c", ViperKey: "extract.concurrency", Description: "Maximum in-flight generation calls (0 = library default)"},
	FlagTimeout:         {Name: FlagTimeout, ViperKey: "extract.timeout", Description: "Deadline for the whole document (0 = none)"},
	FlagMinUnitChars:    {Name: FlagMinUnitChars, ViperKey: "extract.min_unit_chars", Description: "Overflowing units shorter than this fail instead of splitting (0 = no floor)"},
	FlagMaxSplitDepth:   {Name: FlagMaxSplitDepth, ViperKey: "extract.max_split_depth", Description: "Maximum number of halvings per chunk (0 = unbounded)"},
	FlagOpenAIBaseURL:   {Name: FlagOpenAIBaseURL, ViperKey: "openai.base_url", Description: "OpenAI-compatible endpoint"},
	FlagOllamaURL:       {Name: FlagOllamaURL, ViperKey: "ollama.url", Description: "Ollama server URL"},
	FlagDebug:           {Name: FlagDebug, Shorthand: "d", ViperKey: "debug", Description: "Enable debug logging"},
	FlagLogJSON:         {Name: FlagLogJSON, ViperKey: "log_json", Description: "Log as JSON instead of colored text"},
}

// Lookup returns the registry entry for key.
func Lookup(key string) (Flag, bool) {
	f, ok := registry[key]
	return f, ok
}

// AddFlags registers the given registry flags on cmd. Defaults come from
// NewDefaultConfig so help output matches the effective values.
func AddFlags(cmd *cobra.Command, persistent bool, keys ...string) {
	fs := cmd.Flags()
	if persistent {
		fs = cmd.PersistentFlags()
	}
	d := viper.New()
	setViperDefaults(d)

	for _, key := range keys {
		f, ok := registry[key]
		if !ok {
			continue
		}
		switch val := d.Get(f.ViperKey).(type) {
		case string:
			fs.StringP(f.Name, f.Shorthand, val, f.Description)
		case int:
			fs.IntP(f.Name, f.Shorthand, val, f.Description)
		case float64:
			fs.Float64P(f.Name, f.Shorthand, val, f.Description)
		case bool:
			fs.BoolP(f.Name, f.Shorthand, val, f.Description)
		default:
			fs.DurationP(f.Name, f.Shorthand, d.GetDuration(f.ViperKey), f.Description)
		}
	}
}

// BindFlags binds every registry flag present on cmd to its viper key.
// Only flags the user set explicitly override lower-precedence sources.
func BindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for _, f := range registry {
		pf := cmd.Flags().Lookup(f.Name)
		if pf == nil {
			continue
		}
		if err := v.BindPFlag(f.ViperKey, pf); err != nil {
			return fmt.Errorf("binding flag %s: %w", f.Name, err)
		}
	}
	return nil
}
