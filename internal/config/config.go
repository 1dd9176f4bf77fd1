// Package config assembles the brainbrew configuration from defaults, an
// optional TOML file, a .env file and BRAINBREW_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/abhisek/brainbrew/internal/blob"
	"github.com/abhisek/brainbrew/internal/cache"
	"github.com/abhisek/brainbrew/internal/content"
	"github.com/abhisek/brainbrew/internal/extract"
	"github.com/abhisek/brainbrew/internal/grading"
	"github.com/abhisek/brainbrew/internal/llm"
	"github.com/abhisek/brainbrew/internal/speech"
	"github.com/abhisek/brainbrew/internal/telemetry"
	"github.com/abhisek/brainbrew/internal/tutor"
)

// Config is the complete application configuration.
type Config struct {
	// User owns documents and sessions created from the CLI.
	User string `toml:"user" validate:"required"`

	// Database is a SQLite path or a postgres:// DSN. Empty uses the
	// default XDG location.
	Database string `toml:"database"`

	Log        LogConfig               `toml:"log"`
	LLM        llm.Config              `toml:"llm"`
	Content    content.Config          `toml:"content"`
	Grading    grading.Config          `toml:"grading"`
	Tutor      TutorConfig             `toml:"tutor"`
	Cache      cache.Config            `toml:"cache"`
	Blob       blob.Config             `toml:"blob"`
	DocumentAI extract.DocumentAIConfig `toml:"documentai"`
	Speech     SpeechConfig            `toml:"speech"`
	Telemetry  telemetry.Config        `toml:"telemetry"`
	Server     ServerConfig            `toml:"server"`
}

// LogConfig selects the zap preset.
type LogConfig struct {
	// Mode is "dev", "prod" or "nop".
	Mode  string `toml:"mode" validate:"oneof=dev prod nop"`
	Level string `toml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// TutorConfig holds the dialogue timings.
type TutorConfig struct {
	StartDifficulty tutor.Difficulty `toml:"start_difficulty" validate:"difficulty"`
	IntroDelay      time.Duration    `toml:"intro_delay" validate:"min=0"`
	AdvanceDelay    time.Duration    `toml:"advance_delay" validate:"min=0"`
	CallTimeout     time.Duration    `toml:"call_timeout" validate:"min=0"`
}

// Options converts the timings into controller options.
func (t TutorConfig) Options() tutor.Options {
	opts := tutor.DefaultOptions()
	opts.StartDifficulty = t.StartDifficulty
	opts.IntroDelay = t.IntroDelay
	opts.AdvanceDelay = t.AdvanceDelay
	opts.CallTimeout = t.CallTimeout
	return opts
}

// SpeechConfig enables dictation.
type SpeechConfig struct {
	Enabled bool `toml:"enabled"`
	speech.Config
}

// ServerConfig configures `brainbrew serve`.
type ServerConfig struct {
	Addr string `toml:"addr" validate:"required"`

	// JWTSecret signs access tokens. It is only required when serving.
	JWTSecret string        `toml:"jwt_secret" validate:"omitempty,min=32"`
	JWTIssuer string        `toml:"jwt_issuer" validate:"required"`
	TokenTTL  time.Duration `toml:"token_ttl" validate:"gt=0"`

	// SessionTTL evicts study sessions idle for longer than this.
	SessionTTL time.Duration `toml:"session_ttl" validate:"gt=0"`

	AllowedOrigins  []string      `toml:"allowed_origins" validate:"dive,url"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" validate:"min=0"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	tutorOpts := tutor.DefaultOptions()
	return Config{
		User:    "local",
		Log:     LogConfig{Mode: "nop"},
		LLM:     llm.DefaultConfig(),
		Content: content.DefaultConfig(),
		Grading: grading.DefaultConfig(),
		Tutor: TutorConfig{
			StartDifficulty: tutor.DifficultyBasic,
			IntroDelay:      tutorOpts.IntroDelay,
			AdvanceDelay:    tutorOpts.AdvanceDelay,
			CallTimeout:     tutorOpts.CallTimeout,
		},
		Cache:      cache.DefaultConfig(),
		Blob:       blob.Config{Backend: "local"},
		DocumentAI: extract.DocumentAIConfig{Location: "us", Timeout: 2 * time.Minute},
		Speech:     SpeechConfig{Config: speech.DefaultConfig()},
		Telemetry:  telemetry.DefaultConfig(),
		Server: ServerConfig{
			Addr:            ":8080",
			JWTIssuer:       "brainbrew",
			TokenTTL:        24 * time.Hour,
			SessionTTL:      2 * time.Hour,
			AllowedOrigins:  []string{"http://localhost:3000"},
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/brainbrew/config.toml, falling back
// to ~/.config.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "brainbrew", "config.toml")
}

// Load builds the configuration. An explicit path must exist; the default
// path is optional. getenv is usually os.Getenv after LoadDotEnv.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return Config{}, err
			}
		}
	}

	if err := ApplyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	discover(&cfg, getenv)
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// LoadDotEnv reads .env style files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// discover falls back to the vendors' standard key variables when no
// provider credentials were configured explicitly.
func discover(cfg *Config, getenv func(string) string) {
	if cfg.LLM.HasKey() || getenv("BRAINBREW_LLM_PROVIDER") != "" {
		return
	}
	found, ok := llm.DiscoverConfigFrom(getenv)
	if !ok {
		return
	}
	cfg.LLM.Provider = found.Provider
	cfg.LLM.Gemini.APIKey = found.Gemini.APIKey
	cfg.LLM.OpenAI.APIKey = found.OpenAI.APIKey
	cfg.LLM.Anthropic.APIKey = found.Anthropic.APIKey
	cfg.LLM.OpenRouter.APIKey = found.OpenRouter.APIKey
}

type envBinding struct {
	name string
	set  func(*Config, string) error
}

func str(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func boolean(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

func duration(field func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}
}

var envBindings = []envBinding{
	{"BRAINBREW_USER", str(func(c *Config) *string { return &c.User })},
	{"BRAINBREW_DB", str(func(c *Config) *string { return &c.Database })},
	{"BRAINBREW_LOG", str(func(c *Config) *string { return &c.Log.Mode })},
	{"BRAINBREW_LOG_LEVEL", str(func(c *Config) *string { return &c.Log.Level })},
	{"BRAINBREW_DIFFICULTY", func(c *Config, v string) error {
		d, err := tutor.ParseDifficulty(v)
		if err != nil {
			return err
		}
		c.Tutor.StartDifficulty = d
		return nil
	}},
	{"BRAINBREW_CACHE_BACKEND", str(func(c *Config) *string { return &c.Cache.Backend })},
	{"BRAINBREW_CACHE_DIR", str(func(c *Config) *string { return &c.Cache.Dir })},
	{"BRAINBREW_REDIS_ADDR", str(func(c *Config) *string { return &c.Cache.RedisAddr })},
	{"BRAINBREW_BLOB_BACKEND", str(func(c *Config) *string { return &c.Blob.Backend })},
	{"BRAINBREW_BLOB_DIR", str(func(c *Config) *string { return &c.Blob.Dir })},
	{"BRAINBREW_GCS_BUCKET", str(func(c *Config) *string { return &c.Blob.Bucket })},
	{"BRAINBREW_DOCUMENTAI_PROJECT", str(func(c *Config) *string { return &c.DocumentAI.ProjectID })},
	{"BRAINBREW_DOCUMENTAI_LOCATION", str(func(c *Config) *string { return &c.DocumentAI.Location })},
	{"BRAINBREW_DOCUMENTAI_PROCESSOR", str(func(c *Config) *string { return &c.DocumentAI.ProcessorID })},
	{"BRAINBREW_SPEECH_ENABLED", boolean(func(c *Config) *bool { return &c.Speech.Enabled })},
	{"BRAINBREW_SPEECH_LANGUAGE", str(func(c *Config) *string { return &c.Speech.LanguageCode })},
	{"BRAINBREW_OTEL_EXPORTER", str(func(c *Config) *string { return &c.Telemetry.Exporter })},
	{"BRAINBREW_OTEL_ENDPOINT", str(func(c *Config) *string { return &c.Telemetry.Endpoint })},
	{"BRAINBREW_ADDR", str(func(c *Config) *string { return &c.Server.Addr })},
	{"BRAINBREW_JWT_SECRET", str(func(c *Config) *string { return &c.Server.JWTSecret })},
	{"BRAINBREW_SESSION_TTL", duration(func(c *Config) *time.Duration { return &c.Server.SessionTTL })},
	{"BRAINBREW_CORS_ORIGINS", func(c *Config, v string) error {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.AllowedOrigins = origins
		return nil
	}},
}

// ApplyEnv overlays BRAINBREW_* variables onto cfg, including the LLM
// settings.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if err := llm.ApplyEnv(&cfg.LLM, getenv); err != nil {
		return err
	}
	for _, b := range envBindings {
		v := getenv(b.name)
		if v == "" {
			continue
		}
		if err := b.set(cfg, v); err != nil {
			return fmt.Errorf("%s: %w", b.name, err)
		}
	}
	return nil
}
