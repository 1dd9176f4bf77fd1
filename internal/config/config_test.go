package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/brainbrew/internal/tutor"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, tutor.DifficultyBasic, cfg.Tutor.StartDifficulty)
	assert.Equal(t, "badger", cfg.Cache.Backend)
	assert.Equal(t, "local", cfg.Blob.Backend)

	opts := cfg.Tutor.Options()
	assert.Equal(t, tutor.DefaultOptions().AdvanceDelay, opts.AdvanceDelay)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, "config.toml", `
user = "ada"

[llm]
provider = "mock"

[tutor]
start_difficulty = 2
advance_delay = "500ms"

[cache]
backend = "redis"
redis_addr = "localhost:6379"

[speech]
enabled = true
language_code = "en-GB"
`)

	cfg, err := Load(path, envMap(map[string]string{
		"BRAINBREW_USER":       "grace",
		"BRAINBREW_DIFFICULTY": "advanced",
	}))
	require.NoError(t, err)

	assert.Equal(t, "grace", cfg.User, "env overrides the file")
	assert.Equal(t, "mock", cfg.LLM.Provider)
	assert.Equal(t, tutor.DifficultyAdvanced, cfg.Tutor.StartDifficulty)
	assert.Equal(t, 500*time.Millisecond, cfg.Tutor.AdvanceDelay)
	assert.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
	assert.True(t, cfg.Speech.Enabled)
	assert.Equal(t, "en-GB", cfg.Speech.LanguageCode)
	assert.Equal(t, int32(16000), cfg.Speech.SampleRate, "unset keys keep defaults")
	require.NoError(t, cfg.Validate())
	require.NoError(t, cfg.RequireLLM())
}

func TestLoad_MissingFiles(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	_, err := Load("", envMap(nil))
	assert.NoError(t, err, "the default path is optional")

	_, err = Load(filepath.Join(t.TempDir(), "nope.toml"), envMap(nil))
	assert.Error(t, err, "an explicit path must exist")
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeFile(t, "config.toml", "[cache]\nbackend = \"badger\"\nsize = 10\n")
	_, err := Load(path, envMap(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.size")
}

func TestLoad_DiscoversVendorKeys(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := Load("", envMap(map[string]string{"OPENAI_API_KEY": "sk-test"}))
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.OpenAI.Model)

	cfg, err = Load("", envMap(map[string]string{
		"OPENAI_API_KEY":         "sk-test",
		"BRAINBREW_LLM_PROVIDER": "mock",
	}))
	require.NoError(t, err)
	assert.Equal(t, "mock", cfg.LLM.Provider, "an explicit provider disables discovery")
}

func TestApplyEnv_Malformed(t *testing.T) {
	cases := map[string]string{
		"BRAINBREW_DIFFICULTY":     "expert",
		"BRAINBREW_SPEECH_ENABLED": "maybe",
		"BRAINBREW_SESSION_TTL":    "forever",
		"BRAINBREW_LLM_TIMEOUT":    "soon",
	}
	for name, value := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			err := ApplyEnv(&cfg, envMap(map[string]string{name: value}))
			require.Error(t, err)
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestApplyEnv_CORSOrigins(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, ApplyEnv(&cfg, envMap(map[string]string{
		"BRAINBREW_CORS_ORIGINS": "https://a.example, https://b.example,",
	})))
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"difficulty out of range", func(c *Config) { c.Tutor.StartDifficulty = 7 }, "tutor.start_difficulty fails difficulty"},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, "cache.backend fails oneof"},
		{"redis without address", func(c *Config) { c.Cache.Backend = "redis" }, "cache.redis_addr fails required_if"},
		{"gcs without bucket", func(c *Config) { c.Blob.Backend = "gcs" }, "blob.bucket fails required_if"},
		{"short jwt secret", func(c *Config) { c.Server.JWTSecret = "short" }, "server.jwt_secret fails min=32"},
		{"bad provider", func(c *Config) { c.LLM.Provider = "llama" }, "llm.provider fails oneof"},
		{"bad origin", func(c *Config) { c.Server.AllowedOrigins = []string{"not a url"} }, "server.allowed_origins[0] fails url"},
		{"empty user", func(c *Config) { c.User = "" }, "user fails required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateServer_NeedsSecret(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.ValidateServer())

	cfg.Server.JWTSecret = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, cfg.ValidateServer())
}

func TestRequireLLM(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.RequireLLM(), "gemini without a key")
	cfg.LLM.Provider = "mock"
	assert.NoError(t, cfg.RequireLLM())
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "BRAINBREW_TEST_DOTENV=from-file\nBRAINBREW_TEST_PRESET=from-file\n")
	t.Setenv("BRAINBREW_TEST_PRESET", "from-env")
	t.Cleanup(func() { os.Unsetenv("BRAINBREW_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("BRAINBREW_TEST_DOTENV"))
	assert.Equal(t, "from-env", os.Getenv("BRAINBREW_TEST_PRESET"), "existing variables win")
}

func TestRegisterValidations_Names(t *testing.T) {
	type req struct {
		Level string `validate:"difficulty"`
	}
	v, err := validatorInstance()
	require.NoError(t, err)
	assert.NoError(t, v.Struct(req{Level: "Intermediate"}))
	assert.NoError(t, v.Struct(req{Level: "3"}))
	assert.Error(t, v.Struct(req{Level: "expert"}))
}
