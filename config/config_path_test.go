package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillscan/internal/appdirs"
)

func TestResolveConfigPathHonoursHomeEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv(appdirs.HomeEnv, home)

	p, err := ResolveConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "config", "config.toml"), p)
}

func TestCheckConfig(t *testing.T) {
	oldConf := Conf
	t.Cleanup(func() { Conf = oldConf })

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "openai with key",
			mutate: func(c *Config) { c.Recognition.OpenAI.APIKey = "sk" },
		},
		{
			name:    "openai without key or endpoint",
			mutate:  func(c *Config) {},
			wantErr: "api_key is required",
		},
		{
			name: "ollama uses default endpoint",
			mutate: func(c *Config) {
				c.Recognition.Provider = " Ollama "
			},
		},
		{
			name:    "gemini without key",
			mutate:  func(c *Config) { c.Recognition.Provider = ProviderGemini },
			wantErr: "gemini.api_key",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Recognition.Provider = "claude" },
			wantErr: "unsupported recognition provider",
		},
		{
			name: "empty crop",
			mutate: func(c *Config) {
				c.Recognition.OpenAI.APIKey = "sk"
				c.Frames.Crop.Name = Crop{Left: 0.5, Top: 0.2, Right: 0.5, Bottom: 0.3}
			},
			wantErr: "frames.crop.name",
		},
		{
			name: "zero retries",
			mutate: func(c *Config) {
				c.Recognition.OpenAI.APIKey = "sk"
				c.Recognition.MaxRetries = 0
			},
			wantErr: "max_retries",
		},
		{
			name: "unknown hint engine",
			mutate: func(c *Config) {
				c.Recognition.OpenAI.APIKey = "sk"
				c.Hint.Engine = "apple"
			},
			wantErr: "hint engine",
		},
		{
			name: "unknown normalize mode",
			mutate: func(c *Config) {
				c.Recognition.OpenAI.APIKey = "sk"
				c.Recognition.Normalize = "nfd"
			},
			wantErr: "normalize mode",
		},
		{
			name: "proxy parsed",
			mutate: func(c *Config) {
				c.Recognition.OpenAI.APIKey = "sk"
				c.App.Proxy = "http://127.0.0.1:7890"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Conf = defaultConfig()
			tt.mutate(&Conf)

			err := CheckConfig()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCheckConfigNormalizesProviderAndProxy(t *testing.T) {
	oldConf := Conf
	t.Cleanup(func() { Conf = oldConf })

	Conf = defaultConfig()
	Conf.Recognition.Provider = " OLLAMA"
	Conf.App.Proxy = "socks5://127.0.0.1:1080"

	require.NoError(t, CheckConfig())
	assert.Equal(t, ProviderOllama, Conf.Recognition.Provider)
	require.NotNil(t, Conf.App.ParsedProxy)
	assert.Equal(t, "socks5", Conf.App.ParsedProxy.Scheme)
}
