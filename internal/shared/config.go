package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file and the environment.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Session     SessionConfig     `toml:"session"`
	Credentials CredentialsConfig `toml:"credentials"`
	Spotify     SpotifyAPIConfig  `toml:"spotify"`
	Generator   GeneratorConfig   `toml:"generator"`
	Assembler   AssemblerConfig   `toml:"assembler"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `toml:"host" env:"MIXTAPE_HOST"`
	Port            int    `toml:"port" env:"MIXTAPE_PORT"`
	SuccessRedirect string `toml:"success_redirect"`
	LogLevel        string `toml:"log_level" env:"MIXTAPE_LOG_LEVEL"`
}

// Addr returns the host:port the server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SessionConfig contains cookie signing and session lifetime settings.
type SessionConfig struct {
	Secret        string        `toml:"secret" env:"SESSION_SECRET"`
	CookieName    string        `toml:"cookie_name"`
	TTL           time.Duration `toml:"ttl"`
	SweepInterval time.Duration `toml:"sweep_interval"`
	Secure        bool          `toml:"secure"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	Gemini  GeminiConfig  `toml:"gemini"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id" env:"SPOTIFY_CLIENT_ID"`
	ClientSecret string `toml:"client_secret" env:"SPOTIFY_CLIENT_SECRET"`
	RedirectURI  string `toml:"redirect_uri" env:"REDIRECT_URI"`
}

// Map returns the credentials in the form expected by services.NewSpotifyService.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// GeminiConfig contains the generation service key and model.
type GeminiConfig struct {
	APIKey string `toml:"api_key" env:"GEMINI_API_KEY"`
	Model  string `toml:"model" env:"GEMINI_MODEL"`
}

// SpotifyAPIConfig contains Web API transport settings.
type SpotifyAPIConfig struct {
	BaseURL string        `toml:"base_url"`
	Timeout time.Duration `toml:"timeout"`
}

// GeneratorConfig selects and tunes the suggestion backend.
type GeneratorConfig struct {
	Provider       string `toml:"provider" env:"GENERATOR_PROVIDER"`
	OllamaHost     string `toml:"ollama_host" env:"OLLAMA_HOST"`
	OllamaModel    string `toml:"ollama_model" env:"OLLAMA_MODEL"`
	MaxTurns       int    `toml:"max_turns"`
	RequireSession bool   `toml:"require_session"`
}

// AssemblerConfig holds the playlist assembly failure policy.
type AssemblerConfig struct {
	OnPopulateFailure string `toml:"on_populate_failure" env:"POPULATE_FAILURE_POLICY"`
}

// LoadConfig builds a [Config] from the embedded defaults, the TOML file at path (skipped when it does not exist),
// a .env file in the working directory, and finally the process environment.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the settings the HTTP service cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Session.Secret == "" {
		errs = append(errs, fmt.Errorf("%w: session secret (SESSION_SECRET)", ErrMissingCredentials))
	}
	if c.Credentials.Spotify.ClientID == "" || c.Credentials.Spotify.ClientSecret == "" {
		errs = append(errs, fmt.Errorf("%w: spotify client_id and client_secret", ErrMissingCredentials))
	}
	switch c.Generator.Provider {
	case "gemini":
		if c.Credentials.Gemini.APIKey == "" {
			errs = append(errs, fmt.Errorf("%w: gemini api key (GEMINI_API_KEY)", ErrMissingCredentials))
		}
	case "ollama":
	default:
		errs = append(errs, fmt.Errorf("%w: unknown generator provider %q", ErrInvalidConfig, c.Generator.Provider))
	}
	switch c.Assembler.OnPopulateFailure {
	case "keep", "delete":
	default:
		errs = append(errs, fmt.Errorf("%w: on_populate_failure must be keep or delete", ErrInvalidConfig))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, fmt.Errorf("%w: session ttl must be positive", ErrInvalidConfig))
	}
	return errors.Join(errs...)
}
