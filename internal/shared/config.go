package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Sync        SyncConfig        `toml:"sync"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	Tidal   TidalConfig   `toml:"tidal"`
}

// SpotifyConfig contains Spotify API credentials and saved tokens.
type SpotifyConfig struct {
	Username     string    `toml:"username"`
	ClientID     string    `toml:"client_id"`
	ClientSecret string    `toml:"client_secret"`
	RedirectURI  string    `toml:"redirect_uri"`
	AccessToken  string    `toml:"access_token"`
	RefreshToken string    `toml:"refresh_token"`
	TokenExpiry  time.Time `toml:"token_expiry"`
}

// Map returns the credentials as the map consumed by service constructors.
func (c SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"username":      c.Username,
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"redirect_uri":  c.RedirectURI,
	}
}

// Update stores a freshly obtained OAuth2 token in the config.
func (c *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", ErrAuthFailed)
	}
	c.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		c.RefreshToken = token.RefreshToken
	}
	c.TokenExpiry = token.Expiry
	return nil
}

// Token reconstructs the saved OAuth2 token, or nil when none was saved.
func (c SpotifyConfig) Token() *oauth2.Token {
	if c.AccessToken == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		Expiry:       c.TokenExpiry,
	}
}

// TidalConfig contains Tidal API credentials and saved tokens.
type TidalConfig struct {
	ClientID     string    `toml:"client_id"`
	ClientSecret string    `toml:"client_secret"`
	RedirectURI  string    `toml:"redirect_uri"`
	AccessToken  string    `toml:"access_token"`
	RefreshToken string    `toml:"refresh_token"`
	TokenExpiry  time.Time `toml:"token_expiry"`
}

// Map returns the credentials as the map consumed by service constructors.
func (c TidalConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"redirect_uri":  c.RedirectURI,
	}
}

// Update stores a freshly obtained OAuth2 token in the config.
func (c *TidalConfig) Update(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", ErrAuthFailed)
	}
	c.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		c.RefreshToken = token.RefreshToken
	}
	c.TokenExpiry = token.Expiry
	return nil
}

// Token reconstructs the saved OAuth2 token, or nil when none was saved.
func (c TidalConfig) Token() *oauth2.Token {
	if c.AccessToken == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		Expiry:       c.TokenExpiry,
	}
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local OAuth callback server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// SyncPair maps a Spotify playlist to the Tidal playlist it syncs into.
type SyncPair struct {
	SpotifyID string `toml:"spotify_id"`
	TidalID   string `toml:"tidal_id"`
}

// SyncConfig contains knobs for the search scheduler and playlist selection.
type SyncConfig struct {
	MaxConcurrency    int        `toml:"max_concurrency"`    // Max simultaneous in-flight searches
	RateLimit         float64    `toml:"rate_limit"`         // Searches initiated per second
	ExcludedPlaylists []string   `toml:"excluded_playlists"` // Spotify playlist ids (or URIs) never synced
	SyncPlaylists     []SyncPair `toml:"sync_playlists"`     // Explicit playlist pairs; overrides name matching
}

const (
	DefaultMaxConcurrency = 10
	DefaultRateLimit      = 10.0
)

// MaxConcurrencyOrDefault returns the configured concurrency ceiling, falling back to [DefaultMaxConcurrency].
func (s SyncConfig) MaxConcurrencyOrDefault() int {
	if s.MaxConcurrency <= 0 {
		return DefaultMaxConcurrency
	}
	return s.MaxConcurrency
}

// RateLimitOrDefault returns the configured search rate, falling back to [DefaultRateLimit].
func (s SyncConfig) RateLimitOrDefault() float64 {
	if s.RateLimit <= 0 {
		return DefaultRateLimit
	}
	return s.RateLimit
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// SaveConfig writes the configuration back to disk as TOML.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
