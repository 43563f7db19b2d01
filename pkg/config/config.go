package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config represents the complete bridge configuration.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Scene    SceneConfig    `json:"scene"`
	Database DatabaseConfig `json:"database"`
	Auth     AuthConfig     `json:"auth"`
	Demo     DemoConfig     `json:"demo"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Port is the HTTP server port (default: 8080)
	Port string `json:"port"`

	// Host is the server bind address (default: "0.0.0.0")
	Host string `json:"host"`

	// TLSEnabled determines if HTTPS should be used
	TLSEnabled bool `json:"tls_enabled"`

	// TLSCertFile is the path to the TLS certificate
	TLSCertFile string `json:"tls_cert_file"`

	// TLSKeyFile is the path to the TLS private key
	TLSKeyFile string `json:"tls_key_file"`
}

// SceneConfig controls state retention and the initial camera.
type SceneConfig struct {
	// TrackTTLSeconds is how long a track survives past the newest
	// observation in its batch before it is evicted
	TrackTTLSeconds float64 `json:"track_ttl_seconds"`

	// AirplaneTTLSeconds is the retention window for aircraft samples
	AirplaneTTLSeconds float64 `json:"airplane_ttl_seconds"`

	// AirplaneScale is the model scale applied to rendered aircraft
	AirplaneScale float64 `json:"airplane_scale"`

	// CenterLng and CenterLat position the initial camera
	CenterLng float64 `json:"center_lng"`
	CenterLat float64 `json:"center_lat"`

	// MinZoom and MaxZoom bound the viewer's zoom range
	MinZoom float64 `json:"min_zoom"`
	MaxZoom float64 `json:"max_zoom"`

	// Zoom is the initial zoom level
	Zoom float64 `json:"zoom"`

	// PitchDeg is the initial camera pitch in degrees
	PitchDeg float64 `json:"pitch_deg"`
}

// DatabaseConfig contains the track archive connection settings.
type DatabaseConfig struct {
	// Enabled determines if track batches are archived to PostgreSQL
	Enabled bool `json:"enabled"`

	// Host is the database server hostname
	Host string `json:"host"`

	// Port is the database server port
	Port int `json:"port"`

	// Database is the database name
	Database string `json:"database"`

	// Username for database authentication
	Username string `json:"username"`

	// Password for database authentication (should be loaded from environment)
	Password string `json:"password"`

	// SSLMode for PostgreSQL connections (disable, require, verify-ca, verify-full)
	SSLMode string `json:"ssl_mode"`

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int `json:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int `json:"max_idle_conns"`
}

// AuthConfig controls access to the viewer socket.
type AuthConfig struct {
	// Enabled determines if endpoints require a bearer token
	Enabled bool `json:"enabled"`

	// JWTSecret signs and verifies tokens (should be loaded from environment)
	JWTSecret string `json:"jwt_secret"`

	// TokenDurationHours is how long minted tokens stay valid
	TokenDurationHours int `json:"token_duration_hours"`
}

// DemoConfig drives the built-in telemetry generator.
type DemoConfig struct {
	// UpdatesPerSecond paces generated track batches
	UpdatesPerSecond float64 `json:"updates_per_second"`

	// TrackCount is how many simulated tracks to move around
	TrackCount int `json:"track_count"`
}

// Load reads configuration from a JSON file.
// If the file doesn't exist, returns a default configuration.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvironmentOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	return cfg, nil
}

// Save writes the configuration to a JSON file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults. The
// camera defaults frame the reference airfield the demo feed flies over.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:       "8080",
			Host:       "0.0.0.0",
			TLSEnabled: false,
		},
		Scene: SceneConfig{
			TrackTTLSeconds:    5.0,
			AirplaneTTLSeconds: 10.0,
			AirplaneScale:      40.0,
			CenterLng:          113.3172,
			CenterLat:          23.3835,
			MinZoom:            9.0,
			MaxZoom:            18.0,
			Zoom:               13.0,
			PitchDeg:           45.0,
		},
		Database: DatabaseConfig{
			Enabled:      false,
			Host:         "localhost",
			Port:         5432,
			Database:     "scenelink",
			Username:     "scenelink",
			SSLMode:      "disable",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		Auth: AuthConfig{
			Enabled:            false,
			TokenDurationHours: 24,
		},
		Demo: DemoConfig{
			UpdatesPerSecond: 2.0,
			TrackCount:       3,
		},
	}
}

// applyEnvironmentOverrides applies environment variable overrides.
// This keeps sensitive values like passwords and secrets out of config
// files.
func (c *Config) applyEnvironmentOverrides() {
	if port := os.Getenv("SCENELINK_PORT"); port != "" {
		c.Server.Port = port
	}
	if host := os.Getenv("SCENELINK_HOST"); host != "" {
		c.Server.Host = host
	}
	if dbPassword := os.Getenv("SCENELINK_DB_PASSWORD"); dbPassword != "" {
		c.Database.Password = dbPassword
	}
	if dbHost := os.Getenv("SCENELINK_DB_HOST"); dbHost != "" {
		c.Database.Host = dbHost
	}
	if secret := os.Getenv("SCENELINK_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
		c.Auth.Enabled = true
	}
	if ttl := os.Getenv("SCENELINK_TRACK_TTL_SECONDS"); ttl != "" {
		if v, err := strconv.ParseFloat(ttl, 64); err == nil && v > 0 {
			c.Scene.TrackTTLSeconds = v
		}
	}
}
