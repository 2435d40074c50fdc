package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPath overrides the config file location.
const EnvPath = "REALMD_CONFIG"

// DefaultPath is the config file used when EnvPath is unset.
const DefaultPath = "config/authserver.yaml"

// AuthServer holds all configuration for the auth server.
type AuthServer struct {
	// Network
	BindAddress  string `yaml:"bind_address"`
	Port         int    `yaml:"port"`
	WriteTimeout int    `yaml:"write_timeout"` // seconds a single reply may block, 0 = no limit

	// Database
	Database DatabaseConfig `yaml:"database"`

	// Patches are looked up in <data_dir>/patches
	DataDir          string `yaml:"data_dir"`
	PatchPacketDelay int    `yaml:"patch_packet_delay"` // ms between XFER_DATA chunks

	// Realm list cache lifetime
	RealmsStateUpdateDelay int `yaml:"realms_state_update_delay"` // seconds

	// Security
	WrongPass                WrongPassConfig `yaml:"wrong_pass"`
	LegacyInlineRegistration bool            `yaml:"legacy_inline_registration"`
	TokenSkew                uint            `yaml:"token_skew"` // accepted TOTP periods either side

	// Observability
	MetricsAddress string `yaml:"metrics_address"` // empty disables the endpoint
	LogLevel       string `yaml:"log_level"`
}

// WrongPassConfig controls failed-login accounting.
type WrongPassConfig struct {
	MaxCount   int  `yaml:"max_count"` // 0 disables auto-ban
	BanTime    int  `yaml:"ban_time"`  // seconds
	BanAccount bool `yaml:"ban_account"`
	Logging    bool `yaml:"logging"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// ListenAddress returns host:port for the auth listener.
func (c AuthServer) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.BindAddress, c.Port)
}

// PatchDelay returns the inter-chunk delay of patch transfers.
func (c AuthServer) PatchDelay() time.Duration {
	return time.Duration(c.PatchPacketDelay) * time.Millisecond
}

// WriteDeadline returns how long one write to a client may block.
func (c AuthServer) WriteDeadline() time.Duration {
	return time.Duration(c.WriteTimeout) * time.Second
}

// RealmUpdateInterval returns how long a loaded realm list stays fresh.
func (c AuthServer) RealmUpdateInterval() time.Duration {
	return time.Duration(c.RealmsStateUpdateDelay) * time.Second
}

// BanDuration returns the auto-ban length.
func (w WrongPassConfig) BanDuration() time.Duration {
	return time.Duration(w.BanTime) * time.Second
}

// DefaultAuthServer returns AuthServer config with sensible defaults.
func DefaultAuthServer() AuthServer {
	return AuthServer{
		BindAddress:            "0.0.0.0",
		Port:                   3724,
		WriteTimeout:           30,
		DataDir:                "data",
		PatchPacketDelay:       100,
		RealmsStateUpdateDelay: 20,
		WrongPass: WrongPassConfig{
			MaxCount: 0,
			BanTime:  600,
		},
		TokenSkew:      1,
		MetricsAddress: "127.0.0.1:9724",
		LogLevel:       "info",
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "realmd",
			Password: "realmd",
			DBName:   "realmd",
			SSLMode:  "disable",
		},
	}
}

// Path returns the config path from the environment or DefaultPath.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

// LoadAuthServer loads auth server config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadAuthServer(path string) (AuthServer, error) {
	cfg := DefaultAuthServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

func (c AuthServer) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	if c.WrongPass.MaxCount < 0 {
		return fmt.Errorf("wrong_pass.max_count must not be negative")
	}
	if c.PatchPacketDelay < 0 {
		return fmt.Errorf("patch_packet_delay must not be negative")
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("write_timeout must not be negative")
	}
	return nil
}
