// Package config provides Viper-based configuration loading for the session
// client and the session directory.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Provider names accepted by SessionConfig.Provider.
const (
	// ProviderNull selects the in-process LAN provider.
	ProviderNull = "null"
	// ProviderDirectory selects the gRPC directory provider.
	ProviderDirectory = "directory"
)

// Store names accepted by DirectoryConfig.Store.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// SessionConfig holds the settings the session client submits with every
// host and search request.
type SessionConfig struct {
	// Name is the well-known session name every create and join is filed under.
	Name string `mapstructure:"name"`
	// MaxPublicSlots is the number of public connections advertised when hosting.
	MaxPublicSlots int `mapstructure:"max_public_slots"`
	// MaxSearchResults bounds each find request.
	MaxSearchResults int `mapstructure:"max_search_results"`
	// HostNameKey is the advertised settings key carrying the host display name.
	HostNameKey string `mapstructure:"host_name_key"`
	// Provider selects the backend session provider: "null" or "directory".
	Provider string `mapstructure:"provider"`
	// AdvertiseAddress is the connect address joiners travel to when this client hosts.
	AdvertiseAddress string `mapstructure:"advertise_address"`
	// OwnerName is the user name reported as the session owner.
	OwnerName string `mapstructure:"owner_name"`
}

// TravelConfig holds the map locations the orchestrator travels to.
type TravelConfig struct {
	// MainMenuURL is the client travel target when returning to the main menu.
	MainMenuURL string `mapstructure:"main_menu_url"`
	// LobbyURL is the default server travel target after hosting.
	LobbyURL string `mapstructure:"lobby_url"`
}

// LobbyConfig holds readiness settings.
type LobbyConfig struct {
	// MinPlayers is the player count below which everyone reads NotEnoughPlayers.
	MinPlayers int `mapstructure:"min_players"`
}

// DirectoryConfig holds session directory gRPC and storage settings.
type DirectoryConfig struct {
	// GRPCHost is the bind/connect address for the directory gRPC service.
	GRPCHost string `mapstructure:"grpc_host"`
	// GRPCPort is the TCP port for the directory gRPC service.
	GRPCPort int `mapstructure:"grpc_port"`
	// Store selects listing persistence: "memory" or "postgres".
	Store string `mapstructure:"store"`
	// RequestTimeout bounds each directory RPC issued by the remote provider.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Addr returns the "host:port" gRPC address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (d DirectoryConfig) Addr() string {
	return fmt.Sprintf("%s:%d", d.GRPCHost, d.GRPCPort)
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// ContentConfig holds paths to static content files.
type ContentConfig struct {
	// ModesFile is the YAML game-mode catalog.
	ModesFile string `mapstructure:"modes_file"`
}

// Config is the top-level application configuration.
type Config struct {
	Session   SessionConfig   `mapstructure:"session"`
	Travel    TravelConfig    `mapstructure:"travel"`
	Lobby     LobbyConfig     `mapstructure:"lobby"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Content   ContentConfig   `mapstructure:"content"`
}

// Validate checks all configuration invariants.
//
// The database section is only checked when the directory persists to postgres.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateSession(c.Session); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateTravel(c.Travel); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Lobby.MinPlayers < 1 {
		errs = append(errs, fmt.Sprintf("lobby.min_players must be >= 1, got %d", c.Lobby.MinPlayers))
	}
	if err := validateDirectory(c.Directory); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Directory.Store == StorePostgres {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateSession(s SessionConfig) error {
	var errs []string
	if s.Name == "" {
		errs = append(errs, "session.name must not be empty")
	}
	if s.MaxPublicSlots < 1 {
		errs = append(errs, fmt.Sprintf("session.max_public_slots must be >= 1, got %d", s.MaxPublicSlots))
	}
	if s.MaxSearchResults < 1 {
		errs = append(errs, fmt.Sprintf("session.max_search_results must be >= 1, got %d", s.MaxSearchResults))
	}
	if s.HostNameKey == "" {
		errs = append(errs, "session.host_name_key must not be empty")
	}
	validProviders := map[string]bool{ProviderNull: true, ProviderDirectory: true}
	if !validProviders[s.Provider] {
		errs = append(errs, fmt.Sprintf("session.provider must be one of [null, directory], got %q", s.Provider))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateTravel(t TravelConfig) error {
	var errs []string
	if t.MainMenuURL == "" {
		errs = append(errs, "travel.main_menu_url must not be empty")
	}
	if t.LobbyURL == "" {
		errs = append(errs, "travel.lobby_url must not be empty")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateDirectory(d DirectoryConfig) error {
	var errs []string
	if d.GRPCHost == "" {
		errs = append(errs, "directory.grpc_host must not be empty")
	}
	if d.GRPCPort < 1 || d.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("directory.grpc_port must be 1-65535, got %d", d.GRPCPort))
	}
	validStores := map[string]bool{StoreMemory: true, StorePostgres: true}
	if !validStores[d.Store] {
		errs = append(errs, fmt.Sprintf("directory.store must be one of [memory, postgres], got %q", d.Store))
	}
	if d.RequestTimeout < 0 {
		errs = append(errs, "directory.request_timeout must not be negative")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with MULTIPLAY_ prefix
	v.SetEnvPrefix("MULTIPLAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading any file.
//
// Postcondition: Returns a Config that passes Validate.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults are plain scalars and durations; decoding them cannot fail.
	_ = v.Unmarshal(&cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("session.name", "GameSession")
	v.SetDefault("session.max_public_slots", 5)
	v.SetDefault("session.max_search_results", 100)
	v.SetDefault("session.host_name_key", "SessionHostName")
	v.SetDefault("session.provider", ProviderNull)
	v.SetDefault("session.advertise_address", "127.0.0.1:7777")
	v.SetDefault("session.owner_name", "player")

	v.SetDefault("travel.main_menu_url", "/Game/Maps/MainMenu")
	v.SetDefault("travel.lobby_url", "/Game/Maps/Lobby")

	v.SetDefault("lobby.min_players", 2)

	v.SetDefault("directory.grpc_host", "127.0.0.1")
	v.SetDefault("directory.grpc_port", 50061)
	v.SetDefault("directory.store", StoreMemory)
	v.SetDefault("directory.request_timeout", "10s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "multiplay")
	v.SetDefault("database.password", "multiplay")
	v.SetDefault("database.name", "multiplay")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("content.modes_file", "content/modes.yaml")
}
