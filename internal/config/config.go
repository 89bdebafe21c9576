package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the process configuration, read from the environment and an
// optional .env file
type Config struct {
	Port        string
	Environment string
	LogLevel    string
	LogFormat   string
	APIKey      string

	MaxBots        int
	UseMemoryStore bool

	Database  DatabaseConfig
	Twilio    TwilioConfig
	Lifecycle LifecycleConfig
}

// DatabaseConfig locates the PostgreSQL credential database
type DatabaseConfig struct {
	User string
	Pass string
	Name string
	Host string
	Port int
	// InstanceConnectionName switches to the Cloud SQL unix socket
	InstanceConnectionName string
}

// TwilioConfig enables logged-out notices when all fields are set
type TwilioConfig struct {
	AccountSID   string
	AuthToken    string
	WhatsAppFrom string
}

// Enabled reports whether Twilio credentials are complete
func (t TwilioConfig) Enabled() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.WhatsAppFrom != ""
}

// LifecycleConfig holds session timing parameters
type LifecycleConfig struct {
	ReconnectDelay       time.Duration
	ReconnectMultiplier  float64
	ReconnectMaxDelay    time.Duration
	ReconnectMaxAttempts int
	PairingTimeout       time.Duration
	PairingTTL           time.Duration
	RestartDelay         time.Duration
	EventBacklog         int
	StatsInterval        time.Duration
}

// EnvFiles are tried in order by LoadEnvFiles
var EnvFiles = []string{".env", "environments/.env.development"}

// LoadEnvFiles loads the first .env file found. Variables already present in
// the environment win. It returns the file used, or "" when none exists.
func LoadEnvFiles() string {
	for _, f := range EnvFiles {
		if err := godotenv.Load(f); err == nil {
			return f
		}
	}
	return ""
}

// New returns a viper instance with defaults and environment binding
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "")
	v.SetDefault("max_bots", 100)
	v.SetDefault("use_memory_store", false)

	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_name", "botfleet")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", 5432)

	v.SetDefault("reconnect_delay", 5*time.Second)
	v.SetDefault("reconnect_multiplier", 1.0)
	v.SetDefault("reconnect_max_delay", time.Minute)
	v.SetDefault("reconnect_max_attempts", 10)
	v.SetDefault("pairing_timeout", 30*time.Second)
	v.SetDefault("pairing_ttl", 10*time.Minute)
	v.SetDefault("restart_delay", 3*time.Second)
	v.SetDefault("event_backlog", 256)
	v.SetDefault("stats_interval", 30*time.Second)
	return v
}

// Load reads the configuration from v and validates it
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:           v.GetString("port"),
		Environment:    v.GetString("environment"),
		LogLevel:       v.GetString("log_level"),
		LogFormat:      v.GetString("log_format"),
		APIKey:         v.GetString("api_key"),
		MaxBots:        v.GetInt("max_bots"),
		UseMemoryStore: v.GetBool("use_memory_store"),
		Database: DatabaseConfig{
			User:                   v.GetString("db_user"),
			Pass:                   v.GetString("db_pass"),
			Name:                   v.GetString("db_name"),
			Host:                   v.GetString("db_host"),
			Port:                   v.GetInt("db_port"),
			InstanceConnectionName: v.GetString("instance_connection_name"),
		},
		Twilio: TwilioConfig{
			AccountSID:   v.GetString("twilio_account_sid"),
			AuthToken:    v.GetString("twilio_auth_token"),
			WhatsAppFrom: v.GetString("twilio_whatsapp_from"),
		},
		Lifecycle: LifecycleConfig{
			ReconnectDelay:       v.GetDuration("reconnect_delay"),
			ReconnectMultiplier:  v.GetFloat64("reconnect_multiplier"),
			ReconnectMaxDelay:    v.GetDuration("reconnect_max_delay"),
			ReconnectMaxAttempts: v.GetInt("reconnect_max_attempts"),
			PairingTimeout:       v.GetDuration("pairing_timeout"),
			PairingTTL:           v.GetDuration("pairing_ttl"),
			RestartDelay:         v.GetDuration("restart_delay"),
			EventBacklog:         v.GetInt("event_backlog"),
			StatsInterval:        v.GetDuration("stats_interval"),
		},
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Production reports whether the service runs on Cloud Run / Cloud SQL or
// has ENVIRONMENT=production
func (c Config) Production() bool {
	return c.Database.InstanceConnectionName != "" || strings.EqualFold(c.Environment, "production")
}

// StorageType describes the credential backend for logs and health output
func (c Config) StorageType() string {
	if c.UseMemoryStore {
		return "In-Memory (Testing)"
	}
	return "PostgreSQL Database"
}

func Validate(cfg Config) error {
	var errs []error
	if strings.TrimSpace(cfg.Port) == "" {
		errs = append(errs, fmt.Errorf("port is required"))
	}
	if cfg.MaxBots <= 0 {
		errs = append(errs, fmt.Errorf("max bots must be positive, got %d", cfg.MaxBots))
	}
	lc := cfg.Lifecycle
	if lc.ReconnectDelay <= 0 {
		errs = append(errs, fmt.Errorf("reconnect delay must be positive"))
	}
	if lc.ReconnectMultiplier < 1 {
		errs = append(errs, fmt.Errorf("reconnect multiplier must be >= 1"))
	}
	if lc.ReconnectMaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("reconnect max attempts must not be negative"))
	}
	if lc.PairingTimeout <= 0 || lc.PairingTTL <= 0 {
		errs = append(errs, fmt.Errorf("pairing timeout and ttl must be positive"))
	}
	if lc.RestartDelay < 0 {
		errs = append(errs, fmt.Errorf("restart delay must not be negative"))
	}
	if lc.EventBacklog <= 0 {
		errs = append(errs, fmt.Errorf("event backlog must be positive"))
	}
	if lc.StatsInterval <= 0 {
		errs = append(errs, fmt.Errorf("stats interval must be positive"))
	}
	if !cfg.UseMemoryStore && strings.TrimSpace(cfg.Database.Name) == "" {
		errs = append(errs, fmt.Errorf("db name is required unless the memory store is used"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
