package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	Challonge     ChallongeConfig     `yaml:"challonge"`
	Discord       DiscordConfig       `yaml:"discord"`
	Tournament    TournamentConfig    `yaml:"tournament"`
	Observability ObservabilityConfig `yaml:"observability"`
	Decks         DecksConfig         `yaml:"decks"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	URL string `yaml:"url"`
	// AppType prefixes durable consumer names.
	AppType string `yaml:"app_type"`
}

// ChallongeConfig holds the bracket service account.
type ChallongeConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Username          string        `yaml:"username"`
	APIKey            string        `yaml:"api_key"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// DiscordConfig covers the command surface and the gateway request subjects.
type DiscordConfig struct {
	Prefix         string        `yaml:"prefix"`
	OrganiserRole  string        `yaml:"organiser_role"`
	SubjectPrefix  string        `yaml:"subject_prefix"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// TournamentConfig holds rules that apply to every tournament.
type TournamentConfig struct {
	RoundLength     time.Duration `yaml:"round_length"`
	TickInterval    time.Duration `yaml:"tick_interval"`
	TopCutThreshold int           `yaml:"top_cut_threshold"`
	TopCutSize      int           `yaml:"top_cut_size"`
	DurableClaims   bool          `yaml:"durable_claims"`
	SweepInterval   time.Duration `yaml:"sweep_interval"`
	SweepAge        time.Duration `yaml:"sweep_age"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	MetricsAddress string `yaml:"metrics_address"`
	Environment    string `yaml:"environment"`
	LogLevel       string `yaml:"log_level"`
}

// DecksConfig points at the card index used for themes and legality.
type DecksConfig struct {
	CardIndexPath string `yaml:"card_index_path"`
}

// LoadConfig loads the configuration from a YAML file. A .env file in the
// working directory is applied to the environment first when present.
func LoadConfig(filename string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		// If the file is not found, try loading from environment variables
		return loadConfigFromEnv()
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns a config with every optional field filled in.
func Defaults() *Config {
	return &Config{
		NATS: NATSConfig{AppType: "tourney-bot"},
		Challonge: ChallongeConfig{
			BaseURL:           "https://api.challonge.com/v1",
			Timeout:           10 * time.Second,
			RequestsPerSecond: 5,
		},
		Discord: DiscordConfig{
			Prefix:         "mc!",
			OrganiserRole:  "MC-TO",
			SubjectPrefix:  "discord.api",
			RequestTimeout: 5 * time.Second,
		},
		Tournament: TournamentConfig{
			RoundLength:     50 * time.Minute,
			TickInterval:    5 * time.Second,
			TopCutThreshold: 8,
			TopCutSize:      8,
			DurableClaims:   true,
			SweepInterval:   time.Hour,
			SweepAge:        24 * time.Hour,
		},
		Observability: ObservabilityConfig{
			MetricsAddress: ":8080",
			Environment:    "production",
			LogLevel:       "info",
		},
	}
}

// loadConfigFromEnv loads the configuration from environment variables.
func loadConfigFromEnv() (*Config, error) {
	cfg := Defaults()
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if cfg.NATS.URL == "" {
		return nil, fmt.Errorf("NATS_URL environment variable not set")
	}
	if cfg.Challonge.APIKey == "" {
		return nil, fmt.Errorf("CHALLONGE_API_KEY environment variable not set")
	}
	return cfg, nil
}

// applyEnv overrides cfg with any environment variables that are set.
func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"DATABASE_URL":       &cfg.Postgres.DSN,
		"NATS_URL":           &cfg.NATS.URL,
		"NATS_APP_TYPE":      &cfg.NATS.AppType,
		"CHALLONGE_BASE_URL": &cfg.Challonge.BaseURL,
		"CHALLONGE_USERNAME": &cfg.Challonge.Username,
		"CHALLONGE_API_KEY":  &cfg.Challonge.APIKey,
		"COMMAND_PREFIX":     &cfg.Discord.Prefix,
		"ORGANISER_ROLE":     &cfg.Discord.OrganiserRole,
		"DISCORD_SUBJECT":    &cfg.Discord.SubjectPrefix,
		"METRICS_ADDRESS":    &cfg.Observability.MetricsAddress,
		"ENV":                &cfg.Observability.Environment,
		"LOG_LEVEL":          &cfg.Observability.LogLevel,
		"CARD_INDEX_PATH":    &cfg.Decks.CardIndexPath,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"CHALLONGE_TIMEOUT":       &cfg.Challonge.Timeout,
		"DISCORD_REQUEST_TIMEOUT": &cfg.Discord.RequestTimeout,
		"ROUND_LENGTH":            &cfg.Tournament.RoundLength,
		"TIMER_TICK_INTERVAL":     &cfg.Tournament.TickInterval,
		"INTENT_SWEEP_INTERVAL":   &cfg.Tournament.SweepInterval,
		"INTENT_SWEEP_AGE":        &cfg.Tournament.SweepAge,
	}
	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s value: %w", key, err)
			}
			*dst = d
		}
	}

	ints := map[string]*int{
		"TOP_CUT_THRESHOLD": &cfg.Tournament.TopCutThreshold,
		"TOP_CUT_SIZE":      &cfg.Tournament.TopCutSize,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s value: %w", key, err)
			}
			*dst = n
		}
	}

	if v := os.Getenv("CHALLONGE_REQUESTS_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid CHALLONGE_REQUESTS_PER_SECOND value: %w", err)
		}
		cfg.Challonge.RequestsPerSecond = f
	}
	if v := os.Getenv("DURABLE_CLAIMS"); v != "" {
		cfg.Tournament.DurableClaims = v == "true"
	}
	return nil
}
