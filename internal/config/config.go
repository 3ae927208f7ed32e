// Package config loads the scout's YAML configuration and environment secrets.
//
// Everything that shapes a run lives in the YAML file: the keyword set, score
// weights and threshold, the weekly registration cap, target cities, source
// adapters, notification channels and the schedule anchor. Credentials (LLM API
// key, bot tokens, SMTP password) are read from environment variables only.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // schedule timezones must resolve on hosts without zoneinfo

	"gopkg.in/yaml.v3"
)

// City is a target city plus the gazetteer aliases that map free-text
// locations onto it.
type City struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

// Weights are the relevance-score policy constants. They are documented
// configuration, not derived dynamically.
type Weights struct {
	Semantic float64 `yaml:"semantic"`
	Keyword  float64 `yaml:"keyword"`
	Location float64 `yaml:"location"`
}

// Schedule anchors the weekly run cycle.
type Schedule struct {
	Weekday  string `yaml:"weekday"`  // e.g. "Monday"
	Hour     int    `yaml:"hour"`     // 0-23 in Timezone
	Timezone string `yaml:"timezone"` // IANA name, default Asia/Tokyo
}

// SemanticConfig controls the external semantic-assessment call.
type SemanticConfig struct {
	BaseURL string        `yaml:"base_url"` // OpenAI-compatible chat completions host
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
	Retries int           `yaml:"retries"` // retries after the first attempt
}

// Profile is the company profile submitted on auto-registration.
type Profile struct {
	Name     string `yaml:"name"`
	Company  string `yaml:"company"`
	Email    string `yaml:"email"`
	Phone    string `yaml:"phone"`
	Position string `yaml:"position"`
}

// RegistrationConfig controls the external registration call.
type RegistrationConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	Retries       int           `yaml:"retries"`
	RatePerSecond float64       `yaml:"rate_per_second"` // pacing of registration calls
	Profile       Profile       `yaml:"profile"`
	DryRun        bool          `yaml:"dry_run"`
}

// SourceConfig declares one source adapter instance.
type SourceConfig struct {
	Type    string        `yaml:"type"` // connpass | peatix | doorkeeper
	BaseURL string        `yaml:"base_url"`
	Count   int           `yaml:"count"` // max records per (source, city) fetch
	Timeout time.Duration `yaml:"timeout"`
}

// TelegramConfig enables the Telegram digest channel. The bot token and chat
// ID come from TELEGRAM_BOT_TOKEN / TELEGRAM_CHAT_ID.
type TelegramConfig struct {
	Enabled bool `yaml:"enabled"`
}

// EmailConfig enables the SMTP digest channel. The password comes from
// EMAIL_PASSWORD.
type EmailConfig struct {
	Enabled bool     `yaml:"enabled"`
	Host    string   `yaml:"host"`
	Port    int      `yaml:"port"`
	From    string   `yaml:"from"`
	To      []string `yaml:"to"`
}

// TwitterConfig enables the X/Twitter digest channel. Credentials come from
// the four TWITTER_* environment variables.
type TwitterConfig struct {
	Enabled bool `yaml:"enabled"`
}

// NotifyConfig shapes the digest and its channels.
type NotifyConfig struct {
	TopN     int            `yaml:"top_n"` // events included in the digest
	Telegram TelegramConfig `yaml:"telegram"`
	Email    EmailConfig    `yaml:"email"`
	Twitter  TwitterConfig  `yaml:"twitter"`
	DryRun   bool           `yaml:"dry_run"` // print the digest instead of sending
}

// Config is the full scout configuration.
type Config struct {
	Keywords       []string           `yaml:"keywords"`
	ScoreThreshold float64            `yaml:"score_threshold"`
	MaxPerWeek     int                `yaml:"max_per_week"`
	Cities         []City             `yaml:"cities"`
	Weights        Weights            `yaml:"weights"`
	Schedule       Schedule           `yaml:"schedule"`
	Semantic       SemanticConfig     `yaml:"semantic"`
	Registration   RegistrationConfig `yaml:"registration"`
	Sources        []SourceConfig     `yaml:"sources"`
	Notify         NotifyConfig       `yaml:"notify"`
	StorePath      string             `yaml:"store_path"`
	RunBudget      time.Duration      `yaml:"run_budget"` // wall-clock budget per cycle
	LogLevel       string             `yaml:"log_level"`
}

// Default returns the stock configuration: the Kansai target cities, the
// business-development keyword set, a 0.8 threshold and three
// auto-registrations per week.
func Default() Config {
	return Config{
		Keywords: []string{
			"startup", "AI", "artificial intelligence", "HR tech", "expat",
			"business", "innovation", "hiring", "tech", "technology",
			"entrepreneur", "venture", "funding", "networking", "machine learning",
			"digital transformation", "partnership", "client", "investment",
		},
		ScoreThreshold: 0.8,
		MaxPerWeek:     3,
		Cities: []City{
			{Name: "Osaka", Aliases: []string{"osaka", "大阪"}},
			{Name: "Kobe", Aliases: []string{"kobe", "神戸"}},
			{Name: "Kyoto", Aliases: []string{"kyoto", "京都"}},
		},
		Weights:  Weights{Semantic: 0.5, Keyword: 0.3, Location: 0.2},
		Schedule: Schedule{Weekday: "Monday", Hour: 9, Timezone: "Asia/Tokyo"},
		Semantic: SemanticConfig{
			BaseURL: "https://api.groq.com/openai",
			Model:   "llama-3.3-70b-versatile",
			Timeout: 20 * time.Second,
			Retries: 1,
		},
		Registration: RegistrationConfig{
			Timeout:       30 * time.Second,
			Retries:       1,
			RatePerSecond: 0.5,
			Profile: Profile{
				Name:     "Raptor AI Representative",
				Company:  "Raptor AI Inc.",
				Email:    "events@raptorai.co",
				Position: "Co-Founder & CTO",
			},
		},
		Sources: []SourceConfig{
			{Type: "connpass", Count: 20, Timeout: 30 * time.Second},
			{Type: "doorkeeper", Count: 20, Timeout: 30 * time.Second},
			{Type: "peatix", Count: 20, Timeout: 30 * time.Second},
		},
		Notify:    NotifyConfig{TopN: 10, DryRun: true},
		StorePath: "~/.local/share/event-scout/scout.db",
		RunBudget: 15 * time.Minute,
		LogLevel:  "INFO",
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if c.ScoreThreshold < 0 || c.ScoreThreshold > 1 {
		return fmt.Errorf("score_threshold must be in [0,1], got %v", c.ScoreThreshold)
	}
	if c.MaxPerWeek < 0 {
		return fmt.Errorf("max_per_week must be >= 0, got %d", c.MaxPerWeek)
	}
	if len(c.Cities) == 0 {
		return fmt.Errorf("at least one target city is required")
	}
	if c.Weights.Semantic < 0 || c.Weights.Keyword < 0 || c.Weights.Location < 0 {
		return fmt.Errorf("score weights must be non-negative")
	}
	if _, err := c.ScheduleWeekday(); err != nil {
		return err
	}
	if c.Schedule.Hour < 0 || c.Schedule.Hour > 23 {
		return fmt.Errorf("schedule hour must be in [0,23], got %d", c.Schedule.Hour)
	}
	return nil
}

// ScheduleWeekday parses the configured anchor weekday.
func (c Config) ScheduleWeekday() (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), c.Schedule.Weekday) {
			return d, nil
		}
	}
	return time.Monday, fmt.Errorf("unknown schedule weekday: %q", c.Schedule.Weekday)
}

// ScheduleLocation loads the configured anchor timezone.
func (c Config) ScheduleLocation() (*time.Location, error) {
	if c.Schedule.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading schedule timezone: %w", err)
	}
	return loc, nil
}

// TargetCityNames returns just the city names, for source queries.
func (c Config) TargetCityNames() []string {
	names := make([]string, 0, len(c.Cities))
	for _, city := range c.Cities {
		names = append(names, city.Name)
	}
	return names
}

// Secrets are credentials read from the environment.
type Secrets struct {
	GroqAPIKey       string
	TelegramToken    string
	TelegramChatID   string
	EmailPassword    string
	TwitterAPIKey    string
	TwitterAPISecret string
	TwitterToken     string
	TwitterSecret    string
}

// SecretsFromEnv reads all recognized credential variables. Missing values are
// left empty; each channel/capability decides whether that disables it.
func SecretsFromEnv() Secrets {
	return Secrets{
		GroqAPIKey:       os.Getenv("GROQ_API_KEY"),
		TelegramToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
		EmailPassword:    os.Getenv("EMAIL_PASSWORD"),
		TwitterAPIKey:    os.Getenv("TWITTER_API_KEY"),
		TwitterAPISecret: os.Getenv("TWITTER_API_SECRET"),
		TwitterToken:     os.Getenv("TWITTER_ACCESS_TOKEN"),
		TwitterSecret:    os.Getenv("TWITTER_ACCESS_SECRET"),
	}
}
