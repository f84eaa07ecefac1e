package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Entity        Entity        `yaml:"entity"`
	Locale        string        `yaml:"locale"`
	Summarization Summarization `yaml:"summarization"`
	Health        Health        `yaml:"health"`
	MarketData    MarketData    `yaml:"market_data"`
	News          News          `yaml:"news"`
	Alerts        Alerts        `yaml:"alerts"`
	Validation    Validation    `yaml:"validation"`
	Cache         Cache         `yaml:"cache"`
	Charts        Charts        `yaml:"charts"`
	Pipeline      Pipeline      `yaml:"pipeline"`
	Output        Output        `yaml:"output"`
	Server        Server        `yaml:"server"`
	Logging       Logging       `yaml:"logging"`
}

// Entity is the default instrument analyzed when none is given.
type Entity struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

type Summarization struct {
	Provider          string        `yaml:"provider"`
	Model             string        `yaml:"model"`
	OllamaURL         string        `yaml:"ollama_url"`
	OpenAIModel       string        `yaml:"openai_model"`
	OpenAIBaseURL     string        `yaml:"openai_base_url"`
	APIKeyEnv         string        `yaml:"api_key_env"`
	MaxTokens         int           `yaml:"max_tokens"`
	Temperature       float32       `yaml:"temperature"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute float64       `yaml:"requests_per_minute"`
	Burst             int           `yaml:"burst"`
	MaxRetries        int           `yaml:"max_retries"`
}

// Health lists the dependencies that must be up before a run starts.
type Health struct {
	Required []string      `yaml:"required"`
	Timeout  time.Duration `yaml:"timeout"`
	Probes   []Probe       `yaml:"probes"`
}

// Probe is an extra HTTP health probe. "market_data" is always registered.
type Probe struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type MarketData struct {
	BaseURL      string        `yaml:"base_url"`
	Suffix       string        `yaml:"suffix"`
	IndexSymbols []string      `yaml:"index_symbols"`
	HistoryDays  int           `yaml:"history_days"`
	Timeout      time.Duration `yaml:"timeout"`
}

type News struct {
	Feeds        []Feed        `yaml:"feeds"`
	NewsAPI      NewsAPIConfig `yaml:"newsapi"`
	MarketQuery  string        `yaml:"market_query"`
	DaysBack     int           `yaml:"days_back"`
	MaxArticles  int           `yaml:"max_articles"`
	FetchContent bool          `yaml:"fetch_content"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type NewsAPIConfig struct {
	Enabled   bool   `yaml:"enabled"`
	APIKeyEnv string `yaml:"api_key_env"`
	Language  string `yaml:"language"`
}

type Alerts struct {
	Telegram  Telegram      `yaml:"telegram"`
	QueueSize int           `yaml:"queue_size"`
	Timeout   time.Duration `yaml:"timeout"`
}

type Telegram struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

type Validation struct {
	MinLength      int      `yaml:"min_length"`
	ExtraMarkers   []string `yaml:"extra_markers"`
	PriceTolerance float64  `yaml:"price_tolerance"`
}

type Cache struct {
	// KeyByDate keeps one market section per reference date instead of one per process.
	KeyByDate bool `yaml:"key_by_date"`
}

type Charts struct {
	Enabled bool `yaml:"enabled"`
	Days    int  `yaml:"days"`
	Width   int  `yaml:"width"`
	Height  int  `yaml:"height"`
}

type Pipeline struct {
	SectionTimeout time.Duration `yaml:"section_timeout"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ConfigDir returns the XDG config directory for stockbrief.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "stockbrief")
}

// DataDir returns the XDG data directory for stockbrief.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "stockbrief")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/stockbrief/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'stockbrief init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file, then applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// Default returns the configuration used when a field is absent from the file.
func Default() *Config {
	return &Config{
		Entity: Entity{Code: "000660", Name: "SK하이닉스"},
		Locale: "ko",
		Summarization: Summarization{
			Provider:          "ollama",
			Model:             "qwen2.5:7b",
			OllamaURL:         "http://localhost:11434",
			OpenAIModel:       "gpt-4o-mini",
			APIKeyEnv:         "OPENAI_API_KEY",
			MaxTokens:         2048,
			Temperature:       0.3,
			Timeout:           5 * time.Minute,
			RequestsPerMinute: 20,
			Burst:             1,
			MaxRetries:        3,
		},
		Health: Health{
			Required: []string{"market_data"},
			Timeout:  10 * time.Second,
		},
		MarketData: MarketData{
			BaseURL:      "https://query1.finance.yahoo.com",
			Suffix:       ".KS",
			IndexSymbols: []string{"^KS11", "^KQ11"},
			HistoryDays:  180,
			Timeout:      15 * time.Second,
		},
		News: News{
			NewsAPI:     NewsAPIConfig{APIKeyEnv: "NEWSAPI_KEY", Language: "ko"},
			MarketQuery: "코스피 코스닥 증시",
			DaysBack:    7,
			MaxArticles: 15,
		},
		Alerts:     Alerts{QueueSize: 64, Timeout: 10 * time.Second},
		Validation: Validation{MinLength: 100, PriceTolerance: 0.1},
		Charts:     Charts{Enabled: true, Days: 730, Width: 900, Height: 400},
		Pipeline:   Pipeline{SectionTimeout: 10 * time.Minute},
		Server:     Server{Port: 8000},
		Logging:    Logging{Level: "info"},
	}
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides secrets and the locale from the environment.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")); v != "" {
		c.Alerts.Telegram.BotToken = v
	}
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); v != "" {
		c.Alerts.Telegram.ChatID = v
	}
	if v := strings.TrimSpace(os.Getenv("STOCKBRIEF_LOCALE")); v != "" {
		c.Locale = v
	}
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DBPath returns the report archive location.
func (c *Config) DBPath() string {
	return filepath.Join(c.GetDataDir(), "stockbrief.db")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
