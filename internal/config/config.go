// Package config loads the YAML configuration.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/TobiSchelling/PaperDigest/internal/fulltext"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Topics        []string      `yaml:"topics"`
	Arxiv         Arxiv         `yaml:"arxiv"`
	Ranking       Ranking       `yaml:"ranking"`
	Fulltext      Fulltext      `yaml:"fulltext"`
	Summarization Summarization `yaml:"summarization"`
	Output        Output        `yaml:"output"`
	Server        Server        `yaml:"server"`
	Logging       Logging       `yaml:"logging"`
}

type Arxiv struct {
	APIURL     string        `yaml:"api_url"`
	MaxResults int           `yaml:"max_results"`
	Timeout    time.Duration `yaml:"timeout"`
	UserAgent  string        `yaml:"user_agent"`
}

type Ranking struct {
	Strategy    string  `yaml:"strategy"` // tfidf or bm25
	MaxFeatures int     `yaml:"max_features"`
	K1          float64 `yaml:"k1"`
	B           float64 `yaml:"b"`
	Prefilter   bool    `yaml:"prefilter"`
}

type Fulltext struct {
	HeadPages       int           `yaml:"head_pages"`
	TailPages       int           `yaml:"tail_pages"`
	FetchLimit      int           `yaml:"fetch_limit"` // 0 means top_k
	SectionMaxChars int           `yaml:"section_max_chars"`
	PoliteDelay     time.Duration `yaml:"polite_delay"`
	Timeout         time.Duration `yaml:"timeout"`
	UserAgent       string        `yaml:"user_agent"`
	HTMLFallback    bool          `yaml:"html_fallback"`
}

type Summarization struct {
	Provider      string `yaml:"provider"`
	Model         string `yaml:"model"`
	OllamaURL     string `yaml:"ollama_url"`
	OpenAIModel   string `yaml:"openai_model"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	APIKeyEnv     string `yaml:"api_key_env"`
	MaxTokens     int    `yaml:"max_tokens"`
	MaxAttempts   int    `yaml:"max_attempts"`
	TopK          int    `yaml:"top_k"`
}

type Output struct {
	DataDir   string `yaml:"data_dir"`
	DigestDir string `yaml:"digest_dir"`
	HTML      bool   `yaml:"html"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for paperdigest.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "paperdigest")
}

// DataDir returns the XDG data directory for paperdigest.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "paperdigest")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/paperdigest/config.yaml > ./config.yaml
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
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'paperdigest init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return defaults()
}

func defaults() *Config {
	return &Config{
		Arxiv: Arxiv{
			APIURL:     "http://export.arxiv.org/api/query",
			MaxResults: 20,
			Timeout:    20 * time.Second,
			UserAgent:  fulltext.DefaultUserAgent,
		},
		Ranking: Ranking{
			Strategy:    "tfidf",
			MaxFeatures: 20000,
			K1:          1.5,
			B:           0.75,
		},
		Fulltext: Fulltext{
			HeadPages:       fulltext.DefaultHeadPages,
			TailPages:       fulltext.DefaultTailPages,
			SectionMaxChars: fulltext.DefaultSectionMaxChars,
			PoliteDelay:     fulltext.DefaultPoliteDelay,
			Timeout:         fulltext.DefaultTimeout,
			UserAgent:       fulltext.DefaultUserAgent,
		},
		Summarization: Summarization{
			Provider:    "ollama",
			Model:       "qwen2.5:7b",
			OllamaURL:   "http://localhost:11434",
			OpenAIModel: "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			MaxTokens:   1024,
			MaxAttempts: 3,
			TopK:        5,
		},
		Output: Output{
			DigestDir: "outputs",
			HTML:      true,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "info"},
	}
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Ranking.Strategy) {
	case "tfidf", "bm25":
	default:
		return fmt.Errorf("ranking.strategy must be tfidf or bm25, got %q", c.Ranking.Strategy)
	}
	switch strings.ToLower(c.Summarization.Provider) {
	case "ollama", "openai":
	default:
		return fmt.Errorf("summarization.provider must be ollama or openai, got %q", c.Summarization.Provider)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Summarization.TopK < 0 {
		return fmt.Errorf("summarization.top_k must not be negative")
	}
	return nil
}

// Window returns the full-text extraction window.
func (c *Config) Window() fulltext.Window {
	return fulltext.Window{
		HeadPages:       c.Fulltext.HeadPages,
		TailPages:       c.Fulltext.TailPages,
		SectionMaxChars: c.Fulltext.SectionMaxChars,
		PoliteDelay:     c.Fulltext.PoliteDelay,
	}
}

// FetchLimit returns how many PDFs to fetch for a run summarizing topK papers.
func (c *Config) FetchLimit(topK int) int {
	if c.Fulltext.FetchLimit > 0 {
		return c.Fulltext.FetchLimit
	}
	return topK
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DBPath returns the run history database path.
func (c *Config) DBPath() string {
	return filepath.Join(c.GetDataDir(), "paperdigest.db")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
