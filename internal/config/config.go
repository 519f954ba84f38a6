package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Feeds          []Feed         `yaml:"feeds"`
	WebSources     []WebSource    `yaml:"web_sources"`
	Storage        Storage        `yaml:"storage"`
	Dedup          Dedup          `yaml:"dedup"`
	Summarizer     Summarizer     `yaml:"summarizer"`
	Blog           Blog           `yaml:"blog"`
	Classification Classification `yaml:"classification"`
	Taxonomy       Taxonomy       `yaml:"taxonomy"`
	Output         Output         `yaml:"output"`
	Server         Server         `yaml:"server"`
	Timezone       string         `yaml:"timezone"`
}

type Feed struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Enabled *bool  `yaml:"enabled"`
}

// WebSource describes a scraped article listing page. When ItemSelector is
// empty the scraper falls back to a heading-based heuristic.
type WebSource struct {
	Name            string `yaml:"name"`
	ListURL         string `yaml:"list_url"`
	Enabled         *bool  `yaml:"enabled"`
	MaxItems        int    `yaml:"max_items"`
	ItemSelector    string `yaml:"item_selector"`
	TitleSelector   string `yaml:"title_selector"`
	URLSelector     string `yaml:"url_selector"`
	DateSelector    string `yaml:"date_selector"`
	SummarySelector string `yaml:"summary_selector"`
	IncludeURLRegex string `yaml:"include_url_regex"`
	ExcludeURLRegex string `yaml:"exclude_url_regex"`
}

type Storage struct {
	DBPath string `yaml:"db_path"`
}

type Dedup struct {
	Key string `yaml:"key"` // url | guid | url_or_guid
}

type Summarizer struct {
	Provider      string `yaml:"provider"`
	Model         string `yaml:"model"`
	OllamaURL     string `yaml:"ollama_url"`
	OpenAIModel   string `yaml:"openai_model"`
	APIKeyEnv     string `yaml:"api_key_env"`
	APIKeyFile    string `yaml:"api_key_file"`
	Language      string `yaml:"language"`
	MaxCharsInput int    `yaml:"max_chars_input"`
	TimeoutSec    int    `yaml:"timeout_sec"`
	Retries       int    `yaml:"retries"`
}

type Blog struct {
	Model         string `yaml:"model"`
	MaxCharsInput int    `yaml:"max_chars_input"`
}

type Classification struct {
	Mode string `yaml:"mode"` // llm_with_keyword_fallback | llm_only | keyword_only
}

type Taxonomy struct {
	DefaultCategory string     `yaml:"default_category"`
	Categories      []Category `yaml:"categories"`
}

type Category struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Keywords   []string `yaml:"keywords"`
	Definition string   `yaml:"definition"`
	Include    string   `yaml:"include"`
	Exclude    string   `yaml:"exclude"`
}

type Output struct {
	Mode                 string `yaml:"mode"` // weekly_file | single_file
	Path                 string `yaml:"path"`
	FilenameTemplate     string `yaml:"filename_template"`
	Grouping             string `yaml:"grouping"`     // by_category | flat
	AppendOrder          string `yaml:"append_order"` // newest_first | oldest_first
	IncludeTOC           *bool  `yaml:"include_toc"`
	IncludeFrontmatter   bool   `yaml:"include_frontmatter"`
	IncludeWeeklyBlog    *bool  `yaml:"include_weekly_blog"`
	BlogFilenameTemplate string `yaml:"blog_filename_template"`
	BlogPath             string `yaml:"blog_path"`
}

type Server struct {
	Port int `yaml:"port"`
}

// Category returns the category with the given id, or nil.
func (t *Taxonomy) Category(id string) *Category {
	for i := range t.Categories {
		if t.Categories[i].ID == id {
			return &t.Categories[i]
		}
	}
	return nil
}

// A missing enabled flag means enabled, matching the original config format.
func (f Feed) IsEnabled() bool      { return f.Enabled == nil || *f.Enabled }
func (w WebSource) IsEnabled() bool { return w.Enabled == nil || *w.Enabled }

func (o Output) TOC() bool        { return o.IncludeTOC == nil || *o.IncludeTOC }
func (o Output) WeeklyBlog() bool { return o.IncludeWeeklyBlog == nil || *o.IncludeWeeklyBlog }

// ConfigDir returns the XDG config directory for newsdigest.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "newsdigest")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/newsdigest/config.yaml > ./config.yaml
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
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'newsdigest init' to create a default config",
		xdgConfig,
	)
}

// Load reads, parses, and validates a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Storage: Storage{DBPath: "./data/news.db"},
		Dedup:   Dedup{Key: "url_or_guid"},
		Summarizer: Summarizer{
			Provider:      "openai",
			Model:         "qwen2.5:7b",
			OllamaURL:     "http://localhost:11434",
			OpenAIModel:   "gpt-4.1-mini",
			APIKeyEnv:     "OPENAI_API_KEY",
			Language:      "English",
			MaxCharsInput: 12000,
			TimeoutSec:    60,
			Retries:       3,
		},
		Classification: Classification{Mode: "llm_with_keyword_fallback"},
		Output: Output{
			Mode:                 "weekly_file",
			Path:                 "./output",
			FilenameTemplate:     "ai_news_{year}-W{week}.md",
			Grouping:             "by_category",
			AppendOrder:          "newest_first",
			BlogFilenameTemplate: "ai_news_{year}-W{week}_summary.md",
		},
		Server: Server{Port: 8000},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Blog.Model == "" {
		cfg.Blog.Model = cfg.Summarizer.Model
	}
	if cfg.Blog.MaxCharsInput == 0 {
		cfg.Blog.MaxCharsInput = 20000
	}
	if cfg.Output.BlogPath == "" {
		cfg.Output.BlogPath = cfg.Output.Path
	}
	for i := range cfg.WebSources {
		if cfg.WebSources[i].MaxItems == 0 {
			cfg.WebSources[i].MaxItems = 50
		}
	}

	return cfg, nil
}

// validate enforces the startup invariants. Any failure here is fatal: a run
// must not begin with a broken source list or an empty taxonomy.
func (c *Config) validate() error {
	for _, f := range c.Feeds {
		if f.Name == "" || f.URL == "" {
			return fmt.Errorf("config: each feed requires name and url")
		}
	}
	for _, w := range c.WebSources {
		if w.Name == "" || w.ListURL == "" {
			return fmt.Errorf("config: each web_source requires name and list_url")
		}
	}
	if len(c.Taxonomy.Categories) == 0 {
		return fmt.Errorf("config: taxonomy.categories cannot be empty")
	}
	seen := make(map[string]struct{}, len(c.Taxonomy.Categories))
	for _, cat := range c.Taxonomy.Categories {
		if cat.ID == "" {
			return fmt.Errorf("config: taxonomy category without id")
		}
		if _, dup := seen[cat.ID]; dup {
			return fmt.Errorf("config: duplicate taxonomy category id %q", cat.ID)
		}
		seen[cat.ID] = struct{}{}
	}
	if c.Taxonomy.DefaultCategory == "" {
		c.Taxonomy.DefaultCategory = c.Taxonomy.Categories[0].ID
	}
	if c.Taxonomy.Category(c.Taxonomy.DefaultCategory) == nil {
		return fmt.Errorf("config: default_category %q not in taxonomy", c.Taxonomy.DefaultCategory)
	}
	switch c.Classification.Mode {
	case "llm_with_keyword_fallback", "llm_only", "keyword_only":
	default:
		return fmt.Errorf("config: unknown classification mode %q", c.Classification.Mode)
	}
	return nil
}

// Location resolves the configured timezone, defaulting to the local zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
