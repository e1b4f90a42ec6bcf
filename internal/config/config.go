package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"

	databaseDSNEnv      = "DATABASE_DSN"
	llmAPIKeyEnv        = "LLM_API_KEY"
	llmModelEnv         = "LLM_MODEL"
	llmBaseURLEnv       = "LLM_BASE_URL"
	emailSMTPServerEnv  = "EMAIL_SMTP_SERVER"
	emailSMTPPortEnv    = "EMAIL_SMTP_PORT"
	emailSenderEnv      = "EMAIL_SENDER"
	emailPasswordEnv    = "EMAIL_PASSWORD"
	emailRecipientsEnv  = "EMAIL_RECIPIENTS"
	matchingKeywordsEnv = "MATCHING_KEYWORDS"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Data      DataConfig      `yaml:"data"`
	Database  DatabaseConfig  `yaml:"database"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Matching  MatchingConfig  `yaml:"matching"`
	LLM       LLMConfig       `yaml:"llm"`
	Email     EmailConfig     `yaml:"email"`
	Sites     []SiteConfig    `yaml:"sites"`
}

// LoggingConfig controls the console logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DataConfig locates the durable run state, batch, and digest directories.
type DataConfig struct {
	Dir string `yaml:"dir"`
}

// StateDir holds per-date run records and lockfiles.
func (d DataConfig) StateDir() string { return d.Dir + "/state" }

// BatchDir holds per-date crawled paper batches.
func (d DataConfig) BatchDir() string { return d.Dir + "/batches" }

// DigestDir receives digests that could not be emailed.
func (d DataConfig) DigestDir() string { return d.Dir + "/digests" }

// DatabaseConfig describes the optional Postgres audit-trail connection.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SchedulerConfig defines when the daemon-mode pipeline runs.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// MatchingConfig drives the relevance-ranking engine.
type MatchingConfig struct {
	Keywords  map[string]float64 `yaml:"keywords"`
	Threshold float64            `yaml:"threshold"`
	TopK      int                `yaml:"topK"`
}

// LLMConfig defines how to contact the OpenAI-compatible summarizer.
type LLMConfig struct {
	Endpoint    string `yaml:"endpoint"`
	Model       string `yaml:"model"`
	APIKey      string `yaml:"apiKey"`
	Language    string `yaml:"language"`
	BatchSize   int    `yaml:"batchSize"`
	MaxRetries  int    `yaml:"maxRetries"`
	Parallelism int    `yaml:"parallelism"`
}

// EmailConfig wires all data required to transmit the digest.
type EmailConfig struct {
	SMTPServer string   `yaml:"smtpServer"`
	SMTPPort   int      `yaml:"smtpPort"`
	Sender     string   `yaml:"sender"`
	Password   string   `yaml:"password"`
	Recipients []string `yaml:"recipients"`
}

// Complete reports whether every field needed to send mail is present.
func (e EmailConfig) Complete() bool {
	return e.SMTPServer != "" && e.Sender != "" && e.Password != "" && len(e.Recipients) > 0
}

// SiteConfig describes a single site with its scanner strategy.
type SiteConfig struct {
	Name       string            `yaml:"name"`
	Scanner    string            `yaml:"scanner"`
	Categories []CategoryConfig  `yaml:"categories"`
	Options    map[string]string `yaml:"options"`
}

// CategoryConfig holds the concrete endpoints to crawl (arXiv category URLs).
type CategoryConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides. A .env file next to the process is honored first, so secrets
// never need to live in the YAML.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Sites) == 0 {
		cfg.Sites = defaultConfig().Sites
	}

	return cfg, nil
}

// Validate rejects illegal values before the orchestrator starts.
func (c Config) Validate() error {
	if len(c.Matching.Keywords) == 0 {
		return fmt.Errorf("matching.keywords must not be empty")
	}
	for keyword, weight := range c.Matching.Keywords {
		if weight <= 0 {
			return fmt.Errorf("matching.keywords[%q]: weight must be positive, got %v", keyword, weight)
		}
	}
	if c.Matching.Threshold < 0 {
		return fmt.Errorf("matching.threshold must be >= 0, got %v", c.Matching.Threshold)
	}
	if c.Matching.TopK <= 0 {
		return fmt.Errorf("matching.topK must be positive, got %d", c.Matching.TopK)
	}
	if c.LLM.BatchSize <= 0 {
		return fmt.Errorf("llm.batchSize must be positive, got %d", c.LLM.BatchSize)
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.maxRetries must be >= 0, got %d", c.LLM.MaxRetries)
	}
	if c.LLM.Parallelism <= 0 {
		return fmt.Errorf("llm.parallelism must be positive, got %d", c.LLM.Parallelism)
	}
	if c.Data.Dir == "" {
		return fmt.Errorf("data.dir must not be empty")
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(llmAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(llmModelEnv); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv(llmBaseURLEnv); v != "" {
		c.LLM.Endpoint = v
	}
	if v := os.Getenv(emailSMTPServerEnv); v != "" {
		c.Email.SMTPServer = v
	}
	if v := os.Getenv(emailSMTPPortEnv); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Email.SMTPPort = port
		}
	}
	if v := os.Getenv(emailSenderEnv); v != "" {
		c.Email.Sender = v
	}
	if v := os.Getenv(emailPasswordEnv); v != "" {
		c.Email.Password = v
	}
	if v := os.Getenv(emailRecipientsEnv); v != "" {
		c.Email.Recipients = splitList(v)
	}
	if v := os.Getenv(matchingKeywordsEnv); v != "" {
		if keywords := ParseKeywords(v); len(keywords) > 0 {
			c.Matching.Keywords = keywords
		}
	}
}

// ParseKeywords parses a comma-separated keyword list with optional
// weights, e.g. "rag=2.0,agent,transformer=1.5". Unweighted keywords
// default to 1.0.
func ParseKeywords(value string) map[string]float64 {
	keywords := map[string]float64{}
	for _, item := range splitList(value) {
		keyword, rawWeight, hasWeight := strings.Cut(item, "=")
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			continue
		}
		weight := 1.0
		if hasWeight {
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(rawWeight), 64); err == nil {
				weight = parsed
			}
		}
		keywords[keyword] = weight
	}
	return keywords
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}
	if override.Data.Dir != "" {
		base.Data = override.Data
	}
	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if len(override.Matching.Keywords) > 0 {
		base.Matching.Keywords = override.Matching.Keywords
	}
	if override.Matching.Threshold != 0 {
		base.Matching.Threshold = override.Matching.Threshold
	}
	if override.Matching.TopK != 0 {
		base.Matching.TopK = override.Matching.TopK
	}

	if override.LLM.Endpoint != "" {
		base.LLM.Endpoint = override.LLM.Endpoint
	}
	if override.LLM.Model != "" {
		base.LLM.Model = override.LLM.Model
	}
	if override.LLM.APIKey != "" {
		base.LLM.APIKey = override.LLM.APIKey
	}
	if override.LLM.Language != "" {
		base.LLM.Language = override.LLM.Language
	}
	if override.LLM.BatchSize != 0 {
		base.LLM.BatchSize = override.LLM.BatchSize
	}
	if override.LLM.MaxRetries != 0 {
		base.LLM.MaxRetries = override.LLM.MaxRetries
	}
	if override.LLM.Parallelism != 0 {
		base.LLM.Parallelism = override.LLM.Parallelism
	}

	if override.Email.SMTPServer != "" {
		base.Email.SMTPServer = override.Email.SMTPServer
	}
	if override.Email.SMTPPort != 0 {
		base.Email.SMTPPort = override.Email.SMTPPort
	}
	if override.Email.Sender != "" {
		base.Email.Sender = override.Email.Sender
	}
	if override.Email.Password != "" {
		base.Email.Password = override.Email.Password
	}
	if len(override.Email.Recipients) > 0 {
		base.Email.Recipients = override.Email.Recipients
	}

	if len(override.Sites) > 0 {
		base.Sites = override.Sites
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info"},
		Data:      DataConfig{Dir: "data"},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone, location: tz},
		Matching: MatchingConfig{
			Threshold: 0.5,
			TopK:      10,
		},
		LLM: LLMConfig{
			Endpoint:    "https://api.deepseek.com/v1/chat/completions",
			Model:       "deepseek-chat",
			Language:    "English",
			BatchSize:   3,
			MaxRetries:  2,
			Parallelism: 2,
		},
		Email: EmailConfig{SMTPPort: 587},
		Sites: []SiteConfig{
			{
				Name:    "arxiv",
				Scanner: "arxiv",
				Categories: []CategoryConfig{
					{Name: "cs.CV", URL: "https://export.arxiv.org/list/cs.CV/recent"},
					{Name: "cs.CL", URL: "https://export.arxiv.org/list/cs.CL/recent"},
				},
			},
		},
	}
}
