package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() Config {
	cfg := defaultConfig()
	cfg.Matching.Keywords = map[string]float64{"rag": 2.0, "agent": 1.0}
	return cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsIllegalValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty keywords", func(c *Config) { c.Matching.Keywords = nil }},
		{"zero weight", func(c *Config) { c.Matching.Keywords["rag"] = 0 }},
		{"negative weight", func(c *Config) { c.Matching.Keywords["rag"] = -1 }},
		{"negative threshold", func(c *Config) { c.Matching.Threshold = -0.1 }},
		{"zero topK", func(c *Config) { c.Matching.TopK = 0 }},
		{"negative topK", func(c *Config) { c.Matching.TopK = -5 }},
		{"zero batch size", func(c *Config) { c.LLM.BatchSize = 0 }},
		{"negative retries", func(c *Config) { c.LLM.MaxRetries = -1 }},
		{"zero parallelism", func(c *Config) { c.LLM.Parallelism = 0 }},
		{"empty data dir", func(c *Config) { c.Data.Dir = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
matching:
  keywords:
    rag: 2.0
    agent: 1.0
  threshold: 0.8
  topK: 5
llm:
  batchSize: 4
email:
  smtpServer: smtp.example.org
  sender: digest@example.org
  recipients:
    - me@example.org
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Matching.Threshold != 0.8 || cfg.Matching.TopK != 5 {
		t.Fatalf("matching not merged: %+v", cfg.Matching)
	}
	if cfg.Matching.Keywords["rag"] != 2.0 {
		t.Fatalf("keywords not merged: %+v", cfg.Matching.Keywords)
	}
	if cfg.LLM.BatchSize != 4 {
		t.Fatalf("llm not merged: %+v", cfg.LLM)
	}
	if cfg.LLM.Model == "" {
		t.Fatal("defaults must survive merge")
	}
	if cfg.Email.SMTPPort != 587 {
		t.Fatalf("default smtp port lost: %d", cfg.Email.SMTPPort)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	t.Setenv("LLM_API_KEY", "env-key")
	t.Setenv("EMAIL_RECIPIENTS", "a@example.org, b@example.org")
	t.Setenv("MATCHING_KEYWORDS", "rag=2.0, agent")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LLM.APIKey != "env-key" {
		t.Fatalf("api key override lost: %q", cfg.LLM.APIKey)
	}
	if len(cfg.Email.Recipients) != 2 || cfg.Email.Recipients[1] != "b@example.org" {
		t.Fatalf("recipients override: %v", cfg.Email.Recipients)
	}
	if cfg.Matching.Keywords["rag"] != 2.0 || cfg.Matching.Keywords["agent"] != 1.0 {
		t.Fatalf("keyword override: %v", cfg.Matching.Keywords)
	}
}

func TestParseKeywords(t *testing.T) {
	t.Parallel()

	keywords := ParseKeywords("rag=2.5, agent ,transformer=0.5,")
	if len(keywords) != 3 {
		t.Fatalf("unexpected count: %v", keywords)
	}
	if keywords["rag"] != 2.5 || keywords["agent"] != 1.0 || keywords["transformer"] != 0.5 {
		t.Fatalf("unexpected weights: %v", keywords)
	}
}

func TestEmailComplete(t *testing.T) {
	t.Parallel()

	email := EmailConfig{
		SMTPServer: "smtp.example.org",
		SMTPPort:   587,
		Sender:     "digest@example.org",
		Password:   "secret",
		Recipients: []string{"me@example.org"},
	}
	if !email.Complete() {
		t.Fatal("expected complete")
	}
	email.Password = ""
	if email.Complete() {
		t.Fatal("expected incomplete without password")
	}
}
