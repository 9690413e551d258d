package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shubhamragade/workflow/internal/domain"
)

const fileName = "workflow.yml"

// Config models workflow.yml.
type Config struct {
	Reports  Reports   `yaml:"reports"`
	Webhooks []Webhook `yaml:"webhooks"`
	Tracing  Tracing   `yaml:"tracing"`
	Server   Server    `yaml:"server"`
}

type Reports struct {
	// Lookback is keyed by report kind.
	Lookback map[string]time.Duration `yaml:"lookback"`
	Risk     struct {
		BlockerThreshold int `yaml:"blocker_threshold"`
	} `yaml:"risk"`
	Generator Generator `yaml:"generator"`
}

type Generator struct {
	Provider  string        `yaml:"provider"`
	Model     string        `yaml:"model"`
	Endpoint  string        `yaml:"endpoint"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

type Webhook struct {
	URL    string   `yaml:"url"`
	Events []string `yaml:"events"`
	Secret string   `yaml:"secret"`
}

type Tracing struct {
	Exporter    string  `yaml:"exporter"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type Server struct {
	Addr                   string `yaml:"addr"`
	AllowLegacyActorHeader bool   `yaml:"allow_legacy_actor_header"`
	DevTokens              bool   `yaml:"dev_tokens"`
}

const (
	ProviderStub      = "stub"
	ProviderAnthropic = "anthropic"
)

// Lookback returns the activity window for a report kind.
func (c *Config) Lookback(kind domain.ReportKind) time.Duration {
	if d, ok := c.Reports.Lookback[string(kind)]; ok && d > 0 {
		return d
	}
	return 24 * time.Hour
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	for kind, d := range c.Reports.Lookback {
		if _, err := domain.ParseReportKind(kind); err != nil {
			return fmt.Errorf("config.reports.lookback: unknown report kind %s", kind)
		}
		if d <= 0 {
			return fmt.Errorf("config.reports.lookback.%s must be positive", kind)
		}
	}
	if c.Reports.Risk.BlockerThreshold < 0 {
		return fmt.Errorf("config.reports.risk.blocker_threshold must not be negative")
	}
	switch c.Reports.Generator.Provider {
	case ProviderStub, ProviderAnthropic:
	default:
		return fmt.Errorf("config.reports.generator.provider must be %q or %q", ProviderStub, ProviderAnthropic)
	}
	if c.Reports.Generator.Timeout <= 0 {
		return fmt.Errorf("config.reports.generator.timeout must be positive")
	}
	if c.Reports.Generator.MaxTokens < 0 {
		return fmt.Errorf("config.reports.generator.max_tokens must not be negative")
	}
	for i, wh := range c.Webhooks {
		if !strings.HasPrefix(wh.URL, "http://") && !strings.HasPrefix(wh.URL, "https://") {
			return fmt.Errorf("config.webhooks[%d].url must be http(s)", i)
		}
		for _, evt := range wh.Events {
			if strings.TrimSpace(evt) == "" {
				return fmt.Errorf("config.webhooks[%d] has empty event type", i)
			}
		}
	}
	switch c.Tracing.Exporter {
	case "", "none", "stdout", "otlphttp":
	default:
		return fmt.Errorf("config.tracing.exporter must be none, stdout or otlphttp")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("config.tracing.sample_ratio must be within [0,1]")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, fileName)
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with wf config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Keys missing from
// the document keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

const defaultTemplate = `reports:
  lookback:
    DAILY: 24h
    WEEKLY: 168h
    HANDOVER: 720h
    CONTRIBUTOR: 2160h
    CONTRIBUTOR_IMPACT: 720h
  risk:
    blocker_threshold: 3
  generator:
    provider: stub
    model: claude-sonnet-4-5-20250929
    endpoint: https://api.anthropic.com/v1/messages
    max_tokens: 1024
    timeout: 30s

webhooks: []

tracing:
  exporter: none
  service_name: workflow
  sample_ratio: 1

server:
  addr: 127.0.0.1:8080
  allow_legacy_actor_header: false
  dev_tokens: false
`
