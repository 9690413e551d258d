package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shubhamragade/workflow/internal/domain"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if got := cfg.Lookback(domain.ReportWeekly); got != 168*time.Hour {
		t.Fatalf("weekly lookback = %s", got)
	}
	if cfg.Reports.Risk.BlockerThreshold != 3 {
		t.Fatalf("blocker threshold = %d", cfg.Reports.Risk.BlockerThreshold)
	}
	if cfg.Reports.Generator.Provider != ProviderStub {
		t.Fatalf("provider = %s", cfg.Reports.Generator.Provider)
	}
}

func TestFromYAMLKeepsDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte("reports:\n  generator:\n    provider: anthropic\n    timeout: 5s\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Reports.Generator.Provider != ProviderAnthropic || cfg.Reports.Generator.Timeout != 5*time.Second {
		t.Fatalf("generator not applied: %+v", cfg.Reports.Generator)
	}
	if cfg.Lookback(domain.ReportDaily) != 24*time.Hour {
		t.Fatalf("daily lookback lost")
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"kind":     "reports:\n  lookback:\n    MONTHLY: 24h\n",
		"provider": "reports:\n  generator:\n    provider: openai\n",
		"webhook":  "webhooks:\n  - url: ftp://example.com\n",
		"exporter": "tracing:\n  exporter: jaeger\n",
	}
	for name, doc := range cases {
		if _, err := FromYAML([]byte(doc)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	if err != nil || cfg == nil {
		t.Fatalf("missing file should yield defaults: %v", err)
	}
	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "workflow.yml"), []byte("reports:\n  risk:\n    blocker_threshold: 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Reports.Risk.BlockerThreshold != 5 {
		t.Fatalf("threshold = %d", cfg.Reports.Risk.BlockerThreshold)
	}
}
