package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shubhamragade/workflow/internal/config"
	"github.com/shubhamragade/workflow/internal/domain"
	"github.com/shubhamragade/workflow/internal/engine"
	"github.com/shubhamragade/workflow/internal/report"
)

func TestOpenUsesStubByDefault(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, Options{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close(ctx)
	if a.Reports.Generator.Model() != report.StubModel {
		t.Fatalf("generator = %s", a.Reports.Generator.Model())
	}
	u, err := a.Engine.CreateUser(ctx, engine.UserCreateOptions{Name: "Lin", Email: "lin@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	p, err := a.InitiateExit(ctx, u.ID, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !p.CanExitImmediately || !p.Handover.Empty || p.Handover.Kind != domain.ReportHandover {
		t.Fatalf("preview = %+v", p)
	}
}

func TestOpenReadsWorkspaceConfig(t *testing.T) {
	dir := t.TempDir()
	yml := "reports:\n  risk:\n    blocker_threshold: 7\n"
	if err := os.WriteFile(filepath.Join(dir, "workflow.yml"), []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	a, err := Open(ctx, Options{Workspace: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close(ctx)
	if a.Config.Reports.Risk.BlockerThreshold != 7 {
		t.Fatalf("threshold = %d", a.Config.Reports.Risk.BlockerThreshold)
	}
}

func TestNewGenerator(t *testing.T) {
	if _, err := NewGenerator(config.Generator{Provider: config.ProviderAnthropic}, ""); err == nil {
		t.Fatalf("anthropic without key should fail")
	}
	gen, err := NewGenerator(config.Generator{Provider: config.ProviderAnthropic, Model: "m"}, "sk")
	if err != nil || gen.Model() != "m" {
		t.Fatalf("anthropic = %v %v", gen, err)
	}
	if _, err := NewGenerator(config.Generator{Provider: "other"}, ""); err == nil {
		t.Fatalf("unknown provider should fail")
	}
}
