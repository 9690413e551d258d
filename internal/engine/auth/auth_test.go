package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shubhamragade/workflow/internal/config"
	"github.com/shubhamragade/workflow/internal/db"
	"github.com/shubhamragade/workflow/internal/domain"
	"github.com/shubhamragade/workflow/internal/engine"
	"github.com/shubhamragade/workflow/internal/engine/auth"
	"github.com/shubhamragade/workflow/internal/migrate"
)

func TestRoleChecks(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	eng := engine.New(conn, config.Default())
	admin, _ := eng.CreateUser(ctx, engine.UserCreateOptions{Name: "Admin", Email: "admin@example.com", Role: domain.RoleAdmin})
	lead, _ := eng.CreateUser(ctx, engine.UserCreateOptions{Name: "Lead", Email: "lead@example.com"})
	member, _ := eng.CreateUser(ctx, engine.UserCreateOptions{Name: "Member", Email: "member@example.com"})
	p, err := eng.CreateProject(ctx, engine.ProjectCreateOptions{Name: "P", CreatorID: lead.ID})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eng.AddMember(ctx, p.ID, member.ID, domain.MemberContributor, admin.ID); err != nil {
		t.Fatal(err)
	}

	svc := auth.Service{Repo: eng.Repo}
	if err := svc.RequireAdmin(ctx, admin.ID); err != nil {
		t.Fatalf("admin: %v", err)
	}
	var fe auth.ForbiddenError
	if err := svc.RequireAdmin(ctx, lead.ID); !errors.As(err, &fe) || fe.Role != "Admin" {
		t.Fatalf("lead as admin: %v", err)
	}
	if err := svc.RequireLead(ctx, p.ID, lead.ID); err != nil {
		t.Fatalf("lead: %v", err)
	}
	if err := svc.RequireLead(ctx, p.ID, admin.ID); err != nil {
		t.Fatalf("admin as lead: %v", err)
	}
	if err := svc.RequireLead(ctx, p.ID, member.ID); !errors.As(err, &fe) {
		t.Fatalf("contributor as lead: %v", err)
	}
	if err := svc.RequireAdmin(ctx, ""); !errors.Is(err, auth.ErrActorRequired) {
		t.Fatalf("empty actor: %v", err)
	}
	if err := svc.RequireAdmin(ctx, "ghost"); !errors.As(err, &fe) {
		t.Fatalf("unknown actor: %v", err)
	}
	roles, err := svc.Roles(ctx, p.ID, member.ID)
	if err != nil || len(roles) != 2 || roles[1] != "Contributor" {
		t.Fatalf("roles = %v %v", roles, err)
	}
}
