package workflowsdk

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http/httptest"
	"testing"

	"github.com/shubhamragade/workflow/internal/app"
	"github.com/shubhamragade/workflow/internal/domain"
	"github.com/shubhamragade/workflow/internal/engine"
	"github.com/shubhamragade/workflow/internal/server"
)

const secret = "sdk-secret"

func newClient(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()
	a, err := app.Open(ctx, app.Options{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open app: %v", err)
	}
	t.Cleanup(func() { a.Close(context.Background()) })
	admin, err := a.Engine.CreateUser(ctx, engine.UserCreateOptions{Name: "Ada", Email: "ada@example.com", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	handler, err := server.New(server.Config{App: a, Auth: server.AuthConfig{JWTSecret: secret, Logger: log.New(io.Discard, "", 0)}})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	token, err := server.SignToken(secret, admin.ID, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	c := New(srv.URL)
	c.BearerToken = token
	return c
}

func TestClientWorkflow(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	p, err := c.CreateProject(ctx, "Apollo", "moon")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	task, err := c.CreateTask(ctx, p.ID, "Guidance", "High")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Status != "TODO" || task.Version != 1 || task.Priority != "High" {
		t.Fatalf("task = %+v", task)
	}
	task, err = c.AdvanceTask(ctx, task.ID, task.Version)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}

	_, err = c.AdvanceTask(ctx, task.ID, 1)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 409 {
		t.Fatalf("expected conflict, got %v", err)
	}
	if v, ok := apiErr.CurrentVersion(); !ok || v != task.Version {
		t.Fatalf("current version = %d, %v", v, ok)
	}

	res, err := c.LogWork(ctx, task.ID, "wired IMU", 3, "", "")
	if err != nil {
		t.Fatalf("log work: %v", err)
	}
	if res.CompletionPercentage != 50 {
		t.Fatalf("completion = %v", res.CompletionPercentage)
	}

	rep, err := c.ProjectReport(ctx, p.ID, "DAILY")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if rep.Status != "SUCCESS" || rep.Cached {
		t.Fatalf("report = %+v", rep)
	}
	again, err := c.ProjectReport(ctx, p.ID, "daily")
	if err != nil || !again.Cached || again.ArtifactID != rep.ArtifactID {
		t.Fatalf("cached report = %+v, %v", again, err)
	}

	evts, err := c.Events(ctx, p.ID, 50)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(evts) == 0 || evts[0].Type != "AI_GENERATION" {
		t.Fatalf("newest event = %+v", evts)
	}
}

func TestClientUnauthenticated(t *testing.T) {
	c := newClient(t)
	c.BearerToken = ""
	_, err := c.GetProject(context.Background(), "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 401 || apiErr.Code != "unauthorized" {
		t.Fatalf("expected 401, got %v", err)
	}
}
