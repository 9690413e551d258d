package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shubhamragade/workflow/internal/app"
	"github.com/shubhamragade/workflow/internal/config"
	"github.com/shubhamragade/workflow/internal/domain"
	"github.com/shubhamragade/workflow/internal/engine"
)

const testSecret = "test-secret"

type testServer struct {
	URL   string
	App   *app.App
	Admin domain.User
	close func()
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	a, err := app.Open(ctx, app.Options{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open app: %v", err)
	}
	admin, err := a.Engine.CreateUser(ctx, engine.UserCreateOptions{Name: "Ada", Email: "ada@example.com", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	handler, err := New(Config{App: a, Auth: AuthConfig{
		JWTSecret:              testSecret,
		AllowLegacyActorHeader: true,
		DevTokens:              true,
		Logger:                 log.New(io.Discard, "", 0),
	}})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	ts := &testServer{
		URL:   "http://" + ln.Addr().String() + "/v1",
		App:   a,
		Admin: admin,
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			a.Close(context.Background())
		},
	}
	t.Cleanup(ts.close)
	return ts
}

func as(actorID string) map[string]string {
	return map[string]string{"X-Actor-Id": actorID}
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("unmarshal %s: %v", string(data), err)
	}
	return v
}

type envelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func expectError(t *testing.T, res *http.Response, data []byte, status int, code string) envelope {
	t.Helper()
	if res.StatusCode != status {
		t.Fatalf("expected %d, got %d: %s", status, res.StatusCode, string(data))
	}
	env := decode[envelope](t, data)
	if env.Error.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, env.Error.Code, string(data))
	}
	return env
}

func (s *testServer) project(t *testing.T) domain.Project {
	t.Helper()
	res, data := doJSON(t, http.MethodPost, s.URL+"/projects", map[string]any{"name": "Apollo"}, as(s.Admin.ID))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create project %d: %s", res.StatusCode, string(data))
	}
	return decode[domain.Project](t, data)
}

func (s *testServer) task(t *testing.T, projectID, title string) domain.Task {
	t.Helper()
	res, data := doJSON(t, http.MethodPost, s.URL+"/projects/"+projectID+"/tasks", map[string]any{"title": title}, as(s.Admin.ID))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task %d: %s", res.StatusCode, string(data))
	}
	return decode[domain.Task](t, data)
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	res, data := doJSON(t, http.MethodGet, srv.URL+"/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, http.MethodGet, srv.URL+"/projects", nil, nil)
	expectError(t, res, data, http.StatusUnauthorized, "unauthorized")

	res, data = doJSON(t, http.MethodGet, srv.URL+"/projects", nil, map[string]string{"Authorization": "Bearer nope"})
	expectError(t, res, data, http.StatusUnauthorized, "invalid_credentials")
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	p := srv.project(t)
	task := srv.task(t, p.ID, "Write parser")
	advance := srv.URL + "/tasks/" + task.ID + "/advance"

	res, data := doJSON(t, http.MethodPost, advance+"?version=1", nil, as(srv.Admin.ID))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("advance %d: %s", res.StatusCode, string(data))
	}
	moved := decode[domain.Task](t, data)
	if moved.Status != domain.TaskInProgress || moved.Version != 2 {
		t.Fatalf("advanced task = %s v%d", moved.Status, moved.Version)
	}

	res, data = doJSON(t, http.MethodPost, advance+"?version=1", nil, as(srv.Admin.ID))
	env := expectError(t, res, data, http.StatusConflict, "conflict")
	if env.Error.Details["current_version"] != float64(2) {
		t.Fatalf("current_version = %v", env.Error.Details["current_version"])
	}

	res, data = doJSON(t, http.MethodPost, advance, nil, map[string]string{"X-Actor-Id": srv.Admin.ID, "If-Match": `"2"`})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("advance to review %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, http.MethodPost, advance, nil, as(srv.Admin.ID))
	expectError(t, res, data, http.StatusPreconditionFailed, "invalid_state")

	res, data = doJSON(t, http.MethodPost, srv.URL+"/tasks/"+task.ID+"/logs", map[string]any{
		"content":     "parser handles nested blocks",
		"hours_spent": 2,
		"insight":     "Use a Pratt parser",
	}, as(srv.Admin.ID))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("log %d: %s", res.StatusCode, string(data))
	}
	logged := decode[WorkLogResponse](t, data)
	if logged.Decision == nil || logged.Decision.Explanation != "Use a Pratt parser" {
		t.Fatalf("insight decision = %+v", logged.Decision)
	}

	res, data = doJSON(t, http.MethodPost, advance, nil, as(srv.Admin.ID))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("advance to done %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, http.MethodGet, srv.URL+"/projects/"+p.ID, nil, as(srv.Admin.ID))
	if got := decode[domain.Project](t, data); got.CompletionPercentage != 100 {
		t.Fatalf("completion = %v", got.CompletionPercentage)
	}
}

func TestIllegalTransitionIs422(t *testing.T) {
	srv := newTestServer(t)
	p := srv.project(t)
	task := srv.task(t, p.ID, "Skip ahead")

	res, data := doJSON(t, http.MethodPatch, srv.URL+"/tasks/"+task.ID, map[string]any{"status": "REVIEW"}, as(srv.Admin.ID))
	expectError(t, res, data, http.StatusUnprocessableEntity, "invalid_transition")
}

func TestSchemaValidationIs400(t *testing.T) {
	srv := newTestServer(t)
	p := srv.project(t)

	res, data := doJSON(t, http.MethodPost, srv.URL+"/projects/"+p.ID+"/tasks", map[string]any{"title": ""}, as(srv.Admin.ID))
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, http.MethodPost, srv.URL+"/tasks/missing/logs", map[string]any{"content": "x", "hours_spent": 1}, as(srv.Admin.ID))
	expectError(t, res, data, http.StatusNotFound, "not_found")
}

func TestDecisionsCannotBeDeleted(t *testing.T) {
	srv := newTestServer(t)
	p := srv.project(t)

	res, data := doJSON(t, http.MethodPost, srv.URL+"/projects/"+p.ID+"/decisions", map[string]any{
		"title":        "Adopt SQLite",
		"impact_level": "High",
	}, as(srv.Admin.ID))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create decision %d: %s", res.StatusCode, string(data))
	}
	d := decode[domain.Decision](t, data)

	res, data = doJSON(t, http.MethodDelete, srv.URL+"/decisions/"+d.ID, nil, as(srv.Admin.ID))
	expectError(t, res, data, http.StatusForbidden, "operation_not_permitted")

	res, data = doJSON(t, http.MethodPatch, srv.URL+"/decisions/"+d.ID, map[string]any{"reasoning": "fewer moving parts", "version": 1}, as(srv.Admin.ID))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("update decision %d: %s", res.StatusCode, string(data))
	}
	if got := decode[domain.Decision](t, data); got.Version != 2 {
		t.Fatalf("decision version = %d", got.Version)
	}
}

func TestMemberCannotCreateProject(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, http.MethodPost, srv.URL+"/users", map[string]any{"name": "Bob", "email": "bob@example.com"}, as(srv.Admin.ID))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create user %d: %s", res.StatusCode, string(data))
	}
	bob := decode[domain.User](t, data)

	res, data = doJSON(t, http.MethodPost, srv.URL+"/projects", map[string]any{"name": "Side quest"}, as(bob.ID))
	env := expectError(t, res, data, http.StatusForbidden, "forbidden")
	if env.Error.Details["role"] != "Admin" {
		t.Fatalf("role detail = %v", env.Error.Details["role"])
	}
}

func TestReportStatusCodes(t *testing.T) {
	srv := newTestServer(t)
	p := srv.project(t)
	url := srv.URL + "/projects/" + p.ID + "/reports/daily"

	res, data := doJSON(t, http.MethodGet, url, nil, as(srv.Admin.ID))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("empty report %d: %s", res.StatusCode, string(data))
	}
	if r := decode[map[string]any](t, data); r["empty"] != true {
		t.Fatalf("expected empty report: %s", string(data))
	}

	task := srv.task(t, p.ID, "Index")
	if res, data := doJSON(t, http.MethodPost, srv.URL+"/tasks/"+task.ID+"/logs", map[string]any{"content": "built index", "hours_spent": 1.5}, as(srv.Admin.ID)); res.StatusCode != http.StatusCreated {
		t.Fatalf("log %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, http.MethodGet, url, nil, as(srv.Admin.ID))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("fresh report %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, http.MethodGet, url, nil, as(srv.Admin.ID))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("cached report %d: %s", res.StatusCode, string(data))
	}
	if r := decode[map[string]any](t, data); r["cached"] != true {
		t.Fatalf("expected cached report: %s", string(data))
	}

	res, data = doJSON(t, http.MethodGet, srv.URL+"/projects/"+p.ID+"/reports/handover", nil, as(srv.Admin.ID))
	expectError(t, res, data, http.StatusBadRequest, "invalid_input")

	res, data = doJSON(t, http.MethodGet, srv.URL+"/projects/"+p.ID+"/reports", nil, as(srv.Admin.ID))
	if history := decode[[]domain.ReportArtifact](t, data); len(history) != 1 {
		t.Fatalf("history = %d entries", len(history))
	}
}

func TestDevTokenAuth(t *testing.T) {
	srv := newTestServer(t)

	res, data := doJSON(t, http.MethodPost, srv.URL+"/auth/token", map[string]any{"user_id": srv.Admin.ID}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("token %d: %s", res.StatusCode, string(data))
	}
	token := decode[TokenResponse](t, data).Token

	res, data = doJSON(t, http.MethodGet, srv.URL+"/me", nil, map[string]string{"Authorization": "Bearer " + token})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me %d: %s", res.StatusCode, string(data))
	}
	me := decode[WhoAmIResponse](t, data)
	if me.ActorID != srv.Admin.ID || me.Source != "jwt" {
		t.Fatalf("me = %+v", me)
	}

	forged, err := SignToken("other-secret", srv.Admin.ID, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	res, data = doJSON(t, http.MethodGet, srv.URL+"/me", nil, map[string]string{"Authorization": "Bearer " + forged})
	expectError(t, res, data, http.StatusUnauthorized, "invalid_credentials")

	// a bad bearer token is not rescued by the legacy header
	res, data = doJSON(t, http.MethodGet, srv.URL+"/me", nil, map[string]string{
		"Authorization": "Bearer " + forged,
		"X-Actor-Id":    srv.Admin.ID,
	})
	expectError(t, res, data, http.StatusUnauthorized, "invalid_credentials")
}

func TestOpenAPIDocument(t *testing.T) {
	srv := newTestServer(t)

	res, data := doJSON(t, http.MethodGet, srv.URL+"/openapi.json", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("openapi %d: %s", res.StatusCode, string(data))
	}
	doc := decode[struct {
		Paths      map[string]any `json:"paths"`
		Components struct {
			SecuritySchemes map[string]any `json:"securitySchemes"`
		} `json:"components"`
	}](t, data)
	if doc.Components.SecuritySchemes["bearerAuth"] == nil || doc.Components.SecuritySchemes["apiKeyAuth"] == nil {
		t.Fatalf("security schemes = %v", doc.Components.SecuritySchemes)
	}
	if len(doc.Paths) == 0 {
		t.Fatal("no paths documented")
	}

	res, data = doJSON(t, http.MethodGet, srv.URL+"/docs", nil, nil)
	if res.StatusCode != http.StatusOK || !strings.Contains(string(data), "openapi.json") {
		t.Fatalf("docs %d", res.StatusCode)
	}
}

func TestTaskPagination(t *testing.T) {
	srv := newTestServer(t)
	p := srv.project(t)
	for _, title := range []string{"one", "two", "three"} {
		srv.task(t, p.ID, title)
	}
	res, data := doJSON(t, http.MethodGet, srv.URL+"/projects/"+p.ID+"/tasks?limit=2", nil, as(srv.Admin.ID))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list %d: %s", res.StatusCode, string(data))
	}
	page := decode[paginatedTasks](t, data)
	if len(page.Items) != 2 || page.NextCursor == "" {
		t.Fatalf("first page = %d items, cursor %q", len(page.Items), page.NextCursor)
	}
	res, data = doJSON(t, http.MethodGet, srv.URL+"/projects/"+p.ID+"/tasks?limit=2&cursor="+page.NextCursor, nil, as(srv.Admin.ID))
	next := decode[paginatedTasks](t, data)
	if len(next.Items) != 1 || next.NextCursor != "" {
		t.Fatalf("second page = %d items, cursor %q", len(next.Items), next.NextCursor)
	}
	seen := map[string]bool{}
	for _, task := range append(page.Items, next.Items...) {
		seen[task.ID] = true
	}
	if len(seen) != 3 {
		t.Fatalf("pages overlap: %v", seen)
	}
}

func TestEventsFeed(t *testing.T) {
	srv := newTestServer(t)
	p := srv.project(t)
	srv.task(t, p.ID, "Trace")

	res, data := doJSON(t, http.MethodGet, srv.URL+"/projects/"+p.ID+"/events?type=TASK_CREATED", nil, as(srv.Admin.ID))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("events %d: %s", res.StatusCode, string(data))
	}
	feed := decode[paginatedEvents](t, data)
	if len(feed.Items) != 1 || feed.Items[0].Type != "TASK_CREATED" {
		t.Fatalf("feed = %+v", feed.Items)
	}
}

func TestWebhookDelivery(t *testing.T) {
	srv := newTestServer(t)
	var (
		mu       sync.Mutex
		received []webhookEvent
		sigs     []string
	)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var evt webhookEvent
		_ = json.Unmarshal(body, &evt)
		mu.Lock()
		received = append(received, evt)
		sigs = append(sigs, r.Header.Get("X-Workflow-Signature")+"|"+Sign("hush", body))
		mu.Unlock()
	}))
	defer hook.Close()

	d := NewWebhookDispatcher(srv.App.Engine.Repo, []config.Webhook{{
		URL:    hook.URL,
		Events: []string{"TASK_CREATED"},
		Secret: "hush",
	}}, log.New(io.Discard, "", 0))
	ctx := context.Background()
	p := srv.project(t)
	d.DispatchOnce(ctx)
	srv.task(t, p.ID, "Notify")
	d.DispatchOnce(ctx)
	d.DispatchOnce(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 || received[0].Type != "TASK_CREATED" || received[0].ProjectID != p.ID {
		t.Fatalf("received = %+v", received)
	}
	parts := strings.SplitN(sigs[0], "|", 2)
	if parts[0] != "sha256="+parts[1] {
		t.Fatalf("signature mismatch: %s", sigs[0])
	}
}
