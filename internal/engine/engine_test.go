package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shubhamragade/workflow/internal/config"
	"github.com/shubhamragade/workflow/internal/db"
	"github.com/shubhamragade/workflow/internal/domain"
	"github.com/shubhamragade/workflow/internal/engine"
	"github.com/shubhamragade/workflow/internal/migrate"
	"github.com/shubhamragade/workflow/internal/repo"
)

type testEnv struct {
	Engine  engine.Engine
	Ctx     context.Context
	Clock   *time.Time
	Admin   domain.User
	Project domain.Project
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default())
	clock := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	eng.Now = func() time.Time { return clock }
	ctx := context.Background()
	admin, err := eng.CreateUser(ctx, engine.UserCreateOptions{Name: "Ada", Email: "ada@example.com", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	p, err := eng.CreateProject(ctx, engine.ProjectCreateOptions{Name: "Apollo", CreatorID: admin.ID})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return testEnv{Engine: eng, Ctx: ctx, Clock: &clock, Admin: admin, Project: p}
}

func (env testEnv) task(t *testing.T, title string) domain.Task {
	t.Helper()
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{ProjectID: env.Project.ID, Title: title, ActorID: env.Admin.ID})
	if err != nil {
		t.Fatalf("create task %s: %v", title, err)
	}
	return task
}

func (env testEnv) log(t *testing.T, taskID string, hours float64) {
	t.Helper()
	if _, err := env.Engine.RecordWorkLog(env.Ctx, engine.WorkLogOptions{TaskID: taskID, AuthorID: env.Admin.ID, Content: "did work", HoursSpent: hours}); err != nil {
		t.Fatalf("record log: %v", err)
	}
}

func (env testEnv) progress(t *testing.T) float64 {
	t.Helper()
	p, err := env.Engine.GetProject(env.Ctx, env.Project.ID)
	if err != nil {
		t.Fatal(err)
	}
	return p.CompletionPercentage
}

func wantKind(t *testing.T, err error, kind domain.Kind) {
	t.Helper()
	if got := domain.KindOf(err); got != kind {
		t.Fatalf("expected %s, got %v (%v)", kind, got, err)
	}
}

func ptr[T any](v T) *T { return &v }

func TestAdvanceLifecycle(t *testing.T) {
	env := newTestEnv(t)
	task := env.task(t, "Ship it")
	if task.Status != domain.TaskTodo || task.Version != 1 {
		t.Fatalf("new task = %s v%d", task.Status, task.Version)
	}
	task, err := env.Engine.AdvanceTask(env.Ctx, task.ID, nil, env.Admin.ID)
	if err != nil || task.Status != domain.TaskInProgress {
		t.Fatalf("to in_progress: %v", err)
	}
	task, err = env.Engine.AdvanceTask(env.Ctx, task.ID, nil, env.Admin.ID)
	if err != nil || task.Status != domain.TaskReview {
		t.Fatalf("to review: %v", err)
	}
	_, err = env.Engine.AdvanceTask(env.Ctx, task.ID, nil, env.Admin.ID)
	wantKind(t, err, domain.KindInvalidState)

	env.log(t, task.ID, 2)
	task, err = env.Engine.AdvanceTask(env.Ctx, task.ID, nil, env.Admin.ID)
	if err != nil || task.Status != domain.TaskDone {
		t.Fatalf("to done: %v", err)
	}
	if task.Version != 4 || task.CompletedAt == nil {
		t.Fatalf("done task = v%d completed=%v", task.Version, task.CompletedAt)
	}
	_, err = env.Engine.AdvanceTask(env.Ctx, task.ID, nil, env.Admin.ID)
	wantKind(t, err, domain.KindInvalidState)
	if got := env.progress(t); got != 100 {
		t.Fatalf("progress = %v", got)
	}
}

// The log-before-DONE rule, from TODO: one log, then three advances.
func TestAdvanceScenarioFromTodo(t *testing.T) {
	env := newTestEnv(t)
	task := env.task(t, "Document")
	env.log(t, task.ID, 2.0)
	stored, _ := env.Engine.GetTask(env.Ctx, task.ID)
	if stored.Status != domain.TaskTodo || stored.Version != 1 {
		t.Fatalf("logging must not touch the task: %s v%d", stored.Status, stored.Version)
	}
	if got := env.progress(t); got != 0 {
		t.Fatalf("progress after log = %v", got)
	}
	for i, want := range []domain.TaskStatus{domain.TaskInProgress, domain.TaskReview, domain.TaskDone} {
		next, err := env.Engine.AdvanceTask(env.Ctx, task.ID, nil, env.Admin.ID)
		if err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
		if next.Status != want || next.Version != int64(i+2) {
			t.Fatalf("advance %d = %s v%d", i, next.Status, next.Version)
		}
	}
}

func TestAdvanceVersionConflict(t *testing.T) {
	env := newTestEnv(t)
	task := env.task(t, "v")
	_, err := env.Engine.AdvanceTask(env.Ctx, task.ID, ptr(int64(7)), env.Admin.ID)
	wantKind(t, err, domain.KindConflict)
	var de *domain.Error
	if !errors.As(err, &de) || de.CurrentVersion != 1 {
		t.Fatalf("conflict should carry version 1: %+v", de)
	}
	if got, _ := env.Engine.GetTask(env.Ctx, task.ID); got.Status != domain.TaskTodo {
		t.Fatalf("conflict mutated task: %s", got.Status)
	}
}

func TestAdvanceMissingTask(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.AdvanceTask(env.Ctx, "nope", nil, env.Admin.ID)
	wantKind(t, err, domain.KindNotFound)
}

func TestUpdateTaskTransitions(t *testing.T) {
	env := newTestEnv(t)
	task := env.task(t, "Do work")
	_, err := env.Engine.UpdateTask(env.Ctx, task.ID, engine.TaskUpdate{Status: ptr(domain.TaskReview)})
	wantKind(t, err, domain.KindInvalidTransition)

	task, err = env.Engine.UpdateTask(env.Ctx, task.ID, engine.TaskUpdate{Status: ptr(domain.TaskInProgress), ExpectedVersion: ptr(int64(1))})
	if err != nil || task.Status != domain.TaskInProgress || task.Version != 2 {
		t.Fatalf("to in_progress: %v %+v", err, task)
	}
	if got := env.progress(t); got != 100*0.5 {
		t.Fatalf("progress = %v", got)
	}
	task, err = env.Engine.UpdateTask(env.Ctx, task.ID, engine.TaskUpdate{Status: ptr(domain.TaskTodo)})
	if err != nil || task.Status != domain.TaskTodo {
		t.Fatalf("back to todo: %v", err)
	}
	// same status is a no-op success
	same, err := env.Engine.UpdateTask(env.Ctx, task.ID, engine.TaskUpdate{Status: ptr(domain.TaskTodo)})
	if err != nil || same.Version != task.Version {
		t.Fatalf("no-op: %v v%d", err, same.Version)
	}
}

func TestUpdateTaskRequiresLogsForDone(t *testing.T) {
	env := newTestEnv(t)
	task := env.task(t, "Review me")
	for _, s := range []domain.TaskStatus{domain.TaskInProgress, domain.TaskReview} {
		var err error
		if task, err = env.Engine.UpdateTask(env.Ctx, task.ID, engine.TaskUpdate{Status: ptr(s)}); err != nil {
			t.Fatal(err)
		}
	}
	_, err := env.Engine.UpdateTask(env.Ctx, task.ID, engine.TaskUpdate{Status: ptr(domain.TaskDone)})
	wantKind(t, err, domain.KindInvalidState)
	env.log(t, task.ID, 1)
	if _, err := env.Engine.UpdateTask(env.Ctx, task.ID, engine.TaskUpdate{Status: ptr(domain.TaskDone)}); err != nil {
		t.Fatalf("done after log: %v", err)
	}
}

func TestDoneTaskIsImmutable(t *testing.T) {
	env := newTestEnv(t)
	task := env.task(t, "Finish")
	env.log(t, task.ID, 1)
	for i := 0; i < 3; i++ {
		var err error
		if task, err = env.Engine.AdvanceTask(env.Ctx, task.ID, nil, env.Admin.ID); err != nil {
			t.Fatal(err)
		}
	}
	updates := map[string]engine.TaskUpdate{
		"title":       {Title: ptr("renamed")},
		"status-noop": {Status: ptr(domain.TaskDone)},
		"reopen":      {Status: ptr(domain.TaskTodo)},
		"priority":    {Priority: ptr(domain.PriorityHigh)},
		"assignee":    {AssigneeID: ptr(env.Admin.ID)},
	}
	for name, u := range updates {
		_, err := env.Engine.UpdateTask(env.Ctx, task.ID, u)
		if domain.KindOf(err) != domain.KindInvalidState {
			t.Fatalf("%s: expected invalid_state, got %v", name, err)
		}
	}
	stored, _ := env.Engine.GetTask(env.Ctx, task.ID)
	if stored.Version != task.Version || stored.Title != "Finish" {
		t.Fatalf("done task changed: %+v", stored)
	}
}

func TestAssigneeMustBeActive(t *testing.T) {
	env := newTestEnv(t)
	bob, err := env.Engine.CreateUser(env.Ctx, engine.UserCreateOptions{Name: "Bob", Email: "bob@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.SetUserStatus(env.Ctx, bob.ID, domain.UserInactive, env.Admin.ID); err != nil {
		t.Fatal(err)
	}
	_, err = env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{ProjectID: env.Project.ID, Title: "x", AssigneeID: bob.ID})
	wantKind(t, err, domain.KindInvalidState)

	task := env.task(t, "y")
	_, err = env.Engine.UpdateTask(env.Ctx, task.ID, engine.TaskUpdate{AssigneeID: ptr(bob.ID)})
	wantKind(t, err, domain.KindInvalidState)
	_, err = env.Engine.UpdateTask(env.Ctx, task.ID, engine.TaskUpdate{AssigneeID: ptr("ghost")})
	wantKind(t, err, domain.KindNotFound)
}

func TestResentAssigneeMustStillBeActive(t *testing.T) {
	env := newTestEnv(t)
	bob, _ := env.Engine.CreateUser(env.Ctx, engine.UserCreateOptions{Name: "Bob", Email: "bob@example.com"})
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{ProjectID: env.Project.ID, Title: "y", AssigneeID: bob.ID})
	if err != nil {
		t.Fatal(err)
	}
	same, err := env.Engine.UpdateTask(env.Ctx, task.ID, engine.TaskUpdate{AssigneeID: ptr(bob.ID)})
	if err != nil || same.Version != task.Version {
		t.Fatalf("unchanged assignee = v%d %v", same.Version, err)
	}
	// bypass the open-task guard to reach an inactive assignee on an open task
	if err := env.Engine.Repo.UpdateUserStatus(env.Ctx, nil, bob.ID, domain.UserInactive); err != nil {
		t.Fatal(err)
	}
	_, err = env.Engine.UpdateTask(env.Ctx, task.ID, engine.TaskUpdate{AssigneeID: ptr(bob.ID)})
	wantKind(t, err, domain.KindInvalidState)
}

func TestCompletedProjectRejectsTasks(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.SetProjectStatus(env.Ctx, env.Project.ID, domain.ProjectCompleted, env.Admin.ID); err != nil {
		t.Fatal(err)
	}
	_, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{ProjectID: env.Project.ID, Title: "late"})
	wantKind(t, err, domain.KindInvalidState)
}

func TestMilestoneMustBelongToProject(t *testing.T) {
	env := newTestEnv(t)
	other, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Name: "Other"})
	if err != nil {
		t.Fatal(err)
	}
	m, err := env.Engine.CreateMilestone(env.Ctx, engine.MilestoneCreateOptions{ProjectID: other.ID, Title: "M1", TargetDate: "2024-03-01"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{ProjectID: env.Project.ID, Title: "t", MilestoneID: m.ID})
	wantKind(t, err, domain.KindInvalidInput)
}

func TestConcurrentUpdatesOneWins(t *testing.T) {
	env := newTestEnv(t)
	task := env.task(t, "contended")
	titles := []string{"alpha", "beta"}
	errs := make([]error, len(titles))
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i, title := range titles {
		wg.Add(1)
		go func(i int, title string) {
			defer wg.Done()
			<-start
			_, errs[i] = env.Engine.UpdateTask(env.Ctx, task.ID, engine.TaskUpdate{
				Title:           ptr(title),
				Description:     ptr("by " + title),
				ExpectedVersion: ptr(int64(1)),
			})
		}(i, title)
	}
	close(start)
	wg.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			if winner != -1 {
				t.Fatalf("both writers committed")
			}
			winner = i
			continue
		}
		wantKind(t, err, domain.KindConflict)
		var de *domain.Error
		if errors.As(err, &de) && de.CurrentVersion != 2 {
			t.Fatalf("conflict version = %d", de.CurrentVersion)
		}
	}
	if winner == -1 {
		t.Fatalf("no writer committed: %v", errs)
	}
	stored, _ := env.Engine.GetTask(env.Ctx, task.ID)
	if stored.Version != 2 || stored.Title != titles[winner] || stored.Description != "by "+titles[winner] {
		t.Fatalf("split state: %+v", stored)
	}
}

func TestWorkLogHours(t *testing.T) {
	env := newTestEnv(t)
	task := env.task(t, "hours")
	for _, h := range []float64{-1, 0} {
		_, err := env.Engine.RecordWorkLog(env.Ctx, engine.WorkLogOptions{TaskID: task.ID, AuthorID: env.Admin.ID, Content: "x", HoursSpent: h})
		wantKind(t, err, domain.KindInvalidInput)
	}
	if _, err := env.Engine.RecordWorkLog(env.Ctx, engine.WorkLogOptions{TaskID: task.ID, AuthorID: env.Admin.ID, Content: "x", HoursSpent: 0.01}); err != nil {
		t.Fatalf("0.01h: %v", err)
	}
}

func TestWorkLogValidationOrder(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.RecordWorkLog(env.Ctx, engine.WorkLogOptions{TaskID: "missing", AuthorID: env.Admin.ID, HoursSpent: -1})
	wantKind(t, err, domain.KindNotFound)

	task := env.task(t, "closed")
	env.log(t, task.ID, 1)
	for i := 0; i < 3; i++ {
		if _, err := env.Engine.AdvanceTask(env.Ctx, task.ID, nil, env.Admin.ID); err != nil {
			t.Fatal(err)
		}
	}
	_, err = env.Engine.RecordWorkLog(env.Ctx, engine.WorkLogOptions{TaskID: task.ID, AuthorID: env.Admin.ID, HoursSpent: -1})
	wantKind(t, err, domain.KindInvalidState)
}

func TestWorkLogInsightCreatesDecision(t *testing.T) {
	env := newTestEnv(t)
	task := env.task(t, "insightful")
	res, err := env.Engine.RecordWorkLog(env.Ctx, engine.WorkLogOptions{
		TaskID: task.ID, AuthorID: env.Admin.ID, Content: "spike", HoursSpent: 3, Insight: "Use SQLite WAL",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Decision == nil {
		t.Fatalf("expected derived decision")
	}
	d := *res.Decision
	if d.ImpactLevel != domain.ImpactMedium || d.TaskID == nil || *d.TaskID != task.ID || d.AuthorID != env.Admin.ID {
		t.Fatalf("derived decision = %+v", d)
	}
	if d.Reasoning != "Derived from tactical work log execution." || d.Title != "Insight from Task "+task.ID {
		t.Fatalf("derived decision text = %q / %q", d.Title, d.Reasoning)
	}
	logs, _ := env.Engine.ListWorkLogs(env.Ctx, repo.WorkLogFilters{TaskID: task.ID})
	if len(logs) != 1 {
		t.Fatalf("expected exactly one log, got %d", len(logs))
	}
	plain, _ := env.Engine.RecordWorkLog(env.Ctx, engine.WorkLogOptions{TaskID: task.ID, AuthorID: env.Admin.ID, Content: "more", HoursSpent: 1})
	if plain.Decision != nil {
		t.Fatalf("no insight must not create a decision")
	}
}

func TestProgressWeights(t *testing.T) {
	cases := []struct {
		statuses []domain.TaskStatus
		want     float64
	}{
		{nil, 0},
		{[]domain.TaskStatus{domain.TaskTodo}, 0},
		{[]domain.TaskStatus{domain.TaskReview}, 0},
		{[]domain.TaskStatus{domain.TaskDone, domain.TaskDone, domain.TaskInProgress, domain.TaskTodo}, 62.5},
		{[]domain.TaskStatus{domain.TaskInProgress, domain.TaskInProgress}, 50},
	}
	for _, c := range cases {
		if got := engine.Progress(c.statuses); got != c.want {
			t.Fatalf("Progress(%v) = %v, want %v", c.statuses, got, c.want)
		}
		if again := engine.Progress(c.statuses); again != c.want {
			t.Fatalf("Progress not deterministic")
		}
	}
}

func TestProjectProgressTracksTasks(t *testing.T) {
	env := newTestEnv(t)
	tasks := []domain.Task{env.task(t, "a"), env.task(t, "b"), env.task(t, "c"), env.task(t, "d")}
	for _, task := range tasks[:2] {
		env.log(t, task.ID, 1)
		for i := 0; i < 3; i++ {
			if _, err := env.Engine.AdvanceTask(env.Ctx, task.ID, nil, env.Admin.ID); err != nil {
				t.Fatal(err)
			}
		}
	}
	if _, err := env.Engine.AdvanceTask(env.Ctx, tasks[2].ID, nil, env.Admin.ID); err != nil {
		t.Fatal(err)
	}
	if got := env.progress(t); got != 62.5 {
		t.Fatalf("progress = %v", got)
	}
	env.task(t, "e")
	if got := env.progress(t); got != 50 {
		t.Fatalf("progress after new task = %v", got)
	}
}

func TestDecisionEditWindow(t *testing.T) {
	env := newTestEnv(t)
	d, err := env.Engine.CreateDecision(env.Ctx, engine.DecisionCreateOptions{
		ProjectID: env.Project.ID, AuthorID: env.Admin.ID, Title: "Pick sqlite", Explanation: "embedded", Reasoning: "simple", ImpactLevel: domain.ImpactHigh,
	})
	if err != nil {
		t.Fatal(err)
	}
	*env.Clock = env.Clock.Add(23*time.Hour + 59*time.Minute)
	d, err = env.Engine.UpdateDecision(env.Ctx, d.ID, engine.DecisionUpdate{Reasoning: ptr("simpler"), ExpectedVersion: ptr(int64(1))})
	if err != nil || d.Version != 2 || d.Reasoning != "simpler" {
		t.Fatalf("update inside window: %v %+v", err, d)
	}
	_, err = env.Engine.UpdateDecision(env.Ctx, d.ID, engine.DecisionUpdate{Title: ptr("x"), ExpectedVersion: ptr(int64(1))})
	wantKind(t, err, domain.KindConflict)

	*env.Clock = env.Clock.Add(time.Minute)
	_, err = env.Engine.UpdateDecision(env.Ctx, d.ID, engine.DecisionUpdate{Title: ptr("late")})
	wantKind(t, err, domain.KindInvalidState)
}

func TestDecisionNeverDeleted(t *testing.T) {
	env := newTestEnv(t)
	d, err := env.Engine.CreateDecision(env.Ctx, engine.DecisionCreateOptions{ProjectID: env.Project.ID, AuthorID: env.Admin.ID, Title: "keep"})
	if err != nil {
		t.Fatal(err)
	}
	wantKind(t, env.Engine.DeleteDecision(env.Ctx, d.ID), domain.KindOperationNotPermitted)
	*env.Clock = env.Clock.Add(90 * 24 * time.Hour)
	wantKind(t, env.Engine.DeleteDecision(env.Ctx, d.ID), domain.KindOperationNotPermitted)
	if _, err := env.Engine.DB.ExecContext(env.Ctx, `DELETE FROM decisions WHERE id=?`, d.ID); err == nil {
		t.Fatalf("storage allowed a decision delete")
	}
}

func TestUserStatusBlockedByOpenTasks(t *testing.T) {
	env := newTestEnv(t)
	bob, _ := env.Engine.CreateUser(env.Ctx, engine.UserCreateOptions{Name: "Bob", Email: "bob@example.com"})
	if _, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{ProjectID: env.Project.ID, Title: "owned", AssigneeID: bob.ID}); err != nil {
		t.Fatal(err)
	}
	_, err := env.Engine.SetUserStatus(env.Ctx, bob.ID, domain.UserInactive, env.Admin.ID)
	wantKind(t, err, domain.KindInvalidState)

	_, err = env.Engine.CreateUser(env.Ctx, engine.UserCreateOptions{Name: "Bob2", Email: "BOB@example.com"})
	wantKind(t, err, domain.KindInvalidState)
}

func TestMembership(t *testing.T) {
	env := newTestEnv(t)
	bob, _ := env.Engine.CreateUser(env.Ctx, engine.UserCreateOptions{Name: "Bob", Email: "bob@example.com"})
	if _, err := env.Engine.AddMember(env.Ctx, env.Project.ID, bob.ID, domain.MemberContributor, env.Admin.ID); err != nil {
		t.Fatal(err)
	}
	_, err := env.Engine.AddMember(env.Ctx, env.Project.ID, bob.ID, domain.MemberObserver, env.Admin.ID)
	wantKind(t, err, domain.KindInvalidState)
	members, err := env.Engine.ListMembers(env.Ctx, env.Project.ID)
	if err != nil || len(members) != 2 {
		t.Fatalf("members = %v %v", members, err)
	}
	if members[0].UserID != env.Admin.ID || members[0].Role != domain.MemberLead {
		t.Fatalf("creator should be lead: %+v", members[0])
	}
	_, err = env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Name: "Apollo"})
	wantKind(t, err, domain.KindInvalidState)
}

func TestExitWorkflow(t *testing.T) {
	env := newTestEnv(t)
	bob, _ := env.Engine.CreateUser(env.Ctx, engine.UserCreateOptions{Name: "Bob", Email: "bob@example.com"})
	carol, _ := env.Engine.CreateUser(env.Ctx, engine.UserCreateOptions{Name: "Carol", Email: "carol@example.com"})
	t1, _ := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{ProjectID: env.Project.ID, Title: "one", AssigneeID: bob.ID})
	t2, _ := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{ProjectID: env.Project.ID, Title: "two", AssigneeID: bob.ID})

	preview, err := env.Engine.InitiateExit(env.Ctx, bob.ID)
	if err != nil || preview.OpenTaskCount != 2 || preview.CanExitImmediately {
		t.Fatalf("preview = %+v %v", preview, err)
	}
	_, err = env.Engine.ConfirmExit(env.Ctx, bob.ID, engine.ExitConfirmOptions{Reassignments: map[string]string{t1.ID: carol.ID}})
	wantKind(t, err, domain.KindInvalidInput)
	_, err = env.Engine.ConfirmExit(env.Ctx, bob.ID, engine.ExitConfirmOptions{Reassignments: map[string]string{t1.ID: carol.ID, t2.ID: bob.ID}})
	wantKind(t, err, domain.KindInvalidState)

	res, err := env.Engine.ConfirmExit(env.Ctx, bob.ID, engine.ExitConfirmOptions{
		Reassignments: map[string]string{t1.ID: carol.ID, t2.ID: env.Admin.ID},
		FinalHandover: "Bob hands over two tasks.",
		ActorID:       env.Admin.ID,
	})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.User.Status != domain.UserInactive || len(res.Reassigned) != 2 || res.HandoverArtifactID == "" {
		t.Fatalf("exit result = %+v", res)
	}
	moved, _ := env.Engine.GetTask(env.Ctx, t1.ID)
	if moved.AssigneeID == nil || *moved.AssigneeID != carol.ID || moved.Version != 2 {
		t.Fatalf("reassigned task = %+v", moved)
	}
	evts, _ := env.Engine.ListEvents(env.Ctx, repo.EventFilters{Type: "TASK_REASSIGNED"})
	if len(evts) != 2 {
		t.Fatalf("reassign events = %d", len(evts))
	}
	art, err := env.Engine.Repo.GetArtifact(env.Ctx, nil, res.HandoverArtifactID)
	if err != nil || art.Model != engine.FinalizedModel || art.Kind != domain.ReportHandover || art.Status != domain.ReportSuccess {
		t.Fatalf("handover artifact = %+v %v", art, err)
	}
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	m, _ := env.Engine.CreateMilestone(env.Ctx, engine.MilestoneCreateOptions{ProjectID: env.Project.ID, Title: "M1"})
	task, _ := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{ProjectID: env.Project.ID, Title: "ms", MilestoneID: m.ID})
	env.log(t, task.ID, 2.5)
	for i := 0; i < 3; i++ {
		if _, err := env.Engine.AdvanceTask(env.Ctx, task.ID, nil, env.Admin.ID); err != nil {
			t.Fatal(err)
		}
	}
	ps, err := env.Engine.ProjectStats(env.Ctx, env.Project.ID)
	if err != nil {
		t.Fatal(err)
	}
	if ps.TotalTasks != 1 || ps.DoneTasks != 1 || ps.TotalHours != 2.5 || ps.Velocity != 1 {
		t.Fatalf("project stats = %+v", ps)
	}
	if len(ps.Milestones) != 1 || ps.Milestones[0].Hours != 2.5 {
		t.Fatalf("milestone hours = %+v", ps.Milestones)
	}
	gs, err := env.Engine.GlobalStats(env.Ctx)
	if err != nil || gs.TotalTasks != 1 || gs.DoneTasks != 1 || gs.ActiveContributors != 1 {
		t.Fatalf("global stats = %+v %v", gs, err)
	}
	prof, err := env.Engine.UserProfile(env.Ctx, env.Admin.ID)
	if err != nil || prof.LogsCreated != 1 || prof.TotalHours != 2.5 {
		t.Fatalf("profile = %+v %v", prof, err)
	}
}

func TestVelocity(t *testing.T) {
	if got := engine.Velocity(3, 2*24*time.Hour); got != 3 {
		t.Fatalf("short project velocity = %v", got)
	}
	if got := engine.Velocity(10, 21*24*time.Hour); got != 3.33 {
		t.Fatalf("3 week velocity = %v", got)
	}
}

// The test clock never moves, so every row below shares one timestamp and
// only insertion order can tell them apart.
func TestSameSecondRowsKeepInsertionOrder(t *testing.T) {
	env := newTestEnv(t)
	names := []string{"Bob", "Carol", "Dave", "Erin", "Frank", "Grace"}
	want := []string{env.Admin.ID}
	for _, n := range names {
		u, err := env.Engine.CreateUser(env.Ctx, engine.UserCreateOptions{Name: n, Email: n + "@example.com"})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := env.Engine.AddMember(env.Ctx, env.Project.ID, u.ID, domain.MemberContributor, env.Admin.ID); err != nil {
			t.Fatal(err)
		}
		want = append(want, u.ID)
	}
	members, err := env.Engine.ListMembers(env.Ctx, env.Project.ID)
	if err != nil || len(members) != len(want) {
		t.Fatalf("members = %v %v", members, err)
	}
	for i, m := range members {
		if m.UserID != want[i] {
			t.Fatalf("member %d = %s, want %s", i, m.UserID, want[i])
		}
	}

	task := env.task(t, "logs")
	var logIDs []string
	for _, c := range names {
		res, err := env.Engine.RecordWorkLog(env.Ctx, engine.WorkLogOptions{TaskID: task.ID, AuthorID: env.Admin.ID, Content: c, HoursSpent: 1})
		if err != nil {
			t.Fatal(err)
		}
		logIDs = append(logIDs, res.Log.ID)
	}
	oldest, _ := env.Engine.ListWorkLogs(env.Ctx, repo.WorkLogFilters{TaskID: task.ID})
	newest, _ := env.Engine.ListWorkLogs(env.Ctx, repo.WorkLogFilters{TaskID: task.ID, Newest: true, Limit: 2})
	for i, l := range oldest {
		if l.ID != logIDs[i] {
			t.Fatalf("log %d = %s, want %s", i, l.Content, names[i])
		}
	}
	if len(newest) != 2 || newest[0].ID != logIDs[len(logIDs)-1] || newest[1].ID != logIDs[len(logIDs)-2] {
		t.Fatalf("newest logs = %+v", newest)
	}

	var created []string
	for _, n := range names {
		created = append(created, env.task(t, n).ID)
	}
	var paged []string
	f := repo.TaskFilters{ProjectID: env.Project.ID, Limit: 4}
	for {
		page, err := env.Engine.ListTasks(env.Ctx, f)
		if err != nil {
			t.Fatal(err)
		}
		for _, tk := range page {
			paged = append(paged, tk.ID)
		}
		if len(page) < f.Limit {
			break
		}
		last := page[len(page)-1]
		f.CursorCreatedAt, f.CursorID = last.CreatedAt, last.ID
	}
	// newest first: the tasks above in reverse, then the "logs" task
	if len(paged) != len(created)+1 || paged[len(paged)-1] != task.ID {
		t.Fatalf("paged %d tasks, want %d", len(paged), len(created)+1)
	}
	for i, id := range created {
		if paged[len(created)-1-i] != id {
			t.Fatalf("page position %d = %s, want %s", len(created)-1-i, paged[len(created)-1-i], id)
		}
	}
}
