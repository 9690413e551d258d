package domain

import "testing"

func TestTaskStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to TaskStatus
		ok       bool
	}{
		{TaskTodo, TaskInProgress, true},
		{TaskTodo, TaskReview, false},
		{TaskTodo, TaskDone, false},
		{TaskInProgress, TaskReview, true},
		{TaskInProgress, TaskTodo, true},
		{TaskInProgress, TaskDone, false},
		{TaskReview, TaskDone, true},
		{TaskReview, TaskInProgress, true},
		{TaskReview, TaskTodo, false},
		{TaskDone, TaskReview, false},
		{TaskDone, TaskTodo, false},
		{TaskDone, TaskDone, true},
		{TaskTodo, TaskTodo, true},
	}
	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.ok {
			t.Errorf("%s -> %s: got %v want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestTaskStatusNext(t *testing.T) {
	want := []TaskStatus{TaskInProgress, TaskReview, TaskDone}
	cur := TaskTodo
	for _, w := range want {
		next, ok := cur.Next()
		if !ok || next != w {
			t.Fatalf("next of %s: got %s,%v want %s", cur, next, ok, w)
		}
		if !cur.CanTransition(next) {
			t.Fatalf("canonical step %s -> %s not in transition table", cur, next)
		}
		cur = next
	}
	if _, ok := TaskDone.Next(); ok {
		t.Fatalf("DONE must have no next status")
	}
}

func TestParseRejectsUnknownValues(t *testing.T) {
	if _, err := ParseTaskStatus("done"); !IsKind(err, KindInvalidInput) {
		t.Fatalf("lower-case status should be rejected, got %v", err)
	}
	if _, err := ParsePriority("Urgent"); !IsKind(err, KindInvalidInput) {
		t.Fatalf("expected invalid priority, got %v", err)
	}
	if _, err := ParseImpactLevel(""); !IsKind(err, KindInvalidInput) {
		t.Fatalf("expected invalid impact, got %v", err)
	}
	k, err := ParseReportKind("contributor_impact")
	if err != nil || k != ReportContributorImpact {
		t.Fatalf("report kind: %v %v", k, err)
	}
	if k.Subject() != SubjectProject {
		t.Fatalf("contributor impact reports are project reports")
	}
	if ReportHandover.Subject() != SubjectUser {
		t.Fatalf("handover reports are user reports")
	}
}

func TestConflictCarriesVersion(t *testing.T) {
	err := error(Conflict("task", 7))
	if KindOf(err) != KindConflict {
		t.Fatalf("kind %q", KindOf(err))
	}
	if err.(*Error).CurrentVersion != 7 {
		t.Fatalf("current version not carried")
	}
}
