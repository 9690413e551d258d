package repo

import (
	"context"

	"github.com/shubhamragade/workflow/internal/domain"
)

type GlobalCounts struct {
	Projects      int     `db:"projects"`
	Tasks         int     `db:"tasks"`
	DoneTasks     int     `db:"done_tasks"`
	WorkLogs      int     `db:"work_logs"`
	Decisions     int     `db:"decisions"`
	TotalHours    float64 `db:"total_hours"`
	ActiveMembers int     `db:"active_members"`
}

// GlobalCounts aggregates totals across every project.
func (r Repo) GlobalCounts(ctx context.Context) (GlobalCounts, error) {
	var c GlobalCounts
	err := r.get(ctx, nil, &c, `SELECT
 (SELECT count(*) FROM projects) AS projects,
 (SELECT count(*) FROM tasks) AS tasks,
 (SELECT count(*) FROM tasks WHERE status=?) AS done_tasks,
 (SELECT count(*) FROM work_logs) AS work_logs,
 (SELECT count(*) FROM decisions) AS decisions,
 (SELECT COALESCE(SUM(hours_spent),0) FROM work_logs) AS total_hours,
 (SELECT count(*) FROM users WHERE status=?) AS active_members`,
		domain.TaskDone, domain.UserActive)
	return c, err
}

func (r Repo) ProjectHours(ctx context.Context, projectID string) (float64, error) {
	var h float64
	err := r.get(ctx, nil, &h, `SELECT COALESCE(SUM(w.hours_spent),0) FROM work_logs w JOIN tasks t ON t.id=w.task_id WHERE t.project_id=?`, projectID)
	return h, err
}

type MilestoneHours struct {
	MilestoneID string  `json:"milestone_id" db:"milestone_id"`
	Title       string  `json:"title" db:"title"`
	Hours       float64 `json:"hours" db:"hours"`
	Tasks       int     `json:"tasks" db:"tasks"`
	DoneTasks   int     `json:"done_tasks" db:"done_tasks"`
}

func (r Repo) HoursByMilestone(ctx context.Context, projectID string) ([]MilestoneHours, error) {
	res := []MilestoneHours{}
	err := r.selectAll(ctx, nil, &res, `SELECT m.id AS milestone_id, m.title AS title,
 COALESCE((SELECT SUM(w.hours_spent) FROM work_logs w JOIN tasks t ON t.id=w.task_id WHERE t.milestone_id=m.id),0) AS hours,
 (SELECT count(*) FROM tasks t WHERE t.milestone_id=m.id) AS tasks,
 (SELECT count(*) FROM tasks t WHERE t.milestone_id=m.id AND t.status=?) AS done_tasks
FROM milestones m WHERE m.project_id=? ORDER BY m.created_at, m.rowid`, domain.TaskDone, projectID)
	return res, err
}

type UserCounts struct {
	AssignedTasks  int     `db:"assigned_tasks"`
	OpenTasks      int     `db:"open_tasks"`
	CompletedTasks int     `db:"completed_tasks"`
	WorkLogs       int     `db:"work_logs"`
	Decisions      int     `db:"decisions"`
	TotalHours     float64 `db:"total_hours"`
	Projects       int     `db:"projects"`
}

func (r Repo) UserCounts(ctx context.Context, userID string) (UserCounts, error) {
	var c UserCounts
	err := r.get(ctx, nil, &c, `SELECT
 (SELECT count(*) FROM tasks WHERE assignee_id=?) AS assigned_tasks,
 (SELECT count(*) FROM tasks WHERE assignee_id=? AND status<>?) AS open_tasks,
 (SELECT count(*) FROM tasks WHERE assignee_id=? AND status=?) AS completed_tasks,
 (SELECT count(*) FROM work_logs WHERE author_id=?) AS work_logs,
 (SELECT count(*) FROM decisions WHERE author_id=?) AS decisions,
 (SELECT COALESCE(SUM(hours_spent),0) FROM work_logs WHERE author_id=?) AS total_hours,
 (SELECT count(*) FROM project_members WHERE user_id=?) AS projects`,
		userID, userID, domain.TaskDone, userID, domain.TaskDone, userID, userID, userID, userID)
	return c, err
}
