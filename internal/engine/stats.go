package engine

import (
	"context"
	"math"
	"time"

	"github.com/shubhamragade/workflow/internal/domain"
	"github.com/shubhamragade/workflow/internal/repo"
)

type GlobalStats struct {
	Projects           int     `json:"projects"`
	TotalTasks         int     `json:"total_tasks"`
	DoneTasks          int     `json:"done_tasks"`
	TotalHours         float64 `json:"total_hours"`
	WorkLogs           int     `json:"work_logs"`
	Decisions          int     `json:"decisions"`
	ActiveContributors int     `json:"active_contributors"`
}

func (e Engine) GlobalStats(ctx context.Context) (GlobalStats, error) {
	c, err := e.Repo.GlobalCounts(ctx)
	if err != nil {
		return GlobalStats{}, err
	}
	return GlobalStats{
		Projects:           c.Projects,
		TotalTasks:         c.Tasks,
		DoneTasks:          c.DoneTasks,
		TotalHours:         c.TotalHours,
		WorkLogs:           c.WorkLogs,
		Decisions:          c.Decisions,
		ActiveContributors: c.ActiveMembers,
	}, nil
}

type ProjectStats struct {
	ProjectID            string                `json:"project_id"`
	TotalTasks           int                   `json:"total_tasks"`
	DoneTasks            int                   `json:"done_tasks"`
	ByStatus             map[string]int        `json:"by_status"`
	TotalHours           float64               `json:"total_hours"`
	CompletionPercentage float64               `json:"completion_percentage"`
	Velocity             float64               `json:"velocity"`
	Milestones           []repo.MilestoneHours `json:"milestones"`
}

func (e Engine) ProjectStats(ctx context.Context, projectID string) (ProjectStats, error) {
	p, err := e.GetProject(ctx, projectID)
	if err != nil {
		return ProjectStats{}, err
	}
	counts, err := e.Repo.CountTasksByStatus(ctx, p.ID)
	if err != nil {
		return ProjectStats{}, err
	}
	hours, err := e.Repo.ProjectHours(ctx, p.ID)
	if err != nil {
		return ProjectStats{}, err
	}
	milestones, err := e.Repo.HoursByMilestone(ctx, p.ID)
	if err != nil {
		return ProjectStats{}, err
	}
	st := ProjectStats{
		ProjectID:            p.ID,
		ByStatus:             map[string]int{},
		TotalHours:           hours,
		CompletionPercentage: p.CompletionPercentage,
		Milestones:           milestones,
	}
	for status, n := range counts {
		st.ByStatus[string(status)] = n
		st.TotalTasks += n
	}
	st.DoneTasks = counts[domain.TaskDone]
	start, err := time.Parse(time.RFC3339, p.StartDate)
	if err != nil {
		start = e.now()
	}
	st.Velocity = Velocity(st.DoneTasks, e.now().Sub(start))
	return st, nil
}

// Velocity is tasks done per week of project life, counting at least one week,
// rounded to two decimals.
func Velocity(done int, age time.Duration) float64 {
	days := math.Floor(age.Hours() / 24)
	weeks := math.Max(1, days/7)
	return math.Round(float64(done)/weeks*100) / 100
}

type UserProfile struct {
	User           domain.User `json:"user"`
	AssignedTasks  int         `json:"assigned_tasks"`
	OpenTasks      int         `json:"open_tasks"`
	TasksDone      int         `json:"tasks_done"`
	TotalHours     float64     `json:"total_hours"`
	DecisionsMade  int         `json:"decisions_made"`
	LogsCreated    int         `json:"logs_created"`
	ProjectsJoined int         `json:"projects_joined"`
}

func (e Engine) UserProfile(ctx context.Context, userID string) (UserProfile, error) {
	u, err := e.GetUser(ctx, userID)
	if err != nil {
		return UserProfile{}, err
	}
	c, err := e.Repo.UserCounts(ctx, u.ID)
	if err != nil {
		return UserProfile{}, err
	}
	return UserProfile{
		User:           u,
		AssignedTasks:  c.AssignedTasks,
		OpenTasks:      c.OpenTasks,
		TasksDone:      c.CompletedTasks,
		TotalHours:     c.TotalHours,
		DecisionsMade:  c.Decisions,
		LogsCreated:    c.WorkLogs,
		ProjectsJoined: c.Projects,
	}, nil
}

func (e Engine) ListEvents(ctx context.Context, f repo.EventFilters) ([]domain.Event, error) {
	return e.Repo.LatestEvents(ctx, f)
}
