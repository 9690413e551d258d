package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/shubhamragade/workflow/internal/domain"
)

const projectColumns = `id,name,description,status,completion_percentage,start_date,target_date,created_at`

func (r Repo) InsertProject(ctx context.Context, tx *sqlx.Tx, p domain.Project) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO projects(`+projectColumns+`) VALUES (?,?,?,?,?,?,?,?)`,
		p.ID, p.Name, p.Description, p.Status, p.CompletionPercentage, p.StartDate, nullableStringPtr(p.TargetDate), p.CreatedAt)
	return err
}

func (r Repo) GetProject(ctx context.Context, tx *sqlx.Tx, id string) (domain.Project, error) {
	var p domain.Project
	err := r.get(ctx, tx, &p, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id)
	return p, err
}

func (r Repo) GetProjectByName(ctx context.Context, tx *sqlx.Tx, name string) (domain.Project, error) {
	var p domain.Project
	err := r.get(ctx, tx, &p, `SELECT `+projectColumns+` FROM projects WHERE name=?`, name)
	return p, err
}

func (r Repo) ListProjects(ctx context.Context) ([]domain.Project, error) {
	res := []domain.Project{}
	err := r.selectAll(ctx, nil, &res, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC, rowid DESC`)
	return res, err
}

func (r Repo) UpdateProjectStatus(ctx context.Context, tx *sqlx.Tx, id string, status domain.ProjectStatus) error {
	return r.execOne(ctx, tx, `UPDATE projects SET status=? WHERE id=?`, status, id)
}

// SetProjectProgress stores a derived completion percentage. Only the progress
// aggregator calls it.
func (r Repo) SetProjectProgress(ctx context.Context, tx *sqlx.Tx, id string, pct float64) error {
	return r.execOne(ctx, tx, `UPDATE projects SET completion_percentage=? WHERE id=?`, pct, id)
}

func (r Repo) InsertMember(ctx context.Context, tx *sqlx.Tx, m domain.ProjectMember) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO project_members(project_id,user_id,role_in_project,joined_at) VALUES (?,?,?,?)`,
		m.ProjectID, m.UserID, m.Role, m.JoinedAt)
	return err
}

func (r Repo) GetMember(ctx context.Context, tx *sqlx.Tx, projectID, userID string) (domain.ProjectMember, error) {
	var m domain.ProjectMember
	err := r.get(ctx, tx, &m, `SELECT project_id,user_id,role_in_project,joined_at FROM project_members WHERE project_id=? AND user_id=?`, projectID, userID)
	return m, err
}

func (r Repo) ListMembers(ctx context.Context, projectID string) ([]domain.ProjectMember, error) {
	res := []domain.ProjectMember{}
	err := r.selectAll(ctx, nil, &res, `SELECT project_id,user_id,role_in_project,joined_at FROM project_members WHERE project_id=? ORDER BY joined_at, rowid`, projectID)
	return res, err
}

const milestoneColumns = `id,project_id,title,description,target_date,status,created_at`

func (r Repo) InsertMilestone(ctx context.Context, tx *sqlx.Tx, m domain.Milestone) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO milestones(`+milestoneColumns+`) VALUES (?,?,?,?,?,?,?)`,
		m.ID, m.ProjectID, m.Title, m.Description, nullableStringPtr(m.TargetDate), m.Status, m.CreatedAt)
	return err
}

func (r Repo) GetMilestone(ctx context.Context, tx *sqlx.Tx, id string) (domain.Milestone, error) {
	var m domain.Milestone
	err := r.get(ctx, tx, &m, `SELECT `+milestoneColumns+` FROM milestones WHERE id=?`, id)
	return m, err
}

func (r Repo) ListMilestones(ctx context.Context, projectID string) ([]domain.Milestone, error) {
	res := []domain.Milestone{}
	err := r.selectAll(ctx, nil, &res, `SELECT `+milestoneColumns+` FROM milestones WHERE project_id=? ORDER BY created_at, rowid`, projectID)
	return res, err
}
