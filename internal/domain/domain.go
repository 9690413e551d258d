package domain

type User struct {
	ID        string     `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	Email     string     `json:"email" db:"email"`
	Role      UserRole   `json:"role" db:"role" enum:"Admin,Member"`
	Status    UserStatus `json:"status" db:"status" enum:"Active,Inactive"`
	CreatedAt string     `json:"created_at" db:"created_at" format:"date-time"`
}

type Project struct {
	ID                   string        `json:"id" db:"id"`
	Name                 string        `json:"name" db:"name"`
	Description          string        `json:"description,omitempty" db:"description"`
	Status               ProjectStatus `json:"status" db:"status" enum:"ACTIVE,COMPLETED"`
	CompletionPercentage float64       `json:"completion_percentage" db:"completion_percentage"`
	StartDate            string        `json:"start_date" db:"start_date" format:"date-time"`
	TargetDate           *string       `json:"target_date,omitempty" db:"target_date" format:"date-time"`
	CreatedAt            string        `json:"created_at" db:"created_at" format:"date-time"`
}

type ProjectMember struct {
	ProjectID string     `json:"project_id" db:"project_id"`
	UserID    string     `json:"user_id" db:"user_id"`
	Role      MemberRole `json:"role_in_project" db:"role_in_project" enum:"Lead,Contributor,Observer"`
	JoinedAt  string     `json:"joined_at" db:"joined_at" format:"date-time"`
}

type Milestone struct {
	ID          string          `json:"id" db:"id"`
	ProjectID   string          `json:"project_id" db:"project_id"`
	Title       string          `json:"title" db:"title"`
	Description string          `json:"description,omitempty" db:"description"`
	TargetDate  *string         `json:"target_date,omitempty" db:"target_date" format:"date-time"`
	Status      MilestoneStatus `json:"status" db:"status" enum:"ACTIVE,COMPLETED"`
	CreatedAt   string          `json:"created_at" db:"created_at" format:"date-time"`
}

// Task is a unit of work. Version starts at 1 and increases by one on every
// committed mutation.
type Task struct {
	ID          string     `json:"id" db:"id"`
	ProjectID   string     `json:"project_id" db:"project_id"`
	MilestoneID *string    `json:"milestone_id,omitempty" db:"milestone_id"`
	AssigneeID  *string    `json:"assignee_id,omitempty" db:"assignee_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description,omitempty" db:"description"`
	Priority    Priority   `json:"priority" db:"priority" enum:"Low,Medium,High"`
	Status      TaskStatus `json:"status" db:"status" enum:"TODO,IN_PROGRESS,REVIEW,DONE"`
	Version     int64      `json:"version" db:"version"`
	CreatedAt   string     `json:"created_at" db:"created_at" format:"date-time"`
	UpdatedAt   string     `json:"updated_at" db:"updated_at" format:"date-time"`
	CompletedAt *string    `json:"completed_at,omitempty" db:"completed_at" format:"date-time"`
}

type WorkLog struct {
	ID         string  `json:"id" db:"id"`
	TaskID     string  `json:"task_id" db:"task_id"`
	AuthorID   string  `json:"author_id" db:"author_id"`
	Content    string  `json:"content" db:"content"`
	Blockers   string  `json:"blockers,omitempty" db:"blockers"`
	HoursSpent float64 `json:"hours_spent" db:"hours_spent"`
	CreatedAt  string  `json:"created_at" db:"created_at" format:"date-time"`
}

type Decision struct {
	ID          string      `json:"id" db:"id"`
	ProjectID   string      `json:"project_id" db:"project_id"`
	TaskID      *string     `json:"task_id,omitempty" db:"task_id"`
	AuthorID    string      `json:"author_id" db:"author_id"`
	Title       string      `json:"title" db:"title"`
	Explanation string      `json:"explanation" db:"explanation"`
	Reasoning   string      `json:"reasoning" db:"reasoning"`
	ImpactLevel ImpactLevel `json:"impact_level" db:"impact_level" enum:"Low,Medium,High"`
	Version     int64       `json:"version" db:"version"`
	CreatedAt   string      `json:"created_at" db:"created_at" format:"date-time"`
	UpdatedAt   string      `json:"updated_at" db:"updated_at" format:"date-time"`
}

// ReportArtifact is one generation attempt for a (subject, kind) pair. Rows are
// never updated; a new attempt always inserts a new row.
type ReportArtifact struct {
	ID          string       `json:"id" db:"id"`
	SubjectKind SubjectKind  `json:"subject_kind" db:"subject_kind" enum:"project,user"`
	SubjectID   string       `json:"subject_id" db:"subject_id"`
	Kind        ReportKind   `json:"kind" db:"kind" enum:"DAILY,WEEKLY,HANDOVER,CONTRIBUTOR,CONTRIBUTOR_IMPACT"`
	Content     string       `json:"content" db:"content"`
	Status      ReportStatus `json:"status" db:"status" enum:"SUCCESS,FAILED,PENDING"`
	Model       string       `json:"model,omitempty" db:"model"`
	ContextHash string       `json:"context_hash" db:"context_hash"`
	ErrorDetail *string      `json:"error_detail,omitempty" db:"error_detail"`
	GeneratedAt string       `json:"generated_at" db:"generated_at" format:"date-time"`
}

type Event struct {
	ID          int64  `json:"id" db:"id"`
	TS          string `json:"ts" db:"ts" format:"date-time"`
	Type        string `json:"type" db:"type"`
	Description string `json:"description" db:"description"`
	ProjectID   string `json:"project_id,omitempty" db:"project_id"`
	EntityKind  string `json:"entity_kind" db:"entity_kind"`
	EntityID    string `json:"entity_id,omitempty" db:"entity_id"`
	ActorID     string `json:"actor_id,omitempty" db:"actor_id"`
	Payload     string `json:"payload_json" db:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id" db:"id"`
	UserID    string `json:"user_id" db:"user_id"`
	Name      string `json:"name,omitempty" db:"name"`
	KeyHash   string `json:"key_hash" db:"key_hash"`
	CreatedAt string `json:"created_at" db:"created_at" format:"date-time"`
}
