package domain

import (
	"fmt"
	"strings"
)

type TaskStatus string

const (
	TaskTodo       TaskStatus = "TODO"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskReview     TaskStatus = "REVIEW"
	TaskDone       TaskStatus = "DONE"
)

// taskTransitions lists the legal targets for each status. DONE is terminal.
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskTodo:       {TaskInProgress},
	TaskInProgress: {TaskReview, TaskTodo},
	TaskReview:     {TaskDone, TaskInProgress},
	TaskDone:       nil,
}

func ParseTaskStatus(s string) (TaskStatus, error) {
	switch st := TaskStatus(s); st {
	case TaskTodo, TaskInProgress, TaskReview, TaskDone:
		return st, nil
	}
	return "", InvalidInput(fmt.Sprintf("unknown task status %q", s))
}

// CanTransition reports whether moving from s to next is allowed. Staying in
// the same status is always allowed.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range taskTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Next returns the canonical forward step used by advance.
func (s TaskStatus) Next() (TaskStatus, bool) {
	switch s {
	case TaskTodo:
		return TaskInProgress, true
	case TaskInProgress:
		return TaskReview, true
	case TaskReview:
		return TaskDone, true
	}
	return "", false
}

// Weight is the contribution of a task in this status to project progress.
func (s TaskStatus) Weight() float64 {
	switch s {
	case TaskDone:
		return 1.0
	case TaskInProgress:
		return 0.5
	}
	return 0
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func ParsePriority(s string) (Priority, error) {
	switch p := Priority(s); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	}
	return "", InvalidInput(fmt.Sprintf("unknown priority %q", s))
}

type ImpactLevel string

const (
	ImpactLow    ImpactLevel = "Low"
	ImpactMedium ImpactLevel = "Medium"
	ImpactHigh   ImpactLevel = "High"
)

func ParseImpactLevel(s string) (ImpactLevel, error) {
	switch l := ImpactLevel(s); l {
	case ImpactLow, ImpactMedium, ImpactHigh:
		return l, nil
	}
	return "", InvalidInput(fmt.Sprintf("unknown impact level %q", s))
}

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "ACTIVE"
	ProjectCompleted ProjectStatus = "COMPLETED"
)

func ParseProjectStatus(s string) (ProjectStatus, error) {
	switch p := ProjectStatus(s); p {
	case ProjectActive, ProjectCompleted:
		return p, nil
	}
	return "", InvalidInput(fmt.Sprintf("unknown project status %q", s))
}

type MilestoneStatus string

const (
	MilestoneActive    MilestoneStatus = "ACTIVE"
	MilestoneCompleted MilestoneStatus = "COMPLETED"
)

type UserRole string

const (
	RoleAdmin  UserRole = "Admin"
	RoleMember UserRole = "Member"
)

func ParseUserRole(s string) (UserRole, error) {
	switch r := UserRole(s); r {
	case RoleAdmin, RoleMember:
		return r, nil
	}
	return "", InvalidInput(fmt.Sprintf("unknown user role %q", s))
}

type UserStatus string

const (
	UserActive   UserStatus = "Active"
	UserInactive UserStatus = "Inactive"
)

func ParseUserStatus(s string) (UserStatus, error) {
	switch st := UserStatus(s); st {
	case UserActive, UserInactive:
		return st, nil
	}
	return "", InvalidInput(fmt.Sprintf("unknown user status %q", s))
}

type MemberRole string

const (
	MemberLead        MemberRole = "Lead"
	MemberContributor MemberRole = "Contributor"
	MemberObserver    MemberRole = "Observer"
)

func ParseMemberRole(s string) (MemberRole, error) {
	switch r := MemberRole(s); r {
	case MemberLead, MemberContributor, MemberObserver:
		return r, nil
	}
	return "", InvalidInput(fmt.Sprintf("unknown member role %q", s))
}

type SubjectKind string

const (
	SubjectProject SubjectKind = "project"
	SubjectUser    SubjectKind = "user"
)

type ReportKind string

const (
	ReportDaily             ReportKind = "DAILY"
	ReportWeekly            ReportKind = "WEEKLY"
	ReportHandover          ReportKind = "HANDOVER"
	ReportContributor       ReportKind = "CONTRIBUTOR"
	ReportContributorImpact ReportKind = "CONTRIBUTOR_IMPACT"
)

// ParseReportKind accepts the upper-case name or its lower-case form
// ("daily", "contributor_impact").
func ParseReportKind(s string) (ReportKind, error) {
	k := ReportKind(strings.ToUpper(strings.TrimSpace(s)))
	switch k {
	case ReportDaily, ReportWeekly, ReportHandover, ReportContributor, ReportContributorImpact:
		return k, nil
	}
	return "", InvalidInput(fmt.Sprintf("unknown report kind %q", s))
}

// Subject returns which aggregate a report kind is about.
func (k ReportKind) Subject() SubjectKind {
	switch k {
	case ReportHandover, ReportContributor:
		return SubjectUser
	}
	return SubjectProject
}

type ReportStatus string

const (
	ReportSuccess ReportStatus = "SUCCESS"
	ReportFailed  ReportStatus = "FAILED"
	ReportPending ReportStatus = "PENDING"
)
