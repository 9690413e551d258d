package report

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shubhamragade/workflow/internal/domain"
	"github.com/shubhamragade/workflow/internal/repo"
)

const (
	handoverLogLimit      = 10
	handoverDecisionLimit = 5
)

// HashContext is the cache key for an assembled context.
func HashContext(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Assembled is the deterministic input handed to a generator.
type Assembled struct {
	Text   string
	Logs   int
	Empty  bool
	Risky  bool
	Window time.Duration
}

// RiskLine classifies a window by its count of blocker logs.
func RiskLine(blockers, threshold int, window time.Duration) (string, bool) {
	if blockers > threshold {
		days := int(window.Hours() / 24)
		if days < 1 {
			days = 1
		}
		return fmt.Sprintf("CRITICAL: %d blockers detected in the last %d days. Documentation indicates high risk.", blockers, days), true
	}
	return "Velocity stable. No significant blockers detected.", false
}

func (s *Service) assemble(ctx context.Context, kind domain.ReportKind, subjectID string) (Assembled, error) {
	window := s.Config.Lookback(kind)
	since := s.now().Add(-window).Format(time.RFC3339)
	switch kind.Subject() {
	case domain.SubjectUser:
		u, err := s.Repo.GetUser(ctx, nil, subjectID)
		if err != nil {
			return Assembled{}, notFound(err, "user", subjectID)
		}
		if kind == domain.ReportHandover {
			return s.handoverContext(ctx, u, since, window)
		}
		return s.contributorContext(ctx, u, since, window)
	default:
		p, err := s.Repo.GetProject(ctx, nil, subjectID)
		if err != nil {
			return Assembled{}, notFound(err, "project", subjectID)
		}
		return s.projectContext(ctx, p, since, window)
	}
}

func (s *Service) projectContext(ctx context.Context, p domain.Project, since string, window time.Duration) (Assembled, error) {
	logs, err := s.Repo.ListWorkLogs(ctx, nil, repo.WorkLogFilters{ProjectID: p.ID, Since: since})
	if err != nil {
		return Assembled{}, err
	}
	decisions, err := s.Repo.ListDecisions(ctx, nil, repo.DecisionFilters{ProjectID: p.ID, Since: since})
	if err != nil {
		return Assembled{}, err
	}
	a := Assembled{Logs: len(logs), Window: window}
	if len(logs) == 0 && len(decisions) == 0 {
		a.Empty = true
		return a, nil
	}
	blockers, err := s.Repo.CountWorkLogsMatching(ctx, nil, repo.WorkLogFilters{ProjectID: p.ID, Since: since, WithBlockers: true})
	if err != nil {
		return Assembled{}, err
	}
	risk, risky := RiskLine(blockers, s.Config.Reports.Risk.BlockerThreshold, window)
	a.Risky = risky

	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\n", p.Name)
	b.WriteString("Recent Logs:\n")
	for _, l := range logs {
		fmt.Fprintf(&b, "- %s (%sh)\n", l.Content, formatHours(l.HoursSpent))
	}
	b.WriteString("Recent Decisions:\n")
	for _, d := range decisions {
		fmt.Fprintf(&b, "- %s: %s\n", d.Title, d.Reasoning)
	}
	fmt.Fprintf(&b, "Internal Risk Detection: %s", risk)
	a.Text = b.String()
	return a, nil
}

func (s *Service) handoverContext(ctx context.Context, u domain.User, since string, window time.Duration) (Assembled, error) {
	logs, err := s.Repo.ListWorkLogs(ctx, nil, repo.WorkLogFilters{AuthorID: u.ID, Since: since, Newest: true, Limit: handoverLogLimit})
	if err != nil {
		return Assembled{}, err
	}
	decisions, err := s.Repo.ListDecisions(ctx, nil, repo.DecisionFilters{AuthorID: u.ID, Since: since, Newest: true, Limit: handoverDecisionLimit})
	if err != nil {
		return Assembled{}, err
	}
	open, err := s.Repo.ListTasks(ctx, nil, repo.TaskFilters{AssigneeID: u.ID, OpenOnly: true})
	if err != nil {
		return Assembled{}, err
	}
	a := Assembled{Logs: len(logs), Window: window}
	if len(logs) == 0 && len(decisions) == 0 && len(open) == 0 {
		a.Empty = true
		return a, nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Member: %s\n", u.Name)
	b.WriteString("Recent Activity:\n")
	for _, l := range logs {
		fmt.Fprintf(&b, "- %s\n", l.Content)
	}
	b.WriteString("Decisions Made:\n")
	for _, d := range decisions {
		fmt.Fprintf(&b, "- %s: %s\n", d.Title, d.Explanation)
	}
	b.WriteString("Pending Tasks:")
	for _, t := range open {
		fmt.Fprintf(&b, "\n- %s: %s", t.Title, t.Description)
	}
	a.Text = b.String()
	return a, nil
}

func (s *Service) contributorContext(ctx context.Context, u domain.User, since string, window time.Duration) (Assembled, error) {
	logs, err := s.Repo.ListWorkLogs(ctx, nil, repo.WorkLogFilters{AuthorID: u.ID, Since: since})
	if err != nil {
		return Assembled{}, err
	}
	decisions, err := s.Repo.ListDecisions(ctx, nil, repo.DecisionFilters{AuthorID: u.ID, Since: since})
	if err != nil {
		return Assembled{}, err
	}
	a := Assembled{Logs: len(logs), Window: window}
	if len(logs) == 0 && len(decisions) == 0 {
		a.Empty = true
		return a, nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Contributor: %s\n", u.Name)
	b.WriteString("History of Work:\n")
	for _, l := range logs {
		fmt.Fprintf(&b, "- %s\n", l.Content)
	}
	b.WriteString("Decisions Created:")
	for _, d := range decisions {
		fmt.Fprintf(&b, "\n- %s", d.Title)
	}
	a.Text = b.String()
	return a, nil
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}
