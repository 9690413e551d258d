package main

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/shubhamragade/workflow/internal/app"
	"github.com/shubhamragade/workflow/internal/domain"
	"github.com/shubhamragade/workflow/internal/engine"
	"github.com/shubhamragade/workflow/internal/repo"
)

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "task", Short: "Manage tasks"}
	cmd.AddCommand(taskCreateCmd(), taskListCmd(), taskShowCmd(), taskUpdateCmd(), taskAdvanceCmd())
	return cmd
}

func renderTasks(tasks []domain.Task) func(table.Writer) {
	return func(tw table.Writer) {
		tw.AppendHeader(table.Row{"ID", "Title", "Status", "Priority", "Assignee", "Milestone", "Version"})
		for _, t := range tasks {
			tw.AppendRow(table.Row{t.ID, truncate(t.Title, 40), t.Status, t.Priority, deref(t.AssigneeID), deref(t.MilestoneID), t.Version})
		}
	}
}

func taskCreateCmd() *cobra.Command {
	var opts engine.TaskCreateOptions
	var priority string
	cmd := &cobra.Command{
		Use:   "create PROJECT_ID",
		Short: "Create a task in TODO",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			opts.ProjectID = args[0]
			opts.Priority = domain.Priority(priority)
			opts.ActorID = actor
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := a.Engine.CreateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printOut(t, renderTasks([]domain.Task{t}))
			})
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "task title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.AssigneeID, "assignee-id", "", "assignee user id")
	cmd.Flags().StringVar(&opts.MilestoneID, "milestone-id", "", "milestone id")
	cmd.Flags().StringVar(&priority, "priority", "", "Low, Medium or High")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskListCmd() *cobra.Command {
	var f repo.TaskFilters
	var status string
	cmd := &cobra.Command{
		Use:   "list PROJECT_ID",
		Short: "List tasks, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.ProjectID = args[0]
			if status != "" {
				s, err := domain.ParseTaskStatus(status)
				if err != nil {
					return err
				}
				f.Status = s
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				tasks, err := a.Engine.ListTasks(ctx, f)
				if err != nil {
					return err
				}
				return printOut(tasks, renderTasks(tasks))
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.AssigneeID, "assignee-id", "", "assignee filter")
	cmd.Flags().StringVar(&f.MilestoneID, "milestone-id", "", "milestone filter")
	cmd.Flags().BoolVar(&f.OpenOnly, "open", false, "only tasks that are not DONE")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "maximum rows")
	return cmd
}

func taskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show TASK_ID",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := a.Engine.GetTask(ctx, args[0])
				if err != nil {
					return err
				}
				return printOut(t, renderTasks([]domain.Task{t}))
			})
		},
	}
}

func taskUpdateCmd() *cobra.Command {
	var title, desc, priority, assignee, milestone, status string
	var version int64
	cmd := &cobra.Command{
		Use:   "update TASK_ID",
		Short: "Update task fields or status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			u := engine.TaskUpdate{
				Title:           changed(cmd, "title", title),
				Description:     changed(cmd, "description", desc),
				AssigneeID:      changed(cmd, "assignee-id", assignee),
				MilestoneID:     changed(cmd, "milestone-id", milestone),
				ExpectedVersion: changed(cmd, "version", version),
				ActorID:         actor,
			}
			if cmd.Flags().Changed("priority") {
				p, err := domain.ParsePriority(priority)
				if err != nil {
					return err
				}
				u.Priority = &p
			}
			if cmd.Flags().Changed("status") {
				s, err := domain.ParseTaskStatus(status)
				if err != nil {
					return err
				}
				u.Status = &s
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := a.Engine.UpdateTask(ctx, args[0], u)
				if err != nil {
					return err
				}
				return printOut(t, renderTasks([]domain.Task{t}))
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&desc, "description", "", "new description")
	cmd.Flags().StringVar(&priority, "priority", "", "Low, Medium or High")
	cmd.Flags().StringVar(&assignee, "assignee-id", "", "new assignee; empty unassigns")
	cmd.Flags().StringVar(&milestone, "milestone-id", "", "new milestone; empty clears")
	cmd.Flags().StringVar(&status, "status", "", "TODO, IN_PROGRESS, REVIEW or DONE")
	cmd.Flags().Int64Var(&version, "version", 0, "expected current version")
	return cmd
}

func taskAdvanceCmd() *cobra.Command {
	var version int64
	cmd := &cobra.Command{
		Use:   "advance TASK_ID",
		Short: "Move a task to its next status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := a.Engine.AdvanceTask(ctx, args[0], changed(cmd, "version", version), actor)
				if err != nil {
					return err
				}
				return printOut(t, renderTasks([]domain.Task{t}))
			})
		},
	}
	cmd.Flags().Int64Var(&version, "version", 0, "expected current version")
	return cmd
}

func logCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "log", Short: "Record and list work logs"}
	cmd.AddCommand(logAddCmd(), logListCmd())
	return cmd
}

func renderLogs(items []domain.WorkLog) func(table.Writer) {
	return func(tw table.Writer) {
		tw.AppendHeader(table.Row{"ID", "Task", "Author", "Hours", "Content", "Blockers", "At"})
		for _, l := range items {
			tw.AppendRow(table.Row{l.ID, l.TaskID, l.AuthorID, fmt.Sprintf("%.2f", l.HoursSpent), truncate(l.Content, 40), truncate(l.Blockers, 30), l.CreatedAt})
		}
	}
}

func logAddCmd() *cobra.Command {
	var opts engine.WorkLogOptions
	cmd := &cobra.Command{
		Use:   "add TASK_ID",
		Short: "Log work on a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			opts.TaskID = args[0]
			opts.AuthorID = actor
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				res, err := a.Engine.RecordWorkLog(ctx, opts)
				if err != nil {
					return err
				}
				return printOut(res, func(tw table.Writer) {
					renderLogs([]domain.WorkLog{res.Log})(tw)
					tw.AppendFooter(table.Row{"", "", "", "", "", "Project done %", fmt.Sprintf("%.2f", res.Progress)})
					if res.Decision != nil {
						tw.AppendFooter(table.Row{"", "", "", "", "", "Decision", res.Decision.ID})
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&opts.Content, "content", "", "what was done")
	cmd.Flags().Float64Var(&opts.HoursSpent, "hours", 0, "hours spent (> 0)")
	cmd.Flags().StringVar(&opts.Blockers, "blockers", "", "blockers hit")
	cmd.Flags().StringVar(&opts.Insight, "insight", "", "insight; also recorded as a decision")
	_ = cmd.MarkFlagRequired("hours")
	return cmd
}

func logListCmd() *cobra.Command {
	var f repo.WorkLogFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List work logs by task, project or author",
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.TaskID == "" && f.ProjectID == "" && f.AuthorID == "" {
				return fmt.Errorf("one of --task-id, --project-id or --author-id required")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Engine.ListWorkLogs(ctx, f)
				if err != nil {
					return err
				}
				return printOut(items, renderLogs(items))
			})
		},
	}
	cmd.Flags().StringVar(&f.TaskID, "task-id", "", "task filter")
	cmd.Flags().StringVar(&f.ProjectID, "project-id", "", "project filter")
	cmd.Flags().StringVar(&f.AuthorID, "author-id", "", "author filter")
	cmd.Flags().StringVar(&f.Since, "since", "", "RFC3339 lower bound")
	cmd.Flags().BoolVar(&f.WithBlockers, "blockers", false, "only logs with blockers")
	cmd.Flags().BoolVar(&f.Newest, "newest", false, "newest first")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "maximum rows")
	return cmd
}

func decisionCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "decision", Short: "Record and browse the decision ledger"}
	cmd.AddCommand(decisionCreateCmd(), decisionListCmd(), decisionShowCmd(), decisionUpdateCmd(), decisionDeleteCmd())
	return cmd
}

func renderDecisions(items []domain.Decision) func(table.Writer) {
	return func(tw table.Writer) {
		tw.AppendHeader(table.Row{"ID", "Title", "Impact", "Author", "Task", "Version", "Created"})
		for _, d := range items {
			tw.AppendRow(table.Row{d.ID, truncate(d.Title, 40), d.ImpactLevel, d.AuthorID, deref(d.TaskID), d.Version, d.CreatedAt})
		}
	}
}

func decisionCreateCmd() *cobra.Command {
	var opts engine.DecisionCreateOptions
	var impact string
	cmd := &cobra.Command{
		Use:   "create PROJECT_ID",
		Short: "Record a decision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			opts.ProjectID = args[0]
			opts.AuthorID = actor
			opts.ImpactLevel = domain.ImpactLevel(impact)
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				d, err := a.Engine.CreateDecision(ctx, opts)
				if err != nil {
					return err
				}
				return printOut(d, renderDecisions([]domain.Decision{d}))
			})
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "decision title")
	cmd.Flags().StringVar(&opts.Explanation, "explanation", "", "what was decided")
	cmd.Flags().StringVar(&opts.Reasoning, "reasoning", "", "why")
	cmd.Flags().StringVar(&opts.TaskID, "task-id", "", "related task")
	cmd.Flags().StringVar(&impact, "impact", "", "Low, Medium or High")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func decisionListCmd() *cobra.Command {
	var f repo.DecisionFilters
	cmd := &cobra.Command{
		Use:   "list PROJECT_ID",
		Short: "List decisions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.ProjectID = args[0]
			f.Newest = true
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Engine.ListDecisions(ctx, f)
				if err != nil {
					return err
				}
				return printOut(items, renderDecisions(items))
			})
		},
	}
	cmd.Flags().StringVar(&f.TaskID, "task-id", "", "task filter")
	cmd.Flags().StringVar(&f.AuthorID, "author-id", "", "author filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "maximum rows")
	return cmd
}

func decisionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show DECISION_ID",
		Short: "Show a decision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				d, err := a.Engine.GetDecision(ctx, args[0])
				if err != nil {
					return err
				}
				return printOut(d, keyValues(
					"ID", d.ID,
					"Title", d.Title,
					"Explanation", d.Explanation,
					"Reasoning", d.Reasoning,
					"Impact", d.ImpactLevel,
					"Author", d.AuthorID,
					"Version", d.Version,
					"Created", d.CreatedAt,
				))
			})
		},
	}
}

func decisionUpdateCmd() *cobra.Command {
	var title, explanation, reasoning, impact string
	var version int64
	cmd := &cobra.Command{
		Use:   "update DECISION_ID",
		Short: "Edit a decision within 24 hours of creation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			u := engine.DecisionUpdate{
				Title:           changed(cmd, "title", title),
				Explanation:     changed(cmd, "explanation", explanation),
				Reasoning:       changed(cmd, "reasoning", reasoning),
				ExpectedVersion: changed(cmd, "version", version),
				ActorID:         actor,
			}
			if cmd.Flags().Changed("impact") {
				lvl, err := domain.ParseImpactLevel(impact)
				if err != nil {
					return err
				}
				u.ImpactLevel = &lvl
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				d, err := a.Engine.UpdateDecision(ctx, args[0], u)
				if err != nil {
					return err
				}
				return printOut(d, renderDecisions([]domain.Decision{d}))
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&explanation, "explanation", "", "new explanation")
	cmd.Flags().StringVar(&reasoning, "reasoning", "", "new reasoning")
	cmd.Flags().StringVar(&impact, "impact", "", "Low, Medium or High")
	cmd.Flags().Int64Var(&version, "version", 0, "expected current version")
	return cmd
}

func decisionDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "delete DECISION_ID",
		Short:  "Always refused: decisions are permanent",
		Args:   cobra.ExactArgs(1),
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return a.Engine.DeleteDecision(ctx, args[0])
			})
		},
	}
}
