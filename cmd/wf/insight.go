package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shubhamragade/workflow/internal/app"
	"github.com/shubhamragade/workflow/internal/domain"
	"github.com/shubhamragade/workflow/internal/engine"
	"github.com/shubhamragade/workflow/internal/repo"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "report", Short: "Generate or read cached activity summaries"}
	cmd.AddCommand(reportGetCmd(), reportHistoryCmd())
	return cmd
}

func reportGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get KIND SUBJECT_ID",
		Short: "Get the summary for a project (daily|weekly|contributor_impact) or user (handover|contributor)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseReportKind(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				r, err := a.Reports.GetOrGenerate(ctx, kind, args[1], viperActor())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(r)
				}
				fmt.Printf("%s for %s %s [%s, %s]\n\n%s\n", r.Kind, r.SubjectKind, r.SubjectID, r.Label, r.Status, r.Text)
				if r.ErrorDetail != "" {
					fmt.Fprintf(os.Stderr, "generation error: %s\n", r.ErrorDetail)
				}
				return nil
			})
		},
	}
}

func reportHistoryCmd() *cobra.Command {
	var kind string
	var limit int
	cmd := &cobra.Command{
		Use:   "history project|user SUBJECT_ID",
		Short: "List stored report attempts, newest first",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			subject := domain.SubjectKind(args[0])
			if subject != domain.SubjectProject && subject != domain.SubjectUser {
				return fmt.Errorf("subject must be project or user, got %q", args[0])
			}
			var k domain.ReportKind
			if kind != "" {
				parsed, err := domain.ParseReportKind(kind)
				if err != nil {
					return err
				}
				k = parsed
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Reports.History(ctx, subject, args[1], k, limit)
				if err != nil {
					return err
				}
				return printOut(items, func(tw table.Writer) {
					tw.AppendHeader(table.Row{"ID", "Kind", "Status", "Model", "Hash", "Generated"})
					for _, art := range items {
						tw.AppendRow(table.Row{art.ID, art.Kind, art.Status, art.Model, truncate(art.ContextHash, 13), art.GeneratedAt})
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "report kind filter")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [PROJECT_ID]",
		Short: "Global totals, or progress, hours and velocity for one project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if len(args) == 0 {
					st, err := a.Engine.GlobalStats(ctx)
					if err != nil {
						return err
					}
					return printOut(st, keyValues(
						"Projects", st.Projects,
						"Tasks", st.TotalTasks,
						"Done", st.DoneTasks,
						"Hours", fmt.Sprintf("%.2f", st.TotalHours),
						"Work logs", st.WorkLogs,
						"Decisions", st.Decisions,
						"Active contributors", st.ActiveContributors,
					))
				}
				st, err := a.Engine.ProjectStats(ctx, args[0])
				if err != nil {
					return err
				}
				return printOut(st, func(tw table.Writer) {
					keyValues(
						"Tasks", st.TotalTasks,
						"Done", st.DoneTasks,
						"Done %", fmt.Sprintf("%.2f", st.CompletionPercentage),
						"Hours", fmt.Sprintf("%.2f", st.TotalHours),
						"Velocity (tasks/week)", fmt.Sprintf("%.2f", st.Velocity),
					)(tw)
					for _, s := range []domain.TaskStatus{domain.TaskTodo, domain.TaskInProgress, domain.TaskReview, domain.TaskDone} {
						tw.AppendRow(table.Row{string(s), st.ByStatus[string(s)]})
					}
					for _, m := range st.Milestones {
						tw.AppendRow(table.Row{"Milestone " + m.Title, fmt.Sprintf("%.2fh", m.Hours)})
					}
				})
			})
		},
	}
}

func eventsCmd() *cobra.Command {
	var f repo.EventFilters
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the newest audit events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Engine.ListEvents(ctx, f)
				if err != nil {
					return err
				}
				return printOut(items, func(tw table.Writer) {
					tw.AppendHeader(table.Row{"ID", "At", "Type", "Entity", "Actor", "Description"})
					for _, e := range items {
						tw.AppendRow(table.Row{e.ID, e.TS, e.Type, e.EntityKind + ":" + e.EntityID, e.ActorID, truncate(e.Description, 60)})
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&f.ProjectID, "project-id", "", "project filter")
	cmd.Flags().StringVar(&f.Type, "type", "", "event type filter")
	cmd.Flags().StringVar(&f.EntityKind, "entity-kind", "", "entity kind filter")
	cmd.Flags().StringVar(&f.EntityID, "entity-id", "", "entity id filter")
	cmd.Flags().StringVar(&f.ActorID, "by", "", "actor filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 20, "maximum rows")
	return cmd
}

func exitCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "exit", Short: "Hand over a leaving member's work"}
	cmd.AddCommand(exitPreviewCmd(), exitConfirmCmd())
	return cmd
}

func exitPreviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview USER_ID",
		Short: "List open tasks and the handover summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				p, err := a.InitiateExit(ctx, args[0], viperActor())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(p)
				}
				fmt.Printf("%s has %d open task(s); can exit immediately: %t\n", p.User.Name, p.OpenTaskCount, p.CanExitImmediately)
				if len(p.OpenTasks) > 0 {
					_ = printOut(p.OpenTasks, renderTasks(p.OpenTasks))
				}
				fmt.Printf("\n%s\n", p.Handover.Text)
				return nil
			})
		},
	}
}

func exitConfirmCmd() *cobra.Command {
	var reassign map[string]string
	var handover string
	cmd := &cobra.Command{
		Use:   "confirm USER_ID",
		Short: "Reassign open tasks, store the handover and deactivate the user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				res, err := a.Engine.ConfirmExit(ctx, args[0], engine.ExitConfirmOptions{
					Reassignments: reassign,
					FinalHandover: handover,
					ActorID:       actor,
				})
				if err != nil {
					return err
				}
				return printOut(res, renderTasks(res.Reassigned))
			})
		},
	}
	cmd.Flags().StringToStringVar(&reassign, "reassign", nil, "TASK_ID=USER_ID pairs covering every open task")
	cmd.Flags().StringVar(&handover, "handover", "", "final handover notes to store")
	return cmd
}
