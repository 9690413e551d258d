package main

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/shubhamragade/workflow/internal/app"
	"github.com/shubhamragade/workflow/internal/domain"
	"github.com/shubhamragade/workflow/internal/engine"
)

func userCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage users"}
	cmd.AddCommand(userCreateCmd(), userListCmd(), userShowCmd(), userStatusCmd(), userProfileCmd())
	return cmd
}

func renderUsers(users []domain.User) func(table.Writer) {
	return func(tw table.Writer) {
		tw.AppendHeader(table.Row{"ID", "Name", "Email", "Role", "Status"})
		for _, u := range users {
			tw.AppendRow(table.Row{u.ID, u.Name, u.Email, u.Role, u.Status})
		}
	}
}

func userCreateCmd() *cobra.Command {
	var name, email, role string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user (the first admin is created this way)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				u, err := a.Engine.CreateUser(ctx, engine.UserCreateOptions{
					Name:    name,
					Email:   email,
					Role:    domain.UserRole(role),
					ActorID: viperActor(),
				})
				if err != nil {
					return err
				}
				return printOut(u, renderUsers([]domain.User{u}))
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&role, "role", "Member", "Admin or Member")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func userListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				var st domain.UserStatus
				if status != "" {
					s, err := domain.ParseUserStatus(status)
					if err != nil {
						return err
					}
					st = s
				}
				users, err := a.Engine.ListUsers(ctx, st)
				if err != nil {
					return err
				}
				return printOut(users, renderUsers(users))
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Active or Inactive")
	return cmd
}

func userShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show USER_ID",
		Short: "Show a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				u, err := a.Engine.GetUser(ctx, args[0])
				if err != nil {
					return err
				}
				return printOut(u, renderUsers([]domain.User{u}))
			})
		},
	}
}

func userStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status USER_ID Active|Inactive",
		Short: "Activate or deactivate a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			status, err := domain.ParseUserStatus(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				u, err := a.Engine.SetUserStatus(ctx, args[0], status, actor)
				if err != nil {
					return err
				}
				return printOut(u, renderUsers([]domain.User{u}))
			})
		},
	}
}

func userProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile USER_ID",
		Short: "Show a user's contribution totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				p, err := a.Engine.UserProfile(ctx, args[0])
				if err != nil {
					return err
				}
				return printOut(p, keyValues(
					"User", p.User.Name,
					"Assigned tasks", p.AssignedTasks,
					"Open tasks", p.OpenTasks,
					"Tasks done", p.TasksDone,
					"Hours", fmt.Sprintf("%.2f", p.TotalHours),
					"Decisions", p.DecisionsMade,
					"Work logs", p.LogsCreated,
					"Projects", p.ProjectsJoined,
				))
			})
		},
	}
}

func projectCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "project", Short: "Manage projects"}
	cmd.AddCommand(projectCreateCmd(), projectListCmd(), projectShowCmd(), projectStatusCmd())
	return cmd
}

func renderProjects(items []domain.Project) func(table.Writer) {
	return func(tw table.Writer) {
		tw.AppendHeader(table.Row{"ID", "Name", "Status", "Done %", "Target"})
		for _, p := range items {
			tw.AppendRow(table.Row{p.ID, p.Name, p.Status, fmt.Sprintf("%.2f", p.CompletionPercentage), deref(p.TargetDate)})
		}
	}
}

func projectCreateCmd() *cobra.Command {
	var name, desc, target string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project; the actor becomes its Lead",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				p, err := a.Engine.CreateProject(ctx, engine.ProjectCreateOptions{
					Name:        name,
					Description: desc,
					TargetDate:  target,
					CreatorID:   viperActor(),
				})
				if err != nil {
					return err
				}
				return printOut(p, renderProjects([]domain.Project{p}))
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&target, "target-date", "", "target date (YYYY-MM-DD or RFC3339)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func projectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Engine.ListProjects(ctx)
				if err != nil {
					return err
				}
				return printOut(items, renderProjects(items))
			})
		},
	}
}

func projectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show PROJECT_ID",
		Short: "Show a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				p, err := a.Engine.GetProject(ctx, args[0])
				if err != nil {
					return err
				}
				return printOut(p, renderProjects([]domain.Project{p}))
			})
		},
	}
}

func projectStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status PROJECT_ID ACTIVE|COMPLETED",
		Short: "Set a project's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			status, err := domain.ParseProjectStatus(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				p, err := a.Engine.SetProjectStatus(ctx, args[0], status, actor)
				if err != nil {
					return err
				}
				return printOut(p, renderProjects([]domain.Project{p}))
			})
		},
	}
}

func memberCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "member", Short: "Manage project membership"}
	cmd.AddCommand(memberAddCmd(), memberListCmd())
	return cmd
}

func renderMembers(items []domain.ProjectMember) func(table.Writer) {
	return func(tw table.Writer) {
		tw.AppendHeader(table.Row{"User", "Role", "Joined"})
		for _, m := range items {
			tw.AppendRow(table.Row{m.UserID, m.Role, m.JoinedAt})
		}
	}
}

func memberAddCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "add PROJECT_ID USER_ID",
		Short: "Add a user to a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := domain.ParseMemberRole(role)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				m, err := a.Engine.AddMember(ctx, args[0], args[1], r, viperActor())
				if err != nil {
					return err
				}
				return printOut(m, renderMembers([]domain.ProjectMember{m}))
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", string(domain.MemberContributor), "Lead, Contributor or Observer")
	return cmd
}

func memberListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list PROJECT_ID",
		Short: "List project members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Engine.ListMembers(ctx, args[0])
				if err != nil {
					return err
				}
				return printOut(items, renderMembers(items))
			})
		},
	}
}

func milestoneCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "milestone", Short: "Manage milestones"}
	cmd.AddCommand(milestoneCreateCmd(), milestoneListCmd())
	return cmd
}

func renderMilestones(items []domain.Milestone) func(table.Writer) {
	return func(tw table.Writer) {
		tw.AppendHeader(table.Row{"ID", "Title", "Status", "Target"})
		for _, m := range items {
			tw.AppendRow(table.Row{m.ID, m.Title, m.Status, deref(m.TargetDate)})
		}
	}
}

func milestoneCreateCmd() *cobra.Command {
	var title, desc, target string
	cmd := &cobra.Command{
		Use:   "create PROJECT_ID",
		Short: "Create a milestone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				m, err := a.Engine.CreateMilestone(ctx, engine.MilestoneCreateOptions{
					ProjectID:   args[0],
					Title:       title,
					Description: desc,
					TargetDate:  target,
					ActorID:     viperActor(),
				})
				if err != nil {
					return err
				}
				return printOut(m, renderMilestones([]domain.Milestone{m}))
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "milestone title")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&target, "target-date", "", "target date")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func milestoneListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list PROJECT_ID",
		Short: "List milestones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Engine.ListMilestones(ctx, args[0])
				if err != nil {
					return err
				}
				return printOut(items, renderMilestones(items))
			})
		},
	}
}
