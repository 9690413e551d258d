package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shubhamragade/workflow/internal/app"
	"github.com/shubhamragade/workflow/internal/credential"
	"github.com/shubhamragade/workflow/internal/db"
)

var rootCmd = &cobra.Command{
	Use:   "wf",
	Short: "Workflow CLI",
	Long: `Workflow tracks project work items with an immutable decision ledger.
Core concepts:
- Tasks move TODO -> IN_PROGRESS -> REVIEW -> DONE; DONE needs at least one work log and is final.
- Every change bumps a version; pass --version to fail on concurrent edits.
- Work logs record hours and blockers; an insight on a log also records a decision.
- Decisions can be edited for 24 hours and are never deleted.
- Reports summarize recent activity and are cached by the content they were built from.
- Exiting members hand over open tasks before they are deactivated.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := db.EnsureWorkspace(viper.GetString("workspace"))
		return err
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("WORKFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	pf := rootCmd.PersistentFlags()
	pf.StringP("workspace", "w", ".", "workspace directory")
	pf.Bool("json", false, "output JSON")
	pf.String("actor-id", "", "user id performing the action")
	pf.String("provider", "", "report generator provider (stub|anthropic), overrides workflow.yml")
	_ = viper.BindPFlag("workspace", pf.Lookup("workspace"))
	_ = viper.BindPFlag("json", pf.Lookup("json"))
	_ = viper.BindPFlag("actor-id", pf.Lookup("actor-id"))
	_ = viper.BindPFlag("generator.provider", pf.Lookup("provider"))
	_ = viper.BindEnv("generator.api_key", "WORKFLOW_GENERATOR_API_KEY")
	_ = viper.BindEnv("jwt_secret", "WORKFLOW_JWT_SECRET")
}

func registerCommands() {
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(memberCmd())
	rootCmd.AddCommand(milestoneCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(decisionCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(exitCmd())
	rootCmd.AddCommand(credentialCmd())
	rootCmd.AddCommand(apiKeyCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
}

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	a, err := app.Open(ctx, app.Options{
		Workspace: viper.GetString("workspace"),
		Provider:  viper.GetString("generator.provider"),
		APIKey:    viper.GetString("generator.api_key"),
		Keyring:   &credential.Store{},
	})
	if err != nil {
		return err
	}
	runErr := fn(ctx, a)
	return errors.Join(runErr, a.Close(context.Background()))
}

// viperActor returns --actor-id, possibly empty. Bootstrap commands such as
// creating the first admin run without one.
func viperActor() string {
	return strings.TrimSpace(viper.GetString("actor-id"))
}

// actorID returns --actor-id, which every mutating command records as the
// author of its audit events.
func actorID() (string, error) {
	id := viperActor()
	if id == "" {
		return "", errors.New("--actor-id (or WORKFLOW_ACTOR_ID) required")
	}
	return id, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printOut renders JSON with --json and the table built by render otherwise.
// A nil render falls back to indented JSON.
func printOut(v any, render func(table.Writer)) error {
	if viper.GetBool("json") || render == nil {
		return printJSON(v)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	render(tw)
	tw.Render()
	return nil
}

func keyValues(pairs ...any) func(table.Writer) {
	return func(tw table.Writer) {
		for i := 0; i+1 < len(pairs); i += 2 {
			tw.AppendRow(table.Row{pairs[i], pairs[i+1]})
		}
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// changed returns a pointer to v when the named flag was set explicitly.
func changed[T any](cmd *cobra.Command, name string, v T) *T {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
