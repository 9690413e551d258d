package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/shubhamragade/workflow/internal/app"
	"github.com/shubhamragade/workflow/internal/config"
	"github.com/shubhamragade/workflow/internal/credential"
	"github.com/shubhamragade/workflow/internal/domain"
	"github.com/shubhamragade/workflow/internal/repo"
	"github.com/shubhamragade/workflow/internal/server"
)

func credentialCmd() *cobra.Command {
	var key string
	cmd := &cobra.Command{Use: "credential", Short: "Store secrets in the OS keyring"}
	cmd.PersistentFlags().StringVar(&key, "key", credential.GeneratorAPIKey, "credential name")
	store := credential.Store{}
	cmd.AddCommand(&cobra.Command{
		Use:   "set VALUE",
		Short: "Store a credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := store.Set(key, args[0]); err != nil {
				return err
			}
			fmt.Printf("stored %s\n", key)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print whether a credential is stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := store.Get(key)
			if err != nil {
				return err
			}
			fmt.Printf("%s is set (%d characters)\n", key, len(v))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Remove a credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := store.Delete(key); err != nil {
				return err
			}
			fmt.Printf("deleted %s\n", key)
			return nil
		},
	})
	return cmd
}

func apiKeyCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "apikey", Short: "Manage API keys for the HTTP server"}
	cmd.AddCommand(apiKeyCreateCmd(), apiKeyListCmd(), apiKeyDeleteCmd())
	return cmd
}

func newRawAPIKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "wf_" + hex.EncodeToString(buf), nil
}

func apiKeyCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create USER_ID",
		Short: "Create an API key; the raw key is printed once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if _, err := a.Engine.GetUser(ctx, args[0]); err != nil {
					return err
				}
				raw, err := newRawAPIKey()
				if err != nil {
					return err
				}
				key := domain.APIKey{
					ID:        uuid.New().String(),
					UserID:    args[0],
					Name:      name,
					KeyHash:   repo.HashAPIKey(raw),
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				if err := a.Engine.Repo.InsertAPIKey(ctx, nil, key); err != nil {
					return err
				}
				return printOut(map[string]string{"id": key.ID, "user_id": key.UserID, "key": raw}, keyValues("ID", key.ID, "User", key.UserID, "Key", raw))
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "label for the key")
	return cmd
}

func apiKeyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list USER_ID",
		Short: "List a user's API keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				keys, err := a.Engine.Repo.ListAPIKeys(ctx, args[0])
				if err != nil {
					return err
				}
				return printOut(keys, func(tw table.Writer) {
					tw.AppendHeader(table.Row{"ID", "Name", "Created"})
					for _, k := range keys {
						tw.AppendRow(table.Row{k.ID, k.Name, k.CreatedAt})
					}
				})
			})
		},
	}
}

func apiKeyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete KEY_ID",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return a.Engine.Repo.DeleteAPIKey(ctx, args[0])
			})
		},
	}
}

func tokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{Use: "token", Short: "Issue bearer tokens"}
	issue := &cobra.Command{
		Use:   "issue USER_ID",
		Short: "Sign a JWT with WORKFLOW_JWT_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := viper.GetString("jwt_secret")
			if secret == "" {
				return errors.New("WORKFLOW_JWT_SECRET is required")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				roles, err := a.Auth.Roles(ctx, "", args[0])
				if err != nil {
					return err
				}
				token, err := server.SignToken(secret, args[0], roles, ttl)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]string{"token": token})
				}
				fmt.Println(token)
				return nil
			})
		},
	}
	issue.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	cmd.AddCommand(issue)
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Workspace configuration (workflow.yml)"}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default workflow.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate workflow.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(viper.GetString("workspace")); err != nil {
				return err
			}
			fmt.Println("config ok")
			return nil
		},
	})
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withApp(ctx, func(ctx context.Context, a *app.App) error {
				logger := log.Default()
				authCfg := server.AuthConfig{
					JWTSecret:              viper.GetString("jwt_secret"),
					AllowLegacyActorHeader: a.Config.Server.AllowLegacyActorHeader,
					DevTokens:              a.Config.Server.DevTokens,
					Logger:                 logger,
				}
				if authCfg.JWTSecret == "" && (authCfg.DevTokens || !authCfg.AllowLegacyActorHeader) {
					return errors.New("WORKFLOW_JWT_SECRET is required for bearer auth")
				}
				handler, err := server.New(server.Config{App: a, BasePath: basePath, Auth: authCfg})
				if err != nil {
					return err
				}
				server.NewWebhookDispatcher(a.Engine.Repo, a.Config.Webhooks, logger).Start(ctx)

				if addr == "" {
					addr = a.Config.Server.Addr
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				logger.Printf("serving workflow API on http://%s%s (OpenAPI at %s/openapi.json, docs at %s/docs)", addr, basePath, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from workflow.yml)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	return cmd
}
