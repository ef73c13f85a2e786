package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rpupo63/blog-backend/auth"
	"github.com/rpupo63/blog-backend/content"
	"github.com/rpupo63/blog-backend/database"
	"github.com/rpupo63/blog-backend/feed"
	"github.com/rpupo63/blog-backend/models"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			db, _, err := openDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			if err := database.Migrate(db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newGenCmd() *cobra.Command {
	var out string
	var reportOnly bool

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate typed query helpers and report column mismatches",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			db, _, err := openDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			if reportOnly {
				mismatches, err := models.GenerateColumnMismatchReport(db, cmd.OutOrStdout())
				if err != nil {
					return err
				}
				if mismatches > 0 {
					return fmt.Errorf("%d database columns are not mapped by any model", mismatches)
				}
				return nil
			}
			return models.GenerateModels(db, out, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&out, "out", "./query", "Output directory for generated code")
	cmd.Flags().BoolVar(&reportOnly, "report-only", false, "Only print the column mismatch report")
	return cmd
}

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage local accounts",
	}
	cmd.AddCommand(newUsersAddCmd(), newUsersListCmd())
	return cmd
}

func newUsersAddCmd() *cobra.Command {
	var email, password, name string
	var admin bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an account that can sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			db, store, err := openDatabase(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}

			cred := models.Credential{Email: email, PasswordHash: hash}
			if name = strings.TrimSpace(name); name != "" {
				cred.DisplayName = &name
			}
			if err := store.CredentialRepo().Create(ctx, &cred); err != nil {
				return err
			}

			if admin {
				if _, err := store.AdminRepo().Provision(ctx, models.Admin{
					UID:         cred.UID.String(),
					Email:       cred.Email,
					DisplayName: cred.DisplayName,
					IsAdmin:     true,
				}); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created %s (uid %s, admin %t)\n", cred.Email, cred.UID, admin)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (at least 8 characters)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().BoolVar(&admin, "admin", true, "Grant admin capability")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newUsersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List admin records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			db, store, err := openDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			admins, err := store.AdminRepo().FindAll(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "UID\tEMAIL\tADMIN")
			for _, a := range admins {
				fmt.Fprintf(tw, "%s\t%s\t%t\n", a.UID, a.Email, a.IsAdmin)
			}
			return tw.Flush()
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print aggregate counters as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			db, store, err := openDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			blogs, err := content.NewGateway(store.BlogRepo(), nil).FetchAll(cmd.Context(), content.ScopeAdmin)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				models.BlogStats
				Categories []string `json:"categories"`
			}{feed.Stats(blogs), feed.Categories(blogs)})
		},
	}
}
