package main

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"notebridge/internal/engine/license"
	"notebridge/internal/platform/config"
	"notebridge/internal/platform/database"
	"notebridge/internal/platform/models"
	"notebridge/internal/platform/repositories"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "licensectl",
		Short:         "Manage notebridge beta license keys",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "Path to config file")

	cmd.AddCommand(newGenerateCommand(&configPath))
	cmd.AddCommand(newListCommand(&configPath))
	cmd.AddCommand(newRevokeCommand(&configPath))
	cmd.AddCommand(newCheckCommand(&configPath))
	cmd.AddCommand(newStatsCommand(&configPath))
	return cmd
}

func openService(configPath string) (*license.Service, *repositories.LicenseRepository, *sql.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := database.New(cfg.Database)
	if err != nil {
		return nil, nil, nil, err
	}
	repo := repositories.NewLicenseRepository(db)
	return license.NewService(repo, cfg.License.Prefix), repo, db, nil
}

func newGenerateCommand(configPath *string) *cobra.Command {
	var (
		count     int
		note      string
		createdBy string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate new license keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, db, err := openService(*configPath)
			if err != nil {
				return err
			}
			defer db.Close()

			licenses, err := svc.Generate(count, note, createdBy)
			if err != nil {
				return err
			}

			for _, l := range licenses {
				fmt.Println(l.Key)
			}
			fmt.Printf("\nGenerated %d key(s)\n", len(licenses))

			if output != "" {
				if err := writeKeyFile(output, note, licenses); err != nil {
					return err
				}
				fmt.Printf("Saved to %s\n", output)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 1, "Number of keys to generate")
	cmd.Flags().StringVar(&note, "note", "", "Note about this batch")
	cmd.Flags().StringVar(&createdBy, "created-by", "admin-cli", "Admin username")
	cmd.Flags().StringVar(&output, "output", "", "Output file path")
	return cmd
}

func writeKeyFile(path, note string, licenses []*models.License) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(f, "# Batch: %s\n", uuid.NewString())
	fmt.Fprintf(f, "# Generated: %s\n", time.Now().UTC().Format(time.RFC3339))
	if note != "" {
		fmt.Fprintf(f, "# Note: %s\n", note)
	}
	fmt.Fprintln(f)
	for _, l := range licenses {
		fmt.Fprintln(f, l.Key)
	}
	return nil
}

func newListCommand(configPath *string) *cobra.Command {
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List license keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, repo, db, err := openService(*configPath)
			if err != nil {
				return err
			}
			defer db.Close()

			licenses, err := repo.List(activeOnly)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Key", "Status", "Usage", "Used By", "Created", "Notes"})
			for _, l := range licenses {
				status := "active"
				if !l.IsActive {
					status = "revoked"
				}
				usage := "available"
				if l.Used() {
					usage = "used"
				}
				created := time.Unix(l.CreatedAt, 0).UTC().Format("2006-01-02")
				t.AppendRow(table.Row{l.Key, status, usage, l.UsedByUserID, created, l.Notes})
			}
			t.Render()
			fmt.Printf("%d key(s)\n", len(licenses))
			return nil
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active-only", false, "Show only active keys")
	return cmd
}

func newRevokeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke KEY",
		Short: "Revoke a license key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, db, err := openService(*configPath)
			if err != nil {
				return err
			}
			defer db.Close()

			outcome, err := svc.Revoke(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Outcome: %s\n", outcome)
			return nil
		},
	}
}

func newCheckCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check KEY",
		Short: "Check license key status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, db, err := openService(*configPath)
			if err != nil {
				return err
			}
			defer db.Close()

			status, err := svc.Status(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Exists: %v\n", status.Exists)
			fmt.Printf("Active: %v\n", status.Active)
			fmt.Printf("Used:   %v\n", status.Used)
			if status.ActivatedAt != nil {
				fmt.Printf("Activated: %s\n", time.Unix(*status.ActivatedAt, 0).UTC().Format(time.RFC3339))
			}
			if status.RevokedAt != nil {
				fmt.Printf("Revoked:   %s\n", time.Unix(*status.RevokedAt, 0).UTC().Format(time.RFC3339))
			}
			return nil
		},
	}
}

func newStatsCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show license key statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, repo, db, err := openService(*configPath)
			if err != nil {
				return err
			}
			defer db.Close()

			licenses, err := repo.List(false)
			if err != nil {
				return err
			}

			var active, used, available int
			for _, l := range licenses {
				if l.IsActive {
					active++
					if !l.Used() {
						available++
					}
				}
				if l.Used() {
					used++
				}
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendRow(table.Row{"Total", len(licenses)})
			t.AppendRow(table.Row{"Active", active})
			t.AppendRow(table.Row{"Revoked", len(licenses) - active})
			t.AppendRow(table.Row{"Used", used})
			t.AppendRow(table.Row{"Available", available})
			t.Render()
			return nil
		},
	}
}
