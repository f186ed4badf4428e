package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mektep-hub/mektep-monitor/config"
	"github.com/mektep-hub/mektep-monitor/internal/bootstrap"
	"github.com/mektep-hub/mektep-monitor/internal/domain/analytics"
	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
	"github.com/mektep-hub/mektep-monitor/internal/infrastructure/importer"
	"github.com/mektep-hub/mektep-monitor/internal/infrastructure/persistence/postgres"
	"github.com/mektep-hub/mektep-monitor/internal/infrastructure/persistence/redis"
	"github.com/mektep-hub/mektep-monitor/pkg/logger"
)

var errNoDatabase = errors.New("DATABASE_URL is not set")

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATE
// ══════════════════════════════════════════════════════════════════════════════

func newMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *postgres.Migrator) error {
				applied, err := m.Migrate(cmd.Context())
				if err != nil {
					return err
				}
				printf(cmd, "applied %d migration(s)\n", applied)
				return nil
			})
		},
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *postgres.Migrator) error {
				migrations, err := m.Status(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "VERSION\tNAME\tAPPLIED AT")
				for _, mig := range migrations {
					appliedAt := "pending"
					if mig.IsApplied {
						appliedAt = mig.AppliedAt.Format(time.RFC3339)
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\n", mig.Version, mig.Name, appliedAt)
				}
				return tw.Flush()
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last applied migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *postgres.Migrator) error {
				if err := m.Rollback(cmd.Context()); err != nil {
					return err
				}
				printf(cmd, "rolled back the last migration\n")
				return nil
			})
		},
	})

	return migrateCmd
}

func withMigrator(cmd *cobra.Command, fn func(*postgres.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Database.URL == "" {
		return errNoDatabase
	}

	conn, err := bootstrap.OpenDatabase(cmd.Context(), cfg.Database)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(postgres.NewMigrator(conn))
}

// ══════════════════════════════════════════════════════════════════════════════
// IMPORT
// ══════════════════════════════════════════════════════════════════════════════

func newImportCmd() *cobra.Command {
	var dryRun bool

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a student roster into PostgreSQL",
		Long: `Import a roster (.json, .csv or .xlsx) and upsert it by student ID.

Examples:
  mektepctl import roster.xlsx
  mektepctl import roster.csv --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			students, err := importer.LoadFile(args[0])
			if err != nil {
				return err
			}
			counts := analytics.CountLevels(students)
			printf(cmd, "parsed %d student(s): %d high, %d medium, %d low\n",
				len(students), counts.High, counts.Medium, counts.Low)
			if dryRun {
				return nil
			}
			return runImport(cmd, students)
		},
	}

	importCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse and validate without writing")
	return importCmd
}

func runImport(cmd *cobra.Command, students []student.Student) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Database.URL == "" {
		return errNoDatabase
	}
	log := bootstrap.Logger(cfg).Named("mektepctl")

	conn, err := bootstrap.OpenDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
		return err
	}

	repo := postgres.NewStudentRepository(conn)
	if err := repo.Upsert(ctx, students...); err != nil {
		return fmt.Errorf("upsert students: %w", err)
	}
	total, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	printf(cmd, "imported %d student(s), %d in database\n", len(students), total)

	// Old dashboards no longer match the roster.
	cache, err := bootstrap.OpenCache(ctx, cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, dashboard snapshots not invalidated", logger.Err(err))
		return nil
	}
	if cache == nil {
		return nil
	}
	defer func() { _ = cache.Close() }()

	if err := redis.NewSnapshotCache(cache, cfg.Redis.SnapshotTTL).Invalidate(ctx); err != nil {
		log.Warn("snapshot invalidation failed", logger.Err(err))
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SCORE
// ══════════════════════════════════════════════════════════════════════════════

func newScoreCmd() *cobra.Command {
	var out, locale string

	scoreCmd := &cobra.Command{
		Use:   "score <file>",
		Short: "Score a roster offline and write an XLSX report",
		Long: `Assess every student of a roster and save a workbook with a risk sheet
and a per-class summary. Nothing is written to the database.

Examples:
  mektepctl score roster.xlsx --out report.xlsx
  mektepctl score roster.csv --locale ru`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			students, err := importer.LoadFile(args[0])
			if err != nil {
				return err
			}
			if err := importer.WriteReport(out, students, shared.ParseLocale(locale)); err != nil {
				return err
			}

			overview := analytics.Overview(students)
			printf(cmd, "%d student(s) in %d class(es), %d at risk, report saved to %s\n",
				overview.TotalStudents, overview.TotalClasses, overview.AtRiskStudents, out)
			return nil
		},
	}

	scoreCmd.Flags().StringVarP(&out, "out", "o", "risk-report.xlsx", "Output workbook path")
	scoreCmd.Flags().StringVar(&locale, "locale", string(shared.DefaultLocale), "Language of the reasons (kk or ru)")
	return scoreCmd
}
