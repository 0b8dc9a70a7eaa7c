package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/clinic-api/internal/availability"
	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/repository/postgres"

	_ "time/tzdata"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "clinicctl",
		Short:         "Clinic scheduling administration",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "path to config.yml")

	root.AddCommand(migrateCmd())
	root.AddCommand(doctorCmd())
	return root
}

func openMigrator(cmd *cobra.Command) (*postgres.Migrator, func(), error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Read(path)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.Driver != "postgres" {
		return nil, nil, fmt.Errorf("migrations need the postgres driver, got %q", cfg.Database.Driver)
	}

	db, err := postgres.NewDB(cmd.Context(), cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewMigrator(db), func() { db.Close() }, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrator, closeDB, err := openMigrator(cmd)
			if err != nil {
				return err
			}
			defer closeDB()

			count, err := migrator.Up(cmd.Context())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrator, closeDB, err := openMigrator(cmd)
			if err != nil {
				return err
			}
			defer closeDB()

			statuses, err := migrator.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printStatus(cmd.OutOrStdout(), statuses)
			return nil
		},
	})
	return cmd
}

func printStatus(w io.Writer, statuses []postgres.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func doctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Doctor tools",
	}

	var (
		fromDay, toDay   int
		fromTime, toTime string
		tz, locale       string
	)
	availabilityCmd := &cobra.Command{
		Use:   "availability",
		Short: "Validate a weekly window and print it as the API would display it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printAvailability(cmd.OutOrStdout(), fromDay, toDay, fromTime, toTime, tz, locale, time.Now())
		},
	}
	availabilityCmd.Flags().IntVar(&fromDay, "from-day", 1, "first weekday, 0 is Sunday")
	availabilityCmd.Flags().IntVar(&toDay, "to-day", 5, "last weekday, 0 is Sunday")
	availabilityCmd.Flags().StringVar(&fromTime, "from", "08:00:00", "opening time, HH:mm:ss")
	availabilityCmd.Flags().StringVar(&toTime, "to", "17:00:00", "closing time, HH:mm:ss")
	availabilityCmd.Flags().StringVar(&tz, "tz", "UTC", "IANA time zone")
	availabilityCmd.Flags().StringVar(&locale, "locale", "en", "weekday name locale")
	cmd.AddCommand(availabilityCmd)
	return cmd
}

func printAvailability(w io.Writer, fromDay, toDay int, fromTime, toTime, tz, locale string, now time.Time) error {
	window, err := availability.ParseWindow(fromDay, toDay, fromTime, toTime)
	if err != nil {
		return err
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("invalid time zone %q: %w", tz, err)
	}

	d := availability.Describe(window, now, loc, locale)
	fmt.Fprintf(w, "window:   %s\n", window)
	fmt.Fprintf(w, "from:     %s %s (%s)\n", d.From.Day, d.From.Time, d.From.At.Format(time.RFC3339))
	fmt.Fprintf(w, "to:       %s %s (%s)\n", d.To.Day, d.To.Time, d.To.At.Format(time.RFC3339))
	fmt.Fprintf(w, "timezone: %s\n", d.Timezone)
	return nil
}
