package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/ivle-sim/internal/metrics"
	"github.com/talgya/ivle-sim/internal/persistence"
)

func newRunsCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs stored in a SQLite database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(dbPath, func(db *persistence.DB) error {
				runs, err := db.ListRuns()
				if err != nil {
					return fmt.Errorf("listing runs: %w", err)
				}
				if len(runs) == 0 {
					fmt.Println("No runs stored.")
					return nil
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tSTART\tDAYS\tSTUDENTS\tSEED\tPOLICY\tCREATED")
				for _, r := range runs {
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%s\t%s\n",
						r.ID, r.StartDate, r.Days, humanize.Comma(int64(r.Actors)),
						r.Seed, r.LoginPolicy, r.CreatedAt)
				}
				return w.Flush()
			})
		},
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default from config)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show <run-id>",
			Short: "Show a stored run's engagement summary",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(dbPath, func(db *persistence.DB) error {
					run, err := db.GetRun(args[0])
					if err != nil {
						return err
					}
					rows, err := db.LoadMetrics(run.ID, false)
					if err != nil {
						return fmt.Errorf("loading metrics: %w", err)
					}

					fmt.Printf("Run %s: %s students over %d days from %s (seed %d, %s logins)\n\n",
						run.ID, humanize.Comma(int64(run.Actors)), run.Days, run.StartDate, run.Seed, run.LoginPolicy)
					printLevelTable(os.Stdout, metrics.Summarise(rows))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "delete <run-id>",
			Short: "Delete a stored run",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(dbPath, func(db *persistence.DB) error {
					if err := db.DeleteRun(args[0]); err != nil {
						return err
					}
					fmt.Printf("Deleted run %s\n", args[0])
					return nil
				})
			},
		},
	)

	return cmd
}

// withDB opens the database at path (or the configured one) for fn.
func withDB(path string, fn func(*persistence.DB) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if path == "" {
		path = cfg.Storage.SQLitePath
	}
	if path == "" {
		return errors.New("no database: pass --db or set storage.sqlite_path")
	}

	db, err := persistence.Open(path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	return fn(db)
}
