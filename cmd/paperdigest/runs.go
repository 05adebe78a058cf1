package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/PaperDigest/internal/database"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded runs",
}

var (
	runsStatus string
	runsLimit  int
)

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := database.RunFilter{Status: database.RunStatus(runsStatus), Limit: runsLimit}
		if f.Status != "" && !f.Status.Valid() {
			return fmt.Errorf("unknown status %q", runsStatus)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.ListRuns(f)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded. Start one with: paperdigest run")
			return nil
		}
		for _, r := range runs {
			fmt.Printf("  %s  %-8s  %s  %s\n", r.ID, r.Status, r.RunDate, r.CreatedAt.Local().Format(time.DateTime))
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show a run's ranked papers, logs and digest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		run, err := db.GetRun(args[0])
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("run %s not found", args[0])
		}

		fmt.Printf("Run %s (%s)\n", run.ID, run.Status)
		fmt.Printf("  Date: %s\n", run.RunDate)
		fmt.Printf("  Request: %s\n", string(run.Request))
		if run.Error != nil {
			fmt.Printf("  Error: %s\n", *run.Error)
		}

		papers, err := db.GetRunPapers(run.ID)
		if err != nil {
			return err
		}
		if len(papers) > 0 {
			fmt.Println("\nRanked papers:")
			for _, p := range papers {
				status := p.ContentStatus
				if status == "" {
					status = "-"
				}
				fmt.Printf("  %3d. %.4f  [%s] %s\n", p.Rank, p.Score, status, p.Title)
			}
		}

		if len(run.Logs) > 0 {
			fmt.Println("\nLogs:")
			for _, l := range run.Logs {
				fmt.Printf("  %s\n", l)
			}
		}
		if len(run.Errors) > 0 {
			fmt.Println("\nErrors:")
			for _, e := range run.Errors {
				fmt.Printf("  %s\n", e)
			}
		}
		if run.DigestMD != nil {
			fmt.Println()
			fmt.Println(strings.TrimSpace(*run.DigestMD))
		}
		return nil
	},
}

func init() {
	runsListCmd.Flags().StringVar(&runsStatus, "status", "", "Only runs with this status (queued, running, done, failed)")
	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Maximum number of runs")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
}
