package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"autotime/chatgpt"
	"autotime/config"
	"autotime/folders"
	"autotime/gitlog"
	"autotime/internal/timeutil"
	"autotime/productive"
	"autotime/sessionlog"
	"autotime/submitter"
)

var (
	runDate    string
	runConfirm bool
	runTimeout time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Correlate the day's bookings with local activity and submit time entries",
	Long: `Fetch the person's Productive bookings for one day, match each booked
service against local folders carrying a .productive marker, collect git
commits and Codex session prompts from those folders, and submit one time
entry per booking with a composed note.

Bookings that already have a time entry for the same service and day are
skipped, so re-running the command is safe. With --confirm, each entry is
shown before submission and can be edited, skipped, or cancelled.`,
	Example: `
  # Submit entries for today
  autotime run

  # Submit entries for a past day, reviewing each one
  autotime run --date 2025-03-14 --confirm
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			return err
		}

		date := runDate
		if date == "" {
			date = timeutil.Today()
		} else if _, err := timeutil.ParseDay(date); err != nil {
			return err
		}

		logger := newLogger()
		ctx, cancel := runContext(runTimeout)
		defer cancel()

		client, err := productive.NewClient(productive.ClientConfig{
			APIToken: cfg.APIToken,
			OrgID:    cfg.OrgID,
			BaseURL:  cfg.BaseURL,
			Logger:   logger,
		})
		if err != nil {
			return err
		}

		bookings, err := client.FetchBookings(ctx, cfg.PersonID, date)
		if err != nil {
			return fmt.Errorf("fetch bookings for %s: %w", date, err)
		}
		if len(bookings) == 0 {
			fmt.Printf("No bookings found for %s. Nothing to submit.\n", date)
			return nil
		}

		mapping := folders.NewResolver(logger).Discover(cfg.ScanDirs)

		repos, sessions := collectActivity(ctx, mapping,
			func(ctx context.Context, roots []string) []gitlog.RepoActivity {
				return gitlog.NewCollector(logger).Collect(ctx, roots, cfg.GitAuthor, date)
			},
			func() []sessionlog.SessionActivity {
				return sessionlog.NewCollector(logger).Collect(cfg.SessionsDir, date, cfg.ScanDirs)
			},
		)

		formatter := chatgpt.NewFormatter(chatgpt.Config{
			APIKey: cfg.ChatGPTKey,
			Model:  cfg.ChatGPTModel,
			Logger: logger,
		})

		runner := submitter.Runner{
			Client:    client,
			Formatter: formatter,
			Logger:    logger,
			PersonID:  cfg.PersonID,
			Date:      date,
		}
		if runConfirm {
			runner.Prompter = submitter.NewLinePrompter(os.Stdin, os.Stdout)
		}

		outcome := runner.Run(ctx, bookings, mapping, repos, sessions)
		printRunSummary(date, mapping, repos, sessions, outcome)

		return runExitError(outcome)
	},
}

// runExitError decides the process exit status: only failed submissions make
// the run exit nonzero. User cancellation is reported in the summary but is
// a clean exit.
func runExitError(outcome submitter.Outcome) error {
	if outcome.Failed > 0 {
		return fmt.Errorf("%d submission(s) failed", outcome.Failed)
	}
	return nil
}

// runContext applies the overall deadline; zero disables it so interactive
// confirmation can take as long as the user needs.
func runContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), timeout)
}

// collectActivity gathers git and session activity in parallel. Git repos are
// discovered under the marker-mapped folders, not the raw scan roots, so a
// mapped folder nested deep below a scan root still has its repos collected.
func collectActivity(
	ctx context.Context,
	mapping folders.ServiceFolderMap,
	collectGit func(ctx context.Context, roots []string) []gitlog.RepoActivity,
	collectSessions func() []sessionlog.SessionActivity,
) ([]gitlog.RepoActivity, []sessionlog.SessionActivity) {
	gitDone := make(chan []gitlog.RepoActivity, 1)
	go func() {
		gitDone <- collectGit(ctx, mapping.AllFolders())
	}()
	sessions := collectSessions()
	return <-gitDone, sessions
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runDate, "date", "", "Day to process, format YYYY-MM-DD (default: today)")
	runCmd.Flags().BoolVar(&runConfirm, "confirm", false, "Review each entry before submitting (edit/skip/cancel)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Overall deadline for the run, 0 disables (default: no deadline)")
}

func printRunSummary(
	date string,
	mapping folders.ServiceFolderMap,
	repos []gitlog.RepoActivity,
	sessions []sessionlog.SessionActivity,
	outcome submitter.Outcome,
) {
	fmt.Printf("\nRun summary for %s:\n", date)
	fmt.Printf("  Bookings:                 %d\n", outcome.Bookings)
	fmt.Printf("  Marker folders:           %d (services mapped: %d)\n", mapping.FolderCount(), len(mapping))
	fmt.Printf("  Repos with commits:       %d\n", len(repos))
	fmt.Printf("  Sessions with prompts:    %d\n", len(sessions))
	fmt.Printf("  Entries created:          %d\n", outcome.Created)
	fmt.Printf("  Entries skipped:          %d\n", outcome.Skipped)
	fmt.Printf("  Submissions failed:       %d\n", outcome.Failed)
	fmt.Printf("  Bookings without folders: %d\n", outcome.WithoutFolders)
	fmt.Printf("  Bookings without activity: %d\n", outcome.WithoutActivity)
	if outcome.Cancelled {
		fmt.Println("  Cancelled before finishing all bookings.")
	}
}
