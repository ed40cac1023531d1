/*
Copyright © 2026 autotime authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var debugLogging bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "autotime",
	Short: "Fill Productive time entries from local git and Codex session activity.",
	Long: `
autotime correlates one day of Productive bookings with local activity and
submits matching time entries.

For each booking it:
- resolves the booked service and maps it to local folders via .productive markers
- collects git commits (by author) and Codex session prompts for the day
- composes a bounded work note, rewritten through the ChatGPT API
- skips bookings that already have a time entry for the service and day

Configuration is environment-only: PRODUCTIVE_API_TOKEN, PRODUCTIVE_ORG_ID,
PRODUCTIVE_PERSON_ID, SCAN_DIRS, GIT_AUTHOR_NAME, CODEX_SESSIONS_DIR and
CHATGPT_API_KEY (or OPENAI_API_KEY), with CHATGPT_MODEL optional.
`,
	Example: `
  # Submit entries for today
  autotime run

  # Submit entries for a specific day, confirming each booking
  autotime run --date 2025-03-14 --confirm

  # Inspect the day's bookings without submitting
  autotime bookings --date 2025-03-14
`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugLogging, "debug", false, "Enable debug logging")
}

// newLogger builds the process logger; all diagnostics go to stderr so that
// stdout stays usable for command output.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if debugLogging {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
