package notes

import (
	"fmt"
	"strings"

	"autotime/gitlog"
	"autotime/match"
	"autotime/sessionlog"
)

// MaxNoteLength bounds the note attached to a time entry.
const MaxNoteLength = 2000

const (
	summaryDedupPrefix = 100
	summaryMaxLen      = 120
	summaryCutLen      = 117
)

// Compose renders the matched activity into a single note. The layout is
// deterministic: the git section always comes first, and when the combined
// text would exceed MaxNoteLength the session section is dropped before any
// git evidence is cut.
func Compose(matches []match.ProjectMatch) string {
	var gitActivities []gitlog.RepoActivity
	var sessionActivities []sessionlog.SessionActivity

	for _, m := range matches {
		switch m.Activity.Kind {
		case match.ActivityGit:
			gitActivities = append(gitActivities, *m.Activity.Repo)
		case match.ActivitySession:
			sessionActivities = append(sessionActivities, *m.Activity.Session)
		}
	}

	var sections []string
	if len(gitActivities) > 0 {
		sections = append(sections, gitSection(gitActivities))
	}
	if len(sessionActivities) > 0 {
		sections = append(sections, sessionSection(sessionActivities))
	}
	if len(sections) == 0 {
		return ""
	}

	note := strings.Join(sections, "\n\n")
	if runeLen(note) > MaxNoteLength {
		if len(gitActivities) > 0 {
			note = Truncate(gitSection(gitActivities))
		} else {
			note = Truncate(note)
		}
	}
	return note
}

func gitSection(activities []gitlog.RepoActivity) string {
	lines := []string{"## Git Activity"}

	for _, repo := range activities {
		noun := "commits"
		if len(repo.Commits) == 1 {
			noun = "commit"
		}
		lines = append(lines, fmt.Sprintf("**%s** (%d %s)", repo.RepoName, len(repo.Commits), noun))

		totalFiles, totalInsertions, totalDeletions := 0, 0, 0
		for _, commit := range repo.Commits {
			lines = append(lines, fmt.Sprintf("- %s %s", commit.Hash, commit.Subject))
			totalFiles += commit.FilesChanged
			totalInsertions += commit.Insertions
			totalDeletions += commit.Deletions
		}

		if totalFiles > 0 {
			lines = append(lines, fmt.Sprintf("  (%d files changed, +%d, -%d)", totalFiles, totalInsertions, totalDeletions))
		}
	}

	return strings.Join(lines, "\n")
}

func sessionSection(activities []sessionlog.SessionActivity) string {
	lines := []string{"## Codex Sessions"}

	// Summaries repeat across sessions when a prompt is re-sent; the first
	// occurrence wins, keyed on the lowercased leading 100 characters.
	seen := make(map[string]struct{})
	for _, session := range activities {
		for _, summary := range session.Summaries {
			key := strings.ToLower(firstRunes(summary, summaryDedupPrefix))
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}

			trimmed := summary
			if runeLen(summary) > summaryMaxLen {
				trimmed = firstRunes(summary, summaryCutLen) + "..."
			}
			lines = append(lines, "- "+trimmed)
		}
	}

	return strings.Join(lines, "\n")
}

// Truncate hard-caps a note at MaxNoteLength characters with a trailing
// ellipsis.
func Truncate(value string) string {
	runes := []rune(value)
	if len(runes) <= MaxNoteLength {
		return value
	}
	return string(runes[:MaxNoteLength-3]) + "..."
}

func runeLen(value string) int {
	return len([]rune(value))
}

func firstRunes(value string, n int) string {
	runes := []rune(value)
	if len(runes) <= n {
		return value
	}
	return string(runes[:n])
}
