package sessionlog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeSessionFile(t *testing.T, dayDir, name string, lines ...string) {
	t.Helper()
	if err := os.MkdirAll(dayDir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dayDir, err)
	}
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(dayDir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func metaLine(id, cwd string) string {
	return `{"type":"session_meta","payload":{"id":"` + id + `","cwd":"` + cwd + `"}}`
}

func userLine(timestamp, text string) string {
	return `{"type":"response_item","timestamp":"` + timestamp +
		`","payload":{"type":"message","role":"user","content":"` + text + `"}}`
}

func TestCollectHappyPath(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	project := filepath.Join(root, "work", "alpha")
	dayDir := filepath.Join(root, "sessions", "2026", "03", "01")

	writeSessionFile(t, dayDir, "aaa.jsonl",
		metaLine("session-123", project),
		userLine("2026-03-01T09:15:00Z", "Refactor the booking resolver to handle missing deals"),
	)

	collector := NewCollector(discardLogger())
	activities := collector.Collect(filepath.Join(root, "sessions"), "2026-03-01", []string{filepath.Join(root, "work")})

	if len(activities) != 1 {
		t.Fatalf("expected 1 session, got %d", len(activities))
	}
	got := activities[0]
	if got.SessionID != "session-123" {
		t.Fatalf("expected metadata id, got %q", got.SessionID)
	}
	if got.ProjectPath != project {
		t.Fatalf("unexpected project path %q", got.ProjectPath)
	}
	if got.SessionFile != "aaa.jsonl" {
		t.Fatalf("unexpected session file %q", got.SessionFile)
	}
	if len(got.Summaries) != 1 || !strings.Contains(got.Summaries[0], "booking resolver") {
		t.Fatalf("unexpected summaries %v", got.Summaries)
	}
}

func TestCollectSessionIDFallsBackToFileName(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	project := filepath.Join(root, "work", "alpha")
	dayDir := filepath.Join(root, "sessions", "2026", "03", "01")

	writeSessionFile(t, dayDir, "rollout-77.jsonl",
		`{"type":"session_meta","payload":{"cwd":"`+project+`"}}`,
		userLine("2026-03-01T10:00:00Z", "Investigate flaky integration test on CI"),
	)

	collector := NewCollector(discardLogger())
	activities := collector.Collect(filepath.Join(root, "sessions"), "2026-03-01", []string{filepath.Join(root, "work")})

	if len(activities) != 1 || activities[0].SessionID != "rollout-77" {
		t.Fatalf("expected file-derived session id, got %+v", activities)
	}
}

func TestCollectFiltersByTimestampPrefix(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	project := filepath.Join(root, "work", "alpha")
	dayDir := filepath.Join(root, "sessions", "2026", "03", "01")

	writeSessionFile(t, dayDir, "aaa.jsonl",
		metaLine("s1", project),
		userLine("2026-02-28T23:59:00Z", "Yesterday's prompt that should be ignored"),
		userLine("2026-03-01T08:00:00Z", "Add pagination to the time entry listing"),
	)

	collector := NewCollector(discardLogger())
	activities := collector.Collect(filepath.Join(root, "sessions"), "2026-03-01", []string{filepath.Join(root, "work")})

	if len(activities) != 1 {
		t.Fatalf("expected 1 session, got %d", len(activities))
	}
	if len(activities[0].Summaries) != 1 || !strings.Contains(activities[0].Summaries[0], "pagination") {
		t.Fatalf("unexpected summaries %v", activities[0].Summaries)
	}
}

func TestCollectSkipsSessionsOutsideScanDirs(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dayDir := filepath.Join(root, "sessions", "2026", "03", "01")

	writeSessionFile(t, dayDir, "aaa.jsonl",
		metaLine("s1", filepath.Join(root, "elsewhere", "proj")),
		userLine("2026-03-01T08:00:00Z", "A prompt in a project outside the scan roots"),
	)
	// Sibling string-prefix trap: /work2 must not match scan dir /work.
	writeSessionFile(t, dayDir, "bbb.jsonl",
		metaLine("s2", filepath.Join(root, "work2", "proj")),
		userLine("2026-03-01T08:30:00Z", "A prompt in a sibling that shares a prefix"),
	)

	collector := NewCollector(discardLogger())
	activities := collector.Collect(filepath.Join(root, "sessions"), "2026-03-01", []string{filepath.Join(root, "work")})

	if len(activities) != 0 {
		t.Fatalf("expected no sessions, got %+v", activities)
	}
}

func TestCollectSkipsMalformedLines(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	project := filepath.Join(root, "work", "alpha")
	dayDir := filepath.Join(root, "sessions", "2026", "03", "01")

	writeSessionFile(t, dayDir, "aaa.jsonl",
		"{this is not json",
		metaLine("s1", project),
		"",
		userLine("2026-03-01T08:00:00Z", "Wire the note composer into the submit loop"),
	)

	collector := NewCollector(discardLogger())
	activities := collector.Collect(filepath.Join(root, "sessions"), "2026-03-01", []string{filepath.Join(root, "work")})

	if len(activities) != 1 || len(activities[0].Summaries) != 1 {
		t.Fatalf("malformed lines must not abort the file: %+v", activities)
	}
}

func TestCollectMissingDayDirectory(t *testing.T) {
	t.Parallel()

	collector := NewCollector(discardLogger())
	activities := collector.Collect(filepath.Join(t.TempDir(), "absent"), "2026-03-01", []string{"/work"})
	if len(activities) != 0 {
		t.Fatalf("expected empty result, got %+v", activities)
	}
}

func TestCollectContentBlocks(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	project := filepath.Join(root, "work", "alpha")
	dayDir := filepath.Join(root, "sessions", "2026", "03", "01")

	blockContent := `[{"type":"input_text","text":"Fix the resolver"},` +
		`{"type":"image","text":"ignored"},` +
		`{"type":"text","text":"and extend its tests"}]`
	writeSessionFile(t, dayDir, "aaa.jsonl",
		metaLine("s1", project),
		`{"type":"response_item","timestamp":"2026-03-01T08:00:00Z","payload":{"type":"message","role":"user","content":`+blockContent+`}}`,
	)

	collector := NewCollector(discardLogger())
	activities := collector.Collect(filepath.Join(root, "sessions"), "2026-03-01", []string{filepath.Join(root, "work")})

	if len(activities) != 1 || len(activities[0].Summaries) != 1 {
		t.Fatalf("unexpected activities %+v", activities)
	}
	if got := activities[0].Summaries[0]; got != "Fix the resolver and extend its tests" {
		t.Fatalf("unexpected joined content %q", got)
	}
}

func TestIsLikelyUserPrompt(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		content string
		want    bool
	}{
		{"too short", "short one", false},
		{"exactly 10 chars", "aaaaaaaaaa", false},
		{"11 chars passes", "aaaaaaaaaaa", true},
		{"too long", strings.Repeat("a", 500), false},
		{"499 chars passes", strings.Repeat("a", 499), true},
		{"normal prompt", "Please add retries to the API client", true},
		{"environment context", "data <ENVIRONMENT_CONTEXT> more text here", false},
		{"permissions", "prefix <permissions instructions> suffix text", false},
		{"collaboration mode", "something <collaboration_mode> something", false},
		{"agents header", "# AGENTS.md instructions for this repository", false},
		{"agents marker not at start", "see the # agents.md instructions for details", true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := IsLikelyUserPrompt(tc.content); got != tc.want {
				t.Fatalf("IsLikelyUserPrompt(%q) = %v, expected %v", tc.content, got, tc.want)
			}
		})
	}
}

func TestProjectNameFromPath(t *testing.T) {
	t.Parallel()

	if got := ProjectNameFromPath("/home/dev/alpha"); got != "alpha" {
		t.Fatalf("expected alpha, got %q", got)
	}
	if got := ProjectNameFromPath("/home/dev/alpha/"); got != "alpha" {
		t.Fatalf("expected alpha for trailing slash, got %q", got)
	}
}
