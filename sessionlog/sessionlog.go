package sessionlog

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"autotime/folders"
)

const (
	minSummaryLen = 10
	maxSummaryLen = 500
)

// Markers injected by assistant tooling; a prompt containing one is not
// something the user typed.
var boilerplateMarkers = []string{
	"<environment_context>",
	"<permissions instructions>",
	"<collaboration_mode>",
}

const agentsHeaderMarker = "# agents.md instructions"

// SessionActivity is one Codex session with user-authored prompts on the
// collected day.
type SessionActivity struct {
	SessionID   string
	ProjectPath string
	SessionFile string
	Summaries   []string
}

// Collector reads date-bucketed Codex session logs.
type Collector struct {
	logger *slog.Logger
}

func NewCollector(logger *slog.Logger) *Collector {
	return &Collector{logger: logger}
}

// Collect reads every JSONL session file under <sessionsDir>/YYYY/MM/DD and
// returns the sessions that resolved a working directory inside one of the
// scan dirs and captured at least one qualifying prompt. A missing or
// unreadable day directory yields an empty result.
func (c *Collector) Collect(sessionsDir, date string, scanDirs []string) []SessionActivity {
	c.logger.Info("collecting session activity", "date", date)

	if len(date) < 10 {
		return nil
	}
	dayDir := filepath.Join(sessionsDir, date[0:4], date[5:7], date[8:10])

	entries, err := os.ReadDir(dayDir)
	if err != nil {
		c.logger.Warn("cannot read sessions directory", "dir", dayDir)
		return nil
	}

	activities := make([]SessionActivity, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}

		parsed := c.parseSessionFile(filepath.Join(dayDir, entry.Name()), date)
		if parsed.ProjectPath == "" || len(parsed.Summaries) == 0 {
			continue
		}
		if !folders.PathWithinAny(parsed.ProjectPath, scanDirs) {
			c.logger.Debug("skipping session outside scan dirs", "path", parsed.ProjectPath)
			continue
		}

		parsed.SessionFile = entry.Name()
		activities = append(activities, parsed)
	}

	c.logger.Info("session activity collected", "sessions", len(activities), "date", date)
	return activities
}

type logRecord struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

type sessionMetaPayload struct {
	ID  string `json:"id"`
	Cwd string `json:"cwd"`
}

type messagePayload struct {
	Type    string          `json:"type"`
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (c *Collector) parseSessionFile(path, date string) SessionActivity {
	activity := SessionActivity{
		SessionID: strings.TrimSuffix(filepath.Base(path), ".jsonl"),
	}

	file, err := os.Open(path)
	if err != nil {
		c.logger.Warn("cannot open session file", "path", path, "error", err)
		return activity
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024) // 10MB max line

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var record logRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			// Malformed line, skip rather than failing the file.
			continue
		}

		switch record.Type {
		case "session_meta":
			var meta sessionMetaPayload
			if err := json.Unmarshal(record.Payload, &meta); err != nil {
				continue
			}
			if meta.Cwd != "" {
				activity.ProjectPath = meta.Cwd
			}
			if meta.ID != "" {
				activity.SessionID = meta.ID
			}
		case "response_item":
			if !strings.HasPrefix(record.Timestamp, date) {
				continue
			}
			var message messagePayload
			if err := json.Unmarshal(record.Payload, &message); err != nil {
				continue
			}
			if message.Type != "message" || message.Role != "user" {
				continue
			}
			text := extractMessageText(message.Content)
			if IsLikelyUserPrompt(text) {
				activity.Summaries = append(activity.Summaries, strings.TrimSpace(text))
			}
		}
	}

	if err := scanner.Err(); err != nil {
		c.logger.Warn("error reading session file", "path", path, "error", err)
	}

	return activity
}

// extractMessageText handles both plain-string content and typed content
// block lists; only input_text/text blocks contribute, joined by a space.
func extractMessageText(content json.RawMessage) string {
	if len(content) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(content, &asString); err == nil {
		return asString
	}

	var blocks []contentBlock
	if err := json.Unmarshal(content, &blocks); err != nil {
		return ""
	}

	parts := make([]string, 0, len(blocks))
	for _, block := range blocks {
		if block.Type != "input_text" && block.Type != "text" {
			continue
		}
		if block.Text == "" {
			continue
		}
		parts = append(parts, block.Text)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// IsLikelyUserPrompt keeps prompts whose trimmed length is within (10, 500)
// and which carry no injected tooling boilerplate.
func IsLikelyUserPrompt(content string) bool {
	trimmed := strings.TrimSpace(content)
	length := utf8.RuneCountInString(trimmed)
	if length <= minSummaryLen || length >= maxSummaryLen {
		return false
	}

	normalized := strings.ToLower(trimmed)
	for _, marker := range boilerplateMarkers {
		if strings.Contains(normalized, marker) {
			return false
		}
	}
	return !strings.HasPrefix(normalized, agentsHeaderMarker)
}

// ProjectNameFromPath returns the last path element, or the path itself when
// it has no elements.
func ProjectNameFromPath(projectPath string) string {
	name := filepath.Base(strings.TrimRight(projectPath, "/"))
	if name == "." || name == string(filepath.Separator) {
		return projectPath
	}
	return name
}
