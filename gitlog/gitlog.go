package gitlog

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const queryTimeout = 10 * time.Second

// Commit is one parsed git log record. The hash is stored truncated to the
// short 7-character form.
type Commit struct {
	Hash         string
	Subject      string
	FilesChanged int
	Insertions   int
	Deletions    int
}

// RepoActivity holds a repository's commits for the collected day, in log
// order (newest first).
type RepoActivity struct {
	RepoName string
	RepoPath string
	Commits  []Commit
}

type runFunc func(ctx context.Context, dir string, args ...string) ([]byte, error)

// Collector queries git for per-author daily activity across repositories.
type Collector struct {
	logger *slog.Logger
	run    runFunc
}

func NewCollector(logger *slog.Logger) *Collector {
	return &Collector{logger: logger, run: runGit}
}

func runGit(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	return cmd.Output()
}

// Collect discovers repositories under the given folders and returns one
// RepoActivity per repository with at least one commit by the author on the
// given day. A repository whose log query fails is logged and excluded.
func (c *Collector) Collect(ctx context.Context, scanDirs []string, author, date string) []RepoActivity {
	c.logger.Info("collecting git activity", "author", author, "date", date)

	repos := c.DiscoverRepos(scanDirs)
	c.logger.Info("discovered git repos", "count", len(repos))

	activities := make([]RepoActivity, 0, len(repos))
	for _, repoPath := range repos {
		commits, err := c.commitsForDay(ctx, repoPath, author, date)
		if err != nil {
			c.logger.Warn("git log query failed", "repo", repoPath, "error", err)
			continue
		}
		if len(commits) == 0 {
			continue
		}
		repoName := filepath.Base(repoPath)
		activities = append(activities, RepoActivity{
			RepoName: repoName,
			RepoPath: repoPath,
			Commits:  commits,
		})
		c.logger.Info("repo activity found", "repo", repoName, "commits", len(commits))
	}

	return activities
}

// DiscoverRepos probes each folder, its children, and its grandchildren for a
// .git directory. Unreadable directories are skipped.
func (c *Collector) DiscoverRepos(scanDirs []string) []string {
	seen := make(map[string]struct{})
	repos := make([]string, 0, len(scanDirs))

	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		repos = append(repos, path)
	}

	for _, scanDir := range scanDirs {
		if isGitRepo(scanDir) {
			add(scanDir)
			continue
		}

		entries, err := os.ReadDir(scanDir)
		if err != nil {
			c.logger.Warn("cannot read scan directory", "dir", scanDir)
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			dirPath := filepath.Join(scanDir, entry.Name())
			if isGitRepo(dirPath) {
				add(dirPath)
				continue
			}

			subEntries, err := os.ReadDir(dirPath)
			if err != nil {
				continue
			}
			for _, subEntry := range subEntries {
				if !subEntry.IsDir() {
					continue
				}
				subPath := filepath.Join(dirPath, subEntry.Name())
				if isGitRepo(subPath) {
					add(subPath)
				}
			}
		}
	}

	return repos
}

func isGitRepo(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}

func (c *Collector) commitsForDay(ctx context.Context, repoPath, author, date string) ([]Commit, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	output, err := c.run(queryCtx, repoPath,
		"log",
		"--author="+author,
		"--regexp-ignore-case",
		"--after="+date+" 00:00:00",
		"--before="+date+" 23:59:59",
		"--format=%H|%s",
		"--shortstat",
	)
	if err != nil {
		return nil, err
	}
	return ParseLog(string(output)), nil
}

var statLinePattern = regexp.MustCompile(`^(\d+) files? changed(?:, (\d+) insertions?\(\+\))?(?:, (\d+) deletions?\(-\))?`)

// ParseLog parses "--format=%H|%s --shortstat" output. Each commit is a
// "<hash>|<subject>" line; the next non-empty line, if it is a shortstat
// line, supplies the change counts. Commits without a stat line get zeros.
func ParseLog(output string) []Commit {
	lines := strings.Split(output, "\n")
	commits := make([]Commit, 0, len(lines)/2)

	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			i++
			continue
		}

		pipeIndex := strings.Index(line, "|")
		if pipeIndex == -1 {
			i++
			continue
		}

		hash := line[:pipeIndex]
		if len(hash) > 7 {
			hash = hash[:7]
		}
		commit := Commit{Hash: hash, Subject: line[pipeIndex+1:]}

		i++
		for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
			i++
		}

		if i < len(lines) {
			if stats := statLinePattern.FindStringSubmatch(strings.TrimSpace(lines[i])); stats != nil {
				commit.FilesChanged = atoiOrZero(stats[1])
				commit.Insertions = atoiOrZero(stats[2])
				commit.Deletions = atoiOrZero(stats[3])
				i++
			}
		}

		commits = append(commits, commit)
	}

	return commits
}

func atoiOrZero(value string) int {
	if value == "" {
		return 0
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return parsed
}
