package folders

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// MarkerName is the per-folder file that declares which Productive service id
// the folder's work counts toward. Its entire trimmed content must be a
// decimal service id.
const MarkerName = ".productive"

var defaultSkipDirs = map[string]struct{}{
	".git":         {},
	"node_modules": {},
	"dist":         {},
}

// ServiceFolderMap maps a service id to every folder declaring it.
type ServiceFolderMap map[string][]string

// Folders returns the mapped folders for a service id, possibly nil.
func (m ServiceFolderMap) Folders(serviceID string) []string {
	return m[serviceID]
}

// FolderCount is the total number of mapped folders across all service ids.
func (m ServiceFolderMap) FolderCount() int {
	total := 0
	for _, list := range m {
		total += len(list)
	}
	return total
}

// AllFolders returns every mapped folder once, in stable discovery order.
func (m ServiceFolderMap) AllFolders() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(m))
	for _, list := range m {
		for _, folder := range list {
			if _, ok := seen[folder]; ok {
				continue
			}
			seen[folder] = struct{}{}
			out = append(out, folder)
		}
	}
	return out
}

// Resolver walks scan directories looking for marker files.
type Resolver struct {
	logger *slog.Logger
	skip   func(name string) bool
}

// NewResolver builds a Resolver with the default skip set (version-control
// metadata and dependency/output directories).
func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{
		logger: logger,
		skip: func(name string) bool {
			_, ok := defaultSkipDirs[name]
			return ok
		},
	}
}

// NewResolverWithSkip builds a Resolver with a custom exclusion predicate.
func NewResolverWithSkip(logger *slog.Logger, skip func(name string) bool) *Resolver {
	return &Resolver{logger: logger, skip: skip}
}

// Discover visits every directory under the scan roots and collects marker
// declarations. Unreadable directories are skipped; an invalid marker is
// warned about and ignored, but traversal below it still proceeds. Each
// folder is judged only by its own marker, never by an ancestor's.
func (r *Resolver) Discover(scanDirs []string) ServiceFolderMap {
	result := make(ServiceFolderMap)

	for _, scanDir := range scanDirs {
		root, err := filepath.Abs(scanDir)
		if err != nil {
			root = scanDir
		}
		r.walk(root, result)
	}

	return result
}

// walk is an explicit stack traversal; children are pushed in reverse so the
// visit order matches a plain depth-first recursion.
func (r *Resolver) walk(root string, result ServiceFolderMap) {
	stack := []string{root}

	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		if serviceID, ok := r.readMarker(dir); ok {
			result[serviceID] = append(result[serviceID], dir)
		}

		for i := len(entries) - 1; i >= 0; i-- {
			entry := entries[i]
			if !entry.IsDir() {
				continue
			}
			if r.skip != nil && r.skip(entry.Name()) {
				continue
			}
			stack = append(stack, filepath.Join(dir, entry.Name()))
		}
	}
}

func (r *Resolver) readMarker(dir string) (string, bool) {
	markerPath := filepath.Join(dir, MarkerName)
	content, err := os.ReadFile(markerPath)
	if err != nil {
		return "", false
	}

	serviceID, ok := ParseServiceID(string(content))
	if !ok {
		r.logger.Warn("invalid marker file, expected numeric service id", "path", markerPath)
		return "", false
	}
	return serviceID, true
}

// ParseServiceID validates marker content: the trimmed value must be one or
// more decimal digits.
func ParseServiceID(content string) (string, bool) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", false
	}
	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return trimmed, true
}

func normalizePath(path string) string {
	trimmed := strings.TrimRight(path, "/")
	if trimmed == "" {
		return "/"
	}
	return trimmed
}

// PathWithinFolder reports whether path equals folder or lies below it.
// Containment is checked on the separator boundary, so /a2/b is not within /a.
func PathWithinFolder(path, folder string) bool {
	normalizedPath := normalizePath(path)
	normalizedFolder := normalizePath(folder)
	return normalizedPath == normalizedFolder ||
		strings.HasPrefix(normalizedPath, normalizedFolder+"/")
}

// PathWithinAny reports whether path is within at least one of the folders.
func PathWithinAny(path string, list []string) bool {
	for _, folder := range list {
		if PathWithinFolder(path, folder) {
			return true
		}
	}
	return false
}
