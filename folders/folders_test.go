package folders

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeMarker(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, MarkerName), []byte(content), 0o644); err != nil {
		t.Fatalf("write marker in %s: %v", dir, err)
	}
}

func TestParseServiceID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		content string
		want    string
		ok      bool
	}{
		{"123456", "123456", true},
		{"  42\n", "42", true},
		{"0", "0", true},
		{"", "", false},
		{"   ", "", false},
		{"12a4", "", false},
		{"-123", "", false},
		{"12 34", "", false},
		{"service: 123", "", false},
	}

	for _, tc := range cases {
		got, ok := ParseServiceID(tc.content)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseServiceID(%q) = (%q, %v), expected (%q, %v)", tc.content, got, ok, tc.want, tc.ok)
		}
	}
}

func TestDiscoverMapsMarkedFolders(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	alpha := filepath.Join(root, "alpha")
	nested := filepath.Join(root, "alpha", "tools", "cli")
	beta := filepath.Join(root, "beta")

	writeMarker(t, alpha, "111\n")
	writeMarker(t, nested, "222")
	writeMarker(t, beta, " 111 ")

	result := NewResolver(discardLogger()).Discover([]string{root})

	if got := result.Folders("111"); len(got) != 2 {
		t.Fatalf("expected 2 folders for service 111, got %v", got)
	}
	if got := result.Folders("222"); len(got) != 1 || got[0] != nested {
		t.Fatalf("expected nested folder for service 222, got %v", got)
	}
	if result.FolderCount() != 3 {
		t.Fatalf("expected 3 mapped folders, got %d", result.FolderCount())
	}
}

func TestDiscoverMarkerNotInherited(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	parent := filepath.Join(root, "parent")
	child := filepath.Join(parent, "child")

	writeMarker(t, parent, "555")
	if err := os.MkdirAll(child, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	result := NewResolver(discardLogger()).Discover([]string{root})

	if got := result.Folders("555"); len(got) != 1 || got[0] != parent {
		t.Fatalf("child must not inherit the parent marker, got %v", got)
	}
}

func TestDiscoverInvalidMarkerStillDescends(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	bad := filepath.Join(root, "bad")
	below := filepath.Join(bad, "good")

	writeMarker(t, bad, "not-a-service-id")
	writeMarker(t, below, "777")

	result := NewResolver(discardLogger()).Discover([]string{root})

	if len(result.Folders("777")) != 1 {
		t.Fatalf("expected traversal below invalid marker, got %v", result)
	}
	if result.FolderCount() != 1 {
		t.Fatalf("invalid marker must contribute nothing, got %v", result)
	}
}

func TestDiscoverSkipsWellKnownDirs(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeMarker(t, filepath.Join(root, "proj"), "100")
	writeMarker(t, filepath.Join(root, "proj", "node_modules", "dep"), "200")
	writeMarker(t, filepath.Join(root, "proj", ".git"), "300")
	writeMarker(t, filepath.Join(root, "proj", "dist"), "400")

	result := NewResolver(discardLogger()).Discover([]string{root})

	if result.FolderCount() != 1 {
		t.Fatalf("expected only the project folder, got %v", result)
	}
	if len(result.Folders("100")) != 1 {
		t.Fatalf("expected service 100 mapped, got %v", result)
	}
}

func TestDiscoverCustomSkipPredicate(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeMarker(t, filepath.Join(root, "keep"), "1")
	writeMarker(t, filepath.Join(root, "drop"), "2")

	resolver := NewResolverWithSkip(discardLogger(), func(name string) bool {
		return name == "drop"
	})
	result := resolver.Discover([]string{root})

	if len(result.Folders("1")) != 1 || len(result.Folders("2")) != 0 {
		t.Fatalf("custom skip predicate not honored: %v", result)
	}
}

func TestDiscoverMissingRootIsEmpty(t *testing.T) {
	t.Parallel()

	result := NewResolver(discardLogger()).Discover([]string{filepath.Join(t.TempDir(), "absent")})
	if result.FolderCount() != 0 {
		t.Fatalf("expected empty map for missing root, got %v", result)
	}
}

func TestPathWithinFolder(t *testing.T) {
	t.Parallel()

	cases := []struct {
		path   string
		folder string
		want   bool
	}{
		{"/a", "/a", true},
		{"/a/b", "/a", true},
		{"/a/b/c", "/a", true},
		{"/a/", "/a", true},
		{"/a", "/a/", true},
		{"/a2/b", "/a", false},
		{"/ab", "/a", false},
		{"/a", "/a/b", false},
		{"/", "/", true},
		{"/a", "/", true},
	}

	for _, tc := range cases {
		if got := PathWithinFolder(tc.path, tc.folder); got != tc.want {
			t.Fatalf("PathWithinFolder(%q, %q) = %v, expected %v", tc.path, tc.folder, got, tc.want)
		}
	}
}

func TestPathWithinAny(t *testing.T) {
	t.Parallel()

	list := []string{"/home/dev/alpha", "/home/dev/beta"}

	if !PathWithinAny("/home/dev/beta/src", list) {
		t.Fatalf("expected containment in beta")
	}
	if PathWithinAny("/home/dev/gamma", list) {
		t.Fatalf("expected no containment for gamma")
	}
	if PathWithinAny("/home/dev/alpha", nil) {
		t.Fatalf("expected no containment against empty folder list")
	}
}
