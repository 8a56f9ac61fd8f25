package artifacts

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func mkdirAll(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	mkdirAll(t, filepath.Dir(path))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestCleanRemovesDocumentedTargets(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "build", "lib", "widget.py"), "x")
	writeFile(t, filepath.Join(root, "dist", "widget-1.0.0.tar.gz"), "x")
	writeFile(t, filepath.Join(root, "widget.egg-info", "PKG-INFO"), "x")
	writeFile(t, filepath.Join(root, "widget", "__pycache__", "mod.pyc"), "x")
	writeFile(t, filepath.Join(root, "tests", "__pycache__", "t.pyc"), "x")
	writeFile(t, filepath.Join(root, ".pytest_cache", "v", "x"), "x")
	writeFile(t, filepath.Join(root, ".mypy_cache", "3.12", "x"), "x")
	writeFile(t, filepath.Join(root, ".coverage"), "x")
	// Must survive.
	writeFile(t, filepath.Join(root, "widget", "__init__.py"), "")
	writeFile(t, filepath.Join(root, "setup.py"), "")

	removed, err := Clean(root)
	if err != nil {
		t.Fatalf("Clean(): %v", err)
	}

	want := []string{
		".coverage",
		".mypy_cache",
		".pytest_cache",
		"build",
		"dist",
		filepath.Join("tests", "__pycache__"),
		"widget.egg-info",
		filepath.Join("widget", "__pycache__"),
	}
	if !reflect.DeepEqual(removed, want) {
		t.Fatalf("removed mismatch:\n got %v\nwant %v", removed, want)
	}

	for _, gone := range want {
		if _, err := os.Stat(filepath.Join(root, gone)); !os.IsNotExist(err) {
			t.Fatalf("expected %s to be removed", gone)
		}
	}
	for _, kept := range []string{filepath.Join("widget", "__init__.py"), "setup.py"} {
		if _, err := os.Stat(filepath.Join(root, kept)); err != nil {
			t.Fatalf("expected %s to survive: %v", kept, err)
		}
	}
}

func TestCleanSkipsVersionControlAndVenv(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".git", "__pycache__", "x"), "x")
	writeFile(t, filepath.Join(root, ".venv", "lib", "__pycache__", "x"), "x")

	removed, err := Clean(root)
	if err != nil {
		t.Fatalf("Clean(): %v", err)
	}
	if len(removed) != 0 {
		t.Fatalf("expected nothing removed, got %v", removed)
	}
	if _, err := os.Stat(filepath.Join(root, ".git", "__pycache__")); err != nil {
		t.Fatalf(".git contents must not be touched: %v", err)
	}
}

func TestCleanEmptyProject(t *testing.T) {
	removed, err := Clean(t.TempDir())
	if err != nil {
		t.Fatalf("Clean(): %v", err)
	}
	if len(removed) != 0 {
		t.Fatalf("expected no removals, got %v", removed)
	}
}

func TestTargetsDoesNotDelete(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "dist", "widget-1.0.0.tar.gz"), "x")
	writeFile(t, filepath.Join(root, "widget", "__pycache__", "mod.pyc"), "x")

	targets, err := Targets(root)
	if err != nil {
		t.Fatalf("Targets(): %v", err)
	}
	want := []string{"dist", filepath.Join("widget", "__pycache__")}
	if !reflect.DeepEqual(targets, want) {
		t.Fatalf("targets mismatch:\n got %v\nwant %v", targets, want)
	}
	for _, rel := range want {
		if _, err := os.Stat(filepath.Join(root, rel)); err != nil {
			t.Fatalf("Targets must not delete %s: %v", rel, err)
		}
	}
}

func TestListClassifiesAndDigests(t *testing.T) {
	dist := t.TempDir()
	writeFile(t, filepath.Join(dist, "widget-1.2.0.tar.gz"), "sdist-bytes")
	writeFile(t, filepath.Join(dist, "widget-1.2.0-py3-none-any.whl"), "wheel-bytes")
	writeFile(t, filepath.Join(dist, "notes.txt"), "misc")

	arts, err := List(dist)
	if err != nil {
		t.Fatalf("List(): %v", err)
	}
	if len(arts) != 3 {
		t.Fatalf("expected 3 artifacts, got %d", len(arts))
	}
	// Wheels sort first, then sdists, then the rest.
	if arts[0].Kind != KindWheel || arts[1].Kind != KindSdist || arts[2].Kind != KindOther {
		t.Fatalf("unexpected ordering: %+v", arts)
	}

	sum := sha256.Sum256([]byte("wheel-bytes"))
	if arts[0].SHA256 != hex.EncodeToString(sum[:]) {
		t.Fatalf("wrong sha256 for wheel: %s", arts[0].SHA256)
	}
	if arts[0].Size != int64(len("wheel-bytes")) {
		t.Fatalf("wrong size: %d", arts[0].Size)
	}
	if arts[0].HumanSize() == "" {
		t.Fatal("expected human size")
	}
}

func TestListMissingDistDir(t *testing.T) {
	arts, err := List(filepath.Join(t.TempDir(), "dist"))
	if err != nil {
		t.Fatalf("List(): %v", err)
	}
	if arts != nil {
		t.Fatalf("expected nil for missing dir, got %v", arts)
	}
}

func TestMetadataPrefersWheel(t *testing.T) {
	arts := []Artifact{
		{Name: "widget_tools-1.2.0.tar.gz", Kind: KindSdist},
		{Name: "widget_tools-1.2.0-py3-none-any.whl", Kind: KindWheel},
	}
	name, version, ok := Metadata(arts)
	if !ok {
		t.Fatal("expected metadata")
	}
	if name != "widget_tools" || version != "1.2.0" {
		t.Fatalf("got %s %s", name, version)
	}
}

func TestMetadataFromSdistOnly(t *testing.T) {
	arts := []Artifact{{Name: "widget-tools-0.9.1.tar.gz", Kind: KindSdist}}
	name, version, ok := Metadata(arts)
	if !ok {
		t.Fatal("expected metadata")
	}
	if name != "widget-tools" || version != "0.9.1" {
		t.Fatalf("got %s %s", name, version)
	}
}

func TestMetadataEmpty(t *testing.T) {
	if _, _, ok := Metadata(nil); ok {
		t.Fatal("expected no metadata for empty dist")
	}
}
