// Package artifacts manages the files Python builds produce: the clean
// targets a workflow removes and the distributions it uploads.
package artifacts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// Kind classifies a built distribution.
type Kind string

const (
	KindWheel Kind = "wheel"
	KindSdist Kind = "sdist"
	KindOther Kind = "file"
)

// Artifact is one file in the dist directory.
type Artifact struct {
	Name   string
	Path   string
	Kind   Kind
	Size   int64
	SHA256 string
}

// HumanSize renders the size for display.
func (a Artifact) HumanSize() string { return humanize.Bytes(uint64(a.Size)) }

// Top-level clean targets, removed only from the project root.
var (
	cleanDirs  = []string{"build", "dist", ".pytest_cache", ".mypy_cache"}
	cleanFiles = []string{".coverage"}
)

// Directory names removed wherever they appear in the tree.
var nestedCleanDirs = map[string]bool{
	"__pycache__": true,
}

// Directories never descended into while cleaning.
var cleanSkipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".tox":         true,
	"venv":         true,
	".venv":        true,
	"node_modules": true,
}

// Targets returns what Clean would remove under root, relative to root and
// sorted. Nothing is deleted.
func Targets(root string) ([]string, error) {
	var targets []string

	for _, d := range cleanDirs {
		if _, err := os.Stat(filepath.Join(root, d)); err == nil {
			targets = append(targets, d)
		}
	}
	for _, f := range cleanFiles {
		if _, err := os.Stat(filepath.Join(root, f)); err == nil {
			targets = append(targets, f)
		}
	}

	nested, err := nestedTargets(root)
	if err != nil {
		return nil, err
	}
	targets = append(targets, nested...)

	sort.Strings(targets)
	return targets, nil
}

// Clean removes build artifacts under root and returns the removed paths,
// relative to root and sorted.
func Clean(root string) ([]string, error) {
	targets, err := Targets(root)
	if err != nil {
		return nil, err
	}
	for _, rel := range targets {
		if err := os.RemoveAll(filepath.Join(root, rel)); err != nil {
			return nil, fmt.Errorf("remove %s: %w", rel, err)
		}
	}
	return targets, nil
}

// nestedTargets walks the tree for __pycache__ and *.egg-info directories.
// Matches are collected first and removed after the walk finishes.
func nestedTargets(root string) ([]string, error) {
	var targets []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || path == root {
			return nil
		}
		name := d.Name()
		if cleanSkipDirs[name] {
			return fs.SkipDir
		}
		if nestedCleanDirs[name] || strings.HasSuffix(name, ".egg-info") {
			rel, rerr := filepath.Rel(root, path)
			if rerr != nil {
				return rerr
			}
			targets = append(targets, rel)
			return fs.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return targets, nil
}

// List scans distDir for built distributions, newest layout first: wheels,
// then sdists, then anything else, each group sorted by name.
func List(distDir string) ([]Artifact, error) {
	entries, err := os.ReadDir(distDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", distDir, err)
	}

	var arts []Artifact
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		p := filepath.Join(distDir, e.Name())
		sum, err := fileSHA256(p)
		if err != nil {
			return nil, err
		}
		arts = append(arts, Artifact{
			Name:   e.Name(),
			Path:   p,
			Kind:   classify(e.Name()),
			Size:   info.Size(),
			SHA256: sum,
		})
	}

	order := map[Kind]int{KindWheel: 0, KindSdist: 1, KindOther: 2}
	sort.Slice(arts, func(i, j int) bool {
		if order[arts[i].Kind] != order[arts[j].Kind] {
			return order[arts[i].Kind] < order[arts[j].Kind]
		}
		return arts[i].Name < arts[j].Name
	})
	return arts, nil
}

// Paths returns the artifact file paths in listing order.
func Paths(arts []Artifact) []string {
	out := make([]string, len(arts))
	for i, a := range arts {
		out[i] = a.Path
	}
	return out
}

func classify(name string) Kind {
	switch {
	case strings.HasSuffix(name, ".whl"):
		return KindWheel
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".zip"):
		return KindSdist
	default:
		return KindOther
	}
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Metadata extracts the distribution name and version from artifact
// filenames. Wheel names are preferred since their fields are normalized
// (PEP 427); sdists are split at the last dash.
func Metadata(arts []Artifact) (name, version string, ok bool) {
	for _, a := range arts {
		if a.Kind != KindWheel {
			continue
		}
		base := strings.TrimSuffix(a.Name, ".whl")
		parts := strings.Split(base, "-")
		if len(parts) >= 2 {
			return parts[0], parts[1], true
		}
	}
	for _, a := range arts {
		if a.Kind != KindSdist {
			continue
		}
		base := a.Name
		for _, suffix := range []string{".tar.gz", ".zip"} {
			base = strings.TrimSuffix(base, suffix)
		}
		if i := strings.LastIndexByte(base, '-'); i > 0 && i < len(base)-1 {
			return base[:i], base[i+1:], true
		}
	}
	return "", "", false
}
