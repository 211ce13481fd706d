// Package pool reads and writes the pool directory tree that holds the
// actual package archives.
package pool

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"pault.ag/go/debian/version"
)

// Candidate is one package archive discovered in a pool bucket.
type Candidate struct {
	Name    string
	Version string
	Path    string
}

// archiveExts are the filename extensions the scanner recognizes, longest
// first so .tar.gz is trimmed before .gz could be.
var archiveExts = []string{
	".tar.gz",
	".tar.xz",
	".tar.zst",
	".deb",
	".ddeb",
	".dsc",
}

// Candidates walks the tree rooted at dir, recursing through the
// first-letter and package-name buckets, and returns one candidate per
// package name: the one whose version compares greatest under Debian
// version ordering. Equal versions break to the lexically greater path, so
// the result is independent of directory iteration order.
//
// Debug-symbol archives (.ddeb extension or -dbgsym name suffix) are
// tracked under their own key and never displace the regular package.
func Candidates(dir string) ([]Candidate, error) {
	type retained struct {
		Candidate
		version version.Version
	}
	best := map[string]retained{}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		cand, debug, ok := parseFilename(path)
		if !ok {
			return nil
		}
		ver, err := version.Parse(cand.Version)
		if err != nil {
			slog.Warn("skipping archive with unparseable version",
				slog.String("path", path),
				slog.String("version", cand.Version),
			)
			return nil
		}

		key := cand.Name
		if debug {
			key += "_d"
		}
		if prev, ok := best[key]; ok {
			switch cmp := version.Compare(prev.version, ver); {
			case cmp > 0:
				return nil
			case cmp == 0 && prev.Path > cand.Path:
				return nil
			}
		}
		best[key] = retained{Candidate: cand, version: ver}
		return nil
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(best))
	for _, r := range best {
		candidates = append(candidates, r.Candidate)
	}
	return candidates, nil
}

// parseFilename splits a pool filename of the form name_version[_arch].ext
// into a candidate. The second return reports a debug-symbol archive.
func parseFilename(path string) (Candidate, bool, bool) {
	base := filepath.Base(path)

	var ext string
	for _, e := range archiveExts {
		if strings.HasSuffix(base, e) {
			ext = e
			break
		}
	}
	if ext == "" {
		return Candidate{}, false, false
	}

	parts := strings.SplitN(strings.TrimSuffix(base, ext), "_", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Candidate{}, false, false
	}
	// Source tarballs carry an .orig marker between version and extension.
	ver := strings.TrimSuffix(parts[1], ".orig")

	debug := ext == ".ddeb" || strings.HasSuffix(parts[0], "-dbgsym")
	return Candidate{Name: parts[0], Version: ver, Path: path}, debug, true
}
