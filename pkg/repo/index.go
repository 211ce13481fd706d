package repo

import (
	"bytes"
	"fmt"
	"log/slog"
	"sort"

	"github.com/pop-os/debrepbuild/pkg/compress"
	"github.com/pop-os/debrepbuild/pkg/debian"
)

// ArchEntries collects one architecture's index input: package entries per
// component, contents entries pooled across components.
type ArchEntries struct {
	Packages map[debian.Component][]*PackageEntry
	Contents []*ContentsEntry
}

// Entries is the merged result of the parallel entry-build stage, keyed by
// architecture. It is written once during the merge and only read after.
type Entries map[debian.Architecture]*ArchEntries

// Add merges one archive's entries into the map. Not safe for concurrent
// use: the pipeline reduces worker results on a single goroutine.
func (e Entries) Add(arch debian.Architecture, component debian.Component, pkg *PackageEntry, contents *ContentsEntry) {
	ae := e[arch]
	if ae == nil {
		ae = &ArchEntries{Packages: map[debian.Component][]*PackageEntry{}}
		e[arch] = ae
	}
	ae.Packages[component] = append(ae.Packages[component], pkg)
	ae.Contents = append(ae.Contents, contents)
}

// WritePackages renders entries sorted by filename into dir as
// Packages{,.gz,.xz}, stanzas separated by a blank line.
func WritePackages(dir string, entries []*PackageEntry, formats compress.Formats) error {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Filename < entries[j].Filename
	})

	var buf bytes.Buffer
	for i, entry := range entries {
		if i > 0 {
			buf.WriteByte('\n')
		}
		if err := entry.Render(&buf); err != nil {
			return fmt.Errorf("rendering stanza for %s: %w", entry.Filename, err)
		}
	}
	return compress.Compress("Packages", dir, &buf, formats)
}

// WriteContents flattens entries into `<path>  <package-id>` lines sorted
// by path across every component sharing the architecture, and writes them
// into dir as Contents-<arch>{,.gz,.xz}. A path claimed by two packages is
// logged naming both owners; both lines are kept.
func WriteContents(dir string, arch debian.Architecture, entries []*ContentsEntry, formats compress.Formats) error {
	type line struct {
		path string
		id   string
	}
	var lines []line
	for _, entry := range entries {
		for _, p := range entry.Paths {
			lines = append(lines, line{path: p, id: entry.ID})
		}
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].path != lines[j].path {
			return lines[i].path < lines[j].path
		}
		return lines[i].id < lines[j].id
	})

	var buf bytes.Buffer
	for i, l := range lines {
		if i > 0 && l.path == lines[i-1].path {
			slog.Warn("duplicate file in contents index",
				slog.String("path", l.path),
				slog.String("package", l.id),
				slog.String("also", lines[i-1].id),
				slog.String("arch", string(arch)),
			)
		}
		buf.WriteString(l.path)
		buf.WriteString("  ")
		buf.WriteString(l.id)
		buf.WriteByte('\n')
	}
	return compress.Compress("Contents-"+string(arch), dir, &buf, formats)
}
