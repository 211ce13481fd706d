// Package repo builds the dists index tree from the pool: package stanzas,
// Contents and Release files, and the pipeline that ties them together.
package repo

import (
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"github.com/pop-os/debrepbuild/pkg/checksum"
	"github.com/pop-os/debrepbuild/pkg/debian"
)

// FieldMissingError reports a required stanza field absent from an
// archive's control data.
type FieldMissingError struct {
	Field string
}

func (e *FieldMissingError) Error() string {
	return fmt.Sprintf("%s not found in control file", e.Field)
}

// PackageEntry is one archive's contribution to a Packages index.
type PackageEntry struct {
	Control  debian.Paragraph
	Filename string
	Size     int64
	Sums     checksum.Sums
}

// ContentsEntry is one archive's contribution to a Contents index: its
// package identifier and the file paths it installs.
type ContentsEntry struct {
	ID    string
	Paths []string
}

// stanzaField is one slot of the fixed Packages stanza layout. The order
// and optionality are a compatibility contract with APT clients.
type stanzaField struct {
	key      string
	optional bool
}

var stanzaOrder = []stanzaField{
	{key: "Package"},
	{key: "Package-Type", optional: true},
	{key: "Architecture"},
	{key: "Version"},
	{key: "Multi-Arch", optional: true},
	{key: "Auto-Built-Package", optional: true},
	{key: "Priority"},
	{key: "Section"},
	{key: "Origin", optional: true},
	{key: "Maintainer"},
	{key: "Installed-Size"},
	{key: "Provides", optional: true},
	{key: "Pre-Depends", optional: true},
	{key: "Depends", optional: true},
	{key: "Recommends", optional: true},
	{key: "Suggests", optional: true},
	{key: "Conflicts", optional: true},
	{key: "Breaks", optional: true},
	{key: "Replaces", optional: true},
	{key: "Bugs", optional: true},
	{key: "Filename"},
	{key: "Size"},
	{key: "MD5sum"},
	{key: "SHA1"},
	{key: "SHA256"},
	{key: "SHA512"},
	{key: "Homepage", optional: true},
	{key: "Description", optional: true},
	{key: "License", optional: true},
	{key: "Vendor", optional: true},
	{key: "Build-Ids", optional: true},
}

// Render serializes the entry as one Packages stanza, draining the control
// map as fields are emitted. Required fields missing from the control data
// fail with FieldMissingError; optional fields are omitted.
func (e *PackageEntry) Render(w io.Writer) error {
	graph := e.Control
	graph["Filename"] = e.Filename
	graph["Size"] = strconv.FormatInt(e.Size, 10)
	graph["MD5sum"] = e.Sums.MD5
	graph["SHA1"] = e.Sums.SHA1
	graph["SHA256"] = e.Sums.SHA256
	graph["SHA512"] = e.Sums.SHA512

	for _, field := range stanzaOrder {
		value, ok := graph[field.key]
		if !ok {
			if field.optional {
				continue
			}
			return &FieldMissingError{Field: field.key}
		}
		delete(graph, field.key)
		if _, err := fmt.Fprintf(w, "%s: %s\n", field.key, value); err != nil {
			return err
		}
	}
	return nil
}

// Builder turns archive paths into index entries. Parsed control
// paragraphs are cached keyed by path+size+mtime, so unchanged archives
// skip the control re-read on repeated builds.
type Builder struct {
	origin           string
	bugs             string
	defaultComponent debian.Component
	control          *expirable.LRU[string, debian.Paragraph]
}

// NewBuilder returns a builder injecting origin (and bugs, when non-empty)
// into every stanza.
func NewBuilder(origin, bugs string, defaultComponent debian.Component) *Builder {
	return &Builder{
		origin:           origin,
		bugs:             bugs,
		defaultComponent: defaultComponent,
		control:          expirable.NewLRU[string, debian.Paragraph](4096, nil, time.Hour),
	}
}

// Build produces the package and contents entries for one archive. The
// control read and the four checksums run in parallel; the data walk and
// identifier derive from the same archive handle as the control read, so
// the two entries can never disagree about the archive they describe.
// Filename is path made relative to root, as it will appear in the index.
func (b *Builder) Build(path, root string, component debian.Component) (*PackageEntry, *ContentsEntry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	archive, err := debian.OpenDeb(path)
	if err != nil {
		return nil, nil, err
	}

	var (
		graph debian.Paragraph
		sums  checksum.Sums
		paths []string
	)
	var eg errgroup.Group
	eg.Go(func() error {
		var err error
		if graph, err = b.controlFor(archive, path, info); err != nil {
			return err
		}
		return archive.Data(func(p string) {
			paths = append(paths, strings.TrimPrefix(p, "./"))
		})
	})
	eg.Go(func() (err error) {
		sums, err = checksum.File(path)
		return
	})
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	pkg, section := graph["Package"], graph["Section"]
	if pkg == "" || section == "" {
		return nil, nil, fmt.Errorf("did not find package + section from control archive in %s", path)
	}
	id := section + "/" + pkg
	if component != b.defaultComponent {
		id = string(component) + "/" + id
	}

	graph["Origin"] = b.origin
	if b.bugs != "" {
		graph["Bugs"] = b.bugs
	}

	filename, err := filepath.Rel(root, path)
	if err != nil {
		return nil, nil, err
	}

	entry := &PackageEntry{
		Control:  graph,
		Filename: filepath.ToSlash(filename),
		Size:     info.Size(),
		Sums:     sums,
	}
	return entry, &ContentsEntry{ID: id, Paths: paths}, nil
}

// controlFor returns the archive's control paragraph, from cache when the
// file is unchanged. The cache holds a pristine copy; callers always get
// their own map since rendering drains it.
func (b *Builder) controlFor(archive *debian.Archive, path string, info os.FileInfo) (debian.Paragraph, error) {
	key := fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
	if graph, ok := b.control.Get(key); ok {
		return maps.Clone(graph), nil
	}

	graph, err := archive.Control()
	if err != nil {
		return nil, err
	}
	b.control.Add(key, maps.Clone(graph))
	return graph, nil
}
