package repo

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pop-os/debrepbuild/pkg/checksum"
	"github.com/pop-os/debrepbuild/pkg/config"
	"github.com/pop-os/debrepbuild/pkg/debian"
)

// WriteBinaryRelease writes the small per-directory Release stanza into a
// binary-<arch> component directory. Plain text, never compressed; the
// cryptographic signing happens over the top-level Release only.
func WriteBinaryRelease(dir string, cfg *config.Repo, component debian.Component, arch debian.Architecture) error {
	f, err := os.Create(filepath.Join(dir, "Release"))
	if err != nil {
		return err
	}

	graph := debian.Paragraph{
		"Archive":      cfg.Archive,
		"Version":      cfg.Version,
		"Component":    string(component),
		"Origin":       cfg.Origin,
		"Label":        cfg.Label,
		"Architecture": string(arch),
	}
	if err := debian.WriteControl(f, graph, []string{
		"Archive", "Version", "Component", "Origin", "Label", "Architecture",
	}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// releaseExcluded are the dist files never listed in the Release digest
// sections, since they are derived from Release itself.
var releaseExcluded = map[string]bool{
	"Release":     true,
	"Release.gpg": true,
	"InRelease":   true,
}

// WriteRelease writes the top-level dists/<suite>/Release file: the suite
// paragraph followed by MD5Sum/SHA1/SHA256/SHA512 sections listing every
// index file under the dist tree.
func WriteRelease(distDir string, cfg *config.Repo, components []debian.Component, now time.Time) error {
	f, err := os.Create(filepath.Join(distDir, "Release"))
	if err != nil {
		return err
	}
	defer f.Close()

	archs := make([]string, 0, len(cfg.Architectures))
	for _, arch := range cfg.Architectures {
		archs = append(archs, string(arch))
	}
	comps := make([]string, 0, len(components))
	for _, c := range components {
		comps = append(comps, string(c))
	}
	sort.Strings(comps)

	graph := debian.Paragraph{
		"Origin":        cfg.Origin,
		"Label":         cfg.Label,
		"Suite":         cfg.Archive,
		"Version":       cfg.Version,
		"Codename":      cfg.Archive,
		"Date":          now.UTC().Format(time.RFC1123Z),
		"Architectures": strings.Join(archs, " "),
		"Components":    strings.Join(comps, " "),
		"Description":   fmt.Sprintf("%s %s %s", cfg.Origin, cfg.Archive, cfg.Version),
	}
	if err := debian.WriteControl(f, graph, []string{
		"Origin", "Label", "Suite", "Version", "Codename", "Date",
		"Architectures", "Components", "Description",
	}); err != nil {
		return err
	}

	files, err := distFiles(distDir)
	if err != nil {
		return err
	}
	for _, section := range []struct {
		name string
		hash func() hash.Hash
	}{
		{name: "MD5Sum", hash: md5.New},
		{name: "SHA1", hash: sha1.New},
		{name: "SHA256", hash: sha256.New},
		{name: "SHA512", hash: sha512.New},
	} {
		if _, err := fmt.Fprintf(f, "%s:\n", section.name); err != nil {
			return err
		}
		for _, file := range files {
			digest, err := checksum.Digest(filepath.Join(distDir, file.rel), section.hash())
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(f, " %s %16d %s\n", digest, file.size, file.rel); err != nil {
				return err
			}
		}
	}
	return nil
}

type distFile struct {
	rel  string
	size int64
}

// distFiles lists every file under distDir except the Release files
// themselves, sorted by relative path.
func distFiles(distDir string) ([]distFile, error) {
	var files []distFile
	err := filepath.WalkDir(distDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(distDir, path)
		if err != nil {
			return err
		}
		if releaseExcluded[rel] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, distFile{rel: filepath.ToSlash(rel), size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].rel < files[j].rel })
	return files, nil
}
