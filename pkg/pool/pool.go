package pool

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pop-os/debrepbuild/pkg/debian"
)

// letterBucket returns the first-letter directory for a package name.
// Library packages bucket under their four-character lib prefix, matching
// the Debian archive convention.
func letterBucket(name string) string {
	if strings.HasPrefix(name, "lib") && len(name) > 3 {
		return name[:4]
	}
	return name[:1]
}

// Dir returns the pool bucket directory for the archive file: binary-<arch>
// for .deb/.ddeb archives, source for everything else.
func Dir(root, suite string, component debian.Component, file string) (string, error) {
	cand, _, ok := parseFilename(file)
	if !ok {
		return "", fmt.Errorf("%s is not a recognized package archive", file)
	}

	section := "source"
	base := filepath.Base(file)
	if strings.HasSuffix(base, ".deb") || strings.HasSuffix(base, ".ddeb") {
		parts := strings.SplitN(strings.TrimSuffix(strings.TrimSuffix(base, ".deb"), ".ddeb"), "_", 3)
		if len(parts) < 3 {
			return "", fmt.Errorf("%s does not name an architecture", file)
		}
		var err error
		if section, err = debian.BinaryDir(debian.Architecture(parts[2])); err != nil {
			return "", err
		}
	}

	return filepath.Join(root, "pool", suite, string(component), section, letterBucket(cand.Name), cand.Name), nil
}

// Place moves (or copies, when move is false) a built artifact into its
// pool bucket and returns the destination path.
func Place(root, suite string, component debian.Component, file string, move bool) (string, error) {
	dir, err := Dir(root, suite, component, file)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	dst := filepath.Join(dir, filepath.Base(file))
	slog.Info("placing archive in pool",
		slog.String("src", file),
		slog.String("dst", dst),
		slog.Bool("move", move),
	)
	if move {
		return dst, moveFile(file, dst)
	}
	return dst, copyFile(file, dst)
}

// Migrate moves every file belonging to the named package from one
// component of the suite to the same location under another, and returns
// how many files moved. Empty bucket directories left behind are removed.
func Migrate(root, suite, name string, from, to debian.Component) (int, error) {
	fromRoot := filepath.Join(root, "pool", suite, string(from))

	var moved int
	err := filepath.WalkDir(fromRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if moved == 0 && path == fromRoot && os.IsNotExist(err) {
				return fmt.Errorf("component %s has no pool: %w", from, err)
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		cand, _, ok := parseFilename(path)
		if !ok || cand.Name != name {
			return nil
		}

		rel, err := filepath.Rel(fromRoot, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(root, "pool", suite, string(to), rel)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		slog.Info("migrating archive",
			slog.String("package", name),
			slog.String("from", string(from)),
			slog.String("to", string(to)),
			slog.String("file", rel),
		)
		if err := moveFile(path, dst); err != nil {
			return err
		}
		moved++
		return nil
	})
	if err != nil {
		return moved, err
	}
	if moved == 0 {
		return 0, fmt.Errorf("package %s not found in component %s", name, from)
	}

	pruneEmpty(fromRoot)
	return moved, nil
}

// moveFile renames src to dst, falling back to copy+remove when the rename
// crosses filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode()&0o777)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// pruneEmpty removes now-empty name and letter buckets under root, leaving
// root itself in place.
func pruneEmpty(root string) {
	var dirs []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	// Deepest first.
	for i := len(dirs) - 1; i >= 0; i-- {
		_ = os.Remove(dirs[i])
	}
}
