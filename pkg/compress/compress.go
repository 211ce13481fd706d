// Package compress writes an index stream to several on-disk formats in a
// single pass.
package compress

import (
	"compress/gzip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ulikunitz/xz"
)

// Formats selects which variants of an index file are written.
type Formats struct {
	Uncompressed bool
	Gzip         bool
	XZ           bool
}

// All enables every supported format. APT requires the uncompressed variant
// alongside the compressed ones.
func All() Formats {
	return Formats{Uncompressed: true, Gzip: true, XZ: true}
}

func (f Formats) none() bool {
	return !f.Uncompressed && !f.Gzip && !f.XZ
}

// Compress streams src into dir/name{,.gz,.xz} for every enabled format.
// The stream is read exactly once and broadcast to all destinations, so the
// source is never buffered in full. Any destination error aborts the whole
// write: a partial index file is worse than none.
func Compress(name, dir string, src io.Reader, formats Formats) error {
	if err := inner(name, dir, src, formats); err != nil {
		return fmt.Errorf("failed to compress output to %s in %s: %w", name, dir, err)
	}
	return nil
}

func inner(name, dir string, src io.Reader, formats Formats) error {
	if formats.none() {
		return nil
	}

	var sinks []io.Writer
	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	if formats.Uncompressed {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		closers = append(closers, f)
		sinks = append(sinks, f)
	}
	if formats.Gzip {
		f, err := os.Create(filepath.Join(dir, name+".gz"))
		if err != nil {
			return err
		}
		gz, err := gzip.NewWriterLevel(f, gzip.BestCompression)
		if err != nil {
			return err
		}
		closers = append(closers, f, gz)
		sinks = append(sinks, gz)
	}
	if formats.XZ {
		f, err := os.Create(filepath.Join(dir, name+".xz"))
		if err != nil {
			return err
		}
		xzw, err := xz.NewWriter(f)
		if err != nil {
			return err
		}
		closers = append(closers, f, xzw)
		sinks = append(sinks, xzw)
	}

	slog.Debug("compressing index",
		slog.String("name", name),
		slog.String("dir", dir),
		slog.Bool("uncompressed", formats.Uncompressed),
		slog.Bool("gzip", formats.Gzip),
		slog.Bool("xz", formats.XZ),
	)

	if _, err := io.CopyBuffer(io.MultiWriter(sinks...), src, make([]byte, 64*1024)); err != nil {
		return err
	}

	// Close compressors before their files: closers were appended file
	// first, so walk in reverse.
	for i := len(closers) - 1; i >= 0; i-- {
		c := closers[i]
		closers = closers[:i]
		if err := c.Close(); err != nil {
			return err
		}
	}
	return nil
}
