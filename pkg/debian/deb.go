package debian

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/blakesmith/ar"
	"github.com/ulikunitz/xz"
)

var (
	// ErrMissingData indicates a .deb with no data.tar member.
	ErrMissingData = errors.New("data archive not found")
	// ErrMissingControl indicates a .deb with no control.tar member.
	ErrMissingControl = errors.New("control archive not found")
)

// codec identifies the compression of an inner tar member. It is resolved
// once per member at scan time so the decode path stays monomorphic.
type codec int

const (
	codecGzip codec = iota
	codecXz
)

type member struct {
	index int
	codec codec
}

// Archive is an opened .deb/.ddeb container. Opening scans the ar member
// list once and records where the control and data tarballs live; each
// accessor then reopens the file and seeks straight to its member, so two
// accessors can run in parallel without sharing a file handle and without
// the decoded archive ever being held in memory.
type Archive struct {
	path    string
	control member
	data    member
}

// OpenDeb scans the ar container at path for its control.tar.{gz,xz} and
// data.tar.{gz,xz} members. Both must be present.
func OpenDeb(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	a := &Archive{path: path, control: member{index: -1}, data: member{index: -1}}

	reader := ar.NewReader(f)
	for i := 0; ; i++ {
		hdr, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("reading archive %s: %w", path, err)
		}

		switch strings.TrimSuffix(hdr.Name, "/") {
		case "control.tar.gz":
			a.control = member{index: i, codec: codecGzip}
		case "control.tar.xz":
			a.control = member{index: i, codec: codecXz}
		case "data.tar.gz":
			a.data = member{index: i, codec: codecGzip}
		case "data.tar.xz":
			a.data = member{index: i, codec: codecXz}
		}
		if a.control.index >= 0 && a.data.index >= 0 {
			break
		}
	}

	if a.data.index < 0 {
		return nil, fmt.Errorf("%w in %s", ErrMissingData, path)
	}
	if a.control.index < 0 {
		return nil, fmt.Errorf("%w in %s", ErrMissingControl, path)
	}
	return a, nil
}

// Control extracts the control paragraph from the control member.
func (a *Archive) Control() (Paragraph, error) {
	var graph Paragraph
	err := a.openMember(a.control, func(tarR *tar.Reader) error {
		for {
			hdr, err := tarR.Next()
			if errors.Is(err, io.EOF) {
				return nil
			} else if err != nil {
				return err
			}
			if name := strings.TrimPrefix(hdr.Name, "./"); name != "control" {
				continue
			}

			graph, err = ParseControl(tarR)
			return err
		}
	})
	if err != nil {
		return nil, fmt.Errorf("reading control archive within %s: %w", a.path, err)
	}
	if graph == nil {
		return nil, fmt.Errorf("reading control archive within %s: no control file", a.path)
	}
	return graph, nil
}

// Data calls walk once per non-directory entry of the data member with the
// entry's path. File contents are not read; index generation needs paths,
// not bytes.
func (a *Archive) Data(walk func(path string)) error {
	err := a.openMember(a.data, func(tarR *tar.Reader) error {
		for {
			hdr, err := tarR.Next()
			if errors.Is(err, io.EOF) {
				return nil
			} else if err != nil {
				return err
			}
			if hdr.Typeflag == tar.TypeDir {
				continue
			}
			walk(hdr.Name)
		}
	})
	if err != nil {
		return fmt.Errorf("reading data archive within %s: %w", a.path, err)
	}
	return nil
}

// ExtractControl unpacks the control member to dst.
func (a *Archive) ExtractControl(dst string) error {
	if err := a.openMember(a.control, func(tarR *tar.Reader) error {
		return unpack(tarR, dst)
	}); err != nil {
		return fmt.Errorf("extracting control archive within %s: %w", a.path, err)
	}
	return nil
}

// ExtractData unpacks the data member to dst.
func (a *Archive) ExtractData(dst string) error {
	if err := a.openMember(a.data, func(tarR *tar.Reader) error {
		return unpack(tarR, dst)
	}); err != nil {
		return fmt.Errorf("extracting data archive within %s: %w", a.path, err)
	}
	return nil
}

// openMember reopens the container, seeks to the recorded member, wraps it
// in the member's codec and hands the tar stream to fn.
func (a *Archive) openMember(m member, fn func(*tar.Reader) error) error {
	f, err := os.Open(a.path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := ar.NewReader(f)
	for i := 0; i <= m.index; i++ {
		if _, err := reader.Next(); err != nil {
			return fmt.Errorf("seeking to member %d: %w", m.index, err)
		}
	}

	var in io.Reader
	switch m.codec {
	case codecGzip:
		gzIn, err := gzip.NewReader(reader)
		if err != nil {
			return fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gzIn.Close()
		in = gzIn
	case codecXz:
		in, err = xz.NewReader(reader)
		if err != nil {
			return fmt.Errorf("creating xz reader: %w", err)
		}
	}

	return fn(tar.NewReader(in))
}

func unpack(tarR *tar.Reader, dst string) error {
	for {
		hdr, err := tarR.Next()
		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return err
		}

		name := strings.TrimPrefix(hdr.Name, "./")
		if name == "" {
			continue
		}
		target := filepath.Join(dst, name)
		if target != filepath.Clean(dst) && !strings.HasPrefix(target, filepath.Clean(dst)+string(os.PathSeparator)) {
			return fmt.Errorf("entry %q escapes destination", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(hdr.Mode)&0o777)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tarR); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
		}
	}
}
