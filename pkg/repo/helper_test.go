package repo_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blakesmith/ar"
	"github.com/stretchr/testify/require"

	"github.com/pop-os/debrepbuild/pkg/config"
	"github.com/pop-os/debrepbuild/pkg/debian"
)

func testConfig() *config.Repo {
	return &config.Repo{
		Archive:          "bionic",
		Version:          "18.04",
		Origin:           "pop-os",
		Label:            "Pop!_OS",
		Email:            "apt@example.com",
		Bugs:             "https://bugs.example.com",
		DefaultComponent: "main",
		Architectures:    []debian.Architecture{"amd64"},
	}
}

// writeDeb writes a minimal valid package archive with the given control
// paragraph and data file paths.
func writeDeb(t *testing.T, path, control string, dataPaths []string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := ar.NewWriter(f)
	require.NoError(t, w.WriteGlobalHeader())

	writeMember := func(name string, body []byte) {
		require.NoError(t, w.WriteHeader(&ar.Header{
			Name:    name,
			ModTime: time.Unix(0, 0),
			Mode:    0o644,
			Size:    int64(len(body)),
		}))
		_, err := w.Write(body)
		require.NoError(t, err)
	}

	writeMember("debian-binary", []byte("2.0\n"))

	files := map[string]string{"./control": control}
	writeMember("control.tar.gz", gzipTar(t, files))

	data := map[string]string{}
	for _, p := range dataPaths {
		data[p] = ""
	}
	writeMember("data.tar.gz", gzipTar(t, data))
}

func gzipTar(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func controlFor(pkg, version string) string {
	return "Package: " + pkg + "\n" +
		"Version: " + version + "\n" +
		"Architecture: amd64\n" +
		"Priority: optional\n" +
		"Section: utils\n" +
		"Maintainer: Pop Dev <dev@example.com>\n" +
		"Installed-Size: 10\n" +
		"Description: a test package\n"
}
