package pool_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pop-os/debrepbuild/pkg/pool"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestCandidates_HighestVersionWins(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "f", "foo", "foo_1.0_amd64.deb"))
	touch(t, filepath.Join(dir, "f", "foo", "foo_1.1_amd64.deb"))

	candidates, err := pool.Candidates(dir)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "foo", candidates[0].Name)
	assert.Equal(t, "1.1", candidates[0].Version)
}

func TestCandidates_DebianOrderingNotLexical(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "f", "foo", "foo_1.0_amd64.deb"))
	touch(t, filepath.Join(dir, "f", "foo", "foo_1.0+really1.0_amd64.deb"))

	candidates, err := pool.Candidates(dir)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "1.0+really1.0", candidates[0].Version)

	// Epochs beat any upstream version, though lexically smaller.
	touch(t, filepath.Join(dir, "b", "bar", "bar_9.9_amd64.deb"))
	touch(t, filepath.Join(dir, "b", "bar", "bar_1:0.1_amd64.deb"))
	candidates, err = pool.Candidates(filepath.Join(dir, "b"))
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "1:0.1", candidates[0].Version)
}

func TestCandidates_EqualVersionsDeterministic(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a", "foo", "foo_1.0_amd64.deb"))
	touch(t, filepath.Join(dir, "b", "foo", "foo_1.0_amd64.deb"))

	candidates, err := pool.Candidates(dir)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, filepath.Join(dir, "b", "foo", "foo_1.0_amd64.deb"), candidates[0].Path)
}

func TestCandidates_DebugSymbolsSeparate(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "f", "foo", "foo_1.0_amd64.deb"))
	touch(t, filepath.Join(dir, "f", "foo", "foo_1.0_amd64.ddeb"))
	touch(t, filepath.Join(dir, "f", "foo", "foo-dbgsym_1.0_amd64.deb"))

	candidates, err := pool.Candidates(dir)
	require.NoError(t, err)
	assert.Len(t, candidates, 3)
}

func TestCandidates_IgnoresUnrecognized(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "f", "foo", "README"))
	touch(t, filepath.Join(dir, "f", "foo", "foo.deb"))
	touch(t, filepath.Join(dir, "f", "foo", "foo_1.0.dsc"))
	touch(t, filepath.Join(dir, "f", "foo", "foo_1.0.orig.tar.gz"))

	candidates, err := pool.Candidates(dir)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "1.0", candidates[0].Version)
}
