package pool_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pop-os/debrepbuild/pkg/pool"
)

func TestDir(t *testing.T) {
	t.Parallel()
	dir, err := pool.Dir("repo", "bionic", "main", "foo_1.0_amd64.deb")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("repo", "pool", "bionic", "main", "binary-amd64", "f", "foo"), dir)

	dir, err = pool.Dir("repo", "bionic", "main", "libfoo_1.0_all.deb")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("repo", "pool", "bionic", "main", "binary-all", "libf", "libfoo"), dir)

	dir, err = pool.Dir("repo", "bionic", "main", "foo_1.0.dsc")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("repo", "pool", "bionic", "main", "source", "f", "foo"), dir)

	_, err = pool.Dir("repo", "bionic", "main", "foo_1.0_riscv128.deb")
	require.Error(t, err)

	_, err = pool.Dir("repo", "bionic", "main", "README")
	require.Error(t, err)
}

func TestPlace(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	src := filepath.Join(root, "foo_1.0_amd64.deb")
	require.NoError(t, os.WriteFile(src, []byte("deb"), 0o644))

	dst, err := pool.Place(root, "bionic", "main", src, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "pool", "bionic", "main", "binary-amd64", "f", "foo", "foo_1.0_amd64.deb"), dst)

	body, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "deb", string(body))
	// Copy keeps the source.
	_, err = os.Stat(src)
	require.NoError(t, err)

	src2 := filepath.Join(root, "foo_1.1_amd64.deb")
	require.NoError(t, os.WriteFile(src2, []byte("deb2"), 0o644))
	_, err = pool.Place(root, "bionic", "main", src2, true)
	require.NoError(t, err)
	_, err = os.Stat(src2)
	assert.True(t, os.IsNotExist(err))
}

func TestMigrate(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	for _, name := range []string{
		"pool/bionic/main/binary-amd64/f/foo/foo_1.0_amd64.deb",
		"pool/bionic/main/source/f/foo/foo_1.0.dsc",
		"pool/bionic/main/binary-amd64/b/bar/bar_1.0_amd64.deb",
	} {
		touch(t, filepath.Join(root, name))
	}

	moved, err := pool.Migrate(root, "bionic", "foo", "main", "restricted")
	require.NoError(t, err)
	assert.Equal(t, 2, moved)

	_, err = os.Stat(filepath.Join(root, "pool", "bionic", "restricted", "binary-amd64", "f", "foo", "foo_1.0_amd64.deb"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "pool", "bionic", "restricted", "source", "f", "foo", "foo_1.0.dsc"))
	require.NoError(t, err)
	// Untouched package stays put.
	_, err = os.Stat(filepath.Join(root, "pool", "bionic", "main", "binary-amd64", "b", "bar", "bar_1.0_amd64.deb"))
	require.NoError(t, err)
	// Emptied buckets are pruned.
	_, err = os.Stat(filepath.Join(root, "pool", "bionic", "main", "binary-amd64", "f"))
	assert.True(t, os.IsNotExist(err))
}

func TestMigrate_NotFound(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	touch(t, filepath.Join(root, "pool", "bionic", "main", "binary-amd64", "b", "bar", "bar_1.0_amd64.deb"))

	_, err := pool.Migrate(root, "bionic", "foo", "main", "restricted")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "foo not found")
}
