package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSegFileName(t *testing.T) {
	require.Equal(t, "rel", SegFileName("rel", 0))
	require.Equal(t, "rel.1", SegFileName("rel", 1))
	require.Equal(t, "rel.7", SegFileName("rel", 7))
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
}

func TestRemoveAllSegments(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "rel")
	touch(t, dir, "rel.1")
	touch(t, dir, "rel.2")
	touch(t, dir, "other") // must survive: different base

	require.NoError(t, RemoveAllSegments(LocalFileSet{Dir: dir, Base: "rel"}))

	_, err := os.Stat(filepath.Join(dir, "rel"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "rel.1"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "other"))
	require.NoError(t, err)
}

func TestRenameAllSegments(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	touch(t, srcDir, "rel")
	touch(t, srcDir, "rel.1")

	oldFS := LocalFileSet{Dir: srcDir, Base: "rel"}
	newFS := LocalFileSet{Dir: dstDir, Base: "rel2"}
	require.NoError(t, RenameAllSegments(oldFS, newFS))

	_, err := os.Stat(filepath.Join(dstDir, "rel2"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dstDir, "rel2.1"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(srcDir, "rel"))
	require.True(t, os.IsNotExist(err))
}

func TestRenameAllSegments_RefusesToOverwriteExistingTarget(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	touch(t, srcDir, "rel")
	touch(t, dstDir, "rel2")

	err := RenameAllSegments(LocalFileSet{Dir: srcDir, Base: "rel"}, LocalFileSet{Dir: dstDir, Base: "rel2"})
	require.Error(t, err)
	// Source must be untouched since the rename was refused up front.
	_, err = os.Stat(filepath.Join(srcDir, "rel"))
	require.NoError(t, err)
}

func TestFsKeyOf(t *testing.T) {
	key, lfs, ok := FsKeyOf(LocalFileSet{Dir: "/tmp/data/", Base: "rel"})
	require.True(t, ok)
	require.Equal(t, "/tmp/data|rel", key)
	require.Equal(t, "/tmp/data", lfs.Dir)

	_, _, ok = FsKeyOf(fakeFileSet{})
	require.False(t, ok)
}

type fakeFileSet struct{}

func (fakeFileSet) OpenSegment(int32) (*os.File, error) { return nil, nil }
