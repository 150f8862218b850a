package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/mlaplanche/microgit/internal/testhelper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLsTreeCmd(t *testing.T) {
	t.Parallel()

	dir, cleanup := testhelper.TempDir(t)
	t.Cleanup(cleanup)

	cfg := newTestFlags(dir)
	require.NoError(t, initCmd(bytes.NewBufferString(""), cfg, true, ""))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hello world\n"), 0o644))

	treeOut := bytes.NewBufferString("")
	require.NoError(t, writeTreeCmd(treeOut, cfg))
	treeID := treeOut.String()[:40]

	t.Run("full listing", func(t *testing.T) {
		t.Parallel()

		stdout := bytes.NewBufferString("")
		err := lsTreeCmd(stdout, cfg, treeID, false)
		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "100644 blob 3b18e512dba79e4c8300dd08aeb37f8e728b8dad\thello.txt\n")
	})

	t.Run("name only", func(t *testing.T) {
		t.Parallel()

		stdout := bytes.NewBufferString("")
		err := lsTreeCmd(stdout, cfg, treeID, true)
		require.NoError(t, err)
		assert.Equal(t, "hello.txt\n", stdout.String())
	})

	t.Run("rejects a non tree object", func(t *testing.T) {
		t.Parallel()

		hashOut := bytes.NewBufferString("")
		require.NoError(t, hashObjectCmd(hashOut, cfg, filepath.Join(dir, "hello.txt"), true))

		stdout := bytes.NewBufferString("")
		err := lsTreeCmd(stdout, cfg, hashOut.String()[:40], false)
		require.Error(t, err)
	})
}
