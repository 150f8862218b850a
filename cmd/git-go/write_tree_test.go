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

func TestWriteTreeCmd(t *testing.T) {
	t.Parallel()

	dir, cleanup := testhelper.TempDir(t)
	t.Cleanup(cleanup)

	cfg := newTestFlags(dir)
	require.NoError(t, initCmd(bytes.NewBufferString(""), cfg, true, ""))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hello world\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "nested.txt"), []byte("nested\n"), 0o644))

	stdout := bytes.NewBufferString("")
	err := writeTreeCmd(stdout, cfg)
	require.NoError(t, err)
	assert.Len(t, stdout.String(), 41) // 40 hex chars + newline

	treeID := stdout.String()[:40]
	lsOut := bytes.NewBufferString("")
	require.NoError(t, lsTreeCmd(lsOut, cfg, treeID, true))
	assert.Equal(t, "hello.txt\nsub\n", lsOut.String())
}

func TestWriteTreeCmdEmptyDirectory(t *testing.T) {
	t.Parallel()

	dir, cleanup := testhelper.TempDir(t)
	t.Cleanup(cleanup)

	cfg := newTestFlags(dir)
	require.NoError(t, initCmd(bytes.NewBufferString(""), cfg, true, ""))

	stdout := bytes.NewBufferString("")
	err := writeTreeCmd(stdout, cfg)
	require.NoError(t, err)
	assert.Equal(t, "4b825dc642cb6eb9a060e54bf8d69288fbee4904\n", stdout.String())
}
