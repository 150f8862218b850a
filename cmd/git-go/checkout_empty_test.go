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

func TestCheckoutEmptyCmd(t *testing.T) {
	t.Parallel()

	dir, cleanup := testhelper.TempDir(t)
	t.Cleanup(cleanup)

	cfg := newTestFlags(dir)
	require.NoError(t, initCmd(bytes.NewBufferString(""), cfg, true, ""))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hello world\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "nested.txt"), []byte("nested\n"), 0o644))

	treeOut := bytes.NewBufferString("")
	require.NoError(t, writeTreeCmd(treeOut, cfg))
	treeID := treeOut.String()[:40]

	commitOut := bytes.NewBufferString("")
	require.NoError(t, commitTreeCmd(commitOut, cfg, treeID, nil, []string{"initial"}))
	commitID := commitOut.String()[:40]

	require.NoError(t, os.RemoveAll(filepath.Join(dir, "hello.txt")))
	require.NoError(t, os.RemoveAll(filepath.Join(dir, "sub")))

	err := checkoutEmptyCmd(bytes.NewBufferString(""), cfg, commitID)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "sub", "nested.txt"))
	require.NoError(t, err)
	assert.Equal(t, "nested\n", string(data))
}

func TestCheckoutEmptyCmdRejectsNonCommit(t *testing.T) {
	t.Parallel()

	dir, cleanup := testhelper.TempDir(t)
	t.Cleanup(cleanup)

	cfg := newTestFlags(dir)
	require.NoError(t, initCmd(bytes.NewBufferString(""), cfg, true, ""))

	treeOut := bytes.NewBufferString("")
	require.NoError(t, writeTreeCmd(treeOut, cfg))
	treeID := treeOut.String()[:40]

	err := checkoutEmptyCmd(bytes.NewBufferString(""), cfg, treeID)
	require.Error(t, err)
}
