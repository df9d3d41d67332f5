package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-sfs/sfs"
)

func run(t *testing.T, args ...string) (string, error) {
	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestMkfsAndDump(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(old)

	img := filepath.Join(dir, "disk.img")
	out, err := run(t, "mkfs", img, "--blocks", "200", "--name", "cli")
	require.NoError(t, err)
	assert.Contains(t, out, "200 blocks")
	assert.Contains(t, out, `volume "cli"`)

	fsys, err := sfs.MountImage(img)
	require.NoError(t, err)
	require.NoError(t, fsys.Mkdir("docs"))
	require.NoError(t, fsys.Unmount())

	out, err = run(t, "dump", img)
	require.NoError(t, err)
	assert.Contains(t, out, "name: docs")
	assert.Contains(t, out, "type: dir")

	t.Setenv("SFS_IMAGE", "")
	_, err = run(t, "dump")
	assert.ErrorIs(t, err, errNoImage)
}
