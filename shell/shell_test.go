package shell

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mit-pdos/go-sfs/disk"
	"github.com/mit-pdos/go-sfs/sfs"
	"github.com/mit-pdos/go-sfs/super"
)

func mkImage(t *testing.T, nblocks uint64) string {
	path := filepath.Join(t.TempDir(), "sfs.img")
	d, err := disk.Create(path, nblocks)
	require.NoError(t, err)
	_, err = super.Format(d, "shelltest")
	require.NoError(t, err)
	require.NoError(t, d.Close())
	return path
}

type fixture struct {
	sh   *Shell
	out  *bytes.Buffer
	host afero.Fs
}

func mkShell(t *testing.T) *fixture {
	f := &fixture{out: new(bytes.Buffer), host: afero.NewMemMapFs()}
	f.sh = New(f.out, sfs.WithHost(f.host))
	require.NoError(t, f.sh.Mount(mkImage(t, 256)))
	f.out.Reset()
	return f
}

// run executes line and returns what it printed.
func (f *fixture) run(line string) string {
	f.out.Reset()
	f.sh.Exec(line)
	return f.out.String()
}

func TestMountOutput(t *testing.T) {
	out := new(bytes.Buffer)
	sh := New(out)
	path := mkImage(t, 64)
	sh.Exec("mount " + path)
	assert.Contains(t, out.String(), "Superblock magic: abadf001")
	assert.Contains(t, out.String(), "Number of blocks: 64")
	assert.Contains(t, out.String(), "shelltest, mounted")
}

func TestCommands(t *testing.T) {
	assert := assert.New(t)
	f := mkShell(t)

	assert.Equal("", f.run("touch a"))
	assert.Equal("", f.run("mkdir b"))
	assert.Equal("./\t../\ta\tb/\n", f.run("ls"))
	assert.Equal("touch: a: Already exists\n", f.run("touch a"))
	assert.Equal("", f.run("cd b"))
	assert.Equal("./\t../\n", f.run("ls"))
	assert.Equal("", f.run("cd"))
	assert.Equal("a\n", f.run("ls a"))
	assert.Equal("cd: a: Not a directory\n", f.run("cd a"))
	assert.Equal("", f.run("mv a c"))
	assert.Equal("mv: b: Already exists\n", f.run("mv c b"))
	assert.Equal("rm: b: Is a directory\n", f.run("rm b"))
	assert.Equal("", f.run("rmdir b"))
	assert.Equal("rmdir: .: Invalid argument\n", f.run("rmdir ."))
	assert.Equal("", f.run("rm c"))
	assert.Equal("./\t../\n", f.run("ls"))
}

func TestTransfer(t *testing.T) {
	assert := assert.New(t)
	f := mkShell(t)
	data := bytes.Repeat([]byte("0123456789"), 1000)
	require.NoError(t, afero.WriteFile(f.host, "/in", data, 0644))

	assert.Equal("", f.run("cpin f /in"))
	assert.Equal("", f.run("cpout f /out"))
	out, err := afero.ReadFile(f.host, "/out")
	require.NoError(t, err)
	assert.Equal(data, out)

	assert.Equal("cpout: /out: Already exists\n", f.run("cpout f /out"))
	assert.Equal("cpin: /nope: Can't open input file\n", f.run("cpin g /nope"))
}

func TestDumpYAML(t *testing.T) {
	f := mkShell(t)
	f.run("mkdir d")
	f.run("touch e")

	var root sfs.DumpNode
	require.NoError(t, yaml.Unmarshal([]byte(f.run("dump")), &root))
	assert.Equal(t, "/", root.Name)
	require.Len(t, root.Children, 4)
	assert.Equal(t, "d", root.Children[2].Name)
	assert.Equal(t, "dir", root.Children[2].Type)
	assert.Equal(t, "file", root.Children[3].Type)
}

func TestBitmapAndInfo(t *testing.T) {
	f := mkShell(t)
	out := f.run("bitmap")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "Bitmap block 0 (disk block 2)", lines[0])
	// blocks 0-3 hold the superblock, root inode, bitmap and root directory
	assert.Equal(t, "\t0\t0f\t11110000", lines[2])
	assert.Len(t, lines, 2+256/8)

	out = f.run("info")
	assert.Contains(t, out, "Volume name: shelltest")
	assert.Contains(t, out, "252 free")
	assert.Contains(t, out, "Current directory: / (inode 1)")
}

func TestUsageAndState(t *testing.T) {
	assert := assert.New(t)
	f := mkShell(t)

	assert.Equal("mv: usage: mv SRC DST\n", f.run("mv a"))
	assert.Equal("frob: unknown command (try help)\n", f.run("frob"))
	assert.Contains(f.run("help"), "cpin NAME HOSTPATH")
	assert.Equal("", f.run("umount"))
	assert.Equal("ls: No volume mounted\n", f.run("ls"))
	assert.True(f.sh.Exec("exit"))
}

func TestRun(t *testing.T) {
	out := new(bytes.Buffer)
	sh := New(out, sfs.WithHost(afero.NewMemMapFs()))
	sh.Prompt = ""
	script := "mount " + mkImage(t, 64) + "\n\ntouch x\nls\nexit\nls\n"
	require.NoError(t, sh.Run(strings.NewReader(script)))
	assert.True(t, strings.HasSuffix(out.String(), "./\t../\tx\n"))
}
