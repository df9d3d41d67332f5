// Package shell is the line-oriented front end to an sfs volume: it parses
// commands, calls the matching FileSystem operation and prints the result.
package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mit-pdos/go-sfs/addr"
	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/disk"
	"github.com/mit-pdos/go-sfs/logger"
	"github.com/mit-pdos/go-sfs/sfs"
	"github.com/mit-pdos/go-sfs/util"
)

var errUsage = errors.New("usage")

type command struct {
	args  string
	help  string
	nargs []int // accepted argument counts
	run   func(sh *Shell, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"mount":  {"IMAGE", "mount a disk image", []int{1}, (*Shell).mount},
		"umount": {"", "unmount the current volume", []int{0}, (*Shell).umount},
		"touch":  {"NAME", "create an empty file", []int{1}, (*Shell).touch},
		"mkdir":  {"NAME", "create a directory", []int{1}, (*Shell).mkdir},
		"rmdir":  {"NAME", "remove an empty directory", []int{1}, (*Shell).rmdir},
		"rm":     {"NAME", "remove a file", []int{1}, (*Shell).rm},
		"mv":     {"SRC DST", "rename an entry", []int{2}, (*Shell).mv},
		"ls":     {"[NAME]", "list a directory", []int{0, 1}, (*Shell).ls},
		"cd":     {"[NAME]", "change directory (root if omitted)", []int{0, 1}, (*Shell).cd},
		"cpin":   {"NAME HOSTPATH", "copy a host file in", []int{2}, (*Shell).cpin},
		"cpout":  {"NAME HOSTPATH", "copy a file out to the host", []int{2}, (*Shell).cpout},
		"dump":   {"", "dump metadata below the current directory", []int{0}, (*Shell).dump},
		"bitmap": {"", "print the allocation bitmap", []int{0}, (*Shell).bitmap},
		"info":   {"", "print volume information", []int{0}, (*Shell).info},
		"help":   {"", "list commands", []int{0}, (*Shell).help},
	}
}

// Shell runs commands against at most one mounted volume.
type Shell struct {
	Prompt string
	out    io.Writer
	opts   []sfs.Option
	fsys   *sfs.FileSystem
}

// New returns a shell printing to out. opts are passed to every mount.
func New(out io.Writer, opts ...sfs.Option) *Shell {
	return &Shell{Prompt: "sfs> ", out: out, opts: opts}
}

// Run executes commands read from in until EOF or "exit".
func (sh *Shell) Run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(sh.out, sh.Prompt)
		if !scanner.Scan() {
			break
		}
		if quit := sh.Exec(scanner.Text()); quit {
			break
		}
	}
	if sh.fsys != nil {
		sh.umount(nil)
	}
	return scanner.Err()
}

// Exec runs one command line and reports whether the shell should exit.
// Errors are printed, not returned.
func (sh *Shell) Exec(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	name, args := fields[0], fields[1:]
	if name == "exit" || name == "quit" {
		return true
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(sh.out, "%s: unknown command (try help)\n", name)
		return false
	}
	if !accepts(cmd.nargs, len(args)) {
		fmt.Fprintf(sh.out, "%s: usage: %s %s\n", name, name, cmd.args)
		return false
	}
	if name != "mount" && name != "help" && sh.fsys == nil {
		fmt.Fprintf(sh.out, "%s: %v\n", name, sfs.ErrNotMounted)
		return false
	}
	if err := cmd.run(sh, args); err != nil {
		logger.LogDebug("command failed", map[string]interface{}{
			"command": line,
			"error":   err.Error(),
		})
		sh.report(err)
	}
	return false
}

func accepts(nargs []int, n int) bool {
	for _, a := range nargs {
		if a == n {
			return true
		}
	}
	return false
}

func (sh *Shell) report(err error) {
	var perr *sfs.PathError
	var kind sfs.Kind
	if errors.As(err, &perr) && errors.As(err, &kind) {
		util.DPrintf(1, "%v (code %d)\n", err, kind.Code())
	}
	fmt.Fprintln(sh.out, err)
}

// Mount mounts the image at path, replacing any mounted volume.
func (sh *Shell) Mount(path string) error {
	if sh.fsys != nil {
		if err := sh.umount(nil); err != nil {
			return err
		}
	}
	fsys, err := sfs.MountImage(path, sh.opts...)
	if err != nil {
		return err
	}
	sh.fsys = fsys
	sb := fsys.Super()
	fmt.Fprintf(sh.out, "Disk image: %s\n", path)
	fmt.Fprintf(sh.out, "Superblock magic: %x\n", sb.Magic)
	fmt.Fprintf(sh.out, "Number of blocks: %d\n", sb.NBlocks)
	fmt.Fprintf(sh.out, "Volume name: %s\n", sb.VolName)
	fmt.Fprintf(sh.out, "%s, mounted\n", sb.VolName)
	return nil
}

func (sh *Shell) mount(args []string) error {
	return sh.Mount(args[0])
}

func (sh *Shell) umount(args []string) error {
	err := sh.fsys.Unmount()
	sh.fsys = nil
	return err
}

func (sh *Shell) touch(args []string) error {
	return sh.fsys.Touch(args[0])
}

func (sh *Shell) mkdir(args []string) error {
	return sh.fsys.Mkdir(args[0])
}

func (sh *Shell) rmdir(args []string) error {
	return sh.fsys.Rmdir(args[0])
}

func (sh *Shell) rm(args []string) error {
	return sh.fsys.Rm(args[0])
}

func (sh *Shell) mv(args []string) error {
	return sh.fsys.Mv(args[0], args[1])
}

func optional(args []string) *string {
	if len(args) == 0 {
		return nil
	}
	return &args[0]
}

func (sh *Shell) ls(args []string) error {
	entries, err := sh.fsys.Ls(optional(args))
	if err != nil {
		return err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.String()
	}
	fmt.Fprintln(sh.out, strings.Join(names, "\t"))
	return nil
}

func (sh *Shell) cd(args []string) error {
	return sh.fsys.Cd(optional(args))
}

func (sh *Shell) cpin(args []string) error {
	return sh.fsys.Cpin(args[1], args[0])
}

func (sh *Shell) cpout(args []string) error {
	return sh.fsys.Cpout(args[0], args[1])
}

func (sh *Shell) dump(args []string) error {
	n, err := sh.fsys.Dump()
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(sh.out)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return err
	}
	return enc.Close()
}

// bitmap prints one line per bitmap byte that covers a block of the
// volume, grouped by bitmap block.
func (sh *Shell) bitmap(args []string) error {
	bm, err := sh.fsys.Bitmap()
	if err != nil {
		return err
	}
	sb := sh.fsys.Super()
	start := sb.BitmapStart()
	nbytes := util.RoundUp(uint64(sb.NBlocks), 8)
	for i := uint64(0); i < nbytes; i++ {
		a := addr.MkBitAddr(start, i*8)
		b := bm[a.Byte(start)]
		if a.Off == 0 {
			fmt.Fprintf(sh.out, "Bitmap block %d (disk block %d)\n", a.Blkno-start, a.Blkno)
			fmt.Fprintf(sh.out, "Byte index\tHexa\tBit(LSB-MSB)\n")
		}
		var bits strings.Builder
		for bit := uint(0); bit < 8; bit++ {
			fmt.Fprintf(&bits, "%d", (b>>bit)&1)
		}
		fmt.Fprintf(sh.out, "\t%d\t%02x\t%s\n", a.Off/8, b, bits.String())
	}
	return nil
}

func (sh *Shell) info(args []string) error {
	free, err := sh.fsys.NumFree()
	if err != nil {
		return err
	}
	sb := sh.fsys.Super()
	cwd := sh.fsys.Cwd()
	fmt.Fprintf(sh.out, "Volume name: %s\n", sb.VolName)
	fmt.Fprintf(sh.out, "Blocks: %d (%d free, %d bytes each)\n", sb.NBlocks, free, disk.BlockSize)
	fmt.Fprintf(sh.out, "Max file size: %d bytes\n", common.MAXFILESZ)
	fmt.Fprintf(sh.out, "Current directory: %s (inode %d)\n", cwd.Name, cwd.Ino)
	return nil
}

func (sh *Shell) help(args []string) error {
	for _, name := range []string{"mount", "umount", "touch", "mkdir", "rmdir", "rm",
		"mv", "ls", "cd", "cpin", "cpout", "dump", "bitmap", "info", "help"} {
		cmd := commands[name]
		fmt.Fprintf(sh.out, "  %-28s %s\n", strings.TrimSpace(name+" "+cmd.args), cmd.help)
	}
	fmt.Fprintf(sh.out, "  %-28s %s\n", "exit", "leave the shell")
	return nil
}
