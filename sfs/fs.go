// Package sfs implements a simple single-volume file system: one inode per
// block, fifteen direct pointers plus one indirect table per inode, and a
// bitmap of allocated blocks.
package sfs

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/mit-pdos/go-sfs/alloc"
	"github.com/mit-pdos/go-sfs/buf"
	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/disk"
	"github.com/mit-pdos/go-sfs/inode"
	"github.com/mit-pdos/go-sfs/logger"
	"github.com/mit-pdos/go-sfs/super"
)

// Cwd identifies the directory operations are relative to.
type Cwd struct {
	Ino  common.Inum
	Name string
}

var rootCwd = Cwd{Ino: common.ROOTINUM, Name: "/"}

// FileSystem is one mounted volume. It is not safe for concurrent use.
type FileSystem struct {
	d         disk.Disk
	ownsDisk  bool
	sb        *super.Super
	alloc     *alloc.Alloc
	cwd       Cwd
	host      afero.Fs
	log       *zap.SugaredLogger
	unmounted bool
}

type Option func(*FileSystem)

// WithHost sets the host file system cpin reads from and cpout writes to.
func WithHost(fs afero.Fs) Option {
	return func(fsys *FileSystem) {
		fsys.host = fs
	}
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(fsys *FileSystem) {
		fsys.log = log
	}
}

// Mount validates the superblock of d and starts a session at the root.
func Mount(d disk.Disk, opts ...Option) (*FileSystem, error) {
	sb, err := super.Read(d)
	if err != nil {
		return nil, fmt.Errorf("mount: %w", err)
	}
	fsys := &FileSystem{
		d:    d,
		sb:   sb,
		cwd:  rootCwd,
		host: afero.NewOsFs(),
		log:  logger.WithField("volume", sb.VolName),
	}
	for _, opt := range opts {
		opt(fsys)
	}
	fsys.alloc = alloc.MkAlloc(d, sb.BitmapStart(), sb.NBitmapBlocks(), uint64(sb.NBlocks))
	if err := fsys.alloc.Load(); err != nil {
		return nil, fmt.Errorf("mount: %w", err)
	}
	fsys.log.Infow("mounted volume",
		"magic", fmt.Sprintf("%#x", sb.Magic),
		"blocks", sb.NBlocks,
		"volname", sb.VolName,
		"free", fsys.alloc.NumFree(),
	)
	return fsys, nil
}

// MountImage opens the disk image at path and mounts it. Unmount closes
// the image.
func MountImage(path string, opts ...Option) (*FileSystem, error) {
	d, err := disk.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mount: %w", err)
	}
	fsys, err := Mount(d, opts...)
	if err != nil {
		d.Close()
		return nil, err
	}
	fsys.ownsDisk = true
	fsys.log.Debugw("opened image", "path", path)
	return fsys, nil
}

// Unmount flushes the disk and ends the session. Every later call fails
// with ErrNotMounted.
func (fsys *FileSystem) Unmount() error {
	if fsys.unmounted {
		return mkErr("umount", "", ErrNotMounted)
	}
	fsys.unmounted = true
	fsys.cwd = Cwd{Ino: common.NULLINUM}
	err := fsys.d.Barrier()
	if fsys.ownsDisk {
		if cerr := fsys.d.Close(); err == nil {
			err = cerr
		}
	}
	fsys.log.Infow("unmounted volume", "volname", fsys.sb.VolName)
	if err != nil {
		return mkErr("umount", "", err)
	}
	return nil
}

func (fsys *FileSystem) Cwd() Cwd {
	return fsys.cwd
}

// Super returns a copy of the superblock.
func (fsys *FileSystem) Super() super.Super {
	return *fsys.sb
}

// NumFree reports how many blocks are still free.
func (fsys *FileSystem) NumFree() (uint64, error) {
	if fsys.unmounted {
		return 0, mkErr("info", "", ErrNotMounted)
	}
	if err := fsys.alloc.Load(); err != nil {
		return 0, mkErr("info", "", err)
	}
	return fsys.alloc.NumFree(), nil
}

// Bitmap returns the on-disk allocation bitmap, one bit per block, least
// significant bit first.
func (fsys *FileSystem) Bitmap() ([]byte, error) {
	if fsys.unmounted {
		return nil, mkErr("bitmap", "", ErrNotMounted)
	}
	if err := fsys.alloc.Load(); err != nil {
		return nil, mkErr("bitmap", "", err)
	}
	return fsys.alloc.Bytes(), nil
}

// begin checks the session and loads the current directory inode. A
// current directory that is not a directory means the volume is corrupt.
func (fsys *FileSystem) begin(op string, path string) (*inode.Inode, error) {
	if fsys.unmounted {
		return nil, mkErr(op, path, ErrNotMounted)
	}
	cwd, err := inode.Read(fsys.d, fsys.cwd.Ino)
	if err != nil {
		return nil, mkErr(op, path, err)
	}
	if !cwd.IsDir() {
		panic(fmt.Sprintf("%s: current directory inode %d is a %v", op, fsys.cwd.Ino, cwd.Type))
	}
	return cwd, nil
}

// beginMutation is begin plus the bitmap reload every allocating or
// freeing operation starts with.
func (fsys *FileSystem) beginMutation(op string, path string) (*inode.Inode, error) {
	cwd, err := fsys.begin(op, path)
	if err != nil {
		return nil, err
	}
	if err := fsys.alloc.Load(); err != nil {
		return nil, mkErr(op, path, err)
	}
	return cwd, nil
}

func (fsys *FileSystem) allocBlock() (common.Bnum, error) {
	bn, err := fsys.alloc.AllocNum()
	if errors.Is(err, alloc.ErrExhausted) {
		return common.NULLBNUM, ErrNoBlockAvailable
	}
	return bn, err
}

// release zeroes block bn and returns it to the allocator.
func (fsys *FileSystem) release(bn common.Bnum) error {
	if err := buf.MkBufZero(bn).WriteDirect(fsys.d); err != nil {
		return err
	}
	return fsys.alloc.FreeNum(bn)
}

func (fsys *FileSystem) writeCwd(cwd *inode.Inode) error {
	return cwd.Write(fsys.d, fsys.cwd.Ino)
}
