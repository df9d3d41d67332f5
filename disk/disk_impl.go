package disk

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/mit-pdos/go-sfs/util"
)

var _ Disk = (*FileDisk)(nil)

// FileDisk is a disk image backed by a host file.
type FileDisk struct {
	fd        int
	numBlocks uint64
}

// Open opens an existing disk image. Trailing bytes that do not fill a
// whole block are ignored.
func Open(path string) (*FileDisk, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return &FileDisk{fd: fd, numBlocks: uint64(stat.Size) / BlockSize}, nil
}

// Create creates (or truncates) a zero-filled disk image of numBlocks
// blocks.
func Create(path string, numBlocks uint64) (*FileDisk, error) {
	if numBlocks > (1<<63)/BlockSize || util.SumOverflows(numBlocks*BlockSize, BlockSize) {
		return nil, fmt.Errorf("create %s: %d blocks: %w", path, numBlocks, ErrOutOfRange)
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_TRUNC, 0666)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	if err := unix.Ftruncate(fd, int64(numBlocks*BlockSize)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("truncate %s: %w", path, err)
	}
	return &FileDisk{fd: fd, numBlocks: numBlocks}, nil
}

func (d *FileDisk) ReadTo(a uint64, buf Block) error {
	if uint64(len(buf)) != BlockSize {
		return fmt.Errorf("read %d: %d bytes: %w", a, len(buf), ErrBadBlockSize)
	}
	if a >= d.numBlocks {
		return fmt.Errorf("read %d: %w", a, ErrOutOfRange)
	}
	n, err := unix.Pread(d.fd, buf, int64(a*BlockSize))
	if err != nil {
		return fmt.Errorf("read %d: %w", a, err)
	}
	if uint64(n) != BlockSize {
		return fmt.Errorf("read %d: short read (%d bytes)", a, n)
	}
	util.DPrintf(20, "read: %v\n", a)
	return nil
}

func (d *FileDisk) Read(a uint64) (Block, error) {
	buf := make([]byte, BlockSize)
	err := d.ReadTo(a, buf)
	return buf, err
}

func (d *FileDisk) Write(a uint64, v Block) error {
	if uint64(len(v)) != BlockSize {
		return fmt.Errorf("write %d: %d bytes: %w", a, len(v), ErrBadBlockSize)
	}
	if a >= d.numBlocks {
		return fmt.Errorf("write %d: %w", a, ErrOutOfRange)
	}
	n, err := unix.Pwrite(d.fd, v, int64(a*BlockSize))
	if err != nil {
		return fmt.Errorf("write %d: %w", a, err)
	}
	if uint64(n) != BlockSize {
		return fmt.Errorf("write %d: short write (%d bytes)", a, n)
	}
	util.DPrintf(20, "write: %v\n", a)
	return nil
}

func (d *FileDisk) Size() (uint64, error) {
	return d.numBlocks, nil
}

func (d *FileDisk) Barrier() error {
	// NOTE: on macOS, this flushes to the drive but doesn't actually issue a
	// disk barrier; see https://golang.org/src/internal/poll/fd_fsync_darwin.go
	// for more details. The correct replacement is to issue a fcntl syscall with
	// cmd F_FULLFSYNC.
	if err := unix.Fsync(d.fd); err != nil {
		return fmt.Errorf("file sync failed: %w", err)
	}
	return nil
}

func (d *FileDisk) Close() error {
	return unix.Close(d.fd)
}

var _ Disk = (*MemDisk)(nil)

type MemDisk struct {
	l      *sync.RWMutex
	blocks [][BlockSize]byte
}

func NewMemDisk(numBlocks uint64) *MemDisk {
	blocks := make([][BlockSize]byte, numBlocks)
	return &MemDisk{l: new(sync.RWMutex), blocks: blocks}
}

func (d *MemDisk) ReadTo(a uint64, buf Block) error {
	if uint64(len(buf)) != BlockSize {
		return fmt.Errorf("read %d: %d bytes: %w", a, len(buf), ErrBadBlockSize)
	}
	d.l.RLock()
	defer d.l.RUnlock()
	if a >= uint64(len(d.blocks)) {
		return fmt.Errorf("read %d: %w", a, ErrOutOfRange)
	}
	copy(buf, d.blocks[a][:])
	return nil
}

func (d *MemDisk) Read(a uint64) (Block, error) {
	buf := make(Block, BlockSize)
	err := d.ReadTo(a, buf)
	return buf, err
}

func (d *MemDisk) Write(a uint64, v Block) error {
	if uint64(len(v)) != BlockSize {
		return fmt.Errorf("write %d: %d bytes: %w", a, len(v), ErrBadBlockSize)
	}
	d.l.Lock()
	defer d.l.Unlock()
	if a >= uint64(len(d.blocks)) {
		return fmt.Errorf("write %d: %w", a, ErrOutOfRange)
	}
	copy(d.blocks[a][:], v)
	return nil
}

func (d *MemDisk) Size() (uint64, error) {
	// this never changes so we assume it's safe to run lock-free
	return uint64(len(d.blocks)), nil
}

func (d *MemDisk) Barrier() error { return nil }

func (d *MemDisk) Close() error { return nil }
