package super

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mit-pdos/go-sfs/buf"
	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/disk"
	"github.com/mit-pdos/go-sfs/util"
)

var (
	ErrVolumeTooSmall = errors.New("volume too small")
	ErrVolNameTooLong = errors.New("volume name too long")
	ErrSizeMismatch   = errors.New("superblock block count exceeds disk size")
)

// ErrBadMagic is returned when block 0 does not hold a superblock.
type ErrBadMagic struct {
	Found uint32
}

func (err *ErrBadMagic) Error() string {
	return fmt.Sprintf(
		"bad magic number: wanted %#x; found %#x",
		common.MAGIC,
		err.Found,
	)
}

type Super struct {
	Magic   uint32
	NBlocks uint32
	VolName string
}

func MkSuper(nblocks uint64, volname string) *Super {
	return &Super{Magic: common.MAGIC, NBlocks: uint32(nblocks), VolName: volname}
}

func (sb *Super) NBitmapBlocks() uint64 {
	return util.RoundUp(uint64(sb.NBlocks), common.NBITBLOCK)
}

func (sb *Super) BitmapStart() common.Bnum {
	return common.MAPLOCATION
}

// DataStart is the first block after the bitmap.
func (sb *Super) DataStart() common.Bnum {
	return sb.BitmapStart() + sb.NBitmapBlocks()
}

func (sb *Super) Encode() *buf.Buf {
	b := buf.MkBufZero(common.SUPERLOCATION)
	buf.Put32(b.Blk, 0, sb.Magic)
	buf.Put32(b.Blk, 4, sb.NBlocks)
	copy(b.Blk[8:8+common.VOLNAMELEN-1], sb.VolName)
	return b
}

func Decode(b *buf.Buf) *Super {
	name := b.Blk[8 : 8+common.VOLNAMELEN]
	if n := bytes.IndexByte(name, 0); n >= 0 {
		name = name[:n]
	}
	return &Super{
		Magic:   buf.Get32(b.Blk, 0),
		NBlocks: buf.Get32(b.Blk, 4),
		VolName: string(name),
	}
}

// Read loads and validates the superblock of d.
func Read(d disk.Disk) (*Super, error) {
	b, err := buf.MkBufLoad(d, common.SUPERLOCATION)
	if err != nil {
		return nil, fmt.Errorf("read superblock: %w", err)
	}
	sb := Decode(b)
	if sb.Magic != common.MAGIC {
		return nil, &ErrBadMagic{Found: sb.Magic}
	}
	sz, err := d.Size()
	if err != nil {
		return nil, fmt.Errorf("read superblock: %w", err)
	}
	if uint64(sb.NBlocks) > sz {
		return nil, fmt.Errorf("%d > %d: %w", sb.NBlocks, sz, ErrSizeMismatch)
	}
	if uint64(sb.NBlocks) <= uint64(sb.DataStart()) {
		return nil, fmt.Errorf("%d blocks: %w", sb.NBlocks, ErrVolumeTooSmall)
	}
	return sb, nil
}

func (sb *Super) Write(d disk.Disk) error {
	if err := sb.Encode().WriteDirect(d); err != nil {
		return fmt.Errorf("write superblock: %w", err)
	}
	return nil
}
