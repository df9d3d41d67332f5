package inode

import (
	"fmt"

	"github.com/mit-pdos/go-sfs/buf"
	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/disk"
	"github.com/mit-pdos/go-sfs/util"
)

type Type uint16

const (
	INVAL Type = 0
	FILE  Type = 1
	DIR   Type = 2
)

func (t Type) String() string {
	switch t {
	case FILE:
		return "file"
	case DIR:
		return "dir"
	default:
		return fmt.Sprintf("invalid(%d)", uint16(t))
	}
}

// On-disk layout, in 4-byte words: size, type|linkcount<<16, direct
// pointers, indirect pointer. The rest of the block is unused.
const (
	sizeSlot     uint64 = 0
	typeSlot     uint64 = 1
	directSlot   uint64 = 2
	indirectSlot uint64 = directSlot + common.NDIRECT
)

// An Inode occupies a whole block; its inode number is that block's number.
type Inode struct {
	Size      uint32
	Type      Type
	Linkcount uint16
	Direct    [common.NDIRECT]common.BlockRef
	Indirect  common.BlockRef
}

func MkInode(t Type) *Inode {
	return &Inode{Type: t}
}

func (ip *Inode) IsDir() bool {
	return ip.Type == DIR
}

func (ip *Inode) IsFile() bool {
	return ip.Type == FILE
}

// NBlocks is the number of content blocks needed for Size bytes.
func (ip *Inode) NBlocks() uint64 {
	return util.RoundUp(uint64(ip.Size), disk.BlockSize)
}

// FreeDirect returns the first unused direct pointer slot.
func (ip *Inode) FreeDirect() (uint64, bool) {
	for i, r := range ip.Direct {
		if r.IsNil() {
			return uint64(i), true
		}
	}
	return 0, false
}

func (ip *Inode) Encode(ino common.Inum) *buf.Buf {
	b := buf.MkBufZero(common.Bnum(ino))
	buf.Put32(b.Blk, sizeSlot*4, ip.Size)
	buf.Put32(b.Blk, typeSlot*4, uint32(ip.Type)|uint32(ip.Linkcount)<<16)
	for i, r := range ip.Direct {
		b.BnumPut(directSlot+uint64(i), r)
	}
	b.BnumPut(indirectSlot, ip.Indirect)
	return b
}

func Decode(b *buf.Buf) *Inode {
	ip := &Inode{}
	ip.Size = buf.Get32(b.Blk, sizeSlot*4)
	tl := buf.Get32(b.Blk, typeSlot*4)
	ip.Type = Type(tl & 0xffff)
	ip.Linkcount = uint16(tl >> 16)
	for i := range ip.Direct {
		ip.Direct[i] = b.BnumGet(directSlot + uint64(i))
	}
	ip.Indirect = b.BnumGet(indirectSlot)
	return ip
}

func Read(d disk.Disk, ino common.Inum) (*Inode, error) {
	b, err := buf.MkBufLoad(d, common.Bnum(ino))
	if err != nil {
		return nil, fmt.Errorf("read inode %d: %w", ino, err)
	}
	return Decode(b), nil
}

func (ip *Inode) Write(d disk.Disk, ino common.Inum) error {
	util.DPrintf(10, "write inode %d: %v\n", ino, ip)
	if err := ip.Encode(ino).WriteDirect(d); err != nil {
		return fmt.Errorf("write inode %d: %w", ino, err)
	}
	return nil
}
