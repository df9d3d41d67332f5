package common

import (
	"github.com/mit-pdos/go-sfs/disk"
)

const (
	NBITBLOCK uint64 = disk.BlockSize * 8

	MAGIC uint32 = 0xabadf001

	NDIRECT    uint64 = 15
	NINDIRECT  uint64 = disk.BlockSize / 4
	MAXFILEBLK uint64 = NDIRECT + NINDIRECT
	MAXFILESZ  uint64 = MAXFILEBLK * disk.BlockSize

	NAMELEN        uint64 = 60
	DIRENTSZ       uint64 = 4 + NAMELEN
	DENTRYPERBLOCK uint64 = disk.BlockSize / DIRENTSZ
	VOLNAMELEN     uint64 = 32
	SUPERLOCATION  uint64 = 0
	ROOTLOCATION   uint64 = 1
	MAPLOCATION    uint64 = 2
)

// Inodes live in whole blocks, so an inode number is the block number
// holding it.
type Inum uint64
type Bnum = uint64

const (
	NULLINUM Inum = 0
	ROOTINUM Inum = Inum(ROOTLOCATION)
	NULLBNUM Bnum = 0
)

// BlockRef is an optional block pointer. The zero value refers to no
// block; block 0 is the superblock and can never be referenced.
type BlockRef struct {
	bn Bnum
}

// Ref returns a reference to bn. It panics on the null block.
func Ref(bn Bnum) BlockRef {
	if bn == NULLBNUM {
		panic("Ref: null block")
	}
	return BlockRef{bn: bn}
}

// RefFromDisk decodes an on-disk pointer, where 0 means no block.
func RefFromDisk(raw uint32) BlockRef {
	return BlockRef{bn: Bnum(raw)}
}

func (r BlockRef) IsNil() bool {
	return r.bn == NULLBNUM
}

// Get returns the referenced block. It panics on a nil reference.
func (r BlockRef) Get() Bnum {
	if r.bn == NULLBNUM {
		panic("Get: nil block reference")
	}
	return r.bn
}

// ToDisk encodes the reference, mapping nil to 0.
func (r BlockRef) ToDisk() uint32 {
	return uint32(r.bn)
}
