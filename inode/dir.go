package inode

import (
	"bytes"
	"fmt"

	"github.com/mit-pdos/go-sfs/buf"
	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/disk"
)

const (
	Dot    = "."
	DotDot = ".."
)

// A Dirent binds a name to an inode. Ino is NULLINUM for a free slot.
type Dirent struct {
	Ino  common.Inum
	Name string
}

func (de Dirent) IsFree() bool {
	return de.Ino == common.NULLINUM
}

// DirBlock is one block of directory entries.
type DirBlock [common.DENTRYPERBLOCK]Dirent

// MkDirBlock returns the first block of a new directory.
func MkDirBlock(self common.Inum, parent common.Inum) *DirBlock {
	db := &DirBlock{}
	db[0] = Dirent{Ino: self, Name: Dot}
	db[1] = Dirent{Ino: parent, Name: DotDot}
	return db
}

// FreeSlot returns the first free entry.
func (db *DirBlock) FreeSlot() (uint64, bool) {
	for i, de := range db {
		if de.IsFree() {
			return uint64(i), true
		}
	}
	return 0, false
}

// Lookup returns the in-use entry called name.
func (db *DirBlock) Lookup(name string) (uint64, bool) {
	for i, de := range db {
		if !de.IsFree() && de.Name == name {
			return uint64(i), true
		}
	}
	return 0, false
}

func (db *DirBlock) Encode(bn common.Bnum) *buf.Buf {
	b := buf.MkBufZero(bn)
	for i, de := range db {
		off := uint64(i) * common.DIRENTSZ
		buf.Put32(b.Blk, off, uint32(de.Ino))
		copy(b.Blk[off+4:off+common.DIRENTSZ], de.Name)
	}
	return b
}

func DecodeDirBlock(b *buf.Buf) *DirBlock {
	db := &DirBlock{}
	for i := range db {
		off := uint64(i) * common.DIRENTSZ
		name := b.Blk[off+4 : off+common.DIRENTSZ]
		if n := bytes.IndexByte(name, 0); n >= 0 {
			name = name[:n]
		}
		db[i] = Dirent{
			Ino:  common.Inum(buf.Get32(b.Blk, off)),
			Name: string(name),
		}
	}
	return db
}

func ReadDirBlock(d disk.Disk, bn common.Bnum) (*DirBlock, error) {
	b, err := buf.MkBufLoad(d, bn)
	if err != nil {
		return nil, fmt.Errorf("read directory block %d: %w", bn, err)
	}
	return DecodeDirBlock(b), nil
}

func (db *DirBlock) Write(d disk.Disk, bn common.Bnum) error {
	if err := db.Encode(bn).WriteDirect(d); err != nil {
		return fmt.Errorf("write directory block %d: %w", bn, err)
	}
	return nil
}
