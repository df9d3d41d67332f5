package super

import (
	"fmt"

	"github.com/mit-pdos/go-sfs/alloc"
	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/disk"
	"github.com/mit-pdos/go-sfs/inode"
	"github.com/mit-pdos/go-sfs/logger"
)

// Format lays out an empty file system over all of d: superblock, root
// inode, bitmap, and a root directory block holding "." and "..".
func Format(d disk.Disk, volname string) (*Super, error) {
	if uint64(len(volname)) >= common.VOLNAMELEN {
		return nil, fmt.Errorf("mkfs %q: %w", volname, ErrVolNameTooLong)
	}
	nblocks, err := d.Size()
	if err != nil {
		return nil, fmt.Errorf("mkfs: %w", err)
	}
	if nblocks > 1<<32-1 {
		nblocks = 1<<32 - 1
	}
	sb := MkSuper(nblocks, volname)
	rootdir := sb.DataStart()
	// Metadata, the root directory block and at least one free block.
	if nblocks < rootdir+2 {
		return nil, fmt.Errorf("mkfs: %d blocks: %w", nblocks, ErrVolumeTooSmall)
	}

	if err := sb.Write(d); err != nil {
		return nil, fmt.Errorf("mkfs: %w", err)
	}

	root := inode.MkInode(inode.DIR)
	root.Size = uint32(2 * common.DIRENTSZ)
	root.Direct[0] = common.Ref(rootdir)
	if err := root.Write(d, common.ROOTINUM); err != nil {
		return nil, fmt.Errorf("mkfs: %w", err)
	}
	db := inode.MkDirBlock(common.ROOTINUM, common.ROOTINUM)
	if err := db.Write(d, rootdir); err != nil {
		return nil, fmt.Errorf("mkfs: %w", err)
	}

	nbitblocks := sb.NBitmapBlocks()
	a := alloc.MkAlloc(d, sb.BitmapStart(), nbitblocks, nblocks)
	for bn := uint64(0); bn <= rootdir; bn++ {
		a.MarkUsed(bn)
	}
	// Bits past the end of the volume never name a real block.
	for bn := nblocks; bn < nbitblocks*common.NBITBLOCK; bn++ {
		a.MarkUsed(bn)
	}
	if err := a.Flush(); err != nil {
		return nil, fmt.Errorf("mkfs: %w", err)
	}
	if err := d.Barrier(); err != nil {
		return nil, fmt.Errorf("mkfs: %w", err)
	}

	logger.LogInfo("formatted volume", map[string]interface{}{
		"volname": volname,
		"blocks":  nblocks,
		"free":    a.NumFree(),
	})
	return sb, nil
}
