// buf manages whole disk blocks loaded in memory and the little-endian
// 32-bit fields packed inside them.
package buf

import (
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-sfs/addr"
	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/disk"
	"github.com/mit-pdos/go-sfs/util"
)

// A Buf is the in-memory copy of one disk block (inode, directory block,
// indirect table or bitmap block).
type Buf struct {
	Addr addr.Addr
	Blk  disk.Block
}

func MkBuf(bn common.Bnum, blk disk.Block) *Buf {
	if uint64(len(blk)) != disk.BlockSize {
		panic("MkBuf: not block-sized")
	}
	b := &Buf{
		Addr: addr.MkAddr(bn, 0),
		Blk:  blk,
	}
	return b
}

// MkBufZero returns a zero-filled buffer for block bn.
func MkBufZero(bn common.Bnum) *Buf {
	b := MkBuf(bn, make(disk.Block, disk.BlockSize))
	b.Zero()
	return b
}

// MkBufLoad reads block bn into a new buf.
func MkBufLoad(d disk.Disk, bn common.Bnum) (*Buf, error) {
	blk, err := d.Read(bn)
	if err != nil {
		return nil, fmt.Errorf("load block %d: %w", bn, err)
	}
	return MkBuf(bn, blk), nil
}

// Zero clears the block contents.
func (buf *Buf) Zero() {
	for i := range buf.Blk {
		buf.Blk[i] = 0
	}
}

// WriteDirect writes the block through to d.
func (buf *Buf) WriteDirect(d disk.Disk) error {
	util.DPrintf(15, "%v: write direct\n", buf.Addr)
	if err := d.Write(buf.Addr.Blkno, buf.Blk); err != nil {
		return fmt.Errorf("write block %d: %w", buf.Addr.Blkno, err)
	}
	return nil
}

// BnumGet returns the block pointer stored in 4-byte slot i.
func (buf *Buf) BnumGet(slot uint64) common.BlockRef {
	return common.RefFromDisk(Get32(buf.Blk, slot*4))
}

func (buf *Buf) BnumPut(slot uint64, v common.BlockRef) {
	Put32(buf.Blk, slot*4, v.ToDisk())
}

// Get32 decodes the little-endian uint32 at byte offset off of b.
func Get32(b []byte, off uint64) uint32 {
	word := make([]byte, 8)
	copy(word, b[off:off+4])
	dec := marshal.NewDec(word)
	return uint32(dec.GetInt())
}

// Put32 encodes v little-endian at byte offset off of b.
func Put32(b []byte, off uint64, v uint32) {
	enc := marshal.NewEnc(8)
	enc.PutInt(uint64(v))
	copy(b[off:off+4], enc.Finish())
}
