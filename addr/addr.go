package addr

import (
	"fmt"

	"github.com/mit-pdos/go-sfs/common"
)

// Addr identifies the start of a disk object.
//
// Blkno is the block number containing the object, and Off is the location of
// the object within the block (expressed as a bit offset). The size of the
// object is determined by the context in which Addr is used.
type Addr struct {
	Blkno common.Bnum
	Off   uint64 // offset in bits
}

// Flatid numbers bit addresses consecutively across blocks.
func (a Addr) Flatid() uint64 {
	return uint64(a.Blkno)*common.NBITBLOCK + a.Off
}

func (a Addr) String() string {
	return fmt.Sprintf("%d:%d", a.Blkno, a.Off)
}

func MkAddr(blkno common.Bnum, off uint64) Addr {
	return Addr{Blkno: blkno, Off: off}
}

// MkBitAddr locates the bitmap bit for block n, given the first bitmap
// block.
func MkBitAddr(start common.Bnum, n uint64) Addr {
	bit := n % common.NBITBLOCK
	i := n / common.NBITBLOCK
	addr := MkAddr(start+common.Bnum(i), bit)
	return addr
}

// Byte returns the index of the bitmap byte holding the bit, counted from
// the first bitmap block.
func (a Addr) Byte(start common.Bnum) uint64 {
	return (a.Flatid() - uint64(start)*common.NBITBLOCK) / 8
}
