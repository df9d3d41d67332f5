package alloc

import (
	"errors"
	"fmt"

	"github.com/mit-pdos/go-sfs/addr"
	"github.com/mit-pdos/go-sfs/buf"
	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/disk"
	"github.com/mit-pdos/go-sfs/util"
)

var ErrExhausted = errors.New("no free block")

// Alloc uses an on-disk bit map to allocate and free block numbers. Bit n
// tracks block n; block 0 is never handed out. The in-memory copy is
// written through after every change.
type Alloc struct {
	d      disk.Disk
	start  common.Bnum // first bitmap block
	len    uint64      // bitmap blocks
	nbits  uint64      // valid bits, one per block on the volume
	bitmap []byte
}

func MkAlloc(d disk.Disk, start common.Bnum, len uint64, nbits uint64) *Alloc {
	if nbits > len*common.NBITBLOCK {
		panic("MkAlloc: bitmap too small")
	}
	a := &Alloc{
		d:      d,
		start:  start,
		len:    len,
		nbits:  nbits,
		bitmap: make([]byte, len*disk.BlockSize),
	}
	return a
}

// Load re-reads the whole bitmap from disk.
func (a *Alloc) Load() error {
	for i := uint64(0); i < a.len; i++ {
		b, err := buf.MkBufLoad(a.d, a.start+i)
		if err != nil {
			return fmt.Errorf("load bitmap: %w", err)
		}
		copy(a.bitmap[i*disk.BlockSize:], b.Blk)
	}
	return nil
}

// Flush writes every bitmap block back to disk.
func (a *Alloc) Flush() error {
	for i := uint64(0); i < a.len; i++ {
		blk := a.bitmap[i*disk.BlockSize : (i+1)*disk.BlockSize]
		b := buf.MkBuf(a.start+i, blk)
		if err := b.WriteDirect(a.d); err != nil {
			return fmt.Errorf("flush bitmap: %w", err)
		}
	}
	return nil
}

func (a *Alloc) isSet(n uint64) bool {
	return a.bitmap[n/8]&(1<<(n%8)) != 0
}

func (a *Alloc) setBit(n uint64) {
	a.bitmap[n/8] = a.bitmap[n/8] | (1 << (n % 8))
}

func (a *Alloc) clearBit(n uint64) {
	a.bitmap[n/8] = a.bitmap[n/8] & ^(1 << (n % 8))
}

// Returns the lowest clear bit below nbits. Whole bytes are scanned
// first, skipping full ones; the byte straddling nbits is only scanned up
// to the boundary.
func (a *Alloc) findFreeBit() (uint64, bool) {
	full := a.nbits / 8
	for i := uint64(0); i < full; i++ {
		if a.bitmap[i] == 0xff {
			continue
		}
		for bit := uint64(0); bit < 8; bit++ {
			n := i*8 + bit
			if n != common.NULLBNUM && !a.isSet(n) {
				return n, true
			}
		}
	}
	for bit := uint64(0); bit < a.nbits%8; bit++ {
		n := full*8 + bit
		if n != common.NULLBNUM && !a.isSet(n) {
			return n, true
		}
	}
	return 0, false
}

// AllocNum claims the lowest free block and persists the bitmap.
func (a *Alloc) AllocNum() (common.Bnum, error) {
	num, ok := a.findFreeBit()
	if !ok {
		return common.NULLBNUM, ErrExhausted
	}
	a.setBit(num)
	if err := a.Flush(); err != nil {
		a.clearBit(num)
		return common.NULLBNUM, err
	}
	util.DPrintf(5, "AllocNum: %d (bit %v)\n", num, a.BitAddr(num))
	return common.Bnum(num), nil
}

// FreeNum releases block num and persists the bitmap. Releasing a block
// the caller does not hold is a caller bug.
func (a *Alloc) FreeNum(num common.Bnum) error {
	if num == common.NULLBNUM {
		panic("FreeNum")
	}
	if num >= a.nbits {
		panic("FreeNum: out of range")
	}
	a.clearBit(num)
	if err := a.Flush(); err != nil {
		a.setBit(num)
		return err
	}
	util.DPrintf(5, "FreeNum: %d\n", num)
	return nil
}

// MarkUsed sets bit n in memory only; callers Flush when done.
func (a *Alloc) MarkUsed(n uint64) {
	if n >= a.len*common.NBITBLOCK {
		panic("MarkUsed")
	}
	a.setBit(n)
}

func (a *Alloc) IsUsed(n uint64) bool {
	return a.isSet(n)
}

// BitAddr locates block n's bit within the bitmap blocks.
func (a *Alloc) BitAddr(n uint64) addr.Addr {
	return addr.MkBitAddr(a.start, n)
}

func popCnt(b byte) uint64 {
	var count uint64
	var x = b
	for i := uint64(0); i < 8; i++ {
		count += uint64(x & 1)
		x = x >> 1
	}
	return count
}

// NumFree counts blocks the allocator could still hand out.
func (a *Alloc) NumFree() uint64 {
	full := a.nbits / 8
	var used uint64
	for _, b := range a.bitmap[:full] {
		used += popCnt(b)
	}
	for bit := uint64(0); bit < a.nbits%8; bit++ {
		if a.isSet(full*8 + bit) {
			used++
		}
	}
	if a.nbits > 0 && !a.isSet(0) {
		used++
	}
	return a.nbits - used
}

// Bytes returns a copy of the bitmap.
func (a *Alloc) Bytes() []byte {
	return util.CloneByteSlice(a.bitmap)
}
