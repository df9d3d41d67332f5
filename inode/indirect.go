package inode

import (
	"fmt"

	"github.com/mit-pdos/go-sfs/buf"
	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/disk"
)

// Indirect is the table of extra content pointers an inode's indirect
// pointer refers to.
type Indirect [common.NINDIRECT]common.BlockRef

func (t *Indirect) Encode(bn common.Bnum) *buf.Buf {
	b := buf.MkBufZero(bn)
	for i, r := range t {
		b.BnumPut(uint64(i), r)
	}
	return b
}

func DecodeIndirect(b *buf.Buf) *Indirect {
	t := &Indirect{}
	for i := range t {
		t[i] = b.BnumGet(uint64(i))
	}
	return t
}

func ReadIndirect(d disk.Disk, bn common.Bnum) (*Indirect, error) {
	b, err := buf.MkBufLoad(d, bn)
	if err != nil {
		return nil, fmt.Errorf("read indirect block %d: %w", bn, err)
	}
	return DecodeIndirect(b), nil
}

func (t *Indirect) Write(d disk.Disk, bn common.Bnum) error {
	if err := t.Encode(bn).WriteDirect(d); err != nil {
		return fmt.Errorf("write indirect block %d: %w", bn, err)
	}
	return nil
}
