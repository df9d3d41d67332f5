package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-sfs/addr"
	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/disk"
)

// mkMemAlloc returns an allocator over nbits blocks whose bitmap starts at
// block 2 of a fresh in-memory disk.
func mkMemAlloc(t *testing.T, nbits uint64) (*Alloc, disk.Disk) {
	nbitblocks := (nbits + common.NBITBLOCK - 1) / common.NBITBLOCK
	d := disk.NewMemDisk(2 + nbitblocks)
	a := MkAlloc(d, 2, nbitblocks, nbits)
	require.NoError(t, a.Load())
	return a, d
}

func TestPopCnt(t *testing.T) {
	assert.Equal(t, uint64(0), popCnt(0))
	assert.Equal(t, uint64(1), popCnt(1))
	assert.Equal(t, uint64(1), popCnt(2))
	assert.Equal(t, uint64(2), popCnt(3))
	assert.Equal(t, uint64(8), popCnt(255))
}

func TestAlloc(t *testing.T) {
	assert := assert.New(t)
	max := uint64(32)
	a, _ := mkMemAlloc(t, max)

	assert.Equal(max-1, a.NumFree(), "everything (but 0) should be initially free")

	n, err := a.AllocNum()
	require.NoError(t, err)
	assert.NotEqual(uint64(0), n, "should not allocate 0")

	a.MarkUsed(n + 1)
	n2, err := a.AllocNum()
	require.NoError(t, err)
	assert.NotEqual(n+1, n2, "should not allocate something marked used")

	assert.Equal(max-4, a.NumFree(), "should have used 4 items")

	require.NoError(t, a.FreeNum(n))
	require.NoError(t, a.FreeNum(n2))
	assert.Equal(max-2, a.NumFree(), "should have freed")
}

func TestLowestFirst(t *testing.T) {
	assert := assert.New(t)
	a, _ := mkMemAlloc(t, 64)
	for _, n := range []uint64{1, 2, 3, 5, 8, 9} {
		a.MarkUsed(n)
	}
	for _, want := range []uint64{4, 6, 7, 10, 11} {
		n, err := a.AllocNum()
		require.NoError(t, err)
		assert.Equal(want, n)
	}
	require.NoError(t, a.FreeNum(6))
	n, _ := a.AllocNum()
	assert.Equal(uint64(6), n, "freed block is the lowest again")
}

func TestBoundary(t *testing.T) {
	assert := assert.New(t)
	// 13 blocks: one full byte plus five valid bits of the next.
	a, _ := mkMemAlloc(t, 13)
	var got []uint64
	for {
		n, err := a.AllocNum()
		if err != nil {
			assert.ErrorIs(err, ErrExhausted)
			break
		}
		got = append(got, n)
	}
	assert.Equal([]uint64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, got)
	assert.Equal(uint64(0), a.NumFree())
	assert.False(a.IsUsed(13), "bits past the volume are never touched")
}

func TestExhaustedDoesNotMutate(t *testing.T) {
	a, d := mkMemAlloc(t, 8)
	for i := uint64(1); i < 8; i++ {
		a.MarkUsed(i)
	}
	require.NoError(t, a.Flush())
	before, _ := d.Read(2)

	_, err := a.AllocNum()
	assert.ErrorIs(t, err, ErrExhausted)
	after, _ := d.Read(2)
	assert.Equal(t, before, after)
}

func TestRoundTrip(t *testing.T) {
	assert := assert.New(t)
	a, d := mkMemAlloc(t, 5000)
	for _, n := range []uint64{1, 7, 4100, 4999} {
		a.MarkUsed(n)
	}
	require.NoError(t, a.Flush())
	before := a.Bytes()
	onDisk, _ := d.Read(3)

	n, err := a.AllocNum()
	require.NoError(t, err)
	assert.Equal(uint64(2), n)
	require.NoError(t, a.FreeNum(n))

	assert.Equal(before, a.Bytes())
	afterDisk, _ := d.Read(3)
	assert.Equal(onDisk, afterDisk)
}

func TestPersisted(t *testing.T) {
	assert := assert.New(t)
	a, d := mkMemAlloc(t, 5000)
	for i := uint64(1); i < 4097; i++ {
		a.MarkUsed(i)
	}
	require.NoError(t, a.Flush())

	n, err := a.AllocNum()
	require.NoError(t, err)
	assert.Equal(uint64(4097), n, "allocation spills into the second bitmap block")
	assert.Equal(addr.MkAddr(3, 1), a.BitAddr(n))

	a2 := MkAlloc(d, 2, 2, 5000)
	require.NoError(t, a2.Load())
	assert.True(a2.IsUsed(4097))
	assert.Equal(a.NumFree(), a2.NumFree())
}

func TestFreeNull(t *testing.T) {
	a, _ := mkMemAlloc(t, 16)
	assert.Panics(t, func() { a.FreeNum(common.NULLBNUM) })
}
