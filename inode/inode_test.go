package inode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-sfs/buf"
	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/disk"
)

func TestInodeLayout(t *testing.T) {
	assert := assert.New(t)
	ip := MkInode(DIR)
	ip.Size = 128
	ip.Linkcount = 3
	ip.Direct[0] = common.Ref(4)
	ip.Direct[14] = common.Ref(40)
	ip.Indirect = common.Ref(41)

	b := ip.Encode(7)
	assert.Equal(common.Bnum(7), b.Addr.Blkno)
	assert.Equal(uint32(128), buf.Get32(b.Blk, 0))
	assert.Equal(uint32(2|3<<16), buf.Get32(b.Blk, 4))
	assert.Equal(uint32(4), buf.Get32(b.Blk, 8))
	assert.Equal(uint32(40), buf.Get32(b.Blk, 8+14*4))
	assert.Equal(uint32(41), buf.Get32(b.Blk, 68))

	assert.Equal(ip, Decode(b))
}

func TestInodeStore(t *testing.T) {
	assert := assert.New(t)
	d := disk.NewMemDisk(8)

	ip := MkInode(FILE)
	ip.Size = 1025
	ip.Direct[0] = common.Ref(5)
	require.NoError(t, ip.Write(d, 3))

	ip2, err := Read(d, 3)
	require.NoError(t, err)
	assert.True(ip2.IsFile())
	assert.False(ip2.IsDir())
	assert.Equal(uint64(3), ip2.NBlocks())

	slot, ok := ip2.FreeDirect()
	assert.True(ok)
	assert.Equal(uint64(1), slot)

	_, err = Read(d, 8)
	assert.ErrorIs(err, disk.ErrOutOfRange)
}

func TestFreeDirectFull(t *testing.T) {
	ip := MkInode(DIR)
	for i := range ip.Direct {
		ip.Direct[i] = common.Ref(common.Bnum(10 + i))
	}
	_, ok := ip.FreeDirect()
	assert.False(t, ok)
}

func TestDirBlock(t *testing.T) {
	assert := assert.New(t)
	d := disk.NewMemDisk(8)

	db := MkDirBlock(5, 1)
	slot, ok := db.FreeSlot()
	assert.True(ok)
	assert.Equal(uint64(2), slot)
	db[slot] = Dirent{Ino: 6, Name: "hello.txt"}
	require.NoError(t, db.Write(d, 4))

	blk, _ := d.Read(4)
	assert.Equal(uint32(6), buf.Get32(blk, 2*common.DIRENTSZ))
	assert.Equal(byte('h'), blk[2*common.DIRENTSZ+4])

	db2, err := ReadDirBlock(d, 4)
	require.NoError(t, err)
	assert.Equal(db, db2)

	i, ok := db2.Lookup("hello.txt")
	assert.True(ok)
	assert.Equal(uint64(2), i)
	_, ok = db2.Lookup("missing")
	assert.False(ok)
	assert.True(db2[7].IsFree())
}

func TestLongName(t *testing.T) {
	name := make([]byte, common.NAMELEN-1)
	for i := range name {
		name[i] = 'x'
	}
	db := &DirBlock{}
	db[7] = Dirent{Ino: 2, Name: string(name)}
	assert.Equal(t, db, DecodeDirBlock(db.Encode(3)))
}

func TestIndirect(t *testing.T) {
	assert := assert.New(t)
	d := disk.NewMemDisk(4)

	tbl := &Indirect{}
	tbl[0] = common.Ref(2)
	tbl[common.NINDIRECT-1] = common.Ref(3)
	require.NoError(t, tbl.Write(d, 1))

	tbl2, err := ReadIndirect(d, 1)
	require.NoError(t, err)
	assert.Equal(tbl, tbl2)
	assert.True(tbl2[1].IsNil())
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "dir", DIR.String())
	assert.Equal(t, "file", FILE.String())
	assert.Equal(t, "invalid(0)", INVAL.String())
}
