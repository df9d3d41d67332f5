package sfs

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/mit-pdos/go-sfs/addr"
	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/disk"
	"github.com/mit-pdos/go-sfs/inode"
	"github.com/mit-pdos/go-sfs/util"
)

// walkFile calls fn for each in-use content block of ip in logical order,
// direct pointers first, then the indirect table.
func (fsys *FileSystem) walkFile(ip *inode.Inode, fn func(lbn uint64, bn common.Bnum) error) error {
	var tbl *inode.Indirect
	for lbn := uint64(0); ; lbn++ {
		var r common.BlockRef
		pos := addr.Resolve(lbn)
		switch pos.Level {
		case addr.Direct:
			r = ip.Direct[pos.Slot]
		case addr.Indirect:
			if ip.Indirect.IsNil() {
				return nil
			}
			if tbl == nil {
				t, err := inode.ReadIndirect(fsys.d, ip.Indirect.Get())
				if err != nil {
					return err
				}
				tbl = t
			}
			r = tbl[pos.Slot]
		default:
			return nil
		}
		if r.IsNil() {
			continue
		}
		if err := fn(lbn, r.Get()); err != nil {
			return err
		}
	}
}

// fileWriter appends block-sized chunks to a file inode, allocating
// content blocks and the indirect table as it goes.
type fileWriter struct {
	fsys *FileSystem
	ino  common.Inum
	ip   *inode.Inode
	tbl  *inode.Indirect
	lbn  uint64
}

// attachIndirect allocates an empty indirect table and records it in the
// inode before any content block goes into it.
func (w *fileWriter) attachIndirect() error {
	tbn, err := w.fsys.allocBlock()
	if err != nil {
		return err
	}
	w.tbl = &inode.Indirect{}
	if err := w.tbl.Write(w.fsys.d, tbn); err != nil {
		return err
	}
	w.ip.Indirect = common.Ref(tbn)
	return w.ip.Write(w.fsys.d, w.ino)
}

// appendChunk stores one chunk of n valid bytes (chunk is zero-padded to a
// block) and persists the inode with the new size.
func (w *fileWriter) appendChunk(chunk disk.Block, n uint64) error {
	pos := addr.Resolve(w.lbn)
	if pos.Level == addr.OutOfRange {
		return ErrFileTooLarge
	}
	if pos.Level == addr.Indirect && w.ip.Indirect.IsNil() {
		if err := w.attachIndirect(); err != nil {
			return err
		}
	}
	bn, err := w.fsys.allocBlock()
	if err != nil {
		return err
	}
	switch pos.Level {
	case addr.Direct:
		w.ip.Direct[pos.Slot] = common.Ref(bn)
	case addr.Indirect:
		w.tbl[pos.Slot] = common.Ref(bn)
		if err := w.tbl.Write(w.fsys.d, w.ip.Indirect.Get()); err != nil {
			return err
		}
	}
	if err := w.fsys.d.Write(bn, chunk); err != nil {
		return fmt.Errorf("write block %d: %w", bn, err)
	}
	w.ip.Size += uint32(n)
	w.lbn++
	return w.ip.Write(w.fsys.d, w.ino)
}

// Cpin copies the host file hostPath into a new file called name.
//
// Space exhaustion part way through leaves the file on the volume with
// the bytes copied so far.
func (fsys *FileSystem) Cpin(hostPath string, name string) error {
	const op = "cpin"
	if !validName(name) {
		return mkErr(op, name, ErrInvalidArgument)
	}
	cwd, err := fsys.beginMutation(op, name)
	if err != nil {
		return err
	}
	f, err := fsys.host.Open(hostPath)
	if err != nil {
		return mkErr(op, hostPath, ErrHostFileNotFound)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return mkErr(op, hostPath, err)
	}
	if fi.IsDir() {
		return mkErr(op, hostPath, ErrHostFileNotFound)
	}
	if uint64(fi.Size()) > common.MAXFILESZ {
		return mkErr(op, hostPath, ErrFileTooLarge)
	}

	sc, err := fsys.scanDir(cwd, name)
	if err != nil {
		return mkErr(op, name, err)
	}
	if sc.found {
		return mkErr(op, name, ErrAlreadyExists)
	}
	if sc.full() {
		return mkErr(op, name, ErrDirectoryFull)
	}
	if fsys.alloc.NumFree() < 1+sc.blocksNeeded() {
		return mkErr(op, name, ErrNoBlockAvailable)
	}
	bn, err := fsys.allocBlock()
	if err != nil {
		return mkErr(op, name, err)
	}
	ino := common.Inum(bn)
	if err := fsys.addEntry(cwd, sc, inode.Dirent{Ino: ino, Name: name}); err != nil {
		return mkErr(op, name, err)
	}
	w := &fileWriter{fsys: fsys, ino: ino, ip: inode.MkInode(inode.FILE)}
	if err := w.ip.Write(fsys.d, ino); err != nil {
		return mkErr(op, name, err)
	}
	if err := fsys.writeCwd(cwd); err != nil {
		return mkErr(op, name, err)
	}

	for {
		chunk := make(disk.Block, disk.BlockSize)
		n, rerr := io.ReadFull(f, chunk)
		if n > 0 {
			if err := w.appendChunk(chunk, uint64(n)); err != nil {
				fsys.log.Warnw("cpin stopped early", "name", name, "size", w.ip.Size, "error", err)
				return mkErr(op, name, err)
			}
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			break
		}
		if rerr != nil {
			return mkErr(op, hostPath, rerr)
		}
	}
	fsys.log.Debugw("cpin", "host", hostPath, "name", name, "ino", ino, "size", w.ip.Size)
	return nil
}

// Cpout copies the file called name to hostPath, which must not exist.
func (fsys *FileSystem) Cpout(name string, hostPath string) error {
	const op = "cpout"
	cwd, err := fsys.begin(op, name)
	if err != nil {
		return err
	}
	sc, err := fsys.scanDir(cwd, name)
	if err != nil {
		return mkErr(op, name, err)
	}
	if !sc.found {
		return mkErr(op, name, ErrNoSuchFile)
	}
	ip, err := inode.Read(fsys.d, sc.dirent().Ino)
	if err != nil {
		return mkErr(op, name, err)
	}
	if !ip.IsFile() {
		return mkErr(op, name, ErrNotAFile)
	}
	exists, err := afero.Exists(fsys.host, hostPath)
	if err != nil {
		return mkErr(op, hostPath, err)
	}
	if exists {
		return mkErr(op, hostPath, ErrHostFileExists)
	}
	f, err := fsys.host.OpenFile(hostPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		return mkErr(op, hostPath, ErrHostFileExists)
	}
	if err != nil {
		return mkErr(op, hostPath, err)
	}

	remaining := uint64(ip.Size)
	nblks := ip.NBlocks()
	err = fsys.walkFile(ip, func(lbn uint64, bn common.Bnum) error {
		if lbn >= nblks {
			return nil
		}
		blk, err := fsys.d.Read(bn)
		if err != nil {
			return err
		}
		n := util.Min(remaining, disk.BlockSize)
		if _, err := f.Write(blk[:n]); err != nil {
			return err
		}
		remaining -= n
		return nil
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return mkErr(op, hostPath, err)
	}
	fsys.log.Debugw("cpout", "name", name, "host", hostPath, "size", ip.Size)
	return nil
}
