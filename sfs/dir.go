package sfs

import (
	"strings"

	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/inode"
)

// dirBlock is one loaded block of a directory, with the direct pointer
// slot it hangs off.
type dirBlock struct {
	ptr uint64
	bn  common.Bnum
	db  *inode.DirBlock
}

// readDir loads every directory block of dip, in pointer order, skipping
// unused pointers.
func (fsys *FileSystem) readDir(dip *inode.Inode) ([]dirBlock, error) {
	var blocks []dirBlock
	for i, r := range dip.Direct {
		if r.IsNil() {
			continue
		}
		db, err := inode.ReadDirBlock(fsys.d, r.Get())
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, dirBlock{ptr: uint64(i), bn: r.Get(), db: db})
	}
	return blocks, nil
}

// dirScan is the result of looking a name up in a directory.
type dirScan struct {
	found bool
	blk   dirBlock // holds the match
	ent   uint64

	free    bool
	freeBlk dirBlock // holds the first free entry
	freeEnt uint64

	hasFreePtr bool
	freePtr    uint64 // first unused direct pointer
}

func (sc *dirScan) dirent() inode.Dirent {
	return sc.blk.db[sc.ent]
}

// full reports that a new entry has nowhere to go.
func (sc *dirScan) full() bool {
	return !sc.free && !sc.hasFreePtr
}

// scanDir checks every entry of dip against name, remembering where a new
// entry could be placed.
func (fsys *FileSystem) scanDir(dip *inode.Inode, name string) (*dirScan, error) {
	sc := &dirScan{}
	sc.freePtr, sc.hasFreePtr = dip.FreeDirect()
	blocks, err := fsys.readDir(dip)
	if err != nil {
		return nil, err
	}
	for _, blk := range blocks {
		if !sc.free {
			if i, ok := blk.db.FreeSlot(); ok {
				sc.free, sc.freeBlk, sc.freeEnt = true, blk, i
			}
		}
		if !sc.found {
			if i, ok := blk.db.Lookup(name); ok {
				sc.found, sc.blk, sc.ent = true, blk, i
			}
		}
	}
	return sc, nil
}

// blocksNeeded is the number of blocks linking a new entry consumes on top
// of the new inode's own.
func (sc *dirScan) blocksNeeded() uint64 {
	if sc.free {
		return 0
	}
	return 1
}

// addEntry binds de into the directory whose scan is sc, allocating and
// attaching a fresh directory block if no free entry exists. The caller
// persists dip.
func (fsys *FileSystem) addEntry(dip *inode.Inode, sc *dirScan, de inode.Dirent) error {
	blk, ent := sc.freeBlk, sc.freeEnt
	if !sc.free {
		bn, err := fsys.allocBlock()
		if err != nil {
			return err
		}
		blk = dirBlock{ptr: sc.freePtr, bn: bn, db: &inode.DirBlock{}}
		ent = 0
		dip.Direct[sc.freePtr] = common.Ref(bn)
	}
	blk.db[ent] = de
	if err := blk.db.Write(fsys.d, blk.bn); err != nil {
		return err
	}
	dip.Size += uint32(common.DIRENTSZ)
	return nil
}

// removeEntry clears the entry sc found and shrinks the current directory.
func (fsys *FileSystem) removeEntry(cwd *inode.Inode, sc *dirScan) error {
	sc.blk.db[sc.ent] = inode.Dirent{}
	if err := sc.blk.db.Write(fsys.d, sc.blk.bn); err != nil {
		return err
	}
	cwd.Size -= uint32(common.DIRENTSZ)
	return fsys.writeCwd(cwd)
}

func isDotName(name string) bool {
	return name == inode.Dot || name == inode.DotDot
}

// validName reports whether name can be stored in a directory entry.
func validName(name string) bool {
	return len(name) > 0 && uint64(len(name)) < common.NAMELEN &&
		!strings.ContainsAny(name, "/\x00")
}

// Touch creates an empty file called name in the current directory.
func (fsys *FileSystem) Touch(name string) error {
	const op = "touch"
	if !validName(name) {
		return mkErr(op, name, ErrInvalidArgument)
	}
	cwd, err := fsys.beginMutation(op, name)
	if err != nil {
		return err
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
	if err := inode.MkInode(inode.FILE).Write(fsys.d, ino); err != nil {
		return mkErr(op, name, err)
	}
	if err := fsys.writeCwd(cwd); err != nil {
		return mkErr(op, name, err)
	}
	fsys.log.Debugw("touch", "name", name, "ino", ino)
	return nil
}

// Mkdir creates an empty directory called name in the current directory.
func (fsys *FileSystem) Mkdir(name string) error {
	const op = "mkdir"
	if !validName(name) {
		return mkErr(op, name, ErrInvalidArgument)
	}
	cwd, err := fsys.beginMutation(op, name)
	if err != nil {
		return err
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
	if fsys.alloc.NumFree() < 2+sc.blocksNeeded() {
		return mkErr(op, name, ErrNoBlockAvailable)
	}

	bn, err := fsys.allocBlock()
	if err != nil {
		return mkErr(op, name, err)
	}
	ino := common.Inum(bn)
	content, err := fsys.allocBlock()
	if err != nil {
		return mkErr(op, name, err)
	}
	if err := inode.MkDirBlock(ino, fsys.cwd.Ino).Write(fsys.d, content); err != nil {
		return mkErr(op, name, err)
	}
	child := inode.MkInode(inode.DIR)
	child.Size = uint32(2 * common.DIRENTSZ)
	child.Direct[0] = common.Ref(content)
	if err := child.Write(fsys.d, ino); err != nil {
		return mkErr(op, name, err)
	}
	if err := fsys.addEntry(cwd, sc, inode.Dirent{Ino: ino, Name: name}); err != nil {
		return mkErr(op, name, err)
	}
	if err := fsys.writeCwd(cwd); err != nil {
		return mkErr(op, name, err)
	}
	fsys.log.Debugw("mkdir", "name", name, "ino", ino, "content", content)
	return nil
}

// Rmdir removes the empty directory called name.
func (fsys *FileSystem) Rmdir(name string) error {
	const op = "rmdir"
	if isDotName(name) {
		return mkErr(op, name, ErrInvalidArgument)
	}
	cwd, err := fsys.beginMutation(op, name)
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
	ino := sc.dirent().Ino
	target, err := inode.Read(fsys.d, ino)
	if err != nil {
		return mkErr(op, name, err)
	}
	if !target.IsDir() {
		return mkErr(op, name, ErrNotADirectory)
	}
	blocks, err := fsys.readDir(target)
	if err != nil {
		return mkErr(op, name, err)
	}
	for _, blk := range blocks {
		for _, de := range blk.db {
			if !de.IsFree() && !isDotName(de.Name) {
				return mkErr(op, name, ErrDirectoryNotEmpty)
			}
		}
	}

	if err := fsys.removeEntry(cwd, sc); err != nil {
		return mkErr(op, name, err)
	}
	for _, blk := range blocks {
		if err := fsys.release(blk.bn); err != nil {
			return mkErr(op, name, err)
		}
	}
	if err := fsys.release(common.Bnum(ino)); err != nil {
		return mkErr(op, name, err)
	}
	fsys.log.Debugw("rmdir", "name", name, "ino", ino)
	return nil
}

// Mv renames src to dst within the current directory. The renamed inode
// is not touched.
func (fsys *FileSystem) Mv(src string, dst string) error {
	const op = "mv"
	if isDotName(src) {
		return mkErr(op, src, ErrInvalidArgument)
	}
	if isDotName(dst) || !validName(dst) {
		return mkErr(op, dst, ErrInvalidArgument)
	}
	cwd, err := fsys.begin(op, src)
	if err != nil {
		return err
	}
	sc, err := fsys.scanDir(cwd, src)
	if err != nil {
		return mkErr(op, src, err)
	}
	dsc, err := fsys.scanDir(cwd, dst)
	if err != nil {
		return mkErr(op, dst, err)
	}
	if !sc.found {
		return mkErr(op, src, ErrNoSuchFile)
	}
	if dsc.found {
		return mkErr(op, dst, ErrAlreadyExists)
	}
	sc.blk.db[sc.ent].Name = dst
	if err := sc.blk.db.Write(fsys.d, sc.blk.bn); err != nil {
		return mkErr(op, src, err)
	}
	fsys.log.Debugw("mv", "src", src, "dst", dst)
	return nil
}

// Rm removes the file called name and frees all of its blocks.
func (fsys *FileSystem) Rm(name string) error {
	const op = "rm"
	cwd, err := fsys.beginMutation(op, name)
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
	ino := sc.dirent().Ino
	target, err := inode.Read(fsys.d, ino)
	if err != nil {
		return mkErr(op, name, err)
	}
	if target.IsDir() {
		return mkErr(op, name, ErrIsADirectory)
	}

	if err := fsys.removeEntry(cwd, sc); err != nil {
		return mkErr(op, name, err)
	}
	err = fsys.walkFile(target, func(lbn uint64, bn common.Bnum) error {
		return fsys.release(bn)
	})
	if err != nil {
		return mkErr(op, name, err)
	}
	if !target.Indirect.IsNil() {
		if err := fsys.release(target.Indirect.Get()); err != nil {
			return mkErr(op, name, err)
		}
	}
	if err := fsys.release(common.Bnum(ino)); err != nil {
		return mkErr(op, name, err)
	}
	fsys.log.Debugw("rm", "name", name, "ino", ino, "size", target.Size)
	return nil
}

// Entry is one line of a directory listing.
type Entry struct {
	Name string
	Ino  common.Inum
	Type inode.Type
}

// String marks directories with a trailing slash.
func (e Entry) String() string {
	if e.Type == inode.DIR {
		return e.Name + "/"
	}
	return e.Name
}

func (fsys *FileSystem) list(dip *inode.Inode) ([]Entry, error) {
	blocks, err := fsys.readDir(dip)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, blk := range blocks {
		for _, de := range blk.db {
			if de.IsFree() {
				continue
			}
			ip, err := inode.Read(fsys.d, de.Ino)
			if err != nil {
				return nil, err
			}
			entries = append(entries, Entry{Name: de.Name, Ino: de.Ino, Type: ip.Type})
		}
	}
	return entries, nil
}

// Ls lists the current directory when name is nil. Otherwise it lists
// the directory called name, one level deep, or returns just the entry
// for a file.
func (fsys *FileSystem) Ls(name *string) ([]Entry, error) {
	const op = "ls"
	path := ""
	if name != nil {
		path = *name
	}
	cwd, err := fsys.begin(op, path)
	if err != nil {
		return nil, err
	}
	if name == nil {
		entries, err := fsys.list(cwd)
		if err != nil {
			return nil, mkErr(op, path, err)
		}
		return entries, nil
	}
	sc, err := fsys.scanDir(cwd, path)
	if err != nil {
		return nil, mkErr(op, path, err)
	}
	if !sc.found {
		return nil, mkErr(op, path, ErrNoSuchFile)
	}
	de := sc.dirent()
	ip, err := inode.Read(fsys.d, de.Ino)
	if err != nil {
		return nil, mkErr(op, path, err)
	}
	if !ip.IsDir() {
		return []Entry{{Name: de.Name, Ino: de.Ino, Type: ip.Type}}, nil
	}
	entries, err := fsys.list(ip)
	if err != nil {
		return nil, mkErr(op, path, err)
	}
	return entries, nil
}

// LsCwd lists the current directory.
func (fsys *FileSystem) LsCwd() ([]Entry, error) {
	return fsys.Ls(nil)
}

// Cd changes the current directory to name, or to the root when name is
// nil.
func (fsys *FileSystem) Cd(name *string) error {
	const op = "cd"
	path := ""
	if name != nil {
		path = *name
	}
	cwd, err := fsys.begin(op, path)
	if err != nil {
		return err
	}
	if name == nil {
		fsys.cwd = rootCwd
		return nil
	}
	sc, err := fsys.scanDir(cwd, path)
	if err != nil {
		return mkErr(op, path, err)
	}
	if !sc.found {
		return mkErr(op, path, ErrNoSuchFile)
	}
	de := sc.dirent()
	ip, err := inode.Read(fsys.d, de.Ino)
	if err != nil {
		return mkErr(op, path, err)
	}
	if !ip.IsDir() {
		return mkErr(op, path, ErrNotADirectory)
	}
	fsys.cwd = Cwd{Ino: de.Ino, Name: de.Name}
	fsys.log.Debugw("cd", "name", de.Name, "ino", de.Ino)
	return nil
}
