package sfs

import (
	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/inode"
)

// DumpNode is the metadata of one inode and, for directories, of
// everything beneath it.
type DumpNode struct {
	Ino      common.Inum   `yaml:"ino"`
	Name     string        `yaml:"name"`
	Type     string        `yaml:"type"`
	Size     uint32        `yaml:"size"`
	Direct   []common.Bnum `yaml:"direct,flow,omitempty"`
	Indirect common.Bnum   `yaml:"indirect,omitempty"`
	Blocks   []common.Bnum `yaml:"indirect_blocks,flow,omitempty"`
	Children []*DumpNode   `yaml:"children,omitempty"`
}

// Dump describes the subtree rooted at the current directory. "." and
// ".." are listed but not followed.
func (fsys *FileSystem) Dump() (*DumpNode, error) {
	const op = "dump"
	if _, err := fsys.begin(op, fsys.cwd.Name); err != nil {
		return nil, err
	}
	visited := make(map[common.Inum]bool)
	n, err := fsys.dumpInode(fsys.cwd.Ino, fsys.cwd.Name, visited)
	if err != nil {
		return nil, mkErr(op, fsys.cwd.Name, err)
	}
	return n, nil
}

func (fsys *FileSystem) dumpInode(ino common.Inum, name string, visited map[common.Inum]bool) (*DumpNode, error) {
	visited[ino] = true
	ip, err := inode.Read(fsys.d, ino)
	if err != nil {
		return nil, err
	}
	n := &DumpNode{
		Ino:    ino,
		Name:   name,
		Type:   ip.Type.String(),
		Size:   ip.Size,
		Direct: make([]common.Bnum, len(ip.Direct)),
	}
	for i, r := range ip.Direct {
		n.Direct[i] = common.Bnum(r.ToDisk())
	}
	if !ip.Indirect.IsNil() {
		n.Indirect = ip.Indirect.Get()
		tbl, err := inode.ReadIndirect(fsys.d, n.Indirect)
		if err != nil {
			return nil, err
		}
		for _, r := range tbl {
			if !r.IsNil() {
				n.Blocks = append(n.Blocks, r.Get())
			}
		}
	}
	if !ip.IsDir() {
		return n, nil
	}

	blocks, err := fsys.readDir(ip)
	if err != nil {
		return nil, err
	}
	for _, blk := range blocks {
		for _, de := range blk.db {
			if de.IsFree() {
				continue
			}
			if isDotName(de.Name) || visited[de.Ino] {
				n.Children = append(n.Children, &DumpNode{Ino: de.Ino, Name: de.Name})
				continue
			}
			child, err := fsys.dumpInode(de.Ino, de.Name, visited)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		}
	}
	return n, nil
}
