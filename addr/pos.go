package addr

import (
	"fmt"

	"github.com/mit-pdos/go-sfs/common"
)

type Level int

const (
	Direct Level = iota
	Indirect
	OutOfRange
)

func (l Level) String() string {
	switch l {
	case Direct:
		return "direct"
	case Indirect:
		return "indirect"
	default:
		return "out-of-range"
	}
}

// Pos says where the pointer for one logical file block lives: a slot of
// the inode's direct array, or a slot of its indirect table.
type Pos struct {
	Level Level
	Slot  uint64
}

func (p Pos) String() string {
	return fmt.Sprintf("%v[%d]", p.Level, p.Slot)
}

// Resolve maps logical block lbn of a file to its pointer slot.
func Resolve(lbn uint64) Pos {
	if lbn < common.NDIRECT {
		return Pos{Level: Direct, Slot: lbn}
	}
	lbn -= common.NDIRECT
	if lbn < common.NINDIRECT {
		return Pos{Level: Indirect, Slot: lbn}
	}
	return Pos{Level: OutOfRange, Slot: lbn - common.NINDIRECT}
}
