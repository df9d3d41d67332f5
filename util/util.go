package util

import (
	"strings"

	"github.com/mit-pdos/go-sfs/logger"
)

// Debug is the verbosity threshold for DPrintf. Level 0 messages are
// always emitted at zap's debug level; higher levels need Debug raised.
var Debug uint64 = 0

func DPrintf(level uint64, format string, a ...interface{}) {
	if level <= Debug {
		logger.Logger.Debugf(strings.TrimSuffix(format, "\n"), a...)
	}
}

func RoundUp(n uint64, sz uint64) uint64 {
	return (n + sz - 1) / sz
}

func Min(n uint64, m uint64) uint64 {
	if n < m {
		return n
	} else {
		return m
	}
}

func CloneByteSlice(s []byte) []byte {
	s2 := make([]byte, len(s))
	copy(s2, s)
	return s2
}

// SumOverflows reports whether a+b wraps around.
func SumOverflows(a uint64, b uint64) bool {
	return a+b < a
}
