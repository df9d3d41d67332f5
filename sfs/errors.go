package sfs

import "fmt"

// Kind enumerates the ways a file system operation can fail.
type Kind int

const (
	ErrNoSuchFile Kind = iota + 1
	ErrNotADirectory
	ErrDirectoryFull
	ErrNoBlockAvailable
	ErrAlreadyExists
	ErrDirectoryNotEmpty
	ErrInvalidArgument
	ErrIsADirectory
	ErrNotAFile
	ErrFileTooLarge
	ErrHostFileNotFound
	ErrHostFileExists
	ErrNotMounted
)

var kindInfo = map[Kind]struct {
	code int
	msg  string
}{
	ErrNoSuchFile:        {-1, "No such file or directory"},
	ErrNotADirectory:     {-2, "Not a directory"},
	ErrDirectoryFull:     {-3, "Directory full"},
	ErrNoBlockAvailable:  {-4, "No block available"},
	ErrAlreadyExists:     {-6, "Already exists"},
	ErrDirectoryNotEmpty: {-7, "Directory not empty"},
	ErrInvalidArgument:   {-8, "Invalid argument"},
	ErrIsADirectory:      {-9, "Is a directory"},
	ErrNotAFile:          {-10, "Is not a file"},
	ErrFileTooLarge:      {-11, "Input file size exceeds the max file size"},
	ErrHostFileNotFound:  {-12, "Can't open input file"},
	ErrHostFileExists:    {-6, "Already exists"},
	ErrNotMounted:        {-13, "No volume mounted"},
}

func (k Kind) Error() string {
	if info, ok := kindInfo[k]; ok {
		return info.msg
	}
	return fmt.Sprintf("unknown error %d", int(k))
}

// Code is the numeric status the interactive shell has always reported
// for k.
func (k Kind) Code() int {
	return kindInfo[k].code
}

// Is lets a host-side collision match ErrAlreadyExists.
func (k Kind) Is(target error) bool {
	return k == ErrHostFileExists && target == ErrAlreadyExists
}

// PathError records the operation and path that failed.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return e.Op + ": " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}

func mkErr(op string, path string, err error) error {
	return &PathError{Op: op, Path: path, Err: err}
}
