// Package migrate relocates a backup root to a new directory, moving every
// file with progress reporting and per-item error isolation.
package migrate

import (
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
)

// TaskKind identifies the unit of work carried by a Task.
type TaskKind int

const (
	// TaskMkdir creates Dest (and its parents).
	TaskMkdir TaskKind = iota
	// TaskCopy moves the regular file Source to Dest.
	TaskCopy
	// TaskLink recreates the symbolic link Source at Dest.
	TaskLink
	// TaskRemoveDir deletes the fully walked source directory Source.
	TaskRemoveDir
	// TaskFailed reports that Source could not be listed; its subtree is skipped.
	TaskFailed
)

func (k TaskKind) String() string {
	switch k {
	case TaskMkdir:
		return "mkdir"
	case TaskCopy:
		return "copy"
	case TaskLink:
		return "link"
	case TaskRemoveDir:
		return "remove-dir"
	case TaskFailed:
		return "failed"
	default:
		return fmt.Sprintf("TaskKind(%d)", int(k))
	}
}

// Task is one unit of a migration.
type Task struct {
	Kind   TaskKind
	Source string
	Dest   string
	Err    error
}

var readDir = os.ReadDir

// Walk lazily yields the tasks that move the tree at src under dst, in
// depth-first order. Every directory yields TaskMkdir before its entries and
// TaskRemoveDir after them. The root directory itself is included.
func Walk(src, dst string) iter.Seq[Task] {
	return func(yield func(Task) bool) {
		if !yield(Task{Kind: TaskMkdir, Source: src, Dest: dst}) {
			return
		}
		walkDir(src, dst, yield)
	}
}

func walkDir(src, dst string, yield func(Task) bool) bool {
	entries, err := readDir(src)
	if err != nil {
		return yield(Task{Kind: TaskFailed, Source: src, Dest: dst, Err: err})
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		switch {
		case entry.Type()&fs.ModeSymlink != 0:
			if !yield(Task{Kind: TaskLink, Source: srcPath, Dest: dstPath}) {
				return false
			}
		case entry.IsDir():
			if !yield(Task{Kind: TaskMkdir, Source: srcPath, Dest: dstPath}) {
				return false
			}
			if !walkDir(srcPath, dstPath, yield) {
				return false
			}
		default:
			if !yield(Task{Kind: TaskCopy, Source: srcPath, Dest: dstPath}) {
				return false
			}
		}
	}
	return yield(Task{Kind: TaskRemoveDir, Source: src, Dest: dst})
}
