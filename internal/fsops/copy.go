package fsops

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyFolder copies the tree rooted at source into target, creating target
// when needed. File permission bits are preserved; symbolic links are recreated.
func CopyFolder(source, target string) error {
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}

	entries, err := os.ReadDir(source)
	if err != nil {
		return fmt.Errorf("read %s: %w", source, err)
	}

	for _, entry := range entries {
		src := filepath.Join(source, entry.Name())
		dst := filepath.Join(target, entry.Name())

		info, err := os.Lstat(src)
		if err != nil {
			return fmt.Errorf("stat %s: %w", src, err)
		}

		switch {
		case info.IsDir():
			if err := CopyFolder(src, dst); err != nil {
				return err
			}
		case info.Mode()&fileModeSymlink != 0:
			link, err := os.Readlink(src)
			if err != nil {
				return fmt.Errorf("readlink %s: %w", src, err)
			}
			if err := os.Symlink(link, dst); err != nil {
				return fmt.Errorf("symlink %s: %w", dst, err)
			}
		default:
			if err := CopyFile(src, dst, info.Mode().Perm()); err != nil {
				return err
			}
		}
	}
	return nil
}

// CopyFile copies a single regular file, truncating dst if it exists.
func CopyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}
	return nil
}
