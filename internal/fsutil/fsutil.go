// Package fsutil holds the filesystem helpers used to build and clean up
// repositories. Every helper works on a billy.Filesystem so tests can run
// against memfs.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"slices"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

const dirPerm = 0o755

// Mkdir creates dir and any missing parents. An existing directory is not an
// error.
func Mkdir(fs billy.Filesystem, dir string) error {
	if err := fs.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}

// Remove deletes name and, for a directory, everything below it. A missing
// name is not an error.
func Remove(fs billy.Filesystem, name string) error {
	if err := util.RemoveAll(fs, name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// SyncTree copies the content of src into dst. Directories are created,
// regular files are overwritten with their permission bits and symlinks are
// recreated as-is. Entries whose base name is in ignore are skipped along with
// everything below them.
func SyncTree(src, dst billy.Filesystem, ignore ...string) error {
	return syncDir(src, dst, ".", ignore)
}

func syncDir(src, dst billy.Filesystem, dir string, ignore []string) error {
	entries, err := src.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", dir, err)
	}
	for _, entry := range entries {
		if slices.Contains(ignore, entry.Name()) {
			continue
		}
		name := path.Join(dir, entry.Name())
		switch mode := entry.Mode(); {
		case mode&os.ModeSymlink != 0:
			if err := copySymlink(src, dst, name); err != nil {
				return err
			}
		case mode.IsDir():
			if err := Mkdir(dst, name); err != nil {
				return err
			}
			if err := syncDir(src, dst, name, ignore); err != nil {
				return err
			}
		case mode.IsRegular():
			if err := copyFile(src, dst, name, mode.Perm()); err != nil {
				return err
			}
		}
	}
	return nil
}

func copyFile(src, dst billy.Filesystem, name string, perm os.FileMode) error {
	in, err := src.Open(name)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer in.Close()

	out, err := dst.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s: %w", name, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if ch, ok := dst.(billy.Change); ok {
		if err := ch.Chmod(name, perm); err != nil {
			return fmt.Errorf("chmod %s: %w", name, err)
		}
	}
	return nil
}

func copySymlink(src, dst billy.Filesystem, name string) error {
	target, err := src.Readlink(name)
	if err != nil {
		return fmt.Errorf("readlink %s: %w", name, err)
	}
	if err := Remove(dst, name); err != nil {
		return err
	}
	if err := dst.Symlink(target, name); err != nil {
		return fmt.Errorf("symlink %s: %w", name, err)
	}
	return nil
}
