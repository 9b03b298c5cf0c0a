package interactor

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// copyTree copies src into dst recursively. dst must not exist and must not
// lie inside src. Symlinks are followed. File modes and modification times
// are preserved.
func copyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat deck dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("deck path is not a directory: %s", src)
	}
	if rel, err := filepath.Rel(src, dst); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("staging dir %s is inside deck dir %s", dst, src)
	}
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("%w: %s", ErrStagingExists, dst)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat staging dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create staging parent: %w", err)
	}
	return copyDir(src, dst, info)
}

func copyDir(src, dst string, info fs.FileInfo) error {
	if err := os.Mkdir(dst, info.Mode().Perm()|0o700); err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		entryInfo, err := os.Stat(srcPath)
		if err != nil {
			return fmt.Errorf("stat %s: %w", srcPath, err)
		}
		if entryInfo.IsDir() {
			if err := copyDir(srcPath, dstPath, entryInfo); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(srcPath, dstPath, entryInfo); err != nil {
			return err
		}
	}
	return os.Chmod(dst, info.Mode().Perm())
}

// copyFlat copies every regular file directly inside src into dst,
// overwriting files of the same name. Subdirectories are skipped.
func copyFlat(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("read esther output dir: %w", err)
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		info, err := os.Stat(srcPath)
		if err != nil {
			return fmt.Errorf("stat %s: %w", srcPath, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		if err := copyFile(srcPath, filepath.Join(dst, entry.Name()), info); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string, info fs.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer func() {
		_ = in.Close()
	}()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod %s: %w", dst, err)
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("chtimes %s: %w", dst, err)
	}
	return nil
}

// moveFile renames src to dst, falling back to copy and remove when a rename
// is not possible (for example across filesystems). If dst is an existing
// directory the file is moved into it. It returns the final path.
func moveFile(src, dst string) (string, error) {
	if info, err := os.Stat(dst); err == nil && info.IsDir() {
		dst = filepath.Join(dst, filepath.Base(src))
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	renameErr := os.Rename(src, dst)
	if renameErr == nil {
		return dst, nil
	}

	info, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("move %s: %w", src, renameErr)
	}
	if err := copyFile(src, dst, info); err != nil {
		return "", errors.Join(fmt.Errorf("move %s: %w", src, renameErr), err)
	}
	if err := os.Remove(src); err != nil {
		return "", fmt.Errorf("remove %s after copy: %w", src, err)
	}
	return dst, nil
}

// withWorkingDir runs fn and restores the working directory afterwards, also
// when fn fails or panics.
func withWorkingDir(fn func() error) (err error) {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working dir: %w", err)
	}
	defer func() {
		if chErr := os.Chdir(cwd); chErr != nil {
			err = errors.Join(err, fmt.Errorf("restore working dir: %w", chErr))
		}
	}()
	return fn()
}
