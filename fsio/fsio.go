// Package fsio implements the default OS-filesystem-backed callback set
// for package compiler and package decompiler: a Media Set
// rooted at one directory with "MEDIUM_###" subdirectories. Large
// source files are read via a memory map rather than a full read
// syscall, mirroring how package saferwall/pe maps its input once
// instead of copying it piecemeal.
package fsio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/tvogt/arinc665/compiler"
	"github.com/tvogt/arinc665/media"
)

// MediumDirName returns the default on-disk directory name for a medium
// number: "MEDIUM_###" with three zero-padded decimals.
func MediumDirName(medium int) string {
	return fmt.Sprintf("MEDIUM_%03d", medium)
}

// OSCallbacks is the default compiler.Callbacks implementation: source
// files are read from SourceRoot and the Media Set is written under
// DestRoot, both using the MEDIUM_### convention. A caller whose source
// tree is laid out differently should implement the callback fields
// directly rather than use this type.
type OSCallbacks struct {
	SourceRoot string
	DestRoot   string
}

func relOSPath(relPath string) string {
	return filepath.FromSlash(strings.TrimPrefix(relPath, "/"))
}

func mediumDir(root string, medium int) string {
	return filepath.Join(root, MediumDirName(medium))
}

// CreateMedium creates the destination medium directory.
func (c *OSCallbacks) CreateMedium(medium int) error {
	return os.MkdirAll(mediumDir(c.DestRoot, medium), 0o755)
}

// CreateDirectory creates a subdirectory under the destination medium.
func (c *OSCallbacks) CreateDirectory(medium int, relPath string) error {
	return os.MkdirAll(filepath.Join(mediumDir(c.DestRoot, medium), relOSPath(relPath)), 0o755)
}

// CheckFileExists reports whether f is present under SourceRoot.
func (c *OSCallbacks) CheckFileExists(f media.File) (bool, error) {
	path := filepath.Join(mediumDir(c.SourceRoot, f.Medium().Number()), relOSPath(media.RelPath(f)))
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, err
	}
}

// CreateFile copies f's bytes from SourceRoot to the destination medium
// at relPath.
func (c *OSCallbacks) CreateFile(medium int, f media.File, relPath string) error {
	srcPath := filepath.Join(mediumDir(c.SourceRoot, f.Medium().Number()), relOSPath(media.RelPath(f)))
	data, err := readFileMmap(srcPath)
	if err != nil {
		return fmt.Errorf("fsio: reading source %s: %w", srcPath, err)
	}
	return c.WriteFile(medium, relPath, data)
}

// WriteFile writes data to the destination medium at relPath, failing
// if a file is already there (the compiler never overwrites).
func (c *OSCallbacks) WriteFile(medium int, relPath string, data []byte) error {
	destPath := filepath.Join(mediumDir(c.DestRoot, medium), relOSPath(relPath))
	if _, err := os.Stat(destPath); err == nil {
		return fmt.Errorf("fsio: %s already exists", destPath)
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(destPath, data, 0o644)
}

// ReadFile reads a file back from the destination medium.
func (c *OSCallbacks) ReadFile(medium int, relPath string) ([]byte, error) {
	return readFileMmap(filepath.Join(mediumDir(c.DestRoot, medium), relOSPath(relPath)))
}

// readFileMmap maps a file's content rather than slurping it with
// os.ReadFile, since a Media Set routinely carries multi-gigabyte
// firmware loads. Empty files are special-cased: mmap.Map rejects a
// zero-length mapping on some platforms.
func readFileMmap(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		return []byte{}, nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(m))
	copy(out, m)
	if err := m.Unmap(); err != nil {
		return nil, err
	}
	return out, nil
}

// Callbacks adapts c to compiler.Callbacks.
func (c *OSCallbacks) Callbacks() compiler.Callbacks {
	return compiler.Callbacks{
		CreateMedium:    c.CreateMedium,
		CreateDirectory: c.CreateDirectory,
		CheckFileExists: c.CheckFileExists,
		CreateFile:      c.CreateFile,
		WriteFile:       c.WriteFile,
		ReadFile:        c.ReadFile,
	}
}
