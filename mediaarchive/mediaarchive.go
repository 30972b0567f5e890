// Package mediaarchive packages one medium's worth of files — FILES.LUM,
// LOADS.LUM, BATCHES.LUM, and every regular file, load header, and
// batch file it carries — into a single ar or cpio archive instead of a
// directory tree, so a medium can be shipped or inspected as one file.
// The callback sets collect a medium's entries during compilation and
// render them as an archive, or unpack an existing archive to serve a
// decompilation.
package mediaarchive

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/blakesmith/ar"
	cpio "github.com/surma/gocpio"

	"github.com/tvogt/arinc665/compiler"
	"github.com/tvogt/arinc665/media"
)

type format int

const (
	formatAr format = iota
	formatCpio
)

func archiveName(relPath string) string {
	return strings.TrimPrefix(relPath, "/")
}

type archiveEntry struct {
	name string
	data []byte
}

// set implements the shared half of the callback surface for both
// archive formats: accumulate per-medium entries during compilation,
// read them back during compilation, and look them up by name during
// decompilation. ArCallbacks and CpioCallbacks differ only in how
// Archive/Load serialize this table.
type set struct {
	format format

	// ReadSource supplies the bytes for a RegularFile/Load/Batch being
	// copied verbatim from its source location, as compiler.Callbacks'
	// CreateFile would against a real filesystem. Required for
	// compiling; unused when only decompiling from an existing archive.
	ReadSource func(f media.File, relPath string) ([]byte, error)

	mu      sync.Mutex
	written map[int][]archiveEntry
	loaded  map[int]map[string][]byte
}

func (s *set) appendWritten(medium int, relPath string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.written == nil {
		s.written = map[int][]archiveEntry{}
	}
	s.written[medium] = append(s.written[medium], archiveEntry{name: archiveName(relPath), data: data})
}

func (s *set) CreateMedium(medium int) error                     { return nil }
func (s *set) CreateDirectory(medium int, relPath string) error  { return nil }

// CheckFileExists reports whether ReadSource can produce f's bytes.
// Callers relying on compiler.PolicyNoneExisting with a source that
// distinguishes "absent" from "read error" should wrap ReadSource
// themselves rather than rely on this approximation.
func (s *set) CheckFileExists(f media.File) (bool, error) {
	if s.ReadSource == nil {
		return false, nil
	}
	_, err := s.ReadSource(f, media.RelPath(f))
	return err == nil, nil
}

func (s *set) CreateFile(medium int, f media.File, relPath string) error {
	if s.ReadSource == nil {
		return fmt.Errorf("mediaarchive: ReadSource is nil, cannot copy %s", relPath)
	}
	data, err := s.ReadSource(f, relPath)
	if err != nil {
		return err
	}
	s.appendWritten(medium, relPath, data)
	return nil
}

func (s *set) WriteFile(medium int, relPath string, data []byte) error {
	s.appendWritten(medium, relPath, data)
	return nil
}

// ReadFile reads back an entry from whichever of the written or loaded
// table has it: immediately after compiling (the compiler reads back
// what it just wrote to compute a FileInfo), or after Load has unpacked
// an existing archive for decompiling.
func (s *set) ReadFile(medium int, relPath string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := archiveName(relPath)
	for _, e := range s.written[medium] {
		if e.name == name {
			return e.data, nil
		}
	}
	if data, ok := s.loaded[medium][name]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("mediaarchive: %s not found on medium %d", relPath, medium)
}

func (s *set) callbacks() compiler.Callbacks {
	return compiler.Callbacks{
		CreateMedium:    s.CreateMedium,
		CreateDirectory: s.CreateDirectory,
		CheckFileExists: s.CheckFileExists,
		CreateFile:      s.CreateFile,
		WriteFile:       s.WriteFile,
		ReadFile:        s.ReadFile,
	}
}

// mediums returns the medium numbers with any written entries, in
// ascending order.
func (s *set) mediums() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, 0, len(s.written))
	for m := range s.written {
		out = append(out, m)
	}
	sort.Ints(out)
	return out
}

func (s *set) archive(medium int) ([]byte, error) {
	s.mu.Lock()
	entries := append([]archiveEntry(nil), s.written[medium]...)
	s.mu.Unlock()

	switch s.format {
	case formatAr:
		return writeAr(entries)
	case formatCpio:
		return writeCpio(entries)
	default:
		return nil, fmt.Errorf("mediaarchive: unknown format %d", s.format)
	}
}

func (s *set) load(medium int, archiveData []byte) error {
	var files map[string][]byte
	var err error
	switch s.format {
	case formatAr:
		files, err = readAr(archiveData)
	case formatCpio:
		files, err = readCpio(archiveData)
	default:
		return fmt.Errorf("mediaarchive: unknown format %d", s.format)
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded == nil {
		s.loaded = map[int]map[string][]byte{}
	}
	s.loaded[medium] = files
	return nil
}

func writeAr(entries []archiveEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := ar.NewWriter(&buf)
	if err := w.WriteGlobalHeader(); err != nil {
		return nil, fmt.Errorf("mediaarchive: ar global header: %w", err)
	}
	for _, e := range entries {
		hdr := &ar.Header{
			Name:    e.name,
			ModTime: time.Time{},
			Mode:    0o644,
			Size:    int64(len(e.data)),
		}
		if err := w.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("mediaarchive: ar header for %s: %w", e.name, err)
		}
		if _, err := w.Write(e.data); err != nil {
			return nil, fmt.Errorf("mediaarchive: ar body for %s: %w", e.name, err)
		}
	}
	return buf.Bytes(), nil
}

func writeCpio(entries []archiveEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := cpio.NewWriter(&buf)
	for _, e := range entries {
		hdr := &cpio.Header{
			Name: e.name,
			Mode: 0o644,
			Size: int64(len(e.data)),
			Type: cpio.TYPE_REG,
		}
		if err := w.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("mediaarchive: cpio header for %s: %w", e.name, err)
		}
		if _, err := w.Write(e.data); err != nil {
			return nil, fmt.Errorf("mediaarchive: cpio body for %s: %w", e.name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("mediaarchive: cpio trailer: %w", err)
	}
	return buf.Bytes(), nil
}

func readAr(data []byte) (map[string][]byte, error) {
	out := map[string][]byte{}
	rdr := ar.NewReader(bytes.NewReader(data))
	for {
		hdr, err := rdr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("mediaarchive: reading ar archive: %w", err)
		}
		body := make([]byte, hdr.Size)
		if _, err := io.ReadFull(rdr, body); err != nil {
			return nil, fmt.Errorf("mediaarchive: reading ar entry %s: %w", hdr.Name, err)
		}
		out[hdr.Name] = body
	}
	return out, nil
}

func readCpio(data []byte) (map[string][]byte, error) {
	out := map[string][]byte{}
	rdr := cpio.NewReader(bytes.NewReader(data))
	for {
		hdr, err := rdr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("mediaarchive: reading cpio archive: %w", err)
		}
		if hdr.IsTrailer() {
			break
		}
		body := make([]byte, hdr.Size)
		if _, err := io.ReadFull(rdr, body); err != nil {
			return nil, fmt.Errorf("mediaarchive: reading cpio entry %s: %w", hdr.Name, err)
		}
		out[hdr.Name] = body
	}
	return out, nil
}

// ArCallbacks is a compiler.Callbacks / decompiler read-file
// implementation that carries one medium as a single ar archive
// instead of a directory tree.
type ArCallbacks struct{ s set }

// NewArCallbacks returns an ArCallbacks that copies source bytes for
// RegularFile/Load/Batch entries being emitted verbatim through
// readSource (nil is fine when only decompiling).
func NewArCallbacks(readSource func(f media.File, relPath string) ([]byte, error)) *ArCallbacks {
	return &ArCallbacks{s: set{format: formatAr, ReadSource: readSource}}
}

// Callbacks adapts c to compiler.Callbacks.
func (c *ArCallbacks) Callbacks() compiler.Callbacks { return c.s.callbacks() }

// ReadFile satisfies decompiler.Config.ReadFile.
func (c *ArCallbacks) ReadFile(medium int, relPath string) ([]byte, error) {
	return c.s.ReadFile(medium, relPath)
}

// Mediums returns the medium numbers written so far, in ascending order.
func (c *ArCallbacks) Mediums() []int { return c.s.mediums() }

// Archive renders medium's accumulated entries as a single ar archive.
func (c *ArCallbacks) Archive(medium int) ([]byte, error) { return c.s.archive(medium) }

// Load unpacks an existing ar archive as medium's file table, for
// decompiling from a carrier produced earlier by Archive.
func (c *ArCallbacks) Load(medium int, archiveData []byte) error { return c.s.load(medium, archiveData) }

// CpioCallbacks is the cpio-carrier counterpart of ArCallbacks.
type CpioCallbacks struct{ s set }

// NewCpioCallbacks returns a CpioCallbacks analogous to NewArCallbacks.
func NewCpioCallbacks(readSource func(f media.File, relPath string) ([]byte, error)) *CpioCallbacks {
	return &CpioCallbacks{s: set{format: formatCpio, ReadSource: readSource}}
}

func (c *CpioCallbacks) Callbacks() compiler.Callbacks { return c.s.callbacks() }

func (c *CpioCallbacks) ReadFile(medium int, relPath string) ([]byte, error) {
	return c.s.ReadFile(medium, relPath)
}

func (c *CpioCallbacks) Mediums() []int { return c.s.mediums() }

func (c *CpioCallbacks) Archive(medium int) ([]byte, error) { return c.s.archive(medium) }

func (c *CpioCallbacks) Load(medium int, archiveData []byte) error {
	return c.s.load(medium, archiveData)
}
