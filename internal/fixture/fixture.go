// Package fixture declares small Media Set test scenarios in TOML: a
// plain exported struct whose field names double as the TOML keys,
// decoded with github.com/BurntSushi/toml and then restructured into a
// media.MediaSet. It is scoped to tests: nothing in the compiler or
// decompiler packages depends on it.
package fixture

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/tvogt/arinc665/media"
)

// Scenario is the on-disk TOML shape of a fixture: one Media Set spread
// across one or more media, each carrying directories, plain files
// (content given as hex so a fixture file stays plain text), loads, and
// batches.
type Scenario struct {
	MediaSetPN string
	Medium     []MediumSection
}

// MediumSection describes the contents of one medium.
type MediumSection struct {
	Directory []DirectorySection
	File      []FileSection
	Load      []LoadSection
	Batch     []BatchSection
}

// DirectorySection declares a subdirectory by its full POSIX-style path
// (e.g. "/SUB/NESTED"); parent directories are created implicitly.
type DirectorySection struct {
	Path string
}

// FileSection declares a plain regular file by its full path, with its
// content given as a hex string (so binary fixtures stay readable ASCII
// in the TOML source).
type FileSection struct {
	Path       string
	ContentHex string
}

// LoadSection declares a Load Header File entry. DataFiles and
// SupportFiles reference FileSection.Path values declared elsewhere in
// the same scenario (in any medium).
type LoadSection struct {
	Path              string
	PartNumber        string
	TargetHardwareIDs []string
	DataFiles         []string
	SupportFiles      []string
}

// BatchSection declares a Batch File entry.
type BatchSection struct {
	Path       string
	PartNumber string
	Comment    string
	Target     []BatchTargetSection
}

// BatchTargetSection is one target-hardware-position entry within a
// Batch, naming the Load paths (elsewhere in the scenario) applied to it
// in order.
type BatchTargetSection struct {
	ThwIdPosition string
	Loads         []string
}

// Load reads and decodes a Scenario from the TOML file at path.
func Load(path string) (*Scenario, error) {
	var s Scenario
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return nil, fmt.Errorf("fixture: decoding %s: %w", path, err)
	}
	return &s, nil
}

// Save encodes s as TOML to path, for generating or updating a
// testdata/ fixture file from code.
func Save(s *Scenario, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("fixture: creating %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(s); err != nil {
		return fmt.Errorf("fixture: encoding %s: %w", path, err)
	}
	return nil
}

// Built is the result of materializing a Scenario: the MediaSet object
// model plus the raw content of every regular file, keyed by
// "<medium>:<relPath>" so the same path on different media does not
// collide.
type Built struct {
	MediaSet *media.MediaSet
	Contents map[string][]byte
}

func contentKey(medium int, relPath string) string {
	return fmt.Sprintf("%d:%s", medium, relPath)
}

// Content returns the bytes declared for the regular file at relPath on
// medium, or false if there isn't one (the file doesn't exist, or isn't
// a regular file).
func (b *Built) Content(medium int, relPath string) ([]byte, bool) {
	data, ok := b.Contents[contentKey(medium, relPath)]
	return data, ok
}

// Build materializes s into a MediaSet: one Medium per MediumSection in
// order, directories and regular files created first, then Loads and
// Batches (which may reference a file declared on any medium).
func Build(s *Scenario) (*Built, error) {
	ms := media.NewMediaSet(s.MediaSetPN)
	built := &Built{MediaSet: ms, Contents: map[string][]byte{}}

	byPath := map[string]*media.RegularFile{} // keyed by contentKey
	loadsByPath := map[string]*media.Load{}

	for _, msec := range s.Medium {
		medium := ms.AddMedium()
		n := medium.Number()

		for _, dsec := range msec.Directory {
			if _, err := ensureDir(medium.Root(), dsec.Path); err != nil {
				return nil, fmt.Errorf("fixture: medium %d directory %s: %w", n, dsec.Path, err)
			}
		}
		for _, fsec := range msec.File {
			dir, name, err := ensureParent(medium.Root(), fsec.Path)
			if err != nil {
				return nil, fmt.Errorf("fixture: medium %d file %s: %w", n, fsec.Path, err)
			}
			rf, err := dir.AddRegularFile(name)
			if err != nil {
				return nil, fmt.Errorf("fixture: medium %d file %s: %w", n, fsec.Path, err)
			}
			data, err := hex.DecodeString(fsec.ContentHex)
			if err != nil {
				return nil, fmt.Errorf("fixture: medium %d file %s: invalid content_hex: %w", n, fsec.Path, err)
			}
			key := contentKey(n, fsec.Path)
			built.Contents[key] = data
			byPath[key] = rf
		}
	}

	findRegularFile := func(path string) (*media.RegularFile, error) {
		for medium := 1; medium <= ms.NumberOfMembers(); medium++ {
			if rf, ok := byPath[contentKey(medium, path)]; ok {
				return rf, nil
			}
		}
		return nil, fmt.Errorf("no regular file declared at %s", path)
	}

	for mi, msec := range s.Medium {
		n := mi + 1
		medium := ms.Medium(n)
		for _, lsec := range msec.Load {
			dir, name, err := ensureParent(medium.Root(), lsec.Path)
			if err != nil {
				return nil, fmt.Errorf("fixture: medium %d load %s: %w", n, lsec.Path, err)
			}
			l, err := dir.AddLoad(name, lsec.PartNumber)
			if err != nil {
				return nil, fmt.Errorf("fixture: medium %d load %s: %w", n, lsec.Path, err)
			}
			for _, thw := range lsec.TargetHardwareIDs {
				l.AddTargetHardwareID(thw)
			}
			for _, p := range lsec.DataFiles {
				rf, err := findRegularFile(p)
				if err != nil {
					return nil, fmt.Errorf("fixture: medium %d load %s data file: %w", n, lsec.Path, err)
				}
				if _, err := l.AddDataFile(rf, rf.Name()); err != nil {
					return nil, fmt.Errorf("fixture: medium %d load %s: %w", n, lsec.Path, err)
				}
			}
			for _, p := range lsec.SupportFiles {
				rf, err := findRegularFile(p)
				if err != nil {
					return nil, fmt.Errorf("fixture: medium %d load %s support file: %w", n, lsec.Path, err)
				}
				if _, err := l.AddSupportFile(rf, rf.Name()); err != nil {
					return nil, fmt.Errorf("fixture: medium %d load %s: %w", n, lsec.Path, err)
				}
			}
			loadsByPath[lsec.Path] = l
		}
	}

	for mi, msec := range s.Medium {
		n := mi + 1
		medium := ms.Medium(n)
		for _, bsec := range msec.Batch {
			dir, name, err := ensureParent(medium.Root(), bsec.Path)
			if err != nil {
				return nil, fmt.Errorf("fixture: medium %d batch %s: %w", n, bsec.Path, err)
			}
			b, err := dir.AddBatch(name, bsec.PartNumber, bsec.Comment)
			if err != nil {
				return nil, fmt.Errorf("fixture: medium %d batch %s: %w", n, bsec.Path, err)
			}
			for _, tsec := range bsec.Target {
				for _, lp := range tsec.Loads {
					l, ok := loadsByPath[lp]
					if !ok {
						return nil, fmt.Errorf("fixture: medium %d batch %s: no load declared at %s", n, bsec.Path, lp)
					}
					if err := b.AppendLoad(tsec.ThwIdPosition, l); err != nil {
						return nil, fmt.Errorf("fixture: medium %d batch %s: %w", n, bsec.Path, err)
					}
				}
			}
		}
	}

	return built, nil
}

// ensureDir walks path (POSIX style, leading "/") from root, creating
// any subdirectory not yet present, and returns the final directory.
func ensureDir(root *media.Directory, path string) (*media.Directory, error) {
	parts := splitPath(path)
	cur := root
	for _, name := range parts {
		if sub := cur.Directory(name); sub != nil {
			cur = sub
			continue
		}
		sub, err := cur.AddDirectory(name)
		if err != nil {
			return nil, err
		}
		cur = sub
	}
	return cur, nil
}

// ensureParent splits path into its parent directory (created as
// needed) and final name component.
func ensureParent(root *media.Directory, path string) (*media.Directory, string, error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, "", fmt.Errorf("empty path")
	}
	dir, err := ensureDir(root, "/"+joinPath(parts[:len(parts)-1]))
	if err != nil {
		return nil, "", err
	}
	return dir, parts[len(parts)-1], nil
}

func splitPath(path string) []string {
	var parts []string
	cur := ""
	for _, r := range path {
		if r == '/' {
			if cur != "" {
				parts = append(parts, cur)
				cur = ""
			}
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		parts = append(parts, cur)
	}
	return parts
}

func joinPath(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "/"
		}
		out += p
	}
	return out
}
