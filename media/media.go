// Package media implements the in-memory Media Set object model: the
// ownership tree of media, directories, and files, the non-owning
// cross-references a Load or Batch holds into that tree, and the
// invariants and search operations defined over it. The binary wire
// format lives in package files; package media is purely structural.
package media

import (
	"errors"
	"fmt"

	"github.com/tvogt/arinc665/checkvalue"
)

// InvalidMedium is the reserved medium number 0; valid media are
// numbered 1..255.
const InvalidMedium = 0

// Sentinel errors returned (wrapped with context) by the mutating and
// validating operations in this package.
var (
	ErrNameExists   = errors.New("media: name already exists in this container")
	ErrNotFound     = errors.New("media: reference not found")
	ErrInvalidModel = errors.New("media: invalid model")
)

// File is implemented by the three node kinds a Directory may contain:
// RegularFile, Load, and Batch.
type File interface {
	Name() string
	Parent() *Directory
	Medium() *Medium
	// Path returns the directory path components from the medium root
	// down to (but not including) the file itself.
	Path() []string
	fileNode()
}

// MediaSet is the root of the ownership tree: a single ARINC 665
// loadable-software part number realized across one or more Media.
type MediaSet struct {
	PartNumber string

	// CheckValueType is the root default for inherited check-value-type
	// resolution. NotUsed means "no default configured".
	CheckValueType checkvalue.Type

	// FilesListCheckValueType and FilesCheckValueType override the
	// list-of-files and per-file default levels respectively; NotUsed
	// means "inherit from CheckValueType".
	FilesListCheckValueType checkvalue.Type
	FilesCheckValueType     checkvalue.Type

	// ListOfLoadsCheckValueType and ListOfBatchesCheckValueType
	// override the check value used for the LOADS.LUM/BATCHES.LUM
	// FILES.LUM entries; NotUsed means "inherit from Files".
	ListOfLoadsCheckValueType   checkvalue.Type
	ListOfBatchesCheckValueType checkvalue.Type

	// User-defined data carried in the three list files. An
	// odd-length value is padded to 16-bit alignment with a trailing
	// 0x00 when the list file is composed; the compiler reports the
	// padding through its warning logger.
	FilesUserDefinedData   []byte
	LoadsUserDefinedData   []byte
	BatchesUserDefinedData []byte

	media []*Medium
}

// NewMediaSet creates an empty Media Set with the given part number.
func NewMediaSet(partNumber string) *MediaSet {
	return &MediaSet{PartNumber: partNumber}
}

// Media returns the Media Set's media in ascending MediumNumber order.
func (ms *MediaSet) Media() []*Medium {
	out := make([]*Medium, len(ms.media))
	copy(out, ms.media)
	return out
}

// NumberOfMembers returns N, the number of media the Media Set has.
func (ms *MediaSet) NumberOfMembers() int {
	return len(ms.media)
}

// AddMedium appends a new Medium, numbered one past the current count
// (numbering must stay dense, so media are always appended, never
// inserted at an arbitrary number).
func (ms *MediaSet) AddMedium() *Medium {
	m := &Medium{number: len(ms.media) + 1, mediaSet: ms}
	m.root = &Directory{medium: m}
	ms.media = append(ms.media, m)
	return m
}

// Medium returns the Medium with the given 1-based number, or nil.
func (ms *MediaSet) Medium(number int) *Medium {
	if number < 1 || number > len(ms.media) {
		return nil
	}
	return ms.media[number-1]
}

// CheckNumberingDense verifies that the Media Set contains exactly
// media numbers 1..N with no gaps.
func (ms *MediaSet) CheckNumberingDense() error {
	for i, m := range ms.media {
		if m.number != i+1 {
			return fmt.Errorf("%w: medium numbering is not dense: slot %d holds medium number %d", ErrInvalidModel, i+1, m.number)
		}
	}
	return nil
}

// Medium is one physical medium within a Media Set; it exclusively owns
// a root Directory.
type Medium struct {
	number   int
	mediaSet *MediaSet
	root     *Directory
}

// Number returns the 1-based MediumNumber.
func (m *Medium) Number() int { return m.number }

// MediaSet returns the owning Media Set.
func (m *Medium) MediaSet() *MediaSet { return m.mediaSet }

// Root returns the medium's root directory.
func (m *Medium) Root() *Directory { return m.root }

// Directory is a container of subdirectories and files. The root
// directory of a medium has no parent and no name.
type Directory struct {
	name        string
	parent      *Directory
	medium      *Medium
	directories []*Directory
	files       []File
}

// Name returns the directory's name ("" for a medium's root directory).
func (d *Directory) Name() string { return d.name }

// Parent returns the owning directory, or nil for a medium's root.
func (d *Directory) Parent() *Directory { return d.parent }

// Medium returns the medium this directory (or one of its ancestors)
// belongs to.
func (d *Directory) Medium() *Medium { return d.medium }

// Directories returns the directory's subdirectories in insertion order.
func (d *Directory) Directories() []*Directory {
	out := make([]*Directory, len(d.directories))
	copy(out, d.directories)
	return out
}

// Files returns the directory's immediate files in insertion order.
func (d *Directory) Files() []File {
	out := make([]File, len(d.files))
	copy(out, d.files)
	return out
}

// HasChildren reports whether the directory owns any subdirectory or file.
func (d *Directory) HasChildren() bool {
	return len(d.directories) > 0 || len(d.files) > 0
}

func (d *Directory) nameTaken(name string) bool {
	for _, sub := range d.directories {
		if sub.name == name {
			return true
		}
	}
	for _, f := range d.files {
		if f.Name() == name {
			return true
		}
	}
	return false
}

// AddDirectory creates and returns a new subdirectory, failing with
// ErrNameExists if the name is already taken in this container.
func (d *Directory) AddDirectory(name string) (*Directory, error) {
	if d.nameTaken(name) {
		return nil, fmt.Errorf("%w: %q", ErrNameExists, name)
	}
	sub := &Directory{name: name, parent: d, medium: d.medium}
	d.directories = append(d.directories, sub)
	return sub, nil
}

// Directory returns the immediate subdirectory with the given name, or nil.
func (d *Directory) Directory(name string) *Directory {
	for _, sub := range d.directories {
		if sub.name == name {
			return sub
		}
	}
	return nil
}

// File returns the immediate file (of any kind) with the given name, or nil.
func (d *Directory) File(name string) File {
	for _, f := range d.files {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

// RegularFileByName returns the immediate RegularFile with the given
// name, or nil if absent or if a file of that name exists but is a Load
// or Batch.
func (d *Directory) RegularFileByName(name string) *RegularFile {
	rf, _ := d.File(name).(*RegularFile)
	return rf
}

// LoadByName returns the immediate Load with the given name, or nil.
func (d *Directory) LoadByName(name string) *Load {
	l, _ := d.File(name).(*Load)
	return l
}

// BatchByName returns the immediate Batch with the given name, or nil.
func (d *Directory) BatchByName(name string) *Batch {
	b, _ := d.File(name).(*Batch)
	return b
}

// AddFile attaches an already-constructed File as an immediate child,
// failing with ErrNameExists if the name is already taken in this
// container.
func (d *Directory) AddFile(f File) error {
	if d.nameTaken(f.Name()) {
		return fmt.Errorf("%w: %q", ErrNameExists, f.Name())
	}
	switch v := f.(type) {
	case *RegularFile:
		v.parent = d
		v.medium = d.medium
	case *Load:
		v.parent = d
		v.medium = d.medium
	case *Batch:
		v.parent = d
		v.medium = d.medium
	}
	d.files = append(d.files, f)
	return nil
}

// AddRegularFile creates, attaches, and returns a new RegularFile.
func (d *Directory) AddRegularFile(name string) (*RegularFile, error) {
	rf := &RegularFile{name: name}
	if err := d.AddFile(rf); err != nil {
		return nil, err
	}
	return rf, nil
}

// AddLoad creates, attaches, and returns a new Load.
func (d *Directory) AddLoad(name, partNumber string) (*Load, error) {
	l := NewLoad(name, partNumber)
	if err := d.AddFile(l); err != nil {
		return nil, err
	}
	return l, nil
}

// AddBatch creates, attaches, and returns a new Batch.
func (d *Directory) AddBatch(name, partNumber, comment string) (*Batch, error) {
	b := NewBatch(name, partNumber, comment)
	if err := d.AddFile(b); err != nil {
		return nil, err
	}
	return b, nil
}

// RemoveDirectory detaches a direct subdirectory by reference, failing
// with ErrNotFound if it is not one.
func (d *Directory) RemoveDirectory(sub *Directory) error {
	for i, s := range d.directories {
		if s == sub {
			d.directories = append(d.directories[:i], d.directories[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: directory is not a direct child", ErrNotFound)
}

// RemoveFile detaches a direct file child by reference, failing with
// ErrNotFound if it is not one.
func (d *Directory) RemoveFile(f File) error {
	for i, existing := range d.files {
		if existing == f {
			d.files = append(d.files[:i], d.files[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: file is not a direct child", ErrNotFound)
}

// ReplaceFile swaps a direct file child in place, preserving its
// position in insertion order. Used by the decompiler to promote a
// provisionally-attached RegularFile to a Load or Batch once its header
// has been parsed. Fails with ErrNotFound if old is not a direct child.
func (d *Directory) ReplaceFile(old, replacement File) error {
	for i, existing := range d.files {
		if existing == old {
			switch v := replacement.(type) {
			case *RegularFile:
				v.parent = d
				v.medium = d.medium
			case *Load:
				v.parent = d
				v.medium = d.medium
			case *Batch:
				v.parent = d
				v.medium = d.medium
			}
			d.files[i] = replacement
			return nil
		}
	}
	return fmt.Errorf("%w: file is not a direct child", ErrNotFound)
}

// RegularFile is a plain file on a medium that carries no ARINC 665
// semantics of its own (it may still be referenced as a Load member).
type RegularFile struct {
	name   string
	parent *Directory
	medium *Medium

	// CheckValueType overrides the effective per-file check value type;
	// NotUsed means "inherit".
	CheckValueType checkvalue.Type

	// CRC is the CRC-16 recorded for this file in FILES.LUM. The
	// decompiler fills it in whether or not integrity checking is
	// enabled; the compiler ignores it and recomputes from content.
	CRC uint16
}

func (f *RegularFile) Name() string       { return f.name }
func (*RegularFile) fileNode()            {}
func (f *RegularFile) Parent() *Directory { return f.parent }
func (f *RegularFile) Medium() *Medium    { return f.medium }

// Path returns the directory path components from the medium root down
// to (but not including) f itself.
func (f *RegularFile) Path() []string {
	return pathComponents(f.parent)
}

func pathComponents(d *Directory) []string {
	if d == nil || d.parent == nil {
		return nil
	}
	return append(pathComponents(d.parent), d.name)
}
