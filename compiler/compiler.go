// Package compiler implements the ARINC 665 compiler: given a
// media.MediaSet, it emits every on-disk artifact through an injected
// set of I/O callbacks, synthesising LOADS.LUM, FILES.LUM, and
// (optionally) BATCHES.LUM, Load Header Files, and Batch Files, with
// freshly computed CRC-16s and ARINC 645 check values. The compiler
// never touches a filesystem directly; see Callbacks.
package compiler

import (
	"errors"
	"fmt"

	"github.com/tvogt/arinc665"
	"github.com/tvogt/arinc665/checkvalue"
	"github.com/tvogt/arinc665/codec"
	"github.com/tvogt/arinc665/files"
	"github.com/tvogt/arinc665/media"
)

// FileCreationPolicy selects how the compiler obtains the bytes of a
// synthesisable artifact (a Load Header File or a Batch File).
type FileCreationPolicy int

const (
	// PolicyNone never synthesises; the artifact is always fetched via
	// Callbacks.CreateFile, which copies it from the source side.
	PolicyNone FileCreationPolicy = iota
	// PolicyNoneExisting synthesises only when Callbacks.CheckFileExists
	// reports the artifact absent at the source.
	PolicyNoneExisting
	// PolicyAll always synthesises, overriding any source-side artifact.
	PolicyAll
)

func (p FileCreationPolicy) String() string {
	switch p {
	case PolicyNone:
		return "None"
	case PolicyNoneExisting:
		return "NoneExisting"
	case PolicyAll:
		return "All"
	default:
		return fmt.Sprintf("FileCreationPolicy(%d)", int(p))
	}
}

// Callbacks is the compiler's entire contract with storage. Every
// callback is total: it must succeed or return an error, and
// WriteFile must fail if relPath already exists (the compiler never
// overwrites). Relative paths are POSIX style ("/SUB/FILE.BIN").
type Callbacks struct {
	CreateMedium    func(medium int) error
	CreateDirectory func(medium int, relPath string) error
	CheckFileExists func(f media.File) (bool, error)
	CreateFile      func(medium int, f media.File, relPath string) error
	WriteFile       func(medium int, relPath string, data []byte) error
	ReadFile        func(medium int, relPath string) ([]byte, error)
}

// Config configures one Compile call: the target supplement, the two
// synthesis policies, the I/O callbacks, and an optional warning logger
// (warnings never travel through the error channel).
type Config struct {
	Version          files.Version
	BatchFilePolicy  FileCreationPolicy
	LoadHeaderPolicy FileCreationPolicy
	Callbacks        Callbacks
	Logger           arinc665.Logger
}

// Sentinel errors, returned wrapped with context.
var (
	ErrInvalidModel   = errors.New("compiler: model violates an invariant")
	ErrMissingSource  = errors.New("compiler: referenced regular file has no readable source")
	ErrCallbackFailed = errors.New("compiler: callback failed")
)

// Compile emits every on-disk artifact for ms via cfg.Callbacks and
// returns the relative path of every list file written (LOADS.LUM,
// BATCHES.LUM and FILES.LUM of each medium), in compiler write order,
// prefixed with its default medium directory name for diagnostic
// purposes; regular files, load headers and batch files are not listed.
// Callers that supplied their own medium naming via the callbacks
// should treat the manifest as informational.
func Compile(ms *media.MediaSet, cfg Config) ([]string, error) {
	if err := ms.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}

	allLoads := ms.RecursiveLoads()
	allBatches := ms.RecursiveBatches()
	haveBatches := len(allBatches) > 0

	// First pass: create every medium and emit every file, collecting
	// one FileInfo per file across the whole set. Every medium's
	// FILES.LUM lists the complete set (media may differ only in
	// their own list-file entries), and a FileInfo for a load header on
	// a later medium cannot be computed before that header is written,
	// so files on all media are emitted before any list file.
	var allFileInfos []files.FileInfo
	for _, medium := range ms.Media() {
		n := medium.Number()
		if err := cfg.Callbacks.CreateMedium(n); err != nil {
			return nil, fmt.Errorf("%w: create medium %d: %v", ErrCallbackFailed, n, err)
		}
		if err := createDirectories(cfg, n, medium.Root()); err != nil {
			return nil, err
		}
		if err := emitFiles(ms, cfg, medium.Root(), &allFileInfos); err != nil {
			return nil, err
		}
	}

	// Second pass: the per-medium list files.
	var manifest []string
	for _, medium := range ms.Media() {
		n := medium.Number()
		fileInfos := append([]files.FileInfo(nil), allFileInfos...)

		loadsPath, loadsBytes, err := composeLoadsList(ms, medium, allLoads, cfg)
		if err != nil {
			return nil, fmt.Errorf("compiler: composing %s: %w", files.ListOfLoadsName, err)
		}
		if err := cfg.Callbacks.WriteFile(n, loadsPath, loadsBytes); err != nil {
			return nil, fmt.Errorf("%w: write %s: %v", ErrCallbackFailed, loadsPath, err)
		}
		fi, err := fileInfoFor(nil, files.ListOfLoadsName, n, loadsBytes, ms.EffectiveListOfLoadsCheckValueType())
		if err != nil {
			return nil, err
		}
		fileInfos = append(fileInfos, fi)
		manifest = append(manifest, defaultMediumPath(n, loadsPath))

		if haveBatches {
			batchesPath, batchesBytes, err := composeBatchesList(ms, medium, allBatches, cfg)
			if err != nil {
				return nil, fmt.Errorf("compiler: composing %s: %w", files.ListOfBatchesName, err)
			}
			if err := cfg.Callbacks.WriteFile(n, batchesPath, batchesBytes); err != nil {
				return nil, fmt.Errorf("%w: write %s: %v", ErrCallbackFailed, batchesPath, err)
			}
			fi, err := fileInfoFor(nil, files.ListOfBatchesName, n, batchesBytes, ms.EffectiveListOfBatchesCheckValueType())
			if err != nil {
				return nil, err
			}
			fileInfos = append(fileInfos, fi)
			manifest = append(manifest, defaultMediumPath(n, batchesPath))
		}

		filesPath := "/" + files.ListOfFilesName
		flf := &files.FilesListFile{
			Version:                 cfg.Version,
			MediaSetPN:              ms.PartNumber,
			MediaSequenceNumber:     uint8(n),
			NumberOfMediaSetMembers: uint8(ms.NumberOfMembers()),
			Files:                   fileInfos,
			UserDefinedData:         paddedUDD(cfg, files.ListOfFilesName, ms.FilesUserDefinedData),
		}
		flf.CheckValue.Type = ms.EffectiveFilesListCheckValueType()
		filesBytes, err := flf.Encode()
		if err != nil {
			return nil, fmt.Errorf("compiler: composing %s: %w", files.ListOfFilesName, err)
		}
		if err := cfg.Callbacks.WriteFile(n, filesPath, filesBytes); err != nil {
			return nil, fmt.Errorf("%w: write %s: %v", ErrCallbackFailed, filesPath, err)
		}
		manifest = append(manifest, defaultMediumPath(n, filesPath))
	}

	return manifest, nil
}

func defaultMediumPath(medium int, relPath string) string {
	return fmt.Sprintf("MEDIUM_%03d%s", medium, relPath)
}

func createDirectories(cfg Config, medium int, d *media.Directory) error {
	for _, sub := range d.Directories() {
		if err := cfg.Callbacks.CreateDirectory(medium, sub.RelPath()); err != nil {
			return fmt.Errorf("%w: create directory %s: %v", ErrCallbackFailed, sub.RelPath(), err)
		}
		if err := createDirectories(cfg, medium, sub); err != nil {
			return err
		}
	}
	return nil
}

func emitFiles(ms *media.MediaSet, cfg Config, d *media.Directory, out *[]files.FileInfo) error {
	for _, sub := range d.Directories() {
		if err := emitFiles(ms, cfg, sub, out); err != nil {
			return err
		}
	}
	for _, f := range d.Files() {
		switch v := f.(type) {
		case *media.RegularFile:
			if err := emitRegularFile(ms, cfg, v, out); err != nil {
				return err
			}
		case *media.Load:
			if err := emitLoadHeader(ms, cfg, v, out); err != nil {
				return err
			}
		case *media.Batch:
			if err := emitBatchFile(ms, cfg, v, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func shouldSynthesize(cfg Config, policy FileCreationPolicy, f media.File) (bool, error) {
	switch policy {
	case PolicyAll:
		return true, nil
	case PolicyNone:
		return false, nil
	case PolicyNoneExisting:
		exists, err := cfg.Callbacks.CheckFileExists(f)
		if err != nil {
			return false, fmt.Errorf("%w: check file exists %q: %v", ErrCallbackFailed, f.Name(), err)
		}
		return !exists, nil
	default:
		return false, fmt.Errorf("compiler: unknown file creation policy %v", policy)
	}
}

func emitRegularFile(ms *media.MediaSet, cfg Config, f *media.RegularFile, out *[]files.FileInfo) error {
	relPath := media.RelPath(f)
	medium := f.Medium().Number()
	if err := cfg.Callbacks.CreateFile(medium, f, relPath); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMissingSource, relPath, err)
	}
	data, err := cfg.Callbacks.ReadFile(medium, relPath)
	if err != nil {
		return fmt.Errorf("%w: read back %s: %v", ErrCallbackFailed, relPath, err)
	}
	fi, err := fileInfoFor(f.Path(), f.Name(), medium, data, f.EffectiveCheckValueType(ms))
	if err != nil {
		return err
	}
	*out = append(*out, fi)
	return nil
}

func emitLoadHeader(ms *media.MediaSet, cfg Config, l *media.Load, out *[]files.FileInfo) error {
	relPath := media.RelPath(l)
	medium := l.Medium().Number()

	synth, err := shouldSynthesize(cfg, cfg.LoadHeaderPolicy, l)
	if err != nil {
		return err
	}
	if synth {
		lhf, dataContents, supportContents, err := buildLoadHeaderFile(ms, cfg, l)
		if err != nil {
			return err
		}
		raw, err := lhf.Encode(dataContents, supportContents)
		if err != nil {
			return fmt.Errorf("compiler: encoding load header %q: %w", l.Name(), err)
		}
		if err := cfg.Callbacks.WriteFile(medium, relPath, raw); err != nil {
			return fmt.Errorf("%w: write %s: %v", ErrCallbackFailed, relPath, err)
		}
	} else if err := cfg.Callbacks.CreateFile(medium, l, relPath); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMissingSource, relPath, err)
	}

	data, err := cfg.Callbacks.ReadFile(medium, relPath)
	if err != nil {
		return fmt.Errorf("%w: read back %s: %v", ErrCallbackFailed, relPath, err)
	}
	fi, err := fileInfoFor(l.Path(), l.Name(), medium, data, ms.EffectiveFilesCheckValueType())
	if err != nil {
		return err
	}
	*out = append(*out, fi)
	return nil
}

func emitBatchFile(ms *media.MediaSet, cfg Config, b *media.Batch, out *[]files.FileInfo) error {
	relPath := media.RelPath(b)
	medium := b.Medium().Number()

	synth, err := shouldSynthesize(cfg, cfg.BatchFilePolicy, b)
	if err != nil {
		return err
	}
	if synth {
		bf := buildBatchFile(b, cfg.Version)
		raw, err := bf.Encode()
		if err != nil {
			return fmt.Errorf("compiler: encoding batch %q: %w", b.Name(), err)
		}
		if err := cfg.Callbacks.WriteFile(medium, relPath, raw); err != nil {
			return fmt.Errorf("%w: write %s: %v", ErrCallbackFailed, relPath, err)
		}
	} else if err := cfg.Callbacks.CreateFile(medium, b, relPath); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMissingSource, relPath, err)
	}

	data, err := cfg.Callbacks.ReadFile(medium, relPath)
	if err != nil {
		return fmt.Errorf("%w: read back %s: %v", ErrCallbackFailed, relPath, err)
	}
	fi, err := fileInfoFor(b.Path(), b.Name(), medium, data, ms.EffectiveFilesCheckValueType())
	if err != nil {
		return err
	}
	*out = append(*out, fi)
	return nil
}

func buildLoadHeaderFile(ms *media.MediaSet, cfg Config, l *media.Load) (*files.LoadHeaderFile, [][]byte, [][]byte, error) {
	lhf := &files.LoadHeaderFile{
		Version:         cfg.Version,
		PartNumber:      l.PartNumber,
		UserDefinedData: paddedUDD(cfg, l.Name(), l.UserDefinedData),
	}
	if cfg.Version == files.Supplement345 {
		lhf.PartFlags = l.PartFlags
		lhf.LoadCheckValueType = l.EffectiveCheckValueType(ms)
	}
	if l.LoadType != nil && cfg.Version == files.Supplement345 {
		lhf.LoadType = &files.LoadType{Description: l.LoadType.Description, ID: l.LoadType.ID}
	}
	for _, tp := range l.TargetHardwareIDs() {
		if cfg.Version == files.Supplement345 {
			lhf.ThwIdPositions = append(lhf.ThwIdPositions, files.ThwIdPosition{ThwId: tp.ThwId, Positions: tp.Positions})
		} else {
			lhf.TargetHardwareIDs = append(lhf.TargetHardwareIDs, tp.ThwId)
		}
	}

	dataContents, dataMembers, err := buildLoadMembers(ms, cfg, l, l.DataFiles, (*media.LoadMember).EffectiveDataCheckValueType)
	if err != nil {
		return nil, nil, nil, err
	}
	supportContents, supportMembers, err := buildLoadMembers(ms, cfg, l, l.SupportFiles, (*media.LoadMember).EffectiveSupportCheckValueType)
	if err != nil {
		return nil, nil, nil, err
	}
	lhf.DataFiles = dataMembers
	lhf.SupportFiles = supportMembers
	return lhf, dataContents, supportContents, nil
}

func buildLoadMembers(ms *media.MediaSet, cfg Config, l *media.Load, members []*media.LoadMember, effectiveType func(*media.LoadMember, *media.MediaSet, *media.Load) checkvalue.Type) ([][]byte, []files.LoadMember, error) {
	contents := make([][]byte, len(members))
	out := make([]files.LoadMember, len(members))
	for i, m := range members {
		relPath := media.RelPath(m.File)
		content, err := cfg.Callbacks.ReadFile(m.File.Medium().Number(), relPath)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: load %q member %s: %v", ErrMissingSource, l.Name(), relPath, err)
		}
		contents[i] = content

		var cv checkvalue.Value
		if cfg.Version == files.Supplement345 {
			cv, err = checkvalue.Compute(effectiveType(m, ms, l), content)
			if err != nil {
				return nil, nil, fmt.Errorf("compiler: computing check value for %s: %w", relPath, err)
			}
		}
		out[i] = files.LoadMember{
			Filename:   m.File.Name(),
			PartNumber: m.PartNumber,
			Length:     uint32(len(content)),
			CRC:        checkvalue.CalcCRC16(content),
			CheckValue: cv,
		}
	}
	return contents, out, nil
}

func buildBatchFile(b *media.Batch, version files.Version) *files.BatchFile {
	bf := &files.BatchFile{Version: version, PartNumber: b.PartNumber, Comment: b.Comment}
	for _, t := range b.Targets() {
		bt := files.BatchTarget{ThwIdPosition: t.ThwIdPosition}
		for _, l := range t.Loads {
			bt.Loads = append(bt.Loads, files.BatchLoadRef{Filename: l.Name(), PartNumber: l.PartNumber})
		}
		bf.Targets = append(bf.Targets, bt)
	}
	return bf
}

// paddedUDD pads user-defined data to 16-bit alignment, reporting
// the padding through the warning logger; the list-file encoders would
// pad silently otherwise, and the host should hear about it.
func paddedUDD(cfg Config, listName string, udd []byte) []byte {
	if len(udd)%2 == 0 {
		return udd
	}
	cfg.Logger.Log("compiler: %s user-defined data has odd length %d, padding with 0x00", listName, len(udd))
	return append(append([]byte(nil), udd...), 0x00)
}

func composeLoadsList(ms *media.MediaSet, medium *media.Medium, allLoads []*media.Load, cfg Config) (string, []byte, error) {
	ll := &files.LoadsListFile{
		Version:                 cfg.Version,
		MediaSetPN:              ms.PartNumber,
		MediaSequenceNumber:     uint8(medium.Number()),
		NumberOfMediaSetMembers: uint8(ms.NumberOfMembers()),
		UserDefinedData:         paddedUDD(cfg, files.ListOfLoadsName, ms.LoadsUserDefinedData),
	}
	for _, l := range allLoads {
		li := files.LoadInfo{
			PartNumber:           l.PartNumber,
			HeaderFilename:       l.Name(),
			MemberSequenceNumber: uint16(l.Medium().Number()),
		}
		for _, tp := range l.TargetHardwareIDs() {
			li.TargetHardwareIDs = append(li.TargetHardwareIDs, tp.ThwId)
		}
		ll.Loads = append(ll.Loads, li)
	}
	b, err := ll.Encode()
	return "/" + files.ListOfLoadsName, b, err
}

func composeBatchesList(ms *media.MediaSet, medium *media.Medium, allBatches []*media.Batch, cfg Config) (string, []byte, error) {
	bl := &files.BatchesListFile{
		Version:                 cfg.Version,
		MediaSetPN:              ms.PartNumber,
		MediaSequenceNumber:     uint8(medium.Number()),
		NumberOfMediaSetMembers: uint8(ms.NumberOfMembers()),
		UserDefinedData:         paddedUDD(cfg, files.ListOfBatchesName, ms.BatchesUserDefinedData),
	}
	for _, b := range allBatches {
		bl.Batches = append(bl.Batches, files.BatchInfo{
			PartNumber:           b.PartNumber,
			Filename:             b.Name(),
			MemberSequenceNumber: uint16(b.Medium().Number()),
		})
	}
	raw, err := bl.Encode()
	return "/" + files.ListOfBatchesName, raw, err
}

func fileInfoFor(path []string, filename string, memberSeq int, data []byte, cvType checkvalue.Type) (files.FileInfo, error) {
	cv, err := checkvalue.Compute(cvType, data)
	if err != nil {
		return files.FileInfo{}, fmt.Errorf("compiler: computing file check value for %q: %w", filename, err)
	}
	return files.FileInfo{
		Filename:             filename,
		PathName:             codec.EncodePath(path),
		MemberSequenceNumber: uint16(memberSeq),
		CRC:                  checkvalue.CalcCRC16(data),
		CheckValue:           cv,
	}, nil
}
