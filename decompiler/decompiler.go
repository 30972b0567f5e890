// Package decompiler implements the ARINC 665 decompiler: it
// reads a Media Set back off storage through an injected read-file
// callback, parses the five binary file types, rebuilds the media
// object model, and, optionally, verifies every CRC and check value
// against the bytes actually present. It is the compiler's inverse.
package decompiler

import (
	"errors"
	"fmt"

	"github.com/tvogt/arinc665"
	"github.com/tvogt/arinc665/checkvalue"
	"github.com/tvogt/arinc665/codec"
	"github.com/tvogt/arinc665/files"
	"github.com/tvogt/arinc665/internal/errcollect"
	"github.com/tvogt/arinc665/media"
)

// Sentinel errors, returned wrapped with context.
var (
	ErrCrossReferenceMissing = errors.New("decompiler: cross-reference missing")
	ErrMediaSetInconsistent  = errors.New("decompiler: media set inconsistent")
	ErrNameCollision         = errors.New("decompiler: name collision")
	ErrCallbackFailed        = errors.New("decompiler: callback failed")
)

// Config configures one Decompile call: the number of media to read,
// the read-file callback, whether to verify integrity, and an optional
// warning logger.
type Config struct {
	NumberOfMedia      int
	ReadFile           func(medium int, relPath string) ([]byte, error)
	CheckFileIntegrity bool
	Logger             arinc665.Logger
}

// CheckValueCollection maps a file reference (its medium-relative path)
// to every check value observed for it across the layers that can carry
// one: its FILES.LUM entry, a Load-member entry (if it is a Load
// member), and, for a Load itself, the Load Check Value.
type CheckValueCollection struct {
	entries map[string][]checkvalue.Value
}

func newCheckValueCollection() *CheckValueCollection {
	return &CheckValueCollection{entries: map[string][]checkvalue.Value{}}
}

func (c *CheckValueCollection) add(relPath string, v checkvalue.Value) {
	if v.Type == checkvalue.NotUsed {
		return
	}
	c.entries[relPath] = append(c.entries[relPath], v)
}

// For returns every check value observed for the file at relPath, in
// the order they were recorded.
func (c *CheckValueCollection) For(relPath string) []checkvalue.Value {
	out := make([]checkvalue.Value, len(c.entries[relPath]))
	copy(out, c.entries[relPath])
	return out
}

// placedFile is a RegularFile attached provisionally to the tree during
// step 3, before Load/Batch promotion, paired with the medium it came
// from (needed to read its bytes back for promotion/verification).
type placedFile struct {
	file   *media.RegularFile
	medium int
}

// Decompile reads a Media Set via cfg.ReadFile and rebuilds it as a
// media.MediaSet.
func Decompile(cfg Config) (*media.MediaSet, *CheckValueCollection, error) {
	if cfg.NumberOfMedia < 1 {
		return nil, nil, fmt.Errorf("%w: NumberOfMedia must be at least 1", ErrMediaSetInconsistent)
	}

	filesLUM, err := readFilesList(cfg, 1)
	if err != nil {
		return nil, nil, err
	}
	if int(filesLUM.NumberOfMediaSetMembers) != cfg.NumberOfMedia {
		return nil, nil, fmt.Errorf("%w: medium 1 FILES.LUM declares %d media, Config specifies %d",
			ErrMediaSetInconsistent, filesLUM.NumberOfMediaSetMembers, cfg.NumberOfMedia)
	}

	ms := media.NewMediaSet(filesLUM.MediaSetPN)
	for i := 0; i < cfg.NumberOfMedia; i++ {
		ms.AddMedium()
	}
	ms.FilesUserDefinedData = importUDD(cfg, files.ListOfFilesName, filesLUM.UserDefinedData)

	cvc := newCheckValueCollection()
	crcExpected := map[string]uint16{}
	// cvExpected holds only the check values that cover a file's raw
	// bytes (FILES.LUM entries, load member entries); a Load Check Value
	// spans the header plus member contents and is verified separately
	// by verifyLoadIntegrity, so it goes into cvc but not here.
	cvExpected := map[string][]checkvalue.Value{}
	expectCV := func(relPath string, v checkvalue.Value) {
		cvc.add(relPath, v)
		if v.Type != checkvalue.NotUsed {
			cvExpected[relPath] = append(cvExpected[relPath], v)
		}
	}

	perMediumFiles := make([][]files.FileInfo, cfg.NumberOfMedia+1) // 1-indexed
	perMediumFiles[1] = filesLUM.Files
	perMediumLoads := make([][]files.LoadInfo, cfg.NumberOfMedia+1)
	perMediumBatches := make([][]files.BatchInfo, cfg.NumberOfMedia+1)

	var haveBatches bool
	for i := 1; i <= cfg.NumberOfMedia; i++ {
		if i > 1 {
			flf, err := readFilesList(cfg, i)
			if err != nil {
				return nil, nil, err
			}
			if err := checkSameMediaSet(filesLUM, flf, i); err != nil {
				return nil, nil, err
			}
			perMediumFiles[i] = flf.Files
		}

		loadsLUM, err := readLoadsList(cfg, i)
		if err != nil {
			return nil, nil, err
		}
		perMediumLoads[i] = loadsLUM.Loads
		if i == 1 {
			ms.LoadsUserDefinedData = importUDD(cfg, files.ListOfLoadsName, loadsLUM.UserDefinedData)
		}

		exists, err := batchesListExists(cfg, i)
		if err != nil {
			return nil, nil, err
		}
		if i == 1 {
			haveBatches = exists
		} else if exists != haveBatches {
			return nil, nil, fmt.Errorf("%w: medium %d %s BATCHES.LUM but medium 1 does not agree",
				ErrMediaSetInconsistent, i, presence(exists))
		}
		if exists {
			batchesLUM, err := readBatchesList(cfg, i)
			if err != nil {
				return nil, nil, err
			}
			perMediumBatches[i] = batchesLUM.Batches
			if i == 1 {
				ms.BatchesUserDefinedData = importUDD(cfg, files.ListOfBatchesName, batchesLUM.UserDefinedData)
			}
		}
	}

	// Step 3: fold medium 1's FILES.LUM (the canonical list — every
	// medium carries the same set, already cross-checked above) into the
	// tree as provisional RegularFiles, each placed on the medium its
	// member sequence number assigns it to. The list files themselves
	// are compiler-synthesized infrastructure, not modeled nodes.
	byName := map[string][]placedFile{}

	for _, fi := range perMediumFiles[1] {
		if fi.Filename == files.ListOfFilesName || fi.Filename == files.ListOfLoadsName || fi.Filename == files.ListOfBatchesName {
			continue
		}
		seq := int(fi.MemberSequenceNumber)
		medium := ms.Medium(seq)
		if medium == nil {
			return nil, nil, fmt.Errorf("%w: FILES.LUM entry %q has member sequence number %d, media set has %d media",
				ErrMediaSetInconsistent, fi.Filename, seq, cfg.NumberOfMedia)
		}
		dir, err := ensureDirectory(medium.Root(), codec.DecodePath(fi.PathName))
		if err != nil {
			return nil, nil, err
		}
		rf, err := dir.AddRegularFile(fi.Filename)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrNameCollision, err)
		}
		rf.CRC = fi.CRC
		relPath := media.RelPath(rf)
		expectCV(relPath, fi.CheckValue)
		crcExpected[relPath] = fi.CRC
		byName[fi.Filename] = append(byName[fi.Filename], placedFile{file: rf, medium: seq})
	}

	findFile := func(name string) (*media.RegularFile, int, error) {
		candidates := byName[name]
		if len(candidates) == 0 {
			return nil, 0, fmt.Errorf("%w: %q not found in FILES.LUM", ErrCrossReferenceMissing, name)
		}
		return candidates[0].file, candidates[0].medium, nil
	}

	// Step 4: promote Load headers.
	loadsByFilename := map[string]*media.Load{}
	var allLoadEntries []files.LoadInfo
	seenLoads := map[string]bool{}
	for i := 1; i <= cfg.NumberOfMedia; i++ {
		for _, li := range perMediumLoads[i] {
			if seenLoads[li.HeaderFilename] {
				continue
			}
			seenLoads[li.HeaderFilename] = true
			allLoadEntries = append(allLoadEntries, li)
		}
	}
	for _, li := range allLoadEntries {
		rf, medium, err := findFile(li.HeaderFilename)
		if err != nil {
			return nil, nil, err
		}
		relPath := media.RelPath(rf)
		raw, err := cfg.ReadFile(medium, relPath)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: reading load header %q: %v", ErrCallbackFailed, li.HeaderFilename, err)
		}
		lhf, err := files.DecodeLoadHeaderFile(raw)
		if err != nil {
			return nil, nil, err
		}

		l := media.NewLoad(li.HeaderFilename, lhf.PartNumber)
		l.PartFlags = lhf.PartFlags
		l.UserDefinedData = lhf.UserDefinedData
		if lhf.Version == files.Supplement345 {
			for _, tp := range lhf.ThwIdPositions {
				if len(tp.Positions) == 0 {
					l.AddTargetHardwareID(tp.ThwId)
					continue
				}
				for _, p := range tp.Positions {
					l.AddTargetHardwarePosition(tp.ThwId, p)
				}
			}
			if lhf.LoadType != nil {
				l.LoadType = &media.LoadType{Description: lhf.LoadType.Description, ID: lhf.LoadType.ID}
			}
		} else {
			for _, id := range lhf.TargetHardwareIDs {
				l.AddTargetHardwareID(id)
			}
		}
		l.CheckValueType = lhf.LoadCheckValueType

		if err := rf.Parent().ReplaceFile(rf, l); err != nil {
			return nil, nil, fmt.Errorf("%w: promoting load %q: %v", ErrCallbackFailed, li.HeaderFilename, err)
		}
		loadsByFilename[li.HeaderFilename] = l

		for _, m := range lhf.DataFiles {
			memberFile, _, ferr := findFile(m.Filename)
			if ferr != nil {
				return nil, nil, fmt.Errorf("%w: load %q data member %q: %v", ErrCrossReferenceMissing, li.HeaderFilename, m.Filename, ferr)
			}
			lm, aerr := l.AddDataFile(memberFile, m.PartNumber)
			if aerr != nil {
				return nil, nil, aerr
			}
			lm.CheckValueType = m.CheckValue.Type
			expectCV(media.RelPath(memberFile), m.CheckValue)
		}
		for _, m := range lhf.SupportFiles {
			memberFile, _, ferr := findFile(m.Filename)
			if ferr != nil {
				return nil, nil, fmt.Errorf("%w: load %q support member %q: %v", ErrCrossReferenceMissing, li.HeaderFilename, m.Filename, ferr)
			}
			lm, aerr := l.AddSupportFile(memberFile, m.PartNumber)
			if aerr != nil {
				return nil, nil, aerr
			}
			lm.CheckValueType = m.CheckValue.Type
			expectCV(media.RelPath(memberFile), m.CheckValue)
		}
		cvc.add(relPath, lhf.LoadCheckValue)

		if cfg.CheckFileIntegrity {
			if err := verifyLoadIntegrity(cfg, raw, lhf, l); err != nil {
				return nil, nil, err
			}
		}
	}

	// Step 5: promote Batches.
	var allBatchEntries []files.BatchInfo
	seenBatches := map[string]bool{}
	for i := 1; i <= cfg.NumberOfMedia; i++ {
		for _, bi := range perMediumBatches[i] {
			if seenBatches[bi.Filename] {
				continue
			}
			seenBatches[bi.Filename] = true
			allBatchEntries = append(allBatchEntries, bi)
		}
	}
	for _, bi := range allBatchEntries {
		rf, medium, err := findFile(bi.Filename)
		if err != nil {
			return nil, nil, err
		}
		relPath := media.RelPath(rf)
		raw, err := cfg.ReadFile(medium, relPath)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: reading batch %q: %v", ErrCallbackFailed, bi.Filename, err)
		}
		bf, err := files.DecodeBatchFile(raw)
		if err != nil {
			return nil, nil, err
		}

		b := media.NewBatch(bi.Filename, bf.PartNumber, bf.Comment)
		if err := rf.Parent().ReplaceFile(rf, b); err != nil {
			return nil, nil, fmt.Errorf("%w: promoting batch %q: %v", ErrCallbackFailed, bi.Filename, err)
		}
		for _, t := range bf.Targets {
			for _, ref := range t.Loads {
				l, ok := loadsByFilename[ref.Filename]
				if !ok {
					return nil, nil, fmt.Errorf("%w: batch %q targets unknown load %q", ErrCrossReferenceMissing, bi.Filename, ref.Filename)
				}
				if err := b.AppendLoad(t.ThwIdPosition, l); err != nil {
					return nil, nil, err
				}
			}
		}
	}

	if cfg.CheckFileIntegrity {
		if err := verifyCRCsAndCheckValues(cfg, ms, crcExpected, cvExpected); err != nil {
			return nil, nil, err
		}
	}

	return ms, cvc, nil
}

// importUDD brings a list file's user-defined data into the model,
// padding it to 16-bit alignment if an odd length is observed and
// reporting the repair through the warning logger.
func importUDD(cfg Config, listName string, udd []byte) []byte {
	if len(udd)%2 == 0 {
		return udd
	}
	cfg.Logger.Log("decompiler: %s user-defined data has odd length %d, padding with 0x00", listName, len(udd))
	return append(append([]byte(nil), udd...), 0x00)
}

func presence(b bool) string {
	if b {
		return "has"
	}
	return "lacks"
}

func readFilesList(cfg Config, medium int) (*files.FilesListFile, error) {
	raw, err := cfg.ReadFile(medium, "/"+files.ListOfFilesName)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s on medium %d: %v", ErrCallbackFailed, files.ListOfFilesName, medium, err)
	}
	return files.DecodeFilesListFile(raw)
}

func readLoadsList(cfg Config, medium int) (*files.LoadsListFile, error) {
	raw, err := cfg.ReadFile(medium, "/"+files.ListOfLoadsName)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s on medium %d: %v", ErrCallbackFailed, files.ListOfLoadsName, medium, err)
	}
	return files.DecodeLoadsListFile(raw)
}

func batchesListExists(cfg Config, medium int) (bool, error) {
	_, err := cfg.ReadFile(medium, "/"+files.ListOfBatchesName)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func readBatchesList(cfg Config, medium int) (*files.BatchesListFile, error) {
	raw, err := cfg.ReadFile(medium, "/"+files.ListOfBatchesName)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s on medium %d: %v", ErrCallbackFailed, files.ListOfBatchesName, medium, err)
	}
	return files.DecodeBatchesListFile(raw)
}

func checkSameMediaSet(first, other *files.FilesListFile, medium int) error {
	if other.MediaSetPN != first.MediaSetPN {
		return fmt.Errorf("%w: medium %d FILES.LUM part number %q disagrees with medium 1's %q",
			ErrMediaSetInconsistent, medium, other.MediaSetPN, first.MediaSetPN)
	}
	if other.NumberOfMediaSetMembers != first.NumberOfMediaSetMembers {
		return fmt.Errorf("%w: medium %d FILES.LUM declares %d media, medium 1 declares %d",
			ErrMediaSetInconsistent, medium, other.NumberOfMediaSetMembers, first.NumberOfMediaSetMembers)
	}
	firstNames := fileNameSet(first.Files)
	otherNames := fileNameSet(other.Files)

	// Collect every disagreement in the sweep instead of reporting them
	// one re-run at a time; the call still fails on the first medium
	// whose list disagrees.
	var c errcollect.Collector
	for name := range firstNames {
		if !otherNames[name] {
			c.Addf("missing %q, present on medium 1", name)
		}
	}
	for name := range otherNames {
		if !firstNames[name] {
			c.Addf("lists %q, absent on medium 1", name)
		}
	}
	if err := c.Err(); err != nil {
		return fmt.Errorf("%w: medium %d FILES.LUM: %v", ErrMediaSetInconsistent, medium, err)
	}
	return nil
}

// fileNameSet ignores LOADS.LUM/BATCHES.LUM entries, which legitimately
// differ in member sequence number between media but must still name
// the same overall file set otherwise.
func fileNameSet(fis []files.FileInfo) map[string]bool {
	out := map[string]bool{}
	for _, fi := range fis {
		if fi.Filename == files.ListOfLoadsName || fi.Filename == files.ListOfBatchesName {
			continue
		}
		out[fi.Filename] = true
	}
	return out
}

func ensureDirectory(root *media.Directory, components []string) (*media.Directory, error) {
	d := root
	for _, name := range components {
		sub := d.Directory(name)
		if sub == nil {
			var err error
			sub, err = d.AddDirectory(name)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrNameCollision, err)
			}
		}
		d = sub
	}
	return d, nil
}

// verifyLoadIntegrity recomputes the Load CRC-32 and Load Check Value
// over the header bytes actually on the medium plus the member contents
// in listing order, and compares them with the stored values.
func verifyLoadIntegrity(cfg Config, raw []byte, lhf *files.LoadHeaderFile, l *media.Load) error {
	dataContents, err := readMembers(cfg, l.DataFiles)
	if err != nil {
		return err
	}
	supportContents, err := readMembers(cfg, l.SupportFiles)
	if err != nil {
		return err
	}

	head := files.LoadCRCRange(raw, lhf)
	crc := checkvalue.NewDigest32()
	crc.Update(head)
	for _, c := range dataContents {
		crc.Update(c)
	}
	for _, c := range supportContents {
		crc.Update(c)
	}
	if got := crc.Finalize(); got != lhf.LoadCRC {
		return fmt.Errorf("%w: load %q: stored Load CRC %#08x, recomputed %#08x",
			files.ErrChecksumMismatch, l.Name(), lhf.LoadCRC, got)
	}

	if lhf.LoadCheckValueType != checkvalue.NotUsed {
		d, err := checkvalue.NewDigest(lhf.LoadCheckValueType)
		if err != nil {
			return fmt.Errorf("decompiler: recomputing load check value for %q: %w", l.Name(), err)
		}
		d.Update(head)
		for _, c := range dataContents {
			d.Update(c)
		}
		for _, c := range supportContents {
			d.Update(c)
		}
		if got := d.Finalize(); !got.Equal(lhf.LoadCheckValue) {
			return fmt.Errorf("%w: load %q Load Check Value", files.ErrCheckValueMismatch, l.Name())
		}
	}
	return nil
}

func readMembers(cfg Config, members []*media.LoadMember) ([][]byte, error) {
	out := make([][]byte, len(members))
	for i, m := range members {
		content, err := cfg.ReadFile(m.File.Medium().Number(), media.RelPath(m.File))
		if err != nil {
			return nil, fmt.Errorf("%w: reading load member %q: %v", ErrCallbackFailed, m.File.Name(), err)
		}
		out[i] = content
	}
	return out, nil
}

// verifyCRCsAndCheckValues recomputes every file's CRC-16 and ARINC 645
// check value from its raw bytes and compares against the values
// recorded while walking FILES.LUM and the load headers' member
// lists.
func verifyCRCsAndCheckValues(cfg Config, ms *media.MediaSet, crcExpected map[string]uint16, cvExpected map[string][]checkvalue.Value) error {
	for _, f := range ms.RecursiveFiles() {
		relPath := media.RelPath(f)
		data, err := cfg.ReadFile(f.Medium().Number(), relPath)
		if err != nil {
			return fmt.Errorf("%w: reading %s for integrity check: %v", ErrCallbackFailed, relPath, err)
		}

		if want, ok := crcExpected[relPath]; ok {
			if got := checkvalue.CalcCRC16(data); got != want {
				return fmt.Errorf("%w: %s: FILES.LUM CRC-16 is %#04x, recomputed %#04x",
					files.ErrChecksumMismatch, relPath, want, got)
			}
		}

		for _, want := range cvExpected[relPath] {
			got, err := checkvalue.Compute(want.Type, data)
			if err != nil {
				return err
			}
			if !got.Equal(want) {
				return fmt.Errorf("%w: %s", files.ErrCheckValueMismatch, relPath)
			}
		}
	}
	return nil
}
