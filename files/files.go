// Package files implements the five ARINC 665 binary file types: the
// Load Header File (*.LUH), the Batch File (*.LUB), and the three
// per-medium list files (FILES.LUM, LOADS.LUM, BATCHES.LUM). Each type
// shares a common framed header and CRC-16 trailer (this file) and adds
// its own version-specific body (see loadheader.go, batch.go,
// fileslist.go, loadslist.go, batcheslist.go).
package files

import (
	"errors"
	"fmt"

	"github.com/tvogt/arinc665/checkvalue"
	"github.com/tvogt/arinc665/codec"
)

// Version selects which ARINC 665 supplement a file is encoded/decoded
// against, mirroring arinc665.SupportedArinc665Version.
type Version int

const (
	Supplement2 Version = iota
	Supplement345
)

func (v Version) String() string {
	if v == Supplement2 {
		return "Supplement 2"
	}
	return "Supplement 3/4/5"
}

// FileFormatVersion is the raw uint16 "file format version" field at
// offset 4 of every framed file. Values are fixed by ARINC 665.
type FileFormatVersion uint16

const (
	LoadFileVersionSupplement1   FileFormatVersion = 0x8002
	LoadFileVersionSupplement2   FileFormatVersion = 0x8003
	LoadFileVersionSupplement345 FileFormatVersion = 0x8004

	BatchFileVersionSupplement1   FileFormatVersion = 0x8002
	BatchFileVersionSupplement2   FileFormatVersion = 0x9003
	BatchFileVersionSupplement345 FileFormatVersion = 0x9004

	MediaFileVersionSupplement1   FileFormatVersion = 0x8002
	MediaFileVersionSupplement2   FileFormatVersion = 0xA003
	MediaFileVersionSupplement345 FileFormatVersion = 0xA004
)

// FileClass names the three wire-format classes the file format version
// field distinguishes: load files (0x80xx), batch files (0x90xx), and
// media list files (0xA0xx).
type FileClass int

const (
	ClassLoadFile FileClass = iota
	ClassBatchFile
	ClassMediaFile
)

func (c FileClass) String() string {
	switch c {
	case ClassLoadFile:
		return "Load File"
	case ClassBatchFile:
		return "Batch File"
	case ClassMediaFile:
		return "Media List File"
	default:
		return fmt.Sprintf("FileClass(%d)", int(c))
	}
}

// Kind names one of the five concrete ARINC 665 file types, used for
// dispatch and in error context.
type Kind int

const (
	KindBatchFile Kind = iota
	KindLoadUploadHeader
	KindLoadList
	KindBatchList
	KindFileList
)

func (k Kind) String() string {
	switch k {
	case KindBatchFile:
		return "Batch File"
	case KindLoadUploadHeader:
		return "Load Upload Header"
	case KindLoadList:
		return "List of Loads"
	case KindBatchList:
		return "List of Batches"
	case KindFileList:
		return "List of Files"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Class returns the wire-format class k belongs to.
func (k Kind) Class() FileClass {
	switch k {
	case KindLoadUploadHeader:
		return ClassLoadFile
	case KindBatchFile:
		return ClassBatchFile
	default:
		return ClassMediaFile
	}
}

// Default on-medium names and extensions.
const (
	ListOfFilesName   = "FILES.LUM"
	ListOfLoadsName   = "LOADS.LUM"
	ListOfBatchesName = "BATCHES.LUM"

	LoadUploadHeaderExtension = ".LUH"
	BatchFileExtension        = ".LUB"
)

// Sentinel errors, returned wrapped with additional context via
// fmt.Errorf's %w verb. ChecksumMismatch and
// CheckValueMismatch are distinguished because the former is a CRC fixed
// to the framing layer and the latter is an ARINC 645 check value that
// may cover a larger, type-dependent byte range.
var (
	ErrInvalidFile        = errors.New("arinc665: invalid file")
	ErrChecksumMismatch   = errors.New("arinc665: checksum mismatch")
	ErrCheckValueMismatch = errors.New("arinc665: check value mismatch")
)

// commonHeaderSize is the size, in bytes, of the framed header shared by
// all five file types (file length, format version, spare/part-flags).
const commonHeaderSize = 8

// header models the common framed header: file length in 16-bit
// words, format version, and a spare/part-flags field.
type header struct {
	FormatVersion FileFormatVersion
	Spare         uint16
}

// encodeHeaderPlaceholder writes an 8-byte placeholder header (file
// length left as zero, to be patched in by finalize once the full body
// is known).
func encodeHeaderPlaceholder(formatVersion FileFormatVersion, spare uint16) []byte {
	b := make([]byte, commonHeaderSize)
	codec.SetU32(b, 0, 0)
	codec.SetU16(b, 4, uint16(formatVersion))
	codec.SetU16(b, 6, spare)
	return b
}

// finalize patches the file-length field and appends the trailing
// CRC-16, given the fully composed body (including the placeholder
// header, but not yet the trailer). The returned slice is the complete
// on-disk file content.
func finalize(body []byte) ([]byte, error) {
	if len(body)%2 != 0 {
		return nil, fmt.Errorf("%w: body length %d is odd", ErrInvalidFile, len(body))
	}
	total := len(body) + 2
	if total%2 != 0 {
		return nil, fmt.Errorf("%w: total length %d is odd", ErrInvalidFile, total)
	}
	codec.SetU32(body, 0, uint32(total/2))
	crc := checkvalue.CalcCRC16(body)
	return codec.AppendU16(body, crc), nil
}

// finalizeWithCheckValue is like finalize, but also appends a whole-file
// ARINC 645 check value immediately before the CRC-16 trailer. The
// check value is computed over the entire file content up to (but not
// including) itself, which includes the now-final length field, so the
// length is patched in before computing it.
func finalizeWithCheckValue(prefix []byte, typ checkvalue.Type) ([]byte, checkvalue.Value, error) {
	if len(prefix)%2 != 0 {
		return nil, checkvalue.Value{}, fmt.Errorf("%w: body length %d is odd", ErrInvalidFile, len(prefix))
	}
	payloadLen := typ.Len()
	paddedLen := payloadLen
	if paddedLen%2 != 0 {
		paddedLen++
	}
	checkValueAreaSize := 4 + paddedLen
	total := len(prefix) + checkValueAreaSize + 2
	if total%2 != 0 {
		return nil, checkvalue.Value{}, fmt.Errorf("%w: total length %d is odd", ErrInvalidFile, total)
	}
	codec.SetU32(prefix, 0, uint32(total/2))

	value, err := checkvalue.Compute(typ, prefix)
	if err != nil {
		return nil, checkvalue.Value{}, fmt.Errorf("files: computing whole-file check value: %w", err)
	}

	body := encodeFileCheckValue(prefix, value)
	crc := checkvalue.CalcCRC16(body)
	return codec.AppendU16(body, crc), value, nil
}

// decodeHeader validates and parses the common framed header plus the
// trailing CRC-16 of a complete file, returning the parsed header and
// the format version actually observed on the wire.
func decodeHeader(kind Kind, raw []byte) (header, error) {
	if len(raw) < commonHeaderSize+2 {
		return header{}, fmt.Errorf("%w: %s too short (%d bytes)", ErrInvalidFile, kind, len(raw))
	}
	if len(raw)%2 != 0 {
		return header{}, fmt.Errorf("%w: %s has odd length %d", ErrInvalidFile, kind, len(raw))
	}
	lengthWords := codec.GetU32(raw, 0)
	if int(lengthWords)*2 != len(raw) {
		return header{}, fmt.Errorf("%w: %s length field says %d words, actual length is %d bytes", ErrInvalidFile, kind, lengthWords, len(raw))
	}

	payload := raw[:len(raw)-2]
	wantCRC := codec.GetU16(raw, len(raw)-2)
	gotCRC := checkvalue.CalcCRC16(payload)
	if gotCRC != wantCRC {
		return header{}, fmt.Errorf("%w: %s trailer CRC-16 is %#04x, computed %#04x", ErrChecksumMismatch, kind, wantCRC, gotCRC)
	}

	formatVersion := FileFormatVersion(codec.GetU16(raw, 4))
	spare := codec.GetU16(raw, 6)
	return header{FormatVersion: formatVersion, Spare: spare}, nil
}

// encodeFileCheckValue encodes a check value in the "File Check Value"
// format used by FILES.LUM per-file entries, the Load Header's members,
// and whole-file check values: a 16-bit length-in-words (the
// type field plus the 2-byte-aligned payload), a 16-bit type, and the
// (possibly padded) payload.
func encodeFileCheckValue(b []byte, v checkvalue.Value) []byte {
	payload := append([]byte(nil), v.Bytes...)
	if len(payload)%2 != 0 {
		payload = append(payload, 0x00)
	}
	lengthWords := uint16(1 + len(payload)/2)
	b = codec.AppendU16(b, lengthWords)
	b = codec.AppendU16(b, uint16(v.Type))
	b = append(b, payload...)
	return b
}

// decodeFileCheckValue reads a File Check Value starting at offset and
// returns the decoded value along with the offset following it.
func decodeFileCheckValue(b []byte, offset int) (checkvalue.Value, int, error) {
	if offset+4 > len(b) {
		return checkvalue.Value{}, 0, fmt.Errorf("%w: file check value header out of bounds at offset %d", ErrInvalidFile, offset)
	}
	lengthWords := int(codec.GetU16(b, offset))
	typ := checkvalue.Type(codec.GetU16(b, offset+2))
	totalAfterLength := lengthWords * 2
	end := offset + 2 + totalAfterLength
	if end > len(b) || totalAfterLength < 2 {
		return checkvalue.Value{}, 0, fmt.Errorf("%w: file check value payload out of bounds at offset %d", ErrInvalidFile, offset)
	}
	payload := b[offset+4 : end]
	if !typ.Valid() {
		return checkvalue.Value{}, 0, fmt.Errorf("%w: unknown check value type %d at offset %d", ErrInvalidFile, typ, offset)
	}
	n := typ.Len()
	if n > len(payload) {
		return checkvalue.Value{}, 0, fmt.Errorf("%w: check value of type %s needs %d bytes, only %d available", ErrInvalidFile, typ, n, len(payload))
	}
	value := checkvalue.Value{Type: typ}
	if n > 0 {
		value.Bytes = append([]byte(nil), payload[:n]...)
	}
	return value, end, nil
}
