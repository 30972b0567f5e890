package files

import (
	"fmt"

	"github.com/tvogt/arinc665/checkvalue"
	"github.com/tvogt/arinc665/codec"
)

// fixed header sizes (bytes from start of file to start of the body),
// i.e. the offset just past the last pointer field.
const (
	mediaListHeaderSizeV2  = 20 // common(8) + MediaSetPN ptr(4) + list ptr(4) + UDD ptr(4)
	filesListHeaderSizeV3  = 24 // mediaListHeaderSizeV2 + FileCheckValue ptr(4)
	mediaSetPNPointerOff   = 8
	mediaListPointerOff    = 12
	userDefinedDataPtrOff  = 16
	fileCheckValuePtrOffV3 = 20
)

// FileInfo is one entry in FILES.LUM: a file known to the Media Set,
// the medium it is assigned to, and its integrity values.
type FileInfo struct {
	Filename             string
	PathName             string // wire-encoded path, see codec.EncodePath/DecodePath
	MemberSequenceNumber uint16 // 1..255: medium this file is assigned to
	CRC                  uint16
	CheckValue           checkvalue.Value // NotUsed under Supplement 2
}

// FilesListFile is the decoded form of FILES.LUM.
type FilesListFile struct {
	Version                 Version
	MediaSetPN              string
	MediaSequenceNumber     uint8
	NumberOfMediaSetMembers uint8
	Files                   []FileInfo
	UserDefinedData         []byte
	CheckValue              checkvalue.Value // whole-file check value; NotUsed if absent
}

// Encode serializes f into a complete FILES.LUM byte stream, including
// the framed header and trailing CRC-16.
func (f *FilesListFile) Encode() ([]byte, error) {
	v3 := f.Version == Supplement345
	formatVersion := MediaFileVersionSupplement2
	headerSize := mediaListHeaderSizeV2
	if v3 {
		formatVersion = MediaFileVersionSupplement345
		headerSize = filesListHeaderSizeV3
	}

	body := encodeHeaderPlaceholder(formatVersion, 0)
	body = append(body, make([]byte, headerSize-commonHeaderSize)...)

	mediaSetPNPtr := len(body) / 2
	var err error
	body, err = codec.EncodeString(body, f.MediaSetPN)
	if err != nil {
		return nil, fmt.Errorf("files: encoding FILES.LUM media set PN: %w", err)
	}
	body = append(body, f.MediaSequenceNumber, f.NumberOfMediaSetMembers)

	filesPtr := len(body) / 2
	body, err = f.encodeFilesList(body, v3)
	if err != nil {
		return nil, err
	}

	var udpPtr int
	if len(f.UserDefinedData) > 0 {
		udpPtr = len(body) / 2
		body = append(body, f.UserDefinedData...)
		if len(body)%2 != 0 {
			body = append(body, 0x00)
		}
	}

	codec.SetU32(body, mediaSetPNPointerOff, uint32(mediaSetPNPtr))
	codec.SetU32(body, mediaListPointerOff, uint32(filesPtr))
	codec.SetU32(body, userDefinedDataPtrOff, uint32(udpPtr))

	if !v3 {
		return finalize(body)
	}

	if f.CheckValue.Type == checkvalue.NotUsed {
		codec.SetU32(body, fileCheckValuePtrOffV3, 0)
		return finalize(body)
	}

	checkValuePtr := len(body) / 2
	codec.SetU32(body, fileCheckValuePtrOffV3, uint32(checkValuePtr))
	final, _, err := finalizeWithCheckValue(body, f.CheckValue.Type)
	return final, err
}

func (f *FilesListFile) encodeFilesList(body []byte, v3 bool) ([]byte, error) {
	body = codec.AppendU16(body, uint16(len(f.Files)))
	var err error
	for i, fi := range f.Files {
		entryStart := len(body)
		body = codec.AppendU16(body, 0) // next-pointer placeholder
		body, err = codec.EncodeString(body, fi.Filename)
		if err != nil {
			return nil, fmt.Errorf("files: encoding filename %q: %w", fi.Filename, err)
		}
		body, err = codec.EncodeString(body, fi.PathName)
		if err != nil {
			return nil, fmt.Errorf("files: encoding path for %q: %w", fi.Filename, err)
		}
		body = codec.AppendU16(body, fi.MemberSequenceNumber)
		body = codec.AppendU16(body, fi.CRC)
		if v3 {
			body = encodeFileCheckValue(body, fi.CheckValue)
		}
		if i < len(f.Files)-1 {
			nextWords := (len(body) - entryStart) / 2
			codec.SetU16(body, entryStart, uint16(nextWords))
		}
	}
	return body, nil
}

// DecodeFilesListFile parses a complete FILES.LUM byte stream.
func DecodeFilesListFile(raw []byte) (*FilesListFile, error) {
	hdr, err := decodeHeader(KindFileList, raw)
	if err != nil {
		return nil, err
	}

	var v3 bool
	switch hdr.FormatVersion {
	case MediaFileVersionSupplement2:
		v3 = false
	case MediaFileVersionSupplement345:
		v3 = true
	default:
		return nil, fmt.Errorf("%w: FILES.LUM has unexpected format version %#04x", ErrInvalidFile, hdr.FormatVersion)
	}

	mediaSetPNPtr := int(codec.GetU32(raw, mediaSetPNPointerOff))
	filesPtr := int(codec.GetU32(raw, mediaListPointerOff))
	udpPtr := int(codec.GetU32(raw, userDefinedDataPtrOff))

	pn, afterPN, err := codec.DecodeString(raw, mediaSetPNPtr*2)
	if err != nil {
		return nil, fmt.Errorf("files: decoding FILES.LUM media set PN: %w", err)
	}
	if afterPN+2 > len(raw) {
		return nil, fmt.Errorf("%w: FILES.LUM media information area truncated", ErrInvalidFile)
	}
	mediaSeq := raw[afterPN]
	numMembers := raw[afterPN+1]

	out := &FilesListFile{
		Version:                 Supplement2,
		MediaSetPN:              pn,
		MediaSequenceNumber:     mediaSeq,
		NumberOfMediaSetMembers: numMembers,
	}
	if v3 {
		out.Version = Supplement345
	}

	out.Files, err = decodeFilesList(raw, filesPtr*2, v3)
	if err != nil {
		return nil, err
	}

	if udpPtr != 0 {
		end := len(raw) - 2
		if v3 {
			if cvPtr := int(codec.GetU32(raw, fileCheckValuePtrOffV3)); cvPtr != 0 {
				end = cvPtr * 2
			}
		}
		if udpPtr*2 > end {
			return nil, fmt.Errorf("%w: FILES.LUM user defined data pointer out of bounds", ErrInvalidFile)
		}
		out.UserDefinedData = append([]byte(nil), raw[udpPtr*2:end]...)
	}

	if v3 {
		if cvPtr := int(codec.GetU32(raw, fileCheckValuePtrOffV3)); cvPtr != 0 {
			cv, _, err := decodeFileCheckValue(raw, cvPtr*2)
			if err != nil {
				return nil, fmt.Errorf("files: decoding FILES.LUM check value: %w", err)
			}
			out.CheckValue = cv
		}
	}

	return out, nil
}

func decodeFilesList(raw []byte, offset int, v3 bool) ([]FileInfo, error) {
	if offset+2 > len(raw) {
		return nil, fmt.Errorf("%w: FILES.LUM files list count out of bounds", ErrInvalidFile)
	}
	n := int(codec.GetU16(raw, offset))
	pos := offset + 2
	out := make([]FileInfo, 0, n)
	for i := 0; i < n; i++ {
		entryStart := pos
		next := int(codec.GetU16(raw, pos))
		fieldsStart := pos + 2

		filename, afterName, err := codec.DecodeString(raw, fieldsStart)
		if err != nil {
			return nil, fmt.Errorf("files: decoding FILES.LUM entry %d filename: %w", i, err)
		}
		pathName, afterPath, err := codec.DecodeString(raw, afterName)
		if err != nil {
			return nil, fmt.Errorf("files: decoding FILES.LUM entry %d path: %w", i, err)
		}
		memberSeq := codec.GetU16(raw, afterPath)
		crc := codec.GetU16(raw, afterPath+2)
		fieldsEnd := afterPath + 4

		fi := FileInfo{
			Filename:             filename,
			PathName:             pathName,
			MemberSequenceNumber: memberSeq,
			CRC:                  crc,
		}
		if v3 {
			cv, next2, err := decodeFileCheckValue(raw, fieldsEnd)
			if err != nil {
				return nil, fmt.Errorf("files: decoding FILES.LUM entry %d check value: %w", i, err)
			}
			fi.CheckValue = cv
			fieldsEnd = next2
		}
		out = append(out, fi)

		if next == 0 {
			pos = fieldsEnd
			break
		}
		pos = entryStart + next*2
	}
	return out, nil
}
