package files

import (
	"fmt"

	"github.com/tvogt/arinc665/codec"
)

// LoadInfo is one entry in LOADS.LUM: a Load known to the Media Set, the
// medium carrying its Load Upload Header, and the target hardware it
// applies to.
type LoadInfo struct {
	PartNumber           string
	HeaderFilename       string
	MemberSequenceNumber uint16 // medium carrying the Load Upload Header
	TargetHardwareIDs    []string
}

// LoadsListFile is the decoded form of LOADS.LUM. The wire layout is the
// same fixed 20-byte media-list header under both supplements; only the
// format version field differs.
type LoadsListFile struct {
	Version                 Version
	MediaSetPN              string
	MediaSequenceNumber     uint8
	NumberOfMediaSetMembers uint8
	Loads                   []LoadInfo
	UserDefinedData         []byte
}

// Encode serializes l into a complete LOADS.LUM byte stream.
func (l *LoadsListFile) Encode() ([]byte, error) {
	formatVersion := MediaFileVersionSupplement2
	if l.Version == Supplement345 {
		formatVersion = MediaFileVersionSupplement345
	}

	body := encodeHeaderPlaceholder(formatVersion, 0)
	body = append(body, make([]byte, mediaListHeaderSizeV2-commonHeaderSize)...)

	mediaSetPNPtr := len(body) / 2
	var err error
	body, err = codec.EncodeString(body, l.MediaSetPN)
	if err != nil {
		return nil, fmt.Errorf("files: encoding LOADS.LUM media set PN: %w", err)
	}
	body = append(body, l.MediaSequenceNumber, l.NumberOfMediaSetMembers)

	loadsPtr := len(body) / 2
	body = codec.AppendU16(body, uint16(len(l.Loads)))
	for i, li := range l.Loads {
		entryStart := len(body)
		body = codec.AppendU16(body, 0) // next-pointer placeholder
		body, err = codec.EncodeString(body, li.PartNumber)
		if err != nil {
			return nil, fmt.Errorf("files: encoding LOADS.LUM entry %d part number: %w", i, err)
		}
		body, err = codec.EncodeString(body, li.HeaderFilename)
		if err != nil {
			return nil, fmt.Errorf("files: encoding LOADS.LUM entry %d header filename: %w", i, err)
		}
		body = codec.AppendU16(body, li.MemberSequenceNumber)
		body, err = codec.EncodeStringList(body, li.TargetHardwareIDs)
		if err != nil {
			return nil, fmt.Errorf("files: encoding LOADS.LUM entry %d THW-IDs: %w", i, err)
		}
		if i < len(l.Loads)-1 {
			nextWords := (len(body) - entryStart) / 2
			codec.SetU16(body, entryStart, uint16(nextWords))
		}
	}

	var udpPtr int
	if len(l.UserDefinedData) > 0 {
		udpPtr = len(body) / 2
		body = append(body, l.UserDefinedData...)
		if len(body)%2 != 0 {
			body = append(body, 0x00)
		}
	}

	codec.SetU32(body, mediaSetPNPointerOff, uint32(mediaSetPNPtr))
	codec.SetU32(body, mediaListPointerOff, uint32(loadsPtr))
	codec.SetU32(body, userDefinedDataPtrOff, uint32(udpPtr))

	return finalize(body)
}

// DecodeLoadsListFile parses a complete LOADS.LUM byte stream.
func DecodeLoadsListFile(raw []byte) (*LoadsListFile, error) {
	hdr, err := decodeHeader(KindLoadList, raw)
	if err != nil {
		return nil, err
	}

	out := &LoadsListFile{Version: Supplement2}
	switch hdr.FormatVersion {
	case MediaFileVersionSupplement2:
	case MediaFileVersionSupplement345:
		out.Version = Supplement345
	default:
		return nil, fmt.Errorf("%w: LOADS.LUM has unexpected format version %#04x", ErrInvalidFile, hdr.FormatVersion)
	}

	mediaSetPNPtr := int(codec.GetU32(raw, mediaSetPNPointerOff))
	loadsPtr := int(codec.GetU32(raw, mediaListPointerOff))
	udpPtr := int(codec.GetU32(raw, userDefinedDataPtrOff))

	pn, afterPN, err := codec.DecodeString(raw, mediaSetPNPtr*2)
	if err != nil {
		return nil, fmt.Errorf("files: decoding LOADS.LUM media set PN: %w", err)
	}
	if afterPN+2 > len(raw) {
		return nil, fmt.Errorf("%w: LOADS.LUM media information area truncated", ErrInvalidFile)
	}
	out.MediaSetPN = pn
	out.MediaSequenceNumber = raw[afterPN]
	out.NumberOfMediaSetMembers = raw[afterPN+1]

	out.Loads, err = decodeLoadsList(raw, loadsPtr*2)
	if err != nil {
		return nil, err
	}

	if udpPtr != 0 {
		end := len(raw) - 2
		if udpPtr*2 > end {
			return nil, fmt.Errorf("%w: LOADS.LUM user defined data pointer out of bounds", ErrInvalidFile)
		}
		out.UserDefinedData = append([]byte(nil), raw[udpPtr*2:end]...)
	}

	return out, nil
}

func decodeLoadsList(raw []byte, offset int) ([]LoadInfo, error) {
	if offset+2 > len(raw) {
		return nil, fmt.Errorf("%w: LOADS.LUM loads list count out of bounds", ErrInvalidFile)
	}
	n := int(codec.GetU16(raw, offset))
	pos := offset + 2
	out := make([]LoadInfo, 0, n)
	for i := 0; i < n; i++ {
		entryStart := pos
		next := int(codec.GetU16(raw, pos))
		fieldsStart := pos + 2

		pn, afterPN, err := codec.DecodeString(raw, fieldsStart)
		if err != nil {
			return nil, fmt.Errorf("files: decoding LOADS.LUM entry %d part number: %w", i, err)
		}
		headerFilename, afterName, err := codec.DecodeString(raw, afterPN)
		if err != nil {
			return nil, fmt.Errorf("files: decoding LOADS.LUM entry %d header filename: %w", i, err)
		}
		memberSeq := codec.GetU16(raw, afterName)
		thwIDs, fieldsEnd, err := codec.DecodeStringList(raw, afterName+2)
		if err != nil {
			return nil, fmt.Errorf("files: decoding LOADS.LUM entry %d THW-IDs: %w", i, err)
		}

		out = append(out, LoadInfo{
			PartNumber:           pn,
			HeaderFilename:       headerFilename,
			MemberSequenceNumber: memberSeq,
			TargetHardwareIDs:    thwIDs,
		})

		if next == 0 {
			pos = fieldsEnd
			break
		}
		pos = entryStart + next*2
	}
	return out, nil
}
