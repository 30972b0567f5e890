package files

import (
	"fmt"

	"github.com/tvogt/arinc665/checkvalue"
	"github.com/tvogt/arinc665/codec"
)

const (
	loadHeaderSizeV2 = 30 // common(8) + PartFlags(2) + 5 pointers(4 each)
	loadHeaderSizeV3 = 38 // loadHeaderSizeV2 + 2 pointers(4 each): Load Type, Load Check Value

	loadPNPointerOffset           = 10
	loadThwPointerOffset          = 14
	loadDataFilePointerOffset     = 18
	loadSupportFilePointerOffset  = 22
	loadUDDPointerOffset          = 26
	loadTypePointerOffsetV3       = 30
	loadCheckValuePointerOffsetV3 = 34
)

// ThwIdPosition groups the Positions a Load applies to under a single
// Target Hardware identifier, used from Supplement 3/4/5 onward.
type ThwIdPosition struct {
	ThwId     string
	Positions []string
}

// LoadMember is one entry in a Load's Data File or Support File list.
type LoadMember struct {
	Filename   string
	PartNumber string
	Length     uint32
	CRC        uint16
	CheckValue checkvalue.Value // NotUsed under Supplement 2
}

// LoadType names the optional Supplement 3/4/5 Load Type descriptor.
type LoadType struct {
	Description string
	ID          uint16
}

// LoadHeaderFile is the decoded form of a Load Header File (*.LUH).
//
// LoadCRC and LoadCheckValue are integrity values computed over the
// header bytes and the referenced members' actual content (see
// Encode); on a freshly-constructed value meant for encoding they
// should be left zero, since Encode computes and fills them in.
type LoadHeaderFile struct {
	Version            Version
	PartFlags          uint16 // Supplement 3/4/5 only; spare (0) under Supplement 2
	PartNumber         string
	TargetHardwareIDs  []string        // Supplement 2
	ThwIdPositions     []ThwIdPosition // Supplement 3/4/5
	DataFiles          []LoadMember
	SupportFiles       []LoadMember
	UserDefinedData    []byte
	LoadType           *LoadType // Supplement 3/4/5 only
	LoadCheckValueType checkvalue.Type

	LoadCRC        uint32
	LoadCheckValue checkvalue.Value
}

// Encode serializes l into a complete Load Header File byte stream.
// dataFileContents and supportFileContents must hold the actual byte
// content of each entry in l.DataFiles and l.SupportFiles, in the same
// order, since the Load CRC-32 (and, under Supplement 3/4/5, the Load
// Check Value) are computed over the header bytes concatenated with
// these contents. l.LoadCRC and l.LoadCheckValue are
// populated as a side effect.
func (l *LoadHeaderFile) Encode(dataFileContents, supportFileContents [][]byte) ([]byte, error) {
	if len(dataFileContents) != len(l.DataFiles) {
		return nil, fmt.Errorf("files: %d data file contents provided, load has %d data file entries", len(dataFileContents), len(l.DataFiles))
	}
	if len(supportFileContents) != len(l.SupportFiles) {
		return nil, fmt.Errorf("files: %d support file contents provided, load has %d support file entries", len(supportFileContents), len(l.SupportFiles))
	}

	v3 := l.Version == Supplement345
	formatVersion := LoadFileVersionSupplement2
	headerSize := loadHeaderSizeV2
	if v3 {
		formatVersion = LoadFileVersionSupplement345
		headerSize = loadHeaderSizeV3
	}

	body := encodeHeaderPlaceholder(formatVersion, 0)
	body = codec.AppendU16(body, l.PartFlags)
	body = append(body, make([]byte, headerSize-len(body))...)

	loadPNPtr := len(body) / 2
	var err error
	body, err = codec.EncodeString(body, l.PartNumber)
	if err != nil {
		return nil, fmt.Errorf("files: encoding load part number: %w", err)
	}

	thwPtr := len(body) / 2
	if v3 {
		body = codec.AppendU16(body, uint16(len(l.ThwIdPositions)))
		for i, tp := range l.ThwIdPositions {
			body, err = codec.EncodeString(body, tp.ThwId)
			if err != nil {
				return nil, fmt.Errorf("files: encoding load THW-ID %d: %w", i, err)
			}
			body, err = codec.EncodeStringList(body, tp.Positions)
			if err != nil {
				return nil, fmt.Errorf("files: encoding load THW-ID %d positions: %w", i, err)
			}
		}
	} else {
		body, err = codec.EncodeStringList(body, l.TargetHardwareIDs)
		if err != nil {
			return nil, fmt.Errorf("files: encoding load THW-IDs: %w", err)
		}
	}

	dataFilePtr := len(body) / 2
	body, err = encodeLoadMemberList(body, l.DataFiles, v3)
	if err != nil {
		return nil, fmt.Errorf("files: encoding load data file list: %w", err)
	}

	supportFilePtr := len(body) / 2
	body, err = encodeLoadMemberList(body, l.SupportFiles, v3)
	if err != nil {
		return nil, fmt.Errorf("files: encoding load support file list: %w", err)
	}

	var udpPtr int
	if len(l.UserDefinedData) > 0 {
		udpPtr = len(body) / 2
		body = append(body, l.UserDefinedData...)
		if len(body)%2 != 0 {
			body = append(body, 0x00)
		}
	}

	var loadTypePtr, loadCheckValuePtr int
	var checkValuePayloadOffset, checkValuePayloadLen int
	if v3 {
		if l.LoadType != nil {
			loadTypePtr = len(body) / 2
			body, err = codec.EncodeString(body, l.LoadType.Description)
			if err != nil {
				return nil, fmt.Errorf("files: encoding load type: %w", err)
			}
			body = codec.AppendU16(body, l.LoadType.ID)
		}

		if l.LoadCheckValueType != checkvalue.NotUsed {
			loadCheckValuePtr = len(body) / 2
			payloadLen := l.LoadCheckValueType.Len()
			paddedLen := payloadLen
			if paddedLen%2 != 0 {
				paddedLen++
			}
			checkValuePayloadOffset = len(body) + 4
			checkValuePayloadLen = paddedLen
			body = encodeFileCheckValue(body, checkvalue.Value{Type: l.LoadCheckValueType, Bytes: make([]byte, paddedLen)})
		}
	}

	codec.SetU32(body, loadPNPointerOffset, uint32(loadPNPtr))
	codec.SetU32(body, loadThwPointerOffset, uint32(thwPtr))
	codec.SetU32(body, loadDataFilePointerOffset, uint32(dataFilePtr))
	codec.SetU32(body, loadSupportFilePointerOffset, uint32(supportFilePtr))
	codec.SetU32(body, loadUDDPointerOffset, uint32(udpPtr))
	if v3 {
		codec.SetU32(body, loadTypePointerOffsetV3, uint32(loadTypePtr))
		codec.SetU32(body, loadCheckValuePointerOffsetV3, uint32(loadCheckValuePtr))
	}

	crcDigest, err := checkvalue.NewDigest(checkvalue.CRC32)
	if err != nil {
		return nil, fmt.Errorf("files: preparing load CRC-32: %w", err)
	}
	var cvDigest *checkvalue.Digest
	if l.LoadCheckValueType != checkvalue.NotUsed {
		cvDigest, err = checkvalue.NewDigest(l.LoadCheckValueType)
		if err != nil {
			return nil, fmt.Errorf("files: preparing load check value: %w", err)
		}
	}
	updateBoth := func(b []byte) {
		crcDigest.Update(b)
		if cvDigest != nil {
			cvDigest.Update(b)
		}
	}

	// The Load CRC and Load Check Value cover the header bytes as they
	// appear on the medium, which means the length field must already
	// hold its final value before hashing even though finalize (which
	// writes that same value) has not run yet.
	finalLength := len(body) + 4 + 2
	codec.SetU32(body, 0, uint32(finalLength/2))

	updateBoth(body)
	for _, c := range dataFileContents {
		updateBoth(c)
	}
	for _, c := range supportFileContents {
		updateBoth(c)
	}

	loadCRCValue := crcDigest.Finalize()
	l.LoadCRC = codec.GetU32(loadCRCValue.Bytes, 0)
	if cvDigest != nil {
		l.LoadCheckValue = cvDigest.Finalize()
		copy(body[checkValuePayloadOffset:checkValuePayloadOffset+checkValuePayloadLen], l.LoadCheckValue.Bytes)
		if pad := checkValuePayloadLen - len(l.LoadCheckValue.Bytes); pad > 0 {
			for i := checkValuePayloadOffset + len(l.LoadCheckValue.Bytes); i < checkValuePayloadOffset+checkValuePayloadLen; i++ {
				body[i] = 0x00
			}
		}
	} else {
		l.LoadCheckValue = checkvalue.NoCheckValue
	}

	body = codec.AppendU32(body, l.LoadCRC)

	return finalize(body)
}

func encodeLoadMemberList(body []byte, members []LoadMember, v3 bool) ([]byte, error) {
	body = codec.AppendU16(body, uint16(len(members)))
	var err error
	for i, m := range members {
		entryStart := len(body)
		body = codec.AppendU16(body, 0) // next-member pointer placeholder
		body, err = codec.EncodeString(body, m.Filename)
		if err != nil {
			return nil, fmt.Errorf("entry %d filename: %w", i, err)
		}
		body, err = codec.EncodeString(body, m.PartNumber)
		if err != nil {
			return nil, fmt.Errorf("entry %d part number: %w", i, err)
		}
		body = codec.AppendU32(body, m.Length)
		body = codec.AppendU16(body, m.CRC)
		if v3 {
			body = encodeFileCheckValue(body, m.CheckValue)
		}
		if i < len(members)-1 {
			nextWords := (len(body) - entryStart) / 2
			codec.SetU16(body, entryStart, uint16(nextWords))
		}
	}
	return body, nil
}

// DecodeLoadHeaderFile parses a complete Load Header File byte stream.
func DecodeLoadHeaderFile(raw []byte) (*LoadHeaderFile, error) {
	hdr, err := decodeHeader(KindLoadUploadHeader, raw)
	if err != nil {
		return nil, err
	}

	out := &LoadHeaderFile{Version: Supplement2, LoadCheckValueType: checkvalue.NotUsed, LoadCheckValue: checkvalue.NoCheckValue}
	var v3 bool
	switch hdr.FormatVersion {
	case LoadFileVersionSupplement2:
	case LoadFileVersionSupplement345:
		out.Version = Supplement345
		v3 = true
	default:
		return nil, fmt.Errorf("%w: Load Header File has unexpected format version %#04x", ErrInvalidFile, hdr.FormatVersion)
	}
	out.PartFlags = codec.GetU16(raw, 8)

	loadPNPtr := int(codec.GetU32(raw, loadPNPointerOffset))
	thwPtr := int(codec.GetU32(raw, loadThwPointerOffset))
	dataFilePtr := int(codec.GetU32(raw, loadDataFilePointerOffset))
	supportFilePtr := int(codec.GetU32(raw, loadSupportFilePointerOffset))
	udpPtr := int(codec.GetU32(raw, loadUDDPointerOffset))

	pn, _, err := codec.DecodeString(raw, loadPNPtr*2)
	if err != nil {
		return nil, fmt.Errorf("files: decoding load part number: %w", err)
	}
	out.PartNumber = pn

	if v3 {
		out.ThwIdPositions, err = decodeThwIdPositions(raw, thwPtr*2)
	} else {
		out.TargetHardwareIDs, _, err = codec.DecodeStringList(raw, thwPtr*2)
	}
	if err != nil {
		return nil, fmt.Errorf("files: decoding load THW-IDs: %w", err)
	}

	out.DataFiles, err = decodeLoadMemberList(raw, dataFilePtr*2, v3)
	if err != nil {
		return nil, fmt.Errorf("files: decoding load data file list: %w", err)
	}
	out.SupportFiles, err = decodeLoadMemberList(raw, supportFilePtr*2, v3)
	if err != nil {
		return nil, fmt.Errorf("files: decoding load support file list: %w", err)
	}

	tailStart := len(raw) - 2 - 4 // before final CRC-16, before 4-byte Load CRC
	out.LoadCRC = codec.GetU32(raw, tailStart)

	var loadTypePtr, loadCheckValuePtr int
	if v3 {
		loadTypePtr = int(codec.GetU32(raw, loadTypePointerOffsetV3))
		loadCheckValuePtr = int(codec.GetU32(raw, loadCheckValuePointerOffsetV3))
	}

	if udpPtr != 0 {
		end := tailStart
		if v3 {
			switch {
			case loadTypePtr != 0:
				end = loadTypePtr * 2
			case loadCheckValuePtr != 0:
				end = loadCheckValuePtr * 2
			}
		}
		if udpPtr*2 > end {
			return nil, fmt.Errorf("%w: Load Header File user defined data pointer out of bounds", ErrInvalidFile)
		}
		out.UserDefinedData = append([]byte(nil), raw[udpPtr*2:end]...)
	}

	if v3 {
		if loadTypePtr != 0 {
			desc, afterDesc, err := codec.DecodeString(raw, loadTypePtr*2)
			if err != nil {
				return nil, fmt.Errorf("files: decoding load type: %w", err)
			}
			id := codec.GetU16(raw, afterDesc)
			out.LoadType = &LoadType{Description: desc, ID: id}
		}
		if loadCheckValuePtr != 0 {
			cv, _, err := decodeFileCheckValue(raw, loadCheckValuePtr*2)
			if err != nil {
				return nil, fmt.Errorf("files: decoding load check value: %w", err)
			}
			out.LoadCheckValue = cv
			out.LoadCheckValueType = cv.Type
		}
	}

	return out, nil
}

// LoadCRCRange returns the header portion of the byte range covered by
// a Load Header File's Load CRC and Load Check Value: everything up to
// (not including) the 4-byte Load CRC field and the trailing CRC-16,
// with the Load Check Value payload zeroed the way it was when the
// values were first computed. The caller appends the data and support
// file contents in listing order to complete the range.
func LoadCRCRange(raw []byte, lhf *LoadHeaderFile) []byte {
	head := append([]byte(nil), raw[:len(raw)-6]...)
	if lhf.Version != Supplement345 {
		return head
	}
	cvPtr := int(codec.GetU32(raw, loadCheckValuePointerOffsetV3))
	if cvPtr == 0 {
		return head
	}
	payload := lhf.LoadCheckValueType.Len()
	if payload%2 != 0 {
		payload++
	}
	for i := cvPtr*2 + 4; i < cvPtr*2+4+payload && i < len(head); i++ {
		head[i] = 0
	}
	return head
}

func decodeThwIdPositions(raw []byte, offset int) ([]ThwIdPosition, error) {
	if offset+2 > len(raw) {
		return nil, fmt.Errorf("%w: load THW-ID-Position list count out of bounds", ErrInvalidFile)
	}
	n := int(codec.GetU16(raw, offset))
	pos := offset + 2
	out := make([]ThwIdPosition, 0, n)
	for i := 0; i < n; i++ {
		thwID, afterID, err := codec.DecodeString(raw, pos)
		if err != nil {
			return nil, fmt.Errorf("entry %d THW-ID: %w", i, err)
		}
		positions, afterPositions, err := codec.DecodeStringList(raw, afterID)
		if err != nil {
			return nil, fmt.Errorf("entry %d positions: %w", i, err)
		}
		out = append(out, ThwIdPosition{ThwId: thwID, Positions: positions})
		pos = afterPositions
	}
	return out, nil
}

func decodeLoadMemberList(raw []byte, offset int, v3 bool) ([]LoadMember, error) {
	if offset+2 > len(raw) {
		return nil, fmt.Errorf("%w: load member list count out of bounds", ErrInvalidFile)
	}
	n := int(codec.GetU16(raw, offset))
	pos := offset + 2
	out := make([]LoadMember, 0, n)
	for i := 0; i < n; i++ {
		entryStart := pos
		next := int(codec.GetU16(raw, pos))
		fieldsStart := pos + 2

		filename, afterFilename, err := codec.DecodeString(raw, fieldsStart)
		if err != nil {
			return nil, fmt.Errorf("entry %d filename: %w", i, err)
		}
		partNumber, afterPN, err := codec.DecodeString(raw, afterFilename)
		if err != nil {
			return nil, fmt.Errorf("entry %d part number: %w", i, err)
		}
		length := codec.GetU32(raw, afterPN)
		crc := codec.GetU16(raw, afterPN+4)
		fieldsEnd := afterPN + 6

		m := LoadMember{Filename: filename, PartNumber: partNumber, Length: length, CRC: crc}
		if v3 {
			cv, next2, err := decodeFileCheckValue(raw, fieldsEnd)
			if err != nil {
				return nil, fmt.Errorf("entry %d check value: %w", i, err)
			}
			m.CheckValue = cv
			fieldsEnd = next2
		}
		out = append(out, m)

		if next == 0 {
			pos = fieldsEnd
			break
		}
		pos = entryStart + next*2
	}
	return out, nil
}
