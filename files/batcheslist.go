package files

import (
	"fmt"

	"github.com/tvogt/arinc665/codec"
)

// BatchInfo is one entry in BATCHES.LUM: a Batch known to the Media Set
// and the medium carrying its Batch File.
type BatchInfo struct {
	PartNumber           string
	Filename             string
	MemberSequenceNumber uint16 // medium carrying the Batch File
}

// BatchesListFile is the decoded form of BATCHES.LUM.
type BatchesListFile struct {
	Version                 Version
	MediaSetPN              string
	MediaSequenceNumber     uint8
	NumberOfMediaSetMembers uint8
	Batches                 []BatchInfo
	UserDefinedData         []byte
}

// Encode serializes b into a complete BATCHES.LUM byte stream.
func (bf *BatchesListFile) Encode() ([]byte, error) {
	formatVersion := MediaFileVersionSupplement2
	if bf.Version == Supplement345 {
		formatVersion = MediaFileVersionSupplement345
	}

	body := encodeHeaderPlaceholder(formatVersion, 0)
	body = append(body, make([]byte, mediaListHeaderSizeV2-commonHeaderSize)...)

	mediaSetPNPtr := len(body) / 2
	var err error
	body, err = codec.EncodeString(body, bf.MediaSetPN)
	if err != nil {
		return nil, fmt.Errorf("files: encoding BATCHES.LUM media set PN: %w", err)
	}
	body = append(body, bf.MediaSequenceNumber, bf.NumberOfMediaSetMembers)

	batchesPtr := len(body) / 2
	body = codec.AppendU16(body, uint16(len(bf.Batches)))
	for i, bi := range bf.Batches {
		entryStart := len(body)
		body = codec.AppendU16(body, 0) // next-pointer placeholder
		body, err = codec.EncodeString(body, bi.PartNumber)
		if err != nil {
			return nil, fmt.Errorf("files: encoding BATCHES.LUM entry %d part number: %w", i, err)
		}
		body, err = codec.EncodeString(body, bi.Filename)
		if err != nil {
			return nil, fmt.Errorf("files: encoding BATCHES.LUM entry %d filename: %w", i, err)
		}
		body = codec.AppendU16(body, bi.MemberSequenceNumber)
		if i < len(bf.Batches)-1 {
			nextWords := (len(body) - entryStart) / 2
			codec.SetU16(body, entryStart, uint16(nextWords))
		}
	}

	var udpPtr int
	if len(bf.UserDefinedData) > 0 {
		udpPtr = len(body) / 2
		body = append(body, bf.UserDefinedData...)
		if len(body)%2 != 0 {
			body = append(body, 0x00)
		}
	}

	codec.SetU32(body, mediaSetPNPointerOff, uint32(mediaSetPNPtr))
	codec.SetU32(body, mediaListPointerOff, uint32(batchesPtr))
	codec.SetU32(body, userDefinedDataPtrOff, uint32(udpPtr))

	return finalize(body)
}

// DecodeBatchesListFile parses a complete BATCHES.LUM byte stream.
func DecodeBatchesListFile(raw []byte) (*BatchesListFile, error) {
	hdr, err := decodeHeader(KindBatchList, raw)
	if err != nil {
		return nil, err
	}

	out := &BatchesListFile{Version: Supplement2}
	switch hdr.FormatVersion {
	case MediaFileVersionSupplement2:
	case MediaFileVersionSupplement345:
		out.Version = Supplement345
	default:
		return nil, fmt.Errorf("%w: BATCHES.LUM has unexpected format version %#04x", ErrInvalidFile, hdr.FormatVersion)
	}

	mediaSetPNPtr := int(codec.GetU32(raw, mediaSetPNPointerOff))
	batchesPtr := int(codec.GetU32(raw, mediaListPointerOff))
	udpPtr := int(codec.GetU32(raw, userDefinedDataPtrOff))

	pn, afterPN, err := codec.DecodeString(raw, mediaSetPNPtr*2)
	if err != nil {
		return nil, fmt.Errorf("files: decoding BATCHES.LUM media set PN: %w", err)
	}
	if afterPN+2 > len(raw) {
		return nil, fmt.Errorf("%w: BATCHES.LUM media information area truncated", ErrInvalidFile)
	}
	out.MediaSetPN = pn
	out.MediaSequenceNumber = raw[afterPN]
	out.NumberOfMediaSetMembers = raw[afterPN+1]

	out.Batches, err = decodeBatchesList(raw, batchesPtr*2)
	if err != nil {
		return nil, err
	}

	if udpPtr != 0 {
		end := len(raw) - 2
		if udpPtr*2 > end {
			return nil, fmt.Errorf("%w: BATCHES.LUM user defined data pointer out of bounds", ErrInvalidFile)
		}
		out.UserDefinedData = append([]byte(nil), raw[udpPtr*2:end]...)
	}

	return out, nil
}

func decodeBatchesList(raw []byte, offset int) ([]BatchInfo, error) {
	if offset+2 > len(raw) {
		return nil, fmt.Errorf("%w: BATCHES.LUM batches list count out of bounds", ErrInvalidFile)
	}
	n := int(codec.GetU16(raw, offset))
	pos := offset + 2
	out := make([]BatchInfo, 0, n)
	for i := 0; i < n; i++ {
		entryStart := pos
		next := int(codec.GetU16(raw, pos))
		fieldsStart := pos + 2

		pn, afterPN, err := codec.DecodeString(raw, fieldsStart)
		if err != nil {
			return nil, fmt.Errorf("files: decoding BATCHES.LUM entry %d part number: %w", i, err)
		}
		filename, afterName, err := codec.DecodeString(raw, afterPN)
		if err != nil {
			return nil, fmt.Errorf("files: decoding BATCHES.LUM entry %d filename: %w", i, err)
		}
		memberSeq := codec.GetU16(raw, afterName)
		fieldsEnd := afterName + 2

		out = append(out, BatchInfo{
			PartNumber:           pn,
			Filename:             filename,
			MemberSequenceNumber: memberSeq,
		})

		if next == 0 {
			pos = fieldsEnd
			break
		}
		pos = entryStart + next*2
	}
	return out, nil
}
