package files

import (
	"fmt"

	"github.com/tvogt/arinc665/codec"
)

const batchHeaderSize = 16 // common(8) + Batch-PN ptr(4) + THW-ID list ptr(4)

// BatchLoadRef names a Load by its on-medium Load Header filename and
// part number, as referenced from a Batch target.
type BatchLoadRef struct {
	Filename   string
	PartNumber string
}

// BatchTarget is one Target Hardware block in a Batch File: the THW-ID
// (optionally with a position suffix) and the ordered Loads to apply to it.
type BatchTarget struct {
	ThwIdPosition string
	Loads         []BatchLoadRef
}

// BatchFile is the decoded form of a Batch File (*.LUB). Layout is
// identical across supplements; only the format-version field differs.
type BatchFile struct {
	Version    Version
	PartNumber string
	Comment    string
	Targets    []BatchTarget
}

// Encode serializes b into a complete Batch File byte stream.
func (b *BatchFile) Encode() ([]byte, error) {
	formatVersion := BatchFileVersionSupplement2
	if b.Version == Supplement345 {
		formatVersion = BatchFileVersionSupplement345
	}

	body := encodeHeaderPlaceholder(formatVersion, 0)
	body = append(body, make([]byte, batchHeaderSize-commonHeaderSize)...)

	batchPNPtr := len(body) / 2
	var err error
	body, err = codec.EncodeString(body, b.PartNumber)
	if err != nil {
		return nil, fmt.Errorf("files: encoding batch part number: %w", err)
	}
	body, err = codec.EncodeString(body, b.Comment)
	if err != nil {
		return nil, fmt.Errorf("files: encoding batch comment: %w", err)
	}

	thwPtr := len(body) / 2
	body = codec.AppendU16(body, uint16(len(b.Targets)))
	for i, target := range b.Targets {
		entryStart := len(body)
		body = codec.AppendU16(body, 0) // next-target pointer placeholder
		body, err = codec.EncodeString(body, target.ThwIdPosition)
		if err != nil {
			return nil, fmt.Errorf("files: encoding batch target %d: %w", i, err)
		}
		body = codec.AppendU16(body, uint16(len(target.Loads)))
		for _, ref := range target.Loads {
			body, err = codec.EncodeString(body, ref.Filename)
			if err != nil {
				return nil, fmt.Errorf("files: encoding batch target %d load filename: %w", i, err)
			}
			body, err = codec.EncodeString(body, ref.PartNumber)
			if err != nil {
				return nil, fmt.Errorf("files: encoding batch target %d load part number: %w", i, err)
			}
		}
		if i < len(b.Targets)-1 {
			nextWords := (len(body) - entryStart) / 2
			codec.SetU16(body, entryStart, uint16(nextWords))
		}
	}

	codec.SetU32(body, 8, uint32(batchPNPtr))
	codec.SetU32(body, 12, uint32(thwPtr))

	return finalize(body)
}

// DecodeBatchFile parses a complete Batch File byte stream.
func DecodeBatchFile(raw []byte) (*BatchFile, error) {
	hdr, err := decodeHeader(KindBatchFile, raw)
	if err != nil {
		return nil, err
	}

	out := &BatchFile{Version: Supplement2}
	switch hdr.FormatVersion {
	case BatchFileVersionSupplement2:
	case BatchFileVersionSupplement345:
		out.Version = Supplement345
	default:
		return nil, fmt.Errorf("%w: Batch File has unexpected format version %#04x", ErrInvalidFile, hdr.FormatVersion)
	}

	batchPNPtr := int(codec.GetU32(raw, 8))
	thwPtr := int(codec.GetU32(raw, 12))

	pn, afterPN, err := codec.DecodeString(raw, batchPNPtr*2)
	if err != nil {
		return nil, fmt.Errorf("files: decoding batch part number: %w", err)
	}
	comment, _, err := codec.DecodeString(raw, afterPN)
	if err != nil {
		return nil, fmt.Errorf("files: decoding batch comment: %w", err)
	}
	out.PartNumber = pn
	out.Comment = comment

	out.Targets, err = decodeBatchTargets(raw, thwPtr*2)
	if err != nil {
		return nil, err
	}

	return out, nil
}

func decodeBatchTargets(raw []byte, offset int) ([]BatchTarget, error) {
	if offset+2 > len(raw) {
		return nil, fmt.Errorf("%w: Batch File target list count out of bounds", ErrInvalidFile)
	}
	n := int(codec.GetU16(raw, offset))
	pos := offset + 2
	out := make([]BatchTarget, 0, n)
	for i := 0; i < n; i++ {
		entryStart := pos
		next := int(codec.GetU16(raw, pos))

		last := i == n-1
		if last && next != 0 {
			return nil, fmt.Errorf("%w: Batch File target %d is last but has non-zero next-target pointer", ErrInvalidFile, i)
		}
		if !last && next == 0 {
			return nil, fmt.Errorf("%w: Batch File target %d is not last but has a zero next-target pointer", ErrInvalidFile, i)
		}

		thwIDPosition, afterID, err := codec.DecodeString(raw, pos+2)
		if err != nil {
			return nil, fmt.Errorf("files: decoding batch target %d THW-ID: %w", i, err)
		}
		if afterID+2 > len(raw) {
			return nil, fmt.Errorf("%w: Batch File target %d load count out of bounds", ErrInvalidFile, i)
		}
		nLoads := int(codec.GetU16(raw, afterID))
		loadsStart := afterID + 2

		loads := make([]BatchLoadRef, 0, nLoads)
		cursor := loadsStart
		for j := 0; j < nLoads; j++ {
			filename, afterFilename, err := codec.DecodeString(raw, cursor)
			if err != nil {
				return nil, fmt.Errorf("files: decoding batch target %d load %d filename: %w", i, j, err)
			}
			partNumber, afterPN, err := codec.DecodeString(raw, afterFilename)
			if err != nil {
				return nil, fmt.Errorf("files: decoding batch target %d load %d part number: %w", i, j, err)
			}
			loads = append(loads, BatchLoadRef{Filename: filename, PartNumber: partNumber})
			cursor = afterPN
		}

		out = append(out, BatchTarget{ThwIdPosition: thwIDPosition, Loads: loads})

		if next == 0 {
			pos = cursor
			break
		}
		pos = entryStart + next*2
	}
	return out, nil
}
