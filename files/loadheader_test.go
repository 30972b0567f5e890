package files

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/tvogt/arinc665/checkvalue"
)

// manualCRC32 reimplements the non-reflected CRC-32 variant pinned in
// package checkvalue (poly 0x04C11DB7, init/xorout 0xFFFFFFFF, no
// reflection) bit by bit, independently of the go-crc-backed
// implementation, to cross-check the Load CRC-32 byte range.
func manualCRC32(data []byte) uint32 {
	const poly = 0x04C11DB7
	crc := uint32(0xFFFFFFFF)
	for _, b := range data {
		crc ^= uint32(b) << 24
		for i := 0; i < 8; i++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
	}
	return crc ^ 0xFFFFFFFF
}

func TestLoadHeaderCRC32SingleDataFile(t *testing.T) {
	in := &LoadHeaderFile{
		Version:           Supplement2,
		PartNumber:        "LPN-1",
		TargetHardwareIDs: []string{"THW-1"},
		DataFiles: []LoadMember{
			{Filename: "APP.BIN", PartNumber: "LPN-1", Length: 4, CRC: checkvalue.CalcCRC16([]byte{0xDE, 0xAD, 0xBE, 0xEF})},
		},
	}
	dataContent := [][]byte{{0xDE, 0xAD, 0xBE, 0xEF}}

	encoded, err := in.Encode(dataContent, nil)
	if err != nil {
		t.Fatal(err)
	}

	headerPrefix := encoded[:len(encoded)-2-4]
	want := manualCRC32(append(append([]byte{}, headerPrefix...), dataContent[0]...))
	if in.LoadCRC != want {
		t.Errorf("LoadCRC = %#x, want %#x", in.LoadCRC, want)
	}

	out, err := DecodeLoadHeaderFile(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if out.LoadCRC != want {
		t.Errorf("decoded LoadCRC = %#x, want %#x", out.LoadCRC, want)
	}
}

func TestLoadHeaderRoundTripSupplement345(t *testing.T) {
	in := &LoadHeaderFile{
		Version:    Supplement345,
		PartFlags:  0x0001,
		PartNumber: "LPN-1",
		ThwIdPositions: []ThwIdPosition{
			{ThwId: "THW-1", Positions: []string{"A", "B"}},
		},
		DataFiles: []LoadMember{
			{Filename: "APP.BIN", PartNumber: "LPN-1", Length: 4, CRC: 0xBEEF},
			{Filename: "APP2.BIN", PartNumber: "LPN-1", Length: 2, CRC: 0xCAFE},
		},
		SupportFiles: []LoadMember{
			{Filename: "SUPPORT.TXT", PartNumber: "LPN-1-SUP", Length: 3, CRC: 0x1111},
		},
		UserDefinedData:    []byte{0x01, 0x02, 0x03, 0x04},
		LoadType:           &LoadType{Description: "operational", ID: 7},
		LoadCheckValueType: checkvalue.SHA256,
	}
	dataContents := [][]byte{{0xDE, 0xAD, 0xBE, 0xEF}, {0x01, 0x02}}
	supportContents := [][]byte{{0x41, 0x42, 0x43}}

	encoded, err := in.Encode(dataContents, supportContents)
	if err != nil {
		t.Fatal(err)
	}

	out, err := DecodeLoadHeaderFile(encoded)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(in, out, cmpopts.IgnoreFields(LoadMember{}, "CheckValue")); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	if out.LoadCheckValue.Type != checkvalue.SHA256 || len(out.LoadCheckValue.Bytes) != 32 {
		t.Errorf("decoded LoadCheckValue = %+v, want SHA256/32 bytes", out.LoadCheckValue)
	}
	if out.LoadCheckValue.Type != in.LoadCheckValue.Type {
		t.Errorf("LoadCheckValue type mismatch after encode: got %v, want %v", out.LoadCheckValue.Type, in.LoadCheckValue.Type)
	}
}

func TestLoadHeaderMismatchedMemberContentCount(t *testing.T) {
	in := &LoadHeaderFile{
		Version:    Supplement2,
		PartNumber: "LPN-1",
		DataFiles:  []LoadMember{{Filename: "APP.BIN", PartNumber: "LPN-1", Length: 4}},
	}
	if _, err := in.Encode(nil, nil); err == nil {
		t.Error("expected error when data file content count does not match entry count")
	}
}
