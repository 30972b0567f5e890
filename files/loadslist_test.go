package files

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tvogt/arinc665/codec"
)

func TestLoadsListRoundTrip(t *testing.T) {
	in := &LoadsListFile{
		Version:                 Supplement345,
		MediaSetPN:              "PN-1",
		MediaSequenceNumber:     1,
		NumberOfMediaSetMembers: 1,
		Loads: []LoadInfo{
			{PartNumber: "LPN-1", HeaderFilename: "APP.LUH", MemberSequenceNumber: 1, TargetHardwareIDs: []string{"THW-1", "THW-2"}},
			{PartNumber: "LPN-2", HeaderFilename: "OTHER.LUH", MemberSequenceNumber: 1, TargetHardwareIDs: []string{}},
		},
		UserDefinedData: []byte{0x01, 0x02, 0x03, 0x04},
	}
	encoded, err := in.Encode()
	if err != nil {
		t.Fatal(err)
	}
	out, err := DecodeLoadsListFile(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadsListSingleEntryHasZeroNextPointer(t *testing.T) {
	in := &LoadsListFile{
		Version:                 Supplement2,
		MediaSetPN:              "PN-1",
		MediaSequenceNumber:     1,
		NumberOfMediaSetMembers: 1,
		Loads: []LoadInfo{
			{PartNumber: "LPN-1", HeaderFilename: "APP.LUH", MemberSequenceNumber: 1, TargetHardwareIDs: []string{"THW-1"}},
		},
	}
	encoded, err := in.Encode()
	if err != nil {
		t.Fatal(err)
	}
	out, err := DecodeLoadsListFile(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Loads) != 1 {
		t.Fatalf("got %d loads, want 1", len(out.Loads))
	}
	entryStart := int(codec.GetU32(encoded, mediaListPointerOff))*2 + 2
	if next := codec.GetU16(encoded, entryStart); next != 0 {
		t.Errorf("next-load pointer = %d, want 0", next)
	}
}
