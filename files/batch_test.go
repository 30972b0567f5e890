package files

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBatchFileRoundTrip(t *testing.T) {
	in := &BatchFile{
		Version:    Supplement2,
		PartNumber: "BPN-1",
		Comment:    "initial release",
		Targets: []BatchTarget{
			{
				ThwIdPosition: "THW-1-POS-A",
				Loads: []BatchLoadRef{
					{Filename: "APP.LUH", PartNumber: "LPN-1"},
					{Filename: "OTHER.LUH", PartNumber: "LPN-2"},
				},
			},
			{
				ThwIdPosition: "THW-2",
				Loads:         []BatchLoadRef{{Filename: "APP.LUH", PartNumber: "LPN-1"}},
			},
		},
	}
	encoded, err := in.Encode()
	if err != nil {
		t.Fatal(err)
	}
	out, err := DecodeBatchFile(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestBatchFileSingleTargetNoLoads(t *testing.T) {
	in := &BatchFile{
		Version:    Supplement345,
		PartNumber: "BPN-EMPTY",
		Comment:    "",
		Targets: []BatchTarget{
			{ThwIdPosition: "THW-1"},
		},
	}
	encoded, err := in.Encode()
	if err != nil {
		t.Fatal(err)
	}
	out, err := DecodeBatchFile(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Targets) != 1 || len(out.Targets[0].Loads) != 0 {
		t.Errorf("unexpected targets: %+v", out.Targets)
	}
}
