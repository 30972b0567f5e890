package fixture

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func scenarioForTest() *Scenario {
	return &Scenario{
		MediaSetPN: "PN-FX-1",
		Medium: []MediumSection{
			{
				Directory: []DirectorySection{{Path: "/SUB"}},
				File:      []FileSection{{Path: "/SUB/APP.BIN", ContentHex: "deadbeef"}},
				Load: []LoadSection{{
					Path:              "/APP.LUH",
					PartNumber:        "LPN-1",
					TargetHardwareIDs: []string{"THW-1"},
					DataFiles:         []string{"/SUB/APP.BIN"},
				}},
				Batch: []BatchSection{{
					Path:       "/REL.LUB",
					PartNumber: "BPN-1",
					Comment:    "release",
					Target:     []BatchTargetSection{{ThwIdPosition: "THW-1", Loads: []string{"/APP.LUH"}}},
				}},
			},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.toml")
	want := scenarioForTest()
	if err := Save(want, path); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TOML round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildMaterializesModel(t *testing.T) {
	built, err := Build(scenarioForTest())
	if err != nil {
		t.Fatal(err)
	}

	ms := built.MediaSet
	if ms.PartNumber != "PN-FX-1" || ms.NumberOfMembers() != 1 {
		t.Fatalf("media set = %q with %d media", ms.PartNumber, ms.NumberOfMembers())
	}

	content, ok := built.Content(1, "/SUB/APP.BIN")
	if !ok || len(content) != 4 || content[0] != 0xDE {
		t.Errorf("Content(1, /SUB/APP.BIN) = % x, %v", content, ok)
	}

	load := ms.Medium(1).Root().LoadByName("APP.LUH")
	if load == nil {
		t.Fatal("load not built")
	}
	if len(load.DataFiles) != 1 || load.DataFiles[0].File.Name() != "APP.BIN" {
		t.Errorf("load data members = %+v", load.DataFiles)
	}

	batch := ms.Medium(1).Root().BatchByName("REL.LUB")
	if batch == nil {
		t.Fatal("batch not built")
	}
	targets := batch.Targets()
	if len(targets) != 1 || len(targets[0].Loads) != 1 || targets[0].Loads[0] != load {
		t.Errorf("batch targets = %+v", targets)
	}
}

func TestBuildRejectsUnknownReference(t *testing.T) {
	s := scenarioForTest()
	s.Medium[0].Load[0].DataFiles = []string{"/NOWHERE.BIN"}
	if _, err := Build(s); err == nil {
		t.Error("expected error for unresolved data file reference")
	}
}
