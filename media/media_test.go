package media

import (
	"errors"
	"testing"

	"github.com/tvogt/arinc665/checkvalue"
)

func TestAddFileRejectsDuplicateName(t *testing.T) {
	ms := NewMediaSet("PN-1")
	medium := ms.AddMedium()
	if _, err := medium.Root().AddRegularFile("APP.BIN"); err != nil {
		t.Fatal(err)
	}
	if _, err := medium.Root().AddRegularFile("APP.BIN"); !errors.Is(err, ErrNameExists) {
		t.Errorf("got %v, want ErrNameExists", err)
	}
	if _, err := medium.Root().AddDirectory("APP.BIN"); !errors.Is(err, ErrNameExists) {
		t.Errorf("directory vs file collision: got %v, want ErrNameExists", err)
	}
}

func TestRemoveRequiresDirectChild(t *testing.T) {
	ms := NewMediaSet("PN-1")
	medium := ms.AddMedium()
	sub, err := medium.Root().AddDirectory("SUB")
	if err != nil {
		t.Fatal(err)
	}
	nested, err := sub.AddDirectory("NESTED")
	if err != nil {
		t.Fatal(err)
	}
	if err := medium.Root().RemoveDirectory(nested); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	if err := sub.RemoveDirectory(nested); err != nil {
		t.Errorf("unexpected error removing direct child: %v", err)
	}
}

func TestMediumNumberingDense(t *testing.T) {
	ms := NewMediaSet("PN-1")
	ms.AddMedium()
	ms.AddMedium()
	if err := ms.CheckNumberingDense(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRecursiveFilesPreOrder(t *testing.T) {
	ms := NewMediaSet("PN-1")
	medium := ms.AddMedium()
	root := medium.Root()
	if _, err := root.AddRegularFile("ROOT.TXT"); err != nil {
		t.Fatal(err)
	}
	sub, err := root.AddDirectory("SUB")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sub.AddRegularFile("SUB.TXT"); err != nil {
		t.Fatal(err)
	}

	files := ms.RecursiveFiles()
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}
	if files[0].Name() != "SUB.TXT" || files[1].Name() != "ROOT.TXT" {
		t.Errorf("pre-order = [%s %s], want [SUB.TXT ROOT.TXT]", files[0].Name(), files[1].Name())
	}
}

func TestLoadsWithFileAndBatchesWithLoad(t *testing.T) {
	ms := NewMediaSet("PN-1")
	medium := ms.AddMedium()
	root := medium.Root()

	dataFile, err := root.AddRegularFile("APP.BIN")
	if err != nil {
		t.Fatal(err)
	}
	otherFile, err := root.AddRegularFile("OTHER.BIN")
	if err != nil {
		t.Fatal(err)
	}

	load1, err := root.AddLoad("APP.LUH", "LPN-1")
	if err != nil {
		t.Fatal(err)
	}
	load2, err := root.AddLoad("OTHER.LUH", "LPN-2")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := load1.AddDataFile(dataFile, "LPN-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := load2.AddDataFile(otherFile, "LPN-2"); err != nil {
		t.Fatal(err)
	}

	batch, err := root.AddBatch("REL.LUB", "BPN-1", "release")
	if err != nil {
		t.Fatal(err)
	}
	if err := batch.AppendLoad("THW-1", load1); err != nil {
		t.Fatal(err)
	}

	loads := ms.LoadsWithFile(dataFile)
	if len(loads) != 1 || loads[0] != load1 {
		t.Errorf("LoadsWithFile(dataFile) = %v, want [load1]", loads)
	}
	if got := ms.LoadsWithFile(otherFile); len(got) != 1 || got[0] != load2 {
		t.Errorf("LoadsWithFile(otherFile) = %v, want [load2]", got)
	}

	batches := ms.BatchesWithLoad(load1)
	if len(batches) != 1 || batches[0] != batch {
		t.Errorf("BatchesWithLoad(load1) = %v, want [batch]", batches)
	}
	if got := ms.BatchesWithLoad(load2); len(got) != 0 {
		t.Errorf("BatchesWithLoad(load2) = %v, want []", got)
	}
}

func TestAddLoadMemberRejectsCrossMediaSet(t *testing.T) {
	ms1 := NewMediaSet("PN-1")
	medium1 := ms1.AddMedium()
	load, err := medium1.Root().AddLoad("APP.LUH", "LPN-1")
	if err != nil {
		t.Fatal(err)
	}

	ms2 := NewMediaSet("PN-2")
	medium2 := ms2.AddMedium()
	foreignFile, err := medium2.Root().AddRegularFile("FOREIGN.BIN")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := load.AddDataFile(foreignFile, "LPN-1"); !errors.Is(err, ErrInvalidModel) {
		t.Errorf("got %v, want ErrInvalidModel", err)
	}
}

func TestCheckValueTypeInheritance(t *testing.T) {
	ms := NewMediaSet("PN-1")
	ms.CheckValueType = checkvalue.SHA256
	medium := ms.AddMedium()
	rf, err := medium.Root().AddRegularFile("APP.BIN")
	if err != nil {
		t.Fatal(err)
	}

	if got := rf.EffectiveCheckValueType(ms); got != checkvalue.SHA256 {
		t.Errorf("inherited file check value type = %v, want SHA256", got)
	}

	rf.CheckValueType = checkvalue.CRC32
	if got := rf.EffectiveCheckValueType(ms); got != checkvalue.CRC32 {
		t.Errorf("overridden file check value type = %v, want CRC32", got)
	}

	ms.FilesCheckValueType = checkvalue.MD5
	other, err := medium.Root().AddRegularFile("OTHER.BIN")
	if err != nil {
		t.Fatal(err)
	}
	if got := other.EffectiveCheckValueType(ms); got != checkvalue.MD5 {
		t.Errorf("Files-level override = %v, want MD5", got)
	}

	load, err := medium.Root().AddLoad("APP.LUH", "LPN-1")
	if err != nil {
		t.Fatal(err)
	}
	if got := load.EffectiveCheckValueType(ms); got != checkvalue.SHA256 {
		t.Errorf("load check value type = %v, want SHA256 (from MediaSet)", got)
	}
	if got := load.EffectiveDataFilesCheckValueType(ms); got != checkvalue.SHA256 {
		t.Errorf("load data files check value type = %v, want SHA256", got)
	}
	load.DataFilesCheckValueType = checkvalue.CRC8
	if got := load.EffectiveDataFilesCheckValueType(ms); got != checkvalue.CRC8 {
		t.Errorf("overridden data files check value type = %v, want CRC8", got)
	}
}

func TestTargetHardwareIDsSortedWithPositions(t *testing.T) {
	ms := NewMediaSet("PN-1")
	medium := ms.AddMedium()
	load, err := medium.Root().AddLoad("APP.LUH", "LPN-1")
	if err != nil {
		t.Fatal(err)
	}
	load.AddTargetHardwarePosition("THW-2", "B")
	load.AddTargetHardwarePosition("THW-2", "A")
	load.AddTargetHardwareID("THW-1")

	got := load.TargetHardwareIDs()
	if len(got) != 2 || got[0].ThwId != "THW-1" || got[1].ThwId != "THW-2" {
		t.Fatalf("unexpected THW-ID order: %+v", got)
	}
	if len(got[0].Positions) != 0 {
		t.Errorf("THW-1 positions = %v, want []", got[0].Positions)
	}
	if len(got[1].Positions) != 2 || got[1].Positions[0] != "A" || got[1].Positions[1] != "B" {
		t.Errorf("THW-2 positions = %v, want [A B]", got[1].Positions)
	}
}
