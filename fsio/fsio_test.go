package fsio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tvogt/arinc665/compiler"
	"github.com/tvogt/arinc665/decompiler"
	"github.com/tvogt/arinc665/files"
	"github.com/tvogt/arinc665/media"
)

func TestMediumDirName(t *testing.T) {
	if got := MediumDirName(1); got != "MEDIUM_001" {
		t.Errorf("MediumDirName(1) = %q", got)
	}
	if got := MediumDirName(255); got != "MEDIUM_255" {
		t.Errorf("MediumDirName(255) = %q", got)
	}
}

func TestCompileDecompileAgainstRealFilesystem(t *testing.T) {
	ms := media.NewMediaSet("PN-FS-1")
	medium := ms.AddMedium()
	sub, err := medium.Root().AddDirectory("SUB")
	if err != nil {
		t.Fatal(err)
	}
	appBin, err := sub.AddRegularFile("APP.BIN")
	if err != nil {
		t.Fatal(err)
	}
	load, err := medium.Root().AddLoad("APP.LUH", "LPN-1")
	if err != nil {
		t.Fatal(err)
	}
	load.AddTargetHardwareID("THW-1")
	if _, err := load.AddDataFile(appBin, "LPN-1"); err != nil {
		t.Fatal(err)
	}

	srcRoot := t.TempDir()
	destRoot := t.TempDir()
	content := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	srcFile := filepath.Join(srcRoot, "MEDIUM_001", "SUB", "APP.BIN")
	if err := os.MkdirAll(filepath.Dir(srcFile), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(srcFile, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cb := &OSCallbacks{SourceRoot: srcRoot, DestRoot: destRoot}
	cfg := compiler.Config{
		Version:          files.Supplement345,
		LoadHeaderPolicy: compiler.PolicyAll,
		Callbacks:        cb.Callbacks(),
	}
	if _, err := compiler.Compile(ms, cfg); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"FILES.LUM", "LOADS.LUM", "APP.LUH", filepath.Join("SUB", "APP.BIN")} {
		if _, err := os.Stat(filepath.Join(destRoot, "MEDIUM_001", name)); err != nil {
			t.Errorf("expected output %s: %v", name, err)
		}
	}

	rebuilt, _, err := decompiler.Decompile(decompiler.Config{
		NumberOfMedia:      1,
		ReadFile:           cb.ReadFile,
		CheckFileIntegrity: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if rebuilt.PartNumber != "PN-FS-1" {
		t.Errorf("rebuilt PN = %q", rebuilt.PartNumber)
	}
	got := rebuilt.Medium(1).Root().LoadByName("APP.LUH")
	if got == nil || got.PartNumber != "LPN-1" {
		t.Fatalf("load not rebuilt: %+v", got)
	}
	if len(got.DataFiles) != 1 || got.DataFiles[0].File.Name() != "APP.BIN" {
		t.Errorf("data members = %+v", got.DataFiles)
	}
}

func TestWriteFileRefusesOverwrite(t *testing.T) {
	cb := &OSCallbacks{DestRoot: t.TempDir()}
	if err := cb.CreateMedium(1); err != nil {
		t.Fatal(err)
	}
	if err := cb.WriteFile(1, "/A.BIN", []byte{1}); err != nil {
		t.Fatal(err)
	}
	if err := cb.WriteFile(1, "/A.BIN", []byte{2}); err == nil {
		t.Error("second write to the same path succeeded, want failure")
	}
}

func TestReadFileMmapEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "EMPTY.BIN")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := readFileMmap(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Errorf("got %d bytes, want 0", len(data))
	}
}
