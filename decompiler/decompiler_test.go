package decompiler_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/tvogt/arinc665/compiler"
	"github.com/tvogt/arinc665/decompiler"
	"github.com/tvogt/arinc665/files"
	"github.com/tvogt/arinc665/internal/fixture"
	"github.com/tvogt/arinc665/media"
)

// memStore backs compiler.Callbacks with maps so a media set can be
// compiled and immediately decompiled without touching a filesystem.
type memStore struct {
	source map[string][]byte
	out    map[int]map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{source: map[string][]byte{}, out: map[int]map[string][]byte{}}
}

func key(medium int, relPath string) string {
	return fmt.Sprintf("%d:%s", medium, relPath)
}

func (s *memStore) callbacks() compiler.Callbacks {
	return compiler.Callbacks{
		CreateMedium: func(medium int) error {
			if s.out[medium] == nil {
				s.out[medium] = map[string][]byte{}
			}
			return nil
		},
		CreateDirectory: func(medium int, relPath string) error { return nil },
		CheckFileExists: func(f media.File) (bool, error) {
			_, ok := s.source[key(f.Medium().Number(), media.RelPath(f))]
			return ok, nil
		},
		CreateFile: func(medium int, f media.File, relPath string) error {
			data, ok := s.source[key(f.Medium().Number(), media.RelPath(f))]
			if !ok {
				return fmt.Errorf("no source for %s", relPath)
			}
			return s.write(medium, relPath, data)
		},
		WriteFile: func(medium int, relPath string, data []byte) error {
			return s.write(medium, relPath, data)
		},
		ReadFile: s.ReadFile,
	}
}

func (s *memStore) write(medium int, relPath string, data []byte) error {
	if s.out[medium] == nil {
		s.out[medium] = map[string][]byte{}
	}
	if _, exists := s.out[medium][relPath]; exists {
		return fmt.Errorf("%s already exists on medium %d", relPath, medium)
	}
	s.out[medium][relPath] = data
	return nil
}

func (s *memStore) ReadFile(medium int, relPath string) ([]byte, error) {
	data, ok := s.out[medium][relPath]
	if !ok {
		return nil, fmt.Errorf("%s not present on medium %d", relPath, medium)
	}
	return data, nil
}

// compileFixture materializes a testdata scenario and compiles it into
// a fresh memStore.
func compileFixture(t *testing.T, path string, version files.Version) (*fixture.Built, *memStore) {
	t.Helper()
	scenario, err := fixture.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	built, err := fixture.Build(scenario)
	if err != nil {
		t.Fatal(err)
	}

	store := newMemStore()
	for ck, data := range built.Contents {
		store.source[ck] = data
	}

	cfg := compiler.Config{
		Version:          version,
		BatchFilePolicy:  compiler.PolicyAll,
		LoadHeaderPolicy: compiler.PolicyAll,
		Callbacks:        store.callbacks(),
	}
	if _, err := compiler.Compile(built.MediaSet, cfg); err != nil {
		t.Fatal(err)
	}
	return built, store
}

func TestRoundTripTwoMediaWithBatch(t *testing.T) {
	for _, version := range []files.Version{files.Supplement2, files.Supplement345} {
		t.Run(version.String(), func(t *testing.T) {
			_, store := compileFixture(t, "testdata/two_media.toml", version)

			ms, cvc, err := decompiler.Decompile(decompiler.Config{
				NumberOfMedia:      2,
				ReadFile:           store.ReadFile,
				CheckFileIntegrity: true,
			})
			if err != nil {
				t.Fatal(err)
			}
			if cvc == nil {
				t.Fatal("nil check value collection")
			}

			if ms.PartNumber != "PN-RT-1" || ms.NumberOfMembers() != 2 {
				t.Fatalf("rebuilt PN %q with %d media, want PN-RT-1 with 2", ms.PartNumber, ms.NumberOfMembers())
			}

			l1 := ms.Medium(1).Root().LoadByName("APP1.LUH")
			l2 := ms.Medium(2).Root().LoadByName("APP2.LUH")
			if l1 == nil || l2 == nil {
				t.Fatal("loads were not rebuilt on their assigned media")
			}
			if l1.PartNumber != "LPN-1" || l2.PartNumber != "LPN-2" {
				t.Errorf("load PNs = %q, %q", l1.PartNumber, l2.PartNumber)
			}
			if len(l2.DataFiles) != 1 || l2.DataFiles[0].File.Name() != "APP2.BIN" || l2.DataFiles[0].File.Medium().Number() != 2 {
				t.Errorf("APP2.LUH data member = %+v, want APP2.BIN on medium 2", l2.DataFiles)
			}
			sub := ms.Medium(2).Root().Directory("SUB")
			if sub == nil || sub.RegularFileByName("APP2.BIN") == nil {
				t.Error("SUB/APP2.BIN was not rebuilt under its directory")
			}

			batch := ms.Medium(1).Root().BatchByName("REL.LUB")
			if batch == nil {
				t.Fatal("batch was not rebuilt")
			}
			if batch.PartNumber != "BPN-1" || batch.Comment != "release batch" {
				t.Errorf("batch = %q %q", batch.PartNumber, batch.Comment)
			}
			for _, l := range []*media.Load{l1, l2} {
				got := ms.BatchesWithLoad(l)
				if len(got) != 1 || got[0] != batch {
					t.Errorf("BatchesWithLoad(%s) = %v, want [REL.LUB]", l.Name(), got)
				}
			}

			// Both media must carry BATCHES.LUM listing the batch with its
			// member sequence number.
			for i := 1; i <= 2; i++ {
				raw, err := store.ReadFile(i, "/"+files.ListOfBatchesName)
				if err != nil {
					t.Fatalf("medium %d: %v", i, err)
				}
				blf, err := files.DecodeBatchesListFile(raw)
				if err != nil {
					t.Fatal(err)
				}
				if len(blf.Batches) != 1 || blf.Batches[0].MemberSequenceNumber != 1 {
					t.Errorf("medium %d BATCHES.LUM = %+v", i, blf.Batches)
				}
			}
		})
	}
}

func TestDecompileMangledCRC(t *testing.T) {
	ms := media.NewMediaSet("PN-0001")
	medium := ms.AddMedium()
	if _, err := medium.Root().AddRegularFile("DATA.BIN"); err != nil {
		t.Fatal(err)
	}

	content := make([]byte, 16)
	for i := range content {
		content[i] = byte(i)
	}
	store := newMemStore()
	store.source[key(1, "/DATA.BIN")] = content
	if _, err := compiler.Compile(ms, compiler.Config{Version: files.Supplement2, Callbacks: store.callbacks()}); err != nil {
		t.Fatal(err)
	}

	// Flip one content byte after FILES.LUM has recorded the CRC.
	mangled := append([]byte(nil), store.out[1]["/DATA.BIN"]...)
	mangled[3] ^= 0xFF
	store.out[1]["/DATA.BIN"] = mangled

	_, _, err := decompiler.Decompile(decompiler.Config{
		NumberOfMedia:      1,
		ReadFile:           store.ReadFile,
		CheckFileIntegrity: true,
	})
	if !errors.Is(err, files.ErrChecksumMismatch) {
		t.Errorf("with integrity checking: got %v, want ErrChecksumMismatch", err)
	}

	rebuilt, _, err := decompiler.Decompile(decompiler.Config{
		NumberOfMedia: 1,
		ReadFile:      store.ReadFile,
	})
	if err != nil {
		t.Fatalf("without integrity checking: %v", err)
	}
	rf := rebuilt.Medium(1).Root().RegularFileByName("DATA.BIN")
	if rf == nil {
		t.Fatal("DATA.BIN missing from rebuilt model")
	}
	if rf.CRC != 0x3B37 {
		t.Errorf("rebuilt CRC = %#04x, want the stored FILES.LUM value 0x3B37", rf.CRC)
	}
}

func TestDecompileBatchesListMustAgreeAcrossMedia(t *testing.T) {
	_, store := compileFixture(t, "testdata/two_media.toml", files.Supplement345)
	delete(store.out[2], "/"+files.ListOfBatchesName)

	_, _, err := decompiler.Decompile(decompiler.Config{
		NumberOfMedia: 2,
		ReadFile:      store.ReadFile,
	})
	if !errors.Is(err, decompiler.ErrMediaSetInconsistent) {
		t.Errorf("got %v, want ErrMediaSetInconsistent", err)
	}
}

func TestDecompileCrossReferenceMissing(t *testing.T) {
	ms := media.NewMediaSet("PN-0001")
	medium := ms.AddMedium()
	appBin, err := medium.Root().AddRegularFile("APP.BIN")
	if err != nil {
		t.Fatal(err)
	}
	load, err := medium.Root().AddLoad("APP.LUH", "LPN-1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := load.AddDataFile(appBin, "LPN-1"); err != nil {
		t.Fatal(err)
	}

	store := newMemStore()
	store.source[key(1, "/APP.BIN")] = []byte{0xDE, 0xAD}
	cfg := compiler.Config{
		Version:          files.Supplement2,
		LoadHeaderPolicy: compiler.PolicyAll,
		Callbacks:        store.callbacks(),
	}
	if _, err := compiler.Compile(ms, cfg); err != nil {
		t.Fatal(err)
	}

	// Rewrite FILES.LUM without the APP.BIN entry, so the load header's
	// data member no longer resolves.
	flf, err := files.DecodeFilesListFile(store.out[1]["/"+files.ListOfFilesName])
	if err != nil {
		t.Fatal(err)
	}
	kept := flf.Files[:0]
	for _, fi := range flf.Files {
		if fi.Filename != "APP.BIN" {
			kept = append(kept, fi)
		}
	}
	flf.Files = kept
	raw, err := flf.Encode()
	if err != nil {
		t.Fatal(err)
	}
	store.out[1]["/"+files.ListOfFilesName] = raw

	_, _, err = decompiler.Decompile(decompiler.Config{
		NumberOfMedia: 1,
		ReadFile:      store.ReadFile,
	})
	if !errors.Is(err, decompiler.ErrCrossReferenceMissing) {
		t.Errorf("got %v, want ErrCrossReferenceMissing", err)
	}
}

func TestDecompileRecoversUserDefinedData(t *testing.T) {
	ms := media.NewMediaSet("PN-0001")
	ms.AddMedium()
	ms.LoadsUserDefinedData = []byte{0xAA, 0xBB, 0xCC}

	store := newMemStore()
	if _, err := compiler.Compile(ms, compiler.Config{Version: files.Supplement345, Callbacks: store.callbacks()}); err != nil {
		t.Fatal(err)
	}

	rebuilt, _, err := decompiler.Decompile(decompiler.Config{
		NumberOfMedia: 1,
		ReadFile:      store.ReadFile,
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0xAA, 0xBB, 0xCC, 0x00}
	if string(rebuilt.LoadsUserDefinedData) != string(want) {
		t.Errorf("recovered UDD = % x, want % x", rebuilt.LoadsUserDefinedData, want)
	}
}
