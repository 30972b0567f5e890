package files

import (
	"testing"

	"github.com/tvogt/arinc665/checkvalue"
)

func TestKindClass(t *testing.T) {
	for kind, want := range map[Kind]FileClass{
		KindLoadUploadHeader: ClassLoadFile,
		KindBatchFile:        ClassBatchFile,
		KindLoadList:         ClassMediaFile,
		KindBatchList:        ClassMediaFile,
		KindFileList:         ClassMediaFile,
	} {
		if got := kind.Class(); got != want {
			t.Errorf("%v.Class() = %v, want %v", kind, got, want)
		}
	}
}

func TestFileCheckValueRoundTrip(t *testing.T) {
	v, err := checkvalue.Compute(checkvalue.SHA256, []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	b := encodeFileCheckValue(nil, v)
	got, next, err := decodeFileCheckValue(b, 0)
	if err != nil {
		t.Fatal(err)
	}
	if next != len(b) {
		t.Errorf("next = %d, want %d", next, len(b))
	}
	if !got.Equal(v) {
		t.Errorf("decoded %+v, want %+v", got, v)
	}
}

func TestFileCheckValueRoundTripNotUsed(t *testing.T) {
	b := encodeFileCheckValue(nil, checkvalue.NoCheckValue)
	if len(b) != 4 {
		t.Fatalf("NotUsed check value encodes to %d bytes, want 4", len(b))
	}
	got, next, err := decodeFileCheckValue(b, 0)
	if err != nil {
		t.Fatal(err)
	}
	if next != 4 || !got.Equal(checkvalue.NoCheckValue) {
		t.Errorf("decoded (%+v, %d), want (NoCheckValue, 4)", got, next)
	}
}

func TestFinalizeRoundTrip(t *testing.T) {
	body := encodeHeaderPlaceholder(MediaFileVersionSupplement2, 0)
	body = append(body, []byte("hello")...) // odd length, pad to even
	body = append(body, 0x00)

	final, err := finalize(body)
	if err != nil {
		t.Fatal(err)
	}
	hdr, err := decodeHeader(KindFileList, final)
	if err != nil {
		t.Fatal(err)
	}
	if hdr.FormatVersion != MediaFileVersionSupplement2 {
		t.Errorf("FormatVersion = %#x, want %#x", hdr.FormatVersion, MediaFileVersionSupplement2)
	}
}

func TestFinalizeRejectsOddLength(t *testing.T) {
	body := encodeHeaderPlaceholder(MediaFileVersionSupplement2, 0)
	body = append(body, 0x01)
	if _, err := finalize(body); err == nil {
		t.Error("expected error for odd-length body")
	}
}

func TestFinalizeWithCheckValueRoundTrip(t *testing.T) {
	body := encodeHeaderPlaceholder(MediaFileVersionSupplement345, 0)
	body = append(body, make([]byte, 12)...)

	final, value, err := finalizeWithCheckValue(body, checkvalue.CRC16)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := decodeHeader(KindFileList, final); err != nil {
		t.Fatalf("decodeHeader failed on finalized body: %v", err)
	}
	if value.Type != checkvalue.CRC16 || len(value.Bytes) != 2 {
		t.Errorf("unexpected check value %+v", value)
	}
}
