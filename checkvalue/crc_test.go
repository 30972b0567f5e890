package checkvalue

import "testing"

// TestCRC16SelfCheck: for any
// bytes B, crc16(B || be16(crc16(B))) == 0.
func TestCRC16SelfCheck(t *testing.T) {
	samples := [][]byte{
		nil,
		[]byte("123456789"),
		{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F},
		[]byte("DE AD BE EF"),
	}
	for _, data := range samples {
		sum := CalcCRC16(data)
		closed := append(append([]byte{}, data...), byte(sum>>8), byte(sum))
		if got := CalcCRC16(closed); got != 0 {
			t.Errorf("CalcCRC16(data || be16(crc16(data))) = %#x, want 0", got)
		}
	}
}

// TestDataBinCRC16: a 16-byte file with bytes 00..0F has
// CRC-16 0x3B37 under the ARINC 665 parameters.
func TestDataBinCRC16(t *testing.T) {
	data := make([]byte, 16)
	for i := range data {
		data[i] = byte(i)
	}
	if got, want := CalcCRC16(data), uint16(0x3B37); got != want {
		t.Errorf("CalcCRC16(00..0F) = %#x, want %#x", got, want)
	}
}

func TestStreamingDigestMatchesOneShot(t *testing.T) {
	data := []byte("streaming digests must match one-shot computation")
	mid := len(data) / 2

	d16 := NewDigest16()
	d16.Update(data[:mid])
	d16.Update(data[mid:])
	if got, want := d16.Finalize(), CalcCRC16(data); got != want {
		t.Errorf("streaming CRC16 = %#x, want %#x", got, want)
	}

	d32 := NewDigest32()
	d32.Update(data[:mid])
	d32.Update(data[mid:])
	if got, want := d32.Finalize(), CalcCRC32(data); got != want {
		t.Errorf("streaming CRC32 = %#x, want %#x", got, want)
	}

	d64 := NewDigest64()
	d64.Update(data[:mid])
	d64.Update(data[mid:])
	if got, want := d64.Finalize(), CalcCRC64(data); got != want {
		t.Errorf("streaming CRC64 = %#x, want %#x", got, want)
	}

	d8 := NewDigest8()
	d8.Update(data[:mid])
	d8.Update(data[mid:])
	if got, want := d8.Finalize(), CalcCRC8(data); got != want {
		t.Errorf("streaming CRC8 = %#x, want %#x", got, want)
	}
}
