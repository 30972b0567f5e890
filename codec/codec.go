// Package codec implements the low-level ARINC 665 wire encoding: raw
// big-endian integer access, 16-bit-aligned counted strings and string
// lists, and path encoding. Every binary file type in package files is
// built out of these primitives.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// ErrEncodingOverflow is returned when a value (typically a string or a
// list) is too long to be represented in its wire-format length field.
var ErrEncodingOverflow = errors.New("codec: value exceeds maximum encodable length")

// MaxCountedLength is the largest number of bytes a counted string (or
// the largest number of entries a counted list) may have, imposed by the
// 16-bit length/count field that precedes it on the wire.
const MaxCountedLength = 0xFFFF

// GetU16 reads a big-endian uint16 at the given byte offset.
func GetU16(b []byte, offset int) uint16 {
	return binary.BigEndian.Uint16(b[offset : offset+2])
}

// GetU32 reads a big-endian uint32 at the given byte offset.
func GetU32(b []byte, offset int) uint32 {
	return binary.BigEndian.Uint32(b[offset : offset+4])
}

// SetU16 writes a big-endian uint16 at the given byte offset. b must be
// at least offset+2 bytes long.
func SetU16(b []byte, offset int, v uint16) {
	binary.BigEndian.PutUint16(b[offset:offset+2], v)
}

// SetU32 writes a big-endian uint32 at the given byte offset. b must be
// at least offset+4 bytes long.
func SetU32(b []byte, offset int, v uint32) {
	binary.BigEndian.PutUint32(b[offset:offset+4], v)
}

// AppendU16 appends a big-endian uint16 to b.
func AppendU16(b []byte, v uint16) []byte {
	return append(b, byte(v>>8), byte(v))
}

// AppendU32 appends a big-endian uint32 to b.
func AppendU32(b []byte, v uint32) []byte {
	return append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// EncodeString appends s as a counted string: a 16-bit length in bytes,
// followed by the ASCII bytes, followed by a single 0x00 pad byte if the
// length is odd (so the following field stays 16-bit aligned).
func EncodeString(b []byte, s string) ([]byte, error) {
	if len(s) > MaxCountedLength {
		return nil, fmt.Errorf("%w: string of %d bytes", ErrEncodingOverflow, len(s))
	}
	b = AppendU16(b, uint16(len(s)))
	b = append(b, s...)
	if len(s)%2 != 0 {
		b = append(b, 0x00)
	}
	return b, nil
}

// DecodeString reads a counted string starting at offset and returns the
// decoded string along with the offset of the byte following it
// (including any padding byte).
func DecodeString(b []byte, offset int) (string, int, error) {
	if offset+2 > len(b) {
		return "", 0, fmt.Errorf("codec: counted string length field out of bounds at offset %d", offset)
	}
	n := int(GetU16(b, offset))
	start := offset + 2
	end := start + n
	if end > len(b) {
		return "", 0, fmt.Errorf("codec: counted string of length %d out of bounds at offset %d", n, start)
	}
	s := string(b[start:end])
	next := end
	if n%2 != 0 {
		next++
	}
	return s, next, nil
}

// EncodeStringList appends a counted list of strings: a 16-bit count,
// followed by each string in turn as a counted string.
func EncodeStringList(b []byte, list []string) ([]byte, error) {
	if len(list) > MaxCountedLength {
		return nil, fmt.Errorf("%w: string list of %d entries", ErrEncodingOverflow, len(list))
	}
	b = AppendU16(b, uint16(len(list)))
	var err error
	for _, s := range list {
		b, err = EncodeString(b, s)
		if err != nil {
			return nil, err
		}
	}
	return b, nil
}

// DecodeStringList reads a counted string list starting at offset and
// returns the decoded strings along with the offset following the list.
func DecodeStringList(b []byte, offset int) ([]string, int, error) {
	if offset+2 > len(b) {
		return nil, 0, fmt.Errorf("codec: string list count field out of bounds at offset %d", offset)
	}
	count := int(GetU16(b, offset))
	pos := offset + 2
	list := make([]string, 0, count)
	for i := 0; i < count; i++ {
		s, next, err := DecodeString(b, pos)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, s)
		pos = next
	}
	return list, pos, nil
}

// EncodePath converts a slice of path components into the ARINC 665 wire
// representation: forward slashes become backslashes, and the result has
// exactly one leading and one trailing backslash. An empty path encodes
// to "\\".
func EncodePath(components []string) string {
	if len(components) == 0 {
		return `\`
	}
	cleaned := make([]string, len(components))
	for i, c := range components {
		cleaned[i] = strings.ReplaceAll(c, "/", `\`)
	}
	return `\` + strings.Join(cleaned, `\`) + `\`
}

// DecodePath splits a wire path string back into its components,
// tolerating missing leading/trailing backslashes and forward slashes
// used interchangeably.
func DecodePath(wire string) []string {
	normalized := strings.ReplaceAll(wire, "/", `\`)
	normalized = strings.Trim(normalized, `\`)
	if normalized == "" {
		return nil
	}
	return strings.Split(normalized, `\`)
}
