package checkvalue

import (
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
)

// Type enumerates the ARINC 645 check-value algorithms, plus NotUsed.
// Values are fixed by ARINC 665 and must match the wire encoding in
// files.FileCheckValue.
type Type uint16

const (
	NotUsed Type = 0
	CRC8    Type = 1
	CRC16   Type = 2
	CRC32   Type = 3
	MD5     Type = 4
	SHA1    Type = 5
	SHA256  Type = 6
	SHA512  Type = 7
	CRC64   Type = 8
)

func (t Type) String() string {
	switch t {
	case NotUsed:
		return "NotUsed"
	case CRC8:
		return "CRC-8"
	case CRC16:
		return "CRC-16"
	case CRC32:
		return "CRC-32"
	case MD5:
		return "MD5"
	case SHA1:
		return "SHA-1"
	case SHA256:
		return "SHA-256"
	case SHA512:
		return "SHA-512"
	case CRC64:
		return "CRC-64"
	default:
		return fmt.Sprintf("CheckValueType(%d)", uint16(t))
	}
}

// Len returns the fixed payload length, in bytes, of a check value of this
// type. NotUsed has length 0.
func (t Type) Len() int {
	switch t {
	case NotUsed:
		return 0
	case CRC8:
		return 1
	case CRC16:
		return 2
	case CRC32:
		return 4
	case MD5:
		return 16
	case SHA1:
		return 20
	case SHA256:
		return 32
	case SHA512:
		return 64
	case CRC64:
		return 8
	default:
		return 0
	}
}

// Valid reports whether t is one of the known check-value types.
func (t Type) Valid() bool {
	return t <= CRC64
}

// Value is an ARINC 645 check value: an algorithm type paired with its
// raw bytes. The zero Value equals NoCheckValue.
type Value struct {
	Type  Type
	Bytes []byte
}

// NoCheckValue is the sentinel check value meaning "not used".
var NoCheckValue = Value{Type: NotUsed}

// Equal reports whether two check values have the same type and bytes.
// Two NotUsed values are always equal; a NotUsed value is never equal to
// a value with Type set, even if Bytes happens to be empty there too.
func (v Value) Equal(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	if v.Type == NotUsed {
		return true
	}
	return bytes.Equal(v.Bytes, other.Bytes)
}

// Compute returns the ARINC 645 check value of the given type over data.
// Compute(NotUsed, data) always returns NoCheckValue regardless of data.
func Compute(t Type, data []byte) (Value, error) {
	switch t {
	case NotUsed:
		return NoCheckValue, nil
	case CRC8:
		return Value{Type: t, Bytes: []byte{CalcCRC8(data)}}, nil
	case CRC16:
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, CalcCRC16(data))
		return Value{Type: t, Bytes: b}, nil
	case CRC32:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, CalcCRC32(data))
		return Value{Type: t, Bytes: b}, nil
	case CRC64:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, CalcCRC64(data))
		return Value{Type: t, Bytes: b}, nil
	case MD5:
		sum := md5.Sum(data)
		return Value{Type: t, Bytes: sum[:]}, nil
	case SHA1:
		sum := sha1.Sum(data)
		return Value{Type: t, Bytes: sum[:]}, nil
	case SHA256:
		sum := sha256.Sum256(data)
		return Value{Type: t, Bytes: sum[:]}, nil
	case SHA512:
		sum := sha512.Sum512(data)
		return Value{Type: t, Bytes: sum[:]}, nil
	default:
		return Value{}, fmt.Errorf("checkvalue: unsupported check value type %s", t)
	}
}

// Digest is a streaming ARINC 645 check-value computation, used when the
// covered byte range is assembled incrementally (e.g. a Load's data and
// support files in listing order).
type Digest struct {
	typ    Type
	d8     *Digest8
	d16    *Digest16
	d32    *Digest32
	d64    *Digest64
	hasher interface {
		Write(p []byte) (int, error)
		Sum(b []byte) []byte
	}
}

// NewDigest returns a fresh streaming digest for check-value type t.
// NewDigest(NotUsed) returns a digest whose Finalize always yields
// NoCheckValue.
func NewDigest(t Type) (*Digest, error) {
	d := &Digest{typ: t}
	switch t {
	case NotUsed:
		return d, nil
	case CRC8:
		d.d8 = NewDigest8()
	case CRC16:
		d.d16 = NewDigest16()
	case CRC32:
		d.d32 = NewDigest32()
	case CRC64:
		d.d64 = NewDigest64()
	case MD5:
		d.hasher = md5.New()
	case SHA1:
		d.hasher = sha1.New()
	case SHA256:
		d.hasher = sha256.New()
	case SHA512:
		d.hasher = sha512.New()
	default:
		return nil, fmt.Errorf("checkvalue: unsupported check value type %s", t)
	}
	return d, nil
}

// Update feeds more bytes into the digest.
func (d *Digest) Update(p []byte) {
	switch {
	case d.typ == NotUsed:
	case d.d8 != nil:
		d.d8.Update(p)
	case d.d16 != nil:
		d.d16.Update(p)
	case d.d32 != nil:
		d.d32.Update(p)
	case d.d64 != nil:
		d.d64.Update(p)
	default:
		d.hasher.Write(p)
	}
}

// Finalize returns the accumulated check value.
func (d *Digest) Finalize() Value {
	switch {
	case d.typ == NotUsed:
		return NoCheckValue
	case d.d8 != nil:
		return Value{Type: d.typ, Bytes: []byte{d.d8.Finalize()}}
	case d.d16 != nil:
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, d.d16.Finalize())
		return Value{Type: d.typ, Bytes: b}
	case d.d32 != nil:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, d.d32.Finalize())
		return Value{Type: d.typ, Bytes: b}
	case d.d64 != nil:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, d.d64.Finalize())
		return Value{Type: d.typ, Bytes: b}
	default:
		return Value{Type: d.typ, Bytes: d.hasher.Sum(nil)}
	}
}
