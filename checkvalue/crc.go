// Package checkvalue implements the CRC and ARINC 645 check-value
// primitives used throughout the ARINC 665 binary file layer: CRC-16
// framing for every file, the Load CRC-32, and the broader family of
// ARINC 645 check values (CRC-8/16/32/64, MD5, SHA-1/256/512).
package checkvalue

import (
	"fmt"

	"github.com/pasztorpisti/go-crc"
)

// Width identifies one of the four CRC widths used by ARINC 665/645.
type Width int

const (
	Width8 Width = iota
	Width16
	Width32
	Width64
)

// Parameters are the fixed CRC parameters mandated by ARINC 665-4.
// None of the four widths reflect input or output. CRC-64's reflect
// parameters are a known point of disagreement with ARINC 665-4 itself:
// the specification text implies reflection, but every existing media
// set and the conformance test vectors assume none. We pin "no
// reflection" here for compatibility with deployed data; a newer
// conformance target would need refIn=refOut=true instead.
var (
	crc8Algo  = mustAlgo[uint8](8, 0x80, 0x00, 0x00, false, false)
	crc16Algo = mustAlgo[uint16](16, 0x1021, 0xFFFF, 0x0000, false, false)
	crc32Algo = mustAlgo[uint32](32, 0x04C11DB7, 0xFFFFFFFF, 0xFFFFFFFF, false, false)
	crc64Algo = mustAlgo[uint64](64, 0x42F0E1EBA9EA3693, ^uint64(0), ^uint64(0), false, false)
)

func mustAlgo[T crc.UInt](width int, poly, init, xorOut T, refIn, refOut bool) crc.Algo[T] {
	a, err := crc.NewAlgo[T](width, poly, init, xorOut, refIn, refOut)
	if err != nil {
		panic(fmt.Sprintf("checkvalue: invalid CRC-%d parameters: %v", width, err))
	}
	return a
}

// Digest8 is a streaming CRC-8 computation.
type Digest8 struct{ crc crc.CRC[uint8] }

// NewDigest8 returns a fresh CRC-8 streaming digest.
func NewDigest8() *Digest8 { return &Digest8{crc8Algo.NewCRC()} }

// Update feeds more bytes into the digest.
func (d *Digest8) Update(p []byte) { d.crc.Update(p) }

// Finalize returns the CRC-8 value computed so far.
func (d *Digest8) Finalize() uint8 { return d.crc.Final() }

// CalcCRC8 computes the CRC-8 of p in one call.
func CalcCRC8(p []byte) uint8 { return crc8Algo.Calc(p) }

// Digest16 is a streaming CRC-16 computation.
type Digest16 struct{ crc crc.CRC[uint16] }

// NewDigest16 returns a fresh CRC-16 streaming digest.
func NewDigest16() *Digest16 { return &Digest16{crc16Algo.NewCRC()} }

func (d *Digest16) Update(p []byte)  { d.crc.Update(p) }
func (d *Digest16) Finalize() uint16 { return d.crc.Final() }

// CalcCRC16 computes the CRC-16 of p in one call.
func CalcCRC16(p []byte) uint16 { return crc16Algo.Calc(p) }

// Digest32 is a streaming CRC-32 computation.
type Digest32 struct{ crc crc.CRC[uint32] }

// NewDigest32 returns a fresh CRC-32 streaming digest.
func NewDigest32() *Digest32 { return &Digest32{crc32Algo.NewCRC()} }

func (d *Digest32) Update(p []byte)  { d.crc.Update(p) }
func (d *Digest32) Finalize() uint32 { return d.crc.Final() }

// CalcCRC32 computes the CRC-32 of p in one call.
func CalcCRC32(p []byte) uint32 { return crc32Algo.Calc(p) }

// Digest64 is a streaming CRC-64 computation.
type Digest64 struct{ crc crc.CRC[uint64] }

// NewDigest64 returns a fresh CRC-64 streaming digest.
func NewDigest64() *Digest64 { return &Digest64{crc64Algo.NewCRC()} }

func (d *Digest64) Update(p []byte)  { d.crc.Update(p) }
func (d *Digest64) Finalize() uint64 { return d.crc.Final() }

// CalcCRC64 computes the CRC-64 of p in one call.
func CalcCRC64(p []byte) uint64 { return crc64Algo.Calc(p) }
