// Package exiftest - Hand-built EXIF blocks for photographs used in tests.
package exiftest

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/jpeg"

	"github.com/pkg/errors"
)

const (
	tiffByte     = 1
	tiffASCII    = 2
	tiffLong     = 4
	tiffRational = 5
)

// Rational is one unsigned TIFF rational, numerator then denominator.
type Rational [2]uint32

// DMS returns degrees, minutes and seconds as whole rationals.
func DMS(d, m, s uint32) []Rational {
	return []Rational{{d, 1}, {m, 1}, {s, 1}}
}

// Block describes the EXIF fields written into a photograph. Empty fields are
// left out of the block.
type Block struct {
	DateTimeOriginal string
	DateTime         string
	Lat, Lon         []Rational
	LatRef, LonRef   string
	// RefAsBytes stores the GPS references as BYTE instead of ASCII.
	RefAsBytes bool
}

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

func asciiEntry(tag uint16, s string) ifdEntry {
	b := append([]byte(s), 0)
	return ifdEntry{tag: tag, typ: tiffASCII, count: uint32(len(b)), data: b}
}

func byteEntry(tag uint16, s string) ifdEntry {
	b := []byte(s)
	return ifdEntry{tag: tag, typ: tiffByte, count: uint32(len(b)), data: b}
}

func rationalEntry(tag uint16, vals ...Rational) ifdEntry {
	b := make([]byte, 0, 8*len(vals))
	for _, v := range vals {
		b = binary.LittleEndian.AppendUint32(b, v[0])
		b = binary.LittleEndian.AppendUint32(b, v[1])
	}
	return ifdEntry{tag: tag, typ: tiffRational, count: uint32(len(vals)), data: b}
}

func longEntry(tag uint16, v uint32) ifdEntry {
	return ifdEntry{tag: tag, typ: tiffLong, count: 1, data: binary.LittleEndian.AppendUint32(nil, v)}
}

func ifdSize(entries []ifdEntry) int {
	n := 2 + 12*len(entries) + 4
	for _, e := range entries {
		if len(e.data) > 4 {
			n += len(e.data)
		}
	}
	return n
}

// encodeIFD lays out one IFD at offset with out-of-line values after it.
func encodeIFD(entries []ifdEntry, offset int) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint16(len(entries)))
	extra := offset + 2 + 12*len(entries) + 4
	var tail bytes.Buffer
	for _, e := range entries {
		binary.Write(&buf, binary.LittleEndian, e.tag)
		binary.Write(&buf, binary.LittleEndian, e.typ)
		binary.Write(&buf, binary.LittleEndian, e.count)
		if len(e.data) <= 4 {
			v := make([]byte, 4)
			copy(v, e.data)
			buf.Write(v)
			continue
		}
		binary.Write(&buf, binary.LittleEndian, uint32(extra+tail.Len()))
		tail.Write(e.data)
	}
	binary.Write(&buf, binary.LittleEndian, uint32(0))
	buf.Write(tail.Bytes())
	return buf.Bytes()
}

// TIFF builds a little-endian TIFF block with IFD0 and, when any GPS field is
// set, a GPS sub-IFD.
func (b Block) TIFF() []byte {
	var ifd0 []ifdEntry
	if b.DateTime != "" {
		ifd0 = append(ifd0, asciiEntry(0x0132, b.DateTime))
	}
	if b.DateTimeOriginal != "" {
		ifd0 = append(ifd0, asciiEntry(0x9003, b.DateTimeOriginal))
	}

	ref := asciiEntry
	if b.RefAsBytes {
		ref = byteEntry
	}
	var gps []ifdEntry
	if b.LatRef != "" {
		gps = append(gps, ref(0x0001, b.LatRef))
	}
	if len(b.Lat) > 0 {
		gps = append(gps, rationalEntry(0x0002, b.Lat...))
	}
	if b.LonRef != "" {
		gps = append(gps, ref(0x0003, b.LonRef))
	}
	if len(b.Lon) > 0 {
		gps = append(gps, rationalEntry(0x0004, b.Lon...))
	}
	if len(gps) > 0 {
		// Placeholder value, patched once IFD0's size is known.
		ifd0 = append(ifd0, longEntry(0x8825, 0))
	}
	gpsOffset := 8 + ifdSize(ifd0)
	if len(gps) > 0 {
		ifd0[len(ifd0)-1] = longEntry(0x8825, uint32(gpsOffset))
	}

	var buf bytes.Buffer
	buf.WriteString("II")
	binary.Write(&buf, binary.LittleEndian, uint16(42))
	binary.Write(&buf, binary.LittleEndian, uint32(8))
	buf.Write(encodeIFD(ifd0, 8))
	if len(gps) > 0 {
		buf.Write(encodeIFD(gps, gpsOffset))
	}
	return buf.Bytes()
}

// Insert places the block as an APP1 segment right after the SOI marker of a
// JPEG stream.
func (b Block) Insert(jpegData []byte) ([]byte, error) {
	if len(jpegData) < 2 || jpegData[0] != 0xFF || jpegData[1] != 0xD8 {
		return nil, errors.New("not a jpeg stream")
	}
	payload := append([]byte("Exif\x00\x00"), b.TIFF()...)
	if len(payload)+2 > 0xFFFF {
		return nil, errors.Errorf("exif block too large: %d bytes", len(payload))
	}

	var out bytes.Buffer
	out.Write(jpegData[:2])
	out.Write([]byte{0xFF, 0xE1})
	binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(jpegData[2:])
	return out.Bytes(), nil
}

// EncodeJPEG encodes img as a JPEG carrying the block.
func (b Block) EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var plain bytes.Buffer
	if err := jpeg.Encode(&plain, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, errors.Wrap(err, "encoding jpeg")
	}
	return b.Insert(plain.Bytes())
}
