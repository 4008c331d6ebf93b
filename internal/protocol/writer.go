package protocol

import "encoding/binary"

// shortStringMax is the largest string encodable with the 1-byte length
// prefix; longer strings are truncated at encode time per the wire spec.
const shortStringMax = 255

// longStringMax is the largest string encodable with the 2-byte length prefix.
const longStringMax = 65535

// Writer encodes typed, big-endian primitives into a caller-supplied
// buffer. The zero value is not usable; construct with NewWriter.
type Writer struct {
	buf []byte
}

// NewWriter wraps dst (typically drawn from a buffer pool) for sequential
// field writes starting at offset 0.
func NewWriter(dst []byte) *Writer {
	return &Writer{buf: dst[:0]}
}

// Bytes returns the bytes written so far.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// U8 appends an unsigned byte.
func (w *Writer) U8(v uint8) {
	w.buf = append(w.buf, v)
}

// U16 appends a big-endian uint16.
func (w *Writer) U16(v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// U32 appends a big-endian uint32.
func (w *Writer) U32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// U64 appends a big-endian uint64.
func (w *Writer) U64(v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// I16 appends a big-endian int16.
func (w *Writer) I16(v int16) {
	w.U16(uint16(v))
}

// I32 appends a big-endian int32.
func (w *Writer) I32(v int32) {
	w.U32(uint32(v))
}

// String appends a 1-byte-length-prefixed UTF-8 string, truncating at
// shortStringMax bytes if s is longer.
func (w *Writer) String(s string) {
	b := []byte(s)
	if len(b) > shortStringMax {
		b = b[:shortStringMax]
	}
	w.U8(uint8(len(b)))
	w.buf = append(w.buf, b...)
}

// LongString appends a 2-byte-length-prefixed UTF-8 string, truncating at
// longStringMax bytes if s is longer.
func (w *Writer) LongString(s string) {
	b := []byte(s)
	if len(b) > longStringMax {
		b = b[:longStringMax]
	}
	w.U16(uint16(len(b)))
	w.buf = append(w.buf, b...)
}

// RawBytes appends raw bytes verbatim.
func (w *Writer) RawBytes(b []byte) {
	w.buf = append(w.buf, b...)
}
