package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter(make([]byte, 0, 64))
	w.U8(0x42)
	w.U16(0xBEEF)
	w.U32(0xDEADBEEF)
	w.U64(0x0102030405060708)
	w.I16(-5)
	w.I32(-1000)
	w.String("hi")
	w.LongString("a longer string field")

	r := NewReader(w.Bytes())

	u8, err := r.U8()
	require.NoError(t, err)
	require.Equal(t, uint8(0x42), u8)

	u16, err := r.U16()
	require.NoError(t, err)
	require.Equal(t, uint16(0xBEEF), u16)

	u32, err := r.U32()
	require.NoError(t, err)
	require.Equal(t, uint32(0xDEADBEEF), u32)

	u64, err := r.U64()
	require.NoError(t, err)
	require.Equal(t, uint64(0x0102030405060708), u64)

	i16, err := r.I16()
	require.NoError(t, err)
	require.Equal(t, int16(-5), i16)

	i32, err := r.I32()
	require.NoError(t, err)
	require.Equal(t, int32(-1000), i32)

	s, err := r.String()
	require.NoError(t, err)
	require.Equal(t, "hi", s)

	ls, err := r.LongString()
	require.NoError(t, err)
	require.Equal(t, "a longer string field", ls)

	require.Zero(t, r.Remaining())
}

func TestReaderTruncatedFields(t *testing.T) {
	r := NewReader([]byte{0x01})
	_, err := r.U16()
	require.ErrorIs(t, err, ErrTruncated)
}

func TestReaderStringTruncatedBody(t *testing.T) {
	// claims 10 bytes of body but only provides 2
	r := NewReader([]byte{0x0A, 'h', 'i'})
	_, err := r.String()
	require.ErrorIs(t, err, ErrTruncated)
}

func TestWriterStringTruncatesAtShortMax(t *testing.T) {
	long := strings.Repeat("x", shortStringMax+50)
	w := NewWriter(make([]byte, 0, shortStringMax+8))
	w.String(long)

	r := NewReader(w.Bytes())
	got, err := r.String()
	require.NoError(t, err)
	require.Len(t, got, shortStringMax)
}

func TestWriterRawBytes(t *testing.T) {
	w := NewWriter(make([]byte, 0, 8))
	w.RawBytes([]byte{1, 2, 3})
	require.Equal(t, []byte{1, 2, 3}, w.Bytes())
	require.Equal(t, 3, w.Len())
}
