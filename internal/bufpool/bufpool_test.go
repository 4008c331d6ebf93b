package bufpool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetReturnsRequestedLength(t *testing.T) {
	p := New(16)
	b := p.Get(8)
	require.Len(t, b, 8)
}

func TestGetZeroesReusedBuffer(t *testing.T) {
	p := New(16)
	b := p.Get(8)
	for i := range b {
		b[i] = 0xFF
	}
	p.Put(b)

	b2 := p.Get(8)
	for _, v := range b2 {
		require.Zero(t, v)
	}
}

func TestGetAllocatesFreshOnSizeMiss(t *testing.T) {
	p := New(4)
	b := p.Get(64)
	require.Len(t, b, 64)
	require.GreaterOrEqual(t, cap(b), 64)
}

func TestPutNilIsNoop(t *testing.T) {
	p := New(16)
	require.NotPanics(t, func() { p.Put(nil) })
}

type recordingRecorder struct {
	hits, misses int
}

func (r *recordingRecorder) RecordPoolHit()  { r.hits++ }
func (r *recordingRecorder) RecordPoolMiss() { r.misses++ }

func TestWithRecorderReportsHitsAndMisses(t *testing.T) {
	rec := &recordingRecorder{}
	p := New(16).WithRecorder(rec)

	b := p.Get(8) // fresh pool.New buffer counts as a hit: cap(b) >= size
	p.Put(b)
	p.Get(8) // reused from Put, still a hit

	p.Get(64) // exceeds defaultCap, counts as a miss

	require.Equal(t, 2, rec.hits)
	require.Equal(t, 1, rec.misses)
}
