package ekf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBufferAllocate(t *testing.T) {
	t.Parallel()

	var b RingBuffer[BaroSample]
	assert.Equal(t, 0, b.GetLength())
	assert.False(t, b.Allocate(0), "zero length must fail")
	assert.False(t, b.Allocate(-3), "negative length must fail")

	require.True(t, b.Allocate(4))
	assert.Equal(t, 4, b.GetLength())
	assert.Equal(t, 0, b.Entries())

	b.Push(BaroSample{TimeUS: 100, Hgt: 1})

	// same-length re-allocation keeps contents
	require.True(t, b.Allocate(4))
	assert.Equal(t, 1, b.Entries())

	b.Unallocate()
	assert.Equal(t, 0, b.GetLength())
	assert.Equal(t, 0, b.Entries())
}

func TestRingBufferPushOverwritesOldest(t *testing.T) {
	t.Parallel()

	var b RingBuffer[BaroSample]
	require.True(t, b.Allocate(3))

	for i := 1; i <= 5; i++ {
		b.Push(BaroSample{TimeUS: uint64(i * 1000)})
	}

	assert.Equal(t, 3, b.Entries())
	assert.Equal(t, uint64(3000), b.GetOldest().TimeUS)
	assert.Equal(t, uint64(5000), b.GetNewest().TimeUS)
}

func TestRingBufferPushUnallocatedIsNoop(t *testing.T) {
	t.Parallel()

	var b RingBuffer[BaroSample]
	b.Push(BaroSample{TimeUS: 1})
	assert.Equal(t, 0, b.Entries())
}

func TestRingBufferReadFirstOlderThan(t *testing.T) {
	t.Parallel()

	var b RingBuffer[BaroSample]
	require.True(t, b.Allocate(5))
	for _, ts := range []uint64{1000, 2000, 3000, 4000} {
		b.Push(BaroSample{TimeUS: ts, Hgt: float32(ts)})
	}

	var out BaroSample

	t.Run("between samples returns nearest older", func(t *testing.T) {
		require.True(t, b.ReadFirstOlderThan(3500, &out))
		assert.Equal(t, uint64(3000), out.TimeUS)
	})

	t.Run("exact match returns that sample", func(t *testing.T) {
		require.True(t, b.ReadFirstOlderThan(2000, &out))
		assert.Equal(t, uint64(2000), out.TimeUS)
	})

	t.Run("after newest returns newest", func(t *testing.T) {
		require.True(t, b.ReadFirstOlderThan(99999, &out))
		assert.Equal(t, uint64(4000), out.TimeUS)
	})

	t.Run("before oldest fails", func(t *testing.T) {
		assert.False(t, b.ReadFirstOlderThan(999, &out))
	})

	t.Run("empty buffer fails", func(t *testing.T) {
		var empty RingBuffer[BaroSample]
		require.True(t, empty.Allocate(3))
		assert.False(t, empty.ReadFirstOlderThan(1000, &out))
	})
}

func TestRingBufferReadFirstOlderThanAfterWrap(t *testing.T) {
	t.Parallel()

	var b RingBuffer[BaroSample]
	require.True(t, b.Allocate(3))
	for _, ts := range []uint64{1000, 2000, 3000, 4000, 5000} {
		b.Push(BaroSample{TimeUS: ts})
	}

	var out BaroSample
	require.True(t, b.ReadFirstOlderThan(4500, &out))
	assert.Equal(t, uint64(4000), out.TimeUS)

	// 1000 and 2000 were overwritten
	assert.False(t, b.ReadFirstOlderThan(2500, &out))
}

func TestRingBufferTotalSize(t *testing.T) {
	t.Parallel()

	var b RingBuffer[BaroSample]
	require.True(t, b.Allocate(4))
	assert.Greater(t, b.GetTotalSize(), 0)

	b.Unallocate()
	assert.Equal(t, 0, b.GetTotalSize())
}
