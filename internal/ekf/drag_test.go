package ekf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDragDownsamplerRatioFloor(t *testing.T) {
	t.Parallel()

	var d DragDownsampler

	d.SetRatio(15, 14) // ceil(15/14) = 2, floored to 5
	assert.Equal(t, 5, d.sampleRatio)

	d.SetRatio(40, 5) // ceil(40/5) = 8
	assert.Equal(t, 8, d.sampleRatio)

	d.SetRatio(10, 0) // degenerate lengths fall back to the floor
	assert.Equal(t, 5, d.sampleRatio)
}

func TestDragDownsamplerEmitsMeans(t *testing.T) {
	t.Parallel()

	var d DragDownsampler
	d.SetRatio(15, 14)

	emitted := 0
	var last DragSample
	for i := 1; i <= 10; i++ {
		imu := IMUSample{
			TimeUS:     uint64(i * 10000),
			DeltaVel:   [3]float32{0.1, -0.05, 0},
			DeltaVelDT: 0.01,
		}
		if s, ok := d.Add(imu); ok {
			emitted++
			last = s
		}
	}

	// 10 samples at ratio 5 emit exactly twice
	require.Equal(t, 2, emitted)

	// second emit covers samples 6..10: mean time 80000,
	// accel = 5*0.1 / 5*0.01 = 10 m/s^2
	assert.Equal(t, uint64(80000), last.TimeUS)
	assert.InDelta(t, 10.0, last.AccelXY[0], 1e-4)
	assert.InDelta(t, -5.0, last.AccelXY[1], 1e-4)
}

func TestDragDownsamplerResetClearsAccumulator(t *testing.T) {
	t.Parallel()

	var d DragDownsampler
	d.SetRatio(15, 14)

	for i := 0; i < 3; i++ {
		_, ok := d.Add(IMUSample{TimeUS: 1000, DeltaVel: [3]float32{1, 1, 0}, DeltaVelDT: 0.01})
		assert.False(t, ok)
	}
	d.Reset()
	assert.Equal(t, 0, d.count)
	assert.Equal(t, [2]float32{}, d.accelXY)

	// ratio survives a reset
	assert.Equal(t, 5, d.sampleRatio)
}
