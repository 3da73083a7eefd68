package ekf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type airborneStatus struct{}

func (airborneStatus) InAir() bool { return true }

// newFlowEstimator returns a facade primed for flow conditioning tests:
// initialised, observation spacing 20ms, one IMU sample in the buffer.
func newFlowEstimator(t *testing.T) *Estimator {
	t.Helper()

	params := DefaultParams()
	params.FusionMode |= MaskUseFlow
	params.FlowQualMin = 50

	e := NewEstimator(params)
	e.SetIMUCollector(PassthroughCollector{})
	require.True(t, e.InitialiseInterface(900000))
	e.initialised = true
	e.minObsIntervalUS = 20000

	e.imuBuffer.Push(IMUSample{
		TimeUS:     980000,
		DeltaAng:   [3]float32{0.01, 0, 0},
		DeltaAngDT: 0.01,
		DeltaVelDT: 0.01,
	})
	return e
}

func TestFlowGyroFallbackFromIMU(t *testing.T) {
	nan := float32(math.NaN())
	e := newFlowEstimator(t)

	e.SetOpticalFlowData(1000000, &FlowMessage{
		FlowData: [2]float32{0.02, -0.01},
		GyroData: [3]float32{nan, nan, nan},
		DT:       20000,
		Quality:  200,
	})

	require.Equal(t, 1, e.flowBuffer.Entries())
	s := e.flowBuffer.GetNewest()

	// mid point of the integration window, less the flow delay
	assert.Equal(t, uint64(1000000-5000-10000), s.TimeUS)
	assert.Equal(t, uint8(200), s.Quality)
	assert.InDelta(t, 0.02, s.DT, 1e-6)

	// substituted gyro rate was (1,0,0); flow rate is flowdata/dt
	assert.InDelta(t, 1.0, s.FlowRadXY[0], 1e-5)
	assert.InDelta(t, -0.5, s.FlowRadXY[1], 1e-5)

	// LOS delta: (rate + gyro) * dt
	assert.InDelta(t, 0.04, s.FlowRadXYComp[0], 1e-5)
	assert.InDelta(t, -0.01, s.FlowRadXYComp[1], 1e-5)

	// stored gyro XY scaled back to increment form by the IMU interval
	assert.InDelta(t, 0.01, s.GyroXYZ[0], 1e-6)
	assert.InDelta(t, 0, s.GyroXYZ[1], 1e-6)
}

func TestFlowDriverGyroCompensation(t *testing.T) {
	e := newFlowEstimator(t)

	e.SetOpticalFlowData(1000000, &FlowMessage{
		FlowData: [2]float32{0.02, -0.01},
		GyroData: [3]float32{0.2, -0.1, 0.05},
		DT:       20000,
		Quality:  200,
	})

	require.Equal(t, 1, e.flowBuffer.Entries())
	s := e.flowBuffer.GetNewest()

	// driver gyro path keeps delta-angle form, reversed sign convention
	assert.Equal(t, [2]float32{-0.02, 0.01}, s.FlowRadXY)
	assert.Equal(t, [3]float32{-0.2, 0.1, -0.05}, s.GyroXYZ)
	assert.InDelta(t, 0.18, s.FlowRadXYComp[0], 1e-5)
	assert.InDelta(t, -0.09, s.FlowRadXYComp[1], 1e-5)
}

func TestFlowGroundClauseZeroesLOS(t *testing.T) {
	e := newFlowEstimator(t)

	// quality 0 fails the gate, but the vehicle is on ground
	e.SetOpticalFlowData(1000000, &FlowMessage{
		FlowData: [2]float32{0.3, 0.3},
		GyroData: [3]float32{0.2, -0.1, 0.05},
		DT:       20000,
		Quality:  0,
	})

	require.Equal(t, 1, e.flowBuffer.Entries())
	s := e.flowBuffer.GetNewest()

	assert.Equal(t, [2]float32{-0.2, 0.1}, s.FlowRadXY)
	assert.InDelta(t, 0, s.FlowRadXYComp[0], 1e-6)
	assert.InDelta(t, 0, s.FlowRadXYComp[1], 1e-6)
}

func TestFlowRejectedInAir(t *testing.T) {
	t.Run("bad quality", func(t *testing.T) {
		e := newFlowEstimator(t)
		e.SetVehicleStatus(airborneStatus{})

		e.SetOpticalFlowData(1000000, &FlowMessage{
			FlowData: [2]float32{0.02, -0.01},
			GyroData: [3]float32{0.2, -0.1, 0.05},
			DT:       20000,
			Quality:  10,
		})
		assert.Equal(t, 0, e.flowBuffer.Entries())
		assert.Equal(t, uint64(0), e.timeLastOptFlow, "rejected samples must not advance the rate limiter")
	})

	t.Run("short integration window", func(t *testing.T) {
		e := newFlowEstimator(t)
		e.SetVehicleStatus(airborneStatus{})

		e.SetOpticalFlowData(1000000, &FlowMessage{
			FlowData: [2]float32{0.001, 0},
			GyroData: [3]float32{0, 0, 0},
			DT:       5000, // 5ms < half the 20ms arrival interval
			Quality:  200,
		})
		assert.Equal(t, 0, e.flowBuffer.Entries())
	})

	t.Run("excessive rate", func(t *testing.T) {
		e := newFlowEstimator(t)
		e.SetVehicleStatus(airborneStatus{})

		e.SetOpticalFlowData(1000000, &FlowMessage{
			FlowData: [2]float32{0.1, 0}, // 5 rad/s > 2.5 limit
			GyroData: [3]float32{0, 0, 0},
			DT:       20000,
			Quality:  200,
		})
		assert.Equal(t, 0, e.flowBuffer.Entries())
	})
}

func TestFlowShortWindowClampedOnGround(t *testing.T) {
	e := newFlowEstimator(t)

	e.SetOpticalFlowData(1000000, &FlowMessage{
		FlowData: [2]float32{0.001, 0},
		GyroData: [3]float32{0, 0, 0},
		DT:       5000,
		Quality:  200,
	})

	// admitted via the ground clause with the window clamped to half the
	// minimum arrival interval
	require.Equal(t, 1, e.flowBuffer.Entries())
	assert.InDelta(t, 0.01, e.flowBuffer.GetNewest().DT, 1e-6)
}

func TestFlowRateLimited(t *testing.T) {
	e := newFlowEstimator(t)

	msg := &FlowMessage{
		FlowData: [2]float32{0.02, -0.01},
		GyroData: [3]float32{0.2, -0.1, 0.05},
		DT:       20000,
		Quality:  200,
	}
	e.SetOpticalFlowData(1000000, msg)
	e.SetOpticalFlowData(1010000, msg) // 10ms later, under the 20ms spacing
	e.SetOpticalFlowData(1030000, msg)

	assert.Equal(t, 2, e.flowBuffer.Entries())
}
