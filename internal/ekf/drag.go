package ekf

// dragMinSampleRatio is the floor on the drag down-sample ratio; drag fusion
// never runs faster than one observation per five IMU samples.
const dragMinSampleRatio = 5

// DragDownsampler accumulates horizontal delta velocity from down-sampled IMU
// data and emits mean specific force at a ratio derived from the buffer
// lengths. The accumulator is reset on construction and after every emit.
type DragDownsampler struct {
	accelXY [2]float32 // accumulated delta velocity, m/s
	timeUS  uint64     // accumulated sample times for the mean timestamp
	dtSum   float32    // accumulated delta velocity integration time, s
	count   int

	sampleRatio int
}

// SetRatio derives the down-sample ratio from the IMU and observation buffer
// lengths: N = max(5, ceil(imuLen/obsLen)).
func (d *DragDownsampler) SetRatio(imuLen, obsLen int) {
	ratio := dragMinSampleRatio
	if obsLen > 0 {
		if n := (imuLen + obsLen - 1) / obsLen; n > ratio {
			ratio = n
		}
	}
	d.sampleRatio = ratio
}

// Add accumulates one IMU sample. When enough samples have been collected it
// returns the mean drag sample and true, resetting the accumulator.
func (d *DragDownsampler) Add(imu IMUSample) (DragSample, bool) {
	d.accelXY[0] += imu.DeltaVel[0]
	d.accelXY[1] += imu.DeltaVel[1]
	d.timeUS += imu.TimeUS
	d.dtSum += imu.DeltaVelDT
	d.count++

	ratio := d.sampleRatio
	if ratio < dragMinSampleRatio {
		ratio = dragMinSampleRatio
	}
	if d.count < ratio {
		return DragSample{}, false
	}

	// accumulated delta velocity over accumulated time gives mean acceleration
	sample := DragSample{
		TimeUS:  d.timeUS / uint64(d.count),
		AccelXY: [2]float32{d.accelXY[0] / d.dtSum, d.accelXY[1] / d.dtSum},
	}
	d.Reset()
	return sample, true
}

// Reset clears the accumulator without touching the ratio.
func (d *DragDownsampler) Reset() {
	d.accelXY = [2]float32{}
	d.timeUS = 0
	d.dtSum = 0
	d.count = 0
}
