package ekf

// conditionFlow validates an optical flow report and converts it into a
// buffered sample.
//
// A sample is admitted when the integration window, flow magnitude and
// quality gates all pass, or unconditionally while on ground so unfocussed
// optics and operator handling do not starve the filter before takeoff. A
// quality-failed sample admitted on ground is rewritten so the compensated
// LOS rate comes out zero.
//
// When the driver supplies no usable gyro data the nearest older IMU sample
// to the flow mid-point stands in, converted from increment to rate form.
func (e *Estimator) conditionFlow(timeUS uint64, flow *FlowMessage) (FlowSample, bool) {
	// fail the window check when the integration time is under 50% of the
	// minimum arrival interval; too much data is being lost at that point
	deltaTime := 1e-6 * float32(flow.DT)
	deltaTimeMin := 5e-7 * float32(e.minObsIntervalUS)
	deltaTimeGood := deltaTime >= deltaTimeMin
	if !deltaTimeGood {
		// protect the divisions below against a very small delta time
		deltaTime = deltaTimeMin
	}

	flowMagnitudeGood := true
	if deltaTimeGood {
		flowMagnitudeGood = norm2(flow.FlowData)/deltaTime <= e.params.FlowRateMax
	}

	flowQualityGood := flow.Quality >= e.params.FlowQualMin

	if !((deltaTimeGood && flowQualityGood && flowMagnitudeGood) || !e.status.InAir()) {
		return FlowSample{}, false
	}

	var sample FlowSample
	// stamp with the mid point of the integration period
	sample.TimeUS = timeUS - uint64(e.params.FlowDelayMS)*1000 - uint64(flow.DT)/2
	sample.Quality = flow.Quality

	// The filter uses the reverse sign convention to the flow sensor:
	// positive LOS rate is produced by a RH rotation of the image about the
	// sensor axis, hence the negations below.
	noGyro := !isFinite(flow.GyroData[0]) || !isFinite(flow.GyroData[1]) || !isFinite(flow.GyroData[2])

	var matchingIMU IMUSample
	var matchingGyro [3]float32
	if noGyro {
		e.imuBuffer.ReadFirstOlderThan(sample.TimeUS, &matchingIMU)
		for i := range matchingGyro {
			matchingGyro[i] = matchingIMU.DeltaAng[i] / matchingIMU.DeltaAngDT
		}
		sample.GyroXYZ = matchingGyro
	} else {
		sample.GyroXYZ = [3]float32{-flow.GyroData[0], -flow.GyroData[1], -flow.GyroData[2]}
	}

	if flowQualityGood {
		if noGyro {
			sample.FlowRadXY = [2]float32{flow.FlowData[0] / deltaTime, flow.FlowData[1] / deltaTime}
		} else {
			sample.FlowRadXY = [2]float32{-flow.FlowData[0], -flow.FlowData[1]}
		}
	} else {
		// on ground with poor quality: assume zero ground-relative velocity
		if noGyro {
			sample.FlowRadXY = [2]float32{-matchingGyro[0], -matchingGyro[1]}
		} else {
			sample.FlowRadXY = [2]float32{-flow.GyroData[0], -flow.GyroData[1]}
		}
	}

	// compensate for body motion to give a LOS rate
	if noGyro {
		sample.FlowRadXYComp[0] = (sample.FlowRadXY[0] + sample.GyroXYZ[0]) * deltaTime
		sample.FlowRadXYComp[1] = (sample.FlowRadXY[1] + sample.GyroXYZ[1]) * deltaTime

		// store the substituted gyro in increment form like a driver report
		sample.GyroXYZ[0] *= matchingIMU.DeltaAngDT
		sample.GyroXYZ[1] *= matchingIMU.DeltaAngDT
	} else {
		sample.FlowRadXYComp[0] = sample.FlowRadXY[0] - sample.GyroXYZ[0]
		sample.FlowRadXYComp[1] = sample.FlowRadXY[1] - sample.GyroXYZ[1]
	}

	sample.DT = deltaTime
	return sample, true
}
