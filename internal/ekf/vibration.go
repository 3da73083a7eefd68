package ekf

// Indices into the vibration metric vector.
const (
	VibeConing  = 0 // EMA of |delta_ang x delta_ang_prev|, coning coupling
	VibeGyroHF  = 1 // EMA of |delta_ang - delta_ang_prev|, high frequency gyro
	VibeAccelHF = 2 // EMA of |delta_vel - delta_vel_prev|, high frequency accel
)

// vibeAlpha is the smoothing constant for all three vibration EMAs.
const vibeAlpha = 0.01

// VibrationMetrics tracks three exponentially smoothed vibration indicators
// over consecutive raw IMU increments. The metrics deliberately run on the
// raw driver stream, before down-sampling, so high frequency content is not
// averaged away.
type VibrationMetrics struct {
	metrics      [3]float32
	deltaAngPrev [3]float32
	deltaVelPrev [3]float32
}

// Update folds one raw IMU sample into the metrics.
func (v *VibrationMetrics) Update(deltaAng, deltaVel [3]float32) {
	v.metrics[VibeConing] = (1-vibeAlpha)*v.metrics[VibeConing] + vibeAlpha*norm3(cross3(deltaAng, v.deltaAngPrev))
	v.metrics[VibeGyroHF] = (1-vibeAlpha)*v.metrics[VibeGyroHF] + vibeAlpha*norm3(sub3(deltaAng, v.deltaAngPrev))
	v.deltaAngPrev = deltaAng

	v.metrics[VibeAccelHF] = (1-vibeAlpha)*v.metrics[VibeAccelHF] + vibeAlpha*norm3(sub3(deltaVel, v.deltaVelPrev))
	v.deltaVelPrev = deltaVel
}

// Values returns the current metric vector.
func (v *VibrationMetrics) Values() [3]float32 {
	return v.metrics
}

// Reset clears the metrics and the previous-sample trackers.
func (v *VibrationMetrics) Reset() {
	*v = VibrationMetrics{}
}
