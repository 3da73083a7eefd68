// Package ekf implements the sensor ingestion and time-alignment front-end
// for the attitude/velocity/position estimator. Raw driver samples arrive
// asynchronously at their native rates; the front-end rate-limits them,
// back-dates their timestamps by the per-sensor propagation delay, and queues
// them in fixed-capacity ring buffers so the filter core can consume every
// observation at a fusion time horizon that lags the newest IMU sample by the
// largest configured sensor delay.
package ekf
