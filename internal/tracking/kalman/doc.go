// Package kalman implements the constant-velocity Kalman filter that carries
// the single radar track.
//
// State is [x, y, z, vx, vy, vz] in the sensor's Cartesian frame. The filter
// has no velocity estimate until it has seen two samples, so its lifecycle
// is an explicit three-stage machine:
//
//	StageEmpty --Initialize--> StageOneSample --Initialize--> StageReady
//
// Once ready, each cycle runs Predict, optionally Gate, then Update (or
// Coast when the update is skipped). A Filter is owned by a single tracker
// and is not safe for concurrent use.
//
// Matrix work uses gonum/mat. The innovation covariance is factorized with
// a Cholesky decomposition; a failed or ill-conditioned factorization is
// reported as ErrSingularInnovation and the cycle degrades to a coast.
package kalman
