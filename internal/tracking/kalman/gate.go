package kalman

import (
	"fmt"

	"github.com/banshee-data/radartrack/internal/radar"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Mahalanobis returns the squared Mahalanobis distance of z from the
// current prediction, Innᵗ·S⁻¹·Inn.
func (f *Filter) Mahalanobis(z radar.Point) (float64, error) {
	if f.stage != StageReady {
		return 0, ErrNotReady
	}
	inn, s := f.Innovation(z)

	var chol mat.Cholesky
	if ok := chol.Factorize(s); !ok {
		return 0, ErrSingularInnovation
	}
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, inn); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSingularInnovation, err)
	}
	return mat.Dot(inn, &x), nil
}

// Gate reports whether z falls inside the chi-square gate of the current
// prediction. d2 is the squared Mahalanobis distance. With gating disabled
// every measurement passes, but d2 is still computed.
func (f *Filter) Gate(z radar.Point) (d2 float64, ok bool, err error) {
	d2, err = f.Mahalanobis(z)
	if err != nil {
		return 0, false, err
	}
	if !f.cfg.GateEnabled {
		return d2, true, nil
	}
	return d2, d2 <= f.cfg.GateThreshold, nil
}

// GateThresholdFor returns the chi-square quantile for the given confidence
// and degrees of freedom, e.g. GateThresholdFor(0.99, 2) ≈ 9.21.
func GateThresholdFor(confidence float64, dof int) float64 {
	return distuv.ChiSquared{K: float64(dof)}.Quantile(confidence)
}
