package kalman

import (
	"errors"
	"fmt"

	"github.com/banshee-data/radartrack/internal/radar"
	"gonum.org/v1/gonum/mat"
)

// Dimensions of the state and measurement spaces.
const (
	StateDim = 6
	MeasDim  = 3
)

// Defaults for Config.
const (
	DefaultPlantNoise        = 20.0
	DefaultMeasurementNoise  = 1.0
	DefaultInitialCovariance = 1.0
	// DefaultGateThreshold is the chi-square gate on the squared Mahalanobis
	// distance of the 3-D position innovation.
	DefaultGateThreshold = 9.21
)

var (
	// ErrNotReady is returned by Predict and Update before two samples have
	// bootstrapped the velocity estimate.
	ErrNotReady = errors.New("kalman: filter not ready, need two samples")
	// ErrSingularInnovation is returned when the innovation covariance
	// cannot be inverted. The cycle's update is skipped.
	ErrSingularInnovation = errors.New("kalman: innovation covariance is singular")
	// ErrNonPositiveInterval is returned when the second bootstrap sample
	// does not advance time past the first.
	ErrNonPositiveInterval = errors.New("kalman: bootstrap samples do not advance in time")
)

// Stage is the bootstrap stage of the filter.
type Stage int

const (
	StageEmpty     Stage = iota // No samples seen
	StageOneSample              // First sample stored, no velocity yet
	StageReady                  // State seeded, predict/update allowed
)

func (s Stage) String() string {
	switch s {
	case StageEmpty:
		return "empty"
	case StageOneSample:
		return "one-sample"
	case StageReady:
		return "ready"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Config holds the filter's noise model and gate.
type Config struct {
	PlantNoise        float64 // Process noise intensity scaling Q
	MeasurementNoise  float64 // Per-axis measurement variance, R = σ²·I
	InitialCovariance float64 // Per-axis variance of P at bootstrap, P₀ = c·I
	GateThreshold     float64 // Chi-square threshold on squared Mahalanobis distance
	GateEnabled       bool    // Reject updates whose distance exceeds GateThreshold

	// LegacyVelocitySign seeds the bootstrap velocity as
	// (first - second) / dt, which points against the direction of travel.
	// Recorded data from the older tracker was produced this way.
	LegacyVelocitySign bool
}

// DefaultConfig returns the production filter configuration.
func DefaultConfig() Config {
	return Config{
		PlantNoise:        DefaultPlantNoise,
		MeasurementNoise:  DefaultMeasurementNoise,
		InitialCovariance: DefaultInitialCovariance,
		GateThreshold:     DefaultGateThreshold,
		GateEnabled:       true,
	}
}

// Filter is a 6-state constant-velocity Kalman filter.
type Filter struct {
	cfg   Config
	stage Stage

	s  *mat.VecDense // Posterior state
	p  *mat.SymDense // Posterior covariance
	sp *mat.VecDense // Predicted state
	pp *mat.SymDense // Predicted covariance

	h *mat.Dense    // Measurement matrix, selects position
	r *mat.SymDense // Measurement noise covariance

	first, second, last radar.Point // Raw samples

	measTime float64 // Time of the latest sample
	prevTime float64 // Time of the sample before it
	estTime  float64 // Time the posterior refers to
	predTime float64 // Time the prediction refers to
}

// New returns an empty filter.
func New(cfg Config) *Filter {
	h := mat.NewDense(MeasDim, StateDim, nil)
	for i := 0; i < MeasDim; i++ {
		h.Set(i, i, 1)
	}

	r := mat.NewSymDense(MeasDim, nil)
	for i := 0; i < MeasDim; i++ {
		r.SetSym(i, i, cfg.MeasurementNoise)
	}

	return &Filter{
		cfg: cfg,
		s:   mat.NewVecDense(StateDim, nil),
		p:   scaledIdentity(StateDim, 1),
		sp:  mat.NewVecDense(StateDim, nil),
		pp:  scaledIdentity(StateDim, 1),
		h:   h,
		r:   r,
	}
}

// Config returns the filter's configuration.
func (f *Filter) Config() Config { return f.cfg }

// Stage returns the bootstrap stage.
func (f *Filter) Stage() Stage { return f.stage }

// Ready reports whether the filter can predict and update.
func (f *Filter) Ready() bool { return f.stage == StageReady }

// MeasTime returns the timestamp of the most recent sample.
func (f *Filter) MeasTime() float64 { return f.measTime }

// PrevTime returns the timestamp of the sample before the most recent one.
func (f *Filter) PrevTime() float64 { return f.prevTime }

// EstimateTime returns the time the posterior state refers to.
func (f *Filter) EstimateTime() float64 { return f.estTime }

// LastSample returns the most recent raw sample passed to Initialize.
func (f *Filter) LastSample() radar.Point { return f.last }

// Initialize feeds a Cartesian sample to the filter.
//
// The first call stores the sample. The second derives a velocity from the
// two samples, seeds the state at the second sample and moves the filter to
// StageReady. Later calls only record the sample and advance the
// measurement-time bookkeeping.
func (f *Filter) Initialize(p radar.Point, t float64) error {
	f.last = p

	switch f.stage {
	case StageEmpty:
		f.first = p
		f.measTime = t
		f.prevTime = t
		f.stage = StageOneSample
		return nil

	case StageOneSample:
		dt := t - f.measTime
		if dt <= 0 {
			// Restart the bootstrap from this sample.
			f.first = p
			f.measTime = t
			f.prevTime = t
			return fmt.Errorf("dt=%v: %w", dt, ErrNonPositiveInterval)
		}
		f.second = p
		f.prevTime = f.measTime
		f.measTime = t
		f.seed(dt)
		f.stage = StageReady
		return nil

	default:
		f.prevTime = f.measTime
		f.measTime = t
		return nil
	}
}

// seed sets the posterior from the two bootstrap samples.
func (f *Filter) seed(dt float64) {
	a, b := f.second, f.first
	if f.cfg.LegacyVelocitySign {
		a, b = f.first, f.second
	}
	vx := (a.X - b.X) / dt
	vy := (a.Y - b.Y) / dt
	vz := (a.Z - b.Z) / dt

	f.s = mat.NewVecDense(StateDim, []float64{f.second.X, f.second.Y, f.second.Z, vx, vy, vz})
	f.p = scaledIdentity(StateDim, f.cfg.InitialCovariance)
	f.estTime = f.measTime

	f.sp.CloneFromVec(f.s)
	f.pp.CopySym(f.p)
	f.predTime = f.estTime
}

// Predict propagates the posterior to time t. A non-positive interval
// leaves the prediction equal to the posterior.
func (f *Filter) Predict(t float64) error {
	if f.stage != StageReady {
		return ErrNotReady
	}

	dt := t - f.estTime
	if dt <= 0 {
		f.sp.CloneFromVec(f.s)
		f.pp.CopySym(f.p)
		f.predTime = f.estTime
		return nil
	}

	phi := Transition(dt)
	q := ProcessNoise(dt, f.cfg.PlantNoise)

	f.sp.MulVec(phi, f.s)

	var fp, fpf mat.Dense
	fp.Mul(phi, f.p)
	fpf.Mul(&fp, phi.T())
	fpf.Add(&fpf, q)
	symmetrizeInto(f.pp, &fpf)

	f.predTime = t
	return nil
}

// Innovation returns the measurement residual z - H·Sp and its covariance
// H·Pp·Hᵗ + R for the current prediction.
func (f *Filter) Innovation(z radar.Point) (*mat.VecDense, *mat.SymDense) {
	var hs mat.VecDense
	hs.MulVec(f.h, f.sp)

	inn := mat.NewVecDense(MeasDim, z.Slice())
	inn.SubVec(inn, &hs)

	var hp, hph mat.Dense
	hp.Mul(f.h, f.pp)
	hph.Mul(&hp, f.h.T())
	hph.Add(&hph, f.r)

	s := mat.NewSymDense(MeasDim, nil)
	symmetrizeInto(s, &hph)
	return inn, s
}

// Update corrects the prediction with the Cartesian measurement z.
//
// If the innovation covariance cannot be inverted the update is skipped,
// the filter coasts on its prediction and ErrSingularInnovation is
// returned.
func (f *Filter) Update(z radar.Point) error {
	if f.stage != StageReady {
		return ErrNotReady
	}

	inn, s := f.Innovation(z)

	var chol mat.Cholesky
	if ok := chol.Factorize(s); !ok {
		f.Coast()
		return ErrSingularInnovation
	}

	// K = Pp·Hᵗ·S⁻¹. S and Pp are symmetric, so solve S·Kᵗ = H·Pp.
	var hp mat.Dense
	hp.Mul(f.h, f.pp)
	var kt mat.Dense
	if err := chol.SolveTo(&kt, &hp); err != nil {
		f.Coast()
		return fmt.Errorf("%w: %v", ErrSingularInnovation, err)
	}
	k := kt.T()

	var dx mat.VecDense
	dx.MulVec(k, inn)
	f.s.AddVec(f.sp, &dx)

	var kh mat.Dense
	kh.Mul(k, f.h)
	ikh := identity(StateDim)
	ikh.Sub(ikh, &kh)

	var np mat.Dense
	np.Mul(ikh, f.pp)
	symmetrizeInto(f.p, &np)

	f.estTime = f.predTime
	return nil
}

// Coast accepts the current prediction as the posterior.
func (f *Filter) Coast() {
	f.s.CloneFromVec(f.sp)
	f.p.CopySym(f.pp)
	f.estTime = f.predTime
}

// State returns a copy of the posterior state vector.
func (f *Filter) State() []float64 {
	return vecCopy(f.s)
}

// PredictedState returns a copy of the predicted state vector.
func (f *Filter) PredictedState() []float64 {
	return vecCopy(f.sp)
}

// Position returns the posterior position.
func (f *Filter) Position() radar.Point {
	return radar.Point{X: f.s.AtVec(0), Y: f.s.AtVec(1), Z: f.s.AtVec(2)}
}

// Velocity returns the posterior velocity.
func (f *Filter) Velocity() radar.Point {
	return radar.Point{X: f.s.AtVec(3), Y: f.s.AtVec(4), Z: f.s.AtVec(5)}
}

// PredictedPosition returns the position of the current prediction.
func (f *Filter) PredictedPosition() radar.Point {
	return radar.Point{X: f.sp.AtVec(0), Y: f.sp.AtVec(1), Z: f.sp.AtVec(2)}
}

// Covariance returns a copy of the posterior covariance.
func (f *Filter) Covariance() *mat.SymDense {
	c := mat.NewSymDense(StateDim, nil)
	c.CopySym(f.p)
	return c
}

// PredictedCovariance returns a copy of the predicted covariance.
func (f *Filter) PredictedCovariance() *mat.SymDense {
	c := mat.NewSymDense(StateDim, nil)
	c.CopySym(f.pp)
	return c
}

// Transition returns the constant-velocity state transition matrix Φ for
// an interval dt.
func Transition(dt float64) *mat.Dense {
	phi := identity(StateDim)
	for i := 0; i < MeasDim; i++ {
		phi.Set(i, MeasDim+i, dt)
	}
	return phi
}

// ProcessNoise returns the discretised white-acceleration noise Q for an
// interval dt, scaled by the plant noise intensity q.
func ProcessNoise(dt, q float64) *mat.SymDense {
	t2 := dt * dt / 2.0
	t3 := dt * dt * dt / 3.0

	m := mat.NewSymDense(StateDim, nil)
	for i := 0; i < MeasDim; i++ {
		m.SetSym(i, i, q*t3)
		m.SetSym(i, MeasDim+i, q*t2)
		m.SetSym(MeasDim+i, MeasDim+i, q*dt)
	}
	return m
}

func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func scaledIdentity(n int, v float64) *mat.SymDense {
	m := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		m.SetSym(i, i, v)
	}
	return m
}

// symmetrizeInto writes (a + aᵗ)/2 into dst, discarding round-off asymmetry.
func symmetrizeInto(dst *mat.SymDense, a mat.Matrix) {
	n, _ := a.Dims()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			dst.SetSym(i, j, 0.5*(a.At(i, j)+a.At(j, i)))
		}
	}
}

func vecCopy(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
