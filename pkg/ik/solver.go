// Package ik solves inverse kinematics numerically. The solver works through
// the small Chain contract, so it does not care whether the chain is a whole
// mechanism or a path through a larger tree.
package ik

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/linkage/pkg/kinematics"
	"github.com/chazu/linkage/pkg/spatial"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrNotConverged is returned when MaxIterations updates did not bring
	// the end effector within tolerance. The chain keeps its last angles.
	ErrNotConverged = errors.New("ik: not converged")
	// ErrSolver is returned when an iteration's linear solve is unusable.
	ErrSolver = errors.New("ik: solver error")
)

// Chain is what the solver needs from a kinematic chain.
type Chain interface {
	JointAngles() []float64
	SetJointAngles(angles []float64) error
	JointLimits() []*kinematics.Range
	CalcEndTransform() spatial.Isometry
}

// Result describes a finished solve.
type Result struct {
	// Iterations is the number of joint updates applied.
	Iterations int
	// PositionError and AngleError are the residuals at the last check.
	PositionError float64
	AngleError    float64
}

// JacobianSolver drives a chain toward a target pose with damped
// least-squares steps on a finite-difference Jacobian.
type JacobianSolver struct {
	cfg     Config
	log     *zap.Logger
	metrics *Metrics
}

// NewJacobianSolver validates cfg and returns a solver.
func NewJacobianSolver(cfg Config, opts ...Option) (*JacobianSolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &JacobianSolver{cfg: cfg, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the solver parameters.
func (s *JacobianSolver) Config() Config { return s.cfg }

// Solve moves chain so that its end transform matches target. The chain's
// current angles are the initial guess.
func (s *JacobianSolver) Solve(chain Chain, target spatial.Isometry) error {
	_, err := s.SolveWithResult(chain, target)
	return err
}

// SolveWithResult is Solve, also reporting iterations and final residuals.
func (s *JacobianSolver) SolveWithResult(chain Chain, target spatial.Isometry) (Result, error) {
	res, err := s.solve(chain, target)
	switch {
	case err == nil:
		s.metrics.observe(resultConverged, res.Iterations)
		s.log.Debug("ik converged",
			zap.Int("iterations", res.Iterations),
			zap.Float64("position_error", res.PositionError),
			zap.Float64("angle_error", res.AngleError))
	case errors.Is(err, ErrNotConverged):
		s.metrics.observe(resultNotConverged, res.Iterations)
		s.log.Warn("ik did not converge",
			zap.Int("iterations", res.Iterations),
			zap.Float64("position_error", res.PositionError),
			zap.Float64("angle_error", res.AngleError))
	case errors.Is(err, ErrSolver):
		s.metrics.observe(resultSolverError, res.Iterations)
		s.log.Warn("ik solver failure", zap.Int("iterations", res.Iterations), zap.Error(err))
	default:
		s.metrics.observe(resultChainError, res.Iterations)
		s.log.Warn("ik chain error", zap.Int("iterations", res.Iterations), zap.Error(err))
	}
	return res, err
}

func (s *JacobianSolver) solve(chain Chain, target spatial.Isometry) (Result, error) {
	var res Result
	angles := chain.JointAngles()
	limits := chain.JointLimits()
	if len(limits) != len(angles) {
		return res, fmt.Errorf("%w: %d limits for %d joints", kinematics.ErrSizeMismatch, len(limits), len(angles))
	}

	for {
		d := poseError(chain.CalcEndTransform(), target)
		res.PositionError, res.AngleError = splitNorms(d)
		s.log.Debug("ik iteration",
			zap.Int("iteration", res.Iterations),
			zap.Float64("position_error", res.PositionError),
			zap.Float64("angle_error", res.AngleError))
		if res.PositionError <= s.cfg.AllowablePositionError && res.AngleError <= s.cfg.AllowableAngleError {
			return res, nil
		}
		if len(angles) == 0 {
			return res, fmt.Errorf("%w: chain has no movable joints", ErrSolver)
		}
		if res.Iterations == s.cfg.MaxIterations {
			return res, fmt.Errorf("%w after %d iterations (position %g, angle %g)",
				ErrNotConverged, res.Iterations, res.PositionError, res.AngleError)
		}

		jac, err := s.jacobian(chain, angles, limits, target, d)
		if err != nil {
			return res, err
		}
		delta, err := s.dampedStep(jac, d)
		if err != nil {
			return res, err
		}
		for i := range angles {
			angles[i] += delta[i]
			if limits[i] != nil {
				angles[i] = limits[i].Clamp(angles[i])
			}
		}
		if err := chain.SetJointAngles(angles); err != nil {
			return res, err
		}
		res.Iterations++
	}
}

// jacobian returns the 6×n matrix ∂d/∂θ by finite differences around angles.
// The chain is restored to angles before returning.
func (s *JacobianSolver) jacobian(chain Chain, angles []float64, limits []*kinematics.Range, target spatial.Isometry, d [6]float64) (*mat.Dense, error) {
	n := len(angles)
	jac := mat.NewDense(6, n, nil)
	probe := make([]float64, n)
	copy(probe, angles)
	for j := range n {
		h := s.cfg.JacobianStep
		p := angles[j] + h
		if lim := limits[j]; lim != nil {
			if !lim.Contains(p) {
				p = angles[j] - h
			}
			p = lim.Clamp(p)
			h = p - angles[j]
		}
		// A joint locked by its limits contributes a zero column.
		if h == 0 {
			continue
		}
		probe[j] = p
		if err := chain.SetJointAngles(probe); err != nil {
			return nil, err
		}
		dp := poseError(chain.CalcEndTransform(), target)
		for r := range 6 {
			jac.Set(r, j, (dp[r]-d[r])/h)
		}
		probe[j] = angles[j]
	}
	if err := chain.SetJointAngles(angles); err != nil {
		return nil, err
	}
	return jac, nil
}

// dampedStep solves jac·Δ ≈ −d in the damped least-squares sense,
// Δ = Σ σᵢ/(σᵢ²+λ²) vᵢ uᵢᵀ(−d), then scales Δ so no entry exceeds MaxStep.
func (s *JacobianSolver) dampedStep(jac *mat.Dense, d [6]float64) ([]float64, error) {
	var svd mat.SVD
	if !svd.Factorize(jac, mat.SVDThin) {
		return nil, fmt.Errorf("%w: SVD did not converge", ErrSolver)
	}
	sigma := svd.Values(nil)
	if len(sigma) == 0 || sigma[0] == 0 {
		return nil, fmt.Errorf("%w: jacobian is zero", ErrSolver)
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	neg := mat.NewVecDense(6, nil)
	for i, x := range d {
		neg.SetVec(i, -x)
	}
	_, n := jac.Dims()
	delta := make([]float64, n)
	lambda2 := s.cfg.Damping * s.cfg.Damping
	cutoff := sigma[0] * 1e-12
	for k, sk := range sigma {
		if sk <= cutoff {
			continue
		}
		coef := sk / (sk*sk + lambda2) * mat.Dot(u.ColView(k), neg)
		for i := range delta {
			delta[i] += coef * v.At(i, k)
		}
	}

	var largest float64
	for _, x := range delta {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("%w: non-finite update", ErrSolver)
		}
		largest = math.Max(largest, math.Abs(x))
	}
	if largest > s.cfg.MaxStep {
		scale := s.cfg.MaxStep / largest
		for i := range delta {
			delta[i] *= scale
		}
	}
	return delta, nil
}

// poseError is [t_target − t; rotvec(R_target·R⁻¹)].
func poseError(current, target spatial.Isometry) [6]float64 {
	dt := r3.Sub(target.Translation, current.Translation)
	rt := spatial.Isometry{Rotation: target.Rotation}
	rc := spatial.Isometry{Rotation: current.Rotation}
	dr := rt.Mul(rc.Inverse()).RotationVector()
	return [6]float64{dt.X, dt.Y, dt.Z, dr.X, dr.Y, dr.Z}
}

func splitNorms(d [6]float64) (pos, ang float64) {
	return math.Hypot(math.Hypot(d[0], d[1]), d[2]), math.Hypot(math.Hypot(d[3], d[4]), d[5])
}
