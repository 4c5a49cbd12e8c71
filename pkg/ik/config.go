package ik

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Config holds the solver parameters.
type Config struct {
	// JacobianStep is the joint perturbation used for finite differences.
	JacobianStep float64 `yaml:"jacobian_step"`
	// AllowablePositionError is the end-effector distance tolerance.
	AllowablePositionError float64 `yaml:"allowable_position_error"`
	// AllowableAngleError is the end-effector rotation tolerance in radians.
	AllowableAngleError float64 `yaml:"allowable_angle_error"`
	// MaxIterations bounds the number of joint updates per solve.
	MaxIterations int `yaml:"max_iterations"`
	// Damping is λ in the damped least-squares step. Zero gives the plain
	// pseudo-inverse.
	Damping float64 `yaml:"damping"`
	// MaxStep caps the largest single-joint change per iteration.
	MaxStep float64 `yaml:"max_step"`
}

// DefaultConfig returns the parameters used when none are given.
func DefaultConfig() Config {
	return Config{
		JacobianStep:           0.001,
		AllowablePositionError: 0.001,
		AllowableAngleError:    0.001,
		MaxIterations:          100,
		Damping:                1e-4,
		MaxStep:                0.5,
	}
}

// ErrInvalidConfig is returned by Validate and NewJacobianSolver.
var ErrInvalidConfig = errors.New("ik: invalid config")

// Validate checks that every parameter is usable.
func (c Config) Validate() error {
	switch {
	case !(c.JacobianStep > 0):
		return fmt.Errorf("%w: jacobian step %g must be positive", ErrInvalidConfig, c.JacobianStep)
	case !(c.AllowablePositionError > 0):
		return fmt.Errorf("%w: allowable position error %g must be positive", ErrInvalidConfig, c.AllowablePositionError)
	case !(c.AllowableAngleError > 0):
		return fmt.Errorf("%w: allowable angle error %g must be positive", ErrInvalidConfig, c.AllowableAngleError)
	case c.MaxIterations <= 0:
		return fmt.Errorf("%w: max iterations %d must be positive", ErrInvalidConfig, c.MaxIterations)
	case !(c.Damping >= 0):
		return fmt.Errorf("%w: damping %g must not be negative", ErrInvalidConfig, c.Damping)
	case !(c.MaxStep > 0):
		return fmt.Errorf("%w: max step %g must be positive", ErrInvalidConfig, c.MaxStep)
	}
	return nil
}

// Option configures a JacobianSolver.
type Option func(*JacobianSolver)

// WithLogger sets the logger used for per-iteration debug output.
func WithLogger(l *zap.Logger) Option {
	return func(s *JacobianSolver) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics records every solve in m.
func WithMetrics(m *Metrics) Option {
	return func(s *JacobianSolver) {
		s.metrics = m
	}
}
