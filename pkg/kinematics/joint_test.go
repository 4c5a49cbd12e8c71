package kinematics

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestNewJointValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     JointConfig
		wantErr error
	}{
		{"fixed ignores axis", JointConfig{Name: "f", Type: Fixed}, nil},
		{"rotational unit axis", JointConfig{Name: "r", Type: Rotational, Axis: r3.Vec{Z: 1}}, nil},
		{"linear unit axis", JointConfig{Name: "l", Type: Linear, Axis: r3.Vec{X: 0.6, Y: 0.8}}, nil},
		{"zero axis", JointConfig{Name: "r", Type: Rotational}, ErrInvalidAxis},
		{"long axis", JointConfig{Name: "r", Type: Rotational, Axis: r3.Vec{X: 2}}, ErrInvalidAxis},
		{"NaN axis", JointConfig{Name: "r", Type: Linear, Axis: r3.Vec{X: math.NaN()}}, ErrInvalidAxis},
		{"inverted limits", JointConfig{Name: "r", Type: Rotational, Axis: r3.Vec{Y: 1}, Limits: &Range{Min: 1, Max: -1}}, ErrInvalidLimits},
		{"point limits", JointConfig{Name: "r", Type: Rotational, Axis: r3.Vec{Y: 1}, Limits: &Range{Min: 0.5, Max: 0.5}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewJoint(tt.cfg)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewJointUnknownType(t *testing.T) {
	if _, err := NewJoint(JointConfig{Name: "x", Type: JointType(9), Axis: r3.Vec{X: 1}}); err == nil {
		t.Fatal("expected error for unknown joint type")
	}
}

func TestJointInitialValueInsideLimits(t *testing.T) {
	j, err := NewJoint(JointConfig{Name: "r", Type: Rotational, Axis: r3.Vec{Z: 1}, Limits: &Range{Min: 0.2, Max: 1}})
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := j.Value(); v != 0.2 {
		t.Errorf("initial value = %g, want 0.2", v)
	}
}

func TestFixedJointHasNoValue(t *testing.T) {
	j, err := NewJoint(JointConfig{Name: "f", Type: Fixed})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := j.Value(); ok {
		t.Error("fixed joint reported a value")
	}
	err = j.SetValue(1)
	if !errors.Is(err, ErrFixedJoint) {
		t.Fatalf("SetValue error = %v, want ErrFixedJoint", err)
	}
	var je *JointError
	if !errors.As(err, &je) || je.Joint != "f" {
		t.Errorf("error %v is not a *JointError for joint f", err)
	}
	if !j.LocalTransform().ApproxEqual(identityIso(), 0) {
		t.Errorf("fixed LocalTransform = %v", j.LocalTransform())
	}
}

func TestSetValueNeverLeavesLimits(t *testing.T) {
	lim := Range{Min: -0.5, Max: 1.5}
	j, err := NewJoint(JointConfig{Name: "r", Type: Rotational, Axis: r3.Vec{X: 1}, Limits: &lim})
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range []float64{-3, -0.5, -0.50001, 0, 1, 1.5, 1.500001, 7, math.Inf(1), math.NaN()} {
		err := j.SetValue(v)
		got, _ := j.Value()
		if !lim.Contains(got) {
			t.Fatalf("after SetValue(%g) value %g is outside %v", v, got, lim)
		}
		if lim.Contains(v) {
			if err != nil || got != v {
				t.Errorf("SetValue(%g) = %v, value %g", v, err, got)
			}
		} else if !errors.Is(err, ErrOutOfLimit) {
			t.Errorf("SetValue(%g) error = %v, want ErrOutOfLimit", v, err)
		}
	}
}

func TestSetValueRejectsNonFinite(t *testing.T) {
	for _, typ := range []JointType{Rotational, Linear} {
		j, err := NewJoint(JointConfig{Name: "free", Type: typ, Axis: r3.Vec{Z: 1}})
		if err != nil {
			t.Fatal(err)
		}
		if err := j.SetValue(0.25); err != nil {
			t.Fatal(err)
		}
		for _, v := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
			if err := j.SetValue(v); !errors.Is(err, ErrOutOfLimit) {
				t.Errorf("%v SetValue(%g) error = %v, want ErrOutOfLimit", typ, v, err)
			}
			if got, _ := j.Value(); got != 0.25 {
				t.Errorf("%v value changed to %g", typ, got)
			}
		}
		iso := j.LocalTransform()
		if math.IsNaN(iso.Translation.Z) || math.IsNaN(iso.Rotation.Real) {
			t.Errorf("%v local transform is not finite: %v", typ, iso)
		}
	}
}

func TestJointLocalTransform(t *testing.T) {
	rot, _ := NewJoint(JointConfig{Name: "r", Type: Rotational, Axis: r3.Vec{Z: 1}})
	if err := rot.SetValue(math.Pi / 2); err != nil {
		t.Fatal(err)
	}
	if got := rot.LocalTransform().Apply(r3.Vec{X: 1}); !vecNear(got, r3.Vec{Y: 1}, 1e-12) {
		t.Errorf("rotational: x maps to %v, want +y", got)
	}

	lin, _ := NewJoint(JointConfig{Name: "l", Type: Linear, Axis: r3.Vec{Y: 1}})
	if err := lin.SetValue(0.25); err != nil {
		t.Fatal(err)
	}
	if got := lin.LocalTransform().Apply(r3.Vec{X: 1}); !vecNear(got, r3.Vec{X: 1, Y: 0.25}, 1e-12) {
		t.Errorf("linear: x maps to %v", got)
	}
}

func TestRangeClamp(t *testing.T) {
	r := Range{Min: -1, Max: 2}
	for in, want := range map[float64]float64{-5: -1, 0: 0, 2: 2, 3: 2} {
		if got := r.Clamp(in); got != want {
			t.Errorf("Clamp(%g) = %g, want %g", in, got, want)
		}
	}
}
