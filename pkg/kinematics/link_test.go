package kinematics

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/linkage/pkg/spatial"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestNewLinkErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  LinkConfig
	}{
		{"empty name", LinkConfig{Joint: JointConfig{Type: Fixed}}},
		{"bad joint axis", LinkConfig{Name: "a", Joint: JointConfig{Type: Rotational, Axis: r3.Vec{X: 3}}}},
		{"flat box", LinkConfig{Name: "a", Visual: &Visual{Shape: ShapeBox, Size: r3.Vec{X: 1, Y: 1}}}},
		{"no shape", LinkConfig{Name: "a", Visual: &Visual{Radius: 1}}},
		{"NaN rotation", LinkConfig{Name: "a", Rotation: r3.Rotation{Real: math.NaN()}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewLink(tt.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	_, err := NewLink(LinkConfig{Name: "a", Joint: JointConfig{Type: Linear}})
	if !errors.Is(err, ErrInvalidAxis) {
		t.Errorf("error = %v, want wrapped ErrInvalidAxis", err)
	}
}

func TestLinkCalcTransform(t *testing.T) {
	l := mustLink(t, LinkConfig{
		Name:        "elbow",
		Translation: r3.Vec{X: 1},
		Rotation:    r3.NewRotation(math.Pi/2, r3.Vec{Z: 1}),
		Joint:       JointConfig{Name: "elbow_yaw", Type: Rotational, Axis: r3.Vec{Z: 1}},
	})
	if !l.HasJointAngle() {
		t.Fatal("rotational link should have a joint angle")
	}
	if err := l.SetJointAngle(math.Pi / 2); err != nil {
		t.Fatal(err)
	}
	// offset rotates +90°, joint another +90°: x ends at -x, then shifted by +1 in x.
	got := l.CalcTransform().Apply(r3.Vec{X: 1})
	if !vecNear(got, r3.Vec{}, 1e-12) {
		t.Errorf("CalcTransform maps x to %v, want origin", got)
	}
	want := l.Offset().Mul(l.Joint().LocalTransform())
	if !l.CalcTransform().ApproxEqual(want, 1e-12) {
		t.Errorf("CalcTransform != offset ∘ joint")
	}
}

func TestLinkDefaultRotationIsIdentity(t *testing.T) {
	l := mustLink(t, LinkConfig{Name: "base", Translation: r3.Vec{Z: 2}})
	if l.HasJointAngle() {
		t.Error("fixed link reports a joint angle")
	}
	if _, ok := l.JointAngle(); ok {
		t.Error("JointAngle ok for a fixed link")
	}
	if !l.CalcTransform().ApproxEqual(spatial.NewTranslation(r3.Vec{Z: 2}), 1e-15) {
		t.Errorf("CalcTransform = %v", l.CalcTransform())
	}
}

func TestLinkWorldTransformFreshness(t *testing.T) {
	l := mustLink(t, revoluteY("a", "ja", r3.Vec{}))
	if _, ok := l.WorldTransform(); ok {
		t.Fatal("cache reported valid before any pass")
	}
	l.setWorld(spatial.NewTranslation(r3.Vec{X: 1}))
	if _, ok := l.WorldTransform(); !ok {
		t.Fatal("cache invalid right after write")
	}
	if err := l.SetJointAngle(0.3); err != nil {
		t.Fatal(err)
	}
	if _, ok := l.WorldTransform(); ok {
		t.Error("cache still valid after the joint moved")
	}
	// A rejected value leaves the cache valid.
	l.setWorld(spatial.Identity())
	l.joint.limits = &Range{Min: -1, Max: 1}
	_ = l.SetJointAngle(5)
	if _, ok := l.WorldTransform(); !ok {
		t.Error("rejected SetJointAngle invalidated the cache")
	}
}
