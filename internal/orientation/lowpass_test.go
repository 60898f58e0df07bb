package orientation

import (
	"math"
	"testing"

	"go.viam.com/test"

	"github.com/relabs-tech/compass_computer/internal/geometry"
)

func TestLowPassFilter(t *testing.T) {
	f := NewLowPassFilter(0.15)
	test.That(t, f.Gravity(), test.ShouldResemble, geometry.Vector{})

	first := geometry.NewVector(10, 0, 9.81)
	test.That(t, f.SetAcceleration(first), test.ShouldResemble, first)

	var g geometry.Vector
	for n := 0; n < 10; n++ {
		g = f.SetAcceleration(geometry.NewVector(0, 0, 9.81))
	}
	test.That(t, g.X, test.ShouldAlmostEqual, 10*math.Pow(0.85, 10), 1e-9)
	test.That(t, g.Z, test.ShouldAlmostEqual, 9.81)
	test.That(t, f.Gravity(), test.ShouldResemble, g)

	f.Reset()
	test.That(t, f.Gravity(), test.ShouldResemble, geometry.Vector{})
	test.That(t, f.SetAcceleration(geometry.NewVector(1, 2, 3)), test.ShouldResemble, geometry.NewVector(1, 2, 3))
}

func TestLowPassFilterPassThrough(t *testing.T) {
	f := NewLowPassFilter(1)
	f.SetAcceleration(geometry.NewVector(5, 5, 5))
	test.That(t, f.SetAcceleration(geometry.NewVector(-1, 0, 2)), test.ShouldResemble, geometry.NewVector(-1, 0, 2))
}
