package orientation

import (
	"sync"
	"testing"

	"go.viam.com/test"

	"github.com/relabs-tech/compass_computer/internal/geometry"
)

func TestAngleTrackerShortestArc(t *testing.T) {
	a := NewAngleTracker(170)
	test.That(t, a.RotateTo(-170), test.ShouldAlmostEqual, 190.0)
	test.That(t, a.Position(), test.ShouldAlmostEqual, 190.0)

	// keeps unwrapping past a full turn
	test.That(t, a.RotateTo(-90), test.ShouldAlmostEqual, 270.0)
	test.That(t, a.RotateTo(10), test.ShouldAlmostEqual, 370.0)

	test.That(t, a.RotateTo(5), test.ShouldAlmostEqual, 365.0)
}

func TestAngleTrackerCongruent(t *testing.T) {
	a := NewAngleTracker(0)
	for _, target := range []float64{45, 179, -179, 90, -1, 359, 720, -45.5} {
		p := a.RotateTo(target)
		test.That(t, geometry.Difference(p, target), test.ShouldAlmostEqual, 0.0, 1e-9)
	}
}

func TestAngleTrackerReset(t *testing.T) {
	a := NewAngleTracker(0)
	a.RotateTo(120)
	a.Reset(-30)
	test.That(t, a.Position(), test.ShouldEqual, -30.0)
}

func TestAngleTrackerConcurrent(t *testing.T) {
	a := NewAngleTracker(0)
	var wg sync.WaitGroup
	for n := 0; n < 8; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				a.RotateTo(10)
				_ = a.Position()
			}
		}()
	}
	wg.Wait()
	test.That(t, a.Position(), test.ShouldAlmostEqual, 10.0)
}
