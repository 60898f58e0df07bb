package location

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestHorizontalDistance(t *testing.T) {
	// one degree of latitude
	test.That(t, HorizontalDistanceKm(0, 0, 1, 0), test.ShouldAlmostEqual, EarthRadiusKm*math.Pi/180, 1e-9)
	// longitude shrinks with cos(latitude)
	test.That(t, HorizontalDistanceKm(60, 10, 60, 11), test.ShouldAlmostEqual, 0.5*EarthRadiusKm*math.Pi/180, 1e-9)
	test.That(t, HorizontalDistanceKm(52, 13, 52, 13), test.ShouldEqual, 0.0)

	a := Location{Latitude: 52.64511, Longitude: 13.49181}
	b := Location{Latitude: 52.64611, Longitude: 13.49181}
	test.That(t, a.HorizontalDistanceKm(b), test.ShouldAlmostEqual, b.HorizontalDistanceKm(a), 1e-6)
	test.That(t, a.HorizontalDistanceKm(b), test.ShouldAlmostEqual, 0.1113, 1e-3)
}

func TestVerticalDistance(t *testing.T) {
	test.That(t, VerticalDistanceKm(0.09, 0.1), test.ShouldAlmostEqual, 0.01, 1e-12)
	test.That(t, VerticalDistanceKm(0.1, 0.09), test.ShouldAlmostEqual, 0.01, 1e-12)
	test.That(t, FromMeters(1, 2, 90).Altitude, test.ShouldAlmostEqual, 0.09)
}

func TestIsNearTo(t *testing.T) {
	home := DefaultHome
	// about 5.6 m north
	near := Location{Latitude: home.Latitude + 0.00005, Longitude: home.Longitude, Altitude: home.Altitude}
	test.That(t, home.IsNearTo(near), test.ShouldBeTrue)
	test.That(t, home.IsSomewhereElse(near), test.ShouldBeFalse)

	// about 11 m north
	far := Location{Latitude: home.Latitude + 0.0001, Longitude: home.Longitude, Altitude: home.Altitude}
	test.That(t, home.IsNearTo(far), test.ShouldBeFalse)
	test.That(t, home.IsSomewhereElse(far), test.ShouldBeTrue)

	// 20 m higher
	up := Location{Latitude: home.Latitude, Longitude: home.Longitude, Altitude: home.Altitude + 0.02}
	test.That(t, home.IsNearTo(up), test.ShouldBeFalse)
	test.That(t, home.IsSomewhereElse(up), test.ShouldBeTrue)
}

func TestIsNearToWithoutAltitude(t *testing.T) {
	home := DefaultHome
	// about 0.9 m away with an unknown height
	noHeight := Location{Latitude: home.Latitude + 0.000008, Longitude: home.Longitude, NoAltitude: true}
	test.That(t, home.IsNearTo(noHeight), test.ShouldBeTrue)
	test.That(t, noHeight.IsNearTo(home), test.ShouldBeTrue)
	test.That(t, home.IsSomewhereElse(noHeight), test.ShouldBeFalse)

	// the ground distance still counts
	farNoHeight := Location{Latitude: home.Latitude + 0.0001, Longitude: home.Longitude, NoAltitude: true}
	test.That(t, home.IsNearTo(farNoHeight), test.ShouldBeFalse)
	test.That(t, home.IsSomewhereElse(farNoHeight), test.ShouldBeTrue)
}

func TestFilterFirstFixWithoutAltitude(t *testing.T) {
	f := NewFilter(1)
	first := Location{Latitude: DefaultHome.Latitude, Longitude: DefaultHome.Longitude, NoAltitude: true}
	f.OnLocationChanged(first)
	f.OnLocationChanged(FromMeters(DefaultHome.Latitude+0.000008, DefaultHome.Longitude, 92.5))
	f.OnLocationChanged(FromMeters(DefaultHome.Latitude+0.000008, DefaultHome.Longitude, 92.5))
	test.That(t, f.IsStable(), test.ShouldBeTrue)
	test.That(t, f.Current().NoAltitude, test.ShouldBeFalse)
}

func TestFilter(t *testing.T) {
	f := NewFilter(DefaultStableAfter)
	test.That(t, f.IsActive(), test.ShouldBeFalse)
	test.That(t, f.IsStable(), test.ShouldBeFalse)
	test.That(t, f.Current(), test.ShouldResemble, Location{})

	// the first fix is far from the zero location
	f.OnLocationChanged(DefaultHome)
	test.That(t, f.IsActive(), test.ShouldBeTrue)
	test.That(t, f.Current(), test.ShouldResemble, DefaultHome)

	for n := 1; n <= 3; n++ {
		f.OnLocationChanged(DefaultHome)
		test.That(t, f.IsStable(), test.ShouldBeFalse)
	}
	f.OnLocationChanged(DefaultHome)
	test.That(t, f.IsStable(), test.ShouldBeTrue)
	test.That(t, f.Updates(), test.ShouldEqual, uint64(5))

	moved := Location{Latitude: DefaultHome.Latitude + 0.001, Longitude: DefaultHome.Longitude}
	f.OnLocationChanged(moved)
	test.That(t, f.IsStable(), test.ShouldBeFalse)
	test.That(t, f.Current(), test.ShouldResemble, moved)
}

func TestFilterStableAfterZero(t *testing.T) {
	f := NewFilter(0)
	f.OnLocationChanged(DefaultHome)
	test.That(t, f.IsStable(), test.ShouldBeFalse)
	f.OnLocationChanged(DefaultHome)
	test.That(t, f.IsStable(), test.ShouldBeTrue)
}
