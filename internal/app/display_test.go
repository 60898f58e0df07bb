package app

import (
	"encoding/json"
	"testing"

	"go.viam.com/test"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/compass_computer/internal/geometry"
	"github.com/relabs-tech/compass_computer/internal/gps"
	"github.com/relabs-tech/compass_computer/internal/orientation"
)

func lit(img *image1bit.VerticalLSB, x, y int) bool {
	return img.At(x, y) == image1bit.On
}

func litCount(img *image1bit.VerticalLSB, x0, x1 int) int {
	n := 0
	for y := 0; y < displayHeight; y++ {
		for x := x0; x < x1; x++ {
			if lit(img, x, y) {
				n++
			}
		}
	}
	return n
}

func TestRenderWaiting(t *testing.T) {
	img := RenderHeading(nil, nil)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, displayWidth)
	test.That(t, img.Bounds().Dy(), test.ShouldEqual, displayHeight)
	test.That(t, litCount(img, 0, displayWidth), test.ShouldBeGreaterThan, 0)
	// no rose without a heading
	test.That(t, lit(img, roseCenterX, roseCenterY-roseRadius+1), test.ShouldBeFalse)
}

func TestRenderNeedle(t *testing.T) {
	cases := []struct {
		name    string
		pointer float64
		on, off [2]int
	}{
		{"up", 0, [2]int{roseCenterX, roseCenterY - 16}, [2]int{roseCenterX - 16, roseCenterY}},
		{"right", 90, [2]int{roseCenterX + 16, roseCenterY}, [2]int{roseCenterX, roseCenterY - 16}},
		{"left after unwrap", -450, [2]int{roseCenterX - 16, roseCenterY}, [2]int{roseCenterX + 16, roseCenterY}},
		{"down", 180, [2]int{roseCenterX, roseCenterY + 16}, [2]int{roseCenterX, roseCenterY - 16}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			img := RenderHeading(&orientation.Heading{NorthPointer: tc.pointer}, nil)
			test.That(t, lit(img, tc.on[0], tc.on[1]), test.ShouldBeTrue)
			test.That(t, lit(img, tc.off[0], tc.off[1]), test.ShouldBeFalse)
			test.That(t, lit(img, roseCenterX, roseCenterY), test.ShouldBeTrue)
		})
	}
}

func TestRenderRose(t *testing.T) {
	img := RenderHeading(&orientation.Heading{}, nil)
	test.That(t, lit(img, roseCenterX+roseRadius-1, roseCenterY), test.ShouldBeTrue)
	test.That(t, lit(img, roseCenterX-roseRadius, roseCenterY), test.ShouldBeTrue)
	test.That(t, lit(img, roseCenterX+roseRadius-5, roseCenterY), test.ShouldBeFalse)
	// text on the right half
	test.That(t, litCount(img, 64, displayWidth), test.ShouldBeGreaterThan, 0)
}

func TestDisplayData(t *testing.T) {
	d := &DisplayData{}
	test.That(t, d.OnHeading([]byte("nope")), test.ShouldNotBeNil)
	test.That(t, d.OnLocation([]byte("nope")), test.ShouldNotBeNil)
	waiting := d.Render()

	payload, err := json.Marshal(orientation.Heading{Orientation: geometry.Orientation{Azimuth: 90}, NorthPointer: -90})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.OnHeading(payload), test.ShouldBeNil)
	payload, err = json.Marshal(gps.Fix{Validity: gps.ValidityActive, Stable: true})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.OnLocation(payload), test.ShouldBeNil)

	img := d.Render()
	test.That(t, img.Pix, test.ShouldNotResemble, waiting.Pix)
	test.That(t, lit(img, roseCenterX-16, roseCenterY), test.ShouldBeTrue)
}

func TestFormat(t *testing.T) {
	line := FormatHeading(orientation.Heading{
		Orientation:  geometry.Orientation{Azimuth: 12.5, Pitch: -3, Roll: 4},
		NorthPointer: -12.5,
		Mode:         orientation.ModeFused,
	})
	test.That(t, line, test.ShouldStartWith, "[HEAD]")
	test.That(t, line, test.ShouldContainSubstring, "AZ= 12.50")
	test.That(t, line, test.ShouldContainSubstring, "fused")

	line = FormatFix(gps.Fix{Validity: gps.ValidityVoid, Satellites: 4})
	test.That(t, line, test.ShouldStartWith, "[GPS ]")
	test.That(t, line, test.ShouldContainSubstring, "sats=4")
	test.That(t, line, test.ShouldContainSubstring, "validity=V")
}
