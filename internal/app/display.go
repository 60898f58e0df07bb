package app

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/compass_computer/internal/config"
	"github.com/relabs-tech/compass_computer/internal/gps"
	"github.com/relabs-tech/compass_computer/internal/logging"
	"github.com/relabs-tech/compass_computer/internal/orientation"
)

const (
	displayWidth  = 128
	displayHeight = 64

	// compass rose on the left half
	roseCenterX = 32
	roseCenterY = 32
	roseRadius  = 30
	needleTip   = 24
	needleTail  = 10
	needleHalf  = 4
)

// DisplayData holds the latest data for display
type DisplayData struct {
	mu sync.RWMutex

	heading     orientation.Heading
	haveHeading bool

	fix     gps.Fix
	haveFix bool
}

// OnHeading stores a heading payload.
func (d *DisplayData) OnHeading(payload []byte) error {
	var h orientation.Heading
	if err := json.Unmarshal(payload, &h); err != nil {
		return fmt.Errorf("heading unmarshal: %w", err)
	}
	d.mu.Lock()
	d.heading, d.haveHeading = h, true
	d.mu.Unlock()
	return nil
}

// OnLocation stores a fix payload.
func (d *DisplayData) OnLocation(payload []byte) error {
	var f gps.Fix
	if err := json.Unmarshal(payload, &f); err != nil {
		return fmt.Errorf("location unmarshal: %w", err)
	}
	d.mu.Lock()
	d.fix, d.haveFix = f, true
	d.mu.Unlock()
	return nil
}

// Render draws the current state.
func (d *DisplayData) Render() *image1bit.VerticalLSB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var h *orientation.Heading
	if d.haveHeading {
		h = &d.heading
	}
	var f *gps.Fix
	if d.haveFix {
		f = &d.fix
	}
	return RenderHeading(h, f)
}

// RenderHeading draws the compass rose with the north needle on the left
// and the numbers on the right. Either argument may be nil.
func RenderHeading(h *orientation.Heading, fix *gps.Fix) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	if h == nil {
		drawer.Dot = fixed.P(25, 26)
		drawer.DrawString("Compass")
		drawer.Dot = fixed.P(25, 39)
		drawer.DrawString("Waiting...")
		return img
	}

	z := vector.NewRasterizer(displayWidth, displayHeight)
	ring(z, roseCenterX, roseCenterY, roseRadius, roseRadius-2)
	needle(z, roseCenterX, roseCenterY, h.NorthPointer)
	z.Draw(img, img.Bounds(), &image.Uniform{image1bit.On}, image.Point{})

	lines := []string{
		fmt.Sprintf("AZ %5.1f", h.Orientation.Azimuth),
		fmt.Sprintf("P %+6.1f", h.Orientation.Pitch),
		fmt.Sprintf("R %+6.1f", h.Orientation.Roll),
	}
	switch {
	case fix == nil || !fix.Valid():
		lines = append(lines, "no GPS")
	case fix.Stable:
		lines = append(lines, "GPS ok")
	default:
		lines = append(lines, "GPS ...")
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(68, 13*(i+1))
		drawer.DrawString(line)
	}
	return img
}

// ring adds an annulus as two opposite polygons; the nonzero winding rule
// leaves the inside empty.
func ring(z *vector.Rasterizer, cx, cy, outer, inner float64) {
	const segments = 48
	polygon := func(r float64, dir float64) {
		for i := 0; i <= segments; i++ {
			a := dir * 2 * math.Pi * float64(i) / segments
			x, y := float32(cx+r*math.Cos(a)), float32(cy+r*math.Sin(a))
			if i == 0 {
				z.MoveTo(x, y)
			} else {
				z.LineTo(x, y)
			}
		}
		z.ClosePath()
	}
	polygon(outer, 1)
	polygon(inner, -1)
}

// needle adds a kite pointing angle degrees clockwise from the top of the
// screen.
func needle(z *vector.Rasterizer, cx, cy, angle float64) {
	a := angle * math.Pi / 180
	// screen y grows downwards
	dx, dy := math.Sin(a), -math.Cos(a)
	px, py := -dy, dx
	point := func(along, across float64) (float32, float32) {
		return float32(cx + along*dx + across*px), float32(cy + along*dy + across*py)
	}
	z.MoveTo(point(needleTip, 0))
	z.LineTo(point(0, needleHalf))
	z.LineTo(point(-needleTail, 0))
	z.LineTo(point(0, -needleHalf))
	z.ClosePath()
}

// RunDisplay shows the latest heading on an SSD1306 OLED until ctx is done.
func RunDisplay(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open(cfg.Display.I2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	defer dev.Halt()
	logger.Info("display: initialized")

	data := &DisplayData{}
	if err := dev.Draw(dev.Bounds(), data.Render(), image.Point{}); err != nil {
		logger.Warnw("display: splash", "error", err)
	}

	client, err := connectMQTT(cfg.MQTT, cfg.MQTT.ClientIDDisplay, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(disconnectQuiesceMs)

	warnOnError := func(store func([]byte) error) func([]byte) {
		return func(payload []byte) {
			if err := store(payload); err != nil {
				logger.Warnw("display: bad payload", "error", err)
			}
		}
	}
	if err := subscribe(client, cfg.Topics.Heading, logger, warnOnError(data.OnHeading)); err != nil {
		return err
	}
	if err := subscribe(client, cfg.Topics.Location, logger, warnOnError(data.OnLocation)); err != nil {
		return err
	}

	ticker := clock.New().Ticker(time.Duration(cfg.Display.UpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	logger.Info("display: starting update loop")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := dev.Draw(dev.Bounds(), data.Render(), image.Point{}); err != nil {
				logger.Warnw("display: update", "error", err)
			}
		}
	}
}
