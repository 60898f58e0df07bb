package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/relabs-tech/compass_computer/internal/config"
	"github.com/relabs-tech/compass_computer/internal/gps"
	"github.com/relabs-tech/compass_computer/internal/logging"
	"github.com/relabs-tech/compass_computer/internal/orientation"
)

// FormatHeading renders a heading as one console line.
func FormatHeading(h orientation.Heading) string {
	return fmt.Sprintf(
		"[HEAD] AZ=%6.2f  PITCH=%6.2f  ROLL=%6.2f  NEEDLE=%8.2f  TILT=%5.1f  %s",
		h.Orientation.Azimuth, h.Orientation.Pitch, h.Orientation.Roll,
		h.NorthPointer, h.Tilt, h.Mode,
	)
}

// FormatFix renders a GPS fix as one console line.
func FormatFix(f gps.Fix) string {
	return fmt.Sprintf(
		"[GPS ] time=%s lat=%.6f lon=%.6f alt=%.0fm speed=%.1fkn course=%.1f° sats=%d validity=%s stable=%t",
		f.Time.Format("15:04:05"), f.Location.Latitude, f.Location.Longitude, f.Location.Altitude*1000,
		f.SpeedKnots, f.CourseDeg, f.Satellites, f.Validity, f.Stable,
	)
}

// consolePrinter serializes lines coming from several MQTT callbacks.
type consolePrinter struct {
	mu     sync.Mutex
	out    io.Writer
	logger logging.Logger
}

func (c *consolePrinter) heading(payload []byte) {
	var h orientation.Heading
	if err := json.Unmarshal(payload, &h); err != nil {
		c.logger.Warnw("console: heading unmarshal error", "error", err)
		return
	}
	c.println(FormatHeading(h))
}

func (c *consolePrinter) location(payload []byte) {
	var f gps.Fix
	if err := json.Unmarshal(payload, &f); err != nil {
		c.logger.Warnw("console: gps unmarshal error", "error", err)
		return
	}
	c.println(FormatFix(f))
}

func (c *consolePrinter) println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, line)
}

// RunConsoleMQTT prints every heading and fix published on MQTT until ctx
// is done.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config, out io.Writer, logger logging.Logger) error {
	client, err := connectMQTT(cfg.MQTT, cfg.MQTT.ClientIDConsole, logger)
	if err != nil {
		return err
	}

	printer := &consolePrinter{out: out, logger: logger}
	if err := subscribe(client, cfg.Topics.Heading, logger, printer.heading); err != nil {
		client.Disconnect(disconnectQuiesceMs)
		return err
	}
	if err := subscribe(client, cfg.Topics.Location, logger, printer.location); err != nil {
		client.Disconnect(disconnectQuiesceMs)
		return err
	}

	<-ctx.Done()
	logger.Info("console: shutting down")
	client.Disconnect(disconnectQuiesceMs)
	return nil
}
