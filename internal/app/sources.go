package app

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/relabs-tech/compass_computer/internal/config"
	"github.com/relabs-tech/compass_computer/internal/gps"
	"github.com/relabs-tech/compass_computer/internal/imu"
	"github.com/relabs-tech/compass_computer/internal/location"
	"github.com/relabs-tech/compass_computer/internal/logging"
	"github.com/relabs-tech/compass_computer/internal/orientation"
	"github.com/relabs-tech/compass_computer/internal/sensors"
)

// NewCompassSource opens the sample source named by compass.source.
// Polled sources are paced at compass.sample_interval_ms; MAVLink streams
// at the autopilot's rate.
func NewCompassSource(cfg *config.Config, logger logging.Logger) (orientation.Source, error) {
	switch cfg.Compass.Source {
	case config.SourceMock:
		logger.Info("using mock orientation source")
		return Paced(orientation.NewMockSource(), clock.New(), cfg.Compass.SampleEvery()), nil
	case config.SourceMPU9250:
		src, err := sensors.NewMPU9250Source(cfg.IMU, logger)
		if err != nil {
			return nil, err
		}
		logger.Infof("using MPU9250 on %s", cfg.IMU.SPIDevice)
		return Paced(src, clock.New(), cfg.Compass.SampleEvery()), nil
	case config.SourceMAVLink:
		src, err := sensors.NewMAVLinkSource(cfg.MAVLink)
		if err != nil {
			return nil, err
		}
		logger.Infof("using MAVLink %s endpoint %s", cfg.MAVLink.Endpoint, cfg.MAVLink.Address)
		return src, nil
	default:
		return nil, fmt.Errorf("unknown compass source %q", cfg.Compass.Source)
	}
}

// NewLocationSource opens the fix source named by gps.source.
func NewLocationSource(cfg *config.Config, logger logging.Logger) (gps.Source, error) {
	switch cfg.GPS.Source {
	case config.SourceNMEA:
		return gps.NewNMEASource(cfg.GPS, logger)
	case config.SourceMAVLink:
		return gps.NewMAVLinkSource(cfg.MAVLink)
	case config.SourceMock:
		logger.Info("using mock location source")
		return gps.NewMockSource(location.DefaultHome, clock.New()), nil
	default:
		return nil, fmt.Errorf("unknown gps source %q", cfg.GPS.Source)
	}
}

type pacedSource struct {
	orientation.Source
	ticker *clock.Ticker
}

// Paced reads src once per tick of every.
func Paced(src orientation.Source, clk clock.Clock, every time.Duration) orientation.Source {
	return &pacedSource{Source: src, ticker: clk.Ticker(every)}
}

func (p *pacedSource) Next(ctx context.Context) (imu.Sample, error) {
	select {
	case <-ctx.Done():
		return imu.Sample{}, ctx.Err()
	case <-p.ticker.C:
	}
	return p.Source.Next(ctx)
}

func (p *pacedSource) Close() error {
	p.ticker.Stop()
	return p.Source.Close()
}
