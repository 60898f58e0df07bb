package app

import (
	"context"

	"go.uber.org/multierr"

	"github.com/relabs-tech/compass_computer/internal/config"
	"github.com/relabs-tech/compass_computer/internal/gps"
	"github.com/relabs-tech/compass_computer/internal/location"
	"github.com/relabs-tech/compass_computer/internal/logging"
)

// GPSProducer passes fixes through a location filter and publishes each
// one with the filter's stable flag.
type GPSProducer struct {
	source gps.Source
	filter *location.Filter
	pub    Publisher
	topic  string
	logger logging.Logger
}

// NewGPSProducer returns a producer publishing to topic.
func NewGPSProducer(src gps.Source, filter *location.Filter, pub Publisher, topic string, logger logging.Logger) *GPSProducer {
	return &GPSProducer{source: src, filter: filter, pub: pub, topic: topic, logger: logger}
}

// Run publishes fixes until ctx is done or the source fails.
func (p *GPSProducer) Run(ctx context.Context) error {
	for {
		fix, err := p.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		p.Handle(fix)
	}
}

// Handle records a fix and publishes it. Void fixes are published but do
// not move the filter.
func (p *GPSProducer) Handle(fix gps.Fix) {
	wasStable := p.filter.IsStable()
	if fix.Valid() {
		p.filter.OnLocationChanged(fix.Location)
	}
	fix.Stable = p.filter.IsStable()
	if fix.Stable != wasStable {
		p.logger.Infow("location stability changed", "stable", fix.Stable, "location", p.filter.Current().String())
	}

	// retained, so late subscribers get the last fix
	if err := publishJSON(p.pub, p.topic, true, fix); err != nil {
		p.logger.Warn(err)
		return
	}
	p.logger.Debugw("published GPS fix",
		"lat", fix.Location.Latitude,
		"lon", fix.Location.Longitude,
		"validity", fix.Validity,
		"satellites", fix.Satellites,
		"stable", fix.Stable)
}

// RunGPSProducer reads the configured location source and publishes fixes
// to MQTT until ctx is done.
func RunGPSProducer(ctx context.Context, cfg *config.Config, logger logging.Logger) (err error) {
	src, err := NewLocationSource(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, src.Close()) }()

	client, err := connectMQTT(cfg.MQTT, cfg.MQTT.ClientIDGPS, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(disconnectQuiesceMs)

	producer := NewGPSProducer(src, location.NewFilter(cfg.GPS.StableAfter), NewPublisher(client), cfg.Topics.Location, logger)
	logger.Infof("publishing GPS fixes to %s", cfg.Topics.Location)
	return producer.Run(ctx)
}
