// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/compass_computer/internal/config"
	"github.com/relabs-tech/compass_computer/internal/logging"
	"github.com/relabs-tech/compass_computer/internal/orientation"
)

// CommandReset clears the compass filters when received on the command topic.
const CommandReset = "reset"

// maxSourceErrors consecutive read failures stop the producer.
const maxSourceErrors = 10

// CompassProducer feeds samples into a Compass and publishes its heading
// on a fixed cadence, independent of the sample rate.
type CompassProducer struct {
	source  orientation.Source
	compass *orientation.Compass
	pub     Publisher
	clock   clock.Clock
	topic   string
	every   time.Duration
	logger  logging.Logger

	// set while non-finite headings are being dropped, so the warning is
	// logged once per streak
	nonFinite bool
}

// NewCompassProducer returns a producer publishing to topic every interval.
func NewCompassProducer(
	src orientation.Source,
	compass *orientation.Compass,
	pub Publisher,
	clk clock.Clock,
	topic string,
	every time.Duration,
	logger logging.Logger,
) *CompassProducer {
	return &CompassProducer{
		source:  src,
		compass: compass,
		pub:     pub,
		clock:   clk,
		topic:   topic,
		every:   every,
		logger:  logger,
	}
}

// Run samples and publishes until ctx is done or the source fails for good.
// Cancellation is not an error.
func (p *CompassProducer) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.sampleLoop(gctx) })
	g.Go(func() error { return p.publishLoop(gctx) })
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func (p *CompassProducer) sampleLoop(ctx context.Context) error {
	failures := 0
	for {
		s, err := p.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failures++
			p.logger.Warnw("sample source error", "error", err, "consecutive", failures)
			if failures >= maxSourceErrors {
				return fmt.Errorf("compass source: %w", err)
			}
			continue
		}
		failures = 0

		if err := p.compass.Update(s); err != nil {
			if errors.Is(err, orientation.ErrNoFix) {
				p.logger.Debugw("sample without orientation", "source", s.Source)
				continue
			}
			return err
		}
	}
}

func (p *CompassProducer) publishLoop(ctx context.Context) error {
	ticker := p.clock.Ticker(p.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.PublishHeading()
		}
	}
}

// PublishHeading publishes the current heading, if the compass has one.
func (p *CompassProducer) PublishHeading() {
	h := p.compass.Snapshot()
	if h.Samples == 0 {
		return
	}
	if !finite(h) {
		if !p.nonFinite {
			p.logger.Warnw("heading is not finite, not publishing until it recovers",
				"orientation", h.Orientation, "needle", h.NorthPointer, "tilt", h.Tilt)
			p.nonFinite = true
		}
		return
	}
	if p.nonFinite {
		p.logger.Info("heading is finite again")
		p.nonFinite = false
	}
	if err := publishJSON(p.pub, p.topic, true, h); err != nil {
		p.logger.Warn(err)
		return
	}
	p.logger.Debugw("published heading",
		"azimuth", h.Orientation.Azimuth,
		"pitch", h.Orientation.Pitch,
		"roll", h.Orientation.Roll,
		"needle", h.NorthPointer,
		"mode", h.Mode)
}

// finite reports whether every angle of h can be encoded as JSON.
// A rotation matrix far from orthonormal yields NaN angles.
func finite(h orientation.Heading) bool {
	for _, v := range []float64{
		h.Orientation.Azimuth, h.Orientation.Pitch, h.Orientation.Roll,
		h.Orientation.CenterAzimuth, h.Orientation.CenterAltitude,
		h.Tilt, h.NorthPointer,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// HandleCommand executes a payload received on the command topic.
func (p *CompassProducer) HandleCommand(payload []byte) {
	switch cmd := strings.TrimSpace(string(payload)); cmd {
	case CommandReset:
		p.compass.Reset()
	default:
		p.logger.Warnw("unknown command", "command", cmd)
	}
}

func compassOptions(c config.CompassConfig) orientation.Options {
	return orientation.Options{
		Smoothing:            c.Smoothing,
		GyroFusion:           c.GyroFusion,
		OrthonormalTolerance: c.OrthonormalTolerance,
	}
}

// RunCompassProducer reads the configured source and publishes headings to
// MQTT until ctx is done.
func RunCompassProducer(ctx context.Context, cfg *config.Config, logger logging.Logger) (err error) {
	src, err := NewCompassSource(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, src.Close()) }()

	client, err := connectMQTT(cfg.MQTT, cfg.MQTT.ClientIDCompass, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(disconnectQuiesceMs)

	compass := orientation.NewCompass(compassOptions(cfg.Compass), logger)
	producer := NewCompassProducer(src, compass, NewPublisher(client), clock.New(),
		cfg.Topics.Heading, cfg.Compass.PublishEvery(), logger)

	if err := subscribe(client, cfg.Topics.Command, logger, producer.HandleCommand); err != nil {
		return err
	}

	logger.Infof("publishing headings to %s every %s", cfg.Topics.Heading, cfg.Compass.PublishEvery())
	return producer.Run(ctx)
}
