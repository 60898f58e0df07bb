// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/relabs-tech/compass_computer/internal/config"
	"github.com/relabs-tech/compass_computer/internal/logging"
	"github.com/relabs-tech/compass_computer/internal/orientation"
)

// MockConsole runs the compass on a source without MQTT and prints the
// heading every interval.
type MockConsole struct {
	source  orientation.Source
	compass *orientation.Compass
	clock   clock.Clock
	every   time.Duration
	out     io.Writer
}

// NewMockConsole returns a console printing to out.
func NewMockConsole(src orientation.Source, compass *orientation.Compass, clk clock.Clock, every time.Duration, out io.Writer) *MockConsole {
	return &MockConsole{source: src, compass: compass, clock: clk, every: every, out: out}
}

// Run feeds one sample per tick and prints the heading, until ctx is done.
func (c *MockConsole) Run(ctx context.Context) error {
	ticker := c.clock.Ticker(c.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		s, err := c.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := c.compass.Update(s); err != nil {
			if errors.Is(err, orientation.ErrNoFix) {
				fmt.Fprintln(c.out, "[HEAD] no fix")
				continue
			}
			return err
		}
		fmt.Fprintln(c.out, FormatHeading(c.compass.Snapshot()))
	}
}

// RunMockConsole prints the heading of the mock source every
// console.log_interval_ms.
func RunMockConsole(ctx context.Context, cfg *config.Config, out io.Writer, logger logging.Logger) error {
	src := orientation.NewMockSource()
	defer src.Close()

	compass := orientation.NewCompass(compassOptions(cfg.Compass), logger)
	every := time.Duration(cfg.Console.LogInterval) * time.Millisecond
	return NewMockConsole(src, compass, clock.New(), every, out).Run(ctx)
}
