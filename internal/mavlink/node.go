// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package mavlink connects to a flight controller and converts its
// telemetry into the device frame used by the compass.
//
// MAVLink bodies are forward-right-down and the earth frame is
// north-east-down; the compass uses right-forward-up and east-north-up.
package mavlink

import (
	"context"
	"fmt"

	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"

	"github.com/relabs-tech/compass_computer/internal/config"
)

// Endpoint returns the gomavlib endpoint selected by cfg.
func Endpoint(cfg config.MAVLinkConfig) (gomavlib.EndpointConf, error) {
	switch cfg.Endpoint {
	case config.EndpointSerial:
		return gomavlib.EndpointSerial{Device: cfg.Device, Baud: cfg.Baud}, nil
	case config.EndpointUDPServer:
		return gomavlib.EndpointUDPServer{Address: cfg.Address}, nil
	case config.EndpointUDPClient:
		return gomavlib.EndpointUDPClient{Address: cfg.Address}, nil
	case config.EndpointTCPClient:
		return gomavlib.EndpointTCPClient{Address: cfg.Address}, nil
	default:
		return nil, fmt.Errorf("unknown mavlink endpoint %q", cfg.Endpoint)
	}
}

// NewNode opens a MAVLink v2 node speaking the common dialect.
func NewNode(cfg config.MAVLinkConfig) (*gomavlib.Node, error) {
	endpoint, err := Endpoint(cfg)
	if err != nil {
		return nil, err
	}
	node, err := gomavlib.NewNode(gomavlib.NodeConf{
		Endpoints:   []gomavlib.EndpointConf{endpoint},
		Dialect:     common.Dialect,
		OutVersion:  gomavlib.V2,
		OutSystemID: cfg.SystemID,
	})
	if err != nil {
		return nil, fmt.Errorf("mavlink node: %w", err)
	}
	return node, nil
}

// NextMessage returns the next decoded message from events, skipping
// channel open and close notifications. It fails when ctx is done or
// events is closed.
func NextMessage(ctx context.Context, events <-chan gomavlib.Event) (message.Message, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case evt, ok := <-events:
			if !ok {
				return nil, fmt.Errorf("mavlink node closed")
			}
			if frm, ok := evt.(*gomavlib.EventFrame); ok {
				return frm.Frame.GetMessage(), nil
			}
		}
	}
}
