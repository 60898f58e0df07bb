// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors reads the hardware sample sources of the compass.
package sensors

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/compass_computer/internal/config"
	"github.com/relabs-tech/compass_computer/internal/geometry"
	"github.com/relabs-tech/compass_computer/internal/imu"
	"github.com/relabs-tech/compass_computer/internal/logging"
	"github.com/relabs-tech/compass_computer/internal/orientation"
)

var (
	accelRanges = []int{2, 4, 8, 16}
	gyroRanges  = []int{250, 500, 1000, 2000}
)

// mpu9250Reader is the part of the driver the source reads from.
type mpu9250Reader interface {
	GetAccelerationX() (int16, error)
	GetAccelerationY() (int16, error)
	GetAccelerationZ() (int16, error)
	GetRotationX() (int16, error)
	GetRotationY() (int16, error)
	GetRotationZ() (int16, error)
}

type mpu9250Source struct {
	dev        mpu9250Reader
	clock      clock.Clock
	accelRange byte
	gyroRange  byte
}

// NewMPU9250Source initializes an MPU9250 over SPI. The chip has no usable
// magnetometer on this bus, so samples carry accelerometer and gyroscope only.
func NewMPU9250Source(cfg config.IMUConfig, logger logging.Logger) (orientation.Source, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU: periph host init: %w", err)
	}

	cs := gpioreg.ByName(cfg.CSPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found", cfg.CSPin)
	}

	tr, err := mpu9250.NewSpiTransport(cfg.SPIDevice, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", cfg.SPIDevice, err)
	}

	dev, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}

	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}

	if err := dev.SetAccelRange(cfg.AccelRange); err != nil {
		return nil, fmt.Errorf("IMU: set accel range: %w", err)
	}
	logger.Infof("IMU: accelerometer range set to %d (±%dg)", cfg.AccelRange, accelRanges[cfg.AccelRange])

	if err := dev.SetGyroRange(cfg.GyroRange); err != nil {
		return nil, fmt.Errorf("IMU: set gyro range: %w", err)
	}
	logger.Infof("IMU: gyroscope range set to %d (±%d°/s)", cfg.GyroRange, gyroRanges[cfg.GyroRange])

	if cfg.SelfTest {
		if _, err := dev.SelfTest(); err != nil {
			logger.Warnf("IMU: self-test failed: %v", err)
		} else {
			logger.Info("IMU: self-test passed")
		}
	}

	if cfg.Calibrate {
		if err := dev.Calibrate(); err != nil {
			logger.Warnf("IMU: calibration failed: %v", err)
		} else {
			logger.Info("IMU: calibration complete")
		}
	}

	return newMPU9250Source(dev, clock.New(), cfg.AccelRange, cfg.GyroRange), nil
}

func newMPU9250Source(dev mpu9250Reader, clk clock.Clock, accelRange, gyroRange byte) *mpu9250Source {
	return &mpu9250Source{dev: dev, clock: clk, accelRange: accelRange, gyroRange: gyroRange}
}

// Next reads accelerometer and gyroscope and scales them to m/s² and rad/s.
func (s *mpu9250Source) Next(ctx context.Context) (imu.Sample, error) {
	if err := ctx.Err(); err != nil {
		return imu.Sample{}, err
	}
	var accel, gyro [3]int16
	var err error
	reads := []struct {
		name string
		dst  *int16
		read func() (int16, error)
	}{
		{"accel X", &accel[0], s.dev.GetAccelerationX},
		{"accel Y", &accel[1], s.dev.GetAccelerationY},
		{"accel Z", &accel[2], s.dev.GetAccelerationZ},
		{"gyro X", &gyro[0], s.dev.GetRotationX},
		{"gyro Y", &gyro[1], s.dev.GetRotationY},
		{"gyro Z", &gyro[2], s.dev.GetRotationZ},
	}
	for _, r := range reads {
		if *r.dst, err = r.read(); err != nil {
			return imu.Sample{}, fmt.Errorf("IMU %s: %w", r.name, err)
		}
	}
	return SampleFromCounts(accel, gyro, s.accelRange, s.gyroRange, s.clock.Now()), nil
}

// Close is a no-op; the SPI port belongs to the periph host.
func (s *mpu9250Source) Close() error { return nil }

// SampleFromCounts scales raw MPU9250 counts. Full scale range r gives
// 16384>>r LSB/g for the accelerometer and 131/2^r LSB/(°/s) for the gyro.
func SampleFromCounts(accel, gyro [3]int16, accelRange, gyroRange byte, at time.Time) imu.Sample {
	accelScale := imu.StandardGravity / float64(int(16384)>>accelRange)
	gyroScale := geometry.ToRadian(float64(int(1)<<gyroRange) / 131)
	return imu.Sample{
		Source: "mpu9250",
		Time:   at,
		Accel: geometry.NewVector(float64(accel[0]), float64(accel[1]), float64(accel[2])).
			Scale(accelScale),
		Gyro: geometry.NewVector(float64(gyro[0]), float64(gyro[1]), float64(gyro[2])).
			Scale(gyroScale),
		HasGyro: true,
	}
}
