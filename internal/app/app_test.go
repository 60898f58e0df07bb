package app

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/relabs-tech/compass_computer/internal/geometry"
	"github.com/relabs-tech/compass_computer/internal/gps"
	"github.com/relabs-tech/compass_computer/internal/imu"
	"github.com/relabs-tech/compass_computer/internal/orientation"
)

type message struct {
	topic    string
	retained bool
	payload  []byte
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []message
	err      error
}

func (f *fakePublisher) Publish(topic string, retained bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, message{topic: topic, retained: retained, payload: payload})
	return nil
}

func (f *fakePublisher) sent() []message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]message(nil), f.messages...)
}

// chanSource delivers whatever the test pushes.
type chanSource struct {
	samples chan imu.Sample
	err     error
	closed  bool
}

func newChanSource() *chanSource {
	return &chanSource{samples: make(chan imu.Sample, 64)}
}

func (c *chanSource) Next(ctx context.Context) (imu.Sample, error) {
	if c.err != nil {
		return imu.Sample{}, c.err
	}
	select {
	case <-ctx.Done():
		return imu.Sample{}, ctx.Err()
	case s := <-c.samples:
		return s, nil
	}
}

func (c *chanSource) Close() error {
	c.closed = true
	return nil
}

type fixSource struct {
	fixes []gps.Fix
	err   error
}

func (f *fixSource) Next(ctx context.Context) (gps.Fix, error) {
	if err := ctx.Err(); err != nil {
		return gps.Fix{}, err
	}
	if len(f.fixes) == 0 {
		return gps.Fix{}, f.err
	}
	fix := f.fixes[0]
	f.fixes = f.fixes[1:]
	return fix, nil
}

func (f *fixSource) Close() error { return nil }

var errSourceGone = errors.New("source gone")

// flatSample is a device lying flat with its top towards azimuth.
func flatSample(azimuth float64, at time.Time) imu.Sample {
	m := orientation.RotationFor(geometry.Orientation{Azimuth: azimuth}).ToRotationMatrix().Transpose()
	return imu.Sample{
		Source: "test",
		Time:   at,
		Accel:  m.Mul(geometry.NewVector(0, 0, imu.StandardGravity)),
		Mag:    m.Mul(orientation.MockField),
		HasMag: true,
	}
}

func passThrough() orientation.Options {
	return orientation.Options{Smoothing: 1}
}

// syncBuffer is a bytes.Buffer safe for a writer and a polling reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// eventually polls cond for up to a second.
func eventually(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}
