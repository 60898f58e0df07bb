package gps

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	"github.com/benbjohnson/clock"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/compass_computer/internal/config"
	"github.com/relabs-tech/compass_computer/internal/location"
	"github.com/relabs-tech/compass_computer/internal/logging"
)

// Parser accumulates NMEA sentences into fixes. RMC sentences emit a fix;
// GGA sentences only update altitude and satellite count for the next one.
// Fixes before the first GGA have no altitude.
type Parser struct {
	clock        clock.Clock
	altitude     float64 // meters above mean sea level
	haveAltitude bool
	satellites   int64
}

// NewParser returns a parser that stamps fixes without a valid date with clk.
func NewParser(clk clock.Clock) *Parser {
	return &Parser{clock: clk}
}

// Feed parses one line. It returns ok when the line completed a fix.
// Lines that are not sentences or fail their checksum are an error.
func (p *Parser) Feed(line string) (fix Fix, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, "$") {
		return Fix{}, false, nil
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return Fix{}, false, err
	}

	switch sentence.DataType() {
	case nmea.TypeGGA:
		m := sentence.(nmea.GGA)
		p.altitude = m.Altitude
		p.haveAltitude = true
		p.satellites = m.NumSatellites
	case nmea.TypeRMC:
		m := sentence.(nmea.RMC)
		l := location.FromMeters(m.Latitude, m.Longitude, p.altitude)
		l.NoAltitude = !p.haveAltitude
		return Fix{
			Time:       p.timestamp(m.Date, m.Time),
			Location:   l,
			SpeedKnots: m.Speed,
			CourseDeg:  m.Course,
			Validity:   m.Validity,
			Satellites: p.satellites,
			Source:     config.SourceNMEA,
		}, true, nil
	}
	return Fix{}, false, nil
}

func (p *Parser) timestamp(d nmea.Date, t nmea.Time) time.Time {
	if !d.Valid || !t.Valid {
		return p.clock.Now().UTC()
	}
	return time.Date(2000+d.YY, time.Month(d.MM), d.DD,
		t.Hour, t.Minute, t.Second, t.Millisecond*int(time.Millisecond), time.UTC)
}

type nmeaSource struct {
	port   io.Closer
	parser *Parser
	logger logging.Logger
	lines  chan string
	done   chan error
	closed chan struct{}
	once   sync.Once
}

// NewNMEASource opens the receiver's serial port.
func NewNMEASource(cfg config.GPSConfig, logger logging.Logger) (Source, error) {
	// NOTE: adjust SerialPort to match your setup: /dev/serial0, /dev/ttyAMA0, /dev/ttyUSB0, etc.
	port, err := serial.Open(serial.OpenOptions{
		PortName:              cfg.SerialPort,
		BaudRate:              uint(cfg.BaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("GPS serial port %s: %w", cfg.SerialPort, err)
	}
	logger.Infof("GPS serial port opened on %s at %d baud", cfg.SerialPort, cfg.BaudRate)
	return NewNMEAReader(port, clock.New(), logger), nil
}

// NewNMEAReader parses NMEA lines from r. Closing the source closes r.
func NewNMEAReader(r io.ReadCloser, clk clock.Clock, logger logging.Logger) Source {
	s := &nmeaSource{
		port:   r,
		parser: NewParser(clk),
		logger: logger,
		lines:  make(chan string),
		done:   make(chan error, 1),
		closed: make(chan struct{}),
	}
	go s.read(bufio.NewReader(r))
	return s
}

func (s *nmeaSource) read(r *bufio.Reader) {
	defer close(s.lines)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			select {
			case s.lines <- line:
			case <-s.closed:
				s.done <- io.ErrClosedPipe
				return
			}
		}
		if err != nil {
			s.done <- err
			return
		}
	}
}

// Next returns the next fix. Unparseable lines are skipped; noisy receivers
// and partial sentences at startup are normal.
func (s *nmeaSource) Next(ctx context.Context) (Fix, error) {
	for {
		select {
		case <-ctx.Done():
			return Fix{}, ctx.Err()
		case line, ok := <-s.lines:
			if !ok {
				err := <-s.done
				s.done <- err
				return Fix{}, fmt.Errorf("GPS read: %w", err)
			}
			fix, ok, err := s.parser.Feed(line)
			if err != nil {
				s.logger.Debugw("NMEA parse error", "line", strings.TrimSpace(line), "error", err)
				continue
			}
			if ok {
				return fix, nil
			}
		}
	}
}

func (s *nmeaSource) Close() error {
	var err error
	s.once.Do(func() {
		close(s.closed)
		err = s.port.Close()
	})
	return err
}
