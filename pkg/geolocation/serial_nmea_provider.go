package geolocation

import (
	"bufio"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/tarm/serial"
)

const knotsToMetersPerSecond = 0.514444

// SerialNMEAProvider reads fixes from a GPS receiver connected via serial port.
// RMC sentences carry position, speed and course; GGA sentences contribute
// HDOP, which is used as an accuracy proxy.
type SerialNMEAProvider struct {
	port     string // Serial port to which the GPS device is connected
	baudRate int    // Baud rate for the serial communication

	mu   sync.Mutex
	conn *serial.Port
}

// NewSerialNMEAProvider creates a new instance of SerialNMEAProvider with the specified port and baud rate.
func NewSerialNMEAProvider(port string, baudRate int) *SerialNMEAProvider {
	return &SerialNMEAProvider{
		port:     port,
		baudRate: baudRate,
	}
}

// Watch opens the serial port and starts continuous monitoring. If the port
// cannot be opened the device has no usable GPS and ErrCapabilityUnavailable
// is returned.
func (d *SerialNMEAProvider) Watch(ctx context.Context, opts WatchOptions) (<-chan Event, error) {
	opts = opts.withDefaults()

	c := &serial.Config{Name: d.port, Baud: d.baudRate, ReadTimeout: opts.Timeout}
	s, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapabilityUnavailable, err)
	}

	d.mu.Lock()
	d.conn = s
	d.mu.Unlock()

	events := make(chan Event, 1)
	go d.watchLoop(ctx, s, opts, events)
	return events, nil
}

// Close releases the serial port, which also terminates an active watch loop.
func (d *SerialNMEAProvider) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}

func (d *SerialNMEAProvider) watchLoop(ctx context.Context, port *serial.Port, opts WatchOptions, events chan<- Event) {
	defer close(events)

	lines := make(chan string, 8)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(port)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	stale := time.NewTimer(opts.Timeout)
	defer stale.Stop()

	var lastEmit time.Time
	var lastAccuracy *float64 // carried over from the most recent GGA sentence

	for {
		select {
		case <-ctx.Done():
			return

		case <-stale.C:
			// No valid sentence within the timeout: report and keep listening
			// for a fresh reading.
			select {
			case events <- Event{Err: ErrStaleReading}:
			case <-ctx.Done():
				return
			}
			stale.Reset(opts.Timeout)

		case line, ok := <-lines:
			if !ok {
				// Port closed or read failure ends the stream.
				return
			}

			fix, ok := d.parseSentence(line, opts, &lastAccuracy)
			if !ok {
				continue
			}

			if !stale.Stop() {
				select {
				case <-stale.C:
				default:
				}
			}
			stale.Reset(opts.Timeout)

			// A fix younger than MaximumAge supersedes nothing; skip the emit
			// instead of flooding the consumer with near-duplicates.
			if time.Since(lastEmit) < opts.MaximumAge {
				continue
			}
			lastEmit = time.Now()

			select {
			case events <- Event{Fix: fix}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// parseSentence extracts a fix from an RMC sentence. GGA sentences only feed
// the accuracy carried into subsequent fixes and never produce one themselves.
func (d *SerialNMEAProvider) parseSentence(line string, opts WatchOptions, accuracy **float64) (Fix, bool) {
	if len(line) < 6 || line[0] != '$' {
		return Fix{}, false
	}
	switch line[3:6] {
	case nmea.TypeRMC, nmea.TypeGGA:
	default:
		return Fix{}, false
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return Fix{}, false
	}

	switch s := sentence.(type) {
	case nmea.GGA:
		if s.FixQuality == nmea.Invalid {
			*accuracy = nil
			return Fix{}, false
		}
		hdop := s.HDOP
		*accuracy = &hdop
		return Fix{}, false

	case nmea.RMC:
		if s.Validity != nmea.ValidRMC {
			return Fix{}, false
		}
		if opts.HighAccuracy && *accuracy == nil {
			// High accuracy requested but no quality estimate seen yet.
			return Fix{}, false
		}
		fix := Fix{
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
			Accuracy:  *accuracy,
			Time:      time.Now(),
		}
		if s.Speed > 0 {
			speed := s.Speed * knotsToMetersPerSecond
			fix.Speed = &speed
		}
		if s.Course > 0 {
			course := s.Course
			fix.Heading = &course
		}
		return fix, true
	}

	return Fix{}, false
}
