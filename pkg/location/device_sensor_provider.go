package location

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/rs/zerolog"
	"github.com/tarm/serial"
)

// DeviceSensorProvider streams fixes from a GPS device on a serial port. It
// reads the NMEA sentence stream continuously, so fixes arrive at whatever
// rate the device emits them.
type DeviceSensorProvider struct {
	port     string
	baudRate int
	logger   zerolog.Logger

	serialPort *serial.Port
}

// NewDeviceSensorProvider creates a provider for the GPS device at port.
func NewDeviceSensorProvider(port string, baudRate int, logger zerolog.Logger) *DeviceSensorProvider {
	return &DeviceSensorProvider{
		port:     port,
		baudRate: baudRate,
		logger:   logger,
	}
}

// Watch opens the serial port and delivers one sample per valid GGA
// sentence. Malformed sentences are logged and skipped; the stream
// self-recovers on the next sentence.
func (d *DeviceSensorProvider) Watch(ctx context.Context, fn func(Sample)) error {
	c := &serial.Config{Name: d.port, Baud: d.baudRate}
	s, err := serial.OpenPort(c)
	if err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("%w: opening %s: %v", ErrPermissionDenied, d.port, err)
		}
		return fmt.Errorf("failed to open GPS device %s: %w", d.port, err)
	}
	d.serialPort = s

	// Closing the port unblocks the scanner when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-done:
		}
	}()

	scanner := bufio.NewScanner(s)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "$GPGGA") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			d.logger.Warn().Err(err).Msg("Skipping malformed NMEA sentence")
			continue
		}

		gga, ok := sentence.(nmea.GGA)
		if !ok {
			continue
		}

		fn(Sample{
			Latitude:  gga.Latitude,
			Longitude: gga.Longitude,
			Accuracy:  float64(gga.HDOP), // HDOP as an accuracy proxy
			Timestamp: time.Now(),
		})
	}

	if ctx.Err() != nil {
		return nil
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("GPS stream ended: %w", err)
	}
	return nil
}

// Close releases the serial port if a watch left it open.
func (d *DeviceSensorProvider) Close() error {
	if d.serialPort != nil {
		return d.serialPort.Close()
	}
	return nil
}
