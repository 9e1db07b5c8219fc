// Package serial reads particle counts from a detector that writes one JSON
// reading per line, over a serial port or a TCP connection.
package serial

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	goserial "github.com/tarm/goserial"
	"go.uber.org/zap"

	"github.com/chrissnell/radmon/internal/detectors"
	"github.com/chrissnell/radmon/internal/types"
	"github.com/chrissnell/radmon/pkg/config"
)

const (
	defaultBaud       = 9600
	readTimeout       = 30 * time.Second
	dialTimeout       = 10 * time.Second
	serialRetryDelay  = 30 * time.Second
	networkRetryDelay = 5 * time.Second
)

// Detector implements a line-oriented JSON particle detector
type Detector struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	config     config.DetectorData
	recorder   detectors.Recorder
	logger     *zap.SugaredLogger
	retryDelay time.Duration
}

// New creates a serial detector. Either SerialDevice or Hostname and Port must be set.
func New(ctx context.Context, wg *sync.WaitGroup, cfg config.DetectorData, recorder detectors.Recorder, logger *zap.SugaredLogger) (*Detector, error) {
	if cfg.SerialDevice == "" && (cfg.Hostname == "" || cfg.Port == "") {
		return nil, fmt.Errorf("detector [%s] must define either a serial device or hostname+port", cfg.Name)
	}

	d := &Detector{
		ctx:        ctx,
		wg:         wg,
		config:     cfg,
		recorder:   recorder,
		logger:     logger,
		retryDelay: networkRetryDelay,
	}

	if cfg.SerialDevice != "" {
		logger.Infof("Configuring detector [%s] via serial port %s", cfg.Name, cfg.SerialDevice)
		if d.config.Baud == 0 {
			d.config.Baud = defaultBaud
		}
		d.retryDelay = serialRetryDelay
	} else {
		logger.Infof("Configuring detector [%s] via TCP/IP at %s:%s", cfg.Name, cfg.Hostname, cfg.Port)
	}

	return d, nil
}

// DetectorName returns the configured name
func (d *Detector) DetectorName() string {
	return d.config.Name
}

// StartDetector launches the read loop
func (d *Detector) StartDetector() error {
	d.logger.Infof("Starting detector [%s]...", d.config.Name)
	d.wg.Add(1)
	go d.run()
	return nil
}

// run connects, reads until the connection fails, and reconnects until ctx is cancelled
func (d *Detector) run() {
	defer d.wg.Done()

	for {
		rwc, netConn, err := d.connect()
		if err != nil {
			d.logger.Errorf("detector [%s]: %v", d.config.Name, err)
		} else {
			err = d.readUntilFailure(rwc, netConn)
			if d.ctx.Err() != nil {
				d.logger.Infof("cancellation request received. Stopping detector [%s]", d.config.Name)
				return
			}
			d.logger.Errorf("detector [%s] connection lost: %v", d.config.Name, err)
		}

		d.logger.Infof("detector [%s]: retrying in %v", d.config.Name, d.retryDelay)
		select {
		case <-d.ctx.Done():
			d.logger.Infof("cancellation request received during retry wait. Stopping detector [%s]", d.config.Name)
			return
		case <-time.After(d.retryDelay):
		}
	}
}

func (d *Detector) connect() (io.ReadWriteCloser, net.Conn, error) {
	if d.config.SerialDevice != "" {
		sc := &goserial.Config{Name: d.config.SerialDevice, Baud: d.config.Baud}
		d.logger.Debugf("attempting to open serial port %s at %d baud", d.config.SerialDevice, d.config.Baud)
		rwc, err := goserial.OpenPort(sc)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open serial port %s: %w", d.config.SerialDevice, err)
		}
		return rwc, nil, nil
	}

	address := net.JoinHostPort(d.config.Hostname, d.config.Port)
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(d.ctx, "tcp", address)
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to %s: %w", address, err)
	}
	d.logger.Infof("detector [%s] connected to %s", d.config.Name, address)
	return conn, conn, nil
}

// readUntilFailure reads readings from rwc and closes it when reading stops.
// Cancelling ctx closes the connection to unblock the read.
func (d *Detector) readUntilFailure(rwc io.ReadWriteCloser, netConn net.Conn) error {
	done := make(chan struct{})
	defer close(done)
	defer rwc.Close()

	go func() {
		select {
		case <-d.ctx.Done():
			rwc.Close()
		case <-done:
		}
	}()

	return d.ReadReadings(rwc, func() {
		if netConn != nil {
			netConn.SetReadDeadline(time.Now().Add(readTimeout))
		}
	})
}

// ReadReadings records every line of r as a reading. It returns when r fails,
// reaches EOF or yields a line that is not a valid reading. beforeRead, if not
// nil, runs before each line is read.
func (d *Detector) ReadReadings(r io.Reader, beforeRead func()) error {
	scanner := bufio.NewScanner(r)

	for {
		if beforeRead != nil {
			beforeRead()
		}
		if !scanner.Scan() {
			break
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		reading, err := types.ParseReading(line)
		if err != nil {
			return fmt.Errorf("error decoding reading %q: %w", line, err)
		}
		if err := d.recorder.Record(reading); err != nil {
			return fmt.Errorf("error recording reading: %w", err)
		}
		d.logger.Debugf("detector [%s] reading: alpha=%d beta=%d gamma=%d", d.config.Name, reading.Alpha, reading.Beta, reading.Gamma)
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}
