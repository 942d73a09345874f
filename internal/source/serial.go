package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/radartrack/internal/monitoring"
	"github.com/banshee-data/radartrack/internal/radar"
	"go.bug.st/serial"
)

// PortOptions describes the serial connection parameters used when opening
// a radar's serial port.
type PortOptions struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`
}

// Normalize validates the options and applies defaults for any unset values.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = 115200
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	parity := strings.TrimSpace(strings.ToUpper(opts.Parity))
	switch parity {
	case "", "N", "NONE":
		parity = "N"
	case "E", "EVEN":
		parity = "E"
	case "O", "ODD":
		parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}

	opts.Parity = parity
	return opts, nil
}

// SerialMode converts the port options into the serial.Mode structure
// required by go.bug.st/serial when opening a port.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: serial.OneStopBit,
		Parity:   serial.NoParity,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}

	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	}

	return mode, nil
}

// OpenSerial opens the named port with opts.
func OpenSerial(path string, opts PortOptions) (serial.Port, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}
	return port, nil
}

// ParseLine parses one "range,azimuth,elevation,time" line.
func ParseLine(line string) (radar.Measurement, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 4 {
		return radar.Measurement{}, fmt.Errorf("%q: %d fields, want 4: %w", line, len(fields), ErrMalformedRecord)
	}
	var vals [4]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return radar.Measurement{}, fmt.Errorf("%q: %v: %w", line, err, ErrMalformedRecord)
		}
		vals[i] = v
	}
	return radar.Measurement{Range: vals[0], Azimuth: vals[1], Elevation: vals[2], Time: vals[3]}, nil
}

// ReadSerial collects measurements from a line feed until limit
// measurements have been read, the feed ends, or ctx is done. Blank lines
// and lines starting with '#' are ignored; unparseable lines are logged and
// skipped. A limit of zero or less reads until the feed ends.
//
// On cancellation the measurements read so far are returned with
// ctx.Err(). The caller owns port and should close it to release the
// reading goroutine.
func ReadSerial(ctx context.Context, port io.Reader, limit int) ([]radar.Measurement, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	scan := bufio.NewScanner(port)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// The blocking scan runs on its own goroutine so that the loop below
	// can observe cancellation.
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	var out []radar.Measurement
	for {
		select {
		case <-ctx.Done():
			return out, ctx.Err()

		case err := <-scanErrChan:
			return out, fmt.Errorf("read serial: %w", err)

		case line, ok := <-lineChan:
			if !ok {
				select {
				case err := <-scanErrChan:
					return out, fmt.Errorf("read serial: %w", err)
				default:
				}
				return out, nil
			}

			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			m, err := ParseLine(line)
			if err != nil {
				monitoring.Logf("serial: skipping line: %v", err)
				continue
			}
			out = append(out, m)
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
	}
}
