// Package console opens the byte stream the operator talks to the monitor
// over: a serial device, a TCP connection or the process's stdio.
package console

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	serial "github.com/tarm/goserial"

	"github.com/chrissnell/volcanomonitor/internal/log"
	"github.com/chrissnell/volcanomonitor/pkg/config"
)

// DefaultBaud matches the device firmware's serial speed.
const DefaultBaud = 115200

// Open connects to the console described by cfg. A serial device takes
// precedence over hostname+port; with neither, stdio is used.
func Open(ctx context.Context, cfg config.ConsoleData) (io.ReadWriteCloser, error) {
	switch {
	case cfg.SerialDevice != "":
		return openSerial(cfg)
	case cfg.Hostname != "" && cfg.Port != "":
		return openNetwork(ctx, cfg)
	case cfg.Hostname != "" || cfg.Port != "":
		return nil, fmt.Errorf("console must define both hostname and port")
	default:
		log.Info("using stdio as the console")
		return Stdio(), nil
	}
}

func openSerial(cfg config.ConsoleData) (io.ReadWriteCloser, error) {
	baud := cfg.Baud
	if baud == 0 {
		baud = DefaultBaud
	}

	log.Infof("opening serial console %s at %d baud", cfg.SerialDevice, baud)
	rwc, err := serial.OpenPort(&serial.Config{Name: cfg.SerialDevice, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.SerialDevice, err)
	}
	return rwc, nil
}

func openNetwork(ctx context.Context, cfg config.ConsoleData) (io.ReadWriteCloser, error) {
	addr := net.JoinHostPort(cfg.Hostname, cfg.Port)
	log.Infof("connecting to console at %s", addr)

	d := net.Dialer{Timeout: 10 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("could not connect to %v: %w", addr, err)
	}
	return conn, nil
}

type stdio struct {
	io.Reader
	io.Writer
}

// Close leaves the process's standard streams open.
func (stdio) Close() error { return nil }

// Stdio returns the process's stdin and stdout as one stream.
func Stdio() io.ReadWriteCloser {
	return stdio{Reader: os.Stdin, Writer: os.Stdout}
}
