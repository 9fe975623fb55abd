// volcano-manager runs on the host attached to a monitor. It watches the
// telemetry stream and escalates or clears the device's alert mode.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chrissnell/volcanomonitor/internal/console"
	"github.com/chrissnell/volcanomonitor/internal/constants"
	"github.com/chrissnell/volcanomonitor/internal/escalation"
	"github.com/chrissnell/volcanomonitor/internal/log"
	"github.com/chrissnell/volcanomonitor/pkg/config"
)

func main() {
	device := flag.String("device", "/dev/ttyUSB0", "Serial device the monitor is attached to")
	baud := flag.Int("baud", console.DefaultBaud, "Serial baud rate")
	hostname := flag.String("hostname", "", "Connect over TCP to this host instead of a serial device")
	port := flag.String("port", "", "TCP port, used with -hostname")
	escalate := flag.String("escalate", escalation.DefaultEscalateRule, "Rule that switches the device to DISASTER")
	clear := flag.String("clear", escalation.DefaultClearRule, "Rule a sample must match to count towards SAFE")
	clearCount := flag.Int("clear-count", escalation.DefaultClearCount, "Consecutive clear samples before returning to SAFE")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("volcano-manager %s\n", constants.Version)
		os.Exit(0)
	}

	if err := log.Init(log.Options{Debug: *debug}); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	m, err := escalation.New(escalation.Rules{Escalate: *escalate, Clear: *clear, ClearCount: *clearCount})
	if err != nil {
		log.Errorf("invalid rules: %v", err)
		os.Exit(1)
	}

	cc := config.ConsoleData{Hostname: *hostname, Port: *port}
	if *hostname == "" {
		cc = config.ConsoleData{SerialDevice: *device, Baud: *baud}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rwc, err := console.Open(ctx, cc)
	if err != nil {
		log.Errorf("could not connect to monitor: %v", err)
		os.Exit(1)
	}
	defer rwc.Close()

	log.Info("volcano manager started, monitoring telemetry...")
	if err := m.Run(ctx, rwc); err != nil {
		log.Errorf("manager stopped: %v", err)
		os.Exit(1)
	}
	log.Info("stopping manager")
}
