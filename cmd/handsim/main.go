// handsim emulates the servo hand controller on a workstation: it reads the
// wire protocol from a serial port (or stdin), decodes frames, and prints the
// servo angles a real device would apply. Useful for exercising the host end
// to end without hardware.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.bug.st/serial"

	"github.com/tactile-robotics/handlink/internal/device"
	"github.com/tactile-robotics/handlink/internal/monitoring"
	"github.com/tactile-robotics/handlink/internal/wire"
)

var (
	portPath = flag.String("port", "", "Serial device to read from (default: stdin)")
	baud     = flag.Int("baud", 115200, "Serial baud rate")
	timeout  = flag.Duration("timeout", wire.DefaultTimeout, "Inter-byte timeout before a partial frame is abandoned")
	verify   = flag.Bool("verify", true, "Verify frame checksums")
	debug    = flag.Bool("debug", false, "Enable debug logging")
)

// printDriver renders each applied command as one line, the way the firmware
// logs over its debug UART.
type printDriver struct {
	pending [device.NumServos]float64
	got     int
}

func (d *printDriver) SetAngle(channel int, degrees float64) error {
	d.pending[channel] = degrees
	d.got++
	if d.got%device.NumServos == 0 {
		parts := make([]string, device.NumServos)
		for i, deg := range d.pending {
			parts[i] = fmt.Sprintf("s%d=%.1f", i, deg)
		}
		monitoring.Logf("servo: %s", strings.Join(parts, " "))
	}
	return nil
}

func openInput() (io.ReadCloser, error) {
	if *portPath == "" {
		return os.Stdin, nil
	}
	return serial.Open(*portPath, &serial.Mode{BaudRate: *baud})
}

func run() error {
	in, err := openInput()
	if err != nil {
		return err
	}
	defer in.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dec := wire.NewDecoder(wire.DecoderConfig{
		VerifyChecksum: *verify,
		Timeout:        *timeout,
	})
	src := device.NewReaderSource(ctx, in)
	loop := device.NewLoop(src, dec, &printDriver{}, time.Millisecond)

	monitoring.Logf("handsim: reading frames (port=%q verify=%v timeout=%v)", *portPath, *verify, *timeout)

	err = loop.Run(ctx)

	stats := dec.Stats()
	monitoring.Logf("handsim: %d frames applied (%d delivered, %d discarded, %d checksum errors, %d timeouts)",
		loop.Applied(), stats.Delivered, stats.Discarded, stats.ChecksumErrs, stats.Timeouts)
	return err
}

func main() {
	flag.Parse()
	monitoring.SetDebug(*debug)

	if err := run(); err != nil && err != context.Canceled {
		log.Fatalf("handsim: %v", err)
	}
}
