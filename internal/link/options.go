package link

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
)

// Options describes the serial connection parameters and the write retry
// policy. The zero value normalizes to the hand controller's defaults:
// 115200 8N1, three retries with 5ms initial backoff.
type Options struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`

	// MaxRetries bounds how many times a failed write is retried before the
	// link is declared down.
	MaxRetries int `json:"max_retries"`

	// RetryBackoff is the delay before the first retry; it doubles on each
	// subsequent attempt.
	RetryBackoff time.Duration `json:"retry_backoff"`
}

// Normalize validates the options and applies defaults for any unset values.
func (o Options) Normalize() (Options, error) {
	opts := o

	if opts.BaudRate == 0 {
		opts.BaudRate = 115200
	}
	if opts.BaudRate < 0 {
		return opts, fmt.Errorf("invalid baud rate %d", opts.BaudRate)
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

	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.MaxRetries < 0 {
		return opts, fmt.Errorf("invalid max retries %d", opts.MaxRetries)
	}

	if opts.RetryBackoff == 0 {
		opts.RetryBackoff = 5 * time.Millisecond
	}
	if opts.RetryBackoff < 0 {
		return opts, fmt.Errorf("invalid retry backoff %v", opts.RetryBackoff)
	}

	return opts, nil
}

// serialMode converts the options into the serial.Mode structure required by
// go.bug.st/serial when opening a port.
func (o Options) serialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
	}

	switch opts.StopBits {
	case 1:
		mode.StopBits = serial.OneStopBit
	case 2:
		mode.StopBits = serial.TwoStopBits
	}

	switch opts.Parity {
	case "N":
		mode.Parity = serial.NoParity
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	}

	return mode, nil
}
