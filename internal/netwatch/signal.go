package netwatch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"uploader/internal/logging"
)

// DefaultWirelessPath is the kernel's wireless statistics table.
const DefaultWirelessPath = "/proc/net/wireless"

// linkQualityMax is the link quality most drivers report as full strength.
const linkQualityMax = 70

// ErrNoWireless reports a statistics table without any interface rows.
var ErrNoWireless = errors.New("no wireless interface")

// SignalSink receives strength updates in percent.
type SignalSink interface {
	SetSignal(int)
}

// ParseWireless reads the first interface row of a /proc/net/wireless table
// and returns its link quality scaled to 0..100.
func ParseWireless(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		if line <= 2 {
			continue
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 3 {
			return 0, fmt.Errorf("malformed wireless row %q", text)
		}
		link, err := strconv.ParseFloat(strings.TrimSuffix(fields[2], "."), 64)
		if err != nil {
			return 0, fmt.Errorf("parse link quality %q: %w", fields[2], err)
		}
		return clamp(int(link * 100 / linkQualityMax)), nil
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return 0, ErrNoWireless
}

// ReadSignal parses the wireless table at path.
func ReadSignal(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return ParseWireless(f)
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// SignalMonitor periodically publishes wireless strength. A missing table
// or interface publishes zero.
type SignalMonitor struct {
	path   string
	sink   SignalSink
	logger *slog.Logger
	poller poller

	lastErr string
}

// NewSignalMonitor builds a monitor reading path every interval.
func NewSignalMonitor(path string, interval time.Duration, sink SignalSink, logger *slog.Logger) *SignalMonitor {
	if strings.TrimSpace(path) == "" {
		path = DefaultWirelessPath
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	m := &SignalMonitor{path: path, sink: sink, logger: logging.NewComponentLogger(logger, "network")}
	m.poller = poller{interval: interval, fn: m.update}
	return m
}

func (m *SignalMonitor) Start(ctx context.Context) { m.poller.start(ctx) }

func (m *SignalMonitor) Stop() { m.poller.stop() }

func (m *SignalMonitor) update(context.Context) {
	strength, err := ReadSignal(m.path)
	if err != nil {
		strength = 0
		if msg := err.Error(); msg != m.lastErr {
			m.lastErr = msg
			m.logger.Debug("wireless signal unavailable", logging.Error(err))
		}
	} else {
		m.lastErr = ""
	}
	if m.sink != nil {
		m.sink.SetSignal(strength)
	}
}
