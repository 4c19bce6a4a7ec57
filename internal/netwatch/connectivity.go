package netwatch

import (
	"context"
	"log/slog"
	"net"
	"time"

	"uploader/internal/logging"
)

// OnlineSink receives reachability updates.
type OnlineSink interface {
	SetOnline(bool)
}

// DialFunc opens a connection; it matches (*net.Dialer).DialContext.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// ConnectivityMonitor probes a TCP address and publishes whether the
// network is reachable. Only transitions are logged.
type ConnectivityMonitor struct {
	address string
	timeout time.Duration
	dial    DialFunc
	sink    OnlineSink
	logger  *slog.Logger
	poller  poller

	known  bool
	online bool
}

// ConnectivityOption configures a ConnectivityMonitor.
type ConnectivityOption func(*ConnectivityMonitor)

// WithDialer overrides the probe dialer (primarily for tests).
func WithDialer(dial DialFunc) ConnectivityOption {
	return func(m *ConnectivityMonitor) {
		if dial != nil {
			m.dial = dial
		}
	}
}

// NewConnectivityMonitor builds a monitor probing address every interval.
func NewConnectivityMonitor(address string, interval, timeout time.Duration, sink OnlineSink, logger *slog.Logger, opts ...ConnectivityOption) *ConnectivityMonitor {
	if timeout <= 0 {
		timeout = time.Second
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	m := &ConnectivityMonitor{
		address: address,
		timeout: timeout,
		dial:    (&net.Dialer{}).DialContext,
		sink:    sink,
		logger:  logging.NewComponentLogger(logger, "network"),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.poller = poller{interval: interval, fn: m.update}
	return m
}

// Start begins background probing. A second call is a no-op.
func (m *ConnectivityMonitor) Start(ctx context.Context) {
	m.poller.start(ctx)
}

// Stop halts probing and waits for the goroutine to exit.
func (m *ConnectivityMonitor) Stop() {
	m.poller.stop()
}

// Probe performs one reachability check.
func (m *ConnectivityMonitor) Probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	conn, err := m.dial(probeCtx, "tcp", m.address)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func (m *ConnectivityMonitor) update(ctx context.Context) {
	online := m.Probe(ctx)
	if ctx.Err() != nil {
		return
	}
	if m.sink != nil {
		m.sink.SetOnline(online)
	}
	if m.known && online == m.online {
		return
	}
	first := !m.known
	m.known = true
	m.online = online
	switch {
	case online:
		m.logger.Info("network connected", logging.String("probe", m.address))
	case first:
		m.logger.Info("network not reachable at startup", logging.String("probe", m.address))
	default:
		logging.WarnWithContext(m.logger, "network lost", "network_lost",
			logging.String("probe", m.address),
			logging.String(logging.FieldImpact, "uploads paused; imports continue"),
			logging.String(logging.FieldErrorHint, "check the Wi-Fi connection"),
		)
	}
}
