package sensorio

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/banshee-data/attitude.report/internal/monitoring"
)

// UDPListener receives sensor frames over UDP and feeds them through a Parser.
// One datagram carries exactly one frame.
type UDPListener struct {
	address     string
	rcvBuf      int
	logInterval time.Duration
	buffer      []byte
	stats       *FrameStats
	parser      *Parser

	mu    sync.Mutex
	laddr *net.UDPAddr
	ready chan struct{}
}

// UDPListenerConfig contains configuration options for the UDP listener.
type UDPListenerConfig struct {
	Address     string
	RcvBuf      int
	LogInterval time.Duration
	Stats       *FrameStats
	Parser      *Parser
}

// NewUDPListener creates a UDP listener with the provided configuration.
func NewUDPListener(config UDPListenerConfig) *UDPListener {
	return &UDPListener{
		address:     config.Address,
		rcvBuf:      config.RcvBuf,
		logInterval: config.LogInterval,
		buffer:      make([]byte, 512), // largest frame is 50 bytes, leave headroom
		stats:       config.Stats,
		parser:      config.Parser,
		ready:       make(chan struct{}),
	}
}

// Ready is closed once the socket is bound. Addr is valid after that.
func (l *UDPListener) Ready() <-chan struct{} { return l.ready }

// Addr returns the bound local address, nil before Ready.
func (l *UDPListener) Addr() *net.UDPAddr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.laddr
}

// Start begins listening for sensor frames and dispatching them. Returns when
// the context is cancelled or an unrecoverable error occurs.
func (l *UDPListener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP: %w", err)
	}
	defer conn.Close()

	if l.rcvBuf > 0 {
		if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
			monitoring.Logf("failed to set UDP receive buffer to %d bytes: %v", l.rcvBuf, err)
		}
	}

	l.mu.Lock()
	l.laddr = conn.LocalAddr().(*net.UDPAddr)
	l.mu.Unlock()
	close(l.ready)

	monitoring.Logf("listening for sensor frames on %s", conn.LocalAddr())

	if l.stats != nil && l.logInterval > 0 {
		go l.startStatsLogging(ctx)
	}

	timeoutCount := 0
	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("sensor listener shutting down")
			return ctx.Err()
		default:
			// read deadline so context cancellation is noticed
			if err := conn.SetReadDeadline(time.Now().Add(1 * time.Second)); err != nil {
				monitoring.Errorf("failed to set read deadline: %v", err)
				continue
			}

			n, _, err := conn.ReadFromUDP(l.buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					timeoutCount++
					if timeoutCount%10 == 0 {
						monitoring.Logf("no sensor frames received for %d seconds", timeoutCount)
					}
					continue
				}
				monitoring.Errorf("error reading sensor frame: %v", err)
				continue
			}
			timeoutCount = 0

			l.handleFrame(l.buffer[:n])
		}
	}
}

// handleFrame dispatches a single received datagram. The facade copies sample
// data on push, so the reused receive buffer is safe to hand over directly.
func (l *UDPListener) handleFrame(frame []byte) {
	if l.stats != nil {
		l.stats.AddFrame(len(frame))
	}

	if _, err := l.parser.HandleFrame(frame); err != nil {
		if l.stats != nil {
			l.stats.AddRejected()
		}
		monitoring.Logf("rejected sensor frame: %v", err)
	}
}

func (l *UDPListener) startStatsLogging(ctx context.Context) {
	ticker := time.NewTicker(l.logInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.stats.LogStats()
		}
	}
}
