package sensorio

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"
)

// syncSink wraps a recordSink so the listener goroutine and the test can
// share it.
type syncSink struct {
	mu sync.Mutex
	recordSink
}

func (s *syncSink) SetBaroData(timeUS uint64, hgt float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordSink.SetBaroData(timeUS, hgt)
}

func (s *syncSink) snapshot() (int, uint64, float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls, s.baroTime, s.baroHgt
}

func TestUDPListenerDeliversFrames(t *testing.T) {
	sink := &syncSink{}
	l := NewUDPListener(UDPListenerConfig{
		Address: "127.0.0.1:0",
		Stats:   NewFrameStats(),
		Parser:  NewParser(sink),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- l.Start(ctx) }()

	select {
	case <-l.Ready():
	case err := <-errCh:
		t.Fatalf("listener failed to start: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not become ready")
	}

	conn, err := net.DialUDP("udp", nil, l.Addr())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write(MarshalBaro(123456, 487.5)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	// a malformed datagram must be rejected without killing the loop
	if _, err := conn.Write([]byte{0xDE, 0xAD}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := conn.Write(MarshalBaro(234567, 488.0)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		calls, baroTime, baroHgt := sink.snapshot()
		if calls == 2 {
			if baroTime != 234567 || baroHgt != 488.0 {
				t.Errorf("last baro = %v at %d", baroHgt, baroTime)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for frames, got %d calls", calls)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("Start returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not shut down")
	}
}

func TestUDPListenerBadAddress(t *testing.T) {
	l := NewUDPListener(UDPListenerConfig{
		Address: "not-an-address:abc",
		Parser:  NewParser(&recordSink{}),
	})
	if err := l.Start(context.Background()); err == nil {
		t.Fatal("expected an error for an unresolvable address")
	}
}
