package etherlynx

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestSessionDefaults(t *testing.T) {
	s := NewSession(SessionConfig{Address: "192.0.2.1"})

	if s.cfg.Port != DefaultPort {
		t.Errorf("port = %d, want %d", s.cfg.Port, DefaultPort)
	}
	if s.cfg.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", s.cfg.Timeout, DefaultTimeout)
	}
	if s.cfg.DiscoveryTimeout != DefaultDiscoveryTimeout {
		t.Errorf("discovery timeout = %v, want %v", s.cfg.DiscoveryTimeout, DefaultDiscoveryTimeout)
	}
	if s.SourceIdentity() != DefaultSourceIdentity {
		t.Errorf("source identity = %q, want %q", s.SourceIdentity(), DefaultSourceIdentity)
	}
	if s.Identity() != "" {
		t.Errorf("identity = %q, want empty before discovery", s.Identity())
	}
}

func TestSessionDiscover(t *testing.T) {
	port := startFakeInverter(t, func(req []byte) []byte {
		if req[39] != MsgPing {
			return nil
		}
		return buildHeader("TLX123456", "", FlagResponse, req[38], MsgPing, 0)
	})

	s := testSession(port)
	defer s.Close()

	identity, err := s.Discover()
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if identity != "TLX123456" {
		t.Errorf("identity = %q, want %q", identity, "TLX123456")
	}
	if s.Identity() != "TLX123456" {
		t.Errorf("cached identity = %q, want %q", s.Identity(), "TLX123456")
	}
}

func TestSessionDiscoverTimeoutLeavesSessionUsable(t *testing.T) {
	var answer atomic.Bool
	port := startFakeInverter(t, func(req []byte) []byte {
		if !answer.Load() {
			return nil // Inverter asleep
		}
		return buildHeader("TLX123456", "", FlagResponse, req[38], MsgPing, 0)
	})

	s := testSession(port)
	defer s.Close()

	if _, err := s.Discover(); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Discover() error = %v, want ErrTimeout", err)
	}
	if s.Identity() != "" {
		t.Errorf("identity = %q after failed discovery, want empty", s.Identity())
	}

	// The same session must recover once the inverter wakes.
	answer.Store(true)
	identity, err := s.Discover()
	if err != nil {
		t.Fatalf("retry Discover() error: %v", err)
	}
	if identity != "TLX123456" {
		t.Errorf("identity = %q, want %q", identity, "TLX123456")
	}
}

func TestSessionSetIdentitySkipsDiscovery(t *testing.T) {
	s := NewSession(SessionConfig{Address: "192.0.2.1"})
	s.SetIdentity("TLX999999")
	if s.Identity() != "TLX999999" {
		t.Errorf("identity = %q, want %q", s.Identity(), "TLX999999")
	}
}

func TestNextTransactionWraps(t *testing.T) {
	s := NewSession(SessionConfig{Address: "192.0.2.1"})

	if got := s.NextTransaction(); got != 1 {
		t.Fatalf("first transaction = %d, want 1", got)
	}

	// 255 more increments land on 0, the next one on 1 again.
	var last byte
	for i := 0; i < 255; i++ {
		last = s.NextTransaction()
	}
	if last != 0 {
		t.Errorf("256th transaction = %d, want 0", last)
	}
	if got := s.NextTransaction(); got != 1 {
		t.Errorf("257th transaction = %d, want 1", got)
	}
}

func TestSessionCloseIdempotent(t *testing.T) {
	port := startFakeInverter(t, func(req []byte) []byte {
		return buildHeader("TLX123456", "", FlagResponse, req[38], MsgPing, 0)
	})

	s := testSession(port)
	if _, err := s.Discover(); err != nil {
		t.Fatalf("Discover() error: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}

	// Identity survives the close; the socket reopens on the next exchange.
	if s.Identity() != "TLX123456" {
		t.Errorf("identity = %q after Close, want %q", s.Identity(), "TLX123456")
	}
	if _, err := s.Discover(); err != nil {
		t.Errorf("Discover() after Close error: %v", err)
	}
}
