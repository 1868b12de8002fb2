package etherlynx

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// Default timeouts for inverter communication. Polling exchanges answer
// within a second when the inverter is awake; discovery gets longer because
// the comm board wakes lazily.
const (
	// DefaultTimeout is the per-exchange response timeout.
	DefaultTimeout = 3 * time.Second

	// DefaultDiscoveryTimeout is the response timeout for the ping handshake.
	DefaultDiscoveryTimeout = 5 * time.Second

	// DefaultSourceIdentity is the dummy serial number this side presents.
	// Per the user guide, a non-inverter source must use a dummy serial not
	// present in the inverter network.
	DefaultSourceIdentity = "HA_MASTER"

	// receiveBufferSize is the read buffer for incoming datagrams. Largest
	// real responses are well under 1 KiB.
	receiveBufferSize = 4096
)

// Logger is the optional structured logging interface, compatible with
// logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// SessionConfig holds the transport parameters for one inverter.
type SessionConfig struct {
	// Address is the inverter's IP address or hostname.
	Address string

	// Port is the inverter's UDP port. Default: 48004.
	Port int

	// Timeout is the per-exchange response timeout. Default: 3 s.
	Timeout time.Duration

	// DiscoveryTimeout is the response timeout for discovery pings.
	// Default: 5 s.
	DiscoveryTimeout time.Duration

	// SourceIdentity is the dummy serial presented as packet source.
	// Default: "HA_MASTER".
	SourceIdentity string
}

// Session owns one UDP endpoint, the inverter identity and the transaction
// counter, and performs one send/receive exchange at a time.
//
// Thread Safety:
//   - NOT safe for concurrent use. One polling flow exclusively owns a
//     session; multiple inverters need multiple sessions.
type Session struct {
	cfg    SessionConfig
	conn   *net.UDPConn
	remote *net.UDPAddr

	identity string
	txn      uint8

	logger Logger
}

// NewSession creates a session for the configured inverter. The socket is
// created lazily on first use; NewSession itself cannot fail.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.DiscoveryTimeout == 0 {
		cfg.DiscoveryTimeout = DefaultDiscoveryTimeout
	}
	if cfg.SourceIdentity == "" {
		cfg.SourceIdentity = DefaultSourceIdentity
	}
	return &Session{cfg: cfg}
}

// SetLogger sets the logger for this session.
func (s *Session) SetLogger(logger Logger) {
	s.logger = logger
}

// SourceIdentity returns the identity this session presents as packet source.
func (s *Session) SourceIdentity() string {
	return s.cfg.SourceIdentity
}

// Identity returns the inverter identity learned by Discover, or the value
// set via SetIdentity. Empty until one of those happens.
func (s *Session) Identity() string {
	return s.identity
}

// SetIdentity overrides the inverter identity manually, skipping discovery.
func (s *Session) SetIdentity(identity string) {
	s.identity = identity
}

// Open binds a UDP socket on an ephemeral local port and resolves the
// inverter address. Idempotent; SendReceive calls it lazily.
//
// Returns:
//   - error: Hard failure only: the address cannot be resolved or no
//     socket can be allocated.
func (s *Session) Open() error {
	if s.conn != nil {
		return nil
	}

	remote, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", s.cfg.Address, s.cfg.Port))
	if err != nil {
		return fmt.Errorf("%w: resolve %s: %w", ErrSocket, s.cfg.Address, err)
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{})
	if err != nil {
		return fmt.Errorf("%w: bind: %w", ErrSocket, err)
	}

	s.remote = remote
	s.conn = conn
	s.logDebug("socket opened", "local", conn.LocalAddr().String(), "remote", remote.String())
	return nil
}

// SendReceive sends one datagram to the inverter and blocks until one
// datagram arrives or the timeout elapses. A timeout yields ErrTimeout and
// is a normal outcome; the inverter may be asleep or unreachable. There is
// no internal retry; retry policy belongs to the caller.
//
// Parameters:
//   - packet: Complete EtherLynx packet (header + payload)
//   - timeout: Response deadline; 0 uses the configured exchange timeout
//
// Returns:
//   - []byte: The received datagram
//   - error: ErrTimeout on no response; a wrapped ErrSocket on OS-level
//     failure, after which the session is torn down and must be reopened
func (s *Session) SendReceive(packet []byte, timeout time.Duration) ([]byte, error) {
	if err := s.Open(); err != nil {
		return nil, err
	}
	if timeout == 0 {
		timeout = s.cfg.Timeout
	}

	if _, err := s.conn.WriteToUDP(packet, s.remote); err != nil {
		s.teardown("send failed", err)
		return nil, fmt.Errorf("%w: send: %w", ErrSocket, err)
	}
	s.logDebug("sent", "bytes", len(packet), "remote", s.remote.String())

	if err := s.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		s.teardown("set deadline failed", err)
		return nil, fmt.Errorf("%w: set deadline: %w", ErrSocket, err)
	}

	buf := make([]byte, receiveBufferSize)
	n, addr, err := s.conn.ReadFromUDP(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			s.logDebug("no response within timeout", "timeout", timeout.String())
			return nil, ErrTimeout
		}
		s.teardown("receive failed", err)
		return nil, fmt.Errorf("%w: receive: %w", ErrSocket, err)
	}

	s.logDebug("received", "bytes", n, "from", addr.String())
	return buf[:n], nil
}

// Discover sends a broadcast ping with the discovery timeout and caches the
// responding inverter's identity. Safe to call again at any time to
// re-acquire identity after a reset; failure leaves the session reusable.
//
// Returns:
//   - string: The discovered identity
//   - error: ErrTimeout when nothing answers, a parse sentinel for a
//     malformed reply, or a wrapped ErrSocket
func (s *Session) Discover() (string, error) {
	packet := BuildPing(s.cfg.SourceIdentity)
	response, err := s.SendReceive(packet, s.cfg.DiscoveryTimeout)
	if err != nil {
		return "", err
	}

	identity, err := ParsePingResponse(response)
	if err != nil {
		return "", err
	}

	s.identity = identity
	s.logInfo("inverter discovered", "identity", identity)
	return identity, nil
}

// NextTransaction increments the transaction counter and wraps it modulo
// 256. The number correlates requests with responses in logs; the protocol
// does not require strict echo matching for this device class.
func (s *Session) NextTransaction() byte {
	s.txn = (s.txn + 1) & 0xFF
	return s.txn
}

// Close releases the socket. Idempotent; the session is unusable until the
// next SendReceive (or Open) reopens it. The discovered identity survives.
func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	s.remote = nil
	return err
}

// teardown closes the socket after an OS-level failure so the next exchange
// starts from a fresh endpoint.
func (s *Session) teardown(msg string, err error) {
	s.logError(msg, err)
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
		s.remote = nil
	}
}

func (s *Session) logDebug(msg string, keysAndValues ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, keysAndValues...)
	}
}

func (s *Session) logInfo(msg string, keysAndValues ...any) {
	if s.logger != nil {
		s.logger.Info(msg, keysAndValues...)
	}
}

func (s *Session) logError(msg string, err error) {
	if s.logger != nil {
		s.logger.Error(msg, "error", err)
	}
}
