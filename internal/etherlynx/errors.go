package etherlynx

import "errors"

// Domain errors for the EtherLynx client package.
var (
	// ErrTimeout is returned when no datagram arrives within the exchange
	// timeout. This is a normal outcome for a sleeping or unreachable
	// inverter, not a fault.
	ErrTimeout = errors.New("etherlynx: response timeout")

	// ErrShortPacket is returned when a received buffer is smaller than the
	// fixed 52-byte header or truncates its declared payload.
	ErrShortPacket = errors.New("etherlynx: packet too short")

	// ErrNotResponse is returned when a received packet does not carry the
	// response flag.
	ErrNotResponse = errors.New("etherlynx: not a response packet")

	// ErrDeviceError is returned when the inverter sets the packet-level
	// error flag in a response.
	ErrDeviceError = errors.New("etherlynx: inverter reported error")

	// ErrNoIdentity is returned when a ping response carries an empty
	// source identity.
	ErrNoIdentity = errors.New("etherlynx: ping response carried no identity")

	// ErrSocket is returned when the UDP socket fails at the OS level.
	// The session is torn down and must be reopened before reuse.
	ErrSocket = errors.New("etherlynx: socket failure")
)
