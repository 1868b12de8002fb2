// Package etherlynx implements the Danfoss EtherLynx protocol client for
// TLX Pro solar inverters.
//
// EtherLynx is a UDP-based control and monitoring protocol (port 48004)
// documented in the Danfoss "ComLynx and EtherLynx User Guide". Every packet
// starts with a fixed 52-byte header followed by a typed payload; parameter
// reads carry 8-byte records addressed by module/index/subindex.
//
// # Architecture
//
// The package is layered, leaves first:
//
//	┌──────────────┐     ┌──────────────┐     ┌──────────────┐
//	│    Client    │────►│   Session    │────►│   Inverter   │
//	│ (query engine)│     │ (UDP socket) │ UDP │  (EtherLynx) │
//	└──────┬───────┘     └──────────────┘     └──────────────┘
//	       │
//	       ▼
//	┌──────────────┐     ┌──────────────┐
//	│   Catalog    │     │ Packet codec │
//	│ (parameters) │     │ (build/parse)│
//	└──────────────┘     └──────────────┘
//
//   - The packet codec is a set of stateless functions converting logical
//     requests and responses to and from raw datagrams.
//   - A Session owns one UDP endpoint, the discovered inverter identity and
//     the transaction counter, and performs one send/receive exchange at a
//     time.
//   - The Client resolves catalog keys, batches them into datagrams, drives
//     the session and merges partial results.
//
// # Byte Order
//
// The protocol mixes byte orders: all multi-byte header fields are
// big-endian, while the 4-byte value field of each parameter record is
// little-endian ("LSB first" per the user guide). This asymmetry is a fixed
// protocol property and is preserved exactly.
//
// # Failure Model
//
// UDP endpoints on these inverters are lossy and sleep at night. A timeout is
// therefore a normal outcome (ErrTimeout), never escalated; callers receive
// best-effort partial results and treat emptiness as an offline signal. Only
// resource allocation failures (no socket) surface as hard errors.
//
// # Thread Safety
//
// A Session (and the Client wrapping it) is exclusively owned by one polling
// flow. It is NOT safe for concurrent use: the socket, transaction counter
// and discovered identity are mutable shared state. Use one Client per
// inverter, driven from a single goroutine.
package etherlynx
