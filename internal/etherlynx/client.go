package etherlynx

import (
	"errors"
	"time"
)

// Batching defaults. Ten records keep a request datagram at 136 bytes and
// the response comfortably inside one MTU; the pause stops back-to-back
// requests from overrunning the inverter's constrained comm board.
const (
	// DefaultMaxPerBatch is the per-datagram parameter ceiling.
	DefaultMaxPerBatch = 10

	// DefaultBatchPause separates consecutive batch exchanges.
	DefaultBatchPause = 100 * time.Millisecond
)

// Config holds the client configuration for one inverter.
type Config struct {
	// Address is the inverter's IP address or hostname. Required.
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

	// Identity is an optional known inverter serial. When set, discovery
	// is skipped until explicitly re-run.
	Identity string

	// MaxPerBatch caps the parameters packed into one datagram.
	// Default: 10.
	MaxPerBatch int

	// BatchPause is the fixed delay between batch exchanges.
	// Default: 100 ms.
	BatchPause time.Duration
}

// BatchStatus classifies the outcome of one request/response exchange.
type BatchStatus int

// Batch outcomes.
const (
	// BatchOK means a response arrived and decoded.
	BatchOK BatchStatus = iota

	// BatchTimeout means no response arrived within the timeout.
	BatchTimeout

	// BatchError means the response was malformed, carried the packet-level
	// error flag, or the socket failed.
	BatchError
)

// String returns the outcome name.
func (s BatchStatus) String() string {
	switch s {
	case BatchOK:
		return "ok"
	case BatchTimeout:
		return "timeout"
	case BatchError:
		return "error"
	default:
		return "unknown"
	}
}

// BatchOutcome reports one exchange: which keys it carried, how it ended,
// and which individual records the inverter rejected.
type BatchOutcome struct {
	// Status is the exchange-level outcome.
	Status BatchStatus

	// Keys are the catalog keys requested in this batch, in request order.
	Keys []string

	// Failed are the keys whose record carried the per-record error bit.
	// Only populated when Status is BatchOK.
	Failed []string
}

// ReadResult is the outcome of one read call. Values is the successes-only
// view; Batches and Unknown let callers inspect exactly what happened to
// every requested key.
type ReadResult struct {
	// Values maps catalog keys to decoded, scaled values. Keys that timed
	// out, errored or were unknown are absent.
	Values map[string]float64

	// Batches reports each exchange in issue order.
	Batches []BatchOutcome

	// Unknown lists requested keys not present in the catalog.
	Unknown []string
}

// Empty reports whether the read produced no values at all. Callers treat
// an empty result as the offline signal.
func (r ReadResult) Empty() bool {
	return len(r.Values) == 0
}

// Client is the query engine for one inverter: it resolves catalog keys,
// batches them into datagrams, drives the session and merges partial
// results.
//
// Thread Safety:
//   - NOT safe for concurrent use; it shares the session's single-owner
//     model. One Client per inverter, one goroutine driving it.
type Client struct {
	session *Session
	catalog *Catalog

	maxPerBatch int
	batchPause  time.Duration

	logger Logger
}

// Connect creates a client for the configured inverter and binds its UDP
// socket. Only resource allocation failures (no socket, unresolvable
// address) are hard errors; an unreachable inverter is not.
//
// Parameters:
//   - cfg: Client configuration; only Address is required
//
// Returns:
//   - *Client: Ready client (identity may still be undiscovered)
//   - error: Wrapped ErrSocket when the endpoint cannot be created
func Connect(cfg Config) (*Client, error) {
	session := NewSession(SessionConfig{
		Address:          cfg.Address,
		Port:             cfg.Port,
		Timeout:          cfg.Timeout,
		DiscoveryTimeout: cfg.DiscoveryTimeout,
		SourceIdentity:   cfg.SourceIdentity,
	})
	if cfg.Identity != "" {
		session.SetIdentity(cfg.Identity)
	}
	if err := session.Open(); err != nil {
		return nil, err
	}

	maxPerBatch := cfg.MaxPerBatch
	if maxPerBatch <= 0 {
		maxPerBatch = DefaultMaxPerBatch
	}
	batchPause := cfg.BatchPause
	if batchPause == 0 {
		batchPause = DefaultBatchPause
	}

	return &Client{
		session:     session,
		catalog:     DefaultCatalog(),
		maxPerBatch: maxPerBatch,
		batchPause:  batchPause,
	}, nil
}

// SetLogger sets the logger for the client and its session.
func (c *Client) SetLogger(logger Logger) {
	c.logger = logger
	c.session.SetLogger(logger)
}

// Catalog returns the parameter catalog backing this client.
func (c *Client) Catalog() *Catalog {
	return c.catalog
}

// Identity returns the known inverter identity, empty if undiscovered.
func (c *Client) Identity() string {
	return c.session.Identity()
}

// SetIdentity overrides the inverter identity manually, skipping discovery.
func (c *Client) SetIdentity(identity string) {
	c.session.SetIdentity(identity)
}

// Discover runs the ping handshake and caches the inverter identity.
func (c *Client) Discover() (string, error) {
	return c.session.Discover()
}

// Close releases the client's socket. Idempotent.
func (c *Client) Close() error {
	return c.session.Close()
}

// ReadAll reads every catalog parameter.
func (c *Client) ReadAll() ReadResult {
	return c.ReadParameters(c.catalog.Keys())
}

// ReadRealtime reads the frequently polled subset (power, voltage, current,
// frequency, status, today's energy).
func (c *Client) ReadRealtime() ReadResult {
	return c.ReadParameters(c.catalog.RealtimeKeys())
}

// ReadEnergy reads the production counters.
func (c *Client) ReadEnergy() ReadResult {
	return c.ReadParameters(c.catalog.EnergyKeys())
}

// ReadSystem reads the near-static device information.
func (c *Client) ReadSystem() ReadResult {
	return c.ReadParameters(c.catalog.SystemKeys())
}

// ReadParameters reads the given catalog keys from the inverter.
//
// Unknown keys are recorded in the result and dropped, non-fatal. Resolved
// parameters are partitioned into ordered batches of at most MaxPerBatch;
// each batch is one exchange with a fresh transaction number, and a fixed
// pause separates batches. A batch that yields no usable response is
// reported in its outcome and skipped without aborting the remaining
// batches.
//
// When no inverter identity is known, discovery runs first; if it fails the
// result is empty, which callers treat as the offline signal.
func (c *Client) ReadParameters(keys []string) ReadResult {
	result := ReadResult{Values: make(map[string]float64, len(keys))}

	if c.session.Identity() == "" {
		c.logInfo("no inverter identity known, running discovery")
		if _, err := c.session.Discover(); err != nil {
			c.logWarn("discovery failed, treating inverter as offline", "error", err)
			return result
		}
	}

	params := make([]Parameter, 0, len(keys))
	for _, key := range keys {
		p, ok := c.catalog.Lookup(key)
		if !ok {
			c.logWarn("unknown parameter key dropped", "key", key)
			result.Unknown = append(result.Unknown, key)
			continue
		}
		params = append(params, p)
	}

	for start := 0; start < len(params); start += c.maxPerBatch {
		end := min(start+c.maxPerBatch, len(params))
		batch := params[start:end]

		if start > 0 {
			time.Sleep(c.batchPause)
		}

		outcome := c.readBatch(batch, result.Values)
		result.Batches = append(result.Batches, outcome)
	}

	return result
}

// readBatch performs one exchange and merges decoded values into dst.
func (c *Client) readBatch(batch []Parameter, dst map[string]float64) BatchOutcome {
	outcome := BatchOutcome{Keys: make([]string, len(batch))}
	for i, p := range batch {
		outcome.Keys[i] = p.Key
	}

	packet := BuildGetParameters(
		c.session.SourceIdentity(),
		c.session.Identity(),
		batch,
		c.session.NextTransaction(),
	)

	response, err := c.session.SendReceive(packet, 0)
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			c.logWarn("batch timed out", "keys", len(batch))
			outcome.Status = BatchTimeout
		} else {
			c.logError("batch exchange failed", err)
			outcome.Status = BatchError
		}
		return outcome
	}

	if count, ok := ResponseCount(response); ok && int(count) != len(batch) {
		c.logWarn("response record count diverges from request",
			"requested", len(batch), "reported", count)
	}
	if keys := misalignedKeys(response, batch); len(keys) > 0 {
		c.logDebug("response record addresses diverge from request", "keys", keys)
	}

	values, failed, err := ParseParameterResponse(response, batch)
	if err != nil {
		c.logError("batch response rejected", err)
		outcome.Status = BatchError
		return outcome
	}

	for key, value := range values {
		dst[key] = value
	}
	outcome.Status = BatchOK
	outcome.Failed = failed
	return outcome
}

func (c *Client) logDebug(msg string, keysAndValues ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, keysAndValues...)
	}
}

func (c *Client) logInfo(msg string, keysAndValues ...any) {
	if c.logger != nil {
		c.logger.Info(msg, keysAndValues...)
	}
}

func (c *Client) logWarn(msg string, keysAndValues ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, keysAndValues...)
	}
}

func (c *Client) logError(msg string, err error) {
	if c.logger != nil {
		c.logger.Error(msg, "error", err)
	}
}
