package bridge

import (
	"context"
	"slices"
	"strconv"
	"time"

	"github.com/openlynx/tlx-bridge/internal/etherlynx"
	"github.com/openlynx/tlx-bridge/internal/infrastructure/mqtt"
)

// Default polling cadences and offline policy, overridable via config.
const (
	// DefaultRealtimeInterval is the cadence of the measurement poll.
	DefaultRealtimeInterval = 15 * time.Second

	// DefaultEnergyInterval is the cadence of the production counter poll.
	DefaultEnergyInterval = 5 * time.Minute

	// DefaultSystemInterval is the cadence of the system info poll.
	DefaultSystemInterval = time.Hour

	// DefaultOfflineThreshold is the number of consecutive empty realtime
	// polls before the inverter is declared offline.
	DefaultOfflineThreshold = 10

	// DefaultOfflineCooldown is the poll pause while the inverter is dark.
	DefaultOfflineCooldown = time.Minute
)

// InverterReader is the slice of the etherlynx client the bridge drives.
type InverterReader interface {
	ReadParameters(keys []string) etherlynx.ReadResult
	Discover() (string, error)
	Identity() string
}

// Publisher is the slice of the MQTT client the bridge publishes through.
type Publisher interface {
	PublishRetained(topic string, payload []byte) error
	IsConnected() bool
}

// Logger is the structured logging interface the bridge emits through.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Options configures a Bridge. Zero values fall back to the defaults.
type Options struct {
	// RealtimeInterval, EnergyInterval and SystemInterval are the three
	// poll cadences.
	RealtimeInterval time.Duration
	EnergyInterval   time.Duration
	SystemInterval   time.Duration

	// OfflineThreshold is the consecutive empty realtime polls tolerated
	// before the inverter is declared offline.
	OfflineThreshold int

	// OfflineCooldown is the poll pause while offline.
	OfflineCooldown time.Duration

	// PVStrings is the number of connected PV strings (1-3). String 3
	// parameters are only polled on three-string installations.
	PVStrings int
}

// Bridge runs the polling loops and forwards decoded readings to MQTT.
//
// Thread Safety:
//   - Run owns the inverter reader exclusively; create one Bridge per
//     inverter and call Run from a single goroutine.
type Bridge struct {
	reader    InverterReader
	publisher Publisher
	catalog   *etherlynx.Catalog
	topics    mqtt.Topics
	logger    Logger
	opts      Options

	realtimeKeys []string
	energyKeys   []string
	systemKeys   []string

	online bool
	misses int
}

// New creates a bridge wiring the inverter reader to the publisher.
//
// Parameters:
//   - reader: Inverter client (typically *etherlynx.Client)
//   - publisher: MQTT client (typically *mqtt.Client)
//   - catalog: Parameter catalog backing the reader
//   - topics: Topic builder matching the publisher's configuration
//   - logger: Structured logger, must not be nil
//   - opts: Cadences and offline policy; zero values use defaults
func New(reader InverterReader, publisher Publisher, catalog *etherlynx.Catalog,
	topics mqtt.Topics, logger Logger, opts Options) *Bridge {

	if opts.RealtimeInterval <= 0 {
		opts.RealtimeInterval = DefaultRealtimeInterval
	}
	if opts.EnergyInterval <= 0 {
		opts.EnergyInterval = DefaultEnergyInterval
	}
	if opts.SystemInterval <= 0 {
		opts.SystemInterval = DefaultSystemInterval
	}
	if opts.OfflineThreshold <= 0 {
		opts.OfflineThreshold = DefaultOfflineThreshold
	}
	if opts.OfflineCooldown <= 0 {
		opts.OfflineCooldown = DefaultOfflineCooldown
	}
	if opts.PVStrings <= 0 {
		opts.PVStrings = 2
	}

	b := &Bridge{
		reader:    reader,
		publisher: publisher,
		catalog:   catalog,
		topics:    topics,
		logger:    logger,
		opts:      opts,

		// Optimistic start: the inverter is presumed reachable until the
		// miss counter proves otherwise, so the first polls run at the
		// normal cadence.
		online: true,
	}

	b.realtimeKeys = b.withThirdString(catalog.RealtimeKeys(),
		"pv_voltage_3", "pv_current_3", "pv_power_3")
	b.energyKeys = b.withThirdString(catalog.EnergyKeys(), "pv_energy_3")
	b.systemKeys = catalog.SystemKeys()

	return b
}

// withThirdString appends string-3 keys on three-string installations.
func (b *Bridge) withThirdString(keys []string, extra ...string) []string {
	keys = slices.Clone(keys)
	if b.opts.PVStrings >= 3 {
		keys = append(keys, extra...)
	}
	return keys
}

// Run drives the bridge until ctx is cancelled.
//
// Startup order: announce discovery configs, then one poll of every subset
// so Home Assistant has values immediately. After that the three tickers
// take over; energy and system polls are suppressed while the inverter is
// offline to avoid pointless UDP traffic.
//
// Returns:
//   - error: ctx.Err() after cancellation; Run has no other exit path
func (b *Bridge) Run(ctx context.Context) error {
	b.PublishDiscovery()
	b.pollSystem()
	b.pollEnergy()
	b.pollRealtime()

	realtime := time.NewTicker(b.currentRealtimeInterval())
	defer realtime.Stop()
	energy := time.NewTicker(b.opts.EnergyInterval)
	defer energy.Stop()
	system := time.NewTicker(b.opts.SystemInterval)
	defer system.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-realtime.C:
			wasOnline := b.online
			b.pollRealtime()
			if wasOnline != b.online {
				realtime.Reset(b.currentRealtimeInterval())
				if b.online {
					// Back from the night: refresh the slow subsets now
					// instead of waiting out their tickers.
					b.PublishDiscovery()
					b.pollEnergy()
					b.pollSystem()
				}
			}
		case <-energy.C:
			if b.online {
				b.pollEnergy()
			}
		case <-system.C:
			if b.online {
				b.pollSystem()
			}
		}
	}
}

// Online reports the current inverter availability state.
func (b *Bridge) Online() bool {
	return b.online
}

func (b *Bridge) currentRealtimeInterval() time.Duration {
	if b.online {
		return b.opts.RealtimeInterval
	}
	return b.opts.OfflineCooldown
}

// pollRealtime reads the measurement subset and drives the availability
// state machine.
func (b *Bridge) pollRealtime() {
	result := b.reader.ReadParameters(b.realtimeKeys)

	if result.Empty() {
		b.misses++
		b.logger.Debug("realtime poll empty", "consecutive", b.misses)
		if b.online && b.misses >= b.opts.OfflineThreshold {
			b.goOffline()
		}
		return
	}

	if !b.online {
		b.goOnline()
	}
	b.misses = 0
	b.publishValues(result)
}

// pollEnergy reads the production counters.
func (b *Bridge) pollEnergy() {
	b.publishValues(b.reader.ReadParameters(b.energyKeys))
}

// pollSystem reads the near-static system info.
func (b *Bridge) pollSystem() {
	b.publishValues(b.reader.ReadParameters(b.systemKeys))
}

// goOffline marks the inverter unavailable and retains "offline" so Home
// Assistant flips the entities to unavailable until morning.
func (b *Bridge) goOffline() {
	b.online = false
	b.logger.Info("inverter offline", "after_empty_polls", b.misses)
	if err := b.publisher.PublishRetained(b.topics.Status(), []byte("offline")); err != nil {
		b.logger.Warn("publishing offline status failed", "error", err)
	}
}

// goOnline marks the inverter available again. Identity is re-acquired in
// case the comm board rebooted overnight.
func (b *Bridge) goOnline() {
	b.online = true
	b.misses = 0
	if _, err := b.reader.Discover(); err != nil {
		b.logger.Warn("re-discovery after wakeup failed", "error", err)
	}
	b.logger.Info("inverter online", "identity", b.reader.Identity())
	if err := b.publisher.PublishRetained(b.topics.Status(), []byte("online")); err != nil {
		b.logger.Warn("publishing online status failed", "error", err)
	}
}

// publishValues forwards every decoded value to its reading topic. The
// operation mode additionally yields a derived text reading.
func (b *Bridge) publishValues(result etherlynx.ReadResult) {
	for key, value := range result.Values {
		topic := b.topics.Reading(key)
		if err := b.publisher.PublishRetained(topic, []byte(formatValue(value))); err != nil {
			b.logger.Warn("publishing reading failed", "key", key, "error", err)
		}
	}

	if mode, ok := result.Values["operation_mode"]; ok {
		text := etherlynx.StatusText(int(mode))
		topic := b.topics.Reading("operation_mode_text")
		if err := b.publisher.PublishRetained(topic, []byte(text)); err != nil {
			b.logger.Warn("publishing reading failed", "key", "operation_mode_text", "error", err)
		}
	}
}

// formatValue renders a reading without trailing zeros (4213, 237.1, 0.003).
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
