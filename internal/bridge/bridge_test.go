package bridge

import (
	"slices"
	"strings"
	"testing"

	"github.com/openlynx/tlx-bridge/internal/etherlynx"
	"github.com/openlynx/tlx-bridge/internal/infrastructure/mqtt"
)

// fakeReader serves canned values and records which keys were requested.
type fakeReader struct {
	values     map[string]float64
	empty      bool
	requested  [][]string
	discovered int
	identity   string
}

func (f *fakeReader) ReadParameters(keys []string) etherlynx.ReadResult {
	f.requested = append(f.requested, slices.Clone(keys))
	result := etherlynx.ReadResult{Values: make(map[string]float64)}
	if f.empty {
		return result
	}
	for _, key := range keys {
		if v, ok := f.values[key]; ok {
			result.Values[key] = v
		}
	}
	return result
}

func (f *fakeReader) Discover() (string, error) {
	f.discovered++
	return f.identity, nil
}

func (f *fakeReader) Identity() string { return f.identity }

// fakePublisher records every retained publish.
type fakePublisher struct {
	published map[string]string
	order     []string
}

func (f *fakePublisher) PublishRetained(topic string, payload []byte) error {
	if f.published == nil {
		f.published = make(map[string]string)
	}
	f.published[topic] = string(payload)
	f.order = append(f.order, topic)
	return nil
}

func (f *fakePublisher) IsConnected() bool { return true }

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func newTestBridge(reader *fakeReader, pub *fakePublisher, opts Options) *Bridge {
	return New(reader, pub, etherlynx.DefaultCatalog(),
		mqtt.NewTopics("danfoss_tlx", "homeassistant"), nopLogger{}, opts)
}

func TestPublishValues(t *testing.T) {
	reader := &fakeReader{
		identity: "TLX123456",
		values: map[string]float64{
			"grid_power_total": 4213,
			"grid_voltage_l1":  237.1,
			"operation_mode":   4,
		},
	}
	pub := &fakePublisher{}
	b := newTestBridge(reader, pub, Options{})

	b.pollRealtime()

	if got := pub.published["danfoss_tlx/grid_power_total"]; got != "4213" {
		t.Errorf("grid_power_total payload = %q, want %q", got, "4213")
	}
	if got := pub.published["danfoss_tlx/grid_voltage_l1"]; got != "237.1" {
		t.Errorf("grid_voltage_l1 payload = %q, want %q", got, "237.1")
	}
	if got := pub.published["danfoss_tlx/operation_mode_text"]; got != "Producing" {
		t.Errorf("operation_mode_text payload = %q, want %q", got, "Producing")
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{4213, "4213"},
		{237.1, "237.1"},
		{0.003, "0.003"},
		{0, "0"},
		{-5, "-5"},
	}
	for _, tt := range tests {
		if got := formatValue(tt.in); got != tt.want {
			t.Errorf("formatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOfflineAfterThreshold(t *testing.T) {
	reader := &fakeReader{identity: "TLX123456", empty: true}
	pub := &fakePublisher{}
	b := newTestBridge(reader, pub, Options{OfflineThreshold: 3})

	for i := 0; i < 2; i++ {
		b.pollRealtime()
	}
	if !b.Online() {
		t.Fatal("offline before reaching the threshold")
	}
	if _, ok := pub.published["danfoss_tlx/status"]; ok {
		t.Fatal("status published before reaching the threshold")
	}

	b.pollRealtime()
	if b.Online() {
		t.Fatal("still online after threshold empty polls")
	}
	if got := pub.published["danfoss_tlx/status"]; got != "offline" {
		t.Errorf("status payload = %q, want %q", got, "offline")
	}
}

func TestRecoveryRepublishesOnlineAndRediscovers(t *testing.T) {
	reader := &fakeReader{identity: "TLX123456", empty: true}
	pub := &fakePublisher{}
	b := newTestBridge(reader, pub, Options{OfflineThreshold: 1})

	b.pollRealtime()
	if b.Online() {
		t.Fatal("still online after threshold empty polls")
	}

	// Morning: the inverter answers again.
	reader.empty = false
	reader.values = map[string]float64{"grid_power_total": 120}
	b.pollRealtime()

	if !b.Online() {
		t.Fatal("still offline after a successful poll")
	}
	if got := pub.published["danfoss_tlx/status"]; got != "online" {
		t.Errorf("status payload = %q, want %q", got, "online")
	}
	if reader.discovered != 1 {
		t.Errorf("discoveries on wakeup = %d, want 1", reader.discovered)
	}
	if got := pub.published["danfoss_tlx/grid_power_total"]; got != "120" {
		t.Errorf("reading after recovery = %q, want %q", got, "120")
	}
	if b.misses != 0 {
		t.Errorf("miss counter = %d after recovery, want 0", b.misses)
	}
}

func TestMissCounterResetsOnSuccess(t *testing.T) {
	reader := &fakeReader{
		identity: "TLX123456",
		values:   map[string]float64{"grid_power_total": 100},
	}
	pub := &fakePublisher{}
	b := newTestBridge(reader, pub, Options{OfflineThreshold: 3})

	reader.empty = true
	b.pollRealtime()
	b.pollRealtime()

	reader.empty = false
	b.pollRealtime()
	if b.misses != 0 {
		t.Fatalf("miss counter = %d after success, want 0", b.misses)
	}

	// Two more misses must not tip it offline; the streak restarted.
	reader.empty = true
	b.pollRealtime()
	b.pollRealtime()
	if !b.Online() {
		t.Error("went offline despite a broken miss streak")
	}
}

func TestThirdStringKeys(t *testing.T) {
	reader := &fakeReader{identity: "TLX123456"}
	pub := &fakePublisher{}

	two := newTestBridge(reader, pub, Options{PVStrings: 2})
	if slices.Contains(two.realtimeKeys, "pv_voltage_3") {
		t.Error("two-string bridge polls pv_voltage_3")
	}
	if slices.Contains(two.energyKeys, "pv_energy_3") {
		t.Error("two-string bridge polls pv_energy_3")
	}

	three := newTestBridge(reader, pub, Options{PVStrings: 3})
	for _, key := range []string{"pv_voltage_3", "pv_current_3", "pv_power_3"} {
		if !slices.Contains(three.realtimeKeys, key) {
			t.Errorf("three-string bridge missing %s in realtime keys", key)
		}
	}
	if !slices.Contains(three.energyKeys, "pv_energy_3") {
		t.Error("three-string bridge missing pv_energy_3 in energy keys")
	}
}

func TestPollSubsetsRequestExpectedKeys(t *testing.T) {
	reader := &fakeReader{identity: "TLX123456", values: map[string]float64{}}
	pub := &fakePublisher{}
	b := newTestBridge(reader, pub, Options{})

	b.pollEnergy()
	b.pollSystem()

	if len(reader.requested) != 2 {
		t.Fatalf("requests = %d, want 2", len(reader.requested))
	}
	if !slices.Contains(reader.requested[0], "total_energy") {
		t.Error("energy poll did not request total_energy")
	}
	if !slices.Contains(reader.requested[1], "nominal_power") {
		t.Error("system poll did not request nominal_power")
	}
	for _, key := range reader.requested[1] {
		if strings.HasPrefix(key, "grid_") {
			t.Errorf("system poll requested measurement key %s", key)
		}
	}
}
