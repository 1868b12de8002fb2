package bridge

import (
	"encoding/json"
	"testing"
)

func TestPublishDiscovery(t *testing.T) {
	reader := &fakeReader{identity: "TLX123456"}
	pub := &fakePublisher{}
	b := newTestBridge(reader, pub, Options{})

	b.PublishDiscovery()

	topic := "homeassistant/sensor/danfoss_tlx_grid_power_total/config"
	payload, ok := pub.published[topic]
	if !ok {
		t.Fatalf("no discovery config on %s", topic)
	}

	var cfg map[string]any
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		t.Fatalf("discovery payload is not JSON: %v", err)
	}

	checks := map[string]string{
		"name":                  "Grid power total",
		"state_topic":           "danfoss_tlx/grid_power_total",
		"unique_id":             "danfoss_tlx_grid_power_total",
		"unit_of_measurement":   "W",
		"device_class":          "power",
		"state_class":           "measurement",
		"availability_topic":    "danfoss_tlx/status",
		"payload_available":     "online",
		"payload_not_available": "offline",
	}
	for field, want := range checks {
		if got, _ := cfg[field].(string); got != want {
			t.Errorf("%s = %q, want %q", field, got, want)
		}
	}

	device, _ := cfg["device"].(map[string]any)
	if device == nil {
		t.Fatal("device block missing")
	}
	if got, _ := device["manufacturer"].(string); got != "Danfoss" {
		t.Errorf("device.manufacturer = %q, want %q", got, "Danfoss")
	}
	ids, _ := device["identifiers"].([]any)
	if len(ids) != 1 || ids[0] != "danfoss_tlx_TLX123456" {
		t.Errorf("device.identifiers = %v, want [danfoss_tlx_TLX123456]", ids)
	}
}

func TestPublishDiscoveryTextSensor(t *testing.T) {
	reader := &fakeReader{identity: "TLX123456"}
	pub := &fakePublisher{}
	b := newTestBridge(reader, pub, Options{})

	b.PublishDiscovery()

	payload, ok := pub.published["homeassistant/sensor/danfoss_tlx_operation_mode_text/config"]
	if !ok {
		t.Fatal("no discovery config for the operation mode text sensor")
	}

	var cfg map[string]any
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		t.Fatalf("discovery payload is not JSON: %v", err)
	}
	if got, _ := cfg["state_topic"].(string); got != "danfoss_tlx/operation_mode_text" {
		t.Errorf("state_topic = %q, want %q", got, "danfoss_tlx/operation_mode_text")
	}
	// A text reading carries no unit or classes.
	if _, ok := cfg["unit_of_measurement"]; ok {
		t.Error("text sensor config carries unit_of_measurement")
	}
	if _, ok := cfg["device_class"]; ok {
		t.Error("text sensor config carries device_class")
	}
}

func TestPublishDiscoveryHonoursPVStrings(t *testing.T) {
	reader := &fakeReader{identity: "TLX123456"}

	pubTwo := &fakePublisher{}
	newTestBridge(reader, pubTwo, Options{PVStrings: 2}).PublishDiscovery()
	if _, ok := pubTwo.published["homeassistant/sensor/danfoss_tlx_pv_voltage_3/config"]; ok {
		t.Error("two-string bridge announced a string 3 sensor")
	}

	pubThree := &fakePublisher{}
	newTestBridge(reader, pubThree, Options{PVStrings: 3}).PublishDiscovery()
	if _, ok := pubThree.published["homeassistant/sensor/danfoss_tlx_pv_voltage_3/config"]; !ok {
		t.Error("three-string bridge did not announce the string 3 sensor")
	}
}

func TestDeviceIdentifierFallsBackWithoutIdentity(t *testing.T) {
	reader := &fakeReader{identity: ""}
	pub := &fakePublisher{}
	b := newTestBridge(reader, pub, Options{})

	if got := b.deviceIdentifier(); got != "danfoss_tlx" {
		t.Errorf("deviceIdentifier() = %q, want %q", got, "danfoss_tlx")
	}

	reader.identity = "TLX123456"
	if got := b.deviceIdentifier(); got != "danfoss_tlx_TLX123456" {
		t.Errorf("deviceIdentifier() = %q, want %q", got, "danfoss_tlx_TLX123456")
	}
}

func TestDiscoveryKeysUnique(t *testing.T) {
	reader := &fakeReader{identity: "TLX123456"}
	pub := &fakePublisher{}
	b := newTestBridge(reader, pub, Options{})

	keys := b.discoveryKeys()
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if seen[key] {
			t.Errorf("duplicate discovery key %q", key)
		}
		seen[key] = true
	}
	// grid_energy_today_total sits in both realtime and energy subsets.
	if !seen["grid_energy_today_total"] {
		t.Error("grid_energy_today_total missing from discovery keys")
	}
}
