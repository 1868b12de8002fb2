package bridge

import (
	"encoding/json"
)

// deviceInfo is the Home Assistant device registry block shared by every
// sensor entity, grouping them under one device.
type deviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
}

// sensorConfig is one Home Assistant MQTT discovery payload.
type sensorConfig struct {
	Name                string     `json:"name"`
	StateTopic          string     `json:"state_topic"`
	UniqueID            string     `json:"unique_id"`
	UnitOfMeasurement   string     `json:"unit_of_measurement,omitempty"`
	DeviceClass         string     `json:"device_class,omitempty"`
	StateClass          string     `json:"state_class,omitempty"`
	AvailabilityTopic   string     `json:"availability_topic"`
	PayloadAvailable    string     `json:"payload_available"`
	PayloadNotAvailable string     `json:"payload_not_available"`
	Device              deviceInfo `json:"device"`
}

// PublishDiscovery announces every polled parameter to Home Assistant as a
// retained discovery config. Safe to call repeatedly; HA treats a repeat as
// an update.
func (b *Bridge) PublishDiscovery() {
	device := deviceInfo{
		Identifiers:  []string{b.deviceIdentifier()},
		Name:         "Danfoss TLX",
		Manufacturer: "Danfoss",
		Model:        "TLX Pro",
	}

	for _, key := range b.discoveryKeys() {
		p, ok := b.catalog.Lookup(key)
		if !ok {
			continue
		}
		b.publishSensorConfig(key, sensorConfig{
			Name:              p.Name,
			UnitOfMeasurement: p.Unit,
			DeviceClass:       p.DeviceClass,
			StateClass:        p.StateClass,
			Device:            device,
		})
	}

	// Derived text sensor: no unit, no classes.
	b.publishSensorConfig("operation_mode_text", sensorConfig{
		Name:   "Operation mode",
		Device: device,
	})
}

// discoveryKeys returns every key any poll loop can publish.
func (b *Bridge) discoveryKeys() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, set := range [][]string{b.realtimeKeys, b.energyKeys, b.systemKeys} {
		for _, key := range set {
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	return keys
}

// deviceIdentifier scopes the HA device by inverter serial when known.
func (b *Bridge) deviceIdentifier() string {
	if id := b.reader.Identity(); id != "" {
		return "danfoss_tlx_" + id
	}
	return "danfoss_tlx"
}

// publishSensorConfig fills the per-entity topics and publishes the config
// retained on the discovery topic.
func (b *Bridge) publishSensorConfig(key string, cfg sensorConfig) {
	uid := b.topics.SensorUniqueID(key)
	cfg.StateTopic = b.topics.Reading(key)
	cfg.UniqueID = uid
	cfg.AvailabilityTopic = b.topics.Status()
	cfg.PayloadAvailable = "online"
	cfg.PayloadNotAvailable = "offline"

	payload, err := json.Marshal(cfg)
	if err != nil {
		b.logger.Error("marshalling discovery config failed", "key", key, "error", err)
		return
	}
	if err := b.publisher.PublishRetained(b.topics.SensorDiscovery(uid), payload); err != nil {
		b.logger.Warn("publishing discovery config failed", "key", key, "error", err)
	}
}
