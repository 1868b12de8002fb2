package mqtt

import "fmt"

// Default topic prefixes. Both are overridable via mqtt.base_topic and
// mqtt.discovery_prefix in config.yaml.
const (
	// DefaultBaseTopic is the base for all inverter reading topics.
	DefaultBaseTopic = "danfoss_tlx"

	// DefaultDiscoveryPrefix is the Home Assistant MQTT discovery prefix.
	DefaultDiscoveryPrefix = "homeassistant"
)

// Topics builds the bridge's MQTT topic names. Using these helpers keeps
// topic naming consistent between the publisher and the discovery payloads,
// which reference the same topics by string.
//
//	topics := mqtt.NewTopics("danfoss_tlx", "homeassistant")
//	topics.Reading("grid_power_total") // "danfoss_tlx/grid_power_total"
type Topics struct {
	base      string
	discovery string
}

// NewTopics creates a topic builder. Empty arguments fall back to the
// defaults.
func NewTopics(baseTopic, discoveryPrefix string) Topics {
	if baseTopic == "" {
		baseTopic = DefaultBaseTopic
	}
	if discoveryPrefix == "" {
		discoveryPrefix = DefaultDiscoveryPrefix
	}
	return Topics{base: baseTopic, discovery: discoveryPrefix}
}

// Reading returns the topic carrying one decoded parameter value.
//
// Example: danfoss_tlx/grid_power_total
func (t Topics) Reading(key string) string {
	return fmt.Sprintf("%s/%s", t.base, key)
}

// Status returns the bridge availability topic. Payloads are the plain
// strings "online" and "offline", matching Home Assistant's availability
// convention; the LWT publishes here too.
//
// Example: danfoss_tlx/status
func (t Topics) Status() string {
	return fmt.Sprintf("%s/status", t.base)
}

// SensorDiscovery returns the Home Assistant discovery config topic for one
// sensor entity.
//
// Example: homeassistant/sensor/danfoss_tlx_grid_power_total/config
func (t Topics) SensorDiscovery(uniqueID string) string {
	return fmt.Sprintf("%s/sensor/%s/config", t.discovery, uniqueID)
}

// SensorUniqueID returns the entity unique ID for a parameter key, scoped
// by the base topic so two bridges on one broker stay distinct.
//
// Example: danfoss_tlx_grid_power_total
func (t Topics) SensorUniqueID(key string) string {
	return fmt.Sprintf("%s_%s", t.base, key)
}
