// Package mqtt provides MQTT client connectivity for the TLX bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Last Will and Testament (LWT) for availability tracking
//   - Connection health monitoring
//
// # Architecture
//
// The bridge is a one-way data source: decoded inverter readings flow to
// the broker, and Home Assistant consumes them via MQTT discovery. The
// bridge never subscribes.
//
//	Inverter (UDP) → TLX Bridge → MQTT Broker → Home Assistant
//
// # Topic Scheme
//
//	danfoss_tlx/<key>                               one reading per parameter
//	danfoss_tlx/status                              availability (online/offline)
//	homeassistant/sensor/danfoss_tlx_<key>/config   discovery config
//
// # Security Considerations
//
//   - TLS is available for non-local brokers (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := client.Topics().Reading("grid_power_total")
//	client.PublishRetained(topic, []byte("4213"))
package mqtt
