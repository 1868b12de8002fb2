// Package bridge connects the EtherLynx inverter client to the MQTT broker.
//
// It owns the polling loops, the inverter availability state machine and
// the Home Assistant discovery announcements.
//
// # Architecture
//
//	┌─────────────────────────────────────────────┐
//	│                   Bridge                    │
//	│                                             │
//	│  realtime loop (15 s)  ──┐                  │
//	│  energy loop   (5 min) ──┼── publish ──────────▶ MQTT broker
//	│  system loop   (1 h)   ──┘                  │
//	│                                             │
//	│  offline detector (consecutive empty polls) │
//	└──────────────────┬──────────────────────────┘
//	                   │ ReadParameters
//	                   ▼
//	         etherlynx.Client (UDP)
//
// # Polling Cadences
//
// Three parameter subsets poll at different rates: realtime measurements
// every few seconds, production counters every few minutes, and near-static
// system info hourly. All cadences come from config.
//
// # Availability
//
// A grid-tied inverter powers its comm board from the PV array and goes
// dark every night. After a configured number of consecutive empty realtime
// polls the bridge publishes "offline" (retained) on the availability topic
// and slows to the cooldown cadence. The first successful poll flips it
// back to "online", re-announces discovery and resumes normal cadences.
package bridge
