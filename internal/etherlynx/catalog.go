package etherlynx

import "fmt"

// ModuleCommBoard is the module ID of the TLX Pro communication board.
// All monitorable parameters of this inverter family live on it.
const ModuleCommBoard = 8

// Parameter describes one monitorable inverter value: its protocol
// coordinates (module/index/subindex), the declared data type, and the
// decode rule (scale) applied after the raw value is read.
//
// Parameters are immutable catalog entries, built once at startup and
// looked up by key.
type Parameter struct {
	// Key is the unique catalog key, e.g. "grid_power_total".
	Key string

	// Name is the human-readable display name.
	Name string

	// Index and Subindex form the two-level parameter address.
	Index    byte
	Subindex byte

	// Type is the declared data type used to decode the 4-byte raw value.
	Type DataType

	// ModuleID addresses the firmware sub-unit (always the comm board here).
	ModuleID byte

	// Unit is the engineering unit of the scaled value, e.g. "W".
	Unit string

	// Scale converts the raw value to the real one: real = raw × Scale.
	Scale float64

	// DeviceClass and StateClass are optional classification tags used by
	// the MQTT discovery layer. Empty when not applicable.
	DeviceClass string
	StateClass  string
}

// Catalog is the immutable table of known inverter parameters.
//
// Build it once with DefaultCatalog and share it by reference; it carries
// no mutable state.
type Catalog struct {
	params map[string]Parameter
	order  []string
}

// Lookup returns the parameter for key, or false if the key is unknown.
func (c *Catalog) Lookup(key string) (Parameter, bool) {
	p, ok := c.params[key]
	return p, ok
}

// Keys returns all catalog keys in definition order.
func (c *Catalog) Keys() []string {
	keys := make([]string, len(c.order))
	copy(keys, c.order)
	return keys
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int {
	return len(c.order)
}

// RealtimeKeys returns the frequently polled subset: power, voltage,
// current, frequency, status and today's energy.
func (c *Catalog) RealtimeKeys() []string {
	return []string{
		"grid_power_total",
		"grid_power_l1", "grid_power_l2", "grid_power_l3",
		"pv_voltage_1", "pv_voltage_2",
		"pv_current_1", "pv_current_2",
		"pv_power_1", "pv_power_2",
		"grid_voltage_l1", "grid_voltage_l2", "grid_voltage_l3",
		"grid_current_l1", "grid_current_l2", "grid_current_l3",
		"grid_frequency_avg",
		"operation_mode",
		"grid_energy_today_total",
	}
}

// EnergyKeys returns the production counters, polled at a slower cadence.
func (c *Catalog) EnergyKeys() []string {
	return []string{
		"total_energy", "energy_today",
		"grid_energy_today_total",
		"grid_energy_today_l1", "grid_energy_today_l2", "grid_energy_today_l3",
		"pv_energy_1", "pv_energy_2",
		"production_today_log", "production_this_week",
		"production_this_month", "production_this_year",
	}
}

// SystemKeys returns the near-static device information subset.
func (c *Catalog) SystemKeys() []string {
	return []string{"nominal_power", "sw_version", "hardware_type"}
}

// operationModes maps the operation_mode parameter value to a status label.
// Fixed 9-entry table from the user guide's status information appendix.
var operationModes = map[int]string{
	0: "Unavailable",
	1: "Off",
	2: "Standby",
	3: "Starting",
	4: "Producing",
	5: "Grid fault",
	6: "Fault",
	7: "Self-test",
	8: "Night/sleep",
}

// StatusText returns the human-readable label for an operation mode code.
// Unknown codes yield "Unknown (<code>)".
func StatusText(mode int) string {
	if text, ok := operationModes[mode]; ok {
		return text
	}
	return fmt.Sprintf("Unknown (%d)", mode)
}

// DefaultCatalog builds the full TLX Pro parameter table.
//
// Source: Danfoss EtherLynx User Guide, Appendix C (inverter parameters).
// Index groups: 0x01 raw counters, 0x02 smoothed measurements, 0x0A status,
// 0x1E/0x32/0x47 system info, 120 energy log.
func DefaultCatalog() *Catalog {
	defs := []Parameter{
		// Raw counters.
		{Key: "total_energy", Name: "Total production", Index: 0x01, Subindex: 0x02, Type: TypeUnsigned32, Unit: "Wh", Scale: 1, DeviceClass: "energy", StateClass: "total_increasing"},
		{Key: "energy_today", Name: "Production today", Index: 0x01, Subindex: 0x04, Type: TypeUnsigned32, Unit: "Wh", Scale: 1, DeviceClass: "energy", StateClass: "total_increasing"},

		// PV strings (DC side).
		{Key: "pv_voltage_1", Name: "PV voltage string 1", Index: 0x02, Subindex: 0x28, Type: TypeUnsigned16, Unit: "V", Scale: 0.1, DeviceClass: "voltage", StateClass: "measurement"},
		{Key: "pv_voltage_2", Name: "PV voltage string 2", Index: 0x02, Subindex: 0x29, Type: TypeUnsigned16, Unit: "V", Scale: 0.1, DeviceClass: "voltage", StateClass: "measurement"},
		{Key: "pv_voltage_3", Name: "PV voltage string 3", Index: 0x02, Subindex: 0x2A, Type: TypeUnsigned16, Unit: "V", Scale: 0.1, DeviceClass: "voltage", StateClass: "measurement"},
		{Key: "pv_current_1", Name: "PV current string 1", Index: 0x02, Subindex: 0x2D, Type: TypeUnsigned16, Unit: "A", Scale: 0.001, DeviceClass: "current", StateClass: "measurement"},
		{Key: "pv_current_2", Name: "PV current string 2", Index: 0x02, Subindex: 0x2E, Type: TypeUnsigned16, Unit: "A", Scale: 0.001, DeviceClass: "current", StateClass: "measurement"},
		{Key: "pv_current_3", Name: "PV current string 3", Index: 0x02, Subindex: 0x2F, Type: TypeUnsigned16, Unit: "A", Scale: 0.001, DeviceClass: "current", StateClass: "measurement"},
		{Key: "pv_power_1", Name: "PV power string 1", Index: 0x02, Subindex: 0x32, Type: TypeUnsigned16, Unit: "W", Scale: 1, DeviceClass: "power", StateClass: "measurement"},
		{Key: "pv_power_2", Name: "PV power string 2", Index: 0x02, Subindex: 0x33, Type: TypeUnsigned16, Unit: "W", Scale: 1, DeviceClass: "power", StateClass: "measurement"},
		{Key: "pv_power_3", Name: "PV power string 3", Index: 0x02, Subindex: 0x34, Type: TypeUnsigned16, Unit: "W", Scale: 1, DeviceClass: "power", StateClass: "measurement"},
		{Key: "pv_energy_1", Name: "PV energy string 1", Index: 0x02, Subindex: 0x37, Type: TypeUnsigned32, Unit: "Wh", Scale: 1, DeviceClass: "energy", StateClass: "total_increasing"},
		{Key: "pv_energy_2", Name: "PV energy string 2", Index: 0x02, Subindex: 0x38, Type: TypeUnsigned32, Unit: "Wh", Scale: 1, DeviceClass: "energy", StateClass: "total_increasing"},
		{Key: "pv_energy_3", Name: "PV energy string 3", Index: 0x02, Subindex: 0x39, Type: TypeUnsigned32, Unit: "Wh", Scale: 1, DeviceClass: "energy", StateClass: "total_increasing"},

		// Grid voltages.
		{Key: "grid_voltage_l1", Name: "Grid voltage L1", Index: 0x02, Subindex: 0x3C, Type: TypeUnsigned16, Unit: "V", Scale: 0.1, DeviceClass: "voltage", StateClass: "measurement"},
		{Key: "grid_voltage_l2", Name: "Grid voltage L2", Index: 0x02, Subindex: 0x3D, Type: TypeUnsigned16, Unit: "V", Scale: 0.1, DeviceClass: "voltage", StateClass: "measurement"},
		{Key: "grid_voltage_l3", Name: "Grid voltage L3", Index: 0x02, Subindex: 0x3E, Type: TypeUnsigned16, Unit: "V", Scale: 0.1, DeviceClass: "voltage", StateClass: "measurement"},
		{Key: "grid_voltage_l1_avg", Name: "Grid voltage L1 (10 min mean)", Index: 0x02, Subindex: 0x5B, Type: TypeUnsigned16, Unit: "V", Scale: 0.1, DeviceClass: "voltage", StateClass: "measurement"},
		{Key: "grid_voltage_l2_avg", Name: "Grid voltage L2 (10 min mean)", Index: 0x02, Subindex: 0x5C, Type: TypeUnsigned16, Unit: "V", Scale: 0.1, DeviceClass: "voltage", StateClass: "measurement"},
		{Key: "grid_voltage_l3_avg", Name: "Grid voltage L3 (10 min mean)", Index: 0x02, Subindex: 0x5D, Type: TypeUnsigned16, Unit: "V", Scale: 0.1, DeviceClass: "voltage", StateClass: "measurement"},

		// Grid currents.
		{Key: "grid_current_l1", Name: "Grid current L1", Index: 0x02, Subindex: 0x3F, Type: TypeUnsigned32, Unit: "A", Scale: 0.001, DeviceClass: "current", StateClass: "measurement"},
		{Key: "grid_current_l2", Name: "Grid current L2", Index: 0x02, Subindex: 0x40, Type: TypeUnsigned32, Unit: "A", Scale: 0.001, DeviceClass: "current", StateClass: "measurement"},
		{Key: "grid_current_l3", Name: "Grid current L3", Index: 0x02, Subindex: 0x41, Type: TypeUnsigned32, Unit: "A", Scale: 0.001, DeviceClass: "current", StateClass: "measurement"},

		// Grid power.
		{Key: "grid_power_l1", Name: "Grid power L1", Index: 0x02, Subindex: 0x42, Type: TypeUnsigned32, Unit: "W", Scale: 1, DeviceClass: "power", StateClass: "measurement"},
		{Key: "grid_power_l2", Name: "Grid power L2", Index: 0x02, Subindex: 0x43, Type: TypeUnsigned32, Unit: "W", Scale: 1, DeviceClass: "power", StateClass: "measurement"},
		{Key: "grid_power_l3", Name: "Grid power L3", Index: 0x02, Subindex: 0x44, Type: TypeUnsigned32, Unit: "W", Scale: 1, DeviceClass: "power", StateClass: "measurement"},
		{Key: "grid_power_total", Name: "Grid power total", Index: 0x02, Subindex: 0x46, Type: TypeUnsigned32, Unit: "W", Scale: 1, DeviceClass: "power", StateClass: "measurement"},

		// Grid energy today.
		{Key: "grid_energy_today_l1", Name: "Grid energy today L1", Index: 0x02, Subindex: 0x47, Type: TypeUnsigned32, Unit: "Wh", Scale: 1, DeviceClass: "energy", StateClass: "total_increasing"},
		{Key: "grid_energy_today_l2", Name: "Grid energy today L2", Index: 0x02, Subindex: 0x48, Type: TypeUnsigned32, Unit: "Wh", Scale: 1, DeviceClass: "energy", StateClass: "total_increasing"},
		{Key: "grid_energy_today_l3", Name: "Grid energy today L3", Index: 0x02, Subindex: 0x49, Type: TypeUnsigned32, Unit: "Wh", Scale: 1, DeviceClass: "energy", StateClass: "total_increasing"},
		{Key: "grid_energy_today_total", Name: "Grid energy today total", Index: 0x02, Subindex: 0x4A, Type: TypeUnsigned32, Unit: "Wh", Scale: 1, DeviceClass: "energy", StateClass: "total_increasing"},

		// DC content of the AC current.
		{Key: "grid_dc_l1", Name: "Grid current DC content L1", Index: 0x02, Subindex: 0x4C, Type: TypeSigned32, Unit: "mA", Scale: 1, DeviceClass: "current", StateClass: "measurement"},
		{Key: "grid_dc_l2", Name: "Grid current DC content L2", Index: 0x02, Subindex: 0x4D, Type: TypeSigned32, Unit: "mA", Scale: 1, DeviceClass: "current", StateClass: "measurement"},
		{Key: "grid_dc_l3", Name: "Grid current DC content L3", Index: 0x02, Subindex: 0x4E, Type: TypeSigned32, Unit: "mA", Scale: 1, DeviceClass: "current", StateClass: "measurement"},

		// Grid frequency.
		{Key: "grid_frequency_l1", Name: "Grid frequency L1", Index: 0x02, Subindex: 0x61, Type: TypeUnsigned32, Unit: "Hz", Scale: 0.001, DeviceClass: "frequency", StateClass: "measurement"},
		{Key: "grid_frequency_l2", Name: "Grid frequency L2", Index: 0x02, Subindex: 0x62, Type: TypeUnsigned32, Unit: "Hz", Scale: 0.001, DeviceClass: "frequency", StateClass: "measurement"},
		{Key: "grid_frequency_l3", Name: "Grid frequency L3", Index: 0x02, Subindex: 0x63, Type: TypeUnsigned32, Unit: "Hz", Scale: 0.001, DeviceClass: "frequency", StateClass: "measurement"},
		{Key: "grid_frequency_avg", Name: "Grid frequency mean", Index: 0x02, Subindex: 0x50, Type: TypeUnsigned32, Unit: "Hz", Scale: 0.001, DeviceClass: "frequency", StateClass: "measurement"},

		// External sensors (only populated when physically connected).
		{Key: "irradiance", Name: "Irradiance", Index: 0x02, Subindex: 0x02, Type: TypeUnsigned32, Unit: "W/m²", Scale: 1, DeviceClass: "irradiance", StateClass: "measurement"},
		{Key: "ambient_temp", Name: "Ambient temperature", Index: 0x02, Subindex: 0x03, Type: TypeSigned16, Unit: "°C", Scale: 1, DeviceClass: "temperature", StateClass: "measurement"},
		{Key: "pv_array_temp", Name: "PV array temperature", Index: 0x02, Subindex: 0x04, Type: TypeSigned16, Unit: "°C", Scale: 1, DeviceClass: "temperature", StateClass: "measurement"},

		// Status.
		{Key: "operation_mode", Name: "Operation mode", Index: 0x0A, Subindex: 0x02, Type: TypeUnsigned16, Scale: 1},
		{Key: "latest_event", Name: "Latest event", Index: 0x0A, Subindex: 0x28, Type: TypeUnsigned16, Scale: 1},

		// System information.
		{Key: "hardware_type", Name: "Hardware type", Index: 0x1E, Subindex: 0x14, Type: TypeUnsigned8, Scale: 1},
		{Key: "nominal_power", Name: "Nominal power", Index: 0x47, Subindex: 0x01, Type: TypeUnsigned32, Unit: "W", Scale: 1, DeviceClass: "power"},
		{Key: "sw_version", Name: "Software version", Index: 0x32, Subindex: 0x28, Type: TypeUnsigned32, Scale: 0.01},

		// Energy log.
		{Key: "production_today_log", Name: "Production today (log)", Index: 120, Subindex: 10, Type: TypeUnsigned32, Unit: "Wh", Scale: 1, DeviceClass: "energy", StateClass: "total_increasing"},
		{Key: "production_this_week", Name: "Production this week", Index: 120, Subindex: 20, Type: TypeUnsigned32, Unit: "Wh", Scale: 1, DeviceClass: "energy", StateClass: "total_increasing"},
		{Key: "production_this_month", Name: "Production this month", Index: 120, Subindex: 30, Type: TypeUnsigned32, Unit: "Wh", Scale: 1, DeviceClass: "energy", StateClass: "total_increasing"},
		{Key: "production_this_year", Name: "Production this year", Index: 120, Subindex: 50, Type: TypeUnsigned32, Unit: "kWh", Scale: 1, DeviceClass: "energy", StateClass: "total_increasing"},
	}

	c := &Catalog{
		params: make(map[string]Parameter, len(defs)),
		order:  make([]string, 0, len(defs)),
	}
	for _, p := range defs {
		p.ModuleID = ModuleCommBoard
		c.params[p.Key] = p
		c.order = append(c.order, p.Key)
	}
	return c
}
