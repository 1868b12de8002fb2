package etherlynx

import "testing"

func TestDefaultCatalogLookup(t *testing.T) {
	catalog := DefaultCatalog()

	tests := []struct {
		key      string
		index    byte
		subindex byte
		dtype    DataType
		scale    float64
	}{
		{"total_energy", 0x01, 0x02, TypeUnsigned32, 1},
		{"pv_voltage_1", 0x02, 0x28, TypeUnsigned16, 0.1},
		{"pv_current_2", 0x02, 0x2E, TypeUnsigned16, 0.001},
		{"grid_power_total", 0x02, 0x46, TypeUnsigned32, 1},
		{"grid_frequency_avg", 0x02, 0x50, TypeUnsigned32, 0.001},
		{"ambient_temp", 0x02, 0x03, TypeSigned16, 1},
		{"operation_mode", 0x0A, 0x02, TypeUnsigned16, 1},
		{"hardware_type", 0x1E, 0x14, TypeUnsigned8, 1},
		{"sw_version", 0x32, 0x28, TypeUnsigned32, 0.01},
		{"production_this_week", 120, 20, TypeUnsigned32, 1},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			p, ok := catalog.Lookup(tt.key)
			if !ok {
				t.Fatalf("Lookup(%q) not found", tt.key)
			}
			if p.Index != tt.index || p.Subindex != tt.subindex {
				t.Errorf("address = %d/%d, want %d/%d", p.Index, p.Subindex, tt.index, tt.subindex)
			}
			if p.Type != tt.dtype {
				t.Errorf("type = %v, want %v", p.Type, tt.dtype)
			}
			if p.Scale != tt.scale {
				t.Errorf("scale = %v, want %v", p.Scale, tt.scale)
			}
		})
	}

	if _, ok := catalog.Lookup("flux_capacitor"); ok {
		t.Error("Lookup() resolved a key that does not exist")
	}
}

func TestDefaultCatalogModuleID(t *testing.T) {
	catalog := DefaultCatalog()
	for _, key := range catalog.Keys() {
		p, _ := catalog.Lookup(key)
		if p.ModuleID != ModuleCommBoard {
			t.Errorf("%s: module ID = %d, want %d", key, p.ModuleID, ModuleCommBoard)
		}
	}
}

func TestDefaultCatalogKeysUniqueAndOrdered(t *testing.T) {
	catalog := DefaultCatalog()
	keys := catalog.Keys()

	if len(keys) != catalog.Len() {
		t.Fatalf("Keys() length = %d, Len() = %d", len(keys), catalog.Len())
	}

	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if seen[key] {
			t.Errorf("duplicate key %q", key)
		}
		seen[key] = true
		if _, ok := catalog.Lookup(key); !ok {
			t.Errorf("key %q listed but not resolvable", key)
		}
	}

	// Keys returns a copy; mutating it must not corrupt the catalog.
	keys[0] = "mutated"
	if got := catalog.Keys()[0]; got == "mutated" {
		t.Error("Keys() returned the internal slice, not a copy")
	}
}

func TestCatalogSubsetsResolve(t *testing.T) {
	catalog := DefaultCatalog()

	subsets := map[string][]string{
		"realtime": catalog.RealtimeKeys(),
		"energy":   catalog.EnergyKeys(),
		"system":   catalog.SystemKeys(),
	}

	for name, keys := range subsets {
		t.Run(name, func(t *testing.T) {
			if len(keys) == 0 {
				t.Fatal("subset is empty")
			}
			for _, key := range keys {
				if _, ok := catalog.Lookup(key); !ok {
					t.Errorf("subset key %q not in catalog", key)
				}
			}
		})
	}
}

func TestStatusText(t *testing.T) {
	tests := []struct {
		mode int
		want string
	}{
		{0, "Unavailable"},
		{1, "Off"},
		{2, "Standby"},
		{3, "Starting"},
		{4, "Producing"},
		{5, "Grid fault"},
		{6, "Fault"},
		{7, "Self-test"},
		{8, "Night/sleep"},
		{99, "Unknown (99)"},
		{-1, "Unknown (-1)"},
	}

	for _, tt := range tests {
		if got := StatusText(tt.mode); got != tt.want {
			t.Errorf("StatusText(%d) = %q, want %q", tt.mode, got, tt.want)
		}
	}
}
