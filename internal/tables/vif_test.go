package tables

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrimaryVIFScaling(t *testing.T) {
	cases := []struct {
		vif  byte
		key  string
		unit Unit
		mult float64
	}{
		{0x00, "energy", UnitKWH, 1e-6},           // mWh
		{0x03, "energy", UnitKWH, 1e-3},           // Wh
		{0x04, "energy", UnitKWH, 1e-2},           // 10^1 Wh
		{0x06, "energy", UnitKWH, 1},              // kWh
		{0x0B, "energy", UnitMJ, 1e-3},            // kJ
		{0x10, "volume", UnitM3, 1e-6},            // cm3
		{0x13, "volume", UnitM3, 1e-3},            // litres
		{0x16, "volume", UnitM3, 1},               // m3
		{0x18, "mass", UnitKG, 1e-3},              // g
		{0x1B, "mass", UnitKG, 1},                 // kg
		{0x20, "on_time", UnitHour, 1.0 / 3600.0}, // seconds
		{0x22, "on_time", UnitHour, 1},            // hours
		{0x23, "on_time", UnitHour, 24},           // days
		{0x2B, "power", UnitKW, 1e-3},             // W
		{0x2E, "power", UnitKW, 1},                // kW
		{0x3B, "volume_flow", UnitM3H, 1e-3},      // l/h
		{0x3E, "volume_flow", UnitM3H, 1},         // m3/h
		{0x44, "volume_flow_ext", UnitM3H, 6e-2},  // l/min
		{0x4E, "volume_flow_ext", UnitM3H, 3.6},   // l/s
		{0x53, "mass_flow", UnitKGH, 1},           // kg/h
		{0x58, "flow_temperature", UnitC, 1e-3},
		{0x5B, "flow_temperature", UnitC, 1},
		{0x5F, "return_temperature", UnitC, 1},
		{0x63, "temperature_difference", UnitK, 1},
		{0x67, "external_temperature", UnitC, 1},
		{0x68, "pressure", UnitBar, 1e-3}, // mbar
		{0x6B, "pressure", UnitBar, 1},
		{0x72, "average_duration", UnitHour, 1},
		{0x74, "actual_duration", UnitHour, 1.0 / 3600.0},
	}
	for _, tc := range cases {
		info := LookupPrimaryVIF(tc.vif)
		require.Equal(t, tc.key, info.Key, "vif %02x", tc.vif)
		require.Equal(t, tc.unit, info.Unit, "vif %02x", tc.vif)
		require.InEpsilon(t, tc.mult, info.Mult, 1e-12, "vif %02x", tc.vif)
		require.Equal(t, VifNumeric, info.Kind, "vif %02x", tc.vif)
	}
}

func TestPrimaryVIFIgnoresExtensionBit(t *testing.T) {
	require.Equal(t, LookupPrimaryVIF(0x04), LookupPrimaryVIF(0x84))
}

func TestPrimaryVIFDates(t *testing.T) {
	require.Equal(t, VifDateG, LookupPrimaryVIF(0x6C).Kind)
	require.Equal(t, "date", LookupPrimaryVIF(0x6C).Key)
	require.Equal(t, VifDateTimeF, LookupPrimaryVIF(0x6D).Kind)
	require.Equal(t, VifReserved, LookupPrimaryVIF(0x6F).Kind)
	require.Equal(t, VifIdent, LookupPrimaryVIF(0x78).Kind)
}

func TestPrimaryVIFScaleRowsComplete(t *testing.T) {
	// Every numeric primary code outside the date range resolves to a
	// named semantic key, a canonical unit and a finite positive
	// multiplier.
	for vif := byte(0x00); vif <= 0x77; vif++ {
		if vif >= 0x6C && vif <= 0x6F {
			continue
		}
		info := LookupPrimaryVIF(vif)
		if info.Kind != VifNumeric {
			continue
		}
		require.Greater(t, info.Mult, 0.0, "vif %02x", vif)
		require.False(t, math.IsInf(info.Mult, 0), "vif %02x", vif)
		require.NotEqual(t, "unknown", info.Key, "vif %02x", vif)
		require.NotEqual(t, UnitNone, info.Unit, "vif %02x", vif)
	}
}

func TestVIFExtensionFD(t *testing.T) {
	info := LookupVIFExtensionFD(0x17)
	require.Equal(t, "error_flags", info.Key)

	info = LookupVIFExtensionFD(0x08)
	require.Equal(t, "access_number", info.Key)

	info = LookupVIFExtensionFD(0x70)
	require.Equal(t, "battery_change_date_time", info.Key)
	require.Equal(t, VifDateTimeF, info.Kind)

	info = LookupVIFExtensionFD(0x47)
	require.Equal(t, "voltage", info.Key)
	require.InEpsilon(t, 1e-2, info.Mult, 1e-12)

	info = LookupVIFExtensionFD(0x7B)
	require.Equal(t, "unknown", info.Key)
	require.Equal(t, VifUnknown, info.Kind)
}

func TestVIFExtensionFB(t *testing.T) {
	info := LookupVIFExtensionFB(0x00)
	require.Equal(t, "energy", info.Key)
	require.Equal(t, UnitKWH, info.Unit)
	require.InEpsilon(t, 100, info.Mult, 1e-12) // 0.1 MWh in kWh

	info = LookupVIFExtensionFB(0x21)
	require.Equal(t, "volume", info.Key)
	require.InEpsilon(t, 0.0028316846592, info.Mult, 1e-9) // 0.1 ft3

	info = LookupVIFExtensionFB(0x5B)
	require.Equal(t, "flow_temperature", info.Key)
	require.Equal(t, UnitF, info.Unit)
	require.InEpsilon(t, 1, info.Mult, 1e-12)

	info = LookupVIFExtensionFB(0x03)
	require.Equal(t, "unknown", info.Key)
}

func TestCombinableVIFEName(t *testing.T) {
	require.Equal(t, "per second", CombinableVIFEName(0x20))
	require.Equal(t, "per m3", CombinableVIFEName(0x2D))
	require.Equal(t, "forward flow", CombinableVIFEName(0x3B))
	require.Equal(t, "backward flow", CombinableVIFEName(0x3C))
	require.Equal(t, "upper limit", CombinableVIFEName(0x48))
	// The extension bit does not change the meaning.
	require.Equal(t, "backward flow", CombinableVIFEName(0xBC))
}
