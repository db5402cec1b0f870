// Package omnipower decodes the Kamstrup OmniPower electricity meter.
// The single-phase, three-phase and CT variants broadcast the same
// datagram: accumulated energy A+/A- and current power P+/P-.
package omnipower

import (
	"context"
	"fmt"

	"gitlab.com/d21d3q/wmbusdecode/internal/driver"
	"gitlab.com/d21d3q/wmbusdecode/internal/frame"
	"gitlab.com/d21d3q/wmbusdecode/internal/tables"
)

const (
	manufacturerKAM       = 0x2C2D
	deviceTypeElectricity = 0x02
)

// Data record headers, per Kamstrup doc 58101496_C1_GB_05.2018:
//
//	04 04       32 bit uint, Energy 10^1 Wh (consumption), A+
//	04 84 3C    32 bit uint, Energy 10^1 Wh (production), A-
//	04 2B       32 bit uint, Power 10^0 W (consumption), P+
//	04 AB 3C    32 bit uint, Power 10^0 W (production), P-
const (
	dvTotalEnergy         = "0404"
	dvTotalEnergyBackward = "04843C"
	dvPower               = "042B"
	dvPowerBackward       = "04AB3C"
)

func init() {
	driver.Register(driver.Detection{
		Manufacturer: manufacturerKAM,
		DeviceTypes:  []byte{deviceTypeElectricity},
	}, Driver{})
}

// Driver implements the omnipower post-processing logic.
type Driver struct{}

var _ driver.PartialReporter = Driver{}

// Name returns the canonical driver name.
func (Driver) Name() string { return "omnipower" }

// PartialFields implements driver.PartialReporter.
func (Driver) PartialFields(t *frame.Telegram) map[string]any {
	return map[string]any{
		"_":     "telegram",
		"id":    t.IDString(),
		"meter": "omnipower",
		"media": tables.MediaTypeJSON(deviceTypeElectricity),
	}
}

// Process extracts the four standard registers and enriches the
// explanation trail with the scaled values.
func (Driver) Process(_ context.Context, t *frame.Telegram) (map[string]any, error) {
	fields := map[string]any{
		"_":     "telegram",
		"id":    t.IDString(),
		"meter": "omnipower",
		"media": tables.MediaTypeJSON(deviceTypeElectricity),
	}

	found := false
	if rec := t.FindRecord(dvTotalEnergy); rec != nil && rec.HasValue {
		fields["total_energy_consumption_kwh"] = rec.Value
		t.AddMoreExplanation(rec.Offset, " total energy (%g kwh)", rec.Value)
		found = true
	}
	if rec := t.FindRecord(dvTotalEnergyBackward); rec != nil && rec.HasValue {
		fields["total_energy_production_kwh"] = rec.Value
		t.AddMoreExplanation(rec.Offset, " total energy backward (%g kwh)", rec.Value)
		found = true
	}
	if rec := t.FindRecord(dvPower); rec != nil && rec.HasValue {
		fields["power_consumption_kw"] = rec.Value
		t.AddMoreExplanation(rec.Offset, " current power (%g kw)", rec.Value)
		found = true
	}
	if rec := t.FindRecord(dvPowerBackward); rec != nil && rec.HasValue {
		fields["power_production_kw"] = rec.Value
		t.AddMoreExplanation(rec.Offset, " current power backward (%g kw)", rec.Value)
		found = true
	}
	if !found {
		return nil, fmt.Errorf("omnipower: no known registers in telegram (supply meter key?)")
	}
	return fields, nil
}
