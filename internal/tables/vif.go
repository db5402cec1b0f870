package tables

import (
	"fmt"
	"math"
)

// Unit is the canonical unit a decoded value is scaled into. Every
// semantic key has one fixed canonical unit: energy is always kWh (MJ for
// the Joule bank), volume m3, power kW, and so on.
type Unit int

const (
	UnitNone Unit = iota
	UnitKWH
	UnitMJ
	UnitM3
	UnitKG
	UnitKW
	UnitMJH
	UnitM3H
	UnitKGH
	UnitC
	UnitK
	UnitF
	UnitBar
	UnitHour
	UnitHCA
	UnitV
	UnitA
)

func (u Unit) String() string {
	switch u {
	case UnitKWH:
		return "kwh"
	case UnitMJ:
		return "MJ"
	case UnitM3:
		return "m3"
	case UnitKG:
		return "kg"
	case UnitKW:
		return "kw"
	case UnitMJH:
		return "MJ/h"
	case UnitM3H:
		return "m3/h"
	case UnitKGH:
		return "kg/h"
	case UnitC:
		return "c"
	case UnitK:
		return "k"
	case UnitF:
		return "f"
	case UnitBar:
		return "bar"
	case UnitHour:
		return "h"
	case UnitHCA:
		return "hca"
	case UnitV:
		return "v"
	case UnitA:
		return "a"
	}
	return ""
}

// VifKind tells the record parser how to treat the data bytes.
type VifKind int

const (
	VifNumeric VifKind = iota
	VifDateG
	VifDateTimeF
	VifIdent
	VifReserved
	VifUnknown
)

// VifInfo is the resolved meaning of a VIF (or extension VIFE): semantic
// key, canonical unit, exact decimal multiplier and the text used in the
// explanation trail.
type VifInfo struct {
	Key  string
	Unit Unit
	Mult float64
	Name string
	Kind VifKind
}

var timeMults = []float64{1.0 / 3600.0, 1.0 / 60.0, 1.0, 24.0}
var timeNames = []string{"seconds", "minutes", "hours", "days"}

// vifRow is one declarative row of the primary VIF table. pow10 rows
// derive the multiplier as 10^(exp+(code-from)); mults rows list one
// multiplier per code.
type vifRow struct {
	from, to byte
	key      string
	unit     Unit
	exp      int
	mults    []float64
	names    []string
	base     string
	wireUnit string
	wireBias int
	kind     VifKind
}

var primaryVIFRows = []vifRow{
	{from: 0x00, to: 0x07, key: "energy", unit: UnitKWH, exp: -6, base: "Energy", wireUnit: "Wh", wireBias: -3},
	{from: 0x08, to: 0x0F, key: "energy", unit: UnitMJ, exp: -6, base: "Energy", wireUnit: "J", wireBias: 0},
	{from: 0x10, to: 0x17, key: "volume", unit: UnitM3, exp: -6, base: "Volume", wireUnit: "m3", wireBias: -6},
	{from: 0x18, to: 0x1F, key: "mass", unit: UnitKG, exp: -3, base: "Mass", wireUnit: "kg", wireBias: -3},
	{from: 0x20, to: 0x23, key: "on_time", unit: UnitHour, mults: timeMults, names: timeNames, base: "On time"},
	{from: 0x24, to: 0x27, key: "operating_time", unit: UnitHour, mults: timeMults, names: timeNames, base: "Operating time"},
	{from: 0x28, to: 0x2F, key: "power", unit: UnitKW, exp: -6, base: "Power", wireUnit: "W", wireBias: -3},
	{from: 0x30, to: 0x37, key: "power", unit: UnitMJH, exp: -6, base: "Power", wireUnit: "J/h", wireBias: 0},
	{from: 0x38, to: 0x3F, key: "volume_flow", unit: UnitM3H, exp: -6, base: "Volume flow", wireUnit: "m3/h", wireBias: -6},
	{from: 0x40, to: 0x47, key: "volume_flow_ext", unit: UnitM3H,
		mults: []float64{6e-6, 6e-5, 6e-4, 6e-3, 6e-2, 6e-1, 6, 60},
		base:  "Volume flow ext.", wireUnit: "m3/min", wireBias: -7},
	{from: 0x48, to: 0x4F, key: "volume_flow_ext", unit: UnitM3H,
		mults: []float64{3.6e-6, 3.6e-5, 3.6e-4, 3.6e-3, 3.6e-2, 3.6e-1, 3.6, 36},
		base:  "Volume flow ext.", wireUnit: "m3/s", wireBias: -9},
	{from: 0x50, to: 0x57, key: "mass_flow", unit: UnitKGH, exp: -3, base: "Mass flow", wireUnit: "kg/h", wireBias: -3},
	{from: 0x58, to: 0x5B, key: "flow_temperature", unit: UnitC, exp: -3, base: "Flow temperature", wireUnit: "°C", wireBias: -3},
	{from: 0x5C, to: 0x5F, key: "return_temperature", unit: UnitC, exp: -3, base: "Return temperature", wireUnit: "°C", wireBias: -3},
	{from: 0x60, to: 0x63, key: "temperature_difference", unit: UnitK, exp: -3, base: "Temperature difference", wireUnit: "K", wireBias: -3},
	{from: 0x64, to: 0x67, key: "external_temperature", unit: UnitC, exp: -3, base: "External temperature", wireUnit: "°C", wireBias: -3},
	{from: 0x68, to: 0x6B, key: "pressure", unit: UnitBar, exp: -3, base: "Pressure", wireUnit: "bar", wireBias: -3},
	{from: 0x6C, to: 0x6C, key: "date", kind: VifDateG, base: "Date type G"},
	{from: 0x6D, to: 0x6D, key: "date_time", kind: VifDateTimeF, base: "Date and time type"},
	{from: 0x6E, to: 0x6E, key: "hca", unit: UnitHCA, mults: []float64{1}, base: "Units for H.C.A."},
	{from: 0x6F, to: 0x6F, key: "reserved", kind: VifReserved, base: "Reserved"},
	{from: 0x70, to: 0x73, key: "average_duration", unit: UnitHour, mults: timeMults, names: timeNames, base: "Averaging duration"},
	{from: 0x74, to: 0x77, key: "actual_duration", unit: UnitHour, mults: timeMults, names: timeNames, base: "Actuality duration"},
	{from: 0x78, to: 0x78, key: "fabrication_no", kind: VifIdent, base: "Fabrication no"},
	{from: 0x79, to: 0x79, key: "enhanced_identification", kind: VifIdent, base: "Enhanced identification"},
	{from: 0x7A, to: 0x7A, key: "bus_address", kind: VifIdent, base: "Bus address"},
	{from: 0x7B, to: 0x7B, key: "reserved", kind: VifReserved, base: "Reserved"},
}

var primaryVIFTable [0x80]VifInfo

func init() {
	for i := range primaryVIFTable {
		primaryVIFTable[i] = VifInfo{Key: "unknown", Kind: VifUnknown, Name: "?"}
	}
	for _, row := range primaryVIFRows {
		for code := row.from; code <= row.to; code++ {
			k := int(code - row.from)
			info := VifInfo{Key: row.key, Unit: row.unit, Kind: row.kind}
			switch {
			case row.mults != nil:
				info.Mult = row.mults[k]
				if row.names != nil {
					info.Name = fmt.Sprintf("%s %s", row.base, row.names[k])
				} else {
					info.Name = row.base
				}
			case row.kind == VifNumeric:
				info.Mult = math.Pow10(row.exp + k)
				info.Name = fmt.Sprintf("%s 10^%d %s", row.base, row.wireBias+k, row.wireUnit)
			default:
				info.Name = row.base
			}
			primaryVIFTable[code] = info
		}
	}
}

// LookupPrimaryVIF resolves a primary VIF code (extension bit ignored).
func LookupPrimaryVIF(vif byte) VifInfo {
	return primaryVIFTable[vif&0x7F]
}

// timeNN renders the 2-bit time unit of several FD rows.
func timeNN(nn int) string {
	return timeNames[nn&0x03]
}

func timePP(pp int) string {
	switch pp & 0x03 {
	case 0:
		return "hours"
	case 1:
		return "days"
	case 2:
		return "months"
	}
	return "years"
}

// LookupVIFExtensionFD resolves a VIFE following the 0xFD extension VIF.
// Unlisted codes come back as unknown with the raw byte preserved by the
// caller.
func LookupVIFExtensionFD(vife byte) VifInfo {
	v := vife & 0x7F
	switch {
	case v <= 0x03:
		nn := int(v & 0x03)
		return VifInfo{Key: "credit", Mult: math.Pow10(nn - 3),
			Name: fmt.Sprintf("Credit of 10^%d of the nominal local legal currency units", nn-3)}
	case v >= 0x04 && v <= 0x07:
		nn := int(v & 0x03)
		return VifInfo{Key: "debit", Mult: math.Pow10(nn - 3),
			Name: fmt.Sprintf("Debit of 10^%d of the nominal local legal currency units", nn-3)}
	case v == 0x08:
		return VifInfo{Key: "access_number", Mult: 1, Name: "Access Number (transmission count)"}
	case v == 0x09:
		return VifInfo{Key: "medium", Mult: 1, Name: "Medium (as in fixed header)"}
	case v == 0x0A:
		return VifInfo{Key: "manufacturer", Mult: 1, Name: "Manufacturer (as in fixed header)"}
	case v == 0x0B:
		return VifInfo{Key: "parameter_set_id", Kind: VifIdent, Name: "Parameter set identification"}
	case v == 0x0C:
		return VifInfo{Key: "model_version", Kind: VifIdent, Name: "Model/Version"}
	case v == 0x0D:
		return VifInfo{Key: "hardware_version", Kind: VifIdent, Name: "Hardware version #"}
	case v == 0x0E:
		return VifInfo{Key: "firmware_version", Kind: VifIdent, Name: "Firmware version #"}
	case v == 0x0F:
		return VifInfo{Key: "software_version", Kind: VifIdent, Name: "Software version #"}
	case v == 0x10:
		return VifInfo{Key: "customer_location", Kind: VifIdent, Name: "Customer location"}
	case v == 0x11:
		return VifInfo{Key: "customer", Kind: VifIdent, Name: "Customer"}
	case v == 0x12:
		return VifInfo{Key: "access_code_user", Kind: VifIdent, Name: "Access Code User"}
	case v == 0x13:
		return VifInfo{Key: "access_code_operator", Kind: VifIdent, Name: "Access Code Operator"}
	case v == 0x14:
		return VifInfo{Key: "access_code_system_operator", Kind: VifIdent, Name: "Access Code System Operator"}
	case v == 0x15:
		return VifInfo{Key: "access_code_developer", Kind: VifIdent, Name: "Access Code Developer"}
	case v == 0x16:
		return VifInfo{Key: "password", Kind: VifIdent, Name: "Password"}
	case v == 0x17:
		return VifInfo{Key: "error_flags", Mult: 1, Name: "Error flags (binary)"}
	case v == 0x18:
		return VifInfo{Key: "error_mask", Mult: 1, Name: "Error mask"}
	case v == 0x1A:
		return VifInfo{Key: "digital_output", Mult: 1, Name: "Digital Output (binary)"}
	case v == 0x1B:
		return VifInfo{Key: "digital_input", Mult: 1, Name: "Digital Input (binary)"}
	case v == 0x1C:
		return VifInfo{Key: "baudrate", Mult: 1, Name: "Baudrate [Baud]"}
	case v == 0x1D:
		return VifInfo{Key: "response_delay", Mult: 1, Name: "Response delay time [bittimes]"}
	case v == 0x1E:
		return VifInfo{Key: "retry", Mult: 1, Name: "Retry"}
	case v == 0x20:
		return VifInfo{Key: "first_storage", Mult: 1, Name: "First storage # for cyclic storage"}
	case v == 0x21:
		return VifInfo{Key: "last_storage", Mult: 1, Name: "Last storage # for cyclic storage"}
	case v == 0x22:
		return VifInfo{Key: "storage_block_size", Mult: 1, Name: "Size of storage block"}
	case v >= 0x24 && v <= 0x27:
		return VifInfo{Key: "storage_interval", Mult: 1,
			Name: fmt.Sprintf("Storage interval [%s]", timeNN(int(v)))}
	case v == 0x28:
		return VifInfo{Key: "storage_interval", Mult: 1, Name: "Storage interval month(s)"}
	case v == 0x29:
		return VifInfo{Key: "storage_interval", Mult: 1, Name: "Storage interval year(s)"}
	case v >= 0x2C && v <= 0x2F:
		return VifInfo{Key: "duration_since_readout", Mult: 1,
			Name: fmt.Sprintf("Duration since last readout [%s]", timeNN(int(v)))}
	case v == 0x30:
		return VifInfo{Key: "tariff_start", Kind: VifDateTimeF, Name: "Start (date/time) of tariff"}
	case v >= 0x31 && v <= 0x33:
		return VifInfo{Key: "tariff_duration", Mult: 1,
			Name: fmt.Sprintf("Duration of tariff [%s]", timeNN(int(v)))}
	case v >= 0x34 && v <= 0x37:
		return VifInfo{Key: "tariff_period", Mult: 1,
			Name: fmt.Sprintf("Period of tariff [%s]", timeNN(int(v)))}
	case v == 0x38:
		return VifInfo{Key: "tariff_period", Mult: 1, Name: "Period of tariff months(s)"}
	case v == 0x39:
		return VifInfo{Key: "tariff_period", Mult: 1, Name: "Period of tariff year(s)"}
	case v == 0x3A:
		return VifInfo{Key: "dimensionless", Mult: 1, Name: "Dimensionless / no VIF"}
	case v >= 0x40 && v <= 0x4F:
		nnnn := int(v & 0x0F)
		return VifInfo{Key: "voltage", Unit: UnitV, Mult: math.Pow10(nnnn - 9),
			Name: fmt.Sprintf("10^%d Volts", nnnn-9)}
	case v >= 0x50 && v <= 0x5F:
		nnnn := int(v & 0x0F)
		return VifInfo{Key: "current", Unit: UnitA, Mult: math.Pow10(nnnn - 12),
			Name: fmt.Sprintf("10^%d Ampere", nnnn-12)}
	case v == 0x60:
		return VifInfo{Key: "reset_counter", Mult: 1, Name: "Reset counter"}
	case v == 0x61:
		return VifInfo{Key: "cumulation_counter", Mult: 1, Name: "Cumulation counter"}
	case v == 0x62:
		return VifInfo{Key: "control_signal", Mult: 1, Name: "Control signal"}
	case v == 0x63:
		return VifInfo{Key: "day_of_week", Mult: 1, Name: "Day of week"}
	case v == 0x64:
		return VifInfo{Key: "week_number", Mult: 1, Name: "Week number"}
	case v == 0x65:
		return VifInfo{Key: "time_point_day_change", Mult: 1, Name: "Time point of day change"}
	case v == 0x66:
		return VifInfo{Key: "parameter_activation", Mult: 1, Name: "State of parameter activation"}
	case v == 0x67:
		return VifInfo{Key: "special_supplier_info", Mult: 1, Name: "Special supplier information"}
	case v >= 0x68 && v <= 0x6B:
		return VifInfo{Key: "duration_since_cumulation", Mult: 1,
			Name: fmt.Sprintf("Duration since last cumulation [%s]", timePP(int(v)))}
	case v >= 0x6C && v <= 0x6F:
		return VifInfo{Key: "operating_time_battery", Mult: 1,
			Name: fmt.Sprintf("Operating time battery [%s]", timePP(int(v)))}
	case v == 0x70:
		return VifInfo{Key: "battery_change_date_time", Kind: VifDateTimeF, Name: "Date and time of battery change"}
	}
	return VifInfo{Key: "unknown", Kind: VifUnknown, Name: "Reserved"}
}

// LookupVIFExtensionFB resolves a VIFE following the 0xFB extension VIF.
func LookupVIFExtensionFB(vife byte) VifInfo {
	v := vife & 0x7F
	switch {
	case v <= 0x01:
		n := int(v & 0x01)
		return VifInfo{Key: "energy", Unit: UnitKWH, Mult: math.Pow10(n + 2),
			Name: fmt.Sprintf("Energy 10^%d MWh", n-1)}
	case v >= 0x08 && v <= 0x09:
		n := int(v & 0x01)
		return VifInfo{Key: "energy", Unit: UnitMJ, Mult: math.Pow10(n + 2),
			Name: fmt.Sprintf("Energy 10^%d GJ", n-1)}
	case v >= 0x10 && v <= 0x11:
		n := int(v & 0x01)
		return VifInfo{Key: "volume", Unit: UnitM3, Mult: math.Pow10(n + 2),
			Name: fmt.Sprintf("Volume 10^%d m3", n+2)}
	case v >= 0x18 && v <= 0x19:
		n := int(v & 0x01)
		return VifInfo{Key: "mass", Unit: UnitKG, Mult: math.Pow10(n + 5),
			Name: fmt.Sprintf("Mass 10^%d ton", n+2)}
	case v == 0x21:
		return VifInfo{Key: "volume", Unit: UnitM3, Mult: 0.0028316846592,
			Name: "Volume 0.1 feet^3"}
	case v == 0x22:
		return VifInfo{Key: "volume", Unit: UnitM3, Mult: 0.0003785411784,
			Name: "Volume 0.1 american gallon"}
	case v == 0x23:
		return VifInfo{Key: "volume", Unit: UnitM3, Mult: 0.003785411784,
			Name: "Volume american gallon"}
	case v == 0x24:
		return VifInfo{Key: "volume_flow", Unit: UnitM3H, Mult: 0.00022712470704,
			Name: "Volume flow 0.001 american gallon/min"}
	case v == 0x25:
		return VifInfo{Key: "volume_flow", Unit: UnitM3H, Mult: 0.22712470704,
			Name: "Volume flow american gallon/min"}
	case v == 0x26:
		return VifInfo{Key: "volume_flow", Unit: UnitM3H, Mult: 0.003785411784,
			Name: "Volume flow american gallon/h"}
	case v >= 0x28 && v <= 0x29:
		n := int(v & 0x01)
		return VifInfo{Key: "power", Unit: UnitKW, Mult: math.Pow10(n + 2),
			Name: fmt.Sprintf("Power 10^%d MW", n-1)}
	case v >= 0x30 && v <= 0x31:
		n := int(v & 0x01)
		return VifInfo{Key: "power", Unit: UnitMJH, Mult: math.Pow10(n + 2),
			Name: fmt.Sprintf("Power 10^%d GJ/h", n-1)}
	case v >= 0x58 && v <= 0x5B:
		nn := int(v & 0x03)
		return VifInfo{Key: "flow_temperature", Unit: UnitF, Mult: math.Pow10(nn - 3),
			Name: fmt.Sprintf("Flow temperature 10^%d Fahrenheit", nn-3)}
	case v >= 0x5C && v <= 0x5F:
		nn := int(v & 0x03)
		return VifInfo{Key: "return_temperature", Unit: UnitF, Mult: math.Pow10(nn - 3),
			Name: fmt.Sprintf("Return temperature 10^%d Fahrenheit", nn-3)}
	case v >= 0x60 && v <= 0x63:
		nn := int(v & 0x03)
		return VifInfo{Key: "temperature_difference", Unit: UnitF, Mult: math.Pow10(nn - 3),
			Name: fmt.Sprintf("Temperature difference 10^%d Fahrenheit", nn-3)}
	case v >= 0x64 && v <= 0x67:
		nn := int(v & 0x03)
		return VifInfo{Key: "external_temperature", Unit: UnitF, Mult: math.Pow10(nn - 3),
			Name: fmt.Sprintf("External temperature 10^%d Fahrenheit", nn-3)}
	case v >= 0x70 && v <= 0x73:
		nn := int(v & 0x03)
		return VifInfo{Key: "temperature_limit", Unit: UnitF, Mult: math.Pow10(nn - 3),
			Name: fmt.Sprintf("Cold / Warm Temperature Limit 10^%d Fahrenheit", nn-3)}
	case v >= 0x74 && v <= 0x77:
		nn := int(v & 0x03)
		return VifInfo{Key: "temperature_limit", Unit: UnitC, Mult: math.Pow10(nn - 3),
			Name: fmt.Sprintf("Cold / Warm Temperature Limit 10^%d Celsius", nn-3)}
	case v >= 0x78:
		nnn := int(v & 0x07)
		return VifInfo{Key: "max_power", Unit: UnitKW, Mult: math.Pow10(nnn - 6),
			Name: fmt.Sprintf("Cumulative count max power 10^%d W", nnn-3)}
	}
	return VifInfo{Key: "unknown", Kind: VifUnknown, Name: "Reserved"}
}

// CombinableVIFEName describes a combinable VIFE (0x20-0x7F following a
// scaled VIF). These modify record semantics and are stored as modifier
// flags, never folded into the scale.
func CombinableVIFEName(vife byte) string {
	v := vife & 0x7F
	switch v {
	case 0x13:
		return "reverse compact profile without register"
	case 0x1E:
		return "compact profile with register"
	case 0x1F:
		return "compact profile without register"
	case 0x20:
		return "per second"
	case 0x21:
		return "per minute"
	case 0x22:
		return "per hour"
	case 0x23:
		return "per day"
	case 0x24:
		return "per week"
	case 0x25:
		return "per month"
	case 0x26:
		return "per year"
	case 0x27:
		return "per revolution/measurement"
	case 0x28:
		return "incr per input pulse on input channel 0"
	case 0x29:
		return "incr per input pulse on input channel 1"
	case 0x2A:
		return "incr per output pulse on input channel 0"
	case 0x2B:
		return "incr per output pulse on input channel 1"
	case 0x2C:
		return "per litre"
	case 0x2D:
		return "per m3"
	case 0x2E:
		return "per kg"
	case 0x2F:
		return "per kelvin"
	case 0x30:
		return "per kWh"
	case 0x31:
		return "per GJ"
	case 0x32:
		return "per kW"
	case 0x33:
		return "per kelvin*litre"
	case 0x34:
		return "per volt"
	case 0x35:
		return "per ampere"
	case 0x36:
		return "multiplied by s"
	case 0x37:
		return "multiplied by s/V"
	case 0x38:
		return "multiplied by s/A"
	case 0x39:
		return "start date/time of a,b"
	case 0x3A:
		return "uncorrected meter unit"
	case 0x3B:
		return "forward flow"
	case 0x3C:
		return "backward flow"
	case 0x3E:
		return "value at base conditions"
	case 0x3F:
		return "obis-declaration"
	case 0x40:
		return "lower limit"
	case 0x48:
		return "upper limit"
	case 0x41:
		return "number of exceeds of lower limit"
	case 0x49:
		return "number of exceeds of upper limit"
	}
	switch {
	case v&0x72 == 0x42:
		return "date/time of limit exceed"
	case v&0x70 == 0x50:
		return "duration of limit exceed"
	case v&0x78 == 0x60:
		return "duration of a,b"
	case v == 0x69:
		return "leakage values"
	case v == 0x6D:
		return "overflow values"
	case v == 0x7C:
		return "extension of combinable vife"
	case v == 0x7D:
		return "multiplicative correction factor for value"
	case v == 0x7E:
		return "future value"
	case v == 0x7F:
		return "manufacturer specific"
	case v&0x78 == 0x70:
		nnn := int(v & 0x07)
		return fmt.Sprintf("multiplicative correction factor: 10^%d", nnn-6)
	case v&0x78 == 0x78:
		nn := int(v & 0x03)
		return fmt.Sprintf("additive correction constant: unit of VIF * 10^%d", nn-3)
	}
	return "?"
}
