// Package tables holds the static EN 13757-3 catalogues: manufacturer
// codes, media types, the CI-field catalogue, link modes, security mode
// enums and the VIF unit/scale tables. Every catalogue is a single array
// of structs; the lookup helpers derive from it.
package tables

import "fmt"

// ManufacturerFlag unpacks the 15-bit manufacturer field into its three
// letter flag: letter = (code / 32^k) mod 32 + 64.
func ManufacturerFlag(mfct uint16) string {
	a := byte((mfct/1024)%32 + 64)
	b := byte((mfct/32)%32 + 64)
	c := byte(mfct%32 + 64)
	return string([]byte{a, b, c})
}

// EncodeManufacturer packs a three letter flag back into the 16-bit field.
func EncodeManufacturer(flag string) (uint16, error) {
	if len(flag) != 3 {
		return 0, fmt.Errorf("manufacturer flag must be 3 letters, got %q", flag)
	}
	var m uint16
	for i := 0; i < 3; i++ {
		l := flag[i]
		if l < 'A' || l > '_' {
			return 0, fmt.Errorf("manufacturer flag letter out of range: %q", flag)
		}
		m = m*32 + uint16(l-64)
	}
	return m, nil
}

type manufacturer struct {
	flag string
	name string
}

var manufacturers = []manufacturer{
	{"APA", "Apator"},
	{"BMT", "BMeters"},
	{"DME", "Diehl Metering"},
	{"ELS", "Elster"},
	{"HYD", "Hydrometer"},
	{"ITW", "Itron"},
	{"KAM", "Kamstrup"},
	{"LAS", "Lansen"},
	{"LSE", "Landis+Gyr"},
	{"QDS", "Qundis"},
	{"SEN", "Sensus"},
	{"SON", "Sontex"},
	{"TCH", "Techem"},
}

// ManufacturerName resolves the human readable vendor name, or "Unknown".
func ManufacturerName(mfct uint16) string {
	flag := ManufacturerFlag(mfct)
	for _, m := range manufacturers {
		if m.flag == flag {
			return m.name
		}
	}
	return "Unknown"
}

type mediaEntry struct {
	code byte
	name string
	json string
}

var mediaTypes = []mediaEntry{
	{0x00, "Other", "other"},
	{0x01, "Oil meter", "oil"},
	{0x02, "Electricity meter", "electricity"},
	{0x03, "Gas meter", "gas"},
	{0x04, "Heat meter", "heat"},
	{0x05, "Steam meter", "steam"},
	{0x06, "Warm Water (30°C-90°C) meter", "warm water"},
	{0x07, "Water meter", "water"},
	{0x08, "Heat Cost Allocator", "heat cost allocation"},
	{0x09, "Compressed air meter", "compressed air"},
	{0x0A, "Cooling load volume at outlet meter", "cooling load volume at outlet"},
	{0x0B, "Cooling load volume at inlet meter", "cooling load volume at inlet"},
	{0x0C, "Heat volume at inlet meter", "heat volume at inlet"},
	{0x0D, "Heat/Cooling load meter", "heat/cooling load"},
	{0x0E, "Bus/System component", "bus/system component"},
	{0x0F, "Unknown", "unknown"},
	{0x15, "Hot water (>=90°C) meter", "hot water"},
	{0x16, "Cold water meter", "cold water"},
	{0x17, "Hot/Cold water meter", "hot/cold water"},
	{0x18, "Pressure meter", "pressure"},
	{0x19, "A/D converter", "a/d converter"},
	{0x1A, "Smoke detector", "smoke detector"},
	{0x1B, "Room sensor (eg temperature or humidity)", "room sensor"},
	{0x1C, "Gas detector", "gas detector"},
	{0x20, "Breaker (electricity)", "breaker"},
	{0x21, "Valve (gas or water)", "valve"},
	{0x25, "Customer unit (display device)", "customer unit (display device)"},
	{0x28, "Waste water", "waste water"},
	{0x29, "Garbage", "garbage"},
	{0x36, "Radio converter (system side)", "radio converter (system side)"},
	{0x37, "Radio converter (meter side)", "radio converter (meter side)"},
	// Techem manufacturer specific codes.
	{0x62, "Warm water", "warm water"},
	{0x72, "Cold water", "cold water"},
	{0x80, "Heat Cost Allocator", "heat cost allocation"},
	{0xC3, "Heat meter", "heat"},
}

// MediaType returns the display name for a device type byte.
func MediaType(deviceType byte) string {
	for _, m := range mediaTypes {
		if m.code == deviceType {
			return m.name
		}
	}
	if deviceType >= 0x1D && deviceType <= 0x3F {
		return "Reserved"
	}
	return "Unknown"
}

// MediaTypeJSON returns the lowercase field value used in decoded output.
func MediaTypeJSON(deviceType byte) string {
	for _, m := range mediaTypes {
		if m.code == deviceType {
			return m.json
		}
	}
	if deviceType >= 0x1D && deviceType <= 0x3F {
		return "reserved"
	}
	return "unknown"
}

// CIKind classifies a CI field into the layer it introduces.
type CIKind int

const (
	CIUnknown CIKind = iota
	CIELL
	CINWL
	CIAFL
	CITPL
)

// CIInfo is one row of the CI catalogue: layer kind, fixed header length
// (-1 for variable) and the standard's description.
type CIInfo struct {
	CI        byte
	Kind      CIKind
	HeaderLen int
	Name      string
}

var ciCatalogue = []CIInfo{
	{0x72, CITPL, 12, "EN 13757-3 Application Layer (long tplh)"},
	{0x78, CITPL, 0, "EN 13757-3 Application Layer (no tplh)"},
	{0x79, CITPL, 4, "EN 13757-3 Application Layer with Compact frame (no tplh)"},
	{0x7A, CITPL, 4, "EN 13757-3 Application Layer (short tplh)"},
	{0x81, CINWL, -1, "Network Layer data"},
	{0x83, CINWL, -1, "Network Management data to device (no tplh)"},
	{0x86, CIELL, -1, "ELL: Extended Link Layer V (variable length)"},
	{0x87, CINWL, -1, "Network management data from device (long tplh)"},
	{0x88, CINWL, -1, "Network management data from device (short tplh)"},
	{0x89, CINWL, -1, "Network management data from device (no tplh)"},
	{0x8C, CIELL, 2, "ELL: Extended Link Layer I (2 Byte)"},
	{0x8D, CIELL, 8, "ELL: Extended Link Layer II (8 Byte)"},
	{0x8E, CIELL, 10, "ELL: Extended Link Layer III (10 Byte)"},
	{0x8F, CIELL, 16, "ELL: Extended Link Layer IV (16 Byte)"},
	{0x90, CIAFL, -1, "AFL: Authentication and Fragmentation Sublayer"},
	{0xA2, CITPL, 0, "Manufacturer specific payload"},
}

// LookupCI returns the catalogue row for a CI byte.
func LookupCI(ci byte) (CIInfo, bool) {
	for _, c := range ciCatalogue {
		if c.CI == ci {
			return c, true
		}
	}
	return CIInfo{CI: ci}, false
}

// IsCIOfKind reports whether the CI byte introduces the given layer.
func IsCIOfKind(ci byte, kind CIKind) bool {
	c, ok := LookupCI(ci)
	return ok && c.Kind == kind
}

// ciDescriptions covers CI values outside the parseable catalogue, for
// the explanation trail only.
var ciDescriptions = map[byte]string{
	0x50: "Application reset or select to device (no tplh)",
	0x51: "Command to device (no tplh)",
	0x52: "Selection of device (no tplh)",
	0x53: "Application reset or select to device (long tplh)",
	0x5A: "Command to device (short tplh)",
	0x5B: "Command to device (long tplh)",
	0x60: "COSEM Data sent by the Readout device to the meter (long tplh)",
	0x61: "COSEM Data sent by the Readout device to the meter (short tplh)",
	0x64: "Reserved for OBIS-based Data (long tplh)",
	0x65: "Reserved for OBIS-based Data (short tplh)",
	0x66: "Response of selected application from device (no tplh)",
	0x67: "Response of selected application from device (short tplh)",
	0x68: "Response of selected application from device (long tplh)",
	0x69: "EN 13757-3 Application Layer with Format frame (no tplh)",
	0x6A: "EN 13757-3 Application Layer with Format frame (short tplh)",
	0x6B: "EN 13757-3 Application Layer with Format frame (long tplh)",
	0x6C: "Clock synchronisation (absolute) (long tplh)",
	0x6D: "Clock synchronisation (relative) (long tplh)",
	0x6E: "Application error from device (short tplh)",
	0x6F: "Application error from device (long tplh)",
	0x70: "Application error from device without Transport Layer",
	0x71: "Reserved for Alarm Report",
	0x73: "EN 13757-3 Application Layer with Compact frame and long Transport Layer",
	0x74: "Alarm from device (short tplh)",
	0x75: "Alarm from device (long tplh)",
	0x7B: "EN 13757-3 Application Layer with Compact frame (short tplh)",
	0x7C: "COSEM Application Layer (long tplh)",
	0x7D: "COSEM Application Layer (short tplh)",
	0x80: "EN 13757-3 Transport Layer (long tplh) from other device to the meter",
	0x82: "Network management data to device (short tplh)",
	0x84: "Transport layer to device (compact frame) (long tplh)",
	0x85: "Transport layer to device (format frame) (long tplh)",
	0x8A: "EN 13757-3 Transport Layer (short tplh) from the meter to the other device",
	0x8B: "EN 13757-3 Transport Layer (long tplh) from the meter to the other device",
	0xC0: "Image transfer to device (long tplh)",
	0xC1: "Image transfer from device (short tplh)",
	0xC2: "Image transfer from device (long tplh)",
	0xC3: "Security info transfer to device (long tplh)",
	0xC4: "Security info transfer from device (short tplh)",
	0xC5: "Security info transfer from device (long tplh)",
}

// CIName describes any CI byte for the explanation trail.
func CIName(ci byte) string {
	if c, ok := LookupCI(ci); ok {
		return c.Name
	}
	if s, ok := ciDescriptions[ci]; ok {
		return s
	}
	switch {
	case ci <= 0x1F:
		return "Reserved for DLMS"
	case ci >= 0x20 && ci <= 0x4F:
		return "Reserved"
	case ci >= 0xA0 && ci <= 0xB7:
		return "Mfct specific"
	case ci >= 0xB8 && ci <= 0xBF:
		return fmt.Sprintf("Set baud rate (%02x)", ci)
	}
	return "?"
}

// CType describes the DLL C field: direction, relay bit and function code.
func CType(c byte) string {
	s := ""
	if c&0x80 != 0 {
		s += "relayed "
	}
	if c&0x40 != 0 {
		s += "from meter "
	} else {
		s += "to meter "
	}
	switch c & 0x0F {
	case 0x0:
		s += "SND_NKE"
	case 0x3:
		s += "SND_UD2"
	case 0x4:
		s += "SND_NR"
	case 0x5:
		s += "SND_UD3"
	case 0x6:
		s += "SND_IR"
	case 0x7:
		s += "ACC_NR"
	case 0x8:
		s += "ACC_DMD"
	case 0xA:
		s += "REQ_UD1"
	case 0xB:
		s += "REQ_UD2"
	}
	return s
}

// ELL communication control bits.
const (
	CCBidirectionalBit = 0x80
	CCResponseDelayBit = 0x40
	CCSynchFrameBit    = 0x20
	CCRelayedBit       = 0x10
	CCHighPrioBit      = 0x08
)

// CCType describes the ELL communication control byte.
func CCType(cc byte) string {
	s := ""
	if cc&CCBidirectionalBit != 0 {
		s += "bidir "
	}
	if cc&CCResponseDelayBit != 0 {
		s += "fast_resp "
	} else {
		s += "slow_resp "
	}
	if cc&CCSynchFrameBit != 0 {
		s += "sync "
	}
	if cc&CCRelayedBit != 0 {
		s += "relayed "
	}
	if cc&CCHighPrioBit != 0 {
		s += "prio "
	}
	return s[:len(s)-1]
}
