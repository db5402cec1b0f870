package frame

import (
	"encoding/hex"
	"fmt"
	"strings"

	"gitlab.com/d21d3q/wmbusdecode/internal/tables"
)

// AFL fragment control bits.
const (
	aflFCHasKeyInfo  = 0x0200
	aflFCHasMAC      = 0x0400
	aflFCHasCounter  = 0x0800
	aflFCHasLen      = 0x1000
	aflFCHasControl  = 0x2000
	aflFCMoreFragms  = 0x4000
	aflFCFragmentIDs = 0x00FF
)

// parseAFL decodes the authentication and fragmentation sublayer. The MAC
// is only captured here: it covers the TPL header and payload, so
// verification waits until the TPL config (and the derived MAC key) is
// known.
func (t *Telegram) parseAFL(c cursor) (cursor, error) {
	ci, ok := c.peek()
	if !ok {
		return c, ErrTruncated
	}
	if !tables.IsCIOfKind(ci, tables.CIAFL) {
		return c, nil
	}
	c = t.explain(c, 1, "%02x afl-ci-field (%s)", ci, tables.CIName(ci))
	t.AFL.CI = ci

	if !c.need(3) {
		return c, ErrTruncated
	}
	t.AFL.Len = c.at(0)
	c = t.explain(c, 1, "%02x afl-len (%d)", t.AFL.Len, t.AFL.Len)

	t.AFL.FC = uint16(c.at(1))<<8 | uint16(c.at(0))
	c = t.explain(c, 2, "%02x%02x afl-fc (%s)", c.at(0), c.at(1), aflFCInfo(t.AFL.FC))

	if t.AFL.FC&aflFCHasControl != 0 {
		if !c.need(1) {
			return c, ErrTruncated
		}
		t.AFL.HasMCL = true
		t.AFL.MCL = c.at(0)
		c = t.explain(c, 1, "%02x afl-mcl (%s)", t.AFL.MCL, aflMCLInfo(t.AFL.MCL))
	}

	if t.AFL.FC&aflFCHasKeyInfo != 0 {
		if !c.need(2) {
			return c, ErrTruncated
		}
		t.AFL.HasKeyInfo = true
		t.AFL.KeyInfo = uint16(c.at(1))<<8 | uint16(c.at(0))
		c = t.explain(c, 2, "%02x%02x afl-ki", c.at(0), c.at(1))
	}

	if t.AFL.FC&aflFCHasCounter != 0 {
		if !c.need(4) {
			return c, ErrTruncated
		}
		t.AFL.HasCounter = true
		copy(t.AFL.Counter[:], c.bytes(4))
		counter := uint32(t.AFL.Counter[3])<<24 | uint32(t.AFL.Counter[2])<<16 |
			uint32(t.AFL.Counter[1])<<8 | uint32(t.AFL.Counter[0])
		c = t.explain(c, 4, "%02x%02x%02x%02x afl-counter (%d)",
			t.AFL.Counter[0], t.AFL.Counter[1], t.AFL.Counter[2], t.AFL.Counter[3], counter)
	}

	if t.AFL.FC&aflFCHasMAC != 0 {
		at := tables.AFLAuthTypeFromInt(int(t.AFL.MCL & 0x0F))
		maclen := at.MACLength()
		switch maclen {
		case 2, 4, 8, 12, 16:
		default:
			log.Warnf("bad afl mac length %d", maclen)
			return c, &MalformedDVError{Offset: c.off, Reason: "bad length of afl mac"}
		}
		if !c.need(maclen) {
			return c, ErrTruncated
		}
		t.AFL.MAC = append([]byte(nil), c.bytes(maclen)...)
		c = t.explain(c, maclen, "%s afl-mac %d bytes",
			strings.ToUpper(hex.EncodeToString(t.AFL.MAC)), maclen)
	}

	return c, nil
}

func aflFCInfo(fc uint16) string {
	parts := []string{fmt.Sprintf("%d", fc&aflFCFragmentIDs)}
	if fc&aflFCHasKeyInfo != 0 {
		parts = append(parts, "KeyInfoInFragment")
	}
	if fc&aflFCHasMAC != 0 {
		parts = append(parts, "MACInFragment")
	}
	if fc&aflFCHasCounter != 0 {
		parts = append(parts, "MessCounterInFragment")
	}
	if fc&aflFCHasLen != 0 {
		parts = append(parts, "MessLenInFragment")
	}
	if fc&aflFCHasControl != 0 {
		parts = append(parts, "MessControlInFragment")
	}
	if fc&aflFCMoreFragms != 0 {
		parts = append(parts, "MoreFragments")
	} else {
		parts = append(parts, "LastFragment")
	}
	return strings.Join(parts, " ")
}

func aflMCLInfo(mcl byte) string {
	at := tables.AFLAuthTypeFromInt(int(mcl & 0x0F))
	parts := []string{at.String()}
	if mcl&0x10 != 0 {
		parts = append(parts, "KeyInfo")
	}
	if mcl&0x20 != 0 {
		parts = append(parts, "MessCounter")
	}
	if mcl&0x40 != 0 {
		parts = append(parts, "MessLen")
	}
	return strings.Join(parts, " ")
}
