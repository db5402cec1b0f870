package frame

import (
	"gitlab.com/d21d3q/wmbusdecode/internal/codec"
	"gitlab.com/d21d3q/wmbusdecode/internal/crypto"
	"gitlab.com/d21d3q/wmbusdecode/internal/tables"
)

// parseELL decodes the extended link layer when the next CI announces
// one. ELL III/IV carry a secondary address, ELL II/IV a session number
// with payload CRC and optional AES-CTR encryption of the remainder.
func (t *Telegram) parseELL(c cursor) (cursor, error) {
	ci, ok := c.peek()
	if !ok {
		return c, ErrTruncated
	}
	if !tables.IsCIOfKind(ci, tables.CIELL) {
		return c, nil
	}
	c = t.explain(c, 1, "%02x ell-ci-field (%s)", ci, tables.CIName(ci))
	t.ELL.CI = ci

	if ci == 0x86 {
		log.Warn("ELL V (variable length) not supported")
		return c, &UnknownCIError{CI: ci}
	}

	info, _ := tables.LookupCI(ci)
	if !c.need(info.HeaderLen) {
		return c, ErrTruncated
	}

	// All ELLs start with CC and ACC.
	t.ELL.CC = c.at(0)
	c = t.explain(c, 1, "%02x ell-cc (%s)", t.ELL.CC, tables.CCType(t.ELL.CC))
	t.ELL.ACC = c.at(0)
	c = t.explain(c, 1, "%02x ell-acc", t.ELL.ACC)

	hasSecondary := ci == 0x8E || ci == 0x8F
	hasSessionCRC := ci == 0x8D || ci == 0x8F

	if hasSecondary {
		t.ELL.HasSecondary = true
		t.ELL.Mfct = uint16(c.at(1))<<8 | uint16(c.at(0))
		c = t.explain(c, 2, "%02x%02x ell-mfct (%s)", c.at(0), c.at(1), tables.ManufacturerFlag(t.ELL.Mfct))

		copy(t.ELL.ID[:], c.bytes(4))
		c = t.explain(c, 4, "%02x%02x%02x%02x ell-id", c.at(0), c.at(1), c.at(2), c.at(3))

		t.ELL.Version = c.at(0)
		c = t.explain(c, 1, "%02x ell-version", t.ELL.Version)

		t.ELL.DeviceType = c.at(0)
		c = t.explain(c, 1, "%02x ell-type (%s)", t.ELL.DeviceType, tables.MediaType(t.ELL.DeviceType))
	}

	if hasSessionCRC {
		t.ELL.HasSN = true
		copy(t.ELL.SN[:], c.bytes(4))
		sn := uint32(t.ELL.SN[3])<<24 | uint32(t.ELL.SN[2])<<16 | uint32(t.ELL.SN[1])<<8 | uint32(t.ELL.SN[0])
		t.ELL.SNSession = int(sn & 0x0F)
		t.ELL.SNTime = int((sn >> 4) & 0x1FFFFFF)
		t.ELL.SecurityMode = tables.ELLSecurityModeFromInt(int(sn >> 29 & 0x7))
		c = t.explain(c, 4, "%02x%02x%02x%02x sn (%s session=%d time=%d)",
			t.ELL.SN[0], t.ELL.SN[1], t.ELL.SN[2], t.ELL.SN[3],
			t.ELL.SecurityMode, t.ELL.SNSession, t.ELL.SNTime)

		if t.ELL.SecurityMode == tables.ELLAESCTR {
			switch {
			case t.keys.HasConfidentialityKey():
				addr := crypto.CTRAddress{
					Manufacturer: t.DLL.Mfct,
					ID:           t.DLL.ID,
					Version:      t.DLL.Version,
					DeviceType:   t.DLL.DeviceType,
					CC:           t.ELL.CC,
					SN:           t.ELL.SN,
				}
				if err := crypto.DecryptELLAESCTR(t.Frame, c.off, t.keys.ConfidentialityKey, addr); err != nil {
					return c, err
				}
			case t.keys.IsSimulation:
				log.Debug("simulation without keys, assuming ELL payload is already decrypted")
			default:
				return c, crypto.ErrKeyRequired
			}
		}

		if !c.need(2) {
			return c, ErrTruncated
		}
		t.ELL.PayloadCRC = uint16(c.at(1))<<8 | uint16(c.at(0))
		crcOffset := c.off
		check := codec.Checksum16(t.Frame[c.off+2:])
		c = t.explain(c, 2, "%02x%02x payload crc (calculated %02x%02x %s)",
			c.at(0), c.at(1), byte(check), byte(check>>8), crcVerdict(t.ELL.PayloadCRC == check))
		if t.ELL.PayloadCRC != check {
			log.Warn("payload crc error")
			return c, &BadCRCError{Offset: crcOffset, Stored: t.ELL.PayloadCRC, Computed: check}
		}
	}

	return c, nil
}

func crcVerdict(ok bool) string {
	if ok {
		return "OK"
	}
	return "ERROR"
}

// parseNWL rejects network layer frames: CI 0x81/0x83/0x87-0x89 name NWL
// data that this decoder does not interpret, and silently skipping them
// would desynchronise the following layers.
func (t *Telegram) parseNWL(c cursor) (cursor, error) {
	ci, ok := c.peek()
	if !ok {
		return c, ErrTruncated
	}
	if !tables.IsCIOfKind(ci, tables.CINWL) {
		return c, nil
	}
	c = t.explain(c, 1, "%02x nwl-ci-field (%s)", ci, tables.CIName(ci))
	log.Warnf("network layer frames (ci %02x) are not supported", ci)
	return c, &UnknownCIError{CI: ci}
}
