package frame

import (
	"bytes"
	"fmt"

	"gitlab.com/d21d3q/wmbusdecode/internal/codec"
	"gitlab.com/d21d3q/wmbusdecode/internal/crypto"
	"gitlab.com/d21d3q/wmbusdecode/internal/tables"
)

// parseTPL decodes the transport layer header, runs authentication and
// decryption according to the security mode, and hands the plaintext
// remainder to the DV record parser.
func (t *Telegram) parseTPL(c cursor) error {
	ci, ok := c.peek()
	if !ok {
		return ErrTruncated
	}
	if !tables.IsCIOfKind(ci, tables.CITPL) {
		t.explain(c, 1, "%02x tpl-ci-field (%s)", ci, tables.CIName(ci))
		log.Warnf("unknown tpl-ci-field %02x", ci)
		return &UnknownCIError{CI: ci}
	}
	t.TPL.Start = c.off
	c = t.explain(c, 1, "%02x tpl-ci-field (%s)", ci, tables.CIName(ci))
	t.TPL.CI = ci

	switch ci {
	case 0x72:
		return t.parseTPLLong(c)
	case 0x78:
		t.HeaderSize = c.off
		return t.parseDV(c, nil)
	case 0x79:
		return t.parseTPLCompact(c)
	case 0x7A:
		return t.parseTPLShort(c)
	case 0xA2:
		// Manufacturer specific payload: keep the bytes, no records.
		t.HeaderSize = c.off
		if c.remaining() > 0 {
			t.explain(c, c.remaining(), "manufacturer specific data (%d bytes)", c.remaining())
		}
		return nil
	}
	return &UnknownCIError{CI: ci}
}

func (t *Telegram) parseTPLLong(c cursor) error {
	if !c.need(8) {
		return ErrTruncated
	}
	t.TPL.IDFound = true
	copy(t.TPL.ID[:], c.bytes(4))
	c = t.explain(c, 4, "%02x%02x%02x%02x tpl-id (%02x%02x%02x%02x)",
		c.at(0), c.at(1), c.at(2), c.at(3),
		c.at(3), c.at(2), c.at(1), c.at(0))

	t.TPL.Mfct = uint16(c.at(1))<<8 | uint16(c.at(0))
	c = t.explain(c, 2, "%02x%02x tpl-mfct (%s)", c.at(0), c.at(1), tables.ManufacturerFlag(t.TPL.Mfct))

	t.TPL.Version = c.at(0)
	c = t.explain(c, 1, "%02x tpl-version", t.TPL.Version)

	t.TPL.DeviceType = c.at(0)
	c = t.explain(c, 1, "%02x tpl-type (%s)", t.TPL.DeviceType, tables.MediaType(t.TPL.DeviceType))

	return t.parseTPLShort(c)
}

func (t *Telegram) parseTPLShort(c cursor) error {
	if !c.need(4) {
		return ErrTruncated
	}
	t.TPL.ACC = c.at(0)
	c = t.explain(c, 1, "%02x tpl-acc-field", t.TPL.ACC)

	t.TPL.STS = c.at(0)
	c = t.explain(c, 1, "%02x tpl-sts-field", t.TPL.STS)

	c, err := t.parseTPLConfig(c)
	if err != nil {
		return err
	}

	c, err = t.potentiallyDecrypt(c)
	if err != nil {
		return err
	}

	t.HeaderSize = c.off
	return t.parseDV(c, nil)
}

func (t *Telegram) parseTPLConfig(c cursor) (cursor, error) {
	if !c.need(2) {
		return c, ErrTruncated
	}
	cfg := uint16(c.at(1))<<8 | uint16(c.at(0))
	t.TPL.Config = cfg
	t.TPL.SecurityMode = tables.TPLSecurityModeFromInt(int(cfg >> 8 & 0x1F))

	info := tplConfigInfo(cfg, t.TPL.SecurityMode)
	hasCfgExt := false
	if t.TPL.SecurityMode == tables.TPLAESCBCNoIV {
		t.TPL.EncryptedBlocks = int(cfg >> 4 & 0x0F)
		info += fmt.Sprintf(" NEB=%d", t.TPL.EncryptedBlocks)
		hasCfgExt = true
	}
	c = t.explain(c, 2, "%02x%02x tpl-cfg (%s)", c.at(0), c.at(1), info)

	if hasCfgExt {
		if !c.need(1) {
			return c, ErrTruncated
		}
		t.TPL.ConfigExt = c.at(0)
		t.TPL.KDFSelection = int(t.TPL.ConfigExt >> 4 & 0x03)
		c = t.explain(c, 1, "%02x tpl-cfg-ext (KDFS=%d)", t.TPL.ConfigExt, t.TPL.KDFSelection)

		if t.TPL.KDFSelection == 1 {
			if !t.keys.HasConfidentialityKey() {
				if t.keys.IsSimulation {
					log.Debug("simulation without keys, not generating Kmac and Kenc")
					return c, nil
				}
				return c, crypto.ErrKeyRequired
			}
			id := t.DLL.ID
			if t.TPL.IDFound {
				id = t.TPL.ID
			}
			kenc, kmac, err := crypto.DeriveKeys(t.keys.ConfidentialityKey, t.AFL.Counter, id)
			if err != nil {
				return c, err
			}
			t.TPL.GeneratedKey = kenc
			t.TPL.GeneratedMACKey = kmac
		}
	}
	return c, nil
}

func tplConfigInfo(cfg uint16, mode tables.TPLSecurityMode) string {
	info := ""
	if cfg&0x1F00 != 0 {
		info += mode.String() + " "
	}
	if cfg&0x80 != 0 {
		info += "bidirectional "
	}
	if cfg&0x40 != 0 {
		info += "accessibility "
	}
	if cfg&0x20 != 0 {
		info += "synchronous "
	}
	if info != "" {
		info = info[:len(info)-1]
	}
	return info
}

// potentiallyDecrypt runs the security mode of the TPL config. Mode 5
// decrypts immediately with the confidentiality key; mode 7 first
// verifies the AFL CMAC with the derived MAC key and only then decrypts
// with the derived encryption key. Both must expose the 2F 2F sentinel.
func (t *Telegram) potentiallyDecrypt(c cursor) (cursor, error) {
	switch t.TPL.SecurityMode {
	case tables.TPLAESCBCIV:
		if !t.keys.HasConfidentialityKey() {
			if !t.keys.IsSimulation {
				return c, crypto.ErrKeyRequired
			}
			log.Debug("simulation without keys, assuming payload is already decrypted")
		} else {
			mfct, id, version, devType := t.DLL.Mfct, t.DLL.ID, t.DLL.Version, t.DLL.DeviceType
			if t.TPL.IDFound {
				mfct, id, version, devType = t.TPL.Mfct, t.TPL.ID, t.TPL.Version, t.TPL.DeviceType
			}
			iv := crypto.BuildTPLIV(mfct, id, version, devType, t.TPL.ACC)
			if err := crypto.DecryptTPLAESCBCIV(t.Frame, c.off, t.keys.ConfidentialityKey, iv); err != nil {
				return c, err
			}
		}
		return t.checkSentinel(c)

	case tables.TPLAESCBCNoIV:
		if !t.keys.HasConfidentialityKey() && t.keys.IsSimulation {
			if !c.need(2) {
				return c, ErrTruncated
			}
			c = t.explain(c, 2, "%02x%02x (already) decrypted check bytes", c.at(0), c.at(1))
			return c, nil
		}
		if err := t.checkMAC(); err != nil {
			return c, err
		}
		if err := crypto.DecryptTPLAESCBCNoIV(t.Frame, c.off, t.TPL.EncryptedBlocks, t.TPL.GeneratedKey); err != nil {
			return c, err
		}
		return t.checkSentinel(c)
	}
	return c, nil
}

func (t *Telegram) checkSentinel(c cursor) (cursor, error) {
	if !c.need(2) {
		return c, ErrTruncated
	}
	if c.at(0) != 0x2F || c.at(1) != 0x2F {
		log.Warn("decrypted content failed check, wrong decryption key?")
		return c, ErrWrongKey
	}
	c = t.explain(c, 2, "%02x%02x decrypt check bytes", c.at(0), c.at(1))
	return c, nil
}

// checkMAC recomputes the AFL CMAC over MCL, message counter and the TPL
// header plus payload, and prefix-compares it against the received MAC
// at its declared length.
func (t *Telegram) checkMAC() error {
	if len(t.TPL.GeneratedMACKey) != 16 || len(t.AFL.MAC) == 0 {
		return ErrBadMAC
	}
	input := make([]byte, 0, 5+len(t.Frame)-t.TPL.Start)
	input = append(input, t.AFL.MCL)
	input = append(input, t.AFL.Counter[:]...)
	input = append(input, t.Frame[t.TPL.Start:]...)
	mac, err := crypto.CMAC(t.TPL.GeneratedMACKey, input)
	if err != nil {
		return err
	}
	if !bytes.Equal(mac[:len(t.AFL.MAC)], t.AFL.MAC) {
		log.Warn("telegram mac check failed, wrong decryption key?")
		return ErrBadMAC
	}
	return nil
}

// parseTPLCompact decodes a compact frame: a 16-bit format signature
// referring to a previously seen DIF/VIF template, a 16-bit data CRC
// (recorded but not verified) and the data bytes.
func (t *Telegram) parseTPLCompact(c cursor) error {
	if !c.need(4) {
		return ErrTruncated
	}
	t.FormatSignature = uint16(c.at(1))<<8 | uint16(c.at(0))
	c = t.explain(c, 2, "%02x%02x format signature", c.at(0), c.at(1))

	format, ok := t.cache.Load(t.FormatSignature)
	if !ok {
		log.Debugf("ignoring compact telegram, format signature %04x is yet unknown", t.FormatSignature)
		return &UnknownFormatError{Signature: t.FormatSignature}
	}
	t.FormatBytes = format

	c = t.explain(c, 2, "%02x%02x data crc", c.at(0), c.at(1))

	t.HeaderSize = c.off
	return t.parseDV(c, format)
}

// storeFormat publishes the observed DIF/VIF template after a long frame
// parsed cleanly, so later compact frames with the same signature can be
// replayed.
func (t *Telegram) storeFormat() {
	if len(t.FormatBytes) == 0 {
		return
	}
	t.FormatSignature = codec.Checksum16(t.FormatBytes)
	t.cache.Store(t.FormatSignature, t.FormatBytes)
}
