package frame

import (
	"gitlab.com/d21d3q/wmbusdecode/internal/tables"
)

// parseDLL decodes the data link layer header: length, C field,
// manufacturer, address, version and device type. The length byte is
// informational only: radio dongles strip the per-block link CRCs, so it
// regularly exceeds the buffer length.
func (t *Telegram) parseDLL(c cursor) (cursor, error) {
	if !c.need(10) {
		return c, ErrTruncated
	}

	t.DLL.Len = c.at(0)
	c = t.explain(c, 1, "%02x length (%d bytes)", t.DLL.Len, t.DLL.Len)

	t.DLL.C = c.at(0)
	c = t.explain(c, 1, "%02x dll-c (%s)", t.DLL.C, tables.CType(t.DLL.C))

	t.DLL.Mfct = uint16(c.at(1))<<8 | uint16(c.at(0))
	c = t.explain(c, 2, "%02x%02x dll-mfct (%s)", c.at(0), c.at(1), tables.ManufacturerFlag(t.DLL.Mfct))

	copy(t.DLL.ID[:], c.bytes(4))
	c = t.explain(c, 4, "%02x%02x%02x%02x dll-id (%02x%02x%02x%02x)",
		c.at(0), c.at(1), c.at(2), c.at(3),
		c.at(3), c.at(2), c.at(1), c.at(0))

	t.DLL.Version = c.at(0)
	c = t.explain(c, 1, "%02x dll-version", t.DLL.Version)

	t.DLL.DeviceType = c.at(0)
	c = t.explain(c, 1, "%02x dll-type (%s)", t.DLL.DeviceType, tables.MediaType(t.DLL.DeviceType))

	return c, nil
}
