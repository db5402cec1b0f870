package frame

import (
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"gitlab.com/d21d3q/wmbusdecode/internal/codec"
	"gitlab.com/d21d3q/wmbusdecode/internal/tables"
)

// Record is one decoded DIF/VIF entry of the application payload.
type Record struct {
	DIFs []byte
	VIFs []byte

	// Key is the uppercase hex of DIF, DIFEs, VIF and VIFEs: the query
	// pattern meter modules match on (e.g. "0404", "04843C").
	Key string

	SemanticKey     string
	Unit            tables.Unit
	Value           float64
	HasValue        bool
	Date            time.Time
	HasDate         bool
	Text            string
	MeasurementType tables.MeasurementType
	StorageNr       int
	Tariff          int
	Subunit         int
	Modifiers       []string
	Data            []byte

	// Offset of the data bytes inside the frame, used to enrich the
	// explanation trail.
	Offset int
}

// dvReader walks the DIF/VIF stream. Record headers come either from the
// frame itself or, for compact frames, from the format template; data
// bytes always come from the frame.
type dvReader struct {
	t           *Telegram
	c           cursor
	format      []byte
	fi          int
	headerBytes []byte
}

func (r *dvReader) fromTemplate() bool { return r.format != nil }

func (r *dvReader) headersLeft() bool {
	if r.fromTemplate() {
		return r.fi < len(r.format)
	}
	return r.c.remaining() > 0
}

func (r *dvReader) peekHeader() (byte, bool) {
	if r.fromTemplate() {
		if r.fi >= len(r.format) {
			return 0, false
		}
		return r.format[r.fi], true
	}
	return r.c.peek()
}

// takeHeader consumes the peeked header byte. Template bytes are not
// frame bytes, so only frame-sourced headers land in the explanation
// trail.
func (r *dvReader) takeHeader(text string) {
	b, _ := r.peekHeader()
	r.headerBytes = append(r.headerBytes, b)
	if r.fromTemplate() {
		r.fi++
		return
	}
	r.c = r.t.explain(r.c, 1, "%s", text)
}

func (r *dvReader) takeData(n int) ([]byte, int, bool) {
	if !r.c.need(n) {
		return nil, r.c.off, false
	}
	offset := r.c.off
	data := append([]byte(nil), r.c.bytes(n)...)
	if n > 0 {
		r.c = r.t.explain(r.c, n, "%s data", strings.ToUpper(hex.EncodeToString(data)))
	}
	return data, offset, true
}

func (r *dvReader) malformed(reason string) *MalformedDVError {
	log.Warnf("malformed dv stream at offset %d: %s", r.c.off, reason)
	return &MalformedDVError{Offset: r.c.off, Reason: reason}
}

// parseDV decodes records until the payload (or the template) runs out.
// Records decoded before a fault stay on the telegram.
func (t *Telegram) parseDV(c cursor, format []byte) error {
	r := &dvReader{t: t, c: c, format: format}

	for r.headersLeft() {
		dif, _ := r.peekHeader()
		switch {
		case dif == 0x2F:
			r.takeHeader(fmt.Sprintf("%02x skip byte (filler)", dif))
			// Skip bytes pad the payload, they never become records,
			// and they are not part of the format template either.
			r.headerBytes = r.headerBytes[:len(r.headerBytes)-1]
			continue
		case dif == 0x00:
			r.takeHeader(fmt.Sprintf("%02x dif (no data)", dif))
			r.headerBytes = r.headerBytes[:len(r.headerBytes)-1]
			continue
		case dif == 0x0F || dif == 0x1F:
			r.takeHeader(fmt.Sprintf("%02x dif (manufacturer specific data follows)", dif))
			rec := Record{
				DIFs:        []byte{dif},
				Key:         fmt.Sprintf("%02X", dif),
				SemanticKey: "manufacturer_specific",
				Offset:      r.c.off,
				Data:        append([]byte(nil), r.c.frame[r.c.off:]...),
			}
			if n := r.c.remaining(); n > 0 {
				r.c = t.explain(r.c, n, "%s manufacturer specific data",
					strings.ToUpper(hex.EncodeToString(rec.Data)))
			}
			t.Records = append(t.Records, rec)
			t.finishDV(r)
			return nil
		}
		if err := r.readRecord(dif); err != nil {
			// A malformed stream keeps its prefix of records but must
			// not feed the signature cache.
			return err
		}
	}
	t.finishDV(r)
	return nil
}

// finishDV publishes the observed DIF/VIF template: long and short
// frames (CI 0x72/0x7A) feed the signature cache that compact frames
// replay from.
func (t *Telegram) finishDV(r *dvReader) {
	if r.fromTemplate() || len(r.headerBytes) == 0 {
		return
	}
	t.FormatBytes = r.headerBytes
	if t.TPL.CI == 0x72 || t.TPL.CI == 0x7A {
		t.storeFormat()
	}
}

func (r *dvReader) readRecord(dif byte) error {
	rec := Record{
		DIFs:            []byte{dif},
		MeasurementType: tables.MeasurementTypeFromDIF(dif),
		StorageNr:       int(dif>>6) & 0x01,
	}
	r.takeHeader(fmt.Sprintf("%02x dif (%s)", dif, difTypeName(dif)))

	difenr := 0
	for more := dif&0x80 != 0; more; difenr++ {
		dife, ok := r.peekHeader()
		if !ok {
			return r.malformed("unexpected end of payload while reading DIFE")
		}
		rec.DIFs = append(rec.DIFs, dife)
		rec.Subunit |= int(dife>>6&0x01) << difenr
		rec.Tariff |= int(dife>>4&0x03) << (difenr * 2)
		rec.StorageNr |= int(dife&0x0F) << (1 + difenr*4)
		r.takeHeader(fmt.Sprintf("%02x dife (subunit=%d tariff=%d storagenr=%d)",
			dife, rec.Subunit, rec.Tariff, rec.StorageNr))
		more = dife&0x80 != 0
	}

	vif, ok := r.peekHeader()
	if !ok {
		return r.malformed("unexpected end of payload before VIF")
	}
	rec.VIFs = append(rec.VIFs, vif)

	var info tables.VifInfo
	switch {
	case vif == 0xFB || vif == 0xFD:
		bank := "first"
		if vif == 0xFD {
			bank = "second"
		}
		r.takeHeader(fmt.Sprintf("%02x vif (%s extension of VIF-codes)", vif, bank))
		vife, ok := r.peekHeader()
		if !ok {
			return r.malformed("unexpected end of payload while reading extension VIFE")
		}
		if vif == 0xFB {
			info = tables.LookupVIFExtensionFB(vife)
		} else {
			info = tables.LookupVIFExtensionFD(vife)
		}
		rec.VIFs = append(rec.VIFs, vife)
		r.takeHeader(fmt.Sprintf("%02x vife (%s)", vife, info.Name))
		if err := r.readCombinables(&rec, vife); err != nil {
			return err
		}

	case vif&0x7F == 0x7C:
		r.takeHeader(fmt.Sprintf("%02x vif (VIF in following string)", vif))
		n, ok := r.peekHeader()
		if !ok {
			return r.malformed("unexpected end of payload before VIF string length")
		}
		rec.VIFs = append(rec.VIFs, n)
		r.takeHeader(fmt.Sprintf("%02x vif string length (%d)", n, n))
		name := make([]byte, 0, n)
		for i := 0; i < int(n); i++ {
			ch, ok := r.peekHeader()
			if !ok {
				return r.malformed("unexpected end of payload inside VIF string")
			}
			rec.VIFs = append(rec.VIFs, ch)
			r.takeHeader(fmt.Sprintf("%02x vif string byte", ch))
			name = append(name, ch)
		}
		info = tables.VifInfo{Key: "user_defined", Name: reverseString(name), Kind: tables.VifIdent}
		if err := r.readCombinables(&rec, vif); err != nil {
			return err
		}

	case vif&0x7F == 0x7F:
		r.takeHeader(fmt.Sprintf("%02x vif (manufacturer specific)", vif))
		info = tables.VifInfo{Key: "manufacturer_specific", Name: "manufacturer specific", Kind: tables.VifUnknown}
		if err := r.readCombinables(&rec, vif); err != nil {
			return err
		}

	default:
		info = tables.LookupPrimaryVIF(vif)
		r.takeHeader(fmt.Sprintf("%02x vif (%s)", vif, info.Name))
		if err := r.readCombinables(&rec, vif); err != nil {
			return err
		}
	}

	if err := r.readData(&rec, dif, info); err != nil {
		return err
	}

	rec.Key = strings.ToUpper(hex.EncodeToString(rec.DIFs) + hex.EncodeToString(rec.VIFs))
	rec.SemanticKey = info.Key
	rec.Unit = info.Unit
	r.t.Records = append(r.t.Records, rec)
	return nil
}

// readCombinables consumes the chain of combinable VIFEs announced by
// the extension bit of prev. They modify record semantics and are kept
// as flags, never folded into the scale.
func (r *dvReader) readCombinables(rec *Record, prev byte) error {
	for prev&0x80 != 0 {
		vife, ok := r.peekHeader()
		if !ok {
			return r.malformed("unexpected end of payload while reading VIFE")
		}
		rec.VIFs = append(rec.VIFs, vife)
		name := tables.CombinableVIFEName(vife)
		rec.Modifiers = append(rec.Modifiers, name)
		r.takeHeader(fmt.Sprintf("%02x vife (%s)", vife, name))
		prev = vife
	}
	return nil
}

func (r *dvReader) readData(rec *Record, dif byte, info tables.VifInfo) error {
	lengthCode := dif & 0x0F

	if lengthCode == 0x0D {
		return r.readVariableData(rec, info)
	}

	n, bcd := difDataLength(lengthCode)
	data, offset, ok := r.takeData(n)
	if !ok {
		return r.malformed(fmt.Sprintf("payload truncated for dif %02x", dif))
	}
	rec.Data = data
	rec.Offset = offset
	if n == 0 {
		return nil
	}

	switch {
	case info.Kind == tables.VifDateG && n == 2:
		rec.Date, rec.HasDate = decodeTypeGDate(data)
	case info.Kind == tables.VifDateTimeF && n == 4:
		rec.Date, rec.HasDate = decodeTypeFDateTime(data)
	case lengthCode == 0x05:
		raw := float64(math.Float32frombits(uint32(codec.UintLE(data))))
		rec.Value, rec.HasValue = scale(raw, info)
	case bcd:
		v, err := codec.BCD(data)
		if err != nil {
			return r.malformed(err.Error())
		}
		rec.Value, rec.HasValue = scale(float64(v), info)
	default:
		rec.Value, rec.HasValue = scale(float64(codec.UintLE(data)), info)
	}
	return nil
}

// readVariableData handles DIF length code 0xD: the first data byte
// selects length and encoding (plain text, BCD or binary).
func (r *dvReader) readVariableData(rec *Record, info tables.VifInfo) error {
	lvarBytes, _, ok := r.takeData(1)
	if !ok {
		return r.malformed("payload truncated before LVAR byte")
	}
	lvar := lvarBytes[0]
	switch {
	case lvar <= 0xBF:
		data, offset, ok := r.takeData(int(lvar))
		if !ok {
			return r.malformed("payload truncated inside LVAR text")
		}
		rec.Data = data
		rec.Offset = offset
		rec.Text = reverseString(data)
	case lvar <= 0xCF:
		data, offset, ok := r.takeData(int(lvar - 0xC0))
		if !ok {
			return r.malformed("payload truncated inside LVAR BCD")
		}
		rec.Data = data
		rec.Offset = offset
		v, err := codec.BCD(data)
		if err != nil {
			return r.malformed(err.Error())
		}
		rec.Value, rec.HasValue = scale(float64(v), info)
	case lvar <= 0xDF:
		data, offset, ok := r.takeData(int(lvar - 0xD0))
		if !ok {
			return r.malformed("payload truncated inside LVAR BCD")
		}
		rec.Data = data
		rec.Offset = offset
		v, err := codec.BCD(data)
		if err != nil {
			return r.malformed(err.Error())
		}
		rec.Value, rec.HasValue = scale(float64(-v), info)
	case lvar <= 0xEF:
		data, offset, ok := r.takeData(int(lvar - 0xE0))
		if !ok {
			return r.malformed("payload truncated inside LVAR binary")
		}
		rec.Data = data
		rec.Offset = offset
		rec.Value, rec.HasValue = scale(float64(codec.UintLE(data)), info)
	default:
		return r.malformed(fmt.Sprintf("reserved LVAR 0x%02x", lvar))
	}
	return nil
}

func scale(raw float64, info tables.VifInfo) (float64, bool) {
	if info.Kind != tables.VifNumeric {
		return raw, true
	}
	if info.Mult == 0 {
		return raw, true
	}
	return raw * info.Mult, true
}

// difDataLength maps the DIF length nibble to the data byte count; the
// bool marks BCD encodings.
func difDataLength(code byte) (int, bool) {
	switch code {
	case 0x00, 0x08:
		return 0, false
	case 0x01, 0x02, 0x03, 0x04:
		return int(code), false
	case 0x05:
		return 4, false
	case 0x06:
		return 6, false
	case 0x07:
		return 8, false
	case 0x09, 0x0A, 0x0B, 0x0C:
		return int(code - 0x08), true
	case 0x0E:
		return 6, true
	}
	return 0, false
}

func difTypeName(dif byte) string {
	var s string
	switch dif & 0x0F {
	case 0x00:
		s = "No data"
	case 0x01:
		s = "8 Bit Integer/Binary"
	case 0x02:
		s = "16 Bit Integer/Binary"
	case 0x03:
		s = "24 Bit Integer/Binary"
	case 0x04:
		s = "32 Bit Integer/Binary"
	case 0x05:
		s = "32 Bit Real"
	case 0x06:
		s = "48 Bit Integer/Binary"
	case 0x07:
		s = "64 Bit Integer/Binary"
	case 0x08:
		s = "Selection for Readout"
	case 0x09:
		s = "2 digit BCD"
	case 0x0A:
		s = "4 digit BCD"
	case 0x0B:
		s = "6 digit BCD"
	case 0x0C:
		s = "8 digit BCD"
	case 0x0D:
		s = "variable length"
	case 0x0E:
		s = "12 digit BCD"
	case 0x0F:
		s = "Special Functions"
	}
	if dif&0x0F != 0x0F {
		switch dif & 0x30 {
		case 0x00:
			s += " Instantaneous value"
		case 0x10:
			s += " Maximum value"
		case 0x20:
			s += " Minimum value"
		case 0x30:
			s += " Value during error state"
		}
	}
	if dif&0x40 != 0 {
		s += " storagenr=1"
	}
	return s
}

func reverseString(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return string(out)
}

// decodeTypeGDate decodes the two byte date (type G): day and month plus
// a split 7 bit year.
func decodeTypeGDate(b []byte) (time.Time, bool) {
	day := int(b[0] & 0x1F)
	month := int(b[1] & 0x0F)
	year := 2000 + int(b[1]>>4)<<3 + int(b[0]>>5)
	if day == 0 || day > 31 || month == 0 || month > 12 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

// decodeTypeFDateTime decodes the four byte timestamp (type F).
func decodeTypeFDateTime(b []byte) (time.Time, bool) {
	minute := int(b[0] & 0x3F)
	hour := int(b[1] & 0x1F)
	day := int(b[2] & 0x1F)
	month := int(b[3] & 0x0F)
	year := 2000 + int(b[3]>>4)<<3 + int(b[2]>>5&0x07)
	if minute > 59 || hour > 23 || day == 0 || day > 31 || month == 0 || month > 12 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC), true
}
