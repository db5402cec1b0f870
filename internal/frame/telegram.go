// Package frame implements the layered wM-Bus telegram parser: DLL, ELL,
// NWL, AFL and TPL headers, payload decryption and the DIF/VIF record
// stream. The frame buffer is owned by the Telegram and decrypted in
// place, so every layer reads plaintext at its own offset.
package frame

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"gitlab.com/d21d3q/wmbusdecode/internal/tables"
)

var log = logrus.WithField("component", "wmbus")

// MeterKeys carries the per-meter key material. Simulation mode accepts
// pre-decrypted payloads when no key is configured (replay fixtures).
type MeterKeys struct {
	ConfidentialityKey []byte
	IsSimulation       bool
}

// HasConfidentialityKey reports whether a usable AES key is present.
func (k MeterKeys) HasConfidentialityKey() bool {
	return len(k.ConfidentialityKey) == 16
}

// DLLInfo is the data link layer header.
type DLLInfo struct {
	Len        byte
	C          byte
	Mfct       uint16
	ID         [4]byte
	Version    byte
	DeviceType byte
}

// ELLInfo is the optional extended link layer.
type ELLInfo struct {
	CI           byte
	CC           byte
	ACC          byte
	HasSecondary bool
	Mfct         uint16
	ID           [4]byte
	Version      byte
	DeviceType   byte
	HasSN        bool
	SN           [4]byte
	SNSession    int
	SNTime       int
	SecurityMode tables.ELLSecurityMode
	PayloadCRC   uint16
}

// AFLInfo is the optional authentication and fragmentation sublayer.
type AFLInfo struct {
	CI         byte
	Len        byte
	FC         uint16
	HasMCL     bool
	MCL        byte
	HasKeyInfo bool
	KeyInfo    uint16
	HasCounter bool
	Counter    [4]byte
	MAC        []byte
}

// TPLInfo is the transport layer header.
type TPLInfo struct {
	CI              byte
	IDFound         bool
	ID              [4]byte
	Mfct            uint16
	Version         byte
	DeviceType      byte
	ACC             byte
	STS             byte
	Config          uint16
	SecurityMode    tables.TPLSecurityMode
	EncryptedBlocks int
	ConfigExt       byte
	KDFSelection    int
	GeneratedKey    []byte
	GeneratedMACKey []byte
	Start           int
}

// Explanation annotates a consumed byte range, starting at Offset.
type Explanation struct {
	Offset int
	Text   string
}

// Telegram is the decoded value: mutable during parsing, read-only for
// queries afterwards.
type Telegram struct {
	Frame []byte

	DLL DLLInfo
	ELL ELLInfo
	AFL AFLInfo
	TPL TPLInfo

	FormatSignature uint16
	FormatBytes     []byte

	Records      []Record
	Explanations []Explanation

	HeaderSize int

	keys     MeterKeys
	cache    *SignatureCache
	enriched map[int]string
	parsed   int
}

// ParsedBytes counts how many frame bytes the explanation trail covers.
// On a clean parse it equals the frame length: every byte is explained
// exactly once.
func (t *Telegram) ParsedBytes() int { return t.parsed }

// IDString renders the meter id in EN 13757 display order (MSB first).
func (t *Telegram) IDString() string {
	id := t.DLL.ID
	if t.TPL.IDFound {
		id = t.TPL.ID
	}
	return fmt.Sprintf("%02X%02X%02X%02X", id[3], id[2], id[1], id[0])
}

// explain appends an annotation for the n bytes at c.off and advances the
// cursor past them.
func (t *Telegram) explain(c cursor, n int, format string, args ...any) cursor {
	t.Explanations = append(t.Explanations, Explanation{
		Offset: c.off,
		Text:   fmt.Sprintf(format, args...),
	})
	c.off += n
	t.parsed += n
	return c
}

// AddMoreExplanation enriches the annotation at offset. A second
// enrichment at the same offset replaces the first.
func (t *Telegram) AddMoreExplanation(offset int, format string, args ...any) {
	suffix := fmt.Sprintf(format, args...)
	for i := range t.Explanations {
		if t.Explanations[i].Offset != offset {
			continue
		}
		if t.enriched == nil {
			t.enriched = map[int]string{}
		}
		base, ok := t.enriched[offset]
		if !ok {
			base = t.Explanations[i].Text
			t.enriched[offset] = base
		}
		t.Explanations[i].Text = base + suffix
		return
	}
	log.Debugf("cannot find offset %d to add more explanation %q", offset, suffix)
}

// Parse decodes a raw frame. The returned telegram is always non-nil so
// callers can inspect the explanation trail and any records decoded
// before an error.
func Parse(raw []byte, keys MeterKeys, cache *SignatureCache) (*Telegram, error) {
	if cache == nil {
		cache = DefaultSignatureCache
	}
	t := &Telegram{
		Frame: append([]byte(nil), raw...),
		keys:  keys,
		cache: cache,
	}
	cur := cursor{frame: t.Frame}

	cur, err := t.parseDLL(cur)
	if err != nil {
		return t, err
	}
	cur, err = t.parseELL(cur)
	if err != nil {
		return t, err
	}
	cur, err = t.parseNWL(cur)
	if err != nil {
		return t, err
	}
	cur, err = t.parseAFL(cur)
	if err != nil {
		return t, err
	}
	if err := t.parseTPL(cur); err != nil {
		return t, err
	}
	return t, nil
}
