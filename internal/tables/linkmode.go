package tables

import "strings"

// LinkMode is one radio link mode from EN 13757-4.
type LinkMode int

const (
	LinkModeUnknown LinkMode = iota
	LinkModeAny
	LinkModeC1
	LinkModeS1
	LinkModeS1m
	LinkModeT1
	LinkModeN1a
	LinkModeN1b
	LinkModeN1c
	LinkModeN1d
	LinkModeN1e
	LinkModeN1f
)

type linkModeInfo struct {
	mode   LinkMode
	name   string
	lcname string
	bit    int
}

var linkModes = []linkModeInfo{
	{LinkModeAny, "Any", "any", 0xFFFF},
	{LinkModeC1, "C1", "c1", 0x0001},
	{LinkModeS1, "S1", "s1", 0x0002},
	{LinkModeS1m, "S1m", "s1m", 0x0004},
	{LinkModeT1, "T1", "t1", 0x0008},
	{LinkModeN1a, "N1a", "n1a", 0x0010},
	{LinkModeN1b, "N1b", "n1b", 0x0020},
	{LinkModeN1c, "N1c", "n1c", 0x0040},
	{LinkModeN1d, "N1d", "n1d", 0x0080},
	{LinkModeN1e, "N1e", "n1e", 0x0100},
	{LinkModeN1f, "N1f", "n1f", 0x0200},
}

// LinkModeName returns the display name ("C1", "S1m", "Any").
func LinkModeName(lm LinkMode) string {
	for _, s := range linkModes {
		if s.mode == lm {
			return s.name
		}
	}
	return "UnknownLinkMode"
}

// ParseLinkMode matches a lowercase name to a mode.
func ParseLinkMode(name string) LinkMode {
	for _, s := range linkModes {
		if s.lcname == name {
			return s.mode
		}
	}
	return LinkModeUnknown
}

// LinkModeSet is a bitset of link modes.
type LinkModeSet struct {
	bits int
}

// Add sets the bit for lm.
func (s *LinkModeSet) Add(lm LinkMode) {
	for _, l := range linkModes {
		if l.mode == lm {
			s.bits |= l.bit
		}
	}
}

// Union merges other into s.
func (s *LinkModeSet) Union(other LinkModeSet) {
	s.bits |= other.bits
}

// Intersect keeps only modes present in both sets.
func (s *LinkModeSet) Intersect(other LinkModeSet) {
	s.bits &= other.bits
}

// Supports reports whether any mode of other is in s.
func (s LinkModeSet) Supports(other LinkModeSet) bool {
	return s.bits&other.bits != 0
}

// Has reports whether lm is in the set.
func (s LinkModeSet) Has(lm LinkMode) bool {
	for _, l := range linkModes {
		if l.mode == lm {
			return s.bits&l.bit != 0
		}
	}
	return false
}

// HasAll reports whether every mode of other is in s.
func (s LinkModeSet) HasAll(other LinkModeSet) bool {
	return s.bits&other.bits == other.bits
}

// Bits exposes the raw bitset.
func (s LinkModeSet) Bits() int { return s.bits }

// String renders the set as a comma separated lowercase list.
func (s LinkModeSet) String() string {
	if s.bits == 0xFFFF {
		return "any"
	}
	if s.bits == 0 {
		return "none"
	}
	var parts []string
	for _, l := range linkModes {
		if l.mode == LinkModeAny {
			continue
		}
		if s.bits&l.bit != 0 {
			parts = append(parts, l.lcname)
		}
	}
	return strings.Join(parts, ",")
}

// ParseLinkModes parses a comma separated list of lowercase mode names.
func ParseLinkModes(list string) (LinkModeSet, bool) {
	var s LinkModeSet
	for _, tok := range strings.Split(list, ",") {
		lm := ParseLinkMode(strings.TrimSpace(tok))
		if lm == LinkModeUnknown {
			return LinkModeSet{}, false
		}
		s.Add(lm)
	}
	return s, true
}
