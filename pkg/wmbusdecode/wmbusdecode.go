// Package wmbusdecode is the public face of the telegram decoder: frame
// parsing with authentication and decryption, DV record queries and the
// driver based field extraction used by the analyze CLI.
package wmbusdecode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gitlab.com/d21d3q/wmbusdecode/internal/codec"
	"gitlab.com/d21d3q/wmbusdecode/internal/crypto"
	"gitlab.com/d21d3q/wmbusdecode/internal/driver"
	_ "gitlab.com/d21d3q/wmbusdecode/internal/driver/omnipower" // register driver
	"gitlab.com/d21d3q/wmbusdecode/internal/frame"
)

// Re-exported parser types: the telegram is produced by internal/frame
// but queried by callers.
type (
	Telegram       = frame.Telegram
	Record         = frame.Record
	MeterKeys      = frame.MeterKeys
	SignatureCache = frame.SignatureCache
)

// Re-exported error values and types, one per parse outcome.
var (
	ErrTruncated = frame.ErrTruncated
	ErrBadMAC    = frame.ErrBadMAC
	ErrWrongKey  = frame.ErrWrongKey
)

type (
	BadCRCError        = frame.BadCRCError
	UnknownFormatError = frame.UnknownFormatError
	UnknownCIError     = frame.UnknownCIError
	MalformedDVError   = frame.MalformedDVError
)

// NewSignatureCache returns an empty format-signature cache for callers
// that do not want the process-wide default (tests, mostly).
func NewSignatureCache() *SignatureCache { return frame.NewSignatureCache() }

// Parse decodes a raw frame using the process-wide signature cache. The
// returned telegram is non-nil even on error, carrying the explanation
// trail and any records decoded before the fault.
func Parse(raw []byte, keys MeterKeys) (*Telegram, error) {
	return ParseWithCache(raw, keys, nil)
}

// ParseWithCache decodes a raw frame against an injected signature
// cache.
func ParseWithCache(raw []byte, keys MeterKeys, cache *SignatureCache) (*Telegram, error) {
	t, err := frame.Parse(raw, keys, cache)
	parseOutcomes.WithLabelValues(outcomeLabel(err)).Inc()
	return t, err
}

// Find returns the first record whose DIF/VIF key matches the uppercase
// hex prefix pattern.
func Find(t *Telegram, pattern string) *Record {
	return t.FindRecord(pattern)
}

// ExtractDouble returns the scaled value of the first matching record.
func ExtractDouble(t *Telegram, pattern string) (float64, bool) {
	return t.ExtractDouble(pattern)
}

// Result captures the outcome of AnalyzeHex.
type Result struct {
	Driver    string
	RawHex    string
	ByteCount int
	Telegram  *Telegram
	Fields    map[string]any
}

// String renders a human-readable representation of the result.
func (r Result) String() string {
	summary := map[string]any{
		"driver":     r.Driver,
		"byte_count": r.ByteCount,
		"raw_hex":    r.RawHex,
	}
	if r.Telegram != nil {
		summary["meter_id"] = r.Telegram.IDString()
		summary["manufacturer"] = fmt.Sprintf("0x%04X", r.Telegram.DLL.Mfct)
		summary["ci"] = fmt.Sprintf("0x%02X", r.Telegram.TPL.CI)
	}
	if len(r.Fields) > 0 {
		summary["fields"] = r.Fields
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Sprintf("driver: %s bytes:%d raw:%s (marshal error: %v)", r.Driver, r.ByteCount, r.RawHex, err)
	}
	return string(data)
}

// AnalyzeHex parses the frame, selects a driver, and returns decoded data.
func AnalyzeHex(ctx context.Context, raw string) (Result, error) {
	return AnalyzeHexWithOptions(ctx, raw, AnalyzeOptions{})
}

// AnalyzeHexWithOptions parses the frame with custom options.
func AnalyzeHexWithOptions(ctx context.Context, raw string, opts AnalyzeOptions) (Result, error) {
	ctxWithKey, keys, err := opts.toInternal(ctx)
	if err != nil {
		return Result{}, err
	}
	data, err := codec.DecodeHexString(raw)
	if err != nil {
		return Result{}, err
	}

	telegram, parseErr := Parse(data, keys)
	result := Result{
		Driver:    "unknown",
		RawHex:    strings.ToUpper(strings.NewReplacer(" ", "", "|", "", "_", "").Replace(raw)),
		ByteCount: len(data),
		Telegram:  telegram,
	}

	drv, err := driver.Lookup(telegram)
	if err != nil {
		return result, parseErr
	}
	result.Driver = drv.Name()

	if parseErr != nil {
		if errors.Is(parseErr, crypto.ErrKeyRequired) {
			if reporter, ok := drv.(driver.PartialReporter); ok {
				fields := reporter.PartialFields(telegram)
				fields["encryption"] = parseErr.Error()
				result.Fields = fields
				return result, nil
			}
		}
		return result, parseErr
	}

	fields, err := drv.Process(ctxWithKey, telegram)
	if err != nil {
		if reporter, ok := drv.(driver.PartialReporter); ok {
			partial := reporter.PartialFields(telegram)
			partial["error"] = err.Error()
			result.Fields = partial
			return result, nil
		}
		return result, err
	}
	result.Fields = fields
	return result, nil
}
