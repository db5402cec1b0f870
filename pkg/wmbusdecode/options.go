package wmbusdecode

import (
	"context"

	"gitlab.com/d21d3q/wmbusdecode/internal/frame"
	internalopts "gitlab.com/d21d3q/wmbusdecode/internal/options"
)

// AnalyzeOptions configures parsing.
type AnalyzeOptions struct {
	KeyHex string
	// Simulation accepts already-decrypted payloads when no key is set,
	// for replaying captured fixtures.
	Simulation bool
}

func (opts AnalyzeOptions) toInternal(ctx context.Context) (context.Context, frame.MeterKeys, error) {
	key, err := internalopts.ParseKeyHex(opts.KeyHex)
	if err != nil {
		return ctx, frame.MeterKeys{}, err
	}
	ctx = internalopts.WithSecurityKey(ctx, key)
	return ctx, frame.MeterKeys{ConfidentialityKey: key, IsSimulation: opts.Simulation}, nil
}
