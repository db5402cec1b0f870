package wmbusdecode

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/d21d3q/wmbusdecode/internal/testutil"
)

func TestOmnipowerGolden(t *testing.T) {
	fixtures := []struct {
		name string
		opts AnalyzeOptions
	}{
		{name: "omnipower"},
	}
	for _, tc := range fixtures {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			hexStr := testutil.LoadHex(t, "omnipower/"+tc.name+".hex")
			result, err := AnalyzeHexWithOptions(context.Background(), hexStr, tc.opts)
			require.NoError(t, err)

			var expected map[string]any
			testutil.LoadJSON(t, "omnipower/"+tc.name+".json", &expected)
			require.Equal(t, "", diffMaps(expected, result.Fields))
		})
	}
}

func diffMaps(expected, actual map[string]any) string {
	if len(expected) != len(actual) {
		return fmt.Sprintf("len mismatch expected %d actual %d", len(expected), len(actual))
	}
	for k, v := range expected {
		av, ok := actual[k]
		if !ok {
			return fmt.Sprintf("missing key %s", k)
		}
		switch ev := v.(type) {
		case float64:
			avFloat, ok := av.(float64)
			if !ok || math.Abs(ev-avFloat) > 1e-6 {
				return fmt.Sprintf("key %s mismatch expected %v got %v", k, v, av)
			}
		default:
			if fmt.Sprintf("%v", v) != fmt.Sprintf("%v", av) {
				return fmt.Sprintf("key %s mismatch expected %v got %v", k, v, av)
			}
		}
	}
	return ""
}
