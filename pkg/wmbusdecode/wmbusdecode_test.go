package wmbusdecode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/d21d3q/wmbusdecode/internal/codec"
)

func hexBytes(s string) ([]byte, error) {
	return codec.DecodeHexString(s)
}

const omnipowerHex = "2E442D2C785634123002" +
	"7A00000000" +
	"04040A000000" +
	"04843C14000000" +
	"042B05000000" +
	"04AB3C02000000"

func TestAnalyzeHexOmnipower(t *testing.T) {
	ctx := context.Background()
	result, err := AnalyzeHex(ctx, omnipowerHex)
	require.NoError(t, err)
	require.Equal(t, "omnipower", result.Driver)
	require.NotNil(t, result.Telegram)
	require.Equal(t, "12345678", result.Telegram.IDString())

	require.InDelta(t, 0.1, result.Fields["total_energy_consumption_kwh"].(float64), 1e-9)
	require.InDelta(t, 0.2, result.Fields["total_energy_production_kwh"].(float64), 1e-9)
	require.InDelta(t, 0.005, result.Fields["power_consumption_kw"].(float64), 1e-9)
	require.InDelta(t, 0.002, result.Fields["power_production_kw"].(float64), 1e-9)
}

func TestAnalyzeHexOddLength(t *testing.T) {
	_, err := AnalyzeHex(context.Background(), "ABC")
	require.Error(t, err)
}

func TestAnalyzeHexUnknownDriver(t *testing.T) {
	// Same telegram shape but a manufacturer nobody registered.
	hex := "2E44FFFF785634123002" + "7A00000000" + "04040A000000"
	result, err := AnalyzeHex(context.Background(), hex)
	require.NoError(t, err)
	require.Equal(t, "unknown", result.Driver)
	require.NotNil(t, result.Telegram)
	require.Len(t, result.Telegram.Records, 1)
}

func TestAnalyzeHexEncryptedPartialFields(t *testing.T) {
	// Security mode 5 without a key: the driver reports partial fields
	// and flags the missing key instead of failing.
	hex := "2C442D2C785634123002" + "7A42000005" +
		"00112233445566778899AABBCCDDEEFF"
	result, err := AnalyzeHexWithOptions(context.Background(), hex, AnalyzeOptions{})
	require.NoError(t, err)
	require.Equal(t, "omnipower", result.Driver)
	require.Contains(t, result.Fields, "encryption")
	require.Equal(t, "12345678", result.Fields["id"])
}

func TestParseReturnsPartialTelegramOnError(t *testing.T) {
	raw, err := hexBytes("0A442D2C78563412300281")
	require.NoError(t, err)
	tg, perr := Parse(raw, MeterKeys{})
	require.Error(t, perr)
	require.NotNil(t, tg)
	require.NotEmpty(t, tg.Explanations)
}

func TestExtractDoubleHelpers(t *testing.T) {
	raw, err := hexBytes(omnipowerHex)
	require.NoError(t, err)
	tg, perr := Parse(raw, MeterKeys{})
	require.NoError(t, perr)

	rec := Find(tg, "04843C")
	require.NotNil(t, rec)
	require.Equal(t, "energy", rec.SemanticKey)

	v, ok := ExtractDouble(tg, "04AB3C")
	require.True(t, ok)
	require.InDelta(t, 0.002, v, 1e-9)

	_, ok = ExtractDouble(tg, "0C13")
	require.False(t, ok)
}
