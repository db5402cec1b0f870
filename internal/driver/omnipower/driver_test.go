package omnipower

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/d21d3q/wmbusdecode/internal/codec"
	"gitlab.com/d21d3q/wmbusdecode/internal/frame"
)

const telegramHex = "2E442D2C785634123002" +
	"7A00000000" +
	"04040A000000" +
	"04843C14000000" +
	"042B05000000" +
	"04AB3C02000000"

func TestDriverProcess(t *testing.T) {
	raw, err := codec.DecodeHexString(telegramHex)
	require.NoError(t, err)
	tg, err := frame.Parse(raw, frame.MeterKeys{}, frame.NewSignatureCache())
	require.NoError(t, err)

	fields, err := (Driver{}).Process(context.Background(), tg)
	require.NoError(t, err)

	require.Equal(t, "12345678", fields["id"])
	require.Equal(t, "omnipower", fields["meter"])
	require.Equal(t, "electricity", fields["media"])
	require.InDelta(t, 0.1, fields["total_energy_consumption_kwh"].(float64), 1e-9)
	require.InDelta(t, 0.002, fields["power_production_kw"].(float64), 1e-9)

	// Processing enriches the explanation trail with the scaled values.
	enriched := false
	for _, e := range tg.Explanations {
		if strings.Contains(e.Text, "total energy") {
			enriched = true
		}
	}
	require.True(t, enriched)
}

func TestDriverProcessNoRegisters(t *testing.T) {
	raw, err := codec.DecodeHexString("1044 2D2C 78563412 3002 7A 00 00 0000 0C13 66380000")
	require.NoError(t, err)
	tg, err := frame.Parse(raw, frame.MeterKeys{}, frame.NewSignatureCache())
	require.NoError(t, err)

	_, err = (Driver{}).Process(context.Background(), tg)
	require.Error(t, err)
}

func TestPartialFields(t *testing.T) {
	raw, err := codec.DecodeHexString(telegramHex)
	require.NoError(t, err)
	tg, err := frame.Parse(raw, frame.MeterKeys{}, frame.NewSignatureCache())
	require.NoError(t, err)

	fields := (Driver{}).PartialFields(tg)
	require.Equal(t, "12345678", fields["id"])
	require.Equal(t, "omnipower", fields["meter"])
}
