package driver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/d21d3q/wmbusdecode/internal/frame"
)

type stubDriver struct{ name string }

func (d stubDriver) Name() string { return d.name }
func (d stubDriver) Process(context.Context, *frame.Telegram) (map[string]any, error) {
	return map[string]any{"meter": d.name}, nil
}

func TestRegistryLookup(t *testing.T) {
	Register(Detection{Manufacturer: 0x1234, DeviceTypes: []byte{0x07}}, stubDriver{name: "stub-water"})
	Register(Detection{Manufacturer: 0x1234, CI: 0x72}, stubDriver{name: "stub-any-type"})

	tg := &frame.Telegram{}
	tg.DLL.Mfct = 0x1234
	tg.DLL.DeviceType = 0x07
	tg.TPL.CI = 0x7A

	drv, err := Lookup(tg)
	require.NoError(t, err)
	require.Equal(t, "stub-water", drv.Name())

	tg.DLL.DeviceType = 0x02
	tg.TPL.CI = 0x72
	drv, err = Lookup(tg)
	require.NoError(t, err)
	require.Equal(t, "stub-any-type", drv.Name())

	tg.DLL.Mfct = 0x9999
	_, err = Lookup(tg)
	require.Error(t, err)
}
