package driver

import (
	"context"
	"fmt"
	"sync"

	"gitlab.com/d21d3q/wmbusdecode/internal/frame"
)

// Detection contains minimal information required to identify a driver.
type Detection struct {
	Manufacturer uint16
	CI           byte
	DeviceTypes  []byte
}

// Driver processes telegrams once selected.
type Driver interface {
	Name() string
	Process(context.Context, *frame.Telegram) (map[string]any, error)
}

// PartialReporter can supply minimal fields when payload decryption fails.
type PartialReporter interface {
	PartialFields(*frame.Telegram) map[string]any
}

var (
	regMu    sync.RWMutex
	registry []registeredDriver
)

type registeredDriver struct {
	detect Detection
	driver Driver
}

// Register stores a driver/detection pair in memory.
func Register(det Detection, drv Driver) {
	regMu.Lock()
	defer regMu.Unlock()
	registry = append(registry, registeredDriver{detect: det, driver: drv})
}

// Lookup returns the first driver that matches the telegram's
// manufacturer, CI and device type.
func Lookup(t *frame.Telegram) (Driver, error) {
	regMu.RLock()
	defer regMu.RUnlock()
	deviceType := t.DLL.DeviceType
	if t.TPL.IDFound {
		deviceType = t.TPL.DeviceType
	}
	for _, rd := range registry {
		if rd.detect.Manufacturer != t.DLL.Mfct {
			continue
		}
		if rd.detect.CI != 0 && rd.detect.CI != t.TPL.CI {
			continue
		}
		if len(rd.detect.DeviceTypes) > 0 && !containsByte(rd.detect.DeviceTypes, deviceType) {
			continue
		}
		return rd.driver, nil
	}
	return nil, fmt.Errorf("driver not found for manufacturer 0x%04X CI 0x%02X", t.DLL.Mfct, t.TPL.CI)
}

func containsByte(list []byte, b byte) bool {
	for _, x := range list {
		if x == b {
			return true
		}
	}
	return false
}
