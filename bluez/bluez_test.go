package bluez

import (
	"testing"

	"github.com/godbus/dbus/v5"

	"wlcontrol/common"
)

func TestDevicePathRoundTrip(t *testing.T) {
	adapter := dbus.ObjectPath("/org/bluez/hci0")
	addr := "AA:BB:CC:DD:EE:FF"

	path := DevicePath(adapter, addr)
	if path != "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF" {
		t.Fatalf("wrong path: %v", path)
	}
	if got := AddressFromPath(path); got != addr {
		t.Fatalf("AddressFromPath(%v) = %q, want %q", path, got, addr)
	}
}

func TestAddressFromPathRejectsNonDevices(t *testing.T) {
	for _, p := range []dbus.ObjectPath{
		"/org/bluez/hci0",
		"/org/bluez",
		"/",
		"/org/bluez/hci0/dev_AA_BB",
	} {
		if got := AddressFromPath(p); got != "" {
			t.Errorf("AddressFromPath(%v) = %q, want empty", p, got)
		}
	}
}

func TestIsNoise(t *testing.T) {
	cases := []struct {
		d    common.BtDeviceData
		want bool
	}{
		{common.BtDeviceData{Address: "AA:BB:CC:DD:EE:FF", Alias: "AA:BB:CC:DD:EE:FF"}, true},
		{common.BtDeviceData{Address: "AA:BB:CC:DD:EE:FF", Alias: "AA:BB:CC:DD:EE:FF", Name: "Buds"}, false},
		{common.BtDeviceData{Address: "AA:BB:CC:DD:EE:FF", Alias: "Buds"}, false},
	}
	for _, c := range cases {
		if got := IsNoise(c.d); got != c.want {
			t.Errorf("IsNoise(%+v) = %v, want %v", c.d, got, c.want)
		}
	}
}

func TestDeviceFromProps(t *testing.T) {
	ifaces := map[string]map[string]dbus.Variant{
		DeviceIF: {
			"Address":   dbus.MakeVariant("AA:BB:CC:DD:EE:FF"),
			"Name":      dbus.MakeVariant("Buds"),
			"Alias":     dbus.MakeVariant("My Buds"),
			"Icon":      dbus.MakeVariant("audio-headset"),
			"Paired":    dbus.MakeVariant(true),
			"Trusted":   dbus.MakeVariant(true),
			"Connected": dbus.MakeVariant(false),
			"RSSI":      dbus.MakeVariant(int16(-52)),
		},
		BatteryIF: {
			"Percentage": dbus.MakeVariant(byte(80)),
		},
	}

	d, ok := DeviceFromProps(ifaces)
	if !ok {
		t.Fatal("device interface not recognised")
	}
	if d.Name != "Buds" || d.Alias != "My Buds" || !d.Paired || d.Connected {
		t.Errorf("wrong snapshot: %+v", d)
	}
	if d.RSSI != -52 || d.Battery != 80 {
		t.Errorf("wrong signal/battery: %+v", d)
	}
}

func TestDeviceFromPropsDefaults(t *testing.T) {
	ifaces := map[string]map[string]dbus.Variant{
		DeviceIF: {"Address": dbus.MakeVariant("AA:BB:CC:DD:EE:FF")},
	}
	d, _ := DeviceFromProps(ifaces)
	if d.Battery != common.BatteryUnknown {
		t.Errorf("battery should default to unknown, got %d", d.Battery)
	}
	if d.RSSI != common.RSSIUnknown {
		t.Errorf("rssi should default to unknown, got %d", d.RSSI)
	}
}

func TestDeviceFromPropsNoDeviceInterface(t *testing.T) {
	if _, ok := DeviceFromProps(map[string]map[string]dbus.Variant{}); ok {
		t.Fatal("empty interface map treated as a device")
	}
}
