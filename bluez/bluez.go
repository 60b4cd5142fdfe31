// Package bluez drives the Bluetooth daemon (org.bluez) over the
// system bus: adapter control, discovery, device operations, and the
// pairing agent.
package bluez

import (
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	Dest         = "org.bluez"
	PropsIF      = "org.freedesktop.DBus.Properties"
	ObjMgrIF     = "org.freedesktop.DBus.ObjectManager"
	AdapterIF    = "org.bluez.Adapter1"
	DeviceIF     = "org.bluez.Device1"
	BatteryIF    = "org.bluez.Battery1"
	AgentIF      = "org.bluez.Agent1"
	AgentMgrIF   = "org.bluez.AgentManager1"
	AgentMgrPath = dbus.ObjectPath("/org/bluez")
)

// ManagedObjects is the ObjectManager snapshot shape.
type ManagedObjects = map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// DevicePath converts a MAC address like "AA:BB:CC:DD:EE:FF" into the
// daemon's object path under the given adapter.
func DevicePath(adapter dbus.ObjectPath, addr string) dbus.ObjectPath {
	escaped := strings.ReplaceAll(addr, ":", "_")
	return dbus.ObjectPath(string(adapter) + "/dev_" + escaped)
}

// AddressFromPath extracts the MAC address from a device object path,
// or "" when the path is not a device path.
func AddressFromPath(path dbus.ObjectPath) string {
	s := string(path)
	i := strings.LastIndex(s, "/dev_")
	if i < 0 {
		return ""
	}
	addr := strings.ReplaceAll(s[i+len("/dev_"):], "_", ":")
	if strings.Count(addr, ":") != 5 {
		return ""
	}
	return addr
}

func getProps(o dbus.BusObject, iface string) map[string]dbus.Variant {
	var m map[string]dbus.Variant
	o.Call(PropsIF+".GetAll", 0, iface).Store(&m)
	return m
}

func variantString(m map[string]dbus.Variant, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.Value().(string); ok {
			return s
		}
	}
	return ""
}

func variantBool(m map[string]dbus.Variant, key string) bool {
	if v, ok := m[key]; ok {
		if b, ok := v.Value().(bool); ok {
			return b
		}
	}
	return false
}
