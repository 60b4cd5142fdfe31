// Package iwd drives the wireless station daemon (net.connman.iwd)
// over the system bus: adapter enumeration, scanning, connect and
// forget operations, and the credential agent.
package iwd

import (
	"github.com/godbus/dbus/v5"
)

const (
	Dest       = "net.connman.iwd"
	PropsIF    = "org.freedesktop.DBus.Properties"
	ObjMgrIF   = "org.freedesktop.DBus.ObjectManager"
	DeviceIF   = "net.connman.iwd.Device"
	StationIF  = "net.connman.iwd.Station"
	NetworkIF  = "net.connman.iwd.Network"
	KnownNetIF = "net.connman.iwd.KnownNetwork"
	AgentMgrIF = "net.connman.iwd.AgentManager"
	AgentIF    = "net.connman.iwd.Agent"
)

// ManagedObjects is the ObjectManager snapshot shape: path -> interface
// -> property map.
type ManagedObjects = map[dbus.ObjectPath]map[string]map[string]dbus.Variant

func GetProps(o dbus.BusObject, iface string) map[string]dbus.Variant {
	var m map[string]dbus.Variant
	o.Call(PropsIF+".GetAll", 0, iface).Store(&m)
	return m
}

func getManagedObjects(c *dbus.Conn) (ManagedObjects, error) {
	var objs ManagedObjects
	root := c.Object(Dest, "/")
	if err := root.Call(ObjMgrIF+".GetManagedObjects", 0).Store(&objs); err != nil {
		return nil, err
	}
	return objs, nil
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

func variantPath(m map[string]dbus.Variant, key string) dbus.ObjectPath {
	if v, ok := m[key]; ok {
		if p, ok := v.Value().(dbus.ObjectPath); ok {
			return p
		}
	}
	return ""
}
