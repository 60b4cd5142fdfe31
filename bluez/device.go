package bluez

import (
	"github.com/godbus/dbus/v5"

	"wlcontrol/common"
)

// DeviceFromProps builds a device snapshot from an interface property
// map, as delivered by GetManagedObjects or InterfacesAdded.
func DeviceFromProps(ifaces map[string]map[string]dbus.Variant) (common.BtDeviceData, bool) {
	props, ok := ifaces[DeviceIF]
	if !ok {
		return common.BtDeviceData{}, false
	}

	d := common.BtDeviceData{
		Address:   variantString(props, "Address"),
		Name:      variantString(props, "Name"),
		Alias:     variantString(props, "Alias"),
		Icon:      variantString(props, "Icon"),
		Paired:    variantBool(props, "Paired"),
		Trusted:   variantBool(props, "Trusted"),
		Connected: variantBool(props, "Connected"),
		Battery:   common.BatteryUnknown,
		RSSI:      common.RSSIUnknown,
	}
	if v, ok := props["RSSI"]; ok {
		if rssi, ok := v.Value().(int16); ok {
			d.RSSI = rssi
		}
	}
	if bat, ok := ifaces[BatteryIF]; ok {
		if v, ok := bat["Percentage"]; ok {
			if pct, ok := v.Value().(byte); ok {
				d.Battery = int(pct)
			}
		}
	}
	return d, true
}

// IsNoise reports whether a discovery result is an anonymous BLE
// advertisement not worth showing: no name, and an alias that is just
// the address echoed back.
func IsNoise(d common.BtDeviceData) bool {
	return d.Name == "" && d.Alias == d.Address
}

// ReadDevice re-reads one device's full snapshot from the daemon.
func (b *Backend) ReadDevice(addr string) (common.BtDeviceData, error) {
	path := DevicePath(b.adapter, addr)
	obj := b.conn.Object(Dest, path)

	props := getProps(obj, DeviceIF)
	if len(props) == 0 {
		return common.BtDeviceData{}, errDeviceGone
	}

	ifaces := map[string]map[string]dbus.Variant{DeviceIF: props}
	if bat := getProps(obj, BatteryIF); len(bat) > 0 {
		ifaces[BatteryIF] = bat
	}
	d, _ := DeviceFromProps(ifaces)
	return d, nil
}

// Devices returns a snapshot of every device the daemon knows under
// the active adapter, noise filtered out.
func (b *Backend) Devices() ([]common.BtDeviceData, error) {
	objs, err := b.managedObjects()
	if err != nil {
		return nil, err
	}

	var devices []common.BtDeviceData
	for path, ifaces := range objs {
		if AddressFromPath(path) == "" {
			continue
		}
		d, ok := DeviceFromProps(ifaces)
		if !ok || IsNoise(d) {
			continue
		}
		devices = append(devices, d)
	}
	return devices, nil
}
